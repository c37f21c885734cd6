package gateway

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/jpeg"

	"github.com/sashabaranov/go-openai"
)

const jpegDataURIPrefix = "data:image/jpeg;base64,"

// textPart and imagePart are kept as separate types so each part carries
// exactly its own fields on the wire.
type textPart struct {
	Type openai.ChatMessagePartType `json:"type"`
	Text string                     `json:"text"`
}

type imagePart struct {
	Type     openai.ChatMessagePartType  `json:"type"`
	ImageURL *openai.ChatMessageImageURL `json:"image_url"`
}

// chatMessage content is either a string or a []any of parts
type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

// buildRequest creates the request body for a single user turn. Text-only
// turns carry the raw prompt; image turns carry a text part and an image part.
func buildRequest(prompt, modelID string, img image.Image, quality int) (chatRequest, error) {
	msg := chatMessage{Role: openai.ChatMessageRoleUser, Content: prompt}

	if img != nil {
		dataURI, err := encodeJPEGDataURI(img, quality)
		if err != nil {
			return chatRequest{}, err
		}
		msg.Content = []any{
			textPart{Type: openai.ChatMessagePartTypeText, Text: prompt},
			imagePart{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: dataURI},
			},
		}
	}

	return chatRequest{
		Model:    modelID,
		Messages: []chatMessage{msg},
	}, nil
}

// encodeJPEGDataURI re-encodes img as JPEG and returns it as a base64 data URI
func encodeJPEGDataURI(img image.Image, quality int) (string, error) {
	if img == nil {
		return "", NewImageEncodingError(errors.New("nil image"))
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return "", NewImageEncodingError(errors.New("image has no pixels"))
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return "", NewImageEncodingError(err)
	}
	return jpegDataURIPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
