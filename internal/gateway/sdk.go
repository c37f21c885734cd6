package gateway

import (
	"bytes"
	"context"
	"errors"
	"image"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// SDKClient is a Client backed by the go-openai SDK. The gateway speaks the
// OpenAI chat completions dialect, so only the base URL differs.
type SDKClient struct {
	client *openai.Client
	apiKey string
	opts   options
}

// NewSDKClient creates an SDK-backed gateway client bound to apiKey
func NewSDKClient(apiKey string, opts ...Option) *SDKClient {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	apiKey = strings.TrimSpace(apiKey)
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = o.baseURL
	cfg.HTTPClient = bufferedDoer{next: o.httpClient}

	return &SDKClient{
		client: openai.NewClientWithConfig(cfg),
		apiKey: apiKey,
		opts:   o,
	}
}

// Send sends a prompt (and optional image) through the SDK and returns the reply
func (c *SDKClient) Send(ctx context.Context, prompt, modelID string, img image.Image) (string, error) {
	logger := c.opts.logger
	logger.InfoContext(ctx, "sending gateway request via sdk",
		"model", modelID,
		"prompt_length", len(prompt),
		"has_image", img != nil,
		"key_fingerprint", KeyFingerprint(c.apiKey))

	if _, err := chatCompletionsURL(c.opts.baseURL); err != nil {
		return "", err
	}

	msg := openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	}
	if img != nil {
		dataURI, err := encodeJPEGDataURI(img, c.opts.jpegQuality)
		if err != nil {
			logger.ErrorContext(ctx, "failed to encode attachment", "error", err)
			return "", err
		}
		msg.Content = ""
		msg.MultiContent = []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: prompt},
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURI}},
		}
	}

	raw := &rawBody{}
	resp, err := c.client.CreateChatCompletion(context.WithValue(ctx, rawBodyKey{}, raw), openai.ChatCompletionRequest{
		Model:    modelID,
		Messages: []openai.ChatCompletionMessage{msg},
	})
	if err != nil {
		gwErr := classifySDKError(err, raw.data)
		logger.ErrorContext(ctx, "gateway sdk request failed",
			"kind", gwErr.Kind.String(),
			"status_code", gwErr.StatusCode,
			"response_body", gwErr.Body,
			"error", err)
		return "", gwErr
	}

	if len(resp.Choices) == 0 {
		logger.ErrorContext(ctx, "no choices in gateway response")
		return "", NewDecodingError(errors.New("response has no choices"))
	}

	content := resp.Choices[0].Message.Content
	logger.InfoContext(ctx, "received gateway response",
		"model", modelID,
		"response_length", len(content),
		"finish_reason", resp.Choices[0].FinishReason)

	return content, nil
}

// rawBody receives the response bytes of one SDK call
type rawBody struct {
	data []byte
}

type rawBodyKey struct{}

// bufferedDoer reads each response body in full before go-openai sees it.
// A failed read is reported as a transport error, and the bytes are handed
// to the rawBody carried by the request context.
type bufferedDoer struct {
	next *http.Client
}

func (d bufferedDoer) Do(req *http.Request) (*http.Response, error) {
	resp, err := d.next.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBodySize))
	if err != nil {
		return nil, &url.Error{Op: req.Method, URL: req.URL.String(), Err: err}
	}
	if raw, ok := req.Context().Value(rawBodyKey{}).(*rawBody); ok {
		raw.data = body
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}

// classifySDKError maps go-openai errors onto the gateway taxonomy. Rejections
// carry the raw response text so both transports report the same body.
func classifySDKError(err error, raw []byte) *Error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		body := apiErr.Message
		if raw != nil {
			body = string(raw)
		}
		return NewAPIError(apiErr.HTTPStatusCode, strings.ToValidUTF8(body, "�"))
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		body := reqErr.Body
		if body == nil {
			body = raw
		}
		return NewAPIError(reqErr.HTTPStatusCode, strings.ToValidUTF8(string(body), "�"))
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return NewNetworkError(err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return NewNetworkError(err)
	}

	return NewDecodingError(err)
}
