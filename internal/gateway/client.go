package gateway

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// Option configures a gateway client
type Option func(*options)

type options struct {
	baseURL     string
	httpClient  *http.Client
	logger      *slog.Logger
	jpegQuality int
}

func defaultOptions() options {
	return options{
		baseURL:     DefaultBaseURL,
		httpClient:  &http.Client{},
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		jpegQuality: DefaultJPEGQuality,
	}
}

// WithBaseURL points the client at a different gateway root
func WithBaseURL(baseURL string) Option {
	return func(o *options) {
		o.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient replaces the transport
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		if c != nil {
			o.httpClient = c
		}
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithJPEGQuality overrides the attachment re-encoding quality (1-100)
func WithJPEGQuality(q int) Option {
	return func(o *options) {
		if q >= 1 && q <= 100 {
			o.jpegQuality = q
		}
	}
}

// HTTPClient talks to the gateway with hand-built chat/completions requests.
// The credential is fixed for the lifetime of the instance.
type HTTPClient struct {
	apiKey string
	opts   options
}

// NewHTTPClient creates a gateway client bound to apiKey
func NewHTTPClient(apiKey string, opts ...Option) *HTTPClient {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &HTTPClient{
		apiKey: strings.TrimSpace(apiKey),
		opts:   o,
	}
}

// Send sends a prompt (and optional image) to the gateway and returns the reply
func (c *HTTPClient) Send(ctx context.Context, prompt, modelID string, img image.Image) (string, error) {
	logger := c.opts.logger
	logger.InfoContext(ctx, "sending gateway request",
		"model", modelID,
		"prompt_length", len(prompt),
		"has_image", img != nil,
		"key_fingerprint", KeyFingerprint(c.apiKey))

	endpoint, err := chatCompletionsURL(c.opts.baseURL)
	if err != nil {
		return "", err
	}

	reqBody, err := buildRequest(prompt, modelID, img, c.opts.jpegQuality)
	if err != nil {
		logger.ErrorContext(ctx, "failed to encode attachment", "error", err)
		return "", err
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		// only reachable with a broken image part
		return "", NewImageEncodingError(fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return "", NewInvalidURLError(err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.opts.httpClient.Do(req)
	if err != nil {
		logger.ErrorContext(ctx, "gateway request failed", "error", err)
		return "", NewNetworkError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBodySize))
	if err != nil {
		logger.ErrorContext(ctx, "failed to read gateway response", "error", err)
		return "", NewNetworkError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.ErrorContext(ctx, "gateway API error",
			"status_code", resp.StatusCode,
			"response_body", string(body))
		return "", NewAPIError(resp.StatusCode, strings.ToValidUTF8(string(body), "�"))
	}

	content, err := parseReply(body)
	if err != nil {
		logger.ErrorContext(ctx, "failed to decode gateway response", "error", err)
		return "", err
	}

	logger.InfoContext(ctx, "received gateway response",
		"model", modelID,
		"response_length", len(content))

	return content, nil
}

// parseReply extracts the first choice's message content
func parseReply(body []byte) (string, error) {
	var result openai.ChatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", NewDecodingError(err)
	}
	if len(result.Choices) == 0 {
		return "", NewDecodingError(errors.New("response has no choices"))
	}
	return result.Choices[0].Message.Content, nil
}

// chatCompletionsURL joins the base URL with the completions path
func chatCompletionsURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", NewInvalidURLError(err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", NewInvalidURLError(fmt.Errorf("base URL %q is not absolute", baseURL))
	}
	return u.JoinPath("chat", "completions").String(), nil
}

// KeyFingerprint returns a short SHA-256 fingerprint of an API key for logs
func KeyFingerprint(apiKey string) string {
	if apiKey == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(h[:4])
}
