package gateway

import (
	"context"
	"image"
)

// Client defines the interface for gateway operations
type Client interface {
	// Send posts a single user turn and returns the first choice's text.
	// img may be nil. Any returned error is a *Error.
	Send(ctx context.Context, prompt, modelID string, img image.Image) (string, error)
}
