package gateway

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIsMatchesKind(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	tests := []struct {
		name   string
		err    *Error
		target error
	}{
		{name: "network", err: NewNetworkError(cause), target: ErrNetwork},
		{name: "decoding", err: NewDecodingError(cause), target: ErrDecoding},
		{name: "image", err: NewImageEncodingError(cause), target: ErrImageEncoding},
		{name: "url", err: NewInvalidURLError(cause), target: ErrInvalidURL},
		{name: "api", err: NewAPIError(500, "boom"), target: ErrAPIRejection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("send: %w", tt.err)
			if !errors.Is(wrapped, tt.target) {
				t.Errorf("errors.Is(%v, %v) = false, want true", wrapped, tt.target)
			}
			for _, other := range []error{ErrNetwork, ErrDecoding, ErrImageEncoding, ErrInvalidURL, ErrAPIRejection} {
				if other != tt.target && errors.Is(tt.err, other) {
					t.Errorf("errors.Is(%v, %v) = true, want false", tt.err, other)
				}
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "api rejection",
			err:  NewAPIError(401, "unauthorized"),
			want: "gateway API error (status 401): unauthorized",
		},
		{
			name: "network with cause",
			err:  NewNetworkError(errors.New("no route to host")),
			want: "network failure: no route to host",
		},
		{
			name: "decoding without cause",
			err:  &Error{Kind: KindDecoding},
			want: "decoding failure",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnwrapReturnsCause(t *testing.T) {
	cause := errors.New("eof")
	err := NewDecodingError(cause)
	if !errors.Is(err, cause) {
		t.Errorf("errors.Is(err, cause) = false, want true")
	}
	if errors.Unwrap(NewAPIError(400, "bad")) != nil {
		t.Errorf("api rejection should have no wrapped cause")
	}
}
