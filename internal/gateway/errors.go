package gateway

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed send
type ErrorKind int

const (
	KindInvalidURL ErrorKind = iota + 1
	KindNetwork
	KindDecoding
	KindImageEncoding
	KindAPIRejection
)

// Kind sentinels, matched by errors.Is against any *Error of the same kind.
var (
	ErrInvalidURL    = errors.New("invalid gateway URL")
	ErrNetwork       = errors.New("network failure")
	ErrDecoding      = errors.New("decoding failure")
	ErrImageEncoding = errors.New("image encoding failure")
	ErrAPIRejection  = errors.New("api rejection")
)

// String returns the kind name used in logs and metrics labels
func (k ErrorKind) String() string {
	switch k {
	case KindInvalidURL:
		return "invalid_url"
	case KindNetwork:
		return "network"
	case KindDecoding:
		return "decoding"
	case KindImageEncoding:
		return "image_encoding"
	case KindAPIRejection:
		return "api_rejection"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindInvalidURL:
		return ErrInvalidURL
	case KindNetwork:
		return ErrNetwork
	case KindDecoding:
		return ErrDecoding
	case KindImageEncoding:
		return ErrImageEncoding
	case KindAPIRejection:
		return ErrAPIRejection
	default:
		return nil
	}
}

// Error is the only error type a Client returns. StatusCode and Body are set
// for KindAPIRejection; Err holds the underlying cause for the other kinds.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Body       string
	Err        error
}

// NewAPIError creates a rejection error for a non-2xx response
func NewAPIError(statusCode int, body string) *Error {
	return &Error{
		Kind:       KindAPIRejection,
		StatusCode: statusCode,
		Body:       body,
	}
}

// NewNetworkError wraps a transport-level fault
func NewNetworkError(err error) *Error {
	return &Error{Kind: KindNetwork, Err: err}
}

// NewDecodingError wraps a response parse fault
func NewDecodingError(err error) *Error {
	return &Error{Kind: KindDecoding, Err: err}
}

// NewImageEncodingError wraps a JPEG encoding fault
func NewImageEncodingError(err error) *Error {
	return &Error{Kind: KindImageEncoding, Err: err}
}

// NewInvalidURLError wraps an endpoint construction fault
func NewInvalidURLError(err error) *Error {
	return &Error{Kind: KindInvalidURL, Err: err}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Kind == KindAPIRejection {
		return fmt.Sprintf("gateway API error (status %d): %s", e.StatusCode, e.Body)
	}
	if e.Err != nil {
		return fmt.Sprintf("%v: %v", e.Kind.sentinel(), e.Err)
	}
	return fmt.Sprint(e.Kind.sentinel())
}

// Unwrap implements error unwrapping
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}
