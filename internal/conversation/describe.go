package conversation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Dmetrikx/aleyya/internal/gateway"
)

const missingCredentialMessage = "An OpenRouter API key is required before sending messages."

// Describe renders a send failure as the text shown to the user
func Describe(err error) string {
	if err == nil {
		return ""
	}

	var gwErr *gateway.Error
	if !errors.As(err, &gwErr) {
		return fmt.Sprintf("Unexpected error: %v", err)
	}

	switch gwErr.Kind {
	case gateway.KindAPIRejection:
		body := strings.TrimSpace(gwErr.Body)
		if body == "" {
			body = "(empty response body)"
		}
		return fmt.Sprintf("The gateway rejected the request (HTTP %d): %s", gwErr.StatusCode, body)
	case gateway.KindNetwork:
		return fmt.Sprintf("Network error: %v", gwErr.Err)
	case gateway.KindDecoding:
		return fmt.Sprintf("Could not read the gateway response: %v", gwErr.Err)
	case gateway.KindImageEncoding:
		return fmt.Sprintf("Could not encode the attached image: %v", gwErr.Err)
	case gateway.KindInvalidURL:
		return fmt.Sprintf("The gateway URL is invalid: %v", gwErr.Err)
	default:
		return gwErr.Error()
	}
}
