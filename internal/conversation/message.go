// Package conversation owns the ordered message log and sequences sends to
// the gateway one at a time.
package conversation

import (
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Dmetrikx/aleyya/internal/gateway"
)

// Message is one entry of the conversation log. Messages are never mutated
// after they are appended.
type Message struct {
	ID         string
	Content    string
	IsFromUser bool
	Image      image.Image
	Timestamp  time.Time
}

func newMessage(content string, fromUser bool, img image.Image, now time.Time) Message {
	return Message{
		ID:         uuid.NewString(),
		Content:    content,
		IsFromUser: fromUser,
		Image:      img,
		Timestamp:  now,
	}
}

// State is a point-in-time copy of the controller's observable state.
// ErrorMessage is empty when there is no error.
type State struct {
	Messages      []Message
	IsSending     bool
	ErrorMessage  string
	SelectedModel gateway.ModelDescriptor
	Attachment    image.Image
	Input         string
	HasCredential bool
}

// StalePolicy decides what happens to a completion that arrives after the
// conversation it belonged to was reset
type StalePolicy int

const (
	// StaleAppend applies the completion to whatever log exists when it arrives
	StaleAppend StalePolicy = iota
	// StaleDiscard drops completions from an earlier conversation
	StaleDiscard
)

// String returns the configuration spelling of the policy
func (p StalePolicy) String() string {
	switch p {
	case StaleAppend:
		return "append"
	case StaleDiscard:
		return "discard"
	default:
		return fmt.Sprintf("StalePolicy(%d)", int(p))
	}
}

// ParseStalePolicy parses "append" or "discard"; empty means append
func ParseStalePolicy(s string) (StalePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "append":
		return StaleAppend, nil
	case "discard":
		return StaleDiscard, nil
	default:
		return StaleAppend, fmt.Errorf("unknown stale policy %q (want append or discard)", s)
	}
}
