package console

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/charmbracelet/glamour"

	"github.com/Dmetrikx/aleyya/internal/conversation"
	"github.com/Dmetrikx/aleyya/internal/gateway"
)

// Renderer turns reply text into terminal output
type Renderer interface {
	Render(text string) (string, error)
}

// PlainRenderer prints replies unchanged
type PlainRenderer struct{}

// Render returns text with a trailing newline
func (PlainRenderer) Render(text string) (string, error) {
	return text + "\n", nil
}

// NewMarkdownRenderer renders replies as terminal markdown, falling back to
// plain text if the glamour renderer cannot be built
func NewMarkdownRenderer(width int) Renderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return PlainRenderer{}
	}
	return r
}

// parseCommand splits a slash command into its name and arguments
func parseCommand(line string) (string, []string, bool) {
	if !strings.HasPrefix(line, CommandPrefix) {
		return "", nil, false
	}

	parts := strings.Fields(line)
	if len(parts) == 0 {
		return "", nil, false
	}

	command := strings.ToLower(strings.TrimPrefix(parts[0], CommandPrefix))
	if command == "" {
		return "", nil, false
	}
	return command, parts[1:], true
}

// commandArgument returns the text after a slash command's name, trimmed at
// both ends but otherwise untouched, so file paths keep their spacing
func commandArgument(line string) string {
	line = strings.TrimSpace(line)
	i := strings.IndexFunc(line, unicode.IsSpace)
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(line[i:])
}

// MaskKey hides all but the first and last few characters of an API key
func MaskKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= MaskVisibleChars*2 {
		return strings.Repeat("*", len(key))
	}
	return key[:MaskVisibleChars] + strings.Repeat("*", 8) + key[len(key)-MaskVisibleChars:]
}

// modelLabel is the display name with the wire id in parentheses
func modelLabel(m gateway.ModelDescriptor) string {
	return fmt.Sprintf("%s (%s)", m.DisplayName, m.WireID)
}

// FormatModelList renders the catalog, marking the selected entry
func FormatModelList(models []gateway.ModelDescriptor, selected string) string {
	var b strings.Builder
	for _, m := range models {
		marker := " "
		if m.Key == selected {
			marker = "*"
		}
		images := ""
		if m.SupportsImageInput {
			images = "  [images]"
		}
		fmt.Fprintf(&b, "%s %-9s %s%s\n", marker, m.Key, modelLabel(m), images)
	}
	return b.String()
}

// formatMessage renders one log entry; assistant text goes through r
func formatMessage(m conversation.Message, r Renderer) string {
	if m.IsFromUser {
		line := "You: " + m.Content
		if m.Image != nil {
			size := m.Image.Bounds().Size()
			line += fmt.Sprintf(" [image %dx%d]", size.X, size.Y)
		}
		return line + "\n"
	}

	rendered, err := r.Render(m.Content)
	if err != nil {
		return m.Content + "\n"
	}
	return rendered
}
