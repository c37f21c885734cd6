// Package console is a line-oriented front end that drives a conversation
// controller from a terminal.
package console

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/peterh/liner"

	"github.com/Dmetrikx/aleyya/internal/conversation"
	"github.com/Dmetrikx/aleyya/internal/gateway"
	"github.com/Dmetrikx/aleyya/internal/imaging"
)

// Chat is the part of the conversation controller the console drives
type Chat interface {
	SetInput(text string)
	SendMessage(ctx context.Context) error
	Wait(ctx context.Context) error
	StartNewConversation()
	SetAttachment(img image.Image) error
	ClearAttachment()
	SelectModel(ctx context.Context, name string) error
	SelectedModel() gateway.ModelDescriptor
	SetCredential(ctx context.Context, key string) error
	State() conversation.State
}

var _ Chat = (*conversation.Controller)(nil)

// LineReader reads one line of user input per call
type LineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// Console runs the read-send-print loop
type Console struct {
	chat     Chat
	in       LineReader
	out      io.Writer
	renderer Renderer
	logger   *slog.Logger

	loadImage func(path string) (image.Image, error)
}

// New creates a console. A nil renderer prints replies as plain text.
func New(chat Chat, in LineReader, out io.Writer, renderer Renderer, logger *slog.Logger) *Console {
	if renderer == nil {
		renderer = PlainRenderer{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Console{
		chat:      chat,
		in:        in,
		out:       out,
		renderer:  renderer,
		logger:    logger,
		loadImage: imaging.LoadFile,
	}
}

// Run reads lines until /quit, end of input or an aborted prompt
func (c *Console) Run(ctx context.Context) error {
	fmt.Fprintf(c.out, "Chatting with %s. Type /help for commands.\n", modelLabel(c.chat.SelectedModel()))

	for {
		line, err := c.in.Prompt(PromptString)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				fmt.Fprintln(c.out)
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		c.in.AppendHistory(line)

		if command, args, ok := parseCommand(line); ok {
			quit, err := c.handleCommand(ctx, command, args, commandArgument(line))
			if err != nil {
				fmt.Fprintf(c.out, "Error: %v\n", err)
			}
			if quit {
				return nil
			}
			continue
		}

		if err := c.send(ctx, line, true); err != nil {
			fmt.Fprintf(c.out, "Error: %s\n", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Send submits text with any pending attachment, waits for the reply and
// prints it. A gateway failure is returned as the user-facing message.
func (c *Console) Send(ctx context.Context, text string) error {
	return c.send(ctx, text, false)
}

func (c *Console) send(ctx context.Context, text string, announce bool) error {
	before := len(c.chat.State().Messages)

	c.chat.SetInput(text)
	if err := c.chat.SendMessage(ctx); err != nil {
		if errors.Is(err, conversation.ErrMissingCredential) {
			return fmt.Errorf("%s Use /key <value> or `aleyya key set`", c.chat.State().ErrorMessage)
		}
		return err
	}

	model := c.chat.SelectedModel()
	if announce {
		fmt.Fprintf(c.out, "Asking %s ...\n", model.DisplayName)
	}
	c.logger.DebugContext(ctx, "waiting for reply", "model", model.WireID)

	if err := c.chat.Wait(ctx); err != nil {
		return fmt.Errorf("gave up waiting for a reply: %w", err)
	}

	s := c.chat.State()
	if before <= len(s.Messages) {
		for _, m := range s.Messages[before:] {
			if !m.IsFromUser {
				fmt.Fprint(c.out, formatMessage(m, c.renderer))
			}
		}
	}
	if s.ErrorMessage != "" {
		return errors.New(s.ErrorMessage)
	}
	return nil
}

// handleCommand runs a slash command and reports whether the loop should stop.
// rest is everything after the command name, whitespace intact.
func (c *Console) handleCommand(ctx context.Context, command string, args []string, rest string) (bool, error) {
	c.logger.DebugContext(ctx, "received command",
		"command", command,
		"args_count", len(args))

	switch command {
	case "quit", "exit":
		return true, nil
	case "help":
		fmt.Fprintln(c.out, helpText)
	case "new":
		c.chat.StartNewConversation()
		fmt.Fprintln(c.out, "Started a new conversation.")
	case "models":
		fmt.Fprint(c.out, FormatModelList(gateway.Models(), c.chat.SelectedModel().Key))
	case "model":
		return false, c.handleModel(ctx, args)
	case "attach":
		return false, c.handleAttach(rest)
	case "detach":
		c.chat.ClearAttachment()
		fmt.Fprintln(c.out, "Attachment removed.")
	case "key":
		return false, c.handleKey(ctx, args)
	case "history":
		for _, m := range c.chat.State().Messages {
			fmt.Fprint(c.out, formatMessage(m, c.renderer))
		}
	default:
		fmt.Fprintf(c.out, "Unknown command %s%s. Type /help for the list.\n", CommandPrefix, command)
	}
	return false, nil
}

func (c *Console) handleModel(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintf(c.out, "Model: %s\n", modelLabel(c.chat.SelectedModel()))
		return nil
	}

	hadAttachment := c.chat.State().Attachment != nil
	if err := c.chat.SelectModel(ctx, args[0]); err != nil {
		return err
	}

	selected := c.chat.SelectedModel()
	fmt.Fprintf(c.out, "Model: %s\n", modelLabel(selected))
	if hadAttachment && c.chat.State().Attachment == nil {
		fmt.Fprintf(c.out, "%s does not accept images; the attachment was removed.\n", selected.DisplayName)
	}
	return nil
}

func (c *Console) handleAttach(path string) error {
	if path == "" {
		fmt.Fprintf(c.out, "Usage: %sattach <path>\n", CommandPrefix)
		return nil
	}

	img, err := c.loadImage(path)
	if err != nil {
		return err
	}
	if err := c.chat.SetAttachment(img); err != nil {
		return err
	}

	size := c.chat.State().Attachment.Bounds().Size()
	fmt.Fprintf(c.out, "Attached %s (%dx%d).\n", path, size.X, size.Y)
	return nil
}

func (c *Console) handleKey(ctx context.Context, args []string) error {
	key := strings.Join(args, "")
	if err := c.chat.SetCredential(ctx, key); err != nil {
		return err
	}
	if key == "" {
		fmt.Fprintln(c.out, "API key cleared.")
		return nil
	}
	fmt.Fprintf(c.out, "API key saved: %s\n", MaskKey(key))
	return nil
}

// LinerReader is a LineReader with line editing and a persisted history
type LinerReader struct {
	state       *liner.State
	historyFile string
}

// NewLinerReader opens the terminal for line editing. Ctrl+C aborts the prompt.
func NewLinerReader(historyFile string) *LinerReader {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)

	r := &LinerReader{state: state, historyFile: historyFile}
	if historyFile != "" {
		if f, err := os.Open(historyFile); err == nil {
			_, _ = state.ReadHistory(f)
			f.Close()
		}
	}
	return r
}

// Prompt reads a line
func (r *LinerReader) Prompt(prompt string) (string, error) {
	return r.state.Prompt(prompt)
}

// AppendHistory records a line for arrow-key recall
func (r *LinerReader) AppendHistory(item string) {
	r.state.AppendHistory(item)
}

// Close writes the history file and restores the terminal
func (r *LinerReader) Close() error {
	if r.historyFile != "" {
		if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
			_, _ = r.state.WriteHistory(f)
			f.Close()
		}
	}
	return r.state.Close()
}
