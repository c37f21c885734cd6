package conversation

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Dmetrikx/aleyya/internal/gateway"
	"github.com/Dmetrikx/aleyya/internal/imaging"
	"github.com/Dmetrikx/aleyya/internal/metrics"
	"github.com/Dmetrikx/aleyya/internal/prefs"
)

// Guard rejections returned by the controller
var (
	ErrBusy              = errors.New("a message is already being sent")
	ErrEmptyMessage      = errors.New("nothing to send")
	ErrMissingCredential = errors.New("api key is not set")
	ErrUnknownModel      = errors.New("unknown model")
	ErrImageUnsupported  = errors.New("selected model does not accept images")
)

// ClientFactory builds a gateway client bound to one credential
type ClientFactory func(apiKey string) gateway.Client

// Options configures a Controller
type Options struct {
	Store        prefs.Store
	NewClient    ClientFactory
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
	StalePolicy  StalePolicy
	MaxImageEdge int
	// DefaultModel is a catalog key or wire id used when no selection is persisted
	DefaultModel string
	Clock        func() time.Time
}

// pendingSend is everything a dispatched send needs to reconcile itself
type pendingSend struct {
	seq    uint64
	epoch  uint64
	prompt string
	model  gateway.ModelDescriptor
	image  image.Image
	client gateway.Client
}

// Controller owns the conversation state. A single mutex guards the whole
// aggregate; gateway calls run on their own goroutine and reconcile under it.
type Controller struct {
	mu sync.Mutex

	// persistMu orders store writes with the state change they back, so the
	// stored credential and model always match the live ones.
	persistMu sync.Mutex

	store     prefs.Store
	newClient ClientFactory
	logger    *slog.Logger
	metrics   *metrics.Metrics
	policy    StalePolicy
	maxEdge   int
	now       func() time.Time

	credential string
	client     gateway.Client
	model      gateway.ModelDescriptor
	input      string
	attachment image.Image
	messages   []Message
	sending    bool
	errorMsg   string

	// epoch counts resets; seq counts dispatched sends. inflight is the seq
	// whose completion may clear the sending flag, 0 when none.
	epoch    uint64
	seq      uint64
	inflight uint64
	idle     chan struct{} // open exactly while sending

	notifyMu     sync.Mutex
	observers    map[int]func(State)
	nextObserver int
}

// New creates a controller, reading the credential and model selection from the store
func New(ctx context.Context, opts Options) (*Controller, error) {
	if opts.Store == nil {
		return nil, errors.New("conversation: preference store is required")
	}
	if opts.NewClient == nil {
		return nil, errors.New("conversation: client factory is required")
	}

	c := &Controller{
		store:     opts.Store,
		newClient: opts.NewClient,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		policy:    opts.StalePolicy,
		maxEdge:   opts.MaxImageEdge,
		now:       opts.Clock,
		messages:  []Message{},
		observers: make(map[int]func(State)),
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if c.maxEdge <= 0 {
		c.maxEdge = imaging.DefaultMaxEdge
	}
	if c.now == nil {
		c.now = time.Now
	}
	c.idle = make(chan struct{})
	close(c.idle)

	key, err := prefs.GetString(ctx, c.store, prefs.KeyAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read api key: %w", err)
	}
	c.applyCredential(key)

	c.model = gateway.DefaultModel()
	if m, ok := gateway.LookupModel(opts.DefaultModel); ok {
		c.model = m
	}
	saved, err := prefs.GetString(ctx, c.store, prefs.KeySelectedModel)
	if err != nil {
		c.logger.WarnContext(ctx, "failed to read model selection", "error", err)
	} else if m, ok := gateway.LookupModel(saved); ok {
		c.model = m
	}

	return c, nil
}

// applyCredential swaps the live credential and rebuilds the client.
// Callers hold mu, except during construction.
func (c *Controller) applyCredential(key string) {
	c.credential = strings.TrimSpace(key)
	c.client = nil
	if c.credential != "" {
		c.client = c.newClient(c.credential)
	}
}

// SetInput replaces the prompt buffer
func (c *Controller) SetInput(text string) {
	c.mu.Lock()
	c.input = text
	c.commit()
}

// Input returns the prompt buffer
func (c *Controller) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// SendMessage sends the prompt buffer and pending attachment. The user message
// is appended before SendMessage returns; the reply is reconciled later.
// While a send is outstanding further calls return ErrBusy and change nothing.
func (c *Controller) SendMessage(ctx context.Context) error {
	c.mu.Lock()

	if c.sending {
		c.mu.Unlock()
		c.metrics.Rejected("busy")
		return ErrBusy
	}

	prompt := strings.TrimSpace(c.input)
	if prompt == "" && c.attachment == nil {
		c.mu.Unlock()
		c.metrics.Rejected("empty")
		return ErrEmptyMessage
	}

	if c.credential == "" {
		c.errorMsg = missingCredentialMessage
		c.commit()
		c.metrics.Rejected("missing_credential")
		c.logger.WarnContext(ctx, "send refused, api key not set")
		return ErrMissingCredential
	}

	c.messages = append(c.messages, newMessage(prompt, true, c.attachment, c.now()))
	c.errorMsg = ""

	c.seq++
	p := pendingSend{
		seq:    c.seq,
		epoch:  c.epoch,
		prompt: prompt,
		model:  c.model,
		image:  c.attachment,
		client: c.client,
	}

	c.input = ""
	c.attachment = nil
	c.sending = true
	c.inflight = p.seq
	c.idle = make(chan struct{})
	c.commit()

	c.metrics.SetInFlight(true)
	c.logger.InfoContext(ctx, "message sent",
		"model", p.model.WireID,
		"prompt_length", len(p.prompt),
		"has_image", p.image != nil,
		"seq", p.seq)

	go c.dispatch(context.WithoutCancel(ctx), p)
	return nil
}

// dispatch runs one gateway call to completion and reconciles it
func (c *Controller) dispatch(ctx context.Context, p pendingSend) {
	start := time.Now()
	reply, err := p.client.Send(ctx, p.prompt, p.model.WireID, p.image)
	c.reconcile(ctx, p, reply, err, time.Since(start))
}

func (c *Controller) reconcile(ctx context.Context, p pendingSend, reply string, err error, elapsed time.Duration) {
	c.mu.Lock()

	if p.seq == c.inflight {
		c.finishSending()
	}

	outcome := metrics.OutcomeSuccess
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) {
		outcome = gwErr.Kind.String()
	} else if err != nil {
		outcome = "unknown"
	}

	if p.epoch != c.epoch && c.policy == StaleDiscard {
		c.commit()
		c.metrics.ObserveSend(p.model.WireID, metrics.OutcomeStale, elapsed)
		c.logger.InfoContext(ctx, "discarding completion from a previous conversation",
			"seq", p.seq,
			"outcome", outcome)
		return
	}

	if err != nil {
		c.errorMsg = Describe(err)
		c.commit()
		c.metrics.ObserveSend(p.model.WireID, outcome, elapsed)
		c.logger.ErrorContext(ctx, "send failed",
			"model", p.model.WireID,
			"seq", p.seq,
			"kind", outcome,
			"error", err)
		return
	}

	c.messages = append(c.messages, newMessage(reply, false, nil, c.now()))
	c.commit()
	c.metrics.ObserveSend(p.model.WireID, outcome, elapsed)
	c.logger.InfoContext(ctx, "reply received",
		"model", p.model.WireID,
		"seq", p.seq,
		"response_length", len(reply),
		"duration_ms", elapsed.Milliseconds())
}

// finishSending leaves the sending state. Callers hold mu.
func (c *Controller) finishSending() {
	if !c.sending {
		return
	}
	c.sending = false
	c.inflight = 0
	close(c.idle)
	c.metrics.SetInFlight(false)
}

// StartNewConversation clears the log, attachment, input and error, and
// forces the idle state. An outstanding gateway call is not cancelled; its
// completion is handled according to the stale policy.
func (c *Controller) StartNewConversation() {
	c.mu.Lock()
	c.messages = []Message{}
	c.attachment = nil
	c.input = ""
	c.errorMsg = ""
	c.finishSending()
	c.epoch++
	c.commit()
}

// SetAttachment normalizes img and stages it for the next send, replacing
// any pending attachment. A nil image clears the attachment.
func (c *Controller) SetAttachment(img image.Image) error {
	if img == nil {
		c.ClearAttachment()
		return nil
	}

	c.mu.Lock()
	if !c.model.SupportsImageInput {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrImageUnsupported, c.model.DisplayName)
	}
	maxEdge := c.maxEdge
	c.mu.Unlock()

	normalized := imaging.Normalize(img, maxEdge)

	c.mu.Lock()
	if !c.model.SupportsImageInput {
		// selection changed while resampling
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrImageUnsupported, c.model.DisplayName)
	}
	c.attachment = normalized
	c.commit()
	return nil
}

// ClearAttachment drops the pending attachment
func (c *Controller) ClearAttachment() {
	c.mu.Lock()
	c.attachment = nil
	c.commit()
}

// SelectModel switches the model used for subsequent sends. Choosing a model
// without image input drops the pending attachment.
func (c *Controller) SelectModel(ctx context.Context, name string) error {
	m, ok := gateway.LookupModel(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}

	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	c.model = m
	if !m.SupportsImageInput {
		c.attachment = nil
	}
	c.commit()

	if err := c.store.Set(ctx, prefs.KeySelectedModel, m.Key); err != nil {
		c.logger.WarnContext(ctx, "failed to persist model selection", "model", m.Key, "error", err)
	}
	return nil
}

// SelectedModel returns the current model
func (c *Controller) SelectedModel() gateway.ModelDescriptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model
}

// SetCredential persists a new API key and replaces the gateway client.
// A send already in flight keeps the client it started with.
func (c *Controller) SetCredential(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)

	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	if err := prefs.SaveAPIKey(ctx, c.store, key); err != nil {
		return fmt.Errorf("failed to store api key: %w", err)
	}

	c.mu.Lock()
	c.applyCredential(key)
	c.commit()

	c.logger.InfoContext(ctx, "api key updated", "key_fingerprint", gateway.KeyFingerprint(key))
	return nil
}

// HasCredential reports whether an API key is set
func (c *Controller) HasCredential() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.credential != ""
}

// State returns a copy of the current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// Wait blocks until no send is outstanding or ctx is done
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	idle := c.idle
	c.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers fn to receive a State after every change. Observers
// run synchronously in change order and must not call back into the
// Controller. The returned func unregisters fn.
func (c *Controller) Subscribe(fn func(State)) func() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	id := c.nextObserver
	c.nextObserver++
	c.observers[id] = fn

	return func() {
		c.notifyMu.Lock()
		defer c.notifyMu.Unlock()
		delete(c.observers, id)
	}
}

// commit snapshots the state, releases mu and notifies observers. Taking
// notifyMu before releasing mu keeps notifications in mutation order.
func (c *Controller) commit() {
	s := c.snapshot()
	c.notifyMu.Lock()
	c.mu.Unlock()
	defer c.notifyMu.Unlock()

	for _, fn := range c.observers {
		fn(s)
	}
}

// snapshot copies the state. Callers hold mu.
func (c *Controller) snapshot() State {
	msgs := make([]Message, len(c.messages))
	copy(msgs, c.messages)
	return State{
		Messages:      msgs,
		IsSending:     c.sending,
		ErrorMessage:  c.errorMsg,
		SelectedModel: c.model,
		Attachment:    c.attachment,
		Input:         c.input,
		HasCredential: c.credential != "",
	}
}
