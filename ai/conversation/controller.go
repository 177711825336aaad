package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	agent "github.com/hrygo/angelo/ai/agents"
	"github.com/hrygo/angelo/ai/format"
	"github.com/hrygo/angelo/ai/internal/strutil"
	"github.com/hrygo/angelo/ai/metrics"
	"github.com/hrygo/angelo/ai/routing"
	"github.com/hrygo/angelo/store"
)

// DefaultTurnLatency is the pause before a turn is resolved.
const DefaultTurnLatency = 600 * time.Millisecond

// ErrNothingToSpeak is returned by Speak when no unspoken reply is left.
var ErrNothingToSpeak = errors.New("conversation: nothing to speak")

// Turn sources.
const (
	SourceLLM   = "llm"
	SourceRules = "rules"
)

// Synthesizer speaks replies. *speech.Speaker satisfies it.
type Synthesizer interface {
	Available() bool
	Speak(ctx context.Context, text string) ([]byte, error)
}

// Options wires optional collaborators. Every field may be left zero.
type Options struct {
	// Bridge is consulted first. nil means rules only and no network.
	Bridge    *agent.Bridge
	AgentMode bool

	Synthesizer Synthesizer
	Formatter   format.Formatter
	Effects     EffectHandler
	Metrics     *metrics.PrometheusExporter

	TurnLatency     time.Duration
	NavigationDelay time.Duration
}

// TurnResult is everything a transport needs to render one turn.
type TurnResult struct {
	UserMessage Message            `json:"user_message"`
	Reply       Message            `json:"reply"`
	ReplyHTML   string             `json:"reply_html,omitempty"`
	Intent      routing.WireIntent `json:"intent"`
	Source      string             `json:"source"`
	View        InterfaceView      `json:"view"`
	Effects     []Effect           `json:"effects,omitempty"`
	LatencyMs   int64              `json:"latency_ms"`
}

// Controller drives one conversation.
type Controller struct {
	directory *store.Directory
	router    *routing.Router
	state     *State
	hub       *Hub
	opts      Options
}

// NewController creates a controller with a fresh state.
func NewController(directory *store.Directory, opts Options) *Controller {
	hub := NewHub()
	return &Controller{
		directory: directory,
		router:    routing.NewRouter(directory),
		state:     NewState(directory, hub),
		hub:       hub,
		opts:      opts,
	}
}

func (c *Controller) State() *State {
	return c.state
}

// Subscribe streams state changes of this conversation.
func (c *Controller) Subscribe() (<-chan Event, func()) {
	return c.hub.Subscribe()
}

// Close disconnects subscribers.
func (c *Controller) Close() {
	c.hub.Close()
}

// SpeechAvailable reports whether replies can be spoken.
func (c *Controller) SpeechAvailable() bool {
	return c.opts.Synthesizer != nil && c.opts.Synthesizer.Available()
}

// HandleTurn processes one utterance and always produces a reply. A second
// turn started while this one is pending interleaves with it.
func (c *Controller) HandleTurn(ctx context.Context, text string) TurnResult {
	start := time.Now()
	userMsg := c.state.AddUserMessage(text)
	c.state.SetThinking(true)

	c.wait(ctx)

	selected := c.state.SelectedContext()
	intent, reply, source := c.resolve(ctx, text, selected)

	// The bridge and router only emit directory ids; check anyway.
	if p, ok := intent.(routing.ShowPerson); ok && !c.directory.HasMember(p.MemberID) {
		slog.Warn("conversation: dropping person outside directory", "member_id", p.MemberID)
		intent, reply = routing.Unknown{}, ""
	}
	if reply == "" {
		reply = replyFor(intent, c.directory)
	}

	effects := effectsFor(intent, c.opts.NavigationDelay)
	for _, e := range effects {
		if e.Kind == EffectSelect {
			if err := c.state.SelectEntity(e.MemberID); err != nil {
				slog.Warn("conversation: select failed", "member_id", e.MemberID, "error", err)
			}
		}
		c.applyEffect(ctx, e)
	}

	replyMsg := c.state.AddAIMessage(reply)
	if viewType, ok := ViewFor(intent.Kind()); ok {
		var payload any
		if p, isPerson := intent.(routing.ShowPerson); isPerson {
			payload, _ = c.directory.GetMember(p.MemberID)
		}
		if err := c.state.SetView(viewType, payload); err != nil {
			slog.Error("conversation: set view", "error", err)
		}
	}
	c.state.SetThinking(false)
	if c.SpeechAvailable() {
		c.state.SetSpeaking(true)
	}

	latency := time.Since(start)
	c.opts.Metrics.RecordTurn(source, string(intent.Kind()), latency)
	slog.Info("conversation: turn handled",
		"text", strutil.Truncate(strutil.OneLine(text), 80),
		"source", source,
		"intent", intent.Kind(),
		"entity", intent.Entity(),
		"latency_ms", latency.Milliseconds(),
	)

	return TurnResult{
		UserMessage: userMsg,
		Reply:       replyMsg,
		ReplyHTML:   c.render(ctx, reply),
		Intent:      routing.ToWire(intent),
		Source:      source,
		View:        c.state.Snapshot().View,
		Effects:     effects,
		LatencyMs:   latency.Milliseconds(),
	}
}

func (c *Controller) wait(ctx context.Context) {
	latency := c.opts.TurnLatency
	if latency <= 0 {
		return
	}
	timer := time.NewTimer(latency)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// resolve asks the bridge first and falls back to the router. An Unknown
// router result keeps a non-empty model reply instead of the canned one.
func (c *Controller) resolve(ctx context.Context, text, selected string) (routing.Intent, string, string) {
	var llmReply string
	if c.opts.Bridge != nil {
		req := agent.Request{Text: text, SelectedContext: selected}
		var (
			res *agent.Result
			ok  bool
		)
		if c.opts.AgentMode {
			res, ok = c.opts.Bridge.RunAgent(ctx, req)
		} else {
			res, ok = c.opts.Bridge.ResolveIntent(ctx, req)
		}
		if ok {
			if res.Intent != nil && res.Intent.Kind() != routing.KindUnknown {
				return res.Intent, strings.TrimSpace(res.Reply), SourceLLM
			}
			llmReply = strings.TrimSpace(res.Reply)
		}
	}

	intent, rule := c.router.Match(text, selected)
	c.opts.Metrics.RecordRouteRule(rule)
	slog.Debug("conversation: routed by rules", "rule", rule, "intent", intent.Kind())
	if intent.Kind() == routing.KindUnknown && llmReply != "" {
		return intent, llmReply, SourceLLM
	}
	return intent, "", SourceRules
}

func (c *Controller) applyEffect(ctx context.Context, e Effect) {
	c.hub.Publish(Event{Type: EventEffect, Payload: e})
	if c.opts.Effects == nil {
		return
	}
	if err := c.opts.Effects.Apply(ctx, e); err != nil {
		slog.Warn("conversation: effect failed", "kind", e.Kind, "error", err)
	}
}

func (c *Controller) render(ctx context.Context, reply string) string {
	if c.opts.Formatter == nil {
		return ""
	}
	resp, err := c.opts.Formatter.Format(ctx, &format.FormatRequest{Content: reply})
	if err != nil {
		slog.Warn("conversation: render reply", "error", err)
		return ""
	}
	return resp.HTML
}

// Speak synthesizes the last AI reply. The welcome message and replies that
// were already spoken are skipped with ErrNothingToSpeak.
func (c *Controller) Speak(ctx context.Context) ([]byte, error) {
	if !c.SpeechAvailable() {
		c.state.SetSpeaking(false)
		return nil, ErrNothingToSpeak
	}
	msg, ok := c.state.nextToSpeak()
	if !ok {
		c.state.SetSpeaking(false)
		return nil, ErrNothingToSpeak
	}
	c.state.SetSpeaking(true)
	defer c.state.SetSpeaking(false)

	audio, err := c.opts.Synthesizer.Speak(ctx, msg.Text)
	if err != nil {
		return nil, fmt.Errorf("speak message %s: %w", msg.ID, err)
	}
	c.state.markSpoken(msg.ID)
	return audio, nil
}
