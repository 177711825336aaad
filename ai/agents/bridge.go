package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hrygo/angelo/ai/agents/events"
	"github.com/hrygo/angelo/ai/core/llm"
	"github.com/hrygo/angelo/ai/internal/strutil"
	"github.com/hrygo/angelo/ai/metrics"
	"github.com/hrygo/angelo/ai/routing"
	"github.com/hrygo/angelo/store"
)

// Limits for text copied into logs and callback events.
const (
	maxLoggedArgs  = 200
	maxEventOutput = 1000
)

// Result is a usable answer from the model.
// Intent is routing.Unknown only when the agent loop produced text but no UI tool.
type Result struct {
	Intent routing.Intent
	Reply  string
	// Iterations is the number of model calls made for this result.
	Iterations int
}

// Request is one utterance handed to the bridge.
type Request struct {
	Text            string
	SelectedContext string
	Callback        events.Callback
}

// Config configures the tool bridge.
type Config struct {
	Model         string
	Provider      string
	MaxIterations int
	// RPS limits outbound model calls; 0 disables limiting.
	RPS   float64
	Burst int
}

// Bridge forwards utterances to a remote model with the tool manifest.
// Any failure is reported as "no result" so the caller can fall back to the router.
type Bridge struct {
	llm           llm.Service
	tools         *Toolset
	directory     *store.Directory
	limiter       *rate.Limiter
	metrics       *metrics.PrometheusExporter
	model         string
	provider      string
	maxIterations int
}

// NewBridge creates a bridge. exporter may be nil.
func NewBridge(service llm.Service, directory *store.Directory, cfg Config, exporter *metrics.PrometheusExporter) *Bridge {
	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = 5
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}
	return &Bridge{
		llm:           service,
		tools:         NewToolset(directory, routing.NewPersonResolver(directory)),
		directory:     directory,
		limiter:       limiter,
		metrics:       exporter,
		model:         cfg.Model,
		provider:      cfg.Provider,
		maxIterations: maxIterations,
	}
}

// Toolset returns the manifest the bridge sends.
func (b *Bridge) Toolset() *Toolset {
	return b.tools
}

// ResolveIntent makes one model call and maps the first usable tool call to an intent.
func (b *Bridge) ResolveIntent(ctx context.Context, req Request) (*Result, bool) {
	callback := events.WrapSafe(req.Callback)
	callback(events.EventTypeThinking, &events.ToolEvent{Iteration: 1})

	messages := llm.FormatMessages(b.systemPrompt(req.SelectedContext, false), req.Text, nil)
	resp, err := b.chat(ctx, messages)
	if err != nil {
		slog.Warn("bridge: model call failed", "error", err)
		b.metrics.RecordFallback("error")
		return nil, false
	}

	for i, tc := range resp.ToolCalls {
		res, ok := b.runTool(ctx, tc, 1, callback)
		if !ok || res.Intent == nil {
			continue
		}
		if _, unknown := res.Intent.(routing.Unknown); unknown {
			continue
		}
		slog.Debug("bridge: intent resolved", "tool", tc.Function.Name, "index", i)
		callback(events.EventTypeAnswer, resp.Content)
		return &Result{Intent: res.Intent, Reply: strings.TrimSpace(resp.Content), Iterations: 1}, true
	}

	b.metrics.RecordFallback("no_tool_call")
	return nil, false
}

// RunAgent lets the model call tools in sequence, feeding each tool result
// back as a user message, until it answers without tools or the iteration cap is hit.
// The last UI intent produced by any tool wins.
func (b *Bridge) RunAgent(ctx context.Context, req Request) (*Result, bool) {
	callback := events.WrapSafe(req.Callback)
	messages := llm.FormatMessages(b.systemPrompt(req.SelectedContext, true), req.Text, nil)

	var last routing.Intent
	for iteration := 1; iteration <= b.maxIterations; iteration++ {
		if ctx.Err() != nil {
			return nil, false
		}
		callback(events.EventTypeThinking, &events.ToolEvent{Iteration: iteration})

		resp, err := b.chat(ctx, messages)
		if err != nil {
			slog.Warn("bridge: agent model call failed", "iteration", iteration, "error", err)
			b.metrics.RecordFallback("error")
			return b.partial(last, iteration-1)
		}

		if len(resp.ToolCalls) == 0 {
			reply := strings.TrimSpace(resp.Content)
			if reply != "" {
				callback(events.EventTypeAnswer, reply)
			}
			if last == nil && reply == "" {
				b.metrics.RecordFallback("empty_answer")
				return nil, false
			}
			if last == nil {
				last = routing.Unknown{}
			}
			return &Result{Intent: last, Reply: reply, Iterations: iteration}, true
		}

		if content := strings.TrimSpace(resp.Content); content != "" {
			messages = append(messages, llm.AssistantMessage(content))
		}
		for _, tc := range resp.ToolCalls {
			res, ok := b.runTool(ctx, tc, iteration, callback)
			text := res.Text
			if !ok {
				text = "Ошибка: " + text
			}
			if ok && res.Intent != nil {
				last = res.Intent
			}
			messages = append(messages,
				llm.UserMessage(fmt.Sprintf("[Result from %s]: %s", tc.Function.Name, text)))
		}
	}

	slog.Info("bridge: agent hit iteration cap", "max_iterations", b.maxIterations)
	return b.partial(last, b.maxIterations)
}

// partial returns whatever UI intent the loop got before stopping.
func (b *Bridge) partial(last routing.Intent, iterations int) (*Result, bool) {
	if last == nil {
		return nil, false
	}
	return &Result{Intent: last, Iterations: iterations}, true
}

func (b *Bridge) chat(ctx context.Context, messages []llm.Message) (*llm.ChatResponse, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	start := time.Now()
	resp, stats, err := b.llm.ChatWithTools(ctx, messages, b.tools.Descriptors())
	var prompt, completion int
	if stats != nil {
		prompt, completion = stats.PromptTokens, stats.CompletionTokens
	}
	b.metrics.RecordLLMCall(b.model, b.provider, time.Since(start), err == nil, prompt, completion)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("empty response")
	}
	return resp, nil
}

// runTool executes one tool call. On failure the returned text carries the error.
func (b *Bridge) runTool(ctx context.Context, tc llm.ToolCall, iteration int, callback events.SafeCallback) (ToolResult, bool) {
	name := tc.Function.Name
	callback(events.EventTypeToolUse, &events.ToolEvent{
		ToolName: name, Input: tc.Function.Arguments, Status: "running", Iteration: iteration,
	})

	start := time.Now()
	tool, found := b.tools.Get(name)
	var (
		res ToolResult
		err error
	)
	if !found {
		err = fmt.Errorf("unknown tool: %s", name)
	} else {
		res, err = tool.Run(ctx, tc.Function.Arguments)
	}
	if err == nil && res.Intent != nil {
		err = b.validate(res.Intent)
	}
	duration := time.Since(start)
	b.metrics.RecordToolCall(name, duration, err == nil)

	status := "success"
	if err != nil {
		status = "error"
		res = ToolResult{Text: err.Error()}
	}
	slog.Debug("bridge: tool executed",
		"tool", name,
		"args", strutil.Truncate(tc.Function.Arguments, maxLoggedArgs),
		"status", status,
		"duration_ms", duration.Milliseconds(),
	)
	callback(events.EventTypeToolResult, &events.ToolEvent{
		ToolName:   name,
		Output:     strutil.Truncate(res.Text, maxEventOutput),
		Status:     status,
		Iteration:  iteration,
		DurationMs: duration.Milliseconds(),
	})
	return res, err == nil
}

// validate rejects member ids that are not in the directory.
func (b *Bridge) validate(intent routing.Intent) error {
	if p, ok := intent.(routing.ShowPerson); ok && !b.directory.HasMember(p.MemberID) {
		return fmt.Errorf("member %q not found", p.MemberID)
	}
	return nil
}
