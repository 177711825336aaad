package ai

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	agent "github.com/hrygo/angelo/ai/agents"
	"github.com/hrygo/angelo/ai/conversation"
	"github.com/hrygo/angelo/ai/core/llm"
	"github.com/hrygo/angelo/ai/format"
	"github.com/hrygo/angelo/ai/metrics"
	"github.com/hrygo/angelo/ai/routing"
	"github.com/hrygo/angelo/ai/speech"
	"github.com/hrygo/angelo/store"
)

// Assistant bundles the services shared by every transport.
type Assistant struct {
	Directory   *store.Directory
	Router      *routing.Router
	Bridge      *agent.Bridge // nil when no LLM is configured
	Recognizer  *speech.Recognizer
	Synthesizer *speech.Synthesizer
	Formatter   format.Formatter
	Metrics     *metrics.PrometheusExporter
	Sessions    *conversation.Manager

	config *Config
	llm    llm.Service
}

// NewAssistant builds the assistant. A failing LLM setup is logged and the
// assistant runs on rules only.
func NewAssistant(cfg *Config, directory *store.Directory, exporter *metrics.PrometheusExporter) (*Assistant, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid assistant config: %w", err)
	}

	a := &Assistant{
		Directory: directory,
		Router:    routing.NewRouter(directory),
		Formatter: format.NewFormatter(),
		Metrics:   exporter,
		config:    cfg,
	}

	if cfg.Enabled {
		service, err := NewLLMService(&cfg.LLM)
		if err != nil {
			slog.Warn("Failed to initialize LLM service",
				"provider", cfg.LLM.Provider,
				"error", err,
				"note", "Assistant will answer with rules only",
			)
		} else {
			slog.Info("LLM service initialized",
				"provider", cfg.LLM.Provider,
				"model", cfg.LLM.Model,
				"agent_mode", cfg.Agent.Mode,
			)
			a.llm = service
			a.Bridge = agent.NewBridge(service, directory, agent.Config{
				Model:         cfg.LLM.Model,
				Provider:      cfg.LLM.Provider,
				MaxIterations: cfg.Agent.MaxIterations,
				RPS:           cfg.Agent.RPS,
				Burst:         cfg.Agent.Burst,
			}, exporter)
		}
	}

	speechCfg := speech.Config{
		APIKey:   cfg.Speech.APIKey,
		BaseURL:  cfg.Speech.BaseURL,
		STTModel: cfg.Speech.STTModel,
		TTSModel: cfg.Speech.TTSModel,
		Voice:    cfg.Speech.Voice,
	}
	a.Recognizer = speech.NewRecognizer(speechCfg, exporter)
	a.Synthesizer = speech.NewSynthesizer(speechCfg, exporter)

	a.Sessions = conversation.NewManager(conversation.ManagerConfig{
		Capacity: cfg.Conversation.SessionCapacity,
		TTL:      cfg.Conversation.SessionTTL,
	}, func() *conversation.Controller {
		return a.NewController(nil)
	}, exporter)

	return a, nil
}

// NewController creates a controller wired to the shared services. Each
// controller gets its own speaker. effects may be nil.
func (a *Assistant) NewController(effects conversation.EffectHandler) *conversation.Controller {
	opts := conversation.Options{
		Bridge:          a.Bridge,
		AgentMode:       a.config.Agent.Mode,
		Formatter:       a.Formatter,
		Effects:         effects,
		Metrics:         a.Metrics,
		TurnLatency:     a.config.Conversation.TurnLatency,
		NavigationDelay: a.config.Conversation.NavigationDelay,
	}
	if a.Synthesizer.Available() {
		opts.Synthesizer = a.Synthesizer.NewSpeaker()
	}
	return conversation.NewController(a.Directory, opts)
}

// Warmup primes the LLM connection. Best effort.
func (a *Assistant) Warmup(ctx context.Context) {
	if a.llm == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	a.llm.Warmup(ctx)
}

// Close drops all sessions.
func (a *Assistant) Close() {
	a.Sessions.Close()
}
