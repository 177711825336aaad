package ai

import (
	"errors"
	"time"

	"github.com/hrygo/angelo/internal/profile"
)

// Config represents assistant configuration.
type Config struct {
	LLM          LLMConfig
	Agent        AgentConfig
	Speech       SpeechConfig
	Conversation ConversationConfig
	// Enabled is false when no LLM key is configured; the rule router then answers alone.
	Enabled bool
}

// LLMConfig represents LLM configuration.
type LLMConfig struct {
	Provider    string // openai, deepseek, siliconflow, zai, dashscope, openrouter, ollama, gemini
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int     // default: 1024
	Temperature float32 // default: 0.3
	Timeout     int     // seconds
}

// AgentConfig configures the tool bridge.
type AgentConfig struct {
	Mode          bool // multi-step loop instead of a single call
	MaxIterations int
	RPS           float64
	Burst         int
}

// SpeechConfig represents speech I/O configuration.
type SpeechConfig struct {
	Enabled  bool
	APIKey   string
	BaseURL  string
	STTModel string
	TTSModel string
	Voice    string
}

// ConversationConfig represents turn timing and session limits.
type ConversationConfig struct {
	TurnLatency     time.Duration
	NavigationDelay time.Duration
	SessionCapacity int
	SessionTTL      time.Duration
}

// NewConfigFromProfile creates assistant config from profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	cfg := &Config{
		Enabled: p.IsLLMEnabled(),
		LLM: LLMConfig{
			Provider:    p.LLMProvider,
			Model:       p.LLMModel,
			APIKey:      p.LLMAPIKey,
			BaseURL:     p.LLMBaseURL,
			MaxTokens:   1024,
			Temperature: 0.3,
			Timeout:     p.LLMTimeout,
		},
		Agent: AgentConfig{
			Mode:          p.AgentMode,
			MaxIterations: p.AgentMaxIterations,
			RPS:           p.LLMRPS,
			Burst:         p.LLMBurst,
		},
		Speech: SpeechConfig{
			Enabled:  p.IsSpeechEnabled(),
			APIKey:   p.SpeechAPIKey,
			BaseURL:  p.SpeechBaseURL,
			STTModel: p.STTModel,
			TTSModel: p.TTSModel,
			Voice:    p.TTSVoice,
		},
		Conversation: ConversationConfig{
			TurnLatency:     p.TurnLatency,
			NavigationDelay: p.NavigationDelay,
			SessionCapacity: p.SessionCapacity,
			SessionTTL:      p.SessionTTL,
		},
	}
	if !cfg.Speech.Enabled {
		cfg.Speech.APIKey = ""
	}
	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Enabled {
		if c.LLM.Provider == "" {
			return errors.New("LLM provider is required")
		}
		if c.LLM.Model == "" {
			return errors.New("LLM model is required")
		}
	}
	if c.Agent.MaxIterations < 0 {
		return errors.New("agent max iterations must not be negative")
	}
	if c.Agent.RPS < 0 {
		return errors.New("LLM rps must not be negative")
	}
	if c.Speech.Enabled && c.Speech.APIKey == "" {
		return errors.New("speech API key is required when speech is enabled")
	}
	return nil
}
