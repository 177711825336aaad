package ai

import (
	"github.com/hrygo/angelo/ai/core/llm"
)

// NewLLMService creates the model client behind the tool bridge.
func NewLLMService(cfg *LLMConfig) (llm.Service, error) {
	return llm.NewService(&llm.Config{
		Provider:    cfg.Provider,
		Model:       cfg.Model,
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Timeout:     cfg.Timeout,
	})
}
