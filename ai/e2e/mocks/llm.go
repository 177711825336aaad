// Package mocks provides scripted test doubles for the LLM service.
package mocks

import (
	"context"
	"errors"
	"sync"

	"github.com/hrygo/angelo/ai/core/llm"
)

// ErrScriptExhausted is returned once every scripted response has been used.
var ErrScriptExhausted = errors.New("mock llm: script exhausted")

// Step is one scripted ChatWithTools reply.
type Step struct {
	Response *llm.ChatResponse
	Err      error
}

// MockLLM is a configurable mock LLM service.
// ChatWithTools replays Steps in order.
type MockLLM struct {
	mu        sync.Mutex
	steps     []Step
	calls     [][]llm.Message
	callStats *llm.LLMCallStats
}

// NewMockLLM creates a new MockLLM instance.
func NewMockLLM() *MockLLM {
	return &MockLLM{
		callStats: &llm.LLMCallStats{
			PromptTokens:     100,
			CompletionTokens: 50,
			TotalTokens:      150,
		},
	}
}

// WithToolCall appends a step that calls one tool with JSON arguments.
func (m *MockLLM) WithToolCall(name, arguments string) *MockLLM {
	return m.WithStep(Step{Response: &llm.ChatResponse{
		ToolCalls: []llm.ToolCall{{
			ID:       "call_" + name,
			Type:     "function",
			Function: llm.FunctionCall{Name: name, Arguments: arguments},
		}},
	}})
}

// WithAnswer appends a step that answers with text and no tool calls.
func (m *MockLLM) WithAnswer(content string) *MockLLM {
	return m.WithStep(Step{Response: &llm.ChatResponse{Content: content}})
}

// WithError appends a failing step.
func (m *MockLLM) WithError(err error) *MockLLM {
	return m.WithStep(Step{Err: err})
}

// WithStep appends a raw step.
func (m *MockLLM) WithStep(step Step) *MockLLM {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, step)
	return m
}

// Calls returns the message lists passed to ChatWithTools so far.
func (m *MockLLM) Calls() [][]llm.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]llm.Message, len(m.calls))
	copy(out, m.calls)
	return out
}

// ChatWithTools implements the llm.Service interface.
func (m *MockLLM) ChatWithTools(ctx context.Context, msgs []llm.Message, tools []llm.ToolDescriptor) (*llm.ChatResponse, *llm.LLMCallStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, append([]llm.Message(nil), msgs...))
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if len(m.steps) == 0 {
		return nil, nil, ErrScriptExhausted
	}
	step := m.steps[0]
	m.steps = m.steps[1:]
	if step.Err != nil {
		return nil, nil, step.Err
	}
	return step.Response, m.callStats, nil
}

// Warmup implements the llm.Service interface.
func (m *MockLLM) Warmup(ctx context.Context) {}
