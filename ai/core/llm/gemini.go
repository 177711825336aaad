package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"
)

// geminiService implements Service on top of the official genai SDK.
type geminiService struct {
	client      *genai.Client
	model       string
	maxTokens   int
	temperature float32
	timeout     int
}

func newGeminiService(cfg *Config) (Service, error) {
	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientConfig.HTTPClient = cfg.HTTPClient
	}

	client, err := genai.NewClient(context.Background(), clientConfig)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &geminiService{
		client:      client,
		model:       cfg.Model,
		maxTokens:   withDefault(cfg.MaxTokens, 1024),
		temperature: cfg.Temperature,
		timeout:     withDefault(cfg.Timeout, 30),
	}, nil
}

func (g *geminiService) ChatWithTools(ctx context.Context, messages []Message, tools []ToolDescriptor) (*ChatResponse, *LLMCallStats, error) {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		params, err := geminiSchema(t.Parameters)
		if err != nil {
			return nil, nil, fmt.Errorf("tool %s: %w", t.Name, err)
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  params,
		})
	}

	resp, stats, err := g.generate(ctx, messages, []*genai.Tool{{FunctionDeclarations: decls}}, 0.1)
	if err != nil {
		return nil, nil, fmt.Errorf("gemini chat with tools failed: %w", err)
	}

	out := &ChatResponse{}
	calls := resp.FunctionCalls()
	if len(calls) == 0 {
		out.Content = resp.Text()
	}
	for i, fc := range calls {
		args, err := json.Marshal(fc.Args)
		if err != nil {
			args = []byte("{}")
		}
		id := fc.ID
		if id == "" {
			id = fmt.Sprintf("call_%d", i)
		}
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:       id,
			Type:     "function",
			Function: FunctionCall{Name: fc.Name, Arguments: string(args)},
		})
	}
	return out, stats, nil
}

func (g *geminiService) Warmup(ctx context.Context) {
	warmupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, _, err := g.generate(warmupCtx, []Message{UserMessage("Hi")}, nil, 0); err != nil {
		slog.Warn("LLM: gemini warmup ping failed", "model", g.model, "error", err)
		return
	}
	slog.Info("LLM: gemini connection warmed up", "model", g.model)
}

func (g *geminiService) generate(ctx context.Context, messages []Message, tools []*genai.Tool, temperature float32) (*genai.GenerateContentResponse, *LLMCallStats, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(g.timeout)*time.Second)
	defer cancel()

	system, contents := geminiContents(messages)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: system,
		Temperature:       ptr(temperature),
		MaxOutputTokens:   int32(g.maxTokens),
		Tools:             tools,
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return nil, nil, err
	}
	if len(resp.Candidates) == 0 {
		return nil, nil, fmt.Errorf("empty response from gemini")
	}

	stats := &LLMCallStats{TotalDurationMs: time.Since(start).Milliseconds()}
	if u := resp.UsageMetadata; u != nil {
		stats.PromptTokens = int(u.PromptTokenCount)
		stats.CompletionTokens = int(u.CandidatesTokenCount)
		stats.TotalTokens = int(u.TotalTokenCount)
	}
	return resp, stats, nil
}

// geminiContents splits out the system prompt and maps roles onto user/model.
func geminiContents(messages []Message) (*genai.Content, []*genai.Content) {
	var (
		system   []string
		contents []*genai.Content
	)
	for _, m := range messages {
		switch m.Role {
		case "system":
			system = append(system, m.Content)
		case "assistant":
			contents = append(contents, &genai.Content{Role: "model", Parts: []*genai.Part{{Text: m.Content}}})
		default:
			contents = append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: m.Content}}})
		}
	}
	if len(system) == 0 {
		return nil, contents
	}
	return &genai.Content{Parts: []*genai.Part{{Text: strings.Join(system, "\n\n")}}}, contents
}

// geminiSchema converts a JSON Schema string into the genai schema type.
func geminiSchema(raw string) (*genai.Schema, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var s JSONSchema
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("invalid parameter schema: %w", err)
	}
	return s.toGenai(), nil
}

func (s *JSONSchema) toGenai() *genai.Schema {
	out := &genai.Schema{
		Type:        genai.Type(strings.ToUpper(s.Type)),
		Description: s.Description,
		Required:    s.Required,
		Enum:        s.Enum,
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, p := range s.Properties {
			out.Properties[name] = p.toGenai()
		}
	}
	return out
}

func ptr[T any](v T) *T { return &v }
