package format

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

type markdownFormatter struct {
	md goldmark.Markdown
}

// NewFormatter returns a goldmark-backed formatter. Raw HTML in the input is
// dropped, so LLM output cannot inject markup.
func NewFormatter() Formatter {
	return &markdownFormatter{
		md: goldmark.New(
			goldmark.WithExtensions(extension.Strikethrough, extension.Linkify),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
	}
}

func (f *markdownFormatter) Format(ctx context.Context, req *FormatRequest) (*FormatResponse, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content := unwrapFence(req.Content)
	source := "plain"
	if hasMarkdown(content) {
		source = "markdown"
	}

	var buf bytes.Buffer
	if err := f.md.Convert([]byte(content), &buf); err != nil {
		return nil, fmt.Errorf("render reply: %w", err)
	}
	return &FormatResponse{
		HTML:    strings.TrimSpace(buf.String()),
		Source:  source,
		Latency: time.Since(start),
	}, nil
}

// hasMarkdown reports whether content carries any block or inline markers.
func hasMarkdown(content string) bool {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") ||
			strings.HasPrefix(trimmed, "- ") ||
			strings.HasPrefix(trimmed, "* ") ||
			strings.HasPrefix(trimmed, "```") ||
			strings.HasPrefix(trimmed, "1. ") {
			return true
		}
	}
	return strings.Contains(content, "**") || strings.Contains(content, "](")
}

// unwrapFence strips a ```markdown wrapper some models put around the whole answer.
func unwrapFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") || !strings.HasSuffix(content, "```") || len(content) < 6 {
		return content
	}
	content = strings.TrimPrefix(content, "```markdown")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
