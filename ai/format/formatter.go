// Package format renders assistant replies for web clients.
package format

import (
	"context"
	"time"
)

// Formatter turns a reply, plain or Markdown, into safe HTML.
type Formatter interface {
	Format(ctx context.Context, req *FormatRequest) (*FormatResponse, error)
}

type FormatRequest struct {
	Content string // reply text as produced by templates or the LLM
}

type FormatResponse struct {
	HTML    string
	Source  string // "markdown" | "plain"
	Latency time.Duration
}
