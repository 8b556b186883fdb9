// Package retrieval builds the grounding context for knowledge-base chat:
// it embeds the query, fetches the closest documents and concatenates their
// texts under a character budget.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"docintel/internal/domain"
	"docintel/internal/logger"
)

// Separator joins the texts of consecutive hits.
const Separator = "\n\n"

// Context is the assembled retrieval result.
type Context struct {
	Query     string
	Text      string
	Hits      []domain.SearchResult
	Truncated bool
}

// Assembler retrieves and joins the texts relevant to a query.
type Assembler struct {
	embedder   domain.Embedder
	store      domain.VectorStore
	collection string
	maxChars   int
	defaultK   int
}

// Config configures an Assembler.
type Config struct {
	Collection string
	// MaxContextChars bounds the assembled text in characters.
	MaxContextChars int
	// TopK is used when a caller passes a non-positive k.
	TopK int
}

func NewAssembler(embedder domain.Embedder, store domain.VectorStore, cfg Config) *Assembler {
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	return &Assembler{
		embedder:   embedder,
		store:      store,
		collection: cfg.Collection,
		maxChars:   cfg.MaxContextChars,
		defaultK:   cfg.TopK,
	}
}

// NormalizeQuery trims the query and collapses internal whitespace runs to
// single spaces.
func NormalizeQuery(q string) string {
	return strings.Join(strings.Fields(q), " ")
}

// Retrieve returns the joined texts of the topK best hits that carry
// extracted text. ErrInsufficientContext is returned when nothing matches.
func (a *Assembler) Retrieve(ctx context.Context, query string, topK int) (Context, error) {
	if topK <= 0 {
		topK = a.defaultK
	}
	cleaned := NormalizeQuery(query)
	if cleaned == "" {
		return Context{}, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	vec, err := a.embedder.Embed(ctx, cleaned)
	if err != nil {
		return Context{Query: cleaned}, fmt.Errorf("embed query: %w", err)
	}
	hits, err := a.store.Search(ctx, a.collection, vec, topK, domain.HasTextFilter())
	if err != nil {
		return Context{Query: cleaned}, fmt.Errorf("search context: %w", err)
	}

	texts := make([]string, 0, len(hits))
	kept := hits[:0:0]
	for _, h := range hits {
		if t := h.Text(); t != "" {
			texts = append(texts, t)
			kept = append(kept, h)
		}
	}
	if len(texts) == 0 {
		return Context{Query: cleaned}, domain.ErrInsufficientContext
	}

	joined, truncated := Truncate(strings.Join(texts, Separator), a.maxChars)
	if truncated {
		logger.Warn("Context truncated to %d characters to comply with LLM limits.", a.maxChars)
	}
	return Context{Query: cleaned, Text: joined, Hits: kept, Truncated: truncated}, nil
}

// Truncate keeps the first max characters of s. A non-positive max disables
// truncation.
func Truncate(s string, max int) (string, bool) {
	if max <= 0 {
		return s, false
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s, false
	}
	return string(runes[:max]), true
}
