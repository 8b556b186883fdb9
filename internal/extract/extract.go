// Package extract pulls plain text out of uploaded documents, choosing a
// parser by file extension.
package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"docintel/internal/domain"
)

// Parser extracts text from the raw bytes of one document format.
type Parser func(data []byte) (string, error)

// Registry dispatches to a Parser by lowercase extension.
type Registry struct {
	parsers map[string]Parser
}

var _ domain.Extractor = (*Registry)(nil)

// NewRegistry returns a registry for plain text, Markdown and DOCX. PDF,
// legacy DOC and image formats are not handled and report
// ErrUnsupportedType.
func NewRegistry() *Registry {
	r := &Registry{parsers: make(map[string]Parser)}
	r.Register(".txt", PlainText)
	r.Register(".md", Markdown)
	r.Register(".markdown", Markdown)
	r.Register(".docx", DOCX)
	return r
}

// Register adds or replaces the parser for ext.
func (r *Registry) Register(ext string, p Parser) {
	r.parsers[strings.ToLower(ext)] = p
}

// Supports reports whether a parser exists for filename.
func (r *Registry) Supports(filename string) bool {
	_, ok := r.parsers[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// Extract returns the text of data, parsed according to filename's extension.
func (r *Registry) Extract(ctx context.Context, filename string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ext := strings.ToLower(filepath.Ext(filename))
	p, ok := r.parsers[ext]
	if !ok {
		return "", fmt.Errorf("%w: no text extractor for %q", domain.ErrUnsupportedType, ext)
	}
	text, err := p(data)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", filename, err)
	}
	return text, nil
}

// PlainText decodes data as UTF-8, replacing invalid sequences.
func PlainText(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}
	return strings.ToValidUTF8(string(data), "�"), nil
}
