package domain

import (
	"context"
	"strings"
)

// Payload keys stored on every document point.
const (
	PayloadFileHash      = "file_hash"
	PayloadExtractedText = "extracted_text"
	PayloadFilename      = "filename"
)

// Distance is the similarity metric a collection is created with.
type Distance string

const (
	DistanceCosine Distance = "Cosine"
	DistanceEuclid Distance = "Euclid"
	DistanceDot    Distance = "Dot"
)

// ParseDistance maps a config value onto a Distance, defaulting to cosine.
func ParseDistance(s string) Distance {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "euclid", "euclidean":
		return DistanceEuclid
	case "dot":
		return DistanceDot
	default:
		return DistanceCosine
	}
}

// Point is a single (id, vector, payload) entry of a collection.
type Point struct {
	ID      string
	Vector  []float64
	Payload map[string]any
}

// DocumentRecord is the logical view of an ingested document point.
type DocumentRecord struct {
	ID            string
	Vector        []float64
	FileHash      string
	ExtractedText string
	Filename      string
}

// Point converts the record into its stored representation.
func (r DocumentRecord) Point() Point {
	return Point{
		ID:     r.ID,
		Vector: r.Vector,
		Payload: map[string]any{
			PayloadFileHash:      r.FileHash,
			PayloadExtractedText: r.ExtractedText,
			PayloadFilename:      r.Filename,
		},
	}
}

// FieldMatch requires payload[Key] to equal Value exactly.
type FieldMatch struct {
	Key   string
	Value any
}

// Filter narrows the candidate set of a search before ranking.
type Filter struct {
	Must []FieldMatch
	// MustNotEmpty lists payload keys that have to be present and non-empty.
	MustNotEmpty []string
}

// FileHashFilter matches points carrying the given content hash.
func FileHashFilter(hash string) *Filter {
	return &Filter{Must: []FieldMatch{{Key: PayloadFileHash, Value: hash}}}
}

// HasTextFilter matches points whose extracted text is non-empty.
func HasTextFilter() *Filter {
	return &Filter{MustNotEmpty: []string{PayloadExtractedText}}
}

// SearchResult is a ranked hit returned by a vector search.
type SearchResult struct {
	ID      string
	Score   float64
	Payload map[string]any
}

// PayloadString returns payload[key] when it is a string.
func (r SearchResult) PayloadString(key string) string {
	if r.Payload == nil {
		return ""
	}
	v, _ := r.Payload[key].(string)
	return v
}

// Text returns the stored extracted text of the hit.
func (r SearchResult) Text() string { return r.PayloadString(PayloadExtractedText) }

// CollectionInfo describes a collection's vector configuration.
type CollectionInfo struct {
	Name     string
	Size     int
	Distance Distance
}

// VectorStore manages collections and points in the vector backend.
type VectorStore interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	// EnsureCollection creates the collection only when it is absent.
	EnsureCollection(ctx context.Context, name string, size int, distance Distance) error
	// RecreateCollection drops all points and recreates the collection.
	RecreateCollection(ctx context.Context, name string, size int, distance Distance) error
	CollectionInfo(ctx context.Context, name string) (CollectionInfo, error)
	Upsert(ctx context.Context, collection string, points []Point) error
	Search(ctx context.Context, collection string, vector []float64, topK int, filter *Filter) ([]SearchResult, error)
}

// RawEmbedding is the canonical form of one embedding response: a flat list
// holding either a single vector or several stacked per-token vectors.
type RawEmbedding struct {
	Values []float64
}

// RawEmbedder requests one embedding for one piece of text.
type RawEmbedder interface {
	RawEmbedding(ctx context.Context, text string) (RawEmbedding, error)
}

// Embedder converts text of any length into a single fixed-size vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	Dimension() int
}

// GenerateOptions configures a completion request.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
}

// Generator produces completions from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
	// Stream calls fn for every chunk of streamed output.
	Stream(ctx context.Context, prompt string, opts GenerateOptions, fn func(chunk string) error) error
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(ctx context.Context, text string, minWords, maxWords int) (string, error)
}

// AnswerMode selects how detailed a document answer is.
type AnswerMode string

const (
	AnswerSpecific  AnswerMode = "specific"
	AnswerElaborate AnswerMode = "elaborate"
)

// ParseAnswerMode maps a request value onto an AnswerMode. Anything but
// "specific" is elaborate.
func ParseAnswerMode(s string) AnswerMode {
	if strings.EqualFold(strings.TrimSpace(s), string(AnswerSpecific)) {
		return AnswerSpecific
	}
	return AnswerElaborate
}

// Exchange is one earlier message of a conversation and the reply to it.
type Exchange struct {
	Message string
	Reply   string
}

// Assistant performs the language tasks offered on documents.
type Assistant interface {
	Summarizer
	Answer(ctx context.Context, document, question string, mode AnswerMode) (string, error)
	// Obligations and Risks return a JSON array encoded as text.
	Obligations(ctx context.Context, document string) (string, error)
	Risks(ctx context.Context, document string) (string, error)
	// StreamChat answers query from contextText, delivering output in chunks.
	StreamChat(ctx context.Context, contextText, query string, fn func(chunk string) error) error
	// Converse continues a conversation about document, which may be empty.
	Converse(ctx context.Context, document string, history []Exchange, message string) (string, error)
}

// Extractor pulls plain text out of an uploaded file.
type Extractor interface {
	Extract(ctx context.Context, filename string, data []byte) (string, error)
}
