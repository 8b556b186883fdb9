package retrieval

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docintel/internal/domain"
	"docintel/internal/logger"
	"docintel/internal/vectorstore/memory"
)

type fixedEmbedder struct {
	vec     []float64
	queries []string
}

func (f *fixedEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	f.queries = append(f.queries, text)
	return f.vec, nil
}

func (f *fixedEmbedder) Dimension() int { return len(f.vec) }

func seed(t *testing.T, docs ...domain.DocumentRecord) *memory.Storage {
	t.Helper()
	ctx := context.Background()
	s := memory.NewStorage()
	require.NoError(t, s.EnsureCollection(ctx, "kb", 2, domain.DistanceCosine))
	pts := make([]domain.Point, len(docs))
	for i, d := range docs {
		pts[i] = d.Point()
	}
	require.NoError(t, s.Upsert(ctx, "kb", pts))
	return s
}

func TestNormalizeQuery(t *testing.T) {
	assert.Equal(t, "what is the fee", NormalizeQuery("  what \t is\n\nthe   fee "))
	assert.Equal(t, "", NormalizeQuery(" \n "))
}

func TestRetrieve_JoinsInRankOrder(t *testing.T) {
	store := seed(t,
		domain.DocumentRecord{ID: "b", Vector: []float64{0.5, 0.5}, ExtractedText: "second"},
		domain.DocumentRecord{ID: "a", Vector: []float64{1, 0}, ExtractedText: "first"},
		domain.DocumentRecord{ID: "c", Vector: []float64{0, 1}, ExtractedText: "third"},
	)
	emb := &fixedEmbedder{vec: []float64{1, 0}}
	a := NewAssembler(emb, store, Config{Collection: "kb", MaxContextChars: 1000})

	got, err := a.Retrieve(context.Background(), "  payment   terms ", 2)
	require.NoError(t, err)
	assert.Equal(t, "first\n\nsecond", got.Text)
	assert.False(t, got.Truncated)
	assert.Len(t, got.Hits, 2)
	assert.Equal(t, []string{"payment terms"}, emb.queries)
}

func TestRetrieve_TruncatesWithWarning(t *testing.T) {
	var buf bytes.Buffer
	prev := logger.Output()
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(prev) })

	long := strings.Repeat("x", 10000)
	store := seed(t, domain.DocumentRecord{ID: "a", Vector: []float64{1, 0}, ExtractedText: long})
	a := NewAssembler(&fixedEmbedder{vec: []float64{1, 0}}, store, Config{Collection: "kb", MaxContextChars: 4000})

	got, err := a.Retrieve(context.Background(), "q", 3)
	require.NoError(t, err)
	assert.Len(t, got.Text, 4000)
	assert.Equal(t, long[:4000], got.Text)
	assert.True(t, got.Truncated)
	assert.Contains(t, buf.String(), "Context truncated")
}

func TestRetrieve_NoHitsIsInsufficientContext(t *testing.T) {
	store := seed(t, domain.DocumentRecord{ID: "a", Vector: []float64{1, 0}, ExtractedText: ""})
	a := NewAssembler(&fixedEmbedder{vec: []float64{1, 0}}, store, Config{Collection: "kb"})

	_, err := a.Retrieve(context.Background(), "anything", 3)
	assert.ErrorIs(t, err, domain.ErrInsufficientContext)
}

func TestRetrieve_EmptyQuery(t *testing.T) {
	a := NewAssembler(&fixedEmbedder{vec: []float64{1, 0}}, memory.NewStorage(), Config{Collection: "kb"})
	_, err := a.Retrieve(context.Background(), "   ", 3)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRetrieve_DefaultTopK(t *testing.T) {
	store := seed(t,
		domain.DocumentRecord{ID: "1", Vector: []float64{1, 0}, ExtractedText: "a"},
		domain.DocumentRecord{ID: "2", Vector: []float64{1, 0}, ExtractedText: "b"},
		domain.DocumentRecord{ID: "3", Vector: []float64{1, 0}, ExtractedText: "c"},
		domain.DocumentRecord{ID: "4", Vector: []float64{1, 0}, ExtractedText: "d"},
	)
	a := NewAssembler(&fixedEmbedder{vec: []float64{1, 0}}, store, Config{Collection: "kb"})

	got, err := a.Retrieve(context.Background(), "q", 0)
	require.NoError(t, err)
	assert.Len(t, got.Hits, 3)
}

func TestTruncate_CountsCharacters(t *testing.T) {
	s, cut := Truncate("héllo", 2)
	assert.True(t, cut)
	assert.Equal(t, "hé", s)

	s, cut = Truncate("abc", 0)
	assert.False(t, cut)
	assert.Equal(t, "abc", s)
}
