package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docintel/internal/domain"
)

func record(id, hash, text string, vec ...float64) domain.Point {
	return domain.DocumentRecord{ID: id, Vector: vec, FileHash: hash, ExtractedText: text, Filename: id + ".txt"}.Point()
}

func TestEnsureCollection_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()

	require.NoError(t, s.EnsureCollection(ctx, "docs", 2, domain.DistanceCosine))
	require.NoError(t, s.Upsert(ctx, "docs", []domain.Point{record("a", "h", "t", 1, 0)}))
	require.NoError(t, s.EnsureCollection(ctx, "docs", 3, domain.DistanceDot))

	info, err := s.CollectionInfo(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 2, info.Size)
	assert.Equal(t, domain.DistanceCosine, info.Distance)
	assert.Equal(t, 1, s.Count("docs"))
}

func TestRecreateCollection_DropsPoints(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.EnsureCollection(ctx, "docs", 2, domain.DistanceCosine))
	require.NoError(t, s.Upsert(ctx, "docs", []domain.Point{record("a", "h", "t", 1, 0)}))

	require.NoError(t, s.RecreateCollection(ctx, "docs", 2, domain.DistanceCosine))
	assert.Equal(t, 0, s.Count("docs"))
}

func TestUpsert_DimensionMismatchWritesNothing(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.EnsureCollection(ctx, "docs", 3, domain.DistanceCosine))

	err := s.Upsert(ctx, "docs", []domain.Point{
		record("ok", "h1", "t", 1, 2, 3),
		record("bad", "h2", "t", 1, 2),
	})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.Equal(t, 0, s.Count("docs"))
}

func TestUpsert_MissingCollection(t *testing.T) {
	err := NewStorage().Upsert(context.Background(), "nope", []domain.Point{record("a", "h", "t", 1)})
	assert.ErrorIs(t, err, domain.ErrVectorStore)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSearch_ExactMatchFilter(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.EnsureCollection(ctx, "docs", 2, domain.DistanceCosine))
	require.NoError(t, s.Upsert(ctx, "docs", []domain.Point{
		record("a", "abc", "hello", 1, 0),
		record("b", "def", "other", 0, 1),
	}))

	hits, err := s.Search(ctx, "docs", []float64{0, 0}, 1, domain.FileHashFilter("abc"))
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "hello", hits[0].Text())

	hits, err = s.Search(ctx, "docs", []float64{0, 0}, 1, domain.FileHashFilter("xyz"))
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearch_HasTextFilterAndRanking(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.EnsureCollection(ctx, "docs", 2, domain.DistanceCosine))
	require.NoError(t, s.Upsert(ctx, "docs", []domain.Point{
		record("far", "1", "far text", 0, 1),
		record("empty", "2", "", 1, 0),
		record("near", "3", "near text", 1, 0.1),
	}))

	hits, err := s.Search(ctx, "docs", []float64{1, 0}, 5, domain.HasTextFilter())
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "near", hits[0].ID)
	assert.Equal(t, "far", hits[1].ID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestSearch_EuclidRanksClosestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.EnsureCollection(ctx, "docs", 2, domain.DistanceEuclid))
	require.NoError(t, s.Upsert(ctx, "docs", []domain.Point{
		record("far", "1", "x", 10, 10),
		record("near", "2", "y", 1, 1),
	}))

	hits, err := s.Search(ctx, "docs", []float64{0, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "near", hits[0].ID)
}

func TestSearch_DotAndQueryDimension(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.EnsureCollection(ctx, "docs", 2, domain.DistanceDot))
	require.NoError(t, s.Upsert(ctx, "docs", []domain.Point{
		record("small", "1", "x", 1, 1),
		record("large", "2", "y", 5, 5),
	}))

	hits, err := s.Search(ctx, "docs", []float64{1, 1}, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, "large", hits[0].ID)
	assert.InDelta(t, 10.0, hits[0].Score, 1e-9)

	_, err = s.Search(ctx, "docs", []float64{1}, 2, nil)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestUpsert_SameIDReplaces(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.EnsureCollection(ctx, "docs", 1, domain.DistanceCosine))
	require.NoError(t, s.Upsert(ctx, "docs", []domain.Point{record("a", "h", "old", 1)}))
	require.NoError(t, s.Upsert(ctx, "docs", []domain.Point{record("a", "h", "new", 1)}))

	hits, err := s.Search(ctx, "docs", []float64{1}, 5, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "new", hits[0].Text())
}
