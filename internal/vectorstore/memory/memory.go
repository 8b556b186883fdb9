package memory

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"sort"
	"sync"

	"docintel/internal/domain"
)

// Storage is an in-memory vector store using brute-force similarity. It
// keeps the collection semantics of the Qdrant client.
type Storage struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

type collection struct {
	size     int
	distance domain.Distance
	order    []string
	points   map[string]domain.Point
}

var _ domain.VectorStore = (*Storage)(nil)

func NewStorage() *Storage {
	return &Storage{collections: make(map[string]*collection)}
}

func (s *Storage) CollectionExists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[name]
	return ok, nil
}

func (s *Storage) EnsureCollection(_ context.Context, name string, size int, distance domain.Distance) error {
	if size <= 0 {
		return fmt.Errorf("%w: invalid vector size %d", domain.ErrInvalidInput, size)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; ok {
		return nil
	}
	s.collections[name] = newCollection(size, distance)
	return nil
}

func (s *Storage) RecreateCollection(_ context.Context, name string, size int, distance domain.Distance) error {
	if size <= 0 {
		return fmt.Errorf("%w: invalid vector size %d", domain.ErrInvalidInput, size)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[name] = newCollection(size, distance)
	return nil
}

func newCollection(size int, distance domain.Distance) *collection {
	if distance == "" {
		distance = domain.DistanceCosine
	}
	return &collection{size: size, distance: distance, points: make(map[string]domain.Point)}
}

func (s *Storage) CollectionInfo(_ context.Context, name string) (domain.CollectionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return domain.CollectionInfo{}, notFound(name)
	}
	return domain.CollectionInfo{Name: name, Size: c.size, Distance: c.distance}, nil
}

// Upsert replaces points with the same id. Nothing is written when any
// vector has the wrong size.
func (s *Storage) Upsert(_ context.Context, name string, points []domain.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		return notFound(name)
	}
	for _, p := range points {
		if len(p.Vector) != c.size {
			return domain.NewOpError("upsert", fmt.Errorf("%w: point %s has %d values, collection %q expects %d",
				domain.ErrDimensionMismatch, p.ID, len(p.Vector), name, c.size))
		}
	}
	for _, p := range points {
		if _, exists := c.points[p.ID]; !exists {
			c.order = append(c.order, p.ID)
		}
		c.points[p.ID] = clonePoint(p)
	}
	return nil
}

func (s *Storage) Search(_ context.Context, name string, vector []float64, topK int, filter *domain.Filter) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return nil, notFound(name)
	}
	if len(vector) != c.size {
		return nil, domain.NewOpError("search", fmt.Errorf("%w: query has %d values, collection %q expects %d",
			domain.ErrDimensionMismatch, len(vector), name, c.size))
	}
	if topK <= 0 {
		topK = 5
	}
	results := make([]domain.SearchResult, 0, len(c.points))
	for _, id := range c.order {
		p := c.points[id]
		if !matches(p.Payload, filter) {
			continue
		}
		results = append(results, domain.SearchResult{
			ID:      p.ID,
			Score:   score(c.distance, vector, p.Vector),
			Payload: clonePayload(p.Payload),
		})
	}
	// Euclid scores are distances, smaller is closer.
	sort.SliceStable(results, func(i, j int) bool {
		if c.distance == domain.DistanceEuclid {
			return results[i].Score < results[j].Score
		}
		return results[i].Score > results[j].Score
	})
	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

// Count returns the number of points in the collection.
func (s *Storage) Count(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.collections[name]; ok {
		return len(c.points)
	}
	return 0
}

func matches(payload map[string]any, f *domain.Filter) bool {
	if f == nil {
		return true
	}
	for _, m := range f.Must {
		v, ok := payload[m.Key]
		if !ok || !reflect.DeepEqual(v, m.Value) {
			return false
		}
	}
	for _, key := range f.MustNotEmpty {
		if isEmpty(payload[key]) {
			return false
		}
	}
	return true
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	default:
		return false
	}
}

func score(d domain.Distance, a, b []float64) float64 {
	switch d {
	case domain.DistanceDot:
		return dot(a, b)
	case domain.DistanceEuclid:
		return euclid(a, b)
	default:
		return cosineSimilarity(a, b)
	}
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

func euclid(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

func clonePoint(p domain.Point) domain.Point {
	vec := make([]float64, len(p.Vector))
	copy(vec, p.Vector)
	return domain.Point{ID: p.ID, Vector: vec, Payload: clonePayload(p.Payload)}
}

func clonePayload(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func notFound(name string) error {
	return domain.NewOpError("collection", fmt.Errorf("%w: %w: collection %q", domain.ErrVectorStore, domain.ErrNotFound, name))
}
