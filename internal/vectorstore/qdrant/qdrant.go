package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"docintel/internal/domain"
)

// Storage is a REST client to Qdrant. Collection sizes are cached after the
// first lookup so upserts can be validated without an extra round trip.
type Storage struct {
	url    string
	apiKey string
	client *http.Client

	mu    sync.RWMutex
	sizes map[string]int
}

var _ domain.VectorStore = (*Storage)(nil)

type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Storage{
		url:    strings.TrimRight(cfg.URL, "/"),
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: timeout},
		sizes:  make(map[string]int),
	}
}

// CollectionExists reports whether the named collection is present.
func (s *Storage) CollectionExists(ctx context.Context, name string) (bool, error) {
	var resp struct {
		Result struct {
			Exists bool `json:"exists"`
		} `json:"result"`
	}
	if err := s.do(ctx, "collection exists", http.MethodGet, s.collectionURL(name)+"/exists", nil, &resp); err != nil {
		return false, err
	}
	return resp.Result.Exists, nil
}

// EnsureCollection creates the collection when it does not exist yet. An
// existing collection is left untouched.
func (s *Storage) EnsureCollection(ctx context.Context, name string, size int, distance domain.Distance) error {
	exists, err := s.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	err = s.createCollection(ctx, name, size, distance)
	var se *statusError
	if errors.As(err, &se) && se.code == http.StatusConflict {
		// Created concurrently by another caller; its size is looked up on demand.
		return nil
	}
	return err
}

// RecreateCollection drops the collection, if any, and creates it empty.
func (s *Storage) RecreateCollection(ctx context.Context, name string, size int, distance domain.Distance) error {
	if err := s.do(ctx, "delete collection", http.MethodDelete, s.collectionURL(name), nil, nil); err != nil {
		var se *statusError
		if !errors.As(err, &se) || se.code != http.StatusNotFound {
			return err
		}
	}
	s.forget(name)
	return s.createCollection(ctx, name, size, distance)
}

func (s *Storage) createCollection(ctx context.Context, name string, size int, distance domain.Distance) error {
	if size <= 0 {
		return fmt.Errorf("%w: invalid vector size %d", domain.ErrInvalidInput, size)
	}
	if distance == "" {
		distance = domain.DistanceCosine
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     size,
			"distance": string(distance),
		},
	}
	if err := s.do(ctx, "create collection", http.MethodPut, s.collectionURL(name), body, nil); err != nil {
		return err
	}
	s.remember(name, size)
	return nil
}

// CollectionInfo returns the vector configuration of the collection.
func (s *Storage) CollectionInfo(ctx context.Context, name string) (domain.CollectionInfo, error) {
	var resp struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size     int    `json:"size"`
						Distance string `json:"distance"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	if err := s.do(ctx, "collection info", http.MethodGet, s.collectionURL(name), nil, &resp); err != nil {
		return domain.CollectionInfo{}, err
	}
	v := resp.Result.Config.Params.Vectors
	s.remember(name, v.Size)
	return domain.CollectionInfo{Name: name, Size: v.Size, Distance: domain.ParseDistance(v.Distance)}, nil
}

// Upsert inserts or replaces points. Every vector must match the collection
// size; nothing is written when one of them does not.
func (s *Storage) Upsert(ctx context.Context, collection string, points []domain.Point) error {
	if len(points) == 0 {
		return nil
	}
	size, err := s.collectionSize(ctx, collection)
	if err != nil {
		return err
	}
	body := make([]map[string]any, len(points))
	for i, p := range points {
		if len(p.Vector) != size {
			return domain.NewOpError("upsert", fmt.Errorf("%w: point %s has %d values, collection %q expects %d",
				domain.ErrDimensionMismatch, p.ID, len(p.Vector), collection, size))
		}
		body[i] = map[string]any{
			"id":      p.ID,
			"vector":  p.Vector,
			"payload": p.Payload,
		}
	}
	return s.do(ctx, "upsert", http.MethodPut, s.collectionURL(collection)+"/points?wait=true",
		map[string]any{"points": body}, nil)
}

// Search returns up to topK points ranked by similarity, restricted by filter.
func (s *Storage) Search(ctx context.Context, collection string, vector []float64, topK int, filter *domain.Filter) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	if f := encodeFilter(filter); f != nil {
		req["filter"] = f
	}
	var resp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := s.do(ctx, "search", http.MethodPost, s.collectionURL(collection)+"/points/search", req, &resp); err != nil {
		return nil, err
	}
	results := make([]domain.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, domain.SearchResult{
			ID:      fmt.Sprint(r.ID),
			Score:   r.Score,
			Payload: r.Payload,
		})
	}
	return results, nil
}

// encodeFilter renders a domain filter in Qdrant's filter syntax.
func encodeFilter(f *domain.Filter) map[string]any {
	if f == nil || (len(f.Must) == 0 && len(f.MustNotEmpty) == 0) {
		return nil
	}
	out := map[string]any{}
	if len(f.Must) > 0 {
		must := make([]map[string]any, len(f.Must))
		for i, m := range f.Must {
			must[i] = map[string]any{
				"key":   m.Key,
				"match": map[string]any{"value": m.Value},
			}
		}
		out["must"] = must
	}
	if len(f.MustNotEmpty) > 0 {
		mustNot := make([]map[string]any, len(f.MustNotEmpty))
		for i, key := range f.MustNotEmpty {
			mustNot[i] = map[string]any{"is_empty": map[string]any{"key": key}}
		}
		out["must_not"] = mustNot
	}
	return out
}

func (s *Storage) collectionSize(ctx context.Context, name string) (int, error) {
	s.mu.RLock()
	size, ok := s.sizes[name]
	s.mu.RUnlock()
	if ok {
		return size, nil
	}
	info, err := s.CollectionInfo(ctx, name)
	if err != nil {
		return 0, err
	}
	return info.Size, nil
}

func (s *Storage) remember(name string, size int) {
	s.mu.Lock()
	s.sizes[name] = size
	s.mu.Unlock()
}

func (s *Storage) forget(name string) {
	s.mu.Lock()
	delete(s.sizes, name)
	s.mu.Unlock()
}

func (s *Storage) collectionURL(name string) string {
	return fmt.Sprintf("%s/collections/%s", s.url, url.PathEscape(name))
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.code, e.body)
}

func (s *Storage) do(ctx context.Context, op, method, endpoint string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return domain.NewOpError(op, fmt.Errorf("%w: marshal request: %w", domain.ErrVectorStore, err))
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return domain.NewOpError(op, fmt.Errorf("%w: %w", domain.ErrVectorStore, err))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return domain.TransportError(op, domain.ErrVectorStore, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return domain.NewOpError(op, fmt.Errorf("%w: %w", domain.ErrVectorStore,
			&statusError{code: resp.StatusCode, body: strings.TrimSpace(string(payload))}))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.TransportError(op, domain.ErrVectorStore, fmt.Errorf("decode response: %w", err))
	}
	return nil
}
