package llama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"docintel/internal/domain"
	"docintel/internal/inference"
)

// Client requests embeddings from a llama-server style /embedding endpoint.
type Client struct {
	baseURL     string
	endpoint    string
	nPredict    int
	temperature float64
	client      *http.Client
	gate        *inference.Gate
}

var _ domain.RawEmbedder = (*Client)(nil)

// Config configures the embedding client.
type Config struct {
	BaseURL  string
	Endpoint string
	Timeout  time.Duration
	// NPredict is carried over from the completion API; the server ignores it for embeddings.
	NPredict    int
	Temperature float64
	// Gate serializes calls with every other inference request. Optional.
	Gate *inference.Gate
}

type embeddingRequest struct {
	Input       string  `json:"input"`
	NPredict    int     `json:"n_predict"`
	Temperature float64 `json:"temperature"`
	Pooling     string  `json:"pooling"`
}

// NewClient creates a new embeddings client using the provided configuration.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://127.0.0.1:8080"
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "/embedding"
	}
	if cfg.NPredict == 0 {
		cfg.NPredict = 128
	}
	t := cfg.Timeout
	if t == 0 {
		t = 120 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		endpoint:    cfg.Endpoint,
		nPredict:    cfg.NPredict,
		temperature: cfg.Temperature,
		client:      &http.Client{Timeout: t},
		gate:        cfg.Gate,
	}
}

// NewHostClient builds a client for http://host:port with default settings.
func NewHostClient(host string, port int, gate *inference.Gate) *Client {
	return NewClient(Config{BaseURL: fmt.Sprintf("http://%s:%d", host, port), Gate: gate})
}

// RawEmbedding requests one embedding and returns it in canonical flat form.
func (c *Client) RawEmbedding(ctx context.Context, text string) (domain.RawEmbedding, error) {
	var out domain.RawEmbedding
	call := func(ctx context.Context) error {
		var err error
		out, err = c.do(ctx, text)
		return err
	}
	if c.gate == nil {
		return out, call(ctx)
	}
	err := c.gate.Do(ctx, call)
	return out, err
}

func (c *Client) do(ctx context.Context, text string) (domain.RawEmbedding, error) {
	data, err := json.Marshal(embeddingRequest{
		Input:       text,
		NPredict:    c.nPredict,
		Temperature: c.temperature,
		Pooling:     "mean",
	})
	if err != nil {
		return domain.RawEmbedding{}, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.endpoint, bytes.NewReader(data))
	if err != nil {
		return domain.RawEmbedding{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.RawEmbedding{}, domain.TransportError("embedding", domain.ErrEmbeddingRequest, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.RawEmbedding{}, domain.TransportError("embedding", domain.ErrEmbeddingRequest, err)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.RawEmbedding{}, domain.NewOpError("embedding",
			fmt.Errorf("%w: status %d: %s", domain.ErrEmbeddingRequest, resp.StatusCode, strings.TrimSpace(string(payload))))
	}
	return ParseResponse(payload)
}
