// Package llm talks to the completion endpoint of a llama-server and builds
// the prompts for every document task.
package llm

import (
	"bufio"
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
	"docintel/internal/logger"
)

// Client calls POST /completion.
type Client struct {
	url    string
	client *http.Client
	gate   *inference.Gate
	params Params
}

var _ domain.Generator = (*Client)(nil)

// Params are the sampling parameters sent with every request.
type Params struct {
	NPredict int
	Seed     int
	TopK     int
	TopP     float64
}

// Config configures the completion client.
type Config struct {
	BaseURL  string
	Endpoint string
	Timeout  time.Duration
	Params   Params
	Gate     *inference.Gate
}

type completionRequest struct {
	Prompt      string  `json:"prompt"`
	NPredict    int     `json:"n_predict"`
	Temperature float64 `json:"temperature"`
	Seed        int     `json:"seed"`
	TopK        int     `json:"top_k"`
	TopP        float64 `json:"top_p"`
	Stream      bool    `json:"stream,omitempty"`
}

type completionResponse struct {
	Completion string `json:"completion"`
	Content    string `json:"content"`
	Stop       bool   `json:"stop"`
}

func (r completionResponse) text() string {
	if r.Completion != "" {
		return r.Completion
	}
	return r.Content
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://127.0.0.1:8080"
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "/completion"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	p := cfg.Params
	if p.NPredict == 0 {
		p.NPredict = 512
	}
	if p.Seed == 0 {
		p.Seed = 12345
	}
	if p.TopK == 0 {
		p.TopK = 40
	}
	if p.TopP == 0 {
		p.TopP = 0.9
	}
	return &Client{
		url:    strings.TrimRight(cfg.BaseURL, "/") + cfg.Endpoint,
		client: &http.Client{Timeout: cfg.Timeout},
		gate:   cfg.Gate,
		params: p,
	}
}

// Generate returns the full completion for prompt.
func (c *Client) Generate(ctx context.Context, prompt string, opts domain.GenerateOptions) (string, error) {
	var out string
	err := c.withGate(ctx, func(ctx context.Context) error {
		start := time.Now()
		resp, err := c.post(ctx, c.request(prompt, opts, false))
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		logger.Info("llama-server responded in %.3f seconds.", time.Since(start).Seconds())

		var body completionResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return domain.NewOpError("completion", fmt.Errorf("%w: decode response: %w", domain.ErrGeneration, err))
		}
		out = strings.TrimSpace(body.text())
		if out == "" {
			return domain.NewOpError("completion", fmt.Errorf("%w: server response missing generated text", domain.ErrGeneration))
		}
		return nil
	})
	return out, err
}

// Stream requests a streamed completion and calls fn with every text chunk
// in arrival order. Server-sent "data:" lines are decoded; any other
// payload is forwarded verbatim.
func (c *Client) Stream(ctx context.Context, prompt string, opts domain.GenerateOptions, fn func(chunk string) error) error {
	return c.withGate(ctx, func(ctx context.Context) error {
		resp, err := c.post(ctx, c.request(prompt, opts, true))
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			chunk, stop := decodeStreamLine(line)
			if chunk != "" {
				if err := fn(chunk); err != nil {
					return err
				}
			}
			if stop {
				return nil
			}
		}
		if err := scanner.Err(); err != nil {
			return domain.TransportError("completion stream", domain.ErrGeneration, err)
		}
		return nil
	})
}

func decodeStreamLine(line string) (string, bool) {
	payload, ok := strings.CutPrefix(line, "data:")
	if !ok {
		return line, false
	}
	payload = strings.TrimSpace(payload)
	if payload == "[DONE]" {
		return "", true
	}
	var r completionResponse
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return payload, false
	}
	return r.text(), r.Stop
}

func (c *Client) request(prompt string, opts domain.GenerateOptions, stream bool) completionRequest {
	n := c.params.NPredict
	if opts.MaxTokens > 0 {
		n = opts.MaxTokens
	}
	return completionRequest{
		Prompt:      prompt,
		NPredict:    n,
		Temperature: opts.Temperature,
		Seed:        c.params.Seed,
		TopK:        c.params.TopK,
		TopP:        c.params.TopP,
		Stream:      stream,
	}
}

func (c *Client) post(ctx context.Context, body completionRequest) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, domain.TransportError("completion", domain.ErrGeneration, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, domain.NewOpError("completion",
			fmt.Errorf("%w: status %d: %s", domain.ErrGeneration, resp.StatusCode, strings.TrimSpace(string(payload))))
	}
	return resp, nil
}

func (c *Client) withGate(ctx context.Context, fn func(ctx context.Context) error) error {
	if c.gate == nil {
		return fn(ctx)
	}
	return c.gate.Do(ctx, fn)
}
