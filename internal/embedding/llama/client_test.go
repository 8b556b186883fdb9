package llama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docintel/internal/domain"
	"docintel/internal/inference"
)

func TestRawEmbedding_SendsRequestAndParses(t *testing.T) {
	var got embeddingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embedding", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"embedding":[0.1,0.2,0.3]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Gate: inference.NewGate()})
	emb, err := c.RawEmbedding(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, []float64{0.1, 0.2, 0.3}, emb.Values)
	assert.Equal(t, "hello", got.Input)
	assert.Equal(t, 128, got.NPredict)
	assert.Equal(t, 0.0, got.Temperature)
	assert.Equal(t, "mean", got.Pooling)
}

func TestRawEmbedding_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	_, err := c.RawEmbedding(context.Background(), "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingRequest)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestRawEmbedding_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := c.RawEmbedding(context.Background(), "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingRequest)
	assert.ErrorIs(t, err, domain.ErrTimeout)
}

func TestRawEmbedding_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(Config{BaseURL: url})
	_, err := c.RawEmbedding(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrEmbeddingRequest)
}

func TestParseResponse_Shapes(t *testing.T) {
	cases := []struct {
		name string
		body string
		want []float64
	}{
		{"object embedding", `{"embedding":[1,2]}`, []float64{1, 2}},
		{"object vector", `{"vector":[3,4]}`, []float64{3, 4}},
		{"empty embedding falls back to vector", `{"embedding":[],"vector":[5]}`, []float64{5}},
		{"nested embedding", `{"embedding":[[1,2],[3,4]]}`, []float64{1, 2, 3, 4}},
		{"list of objects", `[{"embedding":[6,7]},{"embedding":[8]}]`, []float64{6, 7}},
		{"list with nested", `[{"embedding":[[1],[2]]}]`, []float64{1, 2}},
		{"openai data", `{"data":[{"embedding":[9,10]}]}`, []float64{9, 10}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			emb, err := ParseResponse([]byte(tc.body))
			require.NoError(t, err)
			assert.Equal(t, tc.want, emb.Values)
		})
	}
}

func TestParseResponse_Malformed(t *testing.T) {
	for _, body := range []string{
		``,
		`[]`,
		`{}`,
		`{"embedding":null}`,
		`{"embedding":"abc"}`,
		`"string"`,
		`{not json`,
	} {
		_, err := ParseResponse([]byte(body))
		assert.ErrorIs(t, err, domain.ErrEmbeddingFormat, "body %q", body)
	}
}

func TestNewHostClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"embedding":[[1,2],[3,4]]}]`))
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	c := NewHostClient(u.Hostname(), port, nil)
	emb, err := c.RawEmbedding(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4}, emb.Values)
}
