package embedding

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docintel/internal/chunker"
	"docintel/internal/domain"
	"docintel/internal/logger"
)

type fakeRaw struct {
	mu     sync.Mutex
	inputs []string
	reply  func(call int, text string) (domain.RawEmbedding, error)
}

func (f *fakeRaw) RawEmbedding(_ context.Context, text string) (domain.RawEmbedding, error) {
	f.mu.Lock()
	f.inputs = append(f.inputs, text)
	call := len(f.inputs)
	f.mu.Unlock()
	return f.reply(call, text)
}

func constant(size int, v float64) []float64 {
	out := make([]float64, size)
	for i := range out {
		out[i] = v
	}
	return out
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := logger.Output()
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(prev) })
	return &buf
}

func TestEmbed_ShortTextSingleRequest(t *testing.T) {
	raw := &fakeRaw{reply: func(int, string) (domain.RawEmbedding, error) {
		return domain.RawEmbedding{Values: constant(4, 0.5)}, nil
	}}
	e := NewEmbedder(raw, Config{HiddenSize: 4, MaxChunkSize: 10})

	vec, err := e.Embed(context.Background(), "short")
	require.NoError(t, err)
	assert.Equal(t, constant(4, 0.5), vec)
	assert.Equal(t, []string{"short"}, raw.inputs)
}

func TestEmbed_LongTextChunkedAndPooled(t *testing.T) {
	const max = 8
	text := strings.Repeat("a", max) + strings.Repeat("b", max) + "c"

	raw := &fakeRaw{reply: func(call int, _ string) (domain.RawEmbedding, error) {
		return domain.RawEmbedding{Values: constant(3, float64(call))}, nil
	}}
	e := NewEmbedder(raw, Config{HiddenSize: 3, MaxChunkSize: max})

	vec, err := e.Embed(context.Background(), text)
	require.NoError(t, err)

	require.Len(t, raw.inputs, 3)
	assert.Equal(t, text[0:max], raw.inputs[0])
	assert.Equal(t, text[max:2*max], raw.inputs[1])
	assert.Equal(t, text[2*max:2*max+1], raw.inputs[2])
	assert.InDeltaSlice(t, constant(3, 2), vec, 1e-9)
}

func TestEmbed_DefaultChunkSize(t *testing.T) {
	raw := &fakeRaw{reply: func(int, string) (domain.RawEmbedding, error) {
		return domain.RawEmbedding{Values: constant(2, 1)}, nil
	}}
	e := NewEmbedder(raw, Config{HiddenSize: 2})
	require.Equal(t, chunker.DefaultChunkSize, e.chunker.Size())

	_, err := e.Embed(context.Background(), strings.Repeat("x", chunker.DefaultChunkSize+1))
	require.NoError(t, err)
	require.Len(t, raw.inputs, 2)
	assert.Len(t, raw.inputs[1], 1)
}

func TestCheckConsistent(t *testing.T) {
	assert.NoError(t, checkConsistent([][]float64{{1, 2}, {3, 4}}))

	err := checkConsistent([][]float64{constant(4, 1), constant(6, 1)})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingConsistency)
	assert.Contains(t, err.Error(), "[4 6]")
}

func TestEmbed_StackedChunkResponsesNormalizedBeforePooling(t *testing.T) {
	raw := &fakeRaw{reply: func(call int, _ string) (domain.RawEmbedding, error) {
		if call == 2 {
			return domain.RawEmbedding{Values: []float64{1, 1, 3, 3, 5, 5}}, nil
		}
		return domain.RawEmbedding{Values: []float64{1, 1}}, nil
	}}
	e := NewEmbedder(raw, Config{HiddenSize: 2, MaxChunkSize: 2})

	vec, err := e.Embed(context.Background(), "abcd")
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 2}, vec)
}

func TestEmbed_ChunkErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	raw := &fakeRaw{reply: func(call int, _ string) (domain.RawEmbedding, error) {
		if call == 2 {
			return domain.RawEmbedding{}, boom
		}
		return domain.RawEmbedding{Values: constant(2, 1)}, nil
	}}
	e := NewEmbedder(raw, Config{HiddenSize: 2, MaxChunkSize: 2})

	_, err := e.Embed(context.Background(), "abcdef")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "chunk 2/3")
	assert.Len(t, raw.inputs, 2)
}

func TestEmbed_ShortVectorFailsDimension(t *testing.T) {
	raw := &fakeRaw{reply: func(int, string) (domain.RawEmbedding, error) {
		return domain.RawEmbedding{Values: constant(2, 1)}, nil
	}}
	e := NewEmbedder(raw, Config{HiddenSize: 4})

	_, err := e.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrEmbeddingDimension)
}

func TestEmbed_CanceledDuringPacing(t *testing.T) {
	raw := &fakeRaw{reply: func(int, string) (domain.RawEmbedding, error) {
		return domain.RawEmbedding{Values: constant(2, 1)}, nil
	}}
	e := NewEmbedder(raw, Config{HiddenSize: 2, MaxChunkSize: 1, ChunkPause: 1 << 40})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Embed(ctx, "abc")
	assert.Error(t, err)
}

func TestMeanPool(t *testing.T) {
	pooled, err := MeanPool([][]float64{{1, 2, 3}, {3, 2, 1}})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 2, 2}, pooled)

	_, err = MeanPool(nil)
	assert.ErrorIs(t, err, domain.ErrEmbeddingFormat)

	_, err = MeanPool([][]float64{{1, 2}, {1}})
	assert.ErrorIs(t, err, domain.ErrEmbeddingConsistency)
}

func TestNormalize_TrimsRemainderWithWarning(t *testing.T) {
	buf := captureLogs(t)

	vec, err := Normalize(domain.RawEmbedding{Values: constant(4100, 0.25)}, 4096)
	require.NoError(t, err)
	assert.Len(t, vec, 4096)
	assert.Contains(t, buf.String(), "truncating remainder of 4")
}

func TestNormalize_StackedVectorsArePooled(t *testing.T) {
	values := append(constant(3, 1), constant(3, 3)...)
	vec, err := Normalize(domain.RawEmbedding{Values: values}, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 2, 2}, vec)
}

func TestNormalize_ExactSizeIsCopied(t *testing.T) {
	values := []float64{1, 2, 3}
	vec, err := Normalize(domain.RawEmbedding{Values: values}, 3)
	require.NoError(t, err)
	vec[0] = 99
	assert.Equal(t, 1.0, values[0])
}

func TestNormalize_ShortVector(t *testing.T) {
	_, err := Normalize(domain.RawEmbedding{Values: constant(3, 1)}, 4)
	assert.ErrorIs(t, err, domain.ErrEmbeddingDimension)

	_, err = Normalize(domain.RawEmbedding{}, 4)
	assert.ErrorIs(t, err, domain.ErrEmbeddingDimension)
}
