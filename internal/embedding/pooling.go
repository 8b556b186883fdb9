package embedding

import (
	"fmt"

	"docintel/internal/domain"
	"docintel/internal/logger"
)

// MeanPool averages vectors elementwise. All vectors must share one length.
func MeanPool(vectors [][]float64) ([]float64, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: no vectors to pool", domain.ErrEmbeddingFormat)
	}
	size := len(vectors[0])
	out := make([]float64, size)
	for _, v := range vectors {
		if len(v) != size {
			return nil, fmt.Errorf("%w: got %d, want %d", domain.ErrEmbeddingConsistency, len(v), size)
		}
		for i, x := range v {
			out[i] += x
		}
	}
	n := float64(len(vectors))
	for i := range out {
		out[i] /= n
	}
	return out, nil
}

// Normalize interprets a raw response as one or more stacked vectors of
// hiddenSize values and returns a single vector. A trailing remainder that
// does not fill a whole vector is dropped with a warning; stacked per-token
// vectors are mean-pooled.
func Normalize(raw domain.RawEmbedding, hiddenSize int) ([]float64, error) {
	if hiddenSize <= 0 {
		return nil, fmt.Errorf("%w: hidden size %d", domain.ErrInvalidInput, hiddenSize)
	}
	values := raw.Values
	if rem := len(values) % hiddenSize; rem != 0 {
		logger.Warn("Returned embedding length (%d) is not a multiple of expected hidden size (%d); truncating remainder of %d.",
			len(values), hiddenSize, rem)
		values = values[:len(values)-rem]
	}
	switch {
	case len(values) < hiddenSize:
		return nil, fmt.Errorf("%w: got %d, expected at least %d", domain.ErrEmbeddingDimension, len(raw.Values), hiddenSize)
	case len(values) == hiddenSize:
		out := make([]float64, hiddenSize)
		copy(out, values)
		return out, nil
	}
	tokens := len(values) / hiddenSize
	stacked := make([][]float64, tokens)
	for t := 0; t < tokens; t++ {
		stacked[t] = values[t*hiddenSize : (t+1)*hiddenSize]
	}
	return MeanPool(stacked)
}
