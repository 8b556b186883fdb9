package llama

import (
	"bytes"
	"encoding/json"
	"fmt"

	"docintel/internal/domain"
)

// embeddingObject covers every object shape the server has been seen to
// return: {"embedding": ...}, {"vector": ...} and the OpenAI-compatible
// {"data": [{"embedding": ...}]}.
type embeddingObject struct {
	Embedding json.RawMessage `json:"embedding"`
	Vector    json.RawMessage `json:"vector"`
	Data      []struct {
		Embedding json.RawMessage `json:"embedding"`
	} `json:"data"`
}

// ParseResponse maps a raw /embedding response body onto the canonical flat
// representation. The vector field may hold a flat list or a list of lists;
// the body may be an object or a list whose first element is used.
func ParseResponse(body []byte) (domain.RawEmbedding, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return domain.RawEmbedding{}, fmt.Errorf("%w: empty body", domain.ErrEmbeddingFormat)
	}

	var obj embeddingObject
	switch trimmed[0] {
	case '[':
		var list []embeddingObject
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return domain.RawEmbedding{}, fmt.Errorf("%w: %v", domain.ErrEmbeddingFormat, err)
		}
		if len(list) == 0 {
			return domain.RawEmbedding{}, fmt.Errorf("%w: empty embedding list", domain.ErrEmbeddingFormat)
		}
		obj = list[0]
	case '{':
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return domain.RawEmbedding{}, fmt.Errorf("%w: %v", domain.ErrEmbeddingFormat, err)
		}
	default:
		return domain.RawEmbedding{}, fmt.Errorf("%w: unexpected response type", domain.ErrEmbeddingFormat)
	}

	candidates := []json.RawMessage{obj.Embedding, obj.Vector}
	if len(obj.Data) > 0 {
		candidates = append(candidates, obj.Data[0].Embedding)
	}
	for _, raw := range candidates {
		values, err := flatten(raw)
		if err != nil {
			return domain.RawEmbedding{}, err
		}
		if len(values) > 0 {
			return domain.RawEmbedding{Values: values}, nil
		}
	}
	return domain.RawEmbedding{}, fmt.Errorf("%w: no embedding found in response", domain.ErrEmbeddingFormat)
}

// flatten decodes a flat or nested numeric list. A missing or null field yields nil.
func flatten(raw json.RawMessage) ([]float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var flat []float64
	if err := json.Unmarshal(raw, &flat); err == nil {
		return flat, nil
	}
	var nested [][]float64
	if err := json.Unmarshal(raw, &nested); err != nil {
		return nil, fmt.Errorf("%w: embedding is not a numeric list: %v", domain.ErrEmbeddingFormat, err)
	}
	var out []float64
	for _, row := range nested {
		out = append(out, row...)
	}
	return out, nil
}
