package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestOpError(t *testing.T) {
	err := NewOpError("summarize", ErrUnsupportedType)
	assert.Equal(t, "summarize: unsupported file type", err.Error())
	assert.ErrorIs(t, err, ErrUnsupportedType)

	var op *OpError
	assert.True(t, errors.As(fmt.Errorf("outer: %w", err), &op))
	assert.Equal(t, "summarize", op.Op)
}

func TestIsTimeout(t *testing.T) {
	assert.False(t, IsTimeout(nil))
	assert.False(t, IsTimeout(errors.New("refused")))
	assert.True(t, IsTimeout(ErrTimeout))
	assert.True(t, IsTimeout(fmt.Errorf("post: %w", context.DeadlineExceeded)))
	assert.True(t, IsTimeout(timeoutErr{}))
}

func TestTransportError(t *testing.T) {
	err := TransportError("embed", ErrEmbeddingRequest, timeoutErr{})
	assert.ErrorIs(t, err, ErrEmbeddingRequest)
	assert.ErrorIs(t, err, ErrTimeout)

	err = TransportError("upsert", ErrVectorStore, errors.New("connection refused"))
	assert.ErrorIs(t, err, ErrVectorStore)
	assert.NotErrorIs(t, err, ErrTimeout)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestParseDistance(t *testing.T) {
	assert.Equal(t, DistanceEuclid, ParseDistance(" Euclidean "))
	assert.Equal(t, DistanceDot, ParseDistance("DOT"))
	assert.Equal(t, DistanceCosine, ParseDistance(""))
	assert.Equal(t, DistanceCosine, ParseDistance("manhattan"))
}

func TestParseAnswerMode(t *testing.T) {
	assert.Equal(t, AnswerSpecific, ParseAnswerMode(" Specific"))
	assert.Equal(t, AnswerElaborate, ParseAnswerMode("elaborate"))
	assert.Equal(t, AnswerElaborate, ParseAnswerMode(""))
}

func TestDocumentRecordPoint(t *testing.T) {
	p := DocumentRecord{ID: "1", Vector: []float64{1}, FileHash: "h", ExtractedText: "body", Filename: "a.txt"}.Point()
	assert.Equal(t, "h", p.Payload[PayloadFileHash])
	assert.Equal(t, "a.txt", p.Payload[PayloadFilename])

	hit := SearchResult{Payload: p.Payload}
	assert.Equal(t, "body", hit.Text())
	assert.Equal(t, "", SearchResult{}.Text())
	assert.Equal(t, "", SearchResult{Payload: map[string]any{PayloadFileHash: 3}}.PayloadString(PayloadFileHash))
}

func TestFilters(t *testing.T) {
	f := FileHashFilter("abc")
	assert.Equal(t, []FieldMatch{{Key: PayloadFileHash, Value: "abc"}}, f.Must)
	assert.Equal(t, []string{PayloadExtractedText}, HasTextFilter().MustNotEmpty)
}
