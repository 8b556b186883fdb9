package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrEmbeddingRequest indicates the inference endpoint answered with a non-success status
	// or could not be reached.
	ErrEmbeddingRequest = errors.New("embedding request failed")

	// ErrEmbeddingFormat indicates the response did not carry a usable vector.
	ErrEmbeddingFormat = errors.New("embedding response malformed")

	// ErrEmbeddingDimension indicates a returned vector shorter than the hidden size.
	ErrEmbeddingDimension = errors.New("embedding dimension too small")

	// ErrEmbeddingConsistency indicates chunk embeddings of different lengths.
	ErrEmbeddingConsistency = errors.New("chunk embeddings disagree in length")

	// ErrVectorStore indicates the vector backend failed or is unavailable.
	ErrVectorStore = errors.New("vector store error")

	// ErrDimensionMismatch indicates a vector whose length differs from the collection size.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrTimeout indicates a network call exceeded its deadline.
	ErrTimeout = errors.New("operation timed out")

	// ErrGeneration indicates the completion endpoint failed.
	ErrGeneration = errors.New("generation failed")

	// ErrLLMUnavailable indicates no inference server is configured for generation.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrInsufficientContext indicates retrieval found nothing to ground an answer on.
	ErrInsufficientContext = errors.New("insufficient context")

	// ErrUnsupportedType indicates a file extension that cannot be processed.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrFileTooLarge indicates an upload above the configured size limit.
	ErrFileTooLarge = errors.New("file size exceeds allowed limit")

	// ErrInvalidInput indicates malformed or missing input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")
)

// OpError records which operation failed.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// NewOpError wraps err with the operation name.
func NewOpError(op string, err error) *OpError {
	return &OpError{Op: op, Err: err}
}

// IsTimeout reports whether err came from an exceeded deadline.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// TransportError classifies a failed network call under kind, adding
// ErrTimeout to the chain when the call timed out.
func TransportError(op string, kind, err error) error {
	if IsTimeout(err) {
		return NewOpError(op, fmt.Errorf("%w: %w: %w", kind, ErrTimeout, err))
	}
	return NewOpError(op, fmt.Errorf("%w: %w", kind, err))
}
