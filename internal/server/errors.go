package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docintel/internal/domain"
	"docintel/internal/logger"
)

// StatusFor maps a service error onto an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrUnsupportedType),
		errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrVectorStore),
		errors.Is(err, domain.ErrEmbeddingRequest),
		errors.Is(err, domain.ErrEmbeddingFormat),
		errors.Is(err, domain.ErrEmbeddingDimension),
		errors.Is(err, domain.ErrEmbeddingConsistency),
		errors.Is(err, domain.ErrDimensionMismatch),
		errors.Is(err, domain.ErrGeneration),
		errors.Is(err, domain.ErrLLMUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func abort(c *gin.Context, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Error in %s endpoint: %v", c.FullPath(), err)
	}
	c.AbortWithStatusJSON(status, gin.H{"detail": err.Error()})
}

func abortWithJob(c *gin.Context, jobID int64, err error) {
	status := StatusFor(err)
	logger.Error("Error in %s endpoint (job %d): %v", c.FullPath(), jobID, err)
	c.AbortWithStatusJSON(status, gin.H{"job_id": jobID, "detail": err.Error()})
}
