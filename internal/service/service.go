// Package service implements the document tasks offered over HTTP and the
// CLI: summaries, question answering, obligation and risk extraction,
// knowledge-base ingestion and chat.
package service

import (
	"context"
	"errors"

	"docintel/internal/config"
	"docintel/internal/dedup"
	"docintel/internal/domain"
	"docintel/internal/jobs"
	"docintel/internal/persist"
	"docintel/internal/retrieval"
	"docintel/internal/session"
)

// Job names recorded for every task.
const (
	JobSummary     = "Generate File Summary"
	JobQnA         = "Q&A on Documents"
	JobObligations = "Find Obligations"
	JobRisks       = "Find Risks"
	JobIngest      = "Ingest Knowledge Base"
	JobChat        = "Chat with Knowledge Base"
)

// Upload is one file received from a client.
type Upload struct {
	Filename string
	Data     []byte
}

// Deps are the collaborators a Service is built from.
type Deps struct {
	Config    *config.AppConfig
	Jobs      *jobs.Store
	Cache     *dedup.Cache
	Extractor domain.Extractor
	Assistant domain.Assistant
	Persist   *persist.Coordinator
	Retriever *retrieval.Assembler
	Sessions  *session.Store
}

// Service orchestrates the document pipeline.
type Service struct {
	cfg        *config.AppConfig
	jobs       *jobs.Store
	cache      *dedup.Cache
	extractor  domain.Extractor
	assistant  domain.Assistant
	persist    *persist.Coordinator
	retriever  *retrieval.Assembler
	sessions   *session.Store
	collection string
}

func New(d Deps) (*Service, error) {
	switch {
	case d.Config == nil:
		return nil, errors.New("service: config is required")
	case d.Jobs == nil, d.Cache == nil, d.Extractor == nil, d.Assistant == nil:
		return nil, errors.New("service: jobs, cache, extractor and assistant are required")
	case d.Persist == nil, d.Retriever == nil, d.Sessions == nil:
		return nil, errors.New("service: persistence, retrieval and sessions are required")
	}
	return &Service{
		cfg:        d.Config,
		jobs:       d.Jobs,
		cache:      d.Cache,
		extractor:  d.Extractor,
		assistant:  d.Assistant,
		persist:    d.Persist,
		retriever:  d.Retriever,
		sessions:   d.Sessions,
		collection: d.Config.Qdrant.CollectionName,
	}, nil
}

// Jobs lists recorded jobs, newest first.
func (s *Service) Jobs(ctx context.Context, status jobs.Status, limit int) ([]jobs.Job, error) {
	return s.jobs.List(ctx, status, limit)
}

// Sessions exposes the chat session store.
func (s *Service) Sessions() *session.Store {
	return s.sessions
}
