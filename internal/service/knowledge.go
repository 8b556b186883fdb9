package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"docintel/internal/domain"
	"docintel/internal/llm"
	"docintel/internal/logger"
	"docintel/internal/persist"
	"docintel/internal/session"
)

// Ingestion outcomes reported per file.
const (
	StatusIngested  = "ingested"
	StatusDuplicate = "duplicate"
	StatusSkipped   = "skipped"
)

// IngestDetail reports what happened to one file.
type IngestDetail struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
	Reason   string `json:"reason,omitempty"`
}

// IngestResult is the outcome of Ingest.
type IngestResult struct {
	JobID         int64          `json:"job_id"`
	IngestedCount int            `json:"ingested_count"`
	Details       []IngestDetail `json:"details"`
}

// ChatResult is the outcome of a knowledge-base chat turn.
type ChatResult struct {
	JobID     int64  `json:"job_id"`
	SessionID string `json:"session_id"`
	Answer    string `json:"answer"`
	// Grounded is false when nothing relevant was retrieved and the fixed
	// fallback answer was returned.
	Grounded bool `json:"grounded"`
}

// Ingest stores files in the knowledge base synchronously. Unsupported or
// oversized files are skipped and files whose bytes are already stored are
// reported as duplicates. Any other failure aborts the job.
func (s *Service) Ingest(ctx context.Context, files []Upload) (IngestResult, error) {
	var res IngestResult
	id, err := s.jobs.Track(ctx, JobIngest, func(int64) error {
		for _, f := range files {
			detail, err := s.ingestOne(ctx, f)
			if err != nil {
				return fmt.Errorf("ingest %s: %w", f.Filename, err)
			}
			if detail.Status == StatusIngested {
				res.IngestedCount++
			}
			res.Details = append(res.Details, detail)
		}
		return nil
	})
	res.JobID = id
	return res, err
}

func (s *Service) ingestOne(ctx context.Context, f Upload) (IngestDetail, error) {
	detail := IngestDetail{Filename: f.Filename}
	if err := s.validate(f); err != nil {
		logger.Error("Skipping %s: %v", f.Filename, err)
		detail.Status, detail.Reason = StatusSkipped, err.Error()
		return detail, nil
	}
	doc, err := s.prepare(ctx, f)
	if err != nil {
		return detail, err
	}
	if doc.cached {
		detail.Status = StatusDuplicate
		return detail, nil
	}
	err = s.persist.Save(ctx, persist.Task{
		ID:         uuid.NewString(),
		Bytes:      f.Data,
		Hash:       doc.hash,
		Filename:   f.Filename,
		Text:       doc.text,
		Collection: s.collection,
	})
	if err != nil {
		return detail, err
	}
	logger.Info("Ingested file: %s", f.Filename)
	detail.Status = StatusIngested
	return detail, nil
}

// IngestPaths reads the given files, walking directories recursively, and
// ingests every file with an allowed extension.
func (s *Service) IngestPaths(ctx context.Context, paths ...string) (IngestResult, error) {
	var files []Upload
	for _, root := range paths {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !s.cfg.IsAllowedExtension(path) {
				return nil
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			files = append(files, Upload{Filename: filepath.Base(path), Data: data})
			return nil
		})
		if err != nil {
			return IngestResult{}, domain.NewOpError("ingest", fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
		}
	}
	return s.Ingest(ctx, files)
}

// ChatWithKB answers query from the knowledge base and records the turn in
// the session. An empty sessionID starts a new session.
func (s *Service) ChatWithKB(ctx context.Context, sessionID, query string, topK int) (ChatResult, error) {
	return s.StreamChatWithKB(ctx, sessionID, query, topK, func(string) error { return nil })
}

// StreamChatWithKB is ChatWithKB delivering the answer to fn as it is
// generated. When nothing relevant is retrieved the fallback answer is sent
// as a single chunk and no generation happens.
func (s *Service) StreamChatWithKB(ctx context.Context, sessionID, query string, topK int, fn func(chunk string) error) (ChatResult, error) {
	res := ChatResult{SessionID: sessionID}
	if res.SessionID == "" {
		res.SessionID = session.NewID()
	}
	var answer strings.Builder
	emit := func(chunk string) error {
		answer.WriteString(chunk)
		return fn(chunk)
	}

	id, err := s.jobs.Track(ctx, JobChat, func(int64) error {
		rc, err := s.retriever.Retrieve(ctx, query, topK)
		if errors.Is(err, domain.ErrInsufficientContext) {
			logger.Info("No relevant context for query; returning fallback answer.")
			return emit(llm.FallbackAnswer)
		}
		if err != nil {
			return err
		}
		res.Grounded = true
		return s.assistant.StreamChat(ctx, rc.Text, rc.Query, emit)
	})
	res.JobID = id
	if err != nil {
		return res, err
	}
	res.Answer = strings.TrimSpace(answer.String())
	s.sessions.Append(res.SessionID, session.Turn{Query: query, Answer: res.Answer, At: time.Now()})
	return res, nil
}
