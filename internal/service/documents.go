package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"docintel/internal/dedup"
	"docintel/internal/domain"
	"docintel/internal/llm"
	"docintel/internal/logger"
	"docintel/internal/persist"
)

// SummaryResult is the outcome of Summarize.
type SummaryResult struct {
	JobID   int64  `json:"job_id"`
	Summary string `json:"summary"`
}

// QAPair is one question asked about a set of documents.
type QAPair struct {
	Question     string            `json:"question"`
	ResponseType domain.AnswerMode `json:"response_type"`
}

// QAResponse is the outcome of Answer.
type QAResponse struct {
	JobID int64 `json:"job_id"`
	// Results holds one answer per question in request order.
	Results []QAResult `json:"qa_pairs"`
}

type QAResult struct {
	Question     string            `json:"question"`
	Answer       string            `json:"answer"`
	ResponseType domain.AnswerMode `json:"response_type"`
}

// AnalysisResult is the outcome of FindObligations and FindRisks. Items is
// set when the reply parses as a JSON array.
type AnalysisResult struct {
	JobID int64            `json:"job_id"`
	Raw   string           `json:"raw"`
	Items []map[string]any `json:"items,omitempty"`
}

// document is an upload after validation, cache lookup and extraction.
type document struct {
	upload Upload
	hash   string
	text   string
	cached bool
}

// Summarize summarizes one document in minWords to maxWords words.
func (s *Service) Summarize(ctx context.Context, file Upload, minWords, maxWords int) (SummaryResult, error) {
	var res SummaryResult
	id, err := s.jobs.Track(ctx, JobSummary, func(int64) error {
		doc, err := s.prepare(ctx, file)
		if err != nil {
			return err
		}
		res.Summary, err = s.assistant.Summarize(ctx, doc.text, minWords, maxWords)
		if err != nil {
			return err
		}
		logger.Info("Generated summary for file '%s'.", file.Filename)
		s.persistIfNew(ctx, doc)
		return nil
	})
	res.JobID = id
	return res, err
}

// Answer answers every question against the combined text of files. A
// failing question gets an error message as its answer instead of failing
// the whole request.
func (s *Service) Answer(ctx context.Context, files []Upload, pairs []QAPair) (QAResponse, error) {
	var res QAResponse
	id, err := s.jobs.Track(ctx, JobQnA, func(int64) error {
		if len(files) == 0 {
			return domain.NewOpError("qna", fmt.Errorf("%w: no files", domain.ErrInvalidInput))
		}
		docs := make([]document, 0, len(files))
		texts := make([]string, 0, len(files))
		for _, f := range files {
			doc, err := s.prepare(ctx, f)
			if err != nil {
				return err
			}
			docs = append(docs, doc)
			texts = append(texts, doc.text)
		}
		combined := strings.Join(texts, "\n")

		for _, p := range pairs {
			mode := domain.ParseAnswerMode(string(p.ResponseType))
			answer, err := s.assistant.Answer(ctx, combined, strings.TrimSpace(p.Question), mode)
			if err != nil {
				answer = fmt.Sprintf("Error generating answer: %v", err)
			}
			res.Results = append(res.Results, QAResult{Question: p.Question, Answer: answer, ResponseType: mode})
		}
		for _, doc := range docs {
			s.persistIfNew(ctx, doc)
		}
		return nil
	})
	res.JobID = id
	return res, err
}

// FindObligations extracts the obligations stated in file.
func (s *Service) FindObligations(ctx context.Context, file Upload) (AnalysisResult, error) {
	return s.analyze(ctx, JobObligations, file, s.assistant.Obligations)
}

// FindRisks extracts the risks present in file.
func (s *Service) FindRisks(ctx context.Context, file Upload) (AnalysisResult, error) {
	return s.analyze(ctx, JobRisks, file, s.assistant.Risks)
}

func (s *Service) analyze(ctx context.Context, job string, file Upload, task func(context.Context, string) (string, error)) (AnalysisResult, error) {
	var res AnalysisResult
	id, err := s.jobs.Track(ctx, job, func(int64) error {
		doc, err := s.prepare(ctx, file)
		if err != nil {
			return err
		}
		res.Raw, err = task(ctx, doc.text)
		if err != nil {
			return err
		}
		if items, ok := llm.ParseJSONArray(res.Raw); ok {
			res.Items = items
		}
		s.persistIfNew(ctx, doc)
		return nil
	})
	res.JobID = id
	return res, err
}

// validate checks the extension and size limits of f.
func (s *Service) validate(f Upload) error {
	if !s.cfg.IsAllowedExtension(f.Filename) {
		return domain.NewOpError("validate", fmt.Errorf("%w: %s", domain.ErrUnsupportedType, f.Filename))
	}
	if limit := s.cfg.AllowedFileSizeLimit; limit > 0 && int64(len(f.Data)) > limit {
		return domain.NewOpError("validate", fmt.Errorf("%w: %s", domain.ErrFileTooLarge, f.Filename))
	}
	return nil
}

// prepare validates f and returns its text, taken from the vector store when
// the same bytes were processed before and extracted otherwise.
func (s *Service) prepare(ctx context.Context, f Upload) (document, error) {
	if err := s.validate(f); err != nil {
		return document{}, err
	}
	doc := document{upload: f, hash: dedup.ComputeHash(f.Data)}
	logger.Debug("Computed file hash: %s", doc.hash)

	if cached := s.cache.Lookup(ctx, doc.hash, s.collection); cached != "" {
		logger.Info("File '%s' already processed; using cached extracted text.", f.Filename)
		doc.text = cached
		doc.cached = true
		return doc, nil
	}

	text, err := s.extractor.Extract(ctx, f.Filename, f.Data)
	if err != nil {
		return document{}, err
	}
	logger.Info("Extracted text of length %d from '%s'.", len(text), f.Filename)
	doc.text = text
	return doc, nil
}

// persistIfNew schedules background storage for a document seen for the
// first time. Scheduling failures are logged only.
func (s *Service) persistIfNew(ctx context.Context, doc document) {
	if doc.cached {
		return
	}
	err := s.persist.Submit(ctx, persist.Task{
		ID:         uuid.NewString(),
		Bytes:      doc.upload.Data,
		Hash:       doc.hash,
		Filename:   doc.upload.Filename,
		Text:       doc.text,
		Collection: s.collection,
	})
	if err != nil {
		logger.Error("Could not schedule persistence for '%s': %v", doc.upload.Filename, err)
	}
}
