package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"docintel/internal/domain"
	"docintel/internal/logger"
	"docintel/internal/session"
)

// JobChatDocs is the job name of ChatWithDocs.
const JobChatDocs = "Chat with Documents"

// ConversationResult is the outcome of ChatWithDocs.
type ConversationResult struct {
	JobID     int64  `json:"job_id"`
	SessionID string `json:"session_id"`
	Response  string `json:"response"`
}

// ChatWithDocs continues the conversation of sessionID. An uploaded file
// becomes the document of the session; later messages without a file keep
// talking about it. The session history is part of every prompt. An empty or
// unknown sessionID starts a new session.
func (s *Service) ChatWithDocs(ctx context.Context, sessionID, message string, file *Upload) (ConversationResult, error) {
	res := ConversationResult{SessionID: sessionID}
	if strings.TrimSpace(message) == "" {
		return res, domain.NewOpError("chat with documents", fmt.Errorf("%w: empty message", domain.ErrInvalidInput))
	}

	var history []session.Turn
	if sessionID != "" {
		history = s.sessions.History(sessionID)
	}
	if len(history) == 0 && (sessionID == "" || s.sessions.Document(sessionID) == "") {
		res.SessionID = session.NewID()
		logger.Debug("Starting chat session %s", res.SessionID)
	}

	id, err := s.jobs.Track(ctx, JobChatDocs, func(int64) error {
		document := s.sessions.Document(res.SessionID)
		if file != nil {
			doc, err := s.prepare(ctx, *file)
			if err != nil {
				return err
			}
			s.persistIfNew(ctx, doc)
			document = strings.TrimSpace(doc.text)
			s.sessions.Attach(res.SessionID, document)
		}

		exchanges := make([]domain.Exchange, len(history))
		for i, t := range history {
			exchanges[i] = domain.Exchange{Message: t.Query, Reply: t.Answer}
		}
		reply, err := s.assistant.Converse(ctx, document, exchanges, message)
		if err != nil {
			return err
		}
		res.Response = strings.TrimSpace(reply)
		return nil
	})
	res.JobID = id
	if err != nil {
		return res, err
	}
	s.sessions.Append(res.SessionID, session.Turn{Query: message, Answer: res.Response, At: time.Now()})
	return res, nil
}
