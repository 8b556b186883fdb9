// Package session keeps per-session chat history for a bounded time.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Turn is one exchange in a conversation.
type Turn struct {
	Query  string
	Answer string
	At     time.Time
}

type entry struct {
	turns    []Turn
	document string
	lastSeen time.Time
}

// Store is an in-process TTL store of conversations keyed by session id.
// Sessions idle for longer than the TTL are dropped on access, by an
// amortized sweep on Append and by Run.
type Store struct {
	mu        sync.Mutex
	ttl       time.Duration
	maxTurns  int
	now       func() time.Time
	sessions  map[string]*entry
	lastSweep time.Time
}

// NewStore creates a store. maxTurns bounds the retained history per
// session; zero keeps everything.
func NewStore(ttl time.Duration, maxTurns int) *Store {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Store{
		ttl:      ttl,
		maxTurns: maxTurns,
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
}

// NewID returns a fresh session id.
func NewID() string { return uuid.NewString() }

// History returns a copy of the turns recorded for id.
func (s *Store) History(id string) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.live(id)
	if e == nil {
		return nil
	}
	return append([]Turn(nil), e.turns...)
}

// Append records a turn and refreshes the session.
func (s *Store) Append(id string, turn Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if turn.At.IsZero() {
		turn.At = now
	}
	if now.Sub(s.lastSweep) > s.ttl {
		s.sweepLocked(now)
	}
	e := s.live(id)
	if e == nil {
		e = &entry{}
		s.sessions[id] = e
	}
	e.turns = append(e.turns, turn)
	if s.maxTurns > 0 && len(e.turns) > s.maxTurns {
		e.turns = append([]Turn(nil), e.turns[len(e.turns)-s.maxTurns:]...)
	}
	e.lastSeen = now
}

// Attach sets the document text a session talks about, creating the
// session when needed.
func (s *Store) Attach(id, document string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.live(id)
	if e == nil {
		e = &entry{}
		s.sessions[id] = e
	}
	e.document = document
	e.lastSeen = s.now()
}

// Document returns the text attached to id, or "".
func (s *Store) Document(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.live(id); e != nil {
		return e.document
	}
	return ""
}

// Delete drops a session.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Sweep removes every expired session and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(s.now())
}

// Run sweeps expired sessions every interval until ctx is canceled. A
// non-positive interval uses the TTL.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = s.ttl
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func (s *Store) sweepLocked(now time.Time) int {
	s.lastSweep = now
	removed := 0
	for id, e := range s.sessions {
		if now.Sub(e.lastSeen) > s.ttl {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored sessions, expired ones included.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) live(id string) *entry {
	e, ok := s.sessions[id]
	if !ok {
		return nil
	}
	if s.now().Sub(e.lastSeen) > s.ttl {
		delete(s.sessions, id)
		return nil
	}
	return e
}
