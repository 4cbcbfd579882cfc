package web

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/exchange/internal/exchange"
)

var errSessionNotFound = errors.New("import session not found")

// Session is one open import dialog.
type Session struct {
	ID       uuid.UUID
	Entity   exchange.Entity
	Workflow *exchange.Workflow

	lastSeen time.Time
}

// WorkflowFactory builds the workflow behind a new session.
type WorkflowFactory func(entity exchange.Entity) *exchange.Workflow

// Sessions tracks open import sessions and expires idle ones.
type Sessions struct {
	ttl     time.Duration
	factory WorkflowFactory
	now     func() time.Time

	mu    sync.Mutex
	items map[uuid.UUID]*Session
}

// NewSessions creates an empty session table. Sessions untouched for ttl
// are closed by Sweep.
func NewSessions(ttl time.Duration, factory WorkflowFactory) *Sessions {
	return &Sessions{
		ttl:     ttl,
		factory: factory,
		now:     time.Now,
		items:   make(map[uuid.UUID]*Session),
	}
}

// Open starts a session for entity.
func (s *Sessions) Open(entity exchange.Entity) *Session {
	sess := &Session{
		ID:       uuid.New(),
		Entity:   entity,
		Workflow: s.factory(entity),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess.lastSeen = s.now()
	s.items[sess.ID] = sess
	return sess
}

// Get returns a live session and marks it used.
func (s *Sessions) Get(id string) (*Session, error) {
	key, err := uuid.Parse(id)
	if err != nil {
		return nil, errSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.items[key]
	if !ok {
		return nil, errSessionNotFound
	}
	sess.lastSeen = s.now()
	return sess, nil
}

// Remove closes and forgets a session. A session that is committing stays.
func (s *Sessions) Remove(id string) error {
	sess, err := s.Get(id)
	if err != nil {
		return err
	}
	if err := sess.Workflow.Close(); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.items, sess.ID)
	s.mu.Unlock()
	return nil
}

// Len returns the number of open sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Sweep closes sessions idle for longer than the TTL and returns how many
// were removed. Sessions mid-commit are left for the next sweep.
func (s *Sessions) Sweep() int {
	s.mu.Lock()
	cutoff := s.now().Add(-s.ttl)
	var expired []*Session
	for _, sess := range s.items {
		if sess.lastSeen.Before(cutoff) {
			expired = append(expired, sess)
		}
	}
	s.mu.Unlock()

	removed := 0
	for _, sess := range expired {
		if err := sess.Workflow.Close(); err != nil {
			continue
		}
		s.mu.Lock()
		delete(s.items, sess.ID)
		s.mu.Unlock()
		removed++
	}
	return removed
}

// Run sweeps every interval until ctx is cancelled.
func (s *Sessions) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				slog.Info("expired import sessions", "count", n, "open", s.Len())
			}
		}
	}
}
