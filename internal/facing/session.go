package facing

import (
	"context"
	"errors"
	"sync"

	"github.com/couchcryptid/facing-direction-service/internal/domain"
)

// Searcher is the part of Service a Session drives.
type Searcher interface {
	Infer(ctx context.Context, address string) (Result, error)
}

// Session serializes one caller's searches: starting a search cancels the one
// in flight, and only the latest search may update the visible result.
type Session struct {
	searcher Searcher

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
	last   Result
	hasRes bool
}

// NewSession creates a Session backed by searcher.
func NewSession(searcher Searcher) *Session {
	return &Session{searcher: searcher}
}

// Search cancels any in-flight search and runs a new one. A search that is
// superseded before it finishes returns domain.ErrCancelled.
func (s *Session) Search(ctx context.Context, address string) (Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.seq++
	id := s.seq
	s.cancel = cancel
	s.mu.Unlock()

	res, err := s.searcher.Infer(ctx, address)

	s.mu.Lock()
	defer s.mu.Unlock()
	if id != s.seq {
		return Result{}, domain.ErrCancelled
	}
	s.cancel = nil
	if ctx.Err() != nil || errors.Is(err, domain.ErrCancelled) {
		return Result{}, domain.ErrCancelled
	}
	if err == nil {
		s.last = res
		s.hasRes = true
	}
	return res, err
}

// CancelInFlight cancels the live search, if any.
func (s *Session) CancelInFlight() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Last returns the most recent successful result of this session.
func (s *Session) Last() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.hasRes
}
