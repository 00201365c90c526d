// Package session runs fetch cycles and owns the resulting display state.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rail44/userdash/internal/fetch"
	"github.com/rail44/userdash/internal/user"
)

// Session tracks fetch cycles against one Fetcher. Starting a cycle cancels
// the one in flight, and results of superseded cycles are discarded, so an
// older response can never overwrite a newer one.
type Session struct {
	mu      sync.Mutex
	fetcher fetch.Fetcher
	logger  *slog.Logger

	state   State
	users   []user.User // last successful list, kept across failures
	cycle   uint64
	cancel  context.CancelFunc
	fetches int
}

// New creates a session in the Loading state. No fetch is started.
func New(fetcher fetch.Fetcher, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		fetcher: fetcher,
		logger:  logger,
		state:   Loading{},
	}
}

// State returns the current display state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Fetches returns how many fetch cycles have been started
func (s *Session) Fetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

// SetFetcher swaps the fetcher used by subsequent cycles
func (s *Session) SetFetcher(f fetch.Fetcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetcher = f
}

// Begin starts a new fetch cycle. The state becomes Loading and any cycle in
// flight is cancelled. The returned context is cancelled when the cycle is
// superseded; the caller must pass the cycle number to Complete.
func (s *Session) Begin(parent context.Context) (context.Context, uint64, fetch.Fetcher) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.logger.Debug("superseded in-flight fetch", slog.Uint64("cycle", s.cycle))
	}

	ctx, cancel := context.WithCancel(parent)
	s.cycle++
	s.cancel = cancel
	s.fetches++
	s.state = Loading{}

	s.logger.Debug("fetch cycle started", slog.Uint64("cycle", s.cycle))
	return ctx, s.cycle, s.fetcher
}

// Complete applies the result of a cycle. It returns false, leaving the state
// untouched, when the cycle has been superseded.
func (s *Session) Complete(cycle uint64, users []user.User, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cycle != s.cycle {
		s.logger.Debug("dropped stale fetch result", slog.Uint64("cycle", cycle), slog.Uint64("current", s.cycle))
		return false
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	if err != nil {
		msg := fetch.Message(err)
		s.state = Failed{Message: msg}
		s.logger.Error("fetch failed", slog.Uint64("cycle", cycle), slog.String("error", err.Error()))
		return true
	}

	s.users = users
	s.state = Ready{Users: users}
	s.logger.Info("fetch succeeded", slog.Uint64("cycle", cycle), slog.Int("users", len(users)))
	return true
}

// Refresh runs one complete fetch cycle and returns the state it produced.
// If the cycle was superseded while running, the then-current state is
// returned instead.
func (s *Session) Refresh(ctx context.Context) State {
	ctx, cycle, fetcher := s.Begin(ctx)
	users, err := fetcher.Fetch(ctx)
	s.Complete(cycle, users, err)
	return s.State()
}

// Retry repeats the fetch after a failure. It is Refresh under the name the
// user sees.
func (s *Session) Retry(ctx context.Context) State {
	return s.Refresh(ctx)
}

// Close cancels any fetch in flight
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// LastUsers returns the list from the most recent successful cycle, which
// survives later failed cycles even though Failed does not display it
func (s *Session) LastUsers() []user.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users
}
