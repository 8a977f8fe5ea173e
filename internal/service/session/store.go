package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cmlabs-hris/hris-portal-go/internal/domain/session"
	"github.com/cmlabs-hris/hris-portal-go/internal/domain/user"
)

// AuthClient is the subset of the REST client the store needs
type AuthClient interface {
	Me(ctx context.Context) (user.AuthResponse, error)
	Login(ctx context.Context, req user.LoginRequest) (user.AuthResponse, error)
	Logout(ctx context.Context) error
}

type storeImpl struct {
	auth   AuthClient
	logger *slog.Logger

	mu      sync.RWMutex
	current session.Session
	nextID  uint64
	subs    map[uint64]func(session.Session)

	ready     chan struct{}
	readyOnce sync.Once
}

// NewStore creates the process-wide session store. It starts anonymous and
// not ready until Bootstrap resolves.
func NewStore(auth AuthClient, logger *slog.Logger) session.Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &storeImpl{
		auth:    auth,
		logger:  logger,
		current: session.Anonymous(),
		subs:    make(map[uint64]func(session.Session)),
		ready:   make(chan struct{}),
	}
}

func (s *storeImpl) Current() session.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *storeImpl) Ready() <-chan struct{} {
	return s.ready
}

func (s *storeImpl) Bootstrap(ctx context.Context) session.Session {
	defer s.readyOnce.Do(func() { close(s.ready) })

	resp, err := s.auth.Me(ctx)
	switch {
	case err != nil:
		s.logger.Warn("Session bootstrap failed, continuing as guest", "error", err)
		return s.set(session.Anonymous())
	case !resp.Success || resp.User == nil:
		s.logger.Info("No active session", "message", resp.Message)
		return s.set(session.Anonymous())
	}

	sess := session.Authenticated(resp.User)
	s.logger.Info("Session restored", "user_id", sess.UserID(), "role", sess.Role())
	return s.set(sess)
}

func (s *storeImpl) Login(ctx context.Context, req user.LoginRequest) (session.Session, error) {
	if err := req.Validate(); err != nil {
		return s.Current(), err
	}

	resp, err := s.auth.Login(ctx, req)
	if err != nil {
		return s.Current(), fmt.Errorf("login: %w", err)
	}
	if !resp.Success || resp.User == nil {
		if resp.Message != "" {
			return s.Current(), fmt.Errorf("%w: %s", session.ErrLoginRejected, resp.Message)
		}
		return s.Current(), session.ErrLoginRejected
	}

	sess := session.Authenticated(resp.User)
	s.logger.Info("User logged in", "user_id", sess.UserID(), "role", sess.Role())
	return s.set(sess), nil
}

func (s *storeImpl) Logout(ctx context.Context) session.Session {
	if err := s.auth.Logout(ctx); err != nil {
		s.logger.Warn("Backend logout failed, clearing local session", "error", err)
	}
	return s.set(session.Anonymous())
}

func (s *storeImpl) Subscribe(fn func(session.Session)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// set replaces the session and notifies subscribers outside the lock.
func (s *storeImpl) set(sess session.Session) session.Session {
	s.mu.Lock()
	s.current = sess
	fns := make([]func(session.Session), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(sess)
	}
	return sess
}
