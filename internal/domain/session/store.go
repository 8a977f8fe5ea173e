package session

import (
	"context"

	"github.com/cmlabs-hris/hris-portal-go/internal/domain/user"
)

// Store owns the process-wide session. Readers subscribe to changes
// instead of polling Current.
type Store interface {
	// Current returns the latest session snapshot
	Current() Session

	// Bootstrap resolves the initial session from the auth backend. It never
	// fails: a backend error leaves the session anonymous.
	Bootstrap(ctx context.Context) Session

	// Ready is closed once Bootstrap has resolved
	Ready() <-chan struct{}

	Login(ctx context.Context, req user.LoginRequest) (Session, error)
	Logout(ctx context.Context) Session

	// Subscribe registers fn for every session change and returns its disposer
	Subscribe(fn func(Session)) (unsubscribe func())
}
