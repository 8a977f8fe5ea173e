package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/cmlabs-hris/hris-portal-go/internal/domain/session"
	"github.com/cmlabs-hris/hris-portal-go/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct {
	me        user.AuthResponse
	meErr     error
	login     user.AuthResponse
	loginErr  error
	logoutErr error
	logouts   int
}

func (f *fakeAuth) Me(ctx context.Context) (user.AuthResponse, error) {
	return f.me, f.meErr
}

func (f *fakeAuth) Login(ctx context.Context, req user.LoginRequest) (user.AuthResponse, error) {
	return f.login, f.loginErr
}

func (f *fakeAuth) Logout(ctx context.Context) error {
	f.logouts++
	return f.logoutErr
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// Test Bootstrap restores an authenticated session
func TestStore_BootstrapAuthenticated(t *testing.T) {
	auth := &fakeAuth{me: user.AuthResponse{
		Success: true,
		User:    &user.User{ID: "u1", Type: user.RoleLeader, Name: "Lea"},
	}}
	store := NewStore(auth, quietLogger())
	assert.False(t, isClosed(store.Ready()))

	sess := store.Bootstrap(context.Background())

	assert.True(t, sess.IsAuthenticated)
	assert.Equal(t, "u1", sess.UserID())
	assert.Equal(t, user.RoleLeader, store.Current().Role())
	assert.True(t, isClosed(store.Ready()))
}

// Test Bootstrap never surfaces backend failures
func TestStore_BootstrapFailureIsAnonymous(t *testing.T) {
	tests := []struct {
		name string
		auth *fakeAuth
	}{
		{"network error", &fakeAuth{meErr: errors.New("connection refused")}},
		{"success false", &fakeAuth{me: user.AuthResponse{Success: false, Message: "unauthorized"}}},
		{"missing user", &fakeAuth{me: user.AuthResponse{Success: true}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore(tt.auth, quietLogger())

			sess := store.Bootstrap(context.Background())

			assert.False(t, sess.IsAuthenticated)
			assert.Nil(t, sess.User)
			assert.True(t, sess.Valid())
			assert.True(t, isClosed(store.Ready()))
		})
	}
}

// Test repeated Bootstrap calls close Ready only once
func TestStore_BootstrapTwice(t *testing.T) {
	store := NewStore(&fakeAuth{meErr: errors.New("down")}, quietLogger())

	require.NotPanics(t, func() {
		store.Bootstrap(context.Background())
		store.Bootstrap(context.Background())
	})
}

// Test Login validates credentials before calling the backend
func TestStore_LoginValidation(t *testing.T) {
	store := NewStore(&fakeAuth{}, quietLogger())

	_, err := store.Login(context.Background(), user.LoginRequest{Email: "not-an-email", Password: ""})

	require.Error(t, err)
	assert.False(t, store.Current().IsAuthenticated)
}

// Test Login rejected by the backend
func TestStore_LoginRejected(t *testing.T) {
	store := NewStore(&fakeAuth{login: user.AuthResponse{Success: false, Message: "wrong password"}}, quietLogger())

	_, err := store.Login(context.Background(), user.LoginRequest{Email: "a@b.co", Password: "x"})

	assert.ErrorIs(t, err, session.ErrLoginRejected)
	assert.False(t, store.Current().IsAuthenticated)
}

// Test Login and Logout notify subscribers
func TestStore_SubscribeSeesTransitions(t *testing.T) {
	auth := &fakeAuth{
		login:     user.AuthResponse{Success: true, User: &user.User{ID: "e1", Type: user.RoleEmployee}},
		logoutErr: errors.New("backend down"),
	}
	store := NewStore(auth, quietLogger())

	var seen []session.Session
	unsubscribe := store.Subscribe(func(s session.Session) { seen = append(seen, s) })

	sess, err := store.Login(context.Background(), user.LoginRequest{Email: "e@x.io", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "e1", sess.UserID())

	out := store.Logout(context.Background())
	assert.False(t, out.IsAuthenticated)
	assert.Equal(t, 1, auth.logouts)

	require.Len(t, seen, 2)
	assert.True(t, seen[0].IsAuthenticated)
	assert.False(t, seen[1].IsAuthenticated)

	unsubscribe()
	unsubscribe()
	store.Logout(context.Background())
	assert.Len(t, seen, 2)
}
