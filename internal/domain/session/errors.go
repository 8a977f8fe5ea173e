package session

import "errors"

var (
	ErrNotAuthenticated = errors.New("not logged in")
	ErrLoginRejected    = errors.New("login rejected by auth backend")
)
