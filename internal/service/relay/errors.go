package relay

import "errors"

var (
	ErrIdentityMismatch = errors.New("channel identity does not match token")
	ErrNotJoined        = errors.New("connection has not joined")
)
