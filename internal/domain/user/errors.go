package user

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrMissingIdentity    = errors.New("user identity is missing")
	ErrUnknownRole        = errors.New("unknown user type")
	ErrInvalidEmailFormat = errors.New("invalid email format")
)
