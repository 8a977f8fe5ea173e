package location

import "errors"

var (
	ErrMissingUserID      = errors.New("location sample has no user id")
	ErrInvalidCoordinates = errors.New("coordinates out of range")
)
