package attendance

import "errors"

// Attendance domain errors
var (
	ErrStatusUnavailable = errors.New("attendance status could not be confirmed")
	ErrAlreadyCheckedIn  = errors.New("you have already checked in today")
	ErrNotCheckedIn      = errors.New("you have not checked in yet")
	ErrAlreadyCheckedOut = errors.New("you have already checked out")
)
