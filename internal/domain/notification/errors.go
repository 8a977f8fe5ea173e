package notification

import "errors"

// Notification domain errors
var (
	ErrRecipientOffline = errors.New("recipient has no live connection")
	ErrMalformedPayload = errors.New("malformed notification payload")
)
