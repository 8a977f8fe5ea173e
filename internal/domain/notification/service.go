package notification

import "context"

// Sender pushes notifications to connected users
type Sender interface {
	Send(ctx context.Context, req SendRequest) (SendResponse, error)
}
