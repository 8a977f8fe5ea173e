package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-portal-go/internal/domain/notification"
	"github.com/google/uuid"
)

// Notifier delivers a payload to every live connection of a user
type Notifier interface {
	Notify(userID string, payload interface{}) (int, error)
}

type sender struct {
	notifier Notifier
	now      func() time.Time
}

// NewSender creates a notification sender on top of the relay
func NewSender(notifier Notifier) notification.Sender {
	return &sender{notifier: notifier, now: time.Now}
}

func (s *sender) Send(ctx context.Context, req notification.SendRequest) (notification.SendResponse, error) {
	if err := req.Validate(); err != nil {
		return notification.SendResponse{}, err
	}

	n := notification.Notification{
		ID:          uuid.NewString(),
		RecipientID: req.RecipientID,
		SenderID:    req.SenderID,
		Type:        req.Type,
		Title:       req.Title,
		Message:     req.Message,
		Data:        req.Data,
		CreatedAt:   s.now().UTC(),
	}

	delivered, err := s.notifier.Notify(req.RecipientID, n)
	if err != nil {
		return notification.SendResponse{}, err
	}
	if delivered == 0 {
		slog.Info("Notification not delivered, recipient offline", "recipient_id", req.RecipientID, "notification_id", n.ID)
		return notification.SendResponse{Notification: n}, notification.ErrRecipientOffline
	}

	slog.Info("Notification delivered", "recipient_id", req.RecipientID, "notification_id", n.ID, "connections", delivered)
	return notification.SendResponse{Notification: n, Delivered: delivered}, nil
}
