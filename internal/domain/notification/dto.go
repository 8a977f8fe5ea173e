package notification

import (
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/validator"
)

// SendRequest is an admin request to push a notification to a user
type SendRequest struct {
	RecipientID string                 `json:"recipientId"`
	Type        NotificationType       `json:"type"`
	Title       string                 `json:"title"`
	Message     string                 `json:"message"`
	Data        map[string]interface{} `json:"data,omitempty"`
	SenderID    string                 `json:"-"`
}

func (r *SendRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.RecipientID) {
		errs = append(errs, validator.ValidationError{
			Field:   "recipientId",
			Message: "recipientId is required",
		})
	}

	if r.Type == "" {
		r.Type = TypeGeneral
	}
	if !validator.IsInSlice(string(r.Type), typeNames()) {
		errs = append(errs, validator.ValidationError{
			Field:   "type",
			Message: "invalid notification type",
		})
	}

	if validator.IsEmpty(r.Title) {
		errs = append(errs, validator.ValidationError{
			Field:   "title",
			Message: "title is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

func typeNames() []string {
	types := AllNotificationTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return names
}

// SendResponse reports how many live connections received the notification
type SendResponse struct {
	Notification Notification `json:"notification"`
	Delivered    int          `json:"delivered"`
}
