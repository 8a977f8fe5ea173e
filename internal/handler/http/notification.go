package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cmlabs-hris/hris-portal-go/internal/domain/notification"
	"github.com/cmlabs-hris/hris-portal-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-portal-go/internal/handler/http/response"
)

// NotificationHandler defines the notification handler interface
type NotificationHandler interface {
	Send(w http.ResponseWriter, r *http.Request)
}

type notificationHandlerImpl struct {
	sender notification.Sender
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(sender notification.Sender) NotificationHandler {
	return &notificationHandlerImpl{sender: sender}
}

// Send pushes a notification to every live connection of the recipient
func (h *notificationHandlerImpl) Send(w http.ResponseWriter, r *http.Request) {
	var req notification.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.SenderID = middleware.SessionFromRequest(r).UserID()

	result, err := h.sender.Send(r.Context(), req)
	if err != nil {
		if errors.Is(err, notification.ErrRecipientOffline) {
			response.Accepted(w, "Recipient is offline, notification not delivered", result)
			return
		}
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Notification delivered", result)
}
