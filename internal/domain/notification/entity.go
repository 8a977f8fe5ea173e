package notification

import (
	"time"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	TypeAttendanceReminder NotificationType = "attendance_reminder"
	TypeAttendanceCheckIn  NotificationType = "attendance_check_in"
	TypeAttendanceCheckOut NotificationType = "attendance_check_out"
	TypeAnnouncement       NotificationType = "announcement"
	TypeGeneral            NotificationType = "general"
)

// AllNotificationTypes returns all available notification types
func AllNotificationTypes() []NotificationType {
	return []NotificationType{
		TypeAttendanceReminder,
		TypeAttendanceCheckIn,
		TypeAttendanceCheckOut,
		TypeAnnouncement,
		TypeGeneral,
	}
}

// Notification is the payload of a notification event on the channel.
// Receivers treat it as opaque beyond these fields.
type Notification struct {
	ID          string                 `json:"id"`
	RecipientID string                 `json:"recipientId"`
	SenderID    string                 `json:"senderId,omitempty"`
	Type        NotificationType       `json:"type"`
	Title       string                 `json:"title"`
	Message     string                 `json:"message"`
	Data        map[string]interface{} `json:"data,omitempty"`
	CreatedAt   time.Time              `json:"createdAt"`
}
