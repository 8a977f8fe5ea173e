package location

import (
	"encoding/json"
	"time"
)

// Event names exchanged on the presence/location channel. They are a wire
// contract shared with the browser clients.
const (
	EventConnect            = "connect"
	EventJoin               = "join"
	EventShareLocation      = "share-location"
	EventUserLocationUpdate = "user-location-update"
	EventNotification       = "notification"
	EventUserStatusUpdate   = "user-status-update"
)

// SignalAttendanceUpdate is the in-process signal raised after a
// check-in or check-out.
const SignalAttendanceUpdate = "attendance-update"

// Sample is one position report. ReceivedAt is stamped by whoever receives
// it; it never travels on the wire.
type Sample struct {
	UserID     string    `json:"userId"`
	Lat        float64   `json:"lat"`
	Long       float64   `json:"long"`
	ReceivedAt time.Time `json:"-"`
}

// StatusUpdate is a presence change for one user.
type StatusUpdate struct {
	UserID   string `json:"userId"`
	IsOnline bool   `json:"isOnline"`
}

// JoinRequest associates a channel connection with a user.
type JoinRequest struct {
	UserID string `json:"userId"`
}

// UnmarshalJSON accepts {"userId": "..."} as well as a bare id string.
func (r *JoinRequest) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		r.UserID = id
		return nil
	}

	type plain JoinRequest
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = JoinRequest(p)
	return nil
}
