package http

import (
	"net/http"

	"github.com/cmlabs-hris/hris-portal-go/internal/domain/location"
	"github.com/cmlabs-hris/hris-portal-go/internal/handler/http/response"
)

// PresenceReader exposes the relay's view of presence and latest locations
type PresenceReader interface {
	Latest() []location.Sample
	Online() []string
}

// LocationHandler defines the location handler interface
type LocationHandler interface {
	Snapshot(w http.ResponseWriter, r *http.Request)
}

type locationHandlerImpl struct {
	presence PresenceReader
}

func NewLocationHandler(presence PresenceReader) LocationHandler {
	return &locationHandlerImpl{presence: presence}
}

// Snapshot returns who is online and every user's latest location
func (h *locationHandlerImpl) Snapshot(w http.ResponseWriter, r *http.Request) {
	response.Success(w, location.NewSnapshot(h.presence.Latest(), h.presence.Online()))
}
