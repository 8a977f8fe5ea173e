package http

import (
	"net/http"

	"github.com/cmlabs-hris/hris-portal-go/internal/domain/route"
	"github.com/cmlabs-hris/hris-portal-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-portal-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-portal-go/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/validator"
)

// ScreenDescriptor tells the client which screen to render and what to
// compose around it. Page content itself is rendered client side.
type ScreenDescriptor struct {
	Screen      string            `json:"screen"`
	Path        string            `json:"path"`
	Capability  route.Capability  `json:"capability,omitempty"`
	Composition route.Composition `json:"composition"`
	User        *user.User        `json:"user,omitempty"`
	From        string            `json:"from,omitempty"`
}

// ScreenHandler defines the screen handler interface
type ScreenHandler interface {
	Show(screen route.Screen) http.HandlerFunc
	Session(w http.ResponseWriter, r *http.Request)
}

type screenHandlerImpl struct{}

func NewScreenHandler() ScreenHandler {
	return &screenHandlerImpl{}
}

// Show renders the descriptor of a screen the guard let through
func (h *screenHandlerImpl) Show(screen route.Screen) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := middleware.SessionFromRequest(r)

		desc := ScreenDescriptor{
			Screen:      screen.Name,
			Path:        screen.Path,
			Capability:  screen.Capability,
			Composition: middleware.CompositionFromContext(r.Context()),
			User:        sess.User,
		}
		if from := r.URL.Query().Get("from"); validator.IsLocalPath(from) {
			desc.From = from
		}

		response.Success(w, desc)
	}
}

// Session returns the session resolved from the request's token
func (h *screenHandlerImpl) Session(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromRequest(r)
	response.Success(w, map[string]interface{}{
		"isAuthenticated": sess.IsAuthenticated,
		"user":            sess.User,
	})
}
