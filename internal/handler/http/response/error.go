package response

import (
	"errors"
	"net/http"

	"github.com/cmlabs-hris/hris-portal-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-portal-go/internal/domain/location"
	"github.com/cmlabs-hris/hris-portal-go/internal/domain/notification"
	"github.com/cmlabs-hris/hris-portal-go/internal/domain/session"
	"github.com/cmlabs-hris/hris-portal-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Session and identity errors
	case errors.Is(err, session.ErrNotAuthenticated):
		Unauthorized(w, "Authentication required")
	case errors.Is(err, session.ErrLoginRejected):
		Unauthorized(w, err.Error())
	case errors.Is(err, jwt.ErrInvalidClaims):
		Unauthorized(w, "Invalid token")
	case errors.Is(err, user.ErrUserNotFound):
		NotFound(w, "User not found")
	case errors.Is(err, user.ErrUnknownRole):
		Forbidden(w, "Unknown role")

	// Location errors
	case errors.Is(err, location.ErrMissingUserID):
		BadRequest(w, "userId is required", nil)
	case errors.Is(err, location.ErrInvalidCoordinates):
		BadRequest(w, "Coordinates out of range", nil)

	// Notification errors
	case errors.Is(err, notification.ErrRecipientOffline):
		NotFound(w, "Recipient is not connected")
	case errors.Is(err, notification.ErrMalformedPayload):
		BadRequest(w, "Malformed notification payload", nil)

	// Attendance errors
	case errors.Is(err, attendance.ErrStatusUnavailable):
		ServiceUnavailable(w, "Attendance status unavailable")
	case errors.Is(err, attendance.ErrAlreadyCheckedIn),
		errors.Is(err, attendance.ErrAlreadyCheckedOut),
		errors.Is(err, attendance.ErrNotCheckedIn):
		Conflict(w, err.Error())

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
