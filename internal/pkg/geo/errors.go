package geo

import "errors"

// Geolocation failure codes
var (
	ErrPermissionDenied    = errors.New("geolocation permission denied")
	ErrTimeout             = errors.New("geolocation request timed out")
	ErrPositionUnavailable = errors.New("position unavailable")
	ErrInsecureOrigin      = errors.New("geolocation requires a secure origin")
)

// WarningMessage maps a geolocation failure to the text shown to the user.
func WarningMessage(err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "Location permission denied. Please allow location access to share your position."
	case errors.Is(err, ErrTimeout):
		return "Getting your location timed out. Retrying automatically."
	case errors.Is(err, ErrPositionUnavailable):
		return "Your location is currently unavailable."
	case errors.Is(err, ErrInsecureOrigin):
		return "Location sharing requires a secure (HTTPS) connection."
	default:
		return "Unable to read your location."
	}
}
