package location

import "github.com/cmlabs-hris/hris-portal-go/internal/pkg/validator"

// Validate checks a sample before it is relayed.
func (s Sample) Validate() error {
	if validator.IsEmpty(s.UserID) {
		return ErrMissingUserID
	}
	if !validator.IsValidLatitude(s.Lat) || !validator.IsValidLongitude(s.Long) {
		return ErrInvalidCoordinates
	}
	return nil
}
