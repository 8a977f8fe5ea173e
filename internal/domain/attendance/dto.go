package attendance

import (
	"time"

	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/validator"
)

// StatusRequest asks for an employee's attendance on one calendar day
type StatusRequest struct {
	EmployeeID string `json:"employeeID"`
	Year       int    `json:"year"`
	Month      int    `json:"month"`
	Date       int    `json:"date"`
}

// TodayRequest builds the status request for the day containing now.
func TodayRequest(employeeID string, now time.Time) StatusRequest {
	return StatusRequest{
		EmployeeID: employeeID,
		Year:       now.Year(),
		Month:      int(now.Month()),
		Date:       now.Day(),
	}
}

func (r *StatusRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employeeID",
			Message: "employeeID is required",
		})
	}

	if r.Month < 1 || r.Month > 12 {
		errs = append(errs, validator.ValidationError{
			Field:   "month",
			Message: "month must be between 1 and 12",
		})
	}

	if r.Date < 1 || r.Date > 31 {
		errs = append(errs, validator.ValidationError{
			Field:   "date",
			Message: "date must be between 1 and 31",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// StatusResponse is the backend envelope for a status check
type StatusResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Data    []Record `json:"data"`
}

// ActionResponse is the backend envelope for check-in and check-out
type ActionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    Record `json:"data"`
}
