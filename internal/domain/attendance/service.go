package attendance

import (
	"context"
)

// StatusSource reports today's attendance for an employee
type StatusSource interface {
	AttendanceStatus(ctx context.Context, req StatusRequest) (StatusResponse, error)
}

// Recorder performs check-in and check-out on behalf of the current user
type Recorder interface {
	CheckIn(ctx context.Context, employeeID string) (Record, error)
	CheckOut(ctx context.Context, employeeID string) (Record, error)
}
