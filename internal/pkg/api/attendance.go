package api

import (
	"context"
	"net/http"

	"github.com/cmlabs-hris/hris-portal-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-portal-go/internal/domain/location"
)

// Publisher raises in-process signals
type Publisher interface {
	Publish(name string, payload any)
}

// AttendanceStatus returns the employee's records for the requested day
func (c *Client) AttendanceStatus(ctx context.Context, req attendance.StatusRequest) (attendance.StatusResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.StatusResponse{}, err
	}

	var resp attendance.StatusResponse
	if err := c.do(ctx, http.MethodPost, "/attendance/status", req, &resp); err != nil {
		return attendance.StatusResponse{}, err
	}
	return resp, nil
}

// AttendanceRecorder performs check-in/check-out and raises the
// attendance-update signal after every successful action.
type AttendanceRecorder struct {
	client  *Client
	signals Publisher
}

func NewAttendanceRecorder(client *Client, signals Publisher) *AttendanceRecorder {
	return &AttendanceRecorder{client: client, signals: signals}
}

func (r *AttendanceRecorder) CheckIn(ctx context.Context, employeeID string) (attendance.Record, error) {
	return r.act(ctx, "/attendance/check-in", employeeID, attendance.ErrAlreadyCheckedIn)
}

func (r *AttendanceRecorder) CheckOut(ctx context.Context, employeeID string) (attendance.Record, error) {
	return r.act(ctx, "/attendance/check-out", employeeID, attendance.ErrAlreadyCheckedOut)
}

func (r *AttendanceRecorder) act(ctx context.Context, path, employeeID string, rejected error) (attendance.Record, error) {
	var resp attendance.ActionResponse
	body := map[string]string{"employeeID": employeeID}
	if err := r.client.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return attendance.Record{}, err
	}
	if !resp.Success {
		return attendance.Record{}, rejected
	}

	r.signals.Publish(location.SignalAttendanceUpdate, resp.Data)
	return resp.Data, nil
}
