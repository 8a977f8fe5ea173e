package tracking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-portal-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-portal-go/internal/domain/location"
	"github.com/cmlabs-hris/hris-portal-go/internal/domain/session"
	"github.com/cmlabs-hris/hris-portal-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/geo"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/signal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedIdentity struct{ sess session.Session }

func (f fixedIdentity) Current() session.Session { return f.sess }

type fakeStatus struct {
	mu      sync.Mutex
	records []attendance.Record
	err     error
	calls   int
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeStatus) set(records []attendance.Record, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = records
	f.err = err
}

func (f *fakeStatus) AttendanceStatus(ctx context.Context, req attendance.StatusRequest) (attendance.StatusResponse, error) {
	f.mu.Lock()
	f.calls++
	block, entered := f.block, f.entered
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return attendance.StatusResponse{}, f.err
	}
	return attendance.StatusResponse{Success: true, Data: f.records}, nil
}

type watch struct {
	onSample func(geo.Position)
	onError  func(error)
	stops    int
}

type fakeGeolocator struct {
	mu      sync.Mutex
	watches []*watch
}

func (g *fakeGeolocator) Watch(ctx context.Context, onSample func(geo.Position), onError func(error)) func() {
	g.mu.Lock()
	defer g.mu.Unlock()
	w := &watch{onSample: onSample, onError: onError}
	g.watches = append(g.watches, w)
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		w.stops++
	}
}

func (g *fakeGeolocator) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.watches)
}

func (g *fakeGeolocator) last() *watch {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.watches[len(g.watches)-1]
}

func (g *fakeGeolocator) stops(i int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.watches[i].stops
}

type emitted struct {
	event   string
	payload interface{}
}

type fakeEmitter struct {
	mu     sync.Mutex
	frames []emitted
	err    error
}

func (e *fakeEmitter) Emit(event string, payload interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.frames = append(e.frames, emitted{event, payload})
	return nil
}

type fakeWarnings struct {
	mu       sync.Mutex
	messages []string
}

func (w *fakeWarnings) Warn(msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.messages = append(w.messages, msg)
}

func (w *fakeWarnings) all() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.messages...)
}

type fixture struct {
	agent    *Agent
	status   *fakeStatus
	geo      *fakeGeolocator
	emitter  *fakeEmitter
	bus      *signal.Bus
	warnings *fakeWarnings
}

var checkedIn = []attendance.Record{{ID: "a1", Present: true}}

func checkedOut() []attendance.Record {
	out := "17:00"
	return []attendance.Record{{ID: "a1", Present: true, CheckOutTime: &out}}
}

func newFixture(sess session.Session) *fixture {
	f := &fixture{
		status:   &fakeStatus{},
		geo:      &fakeGeolocator{},
		emitter:  &fakeEmitter{},
		bus:      signal.NewBus(),
		warnings: &fakeWarnings{},
	}
	f.agent = NewAgent(Deps{
		Identity:   fixedIdentity{sess},
		Status:     f.status,
		Geolocator: f.geo,
		Emitter:    f.emitter,
		Signals:    f.bus,
		Warnings:   f.warnings,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:        func() time.Time { return time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC) },
	})
	return f
}

func employee() session.Session {
	return session.Authenticated(&user.User{ID: "emp-1", Type: user.RoleEmployee})
}

// Test a checked-in employee starts tracking and shares samples
func TestAgent_CheckedInStartsTracking(t *testing.T) {
	f := newFixture(employee())
	f.status.set(checkedIn, nil)

	f.agent.Mount(context.Background())

	assert.Equal(t, Tracking, f.agent.State())
	require.Equal(t, 1, f.geo.count())

	f.geo.last().onSample(geo.Position{Latitude: -6.2, Longitude: 106.8})

	require.Len(t, f.emitter.frames, 1)
	assert.Equal(t, location.EventShareLocation, f.emitter.frames[0].event)
	assert.Equal(t, location.Sample{UserID: "emp-1", Lat: -6.2, Long: 106.8}, f.emitter.frames[0].payload)
}

// Test repeated rechecks keep exactly one watch open
func TestAgent_EnsureTrackingIsIdempotent(t *testing.T) {
	f := newFixture(employee())
	f.status.set(checkedIn, nil)
	f.agent.Mount(context.Background())

	require.NoError(t, f.agent.Recheck(context.Background()))
	require.NoError(t, f.agent.Recheck(context.Background()))
	f.agent.Mount(context.Background())

	assert.Equal(t, 1, f.geo.count())
	assert.Equal(t, 0, f.geo.stops(0))
}

// Test the attendance-update signal after check-out stops tracking
func TestAgent_CheckOutSignalStopsTracking(t *testing.T) {
	f := newFixture(employee())
	f.status.set(checkedIn, nil)
	f.agent.Mount(context.Background())
	require.Equal(t, Tracking, f.agent.State())

	f.status.set(checkedOut(), nil)
	f.bus.Publish(location.SignalAttendanceUpdate, nil)

	assert.Equal(t, Idle, f.agent.State())
	assert.Equal(t, 1, f.geo.stops(0))

	// Samples delivered after stop are ignored.
	f.geo.last().onSample(geo.Position{Latitude: 1, Longitude: 1})
	assert.Empty(t, f.emitter.frames)

	f.bus.Publish(location.SignalAttendanceUpdate, nil)
	assert.Equal(t, 1, f.geo.stops(0))
}

// Test check-in signal starts tracking without remounting
func TestAgent_CheckInSignalStartsTracking(t *testing.T) {
	f := newFixture(employee())
	f.status.set(nil, nil)
	f.agent.Mount(context.Background())
	assert.Equal(t, Idle, f.agent.State())
	assert.Equal(t, 0, f.geo.count())

	f.status.set(checkedIn, nil)
	f.bus.Publish(location.SignalAttendanceUpdate, nil)

	assert.Equal(t, Tracking, f.agent.State())
	assert.Equal(t, 1, f.geo.count())
}

// Test geolocation errors surface as warnings and keep tracking
func TestAgent_GeolocationErrorWarns(t *testing.T) {
	f := newFixture(employee())
	f.status.set(checkedIn, nil)
	f.agent.Mount(context.Background())

	f.geo.last().onError(geo.ErrPermissionDenied)

	assert.Equal(t, Tracking, f.agent.State())
	assert.Equal(t, []string{geo.WarningMessage(geo.ErrPermissionDenied)}, f.warnings.all())
	assert.Equal(t, 0, f.geo.stops(0))
}

// Test a failed status fetch leaves the state unchanged
func TestAgent_StatusFailureKeepsState(t *testing.T) {
	f := newFixture(employee())
	f.status.set(checkedIn, nil)
	f.agent.Mount(context.Background())

	f.status.set(nil, errors.New("backend unavailable"))
	err := f.agent.Recheck(context.Background())

	require.Error(t, err)
	assert.Equal(t, Tracking, f.agent.State())
	assert.Equal(t, 0, f.geo.stops(0))
	assert.Len(t, f.warnings.all(), 1)
}

// Test Unmount forces Idle and detaches the signal
func TestAgent_UnmountStopsEverything(t *testing.T) {
	f := newFixture(employee())
	f.status.set(checkedIn, nil)
	f.agent.Mount(context.Background())

	f.agent.Unmount()

	assert.Equal(t, Idle, f.agent.State())
	assert.Equal(t, 1, f.geo.stops(0))

	calls := f.status.calls
	f.bus.Publish(location.SignalAttendanceUpdate, nil)
	assert.Equal(t, calls, f.status.calls)

	f.agent.Unmount()
	assert.Equal(t, 1, f.geo.stops(0))
}

// Test a recheck finishing after Unmount is discarded
func TestAgent_StaleRecheckDiscarded(t *testing.T) {
	f := newFixture(employee())
	f.agent.Mount(context.Background())
	require.Equal(t, Idle, f.agent.State())

	f.status.mu.Lock()
	f.status.records = checkedIn
	f.status.block = make(chan struct{})
	f.status.entered = make(chan struct{}, 1)
	f.status.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- f.agent.Recheck(context.Background()) }()

	<-f.status.entered
	f.agent.Unmount()
	close(f.status.block)
	require.NoError(t, <-done)

	assert.Equal(t, Idle, f.agent.State())
	assert.Equal(t, 0, f.geo.count())
}

// Test an anonymous session never tracks
func TestAgent_AnonymousStaysIdle(t *testing.T) {
	f := newFixture(session.Anonymous())
	f.status.set(checkedIn, nil)

	f.agent.Mount(context.Background())

	assert.Equal(t, Idle, f.agent.State())
	assert.Equal(t, 0, f.status.calls)
	assert.Equal(t, 0, f.geo.count())
}

// Test samples emitted while disconnected are dropped quietly
func TestAgent_EmitFailureIsDropped(t *testing.T) {
	f := newFixture(employee())
	f.status.set(checkedIn, nil)
	f.emitter.err = errors.New("not connected")
	f.agent.Mount(context.Background())

	f.geo.last().onSample(geo.Position{Latitude: 1, Longitude: 2})

	assert.Equal(t, Tracking, f.agent.State())
	assert.Empty(t, f.warnings.all())
}

// Test the rollover job rechecks only when the date changes
func TestAgent_RolloverJob(t *testing.T) {
	f := newFixture(employee())
	now := time.Date(2026, 3, 9, 23, 59, 0, 0, time.UTC)
	f.agent.now = func() time.Time { return now }
	f.status.set(checkedIn, nil)
	f.agent.Mount(context.Background())
	require.Equal(t, Tracking, f.agent.State())

	job := f.agent.RolloverJob()
	require.NoError(t, job(context.Background()))
	calls := f.status.calls

	require.NoError(t, job(context.Background()))
	assert.Equal(t, calls, f.status.calls)

	// A new day has no attendance record yet.
	now = now.Add(2 * time.Minute)
	f.status.set(nil, nil)
	require.NoError(t, job(context.Background()))

	assert.Equal(t, calls+1, f.status.calls)
	assert.Equal(t, Idle, f.agent.State())
}

// Test roles whose location is not streamed never start a watch
func TestAgent_UntrackedRoleStaysIdle(t *testing.T) {
	f := newFixture(session.Authenticated(&user.User{ID: "adm-1", Type: user.RoleSubAdmin}))
	f.status.set(checkedIn, nil)

	f.agent.Mount(context.Background())

	assert.Equal(t, Idle, f.agent.State())
	assert.Equal(t, 0, f.status.calls)
	assert.Equal(t, 0, f.geo.count())
}

// Test lifecycle log lines
func TestAgent_LogsTrackingLifecycle(t *testing.T) {
	var buf bytes.Buffer
	f := newFixture(employee())
	f.agent.logger = slog.New(slog.NewJSONHandler(&buf, nil))
	f.status.set(checkedIn, nil)
	f.agent.Mount(context.Background())

	f.status.set(checkedOut(), nil)
	require.NoError(t, f.agent.Recheck(context.Background()))

	var messages []string
	dec := json.NewDecoder(&buf)
	for dec.More() {
		var line struct {
			Msg string `json:"msg"`
		}
		require.NoError(t, dec.Decode(&line))
		messages = append(messages, line.Msg)
	}
	assert.Equal(t, []string{"Location tracking started", "Location tracking stopped"}, messages)
}
