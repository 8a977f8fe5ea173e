package tracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-portal-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-portal-go/internal/domain/location"
	"github.com/cmlabs-hris/hris-portal-go/internal/domain/session"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/geo"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/signal"
)

// State is the tracking session state
type State int

const (
	Idle State = iota
	Tracking
)

func (s State) String() string {
	if s == Tracking {
		return "tracking"
	}
	return "idle"
}

const statusWarning = "Unable to check your attendance status. Location sharing is unchanged."

// Emitter sends events on the presence/location channel
type Emitter interface {
	Emit(event string, payload interface{}) error
}

// SignalSource lets the agent listen for in-process signals
type SignalSource interface {
	Subscribe(name string, fn signal.Handler) func()
}

// WarningSink shows non-fatal problems to the user
type WarningSink interface {
	Warn(message string)
}

// Identity exposes the current session
type Identity interface {
	Current() session.Session
}

// Agent shares the user's location while today's attendance says they are
// checked in and not yet checked out.
type Agent struct {
	identity   Identity
	status     attendance.StatusSource
	geolocator geo.Geolocator
	emitter    Emitter
	signals    SignalSource
	warnings   WarningSink
	logger     *slog.Logger
	now        func() time.Time

	mu          sync.Mutex
	state       State
	mounted     bool
	mountCtx    context.Context
	mountGen    uint64
	watchGen    uint64
	stopWatch   func()
	unsubscribe func()
	checkSeq    uint64
	applied     uint64
}

// Deps groups the agent's collaborators
type Deps struct {
	Identity   Identity
	Status     attendance.StatusSource
	Geolocator geo.Geolocator
	Emitter    Emitter
	Signals    SignalSource
	Warnings   WarningSink
	Logger     *slog.Logger
	Now        func() time.Time
}

func NewAgent(d Deps) *Agent {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Agent{
		identity:   d.Identity,
		status:     d.Status,
		geolocator: d.Geolocator,
		emitter:    d.Emitter,
		signals:    d.Signals,
		warnings:   d.Warnings,
		logger:     d.Logger,
		now:        d.Now,
	}
}

// State returns the current tracking state
func (a *Agent) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Agent) Mounted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mounted
}

// Mount attaches the agent to the attendance-update signal and runs the
// first check. Mounting twice is a no-op.
func (a *Agent) Mount(ctx context.Context) {
	a.mu.Lock()
	if a.mounted {
		a.mu.Unlock()
		return
	}
	a.mounted = true
	a.mountGen++
	a.mountCtx = ctx
	a.unsubscribe = a.signals.Subscribe(location.SignalAttendanceUpdate, func(any) {
		_ = a.Recheck(ctx)
	})
	a.mu.Unlock()

	a.logger.Debug("Tracking agent mounted")
	_ = a.Recheck(ctx)
}

// Unmount stops any watch and detaches from signals. A recheck still in
// flight is discarded when it returns.
func (a *Agent) Unmount() {
	a.mu.Lock()
	if !a.mounted {
		a.mu.Unlock()
		return
	}
	a.mounted = false
	a.mountGen++
	unsubscribe := a.unsubscribe
	a.unsubscribe = nil
	stop := a.idleLocked()
	a.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if stop != nil {
		stop()
	}
	a.logger.Debug("Tracking agent unmounted")
}

// Recheck fetches today's attendance and moves to Tracking or Idle. A
// failed fetch leaves the state unchanged and raises a warning.
func (a *Agent) Recheck(ctx context.Context) error {
	a.mu.Lock()
	if !a.mounted {
		a.mu.Unlock()
		return nil
	}
	gen := a.mountGen
	a.checkSeq++
	seq := a.checkSeq
	a.mu.Unlock()

	sess := a.identity.Current()
	if !sess.IsAuthenticated || sess.User == nil || !sess.User.IsTracked() {
		a.apply(gen, seq, false, "")
		return nil
	}
	userID := sess.UserID()

	resp, err := a.status.AttendanceStatus(ctx, attendance.TodayRequest(userID, a.now()))
	if err == nil && !resp.Success {
		err = attendance.ErrStatusUnavailable
		if resp.Message != "" {
			err = fmt.Errorf("%w: %s", attendance.ErrStatusUnavailable, resp.Message)
		}
	}
	if err != nil {
		if errors.Is(err, context.Canceled) && !a.Mounted() {
			return nil
		}
		a.logger.Error("Failed to fetch attendance status", "user_id", userID, "error", err)
		a.warn(statusWarning)
		return err
	}

	a.apply(gen, seq, attendance.TrackingWanted(resp.Data), userID)
	return nil
}

func (a *Agent) apply(gen, seq uint64, wanted bool, userID string) {
	a.mu.Lock()
	if !a.mounted || gen != a.mountGen || seq < a.applied {
		a.mu.Unlock()
		a.logger.Debug("Discarding stale attendance check", "seq", seq)
		return
	}
	a.applied = seq

	if !wanted {
		stop := a.idleLocked()
		a.mu.Unlock()
		if stop != nil {
			stop()
			a.logger.Info("Location tracking stopped", "user_id", userID)
		}
		return
	}

	if a.state == Tracking {
		a.mu.Unlock()
		return
	}
	a.state = Tracking
	a.watchGen++
	watchGen := a.watchGen
	ctx := a.mountCtx
	a.mu.Unlock()

	stop := a.geolocator.Watch(ctx,
		func(p geo.Position) { a.onSample(watchGen, userID, p) },
		func(err error) { a.onError(watchGen, err) },
	)

	a.mu.Lock()
	if a.state != Tracking || a.watchGen != watchGen {
		a.mu.Unlock()
		stop()
		return
	}
	a.stopWatch = stop
	a.mu.Unlock()

	a.logger.Info("Location tracking started", "user_id", userID)
}

// idleLocked moves to Idle and returns the watch's stop func, if any, for
// the caller to run after releasing the lock.
func (a *Agent) idleLocked() func() {
	if a.state == Idle {
		return nil
	}
	a.state = Idle
	a.watchGen++
	stop := a.stopWatch
	a.stopWatch = nil
	if stop == nil {
		return func() {}
	}
	return stop
}

func (a *Agent) current(watchGen uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state == Tracking && a.watchGen == watchGen
}

func (a *Agent) onSample(watchGen uint64, userID string, p geo.Position) {
	if !a.current(watchGen) {
		return
	}
	sample := location.Sample{UserID: userID, Lat: p.Latitude, Long: p.Longitude}
	if err := a.emitter.Emit(location.EventShareLocation, sample); err != nil {
		a.logger.Debug("Location sample dropped", "user_id", userID, "error", err)
	}
}

func (a *Agent) onError(watchGen uint64, err error) {
	if !a.current(watchGen) {
		return
	}
	a.logger.Warn("Geolocation error", "error", err)
	a.warn(geo.WarningMessage(err))
}

func (a *Agent) warn(msg string) {
	if a.warnings != nil {
		a.warnings.Warn(msg)
	}
}

// RolloverJob returns a periodic job that rechecks attendance whenever the
// local date changes, so a session left checked in stops at day end.
func (a *Agent) RolloverJob() func(ctx context.Context) error {
	var last string
	return func(ctx context.Context) error {
		day := a.now().Format(time.DateOnly)
		if last == "" || day == last {
			last = day
			return nil
		}
		last = day
		if !a.Mounted() {
			return nil
		}
		a.logger.Info("Date changed, rechecking attendance", "date", day)
		return a.Recheck(ctx)
	}
}
