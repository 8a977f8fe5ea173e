package relay

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-portal-go/internal/domain/location"
	"github.com/cmlabs-hris/hris-portal-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/channel"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/hub"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	mu       sync.Mutex
	presence []location.StatusUpdate
	latest   map[string]location.Sample
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{latest: make(map[string]location.Sample)}
}

func (r *memoryRepo) UpsertPresence(ctx context.Context, update location.StatusUpdate, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.presence = append(r.presence, update)
	return nil
}

func (r *memoryRepo) UpsertLatest(ctx context.Context, sample location.Sample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latest[sample.UserID] = sample
	return nil
}

func (r *memoryRepo) ListLatest(ctx context.Context) ([]location.Sample, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []location.Sample
	for _, s := range r.latest {
		out = append(out, s)
	}
	return out, nil
}

func newPeer(id string, role user.Role) *hub.Peer {
	return hub.NewPeer("conn-"+id, user.User{ID: id, Type: role}, 16)
}

func drain(p *hub.Peer) []channel.Frame {
	var out []channel.Frame
	for {
		select {
		case f := <-p.Send:
			out = append(out, f)
		default:
			return out
		}
	}
}

func TestService_JoinBroadcastsPresence(t *testing.T) {
	svc := NewService(hub.NewHub(), nil, Config{})
	admin := newPeer("admin-1", user.RoleSuperAdmin)
	emp := newPeer("emp-1", user.RoleEmployee)
	svc.Register(admin)
	require.NoError(t, svc.Join(admin, location.JoinRequest{UserID: "admin-1"}))

	disconnect := svc.Register(emp)
	require.NoError(t, svc.Join(emp, location.JoinRequest{UserID: "emp-1"}))

	frames := drain(admin)
	require.Len(t, frames, 1)
	assert.Equal(t, location.EventUserStatusUpdate, frames[0].Event)
	var update location.StatusUpdate
	require.NoError(t, json.Unmarshal(frames[0].Data, &update))
	assert.Equal(t, location.StatusUpdate{UserID: "emp-1", IsOnline: true}, update)

	// The newcomer learns that the admin is already online.
	frames = drain(emp)
	require.Len(t, frames, 1)
	require.NoError(t, json.Unmarshal(frames[0].Data, &update))
	assert.Equal(t, location.StatusUpdate{UserID: "admin-1", IsOnline: true}, update)

	disconnect()
	frames = drain(admin)
	require.Len(t, frames, 1)
	require.NoError(t, json.Unmarshal(frames[0].Data, &update))
	assert.Equal(t, location.StatusUpdate{UserID: "emp-1", IsOnline: false}, update)
	assert.Equal(t, []string{"admin-1"}, svc.Online())
}

func TestService_JoinRejectsForeignIdentity(t *testing.T) {
	svc := NewService(hub.NewHub(), nil, Config{})
	emp := newPeer("emp-1", user.RoleEmployee)
	svc.Register(emp)

	assert.ErrorIs(t, svc.Join(emp, location.JoinRequest{UserID: "emp-2"}), ErrIdentityMismatch)
	assert.ErrorIs(t, svc.Join(emp, location.JoinRequest{}), location.ErrMissingUserID)
}

func TestService_ShareLocationRebroadcasts(t *testing.T) {
	svc := NewService(hub.NewHub(), nil, Config{ObserversOnly: true})
	fixed := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	leader := newPeer("leader-1", user.RoleLeader)
	emp := newPeer("emp-1", user.RoleEmployee)
	other := newPeer("emp-2", user.RoleEmployee)
	for _, p := range []*hub.Peer{leader, emp, other} {
		svc.Register(p)
		require.NoError(t, svc.Join(p, location.JoinRequest{UserID: p.User.ID}))
	}
	drain(leader)
	drain(emp)
	drain(other)

	err := svc.ShareLocation(emp, location.Sample{UserID: "emp-1", Lat: -6.2, Long: 106.8})
	require.NoError(t, err)

	frames := drain(leader)
	require.Len(t, frames, 1)
	assert.Equal(t, location.EventUserLocationUpdate, frames[0].Event)
	assert.JSONEq(t, `{"userId":"emp-1","lat":-6.2,"long":106.8}`, string(frames[0].Data))
	assert.Empty(t, drain(emp))
	assert.Empty(t, drain(other))

	latest := svc.Latest()
	require.Len(t, latest, 1)
	assert.Equal(t, fixed, latest[0].ReceivedAt)
}

func TestService_ShareLocationValidation(t *testing.T) {
	svc := NewService(hub.NewHub(), nil, Config{})
	emp := newPeer("emp-1", user.RoleEmployee)
	svc.Register(emp)

	assert.ErrorIs(t, svc.ShareLocation(emp, location.Sample{UserID: "emp-1", Lat: 1, Long: 1}), ErrNotJoined)

	require.NoError(t, svc.Join(emp, location.JoinRequest{UserID: "emp-1"}))
	assert.ErrorIs(t, svc.ShareLocation(emp, location.Sample{UserID: "emp-2", Lat: 1, Long: 1}), ErrIdentityMismatch)
	assert.ErrorIs(t, svc.ShareLocation(emp, location.Sample{UserID: "emp-1", Lat: 100, Long: 1}), location.ErrInvalidCoordinates)
	assert.Empty(t, svc.Latest())
}

func TestService_LastWriteWins(t *testing.T) {
	svc := NewService(hub.NewHub(), nil, Config{})
	emp := newPeer("emp-1", user.RoleEmployee)
	svc.Register(emp)
	require.NoError(t, svc.Join(emp, location.JoinRequest{UserID: "emp-1"}))

	require.NoError(t, svc.ShareLocation(emp, location.Sample{UserID: "emp-1", Lat: 1, Long: 1}))
	require.NoError(t, svc.ShareLocation(emp, location.Sample{UserID: "emp-1", Lat: 2, Long: 2}))

	latest := svc.Latest()
	require.Len(t, latest, 1)
	assert.Equal(t, 2.0, latest[0].Lat)
}

func TestService_NotifyTargetsUser(t *testing.T) {
	svc := NewService(hub.NewHub(), nil, Config{})
	emp := newPeer("emp-1", user.RoleEmployee)
	svc.Register(emp)
	require.NoError(t, svc.Join(emp, location.JoinRequest{UserID: "emp-1"}))

	n, err := svc.Notify("emp-1", map[string]string{"title": "Leave approved"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = svc.Notify("nobody", map[string]string{"title": "x"})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	frames := drain(emp)
	require.Len(t, frames, 1)
	assert.Equal(t, location.EventNotification, frames[0].Event)
}

func TestService_PersistsThroughRepository(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(hub.NewHub(), repo, Config{})
	emp := newPeer("emp-1", user.RoleEmployee)
	disconnect := svc.Register(emp)

	require.NoError(t, svc.Join(emp, location.JoinRequest{UserID: "emp-1"}))
	require.NoError(t, svc.ShareLocation(emp, location.Sample{UserID: "emp-1", Lat: 1, Long: 2}))
	disconnect()
	svc.Stop()

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Equal(t, []location.StatusUpdate{
		{UserID: "emp-1", IsOnline: true},
		{UserID: "emp-1", IsOnline: false},
	}, repo.presence)
	assert.Contains(t, repo.latest, "emp-1")
}

func TestService_Restore(t *testing.T) {
	repo := newMemoryRepo()
	repo.latest["emp-9"] = location.Sample{UserID: "emp-9", Lat: 3, Long: 4, ReceivedAt: time.Now()}
	svc := NewService(hub.NewHub(), repo, Config{})
	defer svc.Stop()

	require.NoError(t, svc.Restore(context.Background()))

	latest := svc.Latest()
	require.Len(t, latest, 1)
	assert.Equal(t, "emp-9", latest[0].UserID)
}

func TestService_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	svc := NewService(hub.NewHub(), nil, Config{Metrics: metrics.NewRelay(reg)})
	emp := newPeer("emp-1", user.RoleEmployee)
	disconnect := svc.Register(emp)
	require.NoError(t, svc.Join(emp, location.JoinRequest{UserID: "emp-1"}))
	require.NoError(t, svc.ShareLocation(emp, location.Sample{UserID: "emp-1", Lat: 1, Long: 2}))
	_, err := svc.Notify("nobody", map[string]string{"title": "x"})
	require.NoError(t, err)

	expected := `
# HELP hris_portal_channel_connections Open presence/location channel connections.
# TYPE hris_portal_channel_connections gauge
hris_portal_channel_connections 1
# HELP hris_portal_channel_online_users Users with at least one joined connection.
# TYPE hris_portal_channel_online_users gauge
hris_portal_channel_online_users 1
# HELP hris_portal_channel_notifications_total Notifications pushed to users, by outcome.
# TYPE hris_portal_channel_notifications_total counter
hris_portal_channel_notifications_total{outcome="offline"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"hris_portal_channel_connections",
		"hris_portal_channel_online_users",
		"hris_portal_channel_notifications_total",
	))

	disconnect()
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP hris_portal_channel_connections Open presence/location channel connections.
# TYPE hris_portal_channel_connections gauge
hris_portal_channel_connections 0
# HELP hris_portal_channel_online_users Users with at least one joined connection.
# TYPE hris_portal_channel_online_users gauge
hris_portal_channel_online_users 0
`), "hris_portal_channel_connections", "hris_portal_channel_online_users"))
}
