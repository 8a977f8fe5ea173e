package hub

import (
	"testing"

	"github.com/cmlabs-hris/hris-portal-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/channel"
	"github.com/stretchr/testify/assert"
)

func peer(id string, role user.Role) *Peer {
	return NewPeer(id, user.User{ID: "user-" + id, Type: role}, 4)
}

func TestHub_JoinAndPresence(t *testing.T) {
	h := NewHub()
	a, b := peer("a", user.RoleEmployee), peer("b", user.RoleEmployee)

	cleanupA := h.Register(a)
	cleanupB := h.Register(b)
	assert.Equal(t, 2, h.TotalPeers())
	assert.Empty(t, h.Online())

	assert.True(t, h.Join(a, "u1"))
	assert.False(t, h.Join(a, "u1"))
	assert.False(t, h.Join(b, "u1"))
	assert.Equal(t, 2, h.connectionCount("u1"))

	userID, offline := cleanupA()
	assert.Equal(t, "u1", userID)
	assert.False(t, offline)

	userID, offline = cleanupB()
	assert.Equal(t, "u1", userID)
	assert.True(t, offline)

	_, offline = cleanupB()
	assert.False(t, offline)
	assert.Equal(t, 0, h.TotalPeers())
}

func TestHub_RejoinAsDifferentUserMovesPeer(t *testing.T) {
	h := NewHub()
	a := peer("a", user.RoleEmployee)
	h.Register(a)

	h.Join(a, "u1")
	assert.True(t, h.Join(a, "u2"))

	assert.Equal(t, 0, h.connectionCount("u1"))
	assert.Equal(t, []string{"u2"}, h.Online())
}

func TestHub_PublishTargetsUser(t *testing.T) {
	h := NewHub()
	a, b := peer("a", user.RoleEmployee), peer("b", user.RoleEmployee)
	h.Register(a)
	h.Register(b)
	h.Join(a, "u1")
	h.Join(b, "u2")

	n := h.Publish("u1", channel.Frame{Event: "notification"})

	assert.Equal(t, 1, n)
	assert.Len(t, a.Send, 1)
	assert.Len(t, b.Send, 0)
}

func TestHub_BroadcastSkipsSenderAndFiltered(t *testing.T) {
	h := NewHub()
	sender := peer("s", user.RoleEmployee)
	admin := peer("a", user.RoleSuperAdmin)
	other := peer("o", user.RoleEmployee)
	for _, p := range []*Peer{sender, admin, other} {
		h.Register(p)
	}

	n := h.Broadcast(channel.Frame{Event: "user-location-update"}, sender, func(p *Peer) bool {
		return p.User.CanObserve()
	})

	assert.Equal(t, 1, n)
	assert.Len(t, admin.Send, 1)
	assert.Len(t, sender.Send, 0)
	assert.Len(t, other.Send, 0)
}

func TestHub_FullQueueDoesNotBlock(t *testing.T) {
	h := NewHub()
	a := NewPeer("a", user.User{ID: "u1"}, 1)
	h.Register(a)
	h.Join(a, "u1")

	assert.Equal(t, 1, h.Publish("u1", channel.Frame{Event: "notification"}))
	assert.Equal(t, 0, h.Publish("u1", channel.Frame{Event: "notification"}))
}
