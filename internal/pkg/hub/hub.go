package hub

import (
	"sync"

	"github.com/cmlabs-hris/hris-portal-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/channel"
)

// Peer is one connected channel client
type Peer struct {
	ID   string
	User user.User
	Send chan channel.Frame

	mu     sync.RWMutex
	joined string
}

// NewPeer creates a peer with a buffered outbound queue
func NewPeer(id string, u user.User, queueSize int) *Peer {
	if queueSize <= 0 {
		queueSize = 32
	}
	return &Peer{
		ID:   id,
		User: u,
		Send: make(chan channel.Frame, queueSize),
	}
}

// JoinedAs returns the user id this peer joined as, or ""
func (p *Peer) JoinedAs() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.joined
}

// Hub tracks connected peers by joined user and fans frames out to them
type Hub struct {
	mu     sync.RWMutex
	peers  map[string]*Peer
	byUser map[string]map[*Peer]struct{}
}

// NewHub creates a new relay hub
func NewHub() *Hub {
	return &Hub{
		peers:  make(map[string]*Peer),
		byUser: make(map[string]map[*Peer]struct{}),
	}
}

// Register adds a peer that has not joined yet and returns its cleanup
// function. Cleanup reports whether the peer was the joined user's last
// connection.
func (h *Hub) Register(p *Peer) (cleanup func() (userID string, wentOffline bool)) {
	h.mu.Lock()
	h.peers[p.ID] = p
	h.mu.Unlock()

	var once sync.Once
	return func() (string, bool) {
		var userID string
		var offline bool
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()

			delete(h.peers, p.ID)
			userID = p.JoinedAs()
			if userID == "" {
				return
			}
			delete(h.byUser[userID], p)
			if len(h.byUser[userID]) == 0 {
				delete(h.byUser, userID)
				offline = true
			}
		})
		return userID, offline
	}
}

// Join associates a registered peer with userID. It reports whether this
// is the user's first live connection. Joining again as the same user is
// a no-op; joining as a different user moves the peer.
func (h *Hub) Join(p *Peer, userID string) (cameOnline bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	p.mu.Lock()
	prev := p.joined
	p.joined = userID
	p.mu.Unlock()

	if prev == userID {
		return false
	}
	if prev != "" {
		delete(h.byUser[prev], p)
		if len(h.byUser[prev]) == 0 {
			delete(h.byUser, prev)
		}
	}

	if h.byUser[userID] == nil {
		h.byUser[userID] = make(map[*Peer]struct{})
	}
	cameOnline = len(h.byUser[userID]) == 0
	h.byUser[userID][p] = struct{}{}
	return cameOnline
}

// Publish sends a frame to every connection of a specific user
func (h *Hub) Publish(userID string, frame channel.Frame) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for p := range h.byUser[userID] {
		if trySend(p, frame) {
			delivered++
		}
	}
	return delivered
}

// Broadcast sends a frame to every peer accepted by filter, except the
// sender. A nil filter accepts everyone.
func (h *Hub) Broadcast(frame channel.Frame, except *Peer, filter func(*Peer) bool) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, p := range h.peers {
		if p == except {
			continue
		}
		if filter != nil && !filter(p) {
			continue
		}
		if trySend(p, frame) {
			delivered++
		}
	}
	return delivered
}

// Send queues a frame for a single peer without blocking
func (h *Hub) Send(p *Peer, frame channel.Frame) bool {
	return trySend(p, frame)
}

func trySend(p *Peer, frame channel.Frame) bool {
	select {
	case p.Send <- frame:
		return true
	default:
		// Skip if the peer's queue is full (non-blocking to prevent deadlock)
		return false
	}
}

// Online returns the ids of users with at least one joined connection
func (h *Hub) Online() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.byUser))
	for id := range h.byUser {
		ids = append(ids, id)
	}
	return ids
}

func (h *Hub) connectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byUser[userID])
}

// TotalPeers returns the total number of registered connections
func (h *Hub) TotalPeers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}
