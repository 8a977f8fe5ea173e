package presence

import (
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-portal-go/internal/domain/location"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/channel"
)

// Source delivers channel events to the board
type Source interface {
	On(event string, handler channel.Handler) *channel.Subscription
}

// Board is the observer's view of who is online and where they last were.
// The most recently received sample for a user always wins.
type Board struct {
	logger *slog.Logger
	now    func() time.Time

	mu     sync.RWMutex
	latest map[string]location.Sample
	online map[string]struct{}

	subs []*channel.Subscription
	once sync.Once
}

func NewBoard(src Source, logger *slog.Logger) *Board {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Board{
		logger: logger,
		now:    time.Now,
		latest: make(map[string]location.Sample),
		online: make(map[string]struct{}),
	}
	b.subs = []*channel.Subscription{
		src.On(location.EventUserLocationUpdate, b.onLocation),
		src.On(location.EventUserStatusUpdate, b.onStatus),
	}
	return b
}

func (b *Board) onLocation(data json.RawMessage) {
	var sample location.Sample
	if err := json.Unmarshal(data, &sample); err != nil {
		b.logger.Warn("Malformed location update", "error", err)
		return
	}
	if err := sample.Validate(); err != nil {
		b.logger.Warn("Invalid location update", "user_id", sample.UserID, "error", err)
		return
	}
	sample.ReceivedAt = b.now()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.latest[sample.UserID] = sample
}

func (b *Board) onStatus(data json.RawMessage) {
	var update location.StatusUpdate
	if err := json.Unmarshal(data, &update); err != nil || update.UserID == "" {
		b.logger.Warn("Malformed status update", "error", err)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if update.IsOnline {
		b.online[update.UserID] = struct{}{}
	} else {
		delete(b.online, update.UserID)
	}
}

func (b *Board) sampleOf(userID string) (location.Sample, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.latest[userID]
	return s, ok
}

// Latest returns the latest sample of every user ordered by user id
func (b *Board) Latest() []location.Sample {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]location.Sample, 0, len(b.latest))
	for _, s := range b.latest {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

func (b *Board) isOnline(userID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.online[userID]
	return ok
}

// Online returns the ids of online users, sorted
func (b *Board) Online() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]string, 0, len(b.online))
	for id := range b.online {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Close detaches the board from the channel
func (b *Board) Close() {
	b.once.Do(func() {
		for _, sub := range b.subs {
			sub.Off()
		}
	})
}
