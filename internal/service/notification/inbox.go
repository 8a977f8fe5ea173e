package notification

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-portal-go/internal/domain/location"
	"github.com/cmlabs-hris/hris-portal-go/internal/domain/notification"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/channel"
)

// Source delivers channel events to the inbox
type Source interface {
	On(event string, handler channel.Handler) *channel.Subscription
}

// Item is one received notification. Raw holds the payload as sent; the
// decoded fields are best effort.
type Item struct {
	Notification notification.Notification
	Raw          json.RawMessage
	ReceivedAt   time.Time
}

// Inbox collects every notification pushed to this user, in arrival order
type Inbox struct {
	logger *slog.Logger
	now    func() time.Time
	sub    *channel.Subscription

	mu    sync.RWMutex
	items []Item
}

func NewInbox(src Source, logger *slog.Logger) *Inbox {
	if logger == nil {
		logger = slog.Default()
	}
	in := &Inbox{logger: logger, now: time.Now}
	in.sub = src.On(location.EventNotification, in.receive)
	return in
}

func (in *Inbox) receive(data json.RawMessage) {
	item := Item{
		Raw:        append(json.RawMessage(nil), data...),
		ReceivedAt: in.now(),
	}
	if err := json.Unmarshal(data, &item.Notification); err != nil {
		in.logger.Debug("Notification payload is not structured", "error", err)
	}

	in.mu.Lock()
	in.items = append(in.items, item)
	in.mu.Unlock()

	in.logger.Info("Notification received", "title", item.Notification.Title, "type", item.Notification.Type)
}

// Items returns a copy of the received notifications
func (in *Inbox) Items() []Item {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return append([]Item(nil), in.items...)
}

func (in *Inbox) Len() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.items)
}

// Close stops receiving notifications
func (in *Inbox) Close() {
	in.sub.Off()
}
