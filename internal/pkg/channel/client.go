package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cmlabs-hris/hris-portal-go/internal/domain/location"
)

// Handler receives the raw payload of an event
type Handler func(data json.RawMessage)

// Config holds channel client configuration
type Config struct {
	ReconnectDelay time.Duration // default: 2 seconds
}

// Client is the process-wide presence/location channel. It is opened once
// with Connect, shared by every consumer, and closed at process exit.
type Client struct {
	dialer Dialer
	config Config
	logger *slog.Logger

	mu        sync.Mutex
	writeMu   sync.Mutex
	conn      Conn
	started   bool
	closed    bool
	userID    string
	nextID    uint64
	handlers  map[string]map[uint64]*Subscription
	cancel    context.CancelFunc
	done      chan struct{}
	connCount atomic.Int64
}

// NewClient creates a channel client; nothing is dialed until Connect.
func NewClient(dialer Dialer, cfg Config, logger *slog.Logger) *Client {
	if cfg.ReconnectDelay == 0 {
		cfg.ReconnectDelay = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		dialer:   dialer,
		config:   cfg,
		logger:   logger.With(slog.String("component", "channel")),
		handlers: make(map[string]map[uint64]*Subscription),
		done:     make(chan struct{}),
	}
}

// Connect starts the connection loop. Calling it again while the loop is
// running is a no-op.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.started {
		return nil
	}
	c.started = true

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	go c.run(loopCtx)
	return nil
}

// Join associates the connection with userID. The association is
// re-asserted after every reconnect, so joining before the first
// connection is established is not an error.
func (c *Client) Join(userID string) error {
	c.mu.Lock()
	c.userID = userID
	c.mu.Unlock()

	err := c.Emit(location.EventJoin, location.JoinRequest{UserID: userID})
	if errors.Is(err, ErrNotConnected) {
		return nil
	}
	return err
}

// Emit publishes an event without acknowledgement. While disconnected the
// event is dropped and ErrNotConnected returned.
func (c *Client) Emit(event string, payload interface{}) error {
	frame, err := NewFrame(event, payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		c.logger.Debug("Dropping event while disconnected", "event", event)
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.WriteFrame(frame); err != nil {
		return fmt.Errorf("emit %s: %w", event, err)
	}
	return nil
}

// On registers handler for event. The returned subscription must be
// turned off by whoever registered it.
func (c *Client) On(event string, handler Handler) *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	sub := &Subscription{client: c, event: event, id: c.nextID, handler: handler}
	sub.active.Store(true)

	if c.handlers[event] == nil {
		c.handlers[event] = make(map[uint64]*Subscription)
	}
	c.handlers[event][sub.id] = sub
	return sub
}

// Off removes a subscription. It is safe to call more than once.
func (c *Client) Off(sub *Subscription) {
	if sub == nil {
		return
	}
	sub.Off()
}

func (c *Client) remove(sub *Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.handlers[sub.event], sub.id)
	if len(c.handlers[sub.event]) == 0 {
		delete(c.handlers, sub.event)
	}
}

func (c *Client) handlerCount(event string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handlers[event])
}

// Connected reports whether a transport connection is currently open
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Connections returns how many times a connection has been established
func (c *Client) Connections() int64 {
	return c.connCount.Load()
}

// Close stops the connection loop and closes the transport.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	started := c.started
	cancel := c.cancel
	conn := c.conn
	c.mu.Unlock()

	if !started {
		return nil
	}

	cancel()
	if conn != nil {
		conn.Close()
	}
	<-c.done
	return nil
}

func (c *Client) run(ctx context.Context) {
	defer close(c.done)

	for {
		conn, err := c.dialer.Dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("Channel dial failed", "error", err, "retry_in", c.config.ReconnectDelay)
			if !c.sleep(ctx) {
				return
			}
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			conn.Close()
			return
		}
		c.conn = conn
		userID := c.userID
		c.mu.Unlock()

		c.connCount.Add(1)
		c.logger.Info("Channel connected", "user_id", userID)

		if userID != "" {
			if err := c.Emit(location.EventJoin, location.JoinRequest{UserID: userID}); err != nil {
				c.logger.Warn("Channel re-join failed", "user_id", userID, "error", err)
			}
		}
		c.dispatch(Frame{Event: location.EventConnect})

		c.readLoop(conn)

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()

		if ctx.Err() != nil {
			return
		}
		c.logger.Info("Channel disconnected", "retry_in", c.config.ReconnectDelay)
		if !c.sleep(ctx) {
			return
		}
	}
}

func (c *Client) readLoop(conn Conn) {
	for {
		frame, err := conn.ReadFrame()
		if err != nil {
			c.logger.Debug("Channel read ended", "error", err)
			return
		}
		c.dispatch(frame)
	}
}

func (c *Client) dispatch(frame Frame) {
	c.mu.Lock()
	subs := make([]*Subscription, 0, len(c.handlers[frame.Event]))
	for _, sub := range c.handlers[frame.Event] {
		subs = append(subs, sub)
	}
	c.mu.Unlock()

	for _, sub := range subs {
		if sub.active.Load() {
			sub.handler(frame.Data)
		}
	}
}

func (c *Client) sleep(ctx context.Context) bool {
	t := time.NewTimer(c.config.ReconnectDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Subscription is the disposer handle returned by On
type Subscription struct {
	client  *Client
	event   string
	id      uint64
	handler Handler
	active  atomic.Bool
	once    sync.Once
}

// Off detaches the handler; it never fires for events dispatched afterwards.
func (s *Subscription) Off() {
	s.once.Do(func() {
		s.active.Store(false)
		s.client.remove(s)
	})
}

// Event returns the subscribed event name
func (s *Subscription) Event() string {
	return s.event
}
