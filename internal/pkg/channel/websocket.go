package channel

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const defaultWriteTimeout = 10 * time.Second

// WebsocketDialer dials the relay over a websocket. HeaderFunc is consulted
// on every dial so a refreshed token is picked up after reconnects.
type WebsocketDialer struct {
	URL          string
	HeaderFunc   func() http.Header
	Dialer       *websocket.Dialer
	WriteTimeout time.Duration // per frame, default: 10 seconds
}

func (d *WebsocketDialer) Dial(ctx context.Context) (Conn, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	}

	var header http.Header
	if d.HeaderFunc != nil {
		header = d.HeaderFunc()
	}

	ws, resp, err := dialer.DialContext(ctx, d.URL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", d.URL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", d.URL, err)
	}
	return NewWebsocketConn(ws, d.WriteTimeout), nil
}

// WebsocketConn adapts a gorilla connection to Conn. Writes are serialised
// and each frame must be written within the write timeout.
type WebsocketConn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration
	writeMu      sync.Mutex
}

// NewWebsocketConn wraps ws; writeTimeout <= 0 means 10 seconds.
func NewWebsocketConn(ws *websocket.Conn, writeTimeout time.Duration) *WebsocketConn {
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &WebsocketConn{ws: ws, writeTimeout: writeTimeout}
}

func (c *WebsocketConn) ReadFrame() (Frame, error) {
	var f Frame
	if err := c.ws.ReadJSON(&f); err != nil {
		return Frame{}, err
	}
	return f, nil
}

func (c *WebsocketConn) WriteFrame(f Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.ws.WriteJSON(f)
}

// WritePing sends a websocket ping control frame
func (c *WebsocketConn) WritePing(deadline time.Time) error {
	return c.ws.WriteControl(websocket.PingMessage, nil, deadline)
}

func (c *WebsocketConn) SetReadDeadline(t time.Time) error {
	return c.ws.SetReadDeadline(t)
}

func (c *WebsocketConn) SetPongHandler(h func(string) error) {
	c.ws.SetPongHandler(h)
}

func (c *WebsocketConn) Close() error {
	return c.ws.Close()
}
