package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/cmlabs-hris/hris-portal-go/internal/domain/location"
	"github.com/cmlabs-hris/hris-portal-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-portal-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-portal-go/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/channel"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/hub"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/jwt"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Relay is the presence/location relay behind the websocket endpoint
type Relay interface {
	Register(p *hub.Peer) func()
	Join(p *hub.Peer, req location.JoinRequest) error
	ShareLocation(p *hub.Peer, sample location.Sample) error
}

// ChannelConfig holds websocket endpoint configuration
type ChannelConfig struct {
	AllowedOrigins []string      // "*" allows any origin; empty means same origin only
	PingInterval   time.Duration // default: 30 seconds
	WriteTimeout   time.Duration // default: 10 seconds
	QueueSize      int           // default: 32
	MaxFrameBytes  int64         // default: 4096
}

// ChannelHandler defines the channel handler interface
type ChannelHandler interface {
	Token(w http.ResponseWriter, r *http.Request)
	Connect(w http.ResponseWriter, r *http.Request)
}

type channelHandlerImpl struct {
	relay      Relay
	jwtService jwt.Service
	config     ChannelConfig
	upgrader   websocket.Upgrader
}

// NewChannelHandler creates the websocket endpoint of the relay
func NewChannelHandler(relay Relay, jwtService jwt.Service, cfg ChannelConfig) ChannelHandler {
	if cfg.PingInterval == 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.MaxFrameBytes == 0 {
		cfg.MaxFrameBytes = 4096
	}

	h := &channelHandlerImpl{relay: relay, jwtService: jwtService, config: cfg}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if len(cfg.AllowedOrigins) > 0 {
		h.upgrader.CheckOrigin = h.checkOrigin
	}
	return h
}

func (h *channelHandlerImpl) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return slices.Contains(h.config.AllowedOrigins, "*") || slices.Contains(h.config.AllowedOrigins, origin)
}

// Token issues a short-lived channel token for clients that cannot send
// an Authorization header on the websocket handshake
func (h *channelHandlerImpl) Token(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromRequest(r)
	if !sess.IsAuthenticated {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	token, expiresIn, err := h.jwtService.GenerateChannelToken(*sess.User)
	if err != nil {
		response.InternalServerError(w, "Failed to generate channel token")
		return
	}

	response.Success(w, map[string]interface{}{
		"token":      token,
		"expires_in": expiresIn,
	})
}

// Connect upgrades to a websocket and serves one relay connection
func (h *channelHandlerImpl) Connect(w http.ResponseWriter, r *http.Request) {
	u, err := h.identify(r)
	if err != nil {
		response.Unauthorized(w, "Invalid or missing token")
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		slog.Debug("Websocket upgrade failed", "error", err)
		return
	}
	ws.SetReadLimit(h.config.MaxFrameBytes)
	conn := channel.NewWebsocketConn(ws, h.config.WriteTimeout)

	peer := hub.NewPeer(uuid.NewString(), u, h.config.QueueSize)
	disconnect := h.relay.Register(peer)
	slog.Info("Channel connected", "peer_id", peer.ID, "user_id", u.ID, "role", u.Type)

	done := make(chan struct{})
	go h.writePump(conn, peer, done)

	h.readLoop(conn, peer)

	close(done)
	disconnect()
	conn.Close()
	slog.Info("Channel disconnected", "peer_id", peer.ID, "user_id", u.ID)
}

func (h *channelHandlerImpl) identify(r *http.Request) (user.User, error) {
	if sess := middleware.SessionFromRequest(r); sess.IsAuthenticated {
		return *sess.User, nil
	}
	token := r.URL.Query().Get("token")
	if token == "" {
		return user.User{}, errors.New("missing token")
	}
	return h.jwtService.ValidateChannelToken(token)
}

func (h *channelHandlerImpl) readLoop(conn *channel.WebsocketConn, peer *hub.Peer) {
	pongWait := h.config.PingInterval * 2
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		frame, err := conn.ReadFrame()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("Channel read failed", "peer_id", peer.ID, "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		if err := h.handleFrame(peer, frame); err != nil {
			slog.Warn("Channel frame rejected",
				"peer_id", peer.ID,
				"user_id", peer.User.ID,
				"event", frame.Event,
				"error", err,
			)
		}
	}
}

func (h *channelHandlerImpl) handleFrame(peer *hub.Peer, frame channel.Frame) error {
	switch frame.Event {
	case location.EventJoin:
		var req location.JoinRequest
		if err := json.Unmarshal(frame.Data, &req); err != nil {
			return err
		}
		return h.relay.Join(peer, req)

	case location.EventShareLocation:
		var sample location.Sample
		if err := json.Unmarshal(frame.Data, &sample); err != nil {
			return err
		}
		return h.relay.ShareLocation(peer, sample)

	default:
		slog.Debug("Ignoring unknown channel event", "peer_id", peer.ID, "event", frame.Event)
		return nil
	}
}

// writePump is the only writer of conn. It drains the peer's queue and
// keeps the connection alive with pings.
func (h *channelHandlerImpl) writePump(conn *channel.WebsocketConn, peer *hub.Peer, done <-chan struct{}) {
	keepalive := time.NewTicker(h.config.PingInterval)
	defer keepalive.Stop()

	for {
		select {
		case frame := <-peer.Send:
			if err := conn.WriteFrame(frame); err != nil {
				slog.Debug("Channel write failed", "peer_id", peer.ID, "error", err)
				conn.Close()
				return
			}

		case <-keepalive.C:
			if err := conn.WritePing(time.Now().Add(h.config.WriteTimeout)); err != nil {
				conn.Close()
				return
			}

		case <-done:
			return
		}
	}
}
