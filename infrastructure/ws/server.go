// Package ws is the real-time transport: it upgrades HTTP requests to WebSocket
// connections and pumps JSON frames between the socket and the gateway.
package ws

import (
	"collab-lab/auth"
	"collab-lab/contract"
	"collab-lab/domain"
	"collab-lab/sink"
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
)

const (
	defaultMaxMessageSize = 1 << 20
	defaultPongTimeout    = 60 * time.Second
	defaultWriteTimeout   = 10 * time.Second
	tokenParam            = "token"
)

type Config struct {
	ConnectionBufferSize int
	HeartbeatInterval    time.Duration
	PongTimeout          time.Duration
	WriteTimeout         time.Duration
	MaxMessageSize       int64
	// AllowedOrigins lists the accepted Origin headers, "*" accepts any.
	// An empty list only accepts same-host requests.
	AllowedOrigins []string
}

type Server struct {
	log      *slog.Logger
	gateway  contract.IGateway
	tokens   *auth.TokenValidator
	upgrader websocket.Upgrader
	config   Config
}

// NewServer builds the WebSocket handler. tokens may be nil when no shared secret is configured.
func NewServer(log *slog.Logger, gateway contract.IGateway, tokens *auth.TokenValidator, config Config) *Server {
	config.PongTimeout = lo.Ternary(config.PongTimeout > 0, config.PongTimeout, defaultPongTimeout)
	config.WriteTimeout = lo.Ternary(config.WriteTimeout > 0, config.WriteTimeout, defaultWriteTimeout)
	config.MaxMessageSize = lo.Ternary(config.MaxMessageSize > 0, config.MaxMessageSize, int64(defaultMaxMessageSize))
	if config.HeartbeatInterval <= 0 || config.HeartbeatInterval >= config.PongTimeout {
		config.HeartbeatInterval = config.PongTimeout * 9 / 10
	}

	s := &Server{log: log, gateway: gateway, tokens: tokens, config: config}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	switch {
	case lo.Contains(config.AllowedOrigins, "*"):
		s.upgrader.CheckOrigin = func(*http.Request) bool { return true }
	case len(config.AllowedOrigins) > 0:
		s.upgrader.CheckOrigin = func(r *http.Request) bool {
			return lo.Contains(config.AllowedOrigins, r.Header.Get("Origin"))
		}
	}
	return s
}

// Handle upgrades the request and serves the connection until it is closed by either side.
func (s *Server) Handle(c *gin.Context) {
	handshake := ParseHandshake(c.Request.URL.Query())
	if token := c.Query(tokenParam); token != "" && s.tokens != nil {
		claims, err := s.tokens.ValidateToken(token)
		if err != nil {
			s.log.Warn("Handshake token refused", "error", err, "remote", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		handshake = claims.Apply(handshake)
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader has already answered the client
		s.log.Warn("WebSocket upgrade failed", "error", err, "remote", c.ClientIP())
		return
	}
	s.serve(c.Request.Context(), conn, handshake)
}

func (s *Server) serve(ctx context.Context, conn *websocket.Conn, handshake domain.Handshake) {
	connSink := sink.NewConnectionSink(s.config.ConnectionBufferSize)
	log := s.log.With("connection_id", connSink.ConnectionID(), "session_id", handshake.SessionID)

	if err := s.gateway.Connect(ctx, handshake, connSink); err != nil {
		log.Warn("Gateway refused the connection", "error", err)
		_ = conn.Close()
		return
	}

	written := make(chan struct{})
	go func() {
		defer close(written)
		s.writePump(log, conn, connSink)
	}()

	s.readPump(ctx, log, conn, connSink.ConnectionID())

	// A Disconnect must reach the loop even when the request context is already gone
	disconnectCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.WriteTimeout)
	if err := s.gateway.Disconnect(disconnectCtx, connSink.ConnectionID()); err != nil {
		log.Warn("Unable to report disconnection", "error", err)
	}
	cancel()
	connSink.Close()
	<-written
	_ = conn.Close()
	log.Debug("Connection closed")
}

// readPump decodes frames until the socket fails, the peer closes or a pong is missed.
func (s *Server) readPump(ctx context.Context, log *slog.Logger, conn *websocket.Conn, connectionID string) {
	conn.SetReadLimit(s.config.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(s.config.PongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.config.PongTimeout))
	})

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Info("Connection dropped", "error", err)
			}
			return
		}
		// Any inbound traffic proves the peer is alive
		_ = conn.SetReadDeadline(time.Now().Add(s.config.PongTimeout))
		if messageType != websocket.TextMessage {
			continue
		}

		inbound, err := DecodeInbound(data)
		if err != nil {
			log.Debug("Malformed frame dropped", "error", err)
			continue
		}
		if err := s.gateway.Submit(ctx, connectionID, inbound); err != nil {
			log.Warn("Unable to submit inbound event", "error", err)
			return
		}
	}
}

// writePump is the only writer of the socket. It stops when the sink is closed
// or a write fails, closing the socket so that the read pump returns too.
func (s *Server) writePump(log *slog.Logger, conn *websocket.Conn, connSink *sink.ConnectionSink) {
	ticker := time.NewTicker(s.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-connSink.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case e := <-connSink.Events():
			data, err := EncodeEvent(e)
			if err != nil {
				log.Error("Unable to encode outbound event", "event", e.Name(), "error", err)
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug("Write failed", "error", err)
				_ = conn.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug("Ping failed", "error", err)
				_ = conn.Close()
				return
			}
		}
	}
}
