// Package ws hosts the websocket endpoint that feeds the realtime
// registry. Clients connect, then subscribe to channels by sending
// handshake frames; deliveries flow back as JSON text frames.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/avoron/tinychat/internal/logging"
	"github.com/avoron/tinychat/internal/server/realtime"
)

type Server struct {
	address     string
	registry    *realtime.Registry
	logger      logging.Logger
	sendTimeout time.Duration
	upgrader    websocket.Upgrader
}

func NewServer(address string, registry *realtime.Registry, logger logging.Logger, sendTimeout time.Duration) *Server {
	return &Server{
		address:     address,
		registry:    registry,
		logger:      logger.With("module", "ws"),
		sendTimeout: sendTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// auth happens per handshake frame, not per origin
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Run serves the websocket endpoint until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		s.handleConnect(ctx, w, r)
	})

	srv := &http.Server{Addr: s.address, Handler: mux}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping websocket server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting websocket server...", "address", s.address)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleConnect(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn(ctx, "websocket upgrade failed", "error", err.Error())
		return
	}

	c := newClient(conn, s.sendTimeout)
	go c.writePump()
	s.readLoop(ctx, c)
}

// readLoop consumes handshake frames until the peer goes away, then tears
// the client's subscriptions down.
func (s *Server) readLoop(ctx context.Context, c *client) {
	defer func() {
		s.registry.Unsubscribe(c)
		_ = c.Close()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn(ctx, "websocket read error", "error", err.Error())
			}
			return
		}
		s.handleHandshake(ctx, c, string(frame))
	}
}

func (s *Server) handleHandshake(ctx context.Context, c *client, frame string) {
	h, err := parseHandshake(frame)
	if err != nil {
		s.sendError(c, err.Error())
		return
	}

	if err := s.registry.Subscribe(ctx, h.ChannelID, h.Username, h.Capability, c); err != nil {
		s.sendError(c, handshakeErrorMessage(err))
	}
}

// sendError pushes an {"error": ...} frame through the client's write
// pump. The socket stays open; the client may retry.
func (s *Server) sendError(c *client, msg string) {
	payload, err := json.Marshal(map[string]string{"error": msg})
	if err != nil {
		return
	}
	_ = c.Deliver(payload)
}
