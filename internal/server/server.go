// Package server exposes the room registry over WebSockets.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/triviaholdem/internal/room"
	"github.com/lox/triviaholdem/internal/statistics"
)

const (
	defaultRequestTimeout = 10 * time.Second
	shutdownTimeout       = 5 * time.Second
)

// Server represents the WebSocket server
type Server struct {
	addr           string
	upgrader       websocket.Upgrader
	registry       *room.Registry
	hub            *Hub
	logger         *log.Logger
	requestTimeout time.Duration
	leaderboard    *statistics.Tracker
}

// NewServer creates a server that delivers registry events through hub. The
// registry must publish to hub, directly or through room.MultiPublisher.
func NewServer(addr string, logger *log.Logger, registry *room.Registry, hub *Hub) *Server {
	return &Server{
		addr: addr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		registry:       registry,
		hub:            hub,
		logger:         logger.WithPrefix("server"),
		requestTimeout: defaultRequestTimeout,
	}
}

// SetLeaderboard serves t at /leaderboard. t must also be one of the
// registry's publishers to see results.
func (s *Server) SetLeaderboard(t *statistics.Tracker) {
	s.leaderboard = t
}

// Handler returns the HTTP routes served by s
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/rooms", s.handleRooms)
	if s.leaderboard != nil {
		mux.HandleFunc("/leaderboard", s.handleLeaderboard)
	}
	return mux
}

// Run serves until ctx is cancelled, then closes every connection
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting WebSocket server", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.hub.closeAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// handleWebSocket handles WebSocket upgrade requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, s.logger, s)
	s.hub.register(client)
	client.Start()
	s.logger.Info("Client connected", "remote", r.RemoteAddr)

	go func() {
		<-client.Done()
		s.disconnected(client)
	}()
}

// disconnected marks the player disconnected in their rooms once their last
// connection goes away
func (s *Server) disconnected(c *Connection) {
	last := s.hub.unregister(c)
	playerID := c.GetPlayer()
	s.logger.Info("Client disconnected", "player", playerID)
	if !last {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.requestTimeout)
	defer cancel()
	if err := s.registry.Disconnect(ctx, playerID); err != nil {
		s.logger.Warn("Failed to mark player disconnected", "player", playerID, "error", err)
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

// handleRooms lists the public summaries of every room
func (s *Server) handleRooms(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, RoomListData{Rooms: s.registry.ListRooms()})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, LeaderboardData{Players: s.leaderboard.Leaderboard()})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", "path", r.URL.Path, "error", err)
	}
}
