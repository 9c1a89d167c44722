package server

import (
	"sync"

	"github.com/charmbracelet/log"

	"github.com/lox/triviaholdem/internal/room"
)

// Hub tracks live connections and delivers room events to them. It is the
// room.Publisher the registry is built with.
type Hub struct {
	logger *log.Logger

	mu          sync.RWMutex
	connections map[*Connection]bool
}

// NewHub creates an empty hub
func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		logger:      logger.WithPrefix("hub"),
		connections: make(map[*Connection]bool),
	}
}

var _ room.Publisher = (*Hub)(nil)

func (h *Hub) register(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[c] = true
}

// unregister removes c and reports whether its player has no other connection
func (h *Hub) unregister(c *Connection) (lastForPlayer bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.connections, c)
	playerID := c.GetPlayer()
	if playerID == "" {
		return false
	}
	for other := range h.connections {
		if other.GetPlayer() == playerID {
			return false
		}
	}
	return true
}

// Publish sends ev to the connections of recipients, or to every identified
// connection when recipients is nil. Slow connections are dropped rather than
// blocking the room.
func (h *Hub) Publish(recipients []string, ev room.Event) {
	msg, err := NewMessage(MessageType(ev.Type), ev.Data)
	if err != nil {
		h.logger.Error("Failed to encode event", "type", ev.Type, "room", ev.RoomID, "error", err)
		return
	}
	msg.RoomID = ev.RoomID
	msg.Timestamp = ev.Timestamp

	var to map[string]bool
	if recipients != nil {
		to = make(map[string]bool, len(recipients))
		for _, id := range recipients {
			to[id] = true
		}
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	count := 0
	for conn := range h.connections {
		playerID := conn.GetPlayer()
		if playerID == "" || (to != nil && !to[playerID]) {
			continue
		}
		if err := conn.SendMessage(msg); err != nil {
			h.logger.Warn("Failed to deliver event", "player", playerID, "type", ev.Type, "error", err)
			continue
		}
		count++
	}
	h.logger.Debug("Published event", "type", ev.Type, "room", ev.RoomID, "recipients", count)
}

// ConnectedPlayers returns the identified players with a live connection
func (h *Hub) ConnectedPlayers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := make(map[string]bool)
	var players []string
	for conn := range h.connections {
		if id := conn.GetPlayer(); id != "" && !seen[id] {
			seen[id] = true
			players = append(players, id)
		}
	}
	return players
}

func (h *Hub) closeAll() {
	h.mu.RLock()
	conns := make([]*Connection, 0, len(h.connections))
	for c := range h.connections {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	for _, c := range conns {
		_ = c.Close()
	}
}
