package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/triviaholdem/internal/game"
	"github.com/lox/triviaholdem/internal/room"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192

	sendBufferSize = 256
)

var (
	ErrConnectionClosed = websocket.ErrCloseSent

	errNotIdentified = game.NewError(game.KindForbidden, "not_identified", "send hello first")
	errBadMessage    = game.NewError(game.KindPreconditionFailed, "invalid_message", "malformed message")
	errUnknownType   = game.NewError(game.KindPreconditionFailed, "unknown_message_type", "unknown message type")
)

// Connection represents a WebSocket connection to a player
type Connection struct {
	conn      *websocket.Conn
	send      chan *Message
	playerID  string
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	closeOnce sync.Once
	server    *Server
}

// NewConnection creates a new connection wrapper
func NewConnection(conn *websocket.Conn, logger *log.Logger, server *Server) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		conn:   conn,
		send:   make(chan *Message, sendBufferSize),
		logger: logger.WithPrefix("conn"),
		ctx:    ctx,
		cancel: cancel,
		server: server,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Done is closed once the connection is closed
func (c *Connection) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.cancel()
		close(c.send)
		c.mu.Unlock()
		err = c.conn.Close()
	})
	return err
}

// SendMessage queues msg for the client without blocking. A connection
// whose buffer is full is closed.
func (c *Connection) SendMessage(msg *Message) error {
	c.mu.RLock()
	if c.ctx.Err() != nil {
		c.mu.RUnlock()
		return ErrConnectionClosed
	}
	select {
	case c.send <- msg:
		c.mu.RUnlock()
		return nil
	default:
		c.mu.RUnlock()
		c.logger.Warn("Connection send buffer full, closing connection", "player", c.GetPlayer())
		_ = c.Close()
		return ErrConnectionClosed
	}
}

// SetPlayer associates this connection with a player
func (c *Connection) SetPlayer(playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = playerID
}

// GetPlayer returns the associated player ID
func (c *Connection) GetPlayer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}
		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes one message from the client. Failures are reported
// to this connection only.
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type, "player", c.GetPlayer())

	if msg.Type == MessageTypeHello {
		var data HelloData
		if err := decode(msg, &data); err != nil {
			c.sendError(msg.RequestID, err)
			return
		}
		c.handleHello(msg.RequestID, data)
		return
	}

	playerID := c.GetPlayer()
	if playerID == "" {
		c.sendError(msg.RequestID, errNotIdentified)
		return
	}

	ctx, cancel := context.WithTimeout(c.ctx, c.server.requestTimeout)
	defer cancel()

	var err error
	switch msg.Type {
	case MessageTypeListRooms:
		c.reply(msg.RequestID, MessageTypeRoomList, RoomListData{Rooms: c.server.registry.ListRooms()})

	case MessageTypeCreateRoom:
		var data CreateRoomData
		if err = decode(msg, &data); err == nil {
			err = c.handleCreateRoom(ctx, msg.RequestID, playerID, data)
		}

	case MessageTypeGetRoom:
		var data RoomRefData
		if err = decode(msg, &data); err == nil {
			var view room.RoomView
			if view, err = c.server.registry.View(ctx, data.RoomID, playerID); err == nil {
				c.reply(msg.RequestID, MessageTypeRoomState, view)
			}
		}

	case MessageTypeJoinRoom:
		var data RoomRefData
		if err = decode(msg, &data); err == nil {
			err = c.submit(ctx, msg.RequestID, data.RoomID, room.JoinRoom{UserID: playerID, Password: data.Password})
		}

	case MessageTypeLeaveRoom:
		var data RoomRefData
		if err = decode(msg, &data); err == nil {
			err = c.submit(ctx, msg.RequestID, data.RoomID, room.LeaveRoom{UserID: playerID})
		}

	case MessageTypeSetReady:
		var data SetReadyData
		if err = decode(msg, &data); err == nil {
			err = c.submit(ctx, msg.RequestID, data.RoomID, room.SetReady{UserID: playerID, Ready: data.Ready})
		}

	case MessageTypeStartGame:
		var data RoomRefData
		if err = decode(msg, &data); err == nil {
			err = c.submit(ctx, msg.RequestID, data.RoomID, room.StartGame{UserID: playerID})
		}

	case MessageTypeNewHand:
		var data RoomRefData
		if err = decode(msg, &data); err == nil {
			err = c.submit(ctx, msg.RequestID, data.RoomID, room.NewHand{UserID: playerID})
		}

	case MessageTypeGameAction:
		var data GameActionData
		if err = decode(msg, &data); err == nil {
			err = c.handleGameAction(ctx, msg.RequestID, playerID, data)
		}

	default:
		err = errUnknownType.WithMessage("unknown message type %q", msg.Type)
	}

	if err != nil {
		c.sendError(msg.RequestID, err)
	}
}

func decode(msg *Message, v any) error {
	if len(msg.Data) == 0 {
		return errBadMessage.WithMessage("%s needs a data object", msg.Type)
	}
	if err := json.Unmarshal(msg.Data, v); err != nil {
		return errBadMessage.WithMessage("failed to parse %s data", msg.Type)
	}
	return nil
}

func (c *Connection) handleHello(requestID string, data HelloData) {
	if data.PlayerID == "" {
		c.sendError(requestID, errBadMessage.WithMessage("playerId is required"))
		return
	}
	if current := c.GetPlayer(); current != "" && current != data.PlayerID {
		c.sendError(requestID, game.NewError(game.KindConflict, "already_identified", "this connection already belongs to "+current))
		return
	}
	c.SetPlayer(data.PlayerID)
	c.logger = c.logger.With("player", data.PlayerID)
	c.logger.Info("Player identified")

	ctx, cancel := context.WithTimeout(c.ctx, c.server.requestTimeout)
	defer cancel()
	rooms, err := c.server.registry.Reconnect(ctx, data.PlayerID)
	if err != nil {
		c.logger.Warn("Reconnect failed", "error", err)
	}
	c.reply(requestID, MessageTypeWelcome, WelcomeData{PlayerID: data.PlayerID, Rooms: rooms})
	for _, id := range rooms {
		if view, err := c.server.registry.View(ctx, id, data.PlayerID); err == nil {
			c.reply("", MessageTypeRoomState, view)
		}
	}
}

func (c *Connection) handleCreateRoom(ctx context.Context, requestID, playerID string, data CreateRoomData) error {
	req, err := data.toRequest(playerID)
	if err != nil {
		return err
	}
	info, err := c.server.registry.CreateRoom(ctx, req)
	if err != nil {
		return err
	}
	c.reply(requestID, MessageTypeAck, AckData{RoomID: info.ID, Room: &info})
	return nil
}

func (c *Connection) handleGameAction(ctx context.Context, requestID, playerID string, data GameActionData) error {
	cmd, err := data.toCommand(playerID)
	if err != nil {
		return err
	}
	if answer, ok := cmd.(room.AnswerQuestion); ok {
		reward, err := c.server.registry.AnswerQuestion(ctx, data.RoomID, playerID, answer.CardIndex, answer.Answer)
		if err != nil {
			return err
		}
		c.reply(requestID, MessageTypeAck, AckData{RoomID: data.RoomID, Reward: &reward})
		return nil
	}
	return c.submit(ctx, requestID, data.RoomID, cmd)
}

// submit applies cmd and acknowledges it with the room's new summary
func (c *Connection) submit(ctx context.Context, requestID, roomID string, cmd room.Command) error {
	if err := c.server.registry.Submit(ctx, roomID, cmd); err != nil {
		return err
	}
	ack := AckData{RoomID: roomID}
	if info, err := c.server.registry.Room(roomID); err == nil {
		ack.Room = &info
	}
	c.reply(requestID, MessageTypeAck, ack)
	return nil
}

func (c *Connection) reply(requestID string, typ MessageType, data any) {
	msg, err := NewMessage(typ, data)
	if err != nil {
		c.logger.Error("Failed to create message", "type", typ, "error", err)
		return
	}
	msg.RequestID = requestID
	_ = c.SendMessage(msg)
}

// sendError sends an error message to the client
func (c *Connection) sendError(requestID string, err error) {
	data := errorData(err)
	if data.Kind == game.KindInternal.String() && !errors.Is(err, context.Canceled) {
		c.logger.Warn("Request failed", "error", err)
	}
	c.reply(requestID, MessageTypeError, data)
}
