// Package client is a Go client for the Trivia Hold'em WebSocket server.
// Requests block until the server answers them; room events are delivered to
// handlers in the order they arrive.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/triviaholdem/internal/game"
	"github.com/lox/triviaholdem/internal/room"
	"github.com/lox/triviaholdem/internal/server"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 54 * time.Second
	bufferSize = 256
)

// ErrClosed is returned by requests made after the connection went away
var ErrClosed = errors.New("client: connection closed")

// EventHandler is a function that handles incoming events
type EventHandler func(*server.Message)

// Client represents a WebSocket client for the trivia server
type Client struct {
	serverURL string
	conn      *websocket.Conn
	send      chan *server.Message
	receive   chan *server.Message
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	seq       atomic.Uint64

	mu            sync.RWMutex
	playerID      string
	pending       map[string]chan *server.Message
	waiters       map[server.MessageType][]chan *server.Message
	eventHandlers map[server.MessageType][]EventHandler
}

// NewClient creates a client for the server at serverURL (http, https, ws or wss)
func NewClient(serverURL string, logger *log.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		serverURL:     serverURL,
		send:          make(chan *server.Message, bufferSize),
		receive:       make(chan *server.Message, bufferSize),
		logger:        logger.WithPrefix("client"),
		ctx:           ctx,
		cancel:        cancel,
		pending:       make(map[string]chan *server.Message),
		waiters:       make(map[server.MessageType][]chan *server.Message),
		eventHandlers: make(map[server.MessageType][]EventHandler),
	}
}

// Connect establishes a WebSocket connection to the server
func (c *Client) Connect(ctx context.Context) error {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/ws"

	c.logger.Info("Connecting to server", "url", u.String())
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	c.conn = conn

	go c.readPump()
	go c.writePump()
	go c.eventProcessor()
	return nil
}

// Done is closed once the connection is gone
func (c *Client) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Close closes the WebSocket connection
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
	return nil
}

// PlayerID returns the identity claimed with Hello
func (c *Client) PlayerID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

// AddEventHandler adds an event handler for a specific message type
func (c *Client) AddEventHandler(messageType server.MessageType, handler EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eventHandlers[messageType] = append(c.eventHandlers[messageType], handler)
}

// readPump handles incoming messages from the server
func (c *Client) readPump() {
	defer func() { _ = c.Close() }()

	for {
		var msg server.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}
		c.logger.Debug("Received message", "type", msg.Type, "request", msg.RequestID)

		if msg.RequestID != "" {
			c.mu.Lock()
			ch, ok := c.pending[msg.RequestID]
			delete(c.pending, msg.RequestID)
			c.mu.Unlock()
			if ok {
				ch <- &msg
				continue
			}
		}

		select {
		case c.receive <- &msg:
		case <-c.ctx.Done():
			return
		}
	}
}

// writePump handles outgoing messages to the server
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				_ = c.Close()
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.Close()
				return
			}

		case <-c.ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// eventProcessor runs handlers for unsolicited messages, one at a time
func (c *Client) eventProcessor() {
	for {
		select {
		case msg := <-c.receive:
			c.mu.Lock()
			handlers := c.eventHandlers[msg.Type]
			waiters := c.waiters[msg.Type]
			delete(c.waiters, msg.Type)
			c.mu.Unlock()
			for _, ch := range waiters {
				ch <- msg
			}
			for _, handler := range handlers {
				handler(msg)
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// request sends a message and waits for the reply carrying its request ID.
// Error replies are returned as *game.Error so they match the server's
// sentinels under errors.Is.
func (c *Client) request(ctx context.Context, typ server.MessageType, data any) (*server.Message, error) {
	msg, err := server.NewMessage(typ, data)
	if err != nil {
		return nil, err
	}
	msg.RequestID = strconv.FormatUint(c.seq.Add(1), 10)

	reply := make(chan *server.Message, 1)
	c.mu.Lock()
	c.pending[msg.RequestID] = reply
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, msg.RequestID)
		c.mu.Unlock()
	}()

	select {
	case c.send <- msg:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.ctx.Done():
		return nil, ErrClosed
	}

	select {
	case resp := <-reply:
		if resp.Type == server.MessageTypeError {
			var e server.ErrorData
			if err := json.Unmarshal(resp.Data, &e); err != nil {
				return nil, fmt.Errorf("decode error reply: %w", err)
			}
			return nil, game.NewError(parseKind(e.Kind), e.Code, e.Message)
		}
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.ctx.Done():
		return nil, ErrClosed
	}
}

func parseKind(s string) game.Kind {
	for k := game.KindNotFound; k <= game.KindInternal; k++ {
		if k.String() == s {
			return k
		}
	}
	return game.KindUnknown
}

func decodeReply[T any](msg *server.Message, want server.MessageType) (T, error) {
	var out T
	if msg.Type != want {
		return out, fmt.Errorf("expected %s reply, got %s", want, msg.Type)
	}
	if err := json.Unmarshal(msg.Data, &out); err != nil {
		return out, fmt.Errorf("decode %s: %w", want, err)
	}
	return out, nil
}

// ack sends a room command and returns the room summary from its ack
func (c *Client) ack(ctx context.Context, typ server.MessageType, data any) (server.AckData, error) {
	msg, err := c.request(ctx, typ, data)
	if err != nil {
		return server.AckData{}, err
	}
	return decodeReply[server.AckData](msg, server.MessageTypeAck)
}

func roomOf(a server.AckData, err error) (room.RoomInfo, error) {
	if err != nil {
		return room.RoomInfo{}, err
	}
	if a.Room == nil {
		return room.RoomInfo{ID: a.RoomID}, nil
	}
	return *a.Room, nil
}

// Hello claims playerID for this connection. Rooms the player is already in
// are returned, and their state follows as room_state events.
func (c *Client) Hello(ctx context.Context, playerID string) (server.WelcomeData, error) {
	msg, err := c.request(ctx, server.MessageTypeHello, server.HelloData{PlayerID: playerID})
	if err != nil {
		return server.WelcomeData{}, err
	}
	welcome, err := decodeReply[server.WelcomeData](msg, server.MessageTypeWelcome)
	if err != nil {
		return server.WelcomeData{}, err
	}
	c.mu.Lock()
	c.playerID = welcome.PlayerID
	c.mu.Unlock()
	return welcome, nil
}

// ListRooms returns every room on the server
func (c *Client) ListRooms(ctx context.Context) ([]room.RoomInfo, error) {
	msg, err := c.request(ctx, server.MessageTypeListRooms, struct{}{})
	if err != nil {
		return nil, err
	}
	list, err := decodeReply[server.RoomListData](msg, server.MessageTypeRoomList)
	return list.Rooms, err
}

// CreateRoom creates a room hosted by this player
func (c *Client) CreateRoom(ctx context.Context, req server.CreateRoomData) (room.RoomInfo, error) {
	return roomOf(c.ack(ctx, server.MessageTypeCreateRoom, req))
}

// JoinRoom joins a room. password is only checked for private rooms.
func (c *Client) JoinRoom(ctx context.Context, roomID, password string) (room.RoomInfo, error) {
	return roomOf(c.ack(ctx, server.MessageTypeJoinRoom, server.RoomRefData{RoomID: roomID, Password: password}))
}

func (c *Client) LeaveRoom(ctx context.Context, roomID string) error {
	_, err := c.ack(ctx, server.MessageTypeLeaveRoom, server.RoomRefData{RoomID: roomID})
	return err
}

func (c *Client) SetReady(ctx context.Context, roomID string, ready bool) (room.RoomInfo, error) {
	return roomOf(c.ack(ctx, server.MessageTypeSetReady, server.SetReadyData{RoomID: roomID, Ready: ready}))
}

// StartGame deals a hand. Only the host may start.
func (c *Client) StartGame(ctx context.Context, roomID string) (room.RoomInfo, error) {
	return roomOf(c.ack(ctx, server.MessageTypeStartGame, server.RoomRefData{RoomID: roomID}))
}

// NewHand returns an ended room to waiting
func (c *Client) NewHand(ctx context.Context, roomID string) (room.RoomInfo, error) {
	return roomOf(c.ack(ctx, server.MessageTypeNewHand, server.RoomRefData{RoomID: roomID}))
}

// Room returns the room as this player sees it
func (c *Client) Room(ctx context.Context, roomID string) (room.RoomView, error) {
	msg, err := c.request(ctx, server.MessageTypeGetRoom, server.RoomRefData{RoomID: roomID})
	if err != nil {
		return room.RoomView{}, err
	}
	return decodeReply[room.RoomView](msg, server.MessageTypeRoomState)
}

// Act sends a betting action: fold, check, call, bet or raise
func (c *Client) Act(ctx context.Context, roomID, action string, amount int) error {
	_, err := c.ack(ctx, server.MessageTypeGameAction, server.GameActionData{RoomID: roomID, Action: action, Amount: amount})
	return err
}

// AnswerQuestion answers the question on one of this player's special cards
func (c *Client) AnswerQuestion(ctx context.Context, roomID string, cardIndex int, answer string) (game.Reward, error) {
	a, err := c.ack(ctx, server.MessageTypeGameAction, server.GameActionData{
		RoomID:    roomID,
		Action:    server.ActionAnswerQuestion,
		CardIndex: &cardIndex,
		Answer:    answer,
	})
	if err != nil {
		return game.Reward{}, err
	}
	if a.Reward == nil {
		return game.Reward{}, errors.New("answer acknowledged without a reward")
	}
	return *a.Reward, nil
}

// SelectCards picks the two cards this player plays at showdown, by index
// into hole cards followed by special cards
func (c *Client) SelectCards(ctx context.Context, roomID string, first, second int) error {
	_, err := c.ack(ctx, server.MessageTypeGameAction, server.GameActionData{
		RoomID: roomID,
		Action: server.ActionSelectCards,
		Cards:  []int{first, second},
	})
	return err
}

// Expect registers interest in the next unsolicited message of messageType
// and returns a function that waits for it. Register before sending the
// request that triggers the message.
func (c *Client) Expect(messageType server.MessageType) func(context.Context) (*server.Message, error) {
	ch := make(chan *server.Message, 1)
	c.mu.Lock()
	c.waiters[messageType] = append(c.waiters[messageType], ch)
	c.mu.Unlock()

	return func(ctx context.Context) (*server.Message, error) {
		select {
		case msg := <-ch:
			return msg, nil
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for %s: %w", messageType, ctx.Err())
		case <-c.ctx.Done():
			return nil, ErrClosed
		}
	}
}
