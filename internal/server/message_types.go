package server

import "github.com/lox/triviaholdem/internal/room"

// MessageType represents a WebSocket message type
type MessageType string

const (
	// Client to server messages
	MessageTypeHello      MessageType = "hello"
	MessageTypeListRooms  MessageType = "list_rooms"
	MessageTypeCreateRoom MessageType = "create_room"
	MessageTypeJoinRoom   MessageType = "join_room"
	MessageTypeLeaveRoom  MessageType = "leave_room"
	MessageTypeSetReady   MessageType = "set_ready"
	MessageTypeStartGame  MessageType = "start_game"
	MessageTypeNewHand    MessageType = "new_hand"
	MessageTypeGameAction MessageType = "game_action"
	MessageTypeGetRoom    MessageType = "get_room"

	// Server to client messages
	MessageTypeWelcome   MessageType = "welcome"
	MessageTypeError     MessageType = "error"
	MessageTypeAck       MessageType = "ack"
	MessageTypeRoomList  MessageType = "room_list"
	MessageTypeRoomState MessageType = "room_state"

	// Room events are forwarded with their own type
	MessageTypeRoomCreated  = MessageType(room.EventTypeRoomCreated)
	MessageTypeRoomUpdated  = MessageType(room.EventTypeRoomUpdated)
	MessageTypeRoomClosed   = MessageType(room.EventTypeRoomClosed)
	MessageTypeGameStarted  = MessageType(room.EventTypeGameStarted)
	MessageTypeGameUpdate   = MessageType(room.EventTypeGameUpdate)
	MessageTypeGameEnded    = MessageType(room.EventTypeGameEnded)
	MessageTypeAnswerResult = MessageType(room.EventTypeAnswerResult)
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}

// Game actions carried by game_action messages
const (
	ActionFold           = "fold"
	ActionCheck          = "check"
	ActionCall           = "call"
	ActionBet            = "bet"
	ActionRaise          = "raise"
	ActionAnswerQuestion = "answer_question"
	ActionSelectCards    = "select_cards"
)
