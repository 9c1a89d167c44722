package room

import (
	"time"

	"github.com/lox/triviaholdem/internal/deck"
	"github.com/lox/triviaholdem/internal/game"
)

// EventType identifies an outbound event
type EventType string

const (
	EventTypeRoomCreated  EventType = "room_created"
	EventTypeRoomUpdated  EventType = "room_updated"
	EventTypeRoomClosed   EventType = "room_closed"
	EventTypeGameStarted  EventType = "game_started"
	EventTypeGameUpdate   EventType = "game_update"
	EventTypeGameEnded    EventType = "game_ended"
	EventTypeAnswerResult EventType = "answer_result"
)

// String returns the string representation of the event type
func (et EventType) String() string {
	return string(et)
}

// Event is a state change emitted by a room actor
type Event struct {
	Type      EventType `json:"type"`
	RoomID    string    `json:"roomId"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher fans events out to players. A nil recipient list means every
// connected player. Publish must not block.
type Publisher interface {
	Publish(recipients []string, ev Event)
}

// PublisherFunc adapts a function to Publisher
type PublisherFunc func(recipients []string, ev Event)

// Publish calls f
func (f PublisherFunc) Publish(recipients []string, ev Event) { f(recipients, ev) }

// MultiPublisher delivers every event to each of publishers in order
func MultiPublisher(publishers ...Publisher) Publisher {
	return PublisherFunc(func(recipients []string, ev Event) {
		for _, p := range publishers {
			p.Publish(recipients, ev)
		}
	})
}

type discardPublisher struct{}

func (discardPublisher) Publish([]string, Event) {}

// RoomUpdate is the payload of room_created, room_updated and room_closed
type RoomUpdate struct {
	Room   RoomInfo `json:"room"`
	Reason string   `json:"reason,omitempty"`
	UserID string   `json:"userId,omitempty"`
}

// GameStarted is sent privately to each seated player
type GameStarted struct {
	Game GameView `json:"game"`
}

// GameUpdate describes one change during a hand
type GameUpdate struct {
	Action     string      `json:"action"`
	Player     string      `json:"player"`
	Amount     int         `json:"amount,omitempty"`
	Timeout    bool        `json:"timeout,omitempty"`
	CardIndex  *int        `json:"cardIndex,omitempty"`
	Card       *deck.Card  `json:"card,omitempty"`
	NextPlayer string      `json:"nextPlayer,omitempty"`
	Pot        int         `json:"pot"`
	Street     game.Street `json:"street"`
	Community  []deck.Card `json:"community"`
	Game       GameView    `json:"game"`
}

// GameEnded carries the final result of a hand
type GameEnded struct {
	Result   game.Result `json:"result"`
	BigBlind int         `json:"bigBlind"`
}

// AnswerResult is sent only to the player who answered
type AnswerResult struct {
	CardIndex int         `json:"cardIndex"`
	Reward    game.Reward `json:"reward"`
}
