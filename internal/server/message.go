package server

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/lox/triviaholdem/internal/game"
	"github.com/lox/triviaholdem/internal/quiz"
	"github.com/lox/triviaholdem/internal/room"
	"github.com/lox/triviaholdem/internal/statistics"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	RoomID    string          `json:"roomId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data any) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server Messages

// HelloData claims an identity for the connection. There is no authentication.
type HelloData struct {
	PlayerID string `json:"playerId"`
}

type CreateRoomData struct {
	Name         string `json:"name"`
	MaxPlayers   int    `json:"maxPlayers"`
	Private      bool   `json:"private,omitempty"`
	Password     string `json:"password,omitempty"`
	BuyIn        int    `json:"buyIn,omitempty"`
	SmallBlind   int    `json:"smallBlind,omitempty"`
	BigBlind     int    `json:"bigBlind,omitempty"`
	Topic        string `json:"topic,omitempty"`
	Difficulty   string `json:"difficulty,omitempty"`
	RequireReady *bool  `json:"requireReady,omitempty"`
}

// RoomRefData addresses one room
type RoomRefData struct {
	RoomID   string `json:"roomId"`
	Password string `json:"password,omitempty"`
}

type SetReadyData struct {
	RoomID string `json:"roomId"`
	Ready  bool   `json:"ready"`
}

// GameActionData is a loosely typed in-hand action. It is decoded into a
// room.Command before it reaches the engine.
type GameActionData struct {
	RoomID    string `json:"roomId"`
	Action    string `json:"action"`
	Amount    int    `json:"amount,omitempty"`
	CardIndex *int   `json:"cardIndex,omitempty"`
	Answer    string `json:"answer,omitempty"`
	Cards     []int  `json:"cards,omitempty"`
}

// Server → Client Messages

type WelcomeData struct {
	PlayerID string   `json:"playerId"`
	Rooms    []string `json:"rooms,omitempty"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type AckData struct {
	RoomID string         `json:"roomId,omitempty"`
	Room   *room.RoomInfo `json:"room,omitempty"`
	Reward *game.Reward   `json:"reward,omitempty"`
}

type RoomListData struct {
	Rooms []room.RoomInfo `json:"rooms"`
}

// LeaderboardData is served over HTTP at /leaderboard
type LeaderboardData struct {
	Players []statistics.Summary `json:"players"`
}

var (
	errMissingCardIndex = game.ErrUnknownAction.WithMessage("answer_question needs a cardIndex")
	errSelectTwoCards   = game.ErrInvalidSelection.WithMessage("select_cards needs exactly two card indices")
)

// toCommand decodes a game action for userID
func (d GameActionData) toCommand(userID string) (room.Command, error) {
	switch d.Action {
	case ActionFold:
		return room.Fold{UserID: userID}, nil
	case ActionCheck:
		return room.Check{UserID: userID}, nil
	case ActionCall:
		return room.Call{UserID: userID}, nil
	case ActionBet:
		return room.Bet{UserID: userID, Amount: d.Amount}, nil
	case ActionRaise:
		return room.Raise{UserID: userID, Amount: d.Amount}, nil
	case ActionAnswerQuestion:
		if d.CardIndex == nil {
			return nil, errMissingCardIndex
		}
		return room.AnswerQuestion{UserID: userID, CardIndex: *d.CardIndex, Answer: d.Answer}, nil
	case ActionSelectCards:
		if len(d.Cards) != 2 {
			return nil, errSelectTwoCards
		}
		return room.SelectCards{UserID: userID, First: d.Cards[0], Second: d.Cards[1]}, nil
	}
	return nil, game.ErrUnknownAction.WithMessage("unknown action %q", d.Action)
}

// toRequest builds a CreateRoomRequest hosted by userID
func (d CreateRoomData) toRequest(userID string) (room.CreateRoomRequest, error) {
	req := room.CreateRoomRequest{
		HostID:     userID,
		Name:       d.Name,
		MaxPlayers: d.MaxPlayers,
		Private:    d.Private,
		Password:   d.Password,
		Options: room.Options{
			BuyIn:      d.BuyIn,
			SmallBlind: d.SmallBlind,
			BigBlind:   d.BigBlind,
			Topic:      d.Topic,
		},
		RequireReady: d.RequireReady,
	}
	if d.Difficulty != "" {
		diff, err := quiz.ParseDifficulty(d.Difficulty)
		if err != nil {
			return room.CreateRoomRequest{}, room.ErrInvalidRoom.WithMessage("%v", err)
		}
		req.Difficulty = &diff
	}
	return req, nil
}

// errorData describes err for the client. Errors that are not game errors
// are reported as internal without leaking their text.
func errorData(err error) ErrorData {
	var gerr *game.Error
	if errors.As(err, &gerr) {
		return ErrorData{Code: gerr.Code, Kind: gerr.Kind.String(), Message: gerr.Message}
	}
	return ErrorData{Code: "internal", Kind: game.KindInternal.String(), Message: "internal error"}
}
