package server

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/triviaholdem/internal/game"
	"github.com/lox/triviaholdem/internal/quiz"
	"github.com/lox/triviaholdem/internal/room"
)

func TestGameActionToCommand(t *testing.T) {
	t.Parallel()

	idx := 3
	tests := []struct {
		name    string
		data    GameActionData
		want    room.Command
		wantErr error
	}{
		{"fold", GameActionData{Action: "fold"}, room.Fold{UserID: "alice"}, nil},
		{"check", GameActionData{Action: "check"}, room.Check{UserID: "alice"}, nil},
		{"call", GameActionData{Action: "call"}, room.Call{UserID: "alice"}, nil},
		{"bet", GameActionData{Action: "bet", Amount: 40}, room.Bet{UserID: "alice", Amount: 40}, nil},
		{"raise", GameActionData{Action: "raise", Amount: 80}, room.Raise{UserID: "alice", Amount: 80}, nil},
		{
			"answer",
			GameActionData{Action: "answer_question", CardIndex: &idx, Answer: "Paris"},
			room.AnswerQuestion{UserID: "alice", CardIndex: 3, Answer: "Paris"},
			nil,
		},
		{"answer without index", GameActionData{Action: "answer_question"}, nil, game.ErrUnknownAction},
		{
			"select",
			GameActionData{Action: "select_cards", Cards: []int{0, 4}},
			room.SelectCards{UserID: "alice", First: 0, Second: 4},
			nil,
		},
		{"select one card", GameActionData{Action: "select_cards", Cards: []int{1}}, nil, game.ErrInvalidSelection},
		{"unknown", GameActionData{Action: "shove"}, nil, game.ErrUnknownAction},
		{"empty", GameActionData{}, nil, game.ErrUnknownAction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := tt.data.toCommand("alice")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreateRoomToRequest(t *testing.T) {
	t.Parallel()

	req, err := CreateRoomData{
		Name:       "friday",
		MaxPlayers: 4,
		Private:    true,
		Password:   "secret",
		BigBlind:   20,
		Difficulty: "Hard",
	}.toRequest("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", req.HostID)
	assert.Equal(t, "friday", req.Name)
	assert.Equal(t, 4, req.MaxPlayers)
	assert.True(t, req.Private)
	assert.Equal(t, "secret", req.Password)
	assert.Equal(t, 20, req.Options.BigBlind)
	require.NotNil(t, req.Difficulty)
	assert.Equal(t, quiz.Hard, *req.Difficulty)
	assert.Nil(t, req.RequireReady)

	off := false
	req, err = CreateRoomData{Name: "x", MaxPlayers: 2, Difficulty: "easy", RequireReady: &off}.toRequest("alice")
	require.NoError(t, err)
	require.NotNil(t, req.Difficulty)
	assert.Equal(t, quiz.Easy, *req.Difficulty)
	require.NotNil(t, req.RequireReady)
	assert.False(t, *req.RequireReady)

	_, err = CreateRoomData{Name: "x", MaxPlayers: 2, Difficulty: "impossible"}.toRequest("alice")
	require.ErrorIs(t, err, room.ErrInvalidRoom)
}

func TestErrorData(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want ErrorData
	}{
		{
			"game error",
			game.ErrNotYourTurn,
			ErrorData{Code: "not_your_turn", Kind: "precondition_failed", Message: "it is not your turn"},
		},
		{
			"wrapped room error",
			fmt.Errorf("join: %w", room.ErrRoomFull),
			ErrorData{Code: "room_full", Kind: "precondition_failed", Message: "room is full"},
		},
		{
			"custom message",
			room.ErrRoomNotFound.WithMessage("room %s not found", "r1"),
			ErrorData{Code: "room_not_found", Kind: "not_found", Message: "room r1 not found"},
		},
		{
			"plain error is hidden",
			errors.New("disk on fire"),
			ErrorData{Code: "internal", Kind: "internal", Message: "internal error"},
		},
		{
			"context error is hidden",
			context.DeadlineExceeded,
			ErrorData{Code: "internal", Kind: "internal", Message: "internal error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, errorData(tt.err))
		})
	}
}

func TestNewMessage(t *testing.T) {
	t.Parallel()

	msg, err := NewMessage(MessageTypeWelcome, WelcomeData{PlayerID: "alice"})
	require.NoError(t, err)
	assert.Equal(t, MessageTypeWelcome, msg.Type)
	assert.JSONEq(t, `{"playerId":"alice"}`, string(msg.Data))
	assert.False(t, msg.Timestamp.IsZero())
	assert.Equal(t, "welcome", msg.Type.String())
}
