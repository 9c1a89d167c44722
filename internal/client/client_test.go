package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/triviaholdem/internal/game"
	"github.com/lox/triviaholdem/internal/quiz"
	"github.com/lox/triviaholdem/internal/randutil"
	"github.com/lox/triviaholdem/internal/room"
	"github.com/lox/triviaholdem/internal/server"
)

func startServer(t *testing.T) string {
	t.Helper()
	logger := log.NewWithOptions(io.Discard, log.Options{})

	var qs []quiz.Question
	for _, d := range []quiz.Difficulty{quiz.Easy, quiz.Medium, quiz.Hard, quiz.Extreme} {
		for i := 0; i < 12; i++ {
			qs = append(qs, quiz.Question{ID: fmt.Sprintf("%s-%d", d, i), Text: "Capital of France?", Answer: "Paris", Difficulty: d})
		}
	}
	bank, err := quiz.NewBank(randutil.New(3), qs)
	require.NoError(t, err)

	cfg := room.DefaultConfig()
	cfg.TurnTimeout = 0
	cfg.CheckpointInterval = 0

	hub := server.NewHub(logger)
	reg, err := room.NewRegistry(logger, cfg,
		room.WithPublisher(hub),
		room.WithQuestionSource(bank),
		room.WithRand(randutil.New(9)),
	)
	require.NoError(t, err)
	t.Cleanup(reg.Close)

	ts := httptest.NewServer(server.NewServer("127.0.0.1:0", logger, reg, hub).Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func connect(t *testing.T, ctx context.Context, url, playerID string) *Client {
	t.Helper()
	c := NewClient(url, log.NewWithOptions(io.Discard, log.Options{}))
	require.NoError(t, c.Connect(ctx))
	t.Cleanup(func() { _ = c.Close() })
	_, err := c.Hello(ctx, playerID)
	require.NoError(t, err)
	assert.Equal(t, playerID, c.PlayerID())
	return c
}

func TestClientPlaysAHand(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	url := startServer(t)

	alice := connect(t, ctx, url, "alice")
	bob := connect(t, ctx, url, "bob")

	info, err := alice.CreateRoom(ctx, server.CreateRoomData{Name: "table", MaxPlayers: 2})
	require.NoError(t, err)
	assert.Equal(t, "alice", info.HostID)

	rooms, err := bob.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, info.ID, rooms[0].ID)

	_, err = bob.JoinRoom(ctx, "room_missing", "")
	require.ErrorIs(t, err, room.ErrRoomNotFound)
	assert.Equal(t, game.KindNotFound, game.KindOf(err))

	joined, err := bob.JoinRoom(ctx, info.ID, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, joined.Members)

	_, err = bob.StartGame(ctx, info.ID)
	require.ErrorIs(t, err, room.ErrNotHost)

	var updates atomic.Int32
	bob.AddEventHandler(server.MessageTypeGameUpdate, func(*server.Message) { updates.Add(1) })
	started := bob.Expect(server.MessageTypeGameStarted)
	ended := bob.Expect(server.MessageTypeGameEnded)

	_, err = alice.StartGame(ctx, info.ID)
	require.NoError(t, err)

	msg, err := started(ctx)
	require.NoError(t, err)
	var gs room.GameStarted
	require.NoError(t, json.Unmarshal(msg.Data, &gs))
	assert.Equal(t, "bob", gs.Game.Viewer)
	require.NotEmpty(t, gs.Game.CurrentPlayer)

	players := map[string]*Client{"alice": alice, "bob": bob}
	current := players[gs.Game.CurrentPlayer]
	other := alice
	if current == alice {
		other = bob
	}

	require.ErrorIs(t, other.Act(ctx, info.ID, server.ActionCheck, 0), game.ErrNotYourTurn)

	reward, err := current.AnswerQuestion(ctx, info.ID, 0, "paris")
	require.NoError(t, err)
	assert.True(t, reward.Correct)
	_, err = current.AnswerQuestion(ctx, info.ID, 0, "paris")
	require.ErrorIs(t, err, game.ErrAlreadyRevealed)

	view, err := current.Room(ctx, info.ID)
	require.NoError(t, err)
	require.NotNil(t, view.Game)
	assert.Equal(t, 15, view.Game.Pot)

	require.NoError(t, current.Act(ctx, info.ID, server.ActionFold, 0))

	msg, err = ended(ctx)
	require.NoError(t, err)
	var ge room.GameEnded
	require.NoError(t, json.Unmarshal(msg.Data, &ge))
	assert.Equal(t, gs.Game.GameID, ge.Result.GameID)
	assert.GreaterOrEqual(t, updates.Load(), int32(1))

	after, err := alice.NewHand(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, room.StatusWaiting, after.Status)
}

func TestClientClosed(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	url := startServer(t)

	c := connect(t, ctx, url, "alice")
	require.NoError(t, c.Close())
	<-c.Done()

	_, err := c.ListRooms(ctx)
	require.ErrorIs(t, err, ErrClosed)
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	for _, k := range []game.Kind{game.KindNotFound, game.KindPreconditionFailed, game.KindForbidden, game.KindConflict, game.KindInternal} {
		assert.Equal(t, k, parseKind(k.String()))
	}
	assert.Equal(t, game.KindUnknown, parseKind("mystery"))
}
