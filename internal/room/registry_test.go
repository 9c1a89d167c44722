package room

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/triviaholdem/internal/game"
	"github.com/lox/triviaholdem/internal/quiz"
	"github.com/lox/triviaholdem/internal/randutil"
)

type published struct {
	to []string
	ev Event
}

// recorder is a Publisher that keeps every event
type recorder struct {
	mu     sync.Mutex
	events []published
}

func (r *recorder) Publish(to []string, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, published{to: slices.Clone(to), ev: ev})
}

func (r *recorder) ofType(typ EventType) []published {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []published
	for _, p := range r.events {
		if p.ev.Type == typ {
			out = append(out, p)
		}
	}
	return out
}

// memStore is an in-package Store; the real implementations import this package.
type memStore struct {
	mu      sync.Mutex
	rooms   map[string]Snapshot
	results []game.Result
	coins   map[string]int
}

func newMemStore() *memStore {
	return &memStore{rooms: make(map[string]Snapshot), coins: make(map[string]int)}
}

func (s *memStore) RecordGameResult(_ context.Context, _, _ string, result game.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
	return nil
}

func (s *memStore) AdjustUserCoins(_ context.Context, userID string, delta int, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coins[userID] += delta
	return nil
}

func (s *memStore) SaveRoom(_ context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[snap.Room.ID] = snap
	return nil
}

func (s *memStore) LoadRooms(context.Context) ([]Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Snapshot, 0, len(s.rooms))
	for _, snap := range s.rooms {
		out = append(out, snap)
	}
	return out, nil
}

func (s *memStore) DeleteRoom(_ context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, roomID)
	return nil
}

func (s *memStore) resultCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

// failingSource serves questions but cannot check answers
type failingSource struct {
	quiz.Source
}

func (failingSource) CheckAnswer(context.Context, quiz.Question, string) (bool, error) {
	return false, errors.New("question service down")
}

func testBank(t *testing.T) *quiz.Bank {
	t.Helper()
	var qs []quiz.Question
	for _, d := range []quiz.Difficulty{quiz.Easy, quiz.Medium, quiz.Hard, quiz.Extreme} {
		for i := 0; i < 12; i++ {
			qs = append(qs, quiz.Question{
				ID:         fmt.Sprintf("%s-%d", d, i),
				Text:       "Say yes",
				Answer:     "yes",
				Difficulty: d,
			})
		}
	}
	bank, err := quiz.NewBank(randutil.New(11), qs)
	require.NoError(t, err)
	return bank
}

type testEnv struct {
	reg   *Registry
	pub   *recorder
	store *memStore
	clock *quartz.Mock
}

func newTestEnv(t *testing.T, cfg Config, opts ...Option) *testEnv {
	t.Helper()
	env := &testEnv{pub: &recorder{}, store: newMemStore(), clock: quartz.NewMock(t)}
	logger := log.NewWithOptions(io.Discard, log.Options{})
	opts = append([]Option{
		WithPublisher(env.pub),
		WithStore(env.store),
		WithClock(env.clock),
		WithRand(randutil.New(42)),
		WithQuestionSource(testBank(t)),
	}, opts...)
	reg, err := NewRegistry(logger, cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(reg.Close)
	env.reg = reg
	return env
}

func testRoomConfig() Config {
	cfg := DefaultConfig()
	cfg.TurnTimeout = 0
	cfg.CheckpointInterval = 0
	return cfg
}

// startedRoom creates a room with players, all joined, and starts a hand
func (env *testEnv) startedRoom(t *testing.T, ctx context.Context, players ...string) string {
	t.Helper()
	info, err := env.reg.CreateRoom(ctx, CreateRoomRequest{HostID: players[0], Name: "table", MaxPlayers: len(players)})
	require.NoError(t, err)
	for _, p := range players[1:] {
		require.NoError(t, env.reg.Submit(ctx, info.ID, JoinRoom{UserID: p}))
	}
	require.NoError(t, env.reg.Submit(ctx, info.ID, StartGame{UserID: players[0]}))
	return info.ID
}

func (env *testEnv) current(t *testing.T, ctx context.Context, roomID string) string {
	t.Helper()
	v, err := env.reg.View(ctx, roomID, "")
	require.NoError(t, err)
	require.NotNil(t, v.Game)
	return v.Game.CurrentPlayer
}

func TestCreateAndJoinRoom(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t, testRoomConfig())

	info, err := env.reg.CreateRoom(ctx, CreateRoomRequest{HostID: "alice", Name: "table", MaxPlayers: 2})
	require.NoError(t, err)
	assert.Equal(t, StatusWaiting, info.Status)
	assert.Equal(t, []string{"alice"}, info.Members)

	_, err = env.reg.CreateRoom(ctx, CreateRoomRequest{HostID: "alice", Name: "table", MaxPlayers: 2})
	require.ErrorIs(t, err, ErrRoomExists)

	require.NoError(t, env.reg.Submit(ctx, info.ID, JoinRoom{UserID: "bob"}))
	require.ErrorIs(t, env.reg.Submit(ctx, info.ID, JoinRoom{UserID: "bob"}), ErrAlreadyJoined)
	require.ErrorIs(t, env.reg.Submit(ctx, info.ID, JoinRoom{UserID: "carol"}), ErrRoomFull)
	require.ErrorIs(t, env.reg.Submit(ctx, "missing", JoinRoom{UserID: "carol"}), ErrRoomNotFound)

	got, err := env.reg.Room(info.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, got.Members)
	assert.Len(t, env.reg.ListRooms(), 1)
	assert.Equal(t, []string{info.ID}, env.reg.RoomsOf("bob"))

	created := env.pub.ofType(EventTypeRoomCreated)
	require.Len(t, created, 1)
	assert.Nil(t, created[0].to)
	assert.NotEmpty(t, env.pub.ofType(EventTypeRoomUpdated))
}

func TestConcurrentCreateRoomSameName(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t, testRoomConfig())

	const attempts = 16
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		created  int
		conflict int
	)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.reg.CreateRoom(ctx, CreateRoomRequest{HostID: "alice", Name: "table", MaxPlayers: 2})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, ErrRoomExists):
				conflict++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, attempts-1, conflict)
	assert.Len(t, env.reg.ListRooms(), 1)
	assert.Equal(t, game.KindConflict, game.KindOf(ErrRoomExists))

	_, err := env.reg.CreateRoom(ctx, CreateRoomRequest{HostID: "bob", Name: "table", MaxPlayers: 2})
	require.NoError(t, err, "another host may reuse the name")
}

func TestStartGameSendsPrivateViews(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t, testRoomConfig())

	info, err := env.reg.CreateRoom(ctx, CreateRoomRequest{HostID: "alice", Name: "table", MaxPlayers: 3})
	require.NoError(t, err)
	require.ErrorIs(t, env.reg.Submit(ctx, info.ID, StartGame{UserID: "alice"}), ErrInsufficientPlayers)
	require.NoError(t, env.reg.Submit(ctx, info.ID, JoinRoom{UserID: "bob"}))
	require.ErrorIs(t, env.reg.Submit(ctx, info.ID, StartGame{UserID: "bob"}), ErrNotHost)
	require.NoError(t, env.reg.Submit(ctx, info.ID, StartGame{UserID: "alice"}))

	got, err := env.reg.Room(info.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPlaying, got.Status)
	assert.NotEmpty(t, got.GameID)
	require.ErrorIs(t, env.reg.Submit(ctx, info.ID, JoinRoom{UserID: "carol"}), ErrRoomNotWaiting)

	started := env.pub.ofType(EventTypeGameStarted)
	require.Len(t, started, 2)
	for _, p := range started {
		require.Len(t, p.to, 1)
		view := p.ev.Data.(GameStarted).Game
		assert.Equal(t, p.to[0], view.Viewer)
		for _, seat := range view.Seats {
			if seat.UserID == view.Viewer {
				assert.Len(t, seat.HoleCards, 2)
				require.Len(t, seat.SpecialCards, 5)
				assert.NotNil(t, seat.SpecialCards[0].Question, "questions are attached from the bank")
			} else {
				assert.Empty(t, seat.HoleCards)
			}
		}
	}
}

func TestBettingThroughRegistry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t, testRoomConfig())
	roomID := env.startedRoom(t, ctx, "alice", "bob")

	cur := env.current(t, ctx, roomID)
	other := "alice"
	if cur == "alice" {
		other = "bob"
	}

	err := env.reg.Submit(ctx, roomID, Check{UserID: other})
	require.ErrorIs(t, err, game.ErrNotYourTurn)

	require.NoError(t, env.reg.Submit(ctx, roomID, Call{UserID: cur}))
	updates := env.pub.ofType(EventTypeGameUpdate)
	require.NotEmpty(t, updates)
	last := updates[len(updates)-1].ev.Data.(GameUpdate)
	assert.Equal(t, "call", last.Action)
	assert.Equal(t, cur, last.Player)
	assert.Equal(t, other, last.NextPlayer)
	assert.Equal(t, 20, last.Pot)
	assert.ElementsMatch(t, []string{"alice", "bob"}, updates[len(updates)-1].to)

	require.NoError(t, env.reg.Submit(ctx, roomID, Check{UserID: other}))
	v, err := env.reg.View(ctx, roomID, other)
	require.NoError(t, err)
	assert.Equal(t, game.Flop, v.Game.Street)
	assert.Len(t, v.Game.Community, 3)
}

func TestFoldEndsHandAndPersistsResult(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	env := newTestEnv(t, testRoomConfig())
	go func() { _ = env.reg.Run(ctx) }()

	roomID := env.startedRoom(t, ctx, "alice", "bob")
	cur := env.current(t, ctx, roomID)
	require.NoError(t, env.reg.Submit(ctx, roomID, Fold{UserID: cur}))

	info, err := env.reg.Room(roomID)
	require.NoError(t, err)
	assert.Equal(t, StatusEnded, info.Status)
	assert.Equal(t, 1, info.Hands)

	ended := env.pub.ofType(EventTypeGameEnded)
	require.Len(t, ended, 1)
	res := ended[0].ev.Data.(GameEnded).Result
	assert.True(t, res.FoldOut)
	assert.Equal(t, 15, res.Pot)
	require.Len(t, res.Winners(), 1)
	assert.NotEqual(t, cur, res.Winners()[0])

	require.Eventually(t, func() bool { return env.store.resultCount() == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		env.store.mu.Lock()
		defer env.store.mu.Unlock()
		return env.store.coins[cur] == -5 && env.store.coins[res.Winners()[0]] == 5
	}, time.Second, 5*time.Millisecond)

	require.ErrorIs(t, env.reg.Submit(ctx, roomID, Check{UserID: cur}), ErrRoomNotPlaying)
	require.ErrorIs(t, env.reg.Submit(ctx, roomID, NewHand{UserID: "bob"}), ErrNotHost)
	require.NoError(t, env.reg.Submit(ctx, roomID, NewHand{UserID: "alice"}))
	require.NoError(t, env.reg.Submit(ctx, roomID, StartGame{UserID: "alice"}))
	info, err = env.reg.Room(roomID)
	require.NoError(t, err)
	assert.Equal(t, StatusPlaying, info.Status)
}

func TestAnswerQuestionThroughRegistry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t, testRoomConfig())
	roomID := env.startedRoom(t, ctx, "alice", "bob")

	reward, err := env.reg.AnswerQuestion(ctx, roomID, "alice", 2, " YES ")
	require.NoError(t, err)
	assert.True(t, reward.Correct)
	assert.Equal(t, quiz.Medium, reward.Difficulty)
	assert.Equal(t, game.MediumReward, reward.Chips)

	results := env.pub.ofType(EventTypeAnswerResult)
	require.Len(t, results, 1)
	assert.Equal(t, []string{"alice"}, results[0].to)

	_, err = env.reg.AnswerQuestion(ctx, roomID, "alice", 2, "yes")
	require.ErrorIs(t, err, game.ErrAlreadyRevealed)

	err = env.reg.Submit(ctx, roomID, AnswerQuestion{UserID: "alice", CardIndex: 0, Answer: "no"})
	require.NoError(t, err)

	v, err := env.reg.View(ctx, roomID, "bob")
	require.NoError(t, err)
	for _, seat := range v.Game.Seats {
		if seat.UserID != "alice" {
			continue
		}
		require.Len(t, seat.SpecialCards, 4, "wrong answer burns the card")
		revealed := 0
		for _, sc := range seat.SpecialCards {
			if sc.Visible {
				revealed++
				assert.NotNil(t, sc.Card)
			}
			assert.Nil(t, sc.Question, "bob never sees alice's questions")
		}
		assert.Equal(t, 1, revealed)
	}

	_, err = env.reg.AnswerQuestion(ctx, roomID, "alice", 9, "yes")
	require.ErrorIs(t, err, game.ErrInvalidCardIndex)
	_, err = env.reg.AnswerQuestion(ctx, roomID, "carol", 0, "yes")
	require.ErrorIs(t, err, game.ErrNotInGame)
}

func TestAnswerCheckFailureLeavesCardHidden(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t, testRoomConfig())
	env.reg.questions = failingSource{Source: testBank(t)}
	roomID := env.startedRoom(t, ctx, "alice", "bob")

	_, err := env.reg.AnswerQuestion(ctx, roomID, "bob", 0, "yes")
	require.ErrorIs(t, err, ErrQuestionUnavailable)
	assert.Equal(t, game.KindInternal, game.KindOf(err))

	v, err := env.reg.View(ctx, roomID, "bob")
	require.NoError(t, err)
	for _, seat := range v.Game.Seats {
		if seat.UserID == "bob" {
			require.Len(t, seat.SpecialCards, 5)
			assert.False(t, seat.SpecialCards[0].Visible)
			assert.NotNil(t, seat.SpecialCards[0].Question)
		}
	}
}

func TestTurnTimerActsForSlowPlayer(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cfg := testRoomConfig()
	cfg.TurnTimeout = 30 * time.Second
	env := newTestEnv(t, cfg)
	roomID := env.startedRoom(t, ctx, "alice", "bob")
	slow := env.current(t, ctx, roomID)

	env.clock.Advance(30 * time.Second).MustWait(ctx)

	// the view request queues behind the expiry
	_, err := env.reg.View(ctx, roomID, slow)
	require.NoError(t, err)
	info, err := env.reg.Room(roomID)
	require.NoError(t, err)
	assert.Equal(t, StatusEnded, info.Status, "the small blind owes chips, so the timeout folds")

	var timedOut []GameUpdate
	for _, p := range env.pub.ofType(EventTypeGameUpdate) {
		if u := p.ev.Data.(GameUpdate); u.Timeout {
			timedOut = append(timedOut, u)
		}
	}
	require.Len(t, timedOut, 1)
	assert.Equal(t, slow, timedOut[0].Player)
	assert.Equal(t, "fold", timedOut[0].Action)
}

func (env *testEnv) timeouts() []GameUpdate {
	var out []GameUpdate
	for _, p := range env.pub.ofType(EventTypeGameUpdate) {
		if u := p.ev.Data.(GameUpdate); u.Timeout {
			out = append(out, u)
		}
	}
	return out
}

func TestLeaveRestartsTurnClockOnlyWhenTurnMoves(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cfg := testRoomConfig()
	cfg.TurnTimeout = 30 * time.Second
	players := []string{"alice", "bob", "carol"}

	t.Run("waiting player leaves", func(t *testing.T) {
		env := newTestEnv(t, cfg)
		roomID := env.startedRoom(t, ctx, players...)
		cur := env.current(t, ctx, roomID)
		leaver := players[0]
		if leaver == cur {
			leaver = players[1]
		}

		env.clock.Advance(20 * time.Second).MustWait(ctx)
		require.NoError(t, env.reg.Submit(ctx, roomID, LeaveRoom{UserID: leaver}))
		env.clock.Advance(10 * time.Second).MustWait(ctx)

		_, err := env.reg.View(ctx, roomID, "")
		require.NoError(t, err)
		timeouts := env.timeouts()
		require.Len(t, timeouts, 1, "the original deadline still applies")
		assert.Equal(t, cur, timeouts[0].Player)
	})

	t.Run("player on turn leaves", func(t *testing.T) {
		env := newTestEnv(t, cfg)
		roomID := env.startedRoom(t, ctx, players...)
		cur := env.current(t, ctx, roomID)

		env.clock.Advance(20 * time.Second).MustWait(ctx)
		require.NoError(t, env.reg.Submit(ctx, roomID, LeaveRoom{UserID: cur}))
		next := env.current(t, ctx, roomID)
		require.NotEqual(t, cur, next)

		env.clock.Advance(10 * time.Second).MustWait(ctx)
		_, err := env.reg.View(ctx, roomID, "")
		require.NoError(t, err)
		assert.Empty(t, env.timeouts(), "the next player gets a full turn")

		env.clock.Advance(20 * time.Second).MustWait(ctx)
		_, err = env.reg.View(ctx, roomID, "")
		require.NoError(t, err)
		timeouts := env.timeouts()
		require.Len(t, timeouts, 1)
		assert.Equal(t, next, timeouts[0].Player)
	})
}

func TestForceTimeoutChecksWhenNothingOwed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t, testRoomConfig())
	roomID := env.startedRoom(t, ctx, "alice", "bob")

	sb := env.current(t, ctx, roomID)
	require.NoError(t, env.reg.Submit(ctx, roomID, Call{UserID: sb}))
	bb := env.current(t, ctx, roomID)
	require.ErrorIs(t, env.reg.ForceTimeoutAction(ctx, roomID, sb), game.ErrNotYourTurn)
	require.NoError(t, env.reg.ForceTimeoutAction(ctx, roomID, bb))

	v, err := env.reg.View(ctx, roomID, "")
	require.NoError(t, err)
	assert.Equal(t, game.Flop, v.Game.Street, "big blind checked its option")
}

func TestLeaveDuringHandFoldsSeat(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t, testRoomConfig())
	roomID := env.startedRoom(t, ctx, "alice", "bob", "carol")

	cur := env.current(t, ctx, roomID)
	leaver := "alice"
	if cur == leaver {
		leaver = "bob"
	}
	require.NoError(t, env.reg.Submit(ctx, roomID, LeaveRoom{UserID: leaver}))

	info, err := env.reg.Room(roomID)
	require.NoError(t, err)
	assert.NotContains(t, info.Members, leaver)
	assert.Equal(t, StatusPlaying, info.Status)

	v, err := env.reg.View(ctx, roomID, "")
	require.NoError(t, err)
	assert.Equal(t, cur, v.Game.CurrentPlayer)
	for _, seat := range v.Game.Seats {
		assert.Equal(t, seat.UserID == leaver, seat.Folded)
	}
	require.ErrorIs(t, env.reg.Submit(ctx, roomID, LeaveRoom{UserID: leaver}), ErrNotInRoom)
}

func TestDisconnectAndReconnect(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t, testRoomConfig())
	info, err := env.reg.CreateRoom(ctx, CreateRoomRequest{HostID: "alice", Name: "table", MaxPlayers: 4})
	require.NoError(t, err)
	require.NoError(t, env.reg.Submit(ctx, info.ID, JoinRoom{UserID: "bob"}))

	require.NoError(t, env.reg.Disconnect(ctx, "bob"))
	got, err := env.reg.Room(info.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, got.Disconnected)
	assert.Equal(t, []string{"alice", "bob"}, got.Members)

	ids, err := env.reg.Reconnect(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{info.ID}, ids)
	got, err = env.reg.Room(info.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Disconnected)
}

func TestEmptyRoomSweep(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cfg := testRoomConfig()
	cfg.EmptyRoomTTL = time.Minute
	env := newTestEnv(t, cfg)

	info, err := env.reg.CreateRoom(ctx, CreateRoomRequest{HostID: "alice", Name: "table", MaxPlayers: 4})
	require.NoError(t, err)
	kept, err := env.reg.CreateRoom(ctx, CreateRoomRequest{HostID: "bob", Name: "busy", MaxPlayers: 4})
	require.NoError(t, err)
	require.NoError(t, env.reg.Submit(ctx, info.ID, LeaveRoom{UserID: "alice"}))

	// empty rooms survive leave and a sweep before the TTL
	assert.Empty(t, env.reg.Sweep(ctx))
	_, err = env.reg.Room(info.ID)
	require.NoError(t, err)

	env.clock.Advance(time.Minute).MustWait(ctx)
	assert.Equal(t, []string{info.ID}, env.reg.Sweep(ctx))

	_, err = env.reg.Room(info.ID)
	require.ErrorIs(t, err, ErrRoomNotFound)
	_, err = env.reg.Room(kept.ID)
	require.NoError(t, err)
	require.Len(t, env.pub.ofType(EventTypeRoomClosed), 1)
}

func TestCheckpointAndRestore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t, testRoomConfig())
	roomID := env.startedRoom(t, ctx, "alice", "bob")
	cur := env.current(t, ctx, roomID)
	require.NoError(t, env.reg.Submit(ctx, roomID, Call{UserID: cur}))

	before, err := env.reg.View(ctx, roomID, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, env.reg.Checkpoint(ctx))

	restored, err := NewRegistry(log.NewWithOptions(io.Discard, log.Options{}), testRoomConfig(),
		WithStore(env.store), WithClock(env.clock), WithRand(randutil.New(7)))
	require.NoError(t, err)
	t.Cleanup(restored.Close)
	n, err := restored.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	after, err := restored.View(ctx, roomID, "alice")
	require.NoError(t, err)
	assert.Equal(t, before.Room.Members, after.Room.Members)
	assert.Equal(t, StatusPlaying, after.Room.Status)
	assert.Equal(t, before.Game.Pot, after.Game.Pot)
	assert.Equal(t, before.Game.CurrentPlayer, after.Game.CurrentPlayer)
	assert.Equal(t, before.Game.Seats, after.Game.Seats)

	// the restored hand keeps going
	require.NoError(t, restored.Submit(ctx, roomID, Check{UserID: after.Game.CurrentPlayer}))
}

func TestEngineFailureAbortsHand(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	pub := &recorder{}
	panicky := PublisherFunc(func(to []string, ev Event) {
		if ev.Type == EventTypeAnswerResult {
			panic("publisher exploded")
		}
		pub.Publish(to, ev)
	})
	env := newTestEnv(t, testRoomConfig(), WithPublisher(panicky))
	roomID := env.startedRoom(t, ctx, "alice", "bob")

	_, err := env.reg.AnswerQuestion(ctx, roomID, "alice", 0, "yes")
	require.ErrorIs(t, err, ErrEngineFailure)

	info, err := env.reg.Room(roomID)
	require.NoError(t, err)
	assert.Equal(t, StatusEnded, info.Status)

	ended := pub.ofType(EventTypeGameEnded)
	require.Len(t, ended, 1)
	res := ended[0].ev.Data.(GameEnded).Result
	assert.True(t, res.Aborted)
	for _, s := range res.Standings {
		assert.Zero(t, s.ChipDelta, "aborted hands refund every bet")
	}

	// the actor survives and keeps serving commands
	require.NoError(t, env.reg.Submit(ctx, roomID, NewHand{UserID: "alice"}))
}

func TestClosedRegistryRejectsCommands(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t, testRoomConfig())
	info, err := env.reg.CreateRoom(ctx, CreateRoomRequest{HostID: "alice", Name: "table", MaxPlayers: 4})
	require.NoError(t, err)

	env.reg.Close()
	require.ErrorIs(t, env.reg.Submit(ctx, info.ID, JoinRoom{UserID: "bob"}), ErrRoomClosed)
	_, err = env.reg.CreateRoom(ctx, CreateRoomRequest{HostID: "bob", Name: "other", MaxPlayers: 4})
	require.ErrorIs(t, err, ErrRoomClosed)
}
