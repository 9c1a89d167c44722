package store

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/triviaholdem/internal/game"
	"github.com/lox/triviaholdem/internal/room"
)

var quietLogger = log.NewWithOptions(io.Discard, log.Options{})

func snapshot(id string, created time.Time) room.Snapshot {
	return room.Snapshot{
		Room: room.Room{
			ID:        id,
			Name:      "table " + id,
			HostID:    "alice",
			Members:   []string{"alice", "bob"},
			Status:    room.StatusWaiting,
			CreatedAt: created,
		},
		SavedAt: created.Add(time.Minute),
	}
}

func foldOutResult(gameID string) game.Result {
	return game.Result{
		GameID:  gameID,
		Pot:     15,
		FoldOut: true,
		Standings: []game.Standing{
			{UserID: "bob", Seat: 1, Position: 1, Winnings: 15, FinalChips: 1005, ChipDelta: 5},
			{UserID: "alice", Seat: 0, Folded: true, FinalChips: 995, ChipDelta: -5},
		},
	}
}

// exercise runs the same checks against any Store
func exercise(t *testing.T, s room.Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, s.SaveRoom(ctx, snapshot("r2", base.Add(time.Hour))))
	require.NoError(t, s.SaveRoom(ctx, snapshot("r1", base)))
	updated := snapshot("r1", base)
	updated.Room.Status = room.StatusEnded
	require.NoError(t, s.SaveRoom(ctx, updated))

	snaps, err := s.LoadRooms(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "r1", snaps[0].Room.ID)
	assert.Equal(t, room.StatusEnded, snaps[0].Room.Status)
	assert.Equal(t, []string{"alice", "bob"}, snaps[0].Room.Members)
	assert.True(t, base.Equal(snaps[0].Room.CreatedAt))

	require.NoError(t, s.DeleteRoom(ctx, "r2"))
	require.NoError(t, s.DeleteRoom(ctx, "r2"))
	snaps, err = s.LoadRooms(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 1)

	require.NoError(t, s.RecordGameResult(ctx, "r1", "trivia_holdem", foldOutResult("g1")))
	require.NoError(t, s.AdjustUserCoins(ctx, "bob", 5, "trivia_holdem game g1"))
	require.NoError(t, s.AdjustUserCoins(ctx, "bob", -20, "trivia_holdem game g2"))
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	clock := quartz.NewMock(t)
	s := NewMemory(clock)
	exercise(t, s)

	results := s.Results("r1")
	require.Len(t, results, 1)
	assert.Equal(t, "g1", results[0].Result.GameID)
	assert.Equal(t, "trivia_holdem", results[0].GameType)
	assert.Empty(t, s.Results("other"))

	acct, ok := s.Account("bob")
	require.True(t, ok)
	assert.Equal(t, -15, acct.Balance)
	require.Len(t, acct.History, 2)
	assert.Equal(t, 5, acct.History[0].Balance)
	assert.Equal(t, clock.Now(), acct.History[1].At)

	_, ok = s.Account("carol")
	assert.False(t, ok)
}

func TestFileStore(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	s, err := NewFile(dir, quartz.NewMock(t), quietLogger)
	require.NoError(t, err)
	exercise(t, s)

	results, err := s.Results("r1")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, []string{"bob"}, results[0].Result.Winners())

	acct, ok, err := s.Account("bob")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, -15, acct.Balance)

	// a second store over the same directory sees everything
	reopened, err := NewFile(dir, nil, quietLogger)
	require.NoError(t, err)
	snaps, err := reopened.LoadRooms(context.Background())
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "r1", snaps[0].Room.ID)
}

func TestFileStoreSkipsCorruptRooms(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	s, err := NewFile(dir, nil, quietLogger)
	require.NoError(t, err)
	require.NoError(t, s.SaveRoom(context.Background(), snapshot("good", time.Now())))
	require.NoError(t, os.WriteFile(filepath.Join(dir, roomsDir, "bad.json"), []byte("{"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, roomsDir, "notes.txt"), []byte("x"), 0o644))

	snaps, err := s.LoadRooms(context.Background())
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "good", snaps[0].Room.ID)
}

func TestFileStoreRejectsPathIDs(t *testing.T) {
	t.Parallel()
	s, err := NewFile(t.TempDir(), nil, quietLogger)
	require.NoError(t, err)
	for _, id := range []string{"", "..", "../escape", `a\b`} {
		require.Error(t, s.SaveRoom(context.Background(), snapshot(id, time.Now())), id)
	}
}

// flaky fails the first n calls of every method
type flaky struct {
	*Memory
	failures atomic.Int32
	calls    atomic.Int32
}

func (f *flaky) fail() error {
	f.calls.Add(1)
	if f.failures.Add(-1) >= 0 {
		return errors.New("disk on fire")
	}
	return nil
}

func (f *flaky) SaveRoom(ctx context.Context, snap room.Snapshot) error {
	if err := f.fail(); err != nil {
		return err
	}
	return f.Memory.SaveRoom(ctx, snap)
}

func (f *flaky) AdjustUserCoins(ctx context.Context, userID string, delta int, desc string) error {
	if err := f.fail(); err != nil {
		return err
	}
	return f.Memory.AdjustUserCoins(ctx, userID, delta, desc)
}

func TestRetryingRecovers(t *testing.T) {
	t.Parallel()
	inner := &flaky{Memory: NewMemory(nil)}
	inner.failures.Store(2)
	s := NewRetrying(inner, RetryPolicy{Attempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}, nil, quietLogger)

	require.NoError(t, s.SaveRoom(context.Background(), snapshot("r1", time.Now())))
	assert.EqualValues(t, 3, inner.calls.Load())

	snaps, err := s.LoadRooms(context.Background())
	require.NoError(t, err)
	assert.Len(t, snaps, 1)
}

func TestRetryingGivesUp(t *testing.T) {
	t.Parallel()
	inner := &flaky{Memory: NewMemory(nil)}
	inner.failures.Store(10)
	s := NewRetrying(inner, RetryPolicy{Attempts: 2, BaseDelay: time.Millisecond}, nil, quietLogger)

	err := s.AdjustUserCoins(context.Background(), "bob", 5, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "giving up after 2 attempts")
	assert.EqualValues(t, 2, inner.calls.Load())
	_, ok := inner.Account("bob")
	assert.False(t, ok)
}

func TestRetryingStopsOnCancel(t *testing.T) {
	t.Parallel()
	inner := &flaky{Memory: NewMemory(nil)}
	inner.failures.Store(10)
	s := NewRetrying(inner, RetryPolicy{Attempts: 5, BaseDelay: time.Hour}, nil, quietLogger)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.SaveRoom(ctx, snapshot("r1", time.Now()))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.EqualValues(t, 1, inner.calls.Load())
}
