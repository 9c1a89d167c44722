package room

import (
	"context"
	"time"

	"github.com/lox/triviaholdem/internal/game"
)

// Snapshot is a checkpoint of one room, including any hand in progress
type Snapshot struct {
	Room    Room      `json:"room"`
	SavedAt time.Time `json:"savedAt"`
}

// Store persists rooms and game outcomes. Implementations live outside the
// engine; the registry keeps running from memory when a call fails.
type Store interface {
	RecordGameResult(ctx context.Context, roomID, gameType string, result game.Result) error
	AdjustUserCoins(ctx context.Context, userID string, delta int, description string) error
	SaveRoom(ctx context.Context, snap Snapshot) error
	LoadRooms(ctx context.Context) ([]Snapshot, error)
	DeleteRoom(ctx context.Context, roomID string) error
}

// persistJob is work for the registry's persistence worker
type persistJob struct {
	roomID string
	result *game.Result
	save   *Snapshot
	delete bool
}
