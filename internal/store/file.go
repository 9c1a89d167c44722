package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/triviaholdem/internal/fileutil"
	"github.com/lox/triviaholdem/internal/game"
	"github.com/lox/triviaholdem/internal/room"
)

const (
	roomsDir    = "rooms"
	resultsDir  = "results"
	coinsFile   = "coins.json"
	jsonSuffix  = ".json"
	dirFileMode = 0o755
)

// File stores JSON documents under a data directory:
//
//	rooms/<room id>.json     latest snapshot of each room
//	results/<room id>.json   every hand played in the room
//	coins.json               player balances and their history
//
// Every write replaces a whole file atomically.
type File struct {
	dir    string
	clock  quartz.Clock
	logger *log.Logger

	mu sync.Mutex
}

// NewFile opens or creates a data directory
func NewFile(dir string, clock quartz.Clock, logger *log.Logger) (*File, error) {
	if clock == nil {
		clock = quartz.NewReal()
	}
	for _, sub := range []string{roomsDir, resultsDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), dirFileMode); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}
	return &File{dir: dir, clock: clock, logger: logger.WithPrefix("store")}, nil
}

func (f *File) path(sub, id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("invalid id %q", id)
	}
	return filepath.Join(f.dir, sub, id+jsonSuffix), nil
}

func (f *File) RecordGameResult(_ context.Context, roomID, gameType string, result game.Result) error {
	path, err := f.path(resultsDir, roomID)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var records []ResultRecord
	if _, err := fileutil.ReadJSON(path, &records); err != nil {
		return err
	}
	records = append(records, ResultRecord{
		RoomID:     roomID,
		GameType:   gameType,
		Result:     result,
		RecordedAt: f.clock.Now(),
	})
	return fileutil.WriteJSONAtomic(path, records)
}

func (f *File) AdjustUserCoins(_ context.Context, userID string, delta int, description string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	accounts, err := f.loadAccounts()
	if err != nil {
		return err
	}
	acct, ok := accounts[userID]
	if !ok {
		acct = &Account{UserID: userID}
		accounts[userID] = acct
	}
	acct.Balance += delta
	acct.History = append(acct.History, CoinEntry{
		Delta:       delta,
		Balance:     acct.Balance,
		Description: description,
		At:          f.clock.Now(),
	})
	return fileutil.WriteJSONAtomic(filepath.Join(f.dir, coinsFile), accounts)
}

func (f *File) loadAccounts() (map[string]*Account, error) {
	accounts := make(map[string]*Account)
	if _, err := fileutil.ReadJSON(filepath.Join(f.dir, coinsFile), &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (f *File) SaveRoom(_ context.Context, snap room.Snapshot) error {
	path, err := f.path(roomsDir, snap.Room.ID)
	if err != nil {
		return err
	}
	return fileutil.WriteJSONAtomic(path, snap)
}

// LoadRooms reads every saved room. Unreadable files are logged and skipped.
func (f *File) LoadRooms(context.Context) ([]room.Snapshot, error) {
	entries, err := os.ReadDir(filepath.Join(f.dir, roomsDir))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}

	var snaps []room.Snapshot
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != jsonSuffix {
			continue
		}
		var snap room.Snapshot
		path := filepath.Join(f.dir, roomsDir, e.Name())
		if _, err := fileutil.ReadJSON(path, &snap); err != nil {
			f.logger.Warn("Skipping unreadable room", "file", path, "error", err)
			continue
		}
		snaps = append(snaps, snap)
	}
	sortSnapshots(snaps)
	return snaps, nil
}

func (f *File) DeleteRoom(_ context.Context, roomID string) error {
	path, err := f.path(roomsDir, roomID)
	if err != nil {
		return err
	}
	return fileutil.Remove(path)
}

// Results returns the recorded hands of roomID
func (f *File) Results(roomID string) ([]ResultRecord, error) {
	path, err := f.path(resultsDir, roomID)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var records []ResultRecord
	_, err = fileutil.ReadJSON(path, &records)
	return records, err
}

// Account returns a player's account
func (f *File) Account(userID string) (Account, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	accounts, err := f.loadAccounts()
	if err != nil {
		return Account{}, false, err
	}
	acct, ok := accounts[userID]
	if !ok {
		return Account{}, false, nil
	}
	return *acct, true, nil
}
