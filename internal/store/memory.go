package store

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/coder/quartz"

	"github.com/lox/triviaholdem/internal/game"
	"github.com/lox/triviaholdem/internal/room"
)

// Memory is an in-process Store
type Memory struct {
	clock quartz.Clock

	mu       sync.Mutex
	rooms    map[string]room.Snapshot
	results  []ResultRecord
	accounts map[string]*Account
}

// NewMemory creates an empty store. A nil clock uses the wall clock.
func NewMemory(clock quartz.Clock) *Memory {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Memory{
		clock:    clock,
		rooms:    make(map[string]room.Snapshot),
		accounts: make(map[string]*Account),
	}
}

func (m *Memory) RecordGameResult(_ context.Context, roomID, gameType string, result game.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, ResultRecord{
		RoomID:     roomID,
		GameType:   gameType,
		Result:     result,
		RecordedAt: m.clock.Now(),
	})
	return nil
}

func (m *Memory) AdjustUserCoins(_ context.Context, userID string, delta int, description string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, ok := m.accounts[userID]
	if !ok {
		acct = &Account{UserID: userID}
		m.accounts[userID] = acct
	}
	acct.Balance += delta
	acct.History = append(acct.History, CoinEntry{
		Delta:       delta,
		Balance:     acct.Balance,
		Description: description,
		At:          m.clock.Now(),
	})
	return nil
}

func (m *Memory) SaveRoom(_ context.Context, snap room.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[snap.Room.ID] = snap
	return nil
}

// LoadRooms returns saved rooms, oldest first
func (m *Memory) LoadRooms(context.Context) ([]room.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]room.Snapshot, 0, len(m.rooms))
	for _, snap := range m.rooms {
		out = append(out, snap)
	}
	sortSnapshots(out)
	return out, nil
}

func (m *Memory) DeleteRoom(_ context.Context, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, roomID)
	return nil
}

// Results returns the recorded hands of roomID; an empty roomID returns all
func (m *Memory) Results(roomID string) []ResultRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ResultRecord
	for _, r := range m.results {
		if roomID == "" || r.RoomID == roomID {
			out = append(out, r)
		}
	}
	return out
}

// Account returns a copy of a player's account
func (m *Memory) Account(userID string) (Account, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, ok := m.accounts[userID]
	if !ok {
		return Account{}, false
	}
	cp := *acct
	cp.History = slices.Clone(acct.History)
	return cp, true
}

func sortSnapshots(snaps []room.Snapshot) {
	sort.Slice(snaps, func(i, j int) bool {
		a, b := snaps[i].Room, snaps[j].Room
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
