// Package store persists rooms, game results and player coin balances.
//
// Memory keeps everything in process and is what tests and ephemeral servers
// use. File writes JSON documents under a data directory. Retrying wraps
// either with bounded exponential backoff.
package store

import (
	"time"

	"github.com/lox/triviaholdem/internal/game"
	"github.com/lox/triviaholdem/internal/room"
)

// ResultRecord is a finished hand as stored
type ResultRecord struct {
	RoomID     string      `json:"roomId"`
	GameType   string      `json:"gameType"`
	Result     game.Result `json:"result"`
	RecordedAt time.Time   `json:"recordedAt"`
}

// CoinEntry is one change to a player's balance
type CoinEntry struct {
	Delta       int       `json:"delta"`
	Balance     int       `json:"balance"`
	Description string    `json:"description"`
	At          time.Time `json:"at"`
}

// Account is a player's balance and its history
type Account struct {
	UserID  string      `json:"userId"`
	Balance int         `json:"balance"`
	History []CoinEntry `json:"history"`
}

var (
	_ room.Store = (*Memory)(nil)
	_ room.Store = (*File)(nil)
	_ room.Store = (*Retrying)(nil)
)
