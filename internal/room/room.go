package room

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/lox/triviaholdem/internal/game"
	"github.com/lox/triviaholdem/internal/quiz"
)

// Status is the lifecycle state of a room
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusPlaying Status = "playing"
	StatusEnded   Status = "ended"
)

// Options are the stakes and question settings of a room. In a
// CreateRoomRequest, zero stakes and an empty topic take the registry
// defaults; Difficulty and RequireReady come from the request's own fields.
type Options struct {
	BuyIn      int    `json:"buyIn"`
	SmallBlind int    `json:"smallBlind"`
	BigBlind   int    `json:"bigBlind"`
	Topic      string `json:"topic,omitempty"`
	// Difficulty is the lowest question difficulty asked for any card.
	Difficulty   quiz.Difficulty `json:"difficulty"`
	RequireReady bool            `json:"requireReady,omitempty"`
}

func (o Options) withDefaults(d Options) Options {
	if o.BuyIn == 0 {
		o.BuyIn = d.BuyIn
	}
	if o.SmallBlind == 0 {
		o.SmallBlind = d.SmallBlind
	}
	if o.BigBlind == 0 {
		o.BigBlind = d.BigBlind
	}
	if o.Topic == "" {
		o.Topic = d.Topic
	}
	return o
}

// Room is a table that players join, ready up in, and play hands in. A Room
// is owned by exactly one actor goroutine.
type Room struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	HostID       string          `json:"hostId"`
	Members      []string        `json:"members"` // join order
	MaxPlayers   int             `json:"maxPlayers"`
	Private      bool            `json:"private"`
	PasswordHash []byte          `json:"passwordHash,omitempty"`
	Status       Status          `json:"status"`
	Options      Options         `json:"options"`
	Ready        map[string]bool `json:"ready"`
	Disconnected map[string]bool `json:"disconnected"`
	Game         *game.Game      `json:"game,omitempty"`
	LastResult   *game.Result    `json:"lastResult,omitempty"`
	Hands        int             `json:"hands"`
	CreatedAt    time.Time       `json:"createdAt"`
	EmptySince   time.Time       `json:"emptySince,omitzero"`
}

// CreateRoomRequest describes a room to create
type CreateRoomRequest struct {
	HostID     string
	Name       string
	MaxPlayers int
	Private    bool
	Password   string
	Options    Options
	// Difficulty and RequireReady override the defaults when set
	Difficulty   *quiz.Difficulty
	RequireReady *bool
}

func newRoom(id string, req CreateRoomRequest, defaults Options, now time.Time) (*Room, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || req.HostID == "" {
		return nil, ErrInvalidRoom.WithMessage("room name and host are required")
	}
	if req.MaxPlayers < game.MinPlayers || req.MaxPlayers > game.MaxPlayers {
		return nil, ErrInvalidRoom.WithMessage("max players must be between %d and %d", game.MinPlayers, game.MaxPlayers)
	}
	opts := req.Options.withDefaults(defaults)
	opts.Difficulty, opts.RequireReady = defaults.Difficulty, defaults.RequireReady
	if req.Difficulty != nil {
		opts.Difficulty = *req.Difficulty
	}
	if req.RequireReady != nil {
		opts.RequireReady = *req.RequireReady
	}
	cfg := game.Config{SmallBlind: opts.SmallBlind, BigBlind: opts.BigBlind, BuyIn: opts.BuyIn}
	if err := cfg.Validate(); err != nil {
		return nil, ErrInvalidRoom.WithMessage("%v", err)
	}

	r := &Room{
		ID:           id,
		Name:         name,
		HostID:       req.HostID,
		Members:      []string{req.HostID},
		MaxPlayers:   req.MaxPlayers,
		Private:      req.Private,
		Status:       StatusWaiting,
		Options:      opts,
		Ready:        make(map[string]bool),
		Disconnected: make(map[string]bool),
		CreatedAt:    now,
	}
	if req.Private {
		if req.Password == "" {
			return nil, ErrInvalidRoom.WithMessage("private rooms need a password")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash room password: %w", err)
		}
		r.PasswordHash = hash
	}
	return r, nil
}

// IsMember returns true if userID is in the room
func (r *Room) IsMember(userID string) bool {
	return slices.Contains(r.Members, userID)
}

func (r *Room) join(userID, password string) error {
	if userID == "" {
		return ErrInvalidRoom.WithMessage("user id is required")
	}
	if r.Status != StatusWaiting {
		return ErrRoomNotWaiting
	}
	if r.IsMember(userID) {
		return ErrAlreadyJoined
	}
	if len(r.Members) >= r.MaxPlayers {
		return ErrRoomFull
	}
	if !r.verifyPassword(password) {
		return ErrBadPassword
	}
	r.Members = append(r.Members, userID)
	r.EmptySince = time.Time{}
	return nil
}

// leave removes userID and hands the host role to the oldest remaining member.
// It reports whether the host changed.
func (r *Room) leave(userID string, now time.Time) (bool, error) {
	i := slices.Index(r.Members, userID)
	if i < 0 {
		return false, ErrNotInRoom
	}
	r.Members = slices.Delete(r.Members, i, i+1)
	delete(r.Ready, userID)
	delete(r.Disconnected, userID)

	if len(r.Members) == 0 {
		r.EmptySince = now
		return false, nil
	}
	if r.HostID == userID {
		r.HostID = r.Members[0]
		return true, nil
	}
	return false, nil
}

func (r *Room) setReady(userID string, ready bool) error {
	if !r.IsMember(userID) {
		return ErrNotInRoom
	}
	if r.Status != StatusWaiting {
		return ErrRoomNotWaiting
	}
	if ready {
		r.Ready[userID] = true
	} else {
		delete(r.Ready, userID)
	}
	return nil
}

// canStart checks every precondition of StartGame for requester
func (r *Room) canStart(requester string) error {
	if requester != r.HostID {
		return ErrNotHost
	}
	if r.Status != StatusWaiting {
		return ErrRoomNotWaiting
	}
	if len(r.Members) < game.MinPlayers {
		return ErrInsufficientPlayers
	}
	if r.Options.RequireReady {
		for _, m := range r.Members {
			if m != r.HostID && !r.Ready[m] {
				return ErrPlayersNotReady.WithMessage("%s is not ready", m)
			}
		}
	}
	return nil
}

// gameConfig returns the stakes of the room's next hand
func (r *Room) gameConfig(tie game.TiePolicy) game.Config {
	return game.Config{
		SmallBlind: r.Options.SmallBlind,
		BigBlind:   r.Options.BigBlind,
		BuyIn:      r.Options.BuyIn,
		TiePolicy:  tie,
	}
}

// audience returns everyone who should see game events: current members and
// seated players who left mid-hand.
func (r *Room) audience() []string {
	out := slices.Clone(r.Members)
	if r.Game != nil {
		for _, p := range r.Game.Players {
			if !slices.Contains(out, p.UserID) {
				out = append(out, p.UserID)
			}
		}
	}
	return out
}

func (r *Room) verifyPassword(password string) bool {
	return !r.Private || bcrypt.CompareHashAndPassword(r.PasswordHash, []byte(password)) == nil
}
