package room

import (
	"slices"
	"time"

	"github.com/lox/triviaholdem/internal/deck"
	"github.com/lox/triviaholdem/internal/game"
	"github.com/lox/triviaholdem/internal/quiz"
)

// RoomInfo is an immutable summary of a room, safe to share across goroutines
type RoomInfo struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	HostID       string    `json:"hostId"`
	Members      []string  `json:"members"`
	MaxPlayers   int       `json:"maxPlayers"`
	Private      bool      `json:"private"`
	Status       Status    `json:"status"`
	Options      Options   `json:"options"`
	Ready        []string  `json:"ready"`
	Disconnected []string  `json:"disconnected,omitempty"`
	GameID       string    `json:"gameId,omitempty"`
	Hands        int       `json:"hands"`
	CreatedAt    time.Time `json:"createdAt"`
	EmptySince   time.Time `json:"emptySince,omitzero"`
}

// Info returns a copy of the room's public summary
func (r *Room) Info() RoomInfo {
	info := RoomInfo{
		ID:         r.ID,
		Name:       r.Name,
		HostID:     r.HostID,
		Members:    slices.Clone(r.Members),
		MaxPlayers: r.MaxPlayers,
		Private:    r.Private,
		Status:     r.Status,
		Options:    r.Options,
		Hands:      r.Hands,
		CreatedAt:  r.CreatedAt,
		EmptySince: r.EmptySince,
		Ready:      []string{},
	}
	for _, m := range r.Members {
		if r.Ready[m] {
			info.Ready = append(info.Ready, m)
		}
		if r.Disconnected[m] {
			info.Disconnected = append(info.Disconnected, m)
		}
	}
	if r.Game != nil {
		info.GameID = r.Game.ID
	}
	return info
}

// QuestionView is a question without its answer
type QuestionView struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options,omitempty"`
	Topic   string   `json:"topic,omitempty"`
}

// SpecialCardView shows a special card. Card is set once revealed; Question
// is only included for the owner while the card is hidden.
type SpecialCardView struct {
	Index      int             `json:"index"`
	Difficulty quiz.Difficulty `json:"difficulty"`
	Visible    bool            `json:"visible"`
	Card       *deck.Card      `json:"card,omitempty"`
	Question   *QuestionView   `json:"question,omitempty"`
}

// SeatView is one seat as seen by a viewer
type SeatView struct {
	UserID       string            `json:"userId"`
	Seat         int               `json:"seat"`
	Chips        int               `json:"chips"`
	Bet          int               `json:"bet"`
	TotalBet     int               `json:"totalBet"`
	Folded       bool              `json:"folded"`
	AllIn        bool              `json:"allIn"`
	Dealer       bool              `json:"dealer,omitempty"`
	SmallBlind   bool              `json:"smallBlind,omitempty"`
	BigBlind     bool              `json:"bigBlind,omitempty"`
	Disconnected bool              `json:"disconnected,omitempty"`
	HoleCards    []deck.Card       `json:"holeCards,omitempty"`
	SpecialCards []SpecialCardView `json:"specialCards"`
	Selected     []deck.Card       `json:"selected,omitempty"`
}

// GameView is the table as seen by one viewer. An empty Viewer is the public view.
type GameView struct {
	GameID        string      `json:"gameId"`
	Viewer        string      `json:"viewer,omitempty"`
	Street        game.Street `json:"street"`
	Pot           int         `json:"pot"`
	HighestBet    int         `json:"highestBet"`
	MinBet        int         `json:"minBet"`
	SmallBlind    int         `json:"smallBlind"`
	BigBlind      int         `json:"bigBlind"`
	CurrentPlayer string      `json:"currentPlayer,omitempty"`
	Community     []deck.Card `json:"community"`
	Seats         []SeatView  `json:"seats"`
}

// RoomView is everything a member needs to render a room, e.g. after reconnecting
type RoomView struct {
	Room       RoomInfo     `json:"room"`
	Game       *GameView    `json:"game,omitempty"`
	LastResult *game.Result `json:"lastResult,omitempty"`
}

func (r *Room) view(viewer string) RoomView {
	v := RoomView{Room: r.Info(), LastResult: r.LastResult}
	if r.Game != nil {
		gv := gameView(r.Game, viewer, r.Disconnected)
		v.Game = &gv
	}
	return v
}

// gameView renders g for viewer. Question answers never leave the engine.
func gameView(g *game.Game, viewer string, disconnected map[string]bool) GameView {
	v := GameView{
		GameID:     g.ID,
		Viewer:     viewer,
		Street:     g.Street,
		Pot:        g.Pot,
		HighestBet: g.HighestBet,
		MinBet:     g.MinBet,
		SmallBlind: g.Config.SmallBlind,
		BigBlind:   g.Config.BigBlind,
		Community:  slices.Clone(g.Community),
		Seats:      make([]SeatView, len(g.Players)),
	}
	if v.Community == nil {
		v.Community = []deck.Card{}
	}
	if p := g.Current(); p != nil {
		v.CurrentPlayer = p.UserID
	}
	for i, p := range g.Players {
		own := p.UserID == viewer
		seat := SeatView{
			UserID:       p.UserID,
			Seat:         p.Seat,
			Chips:        p.Chips,
			Bet:          p.Bet,
			TotalBet:     p.TotalBet,
			Folded:       p.Folded,
			AllIn:        p.AllIn,
			Dealer:       p.Seat == g.Dealer,
			SmallBlind:   p.Seat == g.SmallBlindSeat,
			BigBlind:     p.Seat == g.BigBlindSeat,
			Disconnected: disconnected[p.UserID],
			SpecialCards: make([]SpecialCardView, len(p.SpecialCards)),
		}
		if own {
			seat.HoleCards = slices.Clone(p.HoleCards)
			seat.Selected = slices.Clone(p.Selected)
		}
		for j, sc := range p.SpecialCards {
			scv := SpecialCardView{Index: j, Difficulty: sc.Difficulty, Visible: sc.Visible}
			if sc.Visible {
				card := sc.Card
				scv.Card = &card
			} else if own && sc.Question != nil {
				scv.Question = &QuestionView{
					ID:      sc.Question.ID,
					Text:    sc.Question.Text,
					Options: slices.Clone(sc.Question.Options),
					Topic:   sc.Question.Topic,
				}
			}
			seat.SpecialCards[j] = scv
		}
		v.Seats[i] = seat
	}
	return v
}
