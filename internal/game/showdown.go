package game

import (
	"fmt"
	"sort"

	"github.com/lox/triviaholdem/internal/deck"
	"github.com/lox/triviaholdem/internal/evaluator"
)

// Result is the outcome of a finished hand
type Result struct {
	GameID    string      `json:"gameId"`
	Pot       int         `json:"pot"`
	Board     []deck.Card `json:"board"`
	FoldOut   bool        `json:"foldOut,omitempty"`
	Aborted   bool        `json:"aborted,omitempty"`
	Reason    string      `json:"reason,omitempty"`
	Standings []Standing  `json:"standings"`
}

// Standing is one player's line in a Result, ordered by position
type Standing struct {
	UserID   string `json:"userId"`
	Seat     int    `json:"seat"`
	Position int    `json:"position"` // 0 for folded players
	Folded   bool   `json:"folded,omitempty"`
	// Cards and Hand are set for players who reached the showdown
	Cards      []deck.Card     `json:"cards,omitempty"`
	Hand       *evaluator.Hand `json:"hand,omitempty"`
	HandName   string          `json:"handName,omitempty"`
	Winnings   int             `json:"winnings"`
	FinalChips int             `json:"finalChips"`
	ChipDelta  int             `json:"chipDelta"`
}

// Winners returns the user IDs that took chips from the pot
func (r *Result) Winners() []string {
	var ids []string
	for _, s := range r.Standings {
		if s.Position == 1 && s.Winnings > 0 {
			ids = append(ids, s.UserID)
		}
	}
	return ids
}

// foldOut awards the pot to the last player standing without a showdown
func (g *Game) foldOut() error {
	var winner *PlayerState
	for _, p := range g.Players {
		if !p.Folded {
			winner = p
			break
		}
	}
	if winner == nil {
		return fmt.Errorf("fold-out without a remaining player")
	}

	standings := make([]Standing, len(g.Players))
	for i, p := range g.Players {
		standings[i] = Standing{UserID: p.UserID, Seat: p.Seat, Folded: p.Folded}
		if p == winner {
			standings[i].Position = 1
			standings[i].Winnings = g.Pot
		}
	}
	g.finish(standings, true)
	return nil
}

// showdown evaluates every remaining hand and pays position 1
func (g *Game) showdown() error {
	type entry struct {
		player *PlayerState
		cards  []deck.Card
		hand   evaluator.Hand
	}

	var entries []entry
	for _, p := range g.seatsFromDealer() {
		if p.Folded {
			continue
		}
		cards := p.showdownCards()
		hand, err := evaluator.Evaluate(append(append([]deck.Card(nil), cards...), g.Community...))
		if err != nil {
			return fmt.Errorf("evaluate %s: %w", p.UserID, err)
		}
		entries = append(entries, entry{player: p, cards: cards, hand: hand})
	}
	if len(entries) == 0 {
		return fmt.Errorf("showdown without players")
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].hand.Beats(entries[j].hand)
	})

	// competition ranking: tied hands share a position, the next one skips
	positions := make([]int, len(entries))
	for i := range entries {
		if i > 0 && entries[i].hand.Ties(entries[i-1].hand) {
			positions[i] = positions[i-1]
		} else {
			positions[i] = i + 1
		}
	}

	var winners []int
	for i := range entries {
		if positions[i] == 1 {
			winners = append(winners, i)
		}
	}

	winnings := make([]int, len(entries))
	switch g.Config.TiePolicy {
	case TieFirst:
		// seat order, not dealer order
		first := winners[0]
		for _, w := range winners {
			if entries[w].player.Seat < entries[first].player.Seat {
				first = w
			}
		}
		winnings[first] = g.Pot
	default:
		share, odd := g.Pot/len(winners), g.Pot%len(winners)
		// entries keep dealer order within a tie, so odd chips go to the earliest seats after the dealer
		for k, w := range winners {
			winnings[w] = share
			if k < odd {
				winnings[w]++
			}
		}
	}

	standings := make([]Standing, 0, len(g.Players))
	for i, e := range entries {
		hand := e.hand
		standings = append(standings, Standing{
			UserID:   e.player.UserID,
			Seat:     e.player.Seat,
			Position: positions[i],
			Cards:    e.cards,
			Hand:     &hand,
			HandName: hand.Category.String(),
			Winnings: winnings[i],
		})
	}
	for _, p := range g.Players {
		if p.Folded {
			standings = append(standings, Standing{UserID: p.UserID, Seat: p.Seat, Folded: true})
		}
	}
	g.finish(standings, false)
	return nil
}

// finish pays out standings and records the result
func (g *Game) finish(standings []Standing, foldOut bool) {
	for i := range standings {
		p := g.Players[standings[i].Seat]
		p.Chips += standings[i].Winnings
		p.Bet = 0
	}
	for i := range standings {
		p := g.Players[standings[i].Seat]
		standings[i].FinalChips = p.Chips
		standings[i].ChipDelta = p.Chips - p.StartingChips
	}
	if foldOut {
		sort.SliceStable(standings, func(i, j int) bool {
			return standings[i].Position == 1 && standings[j].Position != 1
		})
	}

	g.Result = &Result{
		GameID:    g.ID,
		Pot:       g.Pot,
		Board:     append([]deck.Card(nil), g.Community...),
		FoldOut:   foldOut,
		Standings: standings,
	}
	g.Pot = 0
	g.Street = Showdown
	g.CurrentPlayer = -1
}

// seatsFromDealer returns the players starting with the seat after the dealer
func (g *Game) seatsFromDealer() []*PlayerState {
	n := len(g.Players)
	out := make([]*PlayerState, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, g.Players[(g.Dealer+i)%n])
	}
	return out
}
