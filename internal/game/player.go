package game

import (
	"github.com/lox/triviaholdem/internal/deck"
	"github.com/lox/triviaholdem/internal/quiz"
)

// SpecialCard is a card whose visibility is gated behind a trivia question
type SpecialCard struct {
	Card       deck.Card       `json:"card"`
	Visible    bool            `json:"visible"`
	Difficulty quiz.Difficulty `json:"difficulty"`
	Question   *quiz.Question  `json:"question,omitempty"`
}

// PlayerState is one seat in a hand
type PlayerState struct {
	UserID        string        `json:"userId"`
	Seat          int           `json:"seat"`
	StartingChips int           `json:"startingChips"`
	Chips         int           `json:"chips"`
	Bet           int           `json:"bet"`      // this round
	TotalBet      int           `json:"totalBet"` // this hand
	Folded        bool          `json:"folded"`
	AllIn         bool          `json:"allIn"`
	Active        bool          `json:"active"`
	Acted         bool          `json:"acted"` // since the last bet or raise
	HoleCards     []deck.Card   `json:"holeCards"`
	SpecialCards  []SpecialCard `json:"specialCards"`
	Selected      []deck.Card   `json:"selected,omitempty"`
}

// CanAct returns true if the player still takes part in betting
func (p *PlayerState) CanAct() bool {
	return !p.Folded && !p.AllIn
}

// Owes returns the amount the player must add to match highestBet
func (p *PlayerState) Owes(highestBet int) int {
	return max(highestBet-p.Bet, 0)
}

// commit moves chips from the stack into the pot, going all-in when the stack runs out
func (p *PlayerState) commit(amount int) int {
	amount = min(amount, p.Chips)
	p.Chips -= amount
	p.Bet += amount
	p.TotalBet += amount
	if p.Chips == 0 {
		p.AllIn = true
		p.Active = false
	}
	return amount
}

// VisibleCards returns hole cards followed by revealed special cards
func (p *PlayerState) VisibleCards() []deck.Card {
	cards := append([]deck.Card(nil), p.HoleCards...)
	for _, sc := range p.SpecialCards {
		if sc.Visible {
			cards = append(cards, sc.Card)
		}
	}
	return cards
}

// selectable returns the card at index i of HoleCards ++ SpecialCards if it is visible
func (p *PlayerState) selectable(i int) (deck.Card, bool) {
	if i < 0 {
		return deck.Card{}, false
	}
	if i < len(p.HoleCards) {
		return p.HoleCards[i], true
	}
	i -= len(p.HoleCards)
	if i >= len(p.SpecialCards) || !p.SpecialCards[i].Visible {
		return deck.Card{}, false
	}
	return p.SpecialCards[i].Card, true
}

// ownsVisible reports whether c is one of the player's hole or revealed special cards
func (p *PlayerState) ownsVisible(c deck.Card) bool {
	for _, v := range p.VisibleCards() {
		if v == c {
			return true
		}
	}
	return false
}

// showdownCards returns the selected pair while it is still valid, else the hole cards
func (p *PlayerState) showdownCards() []deck.Card {
	if len(p.Selected) == 2 && p.ownsVisible(p.Selected[0]) && p.ownsVisible(p.Selected[1]) {
		return append([]deck.Card(nil), p.Selected...)
	}
	return append([]deck.Card(nil), p.HoleCards...)
}
