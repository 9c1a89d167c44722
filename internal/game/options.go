package game

import (
	"github.com/lox/triviaholdem/internal/deck"
	"github.com/lox/triviaholdem/internal/quiz"
)

// Option configures a Game during creation.
type Option func(*options)

type options struct {
	id        string
	dealer    int // -1 picks a random seat
	deck      *deck.Deck
	chips     []int
	questions map[quiz.Difficulty][]quiz.Question
}

// WithID sets the game ID instead of generating one
func WithID(id string) Option {
	return func(o *options) {
		o.id = id
	}
}

// WithDealer fixes the dealer seat instead of choosing one at random.
func WithDealer(seat int) Option {
	return func(o *options) {
		o.dealer = seat
	}
}

// WithDeck uses the provided deck as is (no shuffle). Tests use deck.Stacked
// to script hands.
func WithDeck(d *deck.Deck) Option {
	return func(o *options) {
		o.deck = d
	}
}

// WithChips sets individual starting stacks; the length must match the
// number of players. Without it every player starts with the buy-in.
func WithChips(chips []int) Option {
	return func(o *options) {
		o.chips = chips
	}
}

// WithQuestions attaches questions to special cards. Each seat consumes, in
// seat order, two easy questions and one of every other difficulty. Cards
// left without a question cannot be revealed.
func WithQuestions(byDifficulty map[quiz.Difficulty][]quiz.Question) Option {
	return func(o *options) {
		o.questions = byDifficulty
	}
}
