package evaluator

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/lox/triviaholdem/internal/deck"
)

// Category is the class of a five-card poker hand. Its integer value is the
// hand's rank: 10 for a royal flush down to 1 for high card.
type Category int

const (
	HighCard Category = iota + 1
	OnePair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

// Rank returns the ordering key of the category (higher is stronger)
func (c Category) Rank() int {
	return int(c)
}

var categoryNames = [...]string{
	HighCard:      "High Card",
	OnePair:       "One Pair",
	TwoPair:       "Two Pair",
	ThreeOfAKind:  "Three of a Kind",
	Straight:      "Straight",
	Flush:         "Flush",
	FullHouse:     "Full House",
	FourOfAKind:   "Four of a Kind",
	StraightFlush: "Straight Flush",
	RoyalFlush:    "Royal Flush",
}

// String returns the display name of the category
func (c Category) String() string {
	if c < HighCard || c > RoyalFlush {
		return "Unknown"
	}
	return categoryNames[c]
}

// Hand is the best five-card hand found among the evaluated cards.
type Hand struct {
	Category Category
	// Cards holds the five cards in comparison order: the defining group first,
	// then kickers, each descending.
	Cards []deck.Card
	// Values are the comparison values of Cards. They equal the card ranks
	// except inside a wheel, where the Ace counts as 1.
	Values []int
}

// Rank returns the hand's category rank (10 = royal flush, 1 = high card)
func (h Hand) Rank() int {
	return h.Category.Rank()
}

// String returns a string representation of the hand
func (h Hand) String() string {
	cardStrs := make([]string, 0, len(h.Cards))
	for _, card := range h.Cards {
		cardStrs = append(cardStrs, card.String())
	}
	return fmt.Sprintf("%s [%s]", h.Category, strings.Join(cardStrs, " "))
}

// Compare orders hands by category, then position by position through
// Values. It returns -1, 0 or 1 as h1 is weaker than, equal to or stronger
// than h2.
func (h1 Hand) Compare(h2 Hand) int {
	if c := cmp.Compare(h1.Category, h2.Category); c != 0 {
		return c
	}
	return slices.Compare(h1.Values, h2.Values)
}

// Beats returns true if this hand beats the other hand
func (h1 Hand) Beats(h2 Hand) bool {
	return h1.Compare(h2) > 0
}

// Ties returns true if both hands are equal in strength
func (h1 Hand) Ties(h2 Hand) bool {
	return h1.Compare(h2) == 0
}
