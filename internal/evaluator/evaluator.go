// Package evaluator finds the best five-card poker hand among five to seven cards.
//
// Evaluate is a pure function: it never mutates its input and returns the same
// Hand for the same set of cards regardless of their order.
package evaluator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/lox/triviaholdem/internal/deck"
)

var (
	// ErrCardCount is returned when fewer than 5 or more than 7 cards are evaluated
	ErrCardCount = errors.New("evaluator: need between 5 and 7 cards")
	// ErrDuplicateCard is returned when the same card appears twice
	ErrDuplicateCard = errors.New("evaluator: duplicate card")
)

// Evaluate returns the best five-card hand among 5 to 7 cards.
func Evaluate(cards []deck.Card) (Hand, error) {
	if len(cards) < 5 || len(cards) > 7 {
		return Hand{}, fmt.Errorf("%w: got %d", ErrCardCount, len(cards))
	}
	seen := make(map[deck.Card]bool, len(cards))
	for _, c := range cards {
		if seen[c] {
			return Hand{}, fmt.Errorf("%w: %s", ErrDuplicateCard, c)
		}
		seen[c] = true
	}

	sorted := sortDesc(cards)

	if h, ok := straightFlush(sorted); ok {
		return h, nil
	}

	groups := groupByRank(sorted)

	if h, ok := fourOfAKind(sorted, groups); ok {
		return h, nil
	}
	if h, ok := fullHouse(groups); ok {
		return h, nil
	}
	if h, ok := flush(sorted); ok {
		return h, nil
	}
	if run, ok := findStraight(sorted); ok {
		return straightHand(Straight, run), nil
	}
	if h, ok := threeOfAKind(sorted, groups); ok {
		return h, nil
	}
	if h, ok := twoPair(sorted, groups); ok {
		return h, nil
	}
	if h, ok := onePair(sorted, groups); ok {
		return h, nil
	}
	return newHand(HighCard, sorted[:5]), nil
}

// MustEvaluate evaluates cards and panics on error (for tests)
func MustEvaluate(cards []deck.Card) Hand {
	h, err := Evaluate(cards)
	if err != nil {
		panic(err)
	}
	return h
}

// rankGroup is every card of one rank, strongest rank first
type rankGroup struct {
	rank  deck.Rank
	cards []deck.Card
}

func sortDesc(cards []deck.Card) []deck.Card {
	out := make([]deck.Card, len(cards))
	copy(out, cards)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Rank != out[j].Rank {
			return out[i].Rank > out[j].Rank
		}
		return out[i].Suit < out[j].Suit
	})
	return out
}

// groupByRank groups sorted cards by rank, larger groups first, then higher ranks.
func groupByRank(sorted []deck.Card) []rankGroup {
	var groups []rankGroup
	for _, c := range sorted {
		if n := len(groups); n > 0 && groups[n-1].rank == c.Rank {
			groups[n-1].cards = append(groups[n-1].cards, c)
			continue
		}
		groups = append(groups, rankGroup{rank: c.Rank, cards: []deck.Card{c}})
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if len(groups[i].cards) != len(groups[j].cards) {
			return len(groups[i].cards) > len(groups[j].cards)
		}
		return groups[i].rank > groups[j].rank
	})
	return groups
}

// kickers returns the n highest cards whose rank is not excluded
func kickers(sorted []deck.Card, n int, exclude ...deck.Rank) []deck.Card {
	out := make([]deck.Card, 0, n)
outer:
	for _, c := range sorted {
		if len(out) == n {
			break
		}
		for _, r := range exclude {
			if c.Rank == r {
				continue outer
			}
		}
		out = append(out, c)
	}
	return out
}

func newHand(cat Category, cards []deck.Card) Hand {
	h := Hand{
		Category: cat,
		Cards:    append([]deck.Card(nil), cards...),
		Values:   make([]int, len(cards)),
	}
	for i, c := range cards {
		h.Values[i] = c.Value()
	}
	return h
}

// findStraight returns the highest five-card run in sorted, Ace-low wheel last.
func findStraight(sorted []deck.Card) ([]deck.Card, bool) {
	byRank := make(map[deck.Rank]deck.Card, len(sorted))
	for _, c := range sorted {
		if _, ok := byRank[c.Rank]; !ok {
			byRank[c.Rank] = c
		}
	}

	for high := deck.Ace; high >= deck.Six; high-- {
		run := make([]deck.Card, 0, 5)
		for r := high; r > high-5; r-- {
			c, ok := byRank[r]
			if !ok {
				break
			}
			run = append(run, c)
		}
		if len(run) == 5 {
			return run, true
		}
	}

	ace, ok := byRank[deck.Ace]
	if !ok {
		return nil, false
	}
	run := make([]deck.Card, 0, 5)
	for r := deck.Five; r >= deck.Two; r-- {
		c, ok := byRank[r]
		if !ok {
			return nil, false
		}
		run = append(run, c)
	}
	return append(run, ace), true
}

// straightHand builds a straight or straight flush, valuing a trailing Ace as 1.
func straightHand(cat Category, run []deck.Card) Hand {
	h := newHand(cat, run)
	if run[0].Rank == deck.Five && run[4].Rank == deck.Ace {
		h.Values[4] = 1
	}
	return h
}

func straightFlush(sorted []deck.Card) (Hand, bool) {
	var best Hand
	found := false
	for suit := deck.Spades; suit <= deck.Clubs; suit++ {
		suited := make([]deck.Card, 0, len(sorted))
		for _, c := range sorted {
			if c.Suit == suit {
				suited = append(suited, c)
			}
		}
		if len(suited) < 5 {
			continue
		}
		run, ok := findStraight(suited)
		if !ok {
			continue
		}
		h := straightHand(StraightFlush, run)
		if h.Values[0] == int(deck.Ace) {
			h.Category = RoyalFlush
		}
		if !found || h.Beats(best) {
			best, found = h, true
		}
	}
	return best, found
}

func fourOfAKind(sorted []deck.Card, groups []rankGroup) (Hand, bool) {
	if len(groups[0].cards) != 4 {
		return Hand{}, false
	}
	quad := groups[0]
	cards := append(append([]deck.Card(nil), quad.cards...), kickers(sorted, 1, quad.rank)...)
	return newHand(FourOfAKind, cards), true
}

func fullHouse(groups []rankGroup) (Hand, bool) {
	if len(groups[0].cards) != 3 {
		return Hand{}, false
	}
	trips := groups[0]
	// groups are ordered by size then rank, so the best pair (or a second,
	// lower triple) is the highest remaining group with at least two cards
	var pair *rankGroup
	for i := 1; i < len(groups); i++ {
		if len(groups[i].cards) >= 2 && (pair == nil || groups[i].rank > pair.rank) {
			pair = &groups[i]
		}
	}
	if pair == nil {
		return Hand{}, false
	}
	cards := append(append([]deck.Card(nil), trips.cards...), pair.cards[:2]...)
	return newHand(FullHouse, cards), true
}

func flush(sorted []deck.Card) (Hand, bool) {
	for suit := deck.Spades; suit <= deck.Clubs; suit++ {
		suited := make([]deck.Card, 0, 5)
		for _, c := range sorted {
			if c.Suit == suit && len(suited) < 5 {
				suited = append(suited, c)
			}
		}
		if len(suited) == 5 {
			return newHand(Flush, suited), true
		}
	}
	return Hand{}, false
}

func threeOfAKind(sorted []deck.Card, groups []rankGroup) (Hand, bool) {
	if len(groups[0].cards) != 3 {
		return Hand{}, false
	}
	trips := groups[0]
	cards := append(append([]deck.Card(nil), trips.cards...), kickers(sorted, 2, trips.rank)...)
	return newHand(ThreeOfAKind, cards), true
}

func twoPair(sorted []deck.Card, groups []rankGroup) (Hand, bool) {
	if len(groups) < 2 || len(groups[0].cards) != 2 || len(groups[1].cards) != 2 {
		return Hand{}, false
	}
	high, low := groups[0], groups[1]
	cards := append(append([]deck.Card(nil), high.cards...), low.cards...)
	cards = append(cards, kickers(sorted, 1, high.rank, low.rank)...)
	return newHand(TwoPair, cards), true
}

func onePair(sorted []deck.Card, groups []rankGroup) (Hand, bool) {
	if len(groups[0].cards) != 2 {
		return Hand{}, false
	}
	pair := groups[0]
	cards := append(append([]deck.Card(nil), pair.cards...), kickers(sorted, 3, pair.rank)...)
	return newHand(OnePair, cards), true
}
