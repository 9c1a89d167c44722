package game

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lox/triviaholdem/internal/deck"
	"github.com/lox/triviaholdem/internal/randutil"
)

var testConfig = Config{SmallBlind: 5, BigBlind: 10, BuyIn: 1000}

// seatCards scripts one seat of a stacked deck. Missing special cards are
// filled with unused low cards.
type seatCards struct {
	hole     string
	specials string
}

// scriptedDeck stacks a deck in dealing order: every seat's hole and special
// cards, then the flop, turn and river.
func scriptedDeck(t *testing.T, seats []seatCards, board string) *deck.Deck {
	t.Helper()
	used := make(map[deck.Card]bool)
	mark := func(cards []deck.Card) {
		for _, c := range cards {
			used[c] = true
		}
	}
	for _, s := range seats {
		mark(deck.MustParseCards(s.hole))
		mark(deck.MustParseCards(s.specials))
	}
	mark(deck.MustParseCards(board))

	var filler []deck.Card
	for _, c := range deck.New(nil).Cards() {
		if !used[c] {
			filler = append(filler, c)
		}
	}

	var top []deck.Card
	for _, s := range seats {
		hole := deck.MustParseCards(s.hole)
		require.Len(t, hole, 2, "hole cards")
		top = append(top, hole...)
		specials := deck.MustParseCards(s.specials)
		for len(specials) < len(specialTiers) {
			specials = append(specials, filler[0])
			filler = filler[1:]
		}
		top = append(top, specials...)
	}
	top = append(top, deck.MustParseCards(board)...)

	d, err := deck.Stacked(top...)
	require.NoError(t, err)
	return d
}

func newTestGame(t *testing.T, players []string, opts ...Option) *Game {
	t.Helper()
	g, err := New(randutil.New(1), players, testConfig, opts...)
	require.NoError(t, err)
	requireConserved(t, g)
	return g
}

func requireConserved(t *testing.T, g *Game) {
	t.Helper()
	require.NoError(t, g.CheckInvariants())
	require.Equal(t, g.StartingTotal+g.Minted, g.ChipsInPlay())
}

func act(t *testing.T, g *Game, userID string, action Action, amount int) {
	t.Helper()
	require.NoError(t, g.ProcessAction(userID, action, amount), "%s %s %d", userID, action, amount)
	requireConserved(t, g)
}

func currentID(g *Game) string {
	if p := g.Current(); p != nil {
		return p.UserID
	}
	return ""
}
