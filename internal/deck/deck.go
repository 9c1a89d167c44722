package deck

import (
	"encoding/json"
	"errors"
	"fmt"
	rand "math/rand/v2"
)

// Size is the number of cards in a standard deck
const Size = 52

// ErrEmpty is returned when dealing from an exhausted deck
var ErrEmpty = errors.New("deck: no cards remaining")

// Deck represents a deck of playing cards. The top of the deck is cards[0].
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// New creates a standard 52-card deck in suit/rank order. Call Shuffle before dealing.
func New(rng *rand.Rand) *Deck {
	d := &Deck{
		cards: make([]Card, 0, Size),
		rng:   rng,
	}
	d.fill()
	return d
}

// NewShuffled creates a standard deck and shuffles it once
func NewShuffled(rng *rand.Rand) *Deck {
	d := New(rng)
	d.Shuffle()
	return d
}

// Stacked creates a deck whose top cards are exactly top, in order, followed by
// the remaining cards of a standard deck in suit/rank order. Used to script
// deterministic hands.
func Stacked(top ...Card) (*Deck, error) {
	seen := make(map[Card]bool, Size)
	cards := make([]Card, 0, Size)
	for _, c := range top {
		if !c.Valid() {
			return nil, fmt.Errorf("stacked deck: invalid card %v", c)
		}
		if seen[c] {
			return nil, fmt.Errorf("stacked deck: duplicate card %s", c)
		}
		seen[c] = true
		cards = append(cards, c)
	}
	for _, c := range standardCards() {
		if !seen[c] {
			cards = append(cards, c)
		}
	}
	return &Deck{cards: cards}, nil
}

func (d *Deck) fill() {
	d.cards = append(d.cards[:0], standardCards()...)
}

func standardCards() []Card {
	cards := make([]Card, 0, Size)
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			cards = append(cards, NewCard(suit, rank))
		}
	}
	return cards
}

// Shuffle randomizes the order of the remaining cards using Fisher-Yates
func (d *Deck) Shuffle() {
	for i := len(d.cards) - 1; i > 0; i-- {
		var j int
		if d.rng != nil {
			j = d.rng.IntN(i + 1)
		} else {
			j = rand.IntN(i + 1)
		}
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Deal removes and returns the top card from the deck
func (d *Deck) Deal() (Card, error) {
	if len(d.cards) == 0 {
		return Card{}, ErrEmpty
	}
	card := d.cards[0]
	d.cards = d.cards[1:]
	return card, nil
}

// DealN deals n cards from the deck. Nothing is dealt if fewer than n remain.
func (d *Deck) DealN(n int) ([]Card, error) {
	if n > len(d.cards) {
		return nil, fmt.Errorf("deal %d: %w (%d left)", n, ErrEmpty, len(d.cards))
	}
	cards := make([]Card, n)
	copy(cards, d.cards[:n])
	d.cards = d.cards[n:]
	return cards, nil
}

// Peek returns the top card without removing it from the deck
func (d *Deck) Peek() (Card, bool) {
	if len(d.cards) == 0 {
		return Card{}, false
	}
	return d.cards[0], true
}

// CardsRemaining returns the number of cards left in the deck
func (d *Deck) CardsRemaining() int {
	return len(d.cards)
}

// Cards returns a copy of the undealt cards, top first
func (d *Deck) Cards() []Card {
	out := make([]Card, len(d.cards))
	copy(out, d.cards)
	return out
}

// SetRand replaces the shuffle source, e.g. after restoring a deck from a snapshot
func (d *Deck) SetRand(rng *rand.Rand) {
	d.rng = rng
}

// MarshalJSON encodes the remaining cards, top first
func (d *Deck) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.cards)
}

// UnmarshalJSON restores the remaining cards, rejecting duplicates
func (d *Deck) UnmarshalJSON(data []byte) error {
	var cards []Card
	if err := json.Unmarshal(data, &cards); err != nil {
		return err
	}
	seen := make(map[Card]bool, len(cards))
	for _, c := range cards {
		if seen[c] {
			return fmt.Errorf("deck snapshot: duplicate card %s", c)
		}
		seen[c] = true
	}
	d.cards = cards
	return nil
}
