// Package game implements one hand of Trivia Hold'em: blinds, the betting
// rounds, question-gated special cards and the showdown.
//
// A Game is not safe for concurrent use. The room actor that owns it applies
// every operation in turn; each operation either succeeds or returns an
// *Error and leaves the state untouched.
//
// # Basic Usage
//
//	g, err := game.New(rng, []string{"alice", "bob"}, game.Config{SmallBlind: 5, BigBlind: 10, BuyIn: 1000})
//	err = g.ProcessAction("alice", game.Call, 0)
//	if g.Done() {
//	    result := g.Result
//	}
//
// Use WithDeck and WithDealer to script deterministic hands in tests.
package game

import (
	"errors"
	"fmt"
	rand "math/rand/v2"

	"github.com/lox/triviaholdem/internal/deck"
	"github.com/lox/triviaholdem/internal/gameid"
	"github.com/lox/triviaholdem/internal/quiz"
)

const (
	// MinPlayers is the smallest table that can start a hand
	MinPlayers = 2
	// MaxPlayers keeps 7 cards per seat plus the board inside one deck
	MaxPlayers = 6
	// MediumReward is the chip bonus for a correct medium answer
	MediumReward = 20
)

// specialTiers is the difficulty of each special card dealt to a seat
var specialTiers = []quiz.Difficulty{quiz.Easy, quiz.Easy, quiz.Medium, quiz.Hard, quiz.Extreme}

// TiePolicy decides how a pot is paid out when several players share first place.
type TiePolicy string

const (
	// TieSplit divides the pot evenly, odd chips going to the earliest seats after the dealer
	TieSplit TiePolicy = "split"
	// TieFirst pays the whole pot to the first tied winner in seat order
	TieFirst TiePolicy = "first"
)

// Valid reports whether p is a known policy
func (p TiePolicy) Valid() bool {
	return p == TieSplit || p == TieFirst
}

// Config holds the stakes of a hand
type Config struct {
	SmallBlind int       `json:"smallBlind"`
	BigBlind   int       `json:"bigBlind"`
	BuyIn      int       `json:"buyIn"`
	TiePolicy  TiePolicy `json:"tiePolicy"`
}

// Validate checks the stakes
func (c Config) Validate() error {
	if c.SmallBlind <= 0 || c.BigBlind <= c.SmallBlind {
		return fmt.Errorf("blinds must satisfy 0 < small (%d) < big (%d)", c.SmallBlind, c.BigBlind)
	}
	if c.BuyIn < c.BigBlind {
		return fmt.Errorf("buy-in %d is below the big blind %d", c.BuyIn, c.BigBlind)
	}
	if c.TiePolicy != "" && !c.TiePolicy.Valid() {
		return fmt.Errorf("unknown tie policy %q", c.TiePolicy)
	}
	return nil
}

// Game is the state of one hand
type Game struct {
	ID             string         `json:"id"`
	Config         Config         `json:"config"`
	Players        []*PlayerState `json:"players"`
	Deck           *deck.Deck     `json:"deck"`
	Street         Street         `json:"street"`
	Pot            int            `json:"pot"`
	CurrentPlayer  int            `json:"currentPlayer"` // -1 when nobody can act
	Dealer         int            `json:"dealer"`
	SmallBlindSeat int            `json:"smallBlindSeat"`
	BigBlindSeat   int            `json:"bigBlindSeat"`
	HighestBet     int            `json:"highestBet"`
	MinBet         int            `json:"minBet"`
	Community      []deck.Card    `json:"community"`
	StartingTotal  int            `json:"startingTotal"`
	Minted         int            `json:"minted"`
	Result         *Result        `json:"result,omitempty"`

	rng *rand.Rand
}

// New deals a new hand: it posts the blinds, deals two hole cards and five
// special cards to every seat and sets the first player to act.
func New(rng *rand.Rand, players []string, cfg Config, opts ...Option) (*Game, error) {
	if rng == nil {
		return nil, errors.New("game: rng is required")
	}
	if len(players) < MinPlayers || len(players) > MaxPlayers {
		return nil, fmt.Errorf("game: need %d to %d players, got %d", MinPlayers, MaxPlayers, len(players))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("game: %w", err)
	}
	if cfg.TiePolicy == "" {
		cfg.TiePolicy = TieSplit
	}

	o := &options{dealer: -1}
	for _, opt := range opts {
		opt(o)
	}
	if o.chips != nil && len(o.chips) != len(players) {
		return nil, fmt.Errorf("game: %d chip counts for %d players", len(o.chips), len(players))
	}
	if o.dealer >= len(players) {
		return nil, fmt.Errorf("game: dealer seat %d out of range", o.dealer)
	}

	g := &Game{
		ID:            o.id,
		Config:        cfg,
		Players:       make([]*PlayerState, len(players)),
		Deck:          o.deck,
		Street:        Preflop,
		CurrentPlayer: -1,
		Dealer:        o.dealer,
		MinBet:        cfg.BigBlind,
		rng:           rng,
	}
	if g.ID == "" {
		id, err := gameid.Game()
		if err != nil {
			return nil, err
		}
		g.ID = id
	}
	if g.Deck == nil {
		g.Deck = deck.NewShuffled(rng)
	}
	if g.Dealer < 0 {
		g.Dealer = rng.IntN(len(players))
	}

	seen := make(map[string]bool, len(players))
	for i, id := range players {
		if id == "" || seen[id] {
			return nil, fmt.Errorf("game: invalid or duplicate player %q", id)
		}
		seen[id] = true
		chips := cfg.BuyIn
		if o.chips != nil {
			chips = o.chips[i]
		}
		if chips <= 0 {
			return nil, fmt.Errorf("game: player %q has no chips", id)
		}
		g.Players[i] = &PlayerState{
			UserID:        id,
			Seat:          i,
			StartingChips: chips,
			Chips:         chips,
			Active:        true,
		}
		g.StartingTotal += chips
	}

	g.postBlinds()
	if err := g.deal(o.questions); err != nil {
		return nil, fmt.Errorf("game: %w", err)
	}

	// a blind can put everyone but one player all-in before anyone acts
	if g.roundComplete() {
		if err := g.nextStreet(); err != nil {
			return nil, fmt.Errorf("game: %w", err)
		}
	} else {
		g.CurrentPlayer = g.nextToAct(g.BigBlindSeat + 1)
	}
	return g, nil
}

// SetRand attaches a random source, e.g. after decoding a game from a snapshot
func (g *Game) SetRand(rng *rand.Rand) {
	g.rng = rng
	g.Deck.SetRand(rng)
}

func (g *Game) intN(n int) int {
	if g.rng == nil {
		return rand.IntN(n)
	}
	return g.rng.IntN(n)
}

func (g *Game) postBlinds() {
	n := len(g.Players)
	if n == 2 {
		// heads-up: the dealer posts the small blind
		g.SmallBlindSeat = g.Dealer
		g.BigBlindSeat = (g.Dealer + 1) % n
	} else {
		g.SmallBlindSeat = (g.Dealer + 1) % n
		g.BigBlindSeat = (g.Dealer + 2) % n
	}
	sb := g.Players[g.SmallBlindSeat].commit(g.Config.SmallBlind)
	bb := g.Players[g.BigBlindSeat].commit(g.Config.BigBlind)
	g.Pot = sb + bb
	g.HighestBet = max(sb, bb)
}

func (g *Game) deal(questions map[quiz.Difficulty][]quiz.Question) error {
	used := make(map[quiz.Difficulty]int)
	nextQuestion := func(d quiz.Difficulty) *quiz.Question {
		qs := questions[d]
		i := used[d]
		if i >= len(qs) {
			return nil
		}
		used[d]++
		q := qs[i]
		return &q
	}

	for _, p := range g.Players {
		hole, err := g.Deck.DealN(2)
		if err != nil {
			return fmt.Errorf("deal hole cards: %w", err)
		}
		p.HoleCards = hole

		cards, err := g.Deck.DealN(len(specialTiers))
		if err != nil {
			return fmt.Errorf("deal special cards: %w", err)
		}
		p.SpecialCards = make([]SpecialCard, len(cards))
		for i, c := range cards {
			p.SpecialCards[i] = SpecialCard{
				Card:       c,
				Difficulty: specialTiers[i],
				Question:   nextQuestion(specialTiers[i]),
			}
		}
	}
	return nil
}

// Done returns true once the hand has a result
func (g *Game) Done() bool {
	return g.Result != nil
}

// Player returns the state of userID
func (g *Game) Player(userID string) (*PlayerState, bool) {
	for _, p := range g.Players {
		if p.UserID == userID {
			return p, true
		}
	}
	return nil, false
}

// Current returns the player whose turn it is, or nil
func (g *Game) Current() *PlayerState {
	if g.Done() || g.CurrentPlayer < 0 || g.CurrentPlayer >= len(g.Players) {
		return nil
	}
	return g.Players[g.CurrentPlayer]
}

// ChipsInPlay returns the sum of every stack plus the pot
func (g *Game) ChipsInPlay() int {
	total := g.Pot
	for _, p := range g.Players {
		total += p.Chips
	}
	return total
}

// CheckInvariants verifies pot and chip conservation
func (g *Game) CheckInvariants() error {
	committed := 0
	for _, p := range g.Players {
		if p.Chips < 0 || p.Bet < 0 || p.TotalBet < 0 {
			return ErrInvariant.WithMessage("negative chips or bet for %s", p.UserID)
		}
		committed += p.TotalBet
	}
	if g.Result == nil && g.Pot != committed {
		return ErrInvariant.WithMessage("pot %d does not match committed chips %d", g.Pot, committed)
	}
	if got, want := g.ChipsInPlay(), g.StartingTotal+g.Minted; got != want {
		return ErrInvariant.WithMessage("chips in play %d, want %d", got, want)
	}
	return nil
}

// Abort ends the hand without a winner: every player gets back what they put
// in the pot. It is used when an invariant breaks mid-hand.
func (g *Game) Abort(reason string) {
	if g.Done() {
		return
	}
	pot := g.Pot
	for _, p := range g.Players {
		p.Chips += p.TotalBet
		p.Bet = 0
	}
	g.Pot = 0
	g.Street = Showdown
	g.CurrentPlayer = -1
	g.Result = &Result{
		GameID:  g.ID,
		Pot:     pot,
		Aborted: true,
		Reason:  reason,
		Board:   append([]deck.Card(nil), g.Community...),
	}
	for _, p := range g.Players {
		g.Result.Standings = append(g.Result.Standings, Standing{
			UserID:     p.UserID,
			Seat:       p.Seat,
			Folded:     p.Folded,
			Winnings:   p.TotalBet,
			FinalChips: p.Chips,
			ChipDelta:  p.Chips - p.StartingChips,
		})
	}
}

// guard checks an invariant after a mutation and aborts the hand if it broke
func (g *Game) guard(err error) error {
	if err == nil {
		err = g.CheckInvariants()
	}
	if err == nil {
		return nil
	}
	g.Abort(err.Error())
	if errors.Is(err, ErrInvariant) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrInvariant, err)
}
