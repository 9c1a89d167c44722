package game

import (
	"encoding/json"
	"fmt"
)

// Street represents the betting round
type Street int

const (
	Preflop Street = iota
	Flop
	Turn
	River
	Showdown
)

func (s Street) String() string {
	if s < Preflop || s > Showdown {
		return "unknown"
	}
	return [...]string{"preflop", "flop", "turn", "river", "showdown"}[s]
}

// MarshalText encodes the street by name
func (s Street) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a street name
func (s *Street) UnmarshalText(text []byte) error {
	for st := Preflop; st <= Showdown; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown street %q", text)
}

// Action represents a player action
type Action int

const (
	Fold Action = iota
	Check
	Call
	Bet
	Raise
)

func (a Action) String() string {
	if a < Fold || a > Raise {
		return "unknown"
	}
	return [...]string{"fold", "check", "call", "bet", "raise"}[a]
}

// ParseAction parses an action name
func ParseAction(s string) (Action, error) {
	for a := Fold; a <= Raise; a++ {
		if a.String() == s {
			return a, nil
		}
	}
	return 0, ErrUnknownAction.WithMessage("unknown action %q", s)
}

// MarshalJSON encodes the action by name
func (a Action) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// ProcessAction applies a betting action for userID. amount is used by Bet
// (the bet size) and Raise (the increment over the highest bet).
func (g *Game) ProcessAction(userID string, action Action, amount int) error {
	p, err := g.actor(userID)
	if err != nil {
		return err
	}

	switch action {
	case Fold:
		p.Folded = true
		p.Active = false

	case Check:
		if p.Bet < g.HighestBet {
			return ErrCannotCheck.WithMessage("cannot check, must call %d", g.HighestBet-p.Bet)
		}

	case Call:
		owed := p.Owes(g.HighestBet)
		if owed <= 0 {
			return ErrNothingToCall
		}
		// a short stack calls all-in for what it has
		g.Pot += p.commit(owed)

	case Bet:
		if g.HighestBet != 0 {
			return ErrBetNotAllowed
		}
		if amount < g.MinBet {
			return ErrBelowMinimum.WithMessage("bet %d is below the minimum %d", amount, g.MinBet)
		}
		if amount > p.Chips {
			return ErrInsufficientChips.WithMessage("bet %d exceeds stack %d", amount, p.Chips)
		}
		g.Pot += p.commit(amount)
		g.HighestBet = p.Bet
		g.MinBet = amount
		g.reopen(p.Seat)

	case Raise:
		if g.HighestBet == 0 {
			return ErrRaiseNotAllowed
		}
		if amount < g.MinBet {
			return ErrBelowMinimum.WithMessage("raise %d is below the minimum %d", amount, g.MinBet)
		}
		total := g.HighestBet + amount
		raiseAmount := total - p.Bet
		if raiseAmount > p.Chips {
			return ErrInsufficientChips.WithMessage("raise needs %d, stack is %d", raiseAmount, p.Chips)
		}
		g.Pot += p.commit(raiseAmount)
		g.HighestBet = total
		g.MinBet = amount
		g.reopen(p.Seat)

	default:
		return ErrUnknownAction
	}

	p.Acted = true
	return g.guard(g.advance(p.Seat + 1))
}

// ForceTimeout acts for a player who ran out of time: a check when nothing is
// owed, otherwise a fold. It returns the action taken.
func (g *Game) ForceTimeout(userID string) (Action, error) {
	p, err := g.actor(userID)
	if err != nil {
		return 0, err
	}
	action := Fold
	if p.Owes(g.HighestBet) == 0 {
		action = Check
	}
	return action, g.ProcessAction(userID, action, 0)
}

// ForceFold folds userID regardless of turn order, e.g. when they leave the room.
// It is a no-op for a player who already folded or a finished hand.
func (g *Game) ForceFold(userID string) error {
	if g.Done() {
		return nil
	}
	p, ok := g.Player(userID)
	if !ok {
		return ErrNotInGame
	}
	if p.Folded {
		return nil
	}
	p.Folded = true
	p.Active = false
	p.Acted = true

	from := g.CurrentPlayer
	if p.Seat == g.CurrentPlayer {
		from = p.Seat + 1
	}
	return g.guard(g.advance(from))
}

// actor returns the current player if it is userID, else an error
func (g *Game) actor(userID string) (*PlayerState, error) {
	if g.Done() {
		return nil, ErrHandOver
	}
	p, ok := g.Player(userID)
	if !ok {
		return nil, ErrNotInGame
	}
	if p.Seat != g.CurrentPlayer {
		return nil, ErrNotYourTurn
	}
	return p, nil
}

// reopen makes every other player act again after a bet or raise
func (g *Game) reopen(seat int) {
	for _, p := range g.Players {
		if p.Seat != seat {
			p.Acted = false
		}
	}
}

// advance moves the hand forward after an action: fold-out, next street or next player.
func (g *Game) advance(from int) error {
	if g.remaining() == 1 {
		return g.foldOut()
	}
	if g.roundComplete() {
		return g.nextStreet()
	}
	g.CurrentPlayer = g.nextToAct(from)
	return nil
}

// nextToAct returns the first seat at or after from that can act, or -1
func (g *Game) nextToAct(from int) int {
	n := len(g.Players)
	for i := 0; i < n; i++ {
		seat := ((from+i)%n + n) % n
		if g.Players[seat].CanAct() {
			return seat
		}
	}
	return -1
}

// remaining counts players who have not folded
func (g *Game) remaining() int {
	count := 0
	for _, p := range g.Players {
		if !p.Folded {
			count++
		}
	}
	return count
}

// actionable counts players who have neither folded nor gone all-in
func (g *Game) actionable() int {
	count := 0
	for _, p := range g.Players {
		if p.CanAct() {
			count++
		}
	}
	return count
}

// roundComplete reports whether every player who can act has acted since the
// last bet and matched the highest bet. A lone player who can act only needs
// to have matched it.
func (g *Game) roundComplete() bool {
	actionable, matched, acted := 0, 0, 0
	for _, p := range g.Players {
		if !p.CanAct() {
			continue
		}
		actionable++
		if p.Bet == g.HighestBet {
			matched++
			if p.Acted {
				acted++
			}
		}
	}
	if actionable <= 1 {
		return matched == actionable
	}
	return acted == actionable
}

// nextStreet closes the betting round and deals the next street. When at most
// one player can still bet, the board runs out straight to the showdown.
func (g *Game) nextStreet() error {
	for {
		for _, p := range g.Players {
			p.Bet = 0
			p.Acted = false
		}
		g.HighestBet = 0
		g.MinBet = g.Config.BigBlind

		var n int
		switch g.Street {
		case Preflop:
			n = 3
		case Flop, Turn:
			n = 1
		case River:
			g.Street = Showdown
			g.CurrentPlayer = -1
			return g.showdown()
		default:
			return nil
		}
		cards, err := g.Deck.DealN(n)
		if err != nil {
			return fmt.Errorf("deal %s: %w", g.Street+1, err)
		}
		g.Community = append(g.Community, cards...)
		g.Street++

		g.CurrentPlayer = g.nextToAct(g.Dealer + 1)
		if g.actionable() > 1 {
			return nil
		}
	}
}
