package game

import (
	"context"

	"github.com/lox/triviaholdem/internal/deck"
	"github.com/lox/triviaholdem/internal/quiz"
)

// Reward is what a player learns or gains from answering a special card's question
type Reward struct {
	Card       deck.Card       `json:"card"`
	Difficulty quiz.Difficulty `json:"difficulty"`
	Correct    bool            `json:"correct"`
	Burned     bool            `json:"burned,omitempty"`
	Chips      int             `json:"chips,omitempty"`
	// Cards are disclosed only to the answering player: the top of the deck
	// for a hard card, an opponent's first hole card for an extreme one.
	Cards    []deck.Card `json:"cards,omitempty"`
	Opponent string      `json:"opponent,omitempty"`
}

// QuestionFor returns the question guarding special card index of userID,
// together with the card itself so the answer can later be applied by identity.
func (g *Game) QuestionFor(userID string, index int) (quiz.Question, deck.Card, error) {
	if g.Done() {
		return quiz.Question{}, deck.Card{}, ErrHandOver
	}
	p, ok := g.Player(userID)
	if !ok {
		return quiz.Question{}, deck.Card{}, ErrNotInGame
	}
	if index < 0 || index >= len(p.SpecialCards) {
		return quiz.Question{}, deck.Card{}, ErrInvalidCardIndex.WithMessage("card index %d out of range [0,%d)", index, len(p.SpecialCards))
	}
	sc := p.SpecialCards[index]
	if sc.Visible {
		return quiz.Question{}, deck.Card{}, ErrAlreadyRevealed
	}
	if sc.Question == nil {
		return quiz.Question{}, deck.Card{}, ErrNoQuestion
	}
	return *sc.Question, sc.Card, nil
}

// ApplyAnswer records the verdict for the special card card of userID. The
// card is looked up again by identity, so a verdict computed against stale
// state is rejected if the card was burned or revealed in the meantime.
// A correct answer reveals the card and pays its reward; a wrong one burns it.
func (g *Game) ApplyAnswer(userID string, card deck.Card, correct bool) (Reward, error) {
	if g.Done() {
		return Reward{}, ErrHandOver
	}
	p, ok := g.Player(userID)
	if !ok {
		return Reward{}, ErrNotInGame
	}
	index := -1
	for i, sc := range p.SpecialCards {
		if sc.Card == card {
			index = i
			break
		}
	}
	if index < 0 {
		return Reward{}, ErrCardBurned
	}
	sc := &p.SpecialCards[index]
	if sc.Visible {
		return Reward{}, ErrAlreadyRevealed
	}

	reward := Reward{Card: sc.Card, Difficulty: sc.Difficulty, Correct: correct}
	if !correct {
		p.SpecialCards = append(p.SpecialCards[:index:index], p.SpecialCards[index+1:]...)
		reward.Burned = true
		return reward, nil
	}

	sc.Visible = true
	switch sc.Difficulty {
	case quiz.Medium:
		p.Chips += MediumReward
		g.Minted += MediumReward
		reward.Chips = MediumReward
	case quiz.Hard:
		if top, ok := g.Deck.Peek(); ok {
			reward.Cards = []deck.Card{top}
		}
	case quiz.Extreme:
		var opponents []*PlayerState
		for _, o := range g.Players {
			if o.UserID != userID && !o.Folded {
				opponents = append(opponents, o)
			}
		}
		if len(opponents) > 0 {
			o := opponents[g.intN(len(opponents))]
			reward.Opponent = o.UserID
			reward.Cards = []deck.Card{o.HoleCards[0]}
		}
	}
	return reward, g.guard(nil)
}

// AnswerQuestion resolves, checks and applies an answer in one call. The room
// actor splits these steps so the check runs outside the actor.
func (g *Game) AnswerQuestion(ctx context.Context, src quiz.Source, userID string, index int, answer string) (Reward, error) {
	q, card, err := g.QuestionFor(userID, index)
	if err != nil {
		return Reward{}, err
	}
	correct, err := src.CheckAnswer(ctx, q, answer)
	if err != nil {
		return Reward{}, err
	}
	return g.ApplyAnswer(userID, card, correct)
}

// SelectCards chooses the two cards userID plays at the showdown. Indices
// address HoleCards followed by SpecialCards and both cards must be visible.
// Selection is only open on the river.
func (g *Game) SelectCards(userID string, i, j int) error {
	if g.Done() {
		return ErrHandOver
	}
	p, ok := g.Player(userID)
	if !ok {
		return ErrNotInGame
	}
	if g.Street != River {
		return ErrInvalidSelection.WithMessage("cards can only be selected on the river")
	}
	if p.Folded {
		return ErrInvalidSelection.WithMessage("folded players cannot select cards")
	}
	if i == j {
		return ErrInvalidSelection.WithMessage("select two different cards")
	}
	a, okA := p.selectable(i)
	b, okB := p.selectable(j)
	if !okA || !okB {
		return ErrInvalidSelection.WithMessage("cards %d and %d must exist and be visible", i, j)
	}
	p.Selected = []deck.Card{a, b}
	return nil
}
