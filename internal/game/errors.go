package game

import (
	"errors"
	"fmt"
)

// Kind classifies an error independently of its message
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindPreconditionFailed
	KindForbidden
	KindConflict
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindPreconditionFailed:
		return "precondition_failed"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is a rejected operation. Two errors match under errors.Is when their
// codes are equal, so a sentinel still matches after WithMessage adds detail.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

// NewError creates an error of the given kind
func NewError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error with the same code
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// WithMessage returns a copy of e carrying a more specific message
func (e *Error) WithMessage(format string, args ...any) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if err != nil {
		return KindInternal
	}
	return KindUnknown
}

// CodeOf returns the code of the first *Error in err's chain, or "internal"
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal"
}

var (
	ErrNotInGame   = NewError(KindNotFound, "not_in_game", "player is not seated in this game")
	ErrHandOver    = NewError(KindPreconditionFailed, "hand_over", "the hand is over")
	ErrNotYourTurn = NewError(KindPreconditionFailed, "not_your_turn", "it is not your turn")

	ErrCannotCheck       = NewError(KindPreconditionFailed, "cannot_check", "cannot check while facing a bet")
	ErrNothingToCall     = NewError(KindPreconditionFailed, "nothing_to_call", "there is nothing to call")
	ErrBetNotAllowed     = NewError(KindPreconditionFailed, "bet_not_allowed", "cannot bet after a bet this round, raise instead")
	ErrRaiseNotAllowed   = NewError(KindPreconditionFailed, "raise_not_allowed", "nothing to raise, bet instead")
	ErrBelowMinimum      = NewError(KindPreconditionFailed, "below_minimum", "amount is below the minimum")
	ErrInsufficientChips = NewError(KindPreconditionFailed, "insufficient_chips", "not enough chips")
	ErrUnknownAction     = NewError(KindPreconditionFailed, "unknown_action", "unknown action")

	ErrInvalidCardIndex = NewError(KindPreconditionFailed, "invalid_card_index", "card index out of range")
	ErrAlreadyRevealed  = NewError(KindPreconditionFailed, "already_revealed", "card is already revealed")
	ErrNoQuestion       = NewError(KindNotFound, "no_question", "card has no question")
	ErrCardBurned       = NewError(KindPreconditionFailed, "card_burned", "card was burned")
	ErrInvalidSelection = NewError(KindPreconditionFailed, "invalid_selection", "invalid card selection")

	ErrInvariant = NewError(KindInternal, "invariant_violation", "game invariant violated")
)
