package room

import (
	"github.com/lox/triviaholdem/internal/deck"
	"github.com/lox/triviaholdem/internal/game"
	"github.com/lox/triviaholdem/internal/quiz"
)

// Command is an inbound request for one room. The set of commands is closed:
// every variant is declared in this file and handled by the room actor.
type Command interface {
	isCommand()
}

type (
	JoinRoom struct {
		UserID   string
		Password string
	}
	LeaveRoom struct {
		UserID string
	}
	SetReady struct {
		UserID string
		Ready  bool
	}
	StartGame struct {
		UserID string
	}
	// NewHand returns an ended room to waiting so the host can start again.
	NewHand struct {
		UserID string
	}
	Fold struct {
		UserID string
	}
	Check struct {
		UserID string
	}
	Call struct {
		UserID string
	}
	Bet struct {
		UserID string
		Amount int
	}
	// Raise raises by Amount over the highest bet.
	Raise struct {
		UserID string
		Amount int
	}
	AnswerQuestion struct {
		UserID    string
		CardIndex int
		Answer    string
	}
	// SelectCards picks two visible cards by index into hole cards followed by special cards.
	SelectCards struct {
		UserID string
		First  int
		Second int
	}
	ForceTimeout struct {
		UserID string
	}
	Disconnect struct {
		UserID string
	}
	Reconnect struct {
		UserID string
	}
)

// internal commands, submitted by the registry and the turn timer
type (
	startCheck struct {
		userID string
	}
	beginGame struct {
		userID    string
		questions map[quiz.Difficulty][]quiz.Question
	}
	questionLookup struct {
		userID    string
		cardIndex int
	}
	answerVerdict struct {
		userID    string
		cardIndex int
		card      deck.Card
		correct   bool
	}
	turnExpired struct {
		seq uint64
	}
	viewRequest struct {
		userID string
	}
	snapshotRequest struct{}
)

func (JoinRoom) isCommand()       {}
func (LeaveRoom) isCommand()      {}
func (SetReady) isCommand()       {}
func (StartGame) isCommand()      {}
func (NewHand) isCommand()        {}
func (Fold) isCommand()           {}
func (Check) isCommand()          {}
func (Call) isCommand()           {}
func (Bet) isCommand()            {}
func (Raise) isCommand()          {}
func (AnswerQuestion) isCommand() {}
func (SelectCards) isCommand()    {}
func (ForceTimeout) isCommand()   {}
func (Disconnect) isCommand()     {}
func (Reconnect) isCommand()      {}

func (startCheck) isCommand()      {}
func (beginGame) isCommand()       {}
func (questionLookup) isCommand()  {}
func (answerVerdict) isCommand()   {}
func (turnExpired) isCommand()     {}
func (viewRequest) isCommand()     {}
func (snapshotRequest) isCommand() {}

// bettingAction maps a betting command to its engine action
func bettingAction(cmd Command) (userID string, action game.Action, amount int, ok bool) {
	switch c := cmd.(type) {
	case Fold:
		return c.UserID, game.Fold, 0, true
	case Check:
		return c.UserID, game.Check, 0, true
	case Call:
		return c.UserID, game.Call, 0, true
	case Bet:
		return c.UserID, game.Bet, c.Amount, true
	case Raise:
		return c.UserID, game.Raise, c.Amount, true
	}
	return "", 0, 0, false
}
