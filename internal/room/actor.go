package room

import (
	"context"
	"encoding/json"
	"fmt"
	rand "math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/triviaholdem/internal/deck"
	"github.com/lox/triviaholdem/internal/game"
	"github.com/lox/triviaholdem/internal/quiz"
)

const inboxSize = 64

type envelope struct {
	cmd   Command
	reply chan reply
}

type reply struct {
	value any
	err   error
}

// questionRef is the answer to a questionLookup
type questionRef struct {
	question quiz.Question
	card     deck.Card
}

// actor owns one Room. Every read and write of the room happens on the actor
// goroutine; other goroutines talk to it through the inbox.
type actor struct {
	reg    *Registry
	room   *Room
	rng    *rand.Rand
	logger *log.Logger

	inbox    chan envelope
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	// info is the latest RoomInfo, readable without going through the inbox
	info atomic.Pointer[RoomInfo]

	timer   *quartz.Timer
	turnSeq uint64
}

func newActor(reg *Registry, r *Room, rng *rand.Rand) *actor {
	a := &actor{
		reg:    reg,
		room:   r,
		rng:    rng,
		logger: reg.logger.With("room", r.ID),
		inbox:  make(chan envelope, inboxSize),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	if r.Ready == nil {
		r.Ready = make(map[string]bool)
	}
	if r.Disconnected == nil {
		r.Disconnected = make(map[string]bool)
	}
	if r.Game != nil {
		r.Game.SetRand(rng)
	}
	a.storeInfo()
	return a
}

// Info returns the latest published summary of the room
func (a *actor) Info() RoomInfo {
	return *a.info.Load()
}

func (a *actor) storeInfo() {
	info := a.room.Info()
	a.info.Store(&info)
}

// send delivers cmd to the actor and waits for its reply
func (a *actor) send(ctx context.Context, cmd Command) (any, error) {
	env := envelope{cmd: cmd, reply: make(chan reply, 1)}
	select {
	case a.inbox <- env:
	case <-a.done:
		return nil, ErrRoomClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case r := <-env.reply:
		return r.value, r.err
	case <-a.done:
		select {
		case r := <-env.reply:
			return r.value, r.err
		default:
			return nil, ErrRoomClosed
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// post delivers cmd without waiting for a reply
func (a *actor) post(cmd Command) {
	select {
	case a.inbox <- envelope{cmd: cmd, reply: make(chan reply, 1)}:
	case <-a.done:
	}
}

func (a *actor) run() {
	defer close(a.done)
	if a.playing() {
		a.armTimer()
	}
	for {
		select {
		case env := <-a.inbox:
			v, err := a.dispatch(env.cmd)
			env.reply <- reply{value: v, err: err}
		case <-a.stop:
			a.stopTimer()
			return
		}
	}
}

func (a *actor) close() {
	a.stopOnce.Do(func() { close(a.stop) })
	<-a.done
}

// dispatch handles one command. A panic aborts the current hand, ends the
// room and is reported as ErrEngineFailure; the actor keeps running.
func (a *actor) dispatch(cmd Command) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("Engine failure", "command", fmt.Sprintf("%T", cmd), "panic", r)
			a.fail(fmt.Sprint(r))
			v, err = nil, ErrEngineFailure
		}
		a.storeInfo()
	}()
	return a.handle(cmd)
}

func (a *actor) handle(cmd Command) (any, error) {
	switch c := cmd.(type) {
	case JoinRoom:
		if err := a.room.join(c.UserID, c.Password); err != nil {
			return nil, err
		}
		a.logger.Info("Player joined", "player", c.UserID, "members", len(a.room.Members))
		a.publishRoom("joined", c.UserID)
		return a.room.Info(), nil

	case LeaveRoom:
		return nil, a.leave(c.UserID)

	case SetReady:
		if err := a.room.setReady(c.UserID, c.Ready); err != nil {
			return nil, err
		}
		reason := "ready"
		if !c.Ready {
			reason = "not_ready"
		}
		a.publishRoom(reason, c.UserID)
		return a.room.Info(), nil

	case startCheck:
		return nil, a.room.canStart(c.userID)

	case beginGame:
		return nil, a.begin(c.userID, c.questions)

	case NewHand:
		if c.UserID != a.room.HostID {
			return nil, ErrNotHost
		}
		if a.room.Status != StatusEnded {
			return nil, ErrRoomNotEnded
		}
		a.room.Status = StatusWaiting
		a.room.Game = nil
		clear(a.room.Ready)
		a.publishRoom("new_hand", c.UserID)
		return a.room.Info(), nil

	case Fold, Check, Call, Bet, Raise:
		userID, action, amount, _ := bettingAction(c)
		return nil, a.act(userID, action, amount)

	case ForceTimeout:
		return nil, a.timeout(c.UserID)

	case turnExpired:
		if c.seq != a.turnSeq || !a.playing() {
			return nil, nil
		}
		cur := a.room.Game.Current()
		if cur == nil {
			return nil, nil
		}
		a.logger.Info("Turn timed out", "player", cur.UserID)
		return nil, a.timeout(cur.UserID)

	case questionLookup:
		if !a.playing() {
			return nil, ErrRoomNotPlaying
		}
		q, card, err := a.room.Game.QuestionFor(c.userID, c.cardIndex)
		if err != nil {
			return nil, err
		}
		return questionRef{question: q, card: card}, nil

	case answerVerdict:
		return a.applyAnswer(c)

	case SelectCards:
		if !a.playing() {
			return nil, ErrRoomNotPlaying
		}
		return nil, a.room.Game.SelectCards(c.UserID, c.First, c.Second)

	case AnswerQuestion:
		// answers are checked outside the actor, see Registry.AnswerQuestion
		return nil, game.ErrUnknownAction.WithMessage("answers must go through the registry")

	case Disconnect:
		return nil, a.setConnected(c.UserID, false)

	case Reconnect:
		return nil, a.setConnected(c.UserID, true)

	case viewRequest:
		return a.room.view(c.userID), nil

	case snapshotRequest:
		return a.snapshot()
	}
	return nil, game.ErrUnknownAction.WithMessage("unknown command %T", cmd)
}

func (a *actor) playing() bool {
	return a.room.Status == StatusPlaying && a.room.Game != nil
}

func (a *actor) leave(userID string) error {
	if !a.room.IsMember(userID) {
		return ErrNotInRoom
	}
	turnChanged := false
	if a.playing() {
		g := a.room.Game
		if p, ok := g.Player(userID); ok && !p.Folded && !g.Done() {
			before, street := g.Current(), g.Street
			err := g.ForceFold(userID)
			if err != nil && game.KindOf(err) != game.KindInternal {
				return err
			}
			turnChanged = g.Current() != before || g.Street != street
			a.gameUpdate(GameUpdate{Action: game.Fold.String(), Player: userID})
		}
	}
	hostChanged, err := a.room.leave(userID, a.reg.clock.Now())
	if err != nil {
		return err
	}
	a.logger.Info("Player left", "player", userID, "members", len(a.room.Members))
	a.publishRoom("left", userID)
	if hostChanged {
		a.publishRoom("host_changed", a.room.HostID)
	}
	if a.playing() {
		a.afterChange(turnChanged)
	}
	return nil
}

func (a *actor) begin(requester string, questions map[quiz.Difficulty][]quiz.Question) error {
	if err := a.room.canStart(requester); err != nil {
		return err
	}
	g, err := game.New(a.rng, slices.Clone(a.room.Members), a.room.gameConfig(a.reg.cfg.TiePolicy), game.WithQuestions(questions))
	if err != nil {
		return fmt.Errorf("start game: %w", err)
	}
	a.room.Game = g
	a.room.Status = StatusPlaying
	clear(a.room.Ready)

	a.logger.Info("Game started", "game", g.ID, "players", len(g.Players), "dealer", g.Players[g.Dealer].UserID)
	a.publishRoom("game_started", requester)
	for _, p := range g.Players {
		a.publish([]string{p.UserID}, EventTypeGameStarted, GameStarted{Game: gameView(g, p.UserID, a.room.Disconnected)})
	}
	a.afterChange(true)
	return nil
}

func (a *actor) act(userID string, action game.Action, amount int) error {
	if !a.playing() {
		return ErrRoomNotPlaying
	}
	g := a.room.Game
	if err := g.ProcessAction(userID, action, amount); err != nil {
		if game.KindOf(err) == game.KindInternal {
			a.logger.Error("Hand aborted", "player", userID, "action", action, "error", err)
			a.afterChange(true)
		}
		return err
	}
	a.logger.Debug("Player action", "player", userID, "action", action, "amount", amount, "pot", g.Pot, "street", g.Street)
	a.gameUpdate(GameUpdate{Action: action.String(), Player: userID, Amount: amount})
	a.afterChange(true)
	return nil
}

func (a *actor) timeout(userID string) error {
	if !a.playing() {
		return ErrRoomNotPlaying
	}
	action, err := a.room.Game.ForceTimeout(userID)
	if err != nil {
		if game.KindOf(err) == game.KindInternal {
			a.afterChange(true)
		}
		return err
	}
	a.gameUpdate(GameUpdate{Action: action.String(), Player: userID, Timeout: true})
	a.afterChange(true)
	return nil
}

func (a *actor) applyAnswer(c answerVerdict) (any, error) {
	if !a.playing() {
		return nil, ErrRoomNotPlaying
	}
	g := a.room.Game
	reward, err := g.ApplyAnswer(c.userID, c.card, c.correct)
	if err != nil {
		if game.KindOf(err) == game.KindInternal {
			a.afterChange(true)
		}
		return nil, err
	}

	a.logger.Info("Question answered", "player", c.userID, "card_index", c.cardIndex, "difficulty", reward.Difficulty, "correct", reward.Correct)
	a.publish([]string{c.userID}, EventTypeAnswerResult, AnswerResult{CardIndex: c.cardIndex, Reward: reward})

	idx := c.cardIndex
	update := GameUpdate{Action: "reveal", Player: c.userID, Amount: reward.Chips, CardIndex: &idx}
	if reward.Correct {
		card := reward.Card
		update.Card = &card
	} else {
		update.Action = "burn"
	}
	a.gameUpdate(update)
	return reward, nil
}

func (a *actor) setConnected(userID string, connected bool) error {
	if !a.room.IsMember(userID) {
		return ErrNotInRoom
	}
	if a.room.Disconnected[userID] == !connected {
		return nil
	}
	reason := "reconnected"
	if connected {
		delete(a.room.Disconnected, userID)
	} else {
		a.room.Disconnected[userID] = true
		reason = "disconnected"
	}
	a.publishRoom(reason, userID)
	return nil
}

// afterChange ends the room once the hand is over, otherwise re-arms the turn
// timer when the player on turn may have changed.
func (a *actor) afterChange(turnChanged bool) {
	g := a.room.Game
	if g.Done() {
		a.end()
		return
	}
	if turnChanged {
		a.armTimer()
	}
}

func (a *actor) end() {
	g := a.room.Game
	res := g.Result
	if res == nil {
		g.Abort("hand ended without a result")
		res = g.Result
	}
	a.stopTimer()
	a.room.Status = StatusEnded
	a.room.LastResult = res
	a.room.Hands++

	a.logger.Info("Game ended", "game", g.ID, "pot", res.Pot, "winners", res.Winners(), "aborted", res.Aborted)
	a.publish(a.room.audience(), EventTypeGameEnded, GameEnded{Result: *res, BigBlind: g.Config.BigBlind})
	a.publishRoom("game_ended", "")
	a.reg.enqueue(persistJob{roomID: a.room.ID, result: res})
}

// fail aborts the running hand after an engine failure
func (a *actor) fail(reason string) {
	if a.room.Game == nil || a.room.Status != StatusPlaying {
		return
	}
	a.room.Game.Abort("engine failure: " + reason)
	a.end()
}

func (a *actor) armTimer() {
	a.stopTimer()
	a.turnSeq++
	d := a.reg.cfg.TurnTimeout
	if d <= 0 || !a.playing() || a.room.Game.Done() {
		return
	}
	seq := a.turnSeq
	a.timer = a.reg.clock.AfterFunc(d, func() {
		a.post(turnExpired{seq: seq})
	})
}

func (a *actor) stopTimer() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

// snapshot deep-copies the room so it can be saved off the actor goroutine
func (a *actor) snapshot() (Snapshot, error) {
	data, err := json.Marshal(a.room)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot room %s: %w", a.room.ID, err)
	}
	var copied Room
	if err := json.Unmarshal(data, &copied); err != nil {
		return Snapshot{}, fmt.Errorf("snapshot room %s: %w", a.room.ID, err)
	}
	return Snapshot{Room: copied, SavedAt: a.reg.clock.Now()}, nil
}

func (a *actor) publish(to []string, typ EventType, data any) {
	a.reg.publisher.Publish(to, Event{
		Type:      typ,
		RoomID:    a.room.ID,
		Data:      data,
		Timestamp: a.reg.clock.Now(),
	})
}

// publishRoom tells everyone, including the lobby, that the room changed
func (a *actor) publishRoom(reason, userID string) {
	a.publish(nil, EventTypeRoomUpdated, RoomUpdate{Room: a.room.Info(), Reason: reason, UserID: userID})
}

// gameUpdate sends the public table state to everyone at the table
func (a *actor) gameUpdate(u GameUpdate) {
	g := a.room.Game
	u.Pot = g.Pot
	u.Street = g.Street
	u.Community = slices.Clone(g.Community)
	if u.Community == nil {
		u.Community = []deck.Card{}
	}
	if p := g.Current(); p != nil {
		u.NextPlayer = p.UserID
	}
	u.Game = gameView(g, "", a.room.Disconnected)
	a.publish(a.room.audience(), EventTypeGameUpdate, u)
}
