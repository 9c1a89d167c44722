// Package room runs Trivia Hold'em rooms. Each room is owned by one actor
// goroutine; the Registry routes commands to it and runs the slow work
// (question fetches, answer checks, persistence) outside the actor.
package room

import (
	"context"
	"errors"
	"fmt"
	rand "math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/lox/triviaholdem/internal/game"
	"github.com/lox/triviaholdem/internal/gameid"
	"github.com/lox/triviaholdem/internal/quiz"
	"github.com/lox/triviaholdem/internal/randutil"
)

const persistQueueSize = 64

// Registry maps room IDs to their actors
type Registry struct {
	logger    *log.Logger
	cfg       Config
	store     Store
	questions quiz.Source
	publisher Publisher
	clock     quartz.Clock

	rngMu sync.Mutex
	rng   *rand.Rand

	mu     sync.RWMutex
	rooms  map[string]*actor
	closed bool

	jobs chan persistJob
}

// NewRegistry creates an empty registry. Call Restore to load saved rooms and
// Run to start checkpointing and persistence.
func NewRegistry(logger *log.Logger, cfg Config, opts ...Option) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("room config: %w", err)
	}
	if cfg.GameType == "" {
		cfg.GameType = DefaultConfig().GameType
	}
	r := &Registry{
		logger:    logger.WithPrefix("rooms"),
		cfg:       cfg,
		publisher: discardPublisher{},
		clock:     quartz.NewReal(),
		rooms:     make(map[string]*actor),
		jobs:      make(chan persistJob, persistQueueSize),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.rng == nil {
		r.rng, _ = randutil.Resolve(nil)
	}
	return r, nil
}

func (r *Registry) childRand() *rand.Rand {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	return randutil.Child(r.rng)
}

func (r *Registry) actor(roomID string) (*actor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound.WithMessage("room %s not found", roomID)
	}
	return a, nil
}

func (r *Registry) add(room *Room) (*actor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRoomClosed
	}
	if _, ok := r.rooms[room.ID]; ok {
		return nil, ErrRoomExists.WithMessage("room %s already exists", room.ID)
	}
	for _, other := range r.rooms {
		if info := other.Info(); info.HostID == room.HostID && info.Name == room.Name {
			return nil, ErrRoomExists.WithMessage("you already host a room named %q", room.Name)
		}
	}
	a := newActor(r, room, r.childRand())
	r.rooms[room.ID] = a
	go a.run()
	return a, nil
}

// CreateRoom creates a room hosted by req.HostID and starts its actor
func (r *Registry) CreateRoom(ctx context.Context, req CreateRoomRequest) (RoomInfo, error) {
	id, err := gameid.Room()
	if err != nil {
		return RoomInfo{}, err
	}
	room, err := newRoom(id, req, r.cfg.Defaults, r.clock.Now())
	if err != nil {
		return RoomInfo{}, err
	}
	a, err := r.add(room)
	if err != nil {
		return RoomInfo{}, err
	}
	info := a.Info()
	r.logger.Info("Room created", "room", info.ID, "name", info.Name, "host", info.HostID, "max_players", info.MaxPlayers)
	r.publisher.Publish(nil, Event{Type: EventTypeRoomCreated, RoomID: info.ID, Data: RoomUpdate{Room: info, UserID: info.HostID}, Timestamp: r.clock.Now()})
	if r.store != nil {
		if v, err := a.send(ctx, snapshotRequest{}); err == nil {
			snap := v.(Snapshot)
			r.enqueue(persistJob{roomID: info.ID, save: &snap})
		}
	}
	return info, nil
}

// Submit delivers cmd to roomID and waits until the room has applied it.
// StartGame and AnswerQuestion include work done outside the room actor.
func (r *Registry) Submit(ctx context.Context, roomID string, cmd Command) error {
	switch c := cmd.(type) {
	case StartGame:
		return r.StartGame(ctx, roomID, c.UserID)
	case AnswerQuestion:
		_, err := r.AnswerQuestion(ctx, roomID, c.UserID, c.CardIndex, c.Answer)
		return err
	}
	a, err := r.actor(roomID)
	if err != nil {
		return err
	}
	_, err = a.send(ctx, cmd)
	return err
}

// StartGame deals a new hand in roomID. Questions for every special card are
// fetched before the room actor is asked to deal, so a slow question source
// never blocks other commands for the room.
func (r *Registry) StartGame(ctx context.Context, roomID, userID string) error {
	a, err := r.actor(roomID)
	if err != nil {
		return err
	}
	if _, err := a.send(ctx, startCheck{userID: userID}); err != nil {
		return err
	}
	questions := r.fetchQuestions(ctx, a.Info())
	_, err = a.send(ctx, beginGame{userID: userID, questions: questions})
	return err
}

// fetchQuestions asks the question source for enough questions to cover a
// full room. On failure the hand still starts; cards without a question
// simply cannot be revealed.
func (r *Registry) fetchQuestions(ctx context.Context, info RoomInfo) map[quiz.Difficulty][]quiz.Question {
	if r.questions == nil {
		return nil
	}
	ctx, cancel := r.questionContext(ctx)
	defer cancel()

	tiers := []struct {
		difficulty quiz.Difficulty
		perSeat    int
	}{
		{quiz.Easy, 2},
		{quiz.Medium, 1},
		{quiz.Hard, 1},
		{quiz.Extreme, 1},
	}
	out := make(map[quiz.Difficulty][]quiz.Question, len(tiers))
	for _, tier := range tiers {
		qs, err := r.questions.FetchQuestions(ctx, quiz.Query{
			Topic:      info.Options.Topic,
			Difficulty: max(tier.difficulty, info.Options.Difficulty),
			Count:      tier.perSeat * info.MaxPlayers,
		})
		if err != nil {
			r.logger.Warn("Failed to fetch questions", "room", info.ID, "difficulty", tier.difficulty, "error", err)
			continue
		}
		out[tier.difficulty] = qs
	}
	return out
}

func (r *Registry) questionContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.cfg.QuestionTimeout > 0 {
		return context.WithTimeout(ctx, r.cfg.QuestionTimeout)
	}
	return context.WithCancel(ctx)
}

// AnswerQuestion answers the question guarding special card cardIndex of
// userID. The answer is checked outside the room actor; the verdict is then
// applied against the card as it is at that moment.
func (r *Registry) AnswerQuestion(ctx context.Context, roomID, userID string, cardIndex int, answer string) (game.Reward, error) {
	a, err := r.actor(roomID)
	if err != nil {
		return game.Reward{}, err
	}
	v, err := a.send(ctx, questionLookup{userID: userID, cardIndex: cardIndex})
	if err != nil {
		return game.Reward{}, err
	}
	ref := v.(questionRef)

	correct, err := r.checkAnswer(ctx, ref.question, answer)
	if err != nil {
		r.logger.Warn("Answer check failed", "room", roomID, "player", userID, "question", ref.question.ID, "error", err)
		return game.Reward{}, ErrQuestionUnavailable.WithMessage("could not check the answer: %v", err)
	}

	v, err = a.send(ctx, answerVerdict{userID: userID, cardIndex: cardIndex, card: ref.card, correct: correct})
	if err != nil {
		return game.Reward{}, err
	}
	return v.(game.Reward), nil
}

func (r *Registry) checkAnswer(ctx context.Context, q quiz.Question, answer string) (bool, error) {
	if r.questions == nil {
		return quiz.MatchAnswer(q.Answer, answer), nil
	}
	ctx, cancel := r.questionContext(ctx)
	defer cancel()
	return r.questions.CheckAnswer(ctx, q, answer)
}

// ForceTimeoutAction acts for playerID as if their turn timer expired
func (r *Registry) ForceTimeoutAction(ctx context.Context, roomID, playerID string) error {
	return r.Submit(ctx, roomID, ForceTimeout{UserID: playerID})
}

// ListRooms returns a summary of every room, oldest first
func (r *Registry) ListRooms() []RoomInfo {
	r.mu.RLock()
	out := make([]RoomInfo, 0, len(r.rooms))
	for _, a := range r.rooms {
		out = append(out, a.Info())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Room returns the summary of one room
func (r *Registry) Room(roomID string) (RoomInfo, error) {
	a, err := r.actor(roomID)
	if err != nil {
		return RoomInfo{}, err
	}
	return a.Info(), nil
}

// View returns roomID as userID sees it: their own cards and questions are
// included, nobody else's are.
func (r *Registry) View(ctx context.Context, roomID, userID string) (RoomView, error) {
	a, err := r.actor(roomID)
	if err != nil {
		return RoomView{}, err
	}
	v, err := a.send(ctx, viewRequest{userID: userID})
	if err != nil {
		return RoomView{}, err
	}
	return v.(RoomView), nil
}

// RoomsOf returns the IDs of the rooms userID is a member of
func (r *Registry) RoomsOf(userID string) []string {
	var ids []string
	for _, info := range r.ListRooms() {
		for _, m := range info.Members {
			if m == userID {
				ids = append(ids, info.ID)
				break
			}
		}
	}
	return ids
}

// Disconnect marks userID as disconnected in every room they are in. Their
// seats are kept; the turn timer plays for them.
func (r *Registry) Disconnect(ctx context.Context, userID string) error {
	var errs []error
	for _, id := range r.RoomsOf(userID) {
		if err := r.Submit(ctx, id, Disconnect{UserID: userID}); err != nil && !errors.Is(err, ErrNotInRoom) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Reconnect clears the disconnected flag of userID in every room they are in
// and returns those rooms' IDs.
func (r *Registry) Reconnect(ctx context.Context, userID string) ([]string, error) {
	ids := r.RoomsOf(userID)
	var errs []error
	for _, id := range ids {
		if err := r.Submit(ctx, id, Reconnect{UserID: userID}); err != nil && !errors.Is(err, ErrNotInRoom) {
			errs = append(errs, err)
		}
	}
	return ids, errors.Join(errs...)
}

// Restore loads saved rooms from the store. Rooms saved mid-hand resume
// where they left off.
func (r *Registry) Restore(ctx context.Context) (int, error) {
	if r.store == nil {
		return 0, nil
	}
	snaps, err := r.store.LoadRooms(ctx)
	if err != nil {
		return 0, fmt.Errorf("load rooms: %w", err)
	}
	restored := 0
	for _, snap := range snaps {
		room := snap.Room
		if room.Game != nil && room.Status == StatusPlaying {
			if err := room.Game.CheckInvariants(); err != nil {
				r.logger.Warn("Discarding corrupt hand", "room", room.ID, "error", err)
				room.Game.Abort("restored hand failed invariant checks")
				room.Status = StatusEnded
				room.LastResult = room.Game.Result
			}
		}
		if _, err := r.add(&room); err != nil {
			r.logger.Warn("Skipping saved room", "room", room.ID, "error", err)
			continue
		}
		restored++
	}
	r.logger.Info("Restored rooms", "count", restored)
	return restored, nil
}

// Run checkpoints rooms, sweeps empty ones and drains the persistence queue
// until ctx is cancelled.
func (r *Registry) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		r.persistLoop(ctx)
		return nil
	})
	if r.cfg.CheckpointInterval > 0 && r.store != nil {
		g.Go(func() error {
			r.every(ctx, r.cfg.CheckpointInterval, "checkpoint", func() {
				r.Checkpoint(ctx)
			})
			return nil
		})
	}
	if r.cfg.EmptyRoomTTL > 0 {
		g.Go(func() error {
			r.every(ctx, r.cfg.EmptyRoomTTL/2, "sweep", func() {
				r.Sweep(ctx)
			})
			return nil
		})
	}
	return g.Wait()
}

func (r *Registry) every(ctx context.Context, d time.Duration, name string, fn func()) {
	ticker := r.clock.NewTicker(d, "rooms", name)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

// Checkpoint saves every room to the store
func (r *Registry) Checkpoint(ctx context.Context) int {
	if r.store == nil {
		return 0
	}
	saved := 0
	for _, a := range r.actors() {
		v, err := a.send(ctx, snapshotRequest{})
		if err != nil {
			r.logger.Warn("Failed to snapshot room", "room", a.Info().ID, "error", err)
			continue
		}
		snap := v.(Snapshot)
		if err := r.store.SaveRoom(ctx, snap); err != nil {
			r.logger.Warn("Failed to save room", "room", snap.Room.ID, "error", err)
			continue
		}
		saved++
	}
	r.logger.Debug("Checkpoint complete", "rooms", saved)
	return saved
}

// Sweep removes rooms that have been empty for longer than the configured TTL
func (r *Registry) Sweep(ctx context.Context) []string {
	if r.cfg.EmptyRoomTTL <= 0 {
		return nil
	}
	now := r.clock.Now()
	var removed []string
	for _, info := range r.ListRooms() {
		if len(info.Members) > 0 || info.Status == StatusPlaying || info.EmptySince.IsZero() {
			continue
		}
		if now.Sub(info.EmptySince) < r.cfg.EmptyRoomTTL {
			continue
		}
		r.remove(info)
		removed = append(removed, info.ID)
	}
	return removed
}

func (r *Registry) remove(info RoomInfo) {
	r.mu.Lock()
	a, ok := r.rooms[info.ID]
	delete(r.rooms, info.ID)
	r.mu.Unlock()
	if !ok {
		return
	}
	a.close()
	r.logger.Info("Room removed", "room", info.ID, "empty_since", info.EmptySince)
	r.publisher.Publish(nil, Event{Type: EventTypeRoomClosed, RoomID: info.ID, Data: RoomUpdate{Room: info, Reason: "empty"}, Timestamp: r.clock.Now()})
	r.enqueue(persistJob{roomID: info.ID, delete: true})
}

func (r *Registry) actors() []*actor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*actor, 0, len(r.rooms))
	for _, a := range r.rooms {
		out = append(out, a)
	}
	return out
}

// enqueue hands a job to the persistence worker. The queue never blocks a
// room; when it is full the job is dropped and logged.
func (r *Registry) enqueue(job persistJob) {
	if r.store == nil {
		return
	}
	select {
	case r.jobs <- job:
	default:
		r.logger.Warn("Persistence queue full, dropping job", "room", job.roomID)
	}
}

func (r *Registry) persistLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			r.drain()
			return
		case job := <-r.jobs:
			r.persist(ctx, job)
		}
	}
}

// drain persists whatever is queued at shutdown
func (r *Registry) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case job := <-r.jobs:
			r.persist(ctx, job)
		default:
			return
		}
	}
}

func (r *Registry) persist(ctx context.Context, job persistJob) {
	if r.store == nil {
		return
	}
	switch {
	case job.delete:
		if err := r.store.DeleteRoom(ctx, job.roomID); err != nil {
			r.logger.Warn("Failed to delete room", "room", job.roomID, "error", err)
		}
	case job.save != nil:
		if err := r.store.SaveRoom(ctx, *job.save); err != nil {
			r.logger.Warn("Failed to save room", "room", job.roomID, "error", err)
		}
	case job.result != nil:
		r.recordResult(ctx, job.roomID, *job.result)
	}
}

func (r *Registry) recordResult(ctx context.Context, roomID string, res game.Result) {
	if err := r.store.RecordGameResult(ctx, roomID, r.cfg.GameType, res); err != nil {
		r.logger.Warn("Failed to record game result", "room", roomID, "game", res.GameID, "error", err)
	}
	desc := fmt.Sprintf("%s game %s", r.cfg.GameType, res.GameID)
	for _, s := range res.Standings {
		if s.ChipDelta == 0 {
			continue
		}
		if err := r.store.AdjustUserCoins(ctx, s.UserID, s.ChipDelta, desc); err != nil {
			r.logger.Warn("Failed to adjust coins", "player", s.UserID, "delta", s.ChipDelta, "error", err)
		}
	}
}

// Close stops every room actor. Commands sent afterwards fail with ErrRoomClosed.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	actors := make([]*actor, 0, len(r.rooms))
	for _, a := range r.rooms {
		actors = append(actors, a)
	}
	r.mu.Unlock()
	for _, a := range actors {
		a.close()
	}
}
