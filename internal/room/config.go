package room

import (
	"fmt"
	rand "math/rand/v2"
	"time"

	"github.com/coder/quartz"

	"github.com/lox/triviaholdem/internal/game"
	"github.com/lox/triviaholdem/internal/quiz"
)

// Config controls the registry and every room it runs
type Config struct {
	// TurnTimeout forces a check or fold when a player takes too long. Zero disables it.
	TurnTimeout time.Duration
	// QuestionTimeout bounds every call to the question source
	QuestionTimeout time.Duration
	// CheckpointInterval is how often rooms are saved to the store. Zero disables it.
	CheckpointInterval time.Duration
	// EmptyRoomTTL removes rooms that have been empty this long. Zero keeps them forever.
	EmptyRoomTTL time.Duration
	TiePolicy    game.TiePolicy
	GameType     string
	Defaults     Options
}

// DefaultConfig returns the settings used when nothing is configured
func DefaultConfig() Config {
	return Config{
		TurnTimeout:        30 * time.Second,
		QuestionTimeout:    5 * time.Second,
		CheckpointInterval: time.Minute,
		TiePolicy:          game.TieSplit,
		GameType:           "trivia_holdem",
		Defaults: Options{
			BuyIn:      1000,
			SmallBlind: 5,
			BigBlind:   10,
			Difficulty: quiz.Easy,
		},
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.TurnTimeout < 0 || c.QuestionTimeout < 0 || c.CheckpointInterval < 0 || c.EmptyRoomTTL < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	if !c.TiePolicy.Valid() {
		return fmt.Errorf("unknown tie policy %q", c.TiePolicy)
	}
	cfg := game.Config{SmallBlind: c.Defaults.SmallBlind, BigBlind: c.Defaults.BigBlind, BuyIn: c.Defaults.BuyIn}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("room defaults: %w", err)
	}
	return nil
}

// Option configures a Registry
type Option func(*Registry)

// WithStore persists rooms and results
func WithStore(s Store) Option {
	return func(r *Registry) {
		r.store = s
	}
}

// WithQuestionSource sets where special-card questions come from
func WithQuestionSource(src quiz.Source) Option {
	return func(r *Registry) {
		r.questions = src
	}
}

// WithPublisher sets where events go
func WithPublisher(p Publisher) Option {
	return func(r *Registry) {
		r.publisher = p
	}
}

// WithClock replaces the real clock, e.g. with quartz.NewMock in tests
func WithClock(c quartz.Clock) Option {
	return func(r *Registry) {
		r.clock = c
	}
}

// WithRand seeds every room's random source from rng
func WithRand(rng *rand.Rand) Option {
	return func(r *Registry) {
		r.rng = rng
	}
}
