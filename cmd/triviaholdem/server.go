package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/lox/triviaholdem/internal/quiz"
	"github.com/lox/triviaholdem/internal/randutil"
	"github.com/lox/triviaholdem/internal/room"
	"github.com/lox/triviaholdem/internal/server"
	"github.com/lox/triviaholdem/internal/statistics"
	"github.com/lox/triviaholdem/internal/store"
)

// ServerCmd runs the WebSocket server. Flags override the config file.
type ServerCmd struct {
	Config    string `short:"c" default:"triviaholdem.hcl" help:"Path to HCL configuration file"`
	Addr      string `short:"a" help:"Server address to bind to, host:port (overrides config)"`
	Debug     bool   `help:"Enable debug logging"`
	Seed      *int64 `help:"Deterministic RNG seed (overrides config)"`
	DataDir   string `help:"Directory for room checkpoints, results and coins (overrides config)"`
	Memory    bool   `help:"Keep rooms and results in memory only"`
	Questions string `help:"Question bank HCL file (overrides config)"`
}

func (c *ServerCmd) Run() error {
	cfg, err := server.LoadServerConfig(c.Config)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if c.Debug {
		cfg.Server.LogLevel = "debug"
	}
	if c.DataDir != "" {
		cfg.Server.DataDir = c.DataDir
	}
	if c.Questions != "" {
		cfg.Questions = &server.QuestionConfig{File: c.Questions}
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	level, err := log.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		return err
	}
	logger.SetLevel(level)

	seed := cfg.Seed()
	if c.Seed != nil {
		seed = c.Seed
	}
	rng, resolved := randutil.Resolve(seed)
	logger.Info("Using seed", "seed", resolved, "deterministic", seed != nil)

	roomCfg, err := cfg.RoomConfig()
	if err != nil {
		return err
	}

	clock := quartz.NewReal()
	hub := server.NewHub(logger)
	tracker := statistics.NewTracker()
	opts := []room.Option{
		room.WithPublisher(room.MultiPublisher(tracker, hub)),
		room.WithClock(clock),
		room.WithRand(rng),
	}

	if cfg.Questions != nil {
		bank, err := quiz.LoadBank(cfg.Questions.File, randutil.Child(rng))
		if err != nil {
			return fmt.Errorf("loading questions: %w", err)
		}
		logger.Info("Loaded question bank", "file", cfg.Questions.File, "questions", bank.Len())
		opts = append(opts, room.WithQuestionSource(bank))
	} else {
		logger.Warn("No question bank configured, special cards will have no questions")
	}

	switch {
	case c.Memory:
		opts = append(opts, room.WithStore(store.NewMemory(clock)))
	case cfg.Server.DataDir != "":
		fs, err := store.NewFile(cfg.Server.DataDir, clock, logger)
		if err != nil {
			return err
		}
		opts = append(opts, room.WithStore(store.NewRetrying(fs, store.DefaultRetryPolicy(), clock, logger)))
		logger.Info("Persisting to disk", "dir", cfg.Server.DataDir)
	default:
		logger.Info("No data_dir configured, rooms are not persisted")
	}

	registry, err := room.NewRegistry(logger, roomCfg, opts...)
	if err != nil {
		return err
	}
	defer registry.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	restored, err := registry.Restore(ctx)
	if err != nil {
		logger.Warn("Failed to restore rooms", "error", err)
	} else if restored > 0 {
		logger.Info("Restored rooms", "count", restored)
	}

	addr := cfg.ListenAddr()
	if c.Addr != "" {
		addr = c.Addr
	}
	srv := server.NewServer(addr, logger, registry, hub)
	srv.SetLeaderboard(tracker)

	logger.Info("Starting Trivia Hold'em server",
		"addr", addr,
		"turnTimeout", roomCfg.TurnTimeout,
		"tiePolicy", roomCfg.TiePolicy,
		"blinds", fmt.Sprintf("%d/%d", roomCfg.Defaults.SmallBlind, roomCfg.Defaults.BigBlind))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return registry.Run(ctx)
	})
	g.Go(func() error {
		return srv.Run(ctx)
	})
	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}
