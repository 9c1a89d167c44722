package server

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/triviaholdem/internal/game"
	"github.com/lox/triviaholdem/internal/quiz"
	"github.com/lox/triviaholdem/internal/room"
)

// ServerConfig represents the complete server configuration
type ServerConfig struct {
	Server       ServerSettings  `hcl:"server,block"`
	Engine       *EngineSettings `hcl:"engine,block"`
	RoomDefaults *RoomDefaults   `hcl:"room_defaults,block"`
	Questions    *QuestionConfig `hcl:"questions,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
	DataDir  string `hcl:"data_dir,optional"`
}

// EngineSettings tunes the room registry. Durations use time.ParseDuration syntax.
type EngineSettings struct {
	TurnTimeout        string `hcl:"turn_timeout,optional"`
	QuestionTimeout    string `hcl:"question_timeout,optional"`
	CheckpointInterval string `hcl:"checkpoint_interval,optional"`
	EmptyRoomTTL       string `hcl:"empty_room_ttl,optional"`
	TiePolicy          string `hcl:"tie_policy,optional"`
	Seed               *int64 `hcl:"seed,optional"`
}

// RoomDefaults fill in whatever a create_room request leaves out
type RoomDefaults struct {
	BuyIn        int    `hcl:"buy_in,optional"`
	SmallBlind   int    `hcl:"small_blind,optional"`
	BigBlind     int    `hcl:"big_blind,optional"`
	Topic        string `hcl:"topic,optional"`
	Difficulty   string `hcl:"difficulty,optional"`
	RequireReady bool   `hcl:"require_ready,optional"`
}

// QuestionConfig points at the question bank
type QuestionConfig struct {
	File string `hcl:"file"`
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	cfg := &ServerConfig{}
	cfg.applyDefaults()
	return cfg
}

// LoadServerConfig loads server configuration from an HCL file. A missing
// file yields the defaults.
func LoadServerConfig(filename string) (*ServerConfig, error) {
	src, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return DefaultServerConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return ParseServerConfig(src, filename)
}

// ParseServerConfig parses HCL source, applies defaults and validates the result
func ParseServerConfig(src []byte, filename string) (*ServerConfig, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config ServerConfig
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *ServerConfig) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Engine == nil {
		c.Engine = &EngineSettings{}
	}
	if c.RoomDefaults == nil {
		c.RoomDefaults = &RoomDefaults{}
	}

	defaults := room.DefaultConfig()
	if c.Engine.TurnTimeout == "" {
		c.Engine.TurnTimeout = defaults.TurnTimeout.String()
	}
	if c.Engine.QuestionTimeout == "" {
		c.Engine.QuestionTimeout = defaults.QuestionTimeout.String()
	}
	if c.Engine.CheckpointInterval == "" {
		c.Engine.CheckpointInterval = defaults.CheckpointInterval.String()
	}
	if c.Engine.EmptyRoomTTL == "" {
		c.Engine.EmptyRoomTTL = "0s"
	}
	if c.Engine.TiePolicy == "" {
		c.Engine.TiePolicy = string(defaults.TiePolicy)
	}

	if c.RoomDefaults.BuyIn == 0 {
		c.RoomDefaults.BuyIn = defaults.Defaults.BuyIn
	}
	if c.RoomDefaults.SmallBlind == 0 {
		c.RoomDefaults.SmallBlind = defaults.Defaults.SmallBlind
	}
	if c.RoomDefaults.BigBlind == 0 {
		c.RoomDefaults.BigBlind = c.RoomDefaults.SmallBlind * 2
	}
	if c.RoomDefaults.Difficulty == "" {
		c.RoomDefaults.Difficulty = defaults.Defaults.Difficulty.String()
	}
}

// Validate checks the configuration for errors
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	switch c.Server.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Server.LogLevel)
	}
	if c.Questions != nil && c.Questions.File == "" {
		return fmt.Errorf("questions block needs a file")
	}
	if _, err := c.RoomConfig(); err != nil {
		return err
	}
	return nil
}

// RoomConfig converts the engine and room_defaults blocks into a registry config
func (c *ServerConfig) RoomConfig() (room.Config, error) {
	cfg := room.DefaultConfig()
	durations := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"turn_timeout", c.Engine.TurnTimeout, &cfg.TurnTimeout},
		{"question_timeout", c.Engine.QuestionTimeout, &cfg.QuestionTimeout},
		{"checkpoint_interval", c.Engine.CheckpointInterval, &cfg.CheckpointInterval},
		{"empty_room_ttl", c.Engine.EmptyRoomTTL, &cfg.EmptyRoomTTL},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return room.Config{}, fmt.Errorf("engine.%s: %w", d.name, err)
		}
		*d.dst = v
	}
	cfg.TiePolicy = game.TiePolicy(c.Engine.TiePolicy)

	diff, err := quiz.ParseDifficulty(c.RoomDefaults.Difficulty)
	if err != nil {
		return room.Config{}, fmt.Errorf("room_defaults.difficulty: %w", err)
	}
	cfg.Defaults = room.Options{
		BuyIn:        c.RoomDefaults.BuyIn,
		SmallBlind:   c.RoomDefaults.SmallBlind,
		BigBlind:     c.RoomDefaults.BigBlind,
		Topic:        c.RoomDefaults.Topic,
		Difficulty:   diff,
		RequireReady: c.RoomDefaults.RequireReady,
	}

	if err := cfg.Validate(); err != nil {
		return room.Config{}, err
	}
	return cfg, nil
}

// Seed returns the configured random seed, if any
func (c *ServerConfig) Seed() *int64 {
	if c.Engine == nil {
		return nil
	}
	return c.Engine.Seed
}

// ListenAddr returns the host:port the server listens on
func (c *ServerConfig) ListenAddr() string {
	return net.JoinHostPort(c.Server.Address, strconv.Itoa(c.Server.Port))
}
