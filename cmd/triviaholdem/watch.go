package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lox/triviaholdem/internal/client"
	"github.com/lox/triviaholdem/internal/server"
)

// WatchCmd connects to a server and logs every room event it sees
type WatchCmd struct {
	Server string `short:"s" default:"http://localhost:8080" help:"Server URL"`
	Player string `short:"p" required:"" help:"Player ID to identify as"`
	Debug  bool   `help:"Enable debug logging"`
}

var watchedEvents = []server.MessageType{
	server.MessageTypeRoomCreated,
	server.MessageTypeRoomUpdated,
	server.MessageTypeRoomClosed,
	server.MessageTypeRoomState,
	server.MessageTypeGameStarted,
	server.MessageTypeGameUpdate,
	server.MessageTypeGameEnded,
	server.MessageTypeAnswerResult,
}

func (c *WatchCmd) Run() error {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	if c.Debug {
		logger.SetLevel(log.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cl := client.NewClient(c.Server, logger)
	for _, typ := range watchedEvents {
		cl.AddEventHandler(typ, func(msg *server.Message) {
			logger.Info("Event", "type", msg.Type, "room", msg.RoomID, "data", string(msg.Data))
		})
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := cl.Connect(connectCtx); err != nil {
		return err
	}
	defer func() { _ = cl.Close() }()

	welcome, err := cl.Hello(connectCtx, c.Player)
	if err != nil {
		return fmt.Errorf("hello: %w", err)
	}
	rooms, err := cl.ListRooms(connectCtx)
	if err != nil {
		return fmt.Errorf("list rooms: %w", err)
	}
	logger.Info("Watching", "player", welcome.PlayerID, "memberOf", len(welcome.Rooms), "rooms", len(rooms))
	for _, r := range rooms {
		logger.Info("Room", "id", r.ID, "name", r.Name, "status", r.Status, "members", len(r.Members), "max", r.MaxPlayers)
	}

	select {
	case <-ctx.Done():
	case <-cl.Done():
		return fmt.Errorf("connection to %s closed", c.Server)
	}
	return nil
}
