package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version   kong.VersionFlag `short:"v" help:"Show version"`
	Server    ServerCmd        `cmd:"" help:"Run the Trivia Hold'em server"`
	Questions QuestionsCmd     `cmd:"" help:"Work with question bank files"`
	Watch     WatchCmd         `cmd:"" help:"Connect to a server and log room events"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("triviaholdem"),
		kong.Description("Multiplayer Texas Hold'em where trivia answers reveal cards"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
