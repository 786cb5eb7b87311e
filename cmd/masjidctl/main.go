// cmd/masjidctl/main.go
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path"

	"masjid-collection/internal/config"
	"masjid-collection/internal/storage"
	"masjid-collection/internal/storage/backend"

	"github.com/google/subcommands"
)

func main() {
	cfg := config.MustLoad()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))

	open := func(ctx context.Context) (storage.Store, error) { return backend.Open(ctx, cfg) }

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	for _, c := range commands(open, os.Stdout) {
		commander.Register(c, "")
	}

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
