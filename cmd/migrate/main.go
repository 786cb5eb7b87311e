// cmd/migrate/main.go
package main

import (
	"database/sql"
	"flag"
	"log/slog"
	"os"

	"masjid-collection/internal/config"
	"masjid-collection/migrations"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// usage: migrate [up|down|status|version]
func main() {
	flag.Parse()
	command := "up"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	cfg := config.MustLoad()

	db, err := sql.Open("pgx", cfg.DBConn)
	if err != nil {
		slog.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// миграции вшиты в бинарник
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		slog.Error("Failed to set dialect", "error", err)
		os.Exit(1)
	}

	slog.Info("Running migrations", "command", command)
	if err := goose.Run(command, db, "."); err != nil {
		slog.Error("Migration failed", "command", command, "error", err)
		os.Exit(1)
	}
	slog.Info("Migrations done", "command", command)
}
