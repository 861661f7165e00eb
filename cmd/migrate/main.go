package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/flexprice/subscriptions/internal/config"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/flexprice/subscriptions/migrations"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

func main() {
	command := flag.String("command", "up", "Goose command to run: up, down, status or version")
	flag.Parse()

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	logger.Infow("Connecting to database", "host", cfg.Postgres.Host, "dbname", cfg.Postgres.DBName)

	db, err := sql.Open("postgres", cfg.Postgres.GetDSN())
	if err != nil {
		logger.Fatalw("Failed to connect to postgres", "error", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		logger.Fatalw("Failed to reach postgres", "error", err)
	}

	goose.SetBaseFS(migrations.Postgres)
	if err := goose.SetDialect("postgres"); err != nil {
		logger.Fatalw("Failed to set goose dialect", "error", err)
	}

	logger.Infow("Running database migrations", "command", *command)

	switch *command {
	case "up":
		err = goose.UpContext(ctx, db, migrations.PostgresDir)
	case "down":
		err = goose.DownContext(ctx, db, migrations.PostgresDir)
	case "status":
		err = goose.StatusContext(ctx, db, migrations.PostgresDir)
	case "version":
		err = goose.VersionContext(ctx, db, migrations.PostgresDir)
	default:
		logger.Fatalw("Unknown migration command", "command", *command)
	}
	if err != nil {
		logger.Fatalw("Migration failed", "command", *command, "error", err)
	}

	fmt.Println("Migration process completed")
}
