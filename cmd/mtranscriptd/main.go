package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/emiliopalmerini/mtranscript/internal/adapters/logging"
	"github.com/emiliopalmerini/mtranscript/internal/adapters/turso"
	"github.com/emiliopalmerini/mtranscript/internal/config"
	"github.com/emiliopalmerini/mtranscript/internal/domain"
	"github.com/emiliopalmerini/mtranscript/internal/migrate"
	"github.com/emiliopalmerini/mtranscript/internal/server"
	"github.com/emiliopalmerini/mtranscript/internal/sessions"
	"github.com/emiliopalmerini/mtranscript/internal/stats"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("MTRANSCRIPT_DATABASE_URL is required")
	}

	var limits *domain.SessionLimits
	if path := os.Getenv("MTRANSCRIPT_LIMITS_FILE"); path != "" {
		if limits, err = config.LoadLimits(path); err != nil {
			return err
		}
	}

	db, err := turso.Open(cfg.Database.URL, cfg.Database.AuthToken)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() { _ = db.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.RunAll(ctx, db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger := logging.NewStderr(cfg.Debug)
	repos := turso.NewRepositories(db)

	handler := sessions.NewHandler(repos.Events,
		sessions.WithConfigResolver(repos.AgentConfigs),
		sessions.WithCache(stats.NewCache()),
		sessions.WithLimits(limits),
		sessions.WithLogger(logger),
	)

	srv := server.NewHTTPServer(server.Config{Addr: cfg.Server.Addr}, server.NewRouter(handler, logger))
	fmt.Printf("mtranscriptd listening on %s\n", cfg.Server.Addr)
	return server.Run(ctx, srv, cfg.Server.ShutdownTimeout, logger)
}
