package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/emiliopalmerini/mtranscript/internal/adapters/logging"
	"github.com/emiliopalmerini/mtranscript/internal/adapters/storage"
	"github.com/emiliopalmerini/mtranscript/internal/adapters/turso"
	"github.com/emiliopalmerini/mtranscript/internal/config"
	"github.com/emiliopalmerini/mtranscript/internal/domain"
	"github.com/emiliopalmerini/mtranscript/internal/migrate"
	"github.com/emiliopalmerini/mtranscript/internal/ports"
	"github.com/emiliopalmerini/mtranscript/internal/transcript"
	"github.com/emiliopalmerini/mtranscript/internal/turns"
)

// testDBOverride replaces the configured database in tests.
var testDBOverride *sql.DB

// AppContext holds all shared dependencies for CLI commands.
type AppContext struct {
	Config       *config.Config
	DB           *sql.DB
	Events       ports.EventRepository
	AgentConfigs *turso.AgentConfigRepository
	Transcripts  ports.TranscriptStorage
	Logger       ports.Logger
	ownsDB       bool
}

// NewAppContext loads the configuration, connects to the database and
// applies pending migrations.
func NewAppContext(ctx context.Context) (*AppContext, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg)

	db, owns := testDBOverride, false
	if db == nil {
		url, err := cfg.DatabaseURL()
		if err != nil {
			return nil, err
		}
		db, err = turso.Open(url, cfg.Database.AuthToken)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		owns = true
	}

	if err := migrate.RunAll(ctx, db); err != nil {
		if owns {
			_ = db.Close()
		}
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	repos := turso.NewRepositories(db)
	transcripts := repos.Transcripts
	if cfg.Archive.Dir != "" {
		fsStorage, err := storage.NewTranscriptStorage(cfg.Archive.Dir)
		if err != nil {
			if owns {
				_ = db.Close()
			}
			return nil, fmt.Errorf("failed to initialize transcript storage: %w", err)
		}
		transcripts = fsStorage
	}

	return &AppContext{
		Config:       cfg,
		DB:           db,
		Events:       repos.Events,
		AgentConfigs: repos.AgentConfigs,
		Transcripts:  transcripts,
		Logger:       logger,
		ownsDB:       owns,
	}, nil
}

// Close releases all resources held by the AppContext.
func (a *AppContext) Close() error {
	if a.DB != nil && a.ownsDB {
		return a.DB.Close()
	}
	return nil
}

func newLogger(cfg *config.Config) ports.Logger {
	debug := debugFlag
	if cfg != nil && cfg.Debug {
		debug = true
	}
	return logging.NewStderr(debug)
}

// isTranscriptPath reports whether arg names a transcript file rather than a
// stored session id.
func isTranscriptPath(arg string) bool {
	if strings.HasSuffix(arg, ".jsonl") {
		return true
	}
	info, err := os.Stat(arg)
	return err == nil && !info.IsDir()
}

// withSession loads the events of a transcript file or a stored session and
// passes them to fn. The label resolver is nil for transcript files.
func withSession(ctx context.Context, arg string, fn func(events []domain.Event, resolve turns.RequestAgentConfig, logger ports.Logger) error) error {
	if isTranscriptPath(arg) {
		logger := newLogger(nil)
		result, err := transcript.NewParser(logger).ParseFile(arg)
		if err != nil {
			return err
		}
		if result.Skipped > 0 {
			logger.Warn(fmt.Sprintf("%d malformed lines skipped", result.Skipped))
		}
		return fn(result.Events, nil, logger)
	}

	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	events, err := app.Events.ListBySession(ctx, arg)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if len(events) == 0 {
		return fmt.Errorf("session %q not found", arg)
	}
	return fn(events, app.AgentConfigs.Requester(ctx), app.Logger)
}
