package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/mtranscript/internal/adapters/turso"
	"github.com/emiliopalmerini/mtranscript/internal/config"
	"github.com/emiliopalmerini/mtranscript/internal/migrate"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate [version]",
	Short: "Run database migrations",
	Long: `Run database migrations.

Without arguments, runs all pending migrations (up).
With a version number, migrates to that specific version (up or down as needed).

Examples:
  mtranscript migrate      # Run all pending migrations
  mtranscript migrate 1    # Migrate to version 1
  mtranscript migrate 0    # Rollback all migrations`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	target := -1
	if len(args) == 1 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 0 {
			return fmt.Errorf("invalid version %q", args[0])
		}
		target = v
	}

	db := testDBOverride
	if db == nil {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		url, err := cfg.DatabaseURL()
		if err != nil {
			return err
		}
		db, err = turso.Open(url, cfg.Database.AuthToken)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer func() { _ = db.Close() }()
	}

	return migrateTo(ctx, migrate.NewRunner(db, cmd.OutOrStdout()), target)
}

// migrateTo moves the schema to target; a negative target applies everything.
func migrateTo(ctx context.Context, runner *migrate.Runner, target int) error {
	current, dirty, err := runner.Version(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database is in dirty state at version %d, manual intervention required", current)
	}

	if target < 0 || target >= current {
		return runner.UpTo(ctx, target)
	}
	return runner.DownTo(ctx, target)
}
