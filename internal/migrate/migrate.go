// Package migrate applies the embedded schema migrations.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/emiliopalmerini/mtranscript/migrations"
)

// Migration is one schema version with its up and down SQL.
type Migration struct {
	Version int
	Name    string
	UpSQL   string
	DownSQL string
}

var upPattern = regexp.MustCompile(`^(\d+)_(.+)\.up\.sql$`)

// Runner applies migrations from source to db and reports progress to out.
type Runner struct {
	db     *sql.DB
	source fs.FS
	out    io.Writer
}

// NewRunner returns a Runner over the embedded migrations.
func NewRunner(db *sql.DB, out io.Writer) *Runner {
	if out == nil {
		out = io.Discard
	}
	return &Runner{db: db, source: migrations.FS, out: out}
}

// RunAll applies every pending migration without reporting progress.
func RunAll(ctx context.Context, db *sql.DB) error {
	return NewRunner(db, nil).Up(ctx)
}

// Load reads the migrations sorted by version.
func Load(source fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(source, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	var result []Migration
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := upPattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		version, _ := strconv.Atoi(m[1])

		up, err := fs.ReadFile(source, e.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", e.Name(), err)
		}
		down, _ := fs.ReadFile(source, fmt.Sprintf("%s_%s.down.sql", m[1], m[2]))

		result = append(result, Migration{Version: version, Name: m[2], UpSQL: string(up), DownSQL: string(down)})
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Version < result[j].Version })
	return result, nil
}

func (r *Runner) ensureTable(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			dirty INTEGER NOT NULL DEFAULT 0
		)
	`)
	return err
}

// Version returns the applied version and whether the last run failed midway.
func (r *Runner) Version(ctx context.Context) (int, bool, error) {
	if err := r.ensureTable(ctx); err != nil {
		return 0, false, fmt.Errorf("failed to create migrations table: %w", err)
	}

	var version, dirty int
	err := r.db.QueryRowContext(ctx, `SELECT version, dirty FROM schema_migrations ORDER BY version DESC LIMIT 1`).Scan(&version, &dirty)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return version, dirty == 1, nil
}

func (r *Runner) setVersion(ctx context.Context, version int, dirty bool) error {
	d := 0
	if dirty {
		d = 1
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM schema_migrations`); err != nil {
		return err
	}
	if version == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO schema_migrations (version, dirty) VALUES (?, ?)`, version, d)
	return err
}

// Up applies every pending migration.
func (r *Runner) Up(ctx context.Context) error {
	return r.UpTo(ctx, -1)
}

// UpTo applies pending migrations up to target. A negative target means all.
func (r *Runner) UpTo(ctx context.Context, target int) error {
	current, all, err := r.prepare(ctx)
	if err != nil {
		return err
	}

	applied := 0
	for _, m := range all {
		if m.Version <= current {
			continue
		}
		if target >= 0 && m.Version > target {
			break
		}
		if err := r.run(ctx, m, true); err != nil {
			return err
		}
		applied++
	}

	if applied == 0 {
		fmt.Fprintln(r.out, "No migrations to run")
		return nil
	}
	version, _, _ := r.Version(ctx)
	fmt.Fprintf(r.out, "Migrated to version %d (%d migrations applied)\n", version, applied)
	return nil
}

// DownTo reverts applied migrations until target is the current version.
func (r *Runner) DownTo(ctx context.Context, target int) error {
	current, all, err := r.prepare(ctx)
	if err != nil {
		return err
	}

	for i := len(all) - 1; i >= 0; i-- {
		m := all[i]
		if m.Version > current {
			continue
		}
		if m.Version <= target {
			break
		}
		if m.DownSQL == "" {
			return fmt.Errorf("no down migration for version %d", m.Version)
		}
		if err := r.run(ctx, m, false); err != nil {
			return err
		}
	}

	fmt.Fprintf(r.out, "Migrated to version %d\n", target)
	return nil
}

func (r *Runner) prepare(ctx context.Context) (int, []Migration, error) {
	current, dirty, err := r.Version(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to get current version: %w", err)
	}
	if dirty {
		return 0, nil, fmt.Errorf("database is in dirty state at version %d", current)
	}
	all, err := Load(r.source)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to load migrations: %w", err)
	}
	return current, all, nil
}

func (r *Runner) run(ctx context.Context, m Migration, up bool) error {
	direction, body, target := "up", m.UpSQL, m.Version
	if !up {
		direction, body, target = "down", m.DownSQL, m.Version-1
	}
	fmt.Fprintf(r.out, "  %s %d_%s...\n", direction, m.Version, m.Name)

	if err := r.setVersion(ctx, m.Version, true); err != nil {
		return fmt.Errorf("failed to set dirty flag: %w", err)
	}
	for _, stmt := range SplitSQL(body) {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute migration %d %s: %w\nSQL: %s", m.Version, direction, err, stmt)
		}
	}
	if err := r.setVersion(ctx, target, false); err != nil {
		return fmt.Errorf("failed to clear dirty flag: %w", err)
	}
	return nil
}

// SplitSQL splits a script into its non-empty statements.
func SplitSQL(script string) []string {
	var out []string
	for _, stmt := range strings.Split(script, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
