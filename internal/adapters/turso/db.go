package turso

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "github.com/tursodatabase/go-libsql"
)

// Open connects to a libsql database. Remote URLs carry authToken as a query
// parameter; local file URLs ignore it.
func Open(databaseURL, authToken string) (*sql.DB, error) {
	return OpenWithOptions(databaseURL, authToken, true)
}

// OpenNoPing skips the initial ping. Failures surface on the first query.
func OpenNoPing(databaseURL, authToken string) (*sql.DB, error) {
	return OpenWithOptions(databaseURL, authToken, false)
}

func OpenWithOptions(databaseURL, authToken string, ping bool) (*sql.DB, error) {
	connStr := databaseURL
	if authToken != "" && !strings.HasPrefix(databaseURL, "file:") {
		connStr += "?authToken=" + authToken
	}
	db, err := sql.Open("libsql", connStr)
	if err != nil {
		return nil, err
	}

	// Turso closes idle Hrana streams aggressively; stale pooled connections
	// fail with "stream not found".
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(0)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(0)

	if ping {
		if err := db.Ping(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

// IsStreamError reports whether err is a Turso "stream not found" error.
func IsStreamError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "stream not found")
}

// WithRetry runs fn, retrying up to maxRetries times on stream errors.
func WithRetry[T any](ctx context.Context, maxRetries int, fn func() (T, error)) (T, error) {
	var (
		result T
		err    error
	)
	for attempt := 0; attempt <= maxRetries; attempt++ {
		result, err = fn()
		if err == nil || !IsStreamError(err) || attempt == maxRetries {
			return result, err
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
	return result, err
}
