package cli

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/emiliopalmerini/mtranscript/internal/migrate"
)

const transcriptFixture = `{"type":"system","id":"s0","sessionId":"SESSION","timestamp":"2025-02-01T12:00:00Z","content":"created"}
{"type":"user","id":"u1","agentId":"primary","sessionId":"SESSION","timestamp":"2025-02-01T12:00:00Z","content":"Find the bug","isMessage":true}
{"type":"agent","id":"a1","agentId":"primary","sessionId":"SESSION","timestamp":"2025-02-01T12:00:01Z","content":"Delegating.","isMessage":true,"configId":"cfg-1","model":"sonnet"}
{"type":"tool_call","id":"t1","agentId":"primary","sessionId":"SESSION","timestamp":"2025-02-01T12:00:02Z","toolCall":{"tool_call_id":"call-1","kind":"delegate","raw_input":{"objective":"search"}},"delegationId":"d1","delegationTargetAgentId":"searcher"}
{"type":"tool_call","id":"w1","agentId":"searcher","sessionId":"SESSION","timestamp":"2025-02-01T12:00:03Z","toolCall":{"tool_call_id":"call-2","kind":"read"}}
{"type":"agent","id":"w2","agentId":"searcher","sessionId":"SESSION","timestamp":"2025-02-01T12:00:04Z","content":"It is in main.go","isMessage":true,"costUsd":0.02}
{"type":"agent","id":"m1","agentId":"primary","sessionId":"SESSION","timestamp":"2025-02-01T12:00:05Z","delegationId":"d1","delegationEventType":"completed"}
{"type":"agent","id":"a2","agentId":"primary","sessionId":"SESSION","timestamp":"2025-02-01T12:00:06Z","content":"Found it.","isMessage":true,"costUsd":0.03}
{"type":"agent","id":"e1","agentId":"primary","sessionId":"SESSION","timestamp":"2025-02-01T12:00:07Z","subtype":"request_end","finishReason":"stop"}
{not json}
`

// writeTranscript writes the fixture for sessionID and returns its path.
func writeTranscript(t *testing.T, sessionID string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), sessionID+".jsonl")
	content := strings.ReplaceAll(transcriptFixture, "SESSION", sessionID)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write transcript: %v", err)
	}
	return path
}

// testDB creates an in-memory database with all migrations applied and
// installs it as the CLI database.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("libsql", "file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	if err := migrate.RunAll(context.Background(), db); err != nil {
		_ = db.Close()
		t.Fatalf("Failed to run migrations: %v", err)
	}

	testDBOverride = db
	t.Cleanup(func() {
		testDBOverride = nil
		_ = db.Close()
	})
	return db
}

func testApp(t *testing.T) *AppContext {
	t.Helper()

	testDB(t)
	app, err := NewAppContext(context.Background())
	if err != nil {
		t.Fatalf("NewAppContext failed: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })
	return app
}

// runCommand executes the root command with args and returns its stdout.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return out.String(), err
}

func assertEqual[T any](t *testing.T, field string, want, got T) {
	t.Helper()
	if !reflect.DeepEqual(want, got) {
		t.Errorf("%s: want %v, got %v", field, want, got)
	}
}
