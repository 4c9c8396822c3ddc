package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/mtranscript/internal/domain"
	"github.com/emiliopalmerini/mtranscript/internal/replay"
	"github.com/emiliopalmerini/mtranscript/internal/transcript"
)

var importCmd = &cobra.Command{
	Use:   "import <file.jsonl>",
	Short: "Import a JSONL transcript into the event store",
	Long: `Import a JSONL transcript into the event store.

Events already stored for the session (same id) are skipped, so a growing
transcript can be imported repeatedly. The raw file is archived unless
--no-archive is given.

Examples:
  mtranscript import session.jsonl
  mtranscript import session.jsonl --session my-session
  mtranscript import session.jsonl --no-archive`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

// Flags
var (
	importSession   string
	importNoArchive bool
)

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVarP(&importSession, "session", "s", "", "Session id (default: taken from the events)")
	importCmd.Flags().BoolVar(&importNoArchive, "no-archive", false, "Do not archive the raw transcript")
}

// importSummary reports the outcome of one import.
type importSummary struct {
	SessionID string
	Imported  int
	Existing  int
	Skipped   int
	Archived  bool
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	summary, err := importTranscript(ctx, app, args[0], importSession, !importNoArchive)
	if err != nil {
		return err
	}
	printImportSummary(cmd.OutOrStdout(), summary)
	return nil
}

func importTranscript(ctx context.Context, app *AppContext, path, sessionID string, archive bool) (*importSummary, error) {
	result, err := transcript.NewParser(app.Logger).ParseFile(path)
	if err != nil {
		return nil, err
	}

	if sessionID == "" {
		sessionID = replay.SessionID(result.Events)
	}
	if sessionID == "" {
		return nil, fmt.Errorf("transcript carries no session id: use --session")
	}

	existing, err := app.Events.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	fresh := newEvents(existing, result.Events)

	if len(fresh) > 0 {
		if err := app.Events.Append(ctx, sessionID, fresh); err != nil {
			return nil, fmt.Errorf("failed to store events: %w", err)
		}
	}

	summary := &importSummary{
		SessionID: sessionID,
		Imported:  len(fresh),
		Existing:  len(result.Events) - len(fresh),
		Skipped:   result.Skipped,
	}

	if archive {
		if _, err := app.Transcripts.Store(ctx, sessionID, path); err != nil {
			app.Logger.Warn(fmt.Sprintf("failed to archive transcript: %v", err))
		} else {
			summary.Archived = true
		}
	}
	return summary, nil
}

// newEvents returns the events of incoming whose id is not in stored.
func newEvents(stored, incoming []domain.Event) []domain.Event {
	seen := make(map[string]struct{}, len(stored))
	for _, e := range stored {
		seen[e.Env().ID] = struct{}{}
	}
	fresh := make([]domain.Event, 0, len(incoming))
	for _, e := range incoming {
		id := e.Env().ID
		if _, ok := seen[id]; ok {
			continue
		}
		fresh = append(fresh, e)
	}
	return fresh
}

func printImportSummary(w io.Writer, s *importSummary) {
	fmt.Fprintf(w, "Session:   %s\n", s.SessionID)
	fmt.Fprintf(w, "Imported:  %d events\n", s.Imported)
	if s.Existing > 0 {
		fmt.Fprintf(w, "Existing:  %d events already stored\n", s.Existing)
	}
	if s.Skipped > 0 {
		fmt.Fprintf(w, "Skipped:   %d malformed lines\n", s.Skipped)
	}
	if s.Archived {
		fmt.Fprintf(w, "Archived:  yes\n")
	}
}
