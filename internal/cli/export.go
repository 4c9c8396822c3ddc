package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/mtranscript/internal/transcript"
)

var exportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export a stored session as JSONL",
	Long: `Export a stored session as JSONL.

By default the stored events are re-encoded. With --original the archived
transcript is written back unchanged.

Examples:
  mtranscript export 8f14e45f > session.jsonl
  mtranscript export 8f14e45f --output session.jsonl
  mtranscript export 8f14e45f --original`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

// Flags
var (
	exportOutput   string
	exportOriginal bool
)

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")
	exportCmd.Flags().BoolVar(&exportOriginal, "original", false, "Write the archived transcript")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	var out io.Writer = cmd.OutOrStdout()
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	return exportSession(ctx, app, args[0], exportOriginal, out)
}

func exportSession(ctx context.Context, app *AppContext, sessionID string, original bool, out io.Writer) error {
	if original {
		data, err := app.Transcripts.Get(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("failed to read archived transcript: %w", err)
		}
		_, err = out.Write(data)
		return err
	}

	events, err := app.Events.ListBySession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if len(events) == 0 {
		return fmt.Errorf("session %q not found", sessionID)
	}
	return transcript.Encode(out, events)
}
