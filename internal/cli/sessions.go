package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/mtranscript/internal/ports"
	"github.com/emiliopalmerini/mtranscript/internal/util"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List stored sessions",
	Long: `List stored sessions, most recently active first.

Examples:
  mtranscript sessions            # Last 10 sessions
  mtranscript sessions --last 50  # Last 50 sessions`,
	Args: cobra.NoArgs,
	RunE: runSessions,
}

var sessionsLast int

func init() {
	rootCmd.AddCommand(sessionsCmd)

	sessionsCmd.Flags().IntVarP(&sessionsLast, "last", "n", 10, "Number of sessions to show")
}

func runSessions(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	list, err := app.Events.ListSessions(ctx, sessionsLast)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	printSessions(cmd.OutOrStdout(), list)
	return nil
}

func printSessions(out io.Writer, list []ports.SessionSummary) {
	if len(list) == 0 {
		fmt.Fprintln(out, "No sessions found.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tEVENTS\tFIRST\tLAST")
	for _, s := range list {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", s.ID, s.EventCount, util.FormatTimestamp(s.FirstAt), util.FormatTimestamp(s.LastAt))
	}
	_ = w.Flush()
}
