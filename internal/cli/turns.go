package cli

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/mtranscript/internal/domain"
	"github.com/emiliopalmerini/mtranscript/internal/interleave"
	"github.com/emiliopalmerini/mtranscript/internal/ports"
	"github.com/emiliopalmerini/mtranscript/internal/replay"
	"github.com/emiliopalmerini/mtranscript/internal/turns"
)

var turnsCmd = &cobra.Command{
	Use:   "turns <session-id|file.jsonl>",
	Short: "Show the turns of a session",
	Long: `Show the turns of a session, optionally interleaved into blocks.

Examples:
  mtranscript turns session.jsonl
  mtranscript turns 8f14e45f --blocks
  mtranscript turns 8f14e45f --blocks --hide-delegates
  mtranscript turns 8f14e45f --json`,
	Args: cobra.ExactArgs(1),
	RunE: runTurns,
}

// Flags
var (
	turnsBlocks        bool
	turnsHideDelegates bool
	turnsJSON          bool
)

func init() {
	rootCmd.AddCommand(turnsCmd)

	turnsCmd.Flags().BoolVarP(&turnsBlocks, "blocks", "b", false, "Interleave messages and tool activity")
	turnsCmd.Flags().BoolVar(&turnsHideDelegates, "hide-delegates", false, "Hide delegate tool calls")
	turnsCmd.Flags().BoolVar(&turnsJSON, "json", false, "Print JSON instead of text")
}

func runTurns(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var opts []interleave.Option
	if turnsHideDelegates {
		opts = append(opts, interleave.WithToolFilter(func(tc domain.ToolCall) bool { return !tc.IsDelegate() }))
	}

	return withSession(ctx, args[0], func(events []domain.Event, resolve turns.RequestAgentConfig, logger ports.Logger) error {
		view := replay.Reconstruct(events, replay.Options{Logger: logger, RequestAgentConfig: resolve})

		w := cmd.OutOrStdout()
		if turnsJSON {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			if !turnsBlocks {
				return enc.Encode(view.Turns)
			}
			blocks := make(map[string]interleave.Result, len(view.Turns))
			for _, t := range view.Turns {
				blocks[t.ID] = interleave.Blocks(t, opts...)
			}
			return enc.Encode(blocks)
		}

		renderTurns(w, view, turnsBlocks, opts...)
		return nil
	})
}
