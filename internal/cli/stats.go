package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/mtranscript/internal/adapters/otel"
	"github.com/emiliopalmerini/mtranscript/internal/config"
	"github.com/emiliopalmerini/mtranscript/internal/domain"
	"github.com/emiliopalmerini/mtranscript/internal/ports"
	"github.com/emiliopalmerini/mtranscript/internal/replay"
	"github.com/emiliopalmerini/mtranscript/internal/stats"
	"github.com/emiliopalmerini/mtranscript/internal/turns"
)

var statsCmd = &cobra.Command{
	Use:   "stats <session-id|file.jsonl>",
	Short: "Show per-agent statistics for a session",
	Long: `Show session totals and per-agent statistics.

The argument is either a stored session id or a JSONL transcript path.

Timing modes:
  turns   Active time is the sum of turn durations (default)
  legacy  Active time follows each agent's idle/working state

Examples:
  mtranscript stats 8f14e45f
  mtranscript stats session.jsonl --timing legacy
  mtranscript stats session.jsonl --limits limits.yaml
  mtranscript stats 8f14e45f --export    # Also push to the OTLP collector
  mtranscript stats 8f14e45f --json`,
	Args: cobra.ExactArgs(1),
	RunE: runStats,
}

// Flags
var (
	statsTiming string
	statsLimits string
	statsExport bool
	statsJSON   bool
)

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().StringVarP(&statsTiming, "timing", "t", string(stats.TimingTurns), "Timing mode: turns, legacy")
	statsCmd.Flags().StringVarP(&statsLimits, "limits", "l", "", "YAML file with session limits")
	statsCmd.Flags().BoolVar(&statsExport, "export", false, "Export the statistics over OTLP")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Print JSON instead of text")
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	timing, err := stats.ParseTiming(statsTiming)
	if err != nil {
		return err
	}
	limits, err := loadLimitsFlag(statsLimits)
	if err != nil {
		return err
	}

	return withSession(ctx, args[0], func(events []domain.Event, resolve turns.RequestAgentConfig, logger ports.Logger) error {
		view := replay.Reconstruct(events, replay.Options{
			Limits:             limits,
			Timing:             timing,
			Logger:             logger,
			RequestAgentConfig: resolve,
		})

		if statsExport {
			if err := exportStats(ctx, view, logger); err != nil {
				return err
			}
			logger.Debug(fmt.Sprintf("exported statistics of session %s", view.SessionID))
		}

		return printStatsView(cmd.OutOrStdout(), view, timing, statsJSON)
	})
}

func printStatsView(w io.Writer, view replay.View, timing stats.Timing, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(view.Stats)
	}
	renderStats(w, view, timing)
	return nil
}

func loadLimitsFlag(path string) (*domain.SessionLimits, error) {
	if path == "" {
		return nil, nil
	}
	return config.LoadLimits(path)
}

func exportStats(ctx context.Context, view replay.View, logger ports.Logger) error {
	cfg, err := otel.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load OTEL config: %w", err)
	}
	cfg.Enabled = true

	exporter, err := newMetricsExporter(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = exporter.Close(ctx) }()

	if err := exporter.ExportSessionStats(ctx, view.SessionID, view.Stats); err != nil {
		return fmt.Errorf("failed to export statistics: %w", err)
	}
	return nil
}

// newMetricsExporter returns the OTLP exporter, or a discarding one when no
// endpoint is configured.
func newMetricsExporter(ctx context.Context, cfg otel.Config, logger ports.Logger) (ports.MetricsExporter, error) {
	if cfg.Endpoint == "" {
		return otel.NewDiscardExporter(logger), nil
	}
	exporter, err := otel.NewExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return exporter, nil
}
