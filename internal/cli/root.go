package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "mtranscript",
	Short: "Reconstruct and analyse agent session transcripts",
	Long: `mtranscript rebuilds the conversation structure of agent sessions.

Import JSONL transcripts, group sub-agent delegations, build turns, interleave
messages with tool activity, and compute per-agent statistics.`,
	SilenceUsage: true,
}

var debugFlag bool

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Print debug output to stderr")
}
