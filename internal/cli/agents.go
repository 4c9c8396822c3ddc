package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/mtranscript/internal/domain"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Manage agent model configurations",
	Long: `Manage the model configurations used to label turns.

Turns whose agent messages carry a config id are labelled with the stored
configuration's display label.`,
}

var agentsSetCmd = &cobra.Command{
	Use:   "set <config-id>",
	Short: "Create or update an agent configuration",
	Long: `Create or update an agent configuration.

Examples:
  mtranscript agents set cfg-1 --provider anthropic --model claude-sonnet
  mtranscript agents set cfg-1 --label "Sonnet (fast)"`,
	Args: cobra.ExactArgs(1),
	RunE: runAgentsSet,
}

var agentsShowCmd = &cobra.Command{
	Use:   "show <config-id>",
	Short: "Show an agent configuration",
	Args:  cobra.ExactArgs(1),
	RunE:  runAgentsShow,
}

// Flags
var (
	agentsProvider string
	agentsModel    string
	agentsLabel    string
)

func init() {
	rootCmd.AddCommand(agentsCmd)
	agentsCmd.AddCommand(agentsSetCmd)
	agentsCmd.AddCommand(agentsShowCmd)

	agentsSetCmd.Flags().StringVar(&agentsProvider, "provider", "", "Model provider")
	agentsSetCmd.Flags().StringVar(&agentsModel, "model", "", "Model name")
	agentsSetCmd.Flags().StringVar(&agentsLabel, "label", "", "Display label")
}

func runAgentsSet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if agentsProvider == "" && agentsModel == "" && agentsLabel == "" {
		return fmt.Errorf("at least one of --provider, --model or --label is required")
	}

	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	cfg := &domain.AgentConfig{ID: args[0], Provider: agentsProvider, Model: agentsModel, Label: agentsLabel}
	if err := app.AgentConfigs.Upsert(ctx, cfg); err != nil {
		return fmt.Errorf("failed to save agent config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s: %s\n", cfg.ID, cfg.DisplayLabel())
	return nil
}

func runAgentsShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	cfg, err := app.AgentConfigs.GetByID(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to load agent config: %w", err)
	}
	if cfg == nil {
		return fmt.Errorf("agent config %q not found", args[0])
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:        %s\n", cfg.ID)
	fmt.Fprintf(out, "Provider:  %s\n", cfg.Provider)
	fmt.Fprintf(out, "Model:     %s\n", cfg.Model)
	fmt.Fprintf(out, "Label:     %s\n", cfg.DisplayLabel())
	return nil
}
