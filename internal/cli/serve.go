package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/mtranscript/internal/server"
	"github.com/emiliopalmerini/mtranscript/internal/sessions"
	"github.com/emiliopalmerini/mtranscript/internal/stats"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the JSON API server",
	Long: `Start the HTTP API over the stored sessions.

The listen address defaults to $ADDR, then :8080.

Examples:
  mtranscript serve
  mtranscript serve --addr :3000
  mtranscript serve --limits limits.yaml`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// Flags
var (
	serveAddr   string
	serveLimits string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "Address to listen on")
	serveCmd.Flags().StringVarP(&serveLimits, "limits", "l", "", "YAML file with session limits")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	limits, err := loadLimitsFlag(serveLimits)
	if err != nil {
		return err
	}

	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	handler := sessions.NewHandler(app.Events,
		sessions.WithConfigResolver(app.AgentConfigs),
		sessions.WithCache(stats.NewCache()),
		sessions.WithLimits(limits),
		sessions.WithLogger(app.Logger),
	)

	cfg := server.Config{
		Addr:            app.Config.Server.Addr,
		ShutdownTimeout: app.Config.Server.ShutdownTimeout,
	}
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}

	srv := server.NewHTTPServer(cfg, server.NewRouter(handler, app.Logger))
	fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s\n", cfg.Addr)
	return server.Run(ctx, srv, cfg.ShutdownTimeout, app.Logger)
}
