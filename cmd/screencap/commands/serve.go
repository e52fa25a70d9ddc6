package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bryanchriswhite/screencap/internal/api"
	"github.com/bryanchriswhite/screencap/internal/logger"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the screencap API server",
	Long: `Start the screencap HTTP server.

The server exposes monitor and window listings, state queries and captures as
a REST API, plus a websocket at /api/ws for record-level calls.`,
	Example: `  # Start server on the configured address (default 127.0.0.1:8080)
  screencap serve

  # Start server on a custom port
  screencap serve --port 9090

  # Start with debug logging
  screencap serve --log-level debug`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	servePort int
	serveHost string
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "server port (default from config)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")

	configMgr, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort > 0 {
		configMgr.Override("server.port", servePort)
	}
	if serveHost != "" {
		configMgr.Override("server.host", serveHost)
	}
	cfg := configMgr.Get()
	log.Info().
		Str("config", configMgr.GetConfigPath()).
		Str("log_level", cfg.LogLevel).
		Msg("Configuration loaded")

	engine, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := api.NewServer(engine, configMgr)
	return server.Start(ctx, cfg.Server.Host, cfg.Server.Port)
}
