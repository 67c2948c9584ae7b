package main

import (
	"github.com/aretw0/archguide/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Starts the engine behind a JSON API: POST /turn, GET/DELETE /sessions/{id},
POST /diagram/sanitize, GET /events (server-sent events) and Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("metrics-port") {
			cfg.Server.MetricsPort, _ = cmd.Flags().GetInt("metrics-port")
		}
		logger := newLogger(cfg, false)

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		app, err := cli.Build(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer app.Close()

		err = cli.RunServe(ctx, app, cli.ServeOptions{
			Port:        cfg.Server.Port,
			MetricsPort: cfg.Server.MetricsPort,
		})
		if sig := ctx.Signal(); sig != nil {
			logger.Info("Shutdown complete", "signal", sig.String())
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().Int("metrics-port", 9090, "Port for /metrics (0 serves it on the API port)")
}
