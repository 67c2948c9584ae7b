package main

import (
	"fmt"
	"log"
	"os"

	"github.com/aretw0/archguide"
	"github.com/aretw0/archguide/internal/cli"
	"github.com/aretw0/archguide/internal/logging"
	"github.com/aretw0/archguide/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts archguide as an MCP Server, exposing chat_turn, sanitize_diagram,
recover_tactics and validate_tactics as tools and the sessions as resources.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		// Logs go to stderr so they never corrupt JSON-RPC on stdout.
		log.SetOutput(os.Stderr)
		logger := logging.FromConfig(cfg.Log.Level, cfg.Log.Format)

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		app, err := cli.Build(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer app.Close()

		srv := mcp.NewServer(app.Engine, app.Engine.Sessions(), archguide.Version,
			mcp.WithLogger(logger),
			mcp.WithOracle(app.Oracle),
			mcp.WithTacticsCount(cfg.Tactics.K),
			mcp.WithMaxInputSize(cfg.MaxInputSize),
		)

		switch transport {
		case "stdio":
			logger.Info("Starting archguide MCP Server (Stdio)...")
			return srv.ServeStdio()
		case "sse":
			logger.Info("Starting archguide MCP Server (SSE)", "port", port)
			if err := srv.ServeSSE(ctx, port); err != nil {
				return err
			}
			logger.Info("MCP Server stopped gracefully")
			return nil
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}
