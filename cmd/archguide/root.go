package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/archguide/internal/config"
	"github.com/aretw0/archguide/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "archguide",
	Short: "archguide is a conversational software architecture design assistant",
	Long: `archguide walks a designer through architecture drivers (ASRs), styles,
tactics and deployment diagrams, one conversational turn at a time.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("store", "", "Session store: memory, file, redis")
	rootCmd.PersistentFlags().Bool("debug", false, "Shorthand for --log-level=debug")

	// Bare `archguide` starts a chat.
	rootCmd.RunE = runChat
	addChatFlags(rootCmd.Flags())
}

// loadConfig reads the config file and applies the persistent flags on top.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Log.Level = "debug"
	}
	if store, _ := cmd.Flags().GetString("store"); store != "" {
		cfg.Store.Backend = store
	}
	return cfg, cfg.Validate()
}

// newLogger builds the process logger. Interactive chat stays quiet unless
// asked, so logs never interleave with the conversation.
func newLogger(cfg config.Config, quiet bool) *slog.Logger {
	if quiet && cfg.Log.Level != "debug" {
		return logging.NewNop()
	}
	return logging.FromConfig(cfg.Log.Level, cfg.Log.Format)
}
