package main

import (
	"context"
	"os"

	"github.com/aretw0/archguide/internal/cli"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive design conversation",
	Long: `Starts a conversation in the terminal. Each line is one turn.

Slash commands pin the turn to a stage: /asr, /style, /tactics, /diagram.
A bare number picks one of the suggested follow-ups. /quit leaves.
With --json, stdin and stdout carry JSON lines instead.`,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	jsonMode, _ := cmd.Flags().GetBool("json")
	logger := newLogger(cfg, true)

	// The runner scopes Ctrl+C to the turn in flight.
	ctx := context.Background()

	app, err := cli.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	opts := cli.ChatOptions{JSON: jsonMode}
	opts.SessionID, _ = cmd.Flags().GetString("session")
	opts.DocPath, _ = cmd.Flags().GetString("doc")
	opts.DocOnly, _ = cmd.Flags().GetBool("doc-only")
	opts.AddContext, _ = cmd.Flags().GetString("context")
	opts.NoBanner, _ = cmd.Flags().GetBool("no-banner")

	return cli.RunChat(ctx, app, opts, os.Stdin, os.Stdout)
}

func init() {
	rootCmd.AddCommand(chatCmd)
	addChatFlags(chatCmd.Flags())
}

// addChatFlags is shared with the root command, which starts a chat.
func addChatFlags(fs *pflag.FlagSet) {
	fs.StringP("session", "s", "", "Session ID to resume (a new one is created when empty)")
	fs.Bool("json", false, "Read and write JSON lines")
	fs.String("doc", "", "Document sent as context with every turn")
	fs.Bool("doc-only", false, "Ground answers on --doc only, skipping retrieval")
	fs.String("context", "", "Extra context appended to every turn")
	fs.Bool("no-banner", false, "Do not print the banner")
}
