package main

import (
	"github.com/aretw0/archguide/internal/cli"
	"github.com/aretw0/archguide/internal/logging"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage persistent sessions",
	Long:  `List, inspect, and remove sessions in the configured store.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all active sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		stack, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer stack.Close()
		return cli.ListSessions(cmd.Context(), stack.Store, cmd.OutOrStdout())
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <session-id>",
	Short: "Inspect the memory of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stack, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer stack.Close()
		raw, _ := cmd.Flags().GetBool("raw")
		return cli.InspectSession(cmd.Context(), stack.Store, args[0], raw, cmd.OutOrStdout())
	},
}

var sessionGraphCmd = &cobra.Command{
	Use:   "graph <session-id>",
	Short: "Print the stage flow of the last turn as a Mermaid graph",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stack, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer stack.Close()
		return cli.GraphSession(cmd.Context(), stack.Store, args[0], cmd.OutOrStdout())
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <session-id>...",
	Short: "Remove one or more sessions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stack, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer stack.Close()
		return cli.RemoveSessions(cmd.Context(), stack.Store, args, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionGraphCmd)
	sessionCmd.AddCommand(sessionRmCmd)

	sessionInspectCmd.Flags().Bool("raw", false, "Print the whole record as JSON")
}

func openStore(cmd *cobra.Command) (cli.StoreStack, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return cli.StoreStack{}, err
	}
	return cli.OpenStore(cfg, logging.NewNop())
}
