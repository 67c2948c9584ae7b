package main

import (
	"os"

	"github.com/aretw0/archguide/internal/cli"
	"github.com/spf13/cobra"
)

var sanitizeCmd = &cobra.Command{
	Use:   "sanitize [file]",
	Short: "Sanitize a Mermaid deployment diagram",
	Long: `Reads a diagram from the file (or stdin), prints the sanitized diagram
and exits non-zero when it still fails the structural checks.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := os.Stdin
		if len(args) == 1 {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		return cli.SanitizeDiagram(in, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(sanitizeCmd)
}
