package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/archguide"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of archguide",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "archguide version %s\n", strings.TrimSpace(archguide.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
