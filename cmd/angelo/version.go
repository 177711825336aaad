package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hrygo/angelo/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "angelo %s (commit %s)\n", version.String(), version.GitCommit)
	},
}
