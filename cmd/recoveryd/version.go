package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/recoverykit/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Run: func(cmd *cobra.Command, _ []string) {
		info := version.Get()
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", serviceName, info, info.GoVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
