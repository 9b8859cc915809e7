package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/projecthayat/hayat/cmd/hayat/internal/build"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, build.String())
		if verbose {
			fmt.Fprintf(out, "  go:      %s\n", runtime.Version())
			fmt.Fprintf(out, "  runtime: %s\n", build.Runtime())
			if used := v.ConfigFileUsed(); used != "" {
				fmt.Fprintf(out, "  config:  %s\n", used)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
