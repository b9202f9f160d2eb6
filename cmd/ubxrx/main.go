// Ubxrx reads UBX NAV-PVT, NAV-DOP and MON-HW records from a u-blox
// receiver and serves the decoded state over HTTP, Prometheus and UDP.
//
// Usage:
//
//	ubxrx run --config ./ubxrx.yaml
//	ubxrx summary capture.log
//	ubxrx version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ubxrx",
		Short:         "u-blox UBX receiver daemon",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newSummaryCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ubxrx %s\n", version)
		},
	}
}
