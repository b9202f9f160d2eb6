package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"ubxrx/internal/capture"
	"ubxrx/internal/ubx"
)

func newSummaryCmd() *cobra.Command {
	var resync string
	cmd := &cobra.Command{
		Use:   "summary <capture>",
		Short: "Decode a capture file offline and print frame statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := ubx.ParseResyncPolicy(resync)
			if err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), args[0], policy)
		},
	}
	cmd.Flags().StringVar(&resync, "resync", "discard", "Resync policy (discard, hold)")
	return cmd
}

func printSummary(w io.Writer, path string, policy ubx.ResyncPolicy) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open capture: %w", err)
	}
	defer f.Close()

	recs, err := capture.NewReader(f).ReadAll()
	if err != nil {
		return err
	}
	sum, err := capture.Summarize(recs, ubx.WithResyncPolicy(policy))
	if err != nil {
		return fmt.Errorf("decode capture: %w", err)
	}
	sum.Print(w, path)
	return nil
}
