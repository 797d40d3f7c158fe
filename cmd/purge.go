/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dosewatch/alertkit/internal/colors"
)

// purgeCmd represents the purge command
var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete old ledger records",
	Long: `Delete every ledger record issued before the given moment. The
modification counter is never reset, so later records keep their ordering.

Records older than the configured retention are swept automatically on
every write; purge is for trimming the log ahead of schedule.

USAGE:
    alertkit purge --before 2026-08-01T00:00:00Z
    alertkit purge --older-than 72h`,
	Args: cobra.NoArgs,
	RunE: runPurge,
}

var (
	purgeBefore    string
	purgeOlderThan time.Duration
)

func init() {
	RootCmd.AddCommand(purgeCmd)

	purgeCmd.Flags().StringVar(&purgeBefore, "before", "", "Delete records issued before this RFC 3339 time")
	purgeCmd.Flags().DurationVar(&purgeOlderThan, "older-than", 0, "Delete records older than this duration")
	purgeCmd.MarkFlagsMutuallyExclusive("before", "older-than")
	purgeCmd.MarkFlagsOneRequired("before", "older-than")
}

func runPurge(cmd *cobra.Command, args []string) error {
	var cutoff time.Time
	if purgeBefore != "" {
		parsed, err := time.Parse(time.RFC3339, purgeBefore)
		if err != nil {
			return fmt.Errorf("invalid --before: %w", err)
		}
		cutoff = parsed
	} else {
		cutoff = time.Now().Add(-purgeOlderThan)
	}

	led, err := openLedger()
	if err != nil {
		return err
	}
	defer led.Close()

	if err := led.PurgeSync(cutoff); err != nil {
		return err
	}
	colors.Success("Purged records issued before " + cutoff.UTC().Format(time.RFC3339))
	return nil
}
