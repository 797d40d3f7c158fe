/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a diagnostic report of the alert log",
	Long: `Print every ledger record in a human-readable form followed by a
summary line, the report an issue tracker attachment would carry.

USAGE:
    alertkit report
    alertkit report > alerts.txt`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	RootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	return rt.manager.GatherReport(cmd.Context(), os.Stdout)
}
