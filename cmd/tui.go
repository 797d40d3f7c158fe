/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dosewatch/alertkit/internal/tui"
)

// tuiCmd represents the tui command
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Browse alerts interactively",
	Long: `Open an interactive browser over the alert log. Alerts can be
acknowledged and retracted from the list.

USAGE:
    alertkit tui`,
	Args: cobra.NoArgs,
	RunE: runTui,
}

func init() {
	RootCmd.AddCommand(tuiCmd)
}

func runTui(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	return tui.Run(rt.ledger, rt.manager)
}
