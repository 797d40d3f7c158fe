/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dosewatch/alertkit/internal/alert"
	"github.com/dosewatch/alertkit/internal/colors"
)

// retractCmd represents the retract command
var retractCmd = &cobra.Command{
	Use:   "retract <manager-id> <alert-id>",
	Short: "Retract an alert",
	Long: `Withdraw an alert from both delivery channels and mark its latest
ledger occurrence as retracted. A scheduled alert retracted before it ever
fired leaves no trace in the log.

USAGE:
    alertkit retract loop workout-reminder`,
	Args: cobra.ExactArgs(2),
	RunE: runRetract,
}

func init() {
	RootCmd.AddCommand(retractCmd)
}

func runRetract(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	identifier := alert.NewIdentifier(args[0], args[1])
	if err := rt.manager.RetractAlert(identifier); err != nil {
		return err
	}
	colors.Success("Retracted alert " + identifier.Key())
	return nil
}
