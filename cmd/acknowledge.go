/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dosewatch/alertkit/internal/alert"
	"github.com/dosewatch/alertkit/internal/colors"
)

// acknowledgeCmd represents the acknowledge command
var acknowledgeCmd = &cobra.Command{
	Use:     "acknowledge <manager-id> <alert-id>",
	Aliases: []string{"ack"},
	Short:   "Acknowledge an alert",
	Long: `Mark every unacknowledged occurrence of an alert as acknowledged,
withdraw its schedules, and notify the issuing manager's responder if one
is registered.

USAGE:
    alertkit acknowledge pump occlusion`,
	Args: cobra.ExactArgs(2),
	RunE: runAcknowledge,
}

func init() {
	RootCmd.AddCommand(acknowledgeCmd)
}

func runAcknowledge(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	identifier := alert.NewIdentifier(args[0], args[1])
	if err := rt.manager.AcknowledgeAlert(identifier); err != nil {
		return err
	}
	colors.Success("Acknowledged alert " + identifier.Key())
	return nil
}
