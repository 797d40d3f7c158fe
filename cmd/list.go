/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dosewatch/alertkit/internal/colors"
	"github.com/dosewatch/alertkit/internal/config"
	"github.com/dosewatch/alertkit/internal/ledger"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List active alerts",
	Long: `List the alerts currently awaiting acknowledgement. With --repeating
the acknowledged repeating alerts are listed instead, the set a restart
would resume.

USAGE:
    alertkit list
    alertkit list --manager pump
    alertkit list --repeating`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var (
	listManager   string
	listRepeating bool
)

func init() {
	RootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVar(&listManager, "manager", "", "Only alerts issued by this manager")
	listCmd.Flags().BoolVar(&listRepeating, "repeating", false, "List acknowledged repeating alerts instead")
}

func openLedger() (*ledger.Ledger, error) {
	retention := time.Duration(config.GetInt("retention_hours", 24)) * time.Hour
	return ledger.Open(config.Get("ledger_path", ""),
		ledger.WithRetention(retention),
		ledger.WithExportBatchSize(config.GetInt("export_batch_size", 500)))
}

func runList(cmd *cobra.Command, args []string) error {
	led, err := openLedger()
	if err != nil {
		return err
	}
	defer led.Close()

	var records []ledger.StoredAlert
	if listRepeating {
		records, err = led.AcknowledgedUnretractedRepeatingSync(listManager)
	} else {
		records, err = led.UnacknowledgedUnretractedSync(listManager)
	}
	if err != nil {
		return err
	}
	if len(records) == 0 {
		colors.Info("No alerts")
		return nil
	}

	for _, r := range records {
		fmt.Printf("%-40s  %-13s  %-9s  issued %s\n",
			r.Identifier.Key(),
			r.InterruptionLevel,
			r.Trigger.Type,
			r.IssuedDate.Local().Format(time.RFC3339))
	}
	return nil
}
