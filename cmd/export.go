/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dosewatch/alertkit/internal/colors"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export ledger records as JSON",
	Long: `Stream the ledger records touched within a date range as a JSON
array. A record qualifies when its issued, acknowledged, or retracted date
falls inside [start, end).

USAGE:
    alertkit export --start 2026-08-01T00:00:00Z --end 2026-09-01T00:00:00Z
    alertkit export --start 2026-08-01T00:00:00Z --end 2026-09-01T00:00:00Z -o alerts.json`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

var (
	exportStart  string
	exportEnd    string
	exportOutput string
)

func init() {
	RootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportStart, "start", "", "Range start, RFC 3339 (required)")
	exportCmd.Flags().StringVar(&exportEnd, "end", "", "Range end, RFC 3339, exclusive (required)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to file instead of stdout")
	_ = exportCmd.MarkFlagRequired("start")
	_ = exportCmd.MarkFlagRequired("end")
}

func runExport(cmd *cobra.Command, args []string) error {
	start, err := time.Parse(time.RFC3339, exportStart)
	if err != nil {
		return fmt.Errorf("invalid --start: %w", err)
	}
	end, err := time.Parse(time.RFC3339, exportEnd)
	if err != nil {
		return fmt.Errorf("invalid --end: %w", err)
	}
	if !end.After(start) {
		return fmt.Errorf("--end must be after --start")
	}

	var out io.Writer = os.Stdout
	var progress func(float64)
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
		progress = func(fraction float64) {
			colors.Info(fmt.Sprintf("Export %.0f%%", fraction*100))
		}
	}

	led, err := openLedger()
	if err != nil {
		return err
	}
	defer led.Close()

	if err := led.ExportRange(cmd.Context(), out, start, end, progress); err != nil {
		return err
	}
	if exportOutput != "" {
		colors.Success("Exported to " + exportOutput)
	}
	return nil
}
