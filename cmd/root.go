/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dosewatch/alertkit/internal/colors"
	"github.com/dosewatch/alertkit/internal/config"
	"github.com/dosewatch/alertkit/internal/logging"
	"github.com/dosewatch/alertkit/internal/version"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "alertkit",
	Short: "Safety-alert ledger and delivery for closed-loop dosing systems.",
	Long: `alertkit issues, persists, delivers, and acknowledges time-sensitive
safety alerts, surviving process restarts and crashes without losing or
duplicating a record.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.Load()
		if err := logging.InitGlobal(); err != nil {
			colors.Warning("could not initialize logging: " + err.Error())
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logging.ShutdownGlobal()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.Version = version.String()
	RootCmd.CompletionOptions.HiddenDefaultCmd = true
}
