/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dosewatch/alertkit/internal/colors"
	"github.com/dosewatch/alertkit/internal/muter"
)

// muteCmd represents the mute command
var muteCmd = &cobra.Command{
	Use:   "mute <duration>",
	Short: "Silence alert sounds for a period",
	Long: `Silence alert sounds for the given duration, up to 4 hours. Alerts
are still delivered visually; pending schedules are rebuilt so their sounds
honor the window when they fire.

USAGE:
    alertkit mute 30m
    alertkit mute 2h`,
	Args: cobra.ExactArgs(1),
	RunE: runMute,
}

// unmuteCmd represents the unmute command
var unmuteCmd = &cobra.Command{
	Use:   "unmute",
	Short: "End the mute period now",
	Args:  cobra.NoArgs,
	RunE:  runUnmute,
}

func init() {
	RootCmd.AddCommand(muteCmd)
	RootCmd.AddCommand(unmuteCmd)
}

func runMute(cmd *cobra.Command, args []string) error {
	duration, err := time.ParseDuration(args[0])
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", args[0], err)
	}
	if duration > muter.MaxDuration {
		return fmt.Errorf("duration %s exceeds the %s maximum", duration, muter.MaxDuration)
	}

	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.muter.StartMuting(time.Now(), duration); err != nil {
		return err
	}
	end := rt.muter.Configuration().End()
	colors.Success("Muted until " + end.Local().Format(time.Kitchen))
	return nil
}

func runUnmute(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	if !rt.muter.Configuration().Enabled() {
		colors.Info("Not muted")
		return nil
	}
	if err := rt.muter.StopMuting(); err != nil {
		return err
	}
	colors.Success("Unmuted")
	return nil
}
