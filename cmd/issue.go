/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dosewatch/alertkit/internal/alert"
	"github.com/dosewatch/alertkit/internal/colors"
)

// issueCmd represents the issue command
var issueCmd = &cobra.Command{
	Use:   "issue <manager-id> <alert-id>",
	Short: "Issue an alert",
	Long: `Record an alert in the ledger and dispatch it to both delivery
channels.

USAGE:
    alertkit issue pump occlusion --title "Pump Occlusion" --body "Delivery blocked" --level critical
    alertkit issue loop workout-reminder --title "Workout" --body "Time to move" --trigger delayed --interval 24h`,
	Args: cobra.ExactArgs(2),
	RunE: runIssue,
}

var (
	issueTitle      string
	issueBody       string
	issueAction     string
	issueLevel      string
	issueTrigger    string
	issueInterval   time.Duration
	issueSound      string
	issueVibrate    bool
	issueBackground bool
	issueMetadata   []string
)

func init() {
	RootCmd.AddCommand(issueCmd)

	issueCmd.Flags().StringVar(&issueTitle, "title", "", "Alert title (required)")
	issueCmd.Flags().StringVar(&issueBody, "body", "", "Alert body (required)")
	issueCmd.Flags().StringVar(&issueAction, "action", "OK", "Acknowledge action label")
	issueCmd.Flags().StringVar(&issueLevel, "level", "timeSensitive", "Interruption level: active, timeSensitive, critical")
	issueCmd.Flags().StringVar(&issueTrigger, "trigger", "immediate", "Trigger: immediate, delayed, repeating")
	issueCmd.Flags().DurationVar(&issueInterval, "interval", 0, "Trigger interval for delayed/repeating")
	issueCmd.Flags().StringVar(&issueSound, "sound", "", "Sound filename")
	issueCmd.Flags().BoolVar(&issueVibrate, "vibrate", false, "Vibrate instead of playing a sound")
	issueCmd.Flags().BoolVar(&issueBackground, "background-only", false, "Deliver via host notifications only, never as an in-process dialog")
	issueCmd.Flags().StringArrayVar(&issueMetadata, "meta", nil, "Metadata entry key=value (repeatable)")
}

func buildIssueAlert(managerID, alertID string) (alert.Alert, error) {
	var trigger alert.Trigger
	switch issueTrigger {
	case "immediate":
		trigger = alert.Immediate()
	case "delayed":
		trigger = alert.Delayed(issueInterval)
	case "repeating":
		trigger = alert.Repeating(issueInterval)
	default:
		return alert.Alert{}, fmt.Errorf("unknown trigger %q", issueTrigger)
	}

	level, err := alert.ParseInterruptionLevel(issueLevel)
	if err != nil {
		return alert.Alert{}, err
	}

	content := alert.Content{
		Title:                  issueTitle,
		Body:                   issueBody,
		AcknowledgeActionLabel: issueAction,
		IsCritical:             level == alert.LevelCritical,
	}
	a := alert.Alert{
		Identifier:        alert.NewIdentifier(managerID, alertID),
		Trigger:           trigger,
		InterruptionLevel: level,
		BackgroundContent: content,
	}
	if !issueBackground {
		fg := content
		a.ForegroundContent = &fg
	}

	switch {
	case issueVibrate:
		a.Sound = &alert.Sound{Type: alert.SoundVibrate}
	case issueSound != "":
		s := alert.NamedSound(issueSound)
		a.Sound = &s
	}

	if len(issueMetadata) > 0 {
		a.Metadata = alert.Metadata{}
		for _, entry := range issueMetadata {
			key, value, found := strings.Cut(entry, "=")
			if !found || key == "" {
				return alert.Alert{}, fmt.Errorf("invalid metadata entry %q, want key=value", entry)
			}
			a.Metadata[key] = value
		}
	}
	return a, nil
}

func runIssue(cmd *cobra.Command, args []string) error {
	a, err := buildIssueAlert(args[0], args[1])
	if err != nil {
		return err
	}
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.manager.IssueAlert(a); err != nil {
		return err
	}
	colors.Success("Issued alert " + a.Identifier.Key())
	return nil
}
