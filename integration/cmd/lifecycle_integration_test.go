//go:build integration
// +build integration

package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dosewatch/alertkit/cmd"
	"github.com/dosewatch/alertkit/internal/alert"
	"github.com/dosewatch/alertkit/internal/config"
	"github.com/dosewatch/alertkit/internal/ledger"
)

// run drives the CLI in-process the way a shell invocation would.
func run(t *testing.T, args ...string) error {
	t.Helper()
	cmd.RootCmd.SetArgs(args)
	return cmd.Execute()
}

func setupDirs(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("ALERTKIT_CONFIG_DIR", filepath.Join(tmpDir, "config"))
	t.Setenv("ALERTKIT_STATE_DIR", filepath.Join(tmpDir, "state"))
	t.Setenv("ALERTKIT_LEDGER_PATH", filepath.Join(tmpDir, "state", "alerts.db"))
	t.Setenv("ALERTKIT_SOUNDS_DIR", filepath.Join(tmpDir, "state", "sounds"))
	return tmpDir
}

func openLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	led, err := ledger.Open(config.Get("ledger_path", ""))
	require.NoError(t, err)
	t.Cleanup(func() { led.Close() })
	return led
}

func TestIssueAcknowledgeLifecycle(t *testing.T) {
	setupDirs(t)

	err := run(t, "issue", "pump", "occlusion",
		"--title", "Pump Occlusion",
		"--body", "Insulin delivery may be blocked",
		"--level", "critical")
	require.NoError(t, err)

	led := openLedger(t)
	records, err := led.UnacknowledgedUnretractedSync("")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "pump.occlusion", records[0].Identifier.Key())
	require.NoError(t, led.Close())

	require.NoError(t, run(t, "acknowledge", "pump", "occlusion"))

	led = openLedger(t)
	records, err = led.UnacknowledgedUnretractedSync("")
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestRetractUnfiredLeavesNoTrace(t *testing.T) {
	setupDirs(t)

	err := run(t, "issue", "loop", "workout-reminder",
		"--title", "Workout Reminder",
		"--body", "Set a workout override",
		"--level", "timeSensitive",
		"--trigger", "delayed",
		"--interval", "24h")
	require.NoError(t, err)

	require.NoError(t, run(t, "retract", "loop", "workout-reminder"))

	led := openLedger(t)
	records, err := led.MatchingSync(alert.NewIdentifier("loop", "workout-reminder"))
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestExportWritesJSONArray(t *testing.T) {
	tmpDir := setupDirs(t)

	// Flag variables persist across in-process invocations, so every
	// test spells out trigger and level instead of relying on defaults.
	err := run(t, "issue", "pump", "low-reservoir",
		"--title", "Low Reservoir",
		"--body", "10 units remaining",
		"--trigger", "immediate",
		"--level", "timeSensitive")
	require.NoError(t, err)

	outPath := filepath.Join(tmpDir, "alerts.json")
	err = run(t, "export",
		"--start", "2026-01-01T00:00:00Z",
		"--end", "2036-01-01T00:00:00Z",
		"-o", outPath)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.NotContains(t, string(data), "\n")
	require.Contains(t, string(data), "pump.low-reservoir")
}
