package term

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dosewatch/alertkit/internal/channel"
	"github.com/dosewatch/alertkit/internal/kv"
)

func newTestCenter(t *testing.T) (*Center, *bytes.Buffer) {
	t.Helper()
	store, err := kv.Open(filepath.Join(t.TempDir(), "notifications.toml"))
	require.NoError(t, err)
	var out bytes.Buffer
	return NewCenter(store, &out), &out
}

func TestImmediateDelivery(t *testing.T) {
	c, out := newTestCenter(t)

	require.NoError(t, c.Schedule(channel.NotificationRequest{
		Identifier: "cgm.urgent-low",
		Title:      "Urgent Low",
		Body:       "Glucose below 55 mg/dL",
		SoundName:  "urgent-low.mp3",
	}))

	assert.Contains(t, out.String(), "Urgent Low")
	ids, err := c.ListDelivered()
	require.NoError(t, err)
	assert.Equal(t, []string{"cgm.urgent-low"}, ids)
}

func TestDelayedStaysPendingUntilFlush(t *testing.T) {
	c, out := newTestCenter(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	require.NoError(t, c.Schedule(channel.NotificationRequest{
		Identifier: "pump.reservoir",
		Title:      "Reservoir Low",
		Delay:      time.Hour,
	}))
	assert.Empty(t, out.String())

	n, err := c.Flush()
	require.NoError(t, err)
	assert.Zero(t, n, "not due yet")

	c.now = func() time.Time { return base.Add(2 * time.Hour) }
	n, err = c.Flush()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, out.String(), "Reservoir Low")

	// Consumed: a second flush delivers nothing.
	n, err = c.Flush()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRepeatingRearmsOnFlush(t *testing.T) {
	c, _ := newTestCenter(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	require.NoError(t, c.Schedule(channel.NotificationRequest{
		Identifier: "cgm.urgent-low",
		Title:      "Urgent Low",
		Delay:      5 * time.Minute,
		Repeats:    true,
	}))

	c.now = func() time.Time { return base.Add(6 * time.Minute) }
	n, err := c.Flush()
	require.NoError(t, err)
	require.Equal(t, 1, n)

	c.now = func() time.Time { return base.Add(12 * time.Minute) }
	n, err = c.Flush()
	require.NoError(t, err)
	assert.Equal(t, 1, n, "repeating notification fires again")
}

func TestCancelPending(t *testing.T) {
	c, _ := newTestCenter(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	require.NoError(t, c.Schedule(channel.NotificationRequest{
		Identifier: "loop.workout-reminder",
		Title:      "Workout Reminder",
		Delay:      24 * time.Hour,
	}))
	c.CancelPending([]string{"loop.workout-reminder"})

	c.now = func() time.Time { return base.Add(48 * time.Hour) }
	n, err := c.Flush()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestClearDelivered(t *testing.T) {
	c, _ := newTestCenter(t)
	require.NoError(t, c.Schedule(channel.NotificationRequest{
		Identifier: "cgm.urgent-low",
		Title:      "Urgent Low",
	}))
	c.ClearDelivered([]string{"cgm.urgent-low"})
	ids, err := c.ListDelivered()
	require.NoError(t, err)
	assert.Empty(t, ids)
}
