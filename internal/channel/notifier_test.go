package channel

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dosewatch/alertkit/internal/alert"
)

type fakeCenter struct {
	mu          sync.Mutex
	scheduled   []NotificationRequest
	canceled    [][]string
	cleared     [][]string
	delivered   []string
	scheduleErr error
}

func (c *fakeCenter) Schedule(req NotificationRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scheduleErr != nil {
		return c.scheduleErr
	}
	c.scheduled = append(c.scheduled, req)
	c.delivered = append(c.delivered, req.Identifier)
	return nil
}

func (c *fakeCenter) CancelPending(ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.canceled = append(c.canceled, ids)
}

func (c *fakeCenter) ClearDelivered(ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleared = append(c.cleared, ids)
}

func (c *fakeCenter) ListDelivered() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.delivered...), nil
}

func (c *fakeCenter) requests() []NotificationRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]NotificationRequest(nil), c.scheduled...)
}

func backgroundAlert(id string, trigger alert.Trigger) alert.Alert {
	return alert.Alert{
		Identifier:        alert.NewIdentifier("cgm", id),
		Trigger:           trigger,
		InterruptionLevel: alert.LevelCritical,
		BackgroundContent: alert.Content{
			Title:                  "Urgent Low",
			Body:                   "Glucose below 55 mg/dL",
			AcknowledgeActionLabel: "OK",
			IsCritical:             true,
		},
		Sound: &alert.Sound{Type: alert.SoundNamed, Name: "urgent-low.mp3"},
	}
}

func syncNotifier(n *Notifier) {
	n.DeliveredIdentifiers()
}

func TestNotifierScheduleImmediate(t *testing.T) {
	center := &fakeCenter{}
	n := NewNotifier(center)
	defer n.Close()

	n.Schedule(backgroundAlert("urgent-low", alert.Immediate()), time.Now())
	syncNotifier(n)

	reqs := center.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "cgm.urgent-low", reqs[0].Identifier)
	assert.Equal(t, "Urgent Low", reqs[0].Title)
	assert.Equal(t, alert.LevelCritical, reqs[0].InterruptionLevel)
	assert.True(t, reqs[0].Critical)
	assert.Equal(t, "urgent-low.mp3", reqs[0].SoundName)
	assert.Zero(t, reqs[0].Delay)
	assert.False(t, reqs[0].Repeats)
}

func TestNotifierScheduleRepeating(t *testing.T) {
	center := &fakeCenter{}
	n := NewNotifier(center)
	defer n.Close()

	n.Schedule(backgroundAlert("urgent-low", alert.Repeating(5*time.Minute)), time.Now())
	syncNotifier(n)

	reqs := center.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, 5*time.Minute, reqs[0].Delay)
	assert.True(t, reqs[0].Repeats)
}

func TestNotifierMuteStripsSound(t *testing.T) {
	center := &fakeCenter{}
	n := NewNotifier(center, WithNotifierMutePolicy(mutedPolicy{}))
	defer n.Close()

	n.Schedule(backgroundAlert("urgent-low", alert.Immediate()), time.Now())
	syncNotifier(n)

	reqs := center.requests()
	require.Len(t, reqs, 1)
	assert.Empty(t, reqs[0].SoundName, "muting silences sound")
	assert.Equal(t, "Urgent Low", reqs[0].Title, "delivery is unaffected")
}

func TestNotifierVibrateSound(t *testing.T) {
	center := &fakeCenter{}
	n := NewNotifier(center)
	defer n.Close()

	a := backgroundAlert("sensor", alert.Immediate())
	a.Sound = &alert.Sound{Type: alert.SoundVibrate}
	n.Schedule(a, time.Now())
	syncNotifier(n)

	reqs := center.requests()
	require.Len(t, reqs, 1)
	assert.True(t, reqs[0].Vibrate)
	assert.Empty(t, reqs[0].SoundName)
}

func TestNotifierUnschedule(t *testing.T) {
	center := &fakeCenter{}
	n := NewNotifier(center)
	defer n.Close()

	n.Unschedule(alert.NewIdentifier("cgm", "urgent-low"))
	syncNotifier(n)

	require.Len(t, center.canceled, 1)
	assert.Equal(t, []string{"cgm.urgent-low"}, center.canceled[0])
	require.Len(t, center.cleared, 1)
	assert.Equal(t, []string{"cgm.urgent-low"}, center.cleared[0])
}

func TestNotifierClearDeliveredOnly(t *testing.T) {
	center := &fakeCenter{}
	n := NewNotifier(center)
	defer n.Close()

	n.ClearDelivered(alert.NewIdentifier("cgm", "urgent-low"))
	syncNotifier(n)

	assert.Empty(t, center.canceled, "acknowledgment must not cancel a repeating schedule")
	require.Len(t, center.cleared, 1)
}

func TestNotifierScheduleFailureLoggedOnly(t *testing.T) {
	center := &fakeCenter{scheduleErr: errors.New("host rejected")}
	n := NewNotifier(center)
	defer n.Close()

	// Must not panic or wedge the loop.
	n.Schedule(backgroundAlert("urgent-low", alert.Immediate()), time.Now())
	syncNotifier(n)
	assert.Empty(t, center.requests())
}
