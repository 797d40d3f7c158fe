package channel

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dosewatch/alertkit/internal/alert"
	"github.com/dosewatch/alertkit/internal/clock"
)

type fakePresenter struct {
	mu           sync.Mutex
	presented    []string
	dismissed    []string
	acknowledges map[string]func()
	failNext     bool
}

func newFakePresenter() *fakePresenter {
	return &fakePresenter{acknowledges: map[string]func(){}}
}

func (p *fakePresenter) Present(a alert.Alert, onAcknowledge func()) (PresentationHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failNext {
		p.failNext = false
		return nil, errors.New("presentation failed")
	}
	key := a.Identifier.Key()
	p.presented = append(p.presented, key)
	p.acknowledges[key] = onAcknowledge
	return key, nil
}

func (p *fakePresenter) Dismiss(handle PresentationHandle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dismissed = append(p.dismissed, handle.(string))
}

func (p *fakePresenter) presentedKeys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.presented...)
}

func (p *fakePresenter) dismissedKeys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.dismissed...)
}

// acknowledge simulates the user tapping the acknowledge action.
func (p *fakePresenter) acknowledge(key string) {
	p.mu.Lock()
	fn := p.acknowledges[key]
	p.mu.Unlock()
	if fn != nil {
		fn()
	}
}

type fakePlayer struct {
	mu     sync.Mutex
	played []alert.Sound
}

func (p *fakePlayer) Play(s alert.Sound) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.played = append(p.played, s)
}

func (p *fakePlayer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.played)
}

type mutedPolicy struct{}

func (mutedPolicy) ShouldMute(time.Time) bool { return true }

func foregroundAlert(id string, trigger alert.Trigger) alert.Alert {
	return alert.Alert{
		Identifier:        alert.NewIdentifier("pump", id),
		Trigger:           trigger,
		InterruptionLevel: alert.LevelTimeSensitive,
		ForegroundContent: &alert.Content{Title: "t", Body: "b", AcknowledgeActionLabel: "OK"},
		BackgroundContent: alert.Content{Title: "t", Body: "b", AcknowledgeActionLabel: "OK"},
		Sound:             &alert.Sound{Type: alert.SoundNamed, Name: "alarm.mp3"},
	}
}

// sync waits for every queued operation to run.
func syncModal(m *Modal) {
	m.PendingIdentifiers()
}

func TestModalImmediatePresents(t *testing.T) {
	presenter := newFakePresenter()
	player := &fakePlayer{}
	fake := clock.NewFake(time.Now())
	m := NewModal(presenter, WithModalClock(fake), WithModalSoundPlayer(player))
	defer m.Close()

	m.Schedule(foregroundAlert("occlusion", alert.Immediate()), fake.Now())
	syncModal(m)

	assert.Equal(t, []string{"pump.occlusion"}, presenter.presentedKeys())
	assert.Equal(t, 1, player.count())
	assert.Equal(t, []string{"pump.occlusion"}, m.PresentedIdentifiers())
}

func TestModalBackgroundOnlyIsIgnored(t *testing.T) {
	presenter := newFakePresenter()
	m := NewModal(presenter)
	defer m.Close()

	a := foregroundAlert("silent", alert.Immediate())
	a.ForegroundContent = nil
	m.Schedule(a, time.Now())
	syncModal(m)

	assert.Empty(t, presenter.presentedKeys())
}

func TestModalDelayedFiresAfterInterval(t *testing.T) {
	presenter := newFakePresenter()
	fake := clock.NewFake(time.Now())
	m := NewModal(presenter, WithModalClock(fake))
	defer m.Close()

	m.Schedule(foregroundAlert("reservoir", alert.Delayed(10*time.Minute)), fake.Now())
	syncModal(m)
	assert.Empty(t, presenter.presentedKeys())
	assert.Equal(t, []string{"pump.reservoir"}, m.PendingIdentifiers())

	fake.Advance(10 * time.Minute)
	syncModal(m)
	assert.Equal(t, []string{"pump.reservoir"}, presenter.presentedKeys())
	assert.Empty(t, m.PendingIdentifiers())
}

func TestModalDuplicateScheduleIgnored(t *testing.T) {
	presenter := newFakePresenter()
	fake := clock.NewFake(time.Now())
	m := NewModal(presenter, WithModalClock(fake))
	defer m.Close()

	a := foregroundAlert("reservoir", alert.Delayed(time.Minute))
	m.Schedule(a, fake.Now())
	m.Schedule(a, fake.Now())
	syncModal(m)

	fake.Advance(time.Minute)
	syncModal(m)
	assert.Len(t, presenter.presentedKeys(), 1)
}

func TestModalUnscheduleCancelsPendingTimer(t *testing.T) {
	presenter := newFakePresenter()
	fake := clock.NewFake(time.Now())
	m := NewModal(presenter, WithModalClock(fake))
	defer m.Close()

	a := foregroundAlert("workout-reminder", alert.Delayed(24*time.Hour))
	m.Schedule(a, fake.Now())
	syncModal(m)
	m.Unschedule(a.Identifier)
	syncModal(m)

	fake.Advance(48 * time.Hour)
	syncModal(m)
	assert.Empty(t, presenter.presentedKeys(), "canceled timer must never present")
}

func TestModalUnscheduleDismissesPresentation(t *testing.T) {
	presenter := newFakePresenter()
	m := NewModal(presenter)
	defer m.Close()

	a := foregroundAlert("occlusion", alert.Immediate())
	m.Schedule(a, time.Now())
	syncModal(m)
	m.Unschedule(a.Identifier)
	syncModal(m)

	assert.Equal(t, []string{"pump.occlusion"}, presenter.dismissedKeys())
	assert.Empty(t, m.PresentedIdentifiers())
}

func TestModalRepeatingCycles(t *testing.T) {
	presenter := newFakePresenter()
	fake := clock.NewFake(time.Now())
	m := NewModal(presenter, WithModalClock(fake))
	defer m.Close()

	var acked []alert.Identifier
	m.BindAcknowledger(func(id alert.Identifier) { acked = append(acked, id) })

	a := foregroundAlert("urgent-low", alert.Repeating(5*time.Minute))
	m.Schedule(a, fake.Now())
	syncModal(m)

	fake.Advance(5 * time.Minute)
	syncModal(m)
	require.Len(t, presenter.presentedKeys(), 1)

	// Still on screen: the next fire is a no-op but the timer keeps cycling.
	fake.Advance(5 * time.Minute)
	syncModal(m)
	require.Len(t, presenter.presentedKeys(), 1)

	// Acknowledged: the following fire presents again.
	presenter.acknowledge("pump.urgent-low")
	syncModal(m)
	require.Len(t, acked, 1)
	assert.Equal(t, a.Identifier, acked[0])

	fake.Advance(5 * time.Minute)
	syncModal(m)
	assert.Len(t, presenter.presentedKeys(), 2)
}

func TestModalAcknowledgeClearsPresentation(t *testing.T) {
	presenter := newFakePresenter()
	m := NewModal(presenter)
	defer m.Close()

	var acked []alert.Identifier
	m.BindAcknowledger(func(id alert.Identifier) { acked = append(acked, id) })

	a := foregroundAlert("occlusion", alert.Immediate())
	m.Schedule(a, time.Now())
	syncModal(m)
	presenter.acknowledge("pump.occlusion")
	syncModal(m)

	assert.Empty(t, m.PresentedIdentifiers())
	require.Len(t, acked, 1)
	assert.Equal(t, a.Identifier, acked[0])
}

func TestModalMutedSoundNotPlayed(t *testing.T) {
	presenter := newFakePresenter()
	player := &fakePlayer{}
	m := NewModal(presenter, WithModalSoundPlayer(player), WithModalMutePolicy(mutedPolicy{}))
	defer m.Close()

	m.Schedule(foregroundAlert("occlusion", alert.Immediate()), time.Now())
	syncModal(m)

	assert.Len(t, presenter.presentedKeys(), 1, "muting silences sound, not delivery")
	assert.Zero(t, player.count())
}

func TestModalPresentationFailureDoesNotRecordState(t *testing.T) {
	presenter := newFakePresenter()
	presenter.failNext = true
	m := NewModal(presenter)
	defer m.Close()

	m.Schedule(foregroundAlert("occlusion", alert.Immediate()), time.Now())
	syncModal(m)

	assert.Empty(t, m.PresentedIdentifiers())
}
