package channel

import (
	"time"

	"github.com/dosewatch/alertkit/internal/alert"
	"github.com/dosewatch/alertkit/internal/clock"
	"github.com/dosewatch/alertkit/internal/logging"
)

// PresentationHandle identifies one active presentation so it can be
// dismissed later. Opaque to the channel.
type PresentationHandle any

// Presenter renders an alert while the application is in the foreground.
// onAcknowledge fires when the user taps the acknowledge action.
type Presenter interface {
	Present(a alert.Alert, onAcknowledge func()) (PresentationHandle, error)
	Dismiss(handle PresentationHandle)
}

// SoundPlayer plays an alert sound. Implementations must not block.
type SoundPlayer interface {
	Play(s alert.Sound)
}

type pendingEntry struct {
	alert    alert.Alert
	issuedAt time.Time
	timer    clock.Timer
}

type presentedEntry struct {
	alert  alert.Alert
	handle PresentationHandle
}

// Modal is the in-process delivery channel. Alerts without foreground
// content never reach it; they exist only for the host notification surface.
type Modal struct {
	queue chan func()
	quit  chan struct{}

	presenter    Presenter
	player       SoundPlayer
	mute         MutePolicy
	clock        clock.Clock
	logger       logging.Logger
	acknowledger Acknowledger

	// Owned by the run loop; never touched from outside it.
	pending   map[string]*pendingEntry
	presented map[string]*presentedEntry
}

// ModalOption configures a Modal channel.
type ModalOption func(*Modal)

// WithModalClock sets the time source.
func WithModalClock(c clock.Clock) ModalOption {
	return func(m *Modal) { m.clock = c }
}

// WithModalMutePolicy sets the mute policy consulted before playing sounds.
func WithModalMutePolicy(p MutePolicy) ModalOption {
	return func(m *Modal) { m.mute = p }
}

// WithModalSoundPlayer sets the sound player.
func WithModalSoundPlayer(p SoundPlayer) ModalOption {
	return func(m *Modal) { m.player = p }
}

// WithModalLogger sets the logger.
func WithModalLogger(log logging.Logger) ModalOption {
	return func(m *Modal) { m.logger = log }
}

// NewModal builds the in-process channel and starts its run loop.
func NewModal(presenter Presenter, opts ...ModalOption) *Modal {
	m := &Modal{
		queue:     make(chan func(), 64),
		quit:      make(chan struct{}),
		presenter: presenter,
		mute:      unmuted{},
		clock:     clock.NewSystem(),
		logger:    logging.GetGlobal(),
		pending:   map[string]*pendingEntry{},
		presented: map[string]*presentedEntry{},
	}
	for _, opt := range opts {
		opt(m)
	}
	go m.run()
	return m
}

// BindAcknowledger wires the callback invoked when the user acknowledges a
// presented alert. Must be called before the first presentation.
func (m *Modal) BindAcknowledger(fn Acknowledger) {
	m.perform(func() { m.acknowledger = fn })
}

// Close stops the run loop. Pending timers are dropped.
func (m *Modal) Close() {
	close(m.quit)
}

func (m *Modal) run() {
	for {
		select {
		case fn := <-m.queue:
			fn()
		case <-m.quit:
			return
		}
	}
}

func (m *Modal) perform(fn func()) {
	select {
	case m.queue <- fn:
	case <-m.quit:
	}
}

// Schedule implements Channel.
func (m *Modal) Schedule(a alert.Alert, issuedAt time.Time) {
	if a.ForegroundContent == nil {
		// Nothing to show in-process.
		return
	}
	m.perform(func() { m.schedule(a, issuedAt) })
}

func (m *Modal) schedule(a alert.Alert, issuedAt time.Time) {
	key := a.Identifier.Key()
	if _, exists := m.pending[key]; exists {
		// A timer is already armed; a second one would double-present.
		m.logger.Debug("alert already pending, ignoring", "identifier", key)
		return
	}
	switch a.Trigger.Type {
	case alert.TriggerImmediate:
		m.present(a)
	case alert.TriggerDelayed, alert.TriggerRepeating:
		m.armTimer(a, issuedAt, a.Trigger.Interval)
	}
}

func (m *Modal) armTimer(a alert.Alert, issuedAt time.Time, interval time.Duration) {
	key := a.Identifier.Key()
	entry := &pendingEntry{alert: a, issuedAt: issuedAt}
	entry.timer = m.clock.AfterFunc(interval, func() {
		// Marshal back onto the loop; if the entry was unscheduled in the
		// meantime the map lookup fails and the fire is a no-op.
		m.perform(func() { m.fire(key) })
	})
	m.pending[key] = entry
}

func (m *Modal) fire(key string) {
	entry, ok := m.pending[key]
	if !ok {
		return
	}
	delete(m.pending, key)
	m.present(entry.alert)
	if entry.alert.Trigger.Repeats() {
		m.armTimer(entry.alert, entry.issuedAt, entry.alert.Trigger.Interval)
	}
}

func (m *Modal) present(a alert.Alert) {
	key := a.Identifier.Key()
	if _, shown := m.presented[key]; shown {
		// Already on screen; repeating fires while visible are dropped.
		return
	}
	handle, err := m.presenter.Present(a, func() { m.onAcknowledge(a.Identifier) })
	if err != nil {
		m.logger.Error("modal presentation failed", "identifier", key, "error", err)
		return
	}
	m.presented[key] = &presentedEntry{alert: a, handle: handle}
	m.playSound(a)
	m.logger.Info("presented modal alert", "identifier", key)
}

func (m *Modal) playSound(a alert.Alert) {
	if m.player == nil || a.Sound == nil || a.Sound.Type == alert.SoundNone {
		return
	}
	if m.mute.ShouldMute(m.clock.Now()) {
		m.logger.Debug("sound muted", "identifier", a.Identifier.Key())
		return
	}
	m.player.Play(*a.Sound)
}

func (m *Modal) onAcknowledge(identifier alert.Identifier) {
	m.perform(func() {
		key := identifier.Key()
		delete(m.presented, key)
		// A repeating alert keeps its timer: it must fire again until the
		// identifier is retracted.
		if m.acknowledger != nil {
			m.acknowledger(identifier)
		}
	})
}

// Unschedule implements Channel.
func (m *Modal) Unschedule(identifier alert.Identifier) {
	m.perform(func() {
		key := identifier.Key()
		if entry, ok := m.pending[key]; ok {
			entry.timer.Stop()
			delete(m.pending, key)
		}
		if entry, ok := m.presented[key]; ok {
			m.presenter.Dismiss(entry.handle)
			delete(m.presented, key)
		}
	})
}

// PendingIdentifiers returns the identifiers with an armed timer, for
// diagnostics.
func (m *Modal) PendingIdentifiers() []string {
	result := make(chan []string, 1)
	m.perform(func() {
		keys := make([]string, 0, len(m.pending))
		for k := range m.pending {
			keys = append(keys, k)
		}
		result <- keys
	})
	select {
	case keys := <-result:
		return keys
	case <-m.quit:
		return nil
	}
}

// PresentedIdentifiers returns the identifiers currently on screen, for
// diagnostics.
func (m *Modal) PresentedIdentifiers() []string {
	result := make(chan []string, 1)
	m.perform(func() {
		keys := make([]string, 0, len(m.presented))
		for k := range m.presented {
			keys = append(keys, k)
		}
		result <- keys
	})
	select {
	case keys := <-result:
		return keys
	case <-m.quit:
		return nil
	}
}
