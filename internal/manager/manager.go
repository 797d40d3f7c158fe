// Package manager implements the alert orchestrator: the single entry point
// through which the rest of the application issues, retracts, and
// acknowledges alerts. Every issued alert is durably recorded before it is
// dispatched to a delivery channel, so a crash between the two costs at most
// a missed presentation, never a lost record.
package manager

import (
	"fmt"
	"sync"
	"time"

	"github.com/dosewatch/alertkit/internal/alert"
	"github.com/dosewatch/alertkit/internal/channel"
	"github.com/dosewatch/alertkit/internal/clock"
	"github.com/dosewatch/alertkit/internal/hooks"
	"github.com/dosewatch/alertkit/internal/kv"
	"github.com/dosewatch/alertkit/internal/ledger"
	"github.com/dosewatch/alertkit/internal/logging"
	"github.com/dosewatch/alertkit/internal/muter"
	"github.com/dosewatch/alertkit/internal/sound"
)

// Responder lets an alert-issuing subsystem clear its own internal state
// when one of its alerts is acknowledged. Registrations are non-owning: the
// owner must call RemoveResponder on teardown.
type Responder interface {
	AcknowledgeAlert(alertIdentifier string) error
}

// NotifierChannel is the host-notification channel surface the manager
// needs. *channel.Notifier satisfies it.
type NotifierChannel interface {
	channel.Channel
	ClearDelivered(identifier alert.Identifier)
}

// Analytics receives alert lifecycle events. Optional.
type Analytics func(event string, identifier alert.Identifier)

type deferredAlert struct {
	alert    alert.Alert
	issuedAt time.Time
}

// Deps carries the collaborators a Manager is built from.
type Deps struct {
	Ledger   *ledger.Ledger
	Modal    channel.Channel
	Notifier NotifierChannel
	Muter    *muter.Muter
	Sounds   *sound.Manager
	State    *kv.Store
	Clock    clock.Clock
	Logger   logging.Logger

	Analytics Analytics
}

// Manager coordinates the ledger, the two delivery channels, the muter, and
// the registered subsystems.
type Manager struct {
	ledger   *ledger.Ledger
	modal    channel.Channel
	notifier NotifierChannel
	muter    *muter.Muter
	sounds   *sound.Manager
	state    *kv.Store
	clock    clock.Clock
	logger   logging.Logger

	analytics Analytics
	muterSub  muter.Subscription

	mu               sync.Mutex
	responders       map[string]Responder
	soundVendors     map[string]sound.Vendor
	deferredAlerts   []deferredAlert
	playbackFinished bool
}

// New wires a Manager. The caller remains responsible for calling
// PlaybackAlertsFromPersistence once the rest of startup is done; until
// then, issued alerts are buffered. If a previous run left an in-flight
// dose sentinel behind, the crash-recovery alert is issued immediately
// (bypassing the buffer: the user must see it even if replay never runs).
func New(deps Deps) (*Manager, error) {
	if deps.Ledger == nil {
		return nil, fmt.Errorf("alert manager: ledger is required")
	}
	if deps.Modal == nil || deps.Notifier == nil {
		return nil, fmt.Errorf("alert manager: both delivery channels are required")
	}
	m := &Manager{
		ledger:       deps.Ledger,
		modal:        deps.Modal,
		notifier:     deps.Notifier,
		muter:        deps.Muter,
		sounds:       deps.Sounds,
		state:        deps.State,
		clock:        deps.Clock,
		logger:       deps.Logger,
		analytics:    deps.Analytics,
		responders:   map[string]Responder{},
		soundVendors: map[string]sound.Vendor{},
	}
	if m.clock == nil {
		m.clock = clock.NewSystem()
	}
	if m.logger == nil {
		m.logger = logging.GetGlobal()
	}
	if m.muter != nil {
		m.muterSub = m.muter.Subscribe(func(muter.Configuration) {
			m.rescheduleForMuteChange()
		})
	}
	m.recoverFromCrash()
	return m, nil
}

// Close detaches the manager from its collaborators. The ledger and the
// channels have their own lifecycles and are not closed here.
func (m *Manager) Close() {
	if m.muter != nil {
		m.muter.Unsubscribe(m.muterSub)
	}
}

// IssueAlert records the alert and dispatches it to both channels. Before
// startup replay finishes, the alert is buffered instead and dispatched in
// FIFO order once replay completes. A ledger write failure is surfaced but
// does not stop dispatch: a missed dose-related presentation is worse than
// a missed audit row.
func (m *Manager) IssueAlert(a alert.Alert) error {
	return m.issueAt(a, m.clock.Now())
}

func (m *Manager) issueAt(a alert.Alert, issuedAt time.Time) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("alert manager: issue: %w", err)
	}

	m.mu.Lock()
	if !m.playbackFinished {
		m.deferredAlerts = append(m.deferredAlerts, deferredAlert{alert: a, issuedAt: issuedAt})
		m.mu.Unlock()
		m.logger.Info("deferred alert until replay completes", "identifier", a.Identifier.Key())
		return nil
	}
	m.mu.Unlock()

	return m.dispatch(a, issuedAt)
}

func (m *Manager) dispatch(a alert.Alert, issuedAt time.Time) error {
	m.notifyAnalytics("issued", a.Identifier)

	recordErr := m.ledger.RecordSync(a, issuedAt)
	if recordErr != nil {
		m.logger.Error("ledger record failed, dispatching anyway",
			"identifier", a.Identifier.Key(), "error", recordErr)
	}

	m.modal.Schedule(a, issuedAt)
	m.notifier.Schedule(a, issuedAt)

	if recordErr != nil {
		return fmt.Errorf("alert manager: issue: %w", recordErr)
	}
	return nil
}

// RetractAlert withdraws the alert from both channels and records the
// retraction.
func (m *Manager) RetractAlert(identifier alert.Identifier) error {
	m.notifyAnalytics("retracted", identifier)
	m.modal.Unschedule(identifier)
	m.notifier.Unschedule(identifier)

	if err := m.ledger.RetractSync(identifier, m.clock.Now()); err != nil {
		return fmt.Errorf("alert manager: retract: %w", err)
	}
	return nil
}

// AcknowledgeAlert handles a user acknowledgment. The owning subsystem's
// responder runs first; if it fails, the acknowledgment is not recorded so
// the user can retry, and the error surfaces as an "unable to clear" notice.
// Otherwise the delivered host notification is cleared and the
// acknowledgment recorded. A repeating alert's pending schedule is left
// intact: it keeps firing until retracted.
func (m *Manager) AcknowledgeAlert(identifier alert.Identifier) error {
	m.mu.Lock()
	responder := m.responders[identifier.ManagerIdentifier]
	m.mu.Unlock()

	if responder != nil {
		if err := responder.AcknowledgeAlert(identifier.AlertIdentifier); err != nil {
			m.logger.Error("responder could not clear alert",
				"identifier", identifier.Key(), "error", err)
			return fmt.Errorf("alert manager: acknowledge %s: %w: %v",
				identifier, alert.ErrResponderAcknowledge, err)
		}
	}

	m.clearCrashSentinelIfRecoveryAlert(identifier)
	m.notifier.ClearDelivered(identifier)
	m.notifyAnalytics("acknowledged", identifier)

	if err := m.ledger.AcknowledgeSync(identifier, m.clock.Now()); err != nil {
		return fmt.Errorf("alert manager: acknowledge: %w", err)
	}
	return nil
}

// AddResponder registers the acknowledgment callback for an owner. The
// previous registration for the same owner, if any, is replaced.
func (m *Manager) AddResponder(ownerID string, r Responder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responders[ownerID] = r
}

// RemoveResponder deregisters an owner's responder.
func (m *Manager) RemoveResponder(ownerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.responders, ownerID)
}

// AddSoundVendor registers a sound vendor and installs its assets into the
// shared sounds directory under the owner's namespace.
func (m *Manager) AddSoundVendor(ownerID string, v sound.Vendor) error {
	m.mu.Lock()
	m.soundVendors[ownerID] = v
	m.mu.Unlock()
	if m.sounds == nil {
		return nil
	}
	if err := m.sounds.Install(ownerID, v); err != nil {
		return fmt.Errorf("alert manager: %w", err)
	}
	return nil
}

// RemoveSoundVendor deregisters an owner's sound vendor. Installed files
// stay on disk; they are plain assets, not state.
func (m *Manager) RemoveSoundVendor(ownerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.soundVendors, ownerID)
}

func (m *Manager) notifyAnalytics(event string, identifier alert.Identifier) {
	if m.analytics != nil {
		m.analytics(event, identifier)
	}
	if err := hooks.Run("alert-"+event,
		fmt.Sprintf("ALERT_IDENTIFIER=%s", identifier.AlertIdentifier),
		fmt.Sprintf("MANAGER_IDENTIFIER=%s", identifier.ManagerIdentifier)); err != nil {
		m.logger.Warn("alert event hook failed", "event", event, "error", err)
	}
}
