package manager

import (
	"fmt"
	"time"

	"github.com/dosewatch/alertkit/internal/alert"
)

// ConnectivityManagerID owns the device-connectivity alert identities.
const ConnectivityManagerID = "connectivity"

// LoopManagerID owns the crash-recovery alert identity.
const LoopManagerID = "loop"

// Fixed alert identities. Each connectivity failure state maps to exactly
// one identity so a flapping radio cannot pile up distinct alerts.
var (
	poweredOffIdentifier    = alert.NewIdentifier(ConnectivityManagerID, "bluetooth-powered-off")
	unauthorizedIdentifier  = alert.NewIdentifier(ConnectivityManagerID, "bluetooth-unauthorized")
	unsupportedIdentifier   = alert.NewIdentifier(ConnectivityManagerID, "bluetooth-unsupported")
	crashRecoveryIdentifier = alert.NewIdentifier(LoopManagerID, "in-flight-dose-interrupted")
)

// keyDoseInFlight is the crash sentinel: present while an automatic dose is
// being commanded, cleared when it completes.
const keyDoseInFlight = "in_flight_automatic_dose"

// ConnectivityState is the device radio state reported by the connectivity
// observer.
type ConnectivityState int

const (
	PoweredOn ConnectivityState = iota
	PoweredOff
	Unauthorized
	Unsupported
)

func (s ConnectivityState) String() string {
	switch s {
	case PoweredOn:
		return "poweredOn"
	case PoweredOff:
		return "poweredOff"
	case Unauthorized:
		return "unauthorized"
	case Unsupported:
		return "unsupported"
	default:
		return fmt.Sprintf("connectivityState(%d)", int(s))
	}
}

// ConnectivityChanged maps a radio state change to its fixed alert identity.
// Power-on retracts whichever connectivity alert is live.
func (m *Manager) ConnectivityChanged(state ConnectivityState) error {
	switch state {
	case PoweredOn:
		for _, id := range []alert.Identifier{poweredOffIdentifier, unauthorizedIdentifier, unsupportedIdentifier} {
			if err := m.RetractAlert(id); err != nil {
				// Nothing live for this identity is the common case.
				m.logger.Debug("connectivity retract", "identifier", id.Key(), "error", err)
			}
		}
		return nil
	case PoweredOff:
		return m.IssueAlert(connectivityAlert(poweredOffIdentifier,
			"Bluetooth Off",
			"Turn Bluetooth back on to receive pump and sensor alerts.",
			alert.LevelCritical))
	case Unauthorized:
		return m.IssueAlert(connectivityAlert(unauthorizedIdentifier,
			"Bluetooth Unavailable",
			"Allow Bluetooth access in system settings to receive pump and sensor alerts.",
			alert.LevelCritical))
	case Unsupported:
		return m.IssueAlert(connectivityAlert(unsupportedIdentifier,
			"Bluetooth Unsupported",
			"This device cannot communicate with the pump.",
			alert.LevelTimeSensitive))
	default:
		return fmt.Errorf("alert manager: unknown connectivity state %d", int(state))
	}
}

func connectivityAlert(id alert.Identifier, title, body string, level alert.InterruptionLevel) alert.Alert {
	content := alert.Content{
		Title:                  title,
		Body:                   body,
		AcknowledgeActionLabel: "OK",
		IsCritical:             level == alert.LevelCritical,
	}
	return alert.Alert{
		Identifier:        id,
		Trigger:           alert.Immediate(),
		InterruptionLevel: level,
		ForegroundContent: &content,
		BackgroundContent: content,
		Sound:             &alert.Sound{Type: alert.SoundVibrate},
	}
}

// MarkDoseInFlight records that an automatic dose command is in progress.
// If the process dies before ClearDoseInFlight, the next run raises the
// crash-recovery alert.
func (m *Manager) MarkDoseInFlight() error {
	if m.state == nil {
		return nil
	}
	return m.state.Set(keyDoseInFlight, m.clock.Now().UTC().Format(time.RFC3339Nano))
}

// ClearDoseInFlight marks the in-progress dose complete.
func (m *Manager) ClearDoseInFlight() error {
	if m.state == nil {
		return nil
	}
	return m.state.Delete(keyDoseInFlight)
}

// recoverFromCrash runs at construction. A leftover sentinel means the
// previous run died mid-dose; the user must confirm they have checked their
// pump, so the alert is critical and dispatched immediately rather than
// buffered behind replay.
func (m *Manager) recoverFromCrash() {
	if m.state == nil {
		return
	}
	startedAt, ok := m.state.Get(keyDoseInFlight)
	if !ok {
		return
	}
	m.logger.Error("previous run ended with a dose in flight", "started_at", startedAt)

	content := alert.Content{
		Title:                  "Dosing May Have Been Interrupted",
		Body:                   "The app stopped while an automatic dose was in progress. Verify your pump's delivery history before continuing.",
		AcknowledgeActionLabel: "I Have Checked My Pump",
		IsCritical:             true,
	}
	a := alert.Alert{
		Identifier:        crashRecoveryIdentifier,
		Trigger:           alert.Immediate(),
		InterruptionLevel: alert.LevelCritical,
		ForegroundContent: &content,
		BackgroundContent: content,
		Sound:             &alert.Sound{Type: alert.SoundVibrate},
	}
	if err := m.dispatch(a, m.clock.Now()); err != nil {
		m.logger.Error("crash-recovery alert dispatch failed", "error", err)
	}
}

// clearCrashSentinelIfRecoveryAlert removes the sentinel once the user has
// explicitly acknowledged the crash-recovery alert.
func (m *Manager) clearCrashSentinelIfRecoveryAlert(identifier alert.Identifier) {
	if identifier != crashRecoveryIdentifier || m.state == nil {
		return
	}
	if err := m.state.Delete(keyDoseInFlight); err != nil {
		m.logger.Error("could not clear dose sentinel", "error", err)
	}
}
