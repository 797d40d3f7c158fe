package manager

import (
	"fmt"

	"github.com/dosewatch/alertkit/internal/alert"
	"github.com/dosewatch/alertkit/internal/ledger"
)

// PlaybackAlertsFromPersistence replays alerts left over from a previous
// run, then drains the deferred-alert buffer in FIFO order and marks
// playback finished.
//
// Replay covers two ledger sets, each ordered by ascending modification
// counter:
//   - unacknowledged, unretracted records: the user never dealt with them;
//   - acknowledged, unretracted repeating records: their repetition must
//     resume.
//
// Only alerts with foreground content are re-presented to the in-process
// channel. Background-only alerts already reached the host service during
// normal delivery and the host retains them; re-scheduling would duplicate
// them. Delayed triggers are adjusted for the wall-clock time that passed
// while the process was down; a fully elapsed delay replays as immediate.
func (m *Manager) PlaybackAlertsFromPersistence() error {
	unacknowledged, err := m.ledger.UnacknowledgedUnretractedSync("")
	if err != nil {
		return fmt.Errorf("alert manager: playback: %w", err)
	}
	repeating, err := m.ledger.AcknowledgedUnretractedRepeatingSync("")
	if err != nil {
		return fmt.Errorf("alert manager: playback: %w", err)
	}

	m.replay(unacknowledged)
	m.replay(repeating)

	m.mu.Lock()
	m.playbackFinished = true
	deferred := m.deferredAlerts
	m.deferredAlerts = nil
	m.mu.Unlock()

	m.logger.Info("alert replay complete",
		"replayed", len(unacknowledged)+len(repeating), "deferred", len(deferred))

	for _, d := range deferred {
		if err := m.dispatch(d.alert, d.issuedAt); err != nil {
			m.logger.Error("deferred alert dispatch failed",
				"identifier", d.alert.Identifier.Key(), "error", err)
		}
	}
	return nil
}

func (m *Manager) replay(records []ledger.StoredAlert) {
	now := m.clock.Now()
	for _, rec := range records {
		a, err := rec.Alert()
		if err != nil {
			// Corrupt rows must not sink the whole replay.
			m.logger.Warn("skipping unreplayable record", "error", err)
			continue
		}
		if a.ForegroundContent == nil {
			continue
		}
		a.Trigger = a.Trigger.AdjustedForStorageTime(rec.IssuedDate, now)
		m.modal.Schedule(a, rec.IssuedDate)
	}
}

// rescheduleForMuteChange runs whenever the mute configuration changes.
// Pending delayed and repeating alerts were scheduled with the old mute
// state baked into their host requests; unscheduling and re-dispatching them
// recomputes it. Original issued timestamps are preserved so delayed
// intervals keep their original anchor.
func (m *Manager) rescheduleForMuteChange() {
	m.mu.Lock()
	finished := m.playbackFinished
	m.mu.Unlock()
	if !finished {
		// Replay will schedule with the current mute state anyway.
		return
	}

	records, err := m.ledger.UnacknowledgedUnretractedSync("")
	if err != nil {
		m.logger.Error("mute reschedule: ledger query failed", "error", err)
		return
	}
	now := m.clock.Now()
	rescheduled := 0
	for _, rec := range records {
		if rec.Trigger.Type == alert.TriggerImmediate {
			// Already presented; nothing pending to recompute.
			continue
		}
		a, err := rec.Alert()
		if err != nil {
			m.logger.Warn("mute reschedule: skipping record", "error", err)
			continue
		}
		a.Trigger = a.Trigger.AdjustedForStorageTime(rec.IssuedDate, now)
		m.modal.Unschedule(a.Identifier)
		m.notifier.Unschedule(a.Identifier)
		m.modal.Schedule(a, rec.IssuedDate)
		m.notifier.Schedule(a, rec.IssuedDate)
		rescheduled++
	}
	m.logger.Info("rescheduled pending alerts for mute change", "count", rescheduled)
}
