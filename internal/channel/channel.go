// Package channel implements the two alert delivery channels: the in-process
// modal channel and the host notification channel. Both follow the same
// lifecycle, Pending (timer armed) to Presented (visible) to Cleared, and
// differ only in how they put an alert in front of the user.
//
// Each channel owns its state exclusively and marshals every call onto a
// single goroutine, so timer callbacks never race an unschedule.
package channel

import (
	"time"

	"github.com/dosewatch/alertkit/internal/alert"
)

// Channel is a delivery surface for alerts. Schedule and Unschedule are
// asynchronous; they enqueue onto the channel's run loop and return.
type Channel interface {
	// Schedule arms delivery of the alert. issuedAt anchors delayed and
	// repeating interval math.
	Schedule(a alert.Alert, issuedAt time.Time)

	// Unschedule cancels any pending timer and withdraws any active
	// presentation for the identifier.
	Unschedule(identifier alert.Identifier)
}

// MutePolicy decides whether a sound playing at a given instant should be
// silenced. *muter.Muter satisfies this.
type MutePolicy interface {
	ShouldMute(at time.Time) bool
}

// unmuted is the policy used when no muter is supplied.
type unmuted struct{}

func (unmuted) ShouldMute(time.Time) bool { return false }

// Acknowledger receives user acknowledgment actions surfaced by a channel.
// The alert manager registers itself here so a dismissed dialog flows back
// into the ledger.
type Acknowledger func(identifier alert.Identifier)
