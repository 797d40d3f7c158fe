package channel

import (
	"time"

	"github.com/dosewatch/alertkit/internal/alert"
	"github.com/dosewatch/alertkit/internal/clock"
	"github.com/dosewatch/alertkit/internal/logging"
)

// NotificationRequest is what the channel hands to the host notification
// service. The host owns pending and delivered state; the channel keeps
// none.
type NotificationRequest struct {
	Identifier        string
	Title             string
	Body              string
	ActionLabel       string
	InterruptionLevel alert.InterruptionLevel
	Critical          bool

	// SoundName is empty when the alert is silent or currently muted.
	SoundName string
	Vibrate   bool

	// Delay is zero for immediate delivery. Repeats marks a repeating
	// schedule with period Delay.
	Delay   time.Duration
	Repeats bool
}

// NotificationCenter is the host notification service consumed by the
// channel.
type NotificationCenter interface {
	Schedule(req NotificationRequest) error
	CancelPending(identifiers []string)
	ClearDelivered(identifiers []string)
	ListDelivered() ([]string, error)
}

// Notifier is the host-notification delivery channel. It always uses the
// alert's background content, which every alert must carry, so delivery
// works while the application is backgrounded.
type Notifier struct {
	queue chan func()
	quit  chan struct{}

	center NotificationCenter
	mute   MutePolicy
	clock  clock.Clock
	logger logging.Logger
}

// NotifierOption configures a Notifier channel.
type NotifierOption func(*Notifier)

// WithNotifierClock sets the time source.
func WithNotifierClock(c clock.Clock) NotifierOption {
	return func(n *Notifier) { n.clock = c }
}

// WithNotifierMutePolicy sets the mute policy applied at schedule time.
func WithNotifierMutePolicy(p MutePolicy) NotifierOption {
	return func(n *Notifier) { n.mute = p }
}

// WithNotifierLogger sets the logger.
func WithNotifierLogger(log logging.Logger) NotifierOption {
	return func(n *Notifier) { n.logger = log }
}

// NewNotifier builds the host-notification channel and starts its run loop.
func NewNotifier(center NotificationCenter, opts ...NotifierOption) *Notifier {
	n := &Notifier{
		queue:  make(chan func(), 64),
		quit:   make(chan struct{}),
		center: center,
		mute:   unmuted{},
		clock:  clock.NewSystem(),
		logger: logging.GetGlobal(),
	}
	for _, opt := range opts {
		opt(n)
	}
	go n.run()
	return n
}

// Close stops the run loop.
func (n *Notifier) Close() {
	close(n.quit)
}

func (n *Notifier) run() {
	for {
		select {
		case fn := <-n.queue:
			fn()
		case <-n.quit:
			return
		}
	}
}

func (n *Notifier) perform(fn func()) {
	select {
	case n.queue <- fn:
	case <-n.quit:
	}
}

// Schedule implements Channel. The mute decision is taken now, at schedule
// time; when the mute window changes, the manager reschedules pending
// alerts so the host request reflects the new state.
func (n *Notifier) Schedule(a alert.Alert, issuedAt time.Time) {
	n.perform(func() {
		req := n.buildRequest(a)
		if err := n.center.Schedule(req); err != nil {
			// Presentation on the other channel is unaffected.
			n.logger.Error("host notification rejected", "identifier", a.Identifier.Key(), "error", err)
			return
		}
		n.logger.Info("scheduled host notification", "identifier", a.Identifier.Key(),
			"delay", req.Delay.String(), "repeats", req.Repeats)
	})
}

func (n *Notifier) buildRequest(a alert.Alert) NotificationRequest {
	req := NotificationRequest{
		Identifier:        a.Identifier.Key(),
		Title:             a.BackgroundContent.Title,
		Body:              a.BackgroundContent.Body,
		ActionLabel:       a.BackgroundContent.AcknowledgeActionLabel,
		InterruptionLevel: a.InterruptionLevel,
		Critical:          a.IsCritical(),
	}
	if a.Trigger.Type != alert.TriggerImmediate {
		req.Delay = a.Trigger.Interval
		req.Repeats = a.Trigger.Repeats()
	}
	if a.Sound != nil && !n.mute.ShouldMute(n.clock.Now()) {
		switch a.Sound.Type {
		case alert.SoundVibrate:
			req.Vibrate = true
		case alert.SoundNamed:
			req.SoundName = a.Sound.Name
		}
	}
	return req
}

// Unschedule implements Channel: cancels any pending request and clears any
// delivered notification for the identifier.
func (n *Notifier) Unschedule(identifier alert.Identifier) {
	n.perform(func() {
		ids := []string{identifier.Key()}
		n.center.CancelPending(ids)
		n.center.ClearDelivered(ids)
	})
}

// ClearDelivered removes the delivered notification without touching a
// pending schedule. Used on acknowledgment, where a repeating alert must
// keep firing.
func (n *Notifier) ClearDelivered(identifier alert.Identifier) {
	n.perform(func() {
		n.center.ClearDelivered([]string{identifier.Key()})
	})
}

// DeliveredIdentifiers asks the host which notifications are currently in
// its delivered list.
func (n *Notifier) DeliveredIdentifiers() []string {
	result := make(chan []string, 1)
	n.perform(func() {
		ids, err := n.center.ListDelivered()
		if err != nil {
			n.logger.Warn("could not list delivered notifications", "error", err)
			result <- nil
			return
		}
		result <- ids
	})
	select {
	case ids := <-result:
		return ids
	case <-n.quit:
		return nil
	}
}
