// Package alert provides the domain layer for safety alerts.
// It contains the alert value types, trigger timing policy, and the
// error taxonomy shared by the ledger, the manager, and the channels.
package alert

import (
	"fmt"
	"time"
)

// Identifier uniquely names an alert type raised by an owning subsystem.
// It is immutable once created.
type Identifier struct {
	ManagerIdentifier string
	AlertIdentifier   string
}

// NewIdentifier creates an Identifier from an owner and alert name.
func NewIdentifier(managerIdentifier, alertIdentifier string) Identifier {
	return Identifier{ManagerIdentifier: managerIdentifier, AlertIdentifier: alertIdentifier}
}

// Key returns the composite string form "<manager>.<alert>".
func (i Identifier) Key() string {
	return i.ManagerIdentifier + "." + i.AlertIdentifier
}

// String returns the composite key.
func (i Identifier) String() string {
	return i.Key()
}

// Validate validates the identifier and returns an error if invalid.
func (i Identifier) Validate() error {
	if i.ManagerIdentifier == "" {
		return fmt.Errorf("alert identifier: manager identifier cannot be empty")
	}
	if i.AlertIdentifier == "" {
		return fmt.Errorf("alert identifier: alert identifier cannot be empty")
	}
	return nil
}

// TriggerType classifies when an alert transitions from scheduled to presented.
type TriggerType int

const (
	TriggerImmediate TriggerType = 0
	TriggerDelayed   TriggerType = 1
	TriggerRepeating TriggerType = 2
)

// IsValid checks if the trigger type is valid.
func (t TriggerType) IsValid() bool {
	switch t {
	case TriggerImmediate, TriggerDelayed, TriggerRepeating:
		return true
	default:
		return false
	}
}

// String returns the string representation of the trigger type.
func (t TriggerType) String() string {
	switch t {
	case TriggerImmediate:
		return "immediate"
	case TriggerDelayed:
		return "delayed"
	case TriggerRepeating:
		return "repeating"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// Trigger is the timing policy for an alert. Only delayed and repeating
// triggers carry an interval.
type Trigger struct {
	Type     TriggerType
	Interval time.Duration
}

// Immediate returns a trigger that fires as soon as the alert is issued.
func Immediate() Trigger {
	return Trigger{Type: TriggerImmediate}
}

// Delayed returns a trigger that fires once after interval.
func Delayed(interval time.Duration) Trigger {
	return Trigger{Type: TriggerDelayed, Interval: interval}
}

// Repeating returns a trigger that fires every interval until retracted.
func Repeating(interval time.Duration) Trigger {
	return Trigger{Type: TriggerRepeating, Interval: interval}
}

// Repeats reports whether the trigger re-arms after firing.
func (t Trigger) Repeats() bool {
	return t.Type == TriggerRepeating
}

// Validate validates the trigger and returns an error if invalid.
func (t Trigger) Validate() error {
	if !t.Type.IsValid() {
		return fmt.Errorf("trigger: invalid type %d", int(t.Type))
	}
	if t.Type == TriggerImmediate && t.Interval != 0 {
		return fmt.Errorf("trigger: immediate trigger cannot carry an interval")
	}
	if t.Type != TriggerImmediate && t.Interval <= 0 {
		return fmt.Errorf("trigger: %s trigger requires a positive interval", t.Type)
	}
	return nil
}

// AdjustedForStorageTime returns the trigger adjusted for wall-clock time
// elapsed since the alert was issued. A delayed trigger whose remaining time
// has already passed becomes immediate; repeating triggers keep their cadence.
func (t Trigger) AdjustedForStorageTime(issuedAt, now time.Time) Trigger {
	if t.Type != TriggerDelayed {
		return t
	}
	remaining := t.Interval - now.Sub(issuedAt)
	if remaining <= 0 {
		return Immediate()
	}
	return Delayed(remaining)
}

// FireDate returns the instant the trigger first fires for an alert issued
// at issuedAt.
func (t Trigger) FireDate(issuedAt time.Time) time.Time {
	if t.Type == TriggerImmediate {
		return issuedAt
	}
	return issuedAt.Add(t.Interval)
}

// InterruptionLevel orders how forcefully an alert may interrupt the user.
// Critical delivery may bypass mute and do-not-disturb settings on the host.
type InterruptionLevel int

const (
	LevelActive        InterruptionLevel = 1
	LevelTimeSensitive InterruptionLevel = 2
	LevelCritical      InterruptionLevel = 3
)

// IsValid checks if the interruption level is valid.
func (l InterruptionLevel) IsValid() bool {
	switch l {
	case LevelActive, LevelTimeSensitive, LevelCritical:
		return true
	default:
		return false
	}
}

// String returns the string representation of the level.
func (l InterruptionLevel) String() string {
	switch l {
	case LevelActive:
		return "active"
	case LevelTimeSensitive:
		return "timeSensitive"
	case LevelCritical:
		return "critical"
	default:
		return fmt.Sprintf("unknown(%d)", int(l))
	}
}

// ParseInterruptionLevel parses a string into an InterruptionLevel.
func ParseInterruptionLevel(level string) (InterruptionLevel, error) {
	switch level {
	case "active":
		return LevelActive, nil
	case "timeSensitive", "time-sensitive":
		return LevelTimeSensitive, nil
	case "critical":
		return LevelCritical, nil
	default:
		return 0, fmt.Errorf("invalid interruption level: %s", level)
	}
}

// Content is what a delivery channel shows for an alert.
type Content struct {
	Title                  string `json:"title"`
	Body                   string `json:"body"`
	AcknowledgeActionLabel string `json:"acknowledgeActionLabel"`
	IsCritical             bool   `json:"isCritical"`
}

// Validate validates the content and returns an error if invalid.
func (c Content) Validate() error {
	if c.Title == "" {
		return fmt.Errorf("content: title cannot be empty")
	}
	if c.Body == "" {
		return fmt.Errorf("content: body cannot be empty")
	}
	if c.AcknowledgeActionLabel == "" {
		return fmt.Errorf("content: acknowledge action label cannot be empty")
	}
	return nil
}

// SoundType classifies the audible component of an alert.
type SoundType string

const (
	SoundNone    SoundType = "none"
	SoundVibrate SoundType = "vibrate"
	SoundNamed   SoundType = "named"
)

// IsValid checks if the sound type is valid.
func (s SoundType) IsValid() bool {
	switch s {
	case SoundNone, SoundVibrate, SoundNamed:
		return true
	default:
		return false
	}
}

// Sound describes the audible component of an alert. Only named sounds
// carry a filename.
type Sound struct {
	Type SoundType `json:"type"`
	Name string    `json:"name,omitempty"`
}

// NamedSound returns a sound backed by an asset file.
func NamedSound(filename string) Sound {
	return Sound{Type: SoundNamed, Name: filename}
}

// Filename returns the asset filename, or empty if the sound has none.
func (s Sound) Filename() string {
	if s.Type != SoundNamed {
		return ""
	}
	return s.Name
}

// Validate validates the sound and returns an error if invalid.
func (s Sound) Validate() error {
	if !s.Type.IsValid() {
		return fmt.Errorf("sound: invalid type %q", string(s.Type))
	}
	if s.Type == SoundNamed && s.Name == "" {
		return fmt.Errorf("sound: named sound requires a filename")
	}
	if s.Type != SoundNamed && s.Name != "" {
		return fmt.Errorf("sound: %s sound cannot carry a filename", s.Type)
	}
	return nil
}

// Metadata is an opaque key/value map attached for diagnostic and export
// purposes. The core never interprets it.
type Metadata map[string]string

// Alert is an ephemeral, in-memory request to notify the user. It is
// constructed by a caller and never mutated after construction.
//
// ForegroundContent is optional: without it the alert is never shown as an
// in-process modal. BackgroundContent is mandatory so that every alert is
// deliverable when the app is not active.
type Alert struct {
	Identifier        Identifier
	Trigger           Trigger
	InterruptionLevel InterruptionLevel
	ForegroundContent *Content
	BackgroundContent Content
	Sound             *Sound
	Metadata          Metadata
}

// Validate validates the alert and returns an error if invalid.
func (a Alert) Validate() error {
	if err := a.Identifier.Validate(); err != nil {
		return err
	}
	if err := a.Trigger.Validate(); err != nil {
		return err
	}
	if !a.InterruptionLevel.IsValid() {
		return fmt.Errorf("alert %s: invalid interruption level %d", a.Identifier, int(a.InterruptionLevel))
	}
	if a.ForegroundContent != nil {
		if err := a.ForegroundContent.Validate(); err != nil {
			return fmt.Errorf("alert %s: foreground %w", a.Identifier, err)
		}
	}
	if err := a.BackgroundContent.Validate(); err != nil {
		return fmt.Errorf("alert %s: background %w", a.Identifier, err)
	}
	if a.Sound != nil {
		if err := a.Sound.Validate(); err != nil {
			return fmt.Errorf("alert %s: %w", a.Identifier, err)
		}
	}
	return nil
}

// IsCritical reports whether either content marks the alert critical.
func (a Alert) IsCritical() bool {
	if a.ForegroundContent != nil && a.ForegroundContent.IsCritical {
		return true
	}
	return a.BackgroundContent.IsCritical
}
