// Package muter implements the mute window: a configured time span during
// which alert sounds are forced silent. Muting affects sound only; delivery,
// persistence, and acknowledgment are untouched.
package muter

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dosewatch/alertkit/internal/kv"
	"github.com/dosewatch/alertkit/internal/logging"
)

// MaxDuration caps a mute window. A safety system must not stay silent
// indefinitely.
const MaxDuration = 4 * time.Hour

// Keys under which the configuration persists in the state store.
const (
	keyMuteStart    = "mute_start"
	keyMuteDuration = "mute_duration_seconds"
)

// Configuration describes one mute window. The zero value means muting is
// off.
type Configuration struct {
	StartTime time.Time
	Duration  time.Duration
}

// Enabled reports whether the configuration describes an actual window.
func (c Configuration) Enabled() bool {
	return !c.StartTime.IsZero() && c.Duration > 0
}

// End returns the instant the window closes.
func (c Configuration) End() time.Time {
	return c.StartTime.Add(c.Duration)
}

// ShouldMute reports whether a sound scheduled to play at the given instant
// falls inside the window. Pure; safe to call from any goroutine.
func (c Configuration) ShouldMute(at time.Time) bool {
	if !c.Enabled() {
		return false
	}
	return !at.Before(c.StartTime) && at.Before(c.End())
}

// Validate rejects nonsensical windows.
func (c Configuration) Validate() error {
	if c.StartTime.IsZero() && c.Duration == 0 {
		return nil
	}
	if c.StartTime.IsZero() {
		return fmt.Errorf("mute configuration: duration without start time")
	}
	if c.Duration <= 0 {
		return fmt.Errorf("mute configuration: duration must be positive")
	}
	if c.Duration > MaxDuration {
		return fmt.Errorf("mute configuration: duration %s exceeds maximum %s", c.Duration, MaxDuration)
	}
	return nil
}

// Subscription identifies a registered configuration-change callback.
type Subscription int

// Muter holds the current configuration and notifies subscribers when it
// changes. Persistence happens through an optional state store so the window
// survives restarts.
type Muter struct {
	mu          sync.Mutex
	cfg         Configuration
	store       *kv.Store
	logger      logging.Logger
	subscribers map[Subscription]func(Configuration)
	nextSub     Subscription
}

// Option configures a Muter.
type Option func(*Muter)

// WithStore persists configuration changes to the given state store and
// restores any saved window on construction.
func WithStore(store *kv.Store) Option {
	return func(m *Muter) { m.store = store }
}

// WithLogger sets the logger.
func WithLogger(log logging.Logger) Option {
	return func(m *Muter) { m.logger = log }
}

// New builds a Muter, restoring a persisted window when a store is supplied.
func New(opts ...Option) *Muter {
	m := &Muter{
		logger:      logging.GetGlobal(),
		subscribers: map[Subscription]func(Configuration){},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.store != nil {
		if cfg, ok := loadConfiguration(m.store); ok {
			if err := cfg.Validate(); err != nil {
				m.logger.Warn("discarding invalid persisted mute configuration", "error", err)
			} else {
				m.cfg = cfg
			}
		}
	}
	return m
}

// Configuration returns the current window.
func (m *Muter) Configuration() Configuration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// ShouldMute reports whether a sound playing at the given instant should be
// silenced under the current window.
func (m *Muter) ShouldMute(at time.Time) bool {
	return m.Configuration().ShouldMute(at)
}

// Configure replaces the window, persists it, and notifies subscribers.
func (m *Muter) Configure(cfg Configuration) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.cfg = cfg
	if m.store != nil {
		if err := saveConfiguration(m.store, cfg); err != nil {
			m.mu.Unlock()
			return fmt.Errorf("mute configuration: persist: %w", err)
		}
	}
	subs := make([]func(Configuration), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	if cfg.Enabled() {
		m.logger.Info("mute window configured",
			"start", cfg.StartTime.UTC().Format(time.RFC3339),
			"duration", cfg.Duration.String())
	} else {
		m.logger.Info("mute window cleared")
	}
	for _, fn := range subs {
		fn(cfg)
	}
	return nil
}

// StartMuting opens a window beginning at start for the given duration.
func (m *Muter) StartMuting(start time.Time, duration time.Duration) error {
	return m.Configure(Configuration{StartTime: start, Duration: duration})
}

// StopMuting clears the window.
func (m *Muter) StopMuting() error {
	return m.Configure(Configuration{})
}

// Subscribe registers a callback invoked on every configuration change. The
// callback runs on the goroutine that called Configure.
func (m *Muter) Subscribe(fn func(Configuration)) Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextSub++
	sub := m.nextSub
	m.subscribers[sub] = fn
	return sub
}

// Unsubscribe removes a previously registered callback.
func (m *Muter) Unsubscribe(sub Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscribers, sub)
}

func loadConfiguration(store *kv.Store) (Configuration, bool) {
	startRaw, ok := store.Get(keyMuteStart)
	if !ok {
		return Configuration{}, false
	}
	durationRaw, ok := store.Get(keyMuteDuration)
	if !ok {
		return Configuration{}, false
	}
	start, err := time.Parse(time.RFC3339Nano, startRaw)
	if err != nil {
		return Configuration{}, false
	}
	seconds, err := strconv.ParseFloat(durationRaw, 64)
	if err != nil {
		return Configuration{}, false
	}
	return Configuration{
		StartTime: start,
		Duration:  time.Duration(seconds * float64(time.Second)),
	}, true
}

func saveConfiguration(store *kv.Store, cfg Configuration) error {
	if !cfg.Enabled() {
		if err := store.Delete(keyMuteStart); err != nil {
			return err
		}
		return store.Delete(keyMuteDuration)
	}
	if err := store.Set(keyMuteStart, cfg.StartTime.UTC().Format(time.RFC3339Nano)); err != nil {
		return err
	}
	return store.Set(keyMuteDuration, strconv.FormatFloat(cfg.Duration.Seconds(), 'f', -1, 64))
}
