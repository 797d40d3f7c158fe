package muter

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dosewatch/alertkit/internal/kv"
)

func TestShouldMuteWindow(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cfg := Configuration{StartTime: start, Duration: 30 * time.Minute}

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"before window", start.Add(-time.Second), false},
		{"window opens", start, true},
		{"inside window", start.Add(15 * time.Minute), true},
		{"window closes", start.Add(30 * time.Minute), false},
		{"after window", start.Add(time.Hour), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cfg.ShouldMute(tt.at))
		})
	}
}

func TestZeroConfigurationNeverMutes(t *testing.T) {
	var cfg Configuration
	assert.False(t, cfg.Enabled())
	assert.False(t, cfg.ShouldMute(time.Now()))
}

func TestConfigureValidation(t *testing.T) {
	m := New()
	start := time.Now()

	assert.Error(t, m.StartMuting(start, -time.Minute))
	assert.Error(t, m.StartMuting(start, MaxDuration+time.Second))
	assert.Error(t, m.Configure(Configuration{Duration: time.Minute}))
	assert.NoError(t, m.StartMuting(start, 30*time.Minute))
}

func TestSubscribersNotified(t *testing.T) {
	m := New()
	var got []Configuration
	sub := m.Subscribe(func(cfg Configuration) { got = append(got, cfg) })

	start := time.Now()
	require.NoError(t, m.StartMuting(start, time.Hour))
	require.NoError(t, m.StopMuting())
	require.Len(t, got, 2)
	assert.True(t, got[0].Enabled())
	assert.False(t, got[1].Enabled())

	m.Unsubscribe(sub)
	require.NoError(t, m.StartMuting(start, time.Hour))
	assert.Len(t, got, 2)
}

func TestConfigurationPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.toml")
	store, err := kv.Open(path)
	require.NoError(t, err)

	m := New(WithStore(store))
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, m.StartMuting(start, 45*time.Minute))

	reopened, err := kv.Open(path)
	require.NoError(t, err)
	restored := New(WithStore(reopened))
	cfg := restored.Configuration()
	assert.True(t, cfg.StartTime.Equal(start))
	assert.Equal(t, 45*time.Minute, cfg.Duration)

	// Clearing removes the persisted window too.
	require.NoError(t, restored.StopMuting())
	again, err := kv.Open(path)
	require.NoError(t, err)
	assert.False(t, New(WithStore(again)).Configuration().Enabled())
}
