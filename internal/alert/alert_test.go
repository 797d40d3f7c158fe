package alert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validAlert() Alert {
	fg := Content{Title: "Pump Occlusion", Body: "Delivery blocked", AcknowledgeActionLabel: "OK", IsCritical: true}
	return Alert{
		Identifier:        NewIdentifier("pump", "occlusion"),
		Trigger:           Immediate(),
		InterruptionLevel: LevelCritical,
		ForegroundContent: &fg,
		BackgroundContent: fg,
	}
}

func TestIdentifierKey(t *testing.T) {
	id := NewIdentifier("pump", "occlusion")
	assert.Equal(t, "pump.occlusion", id.Key())
	assert.Equal(t, "pump.occlusion", id.String())
}

func TestIdentifierValidate(t *testing.T) {
	assert.NoError(t, NewIdentifier("pump", "occlusion").Validate())
	assert.Error(t, NewIdentifier("", "occlusion").Validate())
	assert.Error(t, NewIdentifier("pump", "").Validate())
}

func TestTriggerValidate(t *testing.T) {
	tests := []struct {
		name    string
		trigger Trigger
		wantErr bool
	}{
		{"immediate", Immediate(), false},
		{"delayed", Delayed(time.Minute), false},
		{"repeating", Repeating(time.Hour), false},
		{"immediate with interval", Trigger{Type: TriggerImmediate, Interval: time.Second}, true},
		{"delayed without interval", Trigger{Type: TriggerDelayed}, true},
		{"repeating negative interval", Trigger{Type: TriggerRepeating, Interval: -time.Second}, true},
		{"unknown type", Trigger{Type: TriggerType(9)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.trigger.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAdjustedForStorageTime(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("delayed with time remaining shrinks", func(t *testing.T) {
		adjusted := Delayed(time.Hour).AdjustedForStorageTime(issued, issued.Add(20*time.Minute))
		assert.Equal(t, Delayed(40*time.Minute), adjusted)
	})
	t.Run("expired delayed becomes immediate", func(t *testing.T) {
		adjusted := Delayed(time.Hour).AdjustedForStorageTime(issued, issued.Add(2*time.Hour))
		assert.Equal(t, Immediate(), adjusted)
	})
	t.Run("repeating keeps cadence", func(t *testing.T) {
		adjusted := Repeating(time.Hour).AdjustedForStorageTime(issued, issued.Add(5*time.Hour))
		assert.Equal(t, Repeating(time.Hour), adjusted)
	})
	t.Run("immediate unchanged", func(t *testing.T) {
		assert.Equal(t, Immediate(), Immediate().AdjustedForStorageTime(issued, issued.Add(time.Hour)))
	})
}

func TestFireDate(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, issued, Immediate().FireDate(issued))
	assert.Equal(t, issued.Add(30*time.Minute), Delayed(30*time.Minute).FireDate(issued))
	assert.Equal(t, issued.Add(time.Hour), Repeating(time.Hour).FireDate(issued))
}

func TestParseInterruptionLevel(t *testing.T) {
	level, err := ParseInterruptionLevel("critical")
	require.NoError(t, err)
	assert.Equal(t, LevelCritical, level)

	level, err = ParseInterruptionLevel("active")
	require.NoError(t, err)
	assert.Equal(t, LevelActive, level)

	level, err = ParseInterruptionLevel("timeSensitive")
	require.NoError(t, err)
	assert.Equal(t, LevelTimeSensitive, level)

	_, err = ParseInterruptionLevel("loud")
	assert.Error(t, err)
}

func TestSoundValidate(t *testing.T) {
	assert.NoError(t, NamedSound("alarm.mp3").Validate())
	assert.NoError(t, Sound{Type: SoundVibrate}.Validate())
	assert.Error(t, Sound{Type: SoundNamed}.Validate(), "named sound needs a filename")
	assert.Error(t, Sound{Type: SoundVibrate, Name: "alarm.mp3"}.Validate())
	assert.Error(t, Sound{Type: "loud"}.Validate())
}

func TestSoundFilename(t *testing.T) {
	assert.Equal(t, "alarm.mp3", NamedSound("alarm.mp3").Filename())
	assert.Equal(t, "", Sound{Type: SoundVibrate}.Filename())
}

func TestAlertValidate(t *testing.T) {
	assert.NoError(t, validAlert().Validate())

	t.Run("background content required", func(t *testing.T) {
		a := validAlert()
		a.BackgroundContent = Content{}
		assert.Error(t, a.Validate())
	})
	t.Run("foreground content optional", func(t *testing.T) {
		a := validAlert()
		a.ForegroundContent = nil
		assert.NoError(t, a.Validate())
	})
	t.Run("invalid trigger rejected", func(t *testing.T) {
		a := validAlert()
		a.Trigger = Trigger{Type: TriggerDelayed}
		assert.Error(t, a.Validate())
	})
	t.Run("invalid sound rejected", func(t *testing.T) {
		a := validAlert()
		a.Sound = &Sound{Type: SoundNamed}
		assert.Error(t, a.Validate())
	})
}

func TestIsCritical(t *testing.T) {
	a := validAlert()
	assert.True(t, a.IsCritical())

	a.ForegroundContent.IsCritical = false
	a.BackgroundContent.IsCritical = false
	assert.False(t, a.IsCritical())

	a.ForegroundContent = nil
	a.BackgroundContent.IsCritical = true
	assert.True(t, a.IsCritical())
}

func TestContentCodecRoundtrip(t *testing.T) {
	fg := &Content{Title: "Low Reservoir", Body: "10 units left", AcknowledgeActionLabel: "OK"}
	encoded, err := EncodeContent(fg)
	require.NoError(t, err)

	decoded, err := DecodeContent(encoded)
	require.NoError(t, err)
	assert.Equal(t, fg, decoded)

	encodedNil, err := EncodeContent(nil)
	require.NoError(t, err)
	decodedNil, err := DecodeContent(encodedNil)
	require.NoError(t, err)
	assert.Nil(t, decodedNil)
}

func TestDecodeContentCorrupt(t *testing.T) {
	_, err := DecodeContent("{not json")
	assert.ErrorIs(t, err, ErrSerialization)
}
