package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dosewatch/alertkit/internal/alert"
	"github.com/dosewatch/alertkit/internal/ledger"
)

func testRows(n int) []ledger.StoredAlert {
	rows := make([]ledger.StoredAlert, n)
	for i := range rows {
		rows[i] = ledger.StoredAlert{
			Identifier:          alert.NewIdentifier("pump", string(rune('a'+i))),
			Trigger:             alert.Immediate(),
			InterruptionLevel:   alert.LevelTimeSensitive,
			IssuedDate:          time.Now(),
			ModificationCounter: int64(i + 1),
		}
	}
	return rows
}

func keyPress(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestCursorMovement(t *testing.T) {
	m := New(nil, nil)
	updated, _ := m.Update(refreshedMsg{rows: testRows(3)})
	m = updated.(Model)

	updated, _ = m.Update(keyPress('j'))
	m = updated.(Model)
	assert.Equal(t, 1, m.cursor)

	updated, _ = m.Update(keyPress('j'))
	m = updated.(Model)
	updated, _ = m.Update(keyPress('j'))
	m = updated.(Model)
	assert.Equal(t, 2, m.cursor, "cursor stops at the last row")

	updated, _ = m.Update(keyPress('k'))
	m = updated.(Model)
	assert.Equal(t, 1, m.cursor)
}

func TestCursorClampsOnShrink(t *testing.T) {
	m := New(nil, nil)
	updated, _ := m.Update(refreshedMsg{rows: testRows(3)})
	m = updated.(Model)
	m.cursor = 2

	updated, _ = m.Update(refreshedMsg{rows: testRows(1)})
	m = updated.(Model)
	assert.Equal(t, 0, m.cursor)
}

func TestViewRendersRows(t *testing.T) {
	m := New(nil, nil)
	updated, _ := m.Update(refreshedMsg{rows: testRows(2)})
	m = updated.(Model)

	view := m.View()
	assert.Contains(t, view, "pump.a")
	assert.Contains(t, view, "pump.b")
	assert.Contains(t, view, "IDENTIFIER")
}

func TestViewEmptyLedger(t *testing.T) {
	m := New(nil, nil)
	assert.Contains(t, m.View(), "no live alerts")
}

func TestActionFailureShowsError(t *testing.T) {
	m := New(nil, nil)
	updated, _ := m.Update(actionFailedMsg{err: assert.AnError})
	m = updated.(Model)
	require.True(t, m.failed)
	assert.Contains(t, m.View(), assert.AnError.Error())
}

func TestQuitKey(t *testing.T) {
	m := New(nil, nil)
	_, cmd := m.Update(keyPress('q'))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
