// Package tui implements the interactive ledger browser. It lists the live
// alert records and lets the operator acknowledge or retract them in place.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dosewatch/alertkit/internal/alert"
	"github.com/dosewatch/alertkit/internal/ledger"
	"github.com/dosewatch/alertkit/internal/manager"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	selectedStyle = lipgloss.NewStyle().Reverse(true)
	criticalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	ackedStyle    = lipgloss.NewStyle().Faint(true)
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

type keyMap struct {
	Up          key.Binding
	Down        key.Binding
	Acknowledge key.Binding
	Retract     key.Binding
	Refresh     key.Binding
	Help        key.Binding
	Quit        key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Acknowledge, k.Retract, k.Refresh, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Acknowledge, k.Retract, k.Refresh},
		{k.Help, k.Quit},
	}
}

var keys = keyMap{
	Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Acknowledge: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "acknowledge")),
	Retract:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "retract")),
	Refresh:     key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "refresh")),
	Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type refreshedMsg struct {
	rows []ledger.StoredAlert
}

type actionDoneMsg struct {
	status string
}

type actionFailedMsg struct {
	err error
}

// Model is the bubbletea model for the ledger browser.
type Model struct {
	ledger  *ledger.Ledger
	manager *manager.Manager

	rows    []ledger.StoredAlert
	cursor  int
	status  string
	failed  bool
	help    help.Model
	keys    keyMap
	width   int
}

// New builds the browser model.
func New(led *ledger.Ledger, mgr *manager.Manager) Model {
	return Model{
		ledger:  led,
		manager: mgr,
		help:    help.New(),
		keys:    keys,
		width:   80,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.refresh()
}

func (m Model) refresh() tea.Cmd {
	return func() tea.Msg {
		rows, err := m.ledger.UnacknowledgedUnretractedSync("")
		if err != nil {
			return actionFailedMsg{err: err}
		}
		return refreshedMsg{rows: rows}
	}
}

func (m Model) selected() (ledger.StoredAlert, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return ledger.StoredAlert{}, false
	}
	return m.rows[m.cursor], true
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case refreshedMsg:
		m.rows = msg.rows
		if m.cursor >= len(m.rows) {
			m.cursor = len(m.rows) - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
		return m, nil

	case actionDoneMsg:
		m.status = msg.status
		m.failed = false
		return m, m.refresh()

	case actionFailedMsg:
		m.status = msg.err.Error()
		m.failed = true
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.rows)-1 {
				m.cursor++
			}
			return m, nil
		case key.Matches(msg, m.keys.Refresh):
			m.status = ""
			return m, m.refresh()
		case key.Matches(msg, m.keys.Acknowledge):
			if row, ok := m.selected(); ok {
				return m, m.acknowledge(row.Identifier)
			}
			return m, nil
		case key.Matches(msg, m.keys.Retract):
			if row, ok := m.selected(); ok {
				return m, m.retract(row.Identifier)
			}
			return m, nil
		}
	}
	return m, nil
}

func (m Model) acknowledge(id alert.Identifier) tea.Cmd {
	return func() tea.Msg {
		if err := m.manager.AcknowledgeAlert(id); err != nil {
			return actionFailedMsg{err: err}
		}
		return actionDoneMsg{status: "acknowledged " + id.Key()}
	}
}

func (m Model) retract(id alert.Identifier) tea.Cmd {
	return func() tea.Msg {
		if err := m.manager.RetractAlert(id); err != nil {
			return actionFailedMsg{err: err}
		}
		return actionDoneMsg{status: "retracted " + id.Key()}
	}
}

// View implements tea.Model.
func (m Model) View() string {
	var b []byte
	b = append(b, headerStyle.Render(fmt.Sprintf("%-30s %-10s %-9s %s",
		"IDENTIFIER", "TRIGGER", "LEVEL", "ISSUED"))...)
	b = append(b, '\n')

	if len(m.rows) == 0 {
		b = append(b, ackedStyle.Render("no live alerts")...)
		b = append(b, '\n')
	}
	for i, row := range m.rows {
		line := fmt.Sprintf("%-30s %-10s %-9s %s",
			truncate(row.Identifier.Key(), 30),
			row.Trigger.Type,
			row.InterruptionLevel,
			row.IssuedDate.Local().Format(time.RFC822))
		switch {
		case i == m.cursor:
			line = selectedStyle.Render(line)
		case row.InterruptionLevel == alert.LevelCritical:
			line = criticalStyle.Render(line)
		}
		b = append(b, line...)
		b = append(b, '\n')
	}

	if m.status != "" {
		b = append(b, '\n')
		if m.failed {
			b = append(b, errorStyle.Render(m.status)...)
		} else {
			b = append(b, statusStyle.Render(m.status)...)
		}
		b = append(b, '\n')
	}
	b = append(b, '\n')
	b = append(b, m.help.View(m.keys)...)
	return string(b)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 1 {
		return s[:max]
	}
	return s[:max-1] + "…"
}

// Run starts the browser on the current terminal.
func Run(led *ledger.Ledger, mgr *manager.Manager) error {
	_, err := tea.NewProgram(New(led, mgr), tea.WithAltScreen()).Run()
	return err
}
