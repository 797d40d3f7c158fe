// Package term provides the terminal-backed collaborators the CLI wires
// into the delivery channels: a lipgloss dialog presenter, a file-backed
// host notification center, and a bell sound player.
package term

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/dosewatch/alertkit/internal/alert"
	"github.com/dosewatch/alertkit/internal/channel"
)

var (
	dialogStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 2).
			Width(60)
	criticalDialogStyle = dialogStyle.
				BorderForeground(lipgloss.Color("9")).
				Bold(true)
	titleStyle  = lipgloss.NewStyle().Bold(true)
	actionStyle = lipgloss.NewStyle().Faint(true)
)

// Presenter renders in-process alert dialogs to the terminal.
type Presenter struct {
	out io.Writer
}

// NewPresenter builds a Presenter writing to out; nil means stdout.
func NewPresenter(out io.Writer) *Presenter {
	if out == nil {
		out = os.Stdout
	}
	return &Presenter{out: out}
}

// Present implements channel.Presenter. The acknowledge callback is not
// invocable from a rendered banner; acknowledgment arrives through the
// acknowledge command instead.
func (p *Presenter) Present(a alert.Alert, onAcknowledge func()) (channel.PresentationHandle, error) {
	content := a.ForegroundContent
	if content == nil {
		return nil, fmt.Errorf("terminal presenter: alert %s has no foreground content", a.Identifier)
	}
	style := dialogStyle
	if a.IsCritical() {
		style = criticalDialogStyle
	}
	body := titleStyle.Render(content.Title) + "\n" +
		content.Body + "\n\n" +
		actionStyle.Render("["+content.AcknowledgeActionLabel+"]  alertkit acknowledge "+
			a.Identifier.ManagerIdentifier+" "+a.Identifier.AlertIdentifier)
	fmt.Fprintln(p.out, style.Render(body))
	return a.Identifier.Key(), nil
}

// Dismiss implements channel.Presenter.
func (p *Presenter) Dismiss(handle channel.PresentationHandle) {
	fmt.Fprintln(p.out, actionStyle.Render(fmt.Sprintf("dismissed %v", handle)))
}

// Player rings the terminal bell when an alert sound fires.
type Player struct {
	out io.Writer
}

// NewPlayer builds a Player writing to out; nil means stdout.
func NewPlayer(out io.Writer) *Player {
	if out == nil {
		out = os.Stdout
	}
	return &Player{out: out}
}

// Play implements channel.SoundPlayer.
func (p *Player) Play(s alert.Sound) {
	switch s.Type {
	case alert.SoundVibrate:
		fmt.Fprint(p.out, "\a")
	case alert.SoundNamed:
		fmt.Fprintf(p.out, "\a%s\n", actionStyle.Render("♪ "+s.Name))
	}
}
