package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/foxseedlab/mensetsu/internal/session"
	"github.com/foxseedlab/mensetsu/internal/timebudget"
	"github.com/foxseedlab/mensetsu/internal/transcript"
)

var (
	calmStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1")).Bold(true)
	warningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#f9e2af")).Bold(true)
	criticalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8")).Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#a6adc8"))
	agentStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#74c7ec")).Bold(true)
	userStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#b4befe")).Bold(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8"))
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1"))
)

func timerStyle(u timebudget.Urgency) lipgloss.Style {
	switch u {
	case timebudget.UrgencyCalm:
		return calmStyle
	case timebudget.UrgencyWarning:
		return warningStyle
	default:
		return criticalStyle
	}
}

// terminal is the Shell and Notifier of a playground session.
type terminal struct {
	mu   sync.Mutex
	out  io.Writer
	back chan struct{}
	once sync.Once
}

func newTerminal(out io.Writer) *terminal {
	return &terminal{out: out, back: make(chan struct{})}
}

func (t *terminal) EnterImmersive() { t.println(mutedStyle.Render("[immersive mode]")) }
func (t *terminal) ExitImmersive()  { t.println(mutedStyle.Render("[windowed mode]")) }

func (t *terminal) Back() {
	t.once.Do(func() { close(t.back) })
}

func (t *terminal) Done() <-chan struct{} {
	return t.back
}

func (t *terminal) Notify(n session.Notice) {
	switch n.Level {
	case session.NoticeError:
		t.println(errorStyle.Render("! " + n.Message))
	case session.NoticeSuccess:
		t.println(successStyle.Render("✓ " + n.Message))
	default:
		t.println(mutedStyle.Render("i " + n.Message))
	}
}

func (t *terminal) printStatus(v session.View) {
	line := fmt.Sprintf("%s  %s", timerStyle(v.Urgency).Render(v.TimeText), mutedStyle.Render(string(v.Status)))
	if v.Muted {
		line += mutedStyle.Render("  (muted)")
	}
	if v.Streaming != nil {
		line += mutedStyle.Render("  … " + v.Streaming.Text)
	}
	t.println(line)
}

func (t *terminal) printTurn(turn transcript.Turn) {
	label := agentStyle.Render("agent")
	if turn.Speaker == transcript.SpeakerCandidate {
		label = userStyle.Render("you")
	}
	t.println(fmt.Sprintf("%s: %s", label, turn.Text))
}

func (t *terminal) println(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = fmt.Fprintln(t.out, s)
}
