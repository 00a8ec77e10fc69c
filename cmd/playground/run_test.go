package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/foxseedlab/mensetsu/internal/interview"
	"github.com/foxseedlab/mensetsu/internal/progress"
	"github.com/foxseedlab/mensetsu/internal/session"
	"github.com/foxseedlab/mensetsu/internal/timebudget"
	"github.com/foxseedlab/mensetsu/internal/voice"
)

type mockVoice struct{}

func (mockVoice) Start(context.Context, voice.StartContext) (*voice.Subscription, error) {
	return nil, voice.ErrVendor
}
func (mockVoice) Stop(context.Context) error { return nil }
func (mockVoice) SetMuted(bool) error        { return nil }

type mockProgress struct {
	saved int
}

func (m *mockProgress) Save(context.Context, string, progress.SaveInput) error {
	m.saved++
	return nil
}

func (m *mockProgress) Load(context.Context, string) (*progress.Snapshot, error) {
	return nil, progress.ErrNoProgress
}

func newTestManager(term *terminal, store *mockProgress) *session.Manager {
	return session.NewManager(
		session.Deps{Voice: mockVoice{}, Progress: store, Shell: term, Notifier: term},
		session.User{ID: "dev-user"},
		interview.Definition{ID: "iv-1", DurationMinutes: 10},
	)
}

func TestDispatch_UnknownCommand(t *testing.T) {
	var out bytes.Buffer
	term := newTerminal(&out)
	m := newTestManager(term, &mockProgress{})
	if err := dispatch(context.Background(), m, term, "dance"); err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestDispatch_ExitWhenInactiveLeaves(t *testing.T) {
	var out bytes.Buffer
	term := newTerminal(&out)
	m := newTestManager(term, &mockProgress{})
	if err := dispatch(context.Background(), m, term, "exit"); err != nil {
		t.Fatalf("exit failed: %v", err)
	}
	select {
	case <-term.Done():
	default:
		t.Fatal("expected terminal to be done after exit")
	}
}

func TestDispatch_LoadWithoutProgressNotifies(t *testing.T) {
	var out bytes.Buffer
	term := newTerminal(&out)
	m := newTestManager(term, &mockProgress{})
	if err := dispatch(context.Background(), m, term, "load"); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !strings.Contains(out.String(), "i ") {
		t.Fatalf("expected an info notice, got %q", out.String())
	}
	if m.State().Status != session.StatusInactive {
		t.Fatalf("expected inactive after load, got %s", m.State().Status)
	}
}

func TestDispatch_StartFailureMovesToError(t *testing.T) {
	var out bytes.Buffer
	term := newTerminal(&out)
	m := newTestManager(term, &mockProgress{})
	if err := dispatch(context.Background(), m, term, "start"); err == nil {
		t.Fatal("expected vendor failure")
	}
	if m.State().Status != session.StatusError {
		t.Fatalf("expected error status, got %s", m.State().Status)
	}
	if err := dispatch(context.Background(), m, term, "retry"); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if m.State().Status != session.StatusInactive {
		t.Fatalf("expected inactive after retry, got %s", m.State().Status)
	}
}

func TestDispatch_MutePrintsManagerNotice(t *testing.T) {
	var out bytes.Buffer
	term := newTerminal(&out)
	m := newTestManager(term, &mockProgress{})
	if err := dispatch(context.Background(), m, term, "mute"); err != nil {
		t.Fatalf("mute failed: %v", err)
	}
	if got := strings.Count(out.String(), "Microphone muted"); got != 1 {
		t.Fatalf("expected one mute notice, got %d in %q", got, out.String())
	}
}

func TestDispatch_SaveWhileInactiveIsRejected(t *testing.T) {
	var out bytes.Buffer
	term := newTerminal(&out)
	store := &mockProgress{}
	m := newTestManager(term, store)
	err := dispatch(context.Background(), m, term, "save")
	if !errors.Is(err, session.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if store.saved != 0 {
		t.Fatalf("expected no save, got %d", store.saved)
	}
}

func TestTimerStyle(t *testing.T) {
	tests := []struct {
		urgency timebudget.Urgency
		want    string
	}{
		{urgency: timebudget.UrgencyCalm, want: "#a6e3a1"},
		{urgency: timebudget.UrgencyWarning, want: "#f9e2af"},
		{urgency: timebudget.UrgencyCritical, want: "#f38ba8"},
	}
	for _, tt := range tests {
		got := timerStyle(tt.urgency).GetForeground()
		if got != lipgloss.Color(tt.want) {
			t.Fatalf("urgency %s: unexpected color %v", tt.urgency, got)
		}
	}
}
