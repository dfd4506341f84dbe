package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dealsuite/modtrack/internal/models"
	"github.com/dealsuite/modtrack/internal/tracking"
)

func newDirtyApp(t *testing.T) *App {
	t.Helper()
	a := New("http://127.0.0.1:0", "deal-1", models.RoleEmployee)
	a.loading = false

	deal := &models.Deal{ID: "deal-1"}
	modules := []models.ModuleInstance{
		{Name: "Design", InternalStatus: models.StatusPending, ClientStatus: models.StatusPending},
	}
	a.session = tracking.Open(deal, modules, models.RoleEmployee).
		SetField("Design", models.FieldInternal, models.StatusInProgress)
	a.haveSession = true
	if !a.session.Dirty() {
		t.Fatal("Setup should produce a dirty session")
	}
	return a
}

func TestCommitKeyStartsBusyIndicator(t *testing.T) {
	a := newDirtyApp(t)

	_, cmd := a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	if !a.committing {
		t.Error("Expected commit key to enter the committing state")
	}
	if cmd == nil {
		t.Fatal("Expected the commit and spinner commands to be scheduled")
	}
	if !strings.Contains(a.View(), "Saving") {
		t.Error("Expected the busy indicator while committing")
	}
}

func TestSpinnerTicksOnlyWhileCommitting(t *testing.T) {
	a := newDirtyApp(t)

	// Ticks arriving outside a commit are dropped.
	if _, cmd := a.Update(spinner.TickMsg{}); cmd != nil {
		t.Error("Expected no follow-up tick while idle")
	}

	a.committing = true
	if _, cmd := a.Update(spinner.TickMsg{}); cmd == nil {
		t.Error("Expected the spinner to keep ticking while committing")
	}
}

func TestCommitKeyIgnoredOnCleanSession(t *testing.T) {
	a := newDirtyApp(t)
	a.session = tracking.Open(&models.Deal{ID: "deal-1"}, a.session.Modules(), models.RoleEmployee)

	_, cmd := a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	if a.committing || cmd != nil {
		t.Error("Clean session must not start a commit")
	}
}
