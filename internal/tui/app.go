// Package tui provides the interactive module edit screen for Modtrack.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dealsuite/modtrack/internal/models"
	"github.com/dealsuite/modtrack/internal/tracking"
)

var (
	// Colors
	primaryColor = lipgloss.Color("#7C3AED")
	successColor = lipgloss.Color("#10B981")
	warningColor = lipgloss.Color("#F59E0B")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
	fgColor      = lipgloss.Color("#F9FAFB")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	moduleItemStyle = lipgloss.NewStyle().
			Padding(0, 2)

	selectedStyle = lipgloss.NewStyle().
			Background(primaryColor).
			Foreground(fgColor).
			Bold(true).
			Padding(0, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	dirtyStyle = lipgloss.NewStyle().
			Foreground(warningColor).
			Bold(true)

	doneStyle = lipgloss.NewStyle().
			Foreground(successColor)
)

// App is the module editor TUI model.
type App struct {
	client  *Client
	dealID  string
	role    models.Role
	deal    *DealView
	product string

	session     tracking.Session
	haveSession bool
	selectedIdx int

	loading    bool
	committing bool
	spin       spinner.Model
	message    string
	errText    string
	width      int
	height     int
}

// New creates a new module editor for one deal.
func New(apiAddr, dealID string, role models.Role) *App {
	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(warningColor)),
	)
	return &App{
		client:  NewClient(apiAddr, role),
		dealID:  dealID,
		role:    role,
		loading: true,
		spin:    sp,
	}
}

// Run starts the editor and blocks until it exits.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// --- Messages ---

type loadedMsg struct {
	deal     *DealView
	resolved *ResolvedView
	err      error
}

type commitDoneMsg struct {
	session tracking.Session
	err     error
}

func (a *App) loadCmd() tea.Cmd {
	return func() tea.Msg {
		deal, err := a.client.GetDeal(a.dealID)
		if err != nil {
			return loadedMsg{err: err}
		}
		resolved, err := a.client.ResolveModules(a.dealID)
		if err != nil {
			return loadedMsg{err: err}
		}
		return loadedMsg{deal: deal, resolved: resolved}
	}
}

func (a *App) commitCmd(session tracking.Session) tea.Cmd {
	return func() tea.Msg {
		next, _, err := session.Commit(context.Background(), a.client)
		return commitDoneMsg{session: next, err: err}
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return a.loadCmd()
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case loadedMsg:
		a.loading = false
		if msg.err != nil {
			a.errText = msg.err.Error()
			return a, nil
		}
		a.deal = msg.deal
		a.product = msg.resolved.ProductName
		if msg.resolved.NeedsProduct {
			a.message = "No product matched this deal. Pick a product before tracking modules."
		}
		dealModel := &models.Deal{ID: a.dealID}
		a.session = tracking.Open(dealModel, msg.resolved.Modules, a.role)
		a.haveSession = true
		a.selectedIdx = 0
		return a, nil

	case commitDoneMsg:
		a.committing = false
		a.session = msg.session
		if msg.err != nil {
			// Buffer is intact and still dirty; the user can retry.
			a.errText = fmt.Sprintf("Commit failed: %v", msg.err)
			return a, nil
		}
		a.errText = ""
		a.message = "Changes saved."
		return a, nil

	case spinner.TickMsg:
		if !a.committing {
			return a, nil
		}
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		return a.handleKey(msg)
	}
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.committing {
		return a, nil
	}

	switch msg.String() {
	case "q", "esc", "ctrl+c":
		// Discarding the session leaves the store untouched.
		return a, tea.Quit

	case "up", "k":
		if a.selectedIdx > 0 {
			a.selectedIdx--
		}
	case "down", "j":
		if a.selectedIdx < len(a.session.Modules())-1 {
			a.selectedIdx++
		}

	case " ", "enter":
		a.cycleInternal()
	case "p":
		a.setClient(models.StatusCompleted)
	case "u":
		a.setClient(models.StatusPending)

	case "c":
		// Commit is only invocable on a dirty session.
		if a.haveSession && a.session.Dirty() {
			a.committing = true
			a.message = ""
			return a, tea.Batch(a.commitCmd(a.session), a.spin.Tick)
		}
	}
	return a, nil
}

// cycleInternal advances the selected module's internal status one step,
// wrapping completed back to pending. Offered only when the policy allows
// the edit; a refused SetField is a no-op anyway.
func (a *App) cycleInternal() {
	modules := a.session.Modules()
	if a.selectedIdx >= len(modules) {
		return
	}
	m := modules[a.selectedIdx]
	if !tracking.CanMutate(a.role, models.FieldInternal, m) {
		a.message = "Internal status is read-only for your role."
		return
	}

	var next models.ModuleStatus
	switch m.InternalStatus {
	case models.StatusPending:
		next = models.StatusInProgress
	case models.StatusInProgress:
		next = models.StatusCompleted
	default:
		next = models.StatusPending
	}
	a.session = a.session.SetField(m.Name, models.FieldInternal, next)
	a.message = ""
}

func (a *App) setClient(value models.ModuleStatus) {
	modules := a.session.Modules()
	if a.selectedIdx >= len(modules) {
		return
	}
	m := modules[a.selectedIdx]
	if !tracking.CanPublish(a.role, m) {
		a.message = "Finish internal work first."
		return
	}
	a.session = a.session.SetField(m.Name, models.FieldClient, value)
	a.message = ""
}

// View implements tea.Model.
func (a *App) View() string {
	if a.loading {
		return titleStyle.Render("Modtrack") + "\n\n  Loading deal..."
	}

	var b strings.Builder

	header := "Modtrack"
	if a.deal != nil {
		header = fmt.Sprintf("Modtrack — %s [%s]", a.deal.Title, a.deal.Stage)
	}
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n")
	if a.product != "" {
		b.WriteString(helpStyle.Render("  product: " + a.product))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	modules := []models.ModuleInstance{}
	if a.haveSession {
		modules = a.session.Modules()
	}
	if len(modules) == 0 {
		b.WriteString(moduleItemStyle.Render("No modules to track."))
		b.WriteString("\n")
	}
	for i, m := range modules {
		line := fmt.Sprintf("%-24s internal:%-12s client:%-12s",
			m.Name, m.InternalStatus, m.ClientStatus)
		switch {
		case i == a.selectedIdx:
			b.WriteString(selectedStyle.Render(line))
		case m.InternalStatus == models.StatusCompleted && m.ClientStatus == models.StatusCompleted:
			b.WriteString(doneStyle.Copy().Padding(0, 2).Render(line))
		default:
			b.WriteString(moduleItemStyle.Render(line))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch {
	case a.committing:
		b.WriteString("  " + a.spin.View() + dirtyStyle.Render("Saving..."))
	case a.errText != "":
		b.WriteString(errorStyle.Render("  " + a.errText))
	case a.haveSession && a.session.Dirty():
		b.WriteString(dirtyStyle.Render("  Unsaved changes — press c to commit"))
	case a.message != "":
		b.WriteString(helpStyle.Render("  " + a.message))
	}
	b.WriteString("\n\n")

	help := "↑/↓ select · space cycle internal · p publish · u unpublish · c commit · q quit"
	if a.role == models.RoleAdmin {
		help = "↑/↓ select · p publish · u unpublish · c commit · q quit"
	}
	b.WriteString(helpStyle.Render("  " + help))
	return b.String()
}
