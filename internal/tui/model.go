// Package tui runs the questionnaire in a terminal using Bubble Tea.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"visa-checker/internal/app"
	"visa-checker/internal/domain"
)

// Options configures the terminal model.
type Options struct {
	NoColor bool
	Width   int
}

// Model renders one session and forwards keys to the service.
type Model struct {
	ctx       context.Context
	service   *app.WizardService
	sessionID string
	updates   <-chan domain.Snapshot

	snap    domain.Snapshot
	outcome *app.Outcome
	err     error
	bar     progress.Model
	noColor bool
}

// NewModel builds a model for a session that has already been started.
func NewModel(ctx context.Context, service *app.WizardService, initial domain.Snapshot, updates <-chan domain.Snapshot, opts Options) Model {
	width := opts.Width
	if width <= 0 {
		width = 40
	}
	bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(width))
	if opts.NoColor {
		bar = progress.New(progress.WithSolidFill("#ffffff"), progress.WithWidth(width), progress.WithoutPercentage())
	}
	m := Model{
		ctx:       ctx,
		service:   service,
		sessionID: initial.SessionID,
		updates:   updates,
		bar:       bar,
		noColor:   opts.NoColor,
	}
	return m.apply(initial)
}

// SnapshotMsg carries a state change from the session subscription.
type SnapshotMsg struct {
	Snapshot domain.Snapshot
}

// Init waits for the first update.
func (m Model) Init() tea.Cmd {
	return waitForSnapshot(m.updates)
}

// Update handles keys and session updates.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.bar.Width = max(min(typed.Width-4, 60), 10)
		return m, nil
	case SnapshotMsg:
		m = m.apply(typed.Snapshot)
		return m, waitForSnapshot(m.updates)
	case tea.KeyMsg:
		return m.handleKey(typed.String())
	}
	return m, nil
}

func (m Model) handleKey(key string) (tea.Model, tea.Cmd) {
	var (
		snap domain.Snapshot
		err  error
	)
	switch key {
	case "y", "Y":
		snap, err = m.service.Answer(m.ctx, m.sessionID, true)
	case "n", "N":
		snap, err = m.service.Answer(m.ctx, m.sessionID, false)
	case "b", "left", "backspace":
		snap, err = m.service.Back(m.ctx, m.sessionID)
	case "r":
		snap, err = m.service.Reset(m.ctx, m.sessionID)
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	default:
		return m, nil
	}
	if err != nil {
		m.err = err
		return m, nil
	}
	m.err = nil
	return m.apply(snap), nil
}

// apply keeps the newest snapshot and loads the outcome once finished.
func (m Model) apply(snap domain.Snapshot) Model {
	if snap.Revision < m.snap.Revision {
		return m
	}
	m.snap = snap
	if !snap.Finished {
		m.outcome = nil
		return m
	}
	if m.outcome == nil {
		outcome, err := m.service.Result(m.ctx, m.sessionID)
		if err != nil {
			m.err = err
			return m
		}
		m.outcome = &outcome
	}
	return m
}

// Snapshot returns the state the model is currently showing.
func (m Model) Snapshot() domain.Snapshot { return m.snap }

// Outcome is set once the questionnaire is finished.
func (m Model) Outcome() *app.Outcome { return m.outcome }

// View renders the current question or the result.
func (m Model) View() string {
	parts := []string{m.style(m.header(), lipgloss.Color("33"), true), m.bar.ViewAs(m.snap.Progress), ""}
	if m.snap.Finished && m.outcome != nil {
		parts = append(parts, m.resultView()...)
	} else if m.snap.Question != nil {
		parts = append(parts, m.questionView()...)
	}
	if m.err != nil {
		parts = append(parts, "", m.style("error: "+m.err.Error(), lipgloss.Color("160"), false))
	}
	parts = append(parts, "", m.style(m.footer(), lipgloss.Color("244"), false))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) header() string {
	if m.snap.Finished {
		return fmt.Sprintf("%s | done", m.snap.CatalogID)
	}
	return fmt.Sprintf("%s | question %d of %d", m.snap.CatalogID, m.snap.StepIndex+1, m.snap.Total)
}

func (m Model) questionView() []string {
	q := m.snap.Question
	lines := []string{q.Text}
	if q.Hint != "" {
		lines = append(lines, m.style(q.Hint, lipgloss.Color("242"), false))
	}
	lines = append(lines, "", m.choices(m.snap.AnswerFor(q.ID)))
	return lines
}

// choices highlights the answer already recorded for the question, which is
// what the user sees while an advance is pending.
func (m Model) choices(selected domain.Answer) string {
	yes, no := "[y] Yes", "[n] No"
	switch selected {
	case domain.Yes:
		yes = m.style("> "+yes, lipgloss.Color("42"), true)
	case domain.No:
		no = m.style("> "+no, lipgloss.Color("42"), true)
	}
	return yes + "    " + no
}

func (m Model) resultView() []string {
	color := lipgloss.Color("42")
	if m.outcome.Verdict != domain.VerdictQualified {
		color = lipgloss.Color("214")
	}
	lines := []string{m.style(m.outcome.Title, color, true), m.outcome.Body}
	if len(m.outcome.Unmet) > 0 {
		lines = append(lines, "", "Worth discussing: "+strings.Join(m.outcome.Unmet, ", "))
	}
	if m.outcome.CTAURL != "" {
		lines = append(lines, "", m.outcome.CTALabel+": "+m.outcome.CTAURL)
	}
	return lines
}

func (m Model) footer() string {
	if m.snap.Finished {
		return "b back | r start over | q quit"
	}
	return "y yes | n no | b back | r start over | q quit"
}

func (m Model) style(text string, color lipgloss.Color, bold bool) string {
	if m.noColor {
		return text
	}
	return lipgloss.NewStyle().Foreground(color).Bold(bold).Render(text)
}

// waitForSnapshot blocks until the session publishes a change.
func waitForSnapshot(updates <-chan domain.Snapshot) tea.Cmd {
	return func() tea.Msg {
		if updates == nil {
			return nil
		}
		snap, ok := <-updates
		if !ok {
			return tea.Quit()
		}
		return SnapshotMsg{Snapshot: snap}
	}
}
