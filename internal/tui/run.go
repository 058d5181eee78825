package tui

import (
	"context"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"visa-checker/internal/app"
)

// Run starts a session on catalogID and drives it interactively until the
// user quits. It returns the outcome if the questionnaire was finished.
func Run(ctx context.Context, service *app.WizardService, catalogID string, stdout io.Writer, opts Options) (*app.Outcome, error) {
	if stdout == nil {
		stdout = os.Stdout
	}
	initial, err := service.Start(ctx, catalogID)
	if err != nil {
		return nil, err
	}
	defer service.End(ctx, initial.SessionID)

	updates, cancel, err := service.Subscribe(ctx, initial.SessionID)
	if err != nil {
		return nil, err
	}
	defer cancel()

	model := NewModel(ctx, service, initial, updates, opts)
	program := tea.NewProgram(model, tea.WithOutput(stdout), tea.WithContext(ctx))
	final, err := program.Run()
	if err != nil {
		return nil, err
	}
	if m, ok := final.(Model); ok {
		return m.Outcome(), nil
	}
	return nil, nil
}
