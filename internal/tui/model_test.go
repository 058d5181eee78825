package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visa-checker/internal/app"
	"visa-checker/internal/domain"
	"visa-checker/internal/infra/memory"
	"visa-checker/internal/present"
)

func newModel(t *testing.T) Model {
	t.Helper()
	catalog := domain.MustCatalog(domain.CatalogDefinition{
		ID: "visa",
		Questions: []domain.Question{
			{ID: "age", Text: "Are you 18 or older?", Expected: true},
			{ID: "record", Text: "Do you have a criminal record?", Hint: "Traffic fines do not count.", Expected: false},
		},
	})
	service := app.NewWizardService(
		memory.NewSessionStore(),
		memory.NewCatalogRepository(memory.NewStaticCatalogLoader(catalog), time.Minute),
		present.New(present.Copy{CTAURL: "https://example.com/book"}, present.Copy{}),
		app.WithAdvanceDelay(0),
	)
	ctx := context.Background()
	initial, err := service.Start(ctx, "visa")
	require.NoError(t, err)
	return NewModel(ctx, service, initial, nil, Options{NoColor: true})
}

func press(t *testing.T, m Model, key string) Model {
	t.Helper()
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)})
	return next.(Model)
}

func TestModelWalksToResult(t *testing.T) {
	m := newModel(t)
	assert.Contains(t, m.View(), "question 1 of 2")
	assert.Contains(t, m.View(), "Are you 18 or older?")

	m = press(t, m, "y")
	assert.Equal(t, 1, m.Snapshot().StepIndex)
	assert.Contains(t, m.View(), "Traffic fines do not count.")

	m = press(t, m, "n")
	require.True(t, m.Snapshot().Finished)
	require.NotNil(t, m.Outcome())
	assert.Equal(t, domain.VerdictQualified, m.Outcome().Verdict)
	assert.Contains(t, m.View(), "https://example.com/book")
}

func TestModelBackShowsPreviousSelection(t *testing.T) {
	m := newModel(t)
	m = press(t, m, "y")
	m = press(t, m, "b")
	assert.Equal(t, 0, m.Snapshot().StepIndex)
	assert.Contains(t, m.View(), "> [y] Yes")

	m = press(t, m, "y")
	m = press(t, m, "y")
	require.NotNil(t, m.Outcome())
	assert.Equal(t, domain.VerdictNeedsReview, m.Outcome().Verdict)
	assert.Contains(t, m.View(), "record")

	m = press(t, m, "b")
	assert.Nil(t, m.Outcome())
	m = press(t, m, "r")
	assert.Equal(t, 0, m.Snapshot().StepIndex)
	assert.Zero(t, m.Snapshot().Answered)
}

func TestModelIgnoresStaleSnapshots(t *testing.T) {
	m := newModel(t)
	m = press(t, m, "y")
	stale := m.Snapshot()
	stale.Revision = 0
	stale.StepIndex = 0
	next, _ := m.Update(SnapshotMsg{Snapshot: stale})
	assert.Equal(t, 1, next.(Model).Snapshot().StepIndex)
}

func TestModelQuits(t *testing.T) {
	m := newModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
