package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahulmurugan/fact-check/internal/domain"
)

type stubMatcher struct {
	matches []domain.Match
	err     error
	claims  []string
	topK    int
}

func (s *stubMatcher) Match(_ context.Context, claim string, topK int) ([]domain.Match, error) {
	s.claims = append(s.claims, claim)
	s.topK = topK
	return s.matches, s.err
}

func sized(t *testing.T, m Model) Model {
	t.Helper()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(Model)
}

func submit(t *testing.T, m Model, claim string) Model {
	t.Helper()
	m.input.SetValue(claim)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.True(t, m.busy)
	next, _ = m.Update(cmd())
	return next.(Model)
}

func TestModel_ViewBeforeResize(t *testing.T) {
	m := New(&stubMatcher{}, 3, "3 chunks")
	assert.Equal(t, "Loading...", m.View())
}

func TestModel_MatchAndNavigate(t *testing.T) {
	stub := &stubMatcher{matches: []domain.Match{
		{DocumentName: "doc_a", MatchingText: "Treatment X helped. Nothing else.", Score: 0.9},
		{DocumentName: "doc_b", MatchingText: "Unrelated text.", Score: 0.1},
	}}
	m := sized(t, New(stub, 3, "2 documents"))
	m = submit(t, m, "does treatment X help")

	assert.Equal(t, []string{"does treatment X help"}, stub.claims)
	assert.Equal(t, 3, stub.topK)
	assert.False(t, m.busy)
	assert.Len(t, m.results, 2)
	assert.Contains(t, m.status, "2 match(es)")
	assert.Contains(t, m.View(), "doc_a")

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	assert.Equal(t, 1, m.cursor)
	assert.Contains(t, m.renderCurrentResult(), "Match 2/2  doc_b")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	assert.Equal(t, 0, m.cursor)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = next.(Model)
	assert.Equal(t, 1, m.cursor)
}

func TestModel_MatchError(t *testing.T) {
	m := sized(t, New(&stubMatcher{err: errors.New("boom")}, 3, ""))
	m = submit(t, m, "claim")
	assert.Equal(t, "Error: boom", m.status)
	assert.Empty(t, m.results)
	assert.Equal(t, "No results yet.", m.renderCurrentResult())
}

func TestModel_EmptyInputDoesNothing(t *testing.T) {
	stub := &stubMatcher{}
	m := sized(t, New(stub, 3, ""))
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, next.(Model).busy)
	assert.Empty(t, stub.claims)
}

func TestModel_Quit(t *testing.T) {
	m := New(&stubMatcher{}, 3, "")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestHighlightBestSentence(t *testing.T) {
	text := "Alpha beta. Treatment X helped patients. Gamma."
	out := highlightBestSentence(text, "treatment helped")
	assert.Contains(t, out, "Alpha beta.")
	assert.Contains(t, out, "Gamma.")
	assert.Contains(t, out, "Treatment X helped patients.")

	assert.Equal(t, "Alpha beta. Gamma.", highlightBestSentence("Alpha beta. Gamma.", "zzz"))
	assert.Equal(t, "", highlightBestSentence("", "zzz"))
}
