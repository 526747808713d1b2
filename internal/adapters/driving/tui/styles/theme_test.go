package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/deepresearchpod/internal/core/domain"
)

func TestDefaultTheme_StatusColoursAreDistinct(t *testing.T) {
	theme := DefaultTheme()

	seen := make(map[lipgloss.Color]bool)
	for _, c := range []lipgloss.Color{theme.Queued, theme.Running, theme.Complete, theme.Failed} {
		require.NotEmpty(t, string(c))
		assert.False(t, seen[c], "duplicate status colour %s", c)
		seen[c] = true
	}
}

func TestNewStyles_NilThemeUsesDefault(t *testing.T) {
	styles := NewStyles(nil)

	require.NotNil(t, styles.Theme())
	assert.Equal(t, DefaultTheme(), styles.Theme())
}

func TestStyles_Status(t *testing.T) {
	styles := DefaultStyles()
	theme := styles.Theme()

	tests := []struct {
		status domain.TaskStatus
		colour lipgloss.Color
		bold   bool
	}{
		{domain.TaskQueued, theme.Queued, false},
		{domain.TaskRunning, theme.Running, false},
		{domain.TaskComplete, theme.Complete, true},
		{domain.TaskError, theme.Failed, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			style := styles.Status(tt.status)
			assert.Equal(t, tt.colour, style.GetForeground())
			assert.Equal(t, tt.bold, style.GetBold())
			assert.Contains(t, style.Render(string(tt.status)), string(tt.status))
		})
	}

	assert.Equal(t, theme.Muted, styles.Status("paused").GetForeground())
}

func TestStyles_HelpIsItalicMuted(t *testing.T) {
	styles := DefaultStyles()

	assert.True(t, styles.Help.GetItalic())
	assert.Equal(t, styles.Theme().Muted, styles.Help.GetForeground())
}
