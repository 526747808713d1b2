// Package styles provides the colour palette of the task watcher.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/deepresearchpod/internal/core/domain"
)

// Theme is the watcher palette. Each task status has its own colour.
type Theme struct {
	Accent lipgloss.Color
	Muted  lipgloss.Color
	Alert  lipgloss.Color

	Queued   lipgloss.Color
	Running  lipgloss.Color
	Complete lipgloss.Color
	Failed   lipgloss.Color
}

// DefaultTheme returns the default palette.
func DefaultTheme() *Theme {
	return &Theme{
		Accent:   lipgloss.Color("#7C3AED"),
		Muted:    lipgloss.Color("#6C7086"),
		Alert:    lipgloss.Color("#FAB387"),
		Queued:   lipgloss.Color("#F9E2AF"),
		Running:  lipgloss.Color("#06B6D4"),
		Complete: lipgloss.Color("#A6E3A1"),
		Failed:   lipgloss.Color("#F38BA8"),
	}
}

// Styles holds the lipgloss styles derived from a Theme.
type Styles struct {
	theme *Theme

	Title   lipgloss.Style
	Muted   lipgloss.Style
	Spinner lipgloss.Style
	Help    lipgloss.Style

	// Warning renders transient problems such as a failed task read.
	Warning lipgloss.Style

	// Error renders a failed task's message.
	Error lipgloss.Style

	status map[domain.TaskStatus]lipgloss.Style
}

// NewStyles creates styles from theme, falling back to DefaultTheme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	muted := lipgloss.NewStyle().Foreground(theme.Muted)
	return &Styles{
		theme:   theme,
		Title:   lipgloss.NewStyle().Bold(true).Foreground(theme.Accent),
		Muted:   muted,
		Spinner: lipgloss.NewStyle().Foreground(theme.Running),
		Help:    muted.Italic(true),
		Warning: lipgloss.NewStyle().Foreground(theme.Alert),
		Error:   lipgloss.NewStyle().Foreground(theme.Failed),
		status: map[domain.TaskStatus]lipgloss.Style{
			domain.TaskQueued:   lipgloss.NewStyle().Foreground(theme.Queued),
			domain.TaskRunning:  lipgloss.NewStyle().Foreground(theme.Running),
			domain.TaskComplete: lipgloss.NewStyle().Bold(true).Foreground(theme.Complete),
			domain.TaskError:    lipgloss.NewStyle().Bold(true).Foreground(theme.Failed),
		},
	}
}

// DefaultStyles returns styles with the default theme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Theme returns the theme used by these styles.
func (s *Styles) Theme() *Theme {
	return s.theme
}

// Status returns the style for a task status. Unknown statuses are muted.
func (s *Styles) Status(status domain.TaskStatus) lipgloss.Style {
	if style, ok := s.status[status]; ok {
		return style
	}
	return s.Muted
}
