package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/deepresearchpod/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/deepresearchpod/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/deepresearchpod/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/deepresearchpod/internal/core/domain"
)

// DefaultPollInterval is how often the watcher reads the task.
const DefaultPollInterval = time.Second

// Watcher is a Bubbletea model that follows one task until it finishes.
// It quits on its own once the task reaches a terminal status.
type Watcher struct {
	ports    *Ports
	ctx      context.Context
	taskID   string
	interval time.Duration
	now      func() time.Time

	styles  *styles.Styles
	keymap  *keymap.KeyMap
	spinner spinner.Model

	started  time.Time
	task     *domain.Task
	err      error
	showHelp bool
	stopped  bool
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithPollInterval sets how often the task is read.
func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithContext sets the context used for task reads.
func WithContext(ctx context.Context) WatcherOption {
	return func(w *Watcher) {
		if ctx != nil {
			w.ctx = ctx
		}
	}
}

// NewWatcher creates a watcher for taskID.
func NewWatcher(ports *Ports, taskID string, opts ...WatcherOption) (*Watcher, error) {
	if err := ports.Validate(); err != nil {
		return nil, err
	}
	if taskID == "" {
		return nil, ErrMissingTaskID
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	w := &Watcher{
		ports:    ports,
		ctx:      context.Background(),
		taskID:   taskID,
		interval: DefaultPollInterval,
		now:      time.Now,
		styles:   styles.DefaultStyles(),
		keymap:   keymap.DefaultKeyMap(),
		spinner:  sp,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.spinner.Style = w.styles.Spinner
	w.started = w.now()
	return w, nil
}

// Init starts the spinner and the first poll.
func (w *Watcher) Init() tea.Cmd {
	return tea.Batch(w.spinner.Tick, w.poll())
}

// Update handles key presses, spinner ticks and poll results.
func (w *Watcher) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, w.keymap.Quit):
			w.stopped = true
			return w, tea.Quit
		case key.Matches(msg, w.keymap.Help):
			w.showHelp = !w.showHelp
		}
		return w, nil

	case messages.PollRequested:
		return w, w.poll()

	case messages.TaskPolled:
		w.err = msg.Err
		if msg.Task != nil {
			w.task = msg.Task
		}
		if msg.Terminal() {
			return w, tea.Quit
		}
		return w, tea.Tick(w.interval, func(time.Time) tea.Msg {
			return messages.PollRequested{}
		})

	case spinner.TickMsg:
		var cmd tea.Cmd
		w.spinner, cmd = w.spinner.Update(msg)
		return w, cmd
	}
	return w, nil
}

// View renders the task header, its status line and the outcome once known.
func (w *Watcher) View() string {
	var b strings.Builder

	b.WriteString(w.styles.Title.Render("Research task " + w.taskID))
	if w.task != nil && w.task.TopicID != "" {
		b.WriteString(w.styles.Muted.Render("  topic: " + w.task.TopicID))
	}
	b.WriteString("\n\n")

	status := domain.TaskQueued
	if w.task != nil {
		status = w.task.Status
	}
	elapsed := w.now().Sub(w.started).Round(time.Second)

	if status.IsTerminal() {
		b.WriteString(w.styles.Status(status).Render(string(status)))
	} else {
		b.WriteString(w.spinner.View())
		b.WriteString(" ")
		b.WriteString(w.styles.Status(status).Render(string(status)))
	}
	b.WriteString(w.styles.Muted.Render(fmt.Sprintf("  %s", elapsed)))
	b.WriteString("\n")

	switch {
	case w.task != nil && w.task.Status == domain.TaskError:
		b.WriteString("\n" + w.styles.Error.Render(w.task.Error) + "\n")
	case w.task != nil && w.task.Status == domain.TaskComplete && w.task.Result != nil:
		b.WriteString(w.styles.Muted.Render(fmt.Sprintf("\n%d sources\n", len(w.task.Result.Sources))))
	case w.err != nil:
		b.WriteString("\n" + w.styles.Warning.Render("cannot read task: "+w.err.Error()) + "\n")
	}

	if !status.IsTerminal() {
		b.WriteString("\n" + w.renderHelp() + "\n")
	}
	return b.String()
}

func (w *Watcher) renderHelp() string {
	bindings := w.keymap.ShortHelp()
	hints := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		h := binding.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	line := strings.Join(hints, " | ")
	if w.showHelp {
		line += "\nLook the task up later with 'status " + w.taskID + "'."
	}
	return w.styles.Help.Render(line)
}

func (w *Watcher) poll() tea.Cmd {
	research, ctx, taskID := w.ports.Research, w.ctx, w.taskID
	return func() tea.Msg {
		task, err := research.Task(ctx, taskID)
		return messages.TaskPolled{Task: task, Err: err}
	}
}

// Task returns the last observed task state.
func (w *Watcher) Task() *domain.Task {
	return w.task
}

// Stopped reports whether the user quit before the task finished.
func (w *Watcher) Stopped() bool {
	return w.stopped
}

// Err returns the last task read error.
func (w *Watcher) Err() error {
	return w.err
}
