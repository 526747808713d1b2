package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/deepresearchpod/internal/adapters/driving/tui"
	"github.com/custodia-labs/deepresearchpod/internal/core/domain"
	"github.com/custodia-labs/deepresearchpod/internal/core/ports/driving"
	"github.com/custodia-labs/deepresearchpod/internal/logger"
)

var (
	refreshQuery string
	refreshWait  bool
	refreshJSON  bool
)

// refreshPollInterval is how often --wait reads the task.
var refreshPollInterval = time.Second

// stdoutIsTerminal reports whether the live watcher can be drawn.
var stdoutIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

var refreshCmd = &cobra.Command{
	Use:   "refresh [topic-id]",
	Short: "Refresh the research for a topic",
	Long: `Starts a deep research job for a topic and waits for it to finish.
The query defaults to the topic id.

The job runs inside this process, so the command returns once the task
reaches complete or error. With --wait the task is followed live and the
summary and sources are printed when it completes.

Examples:
  deepresearchpod refresh climate --query "latest climate policy news"
  deepresearchpod refresh climate --wait`,
	Args: cobra.ExactArgs(1),
	RunE: runRefresh,
}

func init() {
	refreshCmd.Flags().StringVarP(&refreshQuery, "query", "q", "", "research query (default: the topic id)")
	refreshCmd.Flags().BoolVarP(&refreshWait, "wait", "w", false, "follow the task and print its result")
	refreshCmd.Flags().BoolVar(&refreshJSON, "json", false, "output the finished task as JSON")
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, args []string) error {
	topicID := args[0]

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if app.Close != nil {
			if err := app.Close(context.Background()); err != nil {
				logger.Warn("closing storage: %v", err)
			}
		}
	}()

	taskID, err := app.Research.Refresh(ctx, topicID, refreshQuery)
	if err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}
	if !refreshJSON {
		cmd.Printf("Task %s queued for topic %s\n", taskID, topicID)
	}

	if refreshWait {
		if err := followTask(ctx, cmd, app.Research, taskID); err != nil {
			return err
		}
	}

	if app.Wait != nil {
		if err := app.Wait(ctx); err != nil {
			return fmt.Errorf("interrupted before task %s finished: %w", taskID, err)
		}
	}

	task, err := app.Research.Task(context.Background(), taskID)
	if err != nil {
		return fmt.Errorf("reading task: %w", err)
	}
	if task == nil {
		return fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
	}
	return reportTask(cmd, task)
}

// followTask shows progress until the task is terminal, the user stops
// watching or ctx is done.
func followTask(ctx context.Context, cmd *cobra.Command, research driving.ResearchService, taskID string) error {
	if refreshJSON || !stdoutIsTerminal() {
		return pollTask(ctx, cmd, research, taskID)
	}

	watcher, err := tui.NewWatcher(&tui.Ports{Research: research}, taskID,
		tui.WithContext(ctx), tui.WithPollInterval(refreshPollInterval))
	if err != nil {
		return err
	}
	p := tea.NewProgram(watcher, tea.WithContext(ctx), tea.WithOutput(cmd.OutOrStdout()))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("watcher error: %w", err)
	}
	if watcher.Stopped() {
		cmd.Println("Stopped watching; the task keeps running until it finishes (Ctrl+C to abort).")
	}
	return nil
}

// pollTask prints each status change. Used when stdout is not a terminal.
func pollTask(ctx context.Context, cmd *cobra.Command, research driving.ResearchService, taskID string) error {
	ticker := time.NewTicker(refreshPollInterval)
	defer ticker.Stop()

	var last domain.TaskStatus
	for {
		task, err := research.Task(ctx, taskID)
		switch {
		case err != nil:
			logger.Warn("reading task %s: %v", taskID, err)
		case task != nil && task.Status != last:
			last = task.Status
			if !refreshJSON {
				cmd.Printf("%s  %s\n", time.Now().Format(time.TimeOnly), last)
			}
		}
		if last.IsTerminal() {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func reportTask(cmd *cobra.Command, task *domain.Task) error {
	switch {
	case refreshJSON:
		if err := outputJSON(cmd, task); err != nil {
			return err
		}
	case refreshWait:
		cmd.Println()
		printTask(cmd, task)
	default:
		cmd.Printf("Task %s finished: %s\n", task.ID, task.Status)
	}

	if task.Status == domain.TaskError {
		return fmt.Errorf("research failed: %s", task.Error)
	}
	return nil
}
