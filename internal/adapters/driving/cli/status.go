package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/deepresearchpod/internal/core/domain"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status [task-id]",
	Short: "Show the status of a research task",
	Long: `Shows a task's status (queued, running, complete or error), its error
message when it failed and its result once complete.`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output the task as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	taskID := args[0]

	app, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.drain(cmd.Context())

	task, err := app.Research.Task(cmd.Context(), taskID)
	if err != nil {
		return fmt.Errorf("reading task: %w", err)
	}
	if task == nil {
		return fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
	}

	if statusJSON {
		return outputJSON(cmd, task)
	}
	printTask(cmd, task)
	return nil
}
