package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/deepresearchpod/internal/core/domain"
)

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func printTask(cmd *cobra.Command, task *domain.Task) {
	cmd.Printf("Task:    %s\n", task.ID)
	cmd.Printf("Topic:   %s\n", task.TopicID)
	cmd.Printf("Status:  %s\n", task.Status)
	cmd.Printf("Updated: %s\n", task.UpdatedAt.Format(time.RFC3339))
	if task.Error != "" {
		cmd.Printf("Error:   %s\n", task.Error)
	}
	if task.Result != nil {
		cmd.Println()
		printResult(cmd, *task.Result)
	}
}

func printResult(cmd *cobra.Command, result domain.ResearchResult) {
	cmd.Println(result.Summary)
	if len(result.Sources) == 0 {
		return
	}
	cmd.Println()
	cmd.Println("Sources:")
	for i, src := range result.Sources {
		title := src.Title
		if title == "" {
			title = src.URL
		}
		cmd.Printf("  [%d] %s\n", i+1, title)
		if src.URL != title {
			cmd.Printf("      %s\n", src.URL)
		}
	}
}
