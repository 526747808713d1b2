package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/deepresearchpod/internal/core/domain"
)

var resultJSON bool

var resultCmd = &cobra.Command{
	Use:   "result [topic-id]",
	Short: "Show the latest research for a topic",
	Args:  cobra.ExactArgs(1),
	RunE:  runResult,
}

func init() {
	resultCmd.Flags().BoolVar(&resultJSON, "json", false, "output the research as JSON")
	rootCmd.AddCommand(resultCmd)
}

func runResult(cmd *cobra.Command, args []string) error {
	topicID := args[0]

	app, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.drain(cmd.Context())

	record, err := app.Research.Result(cmd.Context(), topicID)
	if err != nil {
		return fmt.Errorf("reading research: %w", err)
	}
	if record == nil {
		return fmt.Errorf("no research for topic %s: %w", topicID, domain.ErrNotFound)
	}

	if resultJSON {
		return outputJSON(cmd, record)
	}
	cmd.Printf("Topic:     %s\n", record.TopicID)
	cmd.Printf("Generated: %s\n\n", record.GeneratedAt.Format(time.RFC3339))
	printResult(cmd, domain.ResearchResult{Summary: record.Summary, Sources: record.Sources})
	return nil
}
