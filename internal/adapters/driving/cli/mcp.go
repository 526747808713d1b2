package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var mcpHTTPAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server exposing the research tools
research_refresh, research_status and research_result.

By default the server communicates over stdio and can be launched by any
MCP-compatible assistant. Use --http to serve streamable HTTP instead.

Examples:
  # Stdio mode
  deepresearchpod mcp

  # HTTP mode
  deepresearchpod mcp --http :8081

Assistant configuration:
  {
    "mcpServers": {
      "deepresearchpod": {
        "command": "/path/to/deepresearchpod",
        "args": ["mcp"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpHTTPAddr, "http", "", "serve streamable HTTP on this address instead of stdio")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := loadApp(ctx)
	if err != nil {
		return err
	}
	if app.MCP == nil {
		return errors.New("mcp server not configured")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer stop()
		if mcpHTTPAddr != "" {
			cmd.PrintErrf("MCP server listening on http://%s\n", mcpHTTPAddr)
			return app.MCP.RunHTTP(gctx, mcpHTTPAddr)
		}
		return app.MCP.Run(gctx)
	})
	if app.Watch != nil {
		g.Go(func() error {
			return app.Watch(gctx)
		})
	}

	err = g.Wait()

	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	app.drain(drainCtx)
	return err
}
