package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/deepresearchpod/internal/logger"
)

// shutdownTimeout bounds how long in-flight drivers may run after a signal.
var shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the research HTTP API",
	Long: `Serve the research HTTP API and, when server.mcp_addr is set, the MCP
tools over streamable HTTP.

Endpoints:
  POST /research/refresh        start a refresh, returns a task id
  GET  /research/tasks/:task_id task status and outcome
  GET  /research/:topic_id      latest research for a topic
  GET  /health                  liveness
  GET  /metrics                 Prometheus metrics

Changes to the config file are applied to new polls without a restart.
On SIGINT or SIGTERM the servers stop accepting requests and running
tasks are given time to finish.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveAddr string

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := loadApp(ctx)
	if err != nil {
		return err
	}
	if app.HTTP == nil {
		return errors.New("http server not configured")
	}

	addr := app.Config.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.HTTP.Run(gctx, addr)
	})
	if mcpAddr := app.Config.Server.MCPAddr; mcpAddr != "" && app.MCP != nil {
		g.Go(func() error {
			return app.MCP.RunHTTP(gctx, mcpAddr)
		})
	}
	if app.Watch != nil {
		g.Go(func() error {
			return app.Watch(gctx)
		})
	}

	err = g.Wait()
	stop()
	logger.Info("shutting down, waiting for running tasks")

	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	app.drain(drainCtx)
	return err
}
