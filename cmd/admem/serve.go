package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"admem/internal/mcp"
	"admem/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP stdio server",
	Long: `Starts the MCP server on stdin/stdout. This is the mode MCP clients
launch; all diagnostics go to stderr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		application, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer application.close()

		server := mcp.NewServer(version.Version, application.svc, application.logger)
		return server.Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
