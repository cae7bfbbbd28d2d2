package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xvierd/focusos/internal/adapters/mcp"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol (MCP) server for integration with AI assistants.
The server exposes the session engine, daily statistics and habits as tools.
A session still running when the server stops is ended and saved.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// stdout carries the protocol; status goes to stderr.
		errOut := cmd.ErrOrStderr()
		fmt.Fprintln(errOut, "Starting MCP server on stdio. Press Ctrl+C to stop.")

		ctx, cancel := setupSignalHandler()
		defer cancel()

		server := mcp.NewServer(app.state, app.logger)
		err := server.Start(ctx)

		if ended, ok := app.engine.End(); ok {
			app.logger.Info("ended active session on shutdown", "session_id", ended.ID)
		}
		if err != nil {
			return fmt.Errorf("MCP server error: %w", err)
		}
		return nil
	},
}
