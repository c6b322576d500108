package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	rapportmcp "github.com/rapportlabs/rapport/internal/mcp"
)

func mcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP (Model Context Protocol) server over stdio",
		Long: `Starts an MCP JSON-RPC 2.0 server that reads from stdin and writes to stdout.
All diagnostic logs go to stderr so that stdout remains exclusively MCP protocol traffic.

Tools exposed:
  log_meeting      record meeting notes and merge them into a contact's profile
  get_profile      render a contact's full profile as markdown
  search_contacts  find contacts by name, company, or position
  stats            store statistics

If the store is unavailable at startup the server still starts; individual
tool calls will return MCP error responses on failure.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger()

			var srv *rapportmcp.Server
			st, storeErr := newStore(logger)
			if storeErr != nil {
				// Continue with nil dependencies so tool calls return
				// per-call errors rather than crashing at startup.
				logger.Error("mcp: failed to open store; tool calls requiring storage will fail",
					"error", storeErr)
				srv = rapportmcp.NewServer(nil, nil, cfg.API.Owner, logger)
			} else {
				srv = rapportmcp.NewServer(st, newPipeline(st, logger), cfg.API.Owner, logger)
			}

			// Use a standard log.Logger pointing at stderr for the mcp-go error logger.
			errLogger := log.New(os.Stderr, "mcp: ", log.LstdFlags)

			logger.Info("mcp: rapport MCP server starting", "transport", "stdio")

			return mcpserver.ServeStdio(
				srv.MCPServer(),
				mcpserver.WithErrorLogger(errLogger),
			)
		},
	}

	return cmd
}
