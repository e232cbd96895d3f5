package cmd

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/fmogensen/agentswarm-tools-sub000/internal/app"
	"github.com/fmogensen/agentswarm-tools-sub000/internal/mcpserver"
)

const serverVersion = "0.3.0"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose the tool catalog over MCP on stdio",
	Long: `Starts a Model Context Protocol server on stdin/stdout. Clients
discover the registered tools and invoke them through the shared pipeline;
every invocation is validated, cached, rate limited, and recorded.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		a, err := app.New(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close(ctx) }()

		server, err := mcpserver.NewServer(mcpserver.Config{
			Name:    "agentswarm",
			Version: serverVersion,
		}, a.Registry, a.Executor, a.Logger)
		if err != nil {
			return err
		}

		a.Logger.Info("MCP server starting",
			"tools", a.Registry.Count(),
			"mock_mode", a.Config.MockMode,
		)
		return server.Run(ctx, &mcp.StdioTransport{})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
