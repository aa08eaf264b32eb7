package main

import (
	"slack-summariser/tools"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(opts *rootOptions, logger func() *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the Slack tools over MCP on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, generator, bootstrapError := bootstrap(cmd.Context(), opts, logger())
			if bootstrapError != nil {
				return bootstrapError
			}
			handlers := tools.NewHandlers(registry, generator, logger())
			logger().Info("Serving MCP on stdio",
				zap.Int("workspaces", len(registry.Config().Workspaces())),
				zap.Bool("digest", generator != nil))
			return server.ServeStdio(tools.NewServer(handlers, version))
		},
	}
}
