package cli

import (
	"github.com/spf13/cobra"

	"dsjson/internal/app"
)

func mcpCommand(root *rootCommand) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve export, import, compare and describe as MCP tools on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := root.runContext("mcp")
			defer cancel()
			return app.ServeMCP(ctx, root.version, root.secrets)
		},
	}
}
