package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("migrate_dataset",
		mcp.WithPromptDescription("Move a dataset between libraries through a JSON document and verify the copy"),
		mcp.WithArgument("source",
			mcp.ArgumentDescription("Library holding the dataset"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("target",
			mcp.ArgumentDescription("Library to import into"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("dataset",
			mcp.ArgumentDescription("Dataset name"),
			mcp.RequiredArgument(),
		),
	), s.handleMigratePrompt)
}

func (s *Server) handleMigratePrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	source := req.Params.Arguments["source"]
	target := req.Params.Arguments["target"]
	dataset := req.Params.Arguments["dataset"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Migrate %s from %s to %s", dataset, source, target),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Migrate dataset "%s" from library %s to library %s. Follow these steps:

1. Use export_dataset with library=%s, dataset=%s and a scratch output directory
2. Use describe_document on the written document and check the column list and row count
3. Use import_dataset from that directory into library=%s with reference=%s
4. Report the comparison result. If there are differences, list them and do not retry blindly.`,
						dataset, source, target, source, dataset, target, source),
				},
			},
		},
	}, nil
}
