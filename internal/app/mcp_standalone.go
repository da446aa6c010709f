package app

import (
	"context"

	"github.com/rs/zerolog"

	mcpserver "dsjson/internal/mcp"
	"dsjson/internal/secret"
)

// ServeMCP runs dsjson as a standalone MCP server on stdin/stdout until the
// client disconnects. Logs must go to stderr; stdout carries the protocol.
func ServeMCP(ctx context.Context, version string, secrets secret.SecretStore) error {
	a := New(secrets)
	logger := zerolog.Ctx(ctx)
	srv := mcpserver.New(mcpserver.Deps{Datasets: a.Datasets, Version: version, Logger: logger})

	logger.Info().Msg("mcp: starting standalone stdio server")
	err := srv.ServeStdio(ctx)
	a.Datasets.WaitRunning(context.Background())
	return err
}
