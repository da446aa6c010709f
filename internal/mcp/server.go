package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"dsjson/internal/logger"
	"dsjson/internal/service"
)

// Server is the MCP server for dsjson.
// It exposes export, import, compare and describe as tools so agents can
// move datasets without shelling out to the CLI.
type Server struct {
	mcp      *server.MCPServer
	datasets *service.DatasetService
	version  string
	log      zerolog.Logger
}

// Deps holds the dependencies passed from the app layer to the MCP server.
type Deps struct {
	Datasets *service.DatasetService
	Version  string
	Logger   *zerolog.Logger // nil disables tool logging
}

// New creates and configures a new MCP server with all tools, resources
// and prompts. The server registers itself as the service's event sink.
func New(deps Deps) *Server {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := &Server{datasets: deps.Datasets, version: version, log: logger.Nop()}
	if deps.Logger != nil {
		s.log = *deps.Logger
	}

	s.mcp = server.NewMCPServer(
		"dsjson-mcp",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
		server.WithLogging(),
	)

	s.registerDatasetTools()
	s.registerResources()
	s.registerPrompts()

	deps.Datasets.SetEmitter(s)
	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio(ctx context.Context) error {
	zerolog.Ctx(ctx).Info().Str("version", s.version).Msg("mcp: starting stdio server")
	return server.ServeStdio(s.mcp, server.WithStdioContextFunc(func(ctx context.Context) context.Context {
		return s.log.WithContext(ctx)
	}))
}

// runContext gives a tool call its own run ID and op field. The server
// logger is used unless ctx already carries an enabled one.
func (s *Server) runContext(ctx context.Context, op string) context.Context {
	l := *zerolog.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		l = s.log
	}
	ctx, _ = logger.WithRun(ctx, l, op)
	return ctx
}

// Emit forwards a run event to connected clients as a log notification.
func (s *Server) Emit(ctx context.Context, event string, data any) {
	zerolog.Ctx(ctx).Debug().Str("event", event).Msg("mcp: notify clients")
	s.mcp.SendNotificationToAllClients("notifications/message", map[string]any{
		"level":  "info",
		"logger": "dsjson",
		"data":   map[string]any{"event": event, "payload": data},
	})
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

// requireStrings reads the named string arguments and fails on the first
// one that is missing or empty.
func requireStrings(args map[string]any, names ...string) (map[string]string, error) {
	out := make(map[string]string, len(names))
	for _, n := range names {
		v, _ := args[n].(string)
		if v == "" {
			return nil, fmt.Errorf("%s is required", n)
		}
		out[n] = v
	}
	return out, nil
}

func optString(args map[string]any, name string) string {
	v, _ := args[name].(string)
	return v
}
