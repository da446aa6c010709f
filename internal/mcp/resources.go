package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

const libraryURIPrefix = "dsjson://library/"

func (s *Server) registerResources() {
	// ── dsjson://library/{location} ───────────────────
	// location is URL-escaped
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			libraryURIPrefix+"{location}",
			"Datasets in a Library",
		),
		s.handleLibraryResource,
	)
}

func (s *Server) handleLibraryResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	location, err := locationFromURI(uri)
	if err != nil {
		return nil, err
	}

	lib, err := s.datasets.OpenLibrary(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("open library: %w", err)
	}
	defer lib.Close()

	names, err := lib.ListDatasets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	if names == nil {
		names = []string{}
	}

	data, _ := json.MarshalIndent(map[string]any{"location": location, "datasets": names}, "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// locationFromURI extracts the library location from
// "dsjson://library/{escaped location}".
func locationFromURI(uri string) (string, error) {
	if !strings.HasPrefix(uri, libraryURIPrefix) {
		return "", fmt.Errorf("not a library URI: %s", uri)
	}
	location, err := url.PathUnescape(strings.TrimPrefix(uri, libraryURIPrefix))
	if err != nil || location == "" {
		return "", fmt.Errorf("could not extract library location from URI: %s", uri)
	}
	return location, nil
}
