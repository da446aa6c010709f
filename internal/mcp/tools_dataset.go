package mcpserver

import (
	"bytes"
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"dsjson/internal/compare"
	"dsjson/internal/service"
)

func (s *Server) registerDatasetTools() {
	s.mcp.AddTool(mcp.NewTool("export_dataset",
		mcp.WithDescription("Export one dataset from a library to a JSON document"),
		mcp.WithString("library", mcp.Description("Input library location (sqlite file, postgres://, mysql://, mongodb://, parquet directory)"), mcp.Required()),
		mcp.WithString("dataset", mcp.Description("Dataset name"), mcp.Required()),
		mcp.WithString("output", mcp.Description("Output document directory or s3://bucket/prefix"), mcp.Required()),
		mcp.WithString("document", mcp.Description("Document file name (default <dataset>.json)")),
	), s.handleExportDataset)

	s.mcp.AddTool(mcp.NewTool("import_dataset",
		mcp.WithDescription("Import a JSON document into a library as a dataset. Replaces a dataset of the same name."),
		mcp.WithString("input", mcp.Description("Input document directory or s3://bucket/prefix"), mcp.Required()),
		mcp.WithString("library", mcp.Description("Output library location"), mcp.Required()),
		mcp.WithString("dataset", mcp.Description("Dataset name to create"), mcp.Required()),
		mcp.WithString("document", mcp.Description("Document file name (default <dataset>.json)")),
		mcp.WithString("reference", mcp.Description("Library holding a reference dataset of the same name to compare against (optional)")),
	), s.handleImportDataset)

	s.mcp.AddTool(mcp.NewTool("compare_datasets",
		mcp.WithDescription("Compare two datasets exactly: attributes, column sets and every value"),
		mcp.WithString("base", mcp.Description("Base library location"), mcp.Required()),
		mcp.WithString("baseDataset", mcp.Description("Base dataset name"), mcp.Required()),
		mcp.WithString("compare", mcp.Description("Compare library location"), mcp.Required()),
		mcp.WithString("compareDataset", mcp.Description("Compare dataset name (default baseDataset)")),
		mcp.WithBoolean("text", mcp.Description("Return the plain text report instead of JSON")),
	), s.handleCompareDatasets)

	s.mcp.AddTool(mcp.NewTool("describe_document",
		mcp.WithDescription("Summarize a JSON document (label, columns, row count, warnings) without importing it"),
		mcp.WithString("input", mcp.Description("Document directory or s3://bucket/prefix"), mcp.Required()),
		mcp.WithString("document", mcp.Description("Document file name"), mcp.Required()),
	), s.handleDescribeDocument)
}

func (s *Server) handleExportDataset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx = s.runContext(ctx, "export_dataset")
	args := req.GetArguments()
	v, err := requireStrings(args, "library", "dataset", "output")
	if err != nil {
		return nil, err
	}
	res, err := s.datasets.Export(ctx, service.ExportInput{
		Library:  v["library"],
		Dataset:  v["dataset"],
		Output:   v["output"],
		Document: optString(args, "document"),
	})
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	return jsonResult(res)
}

func (s *Server) handleImportDataset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx = s.runContext(ctx, "import_dataset")
	args := req.GetArguments()
	v, err := requireStrings(args, "input", "library", "dataset")
	if err != nil {
		return nil, err
	}
	res, err := s.datasets.Import(ctx, service.ImportInput{
		Input:     v["input"],
		Document:  optString(args, "document"),
		Library:   v["library"],
		Dataset:   v["dataset"],
		Reference: optString(args, "reference"),
	})
	if err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}
	return jsonResult(res)
}

func (s *Server) handleCompareDatasets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx = s.runContext(ctx, "compare_datasets")
	args := req.GetArguments()
	v, err := requireStrings(args, "base", "baseDataset", "compare")
	if err != nil {
		return nil, err
	}
	report, err := s.datasets.Compare(ctx, service.CompareInput{
		Base:           v["base"],
		BaseDataset:    v["baseDataset"],
		Compare:        v["compare"],
		CompareDataset: optString(args, "compareDataset"),
	})
	if err != nil {
		return nil, fmt.Errorf("compare: %w", err)
	}
	if asText, _ := args["text"].(bool); asText {
		var buf bytes.Buffer
		if err := compare.WriteText(&buf, report); err != nil {
			return nil, err
		}
		return textResult(buf.String()), nil
	}
	return jsonResult(report)
}

func (s *Server) handleDescribeDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx = s.runContext(ctx, "describe_document")
	v, err := requireStrings(req.GetArguments(), "input", "document")
	if err != nil {
		return nil, err
	}
	sum, err := s.datasets.Describe(ctx, v["input"], v["document"])
	if err != nil {
		return nil, fmt.Errorf("describe: %w", err)
	}
	return jsonResult(sum)
}
