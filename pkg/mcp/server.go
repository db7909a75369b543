package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/duynguyendang/pyscope/internal/manager"
	"github.com/duynguyendang/pyscope/pkg/analyzer"
	"github.com/duynguyendang/pyscope/pkg/search"
)

// MCPServer exposes the source store and analysis pipeline over MCP so that
// agent clients can inspect and edit stored sources via Stdio.
type MCPServer struct {
	manager     *manager.SourceManager
	defaultLang string
}

// Run starts the MCP server on Stdio.
func Run(ctx context.Context, mgr *manager.SourceManager, defaultLang string) error {
	s := server.NewMCPServer(
		"pyscope",
		"0.1.0",
		server.WithResourceCapabilities(true, true),
		server.WithLogging(),
	)

	ms := &MCPServer{manager: mgr, defaultLang: defaultLang}

	// --- Resources ---

	// Resource: File Content
	// Pattern: pyscope://files/{id}
	s.AddResource(
		mcp.NewResource(
			"pyscope://files/{id}",
			"File Content",
			mcp.WithResourceDescription("Current text of a stored source file"),
			mcp.WithMIMEType("text/plain"),
		),
		ms.handleFileContent,
	)

	// --- Tools ---

	s.AddTool(
		mcp.NewTool(
			"list_files",
			mcp.WithDescription("List the stored source files with their revision and line count."),
		),
		ms.handleListFiles,
	)

	s.AddTool(
		mcp.NewTool(
			"analyze_file",
			mcp.WithDescription("Extract the class/function structure and approximate call graph of a stored file."),
			mcp.WithString("id", mcp.Required(), mcp.Description("The file id")),
		),
		ms.handleAnalyzeFile,
	)

	s.AddTool(
		mcp.NewTool(
			"get_definition",
			mcp.WithDescription("Get one definition by its qualified id, including code and call edges."),
			mcp.WithString("id", mcp.Required(), mcp.Description("The file id")),
			mcp.WithString("def", mcp.Required(), mcp.Description("Qualified definition id, e.g. MyClass.method")),
		),
		ms.handleGetDefinition,
	)

	s.AddTool(
		mcp.NewTool(
			"search_definitions",
			mcp.WithDescription("Fuzzy-search definition ids in a stored file."),
			mcp.WithString("id", mcp.Required(), mcp.Description("The file id")),
			mcp.WithString("query", mcp.Required(), mcp.Description("The search query string")),
			mcp.WithNumber("limit", mcp.Description("Max number of results (default 10)")),
		),
		ms.handleSearchDefinitions,
	)

	s.AddTool(
		mcp.NewTool(
			"patch_source",
			mcp.WithDescription("Replace a 1-indexed inclusive line range of a stored file with new text."),
			mcp.WithString("id", mcp.Required(), mcp.Description("The file id")),
			mcp.WithNumber("start_line", mcp.Required(), mcp.Description("First line to replace (1-indexed)")),
			mcp.WithNumber("end_line", mcp.Required(), mcp.Description("Last line to replace (inclusive)")),
			mcp.WithString("replacement", mcp.Description("Replacement text; a trailing newline is appended when missing")),
			mcp.WithNumber("revision", mcp.Description("Expected revision; patch fails when the file changed since")),
		),
		ms.handlePatchSource,
	)

	slog.Info("Starting MCP server on Stdio")
	return server.ServeStdio(s)
}

// --- Resource Handlers ---

func (ms *MCPServer) handleFileContent(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uriStr := request.Params.URI
	prefix := "pyscope://files/"
	if !strings.HasPrefix(uriStr, prefix) {
		return nil, fmt.Errorf("invalid URI format")
	}
	id := strings.TrimPrefix(uriStr, prefix)

	text, _, err := ms.manager.Get(id)
	if err != nil {
		return nil, fmt.Errorf("file not found: %s", id)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "text/plain",
			Text:     text,
		},
	}, nil
}

// --- Tool Handlers ---

func (ms *MCPServer) handleListFiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	infos := ms.manager.List()
	if len(infos) == 0 {
		return mcp.NewToolResultText("No files stored."), nil
	}

	var lines []string
	for _, info := range infos {
		lines = append(lines, fmt.Sprintf("%s (revision %d, %d lines)", info.ID, info.Revision, info.Lines))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (ms *MCPServer) handleAnalyzeFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	id, ok := args["id"].(string)
	if !ok {
		return mcp.NewToolResultError("id argument required"), nil
	}

	analysis, _, err := ms.analyze(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", err)), nil
	}

	jsonBytes, err := json.MarshalIndent(analysis.Tree, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal tree: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (ms *MCPServer) handleGetDefinition(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	id, ok := args["id"].(string)
	if !ok {
		return mcp.NewToolResultError("id argument required"), nil
	}
	defID, ok := args["def"].(string)
	if !ok {
		return mcp.NewToolResultError("def argument required"), nil
	}

	analysis, _, err := ms.analyze(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", err)), nil
	}

	def, ok := analysis.Index[defID]
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("definition not found: %s", defID)), nil
	}

	jsonBytes, err := json.MarshalIndent(def, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal definition: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (ms *MCPServer) handleSearchDefinitions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	id, ok := args["id"].(string)
	if !ok {
		return mcp.NewToolResultError("id argument required"), nil
	}
	query, ok := args["query"].(string)
	if !ok {
		return mcp.NewToolResultError("query argument required"), nil
	}
	limit := 10
	if l, ok := args["limit"].(float64); ok {
		limit = int(l)
	}

	analysis, _, err := ms.analyze(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", err)), nil
	}

	ids := make([]string, 0, len(analysis.Index))
	for defID := range analysis.Index {
		ids = append(ids, defID)
	}

	matches := search.Rank(query, ids, limit)
	if len(matches) == 0 {
		return mcp.NewToolResultText("No matches found."), nil
	}

	var lines []string
	for _, m := range matches {
		lines = append(lines, fmt.Sprintf("%s (%.2f)", m.ID, m.Score))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (ms *MCPServer) handlePatchSource(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	id, ok := args["id"].(string)
	if !ok {
		return mcp.NewToolResultError("id argument required"), nil
	}
	startF, ok := args["start_line"].(float64)
	if !ok {
		return mcp.NewToolResultError("start_line argument required"), nil
	}
	endF, ok := args["end_line"].(float64)
	if !ok {
		return mcp.NewToolResultError("end_line argument required"), nil
	}
	replacement, _ := args["replacement"].(string)
	var expected int64
	if rev, ok := args["revision"].(float64); ok {
		expected = int64(rev)
	}

	_, revision, err := ms.manager.Patch(id, int(startF), int(endF), replacement, expected)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("patch failed: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Replaced lines %d-%d of %s, new revision %d",
		int(startF), int(endF), id, revision)), nil
}

// analyze runs the pipeline for the current revision of id, reusing a cached
// result when one exists.
func (ms *MCPServer) analyze(ctx context.Context, id string) (*manager.Analysis, int64, error) {
	text, revision, err := ms.manager.Get(id)
	if err != nil {
		return nil, 0, err
	}

	if cached, ok := ms.manager.CachedAnalysis(id, revision); ok {
		return cached, revision, nil
	}

	lang := analyzer.LanguageForPath(id)
	if !analyzer.SupportsPath(id) {
		if l := analyzer.LanguageByName(ms.defaultLang); l != nil {
			lang = l
		}
	}

	tree, index, err := analyzer.New(lang).Analyze(ctx, []byte(text))
	if err != nil {
		return nil, revision, err
	}

	analysis := &manager.Analysis{Tree: tree, Index: index}
	ms.manager.StoreAnalysis(id, revision, analysis)
	return analysis, revision, nil
}
