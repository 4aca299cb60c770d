package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"vybe/internal/assemble"
	"vybe/internal/overview"
	"vybe/internal/rag"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server exposing context assembly tools",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	a, err := newWorkingDirApp()
	if err != nil {
		return err
	}
	defer a.Close()

	// The store opens lazily, so the server can start before the first index.
	p := a.provider()
	ws := a.workspaceID()
	engines := func(docs assemble.OpenDocuments) rag.Assembler { return a.engine(p, docs) }

	s := mcpserver.NewMCPServer("vybe", "1.0.0", mcpserver.WithToolCapabilities(false))

	s.AddTool(assembleContextTool(), makeAssembleHandler(engines, ws, a.defaultOptions()))
	s.AddTool(repoOverviewTool(), makeOverviewHandler(a.aggregator(p), ws))
	s.AddTool(searchCodebaseTool(), makeSearchHandler(a.retriever(p), ws))

	return mcpserver.ServeStdio(s)
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// --- Tool schema builders ---

var readOnlyAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(true),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

func assembleContextTool() mcp.Tool {
	return mcp.NewTool("assemble_context",
		mcp.WithDescription("Assemble a budgeted, de-duplicated set of code snippets relevant to a query. Returns a JSON array of items with filePath, snippet, startLine, endLine, score and reason."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language or keyword query"),
		),
		mcp.WithNumber("max_chars",
			mcp.Description("Character budget for all snippets (default from config)"),
		),
		mcp.WithNumber("max_tokens",
			mcp.Description("Estimated token budget, about 4 characters per token (default: none)"),
		),
		mcp.WithBoolean("prefer_active",
			mcp.Description("Rank snippets from files open in the editor first"),
		),
		mcp.WithBoolean("prefer_indexed",
			mcp.Description("Rank snippets from fully indexed files first"),
		),
		mcp.WithBoolean("prefer_recent",
			mcp.Description("Rank snippets from recently indexed files first"),
		),
		mcp.WithArray("open_files",
			mcp.Description("Paths or file:// URIs of documents open in the editor"),
			mcp.Items(map[string]any{"type": "string"}),
		),
	)
}

func repoOverviewTool() mcp.Tool {
	return mcp.NewTool("get_repo_overview",
		mcp.WithDescription("Get file, chunk, folder and language statistics of the index plus the most recently indexed files."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
	)
}

func searchCodebaseTool() mcp.Tool {
	return mcp.NewTool("search_codebase",
		mcp.WithDescription("Search the indexed codebase with hybrid keyword and vector similarity. Returns raw candidate chunks without budgeting or merging."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language or keyword query to search the codebase"),
		),
		mcp.WithNumber("k",
			mcp.Description("Maximum number of chunks to return (default 10)"),
		),
	)
}

// --- Handler factories ---

type overviewer interface {
	Overview(ctx context.Context, workspaceID string) overview.RepoOverview
}

func makeAssembleHandler(engines func(assemble.OpenDocuments) rag.Assembler, ws string, defaults assemble.Options) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := req.GetString("query", "")
		if strings.TrimSpace(query) == "" {
			return mcp.NewToolResultError("query is required"), nil
		}
		opts := assemble.Options{
			MaxChars:      req.GetInt("max_chars", defaults.MaxChars),
			MaxTokens:     req.GetInt("max_tokens", defaults.MaxTokens),
			PreferActive:  req.GetBool("prefer_active", defaults.PreferActive),
			PreferIndexed: req.GetBool("prefer_indexed", defaults.PreferIndexed),
			PreferRecent:  req.GetBool("prefer_recent", defaults.PreferRecent),
		}

		docs := assemble.NoDocuments
		if files := req.GetStringSlice("open_files", nil); len(files) > 0 {
			docs = assemble.StaticDocuments(toURIs(files))
		}

		items := engines(docs).Assemble(ctx, ws, query, opts)
		if items == nil {
			items = []assemble.ContextItem{}
		}
		data, err := json.Marshal(items)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encode items: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func makeOverviewHandler(agg overviewer, ws string) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ov := agg.Overview(ctx, ws)
		if ov.IsZero() {
			return mcp.NewToolResultText("No overview available. Run 'vybe index <path>' to build the index."), nil
		}
		data, err := json.Marshal(ov)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encode overview: %v", err)), nil
		}
		res := mcp.NewToolResultText(overview.Markdown(ov))
		res.Content = append(res.Content, mcp.NewTextContent(string(data)))
		return res, nil
	}
}

func makeSearchHandler(r assemble.Retriever, ws string) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := req.GetString("query", "")
		if query == "" {
			return mcp.NewToolResultError("query is required"), nil
		}
		k := req.GetInt("k", 10)
		if k <= 0 {
			k = 10
		}

		hits, err := r.Retrieve(ctx, ws, query, k)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}
		return mcp.NewToolResultText(formatSearchResults(query, hits)), nil
	}
}

// toURIs passes file:// URIs through and converts paths.
func toURIs(files []string) []string {
	var uris, paths []string
	for _, f := range files {
		if strings.HasPrefix(f, "file:") {
			uris = append(uris, f)
		} else {
			paths = append(paths, f)
		}
	}
	return append(uris, assemble.PathsToURIs(paths)...)
}

// --- Formatting helpers ---

func formatSearchResults(query string, hits []assemble.CandidateHit) string {
	if len(hits) == 0 {
		return fmt.Sprintf("No results found for query: %q", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Search results for %q (%d chunks)\n\n", query, len(hits))

	for i, h := range hits {
		fmt.Fprintf(&sb, "### Result %d: `%s`\n\n", i+1, h.FilePath)
		fmt.Fprintf(&sb, "**Chunk:** %s  \n**Score:** %.3f\n\n", h.ChunkID, h.Score)
		if h.Snippet != "" {
			fence := "```"
			for strings.Contains(h.Snippet, fence) {
				fence += "`"
			}
			fmt.Fprintf(&sb, "%s\n%s\n%s\n\n", fence, h.Snippet, fence)
		}
	}

	return sb.String()
}
