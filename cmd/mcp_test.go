package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"vybe/internal/assemble"
	"vybe/internal/overview"
	"vybe/internal/rag"
)

type fakeAssembler struct {
	items []assemble.ContextItem
	opts  assemble.Options
}

func (f *fakeAssembler) Assemble(_ context.Context, _, _ string, opts assemble.Options) []assemble.ContextItem {
	f.opts = opts
	return f.items
}

type fakeOverviewer struct{ ov overview.RepoOverview }

func (f fakeOverviewer) Overview(context.Context, string) overview.RepoOverview { return f.ov }

func request(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult, i int) string {
	t.Helper()
	if len(res.Content) <= i {
		t.Fatalf("result has %d contents", len(res.Content))
	}
	tc, ok := res.Content[i].(mcp.TextContent)
	if !ok {
		t.Fatalf("content %d is %T", i, res.Content[i])
	}
	return tc.Text
}

func TestAssembleHandler(t *testing.T) {
	asm := &fakeAssembler{items: []assemble.ContextItem{{FilePath: "proj/a.go", Snippet: "x", Reason: assemble.ReasonActive}}}
	var docs assemble.OpenDocuments
	engines := func(d assemble.OpenDocuments) rag.Assembler {
		docs = d
		return asm
	}
	h := makeAssembleHandler(engines, "ws", assemble.Options{MaxChars: 1000})

	res, err := h(context.Background(), request(map[string]any{
		"query":         "parse config",
		"max_tokens":    50,
		"prefer_active": true,
		"open_files":    []any{"file:///repo/a.go"},
	}))
	if err != nil || res.IsError {
		t.Fatalf("res = %+v, err = %v", res, err)
	}
	var items []assemble.ContextItem
	if err := json.Unmarshal([]byte(resultText(t, res, 0)), &items); err != nil || len(items) != 1 {
		t.Fatalf("items = %v, err = %v", items, err)
	}
	if asm.opts.MaxChars != 1000 || asm.opts.MaxTokens != 50 || !asm.opts.PreferActive {
		t.Errorf("opts = %+v", asm.opts)
	}
	uris, _ := docs.OpenDocuments(context.Background())
	if len(uris) != 1 || uris[0] != "file:///repo/a.go" {
		t.Errorf("open documents = %v", uris)
	}
}

func TestAssembleHandlerEmpty(t *testing.T) {
	engines := func(assemble.OpenDocuments) rag.Assembler { return &fakeAssembler{} }
	h := makeAssembleHandler(engines, "ws", assemble.Options{})

	res, _ := h(context.Background(), request(map[string]any{"query": "  "}))
	if !res.IsError {
		t.Error("blank query should be a tool error")
	}
	res, _ = h(context.Background(), request(map[string]any{"query": "q"}))
	if got := resultText(t, res, 0); got != "[]" {
		t.Errorf("empty result = %q, want []", got)
	}
}

func TestOverviewHandler(t *testing.T) {
	res, _ := makeOverviewHandler(fakeOverviewer{}, "ws")(context.Background(), request(nil))
	if !strings.Contains(resultText(t, res, 0), "No overview available") {
		t.Errorf("zero overview text = %q", resultText(t, res, 0))
	}

	ov := overview.RepoOverview{TotalFiles: 2, IndexedFiles: 2, TotalChunks: 4}
	res, _ = makeOverviewHandler(fakeOverviewer{ov: ov}, "ws")(context.Background(), request(nil))
	if !strings.Contains(resultText(t, res, 0), "**Files:** 2") {
		t.Errorf("markdown = %q", resultText(t, res, 0))
	}
	var got overview.RepoOverview
	if err := json.Unmarshal([]byte(resultText(t, res, 1)), &got); err != nil || got.TotalChunks != 4 {
		t.Errorf("json = %+v, err = %v", got, err)
	}
}

func TestSearchHandler(t *testing.T) {
	var gotK int
	r := assemble.RetrieverFunc(func(_ context.Context, _, query string, k int) ([]assemble.CandidateHit, error) {
		gotK = k
		if query == "fail" {
			return nil, errors.New("store down")
		}
		return []assemble.CandidateHit{{FilePath: "proj/a.go", ChunkID: "c1", Score: 0.5, Snippet: "func A()"}}, nil
	})
	h := makeSearchHandler(r, "ws")

	res, _ := h(context.Background(), request(map[string]any{"query": "A"}))
	if res.IsError || gotK != 10 || !strings.Contains(resultText(t, res, 0), "proj/a.go") {
		t.Errorf("res = %+v, k = %d", res, gotK)
	}
	res, _ = h(context.Background(), request(map[string]any{"query": "fail"}))
	if !res.IsError {
		t.Error("retriever failure should be a tool error")
	}
}

func TestToURIs(t *testing.T) {
	got := toURIs([]string{"file:///x/a.go", "/x/b.go"})
	if len(got) != 2 || got[0] != "file:///x/a.go" || !strings.HasSuffix(got[1], "/x/b.go") {
		t.Errorf("toURIs = %v", got)
	}
}
