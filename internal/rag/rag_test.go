package rag

import (
	"reflect"
	"strings"
	"testing"

	"vybe/internal/assemble"
	"vybe/internal/llm"
)

func TestBuildMessages(t *testing.T) {
	items := []assemble.ContextItem{
		{FilePath: "proj/main.go", Snippet: "package main", StartLine: 1, EndLine: 3, Score: 0.9, Reason: assemble.ReasonIndexed},
		{FilePath: "proj/util.go", Snippet: "package ut", StartLine: 10, EndLine: 12, Score: 0.4, Reason: assemble.ReasonSemantic + assemble.TruncatedSuffix},
	}
	history := []llm.Message{{Role: llm.RoleUser, Content: "earlier"}, {Role: llm.RoleAssistant, Content: "reply"}}

	msgs := BuildMessages(items, history, "what is main?", "**Files:** 2")
	if len(msgs) != 6 {
		t.Fatalf("got %d messages", len(msgs))
	}
	if msgs[0].Role != llm.RoleSystem || !strings.Contains(msgs[0].Content, "## Project Overview\n\n**Files:** 2") {
		t.Errorf("system = %q", msgs[0].Content)
	}
	ctx := msgs[1].Content
	for _, want := range []string{
		"--- Snippet 1: proj/main.go (lines 1-3) [indexed_file] ---\npackage main",
		"--- Snippet 2: proj/util.go (lines 10-12, approx.) [semantic_match_truncated] ---",
	} {
		if !strings.Contains(ctx, want) {
			t.Errorf("context missing %q:\n%s", want, ctx)
		}
	}
	if msgs[2].Role != llm.RoleAssistant || msgs[3].Content != "earlier" {
		t.Errorf("unexpected ordering: %+v", msgs)
	}
	if last := msgs[len(msgs)-1]; last.Role != llm.RoleUser || last.Content != "what is main?" {
		t.Errorf("last = %+v", last)
	}
}

func TestBuildMessagesWithoutContext(t *testing.T) {
	msgs := BuildMessages(nil, nil, "hi", "")
	if len(msgs) != 2 || strings.Contains(msgs[0].Content, "Project Overview") {
		t.Errorf("msgs = %+v", msgs)
	}
}

func TestFormatItems(t *testing.T) {
	out := FormatItems([]assemble.ContextItem{
		{FilePath: "proj/README.md", Snippet: "```go\nx\n```", Reason: assemble.ReasonSemantic},
		{FilePath: "proj/a.py", Snippet: "def f(): pass", StartLine: 1, EndLine: 1, Reason: assemble.ReasonActive},
	})
	if !strings.Contains(out, "### proj/README.md [semantic_match]") {
		t.Errorf("missing header without lines:\n%s", out)
	}
	if !strings.Contains(out, "````markdown\n```go") {
		t.Errorf("inner fence not escaped:\n%s", out)
	}
	if !strings.Contains(out, "```python\ndef f(): pass\n```") {
		t.Errorf("missing python block:\n%s", out)
	}
	if FormatItems(nil) != "_No context found._\n" {
		t.Error("empty rendering changed")
	}
}

func TestSources(t *testing.T) {
	got := Sources([]assemble.ContextItem{{FilePath: "b"}, {FilePath: "a"}, {FilePath: "b"}})
	if !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Errorf("Sources = %v", got)
	}
}
