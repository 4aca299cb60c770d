package chunker_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"vybe/internal/chunker"
	"vybe/internal/chunker/languages"
)

const goSrc = `package demo

import "fmt"

// Hello greets.
func Hello() {
	fmt.Println("hi")
}

type T struct{}
`

func TestChunkGo(t *testing.T) {
	c := chunker.NewASTChunker(languages.Default())
	chunks, err := c.Chunk(context.Background(), "demo/hello.go", []byte(goSrc))
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}

	want := []struct {
		name, kind string
		start, end int
	}{
		{"", chunker.KindBlock, 1, 5},
		{"Hello", "function_declaration", 6, 8},
		{"T", "type_declaration", 10, 10},
	}
	if len(chunks) != len(want) {
		t.Fatalf("got %d chunks: %+v", len(chunks), chunks)
	}
	for i, w := range want {
		c := chunks[i]
		if c.Name != w.name || c.Kind != w.kind || c.StartLine != w.start || c.EndLine != w.end {
			t.Errorf("chunk %d = %s %s %d-%d, want %s %s %d-%d", i, c.Name, c.Kind, c.StartLine, c.EndLine, w.name, w.kind, w.start, w.end)
		}
	}
	if chunks[1].Content != "func Hello() {\n\tfmt.Println(\"hi\")\n}" {
		t.Errorf("content is not verbatim: %q", chunks[1].Content)
	}
}

func TestChunkPlainTextWindows(t *testing.T) {
	var lines []string
	for i := range 100 {
		lines = append(lines, fmt.Sprintf("%03d %s", i+1, strings.Repeat("x", 96)))
	}
	c := chunker.NewASTChunker(languages.Default())
	chunks, err := c.Chunk(context.Background(), "docs/notes.md", []byte(strings.Join(lines, "\n")))
	if err != nil {
		t.Fatal(err)
	}
	spans := [][2]int{{1, 40}, {31, 70}, {61, 100}}
	if len(chunks) != len(spans) {
		t.Fatalf("got %d chunks", len(chunks))
	}
	for i, s := range spans {
		if chunks[i].StartLine != s[0] || chunks[i].EndLine != s[1] {
			t.Errorf("window %d = %d-%d, want %d-%d", i, chunks[i].StartLine, chunks[i].EndLine, s[0], s[1])
		}
		if !strings.HasPrefix(chunks[i].Content, fmt.Sprintf("%03d ", s[0])) {
			t.Errorf("window %d starts with %q", i, chunks[i].Content[:4])
		}
	}
}

func TestChunkSmallAndEmpty(t *testing.T) {
	c := chunker.NewASTChunker(languages.Default())
	chunks, err := c.Chunk(context.Background(), "Makefile", []byte("all:\n\tgo build\n"))
	if err != nil || len(chunks) != 1 || chunks[0].EndLine != 2 {
		t.Errorf("chunks = %+v, err = %v", chunks, err)
	}
	chunks, err = c.Chunk(context.Background(), "empty.go", []byte("\n\n"))
	if err != nil || chunks != nil {
		t.Errorf("empty file chunks = %+v, err = %v", chunks, err)
	}
}

func TestRegistry(t *testing.T) {
	r := languages.Default()
	tests := map[string]string{
		"a.go":      "go",
		"b.TSX":     "typescriptreact",
		"c.ts":      "typescript",
		"d.py":      "python",
		"e.mjs":     "javascript",
		"README.md": "markdown",
		"Makefile":  "",
	}
	for path, want := range tests {
		if got := r.LanguageID(path); got != want {
			t.Errorf("LanguageID(%q) = %q, want %q", path, got, want)
		}
	}
	if spec, _ := r.Lookup("README.md"); spec != nil {
		t.Error("markdown should have no grammar")
	}
	exts := r.Extensions()
	if !exts["go"] || !exts["md"] || exts["exe"] {
		t.Errorf("extensions = %v", exts)
	}
}
