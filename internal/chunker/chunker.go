package chunker

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

const (
	maxChunkBytes = 8192
	windowSize    = 40
	windowOverlap = 10
)

// KindBlock labels chunks produced by the line-window splitter.
const KindBlock = "block"

// RawChunk is a chunk extracted from a source file before embedding.
// Content is the verbatim text of lines StartLine..EndLine (1-based).
type RawChunk struct {
	Name      string
	Kind      string
	StartLine int
	EndLine   int
	Content   string
}

// ASTChunker parses source files using tree-sitter and extracts semantic chunks.
type ASTChunker struct {
	registry *Registry
}

// NewASTChunker creates a chunker backed by the given registry.
func NewASTChunker(r *Registry) *ASTChunker {
	return &ASTChunker{registry: r}
}

// Chunk splits src into chunks. Files with a registered grammar are split
// at top-level definitions, with the code between definitions kept as
// blocks; other text files are split into overlapping line windows.
func (c *ASTChunker) Chunk(ctx context.Context, path string, src []byte) ([]RawChunk, error) {
	lines := splitLines(src)
	if len(lines) == 0 {
		return nil, nil
	}
	spec, lang := c.registry.Lookup(path)
	if spec == nil {
		return windows(lines, 1, len(lines), "", KindBlock), nil
	}

	captures, err := c.captures(ctx, spec, lang, path, src)
	if err != nil {
		return nil, err
	}

	var chunks []RawChunk
	next := 1
	for _, cap := range captures {
		if cap.startLine < next {
			continue
		}
		chunks = append(chunks, gap(lines, next, cap.startLine-1)...)
		chunks = append(chunks, windows(lines, cap.startLine, cap.endLine, cap.name, cap.kind)...)
		next = cap.endLine + 1
	}
	chunks = append(chunks, gap(lines, next, len(lines))...)
	return chunks, nil
}

func (c *ASTChunker) captures(ctx context.Context, spec *LanguageSpec, lang, path string, src []byte) ([]capture, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(spec.Language)
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	defer tree.Close()

	q, err := sitter.NewQuery([]byte(spec.Query), spec.Language)
	if err != nil {
		return nil, fmt.Errorf("compile query for %s: %w", lang, err)
	}
	defer q.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, tree.RootNode())

	var captures []capture
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		var chunkNode *sitter.Node
		var name string
		for _, cap := range m.Captures {
			switch q.CaptureNameForId(cap.Index) {
			case "chunk":
				chunkNode = cap.Node
			case "name":
				name = cap.Node.Content(src)
			}
		}
		if chunkNode == nil {
			continue
		}
		captures = append(captures, capture{
			name:      name,
			kind:      chunkNode.Type(),
			startLine: int(chunkNode.StartPoint().Row) + 1,
			endLine:   int(chunkNode.EndPoint().Row) + 1,
			startByte: chunkNode.StartByte(),
			endByte:   chunkNode.EndByte(),
		})
	}
	return dedup(captures), nil
}

// dedup removes captures that are fully contained within a larger capture.
func dedup(caps []capture) []capture {
	if len(caps) <= 1 {
		return caps
	}
	// Sort by start byte ascending, then by size descending (larger first).
	sort.Slice(caps, func(i, j int) bool {
		if caps[i].startByte != caps[j].startByte {
			return caps[i].startByte < caps[j].startByte
		}
		return (caps[i].endByte - caps[i].startByte) > (caps[j].endByte - caps[j].startByte)
	})

	var result []capture
	var lastEnd uint32
	for i, c := range caps {
		if i == 0 || c.startByte >= lastEnd {
			result = append(result, c)
			lastEnd = max(lastEnd, c.endByte)
		}
	}
	return result
}

// gap returns block chunks for lines start..end unless they are all blank.
func gap(lines []string, start, end int) []RawChunk {
	if start > end {
		return nil
	}
	for i := start; i <= end; i++ {
		if strings.TrimSpace(lines[i-1]) != "" {
			return windows(lines, start, end, "", KindBlock)
		}
	}
	return nil
}

// windows returns lines start..end as one chunk, or as 40-line windows
// overlapping by 10 lines when the text exceeds maxChunkBytes.
func windows(lines []string, start, end int, name, kind string) []RawChunk {
	end = min(end, len(lines))
	if start > end {
		return nil
	}
	text := strings.Join(lines[start-1:end], "\n")
	if len(text) <= maxChunkBytes {
		return []RawChunk{{Name: name, Kind: kind, StartLine: start, EndLine: end, Content: text}}
	}

	var chunks []RawChunk
	for i := start; i <= end; {
		j := min(i+windowSize-1, end)
		chunks = append(chunks, RawChunk{
			Name:      name,
			Kind:      kind,
			StartLine: i,
			EndLine:   j,
			Content:   strings.Join(lines[i-1:j], "\n"),
		})
		if j >= end {
			break
		}
		i += windowSize - windowOverlap
	}
	return chunks
}

func splitLines(src []byte) []string {
	src = bytes.TrimRight(src, "\n")
	if len(src) == 0 {
		return nil
	}
	return strings.Split(strings.ReplaceAll(string(src), "\r\n", "\n"), "\n")
}

type capture struct {
	name      string
	kind      string
	startLine int
	endLine   int
	startByte uint32
	endByte   uint32
}
