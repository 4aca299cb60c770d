// Package assemble turns scored retrieval hits into a bounded, ordered set
// of snippets for an LLM prompt.
package assemble

import (
	"context"
	"errors"
	"net/url"
	"path/filepath"
	"time"

	"github.com/samber/mo"

	"vybe/internal/store"
)

// Provenance reasons attached to emitted items.
const (
	ReasonSemantic = "semantic_match"
	ReasonActive   = "active_file"
	ReasonIndexed  = "indexed_file"

	// TruncatedSuffix is appended to the reason of a budget-clipped item.
	TruncatedSuffix = "_truncated"
)

// CandidateHit is a scored chunk reference produced by a Retriever.
// An empty Snippet means the retriever supplied none.
type CandidateHit struct {
	FilePath string  `json:"filePath" yaml:"filePath"`
	ChunkID  string  `json:"chunkId" yaml:"chunkId"`
	Score    float64 `json:"score" yaml:"score"`
	Snippet  string  `json:"snippet,omitempty" yaml:"snippet,omitempty"`
}

// Key returns the hit's composite chunk key.
func (h CandidateHit) Key() store.ChunkKey {
	return store.ChunkKey{FilePath: h.FilePath, ChunkID: h.ChunkID}
}

// ContextItem is one assembled snippet.
type ContextItem struct {
	FilePath  string  `json:"filePath" yaml:"filePath"`
	Snippet   string  `json:"snippet" yaml:"snippet"`
	StartLine int     `json:"startLine" yaml:"startLine"`
	EndLine   int     `json:"endLine" yaml:"endLine"`
	Score     float64 `json:"score" yaml:"score"`
	Reason    string  `json:"reason" yaml:"reason"`
}

// Options tune a single Assemble call. Zero values select defaults.
type Options struct {
	MaxChars      int
	MaxTokens     int
	PreferIndexed bool
	PreferRecent  bool
	PreferActive  bool
}

// Retriever produces candidate hits for a query.
type Retriever interface {
	Retrieve(ctx context.Context, workspaceID, query string, k int) ([]CandidateHit, error)
}

// RetrieverFunc adapts a function to Retriever.
type RetrieverFunc func(ctx context.Context, workspaceID, query string, k int) ([]CandidateHit, error)

func (f RetrieverFunc) Retrieve(ctx context.Context, workspaceID, query string, k int) ([]CandidateHit, error) {
	return f(ctx, workspaceID, query, k)
}

// OpenDocuments reports the URIs of documents currently open in the editor.
type OpenDocuments interface {
	OpenDocuments(ctx context.Context) ([]string, error)
}

// ErrNoEditor is returned by NoDocuments.
var ErrNoEditor = errors.New("no editor state available")

// StaticDocuments is a fixed list of open document URIs.
type StaticDocuments []string

func (d StaticDocuments) OpenDocuments(context.Context) ([]string, error) {
	return []string(d), nil
}

type noDocuments struct{}

func (noDocuments) OpenDocuments(context.Context) ([]string, error) { return nil, ErrNoEditor }

// NoDocuments is used when there is no editor to ask.
var NoDocuments OpenDocuments = noDocuments{}

// PathsToURIs converts local paths to file:// URIs. Relative paths are
// resolved against the working directory; unresolvable ones are skipped.
func PathsToURIs(paths []string) []string {
	uris := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		slashed := filepath.ToSlash(abs)
		if len(slashed) > 0 && slashed[0] != '/' {
			slashed = "/" + slashed
		}
		u := url.URL{Scheme: "file", Path: slashed}
		uris = append(uris, u.String())
	}
	return uris
}

// annotatedChunk is the working type between hydration and selection.
type annotatedChunk struct {
	store.ChunkRow
	Score       float64
	Reason      string
	IsActive    bool
	IsIndexed   bool
	LastIndexed mo.Option[time.Time]
}

func (c annotatedChunk) item() ContextItem {
	return ContextItem{
		FilePath:  c.FilePath,
		Snippet:   c.Content,
		StartLine: c.StartLine,
		EndLine:   c.EndLine,
		Score:     c.Score,
		Reason:    c.Reason,
	}
}

// reasonFor derives a provenance reason from the activity flags.
func reasonFor(active, indexed bool) string {
	switch {
	case active:
		return ReasonActive
	case indexed:
		return ReasonIndexed
	default:
		return ReasonSemantic
	}
}
