// Package retriever finds candidate chunks for a query.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode"

	"vybe/internal/assemble"
	"vybe/internal/embedder"
	"vybe/internal/slogutil"
	"vybe/internal/store"
)

// lexicalWeight caps lexical scores below strong vector matches.
const lexicalWeight = 0.5

// Searcher is the subset of the content store the retriever needs.
type Searcher interface {
	VectorSearch(ctx context.Context, workspaceID string, embedding []float32, k int) ([]store.SearchResult, error)
	LexicalSearch(ctx context.Context, workspaceID string, terms []string, k int) ([]store.LexicalResult, error)
}

// Hybrid combines vector similarity with keyword matching.
type Hybrid struct {
	searcher Searcher
	embedder embedder.Embedder
	logger   *slog.Logger
}

var _ assemble.Retriever = (*Hybrid)(nil)

// NewHybrid creates a retriever. A nil embedder restricts it to lexical
// matching.
func NewHybrid(s Searcher, e embedder.Embedder, logger *slog.Logger) *Hybrid {
	return &Hybrid{searcher: s, embedder: e, logger: slogutil.OrDiscard(logger)}
}

// Retrieve returns up to k hits ordered by score, highest first.
func (h *Hybrid) Retrieve(ctx context.Context, workspaceID, query string, k int) ([]assemble.CandidateHit, error) {
	if k <= 0 || strings.TrimSpace(query) == "" {
		return nil, nil
	}

	vecHits, vecErr := h.vector(ctx, workspaceID, query, k)
	if vecErr != nil {
		h.logger.Warn("vector search failed, using lexical matches only", "error", vecErr)
	}

	terms := Terms(query)
	lexResults, lexErr := h.searcher.LexicalSearch(ctx, workspaceID, terms, k)
	if lexErr != nil {
		if vecErr != nil {
			return nil, errors.Join(vecErr, fmt.Errorf("lexical search: %w", lexErr))
		}
		h.logger.Warn("lexical search failed", "error", lexErr)
	}

	seen := make(map[store.ChunkKey]bool, len(vecHits))
	hits := vecHits
	for _, hit := range vecHits {
		seen[hit.Key()] = true
	}
	for _, r := range lexResults {
		if seen[r.Row.Key()] {
			continue
		}
		seen[r.Row.Key()] = true
		hits = append(hits, assemble.CandidateHit{
			FilePath: r.Row.FilePath,
			ChunkID:  r.Row.ChunkID,
			Score:    lexicalWeight * float64(r.Matched) / float64(len(terms)),
			Snippet:  r.Row.Content,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	h.logger.Debug("retrieved candidates", "workspace", workspaceID, "vector", len(vecHits), "lexical", len(lexResults), "hits", len(hits))
	return hits, nil
}

func (h *Hybrid) vector(ctx context.Context, workspaceID, query string, k int) ([]assemble.CandidateHit, error) {
	if h.embedder == nil {
		return nil, errors.New("no embedder configured")
	}
	vec, err := embedder.EmbedSingle(ctx, h.embedder, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	results, err := h.searcher.VectorSearch(ctx, workspaceID, vec, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	hits := make([]assemble.CandidateHit, len(results))
	for i, r := range results {
		hits[i] = assemble.CandidateHit{
			FilePath: r.Row.FilePath,
			ChunkID:  r.Row.ChunkID,
			Score:    1 / (1 + r.Distance),
			Snippet:  r.Row.Content,
		}
	}
	return hits, nil
}

// Terms splits a query into distinct lowercase keywords of at least two
// characters.
func Terms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	seen := make(map[string]bool, len(fields))
	var terms []string
	for _, f := range fields {
		if len([]rune(f)) < 2 || seen[f] {
			continue
		}
		seen[f] = true
		terms = append(terms, f)
	}
	return terms
}
