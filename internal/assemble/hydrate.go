package assemble

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"vybe/internal/store"
)

// dedupeHits drops repeated (path, chunk) pairs, keeping the first.
func dedupeHits(hits []CandidateHit) []CandidateHit {
	seen := make(map[store.ChunkKey]bool, len(hits))
	out := make([]CandidateHit, 0, len(hits))
	for _, h := range hits {
		k := h.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, h)
	}
	return out
}

// hydrate resolves hits to stored chunk rows and file metadata. Hits with
// no row are dropped. Errors are returned unchanged so the caller can tell
// an unavailable store from a failed query.
func hydrate(ctx context.Context, r store.Reader, workspaceID string, hits []CandidateHit, active map[string]bool, logger *slog.Logger) ([]annotatedChunk, error) {
	keys := make([]store.ChunkKey, len(hits))
	for i, h := range hits {
		keys[i] = h.Key()
	}

	rows, err := r.FetchChunks(ctx, workspaceID, keys)
	if err != nil {
		return nil, fmt.Errorf("fetch chunks: %w", err)
	}
	byKey := make(map[store.ChunkKey]store.ChunkRow, len(rows))
	for _, row := range rows {
		byKey[row.Key()] = row
	}

	var paths []string
	seenPath := make(map[string]bool)
	for _, h := range hits {
		if _, ok := byKey[h.Key()]; ok && !seenPath[h.FilePath] {
			seenPath[h.FilePath] = true
			paths = append(paths, h.FilePath)
		}
	}
	if len(paths) == 0 {
		logger.Debug("no hits have backing content", "hits", len(hits))
		return nil, nil
	}

	meta, err := r.FetchFileMeta(ctx, workspaceID, paths)
	if err != nil {
		return nil, fmt.Errorf("fetch file meta: %w", err)
	}

	chunks := make([]annotatedChunk, 0, len(byKey))
	for _, h := range hits {
		row, ok := byKey[h.Key()]
		if !ok {
			logger.Debug("dropping hit without content", "path", h.FilePath, "chunk", h.ChunkID)
			continue
		}
		m := meta[h.FilePath]
		c := annotatedChunk{
			ChunkRow:    row,
			Score:       sanitizeScore(h.Score),
			IsActive:    active[h.FilePath],
			IsIndexed:   m.Indexed(),
			LastIndexed: m.LastIndexed,
		}
		c.Reason = reasonFor(c.IsActive, c.IsIndexed)
		chunks = append(chunks, c)
	}
	return chunks, nil
}

// snippetFallback builds items straight from retriever snippets, used when
// the content store cannot be reached.
func snippetFallback(hits []CandidateHit) []annotatedChunk {
	out := make([]annotatedChunk, 0, len(hits))
	for _, h := range hits {
		if h.Snippet == "" {
			continue
		}
		out = append(out, annotatedChunk{
			ChunkRow: store.ChunkRow{FilePath: h.FilePath, ChunkID: h.ChunkID, Content: h.Snippet},
			Score:    sanitizeScore(h.Score),
			Reason:   ReasonSemantic,
		})
	}
	return out
}

// sanitizeScore maps NaN to 0 so score comparisons stay total.
func sanitizeScore(f float64) float64 {
	if math.IsNaN(f) {
		return 0
	}
	return f
}
