package retriever

import (
	"context"

	"vybe/internal/store"
)

// FromProvider returns a Searcher that resolves the store on every call.
// When the provider has no store, or the store cannot search, the
// searches fail with store.ErrUnavailable.
func FromProvider(p store.Provider) Searcher {
	return providerSearcher{p: p}
}

type providerSearcher struct {
	p store.Provider
}

func (s providerSearcher) searcher() (Searcher, error) {
	r, ok := s.p.Handle().Get()
	if !ok {
		return nil, store.ErrUnavailable
	}
	sr, ok := r.(Searcher)
	if !ok {
		return nil, store.ErrUnavailable
	}
	return sr, nil
}

func (s providerSearcher) VectorSearch(ctx context.Context, workspaceID string, embedding []float32, k int) ([]store.SearchResult, error) {
	sr, err := s.searcher()
	if err != nil {
		return nil, err
	}
	return sr.VectorSearch(ctx, workspaceID, embedding, k)
}

func (s providerSearcher) LexicalSearch(ctx context.Context, workspaceID string, terms []string, k int) ([]store.LexicalResult, error) {
	sr, err := s.searcher()
	if err != nil {
		return nil, err
	}
	return sr.LexicalSearch(ctx, workspaceID, terms, k)
}
