package retriever

import (
	"context"
	"errors"
	"testing"

	"vybe/internal/store"
)

type readOnly struct{ store.Reader }

type searchable struct {
	store.Reader
	*fakeSearcher
}

func TestFromProvider(t *testing.T) {
	ctx := context.Background()

	for name, p := range map[string]store.Provider{
		"absent":    store.Unavailable(),
		"no search": store.Static(readOnly{}),
	} {
		s := FromProvider(p)
		if _, err := s.VectorSearch(ctx, "ws", nil, 1); !errors.Is(err, store.ErrUnavailable) {
			t.Errorf("%s: VectorSearch err = %v", name, err)
		}
		if _, err := s.LexicalSearch(ctx, "ws", nil, 1); !errors.Is(err, store.ErrUnavailable) {
			t.Errorf("%s: LexicalSearch err = %v", name, err)
		}
	}

	fs := &fakeSearcher{lex: []store.LexicalResult{{Row: row("a.go", "1"), Matched: 1}}}
	s := FromProvider(store.Static(searchable{fakeSearcher: fs}))
	got, err := s.LexicalSearch(ctx, "ws", []string{"foo"}, 1)
	if err != nil || len(got) != 1 || len(fs.terms) != 1 {
		t.Errorf("LexicalSearch = %v, %v", got, err)
	}
}
