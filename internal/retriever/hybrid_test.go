package retriever

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"vybe/internal/store"
)

type fakeSearcher struct {
	vec    []store.SearchResult
	lex    []store.LexicalResult
	vecErr error
	lexErr error
	terms  []string
}

func (f *fakeSearcher) VectorSearch(context.Context, string, []float32, int) ([]store.SearchResult, error) {
	return f.vec, f.vecErr
}

func (f *fakeSearcher) LexicalSearch(_ context.Context, _ string, terms []string, _ int) ([]store.LexicalResult, error) {
	f.terms = terms
	return f.lex, f.lexErr
}

type fakeEmbedder struct{ err error }

func (e fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1}
	}
	return out, nil
}

func (fakeEmbedder) Model() string { return "fake" }

func row(path, id string) store.ChunkRow {
	return store.ChunkRow{FilePath: path, ChunkID: id, Content: path + "#" + id}
}

func TestRetrieveMergesVectorAndLexical(t *testing.T) {
	s := &fakeSearcher{
		vec: []store.SearchResult{
			{Row: row("a.go", "1"), Distance: 0},
			{Row: row("b.go", "1"), Distance: 1},
		},
		lex: []store.LexicalResult{
			{Row: row("b.go", "1"), Matched: 2},
			{Row: row("c.go", "1"), Matched: 2},
			{Row: row("d.go", "1"), Matched: 1},
		},
	}
	h := NewHybrid(s, fakeEmbedder{}, nil)

	hits, err := h.Retrieve(context.Background(), "ws", "parse config", 10)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	var got []string
	var scores []float64
	for _, hit := range hits {
		got = append(got, hit.FilePath)
		scores = append(scores, hit.Score)
	}
	if want := []string{"a.go", "b.go", "c.go", "d.go"}; !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
	if want := []float64{1, 0.5, 0.5, 0.25}; !reflect.DeepEqual(scores, want) {
		t.Errorf("scores = %v, want %v", scores, want)
	}
	if hits[0].Snippet != "a.go#1" {
		t.Errorf("snippet = %q", hits[0].Snippet)
	}
	if !reflect.DeepEqual(s.terms, []string{"parse", "config"}) {
		t.Errorf("terms = %v", s.terms)
	}
}

func TestRetrieveTruncatesToK(t *testing.T) {
	s := &fakeSearcher{lex: []store.LexicalResult{
		{Row: row("a.go", "1"), Matched: 1},
		{Row: row("b.go", "1"), Matched: 1},
		{Row: row("c.go", "1"), Matched: 1},
	}}
	hits, err := NewHybrid(s, nil, nil).Retrieve(context.Background(), "ws", "foo", 2)
	if err != nil || len(hits) != 2 {
		t.Fatalf("hits = %v, err = %v", hits, err)
	}
}

func TestRetrieveFallbacks(t *testing.T) {
	lexOnly := &fakeSearcher{lex: []store.LexicalResult{{Row: row("a.go", "1"), Matched: 1}}}
	hits, err := NewHybrid(lexOnly, fakeEmbedder{err: errors.New("ollama down")}, nil).Retrieve(context.Background(), "ws", "foo", 5)
	if err != nil || len(hits) != 1 {
		t.Errorf("embed failure: hits = %v, err = %v", hits, err)
	}

	vecOnly := &fakeSearcher{vec: []store.SearchResult{{Row: row("a.go", "1")}}, lexErr: errors.New("bad")}
	hits, err = NewHybrid(vecOnly, fakeEmbedder{}, nil).Retrieve(context.Background(), "ws", "foo", 5)
	if err != nil || len(hits) != 1 {
		t.Errorf("lexical failure: hits = %v, err = %v", hits, err)
	}

	both := &fakeSearcher{vecErr: errors.New("vec"), lexErr: errors.New("lex")}
	if _, err := NewHybrid(both, fakeEmbedder{}, nil).Retrieve(context.Background(), "ws", "foo", 5); err == nil {
		t.Error("expected error when both searches fail")
	}
}

func TestRetrieveEmptyQuery(t *testing.T) {
	s := &fakeSearcher{vecErr: errors.New("must not be called")}
	hits, err := NewHybrid(s, fakeEmbedder{}, nil).Retrieve(context.Background(), "ws", "   ", 5)
	if err != nil || hits != nil {
		t.Errorf("hits = %v, err = %v", hits, err)
	}
}

func TestTerms(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"How does ParseConfig work?", []string{"how", "does", "parseconfig", "work"}},
		{"load_config load_config a", []string{"load_config"}},
		{"", nil},
		{"日本 語", []string{"日本"}},
	}
	for _, tt := range tests {
		if got := Terms(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Terms(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
