package assemble

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"vybe/internal/slogutil"
	"vybe/internal/store"
)

func TestURIToPath(t *testing.T) {
	tests := []struct {
		uri    string
		want   string
		wantOK bool
	}{
		{"file:///home/dev/proj/main.go", "/home/dev/proj/main.go", true},
		{"file:///home/dev/proj/../proj/./a.go", "/home/dev/proj/a.go", true},
		{"file:///home/dev/my%20proj/a.go", "/home/dev/my proj/a.go", true},
		{"FILE:///tmp/x", "/tmp/x", true},
		{"file:///C:/Users/dev/a.go", "c:/Users/dev/a.go", true},
		{"file:///c%3A/Users/dev/a.go", "c:/Users/dev/a.go", true},
		{"file://server/share/a.go", "//server/share/a.go", true},
		{"file://localhost/etc/hosts", "/etc/hosts", true},
		{"/plain/path.go", "/plain/path.go", true},
		{"untitled:Untitled-1", "", false},
		{"vscode-remote://ssh-remote+box/home/a.go", "", false},
		{"git:/home/dev/a.go?ref=HEAD", "", false},
		{"file://%zz", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			got, ok := uriToPath(tt.uri)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("uriToPath(%q) = %q, %v, want %q, %v", tt.uri, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestRelativeTo(t *testing.T) {
	tests := []struct {
		root, path string
		want       string
		wantOK     bool
	}{
		{"/work/app", "/work/app/main.go", "main.go", true},
		{"/work/app/", "/work/app/pkg/x.go", "pkg/x.go", true},
		{"/work/app", "/work/application/main.go", "", false},
		{"/work/app", "/work/app", "", false},
		{"/", "/etc/hosts", "etc/hosts", true},
		{"c:/proj", "c:/proj/a.go", "a.go", true},
	}
	for _, tt := range tests {
		got, ok := relativeTo(tt.root, tt.path)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("relativeTo(%q, %q) = %q, %v, want %q, %v", tt.root, tt.path, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestResolveActive(t *testing.T) {
	r := newFakeReader()
	r.roots = []store.Root{
		{ID: "app", URI: "file:///work/app"},
		{ID: "lib", URI: "file:///work/lib"},
		{ID: "nested", URI: "file:///work/app/vendor"},
		{ID: "broken", URI: "http://example.com"},
	}
	docs := StaticDocuments{
		"file:///work/app/cmd/main.go",
		"file:///work/lib/util.go",
		"file:///work/app/vendor/dep.go",
		"file:///elsewhere/x.go",
		"untitled:Untitled-1",
	}
	logger := slogutil.NewDiscardLogger()

	got := resolveActive(context.Background(), docs, r, testWS, logger)
	want := []string{"app/cmd/main.go", "lib/util.go", "app/vendor/dep.go"}
	if len(got) != len(want) {
		t.Fatalf("active = %v, want %v", got, want)
	}
	for _, k := range want {
		if !got[k] {
			t.Errorf("missing %q in %v", k, got)
		}
	}
}

func TestResolveActiveFailures(t *testing.T) {
	logger := slogutil.NewDiscardLogger()

	rootsErr := newFakeReader()
	rootsErr.rootsErr = errors.New("no roots table")

	ok := newFakeReader()
	ok.roots = []store.Root{{ID: "app", URI: "file:///work/app"}}

	tests := []struct {
		name string
		docs OpenDocuments
		r    *fakeReader
	}{
		{"nil source", nil, ok},
		{"no editor", NoDocuments, ok},
		{"roots error", StaticDocuments{"file:///work/app/a.go"}, rootsErr},
		{"no documents", StaticDocuments{}, ok},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveActive(context.Background(), tt.docs, tt.r, testWS, logger); len(got) != 0 {
				t.Errorf("active = %v, want empty", got)
			}
		})
	}
}

func TestActiveLookupFailureDoesNotFailAssembly(t *testing.T) {
	r := newFakeReader()
	r.add("app/a.go", "1", 1, 2, "x")
	r.rootsErr = errors.New("boom")
	e := newTestEngine(hitsRetriever(hit("app/a.go", "1", 1)), store.Static(r), StaticDocuments{"file:///work/app/a.go"})

	items := e.Assemble(context.Background(), testWS, "q", Options{PreferActive: true})
	if len(items) != 1 || items[0].Reason != ReasonSemantic {
		t.Fatalf("items = %+v", items)
	}
}

func TestPathsToURIs(t *testing.T) {
	dir := t.TempDir()
	uris := PathsToURIs([]string{filepath.Join(dir, "a b.go")})
	if len(uris) != 1 {
		t.Fatalf("uris = %v", uris)
	}
	if !strings.HasPrefix(uris[0], "file://") {
		t.Errorf("uri = %q", uris[0])
	}
	p, ok := uriToPath(uris[0])
	if !ok || p != filepath.ToSlash(filepath.Join(dir, "a b.go")) {
		t.Errorf("round trip = %q, %v", p, ok)
	}
}
