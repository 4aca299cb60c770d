package overview

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/samber/mo"

	"vybe/internal/config"
	"vybe/internal/llm"
	"vybe/internal/slogutil"
	"vybe/internal/store"
)

const testWS = "ws"

type fakeReader struct {
	store.Reader // unused methods panic

	total, indexed, chunks int
	rows                   []store.FolderLanguageRow
	recent                 []store.RecentFileRow
	failOn                 string
	calls                  []string
	recentLimit            int
}

func (f *fakeReader) fail(name string) error {
	f.calls = append(f.calls, name)
	if f.failOn == name {
		return errors.New(name + " failed")
	}
	return nil
}

func (f *fakeReader) CountFiles(context.Context, string) (int, int, error) {
	return f.total, f.indexed, f.fail("CountFiles")
}

func (f *fakeReader) CountChunks(context.Context, string) (int, error) {
	return f.chunks, f.fail("CountChunks")
}

func (f *fakeReader) FolderLanguageStats(context.Context, string) ([]store.FolderLanguageRow, error) {
	return f.rows, f.fail("FolderLanguageStats")
}

func (f *fakeReader) RecentFiles(_ context.Context, _ string, limit int) ([]store.RecentFileRow, error) {
	f.recentLimit = limit
	return f.recent, f.fail("RecentFiles")
}

type fakeClock struct {
	t    time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	now := c.t
	c.t = c.t.Add(c.step)
	return now
}

func sampleReader() *fakeReader {
	return &fakeReader{
		total: 4, indexed: 3, chunks: 12,
		rows: []store.FolderLanguageRow{
			{Folder: "proj/web", LanguageID: "typescript", Files: 1, Size: 300},
			{Folder: "proj", LanguageID: "", Files: 1, Size: 10},
			{Folder: "proj", LanguageID: "go", Files: 2, Size: 200},
		},
		recent: []store.RecentFileRow{
			{Path: "proj/main.go", LastIndexed: time.UnixMilli(2000).UTC(), Size: 120, LanguageID: "go"},
		},
	}
}

func newAggregator(r store.Reader, now func() time.Time) *Aggregator {
	return New(Config{
		Store:    store.Static(r),
		Settings: config.DefaultConfig().Overview,
		Logger:   slogutil.NewDiscardLogger(),
		Now:      now,
	})
}

func TestOverview(t *testing.T) {
	r := sampleReader()
	got := newAggregator(r, nil).Overview(context.Background(), testWS)

	want := RepoOverview{
		TotalFiles: 4, IndexedFiles: 3, TotalChunks: 12,
		Folders: []FolderStats{
			{Path: "proj", FileCount: 3, TotalSize: 210, Languages: map[string]int{"go": 2, UnknownLanguage: 1}},
			{Path: "proj/web", FileCount: 1, TotalSize: 300, Languages: map[string]int{"typescript": 1}},
		},
		RecentFiles: []RecentFile{
			{Path: "proj/main.go", LastIndexed: time.UnixMilli(2000).UTC(), Size: 120, LanguageID: "go"},
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Overview =\n%+v\nwant\n%+v", got, want)
	}
	if r.recentLimit != 50 {
		t.Errorf("recent limit = %d, want 50", r.recentLimit)
	}
}

func TestOverviewZeroBudget(t *testing.T) {
	r := sampleReader()
	clock := &fakeClock{t: time.Unix(0, 0), step: 3 * time.Second}
	got := newAggregator(r, clock.Now).Overview(context.Background(), testWS)

	if !reflect.DeepEqual(got, RepoOverview{}) {
		t.Errorf("Overview = %+v, want zero value", got)
	}
	if len(r.calls) != 0 {
		t.Errorf("store queried after the deadline: %v", r.calls)
	}
}

func TestOverviewExpiredContext(t *testing.T) {
	r := sampleReader()
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	got := newAggregator(r, nil).Overview(ctx, testWS)
	if !reflect.DeepEqual(got, RepoOverview{}) || len(r.calls) != 0 {
		t.Errorf("Overview = %+v, calls = %v", got, r.calls)
	}
}

func TestOverviewBudgetMidway(t *testing.T) {
	r := sampleReader()
	// start=0, check counts=1s, check folders=2s, check recent=3s.
	clock := &fakeClock{t: time.Unix(0, 0), step: time.Second}
	settings := config.DefaultConfig().Overview
	settings.TimeBudgetMs = 2500
	a := New(Config{Store: store.Static(r), Settings: settings, Now: clock.Now})

	got := a.Overview(context.Background(), testWS)
	if !reflect.DeepEqual(got, RepoOverview{}) {
		t.Errorf("Overview = %+v, want zero value", got)
	}
	if strings.Join(r.calls, ",") != "CountFiles,CountChunks,FolderLanguageStats" {
		t.Errorf("calls = %v", r.calls)
	}
}

func TestOverviewFailures(t *testing.T) {
	for _, stage := range []string{"CountFiles", "CountChunks", "FolderLanguageStats", "RecentFiles"} {
		t.Run(stage, func(t *testing.T) {
			r := sampleReader()
			r.failOn = stage
			if got := newAggregator(r, nil).Overview(context.Background(), testWS); !reflect.DeepEqual(got, RepoOverview{}) {
				t.Errorf("Overview = %+v, want zero value", got)
			}
		})
	}

	t.Run("unavailable", func(t *testing.T) {
		a := New(Config{Store: store.Unavailable()})
		if got := a.Overview(context.Background(), testWS); !got.IsZero() {
			t.Errorf("Overview = %+v", got)
		}
	})

	t.Run("panic", func(t *testing.T) {
		// Calling a method the fake does not implement panics on the nil embedded Reader.
		a := New(Config{Store: store.Static(&panicReader{})})
		if got := a.Overview(context.Background(), testWS); !reflect.DeepEqual(got, RepoOverview{}) {
			t.Errorf("Overview = %+v", got)
		}
	})
}

type panicReader struct{ store.Reader }

func TestOverviewAgainstSQLite(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	ctx := context.Background()
	when := time.UnixMilli(1_700_000_000_000).UTC()

	files := []store.FileRecord{
		{Path: "proj/main.go", Status: store.StatusIndexed, LastIndexed: mo.Some(when), Size: 100, LanguageID: "go", FolderPath: "proj"},
		{Path: "proj/Makefile", Status: store.StatusIndexed, LastIndexed: mo.Some(when.Add(time.Second)), Size: 20, FolderPath: "proj"},
		{Path: "proj/web/app.ts", Status: store.StatusDiscovered, Size: 50, LanguageID: "typescript", FolderPath: "proj/web"},
	}
	for _, f := range files {
		if err := st.UpsertFile(ctx, testWS, f); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := st.InsertChunks(ctx, testWS, "proj/main.go", []store.Chunk{{ChunkID: "1", StartLine: 1, EndLine: 3, Content: "package main"}}); err != nil {
		t.Fatal(err)
	}

	got := newAggregator(st, nil).Overview(ctx, testWS)
	if got.TotalFiles != 3 || got.IndexedFiles != 2 || got.TotalChunks != 1 {
		t.Errorf("counts = %d/%d/%d", got.TotalFiles, got.IndexedFiles, got.TotalChunks)
	}
	if len(got.Folders) != 2 || got.Folders[0].Path != "proj" || got.Folders[0].Languages[UnknownLanguage] != 1 {
		t.Errorf("folders = %+v", got.Folders)
	}
	if len(got.RecentFiles) != 2 || got.RecentFiles[0].Path != "proj/Makefile" {
		t.Errorf("recent = %+v", got.RecentFiles)
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown(RepoOverview{
		TotalFiles: 2, IndexedFiles: 1, TotalChunks: 5,
		Folders:     []FolderStats{{Path: "proj", FileCount: 2, TotalSize: 2048, Languages: map[string]int{"go": 1, "python": 1}}},
		RecentFiles: []RecentFile{{Path: "proj/a.go", LastIndexed: time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC), Size: 10}},
	})
	for _, want := range []string{
		"**Files:** 2 (1 indexed)",
		"| proj | 2 | 2.0 KiB | go 1, python 1 |",
		"- `proj/a.go` (unknown, 10 B, 2026-01-02 03:04)",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestText(t *testing.T) {
	o := RepoOverview{
		TotalFiles: 3, IndexedFiles: 3, TotalChunks: 9,
		Folders: []FolderStats{
			{Path: "proj", FileCount: 1, Languages: map[string]int{"go": 1}},
			{Path: "proj/web", FileCount: 2, Languages: map[string]int{"typescript": 1, "go": 1}},
		},
	}
	if got := Languages(o); !reflect.DeepEqual(got, map[string]int{"go": 2, "typescript": 1}) {
		t.Errorf("Languages = %v", got)
	}
	out := Text(o)
	for _, want := range []string{"proj/web", "go 2, typescript 1", "FOLDER"} {
		if !strings.Contains(out, want) {
			t.Errorf("text missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(Text(RepoOverview{}), "No overview available") {
		t.Error("zero overview should explain itself")
	}
}

func TestHumanSize(t *testing.T) {
	tests := map[int64]string{0: "0 B", 1023: "1023 B", 1024: "1.0 KiB", 1536: "1.5 KiB", 5 << 20: "5.0 MiB"}
	for n, want := range tests {
		if got := HumanSize(n); got != want {
			t.Errorf("HumanSize(%d) = %q, want %q", n, got, want)
		}
	}
}

type fakeGenerator struct {
	prompt string
	reply  string
	err    error
}

func (g *fakeGenerator) Generate(_ context.Context, msgs []llm.Message) (string, error) {
	g.prompt = msgs[len(msgs)-1].Content
	return g.reply, g.err
}

func TestSummarize(t *testing.T) {
	gen := &fakeGenerator{reply: "  A Go CLI.\n"}
	got, err := Summarize(context.Background(), gen, RepoOverview{TotalFiles: 1})
	if err != nil || got != "A Go CLI." {
		t.Fatalf("Summarize = %q, %v", got, err)
	}
	if !strings.Contains(gen.prompt, "**Files:** 1") {
		t.Errorf("prompt does not include the overview:\n%s", gen.prompt)
	}

	if _, err := Summarize(context.Background(), gen, RepoOverview{}); !errors.Is(err, ErrEmpty) {
		t.Errorf("empty overview err = %v", err)
	}
	gen.err = errors.New("offline")
	if _, err := Summarize(context.Background(), gen, RepoOverview{TotalFiles: 1}); err == nil {
		t.Error("expected generator error")
	}
}
