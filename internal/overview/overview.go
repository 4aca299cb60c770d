// Package overview summarizes the structure of an indexed workspace.
package overview

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"vybe/internal/config"
	"vybe/internal/slogutil"
	"vybe/internal/store"
)

// UnknownLanguage labels files the indexer could not classify.
const UnknownLanguage = "unknown"

// RepoOverview is the aggregate view of a workspace. The zero value is the
// failure result.
type RepoOverview struct {
	TotalFiles   int           `json:"totalFiles" yaml:"totalFiles"`
	IndexedFiles int           `json:"indexedFiles" yaml:"indexedFiles"`
	TotalChunks  int           `json:"totalChunks" yaml:"totalChunks"`
	Folders      []FolderStats `json:"folders" yaml:"folders"`
	RecentFiles  []RecentFile  `json:"recentFiles" yaml:"recentFiles"`
}

// IsZero reports whether o is the empty result.
func (o RepoOverview) IsZero() bool {
	return o.TotalFiles == 0 && o.IndexedFiles == 0 && o.TotalChunks == 0 &&
		len(o.Folders) == 0 && len(o.RecentFiles) == 0
}

// FolderStats aggregates the files directly inside one folder.
type FolderStats struct {
	Path      string         `json:"path" yaml:"path"`
	FileCount int            `json:"fileCount" yaml:"fileCount"`
	TotalSize int64          `json:"totalSize" yaml:"totalSize"`
	Languages map[string]int `json:"languages" yaml:"languages"`
}

// RecentFile is a recently indexed file.
type RecentFile struct {
	Path        string    `json:"path" yaml:"path"`
	LastIndexed time.Time `json:"lastIndexedTime" yaml:"lastIndexedTime"`
	Size        int64     `json:"size" yaml:"size"`
	LanguageID  string    `json:"languageId,omitempty" yaml:"languageId,omitempty"`
}

// Config holds the collaborators of an Aggregator.
type Config struct {
	Store    store.Provider
	Settings config.OverviewConfig
	Logger   *slog.Logger
	Now      func() time.Time
}

// Aggregator computes repository overviews.
type Aggregator struct {
	store    store.Provider
	settings config.OverviewConfig
	logger   *slog.Logger
	now      func() time.Time
}

var errBudget = errors.New("overview budget exceeded")

// New creates an Aggregator.
func New(cfg Config) *Aggregator {
	a := &Aggregator{
		store:    cfg.Store,
		settings: cfg.Settings,
		logger:   slogutil.OrDiscard(cfg.Logger),
		now:      cfg.Now,
	}
	if a.store == nil {
		a.store = store.Unavailable()
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.settings.RecentLimit <= 0 {
		a.settings.RecentLimit = config.DefaultConfig().Overview.RecentLimit
	}
	if a.settings.TimeBudgetMs <= 0 {
		a.settings.TimeBudgetMs = config.DefaultConfig().Overview.TimeBudgetMs
	}
	return a
}

// Overview aggregates counts, folder statistics and recently indexed files.
// Any failure, including an exhausted time budget, yields the zero value.
func (a *Aggregator) Overview(ctx context.Context, workspaceID string) (ov RepoOverview) {
	start := a.now()
	logger := a.logger.With("workspace", workspaceID)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("overview panicked", "panic", r)
			ov = RepoOverview{}
		}
	}()

	budget := a.settings.TimeBudget()
	check := func(stage string) error {
		if err := ctx.Err(); err != nil {
			logger.Info("overview cancelled", "stage", stage, "error", err)
			return err
		}
		if a.now().Sub(start) > budget {
			logger.Info("overview budget exceeded", "stage", stage, "budget", budget)
			return errBudget
		}
		return nil
	}

	if err := check("counts"); err != nil {
		return RepoOverview{}
	}
	r, ok := a.store.Handle().Get()
	if !ok {
		logger.Warn("content store unavailable, returning empty overview")
		return RepoOverview{}
	}

	// Queries are not interrupted; cancellation is observed between stages.
	qctx := context.WithoutCancel(ctx)
	var err error
	ov.TotalFiles, ov.IndexedFiles, err = r.CountFiles(qctx, workspaceID)
	if err != nil {
		logger.Error("count files", "error", err)
		return RepoOverview{}
	}
	if ov.TotalChunks, err = r.CountChunks(qctx, workspaceID); err != nil {
		logger.Error("count chunks", "error", err)
		return RepoOverview{}
	}

	if err := check("folders"); err != nil {
		return RepoOverview{}
	}
	rows, err := r.FolderLanguageStats(qctx, workspaceID)
	if err != nil {
		logger.Error("folder stats", "error", err)
		return RepoOverview{}
	}
	ov.Folders = groupFolders(rows)

	if err := check("recent"); err != nil {
		return RepoOverview{}
	}
	recent, err := r.RecentFiles(qctx, workspaceID, a.settings.RecentLimit)
	if err != nil {
		logger.Error("recent files", "error", err)
		return RepoOverview{}
	}
	ov.RecentFiles = make([]RecentFile, len(recent))
	for i, f := range recent {
		ov.RecentFiles[i] = RecentFile{Path: f.Path, LastIndexed: f.LastIndexed, Size: f.Size, LanguageID: f.LanguageID}
	}

	logger.Info("overview computed",
		"files", ov.TotalFiles,
		"chunks", ov.TotalChunks,
		"folders", len(ov.Folders),
		"elapsed", a.now().Sub(start),
	)
	return ov
}

// groupFolders folds (folder, language) rows into per-folder totals.
func groupFolders(rows []store.FolderLanguageRow) []FolderStats {
	byPath := make(map[string]*FolderStats)
	for _, r := range rows {
		f, ok := byPath[r.Folder]
		if !ok {
			f = &FolderStats{Path: r.Folder, Languages: make(map[string]int)}
			byPath[r.Folder] = f
		}
		lang := r.LanguageID
		if lang == "" {
			lang = UnknownLanguage
		}
		f.FileCount += r.Files
		f.TotalSize += r.Size
		f.Languages[lang] += r.Files
	}

	folders := make([]FolderStats, 0, len(byPath))
	for _, f := range byPath {
		folders = append(folders, *f)
	}
	sort.Slice(folders, func(i, j int) bool { return folders[i].Path < folders[j].Path })
	return folders
}
