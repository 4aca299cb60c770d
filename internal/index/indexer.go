// Package index builds and refreshes the content store for a workspace root.
package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"time"

	"vybe/internal/chunker"
	"vybe/internal/chunker/languages"
	"vybe/internal/embedder"
	"vybe/internal/slogutil"
	"vybe/internal/store"
	"vybe/internal/walker"
)

// Config holds the indexer configuration.
type Config struct {
	Store    store.Store
	Embedder embedder.Embedder
	// Registry defaults to languages.Default().
	Registry *chunker.Registry
	// WorkspaceID and RootID default to WorkspaceID(root) and RootID(root).
	WorkspaceID string
	RootID      string
	Workers     int
	MaxFileSize int64
	Ignore      []string
	Logger      *slog.Logger
	Now         func() time.Time
	OnProgress  ProgressFunc
}

// Indexer indexes a workspace root into the content store.
type Indexer struct {
	cfg      Config
	registry *chunker.Registry
	chunker  *chunker.ASTChunker
	logger   *slog.Logger
}

// New creates a new Indexer with the given configuration.
func New(cfg Config) *Indexer {
	reg := cfg.Registry
	if reg == nil {
		reg = languages.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Indexer{
		cfg:      cfg,
		registry: reg,
		chunker:  chunker.NewASTChunker(reg),
		logger:   slogutil.OrDiscard(cfg.Logger),
	}
}

// WorkspaceID derives a stable workspace id from an absolute root path.
func WorkspaceID(absRoot string) string {
	h := sha256.Sum256([]byte(filepath.Clean(absRoot)))
	return hex.EncodeToString(h[:])[:16]
}

// RootID derives the logical root id from a root path.
func RootID(absRoot string) string {
	return filepath.Base(filepath.Clean(absRoot))
}

// FileURI returns the file URI of an absolute path.
func FileURI(absPath string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(absPath)}
	if vol := filepath.VolumeName(absPath); vol != "" {
		u.Path = "/" + u.Path
	}
	return u.String()
}

// modelMetaKey records the embedding model a workspace was indexed with.
func modelMetaKey(workspaceID string) string {
	return "embedding_model:" + workspaceID
}

// Index indexes the codebase at the given root path. Unchanged files are
// skipped; files no longer present are marked deleted.
func (idx *Indexer) Index(ctx context.Context, root string) (*Stats, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	ws := idx.cfg.WorkspaceID
	if ws == "" {
		ws = WorkspaceID(absRoot)
	}
	rootID := idx.cfg.RootID
	if rootID == "" {
		rootID = RootID(absRoot)
	}
	logger := idx.logger.With("workspace", ws, "root", rootID)

	model := ""
	if idx.cfg.Embedder != nil {
		model = idx.cfg.Embedder.Model()
	}

	// Vectors from a different model are not comparable.
	lastModel, err := idx.cfg.Store.GetMeta(ctx, modelMetaKey(ws))
	if err != nil {
		return nil, fmt.Errorf("get meta: %w", err)
	}
	if lastModel != "" && model != "" && lastModel != model {
		logger.Info("embedding model changed, re-indexing all files", "from", lastModel, "to", model)
		if err := idx.cfg.Store.DeleteWorkspace(ctx, ws); err != nil {
			return nil, fmt.Errorf("delete workspace: %w", err)
		}
	}

	if err := idx.cfg.Store.UpsertRoot(ctx, ws, store.Root{ID: rootID, URI: FileURI(absRoot)}); err != nil {
		return nil, fmt.Errorf("upsert root: %w", err)
	}

	p := &pipeline{
		store:       idx.cfg.Store,
		chunker:     idx.chunker,
		registry:    idx.registry,
		embedder:    idx.cfg.Embedder,
		workspaceID: ws,
		rootID:      rootID,
		workers:     idx.cfg.Workers,
		walkOpts: walker.Options{
			Ignore:      idx.cfg.Ignore,
			MaxFileSize: idx.cfg.MaxFileSize,
			Extensions:  idx.registry.Extensions(),
		},
		logger:     logger,
		now:        idx.cfg.Now,
		onProgress: idx.cfg.OnProgress,
	}

	start := time.Now()
	stats, err := p.run(ctx, absRoot)
	if err != nil {
		return stats, err
	}
	logger.Info("indexing complete",
		"files", stats.FilesTotal,
		"indexed", stats.FilesIndexed,
		"discovered", stats.FilesDiscovered,
		"unchanged", stats.FilesSkipped,
		"deleted", stats.FilesDeleted,
		"chunks", stats.ChunksTotal,
		"duration", time.Since(start),
	)

	if model != "" && stats.FilesIndexed > 0 {
		if err := idx.cfg.Store.SetMeta(ctx, modelMetaKey(ws), model); err != nil {
			return stats, fmt.Errorf("set meta: %w", err)
		}
	}
	return stats, nil
}
