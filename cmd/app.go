package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"vybe/internal/assemble"
	"vybe/internal/config"
	"vybe/internal/embedder"
	"vybe/internal/index"
	"vybe/internal/llm"
	"vybe/internal/overview"
	"vybe/internal/retriever"
	"vybe/internal/slogutil"
	"vybe/internal/store"
)

// app is the per-invocation wiring shared by the commands.
type app struct {
	root    string
	cfg     *config.Config
	logger  *slog.Logger
	closers []func() error
}

// newApp loads configuration for projectRoot and applies flag overrides.
func newApp(projectRoot string) (*app, error) {
	root, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(root, flagConfig)
	if err != nil {
		return nil, err
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &app{root: root, cfg: cfg}

	level := logLevel(cfg.Log.Level, flagVerbose, flagQuiet)
	if cfg.Log.File != "" {
		logger, f, err := slogutil.NewFileLogger(cfg.Log.File, level, cfg.Log.Format)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		a.logger = logger
		a.closers = append(a.closers, f.Close)
	} else {
		a.logger = slogutil.NewLogger(os.Stderr, level, cfg.Log.Format)
	}
	return a, nil
}

// newWorkingDirApp is newApp for the current directory.
func newWorkingDirApp() (*app, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return newApp(wd)
}

func applyFlags(cfg *config.Config) {
	if flagDB != "" {
		cfg.Store.Path = flagDB
	}
	if flagOllama != "" {
		cfg.Ollama.URL = flagOllama
	}
	if flagModel != "" {
		cfg.Ollama.EmbedModel = flagModel
	}
	if flagChatModel != "" {
		cfg.Ollama.ChatModel = flagChatModel
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	if flagWorkspace != "" {
		cfg.Workspace.ID = flagWorkspace
	}
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *app) workspaceID() string {
	if a.cfg.Workspace.ID != "" {
		return a.cfg.Workspace.ID
	}
	return index.WorkspaceID(a.root)
}

func (a *app) dbPath() string {
	return a.cfg.DBPath(a.root)
}

func (a *app) timeout() time.Duration {
	return time.Duration(a.cfg.Ollama.TimeoutSeconds) * time.Second
}

func (a *app) embedder() *embedder.OllamaEmbedder {
	return embedder.NewOllamaEmbedder(a.cfg.Ollama.URL, a.cfg.Ollama.EmbedModel, a.timeout())
}

func (a *app) chat() *llm.OllamaChat {
	return llm.NewOllamaChat(a.cfg.Ollama.URL, a.cfg.Ollama.ChatModel, a.timeout())
}

// provider returns a lazily opened, read-side store closed with the app.
func (a *app) provider() *store.LazyProvider {
	p := store.Lazy(a.dbPath(), a.logger)
	a.closers = append(a.closers, p.Close)
	return p
}

// openStore opens the store for writing, creating it when missing.
func (a *app) openStore() (*store.SQLiteStore, error) {
	dbPath := a.dbPath()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	a.closers = append(a.closers, st.Close)
	return st, nil
}

func (a *app) requireIndex() error {
	if _, err := os.Stat(a.dbPath()); os.IsNotExist(err) {
		return fmt.Errorf("index not found at %s\nRun 'vybe index <path>' first to build the index", a.dbPath())
	}
	return nil
}

func (a *app) retriever(p store.Provider) *retriever.Hybrid {
	return retriever.NewHybrid(retriever.FromProvider(p), a.embedder(), a.logger)
}

func (a *app) engine(p store.Provider, docs assemble.OpenDocuments) *assemble.Engine {
	return assemble.New(assemble.Config{
		Retriever: a.retriever(p),
		Store:     p,
		Documents: docs,
		Settings:  a.cfg.Assemble,
		Logger:    a.logger,
	})
}

func (a *app) aggregator(p store.Provider) *overview.Aggregator {
	return overview.New(overview.Config{
		Store:    p,
		Settings: a.cfg.Overview,
		Logger:   a.logger,
	})
}

func (a *app) indexer(st store.Store, progress index.ProgressFunc) *index.Indexer {
	return index.New(index.Config{
		Store:       st,
		Embedder:    a.embedder(),
		WorkspaceID: a.workspaceID(),
		RootID:      a.cfg.Workspace.RootID,
		Workers:     a.cfg.Index.Workers,
		MaxFileSize: a.cfg.Index.MaxFileSize,
		Ignore:      a.cfg.Index.Ignore,
		Logger:      a.logger,
		OnProgress:  progress,
	})
}

// defaultOptions are the assembly options from configuration.
func (a *app) defaultOptions() assemble.Options {
	return assemble.Options{
		MaxChars:      a.cfg.Assemble.MaxChars,
		MaxTokens:     a.cfg.Assemble.MaxTokens,
		PreferActive:  a.cfg.Assemble.PreferActive,
		PreferIndexed: a.cfg.Assemble.PreferIndexed,
		PreferRecent:  a.cfg.Assemble.PreferRecent,
	}
}

// logLevel resolves the effective level. -q and -v take precedence over
// the configured level, and -q wins over -v.
func logLevel(configured string, verbose int, quiet bool) slog.Level {
	if quiet || verbose > 0 {
		return slogutil.LevelFromVerbosity(verbose, quiet)
	}
	return slogutil.LevelFromString(configured)
}
