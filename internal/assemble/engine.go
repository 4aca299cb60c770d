package assemble

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"vybe/internal/config"
	"vybe/internal/slogutil"
	"vybe/internal/store"
)

// DefaultMaxChars is the character budget when neither the call nor the
// configuration sets one.
const DefaultMaxChars = 50000

// Config holds the collaborators of an Engine.
type Config struct {
	Retriever Retriever
	Store     store.Provider
	Documents OpenDocuments
	Settings  config.AssembleConfig
	Logger    *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Engine assembles prompt context for queries. It is safe for concurrent
// use when its collaborators are.
type Engine struct {
	retriever Retriever
	store     store.Provider
	docs      OpenDocuments
	settings  config.AssembleConfig
	logger    *slog.Logger
	now       func() time.Time
}

// New creates an Engine. A nil store provider behaves as unavailable and
// zero Settings mean the configuration defaults.
func New(cfg Config) *Engine {
	settings := cfg.Settings
	defaults := config.DefaultConfig().Assemble
	if settings == (config.AssembleConfig{}) {
		settings = defaults
	}
	if settings.TimeBudgetMs <= 0 {
		settings.TimeBudgetMs = defaults.TimeBudgetMs
	}
	e := &Engine{
		retriever: cfg.Retriever,
		store:     cfg.Store,
		docs:      cfg.Documents,
		settings:  settings,
		logger:    slogutil.OrDiscard(cfg.Logger),
		now:       cfg.Now,
	}
	if e.store == nil {
		e.store = store.Unavailable()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

func (e *Engine) candidates() int {
	if e.settings.Candidates > 0 {
		return e.settings.Candidates
	}
	return config.DefaultConfig().Assemble.Candidates
}

func (e *Engine) selector(start time.Time, opts Options) selector {
	s := selector{
		maxChars:    opts.MaxChars,
		maxTokens:   opts.MaxTokens,
		minTruncate: e.settings.MinTruncateChars,
		start:       start,
		deadline:    e.settings.TimeBudget(),
		now:         e.now,
	}
	if s.maxChars <= 0 {
		s.maxChars = e.settings.MaxChars
	}
	if s.maxChars <= 0 {
		s.maxChars = DefaultMaxChars
	}
	if s.maxTokens <= 0 {
		s.maxTokens = max(e.settings.MaxTokens, 0)
	}
	return s
}

// Assemble retrieves candidates for query and returns a bounded, ordered
// list of snippets. It never fails: internal errors are logged and yield
// an empty list. A partial list is returned when the deadline passes or
// ctx is cancelled during selection.
func (e *Engine) Assemble(ctx context.Context, workspaceID, query string, opts Options) (items []ContextItem) {
	start := e.now()
	logger := e.logger.With("call_id", uuid.NewString(), "workspace", workspaceID)
	items = []ContextItem{}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("context assembly panicked", "panic", r)
			items = []ContextItem{}
		}
	}()

	if e.retriever == nil {
		logger.Error("no retriever configured")
		return items
	}
	n := e.candidates()
	hits, err := e.retriever.Retrieve(ctx, workspaceID, query, n)
	if err != nil {
		logger.Error("retrieve candidates", "error", err)
		return items
	}
	hits = dedupeHits(hits)
	if len(hits) > n {
		hits = hits[:n]
	}
	if len(hits) == 0 {
		logger.Info("context assembled", "hits", 0, "items", 0, "stop", StopExhausted)
		return items
	}

	sel := e.selector(start, opts)
	// Store reads run to completion; cancellation is only observed by
	// the selector.
	storeCtx := context.WithoutCancel(ctx)

	reader, ok := e.store.Handle().Get()
	if !ok {
		logger.Warn("content store unavailable, using retriever snippets")
		return e.degraded(ctx, logger, sel, hits, start)
	}

	active := resolveActive(storeCtx, e.docs, reader, workspaceID, logger)
	chunks, err := hydrate(storeCtx, reader, workspaceID, hits, active, logger)
	if errors.Is(err, store.ErrUnavailable) {
		logger.Warn("content store unavailable, using retriever snippets", "error", err)
		return e.degraded(ctx, logger, sel, hits, start)
	}
	if err != nil {
		logger.Error("hydrate candidates", "error", err)
		return items
	}

	blocks := mergeChunks(chunks)
	rank(blocks, opts)
	items, stop := sel.run(ctx, blocks)
	logger.Info("context assembled",
		"hits", len(hits),
		"chunks", len(chunks),
		"blocks", len(blocks),
		"items", len(items),
		"stop", stop,
		"active_files", len(active),
		"elapsed", e.now().Sub(start),
	)
	return items
}

func (e *Engine) degraded(ctx context.Context, logger *slog.Logger, sel selector, hits []CandidateHit, start time.Time) []ContextItem {
	items, stop := sel.run(ctx, snippetFallback(hits))
	logger.Info("context assembled from snippets",
		"hits", len(hits),
		"items", len(items),
		"stop", stop,
		"elapsed", e.now().Sub(start),
	)
	return items
}
