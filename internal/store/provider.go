package store

import (
	"log/slog"
	"os"
	"sync"

	"github.com/samber/mo"
)

// Provider hands out the content store when one is available. Callers
// must branch on the returned option; absence is a normal condition.
type Provider interface {
	Handle() mo.Option[Reader]
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func() mo.Option[Reader]

func (f ProviderFunc) Handle() mo.Option[Reader] { return f() }

// Static always provides r. A nil r behaves like Unavailable.
func Static(r Reader) Provider {
	if r == nil {
		return Unavailable()
	}
	return ProviderFunc(func() mo.Option[Reader] { return mo.Some(r) })
}

// Unavailable never provides a store.
func Unavailable() Provider {
	return ProviderFunc(func() mo.Option[Reader] { return mo.None[Reader]() })
}

// LazyProvider opens a SQLite store on first use. A missing database file
// is reported as absence, not created; failed opens are retried on the
// next call.
type LazyProvider struct {
	path   string
	logger *slog.Logger

	mu sync.Mutex
	st *SQLiteStore
}

// Lazy returns a provider for the database at path.
func Lazy(path string, logger *slog.Logger) *LazyProvider {
	return &LazyProvider{path: path, logger: logger}
}

func (p *LazyProvider) Handle() mo.Option[Reader] {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.st != nil {
		return mo.Some[Reader](p.st)
	}
	if _, err := os.Stat(p.path); err != nil {
		p.log("content store not found", "path", p.path, "error", err)
		return mo.None[Reader]()
	}
	st, err := Open(p.path)
	if err != nil {
		p.log("content store open failed", "path", p.path, "error", err)
		return mo.None[Reader]()
	}
	p.st = st
	return mo.Some[Reader](st)
}

// Close closes the store if it was opened.
func (p *LazyProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.st == nil {
		return nil
	}
	err := p.st.Close()
	p.st = nil
	return err
}

func (p *LazyProvider) log(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
