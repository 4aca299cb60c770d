package chunker

import (
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

// LanguageSpec defines the tree-sitter grammar and query for a language.
type LanguageSpec struct {
	Language *sitter.Language
	// Query is a tree-sitter S-expression query that captures top-level
	// definitions. It must use @chunk for the outer node and @name for the
	// identifier (optional).
	Query      string
	Extensions []string
}

// textLanguages maps extensions without a grammar to language ids. Files
// with these extensions are chunked by line windows.
var textLanguages = map[string]string{
	"md": "markdown", "txt": "plaintext", "rst": "restructuredtext",
	"json": "json", "yaml": "yaml", "yml": "yaml", "toml": "toml", "xml": "xml",
	"html": "html", "css": "css", "scss": "scss", "sql": "sql", "proto": "proto",
	"sh": "shellscript", "bash": "shellscript", "rs": "rust", "java": "java",
	"kt": "kotlin", "c": "c", "h": "c", "cpp": "cpp", "hpp": "cpp", "cc": "cpp",
	"cs": "csharp", "rb": "ruby", "php": "php", "swift": "swift", "lua": "lua",
}

// Registry maps file extensions to language specs.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]*LanguageSpec // extension (without dot) → spec
	names map[string]string        // extension (without dot) → language name
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		specs: make(map[string]*LanguageSpec),
		names: make(map[string]string),
	}
}

// Register adds a language spec under the given name.
func (r *Registry) Register(name string, spec *LanguageSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range spec.Extensions {
		r.specs[ext] = spec
		r.names[ext] = name
	}
}

func extension(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Lookup returns the spec for a file path based on its extension, or nil.
func (r *Registry) Lookup(path string) (spec *LanguageSpec, lang string) {
	ext := extension(path)
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.specs[ext]
	if !ok {
		return nil, ""
	}
	return s, r.names[ext]
}

// LanguageID returns the language of a file, with or without a grammar,
// or "" when it is not recognized.
func (r *Registry) LanguageID(path string) string {
	if _, lang := r.Lookup(path); lang != "" {
		return lang
	}
	return textLanguages[extension(path)]
}

// Extensions returns every indexable extension (without dot): those with
// a grammar and the plain-text ones.
func (r *Registry) Extensions() map[string]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make(map[string]bool, len(r.specs)+len(textLanguages))
	for ext := range r.specs {
		exts[ext] = true
	}
	for ext := range textLanguages {
		exts[ext] = true
	}
	return exts
}
