package store

import (
	"time"

	"github.com/samber/mo"
)

// FileStatus is the indexing state of a file.
type FileStatus string

const (
	// StatusIndexed marks a file whose chunks were embedded and stored.
	StatusIndexed FileStatus = "indexed"
	// StatusDiscovered marks a file that is known but not (fully) indexed.
	StatusDiscovered FileStatus = "discovered"
)

// ChunkKey addresses one chunk of one file within a workspace.
type ChunkKey struct {
	FilePath string
	ChunkID  string
}

// ChunkRow is a stored chunk with its line range.
type ChunkRow struct {
	FilePath  string
	ChunkID   string
	Content   string
	StartLine int
	EndLine   int
}

// Key returns the row's composite key.
func (r ChunkRow) Key() ChunkKey {
	return ChunkKey{FilePath: r.FilePath, ChunkID: r.ChunkID}
}

// FileMeta is the indexing metadata of a file.
type FileMeta struct {
	Path        string
	Status      FileStatus
	LastIndexed mo.Option[time.Time]
}

// Indexed reports whether the file has status indexed.
func (m FileMeta) Indexed() bool {
	return m.Status == StatusIndexed
}

// Root maps a logical root id to its URI.
type Root struct {
	ID  string
	URI string
}

// FileRecord is the write-side representation of a file row.
type FileRecord struct {
	Path        string
	Hash        string
	Status      FileStatus
	LastIndexed mo.Option[time.Time]
	Size        int64
	LanguageID  string
	FolderPath  string
}

// Chunk is the write-side representation of a chunk row.
type Chunk struct {
	ChunkID   string
	StartLine int
	EndLine   int
	Content   string
}

// FolderLanguageRow aggregates non-deleted files by folder and language.
type FolderLanguageRow struct {
	Folder     string
	LanguageID string
	Files      int
	Size       int64
}

// RecentFileRow is a recently indexed file.
type RecentFileRow struct {
	Path        string
	LastIndexed time.Time
	Size        int64
	LanguageID  string
}

// SearchResult is a chunk found by vector similarity.
type SearchResult struct {
	Row      ChunkRow
	Distance float64
}

// LexicalResult is a chunk found by term matching.
type LexicalResult struct {
	Row     ChunkRow
	Matched int
}
