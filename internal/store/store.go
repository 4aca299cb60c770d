package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/mattn/go-sqlite3"
	"github.com/samber/mo"
)

func init() {
	sqlite_vec.Auto()
}

// ErrUnavailable reports that the database itself cannot be used, as
// opposed to a single query failing.
var ErrUnavailable = errors.New("content store unavailable")

// Reader is the read-only view of the content store.
type Reader interface {
	// FetchChunks returns the rows for exactly the requested keys.
	// Keys without a row are absent from the result.
	FetchChunks(ctx context.Context, workspaceID string, keys []ChunkKey) ([]ChunkRow, error)
	// FetchFileMeta returns metadata keyed by path for the given paths.
	FetchFileMeta(ctx context.Context, workspaceID string, paths []string) (map[string]FileMeta, error)
	// ListRoots returns the workspace roots ordered by root id.
	ListRoots(ctx context.Context, workspaceID string) ([]Root, error)
	// CountFiles counts non-deleted files and those with status indexed.
	CountFiles(ctx context.Context, workspaceID string) (total, indexed int, err error)
	// CountChunks counts chunks belonging to non-deleted files.
	CountChunks(ctx context.Context, workspaceID string) (int, error)
	// FolderLanguageStats groups non-deleted files by folder and language.
	FolderLanguageStats(ctx context.Context, workspaceID string) ([]FolderLanguageRow, error)
	// RecentFiles returns up to limit files by last indexed time, newest first.
	RecentFiles(ctx context.Context, workspaceID string, limit int) ([]RecentFileRow, error)
}

// Store is the full read-write content store used by the indexer and
// retriever.
type Store interface {
	Reader
	// ListFileHashes returns path -> hash for non-deleted files.
	ListFileHashes(ctx context.Context, workspaceID string) (map[string]string, error)
	// UpsertFile inserts or replaces a file row and drops its old chunks
	// and embeddings.
	UpsertFile(ctx context.Context, workspaceID string, f FileRecord) error
	// InsertChunks stores chunks for a file and returns their row ids.
	InsertChunks(ctx context.Context, workspaceID, path string, chunks []Chunk) ([]int64, error)
	// InsertEmbeddings stores embeddings keyed by chunk row id.
	InsertEmbeddings(ctx context.Context, rowIDs []int64, embeddings [][]float32) error
	// UpsertRoot records a workspace root.
	UpsertRoot(ctx context.Context, workspaceID string, r Root) error
	// MarkDeleted flags files under prefix that are not in keep as deleted
	// and removes their chunks. It returns the number of files flagged.
	MarkDeleted(ctx context.Context, workspaceID, prefix string, keep map[string]bool) (int, error)
	// VectorSearch finds the k chunks closest to the query embedding.
	VectorSearch(ctx context.Context, workspaceID string, embedding []float32, k int) ([]SearchResult, error)
	// LexicalSearch finds up to k chunks containing any of the terms.
	LexicalSearch(ctx context.Context, workspaceID string, terms []string, k int) ([]LexicalResult, error)
	// GetMeta returns a metadata value by key, or "" if not set.
	GetMeta(ctx context.Context, key string) (string, error)
	// SetMeta sets a metadata key-value pair.
	SetMeta(ctx context.Context, key, value string) error
	// DeleteWorkspace removes every file, chunk, embedding and root of a workspace.
	DeleteWorkspace(ctx context.Context, workspaceID string) error
	// Close closes the underlying database.
	Close() error
}

// SQLiteStore implements Store backed by SQLite + sqlite-vec.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// Open creates or opens a SQLite database at the given path and initializes the schema.
func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := Init(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// classify marks errors that mean the database is gone with ErrUnavailable.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrConnDone) || strings.Contains(err.Error(), "database is closed") {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		switch se.Code {
		case sqlite3.ErrCantOpen, sqlite3.ErrNotADB, sqlite3.ErrCorrupt, sqlite3.ErrIoErr:
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	return err
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms sql.NullInt64) mo.Option[time.Time] {
	if !ms.Valid {
		return mo.None[time.Time]()
	}
	return mo.Some(time.UnixMilli(ms.Int64).UTC())
}

func (s *SQLiteStore) FetchChunks(ctx context.Context, workspaceID string, keys []ChunkKey) ([]ChunkRow, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	args := make([]any, 0, 1+2*len(keys))
	args = append(args, workspaceID)
	values := make([]string, len(keys))
	for i, k := range keys {
		values[i] = "(?, ?)"
		args = append(args, k.FilePath, k.ChunkID)
	}
	query := `
		SELECT file_path, chunk_id, content, start_line, end_line
		FROM chunks
		WHERE workspace_id = ? AND (file_path, chunk_id) IN (VALUES ` + strings.Join(values, ", ") + `)`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var out []ChunkRow
	for rows.Next() {
		var r ChunkRow
		if err := rows.Scan(&r.FilePath, &r.ChunkID, &r.Content, &r.StartLine, &r.EndLine); err != nil {
			return nil, classify(err)
		}
		out = append(out, r)
	}
	return out, classify(rows.Err())
}

func (s *SQLiteStore) FetchFileMeta(ctx context.Context, workspaceID string, paths []string) (map[string]FileMeta, error) {
	meta := make(map[string]FileMeta, len(paths))
	if len(paths) == 0 {
		return meta, nil
	}
	args := make([]any, 0, 1+len(paths))
	args = append(args, workspaceID)
	for _, p := range paths {
		args = append(args, p)
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT path, status, last_indexed_time FROM files WHERE workspace_id = ? AND path IN ("+placeholders(len(paths))+")",
		args...,
	)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			m  FileMeta
			st string
			ms sql.NullInt64
		)
		if err := rows.Scan(&m.Path, &st, &ms); err != nil {
			return nil, classify(err)
		}
		m.Status = FileStatus(st)
		m.LastIndexed = fromMillis(ms)
		meta[m.Path] = m
	}
	return meta, classify(rows.Err())
}

func (s *SQLiteStore) ListRoots(ctx context.Context, workspaceID string) ([]Root, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT root_id, uri FROM roots WHERE workspace_id = ? ORDER BY root_id", workspaceID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var roots []Root
	for rows.Next() {
		var r Root
		if err := rows.Scan(&r.ID, &r.URI); err != nil {
			return nil, classify(err)
		}
		roots = append(roots, r)
	}
	return roots, classify(rows.Err())
}

func (s *SQLiteStore) CountFiles(ctx context.Context, workspaceID string) (total, indexed int, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		FROM files
		WHERE workspace_id = ? AND deleted = 0`,
		string(StatusIndexed), workspaceID,
	).Scan(&total, &indexed)
	return total, indexed, classify(err)
}

func (s *SQLiteStore) CountChunks(ctx context.Context, workspaceID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM chunks c
		JOIN files f ON f.workspace_id = c.workspace_id AND f.path = c.file_path
		WHERE c.workspace_id = ? AND f.deleted = 0`,
		workspaceID,
	).Scan(&n)
	return n, classify(err)
}

func (s *SQLiteStore) FolderLanguageStats(ctx context.Context, workspaceID string) ([]FolderLanguageRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT folder_path, COALESCE(language_id, ''), COUNT(*), COALESCE(SUM(size), 0)
		FROM files
		WHERE workspace_id = ? AND deleted = 0
		GROUP BY folder_path, language_id
		ORDER BY folder_path, language_id`,
		workspaceID,
	)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var out []FolderLanguageRow
	for rows.Next() {
		var r FolderLanguageRow
		if err := rows.Scan(&r.Folder, &r.LanguageID, &r.Files, &r.Size); err != nil {
			return nil, classify(err)
		}
		out = append(out, r)
	}
	return out, classify(rows.Err())
}

func (s *SQLiteStore) RecentFiles(ctx context.Context, workspaceID string, limit int) ([]RecentFileRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, last_indexed_time, size, COALESCE(language_id, '')
		FROM files
		WHERE workspace_id = ? AND deleted = 0 AND last_indexed_time IS NOT NULL
		ORDER BY last_indexed_time DESC, path ASC
		LIMIT ?`,
		workspaceID, limit,
	)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var out []RecentFileRow
	for rows.Next() {
		var (
			r  RecentFileRow
			ms int64
		)
		if err := rows.Scan(&r.Path, &ms, &r.Size, &r.LanguageID); err != nil {
			return nil, classify(err)
		}
		r.LastIndexed = time.UnixMilli(ms).UTC()
		out = append(out, r)
	}
	return out, classify(rows.Err())
}

func (s *SQLiteStore) ListFileHashes(ctx context.Context, workspaceID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT path, hash FROM files WHERE workspace_id = ? AND deleted = 0", workspaceID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	hashes := make(map[string]string)
	for rows.Next() {
		var path, hash string
		if err := rows.Scan(&path, &hash); err != nil {
			return nil, classify(err)
		}
		hashes[path] = hash
	}
	return hashes, classify(rows.Err())
}

// deleteFileChunks removes chunks and embeddings of one file inside tx.
func deleteFileChunks(ctx context.Context, tx *sql.Tx, workspaceID, path string) error {
	rows, err := tx.QueryContext(ctx,
		"SELECT id FROM chunks WHERE workspace_id = ? AND file_path = ?", workspaceID, path)
	if err != nil {
		return err
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	rows.Close()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, "DELETE FROM vec_chunks WHERE chunk_rowid = ?", id); err != nil {
			return err
		}
	}
	_, err = tx.ExecContext(ctx,
		"DELETE FROM chunks WHERE workspace_id = ? AND file_path = ?", workspaceID, path)
	return err
}

func (s *SQLiteStore) UpsertFile(ctx context.Context, workspaceID string, f FileRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := deleteFileChunks(ctx, tx, workspaceID, f.Path); err != nil {
		return fmt.Errorf("drop old chunks for %s: %w", f.Path, err)
	}

	var lastIndexed sql.NullInt64
	if t, ok := f.LastIndexed.Get(); ok {
		lastIndexed = sql.NullInt64{Int64: toMillis(t), Valid: true}
	}
	var lang sql.NullString
	if f.LanguageID != "" {
		lang = sql.NullString{String: f.LanguageID, Valid: true}
	}
	status := f.Status
	if status == "" {
		status = StatusDiscovered
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO files (workspace_id, path, hash, status, last_indexed_time, size, language_id, folder_path, deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0)
		ON CONFLICT (workspace_id, path) DO UPDATE SET
			hash = excluded.hash,
			status = excluded.status,
			last_indexed_time = excluded.last_indexed_time,
			size = excluded.size,
			language_id = excluded.language_id,
			folder_path = excluded.folder_path,
			deleted = 0`,
		workspaceID, f.Path, f.Hash, string(status), lastIndexed, f.Size, lang, f.FolderPath,
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) InsertChunks(ctx context.Context, workspaceID, path string, chunks []Chunk) ([]int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO chunks (workspace_id, file_path, chunk_id, content, start_line, end_line) VALUES (?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	ids := make([]int64, 0, len(chunks))
	for _, c := range chunks {
		res, err := stmt.ExecContext(ctx, workspaceID, path, c.ChunkID, c.Content, c.StartLine, c.EndLine)
		if err != nil {
			return nil, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *SQLiteStore) InsertEmbeddings(ctx context.Context, rowIDs []int64, embeddings [][]float32) error {
	if len(rowIDs) != len(embeddings) {
		return fmt.Errorf("mismatched chunk IDs (%d) and embeddings (%d)", len(rowIDs), len(embeddings))
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO vec_chunks (chunk_rowid, embedding) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, id := range rowIDs {
		blob, err := sqlite_vec.SerializeFloat32(embeddings[i])
		if err != nil {
			return fmt.Errorf("serialize embedding for chunk %d: %w", id, err)
		}
		if _, err := stmt.ExecContext(ctx, id, blob); err != nil {
			return fmt.Errorf("insert embedding for chunk %d: %w", id, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) UpsertRoot(ctx context.Context, workspaceID string, r Root) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO roots (workspace_id, root_id, uri) VALUES (?, ?, ?)
		ON CONFLICT (workspace_id, root_id) DO UPDATE SET uri = excluded.uri`,
		workspaceID, r.ID, r.URI,
	)
	return err
}

func (s *SQLiteStore) MarkDeleted(ctx context.Context, workspaceID, prefix string, keep map[string]bool) (int, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT path FROM files WHERE workspace_id = ? AND deleted = 0", workspaceID)
	if err != nil {
		return 0, err
	}
	var gone []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			rows.Close()
			return 0, err
		}
		if strings.HasPrefix(p, prefix) && !keep[p] {
			gone = append(gone, p)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(gone) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	for _, p := range gone {
		if err := deleteFileChunks(ctx, tx, workspaceID, p); err != nil {
			return 0, fmt.Errorf("drop chunks for %s: %w", p, err)
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE files SET deleted = 1 WHERE workspace_id = ? AND path = ?", workspaceID, p); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(gone), nil
}

func (s *SQLiteStore) VectorSearch(ctx context.Context, workspaceID string, embedding []float32, k int) ([]SearchResult, error) {
	blob, err := sqlite_vec.SerializeFloat32(embedding)
	if err != nil {
		return nil, fmt.Errorf("serialize query embedding: %w", err)
	}
	// The KNN scan is not workspace-aware, so over-fetch before filtering.
	rows, err := s.db.QueryContext(ctx, `
		WITH knn AS (
			SELECT chunk_rowid, distance
			FROM vec_chunks
			WHERE embedding MATCH ? AND k = ?
		)
		SELECT c.file_path, c.chunk_id, c.content, c.start_line, c.end_line, knn.distance
		FROM knn
		JOIN chunks c ON c.id = knn.chunk_rowid
		JOIN files f ON f.workspace_id = c.workspace_id AND f.path = c.file_path
		WHERE c.workspace_id = ? AND f.deleted = 0
		ORDER BY knn.distance
		LIMIT ?`,
		blob, k*4, workspaceID, k,
	)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Row.FilePath, &r.Row.ChunkID, &r.Row.Content, &r.Row.StartLine, &r.Row.EndLine, &r.Distance); err != nil {
			return nil, classify(err)
		}
		results = append(results, r)
	}
	return results, classify(rows.Err())
}

func (s *SQLiteStore) LexicalSearch(ctx context.Context, workspaceID string, terms []string, k int) ([]LexicalResult, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	parts := make([]string, len(terms))
	args := make([]any, 0, len(terms)+2)
	for i, t := range terms {
		parts[i] = "(instr(lower(c.content), ?) > 0)"
		args = append(args, strings.ToLower(t))
	}
	args = append(args, workspaceID, k)

	rows, err := s.db.QueryContext(ctx, `
		SELECT file_path, chunk_id, content, start_line, end_line, matched
		FROM (
			SELECT c.id, c.file_path, c.chunk_id, c.content, c.start_line, c.end_line,
			       `+strings.Join(parts, " + ")+` AS matched
			FROM chunks c
			JOIN files f ON f.workspace_id = c.workspace_id AND f.path = c.file_path
			WHERE c.workspace_id = ? AND f.deleted = 0
		)
		WHERE matched > 0
		ORDER BY matched DESC, id ASC
		LIMIT ?`,
		args...,
	)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var results []LexicalResult
	for rows.Next() {
		var r LexicalResult
		if err := rows.Scan(&r.Row.FilePath, &r.Row.ChunkID, &r.Row.Content, &r.Row.StartLine, &r.Row.EndLine, &r.Matched); err != nil {
			return nil, classify(err)
		}
		results = append(results, r)
	}
	return results, classify(rows.Err())
}

func (s *SQLiteStore) GetMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (s *SQLiteStore) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

func (s *SQLiteStore) DeleteWorkspace(ctx context.Context, workspaceID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, "SELECT id FROM chunks WHERE workspace_id = ?", workspaceID)
	if err != nil {
		return err
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	rows.Close()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, "DELETE FROM vec_chunks WHERE chunk_rowid = ?", id); err != nil {
			return err
		}
	}
	for _, q := range []string{
		"DELETE FROM chunks WHERE workspace_id = ?",
		"DELETE FROM files WHERE workspace_id = ?",
		"DELETE FROM roots WHERE workspace_id = ?",
	} {
		if _, err := tx.ExecContext(ctx, q, workspaceID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
