package store

import "database/sql"

// EmbeddingDims is the vector width of vec_chunks.
const EmbeddingDims = 768

const ddl = `
PRAGMA journal_mode=WAL;
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS files (
    workspace_id      TEXT    NOT NULL,
    path              TEXT    NOT NULL,
    hash              TEXT    NOT NULL DEFAULT '',
    status            TEXT    NOT NULL DEFAULT 'discovered',
    last_indexed_time INTEGER,
    size              INTEGER NOT NULL DEFAULT 0,
    language_id       TEXT,
    folder_path       TEXT    NOT NULL DEFAULT '',
    deleted           INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (workspace_id, path)
);

CREATE INDEX IF NOT EXISTS idx_files_recent
    ON files (workspace_id, deleted, last_indexed_time);
CREATE INDEX IF NOT EXISTS idx_files_folder
    ON files (workspace_id, folder_path, language_id);

CREATE TABLE IF NOT EXISTS chunks (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    workspace_id TEXT    NOT NULL,
    file_path    TEXT    NOT NULL,
    chunk_id     TEXT    NOT NULL,
    content      TEXT    NOT NULL,
    start_line   INTEGER NOT NULL,
    end_line     INTEGER NOT NULL,
    UNIQUE (workspace_id, file_path, chunk_id)
);

CREATE TABLE IF NOT EXISTS roots (
    workspace_id TEXT NOT NULL,
    root_id      TEXT NOT NULL,
    uri          TEXT NOT NULL,
    PRIMARY KEY (workspace_id, root_id)
);

CREATE VIRTUAL TABLE IF NOT EXISTS vec_chunks USING vec0(
    chunk_rowid INTEGER PRIMARY KEY,
    embedding float[768]
);

CREATE TABLE IF NOT EXISTS meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// Init creates the schema tables if they don't exist.
func Init(db *sql.DB) error {
	_, err := db.Exec(ddl)
	return err
}
