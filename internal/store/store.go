// Package store persists one ingestion run's records into a normalized,
// content-addressed SQLite schema: chunks, content blobs, their mapping,
// file pointers, symbols, references, and branch heads/policies, plus
// the transient upload_chunks table the manifest finalize step drains.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // pure Go SQLite driver
)

// Store is a SQLite-backed persistence layer for the indexing schema.
type Store struct {
	db *sql.DB
}

// Open creates (or reopens) a Store at path. ":memory:" is accepted for
// tests. A single connection is used for every database; for ":memory:"
// this matters because the connection pool otherwise hands different
// goroutines distinct, empty in-memory databases.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close() // #nosec G104 -- best-effort cleanup, pragma error is what's returned
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close() // #nosec G104 -- best-effort cleanup, schema init error is what's returned
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for packages (retention, admin
// tooling) that need transactional control this type doesn't wrap.
func (s *Store) DB() *sql.DB {
	return s.db
}

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	chunk_hash TEXT PRIMARY KEY,
	text_content TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS content_blobs (
	hash TEXT PRIMARY KEY,
	language TEXT,
	byte_len INTEGER NOT NULL,
	line_count INTEGER NOT NULL
);

CREATE VIRTUAL TABLE IF NOT EXISTS content_blobs_fts USING fts5(
	hash UNINDEXED,
	content,
	tokenize='porter unicode61'
);

CREATE TABLE IF NOT EXISTS content_blob_chunks (
	content_hash TEXT NOT NULL REFERENCES content_blobs(hash),
	chunk_hash TEXT NOT NULL REFERENCES chunks(chunk_hash),
	chunk_index INTEGER NOT NULL,
	chunk_line_count INTEGER NOT NULL,
	PRIMARY KEY (content_hash, chunk_index)
);
CREATE INDEX IF NOT EXISTS idx_content_blob_chunks_chunk_hash ON content_blob_chunks(chunk_hash);

CREATE TABLE IF NOT EXISTS file_pointers (
	repository TEXT NOT NULL,
	commit_sha TEXT NOT NULL,
	file_path TEXT NOT NULL,
	content_hash TEXT NOT NULL REFERENCES content_blobs(hash),
	PRIMARY KEY (repository, commit_sha, file_path)
);
CREATE INDEX IF NOT EXISTS idx_file_pointers_content_hash ON file_pointers(content_hash);

CREATE TABLE IF NOT EXISTS symbols (
	content_hash TEXT NOT NULL REFERENCES content_blobs(hash),
	namespace TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL,
	kind TEXT NOT NULL,
	fully_qualified TEXT NOT NULL,
	PRIMARY KEY (content_hash, namespace, name, kind)
);
CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);
CREATE INDEX IF NOT EXISTS idx_symbols_fully_qualified ON symbols(fully_qualified);

CREATE TABLE IF NOT EXISTS symbol_references (
	content_hash TEXT NOT NULL REFERENCES content_blobs(hash),
	namespace TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL,
	fully_qualified TEXT NOT NULL,
	kind TEXT NOT NULL,
	line INTEGER NOT NULL,
	"column" INTEGER NOT NULL,
	PRIMARY KEY (content_hash, namespace, name, line, "column", kind)
);
CREATE INDEX IF NOT EXISTS idx_symbol_references_name ON symbol_references(name);

CREATE TABLE IF NOT EXISTS branch_heads (
	repository TEXT NOT NULL,
	branch TEXT NOT NULL,
	commit_sha TEXT NOT NULL,
	indexed_at INTEGER NOT NULL,
	PRIMARY KEY (repository, branch)
);

CREATE TABLE IF NOT EXISTS branch_policies (
	repository TEXT NOT NULL,
	branch TEXT NOT NULL,
	latest_keep_count INTEGER NOT NULL DEFAULT 1,
	is_live INTEGER,
	PRIMARY KEY (repository, branch)
);

CREATE TABLE IF NOT EXISTS branch_snapshot_policies (
	repository TEXT NOT NULL,
	branch TEXT NOT NULL,
	interval_seconds INTEGER NOT NULL,
	keep_count INTEGER NOT NULL,
	PRIMARY KEY (repository, branch, interval_seconds)
);

CREATE TABLE IF NOT EXISTS branch_snapshots (
	repository TEXT NOT NULL,
	branch TEXT NOT NULL,
	commit_sha TEXT NOT NULL,
	indexed_at INTEGER NOT NULL,
	PRIMARY KEY (repository, branch, commit_sha)
);

CREATE TABLE IF NOT EXISTS upload_chunks (
	upload_id TEXT NOT NULL,
	chunk_index INTEGER NOT NULL,
	total_chunks INTEGER NOT NULL,
	data BLOB NOT NULL,
	PRIMARY KEY (upload_id, chunk_index)
);

CREATE TRIGGER IF NOT EXISTS content_blobs_fts_ad AFTER DELETE ON content_blobs BEGIN
	DELETE FROM content_blobs_fts WHERE hash = old.hash;
END;
`

func (s *Store) initSchema() error {
	_, err := s.db.Exec(schema)
	return err
}
