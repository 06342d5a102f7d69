package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ferg-cod3s/pointerindex/internal/recordstore"
)

// batchSize bounds every multi-row statement this package builds, to
// keep individual statements from growing unbounded on a large run.
const batchSize = 1000

// UpsertChunks inserts chunks not already present, keyed by chunk_hash.
// Existing rows are left untouched: chunk content is immutable once
// hashed.
func (s *Store) UpsertChunks(ctx context.Context, chunks []recordstore.UniqueChunk) error {
	return s.inBatches(ctx, len(chunks), func(tx *sql.Tx, start, end int) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (chunk_hash, text_content) VALUES (?, ?)
			ON CONFLICT (chunk_hash) DO NOTHING`)
		if err != nil {
			return fmt.Errorf("prepare chunk upsert: %w", err)
		}
		defer stmt.Close()

		for _, c := range chunks[start:end] {
			if _, err := stmt.ExecContext(ctx, c.ChunkHash, c.TextContent); err != nil {
				return fmt.Errorf("upsert chunk %s: %w", c.ChunkHash, err)
			}
		}
		return nil
	})
}

// MissingChunkHashes reports which of hashes have no row in chunks yet.
func (s *Store) MissingChunkHashes(ctx context.Context, hashes []string) ([]string, error) {
	if len(hashes) == 0 {
		return nil, nil
	}

	present := make(map[string]struct{}, len(hashes))
	for start := 0; start < len(hashes); start += batchSize {
		end := start + batchSize
		if end > len(hashes) {
			end = len(hashes)
		}
		batch := hashes[start:end]

		query, args := inClause("SELECT chunk_hash FROM chunks WHERE chunk_hash IN (%s)", batch)
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("query existing chunks: %w", err)
		}
		for rows.Next() {
			var hash string
			if err := rows.Scan(&hash); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan chunk hash: %w", err)
			}
			present[hash] = struct{}{}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}

	missing := make([]string, 0, len(hashes))
	for _, h := range hashes {
		if _, ok := present[h]; !ok {
			missing = append(missing, h)
		}
	}
	return missing, nil
}

// UpsertContentBlobs inserts blobs not already present, keyed by hash,
// and mirrors their text into the FTS index for full-text search.
func (s *Store) UpsertContentBlobs(ctx context.Context, blobs []recordstore.ContentBlob, textByHash map[string]string) error {
	return s.inBatches(ctx, len(blobs), func(tx *sql.Tx, start, end int) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO content_blobs (hash, language, byte_len, line_count) VALUES (?, ?, ?, ?)
			ON CONFLICT (hash) DO NOTHING`)
		if err != nil {
			return fmt.Errorf("prepare blob upsert: %w", err)
		}
		defer stmt.Close()

		ftsStmt, err := tx.PrepareContext(ctx, `INSERT INTO content_blobs_fts (hash, content) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare blob fts insert: %w", err)
		}
		defer ftsStmt.Close()

		for _, b := range blobs[start:end] {
			res, err := stmt.ExecContext(ctx, b.Hash, nullableString(b.Language), b.ByteLen, b.LineCount)
			if err != nil {
				return fmt.Errorf("upsert content blob %s: %w", b.Hash, err)
			}
			inserted, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected for blob %s: %w", b.Hash, err)
			}
			if inserted == 0 {
				continue // blob already existed; text is immutable so FTS row already exists too
			}
			if text, ok := textByHash[b.Hash]; ok {
				if _, err := ftsStmt.ExecContext(ctx, b.Hash, text); err != nil {
					return fmt.Errorf("index blob %s for search: %w", b.Hash, err)
				}
			}
		}
		return nil
	})
}

// UpsertChunkMappings inserts content-blob-to-chunk mappings, idempotent
// by (content_hash, chunk_index).
func (s *Store) UpsertChunkMappings(ctx context.Context, mappings []recordstore.ChunkMapping) error {
	return s.inBatches(ctx, len(mappings), func(tx *sql.Tx, start, end int) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO content_blob_chunks (content_hash, chunk_hash, chunk_index, chunk_line_count)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (content_hash, chunk_index) DO NOTHING`)
		if err != nil {
			return fmt.Errorf("prepare mapping upsert: %w", err)
		}
		defer stmt.Close()

		for _, m := range mappings[start:end] {
			if _, err := stmt.ExecContext(ctx, m.ContentHash, m.ChunkHash, m.ChunkIndex, m.ChunkLineCount); err != nil {
				return fmt.Errorf("upsert chunk mapping for %s[%d]: %w", m.ContentHash, m.ChunkIndex, err)
			}
		}
		return nil
	})
}

// UpsertFilePointers inserts or rebinds file pointers: a conflict on
// (repository, commit_sha, file_path) overwrites content_hash, since a
// path at a commit may be reindexed against different content.
func (s *Store) UpsertFilePointers(ctx context.Context, pointers []recordstore.FilePointer) error {
	return s.inBatches(ctx, len(pointers), func(tx *sql.Tx, start, end int) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO file_pointers (repository, commit_sha, file_path, content_hash)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (repository, commit_sha, file_path) DO UPDATE SET content_hash = excluded.content_hash`)
		if err != nil {
			return fmt.Errorf("prepare file pointer upsert: %w", err)
		}
		defer stmt.Close()

		for _, p := range pointers[start:end] {
			if _, err := stmt.ExecContext(ctx, p.Repository, p.CommitSHA, p.FilePath, p.ContentHash); err != nil {
				return fmt.Errorf("upsert file pointer %s@%s:%s: %w", p.Repository, p.CommitSHA, p.FilePath, err)
			}
		}
		return nil
	})
}

// UpsertSymbols inserts symbol records; a conflict on the key updates
// fully_qualified, since non-key attributes may legitimately evolve.
func (s *Store) UpsertSymbols(ctx context.Context, symbols []recordstore.SymbolRecord) error {
	return s.inBatches(ctx, len(symbols), func(tx *sql.Tx, start, end int) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO symbols (content_hash, namespace, name, kind, fully_qualified)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (content_hash, namespace, name, kind) DO UPDATE SET fully_qualified = excluded.fully_qualified`)
		if err != nil {
			return fmt.Errorf("prepare symbol upsert: %w", err)
		}
		defer stmt.Close()

		for _, sym := range symbols[start:end] {
			if _, err := stmt.ExecContext(ctx, sym.ContentHash, sym.Namespace, sym.Name, sym.Kind, sym.FullyQualified); err != nil {
				return fmt.Errorf("upsert symbol %s: %w", sym.Name, err)
			}
		}
		return nil
	})
}

// UpsertReferences inserts reference records; a conflict on the key is a
// no-op, since a located occurrence's position is an immutable fact.
func (s *Store) UpsertReferences(ctx context.Context, refs []recordstore.ReferenceRecord) error {
	return s.inBatches(ctx, len(refs), func(tx *sql.Tx, start, end int) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO symbol_references (content_hash, namespace, name, fully_qualified, kind, line, "column")
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (content_hash, namespace, name, line, "column", kind) DO NOTHING`)
		if err != nil {
			return fmt.Errorf("prepare reference upsert: %w", err)
		}
		defer stmt.Close()

		for _, ref := range refs[start:end] {
			if _, err := stmt.ExecContext(ctx, ref.ContentHash, ref.Namespace, ref.Name, ref.FullyQualified, ref.Kind, ref.Line, ref.Column); err != nil {
				return fmt.Errorf("upsert reference %s: %w", ref.Name, err)
			}
		}
		return nil
	})
}

// UpsertBranchHeads inserts or advances branch heads; a conflict on
// (repository, branch) updates commit_sha and stamps indexed_at to now.
func (s *Store) UpsertBranchHeads(ctx context.Context, heads []recordstore.BranchHead) error {
	now := time.Now().Unix()
	return s.inBatches(ctx, len(heads), func(tx *sql.Tx, start, end int) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO branch_heads (repository, branch, commit_sha, indexed_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (repository, branch) DO UPDATE SET commit_sha = excluded.commit_sha, indexed_at = excluded.indexed_at`)
		if err != nil {
			return fmt.Errorf("prepare branch head upsert: %w", err)
		}
		defer stmt.Close()

		for _, h := range heads[start:end] {
			if _, err := stmt.ExecContext(ctx, h.Repository, h.Branch, h.CommitSHA, now); err != nil {
				return fmt.Errorf("upsert branch head %s/%s: %w", h.Repository, h.Branch, err)
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO branch_snapshots (repository, branch, commit_sha, indexed_at)
				VALUES (?, ?, ?, ?)
				ON CONFLICT (repository, branch, commit_sha) DO UPDATE SET indexed_at = excluded.indexed_at`,
				h.Repository, h.Branch, h.CommitSHA, now); err != nil {
				return fmt.Errorf("snapshot branch head %s/%s: %w", h.Repository, h.Branch, err)
			}
			if h.Policy != nil {
				if err := s.upsertBranchPolicyTx(ctx, tx, h.Repository, h.Branch, *h.Policy); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (s *Store) upsertBranchPolicyTx(ctx context.Context, tx *sql.Tx, repository, branch string, policy recordstore.BranchPolicy) error {
	var isLive sql.NullBool
	if policy.IsLive != nil {
		isLive = sql.NullBool{Bool: *policy.IsLive, Valid: true}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO branch_policies (repository, branch, latest_keep_count, is_live)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (repository, branch) DO UPDATE SET latest_keep_count = excluded.latest_keep_count, is_live = excluded.is_live`,
		repository, branch, policy.LatestKeepCount, isLive); err != nil {
		return fmt.Errorf("upsert branch policy %s/%s: %w", repository, branch, err)
	}

	for _, sp := range policy.SnapshotPolicies {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO branch_snapshot_policies (repository, branch, interval_seconds, keep_count)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (repository, branch, interval_seconds) DO UPDATE SET keep_count = excluded.keep_count`,
			repository, branch, sp.IntervalSeconds, sp.KeepCount); err != nil {
			return fmt.Errorf("upsert snapshot policy %s/%s@%ds: %w", repository, branch, sp.IntervalSeconds, err)
		}
	}

	return nil
}

// inBatches runs fn against successive row-index windows of size
// batchSize, each inside its own transaction.
func (s *Store) inBatches(ctx context.Context, total int, fn func(tx *sql.Tx, start, end int) error) error {
	if total == 0 {
		return nil
	}

	for start := 0; start < total; start += batchSize {
		end := start + batchSize
		if end > total {
			end = total
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		if err := fn(tx, start, end); err != nil {
			_ = tx.Rollback()
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
	}

	return nil
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func inClause(template string, values []string) (string, []any) {
	placeholders := make([]byte, 0, len(values)*2)
	args := make([]any, len(values))
	for i, v := range values {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args[i] = v
	}
	return fmt.Sprintf(template, string(placeholders)), args
}
