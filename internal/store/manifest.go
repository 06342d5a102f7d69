package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ferg-cod3s/pointerindex/internal/recordstore"
)

// UploadChunkRow is one stored slice of a manifest upload, ordered by
// ChunkIndex within an upload_id.
type UploadChunkRow struct {
	ChunkIndex  int
	TotalChunks int
	Data        []byte
}

// PutUploadChunk upserts one manifest chunk, keyed by (uploadID,
// chunkIndex); a retried chunk overwrites its own data and total count.
func (s *Store) PutUploadChunk(ctx context.Context, uploadID string, chunkIndex, totalChunks int, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO upload_chunks (upload_id, chunk_index, total_chunks, data)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (upload_id, chunk_index) DO UPDATE SET total_chunks = excluded.total_chunks, data = excluded.data`,
		uploadID, chunkIndex, totalChunks, data)
	if err != nil {
		return fmt.Errorf("put upload chunk %s[%d]: %w", uploadID, chunkIndex, err)
	}
	return nil
}

// UploadChunks returns every stored chunk for uploadID, ordered by
// chunk_index ascending.
func (s *Store) UploadChunks(ctx context.Context, uploadID string) ([]UploadChunkRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_index, total_chunks, data FROM upload_chunks
		WHERE upload_id = ? ORDER BY chunk_index ASC`, uploadID)
	if err != nil {
		return nil, fmt.Errorf("list upload chunks for %s: %w", uploadID, err)
	}
	defer rows.Close()

	var out []UploadChunkRow
	for rows.Next() {
		var r UploadChunkRow
		if err := rows.Scan(&r.ChunkIndex, &r.TotalChunks, &r.Data); err != nil {
			return nil, fmt.Errorf("scan upload chunk row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteUploadChunks removes every chunk stored for uploadID, completing
// the Receiving/Finalizing → Cleaned transition.
func (s *Store) DeleteUploadChunks(ctx context.Context, uploadID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM upload_chunks WHERE upload_id = ?`, uploadID)
	if err != nil {
		return fmt.Errorf("delete upload chunks for %s: %w", uploadID, err)
	}
	return nil
}

// WithTx runs fn inside a single transaction, committing on success and
// rolling back on any error fn returns. Exposed for callers (the manifest
// finalize handler) that must compose several store writes atomically.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ApplyBranchPolicy upserts a branch's retention policy: its
// latest-keep-count plus a full replacement of its interval-bucketed
// snapshot policies.
func (s *Store) ApplyBranchPolicy(ctx context.Context, repository, branch string, latestKeepCount int, snapshotPolicies []recordstore.BranchSnapshotPolicy) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO branch_policies (repository, branch, latest_keep_count)
			VALUES (?, ?, ?)
			ON CONFLICT (repository, branch) DO UPDATE SET latest_keep_count = excluded.latest_keep_count`,
			repository, branch, latestKeepCount); err != nil {
			return fmt.Errorf("upsert branch policy %s/%s: %w", repository, branch, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM branch_snapshot_policies WHERE repository = ? AND branch = ?`, repository, branch); err != nil {
			return fmt.Errorf("clear snapshot policies %s/%s: %w", repository, branch, err)
		}

		for _, sp := range snapshotPolicies {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO branch_snapshot_policies (repository, branch, interval_seconds, keep_count)
				VALUES (?, ?, ?, ?)`,
				repository, branch, sp.IntervalSeconds, sp.KeepCount); err != nil {
				return fmt.Errorf("insert snapshot policy %s/%s@%ds: %w", repository, branch, sp.IntervalSeconds, err)
			}
		}
		return nil
	})
}

// RecordSnapshot inserts (or refreshes the timestamp of) one branch
// snapshot row directly, for the administrative on-demand snapshot
// endpoint — independent of the ordinary ingest-time side effect on
// Store.UpsertBranchHeads.
func (s *Store) RecordSnapshot(ctx context.Context, repository, branch, commitSHA string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO branch_snapshots (repository, branch, commit_sha, indexed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (repository, branch, commit_sha) DO UPDATE SET indexed_at = excluded.indexed_at`,
		repository, branch, commitSHA, timeNowUnix())
	if err != nil {
		return fmt.Errorf("record snapshot %s/%s@%s: %w", repository, branch, commitSHA, err)
	}
	return nil
}
