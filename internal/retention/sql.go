package retention

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

func loadBranchPolicies(ctx context.Context, db *sql.DB) ([]branchPolicyRow, error) {
	rows, err := db.QueryContext(ctx, `SELECT repository, branch, latest_keep_count FROM branch_policies`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []branchPolicyRow
	for rows.Next() {
		var r branchPolicyRow
		if err := rows.Scan(&r.repository, &r.branch, &r.latestKeepCount); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func loadSnapshotPolicies(ctx context.Context, db *sql.DB) (map[branchKey][]snapshotPolicySpec, error) {
	rows, err := db.QueryContext(ctx, `SELECT repository, branch, interval_seconds, keep_count FROM branch_snapshot_policies`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[branchKey][]snapshotPolicySpec)
	for rows.Next() {
		var repository, branch string
		var spec snapshotPolicySpec
		if err := rows.Scan(&repository, &branch, &spec.intervalSeconds, &spec.keepCount); err != nil {
			return nil, err
		}
		if spec.intervalSeconds <= 0 || spec.keepCount <= 0 {
			continue
		}
		key := branchKey{repository, branch}
		out[key] = append(out[key], spec)
	}
	return out, rows.Err()
}

func loadSnapshots(ctx context.Context, db *sql.DB, repository, branch string) ([]snapshotRow, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT commit_sha, indexed_at
		FROM branch_snapshots
		WHERE repository = ? AND branch = ?
		ORDER BY indexed_at DESC`, repository, branch)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []snapshotRow
	for rows.Next() {
		var sha string
		var indexedAtUnix int64
		if err := rows.Scan(&sha, &indexedAtUnix); err != nil {
			return nil, err
		}
		out = append(out, snapshotRow{commitSHA: sha, indexedAt: time.Unix(indexedAtUnix, 0).UTC()})
	}
	return out, rows.Err()
}

func deleteSnapshots(ctx context.Context, db *sql.DB, repository, branch string, commits []string) error {
	return execInClauseNoTx(ctx, db, `DELETE FROM branch_snapshots WHERE repository = ? AND branch = ? AND commit_sha IN (%s)`, []string{repository, branch}, commits)
}

// distinctContentHashes runs query (which must end in the IN-clause
// position being supplied by extra positional args already bound
// ahead of the LIMIT, if any) and collects the single string column.
func distinctContentHashes(ctx context.Context, tx *sql.Tx, query string, args ...any) ([]string, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		hashes = append(hashes, h)
	}
	return hashes, rows.Err()
}

// pruneOrphanedBlobs deletes symbols, references, chunk mappings, and
// content blobs for any hash in candidates that no remaining
// file_pointers row still references.
func pruneOrphanedBlobs(ctx context.Context, tx *sql.Tx, candidates []string) error {
	if len(candidates) == 0 {
		return nil
	}

	orphaned, err := distinctContentHashesIn(ctx, tx, `
		SELECT hash FROM content_blobs WHERE hash IN (%s)
		AND NOT EXISTS (SELECT 1 FROM file_pointers WHERE file_pointers.content_hash = content_blobs.hash)`, candidates)
	if err != nil {
		return fmt.Errorf("find orphaned blobs: %w", err)
	}
	if len(orphaned) == 0 {
		return nil
	}

	// content_blobs_fts is kept in sync by the schema's own AFTER
	// DELETE trigger on content_blobs; no separate delete needed here.
	statements := []string{
		`DELETE FROM symbol_references WHERE content_hash IN (%s)`,
		`DELETE FROM symbols WHERE content_hash IN (%s)`,
		`DELETE FROM content_blob_chunks WHERE content_hash IN (%s)`,
		`DELETE FROM content_blobs WHERE hash IN (%s)`,
	}
	for _, stmt := range statements {
		if _, err := execInClause(ctx, tx, stmt, nil, orphaned); err != nil {
			return fmt.Errorf("cascade delete (%s): %w", stmt, err)
		}
	}

	return nil
}

// pruneOrphanedChunks deletes any chunk no longer referenced by
// content_blob_chunks.
func pruneOrphanedChunks(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		DELETE FROM chunks WHERE NOT EXISTS (
			SELECT 1 FROM content_blob_chunks WHERE content_blob_chunks.chunk_hash = chunks.chunk_hash
		)`)
	if err != nil {
		return fmt.Errorf("prune orphaned chunks: %w", err)
	}
	return nil
}

func distinctContentHashesIn(ctx context.Context, tx *sql.Tx, template string, hashes []string) ([]string, error) {
	query, args := inClauseSQL(template, hashes)
	return distinctContentHashes(ctx, tx, query, args...)
}

// execInClause runs template, which must have any scalar `?`
// placeholders first (bound from leadingArgs, in order) followed by
// exactly one `%s` placeholder for the IN-list built from inValues.
func execInClause(ctx context.Context, tx *sql.Tx, template string, leadingArgs []string, inValues []string) (sql.Result, error) {
	placeholders := make([]string, len(inValues))
	args := make([]any, 0, len(leadingArgs)+len(inValues))
	for _, a := range leadingArgs {
		args = append(args, a)
	}
	for i, v := range inValues {
		placeholders[i] = "?"
		args = append(args, v)
	}
	query := fmt.Sprintf(template, strings.Join(placeholders, ","))
	return tx.ExecContext(ctx, query, args...)
}

func execInClauseNoTx(ctx context.Context, db *sql.DB, template string, leadingArgs []string, inValues []string) error {
	placeholders := make([]string, len(inValues))
	args := make([]any, 0, len(leadingArgs)+len(inValues))
	for _, a := range leadingArgs {
		args = append(args, a)
	}
	for i, v := range inValues {
		placeholders[i] = "?"
		args = append(args, v)
	}
	query := fmt.Sprintf(template, strings.Join(placeholders, ","))
	_, err := db.ExecContext(ctx, query, args...)
	return err
}

func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func inClauseSQL(template string, values []string) (string, []any) {
	placeholders := make([]string, len(values))
	args := make([]any, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		args[i] = v
	}
	return fmt.Sprintf(template, strings.Join(placeholders, ",")), args
}
