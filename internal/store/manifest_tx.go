package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ferg-cod3s/pointerindex/internal/recordstore"
)

func timeNowUnix() int64 {
	return time.Now().Unix()
}

// Transaction-scoped upsert variants used by manifest finalize: the whole
// reassembled report ingests inside the caller's single transaction (§4.5),
// unlike the standalone bulk-upload endpoints, which each manage their own
// batch-sized transactions via Store.inBatches.

func upsertContentBlobsTx(ctx context.Context, tx *sql.Tx, blobs []recordstore.ContentBlob) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO content_blobs (hash, language, byte_len, line_count) VALUES (?, ?, ?, ?)
		ON CONFLICT (hash) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("prepare blob upsert: %w", err)
	}
	defer stmt.Close()

	for _, b := range blobs {
		if _, err := stmt.ExecContext(ctx, b.Hash, nullableString(b.Language), b.ByteLen, b.LineCount); err != nil {
			return fmt.Errorf("upsert content blob %s: %w", b.Hash, err)
		}
	}
	return nil
}

func upsertFilePointersTx(ctx context.Context, tx *sql.Tx, pointers []recordstore.FilePointer) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO file_pointers (repository, commit_sha, file_path, content_hash)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (repository, commit_sha, file_path) DO UPDATE SET content_hash = excluded.content_hash`)
	if err != nil {
		return fmt.Errorf("prepare file pointer upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range pointers {
		if _, err := stmt.ExecContext(ctx, p.Repository, p.CommitSHA, p.FilePath, p.ContentHash); err != nil {
			return fmt.Errorf("upsert file pointer %s@%s:%s: %w", p.Repository, p.CommitSHA, p.FilePath, err)
		}
	}
	return nil
}

func upsertSymbolsTx(ctx context.Context, tx *sql.Tx, symbols []recordstore.SymbolRecord) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO symbols (content_hash, namespace, name, kind, fully_qualified)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (content_hash, namespace, name, kind) DO UPDATE SET fully_qualified = excluded.fully_qualified`)
	if err != nil {
		return fmt.Errorf("prepare symbol upsert: %w", err)
	}
	defer stmt.Close()

	for _, sym := range symbols {
		if _, err := stmt.ExecContext(ctx, sym.ContentHash, sym.Namespace, sym.Name, sym.Kind, sym.FullyQualified); err != nil {
			return fmt.Errorf("upsert symbol %s: %w", sym.Name, err)
		}
	}
	return nil
}

func upsertReferencesTx(ctx context.Context, tx *sql.Tx, refs []recordstore.ReferenceRecord) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO symbol_references (content_hash, namespace, name, fully_qualified, kind, line, "column")
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (content_hash, namespace, name, line, "column", kind) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("prepare reference upsert: %w", err)
	}
	defer stmt.Close()

	for _, ref := range refs {
		if _, err := stmt.ExecContext(ctx, ref.ContentHash, ref.Namespace, ref.Name, ref.FullyQualified, ref.Kind, ref.Line, ref.Column); err != nil {
			return fmt.Errorf("upsert reference %s: %w", ref.Name, err)
		}
	}
	return nil
}

func upsertBranchHeadsTx(ctx context.Context, tx *sql.Tx, heads []recordstore.BranchHead, now int64) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO branch_heads (repository, branch, commit_sha, indexed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (repository, branch) DO UPDATE SET commit_sha = excluded.commit_sha, indexed_at = excluded.indexed_at`)
	if err != nil {
		return fmt.Errorf("prepare branch head upsert: %w", err)
	}
	defer stmt.Close()

	for _, h := range heads {
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
			if err := upsertBranchPolicyStmt(ctx, tx, h.Repository, h.Branch, *h.Policy); err != nil {
				return err
			}
		}
	}
	return nil
}

func upsertBranchPolicyStmt(ctx context.Context, tx *sql.Tx, repository, branch string, policy recordstore.BranchPolicy) error {
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

// ManifestReport is the parsed shape of one finalized manifest: every
// section a report may carry. SymbolNamespaces is accepted for schema
// compatibility but carries no dedicated table — namespace strings live
// directly on SymbolRecord/ReferenceRecord rows.
type ManifestReport struct {
	ContentBlobs     []recordstore.ContentBlob
	FilePointers     []recordstore.FilePointer
	SymbolRecords    []recordstore.SymbolRecord
	SymbolNamespaces []recordstore.SymbolNamespaceRecord
	ReferenceRecords []recordstore.ReferenceRecord
	Branches         []recordstore.BranchHead
}

// IngestManifest applies every section of report inside a single
// transaction, in join-dependency order (blobs, then file pointers, then
// symbols, then references, then branch heads), so a failure at any point
// rolls back the entire manifest.
func (s *Store) IngestManifest(ctx context.Context, report ManifestReport) error {
	now := timeNowUnix()
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		if err := upsertContentBlobsTx(ctx, tx, report.ContentBlobs); err != nil {
			return err
		}
		if err := upsertFilePointersTx(ctx, tx, report.FilePointers); err != nil {
			return err
		}
		if err := upsertSymbolsTx(ctx, tx, report.SymbolRecords); err != nil {
			return err
		}
		if err := upsertReferencesTx(ctx, tx, report.ReferenceRecords); err != nil {
			return err
		}
		if err := upsertBranchHeadsTx(ctx, tx, report.Branches, now); err != nil {
			return err
		}
		return nil
	})
}
