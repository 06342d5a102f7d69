// Package retention implements the periodic garbage collector that
// prunes old branch snapshots and the commit data they alone kept
// alive: keep-set computation over each branch's retention policy,
// commit-data pruning guarded by a protection check, and the
// administrative repository/branch-wide pruning variants.
package retention

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ferg-cod3s/pointerindex/internal/store"
)

// Outcome reports what one GC pass did, for logging and health
// reporting.
type Outcome struct {
	BranchesEvaluated int
	SnapshotsRemoved  int
	CommitsPruned     int
}

// Collector runs garbage collection passes against a Store.
type Collector struct {
	store *store.Store
}

func New(s *store.Store) *Collector {
	return &Collector{store: s}
}

type branchPolicyRow struct {
	repository      string
	branch          string
	latestKeepCount int
}

type snapshotPolicySpec struct {
	intervalSeconds int64
	keepCount       int
}

type snapshotRow struct {
	commitSHA string
	indexedAt time.Time
}

// RunOnce evaluates every branch's retention policy, deletes
// BranchSnapshot rows outside the keep set, and prunes any commit data
// no longer protected by a remaining snapshot or branch head.
func (c *Collector) RunOnce(ctx context.Context) (Outcome, error) {
	var outcome Outcome
	db := c.store.DB()

	policies, err := loadBranchPolicies(ctx, db)
	if err != nil {
		return outcome, fmt.Errorf("load branch policies: %w", err)
	}
	if len(policies) == 0 {
		return outcome, nil
	}

	snapshotPolicies, err := loadSnapshotPolicies(ctx, db)
	if err != nil {
		return outcome, fmt.Errorf("load snapshot policies: %w", err)
	}

	for _, policy := range policies {
		snapshots, err := loadSnapshots(ctx, db, policy.repository, policy.branch)
		if err != nil {
			return outcome, fmt.Errorf("load snapshots for %s/%s: %w", policy.repository, policy.branch, err)
		}
		if len(snapshots) == 0 {
			continue
		}

		specs := snapshotPolicies[branchKey{policy.repository, policy.branch}]
		keep := computeKeepSet(snapshots, policy.latestKeepCount, specs, time.Now())

		var removals []string
		for _, snap := range snapshots {
			if _, ok := keep[snap.commitSHA]; !ok {
				removals = append(removals, snap.commitSHA)
			}
		}

		outcome.BranchesEvaluated++
		if len(removals) == 0 {
			continue
		}

		if err := deleteSnapshots(ctx, db, policy.repository, policy.branch, removals); err != nil {
			return outcome, fmt.Errorf("delete snapshots for %s/%s: %w", policy.repository, policy.branch, err)
		}
		outcome.SnapshotsRemoved += len(removals)

		for _, commit := range removals {
			protected, err := c.commitIsProtected(ctx, policy.repository, commit)
			if err != nil {
				return outcome, fmt.Errorf("check protection for %s@%s: %w", policy.repository, commit, err)
			}
			if protected {
				continue
			}

			pruned, err := c.PruneCommitData(ctx, policy.repository, commit)
			if err != nil {
				return outcome, fmt.Errorf("prune commit %s@%s: %w", policy.repository, commit, err)
			}
			if pruned {
				outcome.CommitsPruned++
			}
		}
	}

	return outcome, nil
}

type branchKey struct {
	repository string
	branch     string
}

// computeKeepSet decides which commits a branch's snapshots must
// retain: always the most recent latestKeepCount, plus the first
// snapshot to fall into each not-yet-filled bucket of every interval
// policy, bucketed by elapsed time since indexed_at.
func computeKeepSet(snapshots []snapshotRow, latestKeepCount int, specs []snapshotPolicySpec, now time.Time) map[string]struct{} {
	keep := make(map[string]struct{})

	latest := latestKeepCount
	if latest < 1 {
		latest = 1
	}
	for i, snap := range snapshots {
		if i >= latest {
			break
		}
		keep[snap.commitSHA] = struct{}{}
	}

	for _, spec := range specs {
		if spec.intervalSeconds <= 0 || spec.keepCount <= 0 {
			continue
		}
		bucketsKept := make(map[int64]struct{})
		for _, snap := range snapshots {
			elapsed := int64(now.Sub(snap.indexedAt).Seconds())
			var bucket int64
			if elapsed <= 0 {
				bucket = 0
			} else {
				bucket = elapsed / spec.intervalSeconds
			}
			if bucket >= int64(spec.keepCount) {
				continue
			}
			if _, seen := bucketsKept[bucket]; seen {
				continue
			}
			bucketsKept[bucket] = struct{}{}
			keep[snap.commitSHA] = struct{}{}
			if len(bucketsKept) >= spec.keepCount {
				break
			}
		}
	}

	return keep
}

func (c *Collector) commitIsProtected(ctx context.Context, repository, commitSHA string) (bool, error) {
	db := c.store.DB()

	var dummy string
	err := db.QueryRowContext(ctx, `SELECT commit_sha FROM branch_snapshots WHERE repository = ? AND commit_sha = ? LIMIT 1`,
		repository, commitSHA).Scan(&dummy)
	if err == nil {
		return true, nil
	}
	if err != sql.ErrNoRows {
		return false, err
	}

	err = db.QueryRowContext(ctx, `SELECT commit_sha FROM branch_heads WHERE repository = ? AND commit_sha = ? LIMIT 1`,
		repository, commitSHA).Scan(&dummy)
	if err == nil {
		return true, nil
	}
	if err != sql.ErrNoRows {
		return false, err
	}

	return false, nil
}

// PruneCommitData deletes every FilePointer for (repository,
// commitSHA), then cascade-deletes any content blob, its symbols,
// references, and chunk mappings left unreferenced by any remaining
// FilePointer, and finally any chunk left orphaned by that cascade.
// Reports whether anything was deleted.
func (c *Collector) PruneCommitData(ctx context.Context, repository, commitSHA string) (bool, error) {
	db := c.store.DB()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op once committed

	hashes, err := distinctContentHashes(ctx, tx, `SELECT DISTINCT content_hash FROM file_pointers WHERE repository = ? AND commit_sha = ?`, repository, commitSHA)
	if err != nil {
		return false, fmt.Errorf("collect content hashes: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM file_pointers WHERE repository = ? AND commit_sha = ?`, repository, commitSHA)
	if err != nil {
		return false, fmt.Errorf("delete file pointers: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if deleted == 0 {
		return false, tx.Commit()
	}

	if err := pruneOrphanedBlobs(ctx, tx, hashes); err != nil {
		return false, err
	}

	if err := pruneOrphanedChunks(ctx, tx); err != nil {
		return false, err
	}

	return true, tx.Commit()
}

// PruneRepositoryData deletes every branch head, policy, and snapshot
// for repository, then batches FilePointer deletes by batchSize until
// none remain, cascading orphan cleanup after each batch. Returns the
// total number of rows removed from the four branch tables and
// file_pointers.
func (c *Collector) PruneRepositoryData(ctx context.Context, repository string, batchSize int) (int64, error) {
	if batchSize < 1 {
		batchSize = 1
	}
	db := c.store.DB()
	var total int64

	if err := withTx(ctx, db, func(tx *sql.Tx) error {
		for _, table := range []string{"branch_heads", "branch_policies", "branch_snapshot_policies", "branch_snapshots"} {
			res, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE repository = ?`, table), repository)
			if err != nil {
				return fmt.Errorf("delete from %s: %w", table, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			total += n
		}
		return nil
	}); err != nil {
		return total, err
	}

	for {
		more, deleted, err := c.pruneFilePointerBatch(ctx, repository, batchSize)
		if err != nil {
			return total, err
		}
		total += deleted
		if !more {
			break
		}
	}

	if err := withTx(ctx, db, func(tx *sql.Tx) error {
		return pruneOrphanedChunks(ctx, tx)
	}); err != nil {
		return total, err
	}

	return total, nil
}

func (c *Collector) pruneFilePointerBatch(ctx context.Context, repository string, batchSize int) (more bool, deleted int64, err error) {
	db := c.store.DB()
	err = withTx(ctx, db, func(tx *sql.Tx) error {
		hashes, err := distinctContentHashes(ctx, tx, `SELECT DISTINCT content_hash FROM file_pointers WHERE repository = ? LIMIT ?`, repository, batchSize)
		if err != nil {
			return fmt.Errorf("collect content hashes: %w", err)
		}
		if len(hashes) == 0 {
			more = false
			return nil
		}

		res, execErr := execInClause(ctx, tx, `DELETE FROM file_pointers WHERE repository = ? AND content_hash IN (%s)`, []string{repository}, hashes)
		if execErr != nil {
			return fmt.Errorf("delete file pointer batch: %w", execErr)
		}
		n, rowsErr := res.RowsAffected()
		if rowsErr != nil {
			return rowsErr
		}
		deleted = n
		more = true

		return pruneOrphanedBlobs(ctx, tx, hashes)
	})
	return more, deleted, err
}

// PruneBranch deletes every snapshot for (repository, branch) other
// than the branch's current head, then prunes each such commit's data
// unless it remains protected elsewhere. Administrative, on-demand
// only — it is never invoked by the periodic RunOnce sweep.
func (c *Collector) PruneBranch(ctx context.Context, repository, branch string) (Outcome, error) {
	var outcome Outcome
	db := c.store.DB()

	var head string
	err := db.QueryRowContext(ctx, `SELECT commit_sha FROM branch_heads WHERE repository = ? AND branch = ?`, repository, branch).Scan(&head)
	if err != nil && err != sql.ErrNoRows {
		return outcome, fmt.Errorf("load branch head: %w", err)
	}

	rows, err := db.QueryContext(ctx, `SELECT commit_sha FROM branch_snapshots WHERE repository = ? AND branch = ? AND commit_sha != ?`, repository, branch, head)
	if err != nil {
		return outcome, fmt.Errorf("list snapshots: %w", err)
	}
	var commits []string
	for rows.Next() {
		var sha string
		if err := rows.Scan(&sha); err != nil {
			rows.Close()
			return outcome, err
		}
		commits = append(commits, sha)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return outcome, err
	}
	rows.Close()

	if len(commits) == 0 {
		return outcome, nil
	}

	if err := execInClauseNoTx(ctx, db, `DELETE FROM branch_snapshots WHERE repository = ? AND branch = ? AND commit_sha IN (%s)`, []string{repository, branch}, commits); err != nil {
		return outcome, fmt.Errorf("delete branch snapshots: %w", err)
	}
	outcome.SnapshotsRemoved = len(commits)

	for _, commit := range commits {
		protected, err := c.commitIsProtected(ctx, repository, commit)
		if err != nil {
			return outcome, fmt.Errorf("check protection for %s: %w", commit, err)
		}
		if protected {
			continue
		}
		pruned, err := c.PruneCommitData(ctx, repository, commit)
		if err != nil {
			return outcome, fmt.Errorf("prune commit %s: %w", commit, err)
		}
		if pruned {
			outcome.CommitsPruned++
		}
	}

	return outcome, nil
}
