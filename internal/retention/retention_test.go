package retention

import (
	"context"
	"testing"
	"time"

	"github.com/ferg-cod3s/pointerindex/internal/recordstore"
	"github.com/ferg-cod3s/pointerindex/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedSnapshot(t *testing.T, s *store.Store, repository, branch, commit string, indexedAt time.Time) {
	t.Helper()
	_, err := s.DB().ExecContext(context.Background(),
		`INSERT INTO branch_snapshots (repository, branch, commit_sha, indexed_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (repository, branch, commit_sha) DO UPDATE SET indexed_at = excluded.indexed_at`,
		repository, branch, commit, indexedAt.Unix())
	if err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}
}

func TestComputeKeepSetKeepsLatestAndIntervalBuckets(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	snapshots := []snapshotRow{
		{commitSHA: "c0", indexedAt: now.Add(-1 * time.Minute)},
		{commitSHA: "c1", indexedAt: now.Add(-90 * time.Minute)},
		{commitSHA: "c2", indexedAt: now.Add(-3 * time.Hour)},
		{commitSHA: "c3", indexedAt: now.Add(-26 * time.Hour)},
	}

	keep := computeKeepSet(snapshots, 1, []snapshotPolicySpec{{intervalSeconds: 3600, keepCount: 2}}, now)

	if _, ok := keep["c0"]; !ok {
		t.Errorf("expected c0 (latest) to be kept")
	}
	if _, ok := keep["c1"]; !ok {
		t.Errorf("expected c1 (first snapshot in its hourly bucket) to be kept")
	}
	if _, ok := keep["c3"]; ok {
		t.Errorf("expected c3 to fall outside the 2 kept hourly buckets")
	}
}

func TestComputeKeepSetTreatsFutureTimestampAsBucketZero(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	snapshots := []snapshotRow{
		{commitSHA: "future", indexedAt: now.Add(1 * time.Hour)},
	}

	keep := computeKeepSet(snapshots, 0, []snapshotPolicySpec{{intervalSeconds: 3600, keepCount: 1}}, now)
	if _, ok := keep["future"]; !ok {
		t.Errorf("expected a future-dated snapshot to map to bucket 0 and be kept")
	}
}

func TestRunOnceRemovesSnapshotsOutsideKeepSetAndPrunesCommits(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.UpsertBranchHeads(ctx, []recordstore.BranchHead{
		{Repository: "acme/demo", Branch: "main", CommitSHA: "head", Policy: &recordstore.BranchPolicy{LatestKeepCount: 1}},
	}); err != nil {
		t.Fatalf("seed branch head: %v", err)
	}

	now := time.Now()
	seedSnapshot(t, s, "acme/demo", "main", "head", now)
	seedSnapshot(t, s, "acme/demo", "main", "stale", now.Add(-48*time.Hour))

	if err := s.UpsertContentBlobs(ctx, []recordstore.ContentBlob{{Hash: "h-stale", ByteLen: 1, LineCount: 1}}, nil); err != nil {
		t.Fatalf("seed content blob: %v", err)
	}
	if err := s.UpsertFilePointers(ctx, []recordstore.FilePointer{
		{Repository: "acme/demo", CommitSHA: "stale", FilePath: "main.go", ContentHash: "h-stale"},
	}); err != nil {
		t.Fatalf("seed file pointer: %v", err)
	}

	collector := New(s)
	outcome, err := collector.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if outcome.BranchesEvaluated != 1 {
		t.Errorf("expected 1 branch evaluated, got %d", outcome.BranchesEvaluated)
	}
	if outcome.SnapshotsRemoved != 1 {
		t.Errorf("expected 1 snapshot removed, got %d", outcome.SnapshotsRemoved)
	}
	if outcome.CommitsPruned != 1 {
		t.Errorf("expected 1 commit pruned, got %d", outcome.CommitsPruned)
	}

	var remaining int
	if err := s.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM file_pointers WHERE commit_sha = ?`, "stale").Scan(&remaining); err != nil {
		t.Fatalf("count file pointers: %v", err)
	}
	if remaining != 0 {
		t.Errorf("expected the stale commit's file pointers to be pruned, got %d remaining", remaining)
	}

	var blobCount int
	if err := s.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM content_blobs WHERE hash = ?`, "h-stale").Scan(&blobCount); err != nil {
		t.Fatalf("count content blobs: %v", err)
	}
	if blobCount != 0 {
		t.Errorf("expected the orphaned content blob to be pruned, got %d remaining", blobCount)
	}
}

func TestPruneCommitDataProtectsCommitsStillReferenced(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.UpsertContentBlobs(ctx, []recordstore.ContentBlob{{Hash: "h1", ByteLen: 1, LineCount: 1}}, nil); err != nil {
		t.Fatalf("seed blob: %v", err)
	}
	if err := s.UpsertFilePointers(ctx, []recordstore.FilePointer{
		{Repository: "acme/demo", CommitSHA: "c1", FilePath: "a.go", ContentHash: "h1"},
		{Repository: "acme/demo", CommitSHA: "c2", FilePath: "a.go", ContentHash: "h1"},
	}); err != nil {
		t.Fatalf("seed file pointers: %v", err)
	}

	collector := New(s)
	pruned, err := collector.PruneCommitData(ctx, "acme/demo", "c1")
	if err != nil {
		t.Fatalf("PruneCommitData: %v", err)
	}
	if !pruned {
		t.Errorf("expected c1's file pointer to be deleted")
	}

	var blobCount int
	if err := s.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM content_blobs WHERE hash = ?`, "h1").Scan(&blobCount); err != nil {
		t.Fatalf("count content blobs: %v", err)
	}
	if blobCount != 1 {
		t.Errorf("expected the blob to survive since c2 still references it, got %d", blobCount)
	}
}

func TestPruneRepositoryDataRemovesEverything(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.UpsertBranchHeads(ctx, []recordstore.BranchHead{{Repository: "acme/demo", Branch: "main", CommitSHA: "c1"}}); err != nil {
		t.Fatalf("seed branch head: %v", err)
	}
	if err := s.UpsertContentBlobs(ctx, []recordstore.ContentBlob{{Hash: "h1", ByteLen: 1, LineCount: 1}}, nil); err != nil {
		t.Fatalf("seed blob: %v", err)
	}
	if err := s.UpsertFilePointers(ctx, []recordstore.FilePointer{
		{Repository: "acme/demo", CommitSHA: "c1", FilePath: "a.go", ContentHash: "h1"},
	}); err != nil {
		t.Fatalf("seed file pointer: %v", err)
	}

	collector := New(s)
	total, err := collector.PruneRepositoryData(ctx, "acme/demo", 100)
	if err != nil {
		t.Fatalf("PruneRepositoryData: %v", err)
	}
	if total == 0 {
		t.Errorf("expected a non-zero number of deleted rows")
	}

	var headCount, blobCount int
	if err := s.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM branch_heads WHERE repository = ?`, "acme/demo").Scan(&headCount); err != nil {
		t.Fatalf("count branch heads: %v", err)
	}
	if err := s.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM content_blobs WHERE hash = ?`, "h1").Scan(&blobCount); err != nil {
		t.Fatalf("count content blobs: %v", err)
	}
	if headCount != 0 || blobCount != 0 {
		t.Errorf("expected branch heads and content blobs to be fully removed, got heads=%d blobs=%d", headCount, blobCount)
	}
}
