package ingest

import (
	"encoding/json"

	"github.com/ferg-cod3s/pointerindex/internal/recordstore"
)

type blobsUploadRequest struct {
	Blobs []recordstore.ContentBlob `json:"blobs"`
}

type chunksNeedRequest struct {
	Hashes []string `json:"hashes"`
}

type chunksNeedResponse struct {
	Missing []string `json:"missing"`
}

type chunksUploadRequest struct {
	Chunks []recordstore.UniqueChunk `json:"chunks"`
}

type mappingsUploadRequest struct {
	Mappings []recordstore.ChunkMapping `json:"mappings"`
}

type symbolsUploadRequest struct {
	Symbols []recordstore.SymbolRecord `json:"symbols"`
}

type referencesUploadRequest struct {
	References []recordstore.ReferenceRecord `json:"references"`
}

type branchesUploadRequest struct {
	Branches []recordstore.BranchHead `json:"branches"`
}

type manifestChunkRequest struct {
	UploadID    string `json:"upload_id"`
	ChunkIndex  int    `json:"chunk_index"`
	TotalChunks int    `json:"total_chunks"`
	Data        string `json:"data"`
}

type manifestFinalizeRequest struct {
	UploadID   string `json:"upload_id"`
	Compressed bool   `json:"compressed,omitempty"`
}

type pruneCommitRequest struct {
	Repository string `json:"repository"`
	CommitSHA  string `json:"commit_sha"`
}

type pruneBranchRequest struct {
	Repository string `json:"repository"`
	Branch     string `json:"branch"`
}

type pruneRepoRequest struct {
	Repository string `json:"repository"`
	BatchSize  int    `json:"batch_size,omitempty"`
}

type prunePolicyRequest struct {
	Repository       string                              `json:"repository"`
	Branch           string                              `json:"branch"`
	LatestKeepCount  int                                 `json:"latest_keep_count"`
	SnapshotPolicies []recordstore.BranchSnapshotPolicy   `json:"snapshot_policies,omitempty"`
}

type pruneSnapshotRequest struct {
	Repository string `json:"repository"`
	Branch     string `json:"branch"`
	CommitSHA  string `json:"commit_sha"`
}

// manifestSection is one tagged-variant line of the NDJSON manifest
// stream: `{"section": "<kind>", "payload": {...}}`.
type manifestSection struct {
	Section string          `json:"section"`
	Payload json.RawMessage `json:"payload"`
}
