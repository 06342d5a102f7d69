package recordstore

// ContentBlob is one deduplicated file content, keyed by its SHA-256 hash.
type ContentBlob struct {
	Hash      string `json:"hash"`
	Language  string `json:"language,omitempty"`
	ByteLen   int64  `json:"byte_len"`
	LineCount int    `json:"line_count"`
}

// FilePointer locates one ContentBlob at a path within a repository
// commit.
type FilePointer struct {
	Repository string `json:"repository"`
	CommitSHA  string `json:"commit_sha"`
	FilePath   string `json:"file_path"`
	ContentHash string `json:"content_hash"`
}

// SymbolRecord is a deduplicated definition site within a blob.
type SymbolRecord struct {
	ContentHash    string `json:"content_hash"`
	Namespace      string `json:"namespace,omitempty"`
	Name           string `json:"name"`
	Kind           string `json:"kind"`
	FullyQualified string `json:"fully_qualified"`
}

// SymbolNamespaceRecord is one namespace row referenced by SymbolRecord
// and ReferenceRecord joins.
type SymbolNamespaceRecord struct {
	Namespace string `json:"namespace"`
}

// ReferenceRecord is one located name occurrence within a blob.
type ReferenceRecord struct {
	ContentHash    string `json:"content_hash"`
	Namespace      string `json:"namespace,omitempty"`
	Name           string `json:"name"`
	FullyQualified string `json:"fully_qualified"`
	Kind           string `json:"kind,omitempty"`
	Line           int    `json:"line"`
	Column         int    `json:"column"`
}

// ChunkMapping maps a content blob to one of its ordered chunks.
type ChunkMapping struct {
	ContentHash    string `json:"content_hash"`
	ChunkHash      string `json:"chunk_hash"`
	ChunkIndex     int    `json:"chunk_index"`
	ChunkLineCount int    `json:"chunk_line_count"`
}

// BranchSnapshotPolicy configures one retention bucket for a branch.
type BranchSnapshotPolicy struct {
	IntervalSeconds int64 `json:"interval_seconds"`
	KeepCount       int   `json:"keep_count"`
}

// BranchPolicy configures retention for a branch's snapshots.
type BranchPolicy struct {
	LatestKeepCount  int                    `json:"latest_keep_count"`
	IsLive           *bool                  `json:"is_live,omitempty"`
	SnapshotPolicies []BranchSnapshotPolicy `json:"snapshot_policies,omitempty"`
}

// BranchHead reports the current indexed commit for one repository
// branch, with an optional embedded retention policy.
type BranchHead struct {
	Repository string        `json:"repository"`
	Branch     string        `json:"branch"`
	CommitSHA  string        `json:"commit_sha"`
	Policy     *BranchPolicy `json:"policy,omitempty"`
}

// UniqueChunk is one deduplicated chunk's content, keyed by its BLAKE3
// hash, as accumulated by the chunk store during a walk.
type UniqueChunk struct {
	ChunkHash   string `json:"chunk_hash"`
	TextContent string `json:"text_content"`
}
