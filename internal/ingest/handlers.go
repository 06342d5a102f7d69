package ingest

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", ErrValidation, err)
	}
	return nil
}

func (s *Server) handleBlobsUpload(w http.ResponseWriter, r *http.Request) {
	var req blobsUploadRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, "blobs.upload", err)
		return
	}
	if len(req.Blobs) == 0 {
		writeJSON(w, http.StatusAccepted, nil)
		return
	}
	if err := s.store.UpsertContentBlobs(r.Context(), req.Blobs, nil); err != nil {
		s.writeError(w, r, "blobs.upload", fmt.Errorf("upsert blobs: %w", err))
		return
	}
	writeJSON(w, http.StatusAccepted, nil)
}

func (s *Server) handleChunksNeed(w http.ResponseWriter, r *http.Request) {
	var req chunksNeedRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, "chunks.need", err)
		return
	}
	if len(req.Hashes) == 0 {
		writeJSON(w, http.StatusOK, chunksNeedResponse{})
		return
	}
	missing, err := s.store.MissingChunkHashes(r.Context(), req.Hashes)
	if err != nil {
		s.writeError(w, r, "chunks.need", fmt.Errorf("check chunk need: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, chunksNeedResponse{Missing: missing})
}

func (s *Server) handleChunksUpload(w http.ResponseWriter, r *http.Request) {
	var req chunksUploadRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, "chunks.upload", err)
		return
	}
	if len(req.Chunks) == 0 {
		writeJSON(w, http.StatusAccepted, nil)
		return
	}
	if err := s.store.UpsertChunks(r.Context(), req.Chunks); err != nil {
		s.writeError(w, r, "chunks.upload", fmt.Errorf("upsert chunks: %w", err))
		return
	}
	writeJSON(w, http.StatusAccepted, nil)
}

func (s *Server) handleMappingsUpload(w http.ResponseWriter, r *http.Request) {
	var req mappingsUploadRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, "mappings.upload", err)
		return
	}
	if len(req.Mappings) == 0 {
		writeJSON(w, http.StatusAccepted, nil)
		return
	}
	if err := s.store.UpsertChunkMappings(r.Context(), req.Mappings); err != nil {
		s.writeError(w, r, "mappings.upload", fmt.Errorf("upsert mappings: %w", err))
		return
	}
	writeJSON(w, http.StatusAccepted, nil)
}

func (s *Server) handleSymbolsUpload(w http.ResponseWriter, r *http.Request) {
	var req symbolsUploadRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, "symbols.upload", err)
		return
	}
	if len(req.Symbols) == 0 {
		writeJSON(w, http.StatusAccepted, nil)
		return
	}
	if err := s.store.UpsertSymbols(r.Context(), req.Symbols); err != nil {
		s.writeError(w, r, "symbols.upload", fmt.Errorf("upsert symbols: %w", err))
		return
	}
	writeJSON(w, http.StatusAccepted, nil)
}

func (s *Server) handleReferencesUpload(w http.ResponseWriter, r *http.Request) {
	var req referencesUploadRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, "references.upload", err)
		return
	}
	if len(req.References) == 0 {
		writeJSON(w, http.StatusAccepted, nil)
		return
	}
	if err := s.store.UpsertReferences(r.Context(), req.References); err != nil {
		s.writeError(w, r, "references.upload", fmt.Errorf("upsert references: %w", err))
		return
	}
	writeJSON(w, http.StatusAccepted, nil)
}

func (s *Server) handleBranchesUpload(w http.ResponseWriter, r *http.Request) {
	var req branchesUploadRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, "branches.upload", err)
		return
	}
	if len(req.Branches) == 0 {
		writeJSON(w, http.StatusAccepted, nil)
		return
	}
	if err := s.store.UpsertBranchHeads(r.Context(), req.Branches); err != nil {
		s.writeError(w, r, "branches.upload", fmt.Errorf("upsert branch heads: %w", err))
		return
	}
	writeJSON(w, http.StatusAccepted, nil)
}

func (s *Server) handleManifestChunk(w http.ResponseWriter, r *http.Request) {
	var req manifestChunkRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, "manifest.chunk", err)
		return
	}
	if req.UploadID == "" || req.ChunkIndex < 0 || req.TotalChunks <= 0 || req.ChunkIndex >= req.TotalChunks {
		s.writeError(w, r, "manifest.chunk", fmt.Errorf("%w: invalid manifest chunk metadata", ErrValidation))
		return
	}

	data, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		s.writeError(w, r, "manifest.chunk", fmt.Errorf("%w: invalid base64 data: %v", ErrValidation, err))
		return
	}

	if err := s.store.PutUploadChunk(r.Context(), req.UploadID, req.ChunkIndex, req.TotalChunks, data); err != nil {
		s.writeError(w, r, "manifest.chunk", fmt.Errorf("store manifest chunk: %w", err))
		return
	}
	writeJSON(w, http.StatusAccepted, nil)
}

func (s *Server) handleManifestFinalize(w http.ResponseWriter, r *http.Request) {
	var req manifestFinalizeRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, "manifest.finalize", err)
		return
	}
	if req.UploadID == "" {
		s.writeError(w, r, "manifest.finalize", fmt.Errorf("%w: missing upload_id", ErrValidation))
		return
	}

	ctx := r.Context()
	chunks, err := s.store.UploadChunks(ctx, req.UploadID)
	if err != nil {
		s.writeError(w, r, "manifest.finalize", fmt.Errorf("load manifest chunks: %w", err))
		return
	}

	raw, err := reassembleManifest(chunks)
	if err != nil {
		s.writeError(w, r, "manifest.finalize", err)
		return
	}

	decoded, err := decodeManifest(raw, req.Compressed)
	if err != nil {
		s.writeError(w, r, "manifest.finalize", err)
		return
	}

	report, err := parseManifestNDJSON(decoded)
	if err != nil {
		s.writeError(w, r, "manifest.finalize", err)
		return
	}

	if err := s.store.IngestManifest(ctx, report); err != nil {
		s.writeError(w, r, "manifest.finalize", fmt.Errorf("ingest manifest: %w", err))
		return
	}

	if err := s.store.DeleteUploadChunks(ctx, req.UploadID); err != nil {
		s.writeError(w, r, "manifest.finalize", fmt.Errorf("clean up manifest chunks: %w", err))
		return
	}

	if s.audit != nil {
		s.audit.LogConfigChange(ctx, "", "manifest.finalize", req.UploadID, nil, nil)
	}

	writeJSON(w, http.StatusCreated, nil)
}

func (s *Server) handlePruneCommit(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req pruneCommitRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, "prune.commit", err)
		return
	}
	if req.Repository == "" || req.CommitSHA == "" {
		s.writeError(w, r, "prune.commit", fmt.Errorf("%w: repository and commit_sha are required", ErrValidation))
		return
	}

	pruned, err := s.retention.PruneCommitData(r.Context(), req.Repository, req.CommitSHA)
	if err != nil {
		s.writeError(w, r, "prune.commit", fmt.Errorf("prune commit: %w", err))
		return
	}
	s.logAdminAction(r, "prune.commit", req.Repository)
	itemsAffected := 0
	if pruned {
		itemsAffected = 1
	}
	s.recordPruneOperation(r, "prune.commit", start, itemsAffected)
	writeJSON(w, http.StatusOK, map[string]bool{"pruned": pruned})
}

func (s *Server) handlePruneBranch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req pruneBranchRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, "prune.branch", err)
		return
	}
	if req.Repository == "" || req.Branch == "" {
		s.writeError(w, r, "prune.branch", fmt.Errorf("%w: repository and branch are required", ErrValidation))
		return
	}

	outcome, err := s.retention.PruneBranch(r.Context(), req.Repository, req.Branch)
	if err != nil {
		s.writeError(w, r, "prune.branch", fmt.Errorf("prune branch: %w", err))
		return
	}
	s.logAdminAction(r, "prune.branch", req.Repository)
	s.recordPruneOperation(r, "prune.branch", start, outcome.SnapshotsRemoved)
	writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) handlePruneRepo(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req pruneRepoRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, "prune.repo", err)
		return
	}
	if req.Repository == "" {
		s.writeError(w, r, "prune.repo", fmt.Errorf("%w: repository is required", ErrValidation))
		return
	}
	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = 1000
	}

	total, err := s.retention.PruneRepositoryData(r.Context(), req.Repository, batchSize)
	if err != nil {
		s.writeError(w, r, "prune.repo", fmt.Errorf("prune repository: %w", err))
		return
	}
	s.logAdminAction(r, "prune.repo", req.Repository)
	s.recordPruneOperation(r, "prune.repo", start, int(total))
	writeJSON(w, http.StatusOK, map[string]int64{"rows_removed": total})
}

func (s *Server) handlePrunePolicy(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req prunePolicyRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, "prune.policy", err)
		return
	}
	if req.Repository == "" || req.Branch == "" {
		s.writeError(w, r, "prune.policy", fmt.Errorf("%w: repository and branch are required", ErrValidation))
		return
	}

	if err := s.store.ApplyBranchPolicy(r.Context(), req.Repository, req.Branch, req.LatestKeepCount, req.SnapshotPolicies); err != nil {
		s.writeError(w, r, "prune.policy", fmt.Errorf("apply retention policy: %w", err))
		return
	}
	s.logAdminAction(r, "prune.policy", req.Repository)
	s.recordPruneOperation(r, "prune.policy", start, 0)
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handlePruneSnapshot(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req pruneSnapshotRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, "prune.snapshot", err)
		return
	}
	if req.Repository == "" || req.Branch == "" || req.CommitSHA == "" {
		s.writeError(w, r, "prune.snapshot", fmt.Errorf("%w: repository, branch, and commit_sha are required", ErrValidation))
		return
	}

	if err := s.store.RecordSnapshot(r.Context(), req.Repository, req.Branch, req.CommitSHA); err != nil {
		s.writeError(w, r, "prune.snapshot", fmt.Errorf("create snapshot: %w", err))
		return
	}
	s.logAdminAction(r, "prune.snapshot", req.Repository)
	s.recordPruneOperation(r, "prune.snapshot", start, 1)
	writeJSON(w, http.StatusCreated, nil)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) logAdminAction(r *http.Request, action, resource string) {
	if s.audit == nil {
		return
	}
	s.audit.LogConfigChange(r.Context(), "", action, resource, nil, nil)
}

// recordPruneOperation logs and records metrics for one completed
// administrative prune action. itemsAffected is best-effort: policy has no
// precise row count and passes 0; snapshot passes 1 for the row it records.
func (s *Server) recordPruneOperation(r *http.Request, action string, start time.Time, itemsAffected int) {
	duration := time.Since(start)
	if s.logger != nil {
		s.logger.LogPruneOperation(r.Context(), action, itemsAffected, duration)
	}
	if s.metrics != nil {
		s.metrics.RecordPruneOperation(action, "success", duration, itemsAffected)
	}
}
