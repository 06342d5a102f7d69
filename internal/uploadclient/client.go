// Package uploadclient implements the multi-phase resumable upload
// protocol an indexing run uses to hand its record stores to the
// ingestion server: blob upload, chunk-need/chunk-upload, mapping
// upload, batched symbol/reference/branch-head upserts, and a
// base64-chunked manifest stream finalized server-side.
package uploadclient

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ferg-cod3s/pointerindex/internal/recordstore"
)

const (
	// batchSize bounds every batched upsert request, matching the
	// ingestion server's own per-statement row limit.
	batchSize = 1000

	// manifestChunkBytes is the pre-encoding size of one manifest
	// stream chunk; base64 inflates it by roughly 4/3 on the wire.
	manifestChunkBytes = 256 * 1024

	defaultTimeout = 60 * time.Second
)

// Client uploads one run's artifacts to an ingestion server over HTTP,
// authenticating with a bearer token.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a Client targeting baseURL (e.g. "https://ingest.example.com/api/v1"),
// authenticating every request with apiKey as a Bearer token.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// Result summarizes one completed upload run.
type Result struct {
	BlobsUploaded      int
	ChunksNeeded       int
	ChunksUploaded     int
	MappingsUploaded   int
	SymbolsUploaded    int
	ReferencesUploaded int
	BranchesUploaded   int
	ManifestChunks     int
	UploadID           string
}

// Upload runs the blob, chunk-need, mapping, symbol, reference,
// branch-head and manifest phases in order against artifacts, returning
// a Result summarizing what was sent. It does not send chunk bodies
// (UploadChunkBodies does), so Result.ChunksUploaded stays 0 and
// ChunksNeeded reports how many the server still lacks. Every phase is
// idempotent; a caller may
// retry Upload after a failure and the server converges to the same
// final state.
func (c *Client) Upload(ctx context.Context, artifacts *recordstore.Artifacts) (Result, error) {
	var result Result

	n, err := c.uploadBlobs(ctx, artifacts.ContentBlobs)
	if err != nil {
		return result, fmt.Errorf("upload blobs: %w", err)
	}
	result.BlobsUploaded = n

	chunkHashes, err := collectChunkHashes(artifacts.ChunkMappings)
	if err != nil {
		return result, fmt.Errorf("collect chunk hashes: %w", err)
	}

	missing, err := c.chunksNeed(ctx, chunkHashes)
	if err != nil {
		return result, fmt.Errorf("check chunk need: %w", err)
	}
	result.ChunksNeeded = len(missing)

	mappings, err := c.uploadMappings(ctx, artifacts.ChunkMappings)
	if err != nil {
		return result, fmt.Errorf("upload mappings: %w", err)
	}
	result.MappingsUploaded = mappings

	syms, err := c.uploadSymbols(ctx, artifacts.SymbolRecords)
	if err != nil {
		return result, fmt.Errorf("upload symbols: %w", err)
	}
	result.SymbolsUploaded = syms

	refs, err := c.uploadReferences(ctx, artifacts.ReferenceRecords)
	if err != nil {
		return result, fmt.Errorf("upload references: %w", err)
	}
	result.ReferencesUploaded = refs

	branches, err := c.uploadBranches(ctx, artifacts.Branches)
	if err != nil {
		return result, fmt.Errorf("upload branch heads: %w", err)
	}
	result.BranchesUploaded = branches

	uploadID, chunkCount, err := c.streamManifest(ctx, artifacts)
	if err != nil {
		return result, fmt.Errorf("stream manifest: %w", err)
	}
	result.UploadID = uploadID
	result.ManifestChunks = chunkCount

	if err := c.finalize(ctx, uploadID, false); err != nil {
		return result, fmt.Errorf("finalize manifest: %w", err)
	}

	return result, nil
}

// UploadChunkBodies sends the actual content for chunk hashes the
// server reported missing from a prior chunksNeed call, looking the
// text content up via lookup.
func (c *Client) UploadChunkBodies(ctx context.Context, missingHashes []string, lookup func(hash string) (string, bool)) (int, error) {
	chunks := make([]recordstore.UniqueChunk, 0, len(missingHashes))
	for _, hash := range missingHashes {
		text, ok := lookup(hash)
		if !ok {
			continue
		}
		chunks = append(chunks, recordstore.UniqueChunk{ChunkHash: hash, TextContent: text})
	}

	uploaded := 0
	for _, batch := range batchChunks(chunks) {
		if err := c.postJSON(ctx, "/chunks/upload", map[string]any{"chunks": batch}, nil); err != nil {
			return uploaded, err
		}
		uploaded += len(batch)
	}
	return uploaded, nil
}

func (c *Client) uploadBlobs(ctx context.Context, store *recordstore.Store[recordstore.ContentBlob]) (int, error) {
	if store == nil || store.IsEmpty() {
		return 0, nil
	}
	return streamBatched(ctx, c, store, "/blobs/upload", "blobs")
}

func (c *Client) uploadMappings(ctx context.Context, store *recordstore.Store[recordstore.ChunkMapping]) (int, error) {
	if store == nil || store.IsEmpty() {
		return 0, nil
	}
	return streamBatched(ctx, c, store, "/mappings/upload", "mappings")
}

func (c *Client) uploadSymbols(ctx context.Context, store *recordstore.Store[recordstore.SymbolRecord]) (int, error) {
	if store == nil || store.IsEmpty() {
		return 0, nil
	}
	return streamBatched(ctx, c, store, "/symbols/upload", "symbols")
}

func (c *Client) uploadReferences(ctx context.Context, store *recordstore.Store[recordstore.ReferenceRecord]) (int, error) {
	if store == nil || store.IsEmpty() {
		return 0, nil
	}
	return streamBatched(ctx, c, store, "/references/upload", "references")
}

func (c *Client) uploadBranches(ctx context.Context, branches []recordstore.BranchHead) (int, error) {
	if len(branches) == 0 {
		return 0, nil
	}
	sent := 0
	for i := 0; i < len(branches); i += batchSize {
		end := i + batchSize
		if end > len(branches) {
			end = len(branches)
		}
		if err := c.postJSON(ctx, "/branches/upload", map[string]any{"branches": branches[i:end]}, nil); err != nil {
			return sent, err
		}
		sent += end - i
	}
	return sent, nil
}

// streamBatched reads store in row batches and posts each batch under
// the given field name, without ever materializing the full store.
func streamBatched[T any](ctx context.Context, c *Client, store *recordstore.Store[T], path, field string) (int, error) {
	stream, err := store.Stream()
	if err != nil {
		return 0, err
	}
	defer stream.Close()

	sent := 0
	for {
		batch, err := stream.NextBatch(batchSize)
		if err != nil {
			return sent, err
		}
		if len(batch) == 0 {
			break
		}
		if err := c.postJSON(ctx, path, map[string]any{field: batch}, nil); err != nil {
			return sent, err
		}
		sent += len(batch)
	}
	return sent, nil
}

func (c *Client) chunksNeed(ctx context.Context, hashes []string) ([]string, error) {
	if len(hashes) == 0 {
		return nil, nil
	}

	var missing []string
	for i := 0; i < len(hashes); i += batchSize {
		end := i + batchSize
		if end > len(hashes) {
			end = len(hashes)
		}

		var resp struct {
			Missing []string `json:"missing"`
		}
		if err := c.postJSON(ctx, "/chunks/need", map[string]any{"hashes": hashes[i:end]}, &resp); err != nil {
			return missing, err
		}
		missing = append(missing, resp.Missing...)
	}
	return missing, nil
}

// streamManifest base64-chunks the NDJSON manifest and uploads it under
// a fresh random upload_id, returning that id and the chunk count.
func (c *Client) streamManifest(ctx context.Context, artifacts *recordstore.Artifacts) (string, int, error) {
	var buf bytes.Buffer
	if err := artifacts.WriteManifestNDJSON(&buf); err != nil {
		return "", 0, fmt.Errorf("render manifest: %w", err)
	}

	uploadID, err := randomUploadID()
	if err != nil {
		return "", 0, err
	}

	raw := buf.Bytes()
	totalChunks := (len(raw) + manifestChunkBytes - 1) / manifestChunkBytes
	if totalChunks == 0 {
		totalChunks = 1 // finalize requires at least one chunk even for an empty manifest
	}

	for i := 0; i < totalChunks; i++ {
		start := i * manifestChunkBytes
		end := start + manifestChunkBytes
		if end > len(raw) {
			end = len(raw)
		}

		payload := map[string]any{
			"upload_id":    uploadID,
			"chunk_index":  i,
			"total_chunks": totalChunks,
			"data":         base64.StdEncoding.EncodeToString(raw[start:end]),
		}
		if err := c.postJSON(ctx, "/manifest/chunk", payload, nil); err != nil {
			return uploadID, i, err
		}
	}

	return uploadID, totalChunks, nil
}

func (c *Client) finalize(ctx context.Context, uploadID string, compressed bool) error {
	return c.postJSON(ctx, "/manifest/finalize", map[string]any{
		"upload_id":  uploadID,
		"compressed": compressed,
	}, nil)
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request to %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("ingestion server returned %d for %s: %s", resp.StatusCode, path, string(body))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}
	return nil
}

func collectChunkHashes(store *recordstore.Store[recordstore.ChunkMapping]) ([]string, error) {
	if store == nil || store.IsEmpty() {
		return nil, nil
	}

	stream, err := store.Stream()
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	seen := make(map[string]struct{})
	var hashes []string
	for {
		batch, err := stream.NextBatch(batchSize)
		if err != nil {
			return hashes, err
		}
		if len(batch) == 0 {
			break
		}
		for _, m := range batch {
			if _, ok := seen[m.ChunkHash]; ok {
				continue
			}
			seen[m.ChunkHash] = struct{}{}
			hashes = append(hashes, m.ChunkHash)
		}
	}
	return hashes, nil
}

func batchChunks(chunks []recordstore.UniqueChunk) [][]recordstore.UniqueChunk {
	var batches [][]recordstore.UniqueChunk
	for i := 0; i < len(chunks); i += batchSize {
		end := i + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batches = append(batches, chunks[i:end])
	}
	return batches
}

func randomUploadID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate upload id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
