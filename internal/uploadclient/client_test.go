package uploadclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ferg-cod3s/pointerindex/internal/recordstore"
)

type recordedRequest struct {
	path string
	body map[string]any
}

func newFakeServer(t *testing.T) (*httptest.Server, *[]recordedRequest, *sync.Mutex) {
	t.Helper()
	var mu sync.Mutex
	var requests []recordedRequest

	mux := http.NewServeMux()
	mux.HandleFunc("/chunks/need", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Hashes []string `json:"hashes"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		mu.Lock()
		requests = append(requests, recordedRequest{path: r.URL.Path})
		mu.Unlock()

		resp := map[string]any{"missing": body.Hashes}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)

		mu.Lock()
		requests = append(requests, recordedRequest{path: r.URL.Path, body: body})
		mu.Unlock()

		w.WriteHeader(http.StatusAccepted)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &requests, &mu
}

func buildArtifacts(t *testing.T) *recordstore.Artifacts {
	t.Helper()
	dir := t.TempDir()

	blobW, err := recordstore.NewWriter[recordstore.ContentBlob](dir)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	_ = blobW.Append(recordstore.ContentBlob{Hash: "h1", ByteLen: 10, LineCount: 1})
	blobStore, err := blobW.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}

	mappingW, err := recordstore.NewWriter[recordstore.ChunkMapping](dir)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	_ = mappingW.Append(recordstore.ChunkMapping{ContentHash: "h1", ChunkHash: "c1", ChunkIndex: 0, ChunkLineCount: 1})
	mappingStore, err := mappingW.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}

	return &recordstore.Artifacts{
		ContentBlobs:  blobStore,
		ChunkMappings: mappingStore,
		Branches: []recordstore.BranchHead{
			{Repository: "acme/demo", Branch: "main", CommitSHA: "c1"},
		},
	}
}

func TestUploadRunsAllPhases(t *testing.T) {
	srv, requests, mu := newFakeServer(t)
	client := New(srv.URL, "test-token")

	artifacts := buildArtifacts(t)
	defer artifacts.Close()

	result, err := client.Upload(context.Background(), artifacts)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if result.BlobsUploaded != 1 {
		t.Errorf("expected 1 blob uploaded, got %d", result.BlobsUploaded)
	}
	if result.MappingsUploaded != 1 {
		t.Errorf("expected 1 mapping uploaded, got %d", result.MappingsUploaded)
	}
	if result.BranchesUploaded != 1 {
		t.Errorf("expected 1 branch uploaded, got %d", result.BranchesUploaded)
	}
	if result.UploadID == "" {
		t.Errorf("expected a non-empty upload id")
	}
	if result.ManifestChunks == 0 {
		t.Errorf("expected at least 1 manifest chunk")
	}

	mu.Lock()
	defer mu.Unlock()
	sawFinalize := false
	for _, req := range *requests {
		if req.path == "/manifest/finalize" {
			sawFinalize = true
		}
	}
	if !sawFinalize {
		t.Errorf("expected a call to /manifest/finalize")
	}
}

func TestChunksNeedReturnsServerMissingList(t *testing.T) {
	srv, _, _ := newFakeServer(t)
	client := New(srv.URL, "test-token")

	missing, err := client.chunksNeed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("chunksNeed: %v", err)
	}
	if len(missing) != 3 {
		t.Fatalf("expected echo server to report all 3 hashes missing, got %v", missing)
	}
}

func TestPostJSONSendsBearerToken(t *testing.T) {
	var gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/whoami", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusAccepted)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := New(srv.URL, "secret-key")
	if err := client.postJSON(context.Background(), "/whoami", map[string]any{}, nil); err != nil {
		t.Fatalf("postJSON: %v", err)
	}

	if gotAuth != "Bearer secret-key" {
		t.Fatalf("got Authorization %q, want Bearer secret-key", gotAuth)
	}
}

func TestPostJSONReturnsErrorOnNonSuccessStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/fail", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := New(srv.URL, "")
	err := client.postJSON(context.Background(), "/fail", map[string]any{}, nil)
	if err == nil {
		t.Fatalf("expected an error for a 500 response")
	}
}
