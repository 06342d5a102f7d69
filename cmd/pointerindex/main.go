// Command pointerindex walks a repository working tree, chunks and
// extracts symbols/references from every file, and either writes the
// resulting manifest to disk or uploads it to an ingestion server. Its
// "admin" subcommand drives the ingestion server's retention endpoints
// out of band.
package main

import (
	"context"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ferg-cod3s/pointerindex/internal/indexer"
	"github.com/ferg-cod3s/pointerindex/internal/observability"
	"github.com/ferg-cod3s/pointerindex/internal/recordstore"
	"github.com/ferg-cod3s/pointerindex/internal/uploadclient"
)

const Version = "0.1.3-alpha"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "index":
		err = runIndex(os.Args[2:])
	case "admin":
		err = runAdmin(os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "pointerindex: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `pointerindex - repository indexing and admin CLI

Usage:
  pointerindex index [flags]
  pointerindex admin <subcommand> [flags]

Admin subcommands:
  prune-commit  --repository --commit-sha
  prune-branch  --repository --branch
  prune-repo    --repository [--batch-size]
  prune-policy  --repository --branch [--latest-keep-count] [--snapshot-policy interval:count]...
  prune-snapshot --repository --branch --commit-sha`)
}

// snapshotPolicyFlag accumulates repeated "--snapshot-policy interval:count" flags.
type snapshotPolicyFlag []recordstore.BranchSnapshotPolicy

func (s *snapshotPolicyFlag) String() string {
	if s == nil {
		return ""
	}
	parts := make([]string, len(*s))
	for i, p := range *s {
		parts[i] = fmt.Sprintf("%ds:%d", p.IntervalSeconds, p.KeepCount)
	}
	return strings.Join(parts, ",")
}

func (s *snapshotPolicyFlag) Set(value string) error {
	interval, count, ok := strings.Cut(value, ":")
	if !ok {
		return fmt.Errorf("snapshot policy must be in the form <interval>:<count>")
	}
	dur, err := time.ParseDuration(interval)
	if err != nil {
		return fmt.Errorf("invalid interval %q: %w", interval, err)
	}
	if dur <= 0 {
		return fmt.Errorf("snapshot policy interval must be greater than zero")
	}
	keepCount, err := strconv.Atoi(count)
	if err != nil || keepCount <= 0 {
		return fmt.Errorf("invalid snapshot count %q", count)
	}
	*s = append(*s, recordstore.BranchSnapshotPolicy{
		IntervalSeconds: int64(dur.Seconds()),
		KeepCount:       keepCount,
	})
	return nil
}

func runIndex(args []string) error {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	repository := fs.String("repository", "", "human-readable repository identifier (defaults to the repo directory name)")
	repoPath := fs.String("path", ".", "path to the repository root to index")
	commit := fs.String("commit", "", "commit SHA to associate with the produced metadata (defaults to HEAD)")
	branch := fs.String("branch", "", "branch name associated with the commit (defaults to the current branch)")
	outputDir := fs.String("output-dir", "index-output", "directory where the manifest will be written")
	uploadURL := fs.String("upload-url", "", "ingestion server base URL; when set, the generated index is uploaded instead of written locally")
	uploadAPIKey := fs.String("upload-api-key", "", "bearer token used when uploading to the backend")
	live := fs.Bool("live", false, "mark this branch as the live branch for the repository")
	notLive := fs.Bool("not-live", false, "explicitly mark this branch as not-live")
	keepLatest := fs.Int("keep-latest", 1, "number of most recent snapshots that should always be retained")
	var snapshotPolicies snapshotPolicyFlag
	fs.Var(&snapshotPolicies, "snapshot-policy", `snapshot retention policy "<interval>:<count>", e.g. "168h:4" (repeatable)`)
	maxFileSize := fs.Int64("max-file-size", 0, "skip files larger than this many bytes (0 = no limit)")
	logLevel := fs.String("log-level", "info", "log level (debug, info, warn, error)")
	logFormat := fs.String("log-format", "json", "log format (json, text)")
	metricsPort := fs.Int("metrics-port", 0, "if set, serve Prometheus metrics on this port for the duration of the run")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *live && *notLive {
		return fmt.Errorf("--live and --not-live are mutually exclusive")
	}

	logger := observability.NewLogger(observability.LoggerConfig{
		Level:  *logLevel,
		Format: *logFormat,
	})

	var metrics *observability.MetricsCollector
	if *metricsPort > 0 {
		metrics = observability.NewMetricsCollector("pointerindex")
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			addr := fmt.Sprintf(":%d", *metricsPort)
			logger.Info("serving indexer metrics", "addr", addr)
			if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed { // #nosec G114 -- short-lived CLI process, not a long-running server
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	absRepoPath, err := filepath.Abs(*repoPath)
	if err != nil {
		return fmt.Errorf("resolve repo path: %w", err)
	}
	absOutputDir, err := filepath.Abs(*outputDir)
	if err != nil {
		return fmt.Errorf("resolve output dir: %w", err)
	}

	repoName := *repository
	if repoName == "" {
		repoName = filepath.Base(absRepoPath)
	}

	resolvedBranch, resolvedCommit, err := resolveRepoMetadata(absRepoPath, *branch, *commit)
	if err != nil {
		return fmt.Errorf("resolve repo metadata: %w", err)
	}

	if err := os.MkdirAll(absOutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	driver := indexer.New(indexer.RunConfig{
		Repository:  repoName,
		CommitSHA:   resolvedCommit,
		RootPath:    absRepoPath,
		ScratchDir:  absOutputDir,
		MaxFileSize: *maxFileSize,
		Metrics:     metrics,
	})

	ctx := context.Background()
	runStart := time.Now()
	artifacts, report, err := driver.Run(ctx)
	if err != nil {
		logger.LogIndexerOperation(ctx, "index", absRepoPath, time.Since(runStart))
		return fmt.Errorf("run indexer: %w", err)
	}
	defer artifacts.Close()
	logger.LogIndexerOperation(ctx, "index", absRepoPath, time.Since(runStart))

	if resolvedBranch != "" {
		artifacts.Branches = []recordstore.BranchHead{
			buildBranchHead(repoName, resolvedBranch, resolvedCommit, *live, *notLive, *keepLatest, snapshotPolicies),
		}
	}

	if *uploadURL != "" {
		uploadStart := time.Now()
		client := uploadclient.New(*uploadURL, *uploadAPIKey)
		result, err := client.Upload(ctx, artifacts)
		uploadDuration := time.Since(uploadStart)
		if err != nil {
			if metrics != nil {
				metrics.RecordUploadPhaseError("upload", "request_failed")
			}
			return fmt.Errorf("upload index: %w", err)
		}
		for _, phase := range []struct {
			name  string
			count int
		}{
			{"blobs", result.BlobsUploaded},
			{"chunks", result.ChunksUploaded},
			{"mappings", result.MappingsUploaded},
			{"symbols", result.SymbolsUploaded},
			{"references", result.ReferencesUploaded},
			{"branches", result.BranchesUploaded},
		} {
			logger.LogUploadPhase(ctx, phase.name, phase.count, uploadDuration)
			if metrics != nil {
				metrics.RecordUploadPhase(phase.name, "success", uploadDuration)
			}
		}
		fmt.Fprintf(os.Stdout, "uploaded %d blobs, %d chunks, %d mappings, %d symbols, %d references, %d branches (upload_id=%s)\n",
			result.BlobsUploaded, result.ChunksUploaded, result.MappingsUploaded, result.SymbolsUploaded,
			result.ReferencesUploaded, result.BranchesUploaded, result.UploadID)
	} else {
		manifestPath := filepath.Join(absOutputDir, "manifest.ndjson")
		f, err := os.Create(manifestPath) // #nosec G304 -- path built from validated --output-dir flag
		if err != nil {
			return fmt.Errorf("create manifest file: %w", err)
		}
		defer f.Close()
		if err := artifacts.WriteManifestNDJSON(f); err != nil {
			return fmt.Errorf("write manifest: %w", err)
		}
		fmt.Fprintf(os.Stdout, "wrote manifest to %s\n", manifestPath)
	}

	fmt.Fprintf(os.Stdout, "indexing complete: repository=%s commit=%s files_walked=%d files_indexed=%d content_blobs=%d unique_chunks=%d symbols=%d references=%d\n",
		repoName, resolvedCommit, report.FilesWalked, report.FilesIndexed, report.ContentBlobs, report.UniqueChunks, report.SymbolRecords, report.ReferenceCount)

	return nil
}

func buildBranchHead(repository, branch, commit string, live, notLive bool, keepLatest int, policies []recordstore.BranchSnapshotPolicy) recordstore.BranchHead {
	if keepLatest < 1 {
		keepLatest = 1
	}

	var isLive *bool
	switch {
	case live:
		v := true
		isLive = &v
	case notLive:
		v := false
		isLive = &v
	}

	return recordstore.BranchHead{
		Repository: repository,
		Branch:     branch,
		CommitSHA:  commit,
		Policy: &recordstore.BranchPolicy{
			LatestKeepCount:  keepLatest,
			IsLive:           isLive,
			SnapshotPolicies: policies,
		},
	}
}

// resolveRepoMetadata fills in branch/commit from the repository's
// current HEAD when not given explicitly on the command line.
func resolveRepoMetadata(repoPath, branch, commit string) (string, string, error) {
	if branch != "" && commit != "" {
		return branch, commit, nil
	}

	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		// Not a git repository (or a bare checkout); fall back to
		// whatever was given explicitly.
		return branch, commit, nil
	}

	head, err := repo.Head()
	if err != nil {
		return branch, commit, nil
	}

	if commit == "" {
		commit = head.Hash().String()
	}
	if branch == "" && head.Name().IsBranch() {
		branch = head.Name().Short()
	}
	return branch, commit, nil
}

func runAdmin(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("admin requires a subcommand")
	}

	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	backendURL := fs.String("backend-url", os.Getenv("POINTER_BACKEND_URL"), "base URL for the backend admin API (e.g. http://localhost:8080/api/v1)")
	apiKey := fs.String("api-key", "", "bearer token used when calling the backend")
	repository := fs.String("repository", "", "repository name")
	branch := fs.String("branch", "", "branch name")
	commitSHA := fs.String("commit-sha", "", "commit SHA")
	batchSize := fs.Int("batch-size", 1000, "row batch size for prune-repo")
	latestKeepCount := fs.Int("latest-keep-count", 1, "number of most recent snapshots to always retain")
	var snapshotPolicies snapshotPolicyFlag
	fs.Var(&snapshotPolicies, "snapshot-policy", `snapshot retention policy "<interval>:<count>" (repeatable)`)

	subcommand := args[0]
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if *backendURL == "" {
		return fmt.Errorf("--backend-url or POINTER_BACKEND_URL is required")
	}

	client := newAdminClient(*backendURL, *apiKey)
	ctx := context.Background()
	logger := observability.NewLogger(observability.DefaultLoggerConfig())
	start := time.Now()

	switch subcommand {
	case "prune-commit":
		if *repository == "" || *commitSHA == "" {
			return fmt.Errorf("--repository and --commit-sha are required")
		}
		var resp map[string]bool
		if err := client.post(ctx, "prune/commit", map[string]string{
			"repository": *repository, "commit_sha": *commitSHA,
		}, &resp); err != nil {
			return err
		}
		items := 0
		if resp["pruned"] {
			items = 1
		}
		logger.LogPruneOperation(ctx, subcommand, items, time.Since(start))
		fmt.Fprintf(os.Stdout, "pruned=%v\n", resp["pruned"])
	case "prune-branch":
		if *repository == "" || *branch == "" {
			return fmt.Errorf("--repository and --branch are required")
		}
		var resp json.RawMessage
		if err := client.post(ctx, "prune/branch", map[string]string{
			"repository": *repository, "branch": *branch,
		}, &resp); err != nil {
			return err
		}
		logger.LogPruneOperation(ctx, subcommand, 0, time.Since(start))
		fmt.Fprintf(os.Stdout, "%s\n", resp)
	case "prune-repo":
		if *repository == "" {
			return fmt.Errorf("--repository is required")
		}
		var resp map[string]int64
		if err := client.post(ctx, "prune/repo", map[string]any{
			"repository": *repository, "batch_size": *batchSize,
		}, &resp); err != nil {
			return err
		}
		logger.LogPruneOperation(ctx, subcommand, int(resp["rows_removed"]), time.Since(start))
		fmt.Fprintf(os.Stdout, "rows_removed=%d\n", resp["rows_removed"])
	case "prune-policy":
		if *repository == "" || *branch == "" {
			return fmt.Errorf("--repository and --branch are required")
		}
		if err := client.post(ctx, "prune/policy", map[string]any{
			"repository":        *repository,
			"branch":            *branch,
			"latest_keep_count": *latestKeepCount,
			"snapshot_policies": []recordstore.BranchSnapshotPolicy(snapshotPolicies),
		}, nil); err != nil {
			return err
		}
		logger.LogPruneOperation(ctx, subcommand, 0, time.Since(start))
		fmt.Fprintln(os.Stdout, "policy applied")
	case "prune-snapshot":
		if *repository == "" || *branch == "" || *commitSHA == "" {
			return fmt.Errorf("--repository, --branch, and --commit-sha are required")
		}
		if err := client.post(ctx, "prune/snapshot", map[string]string{
			"repository": *repository, "branch": *branch, "commit_sha": *commitSHA,
		}, nil); err != nil {
			return err
		}
		logger.LogPruneOperation(ctx, subcommand, 1, time.Since(start))
		fmt.Fprintln(os.Stdout, "snapshot recorded")
	default:
		return fmt.Errorf("unknown admin subcommand %q", subcommand)
	}

	return nil
}

// adminClient issues authenticated JSON POST requests against the
// ingestion server's administrative endpoints.
type adminClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func newAdminClient(baseURL, apiKey string) *adminClient {
	return &adminClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: time.Hour},
	}
}

func (c *adminClient) post(ctx context.Context, path string, payload any, out any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+path, bytes.NewReader(encoded))
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
		return fmt.Errorf("backend returned %d for %s: %s", resp.StatusCode, path, string(body))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}
	return nil
}
