package scheduler

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/ferg-cod3s/pointerindex/internal/observability"
)

// BranchOutcome classifies how one branch's cycle ended.
type BranchOutcome int

const (
	BranchUnchanged BranchOutcome = iota
	BranchIndexed
	BranchFailed
)

func (o BranchOutcome) String() string {
	switch o {
	case BranchUnchanged:
		return "unchanged"
	case BranchIndexed:
		return "indexed"
	case BranchFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// CycleStats summarizes one repo's pass over its tracked branches.
type CycleStats struct {
	BranchesTotal            int
	BranchesChanged          int
	BranchesSkippedUnchanged int
	BranchesSucceeded        int
	BranchesFailed           int
}

// Scheduler runs periodic indexing cycles over every configured
// repository, bounding concurrent repo cycles to Global.MaxRepoConcurrency
// and persisting per-branch progress to a State file between cycles.
type Scheduler struct {
	cfg    Config
	state  *State
	logger *observability.Logger
	shell  string

	sem chan struct{}

	mu       sync.Mutex
	lastRun  map[string]time.Time
	ranOnce  map[string]bool
}

// NewScheduler builds a Scheduler from cfg, loading or initializing its
// state file at cfg.Global.StateDir/state.json.
func NewScheduler(cfg Config, logger *observability.Logger) (*Scheduler, error) {
	statePath := filepath.Join(cfg.Global.StateDir, "state.json")
	state, err := LoadState(statePath)
	if err != nil {
		return nil, fmt.Errorf("load scheduler state: %w", err)
	}

	return &Scheduler{
		cfg:     cfg,
		state:   state,
		logger:  logger,
		shell:   "sh",
		sem:     make(chan struct{}, cfg.Global.MaxRepoConcurrency),
		lastRun: make(map[string]time.Time),
		ranOnce: make(map[string]bool),
	}, nil
}

// ValidateRuntime checks that the indexer binary resolves on PATH before
// any cycle runs, so misconfiguration fails fast instead of mid-sweep.
// go-git handles mirror/fetch/checkout in-process, so unlike the
// reference scheduler there is no separate git-binary check to perform.
func (s *Scheduler) ValidateRuntime() error {
	if _, err := exec.LookPath(s.cfg.Global.IndexerBin); err != nil {
		return fmt.Errorf("indexer binary %q not found: %w", s.cfg.Global.IndexerBin, err)
	}
	return nil
}

// RunOnce runs exactly one cycle over every configured repository
// concurrently, then the global finish hook once all repos complete.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var wg sync.WaitGroup
	errs := make([]error, len(s.cfg.Repos))

	for i, repo := range s.cfg.Repos {
		wg.Add(1)
		go func(i int, repo RepoConfig) {
			defer wg.Done()
			errs[i] = s.runRepoCycle(ctx, repo)
		}(i, repo)
	}
	wg.Wait()

	if err := s.runGlobalFinishHook(ctx); err != nil {
		s.logf("global finish hook failed: %v", err)
	}

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// RunForever runs cycles continuously, waking each repo at its configured
// interval, until ctx is canceled. The global finish hook fires once per
// sweep, after every repo has run its cycle at least once during that
// sweep.
func (s *Scheduler) RunForever(ctx context.Context) error {
	var wg sync.WaitGroup
	done := make(chan struct{})

	for _, repo := range s.cfg.Repos {
		wg.Add(1)
		go func(repo RepoConfig) {
			defer wg.Done()
			s.repoLoop(ctx, repo)
		}(repo)
	}

	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		wg.Wait()
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (s *Scheduler) repoLoop(ctx context.Context, repo RepoConfig) {
	interval := repo.Interval
	if interval <= 0 {
		interval = s.cfg.Global.DefaultInterval
	}

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if err := s.runRepoCycle(ctx, repo); err != nil {
			s.logf("repo %q cycle failed: %v", repo.Name, err)
		}
		s.markRan(repo.Name)
		s.maybeRunFinishHook(ctx)

		timer.Reset(interval)
	}
}

func (s *Scheduler) markRan(repoName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRun[repoName] = time.Now()
	s.ranOnce[repoName] = true
}

func (s *Scheduler) maybeRunFinishHook(ctx context.Context) {
	s.mu.Lock()
	allRan := len(s.ranOnce) == len(s.cfg.Repos)
	if allRan {
		s.ranOnce = make(map[string]bool)
	}
	s.mu.Unlock()

	if !allRan {
		return
	}
	if err := s.runGlobalFinishHook(ctx); err != nil {
		s.logf("global finish hook failed: %v", err)
	}
}

// runRepoCycle acquires a concurrency permit, runs runRepoCycleInner, and
// logs a cycle summary regardless of outcome.
func (s *Scheduler) runRepoCycle(ctx context.Context, repo RepoConfig) error {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.sem }()

	start := time.Now()
	s.logf("repo %q cycle begin", repo.Name)

	stats, err := s.runRepoCycleInner(ctx, repo)

	s.logf("repo %q cycle end duration=%s total=%d changed=%d unchanged=%d succeeded=%d failed=%d",
		repo.Name, time.Since(start), stats.BranchesTotal, stats.BranchesChanged,
		stats.BranchesSkippedUnchanged, stats.BranchesSucceeded, stats.BranchesFailed)

	return err
}

func (s *Scheduler) runRepoCycleInner(ctx context.Context, repo RepoConfig) (CycleStats, error) {
	var stats CycleStats

	g := NewGit(s.cfg.Global.StateDir, repo.Name, repo.URL)
	if err := g.EnsureMirror(); err != nil {
		return stats, fmt.Errorf("ensure mirror for %q: %w", repo.Name, err)
	}
	if err := g.FetchConfiguredPatterns(repo.Branches); err != nil {
		return stats, fmt.Errorf("fetch patterns for %q: %w", repo.Name, err)
	}

	resolved, err := g.ResolveBranches(repo.Branches)
	if err != nil {
		return stats, fmt.Errorf("resolve branches for %q: %w", repo.Name, err)
	}
	stats.BranchesTotal = len(resolved)

	var firstErr error
	for _, rb := range resolved {
		outcome := s.processBranch(ctx, g, repo, rb)
		switch outcome {
		case BranchUnchanged:
			stats.BranchesSkippedUnchanged++
		case BranchIndexed:
			stats.BranchesChanged++
			stats.BranchesSucceeded++
		case BranchFailed:
			stats.BranchesChanged++
			stats.BranchesFailed++
			if firstErr == nil {
				firstErr = fmt.Errorf("branch %q failed", rb.Branch)
			}
		}
	}

	return stats, firstErr
}

func (s *Scheduler) indexerArgsFor(repo RepoConfig, branch string) []string {
	for _, pb := range repo.PerBranch {
		if pb.Branch == branch {
			return pb.IndexerArgs
		}
	}
	return nil
}

// processBranch skips branches already indexed at their current commit,
// otherwise prepares a worktree, runs pre-index hooks, invokes the
// indexer, runs post-upload hooks, and persists progress on success.
func (s *Scheduler) processBranch(ctx context.Context, g *Git, repo RepoConfig, rb ResolvedBranch) BranchOutcome {
	if s.state.HasCommit(repo.Name, rb.Branch, rb.Commit) {
		return BranchUnchanged
	}

	worktree, err := g.PrepareWorktree(rb.Branch, rb.Commit)
	if err != nil {
		s.logf("repo %q branch %q: prepare worktree failed: %v", repo.Name, rb.Branch, err)
		return BranchFailed
	}

	for _, hook := range repo.PreIndexHooks {
		if _, err := runHook(ctx, s.shell, hook, repo.Name, rb.Branch, rb.Commit, worktree, s.cfg.Global.StateDir); err != nil {
			s.logf("repo %q branch %q: pre-index hook failed: %v", repo.Name, rb.Branch, err)
			return BranchFailed
		}
	}

	branchArgs := s.indexerArgsFor(repo, rb.Branch)
	result, err := runIndexer(ctx, s.cfg.Global.IndexerBin, s.cfg.Global.IndexerArgs, repo.IndexerArgs, branchArgs,
		repo.Name, rb.Branch, rb.Commit, worktree)
	if s.logger != nil {
		s.logger.LogIndexerOperation(ctx, fmt.Sprintf("%s@%s", repo.Name, rb.Branch), worktree, result.Duration)
	}
	if err != nil {
		s.logf("repo %q branch %q: %s", repo.Name, rb.Branch, summarizeOutput("indexer failed", result.Stdout, result.Stderr))
		return BranchFailed
	}

	for _, hook := range repo.PostUploadHooks {
		if _, err := runHook(ctx, s.shell, hook, repo.Name, rb.Branch, rb.Commit, worktree, s.cfg.Global.StateDir); err != nil {
			s.logf("repo %q branch %q: post-upload hook failed: %v", repo.Name, rb.Branch, err)
			return BranchFailed
		}
	}

	s.state.UpdateSuccess(repo.Name, rb.Branch, rb.Commit)
	if err := s.state.Save(); err != nil {
		s.logf("repo %q branch %q: save state failed: %v", repo.Name, rb.Branch, err)
		return BranchFailed
	}

	return BranchIndexed
}

func (s *Scheduler) runGlobalFinishHook(ctx context.Context) error {
	hook := s.cfg.Global.FinishHook
	if hook == nil {
		return nil
	}
	_, err := runHook(ctx, s.shell, *hook, "", "", "", "", s.cfg.Global.StateDir)
	return err
}

func (s *Scheduler) logf(format string, args ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Info(fmt.Sprintf(format, args...))
}
