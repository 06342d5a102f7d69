package scheduler

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
)

// RepoPaths resolves the on-disk layout for one tracked repository: a bare
// mirror clone plus a worktrees directory holding one checkout per branch
// currently being indexed.
type RepoPaths struct {
	Mirror        string
	WorktreesRoot string
}

func repoPaths(stateDir, repoName string) RepoPaths {
	base := filepath.Join(stateDir, "repos", repoName)
	return RepoPaths{
		Mirror:        filepath.Join(base, "mirror.git"),
		WorktreesRoot: filepath.Join(base, "worktrees"),
	}
}

// Git wraps go-git operations for one repository: mirroring, fetching the
// configured branch patterns, resolving matched branches to commit SHAs,
// and materializing a branch's commit into its own working directory.
//
// go-git has no first-class equivalent of `git worktree add` against a
// single repository object, so "worktrees" here are independent non-bare
// clones sourced from the local bare mirror's filesystem path, each
// checked out to the commit being indexed.
type Git struct {
	paths RepoPaths
	url   string
}

// NewGit builds a Git wrapper for repoName rooted under stateDir.
func NewGit(stateDir, repoName, url string) *Git {
	return &Git{paths: repoPaths(stateDir, repoName), url: url}
}

// Paths returns the resolved mirror/worktrees paths for this repository.
func (g *Git) Paths() RepoPaths {
	return g.paths
}

// EnsureMirror creates the bare mirror clone if it does not already exist.
func (g *Git) EnsureMirror() error {
	if _, err := os.Stat(g.paths.Mirror); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat mirror %s: %w", g.paths.Mirror, err)
	}

	if err := os.MkdirAll(filepath.Dir(g.paths.Mirror), 0o755); err != nil {
		return fmt.Errorf("create mirror parent directory: %w", err)
	}

	_, err := git.PlainClone(g.paths.Mirror, true, &git.CloneOptions{
		URL:  g.url,
		Tags: git.NoTags,
	})
	if err != nil {
		return fmt.Errorf("clone mirror for %s: %w", g.url, err)
	}
	return nil
}

// FetchConfiguredPatterns fetches refs matching the configured branch
// patterns into refs/remotes/origin, pruning stale remote-tracking refs.
// Exact branch names are fetched directly; glob patterns fetch the full
// refs/heads namespace since the remote can't glob-filter for us, and
// ResolveBranches narrows the result locally.
func (g *Git) FetchConfiguredPatterns(patterns []string) error {
	repo, err := git.PlainOpen(g.paths.Mirror)
	if err != nil {
		return fmt.Errorf("open mirror %s: %w", g.paths.Mirror, err)
	}

	specs := make([]config.RefSpec, 0, len(patterns))
	needsFullFetch := false
	for _, pattern := range patterns {
		if isGlobPattern(pattern) {
			needsFullFetch = true
			continue
		}
		specs = append(specs, config.RefSpec(fmt.Sprintf(
			"+refs/heads/%s:refs/remotes/origin/%s", pattern, pattern,
		)))
	}
	if needsFullFetch {
		specs = []config.RefSpec{"+refs/heads/*:refs/remotes/origin/*"}
	}

	err = repo.Fetch(&git.FetchOptions{
		RemoteName: "origin",
		RefSpecs:   specs,
		Tags:       git.NoTags,
		Prune:      true,
		Depth:      1,
	})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return fmt.Errorf("fetch %s: %w", g.url, err)
	}
	return nil
}

// ResolveBranches lists every refs/remotes/origin/* ref, glob-matches it
// against patterns, and returns the matched branch names with their
// resolved commit SHAs, sorted by branch name for deterministic cycles.
func (g *Git) ResolveBranches(patterns []string) ([]ResolvedBranch, error) {
	repo, err := git.PlainOpen(g.paths.Mirror)
	if err != nil {
		return nil, fmt.Errorf("open mirror %s: %w", g.paths.Mirror, err)
	}

	refs, err := repo.References()
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}

	const remotePrefix = "refs/remotes/origin/"
	var matched []ResolvedBranch
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().String()
		if !strings.HasPrefix(name, remotePrefix) {
			return nil
		}
		branch := strings.TrimPrefix(name, remotePrefix)
		if branch == "HEAD" {
			return nil
		}
		if !matchesAny(branch, patterns) {
			return nil
		}

		commit, err := repo.ResolveRevision(plumbing.Revision(name))
		if err != nil {
			return fmt.Errorf("resolve %s: %w", name, err)
		}

		matched = append(matched, ResolvedBranch{Branch: branch, Commit: commit.String()})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].Branch < matched[j].Branch })
	return matched, nil
}

func matchesAny(branch string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, _ := filepath.Match(pattern, branch); ok {
			return true
		}
	}
	return false
}

// ResolvedBranch pairs a remote branch name with the commit it currently
// points at.
type ResolvedBranch struct {
	Branch string
	Commit string
}

// sanitizeBranch maps a branch name to a filesystem-safe worktree
// directory name by replacing anything other than letters, digits, '_',
// '-', and '.' with '_'.
func sanitizeBranch(branch string) string {
	var b strings.Builder
	b.Grow(len(branch))
	for _, r := range branch {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// PrepareWorktree materializes commit into an isolated working directory
// for branch. An existing checkout is reused as is when it is already at
// that commit and force-checked-out to commit otherwise; only when no
// checkout exists is one cloned fresh from the local mirror.
func (g *Git) PrepareWorktree(branch, commit string) (string, error) {
	dir := filepath.Join(g.paths.WorktreesRoot, sanitizeBranch(branch))

	if repo, err := git.PlainOpen(dir); err == nil {
		head, err := repo.Head()
		if err == nil && head.Hash().String() == commit {
			return dir, nil
		}
		wt, err := repo.Worktree()
		if err != nil {
			return "", fmt.Errorf("open worktree at %s: %w", dir, err)
		}
		if err := wt.Checkout(&git.CheckoutOptions{
			Hash:  plumbing.NewHash(commit),
			Force: true,
		}); err != nil {
			return "", fmt.Errorf("checkout %s in %s: %w", commit, dir, err)
		}
		return dir, nil
	}

	if err := os.MkdirAll(g.paths.WorktreesRoot, 0o755); err != nil {
		return "", fmt.Errorf("create worktrees root %s: %w", g.paths.WorktreesRoot, err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("clear stale worktree dir %s: %w", dir, err)
	}

	repo, err := git.PlainClone(dir, false, &git.CloneOptions{
		URL:  g.paths.Mirror,
		Tags: git.NoTags,
	})
	if err != nil {
		return "", fmt.Errorf("clone worktree for %s@%s: %w", branch, commit, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("open worktree at %s: %w", dir, err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{
		Hash:  plumbing.NewHash(commit),
		Force: true,
	}); err != nil {
		return "", fmt.Errorf("checkout %s in %s: %w", commit, dir, err)
	}

	return dir, nil
}
