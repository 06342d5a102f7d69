package scheduler

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the normalized, validated configuration for a scheduler run:
// one GlobalConfig plus one RepoConfig per tracked repository.
type Config struct {
	Global GlobalConfig
	Repos  []RepoConfig
}

// GlobalConfig holds settings shared across every tracked repository.
type GlobalConfig struct {
	StateDir           string
	DefaultInterval    time.Duration
	MaxRepoConcurrency int
	GitBin             string
	IndexerBin         string
	IndexerArgs        []string
	FinishHook         *HookConfig
}

// RepoConfig describes one repository to poll: its remote URL, branch
// patterns to track, and the hooks/indexer arguments to run per branch.
type RepoConfig struct {
	Name            string
	URL             string
	Interval        time.Duration
	Branches        []string
	IndexerArgs     []string
	PerBranch       []PerBranchConfig
	PreIndexHooks   []HookConfig
	PostUploadHooks []HookConfig
}

// PerBranchConfig overrides indexer arguments for one exact branch name.
type PerBranchConfig struct {
	Branch      string
	IndexerArgs []string
}

// HookConfig is a shell command run at a lifecycle point (pre-index,
// post-upload, or global finish), with an optional timeout.
type HookConfig struct {
	Command string
	Timeout time.Duration
}

// rawConfig mirrors the on-disk YAML shape before duration strings and
// defaults are normalized into Config.
type rawConfig struct {
	Global rawGlobalConfig `yaml:"global"`
	Repos  []rawRepoConfig `yaml:"repos"`
}

type rawGlobalConfig struct {
	StateDir           string       `yaml:"state_dir"`
	DefaultInterval    string       `yaml:"default_interval"`
	MaxRepoConcurrency int          `yaml:"max_repo_concurrency"`
	GitBin             string       `yaml:"git_bin"`
	IndexerBin         string       `yaml:"indexer_bin"`
	IndexerArgs        []string     `yaml:"indexer_args"`
	FinishHook         *rawHook     `yaml:"finish_hook"`
}

type rawRepoConfig struct {
	Name            string          `yaml:"name"`
	URL             string          `yaml:"url"`
	Interval        string          `yaml:"interval"`
	Branches        []string        `yaml:"branches"`
	IndexerArgs     []string        `yaml:"indexer_args"`
	PerBranch       []rawPerBranch  `yaml:"per_branch"`
	PreIndexHooks   []rawHook       `yaml:"pre_index_hooks"`
	PostUploadHooks []rawHook       `yaml:"post_upload_hooks"`
}

type rawPerBranch struct {
	Branch      string   `yaml:"branch"`
	IndexerArgs []string `yaml:"indexer_args"`
}

type rawHook struct {
	Command string `yaml:"command"`
	Timeout string `yaml:"timeout"`
}

// LoadConfig reads and normalizes a scheduler config file from path.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var parsed rawConfig
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	return normalizeConfig(parsed)
}

func normalizeConfig(raw rawConfig) (Config, error) {
	if len(raw.Repos) == 0 {
		return Config{}, fmt.Errorf("config must include at least one repo entry")
	}

	stateDir := raw.Global.StateDir
	if stateDir == "" {
		stateDir = ".pointersched-state"
	}

	defaultInterval, err := parseDuration(raw.Global.DefaultInterval, "global.default_interval", 5*time.Minute)
	if err != nil {
		return Config{}, err
	}

	maxConcurrency := raw.Global.MaxRepoConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}

	gitBin := raw.Global.GitBin
	if gitBin == "" {
		gitBin = "git"
	}
	indexerBin := raw.Global.IndexerBin
	if indexerBin == "" {
		indexerBin = "pointerindex"
	}

	finishHook, err := buildHook(raw.Global.FinishHook, "global.finish_hook")
	if err != nil {
		return Config{}, err
	}

	global := GlobalConfig{
		StateDir:           stateDir,
		DefaultInterval:    defaultInterval,
		MaxRepoConcurrency: maxConcurrency,
		GitBin:             gitBin,
		IndexerBin:         indexerBin,
		IndexerArgs:        raw.Global.IndexerArgs,
		FinishHook:         finishHook,
	}

	repos := make([]RepoConfig, 0, len(raw.Repos))
	for _, r := range raw.Repos {
		repo, err := buildRepo(r, defaultInterval)
		if err != nil {
			return Config{}, err
		}
		repos = append(repos, repo)
	}

	cfg := Config{Global: global, Repos: repos}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func buildRepo(raw rawRepoConfig, defaultInterval time.Duration) (RepoConfig, error) {
	interval := defaultInterval
	if raw.Interval != "" {
		parsed, err := parseDuration(raw.Interval, fmt.Sprintf("repo %q interval", raw.Name), 0)
		if err != nil {
			return RepoConfig{}, err
		}
		interval = parsed
	}

	preHooks := make([]HookConfig, 0, len(raw.PreIndexHooks))
	for _, h := range raw.PreIndexHooks {
		hook, err := buildHook(&h, fmt.Sprintf("repo %q pre_index_hooks", raw.Name))
		if err != nil {
			return RepoConfig{}, err
		}
		preHooks = append(preHooks, *hook)
	}

	postHooks := make([]HookConfig, 0, len(raw.PostUploadHooks))
	for _, h := range raw.PostUploadHooks {
		hook, err := buildHook(&h, fmt.Sprintf("repo %q post_upload_hooks", raw.Name))
		if err != nil {
			return RepoConfig{}, err
		}
		postHooks = append(postHooks, *hook)
	}

	perBranch := make([]PerBranchConfig, 0, len(raw.PerBranch))
	branches := append([]string(nil), raw.Branches...)
	for _, pb := range raw.PerBranch {
		perBranch = append(perBranch, PerBranchConfig{Branch: pb.Branch, IndexerArgs: pb.IndexerArgs})
		found := false
		for _, b := range branches {
			if b == pb.Branch {
				found = true
				break
			}
		}
		if !found {
			branches = append(branches, pb.Branch)
		}
	}

	return RepoConfig{
		Name:            raw.Name,
		URL:             raw.URL,
		Interval:        interval,
		Branches:        branches,
		IndexerArgs:     raw.IndexerArgs,
		PerBranch:       perBranch,
		PreIndexHooks:   preHooks,
		PostUploadHooks: postHooks,
	}, nil
}

func buildHook(raw *rawHook, context string) (*HookConfig, error) {
	if raw == nil {
		return nil, nil
	}

	var timeout time.Duration
	if raw.Timeout != "" {
		parsed, err := parseDuration(raw.Timeout, context+".timeout", 0)
		if err != nil {
			return nil, err
		}
		timeout = parsed
	}

	return &HookConfig{Command: raw.Command, Timeout: timeout}, nil
}

func parseDuration(value, field string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q: %w", field, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration for %s must be greater than zero", field)
	}
	return d, nil
}

// Validate checks structural invariants that normalization alone can't
// guarantee: non-empty names/URLs/branch patterns, valid glob syntax,
// non-duplicated per-branch overrides.
func (c Config) Validate() error {
	if len(c.Repos) == 0 {
		return fmt.Errorf("config must include at least one repo entry")
	}

	if c.Global.FinishHook != nil && c.Global.FinishHook.Command == "" {
		return fmt.Errorf("global.finish_hook.command must not be empty")
	}

	for _, repo := range c.Repos {
		if repo.Name == "" {
			return fmt.Errorf("repo.name must not be empty")
		}
		if repo.URL == "" {
			return fmt.Errorf("repo.url must not be empty for repo %q", repo.Name)
		}
		if len(repo.Branches) == 0 {
			return fmt.Errorf("repo %q must define at least one branch pattern", repo.Name)
		}

		for _, pattern := range repo.Branches {
			if pattern == "" {
				return fmt.Errorf("repo %q contains an empty branch pattern", repo.Name)
			}
			if isGlobPattern(pattern) {
				if _, err := filepath.Match(pattern, "probe"); err != nil {
					return fmt.Errorf("repo %q has invalid branch glob %q: %w", repo.Name, pattern, err)
				}
			}
		}

		for _, hook := range append(append([]HookConfig(nil), repo.PreIndexHooks...), repo.PostUploadHooks...) {
			if hook.Command == "" {
				return fmt.Errorf("repo %q has a hook with empty command", repo.Name)
			}
		}

		seen := make(map[string]bool, len(repo.PerBranch))
		for _, cfg := range repo.PerBranch {
			if cfg.Branch == "" {
				return fmt.Errorf("repo %q has a per_branch entry with an empty branch", repo.Name)
			}
			if isGlobPattern(cfg.Branch) {
				return fmt.Errorf("repo %q per_branch.branch must be an exact branch name, got %q", repo.Name, cfg.Branch)
			}
			if seen[cfg.Branch] {
				return fmt.Errorf("repo %q has duplicate per_branch config for branch %q", repo.Name, cfg.Branch)
			}
			seen[cfg.Branch] = true
		}
	}

	return nil
}

func isGlobPattern(s string) bool {
	for _, c := range s {
		if c == '*' || c == '?' || c == '[' {
			return true
		}
	}
	return false
}
