package scheduler

import "testing"

func TestIndexerArgsFor(t *testing.T) {
	repo := RepoConfig{
		PerBranch: []PerBranchConfig{
			{Branch: "release", IndexerArgs: []string{"--live"}},
		},
	}

	s := &Scheduler{}

	if got := s.indexerArgsFor(repo, "release"); !equalStrings(got, []string{"--live"}) {
		t.Errorf("indexerArgsFor(release) = %v, want [--live]", got)
	}
	if got := s.indexerArgsFor(repo, "main"); got != nil {
		t.Errorf("indexerArgsFor(main) = %v, want nil", got)
	}
}

func TestBranchOutcomeString(t *testing.T) {
	cases := map[BranchOutcome]string{
		BranchUnchanged: "unchanged",
		BranchIndexed:   "indexed",
		BranchFailed:    "failed",
	}
	for outcome, want := range cases {
		if got := outcome.String(); got != want {
			t.Errorf("BranchOutcome(%d).String() = %q, want %q", outcome, got, want)
		}
	}
}
