package scheduler

import "testing"

func TestSanitizeBranch(t *testing.T) {
	cases := map[string]string{
		"main":           "main",
		"release/1.2.3":  "release_1.2.3",
		"feature/foo bar": "feature_foo_bar",
		"a..b":           "a..b",
	}
	for in, want := range cases {
		if got := sanitizeBranch(in); got != want {
			t.Errorf("sanitizeBranch(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMatchesAny(t *testing.T) {
	patterns := []string{"main", "release/*"}

	cases := []struct {
		branch string
		want   bool
	}{
		{"main", true},
		{"release/1.0", true},
		{"release", false},
		{"develop", false},
	}

	for _, c := range cases {
		if got := matchesAny(c.branch, patterns); got != c.want {
			t.Errorf("matchesAny(%q, %v) = %v, want %v", c.branch, patterns, got, c.want)
		}
	}
}
