package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_FlagBeatsStored(t *testing.T) {
	cfg, err := Resolve("/work/app",
		Flags{Branch: "feature", URI: "host:/new"},
		Stored{Branch: "old", URI: "host:/old"},
		Project{})
	require.NoError(t, err)

	assert.Equal(t, "feature", cfg.Branch)
	assert.Equal(t, "host:/new", cfg.URI)
	assert.Equal(t, "feature_origin", cfg.Remote)
}

func TestResolve_StoredFillsGaps(t *testing.T) {
	cfg, err := Resolve("/work/app",
		Flags{},
		Stored{Branch: "feature", URI: "host:/repo"},
		Project{})
	require.NoError(t, err)

	assert.Equal(t, "feature", cfg.Branch)
	assert.Equal(t, "host:/repo", cfg.URI)
}

func TestResolve_BranchRequired(t *testing.T) {
	_, err := Resolve("/work/app", Flags{}, Stored{}, Project{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no mirror branch")
}

func TestResolve_Defaults(t *testing.T) {
	cfg, err := Resolve("/work/app", Flags{Branch: "feature"}, Stored{}, Project{})
	require.NoError(t, err)

	assert.Equal(t, "master", cfg.Master)
	assert.Equal(t, 200*time.Millisecond, cfg.Debounce)
	assert.Contains(t, cfg.Ignore, ".git")
	assert.Contains(t, cfg.Ignore, "node_modules")
	assert.False(t, cfg.Update)
	assert.False(t, cfg.Pull)
}

func TestResolve_MasterPrecedence(t *testing.T) {
	// Flag > project file > default.
	cfg, err := Resolve("/r", Flags{Branch: "b", Master: "main"}, Stored{}, Project{Master: "trunk"})
	require.NoError(t, err)
	assert.Equal(t, "main", cfg.Master)

	cfg, err = Resolve("/r", Flags{Branch: "b"}, Stored{}, Project{Master: "trunk"})
	require.NoError(t, err)
	assert.Equal(t, "trunk", cfg.Master)
}

func TestResolve_ProjectTuning(t *testing.T) {
	cfg, err := Resolve("/r", Flags{Branch: "b"}, Stored{},
		Project{DebounceMS: 500, Ignore: []string{"dist"}})
	require.NoError(t, err)

	assert.Equal(t, 500*time.Millisecond, cfg.Debounce)
	assert.Contains(t, cfg.Ignore, "dist")
	assert.Contains(t, cfg.Ignore, ".git", "built-in ignores are kept")
}

func TestMirrorRemote(t *testing.T) {
	assert.Equal(t, "feature_origin", MirrorRemote("feature"))
	assert.Equal(t, "wip/x_origin", MirrorRemote("wip/x"))
}

func TestComment_Deterministic(t *testing.T) {
	s := &Session{Branch: "feature"}
	assert.Equal(t, "gsync:auto:commit:feature:app", s.Comment("app"))
	// Exact reproducibility matters: teardown's fold searches history
	// for this string verbatim.
	assert.Equal(t, s.Comment("app"), s.Comment("app"))
}
