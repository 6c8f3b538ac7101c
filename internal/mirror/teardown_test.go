package mirror

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gsync/internal/repo"
	"github.com/roach88/gsync/internal/testutil"
)

func TestTeardown_NormalModeOnlyRestoresWorking(t *testing.T) {
	git := testutil.NewFakeRunner()
	r := repo.New("/work/app", "")
	r.Prepared = "base"

	err := Teardown(context.Background(), git, r, testSession(false, ""), testLogger())
	require.NoError(t, err)

	assert.Equal(t, []string{"git -C /work/app checkout master"}, git.Calls(),
		"without update mode there is nothing to fold")
}

func TestTeardown_RestoreFailureIsFatal(t *testing.T) {
	git := testutil.NewFakeRunner()
	git.Stub("checkout master", "", testutil.ExitError(1))
	r := repo.New("/work/app", "")

	err := Teardown(context.Background(), git, r, testSession(true, ""), testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "restore master")
}

func TestTeardown_SkipsFoldWhenNothingCommitted(t *testing.T) {
	git := testutil.NewFakeRunner()
	git.Stub("rev-parse refs/heads/feature", "base", nil)
	r := repo.New("/work/app", "")
	r.Prepared = "base"

	err := Teardown(context.Background(), git, r, testSession(true, ""), testLogger())
	require.NoError(t, err)

	assert.Zero(t, git.CountPrefix("rebase"), "mirror tip unchanged since prepare")
}

func TestTeardown_FoldsAutoCommits(t *testing.T) {
	git := testutil.NewFakeRunner()
	comment := testSession(true, "").Comment("app")
	inspected := 0
	git.Handler = func(dir string, args []string) (string, error) {
		switch strings.Join(args, " ") {
		case "rev-parse refs/heads/feature":
			return "tip", nil
		case "log -1 --pretty=%s":
			inspected++
			// Two auto-commits sit on top of the operator's last commit.
			if inspected <= 2 {
				return comment, nil
			}
			return "add parser", nil
		}
		return "", nil
	}
	r := repo.New("/work/app", "")
	r.Prepared = "base"

	err := Teardown(context.Background(), git, r, testSession(true, ""), testLogger())
	require.NoError(t, err)

	golden(t).Assert(t, "teardown_fold", []byte(git.Transcript()))
}

func TestTeardown_FoldFailureKeepsMirrorBranch(t *testing.T) {
	git := testutil.NewFakeRunner()
	git.Stub("rev-parse refs/heads/feature", "tip", nil)
	git.Stub("rebase", "", testutil.ExitError(1))
	r := repo.New("/work/app", "")
	r.Prepared = "base"

	err := Teardown(context.Background(), git, r, testSession(true, ""), testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "the mirror branch feature still holds them")

	// The working branch was restored before the fold was attempted.
	assert.Equal(t, 1, git.CountPrefix("checkout master"))
}
