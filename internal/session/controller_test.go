package session

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gsync/internal/config"
	"github.com/roach88/gsync/internal/store"
	"github.com/roach88/gsync/internal/testutil"
)

func testConfig(root string) *config.Session {
	return &config.Session{
		Branch:   "feature",
		Remote:   "feature_origin",
		Master:   "master",
		Root:     root,
		Debounce: 50 * time.Millisecond,
		Ignore:   []string{".git"},
	}
}

// stubHealthyRepo scripts the replies a clean, fully configured
// single-repository superproject gives during discovery and prepare.
func stubHealthyRepo(git *testutil.FakeRunner) {
	git.Stub("config --file", "", testutil.ExitError(1)) // no submodule manifest
	git.Stub("remote get-url", "host:/repo", nil)
	git.Stub("rev-parse --verify", "", testutil.ExitError(1))
	git.Stub("rev-parse HEAD", "abc123", nil)
}

func newController(cfg *config.Session, git *testutil.FakeRunner) *Controller {
	return &Controller{
		Config: cfg,
		Git:    git,
		Log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func callIndex(calls []string, fragment string) int {
	for i, call := range calls {
		if strings.Contains(call, fragment) {
			return i
		}
	}
	return -1
}

func TestRun_PullModePreparesThenFolds(t *testing.T) {
	git := testutil.NewFakeRunner()
	stubHealthyRepo(git)
	cfg := testConfig("/work/app")
	cfg.Pull = true
	cfg.PullMessage = "land feature work"

	err := newController(cfg, git).Run(context.Background())
	require.NoError(t, err)

	calls := git.Calls()
	fetch := callIndex(calls, "fetch feature_origin")
	merge := callIndex(calls, "merge --squash feature")
	commit := callIndex(calls, "commit -m land feature work")
	require.NotEqual(t, -1, fetch, "prepare must run before pulling")
	require.NotEqual(t, -1, merge)
	require.NotEqual(t, -1, commit)
	assert.Less(t, fetch, merge)
	assert.Less(t, merge, commit)
}

func TestRun_PullConflictDoesNotFailSession(t *testing.T) {
	git := testutil.NewFakeRunner()
	stubHealthyRepo(git)
	git.Stub("merge --squash", "", testutil.ExitError(1))
	cfg := testConfig("/work/app")
	cfg.Pull = true
	cfg.PullMessage = "msg"

	err := newController(cfg, git).Run(context.Background())
	require.NoError(t, err, "conflicts are left for the operator, not fatal")
	assert.Zero(t, git.CountPrefix("commit -m msg"))
}

func TestRun_DirtyRepositoryAbortsBeforeWatching(t *testing.T) {
	git := testutil.NewFakeRunner()
	stubHealthyRepo(git)
	git.Stub("status --porcelain", " M main.go", nil)

	err := newController(testConfig("/work/app"), git).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "uncommitted changes")
	assert.Zero(t, git.CountPrefix("push"))
	assert.Zero(t, git.CountPrefix("checkout"))
}

func TestRun_DiscoverFailureIsFatal(t *testing.T) {
	git := testutil.NewFakeRunner()
	git.Stub("config --file", "", testutil.ExitError(128))

	err := newController(testConfig("/work/app"), git).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discover repositories")
}

func TestRun_WatchModeShutdownRestoresWorkingBranch(t *testing.T) {
	root := t.TempDir()
	git := testutil.NewFakeRunner()
	stubHealthyRepo(git)

	ctx, cancel := context.WithCancel(context.Background())
	timer := time.AfterFunc(150*time.Millisecond, cancel)
	defer timer.Stop()

	err := newController(testConfig(root), git).Run(ctx)
	require.NoError(t, err, "cancellation is the normal shutdown path")

	calls := git.Calls()
	require.NotEmpty(t, calls)
	assert.Equal(t, "git -C "+root+" checkout master", calls[len(calls)-1],
		"teardown leaves the repository on its working branch")
	// Once during prepare, once during teardown.
	assert.Equal(t, 2, git.CountPrefix("checkout master"))
}

func TestRun_RecordsSessionHistory(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "gsync.db"))
	require.NoError(t, err)
	defer st.Close()

	git := testutil.NewFakeRunner()
	stubHealthyRepo(git)
	cfg := testConfig("/work/app")
	cfg.Pull = true
	cfg.PullMessage = "msg"

	c := newController(cfg, git)
	c.Store = st
	require.NoError(t, c.Run(context.Background()))

	sessions, err := st.Sessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "feature", sessions[0].Branch)
	assert.Equal(t, "pull", sessions[0].Mode)
	assert.False(t, sessions[0].EndedAt.IsZero(), "session end is stamped on the way out")
}
