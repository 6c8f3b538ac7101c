package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execRoot(t *testing.T, args ...string) error {
	t.Helper()
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	return cmd.Execute()
}

func TestRoot_PullRequiresMessage(t *testing.T) {
	err := execRoot(t, "--pull")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "-m")
}

func TestRoot_PullAndUpdateExclusive(t *testing.T) {
	err := execRoot(t, "--pull", "-m", "msg", "--update")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestRoot_RejectsExtraArguments(t *testing.T) {
	err := execRoot(t, "feature", "host:/repo", "surplus")
	require.Error(t, err)
}

func TestDatabasePath(t *testing.T) {
	assert.Equal(t, "/tmp/state.db", databasePath(&RootOptions{Database: "/tmp/state.db"}, "/work/app"))
	assert.Equal(t, "/work/app/.git/gsync.db", databasePath(&RootOptions{}, "/work/app"))
}
