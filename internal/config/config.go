// Package config resolves the immutable configuration of one sync
// session: the mirror branch, the derived mirror remote, the remote URI,
// mode flags and watcher tuning. Values come from CLI flags first, then
// from values persisted by previous runs; the resolved result is written
// back so the next invocation can omit them.
package config

import (
	"fmt"
	"time"
)

// DefaultMaster is the working branch name used when none is configured.
const DefaultMaster = "master"

// DefaultDebounce is the delay before a commit cycle blocked by an
// in-flight cycle is retried.
const DefaultDebounce = 200 * time.Millisecond

// commentTag prefixes every automatic commit message. The full message
// is deterministic because Teardown's fold step searches commit history
// for it verbatim.
const commentTag = "gsync:auto:commit"

// Persisted configuration keys. Booleans round-trip through the literal
// strings "true" and "false".
const (
	KeyBranch = "branch"
	KeyURI    = "repositoryUri"
	KeyUpdate = "update"
)

// Session is the configuration of one sync run. It is immutable once
// resolved.
type Session struct {
	// Branch is the mirror branch name.
	Branch string

	// Remote is the mirror remote name, derived as "<branch>_origin".
	Remote string

	// URI is the mirror remote URI. May be empty when a previous run
	// already configured the remote in the repository.
	URI string

	// Master is the working branch the mirror is taken from and
	// restored to at teardown.
	Master string

	// Update publishes the local working branch as the new remote
	// baseline instead of fetching the remote's.
	Update bool

	// Pull squash-merges the mirror branch back into the working
	// branch instead of starting a watch session.
	Pull bool

	// PullMessage is the operator-supplied commit message for Pull.
	PullMessage string

	// Root is the superproject root path.
	Root string

	// Debounce is the pending-retry delay for the commit coordinator.
	Debounce time.Duration

	// Ignore lists directory names excluded from watching.
	Ignore []string
}

// Stored holds the values remembered by previous runs, read from the
// persisted store before resolution. Update is recorded for history but
// never implied: publishing a new baseline is always an explicit choice.
type Stored struct {
	Branch string
	URI    string
	Update bool
}

// Flags holds the values supplied explicitly on the command line.
// Empty strings and false booleans mean "not supplied" except for
// Update, which is only ever set explicitly.
type Flags struct {
	Branch      string
	URI         string
	Master      string
	Update      bool
	Pull        bool
	PullMessage string
}

// Resolve merges explicit flags over stored values into a Session.
// An explicit value always wins; stored values fill the gaps. The
// mirror branch is required from one of the two sources.
func Resolve(root string, flags Flags, stored Stored, proj Project) (*Session, error) {
	branch := flags.Branch
	if branch == "" {
		branch = stored.Branch
	}
	if branch == "" {
		return nil, fmt.Errorf("no mirror branch: pass one as an argument or run gsync once with a branch to remember it")
	}

	uri := flags.URI
	if uri == "" {
		uri = stored.URI
	}

	master := flags.Master
	if master == "" {
		master = proj.Master
	}
	if master == "" {
		master = DefaultMaster
	}

	return &Session{
		Branch:      branch,
		Remote:      MirrorRemote(branch),
		URI:         uri,
		Master:      master,
		Update:      flags.Update,
		Pull:        flags.Pull,
		PullMessage: flags.PullMessage,
		Root:        root,
		Debounce:    proj.debounce(),
		Ignore:      proj.ignore(),
	}, nil
}

// MirrorRemote derives the mirror remote name for a branch.
func MirrorRemote(branch string) string {
	return branch + "_origin"
}

// Comment returns the deterministic automatic commit message for one
// repository: "<tag>:<branch>:<repository-id>". Teardown's fold step
// relies on exact reproducibility of this string.
func (s *Session) Comment(repoID string) string {
	return commentTag + ":" + s.Branch + ":" + repoID
}
