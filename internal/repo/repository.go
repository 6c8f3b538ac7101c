// Package repo models the repositories participating in a sync session
// - the superproject and each of its submodules - and answers two
// questions about them: what state is a repository in right now
// (Probe), and which repository owns a changed path (Routes).
package repo

import (
	"context"
	"path"
	"strings"

	"github.com/roach88/gsync/internal/config"
	"github.com/roach88/gsync/internal/gitexec"
)

// Repository is one version-controlled root participating in the
// session. The session controller owns the list of repositories for the
// lifetime of the run.
type Repository struct {
	// Root is the absolute repository root path.
	Root string

	// Prefix is the repository's path prefix relative to the
	// superproject root, slash-separated and slash-terminated.
	// Empty for the superproject itself.
	Prefix string

	// ID is a short identifier derived from the final segment of Root.
	// It participates in the deterministic commit comment.
	ID string

	// Snap is the state captured by Probe during Prepare.
	Snap Snapshot

	// Prepared is the mirror branch HEAD right after Prepare. Teardown
	// compares the final mirror HEAD against it to tell whether any
	// auto-commits happened during the session.
	Prepared string

	// LastKnown is the last HEAD revision observed on the mirror
	// branch. The commit cycle compares the current HEAD against it to
	// decide amend-vs-new, and refreshes it after every successful
	// cycle. Only one commit cycle runs at a time, so no lock guards it.
	LastKnown string
}

// Snapshot is a point-in-time probe of one repository.
type Snapshot struct {
	// Revision is the current HEAD hash. Empty when the repository has
	// no commits yet.
	Revision string

	// Dirty reports uncommitted changes in the working tree.
	Dirty bool

	// RemoteURI is the mirror remote's configured URI, empty when the
	// remote is not configured.
	RemoteURI string

	// TrackedRemote is the remote the working branch tracks, empty
	// when it tracks none.
	TrackedRemote string

	// BranchExists reports whether the mirror branch exists locally.
	BranchExists bool
}

// New builds a Repository rooted at root with the given prefix relative
// to the superproject.
func New(root, prefix string) *Repository {
	return &Repository{
		Root:   root,
		Prefix: normalizePrefix(prefix),
		ID:     path.Base(strings.TrimRight(strings.ReplaceAll(root, "\\", "/"), "/")),
	}
}

func normalizePrefix(prefix string) string {
	prefix = strings.Trim(strings.ReplaceAll(prefix, "\\", "/"), "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

// Probe captures a Snapshot of the repository with five independent
// read-only git queries. A failing query degrades to the zero value for
// its field: an empty repository has no HEAD, an unconfigured remote has
// no URI, and neither is an error at probe time.
func Probe(ctx context.Context, git gitexec.Runner, r *Repository, cfg *config.Session) Snapshot {
	var snap Snapshot

	if rev, err := git.Run(ctx, r.Root, "rev-parse", "HEAD"); err == nil {
		snap.Revision = rev
	}
	if status, err := git.Run(ctx, r.Root, "status", "--porcelain"); err == nil {
		snap.Dirty = status != ""
	}
	if uri, err := git.Run(ctx, r.Root, "remote", "get-url", cfg.Remote); err == nil {
		snap.RemoteURI = uri
	}
	if remote, err := git.Run(ctx, r.Root, "config", "branch."+cfg.Master+".remote"); err == nil {
		snap.TrackedRemote = remote
	}
	if _, err := git.Run(ctx, r.Root, "rev-parse", "--verify", "--quiet", "refs/heads/"+cfg.Branch); err == nil {
		snap.BranchExists = true
	}

	return snap
}

// Head returns the current HEAD revision, or an empty string when the
// repository has none.
func Head(ctx context.Context, git gitexec.Runner, r *Repository) string {
	rev, err := git.Run(ctx, r.Root, "rev-parse", "HEAD")
	if err != nil {
		return ""
	}
	return rev
}
