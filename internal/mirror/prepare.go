// Package mirror establishes, folds and tears down the mirror branch
// state of one repository.
//
// Prepare brings a repository into mirror-ready state: the mirror
// remote is configured or repaired, any stale local mirror branch is
// discarded, and the branch is recreated either from the local working
// branch (update mode, publishing a new remote baseline) or from the
// remote's current baseline (normal mode). Pull squash-merges the
// mirror branch back into the working branch on operator request.
// Teardown restores the working branch and, in update mode, folds the
// session's auto-commits back onto it.
package mirror

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/gsync/internal/config"
	"github.com/roach88/gsync/internal/gitexec"
	"github.com/roach88/gsync/internal/repo"
)

// Prepare idempotently brings r into mirror-ready state and checks out
// the mirror branch. Any returned error is fatal to the whole session:
// a repository that cannot be prepared cannot safely participate in the
// watch loop.
//
// The repository must have a clean working tree; this is checked before
// any mutation.
func Prepare(ctx context.Context, git gitexec.Runner, r *repo.Repository, cfg *config.Session, log *slog.Logger) error {
	r.Snap = repo.Probe(ctx, git, r, cfg)

	if r.Snap.Dirty {
		return fmt.Errorf("%s has uncommitted changes: commit or stash them before syncing", r.ID)
	}

	if err := reconcileRemote(ctx, git, r, cfg); err != nil {
		return err
	}

	// The working branch may not exist yet on a fresh sub-repository;
	// that is fine, the mirror branch is created from wherever HEAD is.
	if out := checkoutWorking(ctx, git, r, cfg); out == Ignored {
		log.Debug("working branch checkout skipped", "repo", r.ID, "branch", cfg.Master)
	}

	// The local mirror branch is disposable state, never a source of
	// truth; a stale one is discarded before recreation.
	if out := discardStaleBranch(ctx, git, r, cfg); out == Ignored {
		log.Debug("stale mirror branch not deleted", "repo", r.ID, "branch", cfg.Branch)
	}

	var err error
	if cfg.Update {
		err = recreateFromLocal(ctx, git, r, cfg)
	} else {
		err = recreateFromRemote(ctx, git, r, cfg)
	}
	if err != nil {
		return err
	}

	head := repo.Head(ctx, git, r)
	r.Prepared = head
	r.LastKnown = head

	log.Info("prepared", "repo", r.ID, "branch", cfg.Branch, "remote", cfg.Remote, "revision", head)
	return nil
}

// reconcileRemote configures or repairs the mirror remote. A supplied
// URI is applied unconditionally; without one, a previously configured
// URI is required.
func reconcileRemote(ctx context.Context, git gitexec.Runner, r *repo.Repository, cfg *config.Session) error {
	if cfg.URI == "" {
		if r.Snap.RemoteURI == "" {
			return fmt.Errorf("%s: remote %s is not configured and no repository URI was given", r.ID, cfg.Remote)
		}
		return nil
	}

	if r.Snap.RemoteURI == "" {
		if _, err := git.Run(ctx, r.Root, "remote", "add", cfg.Remote, cfg.URI); err != nil {
			return fmt.Errorf("%s: add remote %s: %w", r.ID, cfg.Remote, err)
		}
		return nil
	}

	if _, err := git.Run(ctx, r.Root, "remote", "set-url", cfg.Remote, cfg.URI); err != nil {
		return fmt.Errorf("%s: update remote %s: %w", r.ID, cfg.Remote, err)
	}
	return nil
}

// checkoutWorking switches to the working branch, best-effort.
func checkoutWorking(ctx context.Context, git gitexec.Runner, r *repo.Repository, cfg *config.Session) Outcome {
	if _, err := git.Run(ctx, r.Root, "checkout", cfg.Master); err != nil {
		return Ignored
	}
	return Done
}

// discardStaleBranch deletes a pre-existing local mirror branch,
// best-effort.
func discardStaleBranch(ctx context.Context, git gitexec.Runner, r *repo.Repository, cfg *config.Session) Outcome {
	if !r.Snap.BranchExists {
		return NotApplicable
	}
	if _, err := git.Run(ctx, r.Root, "branch", "-D", cfg.Branch); err != nil {
		return Ignored
	}
	return Done
}

// recreateFromLocal publishes the current working branch as the new
// remote baseline: fresh mirror branch, force-push to the remote's
// master ref, checkout.
func recreateFromLocal(ctx context.Context, git gitexec.Runner, r *repo.Repository, cfg *config.Session) error {
	if _, err := git.Run(ctx, r.Root, "branch", cfg.Branch); err != nil {
		return fmt.Errorf("%s: create branch %s: %w", r.ID, cfg.Branch, err)
	}
	if _, err := git.Run(ctx, r.Root, "push", "--force", cfg.Remote, cfg.Branch+":master"); err != nil {
		return fmt.Errorf("%s: publish baseline to %s: %w", r.ID, cfg.Remote, err)
	}
	if _, err := git.Run(ctx, r.Root, "checkout", cfg.Branch); err != nil {
		return fmt.Errorf("%s: checkout %s: %w", r.ID, cfg.Branch, err)
	}
	return nil
}

// recreateFromRemote pulls the remote's current baseline down: fetch,
// recreate the mirror branch tracking <remote>/master, checkout.
func recreateFromRemote(ctx context.Context, git gitexec.Runner, r *repo.Repository, cfg *config.Session) error {
	if _, err := git.Run(ctx, r.Root, "fetch", cfg.Remote); err != nil {
		return fmt.Errorf("%s: fetch %s: %w", r.ID, cfg.Remote, err)
	}
	if _, err := git.Run(ctx, r.Root, "branch", "--track", cfg.Branch, cfg.Remote+"/master"); err != nil {
		return fmt.Errorf("%s: create branch %s tracking %s/master: %w", r.ID, cfg.Branch, cfg.Remote, err)
	}
	if _, err := git.Run(ctx, r.Root, "checkout", cfg.Branch); err != nil {
		return fmt.Errorf("%s: checkout %s: %w", r.ID, cfg.Branch, err)
	}
	return nil
}
