package mirror

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/gsync/internal/config"
	"github.com/roach88/gsync/internal/gitexec"
	"github.com/roach88/gsync/internal/repo"
)

// foldLimit bounds the teardown reset walk. A session amends in place,
// so the number of auto-commits to fold is small; the limit only
// guarantees termination if the comment ever matches unexpectedly deep
// history.
const foldLimit = 1000

// Teardown restores the working branch, and in update mode folds the
// session's auto-commits back onto it. Restoring the working branch is
// the load-bearing part; fold failures are reported but leave the
// repository in a manually recoverable state.
func Teardown(ctx context.Context, git gitexec.Runner, r *repo.Repository, cfg *config.Session, log *slog.Logger) error {
	if _, err := git.Run(ctx, r.Root, "checkout", cfg.Master); err != nil {
		return fmt.Errorf("%s: restore %s: %w", r.ID, cfg.Master, err)
	}

	if !cfg.Update {
		return nil
	}

	tip, err := git.Run(ctx, r.Root, "rev-parse", "refs/heads/"+cfg.Branch)
	if err != nil || tip == r.Prepared {
		// No auto-commits this session, nothing to fold.
		return nil
	}

	if err := fold(ctx, git, r, cfg); err != nil {
		return fmt.Errorf("%s: fold auto-commits: %w: the mirror branch %s still holds them", r.ID, err, cfg.Branch)
	}

	log.Info("folded", "repo", r.ID, "branch", cfg.Branch, "into", cfg.Master)
	return nil
}

// fold rebases the working branch onto the mirror branch, then resets
// past every commit whose message equals the deterministic auto-commit
// comment. The first differently-authored commit found is amended in
// place with the accumulated tree, collapsing any number of amend
// cycles into the single logical change the operator made.
func fold(ctx context.Context, git gitexec.Runner, r *repo.Repository, cfg *config.Session) error {
	if err := git.RunVisible(ctx, r.Root, "rebase", cfg.Branch); err != nil {
		return fmt.Errorf("rebase onto %s: %w", cfg.Branch, err)
	}

	comment := cfg.Comment(r.ID)
	for i := 0; ; i++ {
		if i >= foldLimit {
			return fmt.Errorf("gave up after %d auto-commits", foldLimit)
		}
		subject, err := git.Run(ctx, r.Root, "log", "-1", "--pretty=%s")
		if err != nil {
			return fmt.Errorf("inspect head commit: %w", err)
		}
		if subject != comment {
			break
		}
		if _, err := git.Run(ctx, r.Root, "reset", "--soft", "HEAD~1"); err != nil {
			return fmt.Errorf("reset past auto-commit: %w", err)
		}
	}

	if _, err := git.Run(ctx, r.Root, "commit", "--all", "--amend", "--no-edit"); err != nil {
		return fmt.Errorf("amend folded changes: %w", err)
	}
	return nil
}
