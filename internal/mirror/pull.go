package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/gsync/internal/config"
	"github.com/roach88/gsync/internal/gitexec"
	"github.com/roach88/gsync/internal/repo"
)

// ErrMergeConflict marks a squash-merge that stopped on conflicts. It
// is the one failure in the session that is expected and operator
// resolvable: the repository is left in the conflicted state for manual
// resolution and the session does not terminate over it.
var ErrMergeConflict = errors.New("merge conflict")

// Pull folds the mirror branch back into the working branch as a single
// squashed commit carrying the operator-supplied message.
func Pull(ctx context.Context, git gitexec.Runner, r *repo.Repository, cfg *config.Session, message string, log *slog.Logger) error {
	if _, err := git.Run(ctx, r.Root, "checkout", cfg.Master); err != nil {
		return fmt.Errorf("%s: checkout %s: %w", r.ID, cfg.Master, err)
	}

	// Visible run: conflict markers and merge output belong to the
	// operator.
	if err := git.RunVisible(ctx, r.Root, "merge", "--squash", cfg.Branch); err != nil {
		return fmt.Errorf("%s: squash-merge %s into %s: %w: resolve the conflicts, then commit with your message", r.ID, cfg.Branch, cfg.Master, ErrMergeConflict)
	}

	if _, err := git.Run(ctx, r.Root, "commit", "-m", message); err != nil {
		return fmt.Errorf("%s: commit squashed changes: %w", r.ID, err)
	}

	log.Info("pulled", "repo", r.ID, "branch", cfg.Branch, "into", cfg.Master)
	return nil
}
