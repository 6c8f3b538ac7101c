// Package session sequences a sync run: Prepare every repository, then
// either the Pull flow or the watch loop, then Teardown. It owns the
// run's repository list and its lifecycle.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/gsync/internal/config"
	"github.com/roach88/gsync/internal/engine"
	"github.com/roach88/gsync/internal/gitexec"
	"github.com/roach88/gsync/internal/mirror"
	"github.com/roach88/gsync/internal/repo"
	"github.com/roach88/gsync/internal/store"
)

// Controller runs one sync session.
type Controller struct {
	Config *config.Session
	Store  *store.Store // nil disables persistence (tests)
	Git    gitexec.Runner
	Log    *slog.Logger
}

// Run executes the session until the context is cancelled or a fatal
// error occurs. The shutdown sequence is strict: the watcher fully
// closes first, then every repository is torn down back to its working
// branch. Teardown failures are logged but do not mask the run result.
func (c *Controller) Run(ctx context.Context) error {
	repos, err := repo.Discover(ctx, c.Git, c.Config.Root)
	if err != nil {
		return fmt.Errorf("discover repositories: %w", err)
	}
	c.Log.Info("session starting", "root", c.Config.Root, "repositories", len(repos), "branch", c.Config.Branch, "mode", c.mode())

	sessionID := uuid.NewString()
	c.beginHistory(ctx, sessionID)
	defer c.endHistory(sessionID)

	// Preparation is all-or-nothing: a repository that cannot reach
	// mirror-ready state aborts the session before any watching starts.
	for _, r := range repos {
		if err := mirror.Prepare(ctx, c.Git, r, c.Config, c.Log); err != nil {
			return err
		}
	}

	if c.Config.Pull {
		return c.pull(ctx, repos)
	}

	return c.watch(ctx, repos, sessionID)
}

// pull folds the mirror branch back into the working branch of every
// repository. Conflicts are reported and left for manual resolution;
// they do not fail the session.
func (c *Controller) pull(ctx context.Context, repos []*repo.Repository) error {
	for _, r := range repos {
		err := mirror.Pull(ctx, c.Git, r, c.Config, c.Config.PullMessage, c.Log)
		if err == nil {
			continue
		}
		if errors.Is(err, mirror.ErrMergeConflict) {
			c.Log.Warn("merge conflict", "repo", r.ID, "error", err)
			continue
		}
		return err
	}
	return nil
}

// watch runs the watcher and commit coordinator until shutdown, then
// tears every repository down.
func (c *Controller) watch(ctx context.Context, repos []*repo.Repository, sessionID string) error {
	coord := engine.New(c.Config, c.Git, repos, c.recorder(sessionID), c.Log)

	watcher, err := engine.NewWatcher(c.Config.Root, c.Config.Ignore, c.Log)
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	if err := watcher.Start(func(e engine.Event) bool { return coord.Notify(e) }); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}

	c.Log.Info("watching for changes", "debounce", c.Config.Debounce)
	runErr := coord.Run(ctx)

	// The watcher must be fully closed before teardown mutates the
	// repositories, or teardown's own churn would feed the queue.
	if err := watcher.Close(); err != nil {
		c.Log.Warn("close watcher", "error", err)
	}

	for _, r := range repos {
		if err := mirror.Teardown(ctx, c.Git, r, c.Config, c.Log); err != nil {
			c.Log.Warn("teardown", "repo", r.ID, "error", err)
		}
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	c.Log.Info("session finished")
	return nil
}

func (c *Controller) mode() string {
	switch {
	case c.Config.Pull:
		return "pull"
	case c.Config.Update:
		return "update"
	default:
		return "normal"
	}
}

func (c *Controller) beginHistory(ctx context.Context, id string) {
	if c.Store == nil {
		return
	}
	err := c.Store.BeginSession(ctx, store.Session{
		ID:        id,
		Branch:    c.Config.Branch,
		Mode:      c.mode(),
		StartedAt: time.Now(),
	})
	if err != nil {
		c.Log.Warn("record session start", "error", err)
	}
}

func (c *Controller) endHistory(id string) {
	if c.Store == nil {
		return
	}
	// The run context may already be cancelled; history bookkeeping
	// still has to land.
	if err := c.Store.EndSession(context.Background(), id, time.Now()); err != nil {
		c.Log.Warn("record session end", "error", err)
	}
}

// recorder adapts the store to the coordinator's Recorder interface.
func (c *Controller) recorder(sessionID string) engine.Recorder {
	if c.Store == nil {
		return nil
	}
	return &storeRecorder{st: c.Store, sessionID: sessionID}
}

type storeRecorder struct {
	st        *store.Store
	sessionID string
}

func (r *storeRecorder) RecordCycle(ctx context.Context, seq int64, repoID, revision string, amend bool) error {
	return r.st.RecordCycle(ctx, store.Cycle{
		SessionID: r.sessionID,
		Seq:       seq,
		RepoID:    repoID,
		Revision:  revision,
		Amend:     amend,
		PushedAt:  time.Now(),
	})
}
