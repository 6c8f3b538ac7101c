package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/gsync/internal/config"
	"github.com/roach88/gsync/internal/gitexec"
	"github.com/roach88/gsync/internal/repo"
)

// Recorder receives completed commit cycles for history bookkeeping.
// Recording is best-effort: a failing recorder never fails a cycle.
type Recorder interface {
	RecordCycle(ctx context.Context, seq int64, repoID, revision string, amend bool) error
}

// Coordinator routes filesystem events to repositories and drives
// debounced commit cycles behind the session-wide single-flight gate.
// See the package documentation for the full state machine.
type Coordinator struct {
	cfg    *config.Session
	git    gitexec.Runner
	routes *repo.Routes
	rec    Recorder
	log    *slog.Logger

	queue *eventQueue
	gate  Gate
	retry *Retry
	clock *Clock

	ctx     context.Context // run context; set once by Run before any cycle starts
	wg      sync.WaitGroup  // in-flight commit cycle
	fatal   chan error      // first fatal cycle error (buffered, size 1)
	stopped atomic.Bool     // set by stop; no cycle may start afterwards
}

// New creates a coordinator for the given repositories. rec may be nil
// to disable history recording.
func New(cfg *config.Session, git gitexec.Runner, repos []*repo.Repository, rec Recorder, log *slog.Logger) *Coordinator {
	c := &Coordinator{
		cfg:    cfg,
		git:    git,
		routes: repo.NewRoutes(repos),
		rec:    rec,
		log:    log,
		queue:  newEventQueue(),
		clock:  NewClock(),
		fatal:  make(chan error, 1),
	}
	c.retry = NewRetry(cfg.Debounce, c.request)
	return c
}

// Notify enqueues one filesystem event. Safe to call from the watcher's
// goroutine. Returns false once the coordinator has stopped.
func (c *Coordinator) Notify(e Event) bool {
	return c.queue.Enqueue(e)
}

// Clock returns the coordinator's cycle clock.
func (c *Coordinator) Clock() *Clock {
	return c.clock
}

// Run drains the event queue in delivery order until the context is
// cancelled or a fatal cycle error occurs. On return, no commit cycle
// is in flight and no retry is pending.
//
// A cancelled context is the normal shutdown path and returns ctx.Err();
// a fatal error (push failure) is returned as a *SyncError so the
// session controller can tear down and exit non-zero.
func (c *Coordinator) Run(ctx context.Context) error {
	c.ctx = ctx
	defer c.retry.Stop()

	for {
		// A fatal error outranks queued events.
		select {
		case err := <-c.fatal:
			return c.stop(err)
		default:
		}

		if ev, ok := c.queue.TryDequeue(); ok {
			c.handle(ev)
			continue
		}

		select {
		case <-ctx.Done():
			return c.stop(ctx.Err())

		case err := <-c.fatal:
			return c.stop(err)

		case _, ok := <-c.queue.Wait():
			if !ok {
				return c.stop(nil)
			}
			// A wake-up token can be stale: the event it announced may
			// already have been dequeued in a previous iteration. Only a
			// closed channel stops the loop; loop back to TryDequeue.
		}
	}
}

// stop closes the queue, waits out any in-flight cycle and cancels the
// pending retry before Run returns. The stopped flag is raised first so
// a retry callback that already slipped past its cancellation cannot
// start a fresh cycle while teardown runs.
func (c *Coordinator) stop(err error) error {
	c.stopped.Store(true)
	c.queue.Close()
	c.retry.Stop()
	c.wg.Wait()
	return err
}

// handle routes one event to its owning repository and requests a
// commit cycle for it.
func (c *Coordinator) handle(ev Event) {
	r := c.routes.Match(ev.Path)
	if r == nil {
		return
	}
	c.log.Debug("change", "op", ev.Op, "path", ev.Path, "repo", r.ID)
	c.request(r)
}

// request starts a commit cycle for r, or parks r as the pending retry
// when a cycle is already in flight. Also the retry timer's callback.
func (c *Coordinator) request(r *repo.Repository) {
	if c.stopped.Load() {
		return
	}
	if !c.gate.TryAcquire() {
		c.log.Debug("commit in flight, scheduling retry", "repo", r.ID)
		c.retry.Schedule(r)
		return
	}

	c.wg.Add(1)
	// Re-check after the Add: if stop raised the flag in between, its
	// Wait now observes this counter and blocks until we back out, so
	// no cycle can outlive Run.
	if c.stopped.Load() {
		c.gate.Release()
		c.wg.Done()
		return
	}
	go func() {
		defer c.wg.Done()
		defer c.gate.Release()

		if err := c.cycle(c.ctx, r); err != nil {
			if IsPushFailure(err) {
				// First fatal error wins; Run tears the session down.
				select {
				case c.fatal <- err:
				default:
				}
				return
			}
			c.log.Warn("commit cycle failed", "repo", r.ID, "error", err)
		}
	}()
}

// cycle performs one commit-and-push for r: re-probe HEAD, decide
// amend-vs-new, stage, commit, force-push, refresh the last known
// revision.
func (c *Coordinator) cycle(ctx context.Context, r *repo.Repository) error {
	seq := c.clock.Next()

	head := repo.Head(ctx, c.git, r)
	// HEAD still at the last known revision means the mirror branch has
	// not diverged (no external fold); amend keeps it at one commit.
	amend := head != "" && head == r.LastKnown
	comment := c.cfg.Comment(r.ID)

	status, err := c.git.Run(ctx, r.Root, "status", "--porcelain")
	if err != nil {
		return newCommitError(r.ID, "probe working tree", err)
	}

	if status != "" {
		if _, err := c.git.Run(ctx, r.Root, "add", "--all"); err != nil {
			return newCommitError(r.ID, "stage changes", err)
		}
		args := []string{"commit", "-m", comment}
		if amend {
			args = append(args, "--amend")
		}
		if _, err := c.git.Run(ctx, r.Root, args...); err != nil {
			return newCommitError(r.ID, "commit", err)
		}
	}

	if _, err := c.git.Run(ctx, r.Root, "push", "--force", c.cfg.Remote, c.cfg.Branch+":master"); err != nil {
		return newPushError(r.ID, err)
	}

	r.LastKnown = repo.Head(ctx, c.git, r)
	c.log.Info("synced", "repo", r.ID, "revision", r.LastKnown, "amend", amend, "seq", seq)

	if c.rec != nil {
		if err := c.rec.RecordCycle(ctx, seq, r.ID, r.LastKnown, amend); err != nil {
			c.log.Warn("record cycle", "repo", r.ID, "error", err)
		}
	}
	return nil
}
