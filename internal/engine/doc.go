// Package engine implements the gsync change watcher and commit
// coordinator.
//
// The coordinator is the heart of gsync - it receives filesystem
// mutation events, routes each one to the owning repository, and drives
// debounced commit-and-push cycles against the mirror branch.
//
// ARCHITECTURE:
//
// Single-Consumer Event Loop:
// The watcher forwards fsnotify events into a FIFO queue; Run() drains
// them in delivery order on one goroutine. Routing decisions are
// therefore deterministic and ordered.
//
// Single-Flight Commit Gate:
// At most one commit cycle runs at any time, across all repositories in
// the session. A cycle in flight for repository A blocks the start of a
// cycle for repository B. An event arriving while the gate is held is
// recorded as one pending retry, scheduled Debounce later; a newer event
// cancels and replaces the pending retry (trailing edge, last target
// wins). N events arriving mid-flight collapse into exactly one
// follow-up cycle.
//
// Commit Cycle:
// Re-probe HEAD; amend when HEAD still equals the last known revision
// (keeping the mirror branch at exactly one auto-commit), otherwise
// start a new commit on top of the diverged head; stage everything,
// commit with the deterministic comment, force-push to the mirror
// remote's master ref. The last known revision is refreshed after every
// successful cycle. A push failure is fatal to the session: a mirror
// branch whose remote cannot be updated must not silently accumulate
// local-only commits.
//
// The gate is released on every exit path, so a failed cycle never
// deadlocks the session.
package engine
