package engine

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// eventCollector gathers forwarded events for assertions.
type eventCollector struct {
	mu     sync.Mutex
	events []Event
}

func (c *eventCollector) notify(e Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return true
}

func (c *eventCollector) paths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	for i, e := range c.events {
		out[i] = e.Path
	}
	return out
}

func (c *eventCollector) seen(path string) bool {
	for _, p := range c.paths() {
		if p == path {
			return true
		}
	}
	return false
}

func startWatcher(t *testing.T, root string, ignore []string) (*Watcher, *eventCollector) {
	t.Helper()
	w, err := NewWatcher(root, ignore, testLogger())
	require.NoError(t, err)

	col := &eventCollector{}
	require.NoError(t, w.Start(col.notify))
	t.Cleanup(func() { w.Close() })
	return w, col
}

func TestWatcher_ReportsRelativeSlashPaths(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))

	_, col := startWatcher(t, root, []string{".git"})

	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "main.go"), []byte("x"), 0o644))

	require.Eventually(t, func() bool { return col.seen("src/main.go") },
		2*time.Second, 10*time.Millisecond, "expected an event for src/main.go, got %v", col.paths())
}

func TestWatcher_IgnoresConfiguredDirectories(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules"), 0o755))

	_, col := startWatcher(t, root, []string{".git", "node_modules"})

	require.NoError(t, os.WriteFile(filepath.Join(root, ".git", "index"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "node_modules", "p.js"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "kept.txt"), []byte("x"), 0o644))

	require.Eventually(t, func() bool { return col.seen("kept.txt") },
		2*time.Second, 10*time.Millisecond)

	for _, p := range col.paths() {
		assert.NotContains(t, p, ".git/", "mutations under .git must not be observed")
		assert.NotContains(t, p, "node_modules/", "dependency caches must not be observed")
	}
}

func TestWatcher_WatchesNewDirectories(t *testing.T) {
	root := t.TempDir()
	_, col := startWatcher(t, root, []string{".git"})

	require.NoError(t, os.MkdirAll(filepath.Join(root, "newdir"), 0o755))

	// The create event races with watch registration of the new
	// directory; poll until a write inside it is observed.
	require.Eventually(t, func() bool {
		os.WriteFile(filepath.Join(root, "newdir", "f.txt"), []byte("x"), 0o644)
		return col.seen("newdir/f.txt")
	}, 2*time.Second, 25*time.Millisecond)
}

func TestWatcher_CloseWaitsForForwarding(t *testing.T) {
	root := t.TempDir()
	w, _ := startWatcher(t, root, nil)

	require.NoError(t, w.Close())

	// Forwarding has fully stopped: done channel is closed.
	select {
	case <-w.done:
	default:
		t.Fatal("Close must wait for the forwarding goroutine")
	}
}
