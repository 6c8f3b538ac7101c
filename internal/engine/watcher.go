package engine

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watcher observes filesystem mutations under the superproject root and
// forwards them as Events with root-relative slash paths.
//
// fsnotify watches are not recursive, so the watcher registers every
// directory in the tree at start and registers new directories as they
// are created. Only post-subscribe mutations are reported; there is no
// initial scan to suppress.
type Watcher struct {
	root   string
	ignore map[string]struct{}
	fsw    *fsnotify.Watcher
	log    *slog.Logger
	done   chan struct{}
}

// NewWatcher creates a watcher rooted at root. Directories whose name
// appears in ignore are excluded from observation, at any depth.
func NewWatcher(root string, ignore []string, log *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}

	set := make(map[string]struct{}, len(ignore))
	for _, name := range ignore {
		set[name] = struct{}{}
	}

	return &Watcher{
		root:   root,
		ignore: set,
		fsw:    fsw,
		log:    log,
		done:   make(chan struct{}),
	}, nil
}

// Start registers the directory tree and begins forwarding events to
// notify. Returns after registration; forwarding runs on its own
// goroutine until Close.
func (w *Watcher) Start(notify func(Event) bool) error {
	if err := w.addTree(w.root); err != nil {
		w.fsw.Close()
		return err
	}
	go w.loop(notify)
	return nil
}

// Close stops watching and waits until forwarding has fully stopped.
func (w *Watcher) Close() error {
	err := w.fsw.Close()
	<-w.done
	return err
}

func (w *Watcher) loop(notify func(Event) bool) {
	defer close(w.done)

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev, notify)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event, notify func(Event) bool) {
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil || rel == "." {
		return
	}
	rel = filepath.ToSlash(rel)

	if w.ignored(rel) {
		return
	}

	// A freshly created directory needs its own watch before anything
	// inside it can be observed.
	if ev.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(ev.Name); err != nil {
				w.log.Warn("watch new directory", "path", rel, "error", err)
			}
		}
	}

	notify(Event{Op: ev.Op.String(), Path: rel})
}

// ignored reports whether any segment of the relative path is an
// ignored directory name.
func (w *Watcher) ignored(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if _, ok := w.ignore[seg]; ok {
			return true
		}
	}
	return false
}

// addTree registers dir and every directory below it, skipping ignored
// names.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if _, ok := w.ignore[d.Name()]; ok && path != dir {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		w.log.Debug("watching", "path", path)
		return nil
	})
}
