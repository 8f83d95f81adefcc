// Package watchmode re-runs the tracking engine whenever a local
// working tree changes. It is a development aid: no git sync happens,
// the tree on disk is trusted as-is.
package watchmode

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/propwatch/propwatch/proposal"
	"github.com/propwatch/propwatch/proposal/engine"
)

// defaultDebounce is how long to wait for further changes before
// re-running; editors tend to fire several events per save.
const defaultDebounce = 500 * time.Millisecond

// Watcher re-runs one tracker's engine on file changes under workdir.
type Watcher struct {
	engine   *engine.Engine
	tracker  proposal.Tracker
	workdir  string
	debounce time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	pending bool
}

// New creates a watcher for one tracker's local working tree.
func New(eng *engine.Engine, tracker proposal.Tracker, workdir string, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		engine:   eng,
		tracker:  tracker,
		workdir:  workdir,
		debounce: defaultDebounce,
		logger:   logger,
	}
}

// Run performs an initial check, then blocks watching the tree until
// ctx is cancelled. Each batch of changes to matching files triggers
// one engine run; events are reported through onEvents.
func (w *Watcher) Run(ctx context.Context, onEvents func([]proposal.ProposalEvent)) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	root := w.workdir
	if w.tracker.ProposalDir != "" {
		root = filepath.Join(w.workdir, w.tracker.ProposalDir)
	}
	if err := addRecursive(fsw, root); err != nil {
		return err
	}

	run := func() {
		events, err := w.engine.Run(ctx, w.tracker, w.workdir)
		if err != nil {
			w.logger.Warn("watch run failed", slog.String("error", err.Error()))
			return
		}
		if len(events) > 0 && onEvents != nil {
			onEvents(events)
		}
	}
	run()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ev.Op.Has(fsnotify.Create) {
				// New subdirectories need their own watch.
				_ = addRecursive(fsw, ev.Name)
			}
			if !w.relevant(ev.Name) {
				continue
			}
			w.mu.Lock()
			if !w.pending {
				w.pending = true
				timer.Reset(w.debounce)
			}
			w.mu.Unlock()
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", slog.String("error", err.Error()))
		case <-timer.C:
			w.mu.Lock()
			w.pending = false
			w.mu.Unlock()
			run()
		}
	}
}

// relevant reports whether a changed path matches the tracker's file
// pattern.
func (w *Watcher) relevant(path string) bool {
	pattern := w.tracker.FilePattern
	if pattern == "" {
		pattern = w.tracker.Type.DefaultFilePattern()
	}
	ok, err := doublestar.Match(pattern, filepath.Base(path))
	return err == nil && ok
}

func addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // path may already be gone
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == ".git" {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
}
