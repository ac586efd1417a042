// Package watch re-runs analysis when project sources change.
package watch

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/panbanda/deadwood/internal/manifest"
	"github.com/panbanda/deadwood/pkg/config"
	"github.com/panbanda/deadwood/pkg/parser"
)

// DefaultDebounce is how long a project must be quiet before a re-run.
const DefaultDebounce = 500 * time.Millisecond

// Watcher monitors a project tree. Changes are collected until the tree has
// been quiet for the debounce period, then reported as one batch since any
// edit can change reachability anywhere in the project.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	config    *config.Config
	debounce  time.Duration
	root      string
	out       io.Writer
	callback  func(changed []string)

	mu      sync.Mutex
	pending map[string]struct{}
	last    time.Time
	running sync.Mutex
}

// NewWatcher creates a watcher for root. Status lines go to out.
func NewWatcher(root string, cfg *config.Config, debounce time.Duration, out io.Writer) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if out == nil {
		out = io.Discard
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		config:    cfg,
		debounce:  debounce,
		root:      root,
		out:       out,
		pending:   make(map[string]struct{}),
	}, nil
}

// SetCallback sets the function called with the changed relative paths.
func (w *Watcher) SetCallback(cb func(changed []string)) {
	w.callback = cb
}

// Start watches until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addTree(w.root); err != nil {
		return err
	}

	color.New(color.FgCyan).Fprintf(w.out, "Watching for changes in %s...\n", w.root)
	color.New(color.FgCyan).Fprintln(w.out, "Press Ctrl+C to stop")

	go w.processDebounced(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			color.New(color.FgRed).Fprintf(w.out, "Watch error: %v\n", err)
		}
	}
}

// addTree watches dir and every non-excluded directory below it.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.excludedDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

func (w *Watcher) excludedDir(name string) bool {
	for _, excluded := range w.config.Exclude.Dirs {
		if name == excluded {
			return true
		}
	}
	return false
}

func (w *Watcher) rel(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// relevant reports whether a change to path can affect the analysis.
func (w *Watcher) relevant(path string) bool {
	rel := w.rel(path)
	if w.config.ShouldExclude(rel) {
		return false
	}
	base := filepath.Base(path)
	if base == manifest.FileName {
		return true
	}
	for _, name := range config.ConfigNames {
		if base == name {
			return true
		}
	}
	return parser.DetectLanguage(path) != parser.LangUnknown
}

// handleEvent records a relevant change. New directories are watched too.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !w.excludedDir(info.Name()) {
				_ = w.addTree(event.Name)
			}
			return
		}
	}

	if !w.relevant(event.Name) {
		return
	}

	w.mu.Lock()
	w.pending[w.rel(event.Name)] = struct{}{}
	w.last = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) processDebounced(ctx context.Context) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if changed := w.takeReady(time.Now()); len(changed) > 0 {
				w.runCallback(changed)
			}
		}
	}
}

// takeReady returns and clears the pending batch once it has been quiet for
// the debounce period.
func (w *Watcher) takeReady(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.pending) == 0 || now.Sub(w.last) < w.debounce {
		return nil
	}
	changed := make([]string, 0, len(w.pending))
	for p := range w.pending {
		changed = append(changed, p)
	}
	sort.Strings(changed)
	w.pending = make(map[string]struct{})
	return changed
}

// runCallback runs one callback at a time; batches that arrive meanwhile
// wait for the next tick.
func (w *Watcher) runCallback(changed []string) {
	if w.callback == nil {
		return
	}
	w.running.Lock()
	defer w.running.Unlock()

	if len(changed) == 1 {
		color.New(color.FgYellow).Fprintf(w.out, "\nFile changed: %s\n", changed[0])
	} else {
		color.New(color.FgYellow).Fprintf(w.out, "\n%d files changed\n", len(changed))
	}
	w.callback(changed)
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.fsWatcher.Close()
}

// WatchedDirs returns the watched directories.
func (w *Watcher) WatchedDirs() []string {
	return w.fsWatcher.WatchList()
}
