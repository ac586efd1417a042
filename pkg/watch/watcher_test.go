package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/panbanda/deadwood/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWatcher(t *testing.T, root string, debounce time.Duration) *Watcher {
	t.Helper()
	w, err := NewWatcher(root, config.DefaultConfig(), debounce, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })
	return w
}

func TestNewWatcher_Defaults(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), nil, 0, nil)
	require.NoError(t, err)
	defer w.Stop()

	assert.Equal(t, DefaultDebounce, w.debounce)
	assert.NotNil(t, w.config)
	assert.NotNil(t, w.out)
}

func TestWatcher_Relevant(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root, time.Second)

	tests := []struct {
		path string
		want bool
	}{
		{"src/a.ts", true},
		{"src/view.tsx", true},
		{"lib/util.mjs", true},
		{"package.json", true},
		{"deadwood.toml", true},
		{"README.md", false},
		{"node_modules/pkg/index.js", false},
		{"dist/bundle.js", false},
		{"src/vendor.min.js", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, w.relevant(filepath.Join(root, filepath.FromSlash(tt.path))))
		})
	}
}

func TestWatcher_HandleEvent(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root, time.Second)

	w.handleEvent(fsnotify.Event{Name: filepath.Join(root, "a.ts"), Op: fsnotify.Write})
	w.handleEvent(fsnotify.Event{Name: filepath.Join(root, "b.ts"), Op: fsnotify.Remove})
	w.handleEvent(fsnotify.Event{Name: filepath.Join(root, "a.ts"), Op: fsnotify.Write})
	w.handleEvent(fsnotify.Event{Name: filepath.Join(root, "c.ts"), Op: fsnotify.Chmod})
	w.handleEvent(fsnotify.Event{Name: filepath.Join(root, "notes.txt"), Op: fsnotify.Write})

	w.mu.Lock()
	defer w.mu.Unlock()
	assert.Len(t, w.pending, 2)
	assert.Contains(t, w.pending, "a.ts")
	assert.Contains(t, w.pending, "b.ts")
}

func TestWatcher_TakeReady(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root, time.Second)

	w.handleEvent(fsnotify.Event{Name: filepath.Join(root, "z.ts"), Op: fsnotify.Write})
	w.handleEvent(fsnotify.Event{Name: filepath.Join(root, "a.ts"), Op: fsnotify.Create})

	assert.Nil(t, w.takeReady(time.Now()), "batch is not quiet yet")
	assert.Equal(t, []string{"a.ts", "z.ts"}, w.takeReady(time.Now().Add(2*time.Second)))
	assert.Nil(t, w.takeReady(time.Now().Add(4*time.Second)), "batch is cleared")
}

func TestWatcher_NewDirectoryIsWatched(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root, time.Second)
	require.NoError(t, w.addTree(root))

	dir := filepath.Join(root, "feature")
	require.NoError(t, os.Mkdir(dir, 0o755))
	w.handleEvent(fsnotify.Event{Name: dir, Op: fsnotify.Create})

	assert.Contains(t, w.WatchedDirs(), dir)
}

func TestWatcher_SkipsExcludedDirectories(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules", "pkg"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))

	w := newTestWatcher(t, root, time.Second)
	require.NoError(t, w.addTree(root))

	watched := w.WatchedDirs()
	assert.Contains(t, watched, filepath.Join(root, "src"))
	for _, p := range watched {
		assert.NotEqual(t, "node_modules", filepath.Base(p))
	}
}

func TestWatcher_StartStopsOnCancel(t *testing.T) {
	w := newTestWatcher(t, t.TempDir(), 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Start(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Start() did not return after context cancellation")
	}
}

func TestWatcher_StartBatchesChanges(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root, 50*time.Millisecond)

	var (
		mu      sync.Mutex
		batches [][]string
	)
	done := make(chan struct{}, 1)
	w.SetCallback(func(changed []string) {
		mu.Lock()
		batches = append(batches, changed)
		mu.Unlock()
		select {
		case done <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.ts"), []byte("export {};\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.ts"), []byte("export {};\n"), 0o644))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("callback was not called")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, batches[0], "a.ts")
}
