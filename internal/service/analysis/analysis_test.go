package analysis

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/panbanda/deadwood/internal/testutil"
	"github.com/panbanda/deadwood/internal/vcs"
	"github.com/panbanda/deadwood/pkg/analyzer"
	"github.com/panbanda/deadwood/pkg/analyzer/deadcode"
	"github.com/panbanda/deadwood/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noRepoOpener struct{}

func (noRepoOpener) Open(string) (vcs.History, error) {
	return nil, errors.New("no repository")
}

type countingOpener struct{ calls atomic.Int32 }

func (o *countingOpener) Open(string) (vcs.History, error) {
	o.calls.Add(1)
	return nil, errors.New("no repository")
}

type countingMetrics struct{ runs atomic.Int32 }

func (m *countingMetrics) ObserveRun(deadcode.Stats) { m.runs.Add(1) }

var project = map[string]string{
	"index.ts": "import { used } from './lib';\nused();\n",
	"lib.ts":   "export function used() {}\nexport function exportedUnused() {}\nfunction privateUnused() {}\n",
}

func newService(opts ...Option) *Service {
	return New(append([]Option{WithOpener(noRepoOpener{})}, opts...)...)
}

func TestNew(t *testing.T) {
	svc := New()
	assert.NotNil(t, svc.opener)
	assert.NotNil(t, svc.logger)
	assert.Nil(t, svc.config, "config is looked up per root")
}

func TestAnalyzeDeadCode(t *testing.T) {
	root := testutil.Project(t, project)

	a, err := newService().AnalyzeDeadCode(context.Background(), root, DeadCodeOptions{})
	require.NoError(t, err)

	_, ok := a.Result.Symbol("lib.ts", "exportedUnused")
	assert.True(t, ok)
	_, ok = a.Result.Symbol("lib.ts", "privateUnused")
	assert.True(t, ok)
	_, ok = a.Result.Symbol("lib.ts", "used")
	assert.False(t, ok)
}

func TestAnalyzeDeadCode_ConfigFromRoot(t *testing.T) {
	files := map[string]string{
		"deadwood.toml": "[deadcode]\nmin_confidence = 90\n",
	}
	for k, v := range project {
		files[k] = v
	}
	root := testutil.Project(t, files)
	svc := newService()

	a, err := svc.AnalyzeDeadCode(context.Background(), root, DeadCodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, a.Result.Summary.DeadSymbols, "exported symbols score 70 and fall under 90")

	zero := 0
	a, err = svc.AnalyzeDeadCode(context.Background(), root, DeadCodeOptions{MinConfidence: &zero})
	require.NoError(t, err)
	assert.Equal(t, 2, a.Result.Summary.DeadSymbols)
}

func TestAnalyzeDeadCode_WithoutRecency(t *testing.T) {
	root := testutil.Project(t, project)

	opener := &countingOpener{}
	_, err := New(WithOpener(opener), WithoutCache()).AnalyzeDeadCode(context.Background(), root, DeadCodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, int32(1), opener.calls.Load())

	opener = &countingOpener{}
	_, err = New(WithOpener(opener), WithoutCache(), WithoutRecency()).AnalyzeDeadCode(context.Background(), root, DeadCodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, int32(0), opener.calls.Load(), "history is not consulted")
}

func TestAnalyzeDeadCode_InvalidConfig(t *testing.T) {
	root := testutil.Project(t, map[string]string{
		"deadwood.toml": "[deadcode]\nmin_confidence = 500\n",
		"index.ts":      "export {};\n",
	})

	_, err := newService().AnalyzeDeadCode(context.Background(), root, DeadCodeOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config")
}

func TestAnalyzeDeadCode_InvalidThreshold(t *testing.T) {
	root := testutil.Project(t, project)
	bad := 101

	_, err := newService().AnalyzeDeadCode(context.Background(), root, DeadCodeOptions{MinConfidence: &bad})
	assert.ErrorIs(t, err, deadcode.ErrInvalidThreshold)
}

func TestAnalyzeDeadCode_CachePersists(t *testing.T) {
	root := testutil.Project(t, project)
	svc := newService()

	first, err := svc.AnalyzeDeadCode(context.Background(), root, DeadCodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, first.Stats.CacheMisses)

	second, err := svc.AnalyzeDeadCode(context.Background(), root, DeadCodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Stats.CacheHits)
	assert.Equal(t, 0, second.Stats.CacheMisses)
	assert.Equal(t, first.Result, second.Result)

	stats, err := svc.CacheStats(root)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Entries)

	require.NoError(t, svc.ClearCache(root))
	stats, err = svc.CacheStats(root)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Entries)
}

func TestAnalyzeDeadCode_WithoutCache(t *testing.T) {
	root := testutil.Project(t, project)

	a, err := newService(WithoutCache()).AnalyzeDeadCode(context.Background(), root, DeadCodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, a.Stats.CacheHits)

	_, err = os.Stat(filepath.Join(root, ".deadwood", "cache"))
	assert.True(t, os.IsNotExist(err), "no cache directory is created")
}

func TestAnalyzeDeadCode_AbsoluteCacheDir(t *testing.T) {
	root := testutil.Project(t, project)
	cfg := config.DefaultConfig()
	cfg.Cache.Dir = filepath.Join(t.TempDir(), "shared-cache")

	_, err := newService(WithConfig(cfg)).AnalyzeDeadCode(context.Background(), root, DeadCodeOptions{})
	require.NoError(t, err)

	_, err = os.Stat(cfg.Cache.Dir)
	assert.NoError(t, err)
}

func TestAnalyzeDeadCode_Progress(t *testing.T) {
	root := testutil.Project(t, project)
	var ticks atomic.Int32

	_, err := newService(WithoutCache()).AnalyzeDeadCode(context.Background(), root, DeadCodeOptions{
		OnProgress: func(p analyzer.Progress) {
			ticks.Add(1)
			assert.Equal(t, 2, p.Total)
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int32(2), ticks.Load())
}

func TestAnalyzeDeadCode_ConcurrentCallsShareOneRun(t *testing.T) {
	root := testutil.Project(t, project)
	metrics := &countingMetrics{}
	svc := newService(WithoutCache(), WithMetrics(metrics))

	release := make(chan struct{})
	var once sync.Once
	blockFirstTick := func(analyzer.Progress) {
		once.Do(func() { <-release })
	}

	const callers = 4
	var (
		wg      sync.WaitGroup
		results [callers]*deadcode.Analysis
		errs    [callers]error
	)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = svc.AnalyzeDeadCode(context.Background(), root, DeadCodeOptions{OnProgress: blockFirstTick})
		}()
	}
	// give every caller time to join the blocked run
	time.Sleep(200 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := range callers {
		require.NoError(t, errs[i])
		assert.Same(t, results[0], results[i])
	}
	assert.Equal(t, int32(1), metrics.runs.Load())
}

func TestCacheDir(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.Equal(t, filepath.Join("/p", ".deadwood", "cache"), cacheDir("/p", cfg))

	cfg.Cache.Dir = ""
	assert.Equal(t, filepath.Join("/p", ".deadwood", "cache"), cacheDir("/p", cfg))

	cfg.Cache.Dir = "/abs/cache"
	assert.Equal(t, "/abs/cache", cacheDir("/p", cfg))
}
