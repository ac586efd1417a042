package analyzer

import (
	"context"
	"sync/atomic"
)

// Progress is a snapshot taken as each file finishes.
type Progress struct {
	Done   int
	Total  int
	Cached int    // of Done, served from the extraction cache
	Path   string // relative path of the file just finished
}

// ProgressFunc receives a snapshot per finished file. It may be called
// from several workers at once.
type ProgressFunc func(Progress)

// Tracker counts finished files across extraction workers.
type Tracker struct {
	total, done, cached atomic.Int64
	report              ProgressFunc
}

// NewTracker reports to fn, which may be nil.
func NewTracker(fn ProgressFunc) *Tracker {
	return &Tracker{report: fn}
}

// Add grows the expected total by n.
func (t *Tracker) Add(n int) { t.total.Add(int64(n)) }

// Tick marks path as extracted.
func (t *Tracker) Tick(path string) { t.finish(path, false) }

// TickCached marks path as served from the cache.
func (t *Tracker) TickCached(path string) { t.finish(path, true) }

func (t *Tracker) finish(path string, cached bool) {
	c := t.cached.Load()
	if cached {
		c = t.cached.Add(1)
	}
	done := t.done.Add(1)
	if t.report != nil {
		t.report(Progress{Done: int(done), Total: int(t.total.Load()), Cached: int(c), Path: path})
	}
}

// Snapshot returns the current counts with no path.
func (t *Tracker) Snapshot() Progress {
	return Progress{Done: int(t.done.Load()), Total: int(t.total.Load()), Cached: int(t.cached.Load())}
}

type trackerKey struct{}

// WithTracker returns a context carrying t.
func WithTracker(ctx context.Context, t *Tracker) context.Context {
	return context.WithValue(ctx, trackerKey{}, t)
}

// TrackerFromContext returns the tracker carried by ctx, or nil.
func TrackerFromContext(ctx context.Context) *Tracker {
	t, _ := ctx.Value(trackerKey{}).(*Tracker)
	return t
}
