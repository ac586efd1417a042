// Package progress draws a terminal file counter for analysis runs.
package progress

import (
	"fmt"
	"io"
	"sync"

	"github.com/panbanda/deadwood/pkg/analyzer"
	"github.com/schollz/progressbar/v3"
)

// Bar spins until the file count is known, then fills. It is cleared when
// the run ends so that only the report remains on screen.
type Bar struct {
	mu     sync.Mutex
	bar    *progressbar.ProgressBar
	w      io.Writer
	label  string
	last   analyzer.Progress
	sized  bool
	cached int
}

// New draws on w, usually stderr.
func New(w io.Writer, label string) *Bar {
	return &Bar{
		w:     w,
		label: label,
		bar: progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription(label),
			progressbar.OptionSetWidth(30),
			progressbar.OptionShowCount(),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionUseANSICodes(true),
			progressbar.OptionSetElapsedTime(false),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionClearOnFinish(),
		),
	}
}

// Update is an analyzer.ProgressFunc.
func (b *Bar) Update(p analyzer.Progress) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p.Total > 0 && !b.sized {
		b.sized = true
		b.bar.ChangeMax(p.Total)
	}
	if p.Cached != b.cached {
		b.cached = p.Cached
		b.bar.Describe(fmt.Sprintf("%s (%d cached)", b.label, p.Cached))
	}
	b.last = p
	_ = b.bar.Set(p.Done)
}

// Last returns the most recent snapshot.
func (b *Bar) Last() analyzer.Progress {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

// Finish clears the bar.
func (b *Bar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	_ = b.bar.Finish()
	_ = b.bar.Clear()
}

// FinishError clears the bar and reports err in its place.
func (b *Bar) FinishError(err error) {
	b.Finish()
	fmt.Fprintf(b.w, "%s failed after %d files: %v\n", b.label, b.last.Done, err)
}
