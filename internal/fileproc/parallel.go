// Package fileproc runs per-file work on a bounded pool of workers, each
// holding its own tree-sitter parser.
package fileproc

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/panbanda/deadwood/pkg/parser"
	"github.com/sourcegraph/conc/pool"
)

// Source is anything that names the file it was read from.
type Source interface {
	SourcePath() string
}

// FileError is a failure attributed to one file.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string { return e.Path + ": " + e.Err.Error() }
func (e *FileError) Unwrap() error { return e.Err }

// FileErrors is returned by Map when some files failed and the rest
// succeeded.
type FileErrors []*FileError

func (e FileErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	return fmt.Sprintf("%d files failed (first: %v)", len(e), e[0])
}

// Workers returns n, or twice NumCPU when n <= 0. Parsing is CGO bound
// with file reads in between.
func Workers(n int) int {
	if n > 0 {
		return n
	}
	return 2 * runtime.NumCPU()
}

// Map applies fn to every source with at most maxWorkers running at once.
// Parsers are reused across files, never shared between concurrent calls.
// Results keep input order. Failed sources leave a zero value and are
// reported together as FileErrors. If ctx ends first, sources not yet
// started are skipped and ctx.Err() is returned.
func Map[S Source, T any](ctx context.Context, sources []S, maxWorkers int,
	fn func(context.Context, *parser.Parser, S) (T, error),
) ([]T, error) {
	if len(sources) == 0 {
		return nil, ctx.Err()
	}

	n := min(Workers(maxWorkers), len(sources))
	parsers := make(chan *parser.Parser, n)
	for range n {
		parsers <- parser.New()
	}
	defer func() {
		close(parsers)
		for p := range parsers {
			p.Close()
		}
	}()

	var (
		mu     sync.Mutex
		failed FileErrors
	)
	results := make([]T, len(sources))
	p := pool.New().WithContext(ctx).WithMaxGoroutines(n)
	for i, src := range sources {
		p.Go(func(ctx context.Context) error {
			if ctx.Err() != nil {
				return nil
			}
			psr := <-parsers
			defer func() { parsers <- psr }()

			r, err := fn(ctx, psr, src)
			if err != nil {
				mu.Lock()
				failed = append(failed, &FileError{Path: src.SourcePath(), Err: err})
				mu.Unlock()
				return nil
			}
			results[i] = r
			return nil
		})
	}
	_ = p.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(failed) > 0 {
		return results, failed
	}
	return results, nil
}
