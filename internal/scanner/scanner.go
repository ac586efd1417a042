// Package scanner discovers and reads the JS/TS sources of a project.
package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/panbanda/deadwood/pkg/config"
	"github.com/panbanda/deadwood/pkg/parser"
	"golang.org/x/sync/errgroup"
)

// SourceFile is a discovered source file and its content.
type SourceFile struct {
	Path    string // absolute, OS separators
	Rel     string // relative to the scanned root, slash separated
	Content []byte
	ModTime time.Time
}

// SourcePath implements fileproc.Source.
func (f SourceFile) SourcePath() string { return f.Rel }

// Scanner walks project trees honouring the exclude settings of a config.
// It holds no per-walk state and may be shared.
type Scanner struct {
	config *config.Config
}

// NewScanner creates a scanner; a nil config means the defaults.
func NewScanner(cfg *config.Config) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Scanner{config: cfg}
}

// filter decides exclusion for one walk. Config patterns are anchored at
// the scanned root, gitignore patterns at the repository root.
type filter struct {
	root     string
	own      gitignore.Matcher
	ignored  gitignore.Matcher
	repoRoot string
}

func (s *Scanner) newFilter(root string) *filter {
	f := &filter{root: root}

	var own []gitignore.Pattern
	for _, d := range s.config.Exclude.Dirs {
		own = append(own, gitignore.ParsePattern(strings.TrimSuffix(d, "/")+"/", nil))
	}
	for _, p := range s.config.Exclude.Patterns {
		own = append(own, gitignore.ParsePattern(p, nil))
	}
	if len(own) > 0 {
		f.own = gitignore.NewMatcher(own)
	}

	if !s.config.Exclude.Gitignore {
		return f
	}
	if repo := repoRoot(root); repo != "" {
		if ps, err := gitignore.ReadPatterns(osfs.New(repo), nil); err == nil && len(ps) > 0 {
			f.ignored = gitignore.NewMatcher(ps)
			f.repoRoot = repo
		}
	}
	return f
}

func (f *filter) skip(abs string, isDir bool) bool {
	if f.own != nil {
		if rel, err := filepath.Rel(f.root, abs); err == nil && f.own.Match(splitPath(rel), isDir) {
			return true
		}
	}
	if f.ignored != nil {
		if rel, err := filepath.Rel(f.repoRoot, abs); err == nil && f.ignored.Match(splitPath(rel), isDir) {
			return true
		}
	}
	return false
}

func splitPath(rel string) []string {
	return strings.Split(rel, string(filepath.Separator))
}

// repoRoot returns the nearest ancestor of dir holding a .git entry, which
// is a directory in a normal checkout and a file in worktrees.
func repoRoot(dir string) string {
	for {
		if _, err := os.Lstat(filepath.Join(dir, ".git")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// within reports whether path is root or below it.
func within(path, root string) bool {
	path, root = filepath.Clean(path), filepath.Clean(root)
	return path == root || strings.HasPrefix(path, root+string(filepath.Separator))
}

// Walk finds every parseable source under root and reads it. Symlinked
// files are followed only when they resolve inside root; symlinked
// directories are never followed. Files that vanish or cannot be read
// between discovery and reading are skipped. Results are ordered by Rel.
func (s *Scanner) Walk(ctx context.Context, root string) ([]SourceFile, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if abs, err = filepath.EvalSymlinks(abs); err != nil {
		return nil, err
	}

	found, err := s.discover(ctx, abs)
	if err != nil {
		return nil, err
	}

	files := make([]SourceFile, len(found))
	ok := make([]bool, len(found))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, path := range found {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			info, err := os.Stat(path)
			if err != nil {
				return nil
			}
			content, err := os.ReadFile(path)
			if err != nil {
				return nil
			}
			rel, _ := filepath.Rel(abs, path)
			files[i] = SourceFile{Path: path, Rel: filepath.ToSlash(rel), Content: content, ModTime: info.ModTime()}
			ok[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := files[:0]
	for i := range files {
		if ok[i] {
			out = append(out, files[i])
		}
	}
	slices.SortFunc(out, func(a, b SourceFile) int { return strings.Compare(a.Rel, b.Rel) })
	return out, nil
}

// discover lists the absolute paths of source files under abs.
func (s *Scanner) discover(ctx context.Context, abs string) ([]string, error) {
	f := s.newFilter(abs)
	var paths []string
	err := filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if err != nil || path == abs {
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			target, err := filepath.EvalSymlinks(path)
			if err != nil || !within(target, abs) {
				return nil
			}
			if info, err := os.Stat(target); err != nil || info.IsDir() {
				return nil
			}
		}

		if d.IsDir() {
			if f.skip(path, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !f.skip(path, false) && parser.DetectLanguage(path) != parser.LangUnknown {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}
