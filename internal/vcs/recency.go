package vcs

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Recency reports when files were last changed in git history.
type Recency struct {
	opener Opener
}

// NewRecency creates a Recency backed by opener, or go-git when nil.
func NewRecency(opener Opener) *Recency {
	if opener == nil {
		opener = GitOpener{}
	}
	return &Recency{opener: opener}
}

// LastModified returns the newest commit time of every file under root that
// was touched by a commit at or after since. Keys are slash paths relative
// to root. Files that are untracked or unchanged in the window are absent;
// a root outside any repository yields an empty map.
func (r *Recency) LastModified(ctx context.Context, root string, since time.Time) (map[string]time.Time, error) {
	out := make(map[string]time.Time)

	hist, err := r.opener.Open(root)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return out, nil
		}
		return nil, err
	}

	absRoot, err := resolve(root)
	if err != nil {
		return nil, err
	}
	repoRoot, err := resolve(hist.Root())
	if err != nil {
		return nil, err
	}

	err = hist.Changes(ctx, since, func(when time.Time, paths []string) error {
		for _, p := range paths {
			rel, err := filepath.Rel(absRoot, filepath.Join(repoRoot, filepath.FromSlash(p)))
			if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
				continue
			}
			key := filepath.ToSlash(rel)
			if prev, ok := out[key]; !ok || when.After(prev) {
				out[key] = when
			}
		}
		return nil
	})
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		// no HEAD yet
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func resolve(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	if r, err := filepath.EvalSymlinks(abs); err == nil {
		return r, nil
	}
	return abs, nil
}
