// Package vcs reads git history for recency scoring.
package vcs

import (
	"context"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// Opener locates the repository containing a path.
type Opener interface {
	Open(path string) (History, error)
}

// History walks the commits of one repository.
type History interface {
	// Root is the worktree root. Changed paths are relative to it.
	Root() string
	// Changes calls fn for each commit at or after since, newest first,
	// with the slash paths the commit touched against its first parent.
	Changes(ctx context.Context, since time.Time, fn func(when time.Time, paths []string) error) error
}

// GitOpener opens repositories with go-git, searching parent directories
// for .git.
type GitOpener struct{}

func (GitOpener) Open(path string) (History, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, err
	}
	return &gitHistory{repo: repo, root: wt.Filesystem.Root()}, nil
}

type gitHistory struct {
	repo *git.Repository
	root string
}

func (h *gitHistory) Root() string { return h.root }

func (h *gitHistory) Changes(ctx context.Context, since time.Time, fn func(time.Time, []string) error) error {
	iter, err := h.repo.Log(&git.LogOptions{Order: git.LogOrderCommitterTime, Since: &since})
	if err != nil {
		return err
	}
	defer iter.Close()

	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		paths, err := touched(ctx, c)
		if err != nil {
			// unreadable objects in shallow clones
			return nil
		}
		return fn(c.Committer.When, paths)
	})
	if err == storer.ErrStop {
		return nil
	}
	return err
}

func touched(ctx context.Context, c *object.Commit) ([]string, error) {
	tree, err := c.Tree()
	if err != nil {
		return nil, err
	}
	parent := &object.Tree{}
	if c.NumParents() > 0 {
		p, err := c.Parent(0)
		if err != nil {
			return nil, err
		}
		if parent, err = p.Tree(); err != nil {
			return nil, err
		}
	}

	changes, err := parent.DiffContext(ctx, tree)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(changes))
	for _, ch := range changes {
		if ch.To.Name != "" {
			paths = append(paths, ch.To.Name)
		} else {
			paths = append(paths, ch.From.Name)
		}
	}
	return paths, nil
}
