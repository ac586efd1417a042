// Package remote clones a git repository so it can be analyzed like a
// local project.
package remote

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Source is a repository named on the command line instead of a directory.
type Source struct {
	URL string
	// Ref is a branch, tag or full commit SHA. Empty selects the default branch.
	Ref string
	// CloneDir is set while a clone exists on disk.
	CloneDir string
}

// Parse returns the remote a command-line argument names, or nil when the
// argument is an existing path or not a recognizable repository reference.
func Parse(path string) (*Source, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, nil
	}

	// scp-style URLs carry no ref suffix; their @ is the user separator.
	if strings.HasPrefix(path, "git@") {
		return &Source{URL: path}, nil
	}

	ref := ""
	if idx := strings.LastIndex(path, "@"); idx != -1 {
		ref = path[idx+1:]
		path = path[:idx]
	}

	switch {
	case strings.HasPrefix(path, "https://"), strings.HasPrefix(path, "http://"):
		return &Source{URL: path, Ref: ref}, nil
	case isHostPath(path):
		return &Source{URL: "https://" + path, Ref: ref}, nil
	case isGitHubShorthand(path):
		return &Source{URL: "https://github.com/" + path, Ref: ref}, nil
	}
	return nil, nil
}

// isHostPath reports host/owner/repo paths such as github.com/golang/go.
func isHostPath(path string) bool {
	parts := strings.Split(path, "/")
	if len(parts) < 3 || !strings.Contains(parts[0], ".") {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
	}
	return true
}

// isGitHubShorthand reports owner/repo with both halves present and no
// domain in the owner.
func isGitHubShorthand(path string) bool {
	owner, repo, ok := strings.Cut(path, "/")
	return ok && owner != "" && repo != "" &&
		!strings.Contains(owner, ".") && !strings.Contains(repo, "/")
}

// Clone clones the repository into a temp directory and checks out Ref.
// A shallow clone is faster but leaves no history for recency scoring.
func (s *Source) Clone(ctx context.Context, progress io.Writer, shallow bool) error {
	dir, err := os.MkdirTemp("", "deadwood-remote-*")
	if err != nil {
		return err
	}
	s.CloneDir = dir

	opts := &git.CloneOptions{URL: s.URL, Progress: progress}
	if shallow {
		opts.Depth = 1
		opts.SingleBranch = true
	}

	if s.Ref != "" && !isHash(s.Ref) {
		for _, name := range []plumbing.ReferenceName{
			plumbing.NewBranchReferenceName(s.Ref),
			plumbing.NewTagReferenceName(s.Ref),
		} {
			opts.ReferenceName = name
			if _, err = git.PlainCloneContext(ctx, dir, false, opts); err == nil {
				return nil
			}
			if err := resetDir(dir); err != nil {
				return err
			}
		}
		s.Cleanup()
		return fmt.Errorf("cloning %s at %s: %w", s.URL, s.Ref, err)
	}

	// A SHA needs the history that contains it.
	if isHash(s.Ref) {
		opts.Depth = 0
		opts.SingleBranch = false
	}
	repo, err := git.PlainCloneContext(ctx, dir, false, opts)
	if err != nil {
		s.Cleanup()
		return fmt.Errorf("cloning %s: %w", s.URL, err)
	}
	if s.Ref == "" {
		return nil
	}

	wt, err := repo.Worktree()
	if err != nil {
		s.Cleanup()
		return err
	}
	if err := wt.Checkout(&git.CheckoutOptions{Hash: plumbing.NewHash(s.Ref)}); err != nil {
		s.Cleanup()
		return fmt.Errorf("checking out %s: %w", s.Ref, err)
	}
	return nil
}

// Cleanup removes the clone directory.
func (s *Source) Cleanup() {
	if s.CloneDir != "" {
		_ = os.RemoveAll(s.CloneDir)
		s.CloneDir = ""
	}
}

func resetDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

func isHash(ref string) bool {
	if len(ref) != 40 {
		return false
	}
	for _, r := range ref {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return false
		}
	}
	return true
}
