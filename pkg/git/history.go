// pkg/git/history.go

package git

import (
	"context"
	"io"

	"github.com/CodeMonkeyCybersecurity/harvest/pkg/harvest_err"
	cerr "github.com/cockroachdb/errors"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// IsSimple reports whether c has exactly one parent. Root and merge commits are not simple.
func IsSimple(c *object.Commit) bool {
	return c.NumParents() == 1
}

// CommitCursor is a forward-only cursor over the simple commits reachable from
// HEAD, newest first by committer time. It cannot be rewound; ask the
// Repository for a new cursor instead.
type CommitCursor struct {
	iter object.CommitIter
}

// SimpleCommits returns a cursor over the simple commits of r.
// A repository without a HEAD yields harvest_err.ErrNoHistory.
func (r *Repository) SimpleCommits() (*CommitCursor, error) {
	iter, err := r.repo.Log(&gogit.LogOptions{Order: gogit.LogOrderCommitterTime})
	if err != nil {
		if cerr.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, cerr.Mark(cerr.Wrapf(err, "log %s", r.Name), harvest_err.ErrNoHistory)
		}
		return nil, cerr.Wrapf(err, "log %s", r.Name)
	}
	return &CommitCursor{iter: iter}, nil
}

// Next returns the next simple commit, or io.EOF once the history is exhausted.
// ctx is checked before every commit.
func (c *CommitCursor) Next(ctx context.Context) (*object.Commit, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		commit, err := c.iter.Next()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, cerr.Wrap(err, "read commit")
		}

		if IsSimple(commit) {
			return commit, nil
		}
	}
}

// Close releases the underlying iterator.
func (c *CommitCursor) Close() {
	c.iter.Close()
}

// CountSimpleCommits walks the whole history once and counts simple commits.
func (r *Repository) CountSimpleCommits(ctx context.Context) (int, error) {
	cursor, err := r.SimpleCommits()
	if err != nil {
		return 0, err
	}
	defer cursor.Close()

	count := 0
	for {
		_, err := cursor.Next(ctx)
		if err == io.EOF {
			return count, nil
		}
		if err != nil {
			return count, err
		}
		count++
	}
}
