// Package testrepo builds small on-disk git repositories for tests.
package testrepo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

// Repo is a non-bare repository with a worktree, committed to with a
// monotonically increasing clock so history order is deterministic.
type Repo struct {
	Dir string

	t     testing.TB
	repo  *gogit.Repository
	wt    *gogit.Worktree
	clock time.Time
}

// New initializes an empty repository at dir.
func New(t testing.TB, dir string) *Repo {
	t.Helper()

	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	return &Repo{
		Dir:   dir,
		t:     t,
		repo:  repo,
		wt:    wt,
		clock: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Write stores content at path and stages it.
func (r *Repo) Write(path string, content string) *Repo {
	return r.WriteBytes(path, []byte(content))
}

// WriteBytes stores raw content at path and stages it.
func (r *Repo) WriteBytes(path string, content []byte) *Repo {
	r.t.Helper()

	full := filepath.Join(r.Dir, path)
	require.NoError(r.t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(r.t, os.WriteFile(full, content, 0644))
	_, err := r.wt.Add(path)
	require.NoError(r.t, err)
	return r
}

// Symlink replaces whatever is at path with a symlink to target and stages it.
func (r *Repo) Symlink(path, target string) *Repo {
	r.t.Helper()

	full := filepath.Join(r.Dir, path)
	require.NoError(r.t, os.MkdirAll(filepath.Dir(full), 0755))
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		require.NoError(r.t, err)
	}
	require.NoError(r.t, os.Symlink(target, full))
	_, err := r.wt.Add(path)
	require.NoError(r.t, err)
	return r
}

// Remove deletes path and stages the deletion.
func (r *Repo) Remove(path string) *Repo {
	r.t.Helper()

	_, err := r.wt.Remove(path)
	require.NoError(r.t, err)
	return r
}

// Move renames from to to and stages both sides.
func (r *Repo) Move(from, to string) *Repo {
	r.t.Helper()

	_, err := r.wt.Move(from, to)
	require.NoError(r.t, err)
	return r
}

// Commit records the staged changes on top of HEAD.
func (r *Repo) Commit(message string) plumbing.Hash {
	return r.CommitWithParents(message)
}

// CommitWithParents records the staged changes with explicit parents.
// With no parents HEAD is used, as git does.
func (r *Repo) CommitWithParents(message string, parents ...plumbing.Hash) plumbing.Hash {
	r.t.Helper()

	r.clock = r.clock.Add(time.Minute)
	sig := &object.Signature{Name: "Test Author", Email: "author@example.com", When: r.clock}

	hash, err := r.wt.Commit(message, &gogit.CommitOptions{
		Author:            sig,
		Committer:         sig,
		Parents:           parents,
		AllowEmptyCommits: true,
	})
	require.NoError(r.t, err)
	return hash
}

// Head returns the hash HEAD points to.
func (r *Repo) Head() plumbing.Hash {
	r.t.Helper()

	ref, err := r.repo.Head()
	require.NoError(r.t, err)
	return ref.Hash()
}

// CommitObject loads the commit with the given hash.
func (r *Repo) CommitObject(hash plumbing.Hash) *object.Commit {
	r.t.Helper()

	c, err := r.repo.CommitObject(hash)
	require.NoError(r.t, err)
	return c
}
