// Package git provides read-only access to cloned repositories: opening a
// checkout, walking its simple commits and diffing a commit against its parent.
package git

import (
	"path/filepath"

	cerr "github.com/cockroachdb/errors"
	gogit "github.com/go-git/go-git/v5"
)

// Repository is a read-only handle on one cloned repository.
// Handles are cheap; open a fresh one for every pass over the history.
type Repository struct {
	// Name is the directory name of the checkout, used in record ids.
	Name string
	Path string

	repo *gogit.Repository
}

// Open opens the checkout at path. The repository name is the last path element.
func Open(path string) (*Repository, error) {
	repo, err := gogit.PlainOpen(path)
	if err != nil {
		return nil, cerr.Wrapf(err, "open repository %s", path)
	}

	return &Repository{
		Name: filepath.Base(path),
		Path: path,
		repo: repo,
	}, nil
}
