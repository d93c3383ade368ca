// pkg/harvest_err/wrap.go

package harvest_err

import (
	cerr "github.com/cockroachdb/errors"
)

// WrapRepositoryError attaches the repository name to a history or blob failure.
func WrapRepositoryError(err error, repo string) error {
	if err == nil {
		return nil
	}
	return cerr.WithHintf(cerr.Wrapf(err, "repository %s", repo),
		"check that %s is a complete clone with readable history", repo)
}
