// pkg/harvest_err/types.go

package harvest_err

import "errors"

// ErrNoHistory is returned when a repository has no reachable commits.
var ErrNoHistory = errors.New("repository has no commit history")

// UserError marks an error as expected and recoverable by the user.
type UserError struct {
	cause error
}

func (e *UserError) Error() string {
	return e.cause.Error()
}

func (e *UserError) Unwrap() error {
	return e.cause
}
