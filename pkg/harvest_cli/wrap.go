// pkg/harvest_cli/wrap.go

package harvest_cli

import (
	"context"

	"github.com/CodeMonkeyCybersecurity/harvest/pkg/harvest_err"
	"github.com/CodeMonkeyCybersecurity/harvest/pkg/harvest_io"
	"github.com/CodeMonkeyCybersecurity/harvest/pkg/logger"
	cerr "github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Wrap ensures panic recovery, telemetry and logging around a command handler.
func Wrap(fn func(rc *harvest_io.RuntimeContext, cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		logger.InitFallback()

		parent := cmd.Context()
		if parent == nil {
			parent = context.Background()
		}

		rc := harvest_io.NewContext(parent, cmd.Name())
		defer rc.End(&err)
		defer rc.HandlePanic(&err)

		rc.Log.Debug("Entering wrapped command function", zap.Strings("args", args))

		err = fn(rc, cmd, args)
		if err != nil && !harvest_err.IsExpectedUserError(err) {
			err = cerr.WithStack(err)
		}
		return err
	}
}
