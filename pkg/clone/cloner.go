// pkg/clone/cloner.go

// Package clone populates a repositories directory from a repository list.
package clone

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/CodeMonkeyCybersecurity/harvest/pkg/config"
	"github.com/CodeMonkeyCybersecurity/harvest/pkg/harvest_err"
	"github.com/CodeMonkeyCybersecurity/harvest/pkg/progress"
	"github.com/CodeMonkeyCybersecurity/harvest/pkg/telemetry"
	cerr "github.com/cockroachdb/errors"
	gogit "github.com/go-git/go-git/v5"
	"github.com/hashicorp/go-multierror"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrDestinationExists is returned for an entry whose directory is already present.
var ErrDestinationExists = cerr.New("destination already exists")

// Func clones one repository into dest.
type Func func(ctx context.Context, dest string, opts *gogit.CloneOptions) error

// PlainClone clones with go-git into a non-bare checkout.
func PlainClone(ctx context.Context, dest string, opts *gogit.CloneOptions) error {
	_, err := gogit.PlainCloneContext(ctx, dest, false, opts)
	return err
}

// Summary reports what a clone run did.
type Summary struct {
	Cloned []string
	Failed []string
	// Errors aggregates the per-entry failures.
	Errors error
}

// Cloner clones entries one after another, at most one start per interval.
type Cloner struct {
	TargetDir string
	Depth     int
	// Heartbeat is how often a running clone logs that it is still going.
	Heartbeat time.Duration

	limiter *rate.Limiter
	clone   Func
	metrics *telemetry.RunMetrics
}

// NewCloner returns a Cloner using go-git.
func NewCloner(targetDir string, interval time.Duration, depth int) *Cloner {
	return &Cloner{
		TargetDir: targetDir,
		Depth:     depth,
		Heartbeat: progress.DefaultEvery,
		limiter:   rate.NewLimiter(rate.Every(interval), 1),
		clone:     PlainClone,
		metrics:   telemetry.NewRunMetrics(),
	}
}

// NewClonerFromConfig returns a Cloner for validated clone settings.
func NewClonerFromConfig(cfg *config.Clone) *Cloner {
	return NewCloner(cfg.TargetDir, cfg.Interval, cfg.Depth)
}

// Run clones every entry. A failing entry is logged and recorded in the
// summary; only cancellation stops the loop.
func (c *Cloner) Run(ctx context.Context, entries []Entry) (*Summary, error) {
	logger := otelzap.Ctx(ctx)
	summary := &Summary{}

	if err := os.MkdirAll(c.TargetDir, 0755); err != nil {
		return summary, harvest_err.NewFilesystemError("cannot create target directory", err,
			"Check that the parent of the target directory is writable")
	}

	for _, entry := range entries {
		if err := c.limiter.Wait(ctx); err != nil {
			return summary, cerr.Wrap(err, "wait for next clone")
		}

		logger.Info("Cloning", zap.String("url", entry.URL), zap.String("name", entry.Name))
		err := c.cloneOne(ctx, entry)
		c.metrics.CloneFinished(ctx, err == nil)
		if err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			classified := harvest_err.ClassifyError(err, "clone "+entry.URL)
			logger.Error("Clone failed", zap.String("url", entry.URL), zap.Error(classified))
			summary.Failed = append(summary.Failed, entry.Name)
			summary.Errors = multierror.Append(summary.Errors, classified)
			continue
		}
		summary.Cloned = append(summary.Cloned, entry.Name)
	}

	logger.Info("Clone run finished",
		zap.Int("requested", len(entries)),
		zap.Int("cloned", len(summary.Cloned)),
		zap.Strings("failed", summary.Failed))
	return summary, nil
}

func (c *Cloner) cloneOne(ctx context.Context, entry Entry) (err error) {
	ctx, span := telemetry.Start(ctx, "harvest.clone", attribute.String("url", entry.URL))
	defer func() {
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}()

	dest := filepath.Join(c.TargetDir, entry.Name)
	if _, statErr := os.Stat(dest); statErr == nil {
		return cerr.Mark(cerr.Newf("%s already exists", dest), ErrDestinationExists)
	}

	op := progress.Start(ctx, "clone "+entry.Name, c.Heartbeat)
	defer func() {
		otelzap.Ctx(ctx).Debug("Clone attempt finished",
			zap.String("name", entry.Name),
			zap.Duration("elapsed", op.Done()))
	}()

	return c.clone(ctx, dest, &gogit.CloneOptions{
		URL:   entry.CloneURL,
		Depth: c.Depth,
	})
}
