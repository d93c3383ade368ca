// pkg/harvest/driver.go

// Package harvest runs an extraction over a directory of cloned repositories:
// a counting pass that prunes unreadable repositories, then an extraction
// pass that writes records for the survivors.
package harvest

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"github.com/CodeMonkeyCybersecurity/harvest/pkg/config"
	"github.com/CodeMonkeyCybersecurity/harvest/pkg/extract"
	"github.com/CodeMonkeyCybersecurity/harvest/pkg/git"
	"github.com/CodeMonkeyCybersecurity/harvest/pkg/harvest_err"
	"github.com/CodeMonkeyCybersecurity/harvest/pkg/output"
	"github.com/CodeMonkeyCybersecurity/harvest/pkg/telemetry"
	cerr "github.com/cockroachdb/errors"
	"github.com/hashicorp/go-multierror"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Options control one run.
type Options struct {
	ReposDir string
	// RepoList is the allow-list file; empty processes every repository.
	RepoList  string
	Output    string
	Extension string
	Mode      extract.Mode
	Decode    extract.DecodePolicy
	// FailFast aborts the run on the first extraction failure instead of
	// abandoning only the failing repository.
	FailFast bool
}

// OptionsFromConfig converts validated extract settings into run options.
func OptionsFromConfig(cfg *config.Extract) (Options, error) {
	policy, err := extract.ParseDecodePolicy(cfg.Decode)
	if err != nil {
		return Options{}, err
	}

	opts := Options{
		ReposDir:  cfg.ReposDir,
		Output:    cfg.Output,
		Extension: cfg.Extension,
		Mode:      extract.ModeFor(cfg.SinglePlaceCommit),
		Decode:    policy,
		FailFast:  cfg.FailFast,
	}
	if cfg.AllowListEnabled() {
		opts.RepoList = cfg.RepoList
	}
	return opts, nil
}

// Result summarizes a run.
type Result struct {
	Discovered   int
	Pruned       []string
	Failed       []string
	TotalCommits int
	Records      int
	Duration     time.Duration
	// Failures holds the extraction errors of abandoned repositories.
	Failures error
}

// Driver runs the two passes. It holds no state between runs.
type Driver struct {
	opts      Options
	extractor *extract.Extractor
	metrics   *telemetry.RunMetrics

	openRepository func(path string) (*git.Repository, error)
}

// NewDriver returns a Driver for opts.
func NewDriver(opts Options) *Driver {
	return &Driver{
		opts:           opts,
		extractor:      extract.New(opts.Extension, opts.Mode, opts.Decode),
		metrics:        telemetry.NewRunMetrics(),
		openRepository: git.Open,
	}
}

// Run creates the output file, counts simple commits in every selected
// repository, then extracts records from the repositories that counted
// cleanly. Output errors and cancellation always end the run.
func (d *Driver) Run(ctx context.Context) (res *Result, err error) {
	logger := otelzap.Ctx(ctx)
	start := time.Now()
	res = &Result{}

	w, err := output.Create(d.opts.Output)
	if err != nil {
		return res, err
	}
	defer func() {
		if closeErr := w.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		res.Records = w.Count()
		res.Duration = time.Since(start)
	}()

	repos, err := SelectRepositories(d.opts.ReposDir, d.opts.RepoList)
	if err != nil {
		return res, err
	}
	res.Discovered = len(repos)
	logger.Info("Processing repositories",
		zap.Int("count", len(repos)),
		zap.String("mode", d.opts.Mode.String()),
		zap.String("output", d.opts.Output))

	survivors, total, err := d.count(ctx, repos, res)
	if err != nil {
		return res, err
	}
	res.TotalCommits = total
	logger.Info("Total number of commits", zap.Int("commits", total))

	if err := d.extractAll(ctx, survivors, w, res); err != nil {
		return res, err
	}

	logger.Info("Extraction finished",
		zap.Int("discovered", res.Discovered),
		zap.Strings("pruned", res.Pruned),
		zap.Strings("failed", res.Failed),
		zap.Int("commits", res.TotalCommits),
		zap.Int("records", w.Count()),
		zap.Duration("duration", time.Since(start)))
	return res, nil
}

// count is the first pass. Repositories that cannot be opened or walked are
// pruned and reported.
func (d *Driver) count(ctx context.Context, repos []string, res *Result) ([]string, int, error) {
	logger := otelzap.Ctx(ctx)

	var survivors []string
	total := 0
	for _, name := range repos {
		logger.Info("Counting commits", zap.String("repo", name))

		n, err := d.countRepository(ctx, name)
		if err != nil {
			if ctx.Err() != nil {
				return nil, 0, ctx.Err()
			}
			logger.Error("Error counting commits, skipping repository",
				zap.String("repo", name),
				zap.Error(harvest_err.WrapRepositoryError(err, name)))
			res.Pruned = append(res.Pruned, name)
			d.metrics.RepositoryPruned(ctx, name)
			continue
		}
		d.metrics.RepositoryCounted(ctx, name, n)

		logger.Debug("Counted commits", zap.String("repo", name), zap.Int("commits", n))
		total += n
		survivors = append(survivors, name)
	}
	return survivors, total, nil
}

func (d *Driver) countRepository(ctx context.Context, name string) (int, error) {
	ctx, span := telemetry.Start(ctx, "harvest.count", attribute.String("repo", name))
	defer span.End()

	repo, err := d.openRepository(filepath.Join(d.opts.ReposDir, name))
	if err != nil {
		recordSpanError(span, err)
		return 0, err
	}

	n, err := repo.CountSimpleCommits(ctx)
	if err != nil {
		recordSpanError(span, err)
		return 0, err
	}
	span.SetAttributes(attribute.Int("commits", n))
	return n, nil
}

// extractAll is the second pass. Each repository is re-opened with a fresh
// handle.
func (d *Driver) extractAll(ctx context.Context, repos []string, w *output.Writer, res *Result) error {
	logger := otelzap.Ctx(ctx)

	for _, name := range repos {
		logger.Info("Processing repository", zap.String("repo", name))

		started := time.Now()
		n, err := d.extractRepository(ctx, name, w)
		d.metrics.RepositoryExtracted(ctx, name, n, time.Since(started), err != nil)
		if err == nil {
			logger.Debug("Repository done", zap.String("repo", name), zap.Int("records", n))
			continue
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
		wrapped := harvest_err.WrapRepositoryError(err, name)
		if cerr.Is(err, output.ErrWrite) {
			return wrapped
		}
		if d.opts.FailFast {
			return harvest_err.NewGitError("extraction aborted", wrapped,
				"Run without --fail-fast to skip failing repositories")
		}

		logger.Error("Error extracting repository, skipping the rest of it",
			zap.String("repo", name),
			zap.Int("records_written", n),
			zap.Error(wrapped))
		res.Failed = append(res.Failed, name)
		res.Failures = multierror.Append(res.Failures, wrapped)
	}
	return nil
}

func (d *Driver) extractRepository(ctx context.Context, name string, w *output.Writer) (records int, err error) {
	ctx, span := telemetry.Start(ctx, "harvest.extract", attribute.String("repo", name))
	defer func() {
		span.SetAttributes(attribute.Int("records", records))
		if err != nil {
			recordSpanError(span, err)
		}
		span.End()
	}()

	repo, err := d.openRepository(filepath.Join(d.opts.ReposDir, name))
	if err != nil {
		return 0, err
	}

	cursor, err := repo.SimpleCommits()
	if err != nil {
		return 0, err
	}
	defer cursor.Close()

	emit := func(rec extract.Record) error { return w.Write(rec) }
	for {
		c, err := cursor.Next(ctx)
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return records, err
		}

		n, err := d.extractor.Commit(ctx, repo.Name, c, emit)
		records += n
		if err != nil {
			return records, err
		}
	}
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
