// pkg/chunks/runner.go

package chunks

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/CodeMonkeyCybersecurity/harvest/pkg/config"
	"github.com/CodeMonkeyCybersecurity/harvest/pkg/extract"
	"github.com/CodeMonkeyCybersecurity/harvest/pkg/output"
	"github.com/CodeMonkeyCybersecurity/harvest/pkg/progress"
	"github.com/CodeMonkeyCybersecurity/harvest/pkg/telemetry"
	cerr "github.com/cockroachdb/errors"
	"github.com/panjf2000/ants/v2"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Summary reports what a chunks run did.
type Summary struct {
	// Revisions counts the non-blank input lines.
	Revisions int
	// Skipped counts the lines that could not be decoded or parsed.
	Skipped  int
	Chunks   int
	Duration time.Duration
}

// Runner mines every revision of an extraction output file into a chunks
// file. Revisions are mined on a worker pool; chunks are written in input
// order.
type Runner struct {
	Input   string
	Output  string
	Workers int

	chunker *Chunker
	metrics *telemetry.RunMetrics
}

// NewRunner returns a Runner with the default Chunker.
func NewRunner(input, outputPath string, workers int) *Runner {
	return &Runner{
		Input:   input,
		Output:  outputPath,
		Workers: workers,
		chunker: NewChunker(),
		metrics: telemetry.NewRunMetrics(),
	}
}

// NewRunnerFromConfig returns a Runner for validated chunks settings.
func NewRunnerFromConfig(cfg *config.Chunks) *Runner {
	return NewRunner(cfg.Input, cfg.Output, cfg.Workers)
}

type mined struct {
	index  int
	line   int
	chunks []Chunk
	err    error
}

// Run mines the input file. A line that cannot be decoded or parsed is
// logged and skipped; failing to read the input or write the output stops
// the run, as does cancellation.
func (r *Runner) Run(ctx context.Context) (sum *Summary, err error) {
	logger := otelzap.Ctx(ctx)
	started := time.Now()
	sum = &Summary{}

	in, err := os.Open(r.Input)
	if err != nil {
		return sum, cerr.WithHint(
			cerr.Wrapf(err, "open input %s", r.Input),
			"the input is the output file of harvest extract")
	}
	defer in.Close()

	w, err := output.Create(r.Output)
	if err != nil {
		return sum, err
	}
	defer func() {
		if closeErr := w.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		sum.Chunks = w.Count()
		sum.Duration = time.Since(started)
	}()

	pool, err := ants.NewPool(r.Workers)
	if err != nil {
		return sum, cerr.Wrap(err, "create worker pool")
	}
	defer pool.Release()

	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	op := progress.Start(ctx, "chunks "+r.Input, progress.DefaultEvery)
	defer op.Done()

	results := make(chan mined, r.Workers)
	var readErr error
	go func() {
		readErr = r.feed(ctx, in, pool, results)
		close(results)
	}()

	var writeErr error
	pending := map[int]mined{}
	next := 0
	for res := range results {
		pending[res.index] = res
		for {
			m, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			sum.Revisions++

			if m.err != nil {
				sum.Skipped++
				r.metrics.RevisionMined(ctx, 0, false)
				if ctx.Err() == nil {
					logger.Warn("Skipping revision", zap.Int("line", m.line), zap.Error(m.err))
				}
				continue
			}
			if writeErr != nil {
				continue
			}
			for _, c := range m.chunks {
				if err := w.Write(c); err != nil {
					writeErr = err
					cancel()
					break
				}
			}
			r.metrics.RevisionMined(ctx, len(m.chunks), true)
		}
	}

	switch {
	case writeErr != nil:
		return sum, writeErr
	case parent.Err() != nil:
		return sum, parent.Err()
	case readErr != nil:
		return sum, readErr
	}

	logger.Info("Chunks run finished",
		zap.Int("revisions", sum.Revisions),
		zap.Int("skipped", sum.Skipped),
		zap.Int("chunks", w.Count()),
		zap.Duration("elapsed", time.Since(started)))
	return sum, nil
}

// feed reads the input line by line and submits every non-blank line to the
// pool. It returns once every submitted line has reported.
func (r *Runner) feed(ctx context.Context, in io.Reader, pool *ants.Pool, results chan<- mined) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	reader := bufio.NewReader(in)
	index := 0
	for lineNo := 1; ; lineNo++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		raw, readErr := reader.ReadBytes('\n')
		if len(bytes.TrimSpace(raw)) > 0 {
			job := mined{index: index, line: lineNo}
			index++

			wg.Add(1)
			if err := pool.Submit(func() {
				defer wg.Done()
				job.chunks, job.err = r.revision(ctx, raw)
				results <- job
			}); err != nil {
				wg.Done()
				return cerr.Wrap(err, "submit revision")
			}
		}

		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return cerr.Wrapf(readErr, "read %s", r.Input)
		}
	}
}

func (r *Runner) revision(ctx context.Context, raw []byte) ([]Chunk, error) {
	var rec extract.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, cerr.Wrap(err, "decode revision")
	}
	return r.chunker.Revision(ctx, rec)
}
