// pkg/extract/extractor.go

// Package extract turns the diffs of simple commits into before/after records.
package extract

import (
	"context"
	"strings"

	"github.com/CodeMonkeyCybersecurity/harvest/pkg/git"
	cerr "github.com/cockroachdb/errors"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Extractor builds records from qualifying diffs.
type Extractor struct {
	Filter Filter
	Decode DecodePolicy
}

// New returns an Extractor tracking extension in the given mode.
func New(extension string, mode Mode, policy DecodePolicy) *Extractor {
	return &Extractor{
		Filter: Filter{Extension: extension, Mode: mode},
		Decode: policy,
	}
}

// Commit diffs c against its parent and hands every record it yields to emit,
// in diff order. It returns the number of records emitted. An error from emit
// stops the commit and is returned unchanged.
func (e *Extractor) Commit(ctx context.Context, repo string, c *object.Commit, emit func(Record) error) (int, error) {
	diffs, err := git.DiffParent(ctx, c)
	if err != nil {
		return 0, cerr.Wrapf(err, "diff commit %s", c.Hash)
	}

	emitted := 0
	for _, d := range e.Filter.Qualify(diffs) {
		rec, ok := e.Record(ctx, repo, c, d)
		if !ok {
			continue
		}

		otelzap.Ctx(ctx).Debug("Writing one revision", zap.Stringer("id", rec.ID))
		if err := emit(rec); err != nil {
			return emitted, err
		}
		emitted++
	}
	return emitted, nil
}

// Record builds the record for one qualifying diff of c. It reports false
// when the diff must be skipped: a blob cannot be read, either side decodes
// to empty text, or both sides decode to the same text.
func (e *Extractor) Record(ctx context.Context, repo string, c *object.Commit, d git.FileDiff) (Record, bool) {
	logger := otelzap.Ctx(ctx)
	fields := []zap.Field{
		zap.String("repo", repo),
		zap.String("commit", c.Hash.String()),
		zap.String("path", d.APath),
	}

	a, b, err := d.ReadBlobs()
	if err != nil {
		logger.Debug("Skipping diff with unreadable blob", append(fields, zap.Error(err))...)
		return Record{}, false
	}

	prev := Decode(a, e.Decode)
	updated := Decode(b, e.Decode)
	if prev == "" || updated == "" {
		logger.Debug("Skipping diff with empty side", fields...)
		return Record{}, false
	}
	if prev == updated {
		logger.Debug("Skipping diff with unchanged text", fields...)
		return Record{}, false
	}

	rec := Record{
		ID:          RevisionID{Repo: repo, Commit: c.Hash.String(), Path: d.APath},
		PrevFile:    prev,
		UpdatedFile: updated,
	}
	if e.Filter.Mode == SinglePlace {
		msg := strings.TrimSpace(c.Message)
		rec.Message = &msg
	}
	return rec, true
}
