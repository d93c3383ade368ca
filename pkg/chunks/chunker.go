// pkg/chunks/chunker.go

// Package chunks mines small, statement-level code changes from extracted
// C# revisions. Both sides of a revision are parsed with tree-sitter,
// canonicalized (literals and declared variable names anonymized, comments
// and attributes dropped) and diffed line by line. Changed runs of at most a
// few lines, with untouched context around them, become chunks.
package chunks

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/CodeMonkeyCybersecurity/harvest/pkg/extract"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const (
	DefaultMaxChangedLines = 5
	DefaultContextLines    = 2
)

// Statement kinds a chunk line may belong to.
var allowedKinds = map[string]bool{
	"local_declaration_statement": true,
	"expression_statement":        true,
}

// Tokens that do not make a chunk worth keeping on their own.
var trivialTokens = map[string]bool{
	"VAR0": true, "int": true, "long": true, "string": true,
	"float": true, LiteralToken: true, "var": true,
}

// Chunk is one mined change. Field names follow the training-data format
// downstream tools read.
type Chunk struct {
	ID                     string   `json:"Id"`
	PrevCodeChunk          string   `json:"PrevCodeChunk"`
	UpdatedCodeChunk       string   `json:"UpdatedCodeChunk"`
	PrevCodeChunkTokens    []string `json:"PrevCodeChunkTokens"`
	UpdatedCodeChunkTokens []string `json:"UpdatedCodeChunkTokens"`
	PrecedingContext       []string `json:"PrecedingContext"`
	SucceedingContext      []string `json:"SucceedingContext"`
	CommitMessage          *string  `json:"CommitMessage,omitempty"`
}

// Chunker mines chunks from one revision at a time. It is safe for
// concurrent use.
type Chunker struct {
	// MaxChangedLines bounds the lines a chunk spans on either side.
	MaxChangedLines int
	// ContextLines is the number of unchanged lines kept on each side.
	ContextLines int
}

// NewChunker returns a Chunker with the default limits.
func NewChunker() *Chunker {
	return &Chunker{
		MaxChangedLines: DefaultMaxChangedLines,
		ContextLines:    DefaultContextLines,
	}
}

// Revision mines the chunks of rec in diff order. Chunk ids are the record id
// followed by _0, _1 and so on.
func (c *Chunker) Revision(ctx context.Context, rec extract.Record) ([]Chunk, error) {
	prev, names, err := canonicalize(ctx, rec.PrevFile, variables{})
	if err != nil {
		return nil, cerr.Wrapf(err, "canonicalize prev_file of %s", rec.ID)
	}
	updated, _, err := canonicalize(ctx, rec.UpdatedFile, names)
	if err != nil {
		return nil, cerr.Wrapf(err, "canonicalize updated_file of %s", rec.ID)
	}

	hunks := lineHunks(prev.texts(), updated.texts())

	var out []Chunk
	for _, ch := range c.changes(hunks, len(prev.Lines), len(updated.Lines)) {
		chunk, ok := c.chunk(prev, updated, ch)
		if !ok {
			continue
		}
		chunk.ID = rec.ID.String() + "_" + strconv.Itoa(len(out))
		chunk.CommitMessage = rec.Message
		out = append(out, chunk)
	}

	otelzap.Ctx(ctx).Debug("Mined revision",
		zap.Stringer("id", rec.ID),
		zap.Int("hunks", len(hunks)),
		zap.Int("chunks", len(out)))
	return out, nil
}

func (c *Chunker) chunk(prev, updated *canonicalFile, ch change) (Chunk, bool) {
	before := prev.Lines[ch.Before.Start:ch.Before.End]
	after := updated.Lines[ch.After.Start:ch.After.End]
	if len(before) == 0 || len(before) != len(after) {
		return Chunk{}, false
	}
	if !statementsOnly(before) || !statementsOnly(after) {
		return Chunk{}, false
	}

	beforeText, afterText := flatten(before), flatten(after)
	if !meaningful(beforeText) || !meaningful(afterText) || slices.Equal(beforeText, afterText) {
		return Chunk{}, false
	}

	z := zeroIndexer{}
	before, after = z.lines(before), z.lines(after)
	preceding := z.lines(prev.Lines[ch.Preceding.Start:ch.Preceding.End])
	succeeding := z.lines(prev.Lines[ch.Succeeding.Start:ch.Succeeding.End])

	return Chunk{
		PrevCodeChunk:          joinText(before),
		UpdatedCodeChunk:       joinText(after),
		PrevCodeChunkTokens:    flatten(before),
		UpdatedCodeChunkTokens: flatten(after),
		PrecedingContext:       flatten(preceding),
		SucceedingContext:      flatten(succeeding),
	}, true
}

func statementsOnly(lines []line) bool {
	for _, l := range lines {
		if !allowedKinds[l.Kind] {
			return false
		}
	}
	return true
}

// meaningful reports whether tokens hold something besides trivial keywords
// and punctuation.
func meaningful(tokens []string) bool {
	for _, t := range tokens {
		if trivialTokens[t] || allPunct(t) {
			continue
		}
		return true
	}
	return false
}

func allPunct(s string) bool {
	for _, r := range s {
		if !unicode.IsPunct(r) {
			return false
		}
	}
	return true
}

func flatten(lines []line) []string {
	out := []string{}
	for _, l := range lines {
		for _, t := range l.Tokens {
			out = append(out, t.Text)
		}
	}
	return out
}

func joinText(lines []line) string {
	texts := make([]string, len(lines))
	for i, l := range lines {
		texts[i] = l.text()
	}
	return strings.Join(texts, "\n")
}

// zeroIndexer renumbers canonical variables from VAR0 in order of first
// appearance, so a chunk does not depend on where its file declared them.
type zeroIndexer map[string]string

func (z zeroIndexer) lines(lines []line) []line {
	out := make([]line, len(lines))
	for i, l := range lines {
		toks := make([]token, len(l.Tokens))
		for j, t := range l.Tokens {
			if t.Variable {
				name, ok := z[t.Text]
				if !ok {
					name = VariablePrefix + strconv.Itoa(len(z))
					z[t.Text] = name
				}
				t.Text = name
			}
			toks[j] = t
		}
		out[i] = line{Tokens: toks, Kind: l.Kind}
	}
	return out
}
