// pkg/chunks/diff.go

package chunks

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// span is a half-open range of canonical lines.
type span struct {
	Start, End int
}

func (s span) Len() int { return s.End - s.Start }

func (s span) overlaps(o span) bool {
	return s.Len() > 0 && o.Len() > 0 && s.Start < o.End && o.Start < s.End
}

// hunk is one run of consecutive changed lines between unchanged lines.
type hunk struct {
	Before, After span
}

// change is a run of hunks together with the unchanged lines around it.
type change struct {
	Before, After         span
	Preceding, Succeeding span // in the before file
}

// window selects the hunks From..To inclusive.
type window struct {
	From, To int
}

// lineHunks diffs two line lists and returns the changed runs in order.
func lineHunks(before, after []string) []hunk {
	dmp := diffmatchpatch.New()
	a, b, table := dmp.DiffLinesToRunes(joinLines(before), joinLines(after))
	diffs := dmp.DiffCharsToLines(dmp.DiffMainRunes(a, b, false), table)

	var (
		hunks  []hunk
		cur    *hunk
		bi, ai int
	)
	for _, d := range diffs {
		n := strings.Count(d.Text, "\n")
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			if cur != nil {
				hunks = append(hunks, *cur)
				cur = nil
			}
			bi += n
			ai += n
		case diffmatchpatch.DiffDelete:
			if cur == nil {
				cur = &hunk{Before: span{bi, bi}, After: span{ai, ai}}
			}
			bi += n
			cur.Before.End = bi
		case diffmatchpatch.DiffInsert:
			if cur == nil {
				cur = &hunk{Before: span{bi, bi}, After: span{ai, ai}}
			}
			ai += n
			cur.After.End = ai
		}
	}
	if cur != nil {
		hunks = append(hunks, *cur)
	}
	return hunks
}

func joinLines(lines []string) string {
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(l)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// changes picks, for every hunk, the first expansion that fits the size
// limit and whose context lines are untouched on both sides. An expansion
// already taken for an earlier hunk is not taken twice.
func (c *Chunker) changes(hunks []hunk, beforeLines, afterLines int) []change {
	var out []change
	seen := map[window]bool{}

	for i := range hunks {
		for _, w := range c.expansions(hunks, i) {
			if seen[w] {
				continue
			}
			ch := c.changeFor(hunks, w, beforeLines, afterLines)
			if contextTouched(hunks, ch, c.ContextLines, afterLines) {
				continue
			}
			out = append(out, ch)
			seen[w] = true
			break
		}
	}
	return out
}

// expansions grows hunk i into neighbouring hunks depth first, later
// neighbours before earlier ones, skipping windows that are too big.
func (c *Chunker) expansions(hunks []hunk, i int) []window {
	var out []window
	done := map[window]bool{}
	stack := []window{{i, i}}

	for len(stack) > 0 {
		w := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if done[w] {
			continue
		}

		before, after := merged(hunks, w)
		if before.Len() > c.MaxChangedLines || after.Len() > c.MaxChangedLines {
			continue
		}

		out = append(out, w)
		done[w] = true

		if w.From > 0 {
			stack = append(stack, window{w.From - 1, w.To})
		}
		if w.To < len(hunks)-1 {
			stack = append(stack, window{w.From, w.To + 1})
		}
	}
	return out
}

func merged(hunks []hunk, w window) (before, after span) {
	first, last := hunks[w.From], hunks[w.To]
	return span{first.Before.Start, last.Before.End}, span{first.After.Start, last.After.End}
}

func (c *Chunker) changeFor(hunks []hunk, w window, beforeLines, afterLines int) change {
	before, after := merged(hunks, w)
	return change{
		Before:     before,
		After:      after,
		Preceding:  span{max(0, before.Start-c.ContextLines), before.Start},
		Succeeding: span{before.End, min(beforeLines, before.End+c.ContextLines)},
	}
}

// contextTouched reports whether any context line of ch, in either file,
// belongs to a hunk.
func contextTouched(hunks []hunk, ch change, contextLines, afterLines int) bool {
	afterPreceding := span{max(0, ch.After.Start-contextLines), ch.After.Start}
	afterSucceeding := span{ch.After.End, min(afterLines, ch.After.End+contextLines)}

	for _, h := range hunks {
		if h.Before.overlaps(ch.Preceding) || h.Before.overlaps(ch.Succeeding) {
			return true
		}
		if h.After.overlaps(afterPreceding) || h.After.overlaps(afterSucceeding) {
			return true
		}
	}
	return false
}
