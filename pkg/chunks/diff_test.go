package chunks

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineHunks(t *testing.T) {
	tests := []struct {
		name   string
		before []string
		after  []string
		want   []hunk
	}{
		{
			name:   "identical",
			before: []string{"a", "b"},
			after:  []string{"a", "b"},
			want:   nil,
		},
		{
			name:   "replace_and_append",
			before: []string{"a", "b", "c", "d"},
			after:  []string{"a", "x", "c", "d", "e"},
			want: []hunk{
				{Before: span{1, 2}, After: span{1, 2}},
				{Before: span{4, 4}, After: span{4, 5}},
			},
		},
		{
			name:   "delete",
			before: []string{"a", "b", "c"},
			after:  []string{"a", "c"},
			want: []hunk{
				{Before: span{1, 2}, After: span{1, 1}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, lineHunks(tt.before, tt.after))
		})
	}
}

func TestSpanOverlaps(t *testing.T) {
	assert.True(t, span{2, 4}.overlaps(span{3, 5}))
	assert.False(t, span{2, 4}.overlaps(span{4, 6}))
	assert.False(t, span{2, 2}.overlaps(span{0, 5}), "empty spans never overlap")
}

func TestChanges(t *testing.T) {
	c := NewChunker()

	t.Run("isolated_hunk", func(t *testing.T) {
		hunks := []hunk{{Before: span{4, 5}, After: span{4, 5}}}

		got := c.changes(hunks, 10, 10)

		assert.Equal(t, []change{{
			Before:     span{4, 5},
			After:      span{4, 5},
			Preceding:  span{2, 4},
			Succeeding: span{5, 7},
		}}, got)
	})

	t.Run("context_clipped_at_file_edges", func(t *testing.T) {
		hunks := []hunk{{Before: span{0, 1}, After: span{0, 1}}}

		got := c.changes(hunks, 2, 2)

		assert.Equal(t, []change{{
			Before:     span{0, 1},
			After:      span{0, 1},
			Preceding:  span{0, 0},
			Succeeding: span{1, 2},
		}}, got)
	})

	t.Run("neighbours_in_context_are_merged", func(t *testing.T) {
		hunks := []hunk{
			{Before: span{6, 7}, After: span{6, 7}},
			{Before: span{8, 9}, After: span{8, 9}},
		}

		got := c.changes(hunks, 12, 12)

		assert.Equal(t, []change{{
			Before:     span{6, 9},
			After:      span{6, 9},
			Preceding:  span{4, 6},
			Succeeding: span{9, 11},
		}}, got)
	})

	t.Run("too_many_changed_lines", func(t *testing.T) {
		hunks := []hunk{{Before: span{2, 8}, After: span{2, 8}}}

		assert.Empty(t, c.changes(hunks, 20, 20))
	})

	t.Run("neighbour_too_far_to_merge", func(t *testing.T) {
		hunks := []hunk{
			{Before: span{2, 6}, After: span{2, 6}},
			{Before: span{7, 10}, After: span{7, 10}},
		}

		assert.Empty(t, c.changes(hunks, 20, 20))
	})

	t.Run("insertion_touches_updated_context", func(t *testing.T) {
		hunks := []hunk{
			{Before: span{5, 6}, After: span{5, 6}},
			{Before: span{7, 7}, After: span{7, 8}},
		}

		got := c.changes(hunks, 20, 21)

		assert.Equal(t, []change{{
			Before:     span{5, 7},
			After:      span{5, 8},
			Preceding:  span{3, 5},
			Succeeding: span{7, 9},
		}}, got)
	})
}

func TestExpansions(t *testing.T) {
	c := &Chunker{MaxChangedLines: 5, ContextLines: 2}
	hunks := []hunk{
		{Before: span{0, 1}, After: span{0, 1}},
		{Before: span{3, 4}, After: span{3, 4}},
		{Before: span{6, 7}, After: span{6, 7}},
	}

	got := c.expansions(hunks, 1)

	assert.Equal(t, []window{{1, 1}, {1, 2}, {0, 1}}, got)
	assert.NotContains(t, got, window{0, 2}, "seven lines exceed the limit")
}
