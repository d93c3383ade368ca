// pkg/extract/types.go

package extract

import (
	"encoding/json"
	"strings"

	cerr "github.com/cockroachdb/errors"
)

// Mode selects how the diffs of an eligible commit qualify.
type Mode int

const (
	// MultiPlace qualifies every tracked modification of a commit on its own.
	MultiPlace Mode = iota
	// SinglePlace qualifies a commit only when its whole diff is one tracked modification.
	SinglePlace
)

func (m Mode) String() string {
	if m == SinglePlace {
		return "single-place"
	}
	return "multi-place"
}

// ModeFor maps the single_place_commit switch to a Mode.
func ModeFor(singlePlace bool) Mode {
	if singlePlace {
		return SinglePlace
	}
	return MultiPlace
}

// DecodePolicy says what happens to byte sequences that are not valid UTF-8.
type DecodePolicy string

const (
	// DecodeIgnore drops invalid sequences.
	DecodeIgnore DecodePolicy = "ignore"
	// DecodeReplace substitutes U+FFFD for invalid sequences.
	DecodeReplace DecodePolicy = "replace"
)

// ParseDecodePolicy accepts "ignore" or "replace", case-insensitively.
func ParseDecodePolicy(s string) (DecodePolicy, error) {
	switch p := DecodePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case DecodeIgnore, DecodeReplace:
		return p, nil
	default:
		return "", cerr.WithHint(
			cerr.Newf("unknown decode policy %q", s),
			"use ignore or replace")
	}
}

// RevisionID identifies one file revision: the repository directory name,
// the full hex hash of the child commit and the parent-side path.
type RevisionID struct {
	Repo   string
	Commit string
	Path   string
}

// String flattens the id to repo|commit|path, the form used in output records.
func (id RevisionID) String() string {
	return strings.Join([]string{id.Repo, id.Commit, id.Path}, "|")
}

// Record is one before/after pair. Message is set only in single-place mode.
type Record struct {
	ID          RevisionID
	PrevFile    string
	UpdatedFile string
	Message     *string
}

type recordJSON struct {
	ID          string  `json:"id"`
	PrevFile    string  `json:"prev_file"`
	UpdatedFile string  `json:"updated_file"`
	Message     *string `json:"message,omitempty"`
}

// MarshalJSON writes the fields in the order id, prev_file, updated_file, message.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{
		ID:          r.ID.String(),
		PrevFile:    r.PrevFile,
		UpdatedFile: r.UpdatedFile,
		Message:     r.Message,
	})
}

// ParseRevisionID splits a flattened repo|commit|path id. The path is the
// remainder after the second separator, so it may itself contain "|".
func ParseRevisionID(s string) (RevisionID, error) {
	parts := strings.SplitN(s, "|", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return RevisionID{}, cerr.Newf("malformed revision id %q", s)
	}
	return RevisionID{Repo: parts[0], Commit: parts[1], Path: parts[2]}, nil
}

// UnmarshalJSON reads one output line back into a Record.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw recordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	id, err := ParseRevisionID(raw.ID)
	if err != nil {
		return err
	}
	*r = Record{
		ID:          id,
		PrevFile:    raw.PrevFile,
		UpdatedFile: raw.UpdatedFile,
		Message:     raw.Message,
	}
	return nil
}
