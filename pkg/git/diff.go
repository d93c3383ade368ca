// pkg/git/diff.go

package git

import (
	"context"
	"io"

	cerr "github.com/cockroachdb/errors"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"
)

// ChangeType is the kind of change a FileDiff records.
type ChangeType int

const (
	Added ChangeType = iota + 1
	Modified
	Deleted
	Renamed
	TypeChanged
)

// String returns the single-letter code git uses for the change type.
func (t ChangeType) String() string {
	switch t {
	case Added:
		return "A"
	case Modified:
		return "M"
	case Deleted:
		return "D"
	case Renamed:
		return "R"
	case TypeChanged:
		return "T"
	default:
		return "?"
	}
}

// FileDiff is one entry of the diff between a commit's parent and the commit.
// APath is the path in the parent tree and BPath the path in the child tree;
// for added and deleted files both hold the single path that exists.
type FileDiff struct {
	Change ChangeType
	APath  string
	BPath  string

	change *object.Change
}

// ReadBlobs reads the raw content of both sides of the diff. A side that is
// not a regular file (added, deleted, submodule) reads as nil.
func (d FileDiff) ReadBlobs() (a, b []byte, err error) {
	if d.change == nil {
		return nil, nil, nil
	}

	from, to, err := d.change.Files()
	if err != nil {
		return nil, nil, cerr.Wrapf(err, "resolve blobs for %s", d.APath)
	}

	if a, err = readFile(from); err != nil {
		return nil, nil, cerr.Wrapf(err, "read %s", d.APath)
	}
	if b, err = readFile(to); err != nil {
		return nil, nil, cerr.Wrapf(err, "read %s", d.BPath)
	}
	return a, b, nil
}

func readFile(f *object.File) ([]byte, error) {
	if f == nil {
		return nil, nil
	}
	r, err := f.Reader()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// DiffParent computes the full diff between the sole parent of c and c, with
// rename detection. Diff entries come back in the order go-git reports them.
func DiffParent(ctx context.Context, c *object.Commit) ([]FileDiff, error) {
	if !IsSimple(c) {
		return nil, cerr.Newf("commit %s has %d parents", c.Hash, c.NumParents())
	}

	parent, err := c.Parent(0)
	if err != nil {
		return nil, cerr.Wrapf(err, "load parent of %s", c.Hash)
	}

	parentTree, err := parent.Tree()
	if err != nil {
		return nil, cerr.Wrapf(err, "load tree of %s", parent.Hash)
	}
	tree, err := c.Tree()
	if err != nil {
		return nil, cerr.Wrapf(err, "load tree of %s", c.Hash)
	}

	changes, err := object.DiffTreeWithOptions(ctx, parentTree, tree, object.DefaultDiffTreeOptions)
	if err != nil {
		return nil, cerr.Wrapf(err, "diff %s..%s", parent.Hash, c.Hash)
	}

	diffs := make([]FileDiff, 0, len(changes))
	for _, change := range changes {
		d, err := newFileDiff(change)
		if err != nil {
			return nil, cerr.Wrapf(err, "classify change in %s", c.Hash)
		}
		diffs = append(diffs, d)
	}
	return diffs, nil
}

func newFileDiff(change *object.Change) (FileDiff, error) {
	action, err := change.Action()
	if err != nil {
		return FileDiff{}, err
	}

	d := FileDiff{APath: change.From.Name, BPath: change.To.Name, change: change}
	switch action {
	case merkletrie.Insert:
		d.Change = Added
		d.APath = change.To.Name
	case merkletrie.Delete:
		d.Change = Deleted
		d.BPath = change.From.Name
	case merkletrie.Modify:
		switch {
		case change.From.Name != change.To.Name:
			d.Change = Renamed
		case entryKind(change.From.TreeEntry.Mode) != entryKind(change.To.TreeEntry.Mode):
			d.Change = TypeChanged
		default:
			d.Change = Modified
		}
	}
	return d, nil
}

type kind int

const (
	kindOther kind = iota
	kindFile
	kindSymlink
	kindSubmodule
)

// entryKind groups tree entry modes the way git does when it decides between
// a modification and a type change. The executable bit does not change kind.
func entryKind(m filemode.FileMode) kind {
	switch m {
	case filemode.Regular, filemode.Deprecated, filemode.Executable:
		return kindFile
	case filemode.Symlink:
		return kindSymlink
	case filemode.Submodule:
		return kindSubmodule
	default:
		return kindOther
	}
}
