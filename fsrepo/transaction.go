package fsrepo

import (
	"github.com/go-svn/svncore/delta"
	"github.com/go-svn/svncore/internal/svnlog"
)

// Transaction is a mutable working tree rooted at the repository's HEAD
// at the time it was opened, the same model svn's own filesystem
// transactions use: a txn is always forked from youngest, and a
// committer's declared base revision for each path is used only for the
// out-of-dateness comparison of spec.md §4.5.4, not as the txn's actual
// root.
type Transaction struct {
	repo    *Repo
	baseRev int64
	working *PathMap
}

// CheckUpToDate compares the path's last-modified revision in the
// repository's current HEAD against baseRev, the revision the client
// last saw for this path (spec.md §4.5.4's node-identity check,
// simplified here to a last-modified-revision comparison -- see
// DESIGN.md's Open Question decision for why).
func (t *Transaction) CheckUpToDate(path string, baseRev int64) error {
	head, err := t.repo.history.Tree(t.repo.history.Head())
	if err != nil {
		return err
	}
	lastMod, ok := head.LastModifiedRev(path)
	if !ok {
		return nil
	}
	if lastMod > baseRev {
		return svnlog.Errorf(svnlog.CodeOutOfDate, "'%s' is out of date: last changed in r%d, client has r%d", path, lastMod, baseRev)
	}
	return nil
}

func (t *Transaction) nextRev() int64 { return t.repo.history.Head() + 1 }

// BaseRev returns the revision this transaction was forked from.
func (t *Transaction) BaseRev() int64 { return t.baseRev }

// MakeDirectory creates (or no-ops over an existing) directory at path.
func (t *Transaction) MakeDirectory(path string) error {
	t.working = t.working.SetDirectory(t.nextRev(), path, nil)
	return nil
}

// CopyDirectory attaches the directory subtree at srcPath@srcRev to
// destPath (spec.md §4.5.3's add_directory with copy_from).
func (t *Transaction) CopyDirectory(destPath string, srcRev int64, srcPath string) error {
	srcTree, err := t.repo.history.Tree(srcRev)
	if err != nil {
		return err
	}
	nt, ok := t.working.CopyFrom(destPath, srcTree, srcPath)
	if !ok {
		return svnlog.Errorf(svnlog.CodeNotFound, "copy source '%s'@%d does not exist", srcPath, srcRev)
	}
	t.working = nt
	return nil
}

// CopyFile is CopyDirectory's file-node counterpart.
func (t *Transaction) CopyFile(destPath string, srcRev int64, srcPath string) error {
	return t.CopyDirectory(destPath, srcRev, srcPath)
}

// Delete removes path after checking it is up to date against baseRev.
func (t *Transaction) Delete(path string, baseRev int64) error {
	if err := t.CheckUpToDate(path, baseRev); err != nil {
		return err
	}
	t.working = t.working.Remove(path)
	return nil
}

// PutFile replaces (or creates) the file at path with data.
func (t *Transaction) PutFile(path string, data []byte) error {
	t.working = t.working.SetFile(t.nextRev(), path, data, nil)
	return nil
}

// SetProp changes one property on the node at path.
func (t *Transaction) SetProp(path, name string, value []byte, hasValue bool) error {
	nt, ok := t.working.SetProp(t.nextRev(), path, name, value, hasValue)
	if !ok {
		return svnlog.Errorf(svnlog.CodeNotFound, "no node at '%s'", path)
	}
	t.working = nt
	return nil
}

// Get reads a node of the working tree (the transaction's in-progress
// state, including not-yet-committed changes).
func (t *Transaction) Get(path string) (kind delta.NodeKind, props map[string]string, data []byte, ok bool) {
	return t.working.Get(path)
}

// Commit finalizes the transaction as a new revision and returns its
// number. The caller (wireproto/server, which serializes commits per
// repository) must ensure no concurrent Commit races with this one.
func (t *Transaction) Commit(revprops map[string]string) int64 {
	return t.repo.history.Commit(t.working, revprops)
}
