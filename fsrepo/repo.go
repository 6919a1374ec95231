package fsrepo

import (
	"sync"

	"github.com/go-svn/svncore/delta"
	"github.com/go-svn/svncore/svndiff"
)

// Repo is a repository session: a History plus a mutex serializing
// transaction commits, the minimal surface spec.md's commit/update
// engine needs (OpenTransaction, ReadTree, Commit happens through the
// returned Transaction).
type Repo struct {
	mu      sync.Mutex
	history *History
}

// NewRepo returns an empty repository at revision 0.
func NewRepo() *Repo {
	return &Repo{history: NewHistory()}
}

// HeadRevision returns the current youngest revision.
func (r *Repo) HeadRevision() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history.Head()
}

// OpenTransaction forks a new mutable transaction from the current
// HEAD. baseRev is recorded only for the caller's own out-of-dateness
// bookkeeping.
func (r *Repo) OpenTransaction(baseRev int64) (*Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tree, err := r.history.Tree(r.history.Head())
	if err != nil {
		return nil, err
	}
	return &Transaction{repo: r, baseRev: baseRev, working: tree}, nil
}

// CommitTransaction finalizes txn under the repo's commit lock,
// guaranteeing commits are serialized (spec.md §5's single-threaded
// cooperative model, applied server-side to the one resource that must
// not interleave: revision creation).
func (r *Repo) CommitTransaction(txn *Transaction, revprops map[string]string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return txn.Commit(revprops)
}

// TreeAt returns the immutable tree snapshot as of rev, for callers
// (wireproto/server's update-report handler) that need to diff two
// revisions via DiffTree rather than read one from empty via ReadTree.
func (r *Repo) TreeAt(rev int64) (*PathMap, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history.Tree(rev)
}

// Get reads a node as of rev, for read-only lookups outside a
// transaction (server-side GET/fetch-file).
func (r *Repo) Get(rev int64, path string) (kind delta.NodeKind, props map[string]string, data []byte, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tree, err := r.history.Tree(rev)
	if err != nil {
		return 0, nil, nil, false
	}
	return tree.Get(path)
}

// RevProps returns rev's revision properties.
func (r *Repo) RevProps(rev int64) (map[string]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history.RevProps(rev)
}

// DatedRev implements spec.md §4.5.6's dated-rev-report.
func (r *Repo) DatedRev(cutoffRFC3339 string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history.DatedRev(cutoffRFC3339)
}

// ReadTree drives editor through the full content of rev's tree rooted
// at anchorPath, as if updating from an empty working copy: every
// directory is opened with add_directory/OpenRoot semantics matching
// spec.md's "server computes the tree delta" data flow. The update-report
// handler does not call it; it uses DiffTree (diff.go) with a nil old
// tree for a from-empty update.
func (r *Repo) ReadTree(rev int64, anchorPath string, editor delta.Editor, onChecked func(path, href string)) error {
	r.mu.Lock()
	tree, err := r.history.Tree(rev)
	r.mu.Unlock()
	if err != nil {
		return err
	}
	root, err := editor.OpenRoot(0)
	if err != nil {
		return err
	}
	if err := addTreeRecursive(tree, anchorPath, "", root, editor, onChecked); err != nil {
		return err
	}
	if err := editor.CloseDirectory(root); err != nil {
		return err
	}
	return editor.CloseEdit()
}

func addTreeRecursive(tree *PathMap, fullPath, relPath string, parent interface{}, editor delta.Editor, onChecked func(string, string)) error {
	names, isDir := tree.Children(fullPath)
	if !isDir {
		return nil
	}
	for _, name := range names {
		childFull := joinFSPath(fullPath, name)
		childRel := joinFSPath(relPath, name)
		ck, cprops, cdata, _ := tree.Get(childFull)
		switch ck {
		case delta.KindDirectory:
			dir, err := editor.AddDirectory(childRel, parent, nil)
			if err != nil {
				return err
			}
			for k, v := range cprops {
				if err := editor.ChangeDirProp(dir, k, []byte(v), true); err != nil {
					return err
				}
			}
			if onChecked != nil {
				onChecked(childRel, "")
			}
			if err := addTreeRecursive(tree, childFull, childRel, dir, editor, onChecked); err != nil {
				return err
			}
			if err := editor.CloseDirectory(dir); err != nil {
				return err
			}
		case delta.KindFile:
			file, err := editor.AddFile(childRel, parent, nil)
			if err != nil {
				return err
			}
			for k, v := range cprops {
				if err := editor.ChangeFileProp(file, k, []byte(v), true); err != nil {
					return err
				}
			}
			handler, err := editor.ApplyTextDelta(file, "")
			if err != nil {
				return err
			}
			if len(cdata) > 0 {
				if err := handler(fullLiteralWindow(cdata)); err != nil {
					return err
				}
			}
			if err := handler(nil); err != nil {
				return err
			}
			if err := editor.CloseFile(file, ""); err != nil {
				return err
			}
			if onChecked != nil {
				onChecked(childRel, "")
			}
		}
	}
	return nil
}

func joinFSPath(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

func fullLiteralWindow(data []byte) *svndiff.Window {
	return &svndiff.Window{
		TargetViewLen: uint64(len(data)),
		Instructions:  []svndiff.Instruction{{Kind: svndiff.OpNew, Offset: 0, Length: uint64(len(data))}},
		NewData:       data,
	}
}
