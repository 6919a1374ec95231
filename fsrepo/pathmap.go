// Package fsrepo is an in-memory repository backend: immutable
// per-revision tree snapshots with structural sharing, standing in for
// spec.md's out-of-scope FSFS/BDB storage engines. It implements just
// enough of a "repository session" (OpenTransaction/ReadTree/Commit) for
// the update/commit wire protocol to drive against.
package fsrepo

import (
	"github.com/go-svn/svncore/delta"
)

// node is one immutable tree node. Nodes are never mutated after they
// are reachable from a committed PathMap; every update clones the nodes
// on the path from the root to the change and reuses every untouched
// sibling subtree by pointer, the copy-on-write discipline a
// History/PathMap pair is built around.
type node struct {
	kind     delta.NodeKind
	props    map[string]string
	data     []byte           // KindFile
	children map[string]*node // KindDirectory
	shared   bool             // true once reachable from more than one PathMap; a defensive marker, since nodes are never mutated in place regardless

	// lastModifiedRev is the revision in which this node's content or
	// properties were last set, the simplified stand-in this module uses
	// for node-id identity comparison in out-of-dateness detection (see
	// DESIGN.md's Open Question decision).
	lastModifiedRev int64
}

func newDirNode() *node {
	return &node{kind: delta.KindDirectory, props: map[string]string{}, children: map[string]*node{}}
}

func newFileNode(data []byte) *node {
	return &node{kind: delta.KindFile, props: map[string]string{}, data: append([]byte(nil), data...)}
}

// clone returns a shallow copy of n: its own props map is copied, its
// children map is copied (so entries can be added/removed/replaced),
// but each child node itself is reused by pointer and marked shared.
func (n *node) clone() *node {
	c := &node{kind: n.kind, props: make(map[string]string, len(n.props)), lastModifiedRev: n.lastModifiedRev}
	for k, v := range n.props {
		c.props[k] = v
	}
	switch n.kind {
	case delta.KindDirectory:
		c.children = make(map[string]*node, len(n.children))
		for name, child := range n.children {
			child.shared = true
			c.children[name] = child
		}
	case delta.KindFile:
		c.data = append([]byte(nil), n.data...)
	}
	return c
}

// PathMap is an immutable snapshot of one revision's tree. The zero
// value is not usable; use NewPathMap.
type PathMap struct {
	root *node
}

// NewPathMap returns an empty tree containing only the root directory.
func NewPathMap() *PathMap {
	return &PathMap{root: newDirNode()}
}

func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	var parts []string
	start := 0
	for i := 0; i <= len(path); i++ {
		if i == len(path) || path[i] == '/' {
			if i > start {
				parts = append(parts, path[start:i])
			}
			start = i + 1
		}
	}
	return parts
}

// Get looks up path, returning its kind, properties, and file data (nil
// for directories). ok is false if no node exists at path.
func (m *PathMap) Get(path string) (kind delta.NodeKind, props map[string]string, data []byte, ok bool) {
	n := m.lookup(path)
	if n == nil {
		return delta.KindNone, nil, nil, false
	}
	return n.kind, n.props, n.data, true
}

func (m *PathMap) lookup(path string) *node {
	cur := m.root
	for _, part := range splitPath(path) {
		if cur.kind != delta.KindDirectory {
			return nil
		}
		next, ok := cur.children[part]
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

// Children lists the immediate entries of the directory at path, in no
// particular order.
func (m *PathMap) Children(path string) ([]string, bool) {
	n := m.lookup(path)
	if n == nil || n.kind != delta.KindDirectory {
		return nil, false
	}
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	return names, true
}

// withReplacedPath returns a new PathMap identical to m except that the
// node at path has been replaced by replacement (nil meaning "removed"),
// cloning every ancestor directory along the way and leaving every
// sibling subtree shared with m.
func (m *PathMap) withReplacedPath(path string, replacement *node) *PathMap {
	parts := splitPath(path)
	if len(parts) == 0 {
		if replacement == nil {
			return NewPathMap()
		}
		return &PathMap{root: replacement}
	}
	newRoot := m.root.clone()
	cur := newRoot
	for i, part := range parts {
		last := i == len(parts)-1
		if last {
			if replacement == nil {
				delete(cur.children, part)
			} else {
				cur.children[part] = replacement
			}
			break
		}
		child, ok := cur.children[part]
		if !ok {
			child = newDirNode()
		} else {
			child = child.clone()
		}
		cur.children[part] = child
		cur = child
	}
	return &PathMap{root: newRoot}
}

// SetFile returns a new PathMap with a file node at path holding data
// and props, stamped as last modified in rev.
func (m *PathMap) SetFile(rev int64, path string, data []byte, props map[string]string) *PathMap {
	n := newFileNode(data)
	n.lastModifiedRev = rev
	for k, v := range props {
		n.props[k] = v
	}
	return m.withReplacedPath(path, n)
}

// SetDirectory returns a new PathMap with an (empty, if newly created)
// directory node at path holding props, stamped as last modified in
// rev; if a directory already exists at path its children are
// preserved.
func (m *PathMap) SetDirectory(rev int64, path string, props map[string]string) *PathMap {
	existing := m.lookup(path)
	var n *node
	if existing != nil && existing.kind == delta.KindDirectory {
		n = existing.clone()
	} else {
		n = newDirNode()
	}
	n.lastModifiedRev = rev
	for k, v := range props {
		n.props[k] = v
	}
	return m.withReplacedPath(path, n)
}

// Remove returns a new PathMap with path (and everything under it, if a
// directory) deleted.
func (m *PathMap) Remove(path string) *PathMap {
	return m.withReplacedPath(path, nil)
}

// CopyFrom returns a new PathMap with the subtree at srcPath in src
// attached at destPath in m, by reference: the copied subtree's nodes
// are marked shared and not cloned until something under destPath is
// subsequently modified. This is the operation spec.md's add_directory/
// add_file copy_from and the observed History.apply "stash" pattern
// both reduce to.
func (m *PathMap) CopyFrom(destPath string, src *PathMap, srcPath string) (*PathMap, bool) {
	n := src.lookup(srcPath)
	if n == nil {
		return m, false
	}
	n.shared = true
	return m.withReplacedPath(destPath, n), true
}

// SetProp returns a new PathMap with a single property changed (or
// removed, if hasValue is false) on the node at path, stamped as last
// modified in rev.
func (m *PathMap) SetProp(rev int64, path, name string, value []byte, hasValue bool) (*PathMap, bool) {
	existing := m.lookup(path)
	if existing == nil {
		return m, false
	}
	n := existing.clone()
	n.lastModifiedRev = rev
	if hasValue {
		n.props[name] = string(value)
	} else {
		delete(n.props, name)
	}
	return m.withReplacedPath(path, n), true
}

// LastModifiedRev returns the revision in which the node at path was
// last created or modified, and whether a node exists there at all.
func (m *PathMap) LastModifiedRev(path string) (int64, bool) {
	n := m.lookup(path)
	if n == nil {
		return 0, false
	}
	return n.lastModifiedRev, true
}
