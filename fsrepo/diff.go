package fsrepo

import "github.com/go-svn/svncore/delta"

// DiffTree drives editor through the changes between oldTree and newTree
// rooted at anchorPath, the general form of the "server computes the tree
// delta" update-report response (spec.md §4.5.2) that ReadTree's
// from-empty walk is a degenerate case of. Unchanged subtrees are skipped
// entirely rather than walked, because PathMap's copy-on-write discipline
// means an unchanged subtree is still the very same *node value oldTree
// and newTree share (see pathmap.go's withReplacedPath): comparing the two
// lookups by identity is both the cheapest and the correct equality test.
//
// oldTree may be nil, meaning "anchorPath did not exist before" (every
// entry under it is reported as added); this is how DiffTree also serves a
// reporter's start-empty paths and switch/link-path targets.
func DiffTree(oldTree, newTree *PathMap, anchorPath string, editor delta.Editor, onChecked func(path, href string)) error {
	root, err := editor.OpenRoot(0)
	if err != nil {
		return err
	}
	var oldRoot, newRoot *node
	if oldTree != nil {
		oldRoot = oldTree.lookup(anchorPath)
	}
	newRoot = newTree.lookup(anchorPath)
	if newRoot == nil {
		return editor.AbortEdit()
	}
	if err := diffDirBody(oldRoot, newRoot, "", root, editor, onChecked); err != nil {
		return err
	}
	if err := editor.CloseDirectory(root); err != nil {
		return err
	}
	return editor.CloseEdit()
}

func diffDirBody(oldDir, newDir *node, relPath string, parent interface{}, editor delta.Editor, onChecked func(string, string)) error {
	var oldChildren map[string]*node
	if oldDir != nil {
		oldChildren = oldDir.children
	}
	for name, newChild := range newDir.children {
		childRel := joinFSPath(relPath, name)
		oldChild := oldChildren[name]
		if oldChild == newChild {
			continue // structurally shared: nothing changed under this subtree
		}
		if oldChild == nil || oldChild.kind != newChild.kind {
			if oldChild != nil {
				if err := editor.DeleteEntry(childRel, 0, parent); err != nil {
					return err
				}
			}
			if err := addNodeRecursive(newChild, childRel, parent, editor, onChecked); err != nil {
				return err
			}
			continue
		}
		switch newChild.kind {
		case delta.KindDirectory:
			dir, err := editor.OpenDirectory(childRel, parent, oldChild.lastModifiedRev)
			if err != nil {
				return err
			}
			if err := applyPropDiff(oldChild.props, newChild.props, func(name string, value []byte, has bool) error {
				return editor.ChangeDirProp(dir, name, value, has)
			}); err != nil {
				return err
			}
			if onChecked != nil {
				onChecked(childRel, "")
			}
			if err := diffDirBody(oldChild, newChild, childRel, dir, editor, onChecked); err != nil {
				return err
			}
			if err := editor.CloseDirectory(dir); err != nil {
				return err
			}
		case delta.KindFile:
			file, err := editor.OpenFile(childRel, parent, oldChild.lastModifiedRev)
			if err != nil {
				return err
			}
			if err := applyPropDiff(oldChild.props, newChild.props, func(name string, value []byte, has bool) error {
				return editor.ChangeFileProp(file, name, value, has)
			}); err != nil {
				return err
			}
			if string(oldChild.data) != string(newChild.data) {
				handler, err := editor.ApplyTextDelta(file, "")
				if err != nil {
					return err
				}
				if len(newChild.data) > 0 {
					if err := handler(fullLiteralWindow(newChild.data)); err != nil {
						return err
					}
				}
				if err := handler(nil); err != nil {
					return err
				}
			}
			if err := editor.CloseFile(file, ""); err != nil {
				return err
			}
			if onChecked != nil {
				onChecked(childRel, "")
			}
		}
	}
	for name := range oldChildren {
		if _, ok := newDir.children[name]; !ok {
			if err := editor.DeleteEntry(joinFSPath(relPath, name), 0, parent); err != nil {
				return err
			}
		}
	}
	return nil
}

func addNodeRecursive(n *node, relPath string, parent interface{}, editor delta.Editor, onChecked func(string, string)) error {
	switch n.kind {
	case delta.KindDirectory:
		dir, err := editor.AddDirectory(relPath, parent, nil)
		if err != nil {
			return err
		}
		for k, v := range n.props {
			if err := editor.ChangeDirProp(dir, k, []byte(v), true); err != nil {
				return err
			}
		}
		if onChecked != nil {
			onChecked(relPath, "")
		}
		for name, child := range n.children {
			if err := addNodeRecursive(child, joinFSPath(relPath, name), dir, editor, onChecked); err != nil {
				return err
			}
		}
		return editor.CloseDirectory(dir)
	case delta.KindFile:
		file, err := editor.AddFile(relPath, parent, nil)
		if err != nil {
			return err
		}
		for k, v := range n.props {
			if err := editor.ChangeFileProp(file, k, []byte(v), true); err != nil {
				return err
			}
		}
		handler, err := editor.ApplyTextDelta(file, "")
		if err != nil {
			return err
		}
		if len(n.data) > 0 {
			if err := handler(fullLiteralWindow(n.data)); err != nil {
				return err
			}
		}
		if err := handler(nil); err != nil {
			return err
		}
		if onChecked != nil {
			onChecked(relPath, "")
		}
		return editor.CloseFile(file, "")
	}
	return nil
}

func applyPropDiff(oldProps, newProps map[string]string, apply func(name string, value []byte, has bool) error) error {
	for k, v := range newProps {
		if ov, ok := oldProps[k]; !ok || ov != v {
			if err := apply(k, []byte(v), true); err != nil {
				return err
			}
		}
	}
	for k := range oldProps {
		if _, ok := newProps[k]; !ok {
			if err := apply(k, nil, false); err != nil {
				return err
			}
		}
	}
	return nil
}
