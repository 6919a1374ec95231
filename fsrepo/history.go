package fsrepo

import "github.com/go-svn/svncore/internal/svnlog"

// History manages the sequence of immutable PathMap snapshots that make
// up a repository's committed revisions, along with each revision's
// revprops, mirroring the usage contract svnread.go's History type
// observes over its PathMaps (one visibility snapshot per revision,
// built by applying one revision's worth of node actions to the
// previous snapshot).
type History struct {
	trees    []*PathMap
	revprops []map[string]string
}

// NewHistory returns a History containing just revision 0: an empty
// tree with no revprops.
func NewHistory() *History {
	return &History{trees: []*PathMap{NewPathMap()}, revprops: []map[string]string{{}}}
}

// Head returns the highest committed revision number.
func (h *History) Head() int64 { return int64(len(h.trees) - 1) }

// Tree returns the tree snapshot as of rev.
func (h *History) Tree(rev int64) (*PathMap, error) {
	if rev < 0 || int(rev) >= len(h.trees) {
		return nil, svnlog.Errorf(svnlog.CodeNotFound, "no such revision %d", rev)
	}
	return h.trees[rev], nil
}

// RevProps returns the revision properties of rev (including svn:log,
// svn:author, svn:date).
func (h *History) RevProps(rev int64) (map[string]string, error) {
	if rev < 0 || int(rev) >= len(h.revprops) {
		return nil, svnlog.Errorf(svnlog.CodeNotFound, "no such revision %d", rev)
	}
	return h.revprops[rev], nil
}

// Commit appends tree as a new revision with the given revprops and
// returns the new revision number.
func (h *History) Commit(tree *PathMap, revprops map[string]string) int64 {
	h.trees = append(h.trees, tree)
	h.revprops = append(h.revprops, revprops)
	return h.Head()
}

// DatedRev returns the largest revision whose svn:date revprop is ≤
// cutoff, per spec.md §4.5.6's dated-rev-report. Dates are compared as
// strings, not parsed; revisions without an svn:date are skipped.
func (h *History) DatedRev(cutoff string) int64 {
	best := int64(0)
	for rev := int64(0); rev <= h.Head(); rev++ {
		d, ok := h.revprops[rev]["svn:date"]
		if !ok {
			continue
		}
		if d <= cutoff {
			best = rev
		}
	}
	return best
}
