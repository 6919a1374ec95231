// Package report implements the client-side reporter of spec.md §4.4
// (component C4): the inverse of the tree-delta editor, by which a
// client describes the mixed-revision state of its working copy so the
// server can compute the delta that brings it to a target revision.
package report

import "io"

// Reporter is the vocabulary a client drives to describe its working
// copy. The first SetPath call reported must be for the empty path (the
// operation's anchor) and gives the base revision; subsequent calls
// describe overrides for children. Once FinishReport returns
// successfully the Reporter is consumed and must not be driven again.
type Reporter interface {
	// SetPath asserts that the subtree at path (anchor-relative) is
	// currently at rev. If startEmpty is true the server treats its
	// children as absent unless explicitly reported. lockToken is the
	// empty string when the client holds no lock on path.
	SetPath(path string, rev int64, startEmpty bool, lockToken string) error

	// LinkPath is SetPath for a subtree that is switched: its contents
	// correspond to url@rev in the repository rather than to its
	// anchor-relative path (spec.md §8's switch scenario).
	LinkPath(path, url string, rev int64, startEmpty bool, lockToken string) error

	// DeletePath reports that the client is entirely missing path; the
	// server sends it as an add or omits it as already-deleted.
	DeletePath(path string) error

	// FinishReport emits the accumulated report to the server and
	// returns the raw update-report response body for a caller (the
	// wireproto/client update driver) to parse and apply to an editor.
	FinishReport() (io.ReadCloser, error)

	// AbortReport cancels the report; no further calls are valid.
	AbortReport() error
}
