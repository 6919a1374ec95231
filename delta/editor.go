// Package delta implements the tree-delta editor vocabulary of spec.md §3
// and §4.3 (component C3): the structured operation set by which a drive
// describes a transformation of one versioned tree into another, a
// no-op DefaultEditor for overriding a subset, a baton-lifetime validator,
// and editor composition.
package delta

import "github.com/go-svn/svncore/svndiff"

// NodeKind is spec.md §3's node-kind enumeration.
type NodeKind int

const (
	KindFile NodeKind = iota
	KindDirectory
	KindNone    // explicit "does not exist"
	KindUnknown
)

// CopyFrom names the source of an add_directory/add_file copy.
type CopyFrom struct {
	Path string // repository-relative (see DESIGN.md's Open Question decision)
	Rev  int64
}

// WindowHandler is the per-call sink an ApplyTextDelta handler returns;
// feeding it a nil window signals the end of this file's delta (spec.md
// §3's apply_textdelta / §4.2).
type WindowHandler func(w *svndiff.Window) error

// Editor is the full operation vocabulary of spec.md §3/§4.3. Batons are
// opaque values scoped to one drive, exactly as the original's void*
// batons are: concrete editors choose their own baton representation
// (commonly a pointer to a small state struct) and the driver only ever
// passes a baton back to the editor that produced it.
type Editor interface {
	SetTargetRevision(rev int64) error

	OpenRoot(baseRev int64) (root interface{}, err error)

	DeleteEntry(path string, rev int64, parent interface{}) error

	AddDirectory(path string, parent interface{}, copyFrom *CopyFrom) (dir interface{}, err error)
	OpenDirectory(path string, parent interface{}, baseRev int64) (dir interface{}, err error)
	ChangeDirProp(dir interface{}, name string, value []byte, hasValue bool) error
	CloseDirectory(dir interface{}) error
	AbsentDirectory(path string, parent interface{}) error

	AddFile(path string, parent interface{}, copyFrom *CopyFrom) (file interface{}, err error)
	OpenFile(path string, parent interface{}, baseRev int64) (file interface{}, err error)
	ApplyTextDelta(file interface{}, baseChecksum string) (WindowHandler, error)
	ChangeFileProp(file interface{}, name string, value []byte, hasValue bool) error
	CloseFile(file interface{}, resultChecksum string) error
	AbsentFile(path string, parent interface{}) error

	CloseEdit() error
	AbortEdit() error
}

// DefaultEditor implements every Editor method as a no-op returning
// success, so a real editor can embed it and override only the handful of
// operations it cares about (spec.md §4.3's "default editor").
type DefaultEditor struct{}

// rootSentinel is the baton DefaultEditor hands back from OpenRoot; it
// carries no state of its own, distinguishing it from a nil interface
// (which would be ambiguous with "no baton").
type rootSentinel struct{}

func (DefaultEditor) SetTargetRevision(rev int64) error { return nil }

func (DefaultEditor) OpenRoot(baseRev int64) (interface{}, error) { return &rootSentinel{}, nil }

func (DefaultEditor) DeleteEntry(path string, rev int64, parent interface{}) error { return nil }

func (DefaultEditor) AddDirectory(path string, parent interface{}, copyFrom *CopyFrom) (interface{}, error) {
	return &rootSentinel{}, nil
}

func (DefaultEditor) OpenDirectory(path string, parent interface{}, baseRev int64) (interface{}, error) {
	return &rootSentinel{}, nil
}

func (DefaultEditor) ChangeDirProp(dir interface{}, name string, value []byte, hasValue bool) error {
	return nil
}

func (DefaultEditor) CloseDirectory(dir interface{}) error { return nil }

func (DefaultEditor) AbsentDirectory(path string, parent interface{}) error { return nil }

func (DefaultEditor) AddFile(path string, parent interface{}, copyFrom *CopyFrom) (interface{}, error) {
	return &rootSentinel{}, nil
}

func (DefaultEditor) OpenFile(path string, parent interface{}, baseRev int64) (interface{}, error) {
	return &rootSentinel{}, nil
}

func (DefaultEditor) ApplyTextDelta(file interface{}, baseChecksum string) (WindowHandler, error) {
	return func(w *svndiff.Window) error { return nil }, nil
}

func (DefaultEditor) ChangeFileProp(file interface{}, name string, value []byte, hasValue bool) error {
	return nil
}

func (DefaultEditor) CloseFile(file interface{}, resultChecksum string) error { return nil }

func (DefaultEditor) AbsentFile(path string, parent interface{}) error { return nil }

func (DefaultEditor) CloseEdit() error { return nil }

func (DefaultEditor) AbortEdit() error { return nil }
