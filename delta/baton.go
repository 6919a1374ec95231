package delta

import (
	"fmt"

	"github.com/emirpasic/gods/sets/linkedhashset"
	"github.com/go-svn/svncore/internal/svnlog"
)

// batonKind distinguishes a tracked baton's role, the "tagged sum" the
// Design Notes call for in place of the original's untyped void* batons.
type batonKind int

const (
	batonRoot batonKind = iota
	batonDir
	batonFile
)

type batonState struct {
	kind   batonKind
	path   string
	parent interface{} // nil for the root
	closed bool
}

// BatonTracker wraps an Editor and enforces the baton-lifetime invariants
// of spec.md §3/§4.3: a baton is used only between its open and its close,
// every non-root baton's parent was open when the baton was produced, no
// two files are open concurrently under the same parent, and every open
// baton is closed exactly once before CloseEdit. This is the "recording
// wrapper editor" of spec.md §8 property 3. Only the tests install it;
// fsrepo and the wire client/server drivers use their editors without
// this wrapper.
type BatonTracker struct {
	under Editor

	states map[interface{}]*batonState
	// openChildDirs tracks, per parent baton, the set of directory batons
	// currently open under it -- directories may legitimately overlap, so
	// this is bookkeeping rather than a single-slot check.
	openChildDirs map[interface{}]*linkedhashset.Set
	// openFile tracks at most one open file baton per parent, per spec.md
	// §3's "open files may not overlap within the same parent".
	openFile map[interface{}]interface{}

	rootOpened bool
	rootBaton  interface{}
	terminated bool
}

// NewBatonTracker wraps under with lifetime validation.
func NewBatonTracker(under Editor) *BatonTracker {
	return &BatonTracker{
		under:         under,
		states:        make(map[interface{}]*batonState),
		openChildDirs: make(map[interface{}]*linkedhashset.Set),
		openFile:      make(map[interface{}]interface{}),
	}
}

func (t *BatonTracker) violate(format string, args ...interface{}) error {
	return svnlog.Errorf(svnlog.CodeProtocol, "baton lifetime violation: "+format, args...)
}

func (t *BatonTracker) requireOpenDir(baton interface{}, who string) error {
	if baton == nil {
		return t.violate("%s: nil parent baton", who)
	}
	st, ok := t.states[baton]
	if !ok {
		return t.violate("%s: unknown baton", who)
	}
	if st.kind != batonRoot && st.kind != batonDir {
		return t.violate("%s: baton is not a directory", who)
	}
	if st.closed {
		return t.violate("%s: baton already closed", who)
	}
	return nil
}

func (t *BatonTracker) SetTargetRevision(rev int64) error {
	if t.rootOpened {
		return t.violate("SetTargetRevision called after OpenRoot")
	}
	return t.under.SetTargetRevision(rev)
}

func (t *BatonTracker) OpenRoot(baseRev int64) (interface{}, error) {
	if t.rootOpened {
		return nil, t.violate("OpenRoot called twice")
	}
	b, err := t.under.OpenRoot(baseRev)
	if err != nil {
		return nil, err
	}
	t.rootOpened = true
	t.rootBaton = b
	t.states[b] = &batonState{kind: batonRoot, path: ""}
	t.openChildDirs[b] = linkedhashset.New()
	return b, nil
}

func (t *BatonTracker) DeleteEntry(path string, rev int64, parent interface{}) error {
	if err := t.requireOpenDir(parent, "DeleteEntry"); err != nil {
		return err
	}
	return t.under.DeleteEntry(path, rev, parent)
}

func (t *BatonTracker) addChildDir(b interface{}, path string, parent interface{}) {
	t.states[b] = &batonState{kind: batonDir, path: path, parent: parent}
	t.openChildDirs[b] = linkedhashset.New()
	t.openChildDirs[parent].Add(b)
}

func (t *BatonTracker) AddDirectory(path string, parent interface{}, copyFrom *CopyFrom) (interface{}, error) {
	if err := t.requireOpenDir(parent, "AddDirectory"); err != nil {
		return nil, err
	}
	b, err := t.under.AddDirectory(path, parent, copyFrom)
	if err != nil {
		return nil, err
	}
	t.addChildDir(b, path, parent)
	return b, nil
}

func (t *BatonTracker) OpenDirectory(path string, parent interface{}, baseRev int64) (interface{}, error) {
	if err := t.requireOpenDir(parent, "OpenDirectory"); err != nil {
		return nil, err
	}
	b, err := t.under.OpenDirectory(path, parent, baseRev)
	if err != nil {
		return nil, err
	}
	t.addChildDir(b, path, parent)
	return b, nil
}

func (t *BatonTracker) ChangeDirProp(dir interface{}, name string, value []byte, hasValue bool) error {
	if err := t.requireOpenDir(dir, "ChangeDirProp"); err != nil {
		return err
	}
	return t.under.ChangeDirProp(dir, name, value, hasValue)
}

func (t *BatonTracker) CloseDirectory(dir interface{}) error {
	if err := t.requireOpenDir(dir, "CloseDirectory"); err != nil {
		return err
	}
	if f, ok := t.openFile[dir]; ok {
		return t.violate("CloseDirectory %v while file %v is still open", dir, f)
	}
	if children, ok := t.openChildDirs[dir]; ok && !children.Empty() {
		return t.violate("CloseDirectory %v with %d child director(ies) still open", dir, children.Size())
	}
	if err := t.under.CloseDirectory(dir); err != nil {
		return err
	}
	st := t.states[dir]
	st.closed = true
	if st.parent != nil {
		t.openChildDirs[st.parent].Remove(dir)
	}
	return nil
}

func (t *BatonTracker) AbsentDirectory(path string, parent interface{}) error {
	if err := t.requireOpenDir(parent, "AbsentDirectory"); err != nil {
		return err
	}
	return t.under.AbsentDirectory(path, parent)
}

func (t *BatonTracker) AddFile(path string, parent interface{}, copyFrom *CopyFrom) (interface{}, error) {
	if err := t.requireOpenDir(parent, "AddFile"); err != nil {
		return nil, err
	}
	if existing, busy := t.openFile[parent]; busy {
		return nil, t.violate("AddFile %s: file %v already open under this parent", path, existing)
	}
	b, err := t.under.AddFile(path, parent, copyFrom)
	if err != nil {
		return nil, err
	}
	t.states[b] = &batonState{kind: batonFile, path: path, parent: parent}
	t.openFile[parent] = b
	return b, nil
}

func (t *BatonTracker) OpenFile(path string, parent interface{}, baseRev int64) (interface{}, error) {
	if err := t.requireOpenDir(parent, "OpenFile"); err != nil {
		return nil, err
	}
	if existing, busy := t.openFile[parent]; busy {
		return nil, t.violate("OpenFile %s: file %v already open under this parent", path, existing)
	}
	b, err := t.under.OpenFile(path, parent, baseRev)
	if err != nil {
		return nil, err
	}
	t.states[b] = &batonState{kind: batonFile, path: path, parent: parent}
	t.openFile[parent] = b
	return b, nil
}

func (t *BatonTracker) requireOpenFile(baton interface{}, who string) error {
	st, ok := t.states[baton]
	if !ok || st.kind != batonFile {
		return t.violate("%s: unknown or non-file baton", who)
	}
	if st.closed {
		return t.violate("%s: baton already closed", who)
	}
	return nil
}

func (t *BatonTracker) ApplyTextDelta(file interface{}, baseChecksum string) (WindowHandler, error) {
	if err := t.requireOpenFile(file, "ApplyTextDelta"); err != nil {
		return nil, err
	}
	return t.under.ApplyTextDelta(file, baseChecksum)
}

func (t *BatonTracker) ChangeFileProp(file interface{}, name string, value []byte, hasValue bool) error {
	if err := t.requireOpenFile(file, "ChangeFileProp"); err != nil {
		return err
	}
	return t.under.ChangeFileProp(file, name, value, hasValue)
}

func (t *BatonTracker) CloseFile(file interface{}, resultChecksum string) error {
	if err := t.requireOpenFile(file, "CloseFile"); err != nil {
		return err
	}
	if err := t.under.CloseFile(file, resultChecksum); err != nil {
		return err
	}
	st := t.states[file]
	st.closed = true
	delete(t.openFile, st.parent)
	return nil
}

func (t *BatonTracker) AbsentFile(path string, parent interface{}) error {
	if err := t.requireOpenDir(parent, "AbsentFile"); err != nil {
		return err
	}
	return t.under.AbsentFile(path, parent)
}

func (t *BatonTracker) CloseEdit() error {
	if t.terminated {
		return t.violate("CloseEdit or AbortEdit called twice")
	}
	if st, ok := t.states[t.rootBaton]; ok && !st.closed {
		return t.violate("CloseEdit called with the root directory still open")
	}
	t.terminated = true
	return t.under.CloseEdit()
}

func (t *BatonTracker) AbortEdit() error {
	if t.terminated {
		return t.violate("CloseEdit or AbortEdit called twice")
	}
	t.terminated = true
	return t.under.AbortEdit()
}

var _ fmt.Stringer = (*batonState)(nil)

func (s *batonState) String() string {
	return fmt.Sprintf("baton(%s)", s.path)
}
