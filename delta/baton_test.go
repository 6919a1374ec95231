package delta

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// recordingEditor is a minimal concrete Editor used to exercise
// BatonTracker and Compose without pulling in fsrepo or wireproto.
type recordingEditor struct {
	DefaultEditor
	calls []string
}

func (r *recordingEditor) OpenRoot(baseRev int64) (interface{}, error) {
	r.calls = append(r.calls, "OpenRoot")
	return &struct{ tag string }{"root"}, nil
}

func (r *recordingEditor) AddDirectory(path string, parent interface{}, copyFrom *CopyFrom) (interface{}, error) {
	r.calls = append(r.calls, "AddDirectory:"+path)
	return &struct{ tag string }{path}, nil
}

func (r *recordingEditor) AddFile(path string, parent interface{}, copyFrom *CopyFrom) (interface{}, error) {
	r.calls = append(r.calls, "AddFile:"+path)
	return &struct{ tag string }{path}, nil
}

func TestBatonTrackerHappyPath(t *testing.T) {
	under := &recordingEditor{}
	tr := NewBatonTracker(under)

	root, err := tr.OpenRoot(0)
	require.NoError(t, err)

	d, err := tr.AddDirectory("trunk", root, nil)
	require.NoError(t, err)

	f, err := tr.AddFile("trunk/README", d, nil)
	require.NoError(t, err)
	require.NoError(t, tr.CloseFile(f, ""))
	require.NoError(t, tr.CloseDirectory(d))
	require.NoError(t, tr.CloseDirectory(root))
	require.NoError(t, tr.CloseEdit())

	require.Equal(t, []string{"OpenRoot", "AddDirectory:trunk", "AddFile:trunk/README"}, under.calls)
}

func TestBatonTrackerRejectsCloseEditWithRootOpen(t *testing.T) {
	tr := NewBatonTracker(&recordingEditor{})
	_, err := tr.OpenRoot(0)
	require.NoError(t, err)
	err = tr.CloseEdit()
	require.Error(t, err)
}

func TestBatonTrackerRejectsUseAfterClose(t *testing.T) {
	tr := NewBatonTracker(&recordingEditor{})
	root, err := tr.OpenRoot(0)
	require.NoError(t, err)
	d, err := tr.AddDirectory("trunk", root, nil)
	require.NoError(t, err)
	require.NoError(t, tr.CloseDirectory(d))

	_, err = tr.AddFile("trunk/README", d, nil)
	require.Error(t, err)
}

func TestBatonTrackerRejectsOverlappingFilesUnderSameParent(t *testing.T) {
	tr := NewBatonTracker(&recordingEditor{})
	root, err := tr.OpenRoot(0)
	require.NoError(t, err)

	_, err = tr.AddFile("a", root, nil)
	require.NoError(t, err)

	_, err = tr.AddFile("b", root, nil)
	require.Error(t, err)
}

func TestBatonTrackerAllowsOverlappingDirectories(t *testing.T) {
	tr := NewBatonTracker(&recordingEditor{})
	root, err := tr.OpenRoot(0)
	require.NoError(t, err)

	d1, err := tr.AddDirectory("a", root, nil)
	require.NoError(t, err)
	d2, err := tr.AddDirectory("b", root, nil)
	require.NoError(t, err)

	require.NoError(t, tr.CloseDirectory(d1))
	require.NoError(t, tr.CloseDirectory(d2))
}

func TestBatonTrackerRejectsCloseDirectoryWithOpenChild(t *testing.T) {
	tr := NewBatonTracker(&recordingEditor{})
	root, err := tr.OpenRoot(0)
	require.NoError(t, err)
	d, err := tr.AddDirectory("a", root, nil)
	require.NoError(t, err)
	_, err = tr.AddDirectory("a/b", d, nil)
	require.NoError(t, err)

	err = tr.CloseDirectory(d)
	require.Error(t, err)
}
