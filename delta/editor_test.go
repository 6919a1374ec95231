package delta

import (
	"testing"

	"github.com/go-svn/svncore/svndiff"
	"github.com/stretchr/testify/require"
)

func TestDefaultEditorNoOps(t *testing.T) {
	var e DefaultEditor
	require.NoError(t, e.SetTargetRevision(5))

	root, err := e.OpenRoot(0)
	require.NoError(t, err)
	require.NotNil(t, root)

	require.NoError(t, e.DeleteEntry("x", 0, root))

	d, err := e.AddDirectory("d", root, nil)
	require.NoError(t, err)
	require.NoError(t, e.ChangeDirProp(d, "svn:ignore", []byte("*.o"), true))
	require.NoError(t, e.CloseDirectory(d))

	f, err := e.AddFile("d/f", d, nil)
	require.NoError(t, err)
	handler, err := e.ApplyTextDelta(f, "")
	require.NoError(t, err)
	require.NoError(t, handler(&svndiff.Window{}))
	require.NoError(t, handler(nil))
	require.NoError(t, e.CloseFile(f, ""))

	require.NoError(t, e.CloseEdit())
}

func TestComposeForwardsToBothEditorsInOrder(t *testing.T) {
	a := &recordingEditor{}
	b := &recordingEditor{}
	c := Compose(a, b)

	root, err := c.OpenRoot(0)
	require.NoError(t, err)

	dir, err := c.AddDirectory("trunk", root, nil)
	require.NoError(t, err)

	file, err := c.AddFile("trunk/README", dir, nil)
	require.NoError(t, err)
	require.NoError(t, c.CloseFile(file, ""))
	require.NoError(t, c.CloseDirectory(dir))
	require.NoError(t, c.CloseEdit())

	want := []string{"OpenRoot", "AddDirectory:trunk", "AddFile:trunk/README"}
	require.Equal(t, want, a.calls)
	require.Equal(t, want, b.calls)
}

func TestComposeWithBatonTrackerValidation(t *testing.T) {
	under := &recordingEditor{}
	tracked := NewBatonTracker(under)
	observer := &recordingEditor{}
	c := Compose(tracked, observer)

	root, err := c.OpenRoot(0)
	require.NoError(t, err)
	dir, err := c.AddDirectory("trunk", root, nil)
	require.NoError(t, err)
	require.NoError(t, c.CloseDirectory(dir))
	require.NoError(t, c.CloseDirectory(root))
	require.NoError(t, c.CloseEdit())

	require.Equal(t, []string{"OpenRoot", "AddDirectory:trunk"}, under.calls)
	require.Equal(t, []string{"OpenRoot", "AddDirectory:trunk"}, observer.calls)
}
