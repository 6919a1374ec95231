package fsrepo

import (
	"testing"

	"github.com/go-svn/svncore/delta"
	"github.com/stretchr/testify/require"
)

func TestPathMapCopyOnWriteLeavesSiblingsUntouched(t *testing.T) {
	m := NewPathMap()
	m = m.SetDirectory(1, "trunk", nil)
	m = m.SetFile(1, "trunk/a.txt", []byte("hello"), nil)
	m2 := m.SetFile(2, "trunk/b.txt", []byte("world"), nil)

	// m is unaffected by the later mutation producing m2.
	_, _, _, ok := m.Get("trunk/b.txt")
	require.False(t, ok)

	_, _, data, ok := m2.Get("trunk/a.txt")
	require.True(t, ok)
	require.Equal(t, "hello", string(data))

	_, _, data, ok = m2.Get("trunk/b.txt")
	require.True(t, ok)
	require.Equal(t, "world", string(data))
}

func TestPathMapCopyFromSharesSubtree(t *testing.T) {
	m := NewPathMap()
	m = m.SetDirectory(1, "trunk", nil)
	m = m.SetFile(1, "trunk/a.txt", []byte("hello"), nil)

	m2, ok := m.CopyFrom("branches/b1", m, "trunk")
	require.True(t, ok)

	_, _, data, ok := m2.Get("branches/b1/a.txt")
	require.True(t, ok)
	require.Equal(t, "hello", string(data))

	// Mutating under the copy doesn't affect the original.
	m3 := m2.SetFile(2, "branches/b1/a.txt", []byte("changed"), nil)
	_, _, data, ok = m.Get("trunk/a.txt")
	require.True(t, ok)
	require.Equal(t, "hello", string(data))
	_, _, data, ok = m3.Get("branches/b1/a.txt")
	require.True(t, ok)
	require.Equal(t, "changed", string(data))
}

func TestHistoryAndTransactionCommit(t *testing.T) {
	repo := NewRepo()
	txn, err := repo.OpenTransaction(0)
	require.NoError(t, err)
	require.NoError(t, txn.MakeDirectory("trunk"))
	require.NoError(t, txn.PutFile("trunk/a.txt", []byte("v1")))
	rev := repo.CommitTransaction(txn, map[string]string{"svn:log": "add a.txt"})
	require.Equal(t, int64(1), rev)
	require.Equal(t, int64(1), repo.HeadRevision())

	tree, err := repo.history.Tree(1)
	require.NoError(t, err)
	_, _, data, ok := tree.Get("trunk/a.txt")
	require.True(t, ok)
	require.Equal(t, "v1", string(data))
}

func TestTransactionDetectsOutOfDate(t *testing.T) {
	repo := NewRepo()
	txn, err := repo.OpenTransaction(0)
	require.NoError(t, err)
	require.NoError(t, txn.MakeDirectory("trunk"))
	require.NoError(t, txn.PutFile("trunk/a.txt", []byte("v1")))
	repo.CommitTransaction(txn, nil)

	// A second transaction opened against the stale base revision 0
	// should fail to delete a path that changed in revision 1.
	txn2, err := repo.OpenTransaction(0)
	require.NoError(t, err)
	err = txn2.Delete("trunk/a.txt", 0)
	require.Error(t, err)

	txn3, err := repo.OpenTransaction(1)
	require.NoError(t, err)
	require.NoError(t, txn3.Delete("trunk/a.txt", 1))
}

type collectEditor struct {
	delta.DefaultEditor
	files []string
	dirs  []string
}

func (c *collectEditor) OpenRoot(baseRev int64) (interface{}, error) { return "root", nil }

func (c *collectEditor) AddDirectory(path string, parent interface{}, copyFrom *delta.CopyFrom) (interface{}, error) {
	c.dirs = append(c.dirs, path)
	return "dir:" + path, nil
}

func (c *collectEditor) AddFile(path string, parent interface{}, copyFrom *delta.CopyFrom) (interface{}, error) {
	c.files = append(c.files, path)
	return "file:" + path, nil
}

func TestReadTreeDrivesEditorOverFullSnapshot(t *testing.T) {
	repo := NewRepo()
	txn, err := repo.OpenTransaction(0)
	require.NoError(t, err)
	require.NoError(t, txn.MakeDirectory("trunk"))
	require.NoError(t, txn.PutFile("trunk/a.txt", []byte("hello")))
	require.NoError(t, txn.PutFile("trunk/b.txt", []byte("world")))
	rev := repo.CommitTransaction(txn, nil)

	ed := &collectEditor{}
	require.NoError(t, repo.ReadTree(rev, "", ed, nil))
	require.ElementsMatch(t, []string{"trunk"}, ed.dirs)
	require.ElementsMatch(t, []string{"trunk/a.txt", "trunk/b.txt"}, ed.files)
}
