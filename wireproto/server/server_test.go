package server

import (
	"net/http/httptest"
	"testing"

	"github.com/go-svn/svncore/delta"
	"github.com/go-svn/svncore/fsrepo"
	"github.com/go-svn/svncore/report"
	"github.com/go-svn/svncore/svndiff"
	"github.com/go-svn/svncore/wireproto/client"
	"github.com/go-svn/svncore/wireproto/xmlproto"
	"github.com/stretchr/testify/require"
)

// TestCommitOneFileEndToEnd drives a real wireproto/client.CommitEditor
// against a real Server over an httptest loopback, committing a single
// new file, then confirms the file lands in the backing fsrepo.Repo.
func TestCommitOneFileEndToEnd(t *testing.T) {
	repo := fsrepo.NewRepo()
	srv := httptest.NewServer(NewServer(repo, "/repo", nil))
	defer srv.Close()

	sess := client.NewSession(srv.URL, srv.Client(), nil)
	require.NoError(t, sess.Bootstrap("repo"))
	require.NotEmpty(t, sess.VCCURL)
	require.NotEmpty(t, sess.ActivityCollection)

	ed, err := client.NewCommitEditor(sess, noResolve, "add hello.txt", nil, nil, false, nil)
	require.NoError(t, err)

	root, err := ed.OpenRoot(0)
	require.NoError(t, err)
	file, err := ed.AddFile("hello.txt", root, nil)
	require.NoError(t, err)
	handler, err := ed.ApplyTextDelta(file, "")
	require.NoError(t, err)
	content := []byte("hello\n")
	require.NoError(t, handler(&svndiff.Window{
		TargetViewLen: uint64(len(content)),
		Instructions:  []svndiff.Instruction{{Kind: svndiff.OpNew, Length: uint64(len(content))}},
		NewData:       content,
	}))
	require.NoError(t, handler(nil))
	require.NoError(t, ed.CloseFile(file, ""))
	require.NoError(t, ed.CloseDirectory(root))
	require.NoError(t, ed.CloseEdit())

	require.Equal(t, int64(1), repo.HeadRevision())
	kind, _, data, ok := repo.Get(1, "hello.txt")
	require.True(t, ok)
	require.Equal(t, delta.KindFile, kind)
	require.Equal(t, "hello\n", string(data))
}

func noResolve(path string) (string, error) { return "", nil }

// TestUpdateReportAfterCommit drives a real update-report REPORT through
// the server, confirming the diff between rev 0 (empty) and rev 1 (one
// file) reports exactly that file as added.
func TestUpdateReportAfterCommit(t *testing.T) {
	repo := fsrepo.NewRepo()
	txn, err := repo.OpenTransaction(0)
	require.NoError(t, err)
	require.NoError(t, txn.PutFile("hello.txt", []byte("hi\n")))
	repo.CommitTransaction(txn, map[string]string{"svn:log": "seed"})

	srv := httptest.NewServer(NewServer(repo, "/repo", nil))
	defer srv.Close()

	sess := client.NewSession(srv.URL, srv.Client(), nil)
	require.NoError(t, sess.Bootstrap("repo"))

	var ed collectEditor
	err = sess.DoUpdate(1, true, func(r report.Reporter) error {
		return r.SetPath("", 0, true, "")
	}, &ed, nil, xmlproto.FetchFunc{})
	require.NoError(t, err)
	require.Contains(t, ed.addedFiles, "hello.txt")
}

type collectEditor struct {
	delta.DefaultEditor
	addedFiles []string
}

func (e *collectEditor) AddFile(path string, parent interface{}, copyFrom *delta.CopyFrom) (interface{}, error) {
	e.addedFiles = append(e.addedFiles, path)
	return path, nil
}

func (e *collectEditor) ApplyTextDelta(file interface{}, baseChecksum string) (delta.WindowHandler, error) {
	return func(w *svndiff.Window) error { return nil }, nil
}
