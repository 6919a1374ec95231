package report

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func captureSender(captured *[]byte) Sender {
	return func(body io.Reader) (io.ReadCloser, error) {
		data, err := io.ReadAll(body)
		if err != nil {
			return nil, err
		}
		*captured = data
		return io.NopCloser(bytes.NewReader([]byte("<S:update-report/>"))), nil
	}
}

func TestSpoolReporterHappyPath(t *testing.T) {
	var sent []byte
	r, err := NewSpoolReporter(42, true, captureSender(&sent))
	require.NoError(t, err)

	require.NoError(t, r.SetPath("", 40, false, ""))
	require.NoError(t, r.SetPath("sub", 41, true, "opaquelocktoken:abc"))
	require.NoError(t, r.LinkPath("branch", "/repo/other-branch/sub", 41, true, ""))
	require.NoError(t, r.DeletePath("gone"))

	resp, err := r.FinishReport()
	require.NoError(t, err)
	data, err := io.ReadAll(resp)
	require.NoError(t, err)
	require.Equal(t, "<S:update-report/>", string(data))

	body := string(sent)
	require.True(t, strings.HasPrefix(body, "<S:update-report send-all=\"true\""))
	require.Contains(t, body, "<S:target-revision rev=\"42\"/>")
	require.Contains(t, body, "<S:entry rev=\"40\"></S:entry>")
	require.Contains(t, body, "lock-token=\"opaquelocktoken:abc\"")
	require.Contains(t, body, "start-empty=\"true\"")
	require.Contains(t, body, "linkpath=\"/repo/other-branch/sub\"")
	require.Contains(t, body, "<S:missing>gone</S:missing>")
	require.True(t, strings.HasSuffix(body, "</S:update-report>\n"))
}

func TestSpoolReporterRejectsNonEmptyFirstSetPath(t *testing.T) {
	var sent []byte
	r, err := NewSpoolReporter(1, false, captureSender(&sent))
	require.NoError(t, err)
	err = r.SetPath("sub", 1, false, "")
	require.Error(t, err)
}

func TestSpoolReporterRejectsCallsAfterFinish(t *testing.T) {
	var sent []byte
	r, err := NewSpoolReporter(1, false, captureSender(&sent))
	require.NoError(t, err)
	require.NoError(t, r.SetPath("", 1, false, ""))
	_, err = r.FinishReport()
	require.NoError(t, err)

	err = r.DeletePath("x")
	require.Error(t, err)
}

func TestSpoolReporterAbortRemovesSpoolFile(t *testing.T) {
	var sent []byte
	r, err := NewSpoolReporter(1, false, captureSender(&sent))
	require.NoError(t, err)
	require.NoError(t, r.SetPath("", 1, false, ""))

	name := r.spool.Name()
	require.NoError(t, r.AbortReport())
	_, statErr := os.Stat(name)
	require.True(t, os.IsNotExist(statErr))

	_, err = r.FinishReport()
	require.Error(t, err)
}
