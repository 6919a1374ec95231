package xmlproto

import (
	"strings"
	"testing"

	"github.com/go-svn/svncore/delta"
	"github.com/go-svn/svncore/svndiff"
	"github.com/stretchr/testify/require"
)

type capturingEditor struct {
	delta.DefaultEditor
	events []string
	props  map[string]string
	texts  map[string]string
}

func newCapturingEditor() *capturingEditor {
	return &capturingEditor{props: map[string]string{}, texts: map[string]string{}}
}

func (c *capturingEditor) OpenRoot(baseRev int64) (interface{}, error) {
	c.events = append(c.events, "OpenRoot")
	return "root", nil
}

func (c *capturingEditor) AddDirectory(path string, parent interface{}, copyFrom *delta.CopyFrom) (interface{}, error) {
	c.events = append(c.events, "AddDirectory:"+path)
	return "dir:" + path, nil
}

func (c *capturingEditor) AddFile(path string, parent interface{}, copyFrom *delta.CopyFrom) (interface{}, error) {
	c.events = append(c.events, "AddFile:"+path)
	return "file:" + path, nil
}

func (c *capturingEditor) ChangeFileProp(file interface{}, name string, value []byte, hasValue bool) error {
	if hasValue {
		c.props[name] = string(value)
	}
	return nil
}

func (c *capturingEditor) ApplyTextDelta(file interface{}, baseChecksum string) (delta.WindowHandler, error) {
	return func(w *svndiff.Window) error { return nil }, nil
}

func TestUpdateReportDecoderBasicTree(t *testing.T) {
	const body = `<?xml version="1.0"?>
<S:update-report send-all="true" xmlns:S="svn:" xmlns:D="DAV:">
  <S:target-revision rev="7"/>
  <S:open-directory rev="6" name="">
    <S:add-directory name="trunk">
      <S:add-file name="README">
        <S:set-prop name="svn:eol-style">native</S:set-prop>
      </S:add-file>
    </S:add-directory>
  </S:open-directory>
</S:update-report>`

	ed := newCapturingEditor()
	dec := NewUpdateReportDecoder(strings.NewReader(body), ed, nil, FetchFunc{})
	require.NoError(t, dec.Run())

	require.Equal(t, []string{"OpenRoot", "AddDirectory:trunk", "AddFile:trunk/README"}, ed.events)
	require.Equal(t, "native", ed.props["svn:eol-style"])
}
