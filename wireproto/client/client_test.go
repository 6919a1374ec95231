package client

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-svn/svncore/delta"
	"github.com/go-svn/svncore/report"
	"github.com/go-svn/svncore/wireproto/xmlproto"
	"github.com/stretchr/testify/require"
)

func TestSessionBootstrapAndUpdate(t *testing.T) {
	var vccURL string

	mux := http.NewServeMux()
	mux.HandleFunc("/repo/trunk", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "PROPFIND", r.Method)
		w.WriteHeader(207)
		fmt.Fprintf(w, `<D:multistatus xmlns:D="DAV:"><D:response><D:href>/repo/trunk</D:href>
<D:propstat><D:status>HTTP/1.1 200 OK</D:status><D:prop>
<D:version-controlled-configuration><D:href>%s</D:href></D:version-controlled-configuration>
</D:prop></D:propstat></D:response></D:multistatus>`, vccURL)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "OPTIONS" {
			w.Write([]byte(`<D:options-response xmlns:D="DAV:"/>`))
			return
		}
		if r.Method == "REPORT" {
			_, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			fmt.Fprint(w, `<S:update-report send-all="true" xmlns:S="svn:">
<S:target-revision rev="3"/>
<S:open-directory rev="2" name="">
<S:add-file name="hello.txt"></S:add-file>
</S:open-directory>
</S:update-report>`)
			return
		}
		http.NotFound(w, r)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()
	vccURL = srv.URL + "/!svn/vcc/default"

	sess := NewSession(srv.URL, srv.Client(), nil)
	require.NoError(t, sess.Bootstrap("repo/trunk"))
	require.Equal(t, vccURL, sess.VCCURL)

	var ed recordingTestEditor
	err := sess.DoUpdate(3, true, func(r report.Reporter) error {
		return r.SetPath("", 2, false, "")
	}, &ed, nil, xmlproto.FetchFunc{})
	require.NoError(t, err)
	require.Equal(t, []string{"OpenRoot", "AddFile:hello.txt"}, ed.events)
}

type recordingTestEditor struct {
	delta.DefaultEditor
	events []string
}

func (e *recordingTestEditor) OpenRoot(baseRev int64) (interface{}, error) {
	e.events = append(e.events, "OpenRoot")
	return "root", nil
}

func (e *recordingTestEditor) AddFile(path string, parent interface{}, copyFrom *delta.CopyFrom) (interface{}, error) {
	e.events = append(e.events, "AddFile:"+path)
	return "file:" + path, nil
}
