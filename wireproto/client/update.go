package client

import (
	"io"

	"github.com/go-svn/svncore/delta"
	"github.com/go-svn/svncore/internal/svnlog"
	"github.com/go-svn/svncore/report"
	"github.com/go-svn/svncore/wireproto/xmlproto"
)

// DoUpdate drives an update/switch/status/diff against targetRev
// (spec.md §4.5.2): build drives a report.Reporter describing the
// client's current mixed-revision state, the finished report is POSTed
// to the session's VCC URL as an update-report REPORT, and the response
// is parsed and applied to editor.
func (s *Session) DoUpdate(targetRev int64, sendAll bool, build func(report.Reporter) error, editor delta.Editor, onChecked xmlproto.CheckedInFunc, fetch xmlproto.FetchFunc) error {
	if s.VCCURL == "" {
		return svnlog.Errorf(svnlog.CodeProtocol, "DoUpdate called before Bootstrap")
	}
	r, err := report.NewSpoolReporter(targetRev, sendAll, func(body io.Reader) (io.ReadCloser, error) {
		resp, err := s.do("REPORT", s.VCCURL, body, map[string]string{"Content-Type": "text/xml"})
		if err != nil {
			return nil, err
		}
		if err := s.checkStatus(resp, 200); err != nil {
			resp.Body.Close()
			return nil, err
		}
		return resp.Body, nil
	})
	if err != nil {
		return err
	}

	if err := build(r); err != nil {
		_ = r.AbortReport()
		return err
	}

	respBody, err := r.FinishReport()
	if err != nil {
		return err
	}
	defer respBody.Close()

	dec := xmlproto.NewUpdateReportDecoder(respBody, editor, onChecked, fetch)
	return dec.Run()
}
