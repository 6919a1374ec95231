package server

import (
	"bytes"
	"encoding/xml"
	"io/ioutil"
	"net/http"

	"github.com/go-svn/svncore/fsrepo"
	"github.com/go-svn/svncore/internal/svnlog"
	"github.com/go-svn/svncore/wireproto/xmlproto"
)

// handleReport dispatches on the REPORT request body's root element, the
// same multiplexing mod_dav_svn's dav_svn__reports_list does.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		writeError(w, svnlog.Errorf(svnlog.CodeIO, "reading REPORT body: %v", err))
		return
	}
	root, err := peekRootElement(body)
	if err != nil {
		writeError(w, svnlog.Wrap(svnlog.CodeProtocol, err, "parsing REPORT body"))
		return
	}
	switch root {
	case "update-report":
		s.handleUpdateReport(w, r, body)
	case "dated-rev-report":
		s.handleDatedRevReport(w, r, body)
	case "get-locations":
		s.handleGetLocations(w, r, body)
	case "get-locks-report", "get-locks":
		s.handleGetLocks(w, r, body)
	default:
		writeError(w, svnlog.Errorf(svnlog.CodeUnsupported, "unsupported report '%s'", root))
	}
}

func peekRootElement(body []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se.Name.Local, nil
		}
	}
}

// handleUpdateReport is the core of spec.md §4.5.2: parse the client's
// working-copy state, diff it against the target revision's tree, and
// stream the result as an update-report response.
func (s *Server) handleUpdateReport(w http.ResponseWriter, r *http.Request, body []byte) {
	req, err := xmlproto.ParseUpdateReportRequest(bytes.NewReader(body))
	if err != nil {
		writeError(w, svnlog.Wrap(svnlog.CodeProtocol, err, "parsing update-report"))
		return
	}
	anchor, ok := req.Anchor()
	if !ok {
		writeError(w, svnlog.Errorf(svnlog.CodeProtocol, "update-report has no anchor entry"))
		return
	}
	targetRev := req.TargetRevision
	if targetRev == 0 {
		targetRev = s.Repo.HeadRevision()
	}
	// The REPORT is POSTed to the VCC URL, not to a public resource path,
	// so the request carries no path of its own; the anchor is always the
	// repository root, except for a switch (anchor.LinkPath), which moves
	// it to the new location for both sides of the diff.
	anchorPath := s.publicRelPath(anchor.LinkPath)

	var oldTree *fsrepo.PathMap
	if !anchor.StartEmpty {
		oldTree, err = s.Repo.TreeAt(anchor.Rev)
		if err != nil {
			writeError(w, err)
			return
		}
	}
	newTree, err := s.Repo.TreeAt(targetRev)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/xml; charset=UTF-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(xml.Header))

	enc := xmlproto.NewUpdateReportEncoder(w, targetRev, req.SendAll, func(path string) string {
		return s.versionURL(r, targetRev, path)
	})
	if err := fsrepo.DiffTree(oldTree, newTree, anchorPath, enc, nil); err != nil {
		s.Log.WithError(err).Warn("update-report diff failed mid-stream")
	}
}

func (s *Server) handleDatedRevReport(w http.ResponseWriter, r *http.Request, body []byte) {
	var req struct {
		XMLName xml.Name `xml:"dated-rev-report"`
		Date    string   `xml:"creationdate"`
	}
	if err := xml.Unmarshal(body, &req); err != nil {
		writeError(w, svnlog.Wrap(svnlog.CodeProtocol, err, "parsing dated-rev-report"))
		return
	}
	rev := s.Repo.DatedRev(req.Date)
	writeXML(w, &xmlproto.DatedRevReport{VersionName: rev})
}

func (s *Server) handleGetLocations(w http.ResponseWriter, r *http.Request, body []byte) {
	// Path history tracking (copy/rename lineage across revisions) isn't
	// modeled by fsrepo's last-modified-revision simplification; report no
	// locations rather than fabricate lineage we don't track.
	writeXML(w, &xmlproto.Locations{})
}

func (s *Server) handleGetLocks(w http.ResponseWriter, r *http.Request, body []byte) {
	writeXML(w, &xmlproto.GetLocksReport{})
}

func writeXML(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "text/xml; charset=UTF-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(xml.Header))
	enc := xml.NewEncoder(w)
	enc.Encode(v)
}
