package server

import (
	"encoding/xml"
	"net/http"
	"strconv"

	"github.com/go-svn/svncore/wireproto/xmlproto"
)

// handlePropfind answers the two PROPFIND shapes a Session.Bootstrap/
// DiscoverBaseline round trip issues: a request against the public path
// (asking for DAV:version-controlled-configuration, spec.md §4.5.1), and a
// request against the VCC (asking for DAV:checked-in/DAV:version-name,
// optionally pinned to a revision via the Label header).
func (s *Server) handlePropfind(w http.ResponseWriter, r *http.Request) {
	if stripOrigin(r.URL.Path) == stripOrigin(s.vccURL(r)) {
		s.propfindVCC(w, r)
		return
	}
	s.propfindPublic(w, r)
}

func (s *Server) propfindPublic(w http.ResponseWriter, r *http.Request) {
	ms := &xmlproto.Multistatus{Responses: []xmlproto.MultistatusItem{{
		Href: externalBase(r) + r.URL.Path,
		Propstat: []xmlproto.Propstat{{
			Status: "HTTP/1.1 200 OK",
			Prop:   xmlproto.Prop{VCC: &xmlproto.Href{Href: s.vccURL(r)}},
		}},
	}}}
	writeMultistatus(w, ms)
}

func (s *Server) propfindVCC(w http.ResponseWriter, r *http.Request) {
	rev := s.Repo.HeadRevision()
	if label := r.Header.Get("Label"); label != "" {
		if n, ok := parseRev(label); ok {
			rev = n
		}
	}
	path := s.publicRelPath(r.URL.Path)
	item := xmlproto.MultistatusItem{
		Href: s.vccURL(r),
		Propstat: []xmlproto.Propstat{{
			Status: "HTTP/1.1 200 OK",
			Prop: xmlproto.Prop{
				BaselineRelativePath: path,
				CheckedIn:            &xmlproto.Href{Href: s.baselineCollectionURL(r, rev)},
				BaselineCollection:   &xmlproto.Href{Href: s.baselineCollectionURL(r, rev)},
				VersionName:          strconv.FormatInt(rev, 10),
			},
		}},
	}
	writeMultistatus(w, &xmlproto.Multistatus{Responses: []xmlproto.MultistatusItem{item}})
}

func writeMultistatus(w http.ResponseWriter, ms *xmlproto.Multistatus) {
	w.Header().Set("Content-Type", "text/xml; charset=UTF-8")
	w.WriteHeader(http.StatusMultiStatus)
	w.Write([]byte(xml.Header))
	enc := xml.NewEncoder(w)
	enc.Encode(ms)
}

func parseRev(s string) (int64, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	return n, err == nil
}
