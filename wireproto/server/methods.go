package server

import (
	"io/ioutil"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-svn/svncore/internal/svnlog"
	"github.com/go-svn/svncore/svndiff"
	"github.com/go-svn/svncore/wireproto/xmlproto"
)

// handleMkactivity opens a new fsrepo.Transaction at HEAD and registers
// it under the activity id the client chose and named in the request URL
// (spec.md §4.5.3 step 1).
func (s *Server) handleMkactivity(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parseActivityURL(r.URL.Path)
	if !ok {
		writeError(w, svnlog.Errorf(svnlog.CodeProtocol, "MKACTIVITY target '%s' is not an activity URL", r.URL.Path))
		return
	}
	a, err := s.createActivityAt(id, s.Repo.HeadRevision())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", s.activityURL(r, a.id))
	w.WriteHeader(http.StatusCreated)
}

// handleCheckout answers a CHECKOUT against the VCC URL (the initial
// checkout of the root, spec.md §4.5.3 step 2, since DiscoverBaseline
// hands the client the VCC URL), a baseline-collection URL, or a
// version-resource URL (a directory OpenDirectory resolves via the
// checked-in property, commit.go's OpenDirectory path). The request body
// names the activity via <D:activity-set><D:href>.
func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		writeError(w, svnlog.Errorf(svnlog.CodeIO, "reading CHECKOUT body: %v", err))
		return
	}
	activityID, ok := findActivityHref(body)
	if !ok {
		writeError(w, svnlog.Errorf(svnlog.CodeProtocol, "CHECKOUT body names no activity"))
		return
	}
	a, ok := s.getActivity(activityID)
	if !ok {
		writeError(w, svnlog.Errorf(svnlog.CodeNotFound, "no such activity '%s'", activityID))
		return
	}

	var relPath string
	if kind, _, _, ok := s.parseSpecial(r.URL.Path); ok && kind == "vcc" {
		// DiscoverBaseline reports the VCC's own href as the baseline
		// resource; checking it out means checking out the repository root.
		relPath = ""
	} else if _, p, ok := s.parseBaselineURL(r.URL.Path); ok {
		relPath = p
	} else if _, p, ok := s.parseVersionURL(r.URL.Path); ok {
		relPath = p
	} else {
		writeError(w, svnlog.Errorf(svnlog.CodeProtocol, "CHECKOUT target '%s' is not a version resource", r.URL.Path))
		return
	}

	a.mu.Lock()
	a.checkedOut[relPath] = true
	a.mu.Unlock()

	w.Header().Set("Location", s.workingURL(r, activityID, relPath))
	w.WriteHeader(http.StatusCreated)
}

// handleMkcol creates a directory inside the activity's transaction
// (spec.md §4.5.3 step 3's add_directory without copy-from).
func (s *Server) handleMkcol(w http.ResponseWriter, r *http.Request) {
	_, relPath, a, ok := s.resolveWorking(w, r)
	if !ok {
		return
	}
	if err := a.txn.MakeDirectory(relPath); err != nil {
		writeError(w, err)
		return
	}
	a.noteChanged(relPath)
	w.WriteHeader(http.StatusCreated)
}

// handleCopy implements add_directory/add_file with copy-from: the
// request URL is a baseline-collection URL naming the revision and path
// to copy from (commit.go's copyFromURL), and Destination is the working
// URL the copy creates.
func (s *Server) handleCopy(w http.ResponseWriter, r *http.Request) {
	srcRev, srcRelPath, ok := s.parseBaselineURL(r.URL.Path)
	if !ok {
		writeError(w, svnlog.Errorf(svnlog.CodeProtocol, "COPY source '%s' is not a baseline-collection URL", r.URL.Path))
		return
	}
	dest := r.Header.Get("Destination")
	if dest == "" {
		writeError(w, svnlog.Errorf(svnlog.CodeProtocol, "COPY request has no Destination header"))
		return
	}
	activityID, destRelPath, ok := s.parseWorkingURL(dest)
	if !ok {
		writeError(w, svnlog.Errorf(svnlog.CodeProtocol, "COPY Destination '%s' is not a working resource", dest))
		return
	}
	a, ok := s.getActivity(activityID)
	if !ok {
		writeError(w, svnlog.Errorf(svnlog.CodeNotFound, "no such activity '%s'", activityID))
		return
	}
	depth := r.Header.Get("Depth")
	var err error
	if depth == "0" {
		err = a.txn.CopyFile(destRelPath, srcRev, srcRelPath)
	} else {
		err = a.txn.CopyDirectory(destRelPath, srcRev, srcRelPath)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	a.noteChanged(destRelPath)
	w.WriteHeader(http.StatusCreated)
}

// handleDelete is dual-purpose: a bare activity URL means "discard this
// activity" (commit.go's deleteActivity fire-and-forget cleanup); a
// working URL means "delete this node", checked against the
// SVN-Version-Name base revision the client sends.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if id, ok := s.parseActivityURL(r.URL.Path); ok {
		s.removeActivity(id)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	_, relPath, a, ok := s.resolveWorking(w, r)
	if !ok {
		return
	}
	baseRev := a.txn.BaseRev()
	if v := r.Header.Get("SVN-Version-Name"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			baseRev = n
		}
	}
	if err := a.txn.Delete(relPath, baseRev); err != nil {
		writeError(w, err)
		return
	}
	a.noteChanged(relPath)
	w.WriteHeader(http.StatusNoContent)
}

// handlePut decodes a full svndiff stream against the node's current
// base content and stores the result (commit.go's CloseFile spools the
// whole stream to a temp file, then PUTs it in one shot).
func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	_, relPath, a, ok := s.resolveWorking(w, r)
	if !ok {
		return
	}
	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		writeError(w, svnlog.Errorf(svnlog.CodeIO, "reading PUT body: %v", err))
		return
	}
	_, _, base, existed := a.txn.Get(relPath)
	target, err := svndiff.Apply(base, body)
	if err != nil {
		writeError(w, svnlog.Wrap(svnlog.CodeChecksum, err, "applying svndiff for '%s'", relPath))
		return
	}
	if err := a.txn.PutFile(relPath, target); err != nil {
		writeError(w, err)
		return
	}
	a.noteChanged(relPath)
	if existed {
		w.WriteHeader(http.StatusNoContent)
	} else {
		w.WriteHeader(http.StatusCreated)
	}
}

// handleProppatch changes a node property, unless relPath is empty -- a
// PROPPATCH against the working root itself, which commit.go's
// NewCommitEditor uses to set svn:log and other revision properties
// rather than any node's properties.
func (s *Server) handleProppatch(w http.ResponseWriter, r *http.Request) {
	_, relPath, a, ok := s.resolveWorking(w, r)
	if !ok {
		return
	}
	set, remove, err := parsePropertyUpdate(r.Body)
	if err != nil {
		writeError(w, svnlog.Wrap(svnlog.CodeProtocol, err, "parsing PROPPATCH body"))
		return
	}
	if relPath == "" {
		a.mu.Lock()
		for k, v := range set {
			a.revprops[k] = string(v)
		}
		for _, k := range remove {
			delete(a.revprops, k)
		}
		a.mu.Unlock()
		writeMultistatus(w, &xmlproto.Multistatus{})
		return
	}
	for name, value := range set {
		if err := a.txn.SetProp(relPath, name, value, true); err != nil {
			writeError(w, err)
			return
		}
	}
	for _, name := range remove {
		if err := a.txn.SetProp(relPath, name, nil, false); err != nil {
			writeError(w, err)
			return
		}
	}
	a.noteChanged(relPath)
	writeMultistatus(w, &xmlproto.Multistatus{})
}

// handleMerge commits the activity named by the request body's
// <D:source><D:href> and reports the new revision plus one committed
// item per touched path (spec.md §4.5.3 step 5; commit.go's CloseEdit).
func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		writeError(w, svnlog.Errorf(svnlog.CodeIO, "reading MERGE body: %v", err))
		return
	}
	activityID, ok := findActivityHref(body)
	if !ok {
		writeError(w, svnlog.Errorf(svnlog.CodeProtocol, "MERGE body names no activity"))
		return
	}
	a, ok := s.getActivity(activityID)
	if !ok {
		writeError(w, svnlog.Errorf(svnlog.CodeNotFound, "no such activity '%s'", activityID))
		return
	}

	a.mu.Lock()
	revprops := make(map[string]string, len(a.revprops))
	for k, v := range a.revprops {
		revprops[k] = v
	}
	changed := append([]string(nil), a.changed...)
	a.mu.Unlock()

	newRev := s.Repo.CommitTransaction(a.txn, revprops)
	s.removeActivity(activityID)

	items := make([]xmlproto.MultistatusItem, 0, len(changed))
	for _, path := range changed {
		items = append(items, xmlproto.MultistatusItem{
			Href: s.versionURL(r, newRev, path),
			Propstat: []xmlproto.Propstat{{
				Status: "HTTP/1.1 200 OK",
				Prop:   xmlproto.Prop{VersionName: strconv.FormatInt(newRev, 10)},
			}},
		})
	}
	ms := &xmlproto.Multistatus{
		UpdatedSet: &xmlproto.VersionControlledConfiguration{Responses: items},
	}
	w.Header().Set("Content-Type", "text/xml; charset=UTF-8")
	w.WriteHeader(http.StatusOK)
	writeMultistatus(w, ms)
}

// handleGet serves a file's current HEAD content, used by commit.go's
// AddFile to probe whether a path already exists (a HEAD/GET 404 means
// "genuinely new file") and by any plain-GET content fetch.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	rev := s.Repo.HeadRevision()
	relPath := s.publicRelPath(r.URL.Path)
	if rv, p, ok := s.parseVersionURL(r.URL.Path); ok {
		rev, relPath = rv, p
	} else if rv, p, ok := s.parseBaselineURL(r.URL.Path); ok {
		rev, relPath = rv, p
	}
	_, _, data, ok := s.Repo.Get(rev, relPath)
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// resolveWorking extracts the activity id and relative path from a
// working-resource URL and looks up the backing activity, writing an
// error response and returning ok=false on any failure.
func (s *Server) resolveWorking(w http.ResponseWriter, r *http.Request) (activityID, relPath string, a *activity, ok bool) {
	activityID, relPath, ok = s.parseWorkingURL(r.URL.Path)
	if !ok {
		writeError(w, svnlog.Errorf(svnlog.CodeProtocol, "'%s' is not a working resource", r.URL.Path))
		return "", "", nil, false
	}
	a, found := s.getActivity(activityID)
	if !found {
		writeError(w, svnlog.Errorf(svnlog.CodeNotFound, "no such activity '%s'", activityID))
		return "", "", nil, false
	}
	return activityID, relPath, a, true
}

// findActivityHref extracts the activity id out of a CHECKOUT/MERGE
// request body's <D:href>, tolerating either an absolute URL or a bare
// path.
func findActivityHref(body []byte) (string, bool) {
	const open, close = "<D:href>", "</D:href>"
	s := string(body)
	i := strings.Index(s, open)
	if i < 0 {
		return "", false
	}
	s = s[i+len(open):]
	j := strings.Index(s, close)
	if j < 0 {
		return "", false
	}
	href := strings.TrimSpace(s[:j])
	p := stripOrigin(href)
	idx := strings.Index(p, "!svn/act/")
	if idx < 0 {
		return "", false
	}
	id := p[idx+len("!svn/act/"):]
	id = strings.Trim(id, "/")
	return id, id != ""
}
