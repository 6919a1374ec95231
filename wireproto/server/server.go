// Package server implements the server side of spec.md §4.5's commit/
// update wire protocol (component C5): an http.Handler dispatching on
// WebDAV/DeltaV methods and the REPORT verb, backed by an fsrepo.Repo.
package server

import (
	"net/http"

	cmap "github.com/orcaman/concurrent-map"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/webdav"

	"github.com/go-svn/svncore/fsrepo"
	"github.com/go-svn/svncore/internal/svnlog"
)

// Server answers the DAV/REPORT request set a wireproto/client Session
// drives, over one repository.
type Server struct {
	Repo *fsrepo.Repo
	Root string // public URL path prefix, e.g. "/repo"
	Log  *logrus.Logger

	// Locks is an in-memory golang.org/x/net/webdav lock table. No handler
	// reads or writes it: get-locks-report always answers with an empty
	// list, and PUT/DELETE/PROPPATCH do not check If: headers against it.
	Locks webdav.LockSystem

	activities cmap.ConcurrentMap
}

// NewServer returns a Server answering requests under root for repo.
func NewServer(repo *fsrepo.Repo, root string, log *logrus.Logger) *Server {
	if log == nil {
		log = svnlog.New()
	}
	return &Server{
		Repo:       repo,
		Root:       root,
		Log:        log,
		Locks:      webdav.NewMemLS(),
		activities: newActivities(),
	}
}

// ServeHTTP dispatches by method, the same flat per-verb structure
// mod_dav_svn's method table uses.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Log.WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path}).Debug("svn request")
	switch r.Method {
	case "OPTIONS":
		s.handleOptions(w, r)
	case "PROPFIND":
		s.handlePropfind(w, r)
	case "REPORT":
		s.handleReport(w, r)
	case "MKACTIVITY":
		s.handleMkactivity(w, r)
	case "CHECKOUT":
		s.handleCheckout(w, r)
	case "MKCOL":
		s.handleMkcol(w, r)
	case "COPY":
		s.handleCopy(w, r)
	case "DELETE":
		s.handleDelete(w, r)
	case "PUT":
		s.handlePut(w, r)
	case "PROPPATCH":
		s.handleProppatch(w, r)
	case "MERGE":
		s.handleMerge(w, r)
	case "GET", "HEAD":
		s.handleGet(w, r)
	default:
		http.Error(w, "unsupported method", http.StatusMethodNotAllowed)
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	if ce, ok := err.(*svnlog.CoreError); ok {
		switch ce.Code {
		case svnlog.CodeNotFound:
			code = http.StatusNotFound
		case svnlog.CodeOutOfDate, svnlog.CodeConflict:
			code = http.StatusConflict
		case svnlog.CodeAuthz:
			code = http.StatusForbidden
		case svnlog.CodeArgument, svnlog.CodeProtocol:
			code = http.StatusBadRequest
		case svnlog.CodeLock:
			code = http.StatusLocked
		}
	}
	http.Error(w, err.Error(), code)
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("DAV", "1,2,version-control,checkout,working-resource,merge,baseline,activity")
	w.Header().Set("Content-Type", "text/xml; charset=UTF-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`<?xml version="1.0" encoding="utf-8"?>` + "\n" +
		`<D:options-response xmlns:D="DAV:"><D:activity-collection-set><D:href>` +
		s.activityCollectionURL(r) + `</D:href></D:activity-collection-set></D:options-response>`))
}
