package server

import (
	"crypto/rand"
	"fmt"
	"sync"

	cmap "github.com/orcaman/concurrent-map"

	"github.com/go-svn/svncore/fsrepo"
	"github.com/go-svn/svncore/internal/svnlog"
)

// activity is the server-side bookkeeping for one MKACTIVITY..MERGE/DELETE
// lifetime: the open transaction it edits and which directories have
// already been checked out into it (mod_dav_svn/version.c's
// activity/transaction record, minus on-disk persistence -- an activity
// here lives only as long as the process, matching fsrepo's in-memory
// repository model).
type activity struct {
	id  string
	txn *fsrepo.Transaction
	mu  sync.Mutex
	// checkedOut remembers each directory CHECKOUT has already targeted
	// in this activity, so repeated CHECKOUTs of the same resource (the
	// client re-checks-out a directory it already touched) are harmless.
	checkedOut map[string]bool
	// revprops accumulates the PROPPATCH the client sends against the
	// working root (path=="") -- svn:log and friends, not node properties.
	revprops map[string]string
	// changed records every repository-relative path MKCOL/COPY/PUT/
	// PROPPATCH/DELETE touched, in first-touched order, so MERGE can
	// report one committed-item per path.
	changed   []string
	changedOK map[string]bool
}

func (a *activity) noteChanged(path string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.changedOK == nil {
		a.changedOK = map[string]bool{}
	}
	if a.changedOK[path] {
		return
	}
	a.changedOK[path] = true
	a.changed = append(a.changed, path)
}

// newActivityID returns a fresh RFC 4122 version-4 UUID, the form
// mod_dav_svn assigns every activity (svn_uuid_generate in the original).
func newActivityID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(svnlog.Throw(svnlog.ClassInternal, "reading random bytes for activity id: %v", err))
	}
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}

func (s *Server) createActivity(baseRev int64) (*activity, error) {
	return s.createActivityAt(newActivityID(), baseRev)
}

// createActivityAt registers an activity under a client-chosen id: the
// MKACTIVITY request's URL names the activity (commit.go picks the id
// itself and issues MKACTIVITY at ActivityCollection+"/"+id), so the
// server does not get to mint its own.
func (s *Server) createActivityAt(id string, baseRev int64) (*activity, error) {
	txn, err := s.Repo.OpenTransaction(baseRev)
	if err != nil {
		return nil, err
	}
	a := &activity{id: id, txn: txn, checkedOut: map[string]bool{}, revprops: map[string]string{}}
	s.activities.Set(a.id, a)
	return a, nil
}

func (s *Server) getActivity(id string) (*activity, bool) {
	v, ok := s.activities.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*activity), true
}

func (s *Server) removeActivity(id string) {
	s.activities.Remove(id)
}

// newActivities returns an empty activity table.
func newActivities() cmap.ConcurrentMap {
	return cmap.New()
}
