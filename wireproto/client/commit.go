package client

import (
	"bytes"
	"crypto/rand"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/go-svn/svncore/delta"
	"github.com/go-svn/svncore/internal/svnlog"
	"github.com/go-svn/svncore/svndiff"
	"github.com/go-svn/svncore/wireproto/xmlproto"
)

// CheckedInResolver looks up the DAV version URL a working copy has on
// record for path (its wc-prop), the source CHECKOUT is issued against
// (spec.md §4.5.3 step 3).
type CheckedInResolver func(path string) (string, error)

// CommitCallback receives the parsed MERGE response once a commit
// completes (spec.md §4.5.3 step 5).
type CommitCallback func(*xmlproto.MergeResult) error

type propChange struct {
	value    []byte
	hasValue bool
}

// commitContext is the shared state of one commit, grounded on
// libsvn_ra_serf/commit.c's commit_context_t: the activity URL, revprop
// table, lock tokens, the set of paths deleted so far, and the set of
// copied directories that lets child CHECKOUTs be skipped under a
// just-copied directory.
type commitContext struct {
	session      *Session
	resolve      CheckedInResolver
	callback     CommitCallback
	lockTokens   map[string]string
	keepLocks    bool
	activityURL  string
	workingRoot  string // working baseline resource, root of the checkout tree
	deleted      map[string]bool
	copiedRoots  map[string]bool
}

// dirState mirrors dir_context_t.
type dirState struct {
	commit       *commitContext
	path         string
	workingURL   string
	addedHistory bool
	changedProps map[string]propChange
}

// fileState mirrors the per-file baton of commit.c (no separate struct
// name there; files share dir_context_t's shape minus children).
type fileState struct {
	commit       *commitContext
	path         string
	workingURL   string
	addedHistory bool
	baseChecksum string
	changedProps map[string]propChange
	delta        *os.File
	deltaVersion byte
}

// CommitEditor is a delta.Editor that drives the MKACTIVITY → CHECKOUT →
// PUT/MKCOL/COPY/PROPPATCH → MERGE → DELETE choreography of spec.md
// §4.5.3 against a live Session.
type CommitEditor struct {
	ctx *commitContext
}

func newActivityID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}

// NewCommitEditor opens a new activity, checks out the baseline, and
// records logMessage plus any other revprops against it (spec.md
// §4.5.3 steps 1-2). The returned editor is ready to be driven.
func NewCommitEditor(session *Session, resolve CheckedInResolver, logMessage string, revprops map[string]string, lockTokens map[string]string, keepLocks bool, callback CommitCallback) (*CommitEditor, error) {
	if session.ActivityCollection == "" {
		return nil, svnlog.Errorf(svnlog.CodeProtocol, "NewCommitEditor called before Bootstrap")
	}
	activityURL := session.ActivityCollection + "/" + newActivityID()

	resp, err := session.do("MKACTIVITY", activityURL, nil, nil)
	if err != nil {
		return nil, err
	}
	resp.Body.Close()
	if err := session.checkStatus(resp, 201); err != nil {
		return nil, svnlog.Wrap(svnlog.CodeProtocol, err, "MKACTIVITY %s", activityURL)
	}

	baseline, err := session.DiscoverBaseline(0)
	if err != nil {
		return nil, err
	}
	checkoutBody := checkoutRequestBody(activityURL)
	coResp, err := session.do("CHECKOUT", baseline.Baseline, bytes.NewReader(checkoutBody), map[string]string{"Content-Type": "text/xml"})
	if err != nil {
		return nil, err
	}
	coResp.Body.Close()
	if err := session.checkStatus(coResp, 201, 204); err != nil {
		return nil, svnlog.Wrap(svnlog.CodeProtocol, err, "CHECKOUT baseline %s", baseline.Baseline)
	}
	workingRoot := coResp.Header.Get("Location")
	if workingRoot == "" {
		workingRoot = baseline.Baseline
	}

	all := map[string]string{}
	for k, v := range revprops {
		all[k] = v
	}
	all["svn:log"] = logMessage
	if err := proppatch(session, workingRoot, all, nil); err != nil {
		return nil, svnlog.Wrap(svnlog.CodeProtocol, err, "PROPPATCH revprops")
	}

	ctx := &commitContext{
		session:     session,
		resolve:     resolve,
		callback:    callback,
		lockTokens:  lockTokens,
		keepLocks:   keepLocks,
		activityURL: activityURL,
		workingRoot: workingRoot,
		deleted:     map[string]bool{},
		copiedRoots: map[string]bool{},
	}
	return &CommitEditor{ctx: ctx}, nil
}

func checkoutRequestBody(activityURL string) []byte {
	return []byte(fmt.Sprintf(
		`<D:checkout xmlns:D="DAV:"><D:activity-set><D:href>%s</D:href></D:activity-set></D:checkout>`,
		xmlEscape(activityURL)))
}

func xmlEscape(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

func basename(p string) string {
	return path.Base(strings.TrimRight(p, "/"))
}

func (c *CommitEditor) ifHeader(lockToken string, baseRev int64) string {
	if lockToken == "" {
		return ""
	}
	return fmt.Sprintf("(<%s>)", lockToken)
}

func (c *CommitEditor) SetTargetRevision(rev int64) error { return nil }

func (c *CommitEditor) OpenRoot(baseRev int64) (interface{}, error) {
	return &dirState{commit: c.ctx, path: "", workingURL: c.ctx.workingRoot, changedProps: map[string]propChange{}}, nil
}

func (c *CommitEditor) DeleteEntry(p string, rev int64, parent interface{}) error {
	d := parent.(*dirState)
	url := strings.TrimRight(d.workingURL, "/") + "/" + basename(p)
	headers := map[string]string{"SVN-Version-Name": strconv.FormatInt(rev, 10)}
	if tok := c.ctx.lockTokens[p]; tok != "" {
		headers["If"] = c.ifHeader(tok, rev)
	}
	resp, err := c.ctx.session.do("DELETE", url, nil, headers)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if err := c.ctx.session.checkStatus(resp, 204, 200); err != nil {
		return svnlog.Wrap(svnlog.CodeConflict, err, "DELETE %s", url)
	}
	c.ctx.deleted[p] = true
	return nil
}

func (c *CommitEditor) copyFromURL(cf *delta.CopyFrom) string {
	return fmt.Sprintf("%s/!svn/bc/%d/%s", c.ctx.session.publicRoot(), cf.Rev, strings.TrimLeft(cf.Path, "/"))
}

func (c *CommitEditor) AddDirectory(p string, parent interface{}, copyFrom *delta.CopyFrom) (interface{}, error) {
	d := parent.(*dirState)
	dst := strings.TrimRight(d.workingURL, "/") + "/" + basename(p)
	if copyFrom == nil {
		resp, err := c.ctx.session.do("MKCOL", dst, nil, nil)
		if err != nil {
			return nil, err
		}
		resp.Body.Close()
		if err := c.ctx.session.checkStatus(resp, 201); err != nil {
			return nil, svnlog.Wrap(svnlog.CodeProtocol, err, "MKCOL %s", dst)
		}
		return &dirState{commit: c.ctx, path: p, workingURL: dst, changedProps: map[string]propChange{}}, nil
	}
	src := c.copyFromURL(copyFrom)
	resp, err := c.ctx.session.do("COPY", src, nil, map[string]string{"Destination": dst, "Depth": "infinity", "Overwrite": "T"})
	if err != nil {
		return nil, err
	}
	resp.Body.Close()
	if err := c.ctx.session.checkStatus(resp, 201, 204); err != nil {
		return nil, svnlog.Wrap(svnlog.CodeProtocol, err, "COPY %s -> %s", src, dst)
	}
	c.ctx.copiedRoots[p] = true
	return &dirState{commit: c.ctx, path: p, workingURL: dst, addedHistory: true, changedProps: map[string]propChange{}}, nil
}

func (c *CommitEditor) OpenDirectory(p string, parent interface{}, baseRev int64) (interface{}, error) {
	d := parent.(*dirState)
	if d.addedHistory || c.underCopiedRoot(p) {
		url := strings.TrimRight(d.workingURL, "/") + "/" + basename(p)
		return &dirState{commit: c.ctx, path: p, workingURL: url, addedHistory: true, changedProps: map[string]propChange{}}, nil
	}
	checkedIn, err := c.ctx.resolve(p)
	if err != nil {
		return nil, err
	}
	resp, err := c.ctx.session.do("CHECKOUT", checkedIn, bytes.NewReader(checkoutRequestBody(c.ctx.activityURL)), map[string]string{"Content-Type": "text/xml"})
	if err != nil {
		return nil, err
	}
	resp.Body.Close()
	if err := c.ctx.session.checkStatus(resp, 201, 204); err != nil {
		return nil, svnlog.Wrap(svnlog.CodeConflict, err, "CHECKOUT %s", checkedIn)
	}
	url := resp.Header.Get("Location")
	if url == "" {
		url = checkedIn
	}
	return &dirState{commit: c.ctx, path: p, workingURL: url, changedProps: map[string]propChange{}}, nil
}

func (c *CommitEditor) underCopiedRoot(p string) bool {
	for root := range c.ctx.copiedRoots {
		if strings.HasPrefix(p, root+"/") {
			return true
		}
	}
	return false
}

func (c *CommitEditor) ChangeDirProp(dir interface{}, name string, value []byte, hasValue bool) error {
	d := dir.(*dirState)
	d.changedProps[name] = propChange{value: value, hasValue: hasValue}
	return nil
}

func (c *CommitEditor) CloseDirectory(dir interface{}) error {
	d := dir.(*dirState)
	if len(d.changedProps) == 0 {
		return nil
	}
	return applyPropChanges(c.ctx.session, d.workingURL, d.changedProps)
}

func (c *CommitEditor) AbsentDirectory(p string, parent interface{}) error { return nil }

func (c *CommitEditor) AddFile(p string, parent interface{}, copyFrom *delta.CopyFrom) (interface{}, error) {
	d := parent.(*dirState)
	dst := strings.TrimRight(d.workingURL, "/") + "/" + basename(p)
	if copyFrom == nil {
		publicURL := c.ctx.session.publicRoot() + "/" + strings.TrimLeft(p, "/")
		resp, err := c.ctx.session.do("HEAD", publicURL, nil, nil)
		if err != nil {
			return nil, err
		}
		resp.Body.Close()
		if resp.StatusCode != 404 {
			return nil, svnlog.Errorf(svnlog.CodeConflict, "AddFile %s: a node already exists at this path", p)
		}
		return &fileState{commit: c.ctx, path: p, workingURL: dst, changedProps: map[string]propChange{}}, nil
	}
	src := c.copyFromURL(copyFrom)
	resp, err := c.ctx.session.do("COPY", src, nil, map[string]string{"Destination": dst, "Depth": "0", "Overwrite": "T"})
	if err != nil {
		return nil, err
	}
	resp.Body.Close()
	if err := c.ctx.session.checkStatus(resp, 201, 204); err != nil {
		return nil, svnlog.Wrap(svnlog.CodeProtocol, err, "COPY %s -> %s", src, dst)
	}
	return &fileState{commit: c.ctx, path: p, workingURL: dst, addedHistory: true, changedProps: map[string]propChange{}}, nil
}

func (c *CommitEditor) OpenFile(p string, parent interface{}, baseRev int64) (interface{}, error) {
	d := parent.(*dirState)
	url := strings.TrimRight(d.workingURL, "/") + "/" + basename(p)
	return &fileState{commit: c.ctx, path: p, workingURL: url, changedProps: map[string]propChange{}}, nil
}

func (c *CommitEditor) ApplyTextDelta(file interface{}, baseChecksum string) (delta.WindowHandler, error) {
	f := file.(*fileState)
	f.baseChecksum = baseChecksum
	tmp, err := os.CreateTemp("", "svn-commit-delta-*.svndiff")
	if err != nil {
		return nil, svnlog.Wrap(svnlog.CodeIO, err, "creating commit delta spool")
	}
	f.delta = tmp
	f.deltaVersion = svndiff.VersionPlain
	if _, err := tmp.Write([]byte{svndiff.Magic[0], svndiff.Magic[1], svndiff.Magic[2], f.deltaVersion}); err != nil {
		return nil, svnlog.Wrap(svnlog.CodeIO, err, "writing svndiff header")
	}
	return func(w *svndiff.Window) error {
		if w == nil {
			_, err := tmp.Write((&svndiff.Window{}).Marshal(f.deltaVersion))
			return err
		}
		_, err := tmp.Write(w.Marshal(f.deltaVersion))
		return err
	}, nil
}

func (c *CommitEditor) ChangeFileProp(file interface{}, name string, value []byte, hasValue bool) error {
	f := file.(*fileState)
	f.changedProps[name] = propChange{value: value, hasValue: hasValue}
	return nil
}

func (c *CommitEditor) CloseFile(file interface{}, resultChecksum string) error {
	f := file.(*fileState)
	if f.delta != nil {
		defer os.Remove(f.delta.Name())
		if _, err := f.delta.Seek(0, io.SeekStart); err != nil {
			return svnlog.Wrap(svnlog.CodeIO, err, "rewinding commit delta spool")
		}
		headers := map[string]string{"Content-Type": "application/vnd.svn-svndiff"}
		if f.baseChecksum != "" {
			headers["X-SVN-Base-Fulltext-MD5"] = f.baseChecksum
		}
		if resultChecksum != "" {
			headers["X-SVN-Result-Fulltext-MD5"] = resultChecksum
		}
		if tok := c.ctx.lockTokens[f.path]; tok != "" {
			headers["If"] = c.ifHeader(tok, 0)
		}
		resp, err := c.ctx.session.do("PUT", f.workingURL, f.delta, headers)
		if err != nil {
			f.delta.Close()
			return err
		}
		resp.Body.Close()
		if err := f.delta.Close(); err != nil {
			return svnlog.Wrap(svnlog.CodeIO, err, "closing commit delta spool")
		}
		if err := c.ctx.session.checkStatus(resp, 204, 201, 200); err != nil {
			return svnlog.Wrap(svnlog.CodeProtocol, err, "PUT %s", f.workingURL)
		}
	}
	if len(f.changedProps) > 0 {
		return applyPropChanges(c.ctx.session, f.workingURL, f.changedProps)
	}
	return nil
}

func (c *CommitEditor) AbsentFile(p string, parent interface{}) error { return nil }

func (c *CommitEditor) CloseEdit() error {
	mergeBody := []byte(fmt.Sprintf(
		`<D:merge xmlns:D="DAV:"><D:source><D:href>%s</D:href></D:source><D:no-auto-merge/><D:no-checkout/></D:merge>`,
		xmlEscape(c.ctx.activityURL)))
	resp, err := c.ctx.session.do("MERGE", c.ctx.session.publicRoot()+"/", bytes.NewReader(mergeBody), map[string]string{"Content-Type": "text/xml"})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := c.ctx.session.checkStatus(resp, 200, 201); err != nil {
		return svnlog.Wrap(svnlog.CodeConflict, err, "MERGE %s", c.ctx.activityURL)
	}
	var ms xmlproto.Multistatus
	if err := xml.NewDecoder(resp.Body).Decode(&ms); err != nil {
		return svnlog.Wrap(svnlog.CodeProtocol, err, "parsing MERGE response")
	}
	result := mergeResultFromMultistatus(&ms)

	c.deleteActivity()

	if c.ctx.callback != nil {
		return c.ctx.callback(result)
	}
	return nil
}

func (c *CommitEditor) AbortEdit() error {
	c.deleteActivity()
	return nil
}

func (c *CommitEditor) deleteActivity() {
	resp, err := c.ctx.session.do("DELETE", c.ctx.activityURL, nil, nil)
	if err != nil {
		return
	}
	resp.Body.Close()
}

func mergeResultFromMultistatus(ms *xmlproto.Multistatus) *xmlproto.MergeResult {
	set := ms.UpdatedSet
	if set == nil {
		set = ms.MergedSet
	}
	result := &xmlproto.MergeResult{}
	var responses []xmlproto.MultistatusItem
	if set != nil {
		responses = set.Responses
	} else {
		responses = ms.Responses
	}
	for _, r := range responses {
		if len(r.Propstat) == 0 {
			continue
		}
		p := r.Propstat[0].Prop
		rev, _ := strconv.ParseInt(p.VersionName, 10, 64)
		if rev > result.NewRevision {
			result.NewRevision = rev
		}
		result.Items = append(result.Items, xmlproto.CommittedItem{
			Href:   r.Href,
			Rev:    rev,
			Date:   p.CreationDate,
			Author: p.CreatorDisplayName,
		})
	}
	return result
}
