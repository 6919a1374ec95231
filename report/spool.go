package report

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"

	"github.com/go-svn/svncore/internal/svnlog"
)

// Sender delivers a finished report body to the repository's VCC URL and
// returns the server's response stream. wireproto/client supplies the
// concrete implementation (an HTTP REPORT request against a live
// session); report itself has no notion of URLs or transports, per
// spec.md's Design Notes on keeping the reporter transport-agnostic.
type Sender func(body io.Reader) (io.ReadCloser, error)

// SpoolReporter accumulates report entries into an on-disk spool file
// rather than memory, as spec.md §4.4 requires ("spooling to disk ... is
// required for very large working copies"): a working copy with a
// hundred thousand directories would otherwise force the whole report
// body to live in RAM before a single byte reaches the wire.
type SpoolReporter struct {
	targetRev int64
	sendAll   bool
	send      Sender

	spool     *os.File
	anchorSet bool
	finished  bool
}

// NewSpoolReporter opens a fresh spool file for a report targeting rev,
// requesting send-all mode if sendAll is set. send is invoked exactly
// once, by FinishReport, to deliver the completed body.
func NewSpoolReporter(targetRev int64, sendAll bool, send Sender) (*SpoolReporter, error) {
	f, err := os.CreateTemp("", "svn-update-report-*.xml")
	if err != nil {
		return nil, svnlog.Wrap(svnlog.CodeIO, err, "creating report spool file")
	}
	r := &SpoolReporter{targetRev: targetRev, sendAll: sendAll, send: send, spool: f}
	header := fmt.Sprintf(
		"<S:update-report send-all=\"%t\" xmlns:S=\"svn:\">\n<S:target-revision rev=\"%d\"/>\n",
		sendAll, targetRev)
	if _, err := f.WriteString(header); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, svnlog.Wrap(svnlog.CodeIO, err, "writing report header")
	}
	return r, nil
}

func escapeAttr(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

func escapeText(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

func (r *SpoolReporter) checkOpen(who string) error {
	if r.finished {
		return svnlog.Errorf(svnlog.CodeProtocol, "%s called on a finished or aborted reporter", who)
	}
	if who != "SetPath" && !r.anchorSet {
		return svnlog.Errorf(svnlog.CodeProtocol, "%s called before the anchor SetPath", who)
	}
	return nil
}

func (r *SpoolReporter) SetPath(path string, rev int64, startEmpty bool, lockToken string) error {
	if err := r.checkOpen("SetPath"); err != nil {
		return err
	}
	if !r.anchorSet && path != "" {
		return svnlog.Errorf(svnlog.CodeProtocol, "first SetPath must report the empty (anchor) path, got %q", path)
	}
	var attrs bytes.Buffer
	fmt.Fprintf(&attrs, " rev=\"%d\"", rev)
	if lockToken != "" {
		fmt.Fprintf(&attrs, " lock-token=\"%s\"", escapeAttr(lockToken))
	}
	if startEmpty {
		attrs.WriteString(" start-empty=\"true\"")
	}
	_, err := fmt.Fprintf(r.spool, "<S:entry%s>%s</S:entry>\n", attrs.String(), escapeText(path))
	if err != nil {
		return svnlog.Wrap(svnlog.CodeIO, err, "writing set-path entry")
	}
	r.anchorSet = true
	return nil
}

func (r *SpoolReporter) LinkPath(path, url string, rev int64, startEmpty bool, lockToken string) error {
	if err := r.checkOpen("LinkPath"); err != nil {
		return err
	}
	var attrs bytes.Buffer
	fmt.Fprintf(&attrs, " rev=\"%d\"", rev)
	if lockToken != "" {
		fmt.Fprintf(&attrs, " lock-token=\"%s\"", escapeAttr(lockToken))
	}
	fmt.Fprintf(&attrs, " linkpath=\"%s\"", escapeAttr(url))
	if startEmpty {
		attrs.WriteString(" start-empty=\"true\"")
	}
	_, err := fmt.Fprintf(r.spool, "<S:entry%s>%s</S:entry>\n", attrs.String(), escapeText(path))
	if err != nil {
		return svnlog.Wrap(svnlog.CodeIO, err, "writing link-path entry")
	}
	return nil
}

func (r *SpoolReporter) DeletePath(path string) error {
	if err := r.checkOpen("DeletePath"); err != nil {
		return err
	}
	_, err := fmt.Fprintf(r.spool, "<S:missing>%s</S:missing>\n", escapeText(path))
	if err != nil {
		return svnlog.Wrap(svnlog.CodeIO, err, "writing delete-path entry")
	}
	return nil
}

// FinishReport appends the closing tag, rewinds the spool, invokes send
// with it as the body, and then closes and removes the spool file.
func (r *SpoolReporter) FinishReport() (io.ReadCloser, error) {
	if err := r.checkOpen("FinishReport"); err != nil {
		return nil, err
	}
	if !r.anchorSet {
		return nil, svnlog.Errorf(svnlog.CodeProtocol, "FinishReport called with no SetPath entries")
	}
	if _, err := r.spool.WriteString("</S:update-report>\n"); err != nil {
		return nil, svnlog.Wrap(svnlog.CodeIO, err, "writing report trailer")
	}
	r.finished = true
	name := r.spool.Name()
	defer os.Remove(name)
	if _, err := r.spool.Seek(0, io.SeekStart); err != nil {
		r.spool.Close()
		return nil, svnlog.Wrap(svnlog.CodeIO, err, "rewinding report spool")
	}
	resp, err := r.send(r.spool)
	closeErr := r.spool.Close()
	if err != nil {
		return nil, err
	}
	if closeErr != nil {
		return nil, svnlog.Wrap(svnlog.CodeIO, closeErr, "closing report spool")
	}
	return resp, nil
}

// AbortReport discards the spool without sending anything.
func (r *SpoolReporter) AbortReport() error {
	if r.finished {
		return svnlog.Errorf(svnlog.CodeProtocol, "AbortReport called on a finished or aborted reporter")
	}
	r.finished = true
	name := r.spool.Name()
	err := r.spool.Close()
	os.Remove(name)
	if err != nil {
		return svnlog.Wrap(svnlog.CodeIO, err, "closing aborted report spool")
	}
	return nil
}
