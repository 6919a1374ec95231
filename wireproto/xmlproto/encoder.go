package xmlproto

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"path"

	"github.com/go-svn/svncore/delta"
	"github.com/go-svn/svncore/svndiff"
)

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

// UpdateReportEncoder is an Editor that streams an update-report response
// as each call arrives, the server-side mirror of UpdateReportDecoder: it
// never builds the response tree in memory, matching spec.md §4.4's
// spooling discipline on the write side too.
type UpdateReportEncoder struct {
	w          io.Writer
	sendAll    bool
	targetRev  int64
	versionURL func(path string) string
	err        error
}

// dirBaton/fileBaton remember which tag opened them so CloseDirectory/
// CloseFile emit the matching close tag (encoding/xml.Decoder rejects
// mismatched open/close element names as malformed XML).
type dirBaton struct {
	path string
	tag  string
}
type fileBaton struct {
	path string
	tag  string
}

// NewUpdateReportEncoder builds an encoder writing to w. versionURL
// builds the href placed in each node's <S:checked-in> element; it may be
// nil if wc-prop hrefs aren't needed (e.g. in tests).
func NewUpdateReportEncoder(w io.Writer, targetRev int64, sendAll bool, versionURL func(string) string) *UpdateReportEncoder {
	return &UpdateReportEncoder{w: w, targetRev: targetRev, sendAll: sendAll, versionURL: versionURL}
}

func (e *UpdateReportEncoder) write(format string, args ...interface{}) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}

func relName(full string) string { return path.Base(full) }

func (e *UpdateReportEncoder) SetTargetRevision(rev int64) error {
	e.targetRev = rev
	return nil
}

func (e *UpdateReportEncoder) OpenRoot(baseRev int64) (interface{}, error) {
	e.write("<S:update-report xmlns:S=\"svn:\" xmlns:D=\"DAV:\" send-all=\"%t\">\n", e.sendAll)
	e.write("<S:target-revision rev=\"%d\"/>\n", e.targetRev)
	e.write("<S:open-directory rev=\"%d\">\n", baseRev)
	e.writeCheckedIn("")
	return &dirBaton{path: "", tag: "open-directory"}, e.err
}

func (e *UpdateReportEncoder) writeCheckedIn(path string) {
	if e.versionURL == nil {
		return
	}
	e.write("<S:checked-in><D:href>%s</D:href></S:checked-in>\n", escapeText(e.versionURL(path)))
}

func (e *UpdateReportEncoder) DeleteEntry(path string, rev int64, parent interface{}) error {
	e.write("<S:delete-entry name=\"%s\"/>\n", escapeAttr(relName(path)))
	return e.err
}

func (e *UpdateReportEncoder) AddDirectory(p string, parent interface{}, copyFrom *delta.CopyFrom) (interface{}, error) {
	if copyFrom != nil {
		e.write("<S:add-directory name=\"%s\" copyfrom-path=\"%s\" copyfrom-rev=\"%d\">\n", escapeAttr(relName(p)), escapeAttr(copyFrom.Path), copyFrom.Rev)
	} else {
		e.write("<S:add-directory name=\"%s\">\n", escapeAttr(relName(p)))
	}
	e.writeCheckedIn(p)
	return &dirBaton{path: p, tag: "add-directory"}, e.err
}

func (e *UpdateReportEncoder) OpenDirectory(p string, parent interface{}, baseRev int64) (interface{}, error) {
	e.write("<S:open-directory name=\"%s\" rev=\"%d\">\n", escapeAttr(relName(p)), baseRev)
	e.writeCheckedIn(p)
	return &dirBaton{path: p, tag: "open-directory"}, e.err
}

func (e *UpdateReportEncoder) ChangeDirProp(dir interface{}, name string, value []byte, hasValue bool) error {
	e.writeProp(name, value, hasValue)
	return e.err
}

func (e *UpdateReportEncoder) writeProp(name string, value []byte, hasValue bool) {
	if !hasValue {
		e.write("<S:remove-prop name=\"%s\"/>\n", escapeAttr(name))
		return
	}
	text, b64 := EncodePropValue(value)
	if b64 {
		e.write("<S:set-prop name=\"%s\" encoding=\"base64\">%s</S:set-prop>\n", escapeAttr(name), text)
	} else {
		e.write("<S:set-prop name=\"%s\">%s</S:set-prop>\n", escapeAttr(name), escapeText(text))
	}
}

func (e *UpdateReportEncoder) CloseDirectory(dir interface{}) error {
	b, _ := dir.(*dirBaton)
	tag := "open-directory"
	if b != nil {
		tag = b.tag
	}
	e.write("</S:%s>\n", tag)
	return e.err
}

func (e *UpdateReportEncoder) AbsentDirectory(path string, parent interface{}) error {
	e.write("<S:absent-directory name=\"%s\"/>\n", escapeAttr(relName(path)))
	return e.err
}

func (e *UpdateReportEncoder) AddFile(p string, parent interface{}, copyFrom *delta.CopyFrom) (interface{}, error) {
	if copyFrom != nil {
		e.write("<S:add-file name=\"%s\" copyfrom-path=\"%s\" copyfrom-rev=\"%d\">\n", escapeAttr(relName(p)), escapeAttr(copyFrom.Path), copyFrom.Rev)
	} else {
		e.write("<S:add-file name=\"%s\">\n", escapeAttr(relName(p)))
	}
	e.writeCheckedIn(p)
	return &fileBaton{path: p, tag: "add-file"}, e.err
}

func (e *UpdateReportEncoder) OpenFile(p string, parent interface{}, baseRev int64) (interface{}, error) {
	e.write("<S:open-file name=\"%s\" rev=\"%d\">\n", escapeAttr(relName(p)), baseRev)
	e.writeCheckedIn(p)
	return &fileBaton{path: p, tag: "open-file"}, e.err
}

func (e *UpdateReportEncoder) ApplyTextDelta(file interface{}, baseChecksum string) (delta.WindowHandler, error) {
	if !e.sendAll {
		// non-send-all mode: the server tells the client to fetch the
		// file out of band instead of inlining the delta.
		e.write("<S:fetch-file/>\n")
		return func(w *svndiff.Window) error { return nil }, e.err
	}
	var windows []*svndiff.Window
	return func(w *svndiff.Window) error {
		if w == nil {
			raw := svndiff.WriteTo(nil, windows, 0)
			e.write("<S:txdelta>%s</S:txdelta>\n", base64.StdEncoding.EncodeToString(raw))
			return e.err
		}
		windows = append(windows, w)
		return nil
	}, nil
}

func (e *UpdateReportEncoder) ChangeFileProp(file interface{}, name string, value []byte, hasValue bool) error {
	e.writeProp(name, value, hasValue)
	return e.err
}

func (e *UpdateReportEncoder) CloseFile(file interface{}, resultChecksum string) error {
	b, _ := file.(*fileBaton)
	tag := "add-file"
	if b != nil {
		tag = b.tag
	}
	e.write("</S:%s>\n", tag)
	return e.err
}

func (e *UpdateReportEncoder) AbsentFile(path string, parent interface{}) error {
	e.write("<S:absent-file name=\"%s\"/>\n", escapeAttr(relName(path)))
	return e.err
}

func (e *UpdateReportEncoder) CloseEdit() error {
	e.write("</S:update-report>\n")
	return e.err
}

func (e *UpdateReportEncoder) AbortEdit() error { return e.err }
