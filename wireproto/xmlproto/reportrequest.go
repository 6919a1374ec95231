package xmlproto

import (
	"encoding/xml"
	"io"
)

// ReportEntry is one <S:entry>/<S:missing> directive from an incoming
// update-report REPORT request body, the server-side mirror of what
// report.SpoolReporter writes on the client side.
type ReportEntry struct {
	Path       string
	Rev        int64
	StartEmpty bool
	LockToken  string
	LinkPath   string
	Missing    bool
}

// UpdateReportRequest is a fully parsed update-report request: the
// client's requested target revision, its send-all preference, and the
// ordered set of path directives describing its working copy's current
// state (spec.md §4.5.2's reporter walk).
type UpdateReportRequest struct {
	TargetRevision int64
	SendAll        bool
	Entries        []ReportEntry
}

// ParseUpdateReportRequest reads the body SpoolReporter produces.
func ParseUpdateReportRequest(r io.Reader) (*UpdateReportRequest, error) {
	dec := xml.NewDecoder(r)
	req := &UpdateReportRequest{}
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "update-report":
			v, _ := attr(se, "send-all")
			req.SendAll = v == "true"
		case "target-revision":
			req.TargetRevision = attrInt64(se, "rev", 0)
		case "entry":
			startEmpty, _ := attr(se, "start-empty")
			lockToken, _ := attr(se, "lock-token")
			linkPath, _ := attr(se, "linkpath")
			entry := ReportEntry{
				Rev:        attrInt64(se, "rev", 0),
				StartEmpty: startEmpty == "true",
				LockToken:  lockToken,
				LinkPath:   linkPath,
			}
			var text string
			if err := dec.DecodeElement(&text, &se); err != nil {
				return nil, err
			}
			entry.Path = text
			req.Entries = append(req.Entries, entry)
		case "missing":
			var text string
			if err := dec.DecodeElement(&text, &se); err != nil {
				return nil, err
			}
			req.Entries = append(req.Entries, ReportEntry{Path: text, Missing: true})
		}
	}
	return req, nil
}

// Anchor returns the request's anchor entry, the first non-missing entry
// (always path ""), and whether one was found.
func (r *UpdateReportRequest) Anchor() (ReportEntry, bool) {
	for _, e := range r.Entries {
		if !e.Missing {
			return e, true
		}
	}
	return ReportEntry{}, false
}
