package xmlproto

import "encoding/xml"

// PropfindVCC is the depth-0 PROPFIND body of spec.md §4.5.1's bootstrap
// discovery, requesting the VCC, resource type, and baseline-relative
// path of a public URL.
type PropfindVCC struct {
	XMLName xml.Name `xml:"D:propfind"`
	XmlnsD  string   `xml:"xmlns:D,attr"`
	XmlnsS  string   `xml:"xmlns:S,attr"`
	Prop    struct {
		VCC                  *struct{} `xml:"D:version-controlled-configuration"`
		ResourceType         *struct{} `xml:"D:resourcetype"`
		BaselineRelativePath *struct{} `xml:"S:baseline-relative-path"`
	} `xml:"D:prop"`
}

// NewPropfindVCC builds the standard depth-0 discovery PROPFIND body.
func NewPropfindVCC() *PropfindVCC {
	p := &PropfindVCC{XmlnsD: "DAV:", XmlnsS: "svn:"}
	p.Prop.VCC = &struct{}{}
	p.Prop.ResourceType = &struct{}{}
	p.Prop.BaselineRelativePath = &struct{}{}
	return p
}

// Multistatus is the generic 207 response envelope used for PROPFIND and
// MERGE responses.
type Multistatus struct {
	XMLName   xml.Name          `xml:"DAV: multistatus"`
	Responses []MultistatusItem `xml:"response"`
	// UpdatedSet / MergedSet hold the new overall revision for a MERGE
	// response (spec.md §4.5.3 step 5); at most one is present.
	UpdatedSet *VersionControlledConfiguration `xml:"updated-set"`
	MergedSet  *VersionControlledConfiguration `xml:"merged-set"`
}

// VersionControlledConfiguration wraps the nested responses describing
// each committed resource inside a MERGE response's updated-set/merged-set.
type VersionControlledConfiguration struct {
	Responses []MultistatusItem `xml:"response"`
}

// MultistatusItem is one <D:response> element: an href plus whichever
// DAV/svn properties the server chose to report for it (discovery
// properties during PROPFIND, or committed-item properties during
// MERGE).
type MultistatusItem struct {
	Href     string     `xml:"href"`
	Propstat []Propstat `xml:"propstat"`
}

// Propstat is one <D:propstat> block: a status line plus the property
// set it covers.
type Propstat struct {
	Status string `xml:"status"`
	Prop   Prop   `xml:"prop"`
}

// Prop is the union of every property this module's PROPFIND/MERGE
// responses ever populate; a real server only ever fills in the subset
// relevant to the request, as mod_dav_svn's own handlers do.
type Prop struct {
	VCC                  *Href     `xml:"version-controlled-configuration"`
	ResourceType         *struct{} `xml:"resourcetype"`
	BaselineRelativePath string    `xml:"baseline-relative-path"`
	CheckedIn            *Href     `xml:"checked-in"`
	BaselineCollection   *Href     `xml:"baseline-collection"`
	VersionName          string    `xml:"version-name"`
	CreationDate         string    `xml:"creationdate"`
	CreatorDisplayName   string    `xml:"creator-displayname"`
}

// Href is a DAV property whose value is a single nested <D:href>.
type Href struct {
	Href string `xml:"href"`
}

// ActivityCollectionSet is the OPTIONS response fragment advertising
// where to MKACTIVITY new activities (spec.md §4.5.3 step 1).
type ActivityCollectionSet struct {
	XMLName  xml.Name `xml:"DAV: options-response"`
	Activity []string `xml:"activity-collection-set>href"`
}

// CommittedItem is one entry of a parsed MERGE response: the resource's
// new version URL, committed revision, date, and author (spec.md
// §4.5.3 step 5).
type CommittedItem struct {
	Href         string
	Rev          int64
	Date         string
	Author       string
}

// MergeResult is the parsed form of a MERGE response: the new overall
// revision plus the per-resource committed items.
type MergeResult struct {
	NewRevision int64
	Items       []CommittedItem
}

// Locations is the get-locations REPORT response of spec.md §4.5.5.
type Locations struct {
	XMLName xml.Name `xml:"svn: get-locations-report"`
	Entries []struct {
		Rev  int64  `xml:"rev,attr"`
		Path string `xml:"path,attr"`
	} `xml:"location"`
}

// EncodedText is element text that may carry an encoding="base64"
// attribute, per spec.md §6's XML-safety rule for lock owners/comments
// and custom property values.
type EncodedText struct {
	Encoding string `xml:"encoding,attr,omitempty"`
	Text     string `xml:",chardata"`
}

// Decode returns the raw bytes, reversing base64 encoding if present.
func (e EncodedText) Decode() ([]byte, error) {
	return DecodePropValue(e.Text, e.Encoding == "base64")
}

// LockEntry is one lock reported by get-locks-report (spec.md §4.5.6).
type LockEntry struct {
	Path           string      `xml:"path"`
	Token          string      `xml:"token"`
	Owner          EncodedText `xml:"owner"`
	Comment        EncodedText `xml:"comment"`
	CreationDate   string      `xml:"creationdate"`
	ExpirationDate string      `xml:"expirationdate"`
}

// GetLocksReport is the get-locks-report response envelope.
type GetLocksReport struct {
	XMLName xml.Name    `xml:"svn: get-locks-report"`
	Locks   []LockEntry `xml:"lock"`
}

// DatedRevReport is the dated-rev-report response: a single revision
// number (spec.md §4.5.6).
type DatedRevReport struct {
	XMLName     xml.Name `xml:"svn: dated-rev-report"`
	VersionName int64    `xml:"DAV: version-name"`
}

// LocationSegment is one contiguous range from get-location-segments
// (spec.md §4.5.7).
type LocationSegment struct {
	RangeStart int64  `xml:"range-start,attr"`
	RangeEnd   int64  `xml:"range-end,attr"`
	Path       string `xml:"path,attr"`
}

// LocationSegmentsReport is the get-location-segments response envelope.
type LocationSegmentsReport struct {
	XMLName  xml.Name          `xml:"svn: get-location-segments-report"`
	Segments []LocationSegment `xml:"location-segment"`
}

// FileRevision is one entry of a file-revs REPORT response (spec.md
// §4.5.7): a revision in which path's content or properties changed.
type FileRevision struct {
	Path          string            `xml:"path,attr"`
	Rev           int64             `xml:"rev,attr"`
	RevProps      map[string]string `xml:"-"`
	PropChanges   map[string]string `xml:"-"`
	HasTextDelta  bool              `xml:"-"`
	TextDeltaB64  string            `xml:"txdelta"`
}
