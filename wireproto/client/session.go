// Package client implements the client half of the wire protocol of
// spec.md §4.5 (component C5): session bootstrap, the update-report
// driver, and the remote commit editor.
package client

import (
	"bytes"
	"encoding/xml"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-svn/svncore/internal/svnlog"
	"github.com/go-svn/svncore/wireproto/xmlproto"
	"github.com/sirupsen/logrus"
)

// Session is a bound connection to one repository, holding the
// discovered VCC/baseline/BC URLs and activity-collection URL (spec.md
// §4.5.1). It is not safe for concurrent use by multiple goroutines
// driving independent updates/commits, matching the single-threaded
// cooperative model of spec.md §5.
type Session struct {
	HTTP   *http.Client
	Log    *logrus.Logger
	Root   string // server base URL, e.g. http://host (no repository path)
	PublicPath string // repository-relative path the session was opened against

	VCCURL             string
	ActivityCollection string
}

// NewSession opens a session against root using the given HTTP client
// (nil selects http.DefaultClient) and logger (nil selects svnlog.New()).
func NewSession(root string, httpClient *http.Client, log *logrus.Logger) *Session {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if log == nil {
		log = svnlog.New()
	}
	return &Session{HTTP: httpClient, Log: log, Root: strings.TrimRight(root, "/")}
}

// publicRoot is the full URL the session was bootstrapped against
// (Root plus PublicPath), the prefix copy-from/MERGE/HEAD-probe URLs
// are built against.
func (s *Session) publicRoot() string {
	return s.Root + "/" + strings.TrimLeft(s.PublicPath, "/")
}

func (s *Session) do(method, url string, body io.Reader, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return nil, svnlog.Wrap(svnlog.CodeIO, err, "building %s %s", method, url)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	s.Log.WithFields(logrus.Fields{"method": method, "url": url}).Debug("wire request")
	resp, err := s.HTTP.Do(req)
	if err != nil {
		return nil, svnlog.Wrap(svnlog.CodeIO, err, "%s %s", method, url)
	}
	return resp, nil
}

// Bootstrap performs the depth-0 PROPFIND discovery of spec.md §4.5.1
// against publicPath, recording the VCC URL, then an OPTIONS against the
// server base URL (Root) to record the activity-collection URL.
func (s *Session) Bootstrap(publicPath string) error {
	s.PublicPath = publicPath
	body, err := xml.Marshal(xmlproto.NewPropfindVCC())
	if err != nil {
		return svnlog.Wrap(svnlog.CodeIO, err, "marshaling discovery PROPFIND")
	}
	url := s.Root + "/" + strings.TrimLeft(publicPath, "/")
	resp, err := s.do("PROPFIND", url, bytes.NewReader(body), map[string]string{
		"Depth":        "0",
		"Content-Type": "text/xml",
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 207 {
		return svnlog.Errorf(svnlog.CodeProtocol, "discovery PROPFIND on %s: unexpected status %d", url, resp.StatusCode)
	}
	var ms xmlproto.Multistatus
	if err := xml.NewDecoder(resp.Body).Decode(&ms); err != nil {
		return svnlog.Wrap(svnlog.CodeProtocol, err, "parsing discovery PROPFIND response")
	}
	if len(ms.Responses) == 0 || len(ms.Responses[0].Propstat) == 0 {
		return svnlog.Errorf(svnlog.CodeProtocol, "discovery PROPFIND on %s returned no properties", url)
	}
	vcc := ms.Responses[0].Propstat[0].Prop.VCC
	if vcc == nil || vcc.Href == "" {
		return svnlog.Errorf(svnlog.CodeProtocol, "discovery PROPFIND on %s returned no version-controlled-configuration", url)
	}
	s.VCCURL = vcc.Href

	optResp, err := s.do("OPTIONS", s.Root+"/", nil, nil)
	if err != nil {
		return err
	}
	defer optResp.Body.Close()
	var opts xmlproto.ActivityCollectionSet
	if err := xml.NewDecoder(optResp.Body).Decode(&opts); err == nil && len(opts.Activity) > 0 {
		s.ActivityCollection = opts.Activity[0]
	} else {
		// Fall back to the conventional !svn/act/ layout most servers use
		// when the OPTIONS body doesn't carry an explicit advertisement.
		s.ActivityCollection = s.Root + "/!svn/act"
	}
	return nil
}

// Baseline is the result of resolving a revision (or HEAD) to its
// baseline and baseline-collection URLs (spec.md §4.5.1).
type Baseline struct {
	Rev       int64
	Baseline  string
	Collection string
}

// DiscoverBaseline resolves rev (0 meaning HEAD) to its baseline URL via
// the VCC, then reads the baseline-collection URL and revision number
// from it.
func (s *Session) DiscoverBaseline(rev int64) (*Baseline, error) {
	headers := map[string]string{"Content-Type": "text/xml"}
	if rev > 0 {
		headers["Label"] = strconv.FormatInt(rev, 10)
	}
	body, err := xml.Marshal(xmlproto.NewPropfindVCC())
	if err != nil {
		return nil, svnlog.Wrap(svnlog.CodeIO, err, "marshaling baseline PROPFIND")
	}
	resp, err := s.do("PROPFIND", s.VCCURL, bytes.NewReader(body), headers)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var ms xmlproto.Multistatus
	if err := xml.NewDecoder(resp.Body).Decode(&ms); err != nil {
		return nil, svnlog.Wrap(svnlog.CodeProtocol, err, "parsing baseline PROPFIND response")
	}
	if len(ms.Responses) == 0 || len(ms.Responses[0].Propstat) == 0 {
		return nil, svnlog.Errorf(svnlog.CodeProtocol, "baseline PROPFIND returned no properties")
	}
	prop := ms.Responses[0].Propstat[0].Prop
	if prop.BaselineCollection == nil {
		return nil, svnlog.Errorf(svnlog.CodeProtocol, "baseline PROPFIND returned no baseline-collection")
	}
	n, _ := strconv.ParseInt(prop.VersionName, 10, 64)
	return &Baseline{Rev: n, Baseline: ms.Responses[0].Href, Collection: prop.BaselineCollection.Href}, nil
}

func (s *Session) checkStatus(resp *http.Response, want ...int) error {
	for _, w := range want {
		if resp.StatusCode == w {
			return nil
		}
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return svnlog.Errorf(svnlog.CodeProtocol, "unexpected status %d (wanted %v): %s", resp.StatusCode, want, string(data))
}
