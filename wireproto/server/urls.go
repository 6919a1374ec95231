package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// URL layout mirrors mod_dav_svn's "special URIs": a public namespace at
// Root, and four private collections under Root+"/!svn/" keyed by purpose
// (version resources, baseline collections, activities, working
// resources). See mod_dav_svn/version.c's comment block on special URIs.
//
// Every href this server hands out is absolute (scheme + Host of the
// incoming request + Root), since wireproto/client builds *http.Request
// values directly from whatever URL it's given; the parse* helpers accept
// either form by stripping a leading scheme/host first.
func externalBase(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func (s *Server) vccURL(r *http.Request) string { return externalBase(r) + s.Root + "/!svn/vcc/default" }

func (s *Server) baselineCollectionURL(r *http.Request, rev int64) string {
	return fmt.Sprintf("%s%s/!svn/bc/%d", externalBase(r), s.Root, rev)
}

func (s *Server) versionURL(r *http.Request, rev int64, path string) string {
	if path == "" {
		return fmt.Sprintf("%s%s/!svn/ver/%d", externalBase(r), s.Root, rev)
	}
	return fmt.Sprintf("%s%s/!svn/ver/%d/%s", externalBase(r), s.Root, rev, path)
}

func (s *Server) activityURL(r *http.Request, id string) string {
	return externalBase(r) + s.Root + "/!svn/act/" + id
}

func (s *Server) activityCollectionURL(r *http.Request) string {
	return externalBase(r) + s.Root + "/!svn/act"
}

func (s *Server) workingURL(r *http.Request, activityID, path string) string {
	if path == "" {
		return fmt.Sprintf("%s%s/!svn/wrk/%s", externalBase(r), s.Root, activityID)
	}
	return fmt.Sprintf("%s%s/!svn/wrk/%s/%s", externalBase(r), s.Root, activityID, path)
}

// stripOrigin removes a leading "scheme://host" from u, if present,
// leaving a path the parse* helpers below can match against s.Root.
func stripOrigin(u string) string {
	if i := strings.Index(u, "://"); i >= 0 {
		rest := u[i+3:]
		if j := strings.Index(rest, "/"); j >= 0 {
			return rest[j:]
		}
		return "/"
	}
	return u
}

// parseSpecial strips Root and the "/!svn/<kind>/" prefix shared by every
// private URL, returning the kind, the first path segment after it
// (revision number or activity id), and the remainder.
func (s *Server) parseSpecial(raw string) (kind, key, rest string, ok bool) {
	p := stripOrigin(raw)
	p = strings.TrimPrefix(p, s.Root)
	p = strings.TrimPrefix(p, "/")
	if !strings.HasPrefix(p, "!svn/") {
		return "", "", "", false
	}
	p = strings.TrimPrefix(p, "!svn/")
	parts := strings.SplitN(p, "/", 3)
	if len(parts) < 2 {
		return "", "", "", false
	}
	kind = parts[0]
	key = parts[1]
	if len(parts) == 3 {
		rest = parts[2]
	}
	return kind, key, rest, true
}

func (s *Server) parseWorkingURL(raw string) (activityID, relPath string, ok bool) {
	kind, key, rest, ok := s.parseSpecial(raw)
	if !ok || kind != "wrk" {
		return "", "", false
	}
	return key, rest, true
}

func (s *Server) parseBaselineURL(raw string) (rev int64, relPath string, ok bool) {
	kind, key, rest, ok := s.parseSpecial(raw)
	if !ok || kind != "bc" {
		return 0, "", false
	}
	n, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return 0, "", false
	}
	return n, rest, true
}

func (s *Server) parseVersionURL(raw string) (rev int64, relPath string, ok bool) {
	kind, key, rest, ok := s.parseSpecial(raw)
	if !ok || kind != "ver" {
		return 0, "", false
	}
	n, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return 0, "", false
	}
	return n, rest, true
}

func (s *Server) parseActivityURL(raw string) (id string, ok bool) {
	kind, key, _, ok := s.parseSpecial(raw)
	if !ok || kind != "act" {
		return "", false
	}
	return key, true
}

// publicRelPath strips Root from a public-namespace request path (one
// outside "/!svn/..."), returning the repository-relative path.
func (s *Server) publicRelPath(raw string) string {
	p := stripOrigin(raw)
	p = strings.TrimPrefix(p, s.Root)
	return strings.Trim(p, "/")
}
