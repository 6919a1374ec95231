// Package xmlproto implements the XML element model and encoding rules of
// spec.md §4.5 and §6 (component C5's wire framing): the update-report
// response decoder and the property-namespace / XML-safety encoding used
// by both the update response and outbound PROPPATCH bodies.
package xmlproto

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/ianaindex"
)

// Namespace prefixes for property names on the wire (spec.md §4.5.3):
// svn:-prefixed names live in the "svn" namespace, everything else in the
// custom namespace.
const (
	NamespaceSVN    = "svn:"
	NamespaceCustom = "svn:custom/"
)

// SplitPropName returns the wire namespace for a property together with
// the property name unchanged (an svn: name keeps its prefix), mirroring mod_dav_svn/version.c's SVN_DAV_PROP_NS_SVN/
// SVN_DAV_PROP_NS_CUSTOM split.
func SplitPropName(name string) (namespace, local string) {
	if strings.HasPrefix(name, "svn:") {
		return NamespaceSVN, name
	}
	return NamespaceCustom, name
}

// utf8Probe is resolved once; ianaindex's UTF-8 encoding is used purely as
// a well-tested validity oracle here (its NewDecoder round-trips cleanly
// iff the input is valid UTF-8), standing in for a hand-rolled rune
// scanner.
var utf8Probe, _ = ianaindex.IANA.Encoding("UTF-8")

// IsXMLSafe reports whether value can be embedded as XML character data
// without escaping hazards: valid UTF-8 and free of C0 control bytes
// other than tab/LF/CR (spec.md §6's "non-XML-safe" test that gates
// base64 encoding of property values, lock owners, and comments).
func IsXMLSafe(value []byte) bool {
	if utf8Probe != nil {
		dec := utf8Probe.NewDecoder()
		if _, err := dec.Bytes(value); err != nil {
			return false
		}
	} else if !utf8.Valid(value) {
		return false
	}
	for _, b := range value {
		if b < 0x20 && b != '\t' && b != '\n' && b != '\r' {
			return false
		}
	}
	return true
}

// EncodePropValue returns the wire text and whether a
// encoding="base64" attribute is required for value.
func EncodePropValue(value []byte) (text string, base64Encoded bool) {
	if IsXMLSafe(value) {
		return string(value), false
	}
	return base64.StdEncoding.EncodeToString(value), true
}

// DecodePropValue inverts EncodePropValue given the wire text and whether
// the encoding="base64" attribute was present.
func DecodePropValue(text string, base64Encoded bool) ([]byte, error) {
	if !base64Encoded {
		return []byte(text), nil
	}
	return base64.StdEncoding.DecodeString(text)
}
