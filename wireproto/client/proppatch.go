package client

import (
	"bytes"
	"fmt"

	"github.com/go-svn/svncore/wireproto/xmlproto"
)

// proppatch builds and sends a single PROPPATCH request setting every
// name/value in set and removing every name in remove, splitting each
// name into the svn:/custom DAV namespace and base64-encoding values
// that are not XML-safe (spec.md §4.5.3's property accumulation rule).
func proppatch(session *Session, url string, set map[string]string, remove []string) error {
	if len(set) == 0 && len(remove) == 0 {
		return nil
	}
	var body bytes.Buffer
	body.WriteString(`<D:propertyupdate xmlns:D="DAV:" xmlns:svn="svn:" xmlns:C="svn:custom/">`)
	if len(set) > 0 {
		body.WriteString("<D:set><D:prop>")
		for name, value := range set {
			writePropElement(&body, name, []byte(value))
		}
		body.WriteString("</D:prop></D:set>")
	}
	if len(remove) > 0 {
		body.WriteString("<D:remove><D:prop>")
		for _, name := range remove {
			ns, local := xmlproto.SplitPropName(name)
			prefix, tag := propTag(ns, local)
			fmt.Fprintf(&body, "<%s:%s/>", prefix, tag)
		}
		body.WriteString("</D:prop></D:remove>")
	}
	body.WriteString("</D:propertyupdate>")

	resp, err := session.do("PROPPATCH", url, bytes.NewReader(body.Bytes()), map[string]string{"Content-Type": "text/xml"})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return session.checkStatus(resp, 207, 200)
}

// applyPropChanges translates an accumulated set of per-path property
// changes (spec.md §4.5.3's change_dir_prop/change_file_prop
// accumulation) into one PROPPATCH request.
func applyPropChanges(session *Session, url string, changes map[string]propChange) error {
	set := map[string]string{}
	var remove []string
	for name, ch := range changes {
		if ch.hasValue {
			set[name] = string(ch.value)
		} else {
			remove = append(remove, name)
		}
	}
	return proppatch(session, url, set, remove)
}

func propTag(namespace, local string) (prefix, tag string) {
	if namespace == xmlproto.NamespaceSVN {
		return "svn", local[len("svn:"):]
	}
	return "C", local
}

func writePropElement(buf *bytes.Buffer, name string, value []byte) {
	ns, local := xmlproto.SplitPropName(name)
	prefix, tag := propTag(ns, local)
	text, isBase64 := xmlproto.EncodePropValue(value)
	if isBase64 {
		fmt.Fprintf(buf, `<%s:%s encoding="base64">%s</%s:%s>`, prefix, tag, text, prefix, tag)
	} else {
		fmt.Fprintf(buf, "<%s:%s>%s</%s:%s>", prefix, tag, escapeXMLText(text), prefix, tag)
	}
}

func escapeXMLText(s string) string {
	var buf bytes.Buffer
	for _, r := range s {
		switch r {
		case '&':
			buf.WriteString("&amp;")
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		default:
			buf.WriteRune(r)
		}
	}
	return buf.String()
}
