package server

import (
	"encoding/xml"
	"io"

	"github.com/go-svn/svncore/wireproto/xmlproto"
)

// parsePropertyUpdate reads a PROPPATCH request body built by
// wireproto/client's proppatch helper: a DAV:propertyupdate wrapping a
// DAV:set/DAV:remove, each holding one element per property keyed by its
// svn:/custom namespace.
func parsePropertyUpdate(r io.Reader) (set map[string][]byte, remove []string, err error) {
	set = map[string][]byte{}
	dec := xml.NewDecoder(r)
	section := ""
	for {
		tok, terr := dec.Token()
		if terr == io.EOF {
			break
		}
		if terr != nil {
			return nil, nil, terr
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "set", "remove":
				section = t.Name.Local
			case "prop", "propertyupdate":
				// wrapper elements, nothing to do
			default:
				name := propName(t.Name)
				if section == "remove" {
					remove = append(remove, name)
					if err := dec.Skip(); err != nil {
						return nil, nil, err
					}
					continue
				}
				var et xmlproto.EncodedText
				if err := dec.DecodeElement(&et, &t); err != nil {
					return nil, nil, err
				}
				value, err := et.Decode()
				if err != nil {
					return nil, nil, err
				}
				set[name] = value
			}
		}
	}
	return set, remove, nil
}

func propName(n xml.Name) string {
	if n.Space == xmlproto.NamespaceSVN {
		return "svn:" + n.Local
	}
	return n.Local
}
