package svndiff

// WindowHandler receives each decoded window as it becomes available. A
// nil window signals end-of-stream (spec.md §4.2).
type WindowHandler func(w *Window) error

// Parser is the push side of the codec: bytes are written to it
// incrementally (typically as they arrive off the network), and once a
// complete window has accumulated, it invokes the configured
// WindowHandler. Partial windows are buffered internally.
//
// Write reports exactly how many bytes it consumed, including bytes that
// only completed a partial header or section -- spec.md §9 calls out the
// original implementation's inaccurate byte-accounting as a defect and
// specifies faithful reporting as the corrected behavior, which is what
// this does.
type Parser struct {
	handler   WindowHandler
	buf       []byte
	sawHeader bool
	version   byte
	done      bool
}

// NewParser returns a Parser that invokes handler as windows complete.
func NewParser(handler WindowHandler) *Parser {
	return &Parser{handler: handler}
}

// Write feeds more bytes into the parser, decoding and dispatching as many
// complete windows as the accumulated buffer allows.
func (p *Parser) Write(data []byte) (n int, err error) {
	if p.done {
		return 0, nil
	}
	p.buf = append(p.buf, data...)
	consumed := 0

	if !p.sawHeader {
		if len(p.buf) < 4 {
			return len(data), nil
		}
		if p.buf[0] != Magic[0] || p.buf[1] != Magic[1] || p.buf[2] != Magic[2] {
			return 0, ErrBadMagic
		}
		version := p.buf[3]
		if version != VersionPlain && version != VersionZlib {
			return 0, ErrBadVersion
		}
		p.version = version
		p.sawHeader = true
		p.buf = p.buf[4:]
		consumed += 4
	}

	for {
		w, used, err := DecodeWindow(p.buf, p.version)
		if err == ErrTruncatedWindow {
			break // wait for more bytes
		}
		if err != nil {
			return consumed, err
		}
		p.buf = p.buf[used:]
		consumed += used
		if w.IsEndOfStream() {
			p.done = true
			if herr := p.handler(nil); herr != nil {
				return consumed, herr
			}
			break
		}
		if herr := p.handler(w); herr != nil {
			return consumed, herr
		}
	}
	if p.done {
		// Bytes after the end-of-stream window are not consumed.
		return len(data) - len(p.buf), nil
	}
	return len(data), nil
}

// Close signals that no more bytes will arrive; a push-parser closed
// without having seen an explicit zero-length terminator window still
// reports end-of-stream to its handler, per spec.md §4.2 ("An end-of-stream
// is signaled by a window whose target length is zero or by closing the
// underlying byte stream").
func (p *Parser) Close() error {
	if p.done {
		return nil
	}
	p.done = true
	return p.handler(nil)
}
