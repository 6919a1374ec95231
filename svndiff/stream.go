package svndiff

// WriteTo serializes a complete svndiff stream -- the 4-byte header, each
// window in order, and the zero-length terminator window -- appending the
// bytes to dst and returning the extended slice. version selects
// VersionPlain or VersionZlib.
func WriteTo(dst []byte, windows []*Window, version byte) []byte {
	dst = append(dst, Magic[0], Magic[1], Magic[2], version)
	for _, w := range windows {
		dst = append(dst, w.Marshal(version)...)
	}
	dst = append(dst, (&Window{}).Marshal(version)...)
	return dst
}

// DecodeAll parses a complete svndiff stream (header through terminator)
// from data and returns its content windows in order.
func DecodeAll(data []byte) ([]*Window, error) {
	if len(data) < 4 {
		return nil, ErrTruncatedWindow
	}
	if data[0] != Magic[0] || data[1] != Magic[1] || data[2] != Magic[2] {
		return nil, ErrBadMagic
	}
	version := data[3]
	if version != VersionPlain && version != VersionZlib {
		return nil, ErrBadVersion
	}
	pos := 4
	var windows []*Window
	for pos < len(data) {
		w, n, err := DecodeWindow(data[pos:], version)
		if err != nil {
			return nil, err
		}
		pos += n
		if w.IsEndOfStream() {
			return windows, nil
		}
		windows = append(windows, w)
	}
	return windows, nil
}

// Apply decodes and applies a complete svndiff stream against source in
// one call, returning the reconstructed target bytes. This is the
// convenience path most callers (apply-textdelta handlers reading a whole
// PUT body or inline send-all payload) actually want.
func Apply(source, svndiffStream []byte) ([]byte, error) {
	windows, err := DecodeAll(svndiffStream)
	if err != nil {
		return nil, err
	}
	a := NewApplier(source)
	for _, w := range windows {
		if err := a.ApplyWindow(w); err != nil {
			return nil, err
		}
	}
	return a.Bytes(), nil
}

// Diff is the convenience inverse of Apply: encode source→target into a
// complete svndiff stream using default Encoder settings.
func Diff(source, target []byte) []byte {
	e := NewEncoder()
	windows := e.Encode(source, target)
	return WriteTo(nil, windows, VersionPlain)
}
