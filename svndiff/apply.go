package svndiff

// Applier reconstructs a target byte sequence by applying a series of
// windows against a fixed source buffer, maintaining the growing output so
// TARGET instructions can copy from regions they are themselves producing
// (spec.md §8 property 2: a TARGET instruction whose source region
// overlaps its own output must still decode to the declared length, which
// means the copy proceeds byte-by-byte rather than via a bulk memmove).
type Applier struct {
	source []byte
	target []byte
}

// NewApplier starts a fresh reconstruction against source, which is the
// full base text (e.g. the previous revision's content); for an add with
// no predecessor, pass nil or an empty slice.
func NewApplier(source []byte) *Applier {
	return &Applier{source: source}
}

// ApplyWindow appends the target bytes described by w to the
// reconstruction, validating every bound spec.md §4.2 requires a decoder
// to enforce.
func (a *Applier) ApplyWindow(w *Window) error {
	if w.SourceViewOffset+w.SourceViewLen > uint64(len(a.source)) {
		return ErrSourceRange
	}
	var produced uint64
	// TARGET offsets are relative to the start of this window's output.
	winStart := uint64(len(a.target))
	for _, in := range w.Instructions {
		switch in.Kind {
		case OpSource:
			if in.Offset+in.Length > w.SourceViewLen {
				return ErrSourceRange
			}
			base := w.SourceViewOffset + in.Offset
			a.target = append(a.target, a.source[base:base+in.Length]...)
		case OpTarget:
			if in.Offset >= uint64(len(a.target))-winStart {
				return ErrTargetRange
			}
			// Byte-by-byte so a copy whose source region overlaps the
			// tail it is writing (distance < length) replicates the
			// expected repeating pattern instead of reading stale bytes.
			for i := uint64(0); i < in.Length; i++ {
				a.target = append(a.target, a.target[winStart+in.Offset+i])
			}
		case OpNew:
			if in.Offset+in.Length > uint64(len(w.NewData)) {
				return ErrNewDataRange
			}
			a.target = append(a.target, w.NewData[in.Offset:in.Offset+in.Length]...)
		default:
			return ErrReservedOpcode
		}
		produced += in.Length
	}
	if produced != w.TargetViewLen {
		return ErrLengthMismatch
	}
	return nil
}

// Bytes returns everything reconstructed so far.
func (a *Applier) Bytes() []byte { return a.target }
