package svndiff

// decodeInstructions parses the instruction section into Instructions,
// validating that no instruction reads past the section and that NEW
// instructions don't exceed the new-data section (SOURCE/TARGET bounds
// against the source view and current output fill are checked by the
// Applier, which is the only place those bounds are known).
func decodeInstructions(section []byte, newDataLen uint64) ([]Instruction, error) {
	var out []Instruction
	var newPos uint64
	i := 0
	for i < len(section) {
		b := section[i]
		i++
		kind := OpKind(b >> 6)
		if kind > OpNew {
			return nil, ErrReservedOpcode
		}
		length := uint64(b & 0x3f)
		if length == 0 {
			l, n, err := DecodeUvarint(section[i:])
			if err != nil {
				return nil, ErrInstructionRange
			}
			i += n
			length = l
		}
		var offset uint64
		if kind == OpSource || kind == OpTarget {
			o, n, err := DecodeUvarint(section[i:])
			if err != nil {
				return nil, ErrInstructionRange
			}
			i += n
			offset = o
		} else {
			offset = newPos
			newPos += length
			if newPos > newDataLen {
				return nil, ErrNewDataRange
			}
		}
		out = append(out, Instruction{Kind: kind, Offset: offset, Length: length})
	}
	return out, nil
}

// DecodeWindow parses one window from the front of data (the portion
// following the 4-byte stream header, if any), returning the window, the
// number of bytes consumed, and an error. It performs every check that can
// be made without access to the source buffer or current output fill
// (section bounds, instruction well-formedness, total-length agreement);
// SOURCE/TARGET range checks happen in Applier.ApplyWindow, which is the
// only place those bounds are known.
func DecodeWindow(data []byte, version byte) (*Window, int, error) {
	pos := 0
	next := func() (uint64, error) {
		v, n, err := DecodeUvarint(data[pos:])
		if err != nil {
			return 0, err
		}
		pos += n
		return v, nil
	}

	srcOff, err := next()
	if err != nil {
		return nil, 0, ErrTruncatedWindow
	}
	srcLen, err := next()
	if err != nil {
		return nil, 0, ErrTruncatedWindow
	}
	tgtLen, err := next()
	if err != nil {
		return nil, 0, ErrTruncatedWindow
	}
	insSectionLen, err := next()
	if err != nil {
		return nil, 0, ErrTruncatedWindow
	}
	newSectionLen, err := next()
	if err != nil {
		return nil, 0, ErrTruncatedWindow
	}

	if tgtLen == 0 && insSectionLen == 0 && newSectionLen == 0 {
		return &Window{SourceViewOffset: srcOff, SourceViewLen: srcLen}, pos, nil
	}

	if uint64(len(data)-pos) < insSectionLen {
		return nil, 0, ErrTruncatedWindow
	}
	insSection := data[pos : pos+int(insSectionLen)]
	pos += int(insSectionLen)

	if uint64(len(data)-pos) < newSectionLen {
		return nil, 0, ErrTruncatedWindow
	}
	newSection := data[pos : pos+int(newSectionLen)]
	pos += int(newSectionLen)

	var insBytes, newBytes []byte
	if version == VersionZlib {
		ib, _, err := decompressSection(insSection)
		if err != nil {
			return nil, 0, err
		}
		nb, _, err := decompressSection(newSection)
		if err != nil {
			return nil, 0, err
		}
		insBytes, newBytes = ib, nb
	} else {
		insBytes, newBytes = insSection, newSection
	}

	instructions, err := decodeInstructions(insBytes, uint64(len(newBytes)))
	if err != nil {
		return nil, 0, err
	}

	var totalOut uint64
	for _, in := range instructions {
		totalOut += in.Length
	}
	if totalOut != tgtLen {
		return nil, 0, ErrLengthMismatch
	}

	return &Window{
		SourceViewOffset: srcOff,
		SourceViewLen:    srcLen,
		TargetViewLen:    tgtLen,
		Instructions:     instructions,
		NewData:          newBytes,
	}, pos, nil
}
