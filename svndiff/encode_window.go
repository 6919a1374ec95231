package svndiff

import (
	"bytes"
	"compress/zlib"
	"io"
)

// instructionByte packs an instruction's opcode and, when it fits in six
// bits and is non-zero, its length, into the single leading byte spec.md
// §4.2 describes. A zero return for inline means the length must follow
// as a separate varint.
func instructionByte(kind OpKind, length uint64) (b byte, inline bool) {
	top := byte(kind) << 6
	if length > 0 && length <= 0x3f {
		return top | byte(length), true
	}
	return top, false
}

// encodeInstructions serializes instructions into the wire's instruction
// section bytes.
func encodeInstructions(ins []Instruction) []byte {
	var out []byte
	for _, op := range ins {
		b, inline := instructionByte(op.Kind, op.Length)
		out = append(out, b)
		if !inline {
			out = AppendUvarint(out, op.Length)
		}
		if op.Kind == OpSource || op.Kind == OpTarget {
			out = AppendUvarint(out, op.Offset)
		}
	}
	return out
}

// compressSection zlib-compresses data for a version-1 window, prefixed
// by a varint "original length" as spec.md §4.2 describes. If compression
// doesn't shrink the data, the original length equals the compressed
// length, signaling "stored uncompressed" to the decoder.
func compressSection(data []byte) []byte {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	zw.Write(data)
	zw.Close()
	compressed := buf.Bytes()
	if len(compressed) >= len(data) {
		out := AppendUvarint(nil, uint64(len(data)))
		return append(out, data...)
	}
	out := AppendUvarint(nil, uint64(len(data)))
	return append(out, compressed...)
}

func decompressSection(data []byte) ([]byte, int, error) {
	origLen, n, err := DecodeUvarint(data)
	if err != nil {
		return nil, 0, err
	}
	rest := data[n:]
	// The compressed payload length isn't separately framed inside a
	// section; callers pass exactly the section's declared byte count in
	// `data`, so whatever remains after the length varint is the payload.
	payload := rest
	if uint64(len(payload)) == origLen {
		// Stored uncompressed.
		return payload, n + len(payload), nil
	}
	zr, err := zlib.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, 0, err
	}
	out, err := io.ReadAll(io.LimitReader(zr, int64(origLen)))
	if err != nil {
		return nil, 0, err
	}
	zr.Close()
	return out, n + len(payload), nil
}

// Marshal serializes w as one on-the-wire window for the given stream
// version (VersionPlain or VersionZlib).
func (w *Window) Marshal(version byte) []byte {
	insBytes := encodeInstructions(w.Instructions)
	newBytes := w.NewData

	var insSection, newSection []byte
	if version == VersionZlib {
		insSection = compressSection(insBytes)
		newSection = compressSection(newBytes)
	} else {
		insSection = insBytes
		newSection = newBytes
	}

	var out []byte
	out = AppendUvarint(out, w.SourceViewOffset)
	out = AppendUvarint(out, w.SourceViewLen)
	out = AppendUvarint(out, w.TargetViewLen)
	out = AppendUvarint(out, uint64(len(insSection)))
	out = AppendUvarint(out, uint64(len(newSection)))
	out = append(out, insSection...)
	out = append(out, newSection...)
	return out
}
