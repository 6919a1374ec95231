// Package bytestream provides the counted-byte-string and stream primitives
// (spec.md §4.1, component C1): a ByteString/ByteBuf pair distinguishing an
// immutable, possibly-binary value from a growable buffer, and the Stream
// push/pull abstraction used to carry svndiff and property payloads.
package bytestream

import "bytes"

// ByteString is an immutable counted byte string. It may contain NUL bytes
// and is not required to be valid UTF-8; callers that need text semantics
// convert explicitly. The zero value is the empty string, distinct from a
// ByteString obtained from a nil slice only in that both compare Equal --
// "absent" is represented by a separate *ByteString at call sites that need
// the distinction (see spec.md §3's node-kind "none" vs. "absent").
type ByteString struct {
	data []byte
}

// NewByteString makes a ByteString owning a copy of b, so the caller's
// slice may be reused or mutated afterward without aliasing.
func NewByteString(b []byte) ByteString {
	if len(b) == 0 {
		return ByteString{}
	}
	dup := make([]byte, len(b))
	copy(dup, b)
	return ByteString{data: dup}
}

// NewByteStringFromString is the string-valued equivalent of NewByteString.
func NewByteStringFromString(s string) ByteString {
	return NewByteString([]byte(s))
}

// Bytes returns the underlying bytes. Callers must not mutate the result.
func (s ByteString) Bytes() []byte { return s.data }

// String renders the ByteString for debugging or for fields known to be
// text; it does not validate UTF-8.
func (s ByteString) String() string { return string(s.data) }

// Len reports the byte length.
func (s ByteString) Len() int { return len(s.data) }

// Equal compares two ByteStrings by length then content.
func (s ByteString) Equal(other ByteString) bool {
	return bytes.Equal(s.data, other.data)
}

// Dup returns an independent copy of s, for callers that hand a ByteString
// into a longer-lived arena than the one it was built in.
func (s ByteString) Dup() ByteString { return NewByteString(s.data) }

// ByteBuf is a growable byte buffer: the mutable counterpart to ByteString.
// Growth doubles capacity until the requested size fits, matching the
// doubling-growth policy spec.md §4.1 calls for.
type ByteBuf struct {
	buf []byte
}

// NewByteBuf allocates a ByteBuf with the given initial capacity.
func NewByteBuf(capacity int) *ByteBuf {
	if capacity < 0 {
		capacity = 0
	}
	return &ByteBuf{buf: make([]byte, 0, capacity)}
}

func (b *ByteBuf) grow(extra int) {
	need := len(b.buf) + extra
	if need <= cap(b.buf) {
		return
	}
	newCap := cap(b.buf)
	if newCap == 0 {
		newCap = 16
	}
	for newCap < need {
		newCap *= 2
	}
	grown := make([]byte, len(b.buf), newCap)
	copy(grown, b.buf)
	b.buf = grown
}

// Append appends raw bytes, amortized O(1) per call via doubling growth.
func (b *ByteBuf) Append(p []byte) {
	b.grow(len(p))
	b.buf = append(b.buf, p...)
}

// AppendString appends a Go string's bytes.
func (b *ByteBuf) AppendString(s string) { b.Append([]byte(s)) }

// AppendByte appends a single byte.
func (b *ByteBuf) AppendByte(c byte) {
	b.grow(1)
	b.buf = append(b.buf, c)
}

// Fill overwrites the entire live region of the buffer with c.
func (b *ByteBuf) Fill(c byte) {
	for i := range b.buf {
		b.buf[i] = c
	}
}

// Bytes returns the buffer's live region. The slice is invalidated by the
// next mutating call.
func (b *ByteBuf) Bytes() []byte { return b.buf }

// Len reports how many bytes have been written so far.
func (b *ByteBuf) Len() int { return len(b.buf) }

// Reset empties the buffer without releasing its capacity.
func (b *ByteBuf) Reset() { b.buf = b.buf[:0] }

// Freeze copies the buffer's contents into an immutable ByteString,
// transferring ownership out of the mutable buffer.
func (b *ByteBuf) Freeze() ByteString { return NewByteString(b.buf) }

// FindFirstNonWhitespace returns the index of the first byte in s that is
// not a space, tab, CR, or LF, or len(s) if none.
func FindFirstNonWhitespace(s []byte) int {
	for i, c := range s {
		if !isSVNSpace(c) {
			return i
		}
	}
	return len(s)
}

// StripWhitespace trims leading and trailing SVN-whitespace bytes from s.
func StripWhitespace(s []byte) []byte {
	start := 0
	for start < len(s) && isSVNSpace(s[start]) {
		start++
	}
	end := len(s)
	for end > start && isSVNSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

// FindCharBackward returns the index of the last occurrence of c in s, or
// -1 if not present.
func FindCharBackward(s []byte, c byte) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == c {
			return i
		}
	}
	return -1
}

// ChopBackToChar truncates s to end just after the last occurrence of c
// (inclusive of c itself). If c does not appear, s is returned unchanged.
func ChopBackToChar(s []byte, c byte) []byte {
	i := FindCharBackward(s, c)
	if i < 0 {
		return s
	}
	return s[:i+1]
}

func isSVNSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n':
		return true
	default:
		return false
	}
}
