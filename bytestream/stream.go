package bytestream

import (
	"encoding/base64"
	"io"
)

// WriteStream is the push side of the stream abstraction (spec.md §4.1): a
// write call is permitted to consume fewer bytes than it was given, exactly
// like the original svn_stream_t contract. Callers loop with WriteAll.
// Close flushes any trailing wrapper state (base64 padding, a svndiff
// terminator window) before releasing underlying resources.
type WriteStream interface {
	WriteSome(p []byte) (n int, err error)
	Close() error
}

// ReadStream is the pull side: ReadSome behaves like io.Reader.Read,
// returning io.EOF once exhausted.
type ReadStream interface {
	ReadSome(p []byte) (n int, err error)
	Close() error
}

// WriteAll loops WriteSome until all of p is consumed or an error occurs,
// the pattern every WriteStream caller is required to follow.
func WriteAll(w WriteStream, p []byte) error {
	for len(p) > 0 {
		n, err := w.WriteSome(p)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrNoProgress
		}
		p = p[n:]
	}
	return nil
}

// ReadAll drains a ReadStream into a byte slice.
func ReadAll(r ReadStream) ([]byte, error) {
	var out []byte
	buf := make([]byte, 32*1024)
	for {
		n, err := r.ReadSome(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
	}
}

// fileLikeWriteStream adapts any io.WriteCloser (a memory buffer, an
// os.File) to WriteStream. Because io.Writer's contract already requires
// consuming everything or erroring, this adapter always reports n ==
// len(p) on success; stream implementations that genuinely can't consume
// everything (the base64/svndiff wrappers below) implement WriteStream
// directly instead of going through this adapter.
type fileLikeWriteStream struct {
	w io.WriteCloser
}

// NewFileWriteStream wraps an io.WriteCloser (typically an *os.File) as a
// WriteStream.
func NewFileWriteStream(w io.WriteCloser) WriteStream { return fileLikeWriteStream{w} }

func (f fileLikeWriteStream) WriteSome(p []byte) (int, error) { return f.w.Write(p) }
func (f fileLikeWriteStream) Close() error                    { return f.w.Close() }

type fileLikeReadStream struct {
	r io.ReadCloser
}

// NewFileReadStream wraps an io.ReadCloser as a ReadStream.
func NewFileReadStream(r io.ReadCloser) ReadStream { return fileLikeReadStream{r} }

func (f fileLikeReadStream) ReadSome(p []byte) (int, error) { return f.r.Read(p) }
func (f fileLikeReadStream) Close() error                   { return f.r.Close() }

// memWriteStream accumulates everything written into an in-memory
// ByteBuf, for building small property/textdelta payloads without a temp
// file.
type memWriteStream struct {
	buf *ByteBuf
}

// NewMemWriteStream returns a WriteStream backed by buf.
func NewMemWriteStream(buf *ByteBuf) WriteStream { return memWriteStream{buf} }

func (m memWriteStream) WriteSome(p []byte) (int, error) {
	m.buf.Append(p)
	return len(p), nil
}
func (m memWriteStream) Close() error { return nil }

// memReadStream serves bytes out of an in-memory slice.
type memReadStream struct {
	data []byte
	pos  int
}

// NewMemReadStream returns a ReadStream over data.
func NewMemReadStream(data []byte) ReadStream { return &memReadStream{data: data} }

func (m *memReadStream) ReadSome(p []byte) (int, error) {
	if m.pos >= len(m.data) {
		return 0, io.EOF
	}
	n := copy(p, m.data[m.pos:])
	m.pos += n
	return n, nil
}
func (m *memReadStream) Close() error { return nil }

// base64EncodeStream wraps a WriteStream, base64-encoding everything
// written to it. Close flushes the encoder's trailing pad bytes before
// closing the underlying stream, per the "wrapper stream's close must
// flush trailing state" requirement in spec.md §4.1.
type base64EncodeStream struct {
	under WriteStream
	enc   io.WriteCloser
}

type writeStreamAdapter struct{ ws WriteStream }

func (a writeStreamAdapter) Write(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		k, err := a.ws.WriteSome(p[n:])
		if err != nil {
			return n, err
		}
		if k == 0 {
			return n, io.ErrNoProgress
		}
		n += k
	}
	return n, nil
}

// NewBase64EncodeStream returns a WriteStream that base64-encodes its
// input before forwarding it to under.
func NewBase64EncodeStream(under WriteStream) WriteStream {
	enc := base64.NewEncoder(base64.StdEncoding, writeStreamAdapter{under})
	return &base64EncodeStream{under: under, enc: enc}
}

func (b *base64EncodeStream) WriteSome(p []byte) (int, error) {
	// base64.Encoder.Write always consumes all of p or errors, matching
	// io.Writer; it never reports a short write.
	return b.enc.Write(p)
}

func (b *base64EncodeStream) Close() error {
	if err := b.enc.Close(); err != nil {
		return err
	}
	return b.under.Close()
}

// base64DecodeStream wraps a ReadStream, base64-decoding as it is read.
type base64DecodeStream struct {
	dec io.Reader
	under ReadStream
}

type readStreamAdapter struct{ rs ReadStream }

func (a readStreamAdapter) Read(p []byte) (int, error) { return a.rs.ReadSome(p) }

// NewBase64DecodeStream returns a ReadStream that base64-decodes bytes
// pulled from under.
func NewBase64DecodeStream(under ReadStream) ReadStream {
	return &base64DecodeStream{dec: base64.NewDecoder(base64.StdEncoding, readStreamAdapter{under}), under: under}
}

func (b *base64DecodeStream) ReadSome(p []byte) (int, error) { return b.dec.Read(p) }
func (b *base64DecodeStream) Close() error                   { return b.under.Close() }
