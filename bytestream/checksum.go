package bytestream

import (
	"crypto/md5"
	"encoding/hex"
	"hash"

	"github.com/go-svn/svncore/internal/svnlog"
)

// MD5Checksum accumulates an MD5 digest incrementally over the bytes an
// apply-textdelta handler writes, the way the original computes a running
// digest over reconstructed file content without buffering the whole file.
type MD5Checksum struct {
	h hash.Hash
}

// NewMD5Checksum starts a fresh running digest.
func NewMD5Checksum() *MD5Checksum { return &MD5Checksum{h: md5.New()} }

// Write feeds more reconstructed bytes into the digest.
func (c *MD5Checksum) Write(p []byte) { c.h.Write(p) }

// HexDigest renders the running digest as the 32-hex-character string the
// wire protocol uses.
func (c *MD5Checksum) HexDigest() string { return hex.EncodeToString(c.h.Sum(nil)) }

// Verify compares the running digest against an expected hex digest,
// returning a CoreError carrying both values on mismatch, and nil
// (including when expected is empty, meaning the server didn't supply one)
// otherwise.
func (c *MD5Checksum) Verify(what, expectedHex string) error {
	if expectedHex == "" {
		return nil
	}
	actual := c.HexDigest()
	if actual != expectedHex {
		return svnlog.ChecksumMismatch(what, expectedHex, actual)
	}
	return nil
}
