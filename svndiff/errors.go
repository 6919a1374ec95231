package svndiff

import "errors"

// Sentinel decode errors. Window-validity failures (spec.md §4.2's
// "decoder MUST reject...") are returned as these rather than as
// svnlog.CoreError so the svndiff package stays independent of the wider
// module; wireproto wraps them with svnlog.CodeProtocol at the boundary.
var (
	ErrVarintTruncated  = errors.New("svndiff: truncated varint")
	ErrVarintOverflow   = errors.New("svndiff: varint overflow")
	ErrBadMagic         = errors.New("svndiff: bad stream header magic")
	ErrBadVersion       = errors.New("svndiff: unsupported svndiff version")
	ErrTruncatedWindow  = errors.New("svndiff: truncated window")
	ErrInstructionRange = errors.New("svndiff: instruction reads past its section")
	ErrSourceRange      = errors.New("svndiff: SOURCE reference exceeds source view")
	ErrTargetRange      = errors.New("svndiff: TARGET reference exceeds current output fill")
	ErrNewDataRange     = errors.New("svndiff: NEW reference exceeds new-data section")
	ErrLengthMismatch   = errors.New("svndiff: instruction output length does not match target view length")
	ErrReservedOpcode   = errors.New("svndiff: reserved instruction opcode")
)
