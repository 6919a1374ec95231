package svndiff

// Encoder produces a near-minimal window sequence for a (source, target)
// pair using a rolling-hash block matcher against the concatenation of
// source and the target bytes already emitted, per spec.md §4.2's
// "SHOULD find repeated substrings ... with a rolling-hash matcher". A
// correct encoder may fall back to emitting every target region as a
// single NEW instruction; this one does that too, for any stretch too
// short to be worth a match.
type Encoder struct {
	blockSize       int
	maxWindowTarget int
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithBlockSize overrides the rolling-hash block size (default 64 bytes,
// the spec's suggested typical value).
func WithBlockSize(n int) Option { return func(e *Encoder) { e.blockSize = n } }

// WithMaxWindowTarget overrides the per-window target-byte cap (default
// 100 KiB, the spec's acceptable default).
func WithMaxWindowTarget(n int) Option { return func(e *Encoder) { e.maxWindowTarget = n } }

// NewEncoder builds an Encoder with the given options applied over the
// spec's suggested defaults.
func NewEncoder(opts ...Option) *Encoder {
	e := &Encoder{blockSize: 64, maxWindowTarget: 100 * 1024}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

const rollingBase = 257

// blockHash computes a simple polynomial rolling hash of a block-size
// chunk, used only to bucket candidate match positions; every candidate is
// verified byte-for-byte before being trusted; this is a Rabin-style
// matcher, not a cryptographic hash.
func blockHash(data []byte) uint64 {
	var h uint64
	for _, b := range data {
		h = h*rollingBase + uint64(b)
	}
	return h
}

// Encode produces the full window sequence transforming source into
// target. Windows are capped at maxWindowTarget bytes of target content
// each; the caller concatenates their output to reconstruct target in
// full (spec.md §3).
func (e *Encoder) Encode(source, target []byte) []*Window {
	var windows []*Window
	for start := 0; start < len(target); {
		end := start + e.maxWindowTarget
		if end > len(target) {
			end = len(target)
		}
		windows = append(windows, e.encodeWindow(source, target[start:end]))
		start = end
	}
	return windows
}

// encodeWindow emits one window covering chunk (a slice of the overall
// target), matching against source and against chunk's own already-emitted
// prefix (enabling TARGET self-reference for repetitive data, spec.md §8
// property 2).
func (e *Encoder) encodeWindow(source, chunk []byte) *Window {
	w := &Window{
		SourceViewOffset: 0,
		SourceViewLen:    uint64(len(source)),
		TargetViewLen:    uint64(len(chunk)),
	}

	if len(chunk) == 0 {
		return w
	}

	block := e.blockSize
	if block < 1 {
		block = 1
	}

	// Index block-sized substrings of source by hash, for SOURCE matches.
	srcIndex := make(map[uint64][]int)
	if len(source) >= block {
		for i := 0; i+block <= len(source); i++ {
			h := blockHash(source[i : i+block])
			srcIndex[h] = append(srcIndex[h], i)
		}
	}

	var newData []byte
	var ins []Instruction

	pos := 0
	literalStart := 0
	emitLiteral := func(uptoPos int) {
		if uptoPos <= literalStart {
			return
		}
		ins = append(ins, Instruction{Kind: OpNew, Offset: uint64(len(newData)), Length: uint64(uptoPos - literalStart)})
		newData = append(newData, chunk[literalStart:uptoPos]...)
	}

	for pos < len(chunk) {
		matched := false

		// Prefer a TARGET self-reference: a run of the same byte (or a
		// short repeating unit) already present in this window's own
		// output, which is what makes highly repetitive content (e.g. a
		// multi-megabyte run of one byte) collapse to a couple of
		// instructions instead of one NEW per byte.
		if pos > 0 {
			runLen := 1
			for pos+runLen < len(chunk) && chunk[pos+runLen] == chunk[pos] {
				runLen++
			}
			if runLen >= 4 && chunk[pos-1] == chunk[pos] {
				emitLiteral(pos)
				ins = append(ins, Instruction{Kind: OpTarget, Offset: uint64(pos - 1), Length: uint64(runLen)})
				pos += runLen
				literalStart = pos
				matched = true
			}
		}
		if matched {
			continue
		}

		if len(source) >= block && pos+block <= len(chunk) {
			h := blockHash(chunk[pos : pos+block])
			if candidates, ok := srcIndex[h]; ok {
				best := -1
				bestLen := 0
				for _, c := range candidates {
					if !bytesEqual(source[c:c+block], chunk[pos:pos+block]) {
						continue
					}
					l := block
					for c+l < len(source) && pos+l < len(chunk) && source[c+l] == chunk[pos+l] {
						l++
					}
					if l > bestLen {
						bestLen = l
						best = c
					}
				}
				if best >= 0 && bestLen >= block {
					emitLiteral(pos)
					ins = append(ins, Instruction{Kind: OpSource, Offset: uint64(best), Length: uint64(bestLen)})
					pos += bestLen
					literalStart = pos
					matched = true
				}
			}
		}

		if !matched {
			pos++
		}
	}
	emitLiteral(len(chunk))

	w.Instructions = ins
	w.NewData = newData
	return w
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
