package svndiff

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTripArbitraryText(t *testing.T) {
	cases := []struct {
		source, target string
	}{
		{"", ""},
		{"", "hello world"},
		{"hello world", "hello world"},
		{"the quick brown fox", "the slow brown fox jumps"},
		{"abcdefabcdefabcdef", "xxabcdefyyabcdefzz"},
	}
	for _, c := range cases {
		stream := Diff([]byte(c.source), []byte(c.target))
		got, err := Apply([]byte(c.source), stream)
		require.NoError(t, err)
		require.Equal(t, c.target, string(got))
	}
}

func TestSelfReferentialRun(t *testing.T) {
	const n = 1 << 20 // 1 MiB
	target := bytes.Repeat([]byte{0x5a}, n)
	stream := Diff(nil, target)
	got, err := Apply(nil, stream)
	require.NoError(t, err)
	require.Equal(t, n, len(got))
	require.True(t, bytes.Equal(target, got))
}

func TestTargetInstructionManualOverlap(t *testing.T) {
	// Directly exercise the Applier with a hand-built window whose TARGET
	// instruction's source region overlaps the bytes it produces,
	// independent of whatever the encoder happens to choose.
	w := &Window{
		TargetViewLen: 5,
		Instructions: []Instruction{
			{Kind: OpNew, Offset: 0, Length: 1},
			{Kind: OpTarget, Offset: 0, Length: 4},
		},
		NewData: []byte{'Q'},
	}
	a := NewApplier(nil)
	require.NoError(t, a.ApplyWindow(w))
	require.Equal(t, "QQQQQ", string(a.Bytes()))
}

func TestVarintRoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 127, 128, 300, 1 << 20, 1 << 40, ^uint64(0) >> 1} {
		enc := AppendUvarint(nil, v)
		got, n, err := DecodeUvarint(enc)
		require.NoError(t, err)
		require.Equal(t, len(enc), n)
		require.Equal(t, v, got)
	}
}

func TestDecodeWindowRejectsBadTargetReference(t *testing.T) {
	w := &Window{
		TargetViewLen: 3,
		Instructions: []Instruction{
			{Kind: OpTarget, Offset: 5, Length: 3},
		},
	}
	a := NewApplier([]byte("source"))
	err := a.ApplyWindow(w)
	require.ErrorIs(t, err, ErrTargetRange)
}

func TestDecodeWindowRejectsLengthMismatch(t *testing.T) {
	data := []byte("hello")
	w := &Window{
		SourceViewLen: uint64(len(data)),
		TargetViewLen: 10,
		Instructions: []Instruction{
			{Kind: OpSource, Offset: 0, Length: 5},
		},
	}
	a := NewApplier(data)
	err := a.ApplyWindow(w)
	require.ErrorIs(t, err, ErrLengthMismatch)
}

func TestZlibVersionRoundTrip(t *testing.T) {
	source := []byte("the quick brown fox jumps over the lazy dog, repeatedly, over and over")
	target := append(append([]byte{}, source...), source...)
	e := NewEncoder()
	windows := e.Encode(source, target)
	stream := WriteTo(nil, windows, VersionZlib)
	got, err := Apply(source, stream)
	require.NoError(t, err)
	require.Equal(t, target, got)
}

func TestPushParserAccumulatesPartialWrites(t *testing.T) {
	source := []byte("aaaaaaaaaabbbbbbbbbbccccccccccdddddddddd")
	target := []byte("aaaaaaaaaaZZZccccccccccdddddddddd")
	stream := Diff(source, target)

	var windows []*Window
	var ended bool
	p := NewParser(func(w *Window) error {
		if w == nil {
			ended = true
			return nil
		}
		windows = append(windows, w)
		return nil
	})

	total := 0
	for i := 0; i < len(stream); i += 3 {
		end := i + 3
		if end > len(stream) {
			end = len(stream)
		}
		n, err := p.Write(stream[i:end])
		require.NoError(t, err)
		total += n
	}
	require.True(t, ended)
	require.Equal(t, len(stream), total)

	a := NewApplier(source)
	for _, w := range windows {
		require.NoError(t, a.ApplyWindow(w))
	}
	require.Equal(t, string(target), string(a.Bytes()))
}

func TestParserRejectsBadMagic(t *testing.T) {
	p := NewParser(func(w *Window) error { return nil })
	_, err := p.Write([]byte("XXXX"))
	require.ErrorIs(t, err, ErrBadMagic)
}
