package drawlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zireael.local/zrtui/internal/style"
	"zireael.local/zrtui/internal/wire"
)

func newTestBuilder() *Builder {
	return NewBuilder(V1, DefaultCaps())
}

// TestTextInAStack reproduces spec.md §8 scenario 1. The command-stream
// byte total (the 5 commands, 128 bytes) matches the worked example exactly;
// total_size additionally carries the interned "hello" string's span-table
// and bytes sections, per the general invariant in §8's first bullet.
func TestTextInAStack(t *testing.T) {
	b := newTestBuilder()
	must(t, b.Clear())
	must(t, b.FillRect(0, 0, 80, 25, &style.Style{BG: &style.Color{}}))
	must(t, b.PushClip(1, 1, 78, 23))
	must(t, b.DrawText(1, 1, "hello", nil))
	must(t, b.PopClip())

	out, err := b.Build()
	require.NoError(t, err)

	r, err := NewReader(out)
	require.NoError(t, err)
	cmds, err := r.Commands()
	require.NoError(t, err)
	require.Len(t, cmds, 5)

	wantOps := []Opcode{OpClear, OpFillRect, OpPushClip, OpDrawText, OpPopClip}
	for i, c := range cmds {
		assert.Equalf(t, wantOps[i], c.Op, "cmds[%d].Op", i)
	}
	assert.Equal(t, 1, r.StringCount())
	assert.Equal(t, 0, r.BlobCount())
	s, err := r.String(0)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(s))

	const wantCmdBytes = 8 + 40 + 24 + 48 + 8
	gotCmdBytes := int(wire.GetU32(out[hCmdBytes:]))
	assert.Equal(t, wantCmdBytes, gotCmdBytes)
	wantTotal := HeaderSize + wantCmdBytes + spanSize + wire.Align4Int(len("hello"))
	assert.Equal(t, wantTotal, int(r.TotalSize))
}

// TestDedup reproduces spec.md §8 scenario 2.
func TestDedup(t *testing.T) {
	b := newTestBuilder()
	must(t, b.DrawText(0, 0, "a", nil))
	must(t, b.DrawText(0, 1, "a", nil))
	must(t, b.DrawText(0, 2, "b", nil))

	out, err := b.Build()
	require.NoError(t, err)
	r, err := NewReader(out)
	require.NoError(t, err)
	assert.Equal(t, 2, r.StringCount())
	cmds, err := r.Commands()
	require.NoError(t, err)
	idxOf := func(payload []byte) uint32 { return wire.GetU32(payload[8:]) }
	assert.Equal(t, idxOf(cmds[0].Payload), idxOf(cmds[1].Payload), "both \"a\" draws should reference the same string index")
	assert.NotEqual(t, idxOf(cmds[0].Payload), idxOf(cmds[2].Payload), "\"a\" and \"b\" must not share a string index")
}

// TestTextRun reproduces spec.md §8 scenario 3.
func TestTextRun(t *testing.T) {
	b := newTestBuilder()
	errIdx, err := b.AddString("Error ")
	require.NoError(t, err)
	xIdx, err := b.AddString("x")
	require.NoError(t, err)
	segs := []TextRunSegment{
		{Style: &style.Style{Bold: true, FG: &style.Color{R: 255}}, StringIndex: errIdx, ByteOffset: 0, ByteLen: uint32(len("Error "))},
		{Style: nil, StringIndex: xIdx, ByteOffset: 0, ByteLen: 1},
	}
	blobIdx, err := b.AddTextRunBlob(segs)
	require.NoError(t, err)
	must(t, b.DrawTextRun(0, 0, blobIdx))

	out, err := b.Build()
	require.NoError(t, err)
	r, err := NewReader(out)
	require.NoError(t, err)
	assert.Equal(t, 1, r.BlobCount())
	assert.Equal(t, 2, r.StringCount())
	blob, err := r.Blob(0)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), wire.GetU32(blob[0:]), "segment count")
	assert.Len(t, blob, 4+2*textRunSegSize)
}

// TestCapExceeded reproduces spec.md §8 scenario 4: two large text draws
// where the second would push a byte budget over its cap yields TOO_LARGE,
// and the error is latched.
func TestCapExceeded(t *testing.T) {
	caps := DefaultCaps()
	caps.MaxStringBytes = 128

	b := NewBuilder(V1, caps)
	longA := make([]byte, 100)
	for i := range longA {
		longA[i] = 'a'
	}
	longB := make([]byte, 100)
	for i := range longB {
		longB[i] = 'b'
	}
	_ = b.DrawText(0, 0, string(longA), nil)
	err := b.DrawText(0, 1, string(longB), nil)
	require.Error(t, err)
	be, ok := err.(*BuildError)
	require.True(t, ok, "want *BuildError")
	assert.Equal(t, TooLarge, be.Code)

	// latched: a subsequent legal call still returns the same error.
	err2 := b.Clear()
	assert.Same(t, err, err2, "poisoned builder did not return the latched error consistently")
	_, buildErr := b.Build()
	assert.Same(t, err, buildErr)
}

func TestNegativeCoordinates(t *testing.T) {
	b := newTestBuilder()
	assert.NoError(t, b.FillRect(-5, -10, 3, 3, nil), "negative x/y should be accepted")

	b2 := newTestBuilder()
	assert.Error(t, b2.FillRect(0, 0, -1, 3, nil), "negative w should be rejected when validate_params is on")

	caps := DefaultCaps()
	caps.ValidateParams = false
	b3 := NewBuilder(V1, caps)
	assert.NoError(t, b3.FillRect(0, 0, -1, -1, nil), "negative w/h should clamp to 0 when validate_params is off")
}

func TestBlobAlignment(t *testing.T) {
	b := newTestBuilder()
	_, err := b.AddBlob([]byte{1, 2, 3})
	require.Error(t, err, "expected BAD_PARAMS for non-4-aligned blob")
	be, ok := err.(*BuildError)
	require.True(t, ok)
	assert.Equal(t, BadParams, be.Code)

	b2 := newTestBuilder()
	_, err = b2.AddBlob([]byte{1, 2, 3, 4})
	assert.NoError(t, err, "4-aligned blob should be accepted")
}

func TestEmptyBuilderBuild(t *testing.T) {
	b := newTestBuilder()
	out, err := b.Build()
	require.NoError(t, err)
	require.Len(t, out, HeaderSize)
	for _, off := range []int{hCmdOffset, hCmdBytes, hCmdCount, hStringSpanOffset, hStringCount,
		hStringBytesOffset, hStringBytesSize, hBlobSpanOffset, hBlobCount, hBlobBytesOffset, hBlobBytesSize} {
		assert.Zerof(t, wire.GetU32(out[off:]), "header field at offset %d", off)
	}
}

func TestDeterminism(t *testing.T) {
	build := func() []byte {
		b := newTestBuilder()
		must(t, b.Clear())
		must(t, b.DrawText(2, 3, "same text", &style.Style{Italic: true}))
		out, err := b.Build()
		require.NoError(t, err)
		return out
	}
	a, c := build(), build()
	assert.Equal(t, a, c)
}

func TestStringDedupReturnsExistingIndex(t *testing.T) {
	b := newTestBuilder()
	i1, err := b.AddString("repeat")
	require.NoError(t, err)
	i2, err := b.AddString("repeat")
	require.NoError(t, err)
	assert.Equal(t, i1, i2, "AddString(same value) returned different indices")
}

func TestV2CursorRequiresVersion(t *testing.T) {
	b := newTestBuilder()
	assert.Error(t, b.SetCursor(Cursor{X: 1, Y: 1}), "expected error setting cursor on a v1 builder")

	b2 := NewBuilder(V2, DefaultCaps())
	assert.NoError(t, b2.SetCursor(Cursor{X: 1, Y: 1, Visible: true}))
}

func TestV3CanvasRequiresVersion(t *testing.T) {
	b := NewBuilder(V2, DefaultCaps())
	blobIdx, err := b.AddBlob(make([]byte, 16))
	require.NoError(t, err)
	assert.Error(t, b.DrawCanvas(Canvas{Width: 2, Height: 2, BlobIndex: blobIdx}), "expected error drawing canvas on a v2 builder")

	b3 := NewBuilder(V3, DefaultCaps())
	blobIdx3, err := b3.AddBlob(make([]byte, 16))
	require.NoError(t, err)
	assert.NoError(t, b3.DrawCanvas(Canvas{Width: 2, Height: 2, BlobIndex: blobIdx3}))
}

func TestResetReusesBuilder(t *testing.T) {
	b := newTestBuilder()
	must(t, b.DrawText(0, 0, "first", nil))
	_, err := b.Build()
	require.NoError(t, err)
	b.Reset()
	assert.NoError(t, b.Err())
	idx, err := b.AddString("first")
	require.NoError(t, err)
	assert.Equal(t, 0, idx, "AddString after Reset returned a non-fresh intern table index")
}

func must(t *testing.T, err error) {
	t.Helper()
	require.NoError(t, err)
}
