package drawlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderRejectsBadMagic(t *testing.T) {
	buf := make([]byte, HeaderSize)
	_, err := NewReader(buf)
	assert.Error(t, err, "expected error for zeroed header with wrong magic")
}

func TestReaderRejectsTruncatedBuffer(t *testing.T) {
	_, err := NewReader(make([]byte, 10))
	assert.Error(t, err, "expected error for buffer shorter than header")
}

func TestReaderRejectsTotalSizeMismatch(t *testing.T) {
	b := newTestBuilder()
	must(t, b.Clear())
	out, err := b.Build()
	require.NoError(t, err)
	truncated := out[:len(out)-4]
	_, err = NewReader(truncated)
	assert.Error(t, err, "expected error when total_size disagrees with buffer length")
}

func TestReaderOutOfRangeStringIndex(t *testing.T) {
	b := newTestBuilder()
	must(t, b.DrawText(0, 0, "x", nil))
	out, err := b.Build()
	require.NoError(t, err)
	r, err := NewReader(out)
	require.NoError(t, err)
	_, err = r.String(5)
	assert.Error(t, err, "expected error for out-of-range string index")
}

func TestReaderBlobRoundTrip(t *testing.T) {
	b := newTestBuilder()
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	idx, err := b.AddBlob(data)
	require.NoError(t, err)
	must(t, b.DrawTextRun(0, 0, idx))
	out, err := b.Build()
	require.NoError(t, err)
	r, err := NewReader(out)
	require.NoError(t, err)
	got, err := r.Blob(idx)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestReaderCommandStreamAdvancesByAlignedSize(t *testing.T) {
	b := newTestBuilder()
	must(t, b.Clear())
	must(t, b.PushClip(0, 0, 10, 10))
	must(t, b.PopClip())
	out, err := b.Build()
	require.NoError(t, err)
	r, err := NewReader(out)
	require.NoError(t, err)
	cmds, err := r.Commands()
	require.NoError(t, err)
	assert.Len(t, cmds, 3)
}
