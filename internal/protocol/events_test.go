package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeBatchRoundTrip(t *testing.T) {
	events := []Event{
		{Kind: EventKey, TimeMs: 10, Key: &KeyPayload{Key: 1, Modifiers: 0, Action: KeyActionDown}},
		{Kind: EventText, TimeMs: 11, Text: &TextPayload{Rune: 'a'}},
		{Kind: EventPaste, TimeMs: 12, Paste: &PastePayload{Text: "pasted text"}},
		{Kind: EventMouse, TimeMs: 13, Mouse: &MousePayload{X: 5, Y: -3, Button: 1, Action: KeyActionDown}},
		{Kind: EventResize, TimeMs: 14, Resize: &ResizePayload{Cols: 80, Rows: 24}},
		{Kind: EventTick, TimeMs: 15},
		{Kind: EventUser, TimeMs: 16, User: &UserPayload{Tag: 42, Payload: []byte("payload")}},
	}
	buf, err := EncodeBatch(events)
	require.NoError(t, err)
	got, err := DecodeBatch(buf)
	require.NoError(t, err)
	require.Len(t, got, len(events))

	require.NotNil(t, got[0].Key)
	assert.Equal(t, uint32(1), got[0].Key.Key)
	assert.Equal(t, KeyActionDown, got[0].Key.Action)

	require.NotNil(t, got[1].Text)
	assert.Equal(t, rune('a'), got[1].Text.Rune)

	require.NotNil(t, got[2].Paste)
	assert.Equal(t, "pasted text", got[2].Paste.Text)

	require.NotNil(t, got[3].Mouse)
	assert.Equal(t, int32(5), got[3].Mouse.X)
	assert.Equal(t, int32(-3), got[3].Mouse.Y)

	require.NotNil(t, got[4].Resize)
	assert.Equal(t, uint32(80), got[4].Resize.Cols)
	assert.Equal(t, uint32(24), got[4].Resize.Rows)

	assert.Equal(t, EventTick, got[5].Kind)

	require.NotNil(t, got[6].User)
	assert.Equal(t, uint32(42), got[6].User.Tag)
	assert.Equal(t, "payload", string(got[6].User.Payload))
}

func TestEncodeEmptyBatch(t *testing.T) {
	buf, err := EncodeBatch(nil)
	require.NoError(t, err)
	assert.Len(t, buf, EventBatchHeaderSize)
	got, err := DecodeBatch(buf)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDecodeBatchRejectsBadMagic(t *testing.T) {
	buf, _ := EncodeBatch(nil)
	buf[0] = 0
	_, err := DecodeBatch(buf)
	assert.Error(t, err)
}

func TestDecodeBatchRejectsTruncated(t *testing.T) {
	_, err := DecodeBatch(make([]byte, 4))
	assert.Error(t, err)
}

func TestDecodeBatchRejectsOversizedTotal(t *testing.T) {
	events := []Event{{Kind: EventTick, TimeMs: 1}}
	buf, err := EncodeBatch(events)
	require.NoError(t, err)
	truncated := buf[:len(buf)-1]
	_, err = DecodeBatch(truncated)
	assert.Error(t, err, "expected error when declared total_size exceeds buffer length")
}
