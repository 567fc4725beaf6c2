package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zireael.local/zrtui/internal/engine"
	"zireael.local/zrtui/internal/protocol"
)

func TestFakeSubmitPresentRequiresSubmission(t *testing.T) {
	f := engine.NewFake(engine.TerminalCaps{ColorMode: engine.ColorRGB})
	assert.Error(t, f.Present(), "Present before any SubmitDrawlist should fail")

	require.NoError(t, f.SubmitDrawlist([]byte{1, 2, 3, 4}))
	require.NoError(t, f.Present())

	m, err := f.Metrics()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), m.FrameIndex)
	assert.Equal(t, uint32(4), m.BytesEmittedLast)
}

func TestFakeInjectAndPollEvents(t *testing.T) {
	f := engine.NewFake(engine.TerminalCaps{})
	events := []protocol.Event{{Kind: protocol.EventResize, Resize: &protocol.ResizePayload{Cols: 80, Rows: 24}}}
	batch, err := protocol.EncodeBatch(events)
	require.NoError(t, err)
	f.InjectEventBatch(batch)

	buf := make([]byte, 256)
	n, err := f.PollEvents(0, buf)
	require.NoError(t, err)
	require.NotZero(t, n)

	decoded, err := protocol.DecodeBatch(buf[:n])
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	require.NotNil(t, decoded[0].Resize)
	assert.Equal(t, uint32(80), decoded[0].Resize.Cols)
}

func TestFakeDestroyRejectsFurtherCalls(t *testing.T) {
	f := engine.NewFake(engine.TerminalCaps{})
	f.Destroy()
	assert.Error(t, f.SubmitDrawlist([]byte{1, 2, 3, 4}), "expected error submitting to a destroyed engine")
}

func TestFakeDebugRespectsContextCancellation(t *testing.T) {
	f := engine.NewFake(engine.TerminalCaps{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Debug(ctx, "get_stats", nil)
	assert.Error(t, err, "expected error from a cancelled context")
}
