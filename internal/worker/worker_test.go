package worker

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zireael.local/zrtui/internal/engine"
	"zireael.local/zrtui/internal/protocol"
)

func newTestWorker(poolSize int) (*Worker, *engine.Fake, chan any) {
	out := make(chan any, 256)
	fake := engine.NewFake(engine.TerminalCaps{})
	w := &Worker{
		log:          zerolog.Nop(),
		eng:          fake,
		cfg:          engine.DefaultConfig(),
		out:          out,
		pool:         NewPool(poolSize, 1024),
		tickInterval: time.Millisecond,
	}
	return w, fake, out
}

func injectTick(t *testing.T, fake *engine.Fake, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		batch, err := protocol.EncodeBatch([]protocol.Event{{Kind: protocol.EventTick, TimeMs: uint32(i)}})
		require.NoError(t, err)
		fake.InjectEventBatch(batch)
	}
}

func drainedEvents(out chan any) []protocol.Events {
	var got []protocol.Events
	for {
		select {
		case m := <-out:
			if e, ok := m.(protocol.Events); ok {
				got = append(got, e)
			}
		default:
			return got
		}
	}
}

// TestEventDroppingAfterPoolExhaustion covers spec.md §8 scenario 6: with the
// pool exhausted, extra batches are silently discarded and counted; the next
// batch actually delivered (after a slot frees up) reports the accumulated
// drop count.
func TestEventDroppingAfterPoolExhaustion(t *testing.T) {
	const poolSize = 2
	w, fake, out := newTestWorker(poolSize)

	injectTick(t, fake, poolSize+3) // 2 deliverable, 3 dropped
	require.True(t, w.drainEvents(), "expected event work on the first drain")

	delivered := drainedEvents(out)
	require.Len(t, delivered, poolSize)
	for _, e := range delivered {
		assert.Zerof(t, e.DroppedSinceLast, "unexpected DroppedSinceLast before any slot freed")
	}
	assert.Equal(t, uint64(3), w.droppedSinceLast)

	// Main withheld acks until now; ack buffer 0 to free one slot and
	// deliver one more batch.
	w.handleInbound(protocol.EventsAck{BufferID: 0})
	injectTick(t, fake, 1)
	require.True(t, w.drainEvents(), "expected event work on the second drain")
	after := drainedEvents(out)
	require.Len(t, after, 1)
	assert.Equal(t, uint64(3), after[0].DroppedSinceLast)
	assert.Zero(t, w.droppedSinceLast, "droppedSinceLast not reset")
}

// TestRunWithholdsReadyUntilInit covers the spec.md §4.6 handshake: the
// worker must not construct its engine or emit Ready until it has received
// Init, and any message arriving first is dropped rather than acted on.
func TestRunWithholdsReadyUntilInit(t *testing.T) {
	var built int
	factory := func(cfg engine.Config) (engine.Engine, error) {
		built++
		return engine.NewFake(engine.TerminalCaps{}), nil
	}

	in := make(chan any, 4)
	out := make(chan any, 16)
	w := New(factory, in, out, nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// A non-Init message arriving first must not trigger construction.
	in <- protocol.GetCaps{}

	select {
	case m := <-out:
		t.Fatalf("unexpected message before init: %#v", m)
	case <-time.After(20 * time.Millisecond):
	}
	assert.Zero(t, built, "engine constructed before init")

	cfg := engine.DefaultConfig()
	in <- protocol.Init{Config: cfg}

	var gotReady bool
	for !gotReady {
		select {
		case m := <-out:
			if _, ok := m.(protocol.Ready); ok {
				gotReady = true
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for Ready after init")
		}
	}
	assert.Equal(t, 1, built)

	in <- protocol.Shutdown{}
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Run to return after shutdown")
	}
}

func TestDrainEventsNoWorkWhenEngineIsIdle(t *testing.T) {
	w, _, _ := newTestWorker(4)
	assert.False(t, w.drainEvents(), "expected no event work when the engine has nothing queued")
}

func TestAcceptFrameLatestWinsRecyclesSuperseded(t *testing.T) {
	w, fake, out := newTestWorker(4)
	first := []byte{1, 2, 3, 4}
	second := []byte{5, 6, 7, 8}
	w.acceptFrame(protocol.Frame{FrameSeq: 1, Transport: protocol.TransportTransfer, Bytes: first, ByteLen: len(first)})
	w.acceptFrame(protocol.Frame{FrameSeq: 2, Transport: protocol.TransportTransfer, Bytes: second, ByteLen: len(second)})

	require.NotNil(t, w.pending)
	assert.Equal(t, int64(2), w.pending.seq)
	assert.Len(t, w.recycleQueue, 1, "want 1 superseded buffer")

	frameWork, eventWork, err := w.tick()
	require.NoError(t, err)
	assert.True(t, frameWork, "expected frame work on a pending submit")
	_ = eventWork

	var status protocol.FrameStatus
	found := false
drain:
	for {
		select {
		case m := <-out:
			if s, ok := m.(protocol.FrameStatus); ok {
				status = s
				found = true
			}
		default:
			break drain
		}
	}
	require.True(t, found, "expected a frame_status message")
	require.NotNil(t, status.CompletedSeq)
	assert.Equal(t, int64(2), *status.CompletedSeq)
	assert.Len(t, status.RecycledDrawlists, 2, "want superseded + submitted")

	m, err := fake.Metrics()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), m.FrameIndex)
}
