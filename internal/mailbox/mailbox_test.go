package mailbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func publishFrame(t *testing.T, m *Mailbox, seq int32, payload []byte) {
	t.Helper()
	slot, tok, ok := m.AcquireFree()
	require.Truef(t, ok, "AcquireFree failed for seq %d", seq)
	copy(m.SlotData(slot), payload)
	m.Publish(slot, tok, len(payload), seq)
}

// TestLatestWins reproduces spec.md §8 scenario 5: three frames published
// without worker progress, then one consume reads only the latest.
func TestLatestWins(t *testing.T) {
	m := New(4, 64)

	publishFrame(t, m, 1, []byte("frame-1"))
	publishFrame(t, m, 2, []byte("frame-2"))
	publishFrame(t, m, 3, []byte("frame-3"))

	f, ok := m.TryConsume(0)
	require.True(t, ok, "expected a published frame")
	require.Equal(t, int32(3), f.Seq, "latest-wins")

	data, ok := m.AcquireReadySlot(f)
	require.True(t, ok, "AcquireReadySlot failed for latest frame")
	assert.Equal(t, "frame-3", string(data))

	m.Release(f.Slot)
	m.MarkConsumed(f.Seq)
	assert.Equal(t, int32(3), m.ConsumedSeq())

	// Frames 1 and 2's slots were never transitioned to READY->IN_USE by
	// the consumer, so they remain in whatever state the publisher left
	// them: the publisher's next AcquireFree recycles them (spec.md §4.5
	// "superseded frames are reclaimed by the publisher on next acquire").
	seen := map[int]bool{}
	for i := 0; i < 3; i++ {
		slot, _, ok := m.AcquireFree()
		require.Truef(t, ok, "AcquireFree #%d failed", i)
		seen[slot] = true
		m.Release(slot)
	}
	assert.NotEmpty(t, seen, "expected to reclaim at least one stale slot")
}

func TestTryConsumeNoNewFrame(t *testing.T) {
	m := New(2, 16)
	_, ok := m.TryConsume(0)
	assert.False(t, ok, "TryConsume should report no work on an empty mailbox")
}

func TestABATokenDetectsReuse(t *testing.T) {
	m := New(1, 16)
	publishFrame(t, m, 1, []byte("first"))

	f, ok := m.TryConsume(0)
	require.True(t, ok, "expected frame")

	// Simulate the publisher reusing the only slot before the consumer
	// acquires it: captured token goes stale.
	staleSlot, tok, ok := m.AcquireFree()
	if ok {
		// Slot was still READY (not yet consumed) so AcquireFree should
		// not have succeeded; if it did (only possible with >1 slots),
		// skip this race simulation.
		m.Release(staleSlot)
		_ = tok
	}

	// Directly bump the token to simulate a reuse race outside this
	// mailbox's single-slot AcquireFree path.
	m.tokens[f.Slot] = f.Token + 1

	_, ok = m.AcquireReadySlot(f)
	assert.False(t, ok, "AcquireReadySlot must reject a stale token")
}

func TestAcquireFreeExhausted(t *testing.T) {
	m := New(2, 16)
	_, _, ok1 := m.AcquireFree()
	_, _, ok2 := m.AcquireFree()
	_, _, ok3 := m.AcquireFree()
	require.True(t, ok1, "expected first acquire to succeed")
	require.True(t, ok2, "expected second acquire to succeed")
	assert.False(t, ok3, "expected third acquire to fail: no FREE slots left")
}

func TestWaitObservesPublish(t *testing.T) {
	m := New(2, 16)
	done := make(chan bool, 1)
	go func() {
		done <- m.Wait(0, 50*time.Millisecond)
	}()
	time.Sleep(5 * time.Millisecond)
	publishFrame(t, m, 1, []byte("x"))
	assert.True(t, <-done, "Wait should observe the publish before timing out")
}

func TestWaitTimesOutWithNoPublish(t *testing.T) {
	m := New(2, 16)
	assert.False(t, m.Wait(0, 10*time.Millisecond), "Wait should time out when nothing is published")
}
