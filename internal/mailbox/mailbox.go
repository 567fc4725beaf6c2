// Package mailbox implements the frame mailbox transport (spec.md §4.5): a
// multi-slot publisher/consumer control region with atomic sequence
// numbers, per-slot state machines, and ABA-safe tokens. One publisher
// (the main side) and one consumer (the worker) share a Mailbox; Publish
// and the Try*/Acquire*/Release consumer calls are each safe to call from
// their own single goroutine, matching the spec's single-publisher/
// single-consumer model.
package mailbox

import (
	"sync/atomic"
	"time"
)

// SlotState is a per-slot state machine value: FREE -> IN_USE -> READY ->
// IN_USE -> FREE.
type SlotState int32

const (
	Free  SlotState = 0
	Ready SlotState = 1
	InUse SlotState = 2
)

// Frame is a published mailbox entry as observed by the consumer.
type Frame struct {
	Seq   int32
	Slot  int
	Bytes int
	Token int32
}

// Mailbox is the control region plus its backing data region, carved into
// slotCount equal-size buffers.
type Mailbox struct {
	slotBytes int

	publishedSeq   int32
	publishedSlot  int32
	publishedBytes int32
	publishedToken int32
	consumedSeq    int32

	states []int32
	tokens []int32
	data   [][]byte

	waiter waiter
}

// New allocates a Mailbox with slotCount slots of slotBytes bytes each.
func New(slotCount, slotBytes int) *Mailbox {
	m := &Mailbox{
		slotBytes: slotBytes,
		states:    make([]int32, slotCount),
		tokens:    make([]int32, slotCount),
		data:      make([][]byte, slotCount),
		waiter:    newWaiter(),
	}
	for i := range m.data {
		m.data[i] = make([]byte, slotBytes)
	}
	return m
}

// SlotCount reports the number of slots.
func (m *Mailbox) SlotCount() int { return len(m.states) }

// SlotBytes reports the fixed per-slot buffer size.
func (m *Mailbox) SlotBytes() int { return m.slotBytes }

// SlotData returns the backing buffer for slot i. Callers own the bytes
// between AcquireFree (publisher) or AcquireReadySlot (consumer) and the
// matching Publish/Release.
func (m *Mailbox) SlotData(i int) []byte { return m.data[i] }

// AcquireFree first reclaims superseded frames: every READY slot other than
// the currently published one goes back to FREE. It then scans for a FREE
// slot and CASes it to IN_USE, returning its index and a freshly
// incremented token. It never blocks (spec.md §4.5 "the main side MUST NOT
// block the render loop"); callers that want to retry apply their own
// backoff.
func (m *Mailbox) AcquireFree() (slot int, token int32, ok bool) {
	published := atomic.LoadInt32(&m.publishedSlot)
	for i := range m.states {
		if int32(i) != published {
			atomic.CompareAndSwapInt32(&m.states[i], int32(Ready), int32(Free))
		}
	}
	for i := range m.states {
		if atomic.CompareAndSwapInt32(&m.states[i], int32(Free), int32(InUse)) {
			tok := atomic.AddInt32(&m.tokens[i], 1)
			return i, tok, true
		}
	}
	return 0, 0, false
}

// Publish transitions slot to READY and atomically publishes the mailbox
// header, in the order the spec requires: published_slot, published_bytes,
// published_token, then a store-release of published_seq last. newSeq must
// be strictly greater than any previously published sequence. The caller
// must have already copied n bytes into SlotData(slot).
func (m *Mailbox) Publish(slot int, token int32, n int, newSeq int32) {
	atomic.StoreInt32(&m.states[slot], int32(Ready))
	atomic.StoreInt32(&m.publishedSlot, int32(slot))
	atomic.StoreInt32(&m.publishedBytes, int32(n))
	atomic.StoreInt32(&m.publishedToken, token)
	atomic.StoreInt32(&m.publishedSeq, newSeq)
	m.waiter.wake(&m.publishedSeq)
}

// TryConsume reads the published header with acquire semantics, retrying a
// bounded number of times to defeat a torn read (spec.md §4.5 step 2). It
// reports ok=false when there is nothing new since lastConsumed.
func (m *Mailbox) TryConsume(lastConsumed int32) (Frame, bool) {
	const maxRetries = 4
	for attempt := 0; attempt < maxRetries; attempt++ {
		seqBefore := atomic.LoadInt32(&m.publishedSeq)
		if seqBefore <= lastConsumed {
			return Frame{}, false
		}
		slot := atomic.LoadInt32(&m.publishedSlot)
		bytes := atomic.LoadInt32(&m.publishedBytes)
		token := atomic.LoadInt32(&m.publishedToken)
		seqAfter := atomic.LoadInt32(&m.publishedSeq)
		if seqAfter != seqBefore {
			continue // torn read, retry
		}
		if int(slot) < 0 || int(slot) >= len(m.states) || bytes < 0 || int(bytes) > m.slotBytes || token <= 0 {
			return Frame{}, false
		}
		return Frame{Seq: seqAfter, Slot: int(slot), Bytes: int(bytes), Token: token}, true
	}
	return Frame{}, false
}

// AcquireReadySlot CASes f.Slot from READY to IN_USE, validating the
// captured token both before and after the CAS to detect ABA reuse
// (spec.md §4.5 step 4). On success it returns the slot's published bytes;
// on a stale token it returns ok=false and the caller should treat the
// frame as superseded.
func (m *Mailbox) AcquireReadySlot(f Frame) (data []byte, ok bool) {
	if atomic.LoadInt32(&m.tokens[f.Slot]) != f.Token {
		return nil, false
	}
	if !atomic.CompareAndSwapInt32(&m.states[f.Slot], int32(Ready), int32(InUse)) {
		return nil, false
	}
	if atomic.LoadInt32(&m.tokens[f.Slot]) != f.Token {
		// Superseded between the token check and the CAS winning; release
		// back to FREE without touching caller-visible state further.
		atomic.StoreInt32(&m.states[f.Slot], int32(Free))
		return nil, false
	}
	return m.data[f.Slot][:f.Bytes], true
}

// Release transitions slot from IN_USE back to FREE after submission
// completes, successfully or not (spec.md §4.5 step 6).
func (m *Mailbox) Release(slot int) {
	atomic.StoreInt32(&m.states[slot], int32(Free))
}

// MarkConsumed records the sequence number the worker has fully processed.
func (m *Mailbox) MarkConsumed(seq int32) {
	atomic.StoreInt32(&m.consumedSeq, seq)
}

// ConsumedSeq returns the last sequence number recorded by MarkConsumed.
func (m *Mailbox) ConsumedSeq() int32 { return atomic.LoadInt32(&m.consumedSeq) }

// Wait blocks until published_seq changes from lastConsumed or timeout
// elapses, per spec.md §4.5/§5's "armed only when nothing new; timeout
// bounded" rule. It returns true if a change was observed.
func (m *Mailbox) Wait(lastConsumed int32, timeout time.Duration) bool {
	if atomic.LoadInt32(&m.publishedSeq) != lastConsumed {
		return true
	}
	return m.waiter.wait(&m.publishedSeq, lastConsumed, timeout)
}

type waiter interface {
	wait(addr *int32, expected int32, timeout time.Duration) bool
	wake(addr *int32)
}
