package engine

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// Fake is an in-memory reference Engine: it accepts drawlists, tracks
// metrics, and lets tests or the demo command inject events without
// linking the native library. It is not a rendering engine; SubmitDrawlist
// only validates and counts.
type Fake struct {
	mu sync.Mutex

	caps    TerminalCaps
	metrics Metrics

	pending []byte
	closed  bool

	injected [][]byte // pre-encoded ZREV batches waiting to be polled
}

// NewFake constructs a Fake with the given initial capability record.
func NewFake(caps TerminalCaps) *Fake {
	return &Fake{caps: caps}
}

// FakeFactory returns a Factory that ignores the negotiated Config and
// always hands back a Fake seeded with caps. Useful for demos and tests that
// want to exercise the init handshake without linking the native engine.
func FakeFactory(caps TerminalCaps) Factory {
	return func(cfg Config) (Engine, error) {
		return NewFake(caps), nil
	}
}

// InjectEventBatch queues an already-encoded ZREV batch for the next
// PollEvents call(s). Callers build batches with protocol.EncodeBatch;
// this package does not depend on the protocol package itself.
func (f *Fake) InjectEventBatch(batch []byte) {
	f.mu.Lock()
	f.injected = append(f.injected, append([]byte(nil), batch...))
	f.mu.Unlock()
}

func (f *Fake) PollEvents(timeoutMs int, out []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, errors.New("engine is destroyed")
	}
	if len(f.injected) == 0 {
		return 0, nil
	}
	batch := f.injected[0]
	if len(batch) > len(out) {
		return 0, errors.Errorf("poll buffer too small: need %d, have %d", len(batch), len(out))
	}
	f.injected = f.injected[1:]
	n := copy(out, batch)
	return n, nil
}

func (f *Fake) SubmitDrawlist(dl []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("engine is destroyed")
	}
	if len(dl) == 0 {
		return errors.New("drawlist is empty")
	}
	f.pending = append([]byte(nil), dl...)
	f.metrics.FrameIndex++
	f.metrics.BytesEmittedLast = uint32(len(dl))
	f.metrics.BytesEmittedTotal += uint64(len(dl))
	return nil
}

func (f *Fake) Present() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("engine is destroyed")
	}
	if f.pending == nil {
		return errors.New("present called with no submitted drawlist")
	}
	f.pending = nil
	return nil
}

func (f *Fake) Metrics() (Metrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.metrics, nil
}

func (f *Fake) Caps() (TerminalCaps, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.caps, nil
}

func (f *Fake) Debug(ctx context.Context, cmd string, req []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp := make([]byte, DebugRecordHeaderSize)
	return resp, nil
}

func (f *Fake) Destroy() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}
