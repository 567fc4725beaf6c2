// Package worker implements the engine-owning side of the main/worker
// protocol (spec.md §4.6): a tick loop that submits frames, drains events
// through a pooled buffer scheme, and forwards debug/caps/lifecycle
// requests to the native engine.
package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"zireael.local/zrtui/internal/engine"
	"zireael.local/zrtui/internal/mailbox"
	"zireael.local/zrtui/internal/protocol"
)

// maxTickInterval bounds the tick interval derived from fps_cap, so input
// latency never exceeds this regardless of a low or zero fps_cap (spec.md
// §4.6 "clamped to a small maximum e.g. 1ms").
const maxTickInterval = time.Millisecond

// maxEventDrainPerTick bounds how many poll_events calls a single tick may
// make before yielding to scheduling (spec.md §4.6 step 4).
const maxEventDrainPerTick = 32

type pendingFrame struct {
	seq       int64
	transport protocol.FrameTransport
	bytes     []byte // TransportTransfer only

	sabFrame mailbox.Frame // TransportSABv1 only
}

// Worker drives exactly one Engine through its tick loop. It owns the
// engine exclusively; nothing outside the worker ever calls it (spec.md §5
// "shared-resource policy").
type Worker struct {
	log     zerolog.Logger
	factory engine.Factory
	eng     engine.Engine
	cfg     engine.Config

	in  <-chan any
	out chan<- any

	pool *Pool
	mbox *mailbox.Mailbox // the mailbox passed to New; nil disables the sab_v1 path

	pending          *pendingFrame
	recycleQueue     [][]byte
	droppedSinceLast uint64
	lastConsumedSeq  int32

	tickInterval time.Duration
}

// New constructs a Worker. factory builds the Engine once the worker
// receives its protocol.Init message (spec.md §4.6: "init{config:{...}}"
// sent once, "ready{engine_id}" only after successful init); in/out are the
// ordered message channels to and from the main side.
func New(factory engine.Factory, in <-chan any, out chan<- any, mbox *mailbox.Mailbox, log zerolog.Logger) *Worker {
	return &Worker{
		log:     log,
		factory: factory,
		in:      in,
		out:     out,
		mbox:    mbox,
	}
}

func eventPoolSize(cfg engine.Config) int {
	const defaultPoolSize = 8
	return defaultPoolSize
}

func tickIntervalFromFPS(fpsCap uint32) time.Duration {
	if fpsCap == 0 {
		return maxTickInterval
	}
	d := time.Second / time.Duration(fpsCap)
	if d > maxTickInterval {
		// The tick loop still runs at maxTickInterval; fps_cap further
		// throttles frame submission on the application side, not here.
		return maxTickInterval
	}
	if d <= 0 {
		return maxTickInterval
	}
	return d
}

// Run drives the tick loop until ctx is cancelled or a shutdown message
// arrives. Once Init has been received it sends ShutdownComplete on exit in
// both cases; if ctx is cancelled before Init arrives, Run returns ctx's
// error without sending anything.
func (w *Worker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.tickLoop(ctx)
	})
	return g.Wait()
}

func (w *Worker) tickLoop(ctx context.Context) error {
	cfg, err := w.awaitInit(ctx)
	if err != nil {
		return err
	}
	eng, err := w.factory(cfg)
	if err != nil {
		w.out <- protocol.Fatal{Where: "init", Code: engine.ErrPlatform, Detail: err.Error()}
		return err
	}
	w.eng = eng
	w.cfg = cfg
	w.pool = NewPool(eventPoolSize(cfg), int(cfg.MaxEventBytes))
	w.tickInterval = tickIntervalFromFPS(cfg.FPSCap)

	w.sendInitialResize()
	w.out <- protocol.Ready{EngineID: uuid.NewString()}

	timer := time.NewTimer(w.tickInterval)
	defer timer.Stop()
	backoff := w.tickInterval

	for {
		select {
		case <-ctx.Done():
			w.shutdown()
			return nil
		case msg, ok := <-w.in:
			if !ok {
				w.shutdown()
				return nil
			}
			if w.handleInbound(msg) {
				w.shutdown()
				return nil
			}
			continue
		case <-timer.C:
		}

		frameWork, eventWork, fatalErr := w.tick()
		if fatalErr != nil {
			w.out <- protocol.Fatal{Where: "tick", Code: engine.ErrInvalidArg, Detail: fatalErr.Error()}
			w.shutdown()
			return fatalErr
		}

		var next time.Duration
		switch {
		case frameWork:
			backoff = w.tickInterval
			next = 0
		case eventWork:
			backoff = w.tickInterval
			next = w.tickInterval
		default:
			backoff *= 2
			if backoff > maxTickInterval {
				backoff = maxTickInterval
			}
			next = backoff
			if w.mbox != nil {
				w.mbox.Wait(w.lastConsumedSeq, next)
			}
		}
		timer.Reset(next)
	}
}

// awaitInit blocks until the main side sends protocol.Init, per spec.md
// §4.6's handshake ("init{config:{...}}" once, before anything else). Any
// other message arriving first is dropped; the engine must not be
// constructed, and no reply sent, until init arrives.
func (w *Worker) awaitInit(ctx context.Context) (engine.Config, error) {
	for {
		select {
		case <-ctx.Done():
			return engine.Config{}, ctx.Err()
		case msg, ok := <-w.in:
			if !ok {
				return engine.Config{}, errors.New("input channel closed before init")
			}
			if m, ok := msg.(protocol.Init); ok {
				return m.Config, nil
			}
		}
	}
}

func (w *Worker) shutdown() {
	w.eng.Destroy()
	w.out <- protocol.ShutdownComplete{}
}

// sendInitialResize synthesizes a resize batch so the main side can render
// its first frame without waiting on a terminal signal (spec.md §4.6
// "Initial resize injection"). The batch is always 80x24; neither the
// config nor the host viewport is consulted.
func (w *Worker) sendInitialResize() {
	events := []protocol.Event{{Kind: protocol.EventResize, Resize: &protocol.ResizePayload{Cols: 80, Rows: 24}}}
	batch, err := protocol.EncodeBatch(events)
	if err != nil {
		return
	}
	id, buf, ok := w.pool.Acquire()
	if !ok {
		w.droppedSinceLast++
		return
	}
	n := copy(buf, batch)
	w.out <- protocol.Events{BufferID: id, Batch: buf[:n], ByteLen: n}
}

func (w *Worker) handleInbound(msg any) (shutdownRequested bool) {
	switch m := msg.(type) {
	case protocol.Frame:
		w.acceptFrame(m)
	case protocol.FrameKick:
		w.pullFromMailbox()
	case protocol.SetConfig:
		w.cfg = m.Config
		w.tickInterval = tickIntervalFromFPS(m.Config.FPSCap)
	case protocol.PostUserEvent:
		w.injectUserEvent(m)
	case protocol.EventsAck:
		w.pool.Release(m.BufferID)
	case protocol.GetCaps:
		caps, err := w.eng.Caps()
		if err != nil {
			w.out <- protocol.Fatal{Where: "get_caps", Code: engine.ErrPlatform, Detail: err.Error()}
			return true
		}
		w.out <- protocol.Caps{Caps: caps}
	case protocol.DebugRequest:
		w.handleDebug(m)
	case protocol.PerfSnapshot:
		// Accepted and ignored: no perf reply is sent, and engine Metrics
		// are not forwarded to the main side by any message.
	case protocol.Shutdown:
		return true
	}
	return false
}

// acceptFrame applies latest-wins: a previously pending transfer-path frame
// is queued for recycling rather than submitted (spec.md §4.6 step 1,
// "Latest-wins semantics").
func (w *Worker) acceptFrame(m protocol.Frame) {
	if w.pending != nil && w.pending.transport == protocol.TransportTransfer {
		w.recycleQueue = append(w.recycleQueue, w.pending.bytes)
	}
	switch m.Transport {
	case protocol.TransportTransfer:
		w.pending = &pendingFrame{seq: m.FrameSeq, transport: m.Transport, bytes: m.Bytes[:m.ByteLen]}
	case protocol.TransportSABv1:
		w.pullFromMailbox()
	}
}

func (w *Worker) pullFromMailbox() {
	if w.mbox == nil {
		return
	}
	f, ok := w.mbox.TryConsume(w.lastConsumedSeq)
	if !ok {
		return
	}
	w.pending = &pendingFrame{seq: int64(f.Seq), transport: protocol.TransportSABv1, sabFrame: f}
}

func (w *Worker) injectUserEvent(m protocol.PostUserEvent) {
	events := []protocol.Event{{Kind: protocol.EventUser, User: &protocol.UserPayload{Tag: m.Tag, Payload: m.Payload}}}
	batch, err := protocol.EncodeBatch(events)
	if err != nil {
		return
	}
	id, buf, ok := w.pool.Acquire()
	if !ok {
		w.droppedSinceLast++
		return
	}
	n := copy(buf, batch)
	w.out <- protocol.Events{BufferID: id, Batch: buf[:n], ByteLen: n}
}

func (w *Worker) handleDebug(m protocol.DebugRequest) {
	ctx := context.Background()
	resp, err := w.eng.Debug(ctx, string(m.Cmd), m.Req)
	if err != nil {
		w.log.Warn().Err(err).Str("cmd", string(m.Cmd)).Msg("debug dispatch failed")
		return
	}
	w.out <- protocol.DebugReply{Cmd: m.Cmd, Resp: resp}
}

// tick runs one iteration of the worker's frame/event pump (spec.md §4.6
// "Worker tick loop"). frameWork/eventWork drive the next-wake decision.
func (w *Worker) tick() (frameWork, eventWork bool, fatalErr error) {
	var acceptedSeq, completedSeq *int64
	var completedResult *int32
	recycled := w.recycleQueue
	w.recycleQueue = nil

	if w.pending != nil {
		data, submittedBuf, resolved := w.resolvePendingFrame()
		if resolved {
			seq := w.pending.seq
			acceptedSeq = &seq
			if err := w.eng.SubmitDrawlist(data); err != nil {
				w.log.Error().Err(err).Msg("submit_drawlist failed")
				rc := engine.ErrInvalidArg
				completedResult = &rc
			} else {
				if err := w.eng.Present(); err != nil {
					return false, false, errors.Wrap(err, "present")
				}
				frameWork = true
				ok := engine.OK
				completedSeq = &seq
				completedResult = &ok
			}
			if submittedBuf != nil {
				recycled = append(recycled, submittedBuf)
			}
			w.pending = nil
		}
		// Not resolved: a stale SAB token or empty mailbox. Leave pending
		// nil-or-set for the next FrameKick/tick; nothing to report.
	}

	if acceptedSeq != nil || completedSeq != nil || len(recycled) != 0 {
		w.out <- protocol.FrameStatus{
			AcceptedSeq:       acceptedSeq,
			CompletedSeq:      completedSeq,
			CompletedResult:   completedResult,
			RecycledDrawlists: recycled,
		}
	}

	eventWork = w.drainEvents()
	return frameWork, eventWork, nil
}

// resolvePendingFrame resolves the pending frame's bytes from its
// transport. For the transfer path the caller-owned buffer is both
// submitted and recycled; for SAB it validates the slot token still
// matches the captured frame (spec.md §4.6 step 1, "if it changed (stale),
// skip submission and pull the latest from the mailbox").
func (w *Worker) resolvePendingFrame() (data []byte, recycleBuf []byte, ok bool) {
	p := w.pending
	switch p.transport {
	case protocol.TransportTransfer:
		return p.bytes, p.bytes, true
	case protocol.TransportSABv1:
		if w.mbox == nil {
			return nil, nil, false
		}
		slotData, acquired := w.mbox.AcquireReadySlot(p.sabFrame)
		if !acquired {
			w.pending = nil
			w.pullFromMailbox()
			return nil, nil, false
		}
		out := append([]byte(nil), slotData...)
		w.mbox.Release(p.sabFrame.Slot)
		w.mbox.MarkConsumed(p.sabFrame.Seq)
		w.lastConsumedSeq = p.sabFrame.Seq
		return out, nil, true
	default:
		return nil, nil, false
	}
}

func (w *Worker) drainEvents() bool {
	did := false
	for i := 0; i < maxEventDrainPerTick; i++ {
		id, buf, havePooled := w.pool.Acquire()
		target := buf
		if !havePooled {
			target = w.pool.Discard()
		}

		n, err := w.eng.PollEvents(0, target)
		if err != nil {
			w.log.Warn().Err(err).Msg("poll_events failed")
			if havePooled {
				w.pool.Release(id)
			}
			break
		}
		if n == 0 {
			if havePooled {
				w.pool.Release(id)
			}
			break
		}
		did = true
		if !havePooled {
			w.droppedSinceLast++
			continue
		}

		dropped := w.droppedSinceLast
		w.droppedSinceLast = 0
		w.out <- protocol.Events{BufferID: id, Batch: target[:n], ByteLen: n, DroppedSinceLast: dropped}
	}
	return did
}
