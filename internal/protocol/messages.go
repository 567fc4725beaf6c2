package protocol

import "zireael.local/zrtui/internal/engine"

// FrameTransport identifies how a Frame message's bytes are reaching the
// worker (spec.md §4.6).
type FrameTransport string

const (
	TransportTransfer FrameTransport = "transfer"
	TransportSABv1     FrameTransport = "sab_v1"
)

// Init is the one-time main -> worker handshake message.
type Init struct {
	Config engine.Config
}

// Frame announces a new drawlist. For TransportTransfer, Bytes is the
// drawlist payload and ByteLen <= len(Bytes); for TransportSABv1, Bytes is
// nil and the worker pulls from the mailbox instead.
type Frame struct {
	FrameSeq  int64
	Transport FrameTransport
	Bytes     []byte
	ByteLen   int
}

// FrameKick hints the worker to re-scan the SAB mailbox after a publish.
type FrameKick struct{}

// SetConfig requests runtime reconfiguration.
type SetConfig struct {
	Config engine.Config
}

// PostUserEvent injects a synthetic event tagged by the application.
type PostUserEvent struct {
	Tag     uint32
	Payload []byte
}

// EventsAck returns a previously delivered event buffer to the pool.
type EventsAck struct {
	BufferID int
}

// GetCaps requests the negotiated terminal capability record.
type GetCaps struct{}

// Shutdown requests an orderly worker stop.
type Shutdown struct{}

// DebugCommand is one of the fixed debug verbs the worker forwards to the
// native engine (spec.md §4.6 "Debug API").
type DebugCommand string

const (
	DebugEnable     DebugCommand = "enable"
	DebugDisable    DebugCommand = "disable"
	DebugQuery      DebugCommand = "query"
	DebugGetPayload DebugCommand = "get_payload"
	DebugGetStats   DebugCommand = "get_stats"
	DebugExport     DebugCommand = "export"
	DebugReset      DebugCommand = "reset"
)

// DebugRequest forwards cmd with req to the native engine's debug surface.
type DebugRequest struct {
	Cmd DebugCommand
	Req []byte
}

// DebugReply carries the native engine's debug response bytes.
type DebugReply struct {
	Cmd  DebugCommand
	Resp []byte
}

// PerfSnapshot requests an advisory performance snapshot. Its statistics
// are advisory only, per spec.md's perf messages being outside the wire
// contract's correctness guarantees.
type PerfSnapshot struct{}

// --- worker -> main ---

// Ready is sent once after a successful Init.
type Ready struct {
	EngineID string
}

// Events carries one event batch buffer to main. Main MUST eventually send
// EventsAck for BufferID.
type Events struct {
	BufferID         int
	Batch            []byte
	ByteLen          int
	DroppedSinceLast uint64
}

// FrameStatus reports frame acceptance and/or completion.
type FrameStatus struct {
	AcceptedSeq      *int64
	CompletedSeq     *int64
	CompletedResult  *int32 // 0 = ok, negative = engine error code
	RecycledDrawlists [][]byte
}

// Caps replies to GetCaps.
type Caps struct {
	Caps engine.TerminalCaps
}

// Fatal reports an unrecoverable worker error; the worker shuts down after
// sending it.
type Fatal struct {
	Where  string
	Code   int32
	Detail string
}

// ShutdownComplete confirms the worker has destroyed its engine and
// stopped its tick loop.
type ShutdownComplete struct{}
