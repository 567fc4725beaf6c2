package engine

import "context"

// Engine is the native Zireael engine surface the worker drives. A single
// worker owns exactly one Engine for its lifetime (spec.md §5).
type Engine interface {
	// PollEvents polls the native engine for a ZREV batch with the given
	// timeout, writing into out and returning the bytes written.
	PollEvents(timeoutMs int, out []byte) (int, error)

	// SubmitDrawlist hands a ZRDL buffer to the native engine.
	SubmitDrawlist(dl []byte) error

	// Present flushes the engine's output to the terminal. Callers MUST
	// only call Present after a tick that actually submitted a drawlist
	// (spec.md §4.6 step 3).
	Present() error

	// Metrics returns a snapshot of engine-side counters.
	Metrics() (Metrics, error)

	// Caps returns the negotiated terminal capability record.
	Caps() (TerminalCaps, error)

	// Debug forwards a debug subcommand (enable/disable/query/get_payload/
	// get_stats/export/reset) to the native engine. req and the returned
	// bytes are fixed-size 40-byte records per DebugRecordHeaderSize, with
	// variable payloads following.
	Debug(ctx context.Context, cmd string, req []byte) ([]byte, error)

	// Destroy releases the engine. Safe to call multiple times.
	Destroy()
}

// Factory creates an Engine from a Config. Platform-specific files
// (cgo_unix.go, dll_windows.go) each provide one.
type Factory func(cfg Config) (Engine, error)
