// Package engine defines the native Zireael engine's Go-side ABI mirror and
// the Engine interface the worker drives (spec.md §4.6, §6). The engine is
// owned exclusively by the worker; the main side never calls it directly
// (spec.md §5 "shared-resource policy").
package engine

// Result codes mirror the native ABI's negative-on-error convention.
const (
	OK               int32 = 0
	ErrInvalidArg    int32 = -1
	ErrOOM           int32 = -2
	ErrLimit         int32 = -3
	ErrUnsupported   int32 = -4
	ErrFormat        int32 = -5
	ErrPlatform      int32 = -6
	ABIMajor         uint32 = 1
	ABIMinor         uint32 = 0
	ABIPatch         uint32 = 0
	DrawlistVersion1 uint32 = 1
	DrawlistVersion2 uint32 = 2
	DrawlistVersion3 uint32 = 3
	EventBatchVer1   uint32 = 1
)

// ErrString renders a native result code the way the engine's own
// diagnostics do, falling back to a numeric form for codes it doesn't name.
func ErrString(rc int32) string {
	switch rc {
	case OK:
		return "ZR_OK"
	case ErrInvalidArg:
		return "ZR_ERR_INVALID_ARGUMENT"
	case ErrOOM:
		return "ZR_ERR_OOM"
	case ErrLimit:
		return "ZR_ERR_LIMIT"
	case ErrUnsupported:
		return "ZR_ERR_UNSUPPORTED"
	case ErrFormat:
		return "ZR_ERR_FORMAT"
	case ErrPlatform:
		return "ZR_ERR_PLATFORM"
	default:
		return zrErrFallback(rc)
	}
}

func zrErrFallback(rc int32) string {
	return "ZR_ERR_" + itoa(rc)
}

func itoa(v int32) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [12]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// ColorMode enumerates the negotiated terminal color depth.
type ColorMode uint8

const (
	ColorUnknown ColorMode = 0
	Color16      ColorMode = 1
	Color256     ColorMode = 2
	ColorRGB     ColorMode = 3
)

// Limits bounds the engine's internal arenas and per-frame budgets. Field
// names mirror the native zr_limits_t layout.
type Limits struct {
	ArenaMaxTotalBytes   uint32
	ArenaInitialBytes    uint32
	OutMaxBytesPerFrame  uint32
	DLMaxTotalBytes      uint32
	DLMaxCmds            uint32
	DLMaxStrings         uint32
	DLMaxBlobs           uint32
	DLMaxClipDepth       uint32
	DLMaxTextRunSegments uint32
	DiffMaxDamageRects   uint32
}

// PlatConfig negotiates platform-facing terminal features at init.
type PlatConfig struct {
	RequestedColorMode   ColorMode
	EnableMouse          bool
	EnableBracketedPaste bool
	EnableFocusEvents    bool
	EnableOSC52          bool
}

// Config is the full engine configuration passed on init (spec.md §4.6
// "init{config: {...}}"). MaxEventBytes and FPSCap drive the worker's event
// pool sizing and tick interval respectively; the rest negotiates with the
// native engine.
type Config struct {
	RequestedABIMajor        uint32
	RequestedABIMinor        uint32
	RequestedABIPatch        uint32
	RequestedDrawlistVersion uint32
	RequestedEventBatchVer   uint32

	Limits Limits
	Plat   PlatConfig

	TabWidth    uint32
	WidthPolicy uint32
	FPSCap      uint32
	MaxEventBytes uint32

	EnableScrollOptimizations bool
	EnableDebugOverlay        bool
	EnableReplayRecording     bool
	WaitForOutputDrain        bool

	FrameTransport string // "transfer" | "sab_v1"
}

// DefaultConfig mirrors the native engine's pinned defaults.
func DefaultConfig() Config {
	return Config{
		RequestedABIMajor:        ABIMajor,
		RequestedABIMinor:        ABIMinor,
		RequestedABIPatch:        ABIPatch,
		RequestedDrawlistVersion: DrawlistVersion1,
		RequestedEventBatchVer:   EventBatchVer1,
		Limits: Limits{
			ArenaMaxTotalBytes:   4 * 1024 * 1024,
			ArenaInitialBytes:    64 * 1024,
			OutMaxBytesPerFrame:  256 * 1024,
			DLMaxTotalBytes:      256 * 1024,
			DLMaxCmds:            4096,
			DLMaxStrings:         4096,
			DLMaxBlobs:           4096,
			DLMaxClipDepth:       64,
			DLMaxTextRunSegments: 4096,
			DiffMaxDamageRects:   4096,
		},
		Plat: PlatConfig{
			RequestedColorMode:   ColorUnknown,
			EnableMouse:          true,
			EnableBracketedPaste: true,
			EnableFocusEvents:    true,
			EnableOSC52:          false,
		},
		TabWidth:                  4,
		WidthPolicy:               1,
		FPSCap:                    60,
		MaxEventBytes:             16 * 1024,
		EnableScrollOptimizations: true,
		FrameTransport:            "transfer",
	}
}

// Metrics is a point-in-time snapshot of engine-side counters.
type Metrics struct {
	FrameIndex          uint64
	BytesEmittedTotal   uint64
	BytesEmittedLast    uint32
	DirtyLinesLastFrame uint32
	DirtyColsLastFrame  uint32
}

// TerminalCaps is the immutable capability record queried at init time
// (spec.md §3 "Terminal caps").
type TerminalCaps struct {
	ColorMode             ColorMode
	Mouse                 bool
	BracketedPaste        bool
	FocusEvents           bool
	OSC52Clipboard        bool
	SynchronizedUpdate    bool
	ScrollRegion           bool
	CursorShape           bool
	OutputWaitWritable    bool
	SGRAttrsSupportedMask uint32
}

// DebugRecordHeaderSize is the fixed 40-byte header on every debug record
// crossing the worker/engine boundary (spec.md §4.6).
const DebugRecordHeaderSize = 40

// DebugRecordMaxBytes bounds a single debug query response.
const DebugRecordMaxBytes = 1 * 1024 * 1024
