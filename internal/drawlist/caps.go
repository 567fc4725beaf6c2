package drawlist

// Caps is the per-builder configuration (spec.md §3 "Build caps"). All caps
// are positive i32 budgets; DefaultCaps returns the spec's defaults.
type Caps struct {
	MaxDrawlistBytes int32
	MaxCmdCount      int32
	MaxBlobBytes     int32
	MaxBlobs         int32
	MaxStringBytes   int32
	MaxStrings       int32

	// ValidateParams gates int-range checks in fast paths (coordinate
	// clamping vs. rejection). Capacity and framing checks always run
	// regardless of this flag.
	ValidateParams bool

	// ReuseOutputBuffer, when true, lets Build() reuse the buffer from the
	// previous Build() call instead of allocating. Callers MUST NOT retain
	// a previously returned slice across a subsequent Build() call in that
	// mode.
	ReuseOutputBuffer bool

	// EncodedStringCacheCap bounds an optional per-builder cache of UTF-8
	// encoded small strings (len <= 96), keyed by string value, to avoid
	// re-encoding the same strings across repeated frames. 0 disables it.
	EncodedStringCacheCap int32
}

// DefaultCaps returns the spec's default Caps (spec.md §3).
func DefaultCaps() Caps {
	return Caps{
		MaxDrawlistBytes:      2 * 1024 * 1024,
		MaxCmdCount:           100_000,
		MaxBlobBytes:          512 * 1024,
		MaxBlobs:              10_000,
		MaxStringBytes:        512 * 1024,
		MaxStrings:            10_000,
		ValidateParams:        true,
		ReuseOutputBuffer:     false,
		EncodedStringCacheCap: 0,
	}
}

// maxEncodedStringCacheEntryLen is the largest length (in bytes) at which a
// string is still eligible for the encoded-string cache (spec.md §9).
const maxEncodedStringCacheEntryLen = 96
