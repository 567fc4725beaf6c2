package drawlist

import "zireael.local/zrtui/internal/wire"

// Header field byte offsets (spec.md §6, 64-byte fixed header, all fields
// little-endian u32).
const (
	hMagic             = 0
	hVersion           = 4
	hHeaderSize        = 8
	hTotalSize         = 12
	hCmdOffset         = 16
	hCmdBytes          = 20
	hCmdCount          = 24
	hStringSpanOffset  = 28
	hStringCount       = 32
	hStringBytesOffset = 36
	hStringBytesSize   = 40
	hBlobSpanOffset    = 44
	hBlobCount         = 48
	hBlobBytesOffset   = 52
	hBlobBytesSize     = 56
	hReserved0         = 60
)

const spanSize = 8 // offset u32, len u32

// Build assembles the accumulated commands, strings, and blobs into a
// framed ZRDL byte buffer (spec.md §3). Build does not mutate the builder's
// logical content; callers may inspect the builder's Err() after a failed
// Build, and must call Reset before reusing the builder for a new frame.
//
// When caps.ReuseOutputBuffer is set, the returned slice aliases an internal
// buffer that the next Build call will overwrite; callers must finish using
// it (e.g. hand it to the transport) before calling Build again.
func (b *Builder) Build() ([]byte, error) {
	if b.poisoned != nil {
		return nil, b.poisoned
	}
	if !b.version.valid() {
		return nil, b.fail(Internal, "invalid drawlist version")
	}

	cmdSize := len(b.cmd)
	stringSpanTableSize := len(b.stringsSpans) * spanSize
	stringBytesSize := wire.Align4Int(len(b.stringsBytes))
	blobSpanTableSize := len(b.blobsSpans) * spanSize
	blobBytesSize := wire.Align4Int(len(b.blobsBytes))

	cmdOffset := HeaderSize
	stringSpanOffset := cmdOffset + cmdSize
	stringBytesOffset := stringSpanOffset + stringSpanTableSize
	blobSpanOffset := stringBytesOffset + stringBytesSize
	blobBytesOffset := blobSpanOffset + blobSpanTableSize
	totalSize := blobBytesOffset + blobBytesSize

	if int32(totalSize) > b.caps.MaxDrawlistBytes {
		return nil, b.fail(TooLarge, "max_drawlist_bytes exceeded")
	}

	out := b.acquireOutput(totalSize)

	wire.PutU32(out[hMagic:], Magic)
	wire.PutU32(out[hVersion:], uint32(b.version))
	wire.PutU32(out[hHeaderSize:], HeaderSize)
	wire.PutU32(out[hTotalSize:], uint32(totalSize))
	wire.PutU32(out[hCmdOffset:], uint32(declaredOffset(cmdOffset, cmdSize)))
	wire.PutU32(out[hCmdBytes:], uint32(cmdSize))
	wire.PutU32(out[hCmdCount:], uint32(b.cmdCount))
	wire.PutU32(out[hStringSpanOffset:], uint32(declaredOffset(stringSpanOffset, stringSpanTableSize)))
	wire.PutU32(out[hStringCount:], uint32(len(b.stringsSpans)))
	wire.PutU32(out[hStringBytesOffset:], uint32(declaredOffset(stringBytesOffset, len(b.stringsBytes))))
	wire.PutU32(out[hStringBytesSize:], uint32(len(b.stringsBytes)))
	wire.PutU32(out[hBlobSpanOffset:], uint32(declaredOffset(blobSpanOffset, blobSpanTableSize)))
	wire.PutU32(out[hBlobCount:], uint32(len(b.blobsSpans)))
	wire.PutU32(out[hBlobBytesOffset:], uint32(declaredOffset(blobBytesOffset, len(b.blobsBytes))))
	wire.PutU32(out[hBlobBytesSize:], uint32(len(b.blobsBytes)))
	wire.PutU32(out[hReserved0:], 0)

	copy(out[cmdOffset:], b.cmd)
	putSpans(out[stringSpanOffset:], b.stringsSpans)
	n := copy(out[stringBytesOffset:], b.stringsBytes)
	zeroPad(out[stringBytesOffset+n : stringBytesOffset+stringBytesSize])
	putSpans(out[blobSpanOffset:], b.blobsSpans)
	n = copy(out[blobBytesOffset:], b.blobsBytes)
	zeroPad(out[blobBytesOffset+n : blobBytesOffset+blobBytesSize])

	return out, nil
}

// declaredOffset implements the "empty section means offset AND length are
// both 0" rule (spec.md §3): a section's physical position still follows
// the fixed cmd/strings-span/strings-bytes/blobs-span/blobs-bytes order,
// but an empty section reports offset 0 rather than its (irrelevant)
// physical position.
func declaredOffset(physicalOffset, size int) int {
	if size == 0 {
		return 0
	}
	return physicalOffset
}

func putSpans(p []byte, spans []span) {
	for i, s := range spans {
		off := i * spanSize
		wire.PutU32(p[off:], s.off)
		wire.PutU32(p[off+4:], s.len)
	}
}

func zeroPad(p []byte) {
	for i := range p {
		p[i] = 0
	}
}

// acquireOutput returns a zero-length-extended buffer of exactly n bytes,
// reusing b.out when caps.ReuseOutputBuffer is set and it is already large
// enough.
func (b *Builder) acquireOutput(n int) []byte {
	if !b.caps.ReuseOutputBuffer {
		return make([]byte, n)
	}
	if cap(b.out) < n {
		b.out = make([]byte, n)
	} else {
		b.out = b.out[:n]
	}
	return b.out
}
