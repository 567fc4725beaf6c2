package drawlist

import "zireael.local/zrtui/internal/wire"

// Reader parses an already-received ZRDL buffer (spec.md §4.4). Unlike
// Builder, Reader does no allocation beyond the returned command/string/blob
// values: it indexes directly into the caller-owned backing buffer.
type Reader struct {
	buf []byte

	Version    Version
	TotalSize  uint32
	CmdCount   uint32
	cmdOffset  uint32
	cmdSize    uint32

	stringCount       uint32
	stringSpanOffset  uint32
	stringBytesOffset uint32
	stringBytesSize   uint32

	blobCount       uint32
	blobSpanOffset  uint32
	blobBytesOffset uint32
	blobBytesSize   uint32
}

// NewReader parses buf's 64-byte header and validates it structurally
// (magic, version, section bounds). It does not walk the command stream;
// use Commands to do that.
func NewReader(buf []byte) (*Reader, error) {
	if len(buf) < HeaderSize {
		return nil, newErr(Format, "buffer shorter than header")
	}
	if wire.GetU32(buf[hMagic:]) != Magic {
		return nil, newErr(Format, "bad magic")
	}
	v := Version(wire.GetU32(buf[hVersion:]))
	if !v.valid() {
		return nil, newErr(Format, "unsupported version")
	}
	total := wire.GetU32(buf[hTotalSize:])
	if int(total) != len(buf) {
		return nil, newErr(Format, "total_size does not match buffer length")
	}

	r := &Reader{
		buf:               buf,
		Version:           v,
		TotalSize:         total,
		CmdCount:          wire.GetU32(buf[hCmdCount:]),
		cmdOffset:         wire.GetU32(buf[hCmdOffset:]),
		cmdSize:           wire.GetU32(buf[hCmdBytes:]),
		stringCount:       wire.GetU32(buf[hStringCount:]),
		stringSpanOffset:  wire.GetU32(buf[hStringSpanOffset:]),
		stringBytesOffset: wire.GetU32(buf[hStringBytesOffset:]),
		stringBytesSize:   wire.GetU32(buf[hStringBytesSize:]),
		blobCount:         wire.GetU32(buf[hBlobCount:]),
		blobSpanOffset:    wire.GetU32(buf[hBlobSpanOffset:]),
		blobBytesOffset:   wire.GetU32(buf[hBlobBytesOffset:]),
		blobBytesSize:     wire.GetU32(buf[hBlobBytesSize:]),
	}
	if err := r.checkBounds(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reader) checkBounds() error {
	n := uint32(len(r.buf))
	sections := []struct {
		off, size uint32
	}{
		{r.cmdOffset, r.cmdSize},
		{r.stringSpanOffset, r.stringCount * spanSize},
		{r.stringBytesOffset, r.stringBytesSize},
		{r.blobSpanOffset, r.blobCount * spanSize},
		{r.blobBytesOffset, r.blobBytesSize},
	}
	for _, s := range sections {
		if s.off > n || s.size > n-s.off {
			return newErr(Format, "section out of bounds")
		}
	}
	return nil
}

// Command is one decoded entry from the command stream: its opcode and the
// raw payload bytes following the 8-byte per-command header.
type Command struct {
	Op      Opcode
	Payload []byte
}

// Commands returns every command in stream order. A malformed command
// stream (a size field that would run past the section end) yields a
// Format error.
func (r *Reader) Commands() ([]Command, error) {
	cmds := make([]Command, 0, r.CmdCount)
	stream := r.buf[r.cmdOffset : r.cmdOffset+r.cmdSize]
	pos := 0
	for pos < len(stream) {
		if len(stream)-pos < 8 {
			return nil, newErr(Format, "truncated command header")
		}
		op := Opcode(wire.GetU16(stream[pos:]))
		size := wire.GetU32(stream[pos+4:])
		if size < 8 || int(size) > len(stream)-pos {
			return nil, newErr(Format, "command size out of bounds")
		}
		cmds = append(cmds, Command{Op: op, Payload: stream[pos+8 : pos+int(size)]})
		pos += int(wire.Align4(size))
	}
	if uint32(len(cmds)) != r.CmdCount {
		return nil, newErr(Format, "command count mismatch")
	}
	return cmds, nil
}

// String returns the UTF-8 bytes of the string at idx.
func (r *Reader) String(idx int) ([]byte, error) {
	sp, err := r.span(r.stringSpanOffset, r.stringCount, idx)
	if err != nil {
		return nil, err
	}
	return r.sliceSection(r.stringBytesOffset, r.stringBytesSize, sp)
}

// Blob returns the raw bytes of the blob at idx.
func (r *Reader) Blob(idx int) ([]byte, error) {
	sp, err := r.span(r.blobSpanOffset, r.blobCount, idx)
	if err != nil {
		return nil, err
	}
	return r.sliceSection(r.blobBytesOffset, r.blobBytesSize, sp)
}

func (r *Reader) span(tableOffset, count uint32, idx int) (span, error) {
	if idx < 0 || uint32(idx) >= count {
		return span{}, newErr(BadParams, "index out of range")
	}
	off := tableOffset + uint32(idx)*spanSize
	return span{
		off: wire.GetU32(r.buf[off:]),
		len: wire.GetU32(r.buf[off+4:]),
	}, nil
}

func (r *Reader) sliceSection(sectionOffset, sectionSize uint32, sp span) ([]byte, error) {
	if sp.off > sectionSize || sp.len > sectionSize-sp.off {
		return nil, newErr(Format, "span out of bounds")
	}
	start := sectionOffset + sp.off
	return r.buf[start : start+sp.len], nil
}

// StringCount and BlobCount report interned-entry counts.
func (r *Reader) StringCount() int { return int(r.stringCount) }
func (r *Reader) BlobCount() int   { return int(r.blobCount) }
