package drawlist

import (
	"unicode/utf8"

	"zireael.local/zrtui/internal/style"
	"zireael.local/zrtui/internal/wire"
)

type span struct {
	off uint32
	len uint32
}

// Builder accumulates drawlist command calls for one frame. It is a local
// value: create one with NewBuilder, call the Cmd-style methods, and call
// Build once. On error the builder is poisoned — every further mutator is
// a no-op and Build keeps returning the latched error — until Reset is
// called.
type Builder struct {
	version Version
	caps    Caps

	poisoned *BuildError

	cmd      []byte
	cmdCount int32

	clipDepth int

	stringIndex  map[string]int
	stringsSpans []span
	stringsBytes []byte

	blobsSpans []span
	blobsBytes []byte

	out []byte

	stringCache map[string][]byte

	cursorSet bool
}

// NewBuilder creates a Builder targeting the given command-set version with
// the given caps.
func NewBuilder(version Version, caps Caps) *Builder {
	b := &Builder{version: version, caps: caps}
	b.initMaps()
	if caps.EncodedStringCacheCap > 0 {
		b.stringCache = make(map[string][]byte)
	}
	return b
}

func (b *Builder) initMaps() {
	b.stringIndex = make(map[string]int)
}

// Reset clears all accumulated state so the builder can be reused for the
// next frame. Internal buffers are kept (truncated to length 0) so their
// capacity carries over.
func (b *Builder) Reset() {
	b.poisoned = nil
	b.cmd = b.cmd[:0]
	b.cmdCount = 0
	b.clipDepth = 0
	b.cursorSet = false
	b.initMaps()
	b.stringsSpans = b.stringsSpans[:0]
	b.stringsBytes = b.stringsBytes[:0]
	b.blobsSpans = b.blobsSpans[:0]
	b.blobsBytes = b.blobsBytes[:0]
	if b.caps.EncodedStringCacheCap > 0 && b.stringCache == nil {
		b.stringCache = make(map[string][]byte)
	}
}

// Reserve pre-sizes the command and string-byte buffers to reduce growth
// reallocations across a frame whose rough shape is known in advance.
func (b *Builder) Reserve(cmdBytesCap, stringBytesCap, stringsCap int) {
	if cap(b.cmd) < cmdBytesCap {
		grown := make([]byte, len(b.cmd), cmdBytesCap)
		copy(grown, b.cmd)
		b.cmd = grown
	}
	if cap(b.stringsBytes) < stringBytesCap {
		grown := make([]byte, len(b.stringsBytes), stringBytesCap)
		copy(grown, b.stringsBytes)
		b.stringsBytes = grown
	}
	if cap(b.stringsSpans) < stringsCap {
		grown := make([]span, len(b.stringsSpans), stringsCap)
		copy(grown, b.stringsSpans)
		b.stringsSpans = grown
	}
}

// Err returns the latched build error, if any.
func (b *Builder) Err() error {
	if b.poisoned == nil {
		return nil
	}
	return b.poisoned
}

func (b *Builder) poison(err *BuildError) *BuildError {
	if b.poisoned == nil {
		b.poisoned = err
	}
	return b.poisoned
}

func (b *Builder) fail(code ErrorCode, detail string) *BuildError {
	return b.poison(newErr(code, detail))
}

// appendGrow appends n zero bytes to *buf, doubling capacity as needed, and
// returns the appended slice for the caller to fill in. cap is the byte
// budget the section must not exceed.
func appendGrow(buf []byte, n int, cap_ int32) ([]byte, []byte, bool) {
	if n <= 0 {
		return buf, nil, true
	}
	old := len(buf)
	need := old + n
	if need > int(cap_) {
		return buf, nil, false
	}
	if need > cap(buf) {
		newCap := cap(buf) * 2
		if newCap < need {
			newCap = need
		}
		if newCap > int(cap_) {
			newCap = int(cap_)
		}
		grown := make([]byte, old, newCap)
		copy(grown, buf)
		buf = grown
	}
	buf = buf[:need]
	return buf, buf[old:need], true
}

func (b *Builder) appendCmd(n int) ([]byte, bool) {
	grown, out, ok := appendGrow(b.cmd, n, b.caps.MaxDrawlistBytes)
	b.cmd = grown
	return out, ok
}

func (b *Builder) appendBlobBytes(n int) ([]byte, bool) {
	grown, out, ok := appendGrow(b.blobsBytes, n, b.caps.MaxBlobBytes)
	b.blobsBytes = grown
	return out, ok
}

func (b *Builder) appendStringBytes(n int) ([]byte, bool) {
	grown, out, ok := appendGrow(b.stringsBytes, n, b.caps.MaxStringBytes)
	b.stringsBytes = grown
	return out, ok
}

// checkCmdCount enforces MaxCmdCount before a new command is reserved.
func (b *Builder) checkCmdCount() bool {
	return b.cmdCount < b.caps.MaxCmdCount
}

// writeCmdHeader reserves cmdSize bytes for one command, writes its 8-byte
// header (opcode, flags=0, size), and returns the payload slice the caller
// fills in. It does not check cmdSize against op: every command method
// passes its own version-resolved size constant, so cmdSize never comes
// from caller input, and a wrong constant is written as given.
func (b *Builder) writeCmdHeader(op Opcode, cmdSize int) ([]byte, bool) {
	if !b.checkCmdCount() {
		b.fail(TooLarge, "max_cmd_count exceeded")
		return nil, false
	}
	p, ok := b.appendCmd(cmdSize)
	if !ok {
		b.fail(TooLarge, "max_drawlist_bytes exceeded")
		return nil, false
	}
	wire.PutU16(p[0:], uint16(op))
	wire.PutU16(p[2:], 0)
	wire.PutU32(p[4:], uint32(cmdSize))
	b.cmdCount++
	return p[8:], true
}

// AddString interns s, returning the existing span index if s was already
// added (spec.md §3 "duplicate strings are deduplicated").
func (b *Builder) AddString(s string) (int, error) {
	if b.poisoned != nil {
		return 0, b.poisoned
	}
	if idx, ok := b.stringIndex[s]; ok {
		return idx, nil
	}
	encoded := b.encodeString(s)
	p, ok := b.appendStringBytes(len(encoded))
	if !ok {
		return 0, b.fail(TooLarge, "max_string_bytes exceeded")
	}
	copy(p, encoded)
	if len(b.stringsSpans) >= int(b.caps.MaxStrings) {
		return 0, b.fail(TooLarge, "max_strings exceeded")
	}
	off := uint32(len(b.stringsBytes) - len(encoded))
	idx := len(b.stringsSpans)
	b.stringsSpans = append(b.stringsSpans, span{off: off, len: uint32(len(encoded))})
	b.stringIndex[s] = idx
	return idx, nil
}

// encodeString returns the UTF-8 bytes of s, consulting and maintaining the
// optional encoded-string cache (spec.md §9). The cache is cleared wholesale
// once it reaches EncodedStringCacheCap entries.
func (b *Builder) encodeString(s string) []byte {
	if b.stringCache == nil || len(s) > maxEncodedStringCacheEntryLen {
		return []byte(s)
	}
	if cached, ok := b.stringCache[s]; ok {
		return cached
	}
	if int32(len(b.stringCache)) >= b.caps.EncodedStringCacheCap {
		b.stringCache = make(map[string][]byte)
	}
	encoded := []byte(s)
	b.stringCache[s] = encoded
	return encoded
}

// AddBlob appends bytes verbatim as a new blob and returns its index. The
// length of bytes must already be 4-aligned; the builder does not pad
// caller-supplied blob payloads.
func (b *Builder) AddBlob(data []byte) (int, error) {
	if b.poisoned != nil {
		return 0, b.poisoned
	}
	if len(data)%4 != 0 {
		return 0, b.fail(BadParams, "blob length not 4-aligned")
	}
	return b.addBlobBytes(data)
}

func (b *Builder) addBlobBytes(data []byte) (int, error) {
	off := uint32(len(b.blobsBytes))
	aligned := wire.Align4(off)
	if aligned != off {
		padN := int(aligned - off)
		pad, ok := b.appendBlobBytes(padN)
		if !ok {
			return 0, b.fail(TooLarge, "max_blob_bytes exceeded")
		}
		for i := range pad {
			pad[i] = 0
		}
		off = aligned
	}
	p, ok := b.appendBlobBytes(len(data))
	if !ok {
		return 0, b.fail(TooLarge, "max_blob_bytes exceeded")
	}
	copy(p, data)
	if len(b.blobsSpans) >= int(b.caps.MaxBlobs) {
		return 0, b.fail(TooLarge, "max_blobs exceeded")
	}
	idx := len(b.blobsSpans)
	b.blobsSpans = append(b.blobsSpans, span{off: off, len: uint32(len(data))})
	return idx, nil
}

// textRunSegSize is the fixed per-segment size of a canonical text-run
// blob: style (fg,bg,attrs,reserved0 = 16B) + string_index (4B) +
// byte_offset (4B) + byte_len (4B).
const textRunSegSize = style.WireSizeV1 + 12

// AddTextRunBlob builds the canonical text-run blob layout (spec.md §3,
// §8 scenario 3): a u32 segment count followed by fixed-size segments.
func (b *Builder) AddTextRunBlob(segs []TextRunSegment) (int, error) {
	if b.poisoned != nil {
		return 0, b.poisoned
	}
	for _, s := range segs {
		if s.StringIndex < 0 || s.StringIndex >= len(b.stringsSpans) {
			return 0, b.fail(BadParams, "text run segment references unknown string index")
		}
	}
	blobLen := 4 + len(segs)*textRunSegSize
	raw := make([]byte, blobLen)
	wire.PutU32(raw[0:], uint32(len(segs)))
	wp := 4
	for _, s := range segs {
		style.PutV1(raw[wp:], s.Style)
		wire.PutU32(raw[wp+16:], uint32(s.StringIndex))
		wire.PutU32(raw[wp+20:], s.ByteOffset)
		wire.PutU32(raw[wp+24:], s.ByteLen)
		wp += textRunSegSize
	}
	return b.addBlobBytes(raw)
}

func (b *Builder) clampOrReject(v int32, allowNegative bool, what string) (int32, bool) {
	if allowNegative {
		return v, true
	}
	if v < 0 {
		if !b.caps.ValidateParams {
			return 0, true
		}
		b.fail(BadParams, what+" must be non-negative")
		return 0, false
	}
	return v, true
}

// Clear appends a CLEAR command.
func (b *Builder) Clear() error {
	if b.poisoned != nil {
		return b.poisoned
	}
	if _, ok := b.writeCmdHeader(OpClear, sizeClear); !ok {
		return b.poisoned
	}
	return nil
}

// ClearTo is Clear followed by FillRect(0, 0, cols, rows, st) (spec.md §4.3).
func (b *Builder) ClearTo(cols, rows int32, st *style.Style) error {
	if b.poisoned != nil {
		return b.poisoned
	}
	if err := b.Clear(); err != nil {
		return err
	}
	return b.FillRect(0, 0, cols, rows, st)
}

// FillRect emits FILL_RECT. x, y may be negative; w, h must be
// non-negative (clamped to 0 when ValidateParams is false, rejected
// otherwise).
func (b *Builder) FillRect(x, y, w, h int32, st *style.Style) error {
	if b.poisoned != nil {
		return b.poisoned
	}
	w, ok := b.clampOrReject(w, false, "w")
	if !ok {
		return b.poisoned
	}
	h, ok = b.clampOrReject(h, false, "h")
	if !ok {
		return b.poisoned
	}
	p, ok := b.writeCmdHeader(OpFillRect, sizeFillRect)
	if !ok {
		return b.poisoned
	}
	wire.PutI32(p[0:], x)
	wire.PutI32(p[4:], y)
	wire.PutI32(p[8:], w)
	wire.PutI32(p[12:], h)
	style.PutV1(p[16:], st)
	return nil
}

func (b *Builder) drawTextSlice(x, y int32, stringIndex int, byteOff, byteLen uint32, st *style.Style) error {
	switch b.version {
	case V3:
		p, ok := b.writeCmdHeader(OpDrawText, sizeDrawTextV3)
		if !ok {
			return b.poisoned
		}
		wire.PutI32(p[0:], x)
		wire.PutI32(p[4:], y)
		wire.PutU32(p[8:], uint32(stringIndex))
		wire.PutU32(p[12:], byteOff)
		wire.PutU32(p[16:], byteLen)
		style.PutV3(p[20:], st)
		wire.PutU32(p[20+style3Size:], 0) // cmd reserved0
	default:
		p, ok := b.writeCmdHeader(OpDrawText, sizeDrawTextV1)
		if !ok {
			return b.poisoned
		}
		wire.PutI32(p[0:], x)
		wire.PutI32(p[4:], y)
		wire.PutU32(p[8:], uint32(stringIndex))
		wire.PutU32(p[12:], byteOff)
		wire.PutU32(p[16:], byteLen)
		style.PutV1(p[20:], st)
		wire.PutU32(p[20+style1Size:], 0) // cmd reserved0
	}
	return nil
}

// DrawText interns text and emits a DRAW_TEXT command referencing the
// resulting span.
func (b *Builder) DrawText(x, y int32, text string, st *style.Style) error {
	if b.poisoned != nil {
		return b.poisoned
	}
	if !utf8.ValidString(text) {
		return b.fail(BadParams, "text is not valid UTF-8")
	}
	idx, err := b.AddString(text)
	if err != nil {
		return err
	}
	return b.drawTextSlice(x, y, idx, 0, uint32(len(text)), st)
}

// PushClip brackets a clip rectangle. w, h follow the same non-negative
// rule as FillRect.
func (b *Builder) PushClip(x, y, w, h int32) error {
	if b.poisoned != nil {
		return b.poisoned
	}
	w, ok := b.clampOrReject(w, false, "w")
	if !ok {
		return b.poisoned
	}
	h, ok = b.clampOrReject(h, false, "h")
	if !ok {
		return b.poisoned
	}
	p, ok := b.writeCmdHeader(OpPushClip, sizePushClip)
	if !ok {
		return b.poisoned
	}
	wire.PutI32(p[0:], x)
	wire.PutI32(p[4:], y)
	wire.PutI32(p[8:], w)
	wire.PutI32(p[12:], h)
	b.clipDepth++
	return nil
}

// PopClip closes the most recently pushed clip rectangle.
func (b *Builder) PopClip() error {
	if b.poisoned != nil {
		return b.poisoned
	}
	if b.clipDepth == 0 && b.caps.ValidateParams {
		return b.fail(BadParams, "pop_clip without matching push_clip")
	}
	if _, ok := b.writeCmdHeader(OpPopClip, sizePopClip); !ok {
		return b.poisoned
	}
	if b.clipDepth > 0 {
		b.clipDepth--
	}
	return nil
}

// DrawTextRun emits DRAW_TEXT_RUN referencing a blob previously added via
// AddTextRunBlob.
func (b *Builder) DrawTextRun(x, y int32, blobIndex int) error {
	if b.poisoned != nil {
		return b.poisoned
	}
	if blobIndex < 0 || blobIndex >= len(b.blobsSpans) {
		return b.fail(BadParams, "blob index out of range")
	}
	p, ok := b.writeCmdHeader(OpDrawTextRun, sizeDrawTextRun)
	if !ok {
		return b.poisoned
	}
	wire.PutI32(p[0:], x)
	wire.PutI32(p[4:], y)
	wire.PutU32(p[8:], uint32(blobIndex))
	wire.PutU32(p[12:], 0)
	return nil
}

// SetCursor emits SET_CURSOR (v2+). X=-1 or Y=-1 means "leave that axis
// unchanged".
func (b *Builder) SetCursor(c Cursor) error {
	if b.poisoned != nil {
		return b.poisoned
	}
	if b.version < V2 {
		return b.fail(BadParams, "set_cursor requires drawlist version >= 2")
	}
	p, ok := b.writeCmdHeader(OpSetCursor, sizeSetCursor)
	if !ok {
		return b.poisoned
	}
	wire.PutI32(p[0:], c.X)
	wire.PutI32(p[4:], c.Y)
	p[8] = byte(c.Shape)
	if c.Visible {
		p[9] = 1
	}
	if c.Blink {
		p[10] = 1
	}
	p[11] = 0 // reserved0
	b.cursorSet = true
	return nil
}

// HideCursor is equivalent to SetCursor({-1, -1, CursorBlock, false, false}).
func (b *Builder) HideCursor() error {
	return b.SetCursor(Cursor{X: -1, Y: -1})
}

func (b *Builder) requireV3(what string) bool {
	if b.version < V3 {
		b.fail(BadParams, what+" requires drawlist version >= 3")
		return false
	}
	return true
}

// DrawCanvas emits DRAW_CANVAS (v3+), referencing a pixel-data blob
// previously added via AddBlob.
func (b *Builder) DrawCanvas(c Canvas) error {
	if b.poisoned != nil {
		return b.poisoned
	}
	if !b.requireV3("draw_canvas") {
		return b.poisoned
	}
	if c.BlobIndex < 0 || c.BlobIndex >= len(b.blobsSpans) {
		return b.fail(BadParams, "canvas blob index out of range")
	}
	p, ok := b.writeCmdHeader(OpDrawCanvas, sizeCanvasImage)
	if !ok {
		return b.poisoned
	}
	wire.PutI32(p[0:], c.X)
	wire.PutI32(p[4:], c.Y)
	wire.PutU32(p[8:], c.Width)
	wire.PutU32(p[12:], c.Height)
	wire.PutU32(p[16:], uint32(c.Blitter))
	wire.PutU32(p[20:], uint32(c.Format))
	wire.PutI32(p[24:], c.ZLayer)
	wire.PutU32(p[28:], uint32(c.BlobIndex))
	wire.PutU32(p[32:], 0) // reserved0
	wire.PutU32(p[36:], 0) // reserved1
	return nil
}

// DrawImage emits DRAW_IMAGE (v3+), referencing a pixel-data blob previously
// added via AddBlob.
func (b *Builder) DrawImage(img Image) error {
	if b.poisoned != nil {
		return b.poisoned
	}
	if !b.requireV3("draw_image") {
		return b.poisoned
	}
	if img.BlobIndex < 0 || img.BlobIndex >= len(b.blobsSpans) {
		return b.fail(BadParams, "image blob index out of range")
	}
	p, ok := b.writeCmdHeader(OpDrawImage, sizeCanvasImage)
	if !ok {
		return b.poisoned
	}
	wire.PutI32(p[0:], img.X)
	wire.PutI32(p[4:], img.Y)
	wire.PutU32(p[8:], img.Width)
	wire.PutU32(p[12:], img.Height)
	wire.PutU32(p[16:], uint32(img.Format))
	wire.PutI32(p[20:], img.ZLayer)
	wire.PutU32(p[24:], img.ImageID)
	wire.PutU32(p[28:], uint32(img.BlobIndex))
	wire.PutU32(p[32:], 0) // reserved0
	wire.PutU32(p[36:], 0) // reserved1
	return nil
}

// SetLink emits SET_LINK (v3+, optional): a hyperlink hint over a
// rectangular region. Engines that do not support link hints ignore it.
func (b *Builder) SetLink(x, y, w, h int32, uri string) error {
	if b.poisoned != nil {
		return b.poisoned
	}
	if !b.requireV3("set_link") {
		return b.poisoned
	}
	w, ok := b.clampOrReject(w, false, "w")
	if !ok {
		return b.poisoned
	}
	h, ok = b.clampOrReject(h, false, "h")
	if !ok {
		return b.poisoned
	}
	idx, err := b.AddString(uri)
	if err != nil {
		return err
	}
	p, ok := b.writeCmdHeader(OpSetLink, sizeSetLink)
	if !ok {
		return b.poisoned
	}
	wire.PutI32(p[0:], x)
	wire.PutI32(p[4:], y)
	wire.PutI32(p[8:], w)
	wire.PutI32(p[12:], h)
	wire.PutU32(p[16:], uint32(idx))
	wire.PutU32(p[20:], uint32(len(uri)))
	return nil
}
