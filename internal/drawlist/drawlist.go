// Package drawlist implements the ZRDL binary drawlist builder and reader:
// §3/§4.3/§4.4/§6 of the spec. A Builder accumulates command calls, interns
// strings and blobs, enforces capacity caps, and emits a framed, versioned,
// 4-byte-aligned byte buffer suitable for zero-copy cross-thread transport.
package drawlist

import "zireael.local/zrtui/internal/style"

// Version negotiates which command set and style layout a Builder targets.
// v1 is the baseline; v2 adds SET_CURSOR; v3 adds extended style fields,
// DRAW_CANVAS, DRAW_IMAGE, and the optional SET_LINK.
type Version uint32

const (
	V1 Version = 1
	V2 Version = 2
	V3 Version = 3
)

func (v Version) valid() bool { return v == V1 || v == V2 || v == V3 }

// Magic is the ZRDL header magic number, per spec.md §3/§6.
const Magic uint32 = 0x5645525A

// HeaderSize is the fixed 64-byte ZRDL header size.
const HeaderSize = 64

// Opcode identifies a drawlist command.
type Opcode uint16

const (
	OpClear       Opcode = 1
	OpFillRect    Opcode = 2
	OpDrawText    Opcode = 3
	OpPushClip    Opcode = 4
	OpPopClip     Opcode = 5
	OpDrawTextRun Opcode = 6
	OpSetCursor   Opcode = 7 // v2+
	OpDrawCanvas  Opcode = 8 // v3+
	OpDrawImage   Opcode = 9 // v3+
	OpSetLink     Opcode = 10 // v3+, optional
)

// Command sizes (total size including the 8-byte header, pre-alignment),
// per spec.md §3/§4.3's command size contract. DrawText and style blocks
// vary by version; the rest are version-independent.
const (
	sizeClear       = 8
	sizeFillRect    = 8 + 16 + style1Size
	sizePushClip    = 8 + 16
	sizePopClip     = 8
	sizeDrawTextRun = 8 + 16
	sizeSetCursor   = 8 + 8 + 4
	sizeCanvasImage = 8 + 40 // §8 open-question resolution, see DESIGN.md
	sizeSetLink     = 8 + 24

	style1Size = 16 // fg, bg, attrs, reserved0
	style3Size = 24 // style1Size + underline-variant reserved word + color

	sizeDrawTextV1 = 8 + 8 + 4 + 4 + 4 + style1Size + 4
	sizeDrawTextV3 = 8 + 8 + 4 + 4 + 4 + style3Size + 4
)

// CursorShape enumerates the SET_CURSOR shape field.
type CursorShape uint32

const (
	CursorBlock     CursorShape = 0
	CursorUnderline CursorShape = 1
	CursorBar       CursorShape = 2
)

// Cursor is the argument to Builder.SetCursor. X or Y set to -1 means
// "leave this axis unchanged".
type Cursor struct {
	X, Y    int32
	Shape   CursorShape
	Visible bool
	Blink   bool
}

// Blitter enumerates the DRAW_CANVAS blit mode.
type Blitter uint32

const (
	BlitterHalfBlock Blitter = 0
	BlitterSextant   Blitter = 1
	BlitterBraille   Blitter = 2
)

// PixelFormat enumerates the DRAW_CANVAS/DRAW_IMAGE pixel format.
type PixelFormat uint32

const (
	FormatRGBA8 PixelFormat = 0
	FormatRGB8  PixelFormat = 1
)

// Canvas is the argument to Builder.DrawCanvas (v3+).
type Canvas struct {
	X, Y          int32
	Width, Height uint32
	Blitter       Blitter
	Format        PixelFormat
	ZLayer        int32
	BlobIndex     int
}

// Image is the argument to Builder.DrawImage (v3+).
type Image struct {
	X, Y          int32
	Width, Height uint32
	Format        PixelFormat
	ZLayer        int32
	ImageID       uint32
	BlobIndex     int
}

// TextRunSegment is one segment of a text-run blob: a style applied to a
// byte range of an already-interned string.
type TextRunSegment struct {
	Style       *style.Style
	StringIndex int
	ByteOffset  uint32
	ByteLen     uint32
}
