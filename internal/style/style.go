// Package style encodes the view-level style record (colors, boolean
// attributes, optional underline variant) into the fixed-size binary shape
// the drawlist commands carry. Every command that writes a style block goes
// through Encode/EncodeExtended; there are no other writers of style bytes
// in this module, which is what makes golden byte-for-byte tests feasible.
package style

import "zireael.local/zrtui/internal/wire"

// Color is an 8-bit-per-channel RGB color. The zero value is black.
type Color struct {
	R, G, B uint8
}

// Underline variants recognized by v3 extended style. UnderlineNone means
// "no variant specified" — the plain boolean Underline field still applies.
const (
	UnderlineNone     = ""
	UnderlineStraight = "straight"
	UnderlineDouble   = "double"
	UnderlineCurly    = "curly"
	UnderlineDotted   = "dotted"
	UnderlineDashed   = "dashed"
)

var underlineVariantCode = map[string]uint32{
	UnderlineStraight: 1,
	UnderlineDouble:   2,
	UnderlineCurly:    3,
	UnderlineDotted:   4,
	UnderlineDashed:   5,
}

// Style is a view-level style record. A nil *Style is valid everywhere a
// style is accepted and encodes to all-zero fields.
type Style struct {
	FG *Color
	BG *Color

	Bold          bool
	Italic        bool
	Underline     bool
	Inverse       bool
	Dim           bool
	Strikethrough bool
	Overline      bool
	Blink         bool

	// UnderlineVariant and UnderlineColor are only encoded by EncodeExtended
	// (v3+). An unrecognized variant string encodes as UnderlineNone.
	UnderlineVariant string
	UnderlineColor   *Color
}

func packColor(c *Color) uint32 {
	if c == nil {
		return 0
	}
	return wire.PackRGB(c.R, c.G, c.B)
}

func attrBits(s *Style) uint32 {
	if s == nil {
		return 0
	}
	var a uint32
	if s.Bold {
		a |= wire.AttrBold
	}
	if s.Italic {
		a |= wire.AttrItalic
	}
	if s.Underline || underlineVariantCode[s.UnderlineVariant] != 0 {
		a |= wire.AttrUnderline
	}
	if s.Inverse {
		a |= wire.AttrInverse
	}
	if s.Dim {
		a |= wire.AttrDim
	}
	if s.Strikethrough {
		a |= wire.AttrStrikethrough
	}
	if s.Overline {
		a |= wire.AttrOverline
	}
	if s.Blink {
		a |= wire.AttrBlink
	}
	return a
}

// Encode produces the v1 basic style triple: (fg, bg, attrs). A nil style
// yields (0, 0, 0).
func Encode(s *Style) (fg, bg, attrs uint32) {
	return packColor(fieldFG(s)), packColor(fieldBG(s)), attrBits(s)
}

func fieldFG(s *Style) *Color {
	if s == nil {
		return nil
	}
	return s.FG
}

func fieldBG(s *Style) *Color {
	if s == nil {
		return nil
	}
	return s.BG
}

// EncodeExtended produces the v3 style: the v1 triple plus a reserved word
// whose low 3 bits carry the underline variant code (0 = none) and an
// underline color. An unrecognized variant string encodes reserved=0.
func EncodeExtended(s *Style) (fg, bg, attrs, reserved, underlineColor uint32) {
	fg, bg, attrs = Encode(s)
	if s != nil {
		reserved = underlineVariantCode[s.UnderlineVariant]
		underlineColor = packColor(s.UnderlineColor)
	}
	return fg, bg, attrs, reserved, underlineColor
}

// WireSizeV1 is the byte size of a v1 style block as written into a command
// payload: fg, bg, attrs, reserved0 (4 u32 words).
const WireSizeV1 = 16

// WireSizeV3 is the byte size of a v3 extended style block: the v1 block
// plus the underline-variant reserved word and the underline color.
const WireSizeV3 = WireSizeV1 + 8

// PutV1 writes the v1 style block into p[0:WireSizeV1].
func PutV1(p []byte, s *Style) {
	fg, bg, attrs := Encode(s)
	wire.PutU32(p[0:], fg)
	wire.PutU32(p[4:], bg)
	wire.PutU32(p[8:], attrs)
	wire.PutU32(p[12:], 0) // reserved0
}

// PutV3 writes the v3 extended style block into p[0:WireSizeV3].
func PutV3(p []byte, s *Style) {
	fg, bg, attrs, reserved, ulColor := EncodeExtended(s)
	wire.PutU32(p[0:], fg)
	wire.PutU32(p[4:], bg)
	wire.PutU32(p[8:], attrs)
	wire.PutU32(p[12:], 0) // reserved0 (matches v1 layout)
	wire.PutU32(p[16:], reserved)
	wire.PutU32(p[20:], ulColor)
}
