// Package wire holds the byte-order and alignment primitives shared by the
// drawlist builder, the drawlist reader, and the event batch codec. This is
// the only place in the module where byte-order assumptions live: every
// integer ZRTUI puts on the wire is little-endian, and every section offset
// is a multiple of 4.
package wire

// Align4 rounds n up to the nearest multiple of 4.
func Align4(n uint32) uint32 { return (n + 3) &^ 3 }

// Align4Int is Align4 for plain ints, used when sizing Go slices.
func Align4Int(n int) int { return int(Align4(uint32(n))) }

// PutU16 writes v as little-endian into p[0:2].
func PutU16(p []byte, v uint16) {
	p[0] = byte(v)
	p[1] = byte(v >> 8)
}

// PutU32 writes v as little-endian into p[0:4].
func PutU32(p []byte, v uint32) {
	p[0] = byte(v)
	p[1] = byte(v >> 8)
	p[2] = byte(v >> 16)
	p[3] = byte(v >> 24)
}

// PutI32 writes v as little-endian two's complement into p[0:4].
func PutI32(p []byte, v int32) { PutU32(p, uint32(v)) }

// GetU16 reads a little-endian uint16 from p[0:2].
func GetU16(p []byte) uint16 { return uint16(p[0]) | uint16(p[1])<<8 }

// GetU32 reads a little-endian uint32 from p[0:4].
func GetU32(p []byte) uint32 {
	return uint32(p[0]) | uint32(p[1])<<8 | uint32(p[2])<<16 | uint32(p[3])<<24
}

// GetI32 reads a little-endian int32 from p[0:4].
func GetI32(p []byte) int32 { return int32(GetU32(p)) }

// Attribute bits, least-significant first, per spec.md §3.
const (
	AttrBold uint32 = 1 << iota
	AttrItalic
	AttrUnderline
	AttrInverse
	AttrDim
	AttrStrikethrough
	AttrOverline
	AttrBlink
)

// PackRGB clamps r, g, b to 0..255 (they already are, being uint8) and
// packs them into a u24 RGB value stored in the low 24 bits of a uint32.
func PackRGB(r, g, b uint8) uint32 {
	return uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

// ParseHexRGB parses a "#RRGGBB" string into a packed RGB value. An invalid
// string (wrong length, missing '#', non-hex digits) yields ok=false.
func ParseHexRGB(s string) (rgb uint32, ok bool) {
	if len(s) != 7 || s[0] != '#' {
		return 0, false
	}
	var v uint32
	for i := 1; i < 7; i++ {
		c := s[i]
		var d uint32
		switch {
		case c >= '0' && c <= '9':
			d = uint32(c - '0')
		case c >= 'a' && c <= 'f':
			d = uint32(c-'a') + 10
		case c >= 'A' && c <= 'F':
			d = uint32(c-'A') + 10
		default:
			return 0, false
		}
		v = v<<4 | d
	}
	return v, true
}
