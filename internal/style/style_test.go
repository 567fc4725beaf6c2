package style

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeNil(t *testing.T) {
	fg, bg, attrs := Encode(nil)
	assert.Zero(t, fg)
	assert.Zero(t, bg)
	assert.Zero(t, attrs)
}

func TestEncodeAttrBits(t *testing.T) {
	s := &Style{Bold: true, Strikethrough: true}
	_, _, attrs := Encode(s)
	assert.Equal(t, uint32(1<<0|1<<5), attrs)
}

func TestUnderlineFromVariantOnly(t *testing.T) {
	s := &Style{UnderlineVariant: UnderlineCurly}
	_, _, attrs := Encode(s)
	// underline is bit index 2 (0=bold,1=italic,2=underline)
	assert.NotZero(t, attrs&(1<<2), "expected underline bit set from variant alone")
}

func TestEncodeExtendedUnknownVariant(t *testing.T) {
	s := &Style{UnderlineVariant: "zigzag"}
	_, _, _, reserved, _ := EncodeExtended(s)
	assert.Zero(t, reserved, "unknown variant should encode reserved=0")
}

func TestEncodeExtendedKnownVariant(t *testing.T) {
	s := &Style{UnderlineVariant: UnderlineDashed, UnderlineColor: &Color{R: 1, G: 2, B: 3}}
	_, _, _, reserved, ulColor := EncodeExtended(s)
	assert.Equal(t, uint32(5), reserved, "dashed variant code")
	assert.Equal(t, uint32(0x010203), ulColor)
}

func TestPutV1AndV3Sizes(t *testing.T) {
	require.Equal(t, 16, WireSizeV1)
	buf1 := make([]byte, WireSizeV1)
	PutV1(buf1, &Style{Bold: true})

	require.Equal(t, 24, WireSizeV3)
	buf3 := make([]byte, WireSizeV3)
	PutV3(buf3, &Style{Bold: true, UnderlineVariant: UnderlineDouble})
}

func TestEncodeIdempotent(t *testing.T) {
	s := &Style{FG: &Color{R: 10, G: 20, B: 30}, Bold: true, Underline: true}
	fg1, bg1, a1 := Encode(s)
	fg2, bg2, a2 := Encode(s)
	assert.Equal(t, fg1, fg2)
	assert.Equal(t, bg1, bg2)
	assert.Equal(t, a1, a2, "Encode is not deterministic across repeated calls")
}
