package codec

import (
	"bytes"
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		wantName string
		wantArgs []int
	}{
		{input: "ff6-lzss", wantName: "ff6-lzss"},
		{input: "interlace(1,2,256)", wantName: "interlace", wantArgs: []int{1, 2, 256}},
		{input: "interlace(0x02, 4, 0x10)", wantName: "interlace", wantArgs: []int{2, 4, 16}},
		{input: "none()", wantName: "none"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			name, args := ParseFormat(tt.input)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestRegistryRoundTrip(t *testing.T) {
	r := Default()
	text := []byte("the quick brown fox jumps over the lazy dog, the quick brown fox jumps over the lazy dog")
	runs := []byte{1, 1, 1, 1, 2, 3, 3, 3, 4, 5, 5, 6, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7}
	tiles := make([]byte, 2*tilePixels)
	for i := range tiles {
		tiles[i] = byte(i*7) & 0x0F
	}

	tests := []struct {
		name    string
		formats []string
		data    []byte
	}{
		{name: "none", formats: []string{"none"}, data: text},
		{name: "ff5-lzss", formats: []string{"ff5-lzss"}, data: text},
		{name: "ff6-lzss", formats: []string{"ff6-lzss"}, data: text},
		{name: "ff4-map", formats: []string{"ff4-map"}, data: runs},
		{name: "ff4-world", formats: []string{"ff4-world"}, data: runs},
		{name: "interlace", formats: []string{"interlace(1,2,8)"}, data: text[:32]},
		{name: "interlace words", formats: []string{"interlace(2,2,4)"}, data: text[:32]},
		{name: "snes4bpp", formats: []string{"snes4bpp"}, data: tiles},
		{name: "linear4bpp", formats: []string{"linear4bpp"}, data: tiles},
		{name: "pipeline", formats: []string{"interlace(1,2,16)", "ff6-lzss"}, data: text[:64]},
		{name: "unknown format", formats: []string{"unknown"}, data: text},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := r.Encode(tt.data, tt.formats)
			decoded := r.Decode(encoded, tt.formats)
			assert.True(t, bytes.Equal(tt.data, decoded), "decoded data mismatch")
		})
	}
}

func TestEncodeDoesNotAlias(t *testing.T) {
	r := Default()
	data := []byte{1, 2, 3}
	encoded := r.Encode(data, nil)
	encoded[0] = 9
	assert.Equal(t, byte(1), data[0])
}

func TestLZSSCompresses(t *testing.T) {
	data := bytes.Repeat([]byte{0xAA, 0x55}, 256)

	ff5 := ff5LZSSEncode(data)
	assert.True(t, len(ff5) < len(data)/4)
	assert.Equal(t, len(data), int(ff5[0])|int(ff5[1])<<8, "ff5 header stores the decompressed length")

	ff6 := ff6LZSSEncode(data)
	assert.Equal(t, len(ff6), int(ff6[0])|int(ff6[1])<<8, "ff6 header stores the compressed length")
}

func TestLZSSEmpty(t *testing.T) {
	assert.Len(t, ff5LZSSDecode(ff5LZSSEncode(nil)), 0)
	assert.Len(t, ff6LZSSDecode(ff6LZSSEncode(nil)), 0)
	assert.Len(t, ff6LZSSDecode(nil), 0)
}

func TestFF5World(t *testing.T) {
	row := make([]byte, ff5WorldRowLength)
	for i := range row {
		row[i] = byte(i/16) + 0x40
	}
	row[40], row[41], row[42] = 0x0C, 0x0D, 0x0E

	encoded := ff5WorldEncode(row)
	assert.True(t, len(encoded) < len(row))
	assert.True(t, bytes.Equal(row, ff5WorldDecode(encoded)))
}

func TestFF4WorldSpecialTiles(t *testing.T) {
	decoded := ff4WorldDecode([]byte{0x10, 0x85, 0x02})
	assert.Equal(t, []byte{0x10, 0x73, 0x74, 0x75, 0x05, 0x05, 0x05}, decoded)
	assert.Equal(t, []byte{0x10, 0x85, 0x02}, ff4WorldEncode(decoded))
}

func TestInterlaceLayout(t *testing.T) {
	data := []byte{0, 1, 2, 3, 10, 11, 12, 13}
	decoded := interlaceDecode(data, 1, 2, 4)
	assert.Equal(t, []byte{0, 10, 1, 11, 2, 12, 3, 13}, decoded)
}

func TestSNES2bpp(t *testing.T) {
	tile := make([]byte, 16)
	tile[0] = 0x80 // plane 0, row 0, pixel 0
	tile[1] = 0x81 // plane 1, row 0, pixel 0 and 7
	decoded := snes2bppDecode(tile)
	assert.Len(t, decoded, tilePixels)
	assert.Equal(t, byte(3), decoded[0])
	assert.Equal(t, byte(2), decoded[7])
	assert.True(t, bytes.Equal(tile, snes2bppEncode(decoded)))
}

func TestBGR555(t *testing.T) {
	data := []byte{0x1F, 0x7C} // red 31, green 0, blue 31
	decoded := bgr555Decode(data)
	assert.Equal(t, []byte{0xF8, 0x00, 0xF8, 0xFF}, decoded)
	assert.Equal(t, data, bgr555Encode(decoded))
}
