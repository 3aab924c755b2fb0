package checksum

import (
	"bytes"
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func TestCRC32(t *testing.T) {
	assert.Equal(t, uint32(0xCBF43926), CRC32([]byte("123456789")))
	assert.Equal(t, uint32(0), CRC32(nil))
}

func TestSNES(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want uint16
	}{
		{name: "empty", data: nil, want: 0},
		{name: "power of two", data: bytes.Repeat([]byte{1}, 0x400), want: 0x400},
		{name: "overflow wraps", data: bytes.Repeat([]byte{0xFF}, 0x200), want: 0xFE00 & 0xFFFF},
		// 0x400 bytes of 1 followed by a 0x200 byte remainder mirrored twice
		{name: "mirrored remainder", data: append(bytes.Repeat([]byte{1}, 0x400), bytes.Repeat([]byte{2}, 0x200)...), want: 0x400 + 0x800},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SNES(tt.data))
		})
	}
}
