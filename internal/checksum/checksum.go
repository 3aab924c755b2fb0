// Package checksum implements the CRC32 and SNES header checksum calculations.
package checksum

import (
	"hash/crc32"
)

// CRC32 returns the IEEE CRC32 of the data.
func CRC32(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

const mirrorStart = 0x800000

// SNES returns the 16 bit SNES header checksum of the data. ROM sizes that
// are not a power of two are handled by mirroring the remainder until it
// fills the next power of two sized block, the way the console header
// checksum is defined.
func SNES(data []byte) uint16 {
	return uint16(mirrorSum(data, mirrorStart))
}

func mirrorSum(data []byte, mask int) int {
	if len(data) == 0 {
		return 0
	}
	for mask > 1 && len(data)&mask == 0 {
		mask >>= 1
	}
	if mask > len(data) {
		mask = len(data)
	}

	part1 := sum(data[:mask]) & 0xFFFF
	remainder := data[mask:]
	if len(remainder) == 0 {
		return part1
	}

	part2 := sum(remainder)
	for length := len(remainder); length < mask; length *= 2 {
		part2 *= 2
	}
	return (part1 + part2) & 0xFFFF
}

func sum(data []byte) int {
	var s int
	for _, b := range data {
		s += int(b)
	}
	return s
}
