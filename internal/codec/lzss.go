package codec

const (
	lzssWindowSize  = 0x0800
	lzssWindowMask  = lzssWindowSize - 1
	lzssWindowStart = 0x07DE
	lzssMinMatch    = 3
	lzssMaxMatch    = 34
	lzssMaxOutput   = 0x10000
)

// lzssVariant describes the differences between the LZSS flavours.
type lzssVariant struct {
	// header stores the decompressed length, otherwise the compressed length
	decompressedLength bool
	packPointer        func(pos, length int) (byte, byte)
	unpackPointer      func(lo, hi byte) (pos, length int)
}

var ff5LZSS = lzssVariant{
	decompressedLength: true,
	packPointer: func(pos, length int) (byte, byte) {
		w := pos&0xFF | (pos&0x0700)<<5 | (length-lzssMinMatch)<<8
		return byte(w), byte(w >> 8)
	},
	unpackPointer: func(lo, hi byte) (int, int) {
		pos := int(lo) | int(hi&0xE0)<<3
		return pos, int(hi&0x1F) + lzssMinMatch
	},
}

var ff6LZSS = lzssVariant{
	packPointer: func(pos, length int) (byte, byte) {
		w := (length-lzssMinMatch)<<11 | pos
		return byte(w), byte(w >> 8)
	},
	unpackPointer: func(lo, hi byte) (int, int) {
		w := int(lo) | int(hi)<<8
		return w & lzssWindowMask, w>>11 + lzssMinMatch
	},
}

func ff5LZSSEncode(data []byte, _ ...int) []byte { return lzssEncode(data, ff5LZSS) }
func ff5LZSSDecode(data []byte, _ ...int) []byte { return lzssDecode(data, ff5LZSS) }
func ff6LZSSEncode(data []byte, _ ...int) []byte { return lzssEncode(data, ff6LZSS) }
func ff6LZSSDecode(data []byte, _ ...int) []byte { return lzssDecode(data, ff6LZSS) }

func lzssEncode(data []byte, variant lzssVariant) []byte {
	// the source is preceded by an empty window which matches the zero
	// initialized decompression buffer
	src := make([]byte, lzssWindowSize+len(data))
	copy(src[lzssWindowSize:], data)

	dest := make([]byte, 2, len(data)+len(data)/8+3)
	line := make([]byte, 1, 17)
	header := byte(0)
	mask := 1
	b := lzssWindowStart

	for s := lzssWindowSize; s < len(src); {
		lenMax, posMax := 0, 0
		for p := 1; p <= lzssWindowSize; p++ {
			l := 0
			for l < lzssMaxMatch && s+l < len(src) && src[s+l-p] == src[s+l] {
				l++
			}
			if l > lenMax {
				lenMax = l
				posMax = (b - p) & lzssWindowMask
			}
		}

		if lenMax >= lzssMinMatch {
			lo, hi := variant.packPointer(posMax, lenMax)
			line = append(line, lo, hi)
			s += lenMax
			b += lenMax
		} else {
			header |= byte(mask)
			line = append(line, src[s])
			s++
			b++
		}
		b &= lzssWindowMask
		mask <<= 1

		if mask == 0x100 {
			line[0] = header
			dest = append(dest, line...)
			line = line[:1]
			header = 0
			mask = 1
		}
	}

	if mask != 1 {
		line[0] = header
		dest = append(dest, line...)
	}

	length := len(dest)
	if variant.decompressedLength {
		length = len(data)
	}
	dest[0] = byte(length)
	dest[1] = byte(length >> 8)
	return dest
}

func lzssDecode(data []byte, variant lzssVariant) []byte {
	length := int(byteAt(data, 0)) | int(byteAt(data, 1))<<8
	buffer := make([]byte, lzssWindowSize)
	b := lzssWindowStart
	dest := make([]byte, 0, length)
	s := 2

	done := func() bool {
		if variant.decompressedLength {
			return len(dest) >= length
		}
		return s >= length
	}

	for !done() && s < len(data) {
		header := data[s]
		s++

		for pass := 0; pass < 8; pass, header = pass+1, header>>1 {
			if header&1 != 0 {
				c := byteAt(data, s)
				s++
				dest = append(dest, c)
				buffer[b] = c
				b = (b + 1) & lzssWindowMask
			} else {
				pos, l := variant.unpackPointer(byteAt(data, s), byteAt(data, s+1))
				s += 2
				for i := range l {
					c := buffer[(pos+i)&lzssWindowMask]
					dest = append(dest, c)
					buffer[b] = c
					b = (b + 1) & lzssWindowMask
				}
			}

			if len(dest) >= lzssMaxOutput {
				return dest[:lzssMaxOutput]
			}
			if done() {
				break
			}
		}
	}

	if variant.decompressedLength && len(dest) > length {
		dest = dest[:length]
	}
	return dest
}
