package codec

// Pixel formats decode to one byte per pixel (palette index), 8x8 pixel
// tiles are decoded to 64 consecutive bytes.

const tilePixels = 64

// linear2bppDecode decodes 4 pixels per byte, low bits first.
func linear2bppDecode(data []byte, _ ...int) []byte {
	dest := make([]byte, len(data)*4)
	for i, b := range data {
		for p := range 4 {
			dest[i*4+p] = (b >> (p * 2)) & 0x03
		}
	}
	return dest
}

func linear2bppEncode(data []byte, _ ...int) []byte {
	dest := make([]byte, (len(data)+3)/4)
	for i, c := range data {
		dest[i/4] |= (c & 0x03) << ((i % 4) * 2)
	}
	return dest
}

// linear4bppDecode decodes 2 pixels per byte, low nibble first.
func linear4bppDecode(data []byte, _ ...int) []byte {
	dest := make([]byte, len(data)*2)
	for i, b := range data {
		dest[i*2] = b & 0x0F
		dest[i*2+1] = b >> 4
	}
	return dest
}

func linear4bppEncode(data []byte, _ ...int) []byte {
	dest := make([]byte, (len(data)+1)/2)
	for i, c := range data {
		dest[i/2] |= (c & 0x0F) << ((i % 2) * 4)
	}
	return dest
}

// planeOffsets returns the offset of the bitplane bytes of a row for the
// SNES planar tile formats. Plane pairs are interleaved by row, 3bpp stores
// its third plane as a single byte per row.
func planeOffsets(bpp, row int) []int {
	switch bpp {
	case 2:
		return []int{row * 2, row*2 + 1}
	case 3:
		return []int{row * 2, row*2 + 1, 16 + row}
	default:
		return []int{row * 2, row*2 + 1, 16 + row*2, 16 + row*2 + 1}
	}
}

func planarDecode(data []byte, bpp int) []byte {
	tileSize := bpp * 8
	tiles := len(data) / tileSize
	dest := make([]byte, tiles*tilePixels)
	for t := range tiles {
		src := data[t*tileSize : (t+1)*tileSize]
		for row := range 8 {
			offsets := planeOffsets(bpp, row)
			for x := range 8 {
				var c byte
				for plane, offset := range offsets {
					c |= ((src[offset] >> (7 - x)) & 1) << plane
				}
				dest[t*tilePixels+row*8+x] = c
			}
		}
	}
	return dest
}

func planarEncode(data []byte, bpp int) []byte {
	tileSize := bpp * 8
	tiles := len(data) / tilePixels
	dest := make([]byte, tiles*tileSize)
	for t := range tiles {
		tile := dest[t*tileSize : (t+1)*tileSize]
		for row := range 8 {
			offsets := planeOffsets(bpp, row)
			for x := range 8 {
				c := data[t*tilePixels+row*8+x]
				for plane, offset := range offsets {
					tile[offset] |= ((c >> plane) & 1) << (7 - x)
				}
			}
		}
	}
	return dest
}

func snes2bppDecode(data []byte, _ ...int) []byte { return planarDecode(data, 2) }
func snes2bppEncode(data []byte, _ ...int) []byte { return planarEncode(data, 2) }
func snes3bppDecode(data []byte, _ ...int) []byte { return planarDecode(data, 3) }
func snes3bppEncode(data []byte, _ ...int) []byte { return planarEncode(data, 3) }
func snes4bppDecode(data []byte, _ ...int) []byte { return planarDecode(data, 4) }
func snes4bppEncode(data []byte, _ ...int) []byte { return planarEncode(data, 4) }

// bgr555Decode converts 16 bit little endian BGR555 colors to RGBA bytes.
func bgr555Decode(data []byte, _ ...int) []byte {
	colors := len(data) / 2
	dest := make([]byte, colors*4)
	for i := range colors {
		c := uint16(data[i*2]) | uint16(data[i*2+1])<<8
		dest[i*4] = byte(c&0x1F) << 3
		dest[i*4+1] = byte((c>>5)&0x1F) << 3
		dest[i*4+2] = byte((c>>10)&0x1F) << 3
		dest[i*4+3] = 0xFF
	}
	return dest
}

func bgr555Encode(data []byte, _ ...int) []byte {
	colors := len(data) / 4
	dest := make([]byte, colors*2)
	for i := range colors {
		c := uint16(data[i*4]>>3) | uint16(data[i*4+1]>>3)<<5 | uint16(data[i*4+2]>>3)<<10
		dest[i*2] = byte(c)
		dest[i*2+1] = byte(c >> 8)
	}
	return dest
}
