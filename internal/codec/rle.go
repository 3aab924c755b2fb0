package codec

// ff4WorldEncode compresses a world map row. Tiles 0x00, 0x10, 0x20 and 0x30
// are followed by 3 implied tiles, runs are stored as (tile|0x80, count-1).
func ff4WorldEncode(data []byte, _ ...int) []byte {
	dest := make([]byte, 0, len(data))
	for s := 0; s < len(data); {
		b := data[s]
		s++
		if b == 0x00 || b == 0x10 || b == 0x20 || b == 0x30 {
			dest = append(dest, b)
			s += 3
			continue
		}

		l := 0
		for s+l < len(data) && data[s+l] == b && l < 0xFF {
			l++
		}
		if l > 1 {
			dest = append(dest, b|0x80, byte(l))
			s += l
		} else {
			dest = append(dest, b)
		}
	}
	return dest
}

func ff4WorldDecode(data []byte, _ ...int) []byte {
	dest := make([]byte, 0, 256)
	for s := 0; s < len(data); {
		b := data[s]
		s++
		switch {
		case b&0x80 != 0:
			l := int(byteAt(data, s)) + 1
			s++
			for range l {
				dest = append(dest, b&0x7F)
			}
		case b == 0x00 || b == 0x10 || b == 0x20 || b == 0x30:
			t := (b>>4)*3 + 0x70
			dest = append(dest, b, t, t+1, t+2)
		default:
			dest = append(dest, b)
		}
	}
	return dest
}

// ff4MapEncode compresses map layouts, runs longer than 2 tiles are stored
// as (tile|0x80, count-1).
func ff4MapEncode(data []byte, _ ...int) []byte {
	dest := make([]byte, 0, len(data))
	for s := 0; s < len(data); {
		b := data[s]
		l := 1
		for s+l < len(data) && data[s+l] == b && l < 0xFF {
			l++
		}
		if l > 2 {
			dest = append(dest, b|0x80, byte(l-1))
			s += l
		} else {
			dest = append(dest, b)
			s++
		}
	}
	return dest
}

func ff4MapDecode(data []byte, _ ...int) []byte {
	dest := make([]byte, 0, 1024)
	for s := 0; s < len(data); {
		b := data[s]
		s++
		if b&0x80 == 0 {
			dest = append(dest, b)
			continue
		}
		l := int(byteAt(data, s)) + 1
		s++
		for range l {
			dest = append(dest, b&0x7F)
		}
	}
	return dest
}

const ff5WorldRowLength = 256

func isFF5WorldTriple(b byte) bool {
	return b == 0x0C || b == 0x1C || b == 0x2C
}

// ff5WorldEncode compresses a 256 tile world map row. Tiles 0x0C, 0x1C and
// 0x2C are followed by 2 implied tiles, runs are stored as (0xBF+count, tile).
func ff5WorldEncode(data []byte, _ ...int) []byte {
	n := min(len(data), ff5WorldRowLength)
	dest := make([]byte, 0, n)
	for s := 0; s < n; {
		b := data[s]
		if isFF5WorldTriple(b) {
			dest = append(dest, b)
			s += 3
			continue
		}

		l := 1
		for s+l < n && data[s+l] == b && l < 32 {
			l++
		}
		if l > 2 {
			dest = append(dest, byte(0xBF+l), b)
			s += l
		} else {
			dest = append(dest, b)
			s++
		}
	}
	return dest
}

func ff5WorldDecode(data []byte, _ ...int) []byte {
	dest := make([]byte, 0, ff5WorldRowLength)
	for s := 0; s < len(data); {
		b := data[s]
		s++
		switch {
		case b > 0xBF:
			l := int(b) - 0xBF
			t := byteAt(data, s)
			s++
			for range l {
				dest = append(dest, t)
			}
		case isFF5WorldTriple(b):
			dest = append(dest, b, b+1, b+2)
		default:
			dest = append(dest, b)
		}
	}
	if len(dest) < ff5WorldRowLength {
		dest = append(dest, make([]byte, ff5WorldRowLength-len(dest))...)
	}
	return dest[:ff5WorldRowLength]
}
