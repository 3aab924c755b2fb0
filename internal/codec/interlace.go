package codec

// The interlace format stores layers of words one after another within a
// block, the decoded form interleaves the words of all layers.
// Arguments: word size in bytes, number of layers, words per layer.

func interlaceEncode(data []byte, args ...int) []byte {
	return interlace(data, args, true)
}

func interlaceDecode(data []byte, args ...int) []byte {
	return interlace(data, args, false)
}

func interlace(data []byte, args []int, encode bool) []byte {
	word := arg(args, 0, 1)
	layers := arg(args, 1, 1)
	stride := arg(args, 2, 1)
	block := word * layers * stride

	dest := make([]byte, len(data))
	copy(dest, data) // trailing partial blocks are kept unchanged

	for base := 0; base+block <= len(data); base += block {
		for w := range stride {
			for layer := range layers {
				planar := base + (layer*stride+w)*word
				interleaved := base + (w*layers+layer)*word
				if encode {
					copy(dest[planar:planar+word], data[interleaved:interleaved+word])
				} else {
					copy(dest[interleaved:interleaved+word], data[planar:planar+word])
				}
			}
		}
	}
	return dest
}
