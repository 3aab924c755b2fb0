// Package codec implements the named, parameterized data formats that are used
// to transform between the raw bytes stored in a ROM and the decoded bytes that
// are exposed to the object model.
package codec

import (
	"slices"
	"sort"
	"strconv"
	"strings"
)

// Func transforms data using the optional numeric format arguments.
type Func func(data []byte, args ...int) []byte

// Format is a reversible data transformation.
type Format struct {
	Encode Func
	Decode Func
}

// Registry maps format names to their implementation.
type Registry struct {
	formats map[string]Format
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		formats: map[string]Format{},
	}
}

// Default returns a registry that contains all built-in formats.
func Default() *Registry {
	r := NewRegistry()
	r.Register("none", Format{Encode: identity, Decode: identity})
	r.Register("interlace", Format{Encode: interlaceEncode, Decode: interlaceDecode})
	r.Register("ff4-world", Format{Encode: ff4WorldEncode, Decode: ff4WorldDecode})
	r.Register("ff4-map", Format{Encode: ff4MapEncode, Decode: ff4MapDecode})
	r.Register("ff5-world", Format{Encode: ff5WorldEncode, Decode: ff5WorldDecode})
	r.Register("ff5-lzss", Format{Encode: ff5LZSSEncode, Decode: ff5LZSSDecode})
	r.Register("ff6-lzss", Format{Encode: ff6LZSSEncode, Decode: ff6LZSSDecode})
	r.Register("linear2bpp", Format{Encode: linear2bppEncode, Decode: linear2bppDecode})
	r.Register("linear4bpp", Format{Encode: linear4bppEncode, Decode: linear4bppDecode})
	r.Register("snes2bpp", Format{Encode: snes2bppEncode, Decode: snes2bppDecode})
	r.Register("snes3bpp", Format{Encode: snes3bppEncode, Decode: snes3bppDecode})
	r.Register("snes4bpp", Format{Encode: snes4bppEncode, Decode: snes4bppDecode})
	r.Register("bgr555", Format{Encode: bgr555Encode, Decode: bgr555Decode})
	return r
}

// Register adds or replaces a format.
func (r *Registry) Register(name string, format Format) {
	r.formats[name] = format
}

// Has returns whether a format with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.formats[name]
	return ok
}

// Names returns the sorted names of all registered formats.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.formats))
	for name := range r.formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Encode applies all formats in order. Unknown formats leave the data
// unchanged. The returned slice never aliases the input.
func (r *Registry) Encode(data []byte, formats []string) []byte {
	data = slices.Clone(data)
	for _, f := range formats {
		data = r.apply(data, f, true)
	}
	return data
}

// Decode applies all formats in reverse order. Unknown formats leave the data
// unchanged. The returned slice never aliases the input.
func (r *Registry) Decode(data []byte, formats []string) []byte {
	data = slices.Clone(data)
	for i := len(formats) - 1; i >= 0; i-- {
		data = r.apply(data, formats[i], false)
	}
	return data
}

func (r *Registry) apply(data []byte, format string, encode bool) []byte {
	name, args := ParseFormat(format)
	f, ok := r.formats[name]
	if !ok {
		return data
	}
	if encode {
		return f.Encode(data, args...)
	}
	return f.Decode(data, args...)
}

// ParseFormat splits a format string like "interlace(1,2,256)" into its name
// and numeric arguments. Arguments that are not numbers are passed as 0.
func ParseFormat(format string) (string, []int) {
	format = strings.TrimSpace(format)
	name, rest, found := strings.Cut(format, "(")
	if !found {
		return format, nil
	}

	rest, _, _ = strings.Cut(rest, ")")
	if strings.TrimSpace(rest) == "" {
		return name, nil
	}

	parts := strings.Split(rest, ",")
	args := make([]int, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(part), 0, 64)
		if err == nil {
			args[i] = int(v)
		}
	}
	return name, args
}

func identity(data []byte, _ ...int) []byte {
	return data
}

// arg returns the argument at index i or the given default.
func arg(args []int, i, def int) int {
	if i < len(args) && args[i] > 0 {
		return args[i]
	}
	return def
}

// byteAt returns the byte at index i or 0 if the index is out of bounds.
func byteAt(data []byte, i int) byte {
	if i < 0 || i >= len(data) {
		return 0
	}
	return data[i]
}
