// Package byterange provides half-open byte intervals used to address data inside a ROM.
package byterange

import (
	"fmt"
	"strconv"
	"strings"
)

// Range is a half-open interval [Begin, End) of byte offsets.
type Range struct {
	Begin int
	End   int
}

// New returns a new range covering [begin, end).
func New(begin, end int) Range {
	return Range{Begin: begin, End: end}
}

// WithLength returns a new range starting at begin that spans length bytes.
func WithLength(begin, length int) Range {
	return Range{Begin: begin, End: begin + length}
}

// Parse parses a range in the form "begin-end" where both values can be
// decimal or 0x prefixed hexadecimal numbers. A single value returns an
// empty range at that offset.
func Parse(s string) (Range, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Range{}, nil
	}

	beginStr, endStr, found := strings.Cut(s, "-")
	begin, err := parseNumber(beginStr)
	if err != nil {
		return Range{}, fmt.Errorf("parsing range begin of '%s': %w", s, err)
	}
	if !found {
		return Range{Begin: begin, End: begin}, nil
	}

	end, err := parseNumber(endStr)
	if err != nil {
		return Range{}, fmt.Errorf("parsing range end of '%s': %w", s, err)
	}
	return Range{Begin: begin, End: end}, nil
}

// MustParse works like Parse but panics on invalid input.
// It is intended for static ranges in tests and tables.
func MustParse(s string) Range {
	r, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return r
}

func parseNumber(s string) (int, error) {
	i, err := strconv.ParseInt(strings.TrimSpace(s), 0, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing number: %w", err)
	}
	return int(i), nil
}

// Length returns the number of bytes covered by the range.
func (r Range) Length() int {
	return r.End - r.Begin
}

// IsEmpty returns whether the range covers no bytes.
func (r Range) IsEmpty() bool {
	return r.End <= r.Begin
}

// Contains returns whether the offset is part of the range.
func (r Range) Contains(offset int) bool {
	return offset >= r.Begin && offset < r.End
}

// Offset returns a copy of the range moved by the given delta.
func (r Range) Offset(delta int) Range {
	return Range{Begin: r.Begin + delta, End: r.End + delta}
}

// Intersection returns the overlap of both ranges. If the ranges do not
// overlap, the returned range is empty.
func (r Range) Intersection(other Range) Range {
	if r.Begin > other.End || r.End < other.Begin {
		return Range{}
	}
	return Range{
		Begin: max(r.Begin, other.Begin),
		End:   min(r.End, other.End),
	}
}

// Clamp limits the range to the interval [0, length).
func (r Range) Clamp(length int) Range {
	r.Begin = min(max(r.Begin, 0), length)
	r.End = min(max(r.End, r.Begin), length)
	return r
}

// String returns the range formatted as 0x-prefixed hex values.
func (r Range) String() string {
	return r.Format(0)
}

// Format returns the range formatted as hex values zero padded to pad digits.
func (r Range) Format(pad int) string {
	return fmt.Sprintf("0x%0*X-0x%0*X", pad, r.Begin, pad, r.End)
}
