package byterange

import (
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Range
		wantErr bool
	}{
		{name: "hex", input: "0x100-0x200", want: New(0x100, 0x200)},
		{name: "decimal", input: "16-32", want: New(16, 32)},
		{name: "single value", input: "0x10", want: New(0x10, 0x10)},
		{name: "spaces", input: " 0x10 - 0x20 ", want: New(0x10, 0x20)},
		{name: "empty", input: "", want: Range{}},
		{name: "invalid begin", input: "zz-0x10", wantErr: true},
		{name: "invalid end", input: "0x10-zz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRange(t *testing.T) {
	r := New(0x10, 0x20)
	assert.Equal(t, 0x10, r.Length())
	assert.False(t, r.IsEmpty())
	assert.True(t, r.Contains(0x10))
	assert.False(t, r.Contains(0x20))
	assert.Equal(t, New(0x20, 0x30), r.Offset(0x10))
	assert.True(t, New(5, 5).IsEmpty())
	assert.Equal(t, New(3, 7), WithLength(3, 4))
}

func TestIntersection(t *testing.T) {
	tests := []struct {
		name string
		a, b Range
		want Range
	}{
		{name: "overlap", a: New(0, 10), b: New(5, 20), want: New(5, 10)},
		{name: "contained", a: New(0, 100), b: New(10, 20), want: New(10, 20)},
		{name: "disjoint", a: New(0, 10), b: New(20, 30), want: Range{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Intersection(tt.b))
			assert.Equal(t, tt.want, tt.b.Intersection(tt.a))
		})
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, New(4, 8), New(4, 12).Clamp(8))
	assert.Equal(t, New(8, 8), New(10, 12).Clamp(8))
	assert.Equal(t, New(0, 2), New(-2, 2).Clamp(8))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "0x10-0x20", New(0x10, 0x20).String())
	assert.Equal(t, "0x000010-0x0000FF", New(0x10, 0xFF).Format(6))
}
