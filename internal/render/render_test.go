package render

import (
	"bytes"
	"errors"
	"image/color"
	"image/png"
	"testing"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/romschema/internal/rom"
	"github.com/retroenv/romschema/internal/schema"
)

const definition = `
assembly:
  graphics:
    type: data
    range: 0x0-0x20
    format: snes4bpp
  palette:
    type: data
    range: 0x20-0x24
    format: bgr555
`

func TestTiles(t *testing.T) {
	pixels := make([]byte, 3*tilePixels+5)
	pixels[tilePixels] = 1
	pixels[2*tilePixels+tileSize+1] = 2

	img, err := Tiles(pixels, grayscale(), 2)
	assert.NoError(t, err)
	assert.Equal(t, 16, img.Bounds().Dx())
	assert.Equal(t, 16, img.Bounds().Dy())
	assert.Equal(t, uint8(1), img.ColorIndexAt(8, 0))
	assert.Equal(t, uint8(2), img.ColorIndexAt(1, 9))

	_, err = Tiles(make([]byte, tilePixels-1), grayscale(), 2)
	assert.True(t, errors.Is(err, errNoTiles))
}

func TestPalette(t *testing.T) {
	palette := Palette([]byte{0xF8, 0x00, 0x00, 0xFF, 0x00, 0x08, 0x10, 0xFF, 0x01})
	assert.Len(t, palette, paletteSize)
	assert.Equal(t, color.RGBA{R: 0xF8, A: 0xFF}, palette[0])
	assert.Equal(t, color.RGBA{G: 0x08, B: 0x10, A: 0xFF}, palette[1])
	assert.Equal(t, color.Transparent, palette[2])
}

func TestRender(t *testing.T) {
	def, err := schema.Parse([]byte(definition))
	assert.NoError(t, err)

	data := make([]byte, 0x24)
	// first row of the tile uses color 1: bit plane 0 set for all pixels
	data[0] = 0xFF
	// color 1 is pure red
	data[0x22], data[0x23] = 0x1F, 0x00

	doc, err := rom.New(def, data, rom.Options{Logger: log.NewTestLogger(t)})
	assert.NoError(t, err)

	img, err := Render(doc, Options{Graphics: "graphics", Palette: "palette", Columns: 4, Scale: 2})
	assert.NoError(t, err)
	assert.Equal(t, 16, img.Bounds().Dx())
	assert.Equal(t, 16, img.Bounds().Dy())

	r, g, b, _ := img.At(1, 1).RGBA()
	assert.Equal(t, uint32(0xF8F8), r)
	assert.Equal(t, uint32(0), g)
	assert.Equal(t, uint32(0), b)

	var buf bytes.Buffer
	assert.NoError(t, WritePNG(&buf, img))
	decoded, err := png.Decode(&buf)
	assert.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())

	_, err = Render(doc, Options{Graphics: "missing"})
	assert.True(t, errors.Is(err, rom.ErrInvalidLink))
}
