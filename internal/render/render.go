// Package render converts decoded tile graphics and palettes of a document
// into images.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"github.com/retroenv/romschema/internal/rom"
	"golang.org/x/image/draw"
)

const (
	tileSize     = 8
	tilePixels   = tileSize * tileSize
	paletteSize  = 256
	bytesPerRGBA = 4
	grayLevels   = 16
)

var errNoTiles = errors.New("graphics contain no complete tile")

// Options defines what to render.
type Options struct {
	Graphics string // link of the graphics node, decoded to one palette index per pixel
	Palette  string // link of the palette node, decoded to RGBA colors, grayscale if empty
	Columns  int    // tiles per row
	Scale    int    // scale factor of the output image
}

// Render resolves the graphics and palette nodes of the document and returns
// the tiles arranged in rows.
func Render(doc *rom.Document, opts Options) (image.Image, error) {
	graphics, err := doc.Resolve(opts.Graphics)
	if err != nil {
		return nil, fmt.Errorf("resolving graphics: %w", err)
	}

	palette := grayscale()
	if opts.Palette != "" {
		n, err := doc.Resolve(opts.Palette)
		if err != nil {
			return nil, fmt.Errorf("resolving palette: %w", err)
		}
		palette = Palette(n.Data())
	}

	img, err := Tiles(graphics.Data(), palette, opts.Columns)
	if err != nil {
		return nil, fmt.Errorf("rendering '%s': %w", opts.Graphics, err)
	}
	return Scale(img, opts.Scale), nil
}

// Tiles arranges 8x8 tiles of palette indices in rows of the given number
// of columns. A trailing partial tile is ignored.
func Tiles(pixels []byte, palette color.Palette, columns int) (*image.Paletted, error) {
	count := len(pixels) / tilePixels
	if count == 0 {
		return nil, errNoTiles
	}
	if columns < 1 {
		columns = 1
	}
	columns = min(columns, count)
	rows := (count + columns - 1) / columns

	img := image.NewPaletted(image.Rect(0, 0, columns*tileSize, rows*tileSize), palette)
	for tile := range count {
		x0 := (tile % columns) * tileSize
		y0 := (tile / columns) * tileSize
		src := pixels[tile*tilePixels:]
		for y := range tileSize {
			offset := img.PixOffset(x0, y0+y)
			copy(img.Pix[offset:offset+tileSize], src[y*tileSize:(y+1)*tileSize])
		}
	}
	return img, nil
}

// Palette converts RGBA bytes to a palette. It is padded with transparent
// colors so that every byte is a valid index.
func Palette(rgba []byte) color.Palette {
	palette := make(color.Palette, 0, paletteSize)
	for i := 0; i+bytesPerRGBA <= len(rgba) && len(palette) < paletteSize; i += bytesPerRGBA {
		palette = append(palette, color.RGBA{R: rgba[i], G: rgba[i+1], B: rgba[i+2], A: rgba[i+3]})
	}
	return pad(palette)
}

// grayscale returns a 16 level gray ramp.
func grayscale() color.Palette {
	palette := make(color.Palette, 0, paletteSize)
	for i := range grayLevels {
		v := uint8(i * 0xFF / (grayLevels - 1))
		palette = append(palette, color.Gray{Y: v})
	}
	return pad(palette)
}

func pad(palette color.Palette) color.Palette {
	for len(palette) < paletteSize {
		palette = append(palette, color.Transparent)
	}
	return palette
}

// Scale enlarges the image by an integer factor without smoothing.
func Scale(img image.Image, factor int) image.Image {
	if factor <= 1 {
		return img
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// WritePNG encodes the image as PNG.
func WritePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encoding png: %w", err)
	}
	return nil
}
