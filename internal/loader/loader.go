// Package loader handles ROM and schema file loading operations.
package loader

import (
	"fmt"
	"os"

	"github.com/retroenv/romschema/internal/schema"
)

const (
	copierHeaderSize = 0x200
	copierBlockSize  = 0x400
)

// ROM contains a loaded ROM image.
type ROM struct {
	Data []byte
	// Header contains the stripped copier header, it is prepended again
	// when the image is written.
	Header []byte
}

// Image returns the ROM data including the copier header.
func (r *ROM) Image(data []byte) []byte {
	if len(r.Header) == 0 {
		return data
	}
	image := make([]byte, 0, len(r.Header)+len(data))
	image = append(image, r.Header...)
	return append(image, data...)
}

// Loader handles loading ROM and schema files from disk.
type Loader struct{}

// New creates a new loader.
func New() *Loader {
	return &Loader{}
}

// Load reads a ROM file. A 512 byte copier header is detected by the image
// size not being a multiple of 1 KiB and stripped from the data.
func (l *Loader) Load(path string) (*ROM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("file %s is empty", path)
	}

	r := &ROM{Data: data}
	if len(data)%copierBlockSize == copierHeaderSize {
		r.Header = data[:copierHeaderSize]
		r.Data = data[copierHeaderSize:]
	}
	return r, nil
}

// LoadSchema reads and parses a schema definition file.
func (l *Loader) LoadSchema(path string) (*schema.Definition, error) {
	def, err := schema.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading schema %s: %w", path, err)
	}
	return def, nil
}

// Write writes the ROM image with the given data to the file.
func (l *Loader) Write(path string, r *ROM, data []byte) error {
	if err := os.WriteFile(path, r.Image(data), 0o644); err != nil {
		return fmt.Errorf("writing file %s: %w", path, err)
	}
	return nil
}
