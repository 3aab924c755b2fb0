// Package detector handles system and map mode detection of ROM files.
package detector

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/alttpo/snes"
	"github.com/alttpo/snes/mapping/lorom"
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/romschema/internal/rom"
)

const (
	headerBusAddress = 0x00FFB0
	headerSize       = 0x50

	mapModeLoROM   = 0x20
	mapModeHiROM   = 0x21
	mapModeExHiROM = 0x25
	mapModeFast    = 0x10
)

// Info contains the detected properties of a ROM file.
type Info struct {
	System rom.System
	Mode   rom.MapMode
	Title  string

	// header fields, only set if an SNES header was found
	HeaderOffset       int
	Checksum           uint16
	ComplementChecksum uint16
}

// HasHeader returns whether an SNES header was found.
func (i Info) HasHeader() bool {
	return i.HeaderOffset > 0
}

// Detector handles system detection from file extensions and ROM headers.
type Detector struct {
	logger *log.Logger
}

// New creates a new system detector.
func New(logger *log.Logger) *Detector {
	return &Detector{
		logger: logger,
	}
}

// Detect determines the system from the file extension and, for SNES
// images, the map mode from the internal ROM header.
func (d *Detector) Detect(filename string, data []byte) Info {
	info := Info{
		System: detectFromFile(filename),
	}

	if info.System == rom.SystemSFC || info.System == rom.SystemNone {
		d.detectHeader(data, &info)
	}

	d.logger.Debug("Auto-detected system",
		log.String("system", string(info.System)),
		log.String("mode", string(info.Mode)),
		log.String("file", filename))
	return info
}

// detectFromFile determines the system type based on file extension.
func detectFromFile(filename string) rom.System {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".sfc", ".smc", ".swc", ".fig":
		return rom.SystemSFC
	case ".gba":
		return rom.SystemGBA
	case ".bin", ".iso", ".psx":
		return rom.SystemPSX
	default:
		return rom.SystemNone
	}
}

// detectHeader looks for a valid header at the low and high ROM locations
// and keeps the better candidate.
func (d *Detector) detectHeader(data []byte, info *Info) {
	best := 0
	for _, mode := range []rom.MapMode{rom.LoROM, rom.HiROM} {
		offset := headerOffset(mode)
		if offset+headerSize > len(data) {
			continue
		}

		var h snes.Header
		if err := h.ReadHeader(bytes.NewReader(data[offset : offset+headerSize])); err != nil {
			d.logger.Debug("Reading ROM header failed", log.Hex("offset", offset), log.Err(err))
			continue
		}

		score := headerScore(&h, mode)
		if score <= best {
			continue
		}
		best = score
		info.System = rom.SystemSFC
		info.Mode = mode
		info.Title = strings.TrimRight(string(h.Title[:]), " \x00")
		info.HeaderOffset = offset
		info.Checksum = h.CheckSum
		info.ComplementChecksum = h.ComplementCheckSum
	}
}

// headerOffset returns the file offset of the header for the map mode.
func headerOffset(mode rom.MapMode) int {
	if mode == rom.HiROM {
		return headerBusAddress
	}
	offset, err := lorom.BusAddressToPak(headerBusAddress)
	if err != nil {
		return headerBusAddress
	}
	return int(offset)
}

// headerScore rates how likely the header is valid for the map mode, a
// score of zero rejects the header.
func headerScore(h *snes.Header, mode rom.MapMode) int {
	score := 0
	if h.CheckSum^h.ComplementCheckSum == 0xFFFF {
		score += 2
	}

	mapper := h.MapMode &^ mapModeFast
	switch {
	case mode == rom.LoROM && mapper == mapModeLoROM:
		score += 2
	case mode == rom.HiROM && (mapper == mapModeHiROM || mapper == mapModeExHiROM):
		score += 2
	default:
		return 0
	}

	for _, c := range h.Title {
		if c != 0 && (c < 0x20 || c > 0x7E) {
			return score
		}
	}
	return score + 1
}
