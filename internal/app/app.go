// Package app provides the information output of the editor tool.
package app

import (
	"fmt"

	"github.com/retroenv/retrogolib/buildinfo"
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/romschema/internal/detector"
	"github.com/retroenv/romschema/internal/options"
	"github.com/retroenv/romschema/internal/rom"
)

// PrintBanner prints application version information
func PrintBanner(logger *log.Logger, opts options.Program, version, commit, date string) {
	if opts.Quiet {
		return
	}
	logger.Info("romschema", log.String("version", buildinfo.Version(version, commit, date)))
}

// PrintInfo prints the information about the input file and the document.
func PrintInfo(logger *log.Logger, opts options.Program, doc *rom.Document, info detector.Info) {
	if opts.Quiet {
		return
	}

	logger.Info("Processing ROM",
		log.String("file", opts.Input),
		log.String("title", info.Title),
		log.String("system", string(doc.System())),
		log.String("mode", string(doc.Mode())),
		log.String("crc32", fmt.Sprintf("%08X", doc.CRC32())),
	)

	if expected, ok := doc.ExpectedCRC32(); ok && expected != doc.CRC32() {
		logger.Warn("CRC32 checksum does not match the schema",
			log.String("expected", fmt.Sprintf("%08X", expected)),
			log.String("got", fmt.Sprintf("%08X", doc.CRC32())))
	}

	if info.HasHeader() && doc.System() == rom.SystemSFC && info.Checksum != doc.Checksum() {
		logger.Warn("Header checksum is not valid",
			log.Hex("header", info.Checksum),
			log.Hex("computed", doc.Checksum()))
	}

	if info.Mode != "" && doc.Mode() != info.Mode {
		logger.Warn("Map mode differs from the ROM header",
			log.String("header", string(info.Mode)),
			log.String("document", string(doc.Mode())))
	}
}
