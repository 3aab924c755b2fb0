// Package config handles application configuration and setup
package config

import (
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/romschema/internal/codec"
	"github.com/retroenv/romschema/internal/options"
	"github.com/retroenv/romschema/internal/rom"
)

// CreateLogger creates a logger with appropriate settings
func CreateLogger(debug, quiet bool) *log.Logger {
	cfg := log.DefaultConfig()
	if debug {
		cfg.Level = log.DebugLevel
	} else if quiet {
		cfg.Level = log.ErrorLevel
	}
	return log.NewWithConfig(cfg)
}

// CreateDocumentOptions returns the document dependencies for the program
// options. A detected map mode is used when the command line does not set
// one, the schema mode still wins over a detected one.
func CreateDocumentOptions(logger *log.Logger, opts options.Program, schemaMode string, detected rom.MapMode) rom.Options {
	mode := rom.MapMode(opts.Mode)
	if mode == "" && schemaMode == "" {
		mode = detected
	}
	return rom.Options{
		Logger: logger,
		Codecs: codec.Default(),
		Mode:   mode,
	}
}
