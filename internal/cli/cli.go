// Package cli handles command line interface logic
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/profile"
	"github.com/retroenv/romschema/internal/options"
)

// ParseFlags parses the command line and returns the program options.
func ParseFlags() (options.Program, error) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses the given arguments and returns the program options.
func ParseArgs(args []string) (options.Program, error) {
	var opts options.Program
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = "romschema"
	parser.Usage = "[options] -s <schema> <rom file>..."

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return opts, &UsageError{parser: parser}
		}
		return opts, &UsageError{parser: parser, msg: err.Error()}
	}

	if len(opts.Positional.Files) == 0 && opts.Batch == "" {
		return opts, &UsageError{parser: parser, msg: "no ROM file given"}
	}
	if err := normalizeOptions(&opts); err != nil {
		return opts, err
	}

	if opts.Batch == "" {
		opts.Input = opts.Positional.Files[0]
	}
	return opts, nil
}

// UsageError represents an error that should show usage information
type UsageError struct {
	parser *flags.Parser
	msg    string
}

func (e *UsageError) Error() string {
	return e.msg
}

// ShowUsage prints the help of all options.
func (e *UsageError) ShowUsage() {
	e.WriteUsage(os.Stdout)
}

// WriteUsage writes the help of all options to the writer.
func (e *UsageError) WriteUsage(w io.Writer) {
	if e.msg != "" {
		_, _ = fmt.Fprintf(w, "%s\n\n", e.msg)
	}
	e.parser.WriteHelp(w)
	_, _ = fmt.Fprintln(w)
}

// normalizeOptions validates option values that the parser can not check.
func normalizeOptions(opts *options.Program) error {
	if opts.Scale < 1 {
		return fmt.Errorf("invalid scale %d, must be at least 1", opts.Scale)
	}
	if opts.Columns < 1 {
		return fmt.Errorf("invalid column count %d, must be at least 1", opts.Columns)
	}
	if opts.Palette != "" && opts.Render == "" {
		return errors.New("a palette requires a graphics link to render")
	}
	if opts.Write != "" && (opts.Batch != "" || len(opts.Positional.Files) > 1) {
		return errors.New("writing a ROM requires a single input file")
	}
	return nil
}

// StartProfile starts the profiler that was selected on the command line.
// The returned function stops it and writes the profile.
func StartProfile(opts options.Program) func() {
	var p interface{ Stop() }
	switch opts.Profile {
	case "cpu":
		p = profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.Quiet)
	case "mem":
		p = profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.Quiet)
	default:
		return func() {}
	}
	return p.Stop
}
