// Package writer implements the textual listings of a document.
package writer

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/retroenv/romschema/internal/options"
	"github.com/retroenv/romschema/internal/rom"
)

const (
	dataBytesPerLine = 16
	histogramBins    = 16
	histogramWidth   = 40
	topOpcodes       = 10
	indentation      = "  "
)

// Writer writes listings of the object tree and the scripts of a document.
type Writer struct {
	doc     *rom.Document
	options options.Listing
	writer  io.Writer
}

// New creates a new writer.
func New(doc *rom.Document, writer io.Writer, options options.Listing) *Writer {
	return &Writer{
		doc:     doc,
		options: options,
		writer:  writer,
	}
}

// Write writes all listings that are enabled in the options.
func (w Writer) Write() error {
	if err := w.WriteCommentHeader(); err != nil {
		return err
	}
	if w.options.Tree {
		if err := w.WriteTree(); err != nil {
			return fmt.Errorf("writing tree: %w", err)
		}
	}
	if w.options.Scripts {
		if err := w.WriteScripts(); err != nil {
			return fmt.Errorf("writing scripts: %w", err)
		}
	}
	if w.options.Stats {
		if err := w.WriteStats(); err != nil {
			return fmt.Errorf("writing statistics: %w", err)
		}
	}
	return nil
}

// WriteCommentHeader writes the checksums and mapping of the document as comments.
func (w Writer) WriteCommentHeader() error {
	if _, err := fmt.Fprintf(w.writer, "; CRC32 checksum: %08x\n", w.doc.CRC32()); err != nil {
		return fmt.Errorf("writing crc32 checksum: %w", err)
	}
	if expected, ok := w.doc.ExpectedCRC32(); ok {
		if _, err := fmt.Fprintf(w.writer, "; Expected CRC32 checksum: %08x\n", expected); err != nil {
			return fmt.Errorf("writing expected checksum: %w", err)
		}
	}
	if w.doc.System() == rom.SystemSFC {
		if _, err := fmt.Fprintf(w.writer, "; SNES checksum: %04x\n", w.doc.Checksum()); err != nil {
			return fmt.Errorf("writing snes checksum: %w", err)
		}
	}
	if _, err := fmt.Fprintf(w.writer, "; Map mode: %s\n\n", w.doc.Mode()); err != nil {
		return fmt.Errorf("writing map mode: %w", err)
	}
	return nil
}

// WriteTree writes one line per node with its range and value. Scripts are
// summarized, their commands are part of the script listing.
func (w Writer) WriteTree() error {
	var err error
	rom.Walk(w.doc, func(n rom.Node, depth int) bool {
		if err != nil || depth == 0 {
			return err == nil
		}
		if !w.options.Hidden && (n.Hidden() || n.Invalid()) {
			return false
		}
		err = w.writeNode(n, depth)
		return n.Kind() != rom.KindScript
	})
	return err
}

func (w Writer) writeNode(n rom.Node, depth int) error {
	indent := strings.Repeat(indentation, depth-1)
	name := n.Key()
	if n.Index() >= 0 {
		name = fmt.Sprintf("[%d]", n.Index())
	}

	line := fmt.Sprintf("%s%-*s %-12s %s", indent, 32-len(indent), name, n.Kind(), w.location(n))
	if value := describe(n); value != "" {
		line += "  " + value
	}
	if n.Invalid() {
		line += "  (invalid)"
	}
	if _, err := fmt.Fprintln(w.writer, strings.TrimRight(line, " ")); err != nil {
		return fmt.Errorf("writing node %s: %w", n.Path(), err)
	}
	return nil
}

// location returns the mapped range of a node that is stored in the ROM
// buffer, nodes inside of their parent show their relative range.
func (w Writer) location(n rom.Node) string {
	r := n.Range()
	if r.IsEmpty() {
		return ""
	}
	if n.Parent() != nil && n.Parent().Kind() == rom.KindDocument {
		return w.doc.UnmapRange(r).String()
	}
	return r.String()
}

// describe returns the display value of a node.
func describe(n rom.Node) string {
	switch v := n.(type) {
	case *rom.Field:
		return v.DisplayValue()
	case *rom.Text:
		return fmt.Sprintf("%q", v.FormattedText())
	case *rom.Collection:
		return fmt.Sprintf("%d items, %s", v.Len(), v.Layout())
	case *rom.Script:
		return fmt.Sprintf("%d commands", v.Len())
	default:
		return ""
	}
}

// WriteScripts writes the commands of all scripts with their labels,
// descriptions and bytes.
func (w Writer) WriteScripts() error {
	for _, script := range w.scripts() {
		if _, err := fmt.Fprintf(w.writer, "\n; %s: %d commands\n", script.Path(), script.Len()); err != nil {
			return fmt.Errorf("writing script header: %w", err)
		}
		for _, c := range script.Commands() {
			if err := w.writeCommand(c); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w Writer) writeCommand(c *rom.Command) error {
	if c.IsReferenced() {
		if _, err := fmt.Fprintf(w.writer, "%s:\n", c.Label()); err != nil {
			return fmt.Errorf("writing label: %w", err)
		}
	}

	description := c.Description()
	return w.BundleDataWrites(c.Data(), func(line string, first bool) error {
		comment := ""
		if first {
			comment = "; " + description
		}
		_, err := fmt.Fprintf(w.writer, "    %-*s %s\n", dataBytesPerLine*3, line, comment)
		if err != nil {
			return fmt.Errorf("writing command %s: %w", c.Path(), err)
		}
		return nil
	})
}

// BundleDataWrites bundles data bytes to print dataBytesPerLine bytes per line.
func (w Writer) BundleDataWrites(data []byte, lineWriter func(line string, first bool) error) error {
	if len(data) == 0 {
		return lineWriter("", true)
	}
	for i := 0; i < len(data); i += dataBytesPerLine {
		end := min(i+dataBytesPerLine, len(data))

		buf := &strings.Builder{}
		for _, b := range data[i:end] {
			_, _ = fmt.Fprintf(buf, "%02X ", b)
		}
		if err := lineWriter(strings.TrimRight(buf.String(), " "), i == 0); err != nil {
			return err
		}
	}
	return nil
}

// WriteStats writes the most used opcodes of all scripts and a histogram of
// the opcode distribution.
func (w Writer) WriteStats() error {
	counts := map[int64]int{}
	var values []float64
	for _, script := range w.scripts() {
		for _, c := range script.Commands() {
			counts[c.Opcode()]++
			values = append(values, float64(c.Opcode()))
		}
	}
	if len(values) == 0 {
		_, err := fmt.Fprintln(w.writer, "\n; no script commands")
		return err
	}

	opcodes := make([]int64, 0, len(counts))
	for opcode := range counts {
		opcodes = append(opcodes, opcode)
	}
	slices.SortFunc(opcodes, func(a, b int64) int {
		if counts[a] != counts[b] {
			return counts[b] - counts[a]
		}
		return int(a - b)
	})

	if _, err := fmt.Fprintf(w.writer, "\n; %d commands, %d distinct opcodes\n", len(values), len(opcodes)); err != nil {
		return fmt.Errorf("writing statistics header: %w", err)
	}
	for _, opcode := range opcodes[:min(topOpcodes, len(opcodes))] {
		if _, err := fmt.Fprintf(w.writer, "; %02X: %d\n", opcode, counts[opcode]); err != nil {
			return fmt.Errorf("writing opcode count: %w", err)
		}
	}

	hist := histogram.Hist(histogramBins, values)
	if err := histogram.Fprint(w.writer, hist, histogram.Linear(histogramWidth)); err != nil {
		return fmt.Errorf("writing histogram: %w", err)
	}
	return nil
}

// scripts returns all scripts of the document in document order.
func (w Writer) scripts() []*rom.Script {
	var scripts []*rom.Script
	rom.Walk(w.doc, func(n rom.Node, _ int) bool {
		if s, ok := n.(*rom.Script); ok {
			scripts = append(scripts, s)
			return false
		}
		return true
	})
	return scripts
}
