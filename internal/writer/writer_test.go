package writer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/romschema/internal/options"
	"github.com/retroenv/romschema/internal/rom"
	"github.com/retroenv/romschema/internal/schema"
)

const definition = `
scriptEncoding:
  event:
    command:
      jump:
        opcode: 0x02
        length: 2
        assembly:
          target:
            type: property
            begin: 1
            script: events
      a:
        opcode: 0x01
        length: 2
      end:
        opcode: 0xFF
assembly:
  gold:
    type: property
    begin: 0
  secret:
    type: property
    begin: 1
    hidden: true
  party:
    type: array
    range: 0x2-0x4
    assembly:
      type: data
      length: 1
      assembly:
        hp:
          type: property
          begin: 0
  events:
    type: script
    range: 0x4-0x9
    encoding: event
    label:
      8: finish
`

func newDocument(t *testing.T) *rom.Document {
	t.Helper()
	def, err := schema.Parse([]byte(definition))
	assert.NoError(t, err)
	data := []byte{0x64, 0x01, 0x0A, 0x14, 0x02, 0x04, 0x01, 0x07, 0xFF}
	doc, err := rom.New(def, data, rom.Options{Logger: log.NewTestLogger(t)})
	assert.NoError(t, err)
	return doc
}

func TestWriteTree(t *testing.T) {
	doc := newDocument(t)
	var buf bytes.Buffer
	w := New(doc, &buf, options.Listing{Tree: true})
	assert.NoError(t, w.Write())

	output := buf.String()
	assert.True(t, strings.Contains(output, "; CRC32 checksum: "))
	assert.True(t, strings.Contains(output, "; Map mode: none"))
	assert.False(t, strings.Contains(output, "secret"))
	assert.True(t, strings.Contains(output, "2 items, fixed stride"))
	assert.True(t, strings.Contains(output, "3 commands"))

	var gold string
	for _, line := range strings.Split(output, "\n") {
		if strings.HasPrefix(line, "gold") {
			gold = line
		}
	}
	assert.True(t, strings.HasSuffix(gold, "100"), gold)
	assert.True(t, strings.Contains(gold, "field"), gold)

	buf.Reset()
	w = New(doc, &buf, options.Listing{Tree: true, Hidden: true})
	assert.NoError(t, w.WriteTree())
	assert.True(t, strings.Contains(buf.String(), "secret"))
	assert.True(t, strings.Contains(buf.String(), "  [1]"))
}

func TestWriteScripts(t *testing.T) {
	doc := newDocument(t)
	var buf bytes.Buffer
	w := New(doc, &buf, options.Listing{Scripts: true})
	assert.NoError(t, w.WriteScripts())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{
		"; events: 3 commands",
		"02 04",
		"01 07",
		"finish:",
		"FF",
	}, trimmed(lines))
	assert.True(t, strings.HasSuffix(lines[1], "; Command 02"))
}

func TestWriteStats(t *testing.T) {
	doc := newDocument(t)
	var buf bytes.Buffer
	w := New(doc, &buf, options.Listing{Stats: true})
	assert.NoError(t, w.WriteStats())

	output := buf.String()
	assert.True(t, strings.Contains(output, "; 3 commands, 3 distinct opcodes"))
	assert.True(t, strings.Contains(output, "; FF: 1"))
}

func TestBundleDataWrites(t *testing.T) {
	var lines []string
	var firsts []bool
	data := make([]byte, dataBytesPerLine+2)
	err := Writer{}.BundleDataWrites(data, func(line string, first bool) error {
		lines = append(lines, line)
		firsts = append(firsts, first)
		return nil
	})
	assert.NoError(t, err)
	assert.Len(t, lines, 2)
	assert.Equal(t, "00 00", lines[1])
	assert.Equal(t, []bool{true, false}, firsts)
}

// trimmed returns the lines without indentation and comments.
func trimmed(lines []string) []string {
	result := make([]string, len(lines))
	for i, line := range lines {
		if idx := strings.Index(line, " ;"); idx >= 0 {
			line = line[:idx]
		}
		result[i] = strings.TrimSpace(line)
	}
	return result
}
