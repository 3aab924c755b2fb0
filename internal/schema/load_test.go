package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/retroenv/romschema/internal/byterange"
	"github.com/retroenv/retrogolib/assert"
)

const testSchema = `
mode: hiROM
system: sfc
crc32: 0x12345678
pointerLength: 3
charTable:
  main:
    char:
      0x00: "\\0"
      0x41: A
textEncoding:
  dialog:
    charTable: main
stringTable:
  characterNames:
    default: "Character %i"
    length: 4
    string:
      0: Terra
      "1-3": Guest
scriptEncoding:
  event:
    delegate: eventDelegate
    command:
      end:
        name: End
        opcode: 0xFF
      jump:
        opcode: ["0xB0-0xB3", 0xC0]
        length: 3
        assembly:
          target:
            type: property
            begin: 1
            mask: 0xFFFF
            script: eventScript
      unknown:
        opcode: default
assembly:
  header:
    type: data
    range: "0x00FFC0-0x00FFE0"
    assembly:
      checksum:
        type: property
        begin: 0x1E
        mask: "0xFFFF"
      flags:
        type: property
        begin: 2
        mask: 0x80
        bool: true
        invalid: "mode.value == 0"
        hidden: true
  monsters:
    type: array
    range: 0x100-0x200
    array:
      length: 16
      max: 32
    isSequential: true
    pointerTable:
      range: 0x80-0xA0
      offset: 0x100
    assembly:
      type: data
      length: 8
  names:
    type: array
    terminator: "\\0"
    stringTable:
      default: "Name %i"
    assembly:
      type: text
      encoding: dialog
  eventScript:
    type: script
    range: 0x300-0x400
    encoding: event
    label:
      0x10: start
      0x20:
        label: loop
        encoding: event
`

//nolint:funlen // test functions can be long
func TestParse(t *testing.T) {
	d, err := Parse([]byte(testSchema))
	assert.NoError(t, err)

	assert.Equal(t, TypeROM, d.Type)
	assert.Equal(t, "hiROM", d.Mode)
	assert.Equal(t, "sfc", d.System)
	assert.True(t, d.HasCRC32)
	assert.Equal(t, uint32(0x12345678), d.CRC32)
	assert.Equal(t, 3, d.PointerLength)

	assert.Len(t, d.CharTables, 1)
	assert.Equal(t, `\0`, d.CharTables[0].Chars[0])
	assert.Len(t, d.TextEncodings, 1)
	assert.Equal(t, []string{"main"}, d.TextEncodings[0].CharTables)

	assert.Len(t, d.StringTables, 1)
	names := d.StringTables[0]
	assert.Equal(t, "Terra", names.Strings[0])
	assert.Equal(t, "Guest", names.Strings[2])
	_, ok := names.Strings[3]
	assert.False(t, ok, "string ranges are half open")

	assert.Len(t, d.ScriptEncodings, 1)
	event := d.ScriptEncodings[0]
	assert.Equal(t, "eventDelegate", event.Delegate)
	assert.Len(t, event.Commands, 3)
	assert.Equal(t, "end", event.Commands[0].Key)
	assert.Equal(t, []OpcodeRange{{Begin: 0xFF, End: 0x100}}, event.Commands[0].Opcodes)
	jump := event.Commands[1]
	assert.Equal(t, TypeCommand, jump.Type)
	assert.Equal(t, []OpcodeRange{{Begin: 0xB0, End: 0xB3}, {Begin: 0xC0, End: 0xC1}}, jump.Opcodes)
	assert.Equal(t, byterange.New(0, 3), jump.Range)
	assert.Equal(t, "eventScript", jump.Child("target").Script)
	assert.True(t, event.Commands[2].Opcodes[0].Default)

	assert.Len(t, d.Assembly, 4)
	assert.Equal(t, []string{"header", "monsters", "names", "eventScript"},
		[]string{d.Assembly[0].Key, d.Assembly[1].Key, d.Assembly[2].Key, d.Assembly[3].Key})

	header := d.Child("header")
	assert.Equal(t, TypeData, header.Type)
	assert.Equal(t, byterange.New(0xFFC0, 0xFFE0), header.Range)
	checksum := header.Child("checksum")
	assert.Equal(t, int64(0xFFFF), checksum.Mask)
	assert.Equal(t, byterange.New(0x1E, 0x1F), checksum.Range)
	flags := header.Child("flags")
	assert.True(t, flags.Bool)
	assert.Equal(t, "mode.value == 0", flags.Invalid.Expr)
	assert.True(t, flags.Invalid.IsExpr())
	assert.True(t, flags.Hidden.Value)

	monsters := d.Child("monsters")
	assert.Equal(t, ArrayBounds{Length: 16, Max: 32}, monsters.Array)
	assert.True(t, monsters.IsSequential)
	assert.NotNil(t, monsters.PointerTable)
	assert.Equal(t, "monstersPointerTable", monsters.PointerTable.Key)
	assert.Equal(t, 0x100, monsters.PointerTable.Offset)
	assert.Equal(t, TypeData, monsters.Item.Type)
	assert.Equal(t, 8, monsters.Item.Range.Length())

	stringsArray := d.Child("names")
	assert.True(t, stringsArray.Terminator.Text)
	assert.Equal(t, "names", stringsArray.StringTable)
	assert.Len(t, stringsArray.StringTables, 1)
	assert.Equal(t, []string{"dialog"}, stringsArray.Item.Encoding)

	script := d.Child("eventScript")
	assert.Equal(t, Label{Name: "start"}, script.Labels[0x10])
	assert.Equal(t, Label{Name: "loop", Encoding: "event"}, script.Labels[0x20])
}

func TestParseJSON(t *testing.T) {
	d, err := Parse([]byte(`{"mode": "loROM", "assembly": {"value": {"type": "property", "begin": "0x10", "mask": "0x0F"}}}`))
	assert.NoError(t, err)
	assert.Equal(t, "loROM", d.Mode)
	value := d.Child("value")
	assert.Equal(t, int64(0x0F), value.Mask)
	assert.Equal(t, 0x10, value.Range.Begin)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "invalid yaml", input: "a: [b"},
		{name: "not a mapping", input: "- a\n- b"},
		{name: "invalid number", input: "assembly:\n  a:\n    begin: zz"},
		{name: "invalid terminator", input: "assembly:\n  a:\n    type: array\n    terminator: 0x100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	assert.NoError(t, os.WriteFile(path, []byte("mode: gba\n"), 0600))

	d, err := LoadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, "gba", d.Mode)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
