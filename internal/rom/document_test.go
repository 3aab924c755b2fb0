package rom

import (
	"errors"
	"slices"
	"testing"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/romschema/internal/checksum"
)

const documentDefinition = `
charTable:
  main:
    char:
      0x00: "\\0"
      0x41: A
      0x42: B
      0x43: C
textEncoding:
  main:
    charTable: main
stringTable:
  names:
    length: 4
    string:
      0: Terra
      1: "Hero <hero>"
      2: "<monsters[1].hp> HP"
assembly:
  count:
    type: property
    begin: 0
  hero:
    type: text
    range: 0x1-0x5
    encoding: main
  monsters:
    type: array
    range: 0x5-0x9
    array:
      max: 3
    assembly:
      type: data
      length: 2
      assembly:
        hp:
          type: property
          begin: 0
        level:
          type: property
          begin: 1
          invalid: "hp == 0"
  flags:
    type: property
    begin: 9
    mask: 0x0F
`

func documentData() []byte {
	return []byte{0x02, 0x41, 0x42, 0x00, 0xFF, 0x00, 0x03, 0x05, 0x07, 0xF1}
}

//nolint:funlen // test functions can be long
func TestDocumentUndoRedoSymmetry(t *testing.T) {
	original := documentData()
	doc := newTestDocument(t, documentDefinition, original)

	monsters := doc.Collection("monsters")
	steps := []func(){
		func() { doc.Field("count").SetValue(9) },
		func() { doc.Field("flags").SetValue(3) },
		func() { doc.Text("hero").SetText("CA") },
		func() { monsters.Item(1).(*Struct).Field("hp").SetValue(0x55) },
		func() {
			doc.BeginTransaction("Replace monster")
			monsters.Remove(0)
			monsters.Insert(monsters.BlankItem(), 1)
			doc.EndTransaction()
		},
	}
	for _, step := range steps {
		step()
	}
	final := slices.Clone(doc.Assemble())
	assert.False(t, slices.Equal(original, final))
	assert.Equal(t, byte(0xF3), final[9])
	assert.Equal(t, "Replace monster", doc.History().UndoDescription())

	for range steps {
		assert.True(t, doc.Undo())
	}
	assert.False(t, doc.Undo())
	assert.Equal(t, original, doc.Assemble())

	for range steps {
		assert.True(t, doc.Redo())
	}
	assert.False(t, doc.CanRedo())
	assert.Equal(t, final, doc.Assemble())
}

func TestDocumentTransaction(t *testing.T) {
	doc := newTestDocument(t, documentDefinition, documentData())
	count := doc.Field("count")

	notified := 0
	count.AddObserver(t, func() { notified++ })

	doc.BeginTransaction("Set twice")
	count.SetValue(3)
	count.SetValue(4)
	assert.Equal(t, 2, notified)
	doc.EndTransaction()

	assert.True(t, doc.Undo())
	assert.Equal(t, int64(2), count.Value())
	assert.False(t, doc.CanUndo())

	doc.BeginTransaction("Empty")
	doc.EndTransaction()
	assert.False(t, doc.CanUndo())
}

func TestDocumentLinks(t *testing.T) {
	doc := newTestDocument(t, documentDefinition, documentData())

	n, err := doc.Resolve("monsters[1].hp")
	assert.NoError(t, err)
	assert.Equal(t, int64(5), n.(*Field).Value())

	n, err = doc.Resolve("monsters[count - 1].level")
	assert.NoError(t, err)
	assert.Equal(t, int64(7), n.(*Field).Value())

	n, err = doc.Resolve("monsters[1].level.parent")
	assert.NoError(t, err)
	assert.Equal(t, "monsters[1]", n.Path())

	s, err := doc.ResolveText("stringTable.names[0]")
	assert.NoError(t, err)
	assert.Equal(t, "Terra", s)

	tests := []string{
		"missing",
		"monsters[7]",
		"monsters[1",
		"monsters[1]x",
		"count[0]",
		"monsters[unknown]",
		"stringTable.other[0]",
	}
	for _, link := range tests {
		t.Run(link, func(t *testing.T) {
			_, err := doc.Resolve(link)
			assert.True(t, errors.Is(err, ErrInvalidLink))
		})
	}
}

func TestDocumentConditions(t *testing.T) {
	doc := newTestDocument(t, documentDefinition, documentData())
	monsters := doc.Collection("monsters")

	first := monsters.Item(0).(*Struct)
	second := monsters.Item(1).(*Struct)
	assert.True(t, first.Field("level").Invalid())
	assert.False(t, second.Field("level").Invalid())
	assert.False(t, second.Field("level").Hidden())

	first.Field("hp").SetValue(1)
	assert.False(t, first.Field("level").Invalid())
}

func TestDocumentStringTable(t *testing.T) {
	doc := newTestDocument(t, documentDefinition, documentData())
	names := doc.StringTable("names")
	assert.NotNil(t, names)
	assert.Equal(t, 4, names.Len())

	assert.Equal(t, "Hero AB", names.FormattedString(1, 0))
	assert.Equal(t, "5 HP", names.FormattedString(2, 0))
	assert.Equal(t, "String 3", names.FormattedString(3, 0))
	assert.Equal(t, "Invalid String", names.FormattedString(4, 0))
	assert.Equal(t, "Her…", names.FormattedString(1, 3))

	doc.Text("hero").SetText("CAB")
	assert.Equal(t, "Hero CAB", names.FormattedString(1, 0))

	hp := doc.Collection("monsters").Item(1).(*Struct).Field("hp")
	hp.SetValue(9)
	assert.Equal(t, "9 HP", names.FormattedString(2, 0))
}

func TestDocumentText(t *testing.T) {
	doc := newTestDocument(t, documentDefinition, documentData())
	hero := doc.Text("hero")
	assert.Equal(t, "AB", hero.Text())

	hero.SetText("AB")
	assert.False(t, doc.CanUndo())

	hero.SetText("BAC")
	data := doc.Assemble()
	assert.Equal(t, []byte{0x42, 0x41, 0x43, 0x00}, data[1:5])

	hero.SetText("C")
	data = doc.Assemble()
	assert.Equal(t, []byte{0x43, 0x00, 0x43, 0x00}, data[1:5])

	doc.Undo()
	doc.Undo()
	data = doc.Assemble()
	assert.Equal(t, documentData()[1:5], data[1:5])
}

func TestDocumentSelection(t *testing.T) {
	var selected []Node
	def := mustParse(t, documentDefinition)
	doc, err := New(def, documentData(), Options{
		Logger:   log.NewTestLogger(t),
		OnSelect: func(n Node) { selected = append(selected, n) },
	})
	assert.NoError(t, err)

	assert.NoError(t, doc.SelectLink("count"))
	assert.Len(t, doc.Selection(), 1)
	assert.Len(t, selected, 1)

	doc.Field("count").SetValue(5)
	assert.Len(t, selected, 2)

	doc.DeselectAll()
	doc.Field("count").SetValue(6)
	assert.Len(t, selected, 2)
	assert.Len(t, doc.Selection(), 0)

	err = doc.SelectLink("missing")
	assert.True(t, errors.Is(err, ErrInvalidLink))
	assert.Len(t, doc.Selection(), 0)

	doc.Select(doc.Field("flags"))
	doc.Select(nil)
	assert.Len(t, doc.Selection(), 0)
}

func TestDocumentChecksum(t *testing.T) {
	const definition = `
system: sfc
crc32: 0x12345678
assembly:
  snesHeader:
    type: data
    range: 0x7FB0-0x8000
    assembly:
      checksumInverse:
        type: property
        begin: 0x2C
        mask: 0xFFFF
      checksum:
        type: property
        begin: 0x2E
        mask: 0xFFFF
  value:
    type: property
    begin: 0
`
	data := make([]byte, 0x8000)
	for i := range data {
		data[i] = byte(i * 7)
	}
	doc := newTestDocument(t, definition, data)
	assert.Equal(t, SystemSFC, doc.System())
	expected, ok := doc.ExpectedCRC32()
	assert.True(t, ok)
	assert.Equal(t, uint32(0x12345678), expected)

	doc.Field("value").SetValue(0x42)
	result := doc.Assemble()

	header := doc.Struct("snesHeader")
	sum := header.Field("checksum").Value()
	inverse := header.Field("checksumInverse").Value()
	assert.Equal(t, int64(checksum.SNES(result)), sum)
	assert.Equal(t, int64(0xFFFF), sum^inverse)
	assert.Equal(t, checksum.SNES(result), doc.Checksum())
	assert.Equal(t, checksum.CRC32(result), doc.CRC32())
	assert.Equal(t, byte(sum), result[0x7FDE])
	assert.Equal(t, byte(inverse>>8), result[0x7FDD])
}

func TestDocumentMapAddress(t *testing.T) {
	tests := []struct {
		mode     MapMode
		address  int
		expected int
	}{
		{MapNone, 0x1234, 0x1234},
		{LoROM, 0x808000, 0x0000},
		{LoROM, 0x01FFB0, 0xFFB0},
		{LoROM, 0xC3A000, 0x21A000},
		{LoROM, 0x438000, 0x218000},
		{LoROM, 0xC38000, 0x218000},
		{HiROM, 0xC12345, 0x012345},
		{HiROM, 0x812345, 0x012345},
		{GBA, 0x08001000, 0x1000},
		{PSX, 0x1000, 0x1000},
	}

	def := mustParse(t, "assembly: {}")
	for _, tt := range tests {
		doc, err := New(def, nil, Options{Logger: log.NewTestLogger(t), Mode: tt.mode})
		assert.NoError(t, err)

		offset := doc.MapAddress(tt.address)
		assert.Equal(t, tt.expected, offset)
		assert.Equal(t, offset, doc.MapAddress(doc.UnmapAddress(offset)))
	}
}

//nolint:funlen // test functions can be long
func TestDocumentSchemaErrors(t *testing.T) {
	tests := []struct {
		name       string
		definition string
		reason     string
	}{
		{
			name: "zero mask",
			definition: `
assembly:
  value:
    type: property
    begin: 0
    mask: 0
`,
			reason: "mask is zero",
		},
		{
			name: "short range",
			definition: `
assembly:
  value:
    type: property
    begin: 0
    length: 1
    mask: 0xFFFF
`,
			reason: "shorter than the mask",
		},
		{
			name: "unknown text encoding",
			definition: `
assembly:
  name:
    type: text
    range: 0x0-0x4
    encoding: missing
`,
			reason: "unknown text encoding",
		},
		{
			name: "unknown type",
			definition: `
assembly:
  value:
    type: bogus
`,
			reason: "unknown type",
		},
		{
			name: "invalid condition",
			definition: `
assembly:
  value:
    type: property
    begin: 0
    hidden: "hp +"
`,
			reason: "invalid condition",
		},
		{
			name: "unknown mode",
			definition: `
mode: weird
assembly: {}
`,
			reason: "unknown map mode",
		},
		{
			name: "pointer length",
			definition: `
assembly:
  items:
    type: array
    range: 0x0-0x4
    pointerTable:
      range: 0x4-0x8
      pointerLength: 5
`,
			reason: "pointer length",
		},
		{
			name: "text terminator without encoding",
			definition: `
assembly:
  names:
    type: array
    range: 0x0-0x4
    terminator: "\\0"
    assembly:
      type: text
`,
			reason: "text terminator",
		},
		{
			name: "unknown script encoding",
			definition: `
assembly:
  events:
    type: script
    range: 0x0-0x4
    encoding: missing
`,
			reason: "unknown script encoding",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := mustParse(t, tt.definition)
			_, err := New(def, make([]byte, 8), Options{Logger: log.NewTestLogger(t)})
			assert.ErrorContains(t, err, tt.reason)

			var schemaErr *SchemaError
			assert.True(t, errors.As(err, &schemaErr))
		})
	}
}

func TestStructAddChild(t *testing.T) {
	doc := newTestDocument(t, documentDefinition, documentData())

	child, err := doc.AddChild(mustParse(t, "key: extra\ntype: property\nbegin: 8\n"))
	assert.NoError(t, err)
	assert.Equal(t, KindField, child.Kind())
	assert.Equal(t, int64(0x07), doc.Field("extra").Value())
	assert.True(t, doc.Has("extra"))

	_, err = doc.AddChild(mustParse(t, "key: extra\ntype: property\nbegin: 8\n"))
	assert.ErrorContains(t, err, "duplicate key")

	_, err = doc.AddChild(mustParse(t, "key: broken\ntype: property\nmask: 0\n"))
	assert.ErrorContains(t, err, "mask is zero")

	assert.Nil(t, doc.Struct("monsters"))
	item := doc.Collection("monsters").Item(0).(*Struct)
	err = item.SetData([]byte{1, 2, 3}, 0)
	assert.True(t, errors.Is(err, ErrOutOfRange))
	assert.NoError(t, item.SetData([]byte{0x00}, 0))
	assert.False(t, doc.CanUndo())
}

func TestCollectionRemoveUnreadItem(t *testing.T) {
	original := documentData()
	doc := newTestDocument(t, documentDefinition, original)

	monsters := doc.Collection("monsters")
	monsters.Item(1).(*Struct).Field("hp").SetValue(0x55)
	monsters.Remove(0)
	assert.Equal(t, []byte{0x55, 0x07}, doc.Assemble()[5:7])

	assert.True(t, doc.Undo())
	assert.True(t, doc.Undo())
	assert.Equal(t, original, doc.Assemble())
}

func TestStructSetDataKeepsPendingEdits(t *testing.T) {
	original := documentData()
	doc := newTestDocument(t, documentDefinition, original)

	item := doc.Collection("monsters").Item(0).(*Struct)
	item.Field("hp").SetValue(0x33)
	assert.NoError(t, item.SetData([]byte{0x44}, 1))
	assert.Equal(t, int64(0x33), item.Field("hp").Value())
	assert.Equal(t, int64(0x44), item.Field("level").Value())
	assert.Equal(t, []byte{0x33, 0x44}, doc.Assemble()[5:7])

	assert.True(t, doc.Undo())
	assert.Equal(t, []byte{0x33, 0x03}, doc.Assemble()[5:7])
	assert.True(t, doc.Undo())
	assert.Equal(t, original, doc.Assemble())
}
