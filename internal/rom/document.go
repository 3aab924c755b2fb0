// Package rom implements the object model of a ROM image: a tree of nodes
// described by a schema that decode bytes into editable values and encode
// them back.
package rom

import (
	"fmt"
	"slices"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/retrogolib/set"
	"github.com/retroenv/romschema/internal/action"
	"github.com/retroenv/romschema/internal/byterange"
	"github.com/retroenv/romschema/internal/checksum"
	"github.com/retroenv/romschema/internal/codec"
	"github.com/retroenv/romschema/internal/expr"
	"github.com/retroenv/romschema/internal/schema"
	"github.com/retroenv/romschema/internal/text"
)

// MapMode defines how mapped addresses translate to buffer offsets.
type MapMode string

// Supported map modes.
const (
	MapNone MapMode = "none"
	LoROM   MapMode = "loROM"
	HiROM   MapMode = "hiROM"
	GBA     MapMode = "gba"
	PSX     MapMode = "psx"
)

// System defines the platform of the ROM.
type System string

// Supported systems.
const (
	SystemNone System = "none"
	SystemSFC  System = "sfc"
	SystemGBA  System = "gba"
	SystemPSX  System = "psx"
)

const (
	defaultPointerLength = 2
	defaultPad           = 0xFF

	headerKey          = "snesHeader"
	checksumKey        = "checksum"
	checksumInverseKey = "checksumInverse"
)

// SelectionHandler is called with the selected node whenever the selection
// or the selected node changes.
type SelectionHandler func(n Node)

// Options contains the dependencies of a document.
type Options struct {
	Logger *log.Logger
	// Codecs contains the data formats, codec.Default() is used if nil.
	Codecs *codec.Registry
	// Delegates maps delegate names or script encoding keys to delegates.
	Delegates map[string]ScriptDelegate
	// OnSelect is informed about selection changes.
	OnSelect SelectionHandler
	// Mode overrides the map mode of the schema if set.
	Mode MapMode
}

// tree is the root struct of a document. The alias keeps the Struct
// accessor of the root available on the document.
type tree = Struct

// Document is the root of the node tree. It owns the ROM buffer and the
// edit history.
type Document struct {
	*tree

	logger  *log.Logger
	codecs  *codec.Registry
	history *action.Log

	mode          MapMode
	system        System
	crc32         uint32
	hasCRC32      bool
	pointerLength int
	pad           byte

	textEncodings   map[string]*text.Encoding
	stringTables    map[string]*StringTable
	scriptEncodings map[string]*ScriptEncoding
	expressions     map[string]*expr.Expression

	selection set.Set[Node]
	onSelect  SelectionHandler
}

// New creates a document for the ROM data. The schema is validated before
// any node is created, the data is copied.
func New(def *schema.Definition, data []byte, opts Options) (*Document, error) {
	d := &Document{
		logger:          opts.Logger,
		codecs:          opts.Codecs,
		history:         action.NewLog(),
		mode:            MapMode(def.Mode),
		system:          System(def.System),
		crc32:           def.CRC32,
		hasCRC32:        def.HasCRC32,
		pointerLength:   def.PointerLength,
		pad:             defaultPad,
		textEncodings:   map[string]*text.Encoding{},
		stringTables:    map[string]*StringTable{},
		scriptEncodings: map[string]*ScriptEncoding{},
		expressions:     map[string]*expr.Expression{},
		selection:       set.New[Node](),
		onSelect:        opts.OnSelect,
	}
	if d.logger == nil {
		d.logger = log.NewWithConfig(log.DefaultConfig())
	}
	if d.codecs == nil {
		d.codecs = codec.Default()
	}
	if opts.Mode != "" {
		d.mode = opts.Mode
	}
	if d.mode == "" {
		d.mode = MapNone
	}
	if d.system == "" {
		d.system = SystemNone
	}
	if d.pointerLength == 0 {
		d.pointerLength = defaultPointerLength
	}
	if def.Pad != nil {
		d.pad = byte(*def.Pad)
	}

	d.createEncodings(def, opts.Delegates)

	if err := d.validateDocument(def); err != nil {
		return nil, fmt.Errorf("validating schema: %w", err)
	}

	root := def.Clone()
	root.Range = byterange.New(0, len(data))
	root.Format = nil

	d.tree = &tree{}
	d.tree.initStruct(d, root, nil, d)
	d.tree.data = slices.Clone(data)
	d.tree.state.Set(Loaded)

	d.addStringTables(def)
	return d, nil
}

// addStringTables creates the string tables of the definition and the ones
// that are declared inline by nested definitions.
func (d *Document) addStringTables(def *schema.Definition) {
	for _, table := range def.StringTables {
		if _, ok := d.stringTables[table.Key]; !ok {
			d.stringTables[table.Key] = newStringTable(d, table)
		}
	}
	for _, child := range def.Assembly {
		d.addStringTables(child)
	}
	if def.Item != nil {
		d.addStringTables(def.Item)
	}
}

func (d *Document) createEncodings(def *schema.Definition, registry map[string]ScriptDelegate) {
	charTables := make(map[string]*text.CharTable, len(def.CharTables))
	for _, table := range def.CharTables {
		charTables[table.Key] = text.NewCharTable(table.Key, table.Chars)
	}
	for _, enc := range def.TextEncodings {
		var tables []*text.CharTable
		for _, key := range enc.CharTables {
			if table, ok := charTables[key]; ok {
				tables = append(tables, table)
			}
		}
		d.textEncodings[enc.Key] = text.NewEncoding(d.logger, enc.Key, tables...)
	}

	delegates := resolveDelegates(def.ScriptEncodings, registry)
	for _, enc := range def.ScriptEncodings {
		d.scriptEncodings[enc.Key] = newScriptEncoding(enc, delegates[enc.Key])
	}
}

// Kind returns the variant of the node.
func (d *Document) Kind() Kind {
	return KindDocument
}

// Path returns an empty path, paths of nodes start below the document.
func (d *Document) Path() string {
	return ""
}

// Logger returns the logger of the document.
func (d *Document) Logger() *log.Logger {
	return d.logger
}

// Codecs returns the data format registry.
func (d *Document) Codecs() *codec.Registry {
	return d.codecs
}

// Mode returns the map mode.
func (d *Document) Mode() MapMode {
	return d.mode
}

// System returns the platform of the ROM.
func (d *Document) System() System {
	return d.system
}

// PointerLength returns the default pointer length in bytes.
func (d *Document) PointerLength() int {
	return d.pointerLength
}

// Pad returns the byte that is used to fill unused space.
func (d *Document) Pad() byte {
	return d.pad
}

// TextEncoding returns the text encoding with the given key or nil.
func (d *Document) TextEncoding(key string) *text.Encoding {
	return d.textEncodings[key]
}

// StringTable returns the string table with the given key or nil.
func (d *Document) StringTable(key string) *StringTable {
	return d.stringTables[key]
}

// ScriptEncoding returns the script encoding with the given key or nil.
func (d *Document) ScriptEncoding(key string) *ScriptEncoding {
	return d.scriptEncodings[key]
}

// itemEncoding returns the text encoding of a text definition.
func (d *Document) itemEncoding(def *schema.Definition) *text.Encoding {
	if len(def.Encoding) == 0 {
		return nil
	}
	return d.textEncodings[def.Encoding[0]]
}

// characterName returns the name that replaces a \charNN text escape.
func (d *Document) characterName(i int) string {
	table := d.stringTables[characterNamesTable]
	if table == nil {
		return ""
	}
	return table.FormattedString(i, 0)
}

// expression returns the parsed expression, parsing results are cached.
func (d *Document) expression(source string) (*expr.Expression, error) {
	if e, ok := d.expressions[source]; ok {
		return e, nil
	}
	e, err := expr.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("parsing expression: %w", err)
	}
	d.expressions[source] = e
	return e, nil
}

// script resolves the link of a script.
func (d *Document) script(link string) (*Script, error) {
	n, err := d.Resolve(link)
	if err != nil {
		return nil, err
	}
	s, ok := n.(*Script)
	if !ok {
		return nil, fmt.Errorf("'%s' is not a script: %w", link, ErrNotFound)
	}
	return s, nil
}

// newNode creates the node variant for the definition type.
func (d *Document) newNode(def *schema.Definition, parent Node) Node {
	switch def.Type {
	case schema.TypeProperty:
		return newField(d, def, parent)
	case schema.TypeArray:
		return newCollection(d, def, parent)
	case schema.TypePointerTable:
		return newPointerTable(d, def, parent)
	case schema.TypeScript:
		return newScript(d, def, parent)
	case schema.TypeText:
		return newText(d, def, parent)
	default:
		return newStruct(d, def, parent)
	}
}

// Data returns the ROM buffer.
func (d *Document) Data() []byte {
	return d.tree.data
}

// MarkDirty marks the document as modified.
func (d *Document) MarkDirty() {
	d.state.Set(Dirty)
}

// MapAddress translates a mapped address to a buffer offset.
func (d *Document) MapAddress(address int) int {
	switch d.mode {
	case LoROM:
		// bank bit 0x80 only selects the FastROM mirror, so it is not part
		// of the offset
		return (address&0x7F0000)>>1 | address&0x7FFF

	case HiROM:
		switch {
		case address >= 0xC00000:
			return address - 0xC00000
		case address >= 0x800000:
			return address - 0x800000
		default:
			return address
		}

	case GBA:
		if address >= 0x08000000 {
			return address - 0x08000000
		}
		return address

	default:
		return address
	}
}

// UnmapAddress translates a buffer offset to a mapped address. It is the
// inverse of MapAddress for the canonical address of every offset: the
// upper half of banks 0x00-0x7F for low ROM and banks 0xC0 and up for high
// ROM.
func (d *Document) UnmapAddress(offset int) int {
	switch d.mode {
	case LoROM:
		return (offset<<1)&0x7F0000 | 0x8000 | offset&0x7FFF
	case HiROM:
		return offset + 0xC00000
	case GBA:
		return offset + 0x08000000
	default:
		return offset
	}
}

// MapRange translates both ends of a mapped range.
func (d *Document) MapRange(r byterange.Range) byterange.Range {
	return byterange.New(d.MapAddress(r.Begin), d.MapAddress(r.Begin)+r.Length())
}

// UnmapRange translates both ends of a buffer range.
func (d *Document) UnmapRange(r byterange.Range) byterange.Range {
	return byterange.New(d.UnmapAddress(r.Begin), d.UnmapAddress(r.Begin)+r.Length())
}

// do executes and records an action.
func (d *Document) do(a *action.Action) {
	d.history.Do(a)
}

// BeginTransaction groups all following actions into one undo step until
// EndTransaction is called. Nested calls have no effect.
func (d *Document) BeginTransaction(description string) {
	d.history.Begin(description)
}

// EndTransaction records the open transaction as one undo step.
func (d *Document) EndTransaction() {
	d.history.End()
}

// Undo reverts the last step, it returns false if there is nothing to undo.
func (d *Document) Undo() bool {
	return d.history.Undo()
}

// Redo reapplies the last undone step, it returns false if there is
// nothing to redo.
func (d *Document) Redo() bool {
	return d.history.Redo()
}

// CanUndo returns whether there is a step to undo.
func (d *Document) CanUndo() bool {
	return d.history.CanUndo()
}

// CanRedo returns whether there is a step to redo.
func (d *Document) CanRedo() bool {
	return d.history.CanRedo()
}

// History returns the edit history.
func (d *Document) History() *action.Log {
	return d.history
}

// Assemble writes all modified nodes back into the ROM buffer and fixes the
// header checksum. All nodes touched by the history are assembled again,
// including undone ones.
func (d *Document) Assemble() []byte {
	d.history.MarkDirty()
	d.tree.updateReferences()
	d.tree.assembleChildren()
	d.fixChecksum()
	d.state.Clear(Dirty)
	return d.Data()
}

// fixChecksum updates the checksum and its complement in the SNES header.
// Both fields are written with their neutral values first, the checksum of
// the result does not change when the final values are written since a
// checksum and its complement always add up to the same sum.
func (d *Document) fixChecksum() {
	if d.system != SystemSFC {
		return
	}
	header := d.tree.Struct(headerKey)
	if header == nil {
		return
	}
	sum := header.Field(checksumKey)
	inverse := header.Field(checksumInverseKey)
	if sum == nil || inverse == nil {
		return
	}

	sum.setValueDirect(0)
	inverse.setValueDirect(0xFFFF)
	header.assemble(d.Data())

	value := int64(checksum.SNES(d.Data()))
	sum.setValueDirect(value)
	inverse.setValueDirect(value ^ 0xFFFF)
	header.assemble(d.Data())
	header.state.Clear(Dirty)
}

// CRC32 returns the CRC32 of the ROM buffer.
func (d *Document) CRC32() uint32 {
	return checksum.CRC32(d.Data())
}

// ExpectedCRC32 returns the CRC32 declared by the schema.
func (d *Document) ExpectedCRC32() (uint32, bool) {
	return d.crc32, d.hasCRC32
}

// Checksum returns the SNES checksum of the ROM buffer.
func (d *Document) Checksum() uint16 {
	return checksum.SNES(d.Data())
}

// Select makes the node the only selected node and observes it. The
// selection handler is called now and whenever the node changes. A nil node
// clears the selection.
func (d *Document) Select(n Node) {
	d.DeselectAll()
	if n == nil {
		return
	}

	d.selection.Add(n)
	n.AddObserver(d, func() {
		if d.onSelect != nil {
			d.onSelect(n)
		}
	})
	if d.onSelect != nil {
		d.onSelect(n)
	}
}

// SelectLink selects the node that the link resolves to. Invalid links
// leave the selection cleared.
func (d *Document) SelectLink(link string) error {
	d.DeselectAll()
	n, err := d.Resolve(link)
	if err != nil {
		return err
	}
	d.Select(n)
	return nil
}

// Deselect removes the node from the selection.
func (d *Document) Deselect(n Node) {
	if !d.selection.Contains(n) {
		return
	}
	n.RemoveObserver(d)
	d.selection.Remove(n)
}

// DeselectAll clears the selection.
func (d *Document) DeselectAll() {
	for _, n := range d.selection.ToSlice() {
		d.Deselect(n)
	}
}

// Selection returns the selected nodes.
func (d *Document) Selection() []Node {
	return d.selection.ToSlice()
}

// AddReference makes the document write a property of the owner node into
// the target field on every assembly.
func (d *Document) AddReference(owner Node, target *Field, opts ReferenceOptions) *Reference {
	r := &Reference{owner: owner, target: target, options: opts}
	b := owner.base()
	b.references = append(b.references, r)
	return r
}
