package rom

import (
	"math/bits"
	"strconv"
	"strings"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/romschema/internal/action"
	"github.com/retroenv/romschema/internal/byterange"
	"github.com/retroenv/romschema/internal/schema"
)

const defaultMask = 0xFF

// Field is a number, boolean or enumeration stored in the masked bits of up
// to 4 bytes.
type Field struct {
	node

	mask       int64
	bit        int
	offset     int64
	multiplier int64
	min        int64
	max        int64

	value int64
}

func newField(doc *Document, def *schema.Definition, parent Node) *Field {
	f := &Field{}
	f.init(doc, def, parent, f)

	f.mask = defaultMask
	if def.HasMask && def.Mask != 0 {
		f.mask = def.Mask
	}
	f.bit = bits.TrailingZeros64(uint64(f.mask))
	f.offset = int64(def.Offset)
	f.multiplier = int64(def.Multiplier)
	if f.multiplier == 0 {
		f.multiplier = 1
	}

	switch {
	case def.Signed && f.mask == 0xFF:
		f.min, f.max = -0x80, 0x7F
	case def.Signed && f.mask == 0xFFFF:
		f.min, f.max = -0x8000, 0x7FFF
	default:
		f.min, f.max = 0, f.mask>>f.bit
	}
	if def.Min != nil {
		f.min = int64(*def.Min)
	}
	if def.Max != nil {
		f.max = int64(*def.Max)
	}
	f.value = f.min

	f.rng = byterange.WithLength(def.Range.Begin, maskLength(f.mask))
	return f
}

// maskLength returns the number of bytes that are covered by the mask.
func maskLength(mask int64) int {
	length := 1
	for mask&^0xFF != 0 {
		mask >>= 8
		length++
	}
	return length
}

// Kind returns the variant of the node.
func (f *Field) Kind() Kind {
	return KindField
}

// Value returns the decoded value. Boolean fields return 0 or 1.
func (f *Field) Value() int64 {
	return f.value
}

// Bool returns whether the value is not zero.
func (f *Field) Bool() bool {
	return f.value != 0
}

// Mask returns the bit mask of the value.
func (f *Field) Mask() int64 {
	return f.mask
}

// Min returns the smallest raw value that the field displays.
func (f *Field) Min() int64 {
	return f.min
}

// Max returns the largest raw value that the field displays.
func (f *Field) Max() int64 {
	return f.max
}

// InRange returns whether the value is inside of the displayed bounds or a
// special value.
func (f *Field) InRange(value int64) bool {
	if _, ok := f.def.Special[int(value)]; ok {
		return true
	}
	lo := (f.min + f.offset) * f.multiplier
	hi := (f.max + f.offset) * f.multiplier
	return value >= min(lo, hi) && value <= max(lo, hi)
}

// IsBool returns whether the field is a boolean.
func (f *Field) IsBool() bool {
	return f.def.Bool
}

// IsFlag returns whether the field is displayed as a set of flags.
func (f *Field) IsFlag() bool {
	return f.def.Flag
}

// Special returns the label of a special value.
func (f *Field) Special(value int64) (string, bool) {
	s, ok := f.def.Special[int(value)]
	return s, ok
}

// Link returns the link template of the field with %i replaced by the
// value.
func (f *Field) Link() string {
	if f.def.Link == "" {
		return ""
	}
	return strings.ReplaceAll(f.def.Link, "%i", strconv.FormatInt(f.value, 10))
}

// DisplayValue returns the value as shown to the user: a special value
// label, a string table entry or the number.
func (f *Field) DisplayValue() string {
	if s, ok := f.Special(f.value); ok {
		return s
	}
	if f.def.Bool {
		return strconv.FormatBool(f.Bool())
	}
	if f.def.StringTable != "" {
		if table := f.doc.StringTable(f.def.StringTable); table != nil {
			return table.FormattedString(int(f.value), 0)
		}
	}
	return strconv.FormatInt(f.value, 10)
}

// external returns the node that contains the bytes of the field.
func (f *Field) external() Node {
	if f.def.External == "" {
		return nil
	}
	target, err := f.doc.Resolve(f.substituteIndex(f.def.External))
	if err != nil {
		return nil
	}
	return target
}

func (f *Field) disassemble(data []byte) {
	if f.def.External != "" {
		if target := f.external(); target != nil {
			data = target.Data()
		}
	}
	f.loadRange(data)

	var raw int64
	for i := len(f.data) - 1; i >= 0; i-- {
		raw = raw<<8 | int64(f.data[i])
	}
	raw &= f.mask
	raw >>= f.bit

	if f.def.Bool {
		f.value = boolValue(raw != 0)
		return
	}
	if f.def.Signed {
		switch {
		case f.mask == 0xFF && raw > 0x7F:
			raw -= 0x100
		case f.mask == 0xFFFF && raw > 0x7FFF:
			raw -= 0x10000
		}
	}
	f.value = (raw + f.offset) * f.multiplier
}

// raw converts the value back to the masked bits.
func (f *Field) raw() int64 {
	value := f.value
	if f.def.Bool {
		value = boolValue(value != 0)
	}
	value = floorDiv(value, f.multiplier)
	value -= f.offset
	return (value << f.bit) & f.mask
}

func (f *Field) assemble(dst []byte) {
	if dst != nil && f.def.External != "" {
		if target := f.external(); target != nil {
			dst = target.Data()
		}
	}

	// reload to keep the bits of adjacent values
	if dst != nil {
		f.loadRange(dst)
	}
	if len(f.data) < f.rng.Length() {
		data := make([]byte, f.rng.Length())
		copy(data, f.data)
		f.data = data
	}

	value := f.raw()
	keep := ^f.mask
	for i := range f.data {
		f.data[i] = f.data[i]&byte(keep) | byte(value)
		keep >>= 8
		value >>= 8
	}

	f.encoded = nil
	f.assembleInto(dst)
}

// MarkDirty marks the field, its ancestors and its external node as
// modified.
func (f *Field) MarkDirty() {
	if target := f.external(); target != nil {
		target.MarkDirty()
	}
	f.node.MarkDirty()
}

// SetValue changes the value as an undoable action. Setting the current
// value only notifies the observers.
func (f *Field) SetValue(value int64) {
	if f.def.Bool {
		value = boolValue(value != 0)
	}
	oldValue := f.value
	if value == oldValue {
		f.notify()
		return
	}

	redo := func() {
		f.apply(value, oldValue)
	}
	undo := func() {
		f.apply(oldValue, value)
	}
	f.doc.do(action.New(f, "Set "+f.name, undo, redo))
}

// SetBool sets the value of a boolean field.
func (f *Field) SetBool(b bool) {
	f.SetValue(boolValue(b))
}

func (f *Field) apply(value, previous int64) {
	// the parent data may have been replaced since the last edit
	if f.parent != nil {
		ensureLoaded(f, f.parent.Data())
	}
	f.value = value
	f.assemble(nil)
	f.MarkDirty()
	f.notify()

	if f.def.Script != "" {
		f.moveReference(previous, value)
	}
	if target := f.external(); target != nil {
		f.assemble(target.Data())
		target.base().notify()
	}
}

// moveReference moves the script reference of the field from the command
// at the old offset to the one at the new offset.
func (f *Field) moveReference(oldOffset, newOffset int64) {
	script, err := f.doc.script(f.def.Script)
	if err != nil {
		f.doc.logger.Warn("Field references an unknown script",
			log.String("field", f.Path()),
			log.String("script", f.def.Script))
		return
	}
	script.removeReference(f, int(oldOffset))
	script.AddPlaceholder(f, int(newOffset), "", "")
}

// setValueDirect changes the value without an action, it is used to
// update values that are derived from the layout of other nodes.
func (f *Field) setValueDirect(value int64) {
	if f.value == value {
		return
	}
	f.value = value
	f.MarkDirty()
}

func boolValue(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
