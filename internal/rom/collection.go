package rom

import (
	"bytes"
	"slices"
	"sort"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/romschema/internal/action"
	"github.com/retroenv/romschema/internal/byterange"
	"github.com/retroenv/romschema/internal/schema"
)

const bankSize = 0x10000

// Layout defines how the items of a collection are arranged in its data.
type Layout uint8

// Collection layouts.
const (
	// FixedStride items all have the same length and follow each other.
	FixedStride Layout = iota
	// PointerSequential items follow each other, a pointer table contains
	// the address of every item.
	PointerSequential
	// PointerShared items are deduplicated, items with identical content
	// share the same bytes and pointer.
	PointerShared
	// Terminated items are separated by a terminator byte or by the text
	// terminator of their encoding.
	Terminated
)

var layoutNames = map[Layout]string{
	FixedStride:       "fixed stride",
	PointerSequential: "pointer sequential",
	PointerShared:     "pointer shared",
	Terminated:        "terminated",
}

// String returns the name of the layout.
func (l Layout) String() string {
	return layoutNames[l]
}

// Collection is a sequence of items that share the same definition.
type Collection struct {
	node

	kind       Kind
	layout     Layout
	item       *schema.Definition
	itemLength int
	items      []Node
	pointers   *Collection

	// storage contains the distinct byte ranges of the items, slots maps
	// every item to its storage range. Items that share a slot are aliased.
	storage []byterange.Range
	slots   []int
}

func newCollection(doc *Document, def *schema.Definition, parent Node) *Collection {
	c := &Collection{kind: KindCollection}
	c.init(doc, def, parent, c)

	c.item = def.Item
	if c.item == nil {
		c.item = &schema.Definition{Type: schema.TypeAssembly, Key: def.Key, Name: def.Name}
	}
	c.itemLength = itemLength(c.item)

	switch {
	case def.Terminator != nil:
		c.layout = Terminated
	case def.PointerTable == nil:
		c.layout = FixedStride
	case def.IsSequential:
		c.layout = PointerSequential
	default:
		c.layout = PointerShared
	}

	if def.PointerTable != nil {
		ptDef := def.PointerTable.Clone()
		ptDef.Key = def.Key + "PointerTable"
		ptDef.Name = "Pointers to " + def.DisplayName()
		ptDef.Array = schema.ArrayBounds{Length: def.Array.Length}
		c.pointers = newPointerTable(doc, ptDef, parent)
	}
	return c
}

// newPointerTable returns a fixed stride collection of address fields.
func newPointerTable(doc *Document, def *schema.Definition, parent Node) *Collection {
	length := def.PointerLength
	if length == 0 {
		length = doc.pointerLength
	}

	def = def.Clone()
	def.Type = schema.TypePointerTable
	def.PointerTable = nil
	def.Terminator = nil
	def.Item = &schema.Definition{
		Type:    schema.TypeProperty,
		Key:     def.Key,
		Name:    def.DisplayName(),
		Range:   byterange.WithLength(0, length),
		Mask:    pointerMask(length),
		HasMask: true,
		Offset:  def.Offset,
	}

	c := &Collection{
		kind:       KindPointerTable,
		layout:     FixedStride,
		item:       def.Item,
		itemLength: length,
	}
	c.init(doc, def, parent, c)
	return c
}

func pointerMask(length int) int64 {
	switch length {
	case 1:
		return 0xFF
	case 3:
		return 0xFFFFFF
	case 4:
		return 0x7FFFFFFF
	default:
		return 0xFFFF
	}
}

// itemLength returns the stride of fixed length items.
func itemLength(def *schema.Definition) int {
	if def.Type == schema.TypeProperty {
		mask := int64(defaultMask)
		if def.HasMask && def.Mask != 0 {
			mask = def.Mask
		}
		return maskLength(mask)
	}
	if l := def.Range.Length(); l > 0 {
		return l
	}
	return 1
}

// Kind returns the variant of the node.
func (c *Collection) Kind() Kind {
	return c.kind
}

// Layout returns the layout policy of the collection.
func (c *Collection) Layout() Layout {
	return c.layout
}

// PointerTable returns the pointer table of the collection or nil.
func (c *Collection) PointerTable() *Collection {
	return c.pointers
}

// Len returns the number of items.
func (c *Collection) Len() int {
	return len(c.items)
}

// Item returns the item at index i, decoding it if needed. It returns nil
// if the index is out of range.
func (c *Collection) Item(i int) Node {
	if i < 0 || i >= len(c.items) {
		return nil
	}
	item := c.items[i]
	ensureLoaded(item, c.data)
	return item
}

// Items returns all items, decoding them if needed.
func (c *Collection) Items() []Node {
	for _, item := range c.items {
		ensureLoaded(item, c.data)
	}
	return slices.Clone(c.items)
}

// Slot returns the storage slot of item i. Items with the same slot share
// their bytes.
func (c *Collection) Slot(i int) int {
	if i < 0 || i >= len(c.slots) {
		return -1
	}
	return c.slots[i]
}

// Aliased returns whether items i and j share the same bytes.
func (c *Collection) Aliased(i, j int) bool {
	return i != j && c.Slot(i) >= 0 && c.Slot(i) == c.Slot(j)
}

// Storage returns the distinct byte ranges used by the items.
func (c *Collection) Storage() []byterange.Range {
	return slices.Clone(c.storage)
}

func (c *Collection) pointer(i int) *Field {
	f, _ := c.pointers.Item(i).(*Field)
	return f
}

func (c *Collection) newItem(i int, r byterange.Range) Node {
	item := c.doc.newNode(c.item, c.self)
	b := item.base()
	b.rng = r
	b.index = i
	return item
}

func (c *Collection) disassemble(data []byte) {
	c.loadRange(data)
	if c.pointers != nil {
		c.pointers.disassemble(data)
	}

	var ranges []byterange.Range
	switch c.layout {
	case FixedStride:
		ranges = c.fixedRanges()
	case PointerSequential:
		ranges = c.sequentialRanges()
	case PointerShared:
		ranges = c.sharedRanges()
	case Terminated:
		ranges = c.terminatedRanges()
	}

	c.items = make([]Node, len(ranges))
	for i, r := range ranges {
		c.items[i] = c.newItem(i, r)
	}
	c.updateSlots()

	c.doc.logger.Debug("Collection disassembled",
		log.String("path", c.Path()),
		log.Stringer("layout", c.layout),
		log.Int("items", len(c.items)))
}

func (c *Collection) fixedRanges() []byterange.Range {
	count := c.def.Array.Length
	if count == 0 {
		count = len(c.data) / c.itemLength
	}
	ranges := make([]byterange.Range, count)
	for i := range ranges {
		ranges[i] = byterange.WithLength(i*c.itemLength, c.itemLength)
	}
	return ranges
}

func (c *Collection) sequentialRanges() []byterange.Range {
	count := c.pointers.Len()
	base := c.doc.MapAddress(c.rng.Begin)
	ranges := make([]byterange.Range, count)
	for i := range ranges {
		begin := c.doc.MapAddress(int(c.pointer(i).Value())) - base
		end := len(c.data)
		if i+1 < count {
			end = c.doc.MapAddress(int(c.pointer(i+1).Value())) - base
		}
		ranges[i] = byterange.New(begin, end).Clamp(len(c.data))
	}
	return ranges
}

// sharedRanges derives the item ranges from the sorted distinct pointers,
// every item ends where the next higher pointer begins. Pointers of auto
// bank collections are moved to the next bank whenever they decrease.
func (c *Collection) sharedRanges() []byterange.Range {
	count := c.pointers.Len()
	mapped := make([]int, count)
	var bankOffset, previous int64
	for i := range mapped {
		p := c.pointer(i)
		pointer := p.Value()
		if c.def.AutoBank {
			pointer += bankOffset
			if i > 0 && pointer < previous {
				bankOffset += bankSize
				pointer += bankSize
			}
			p.value = pointer
			previous = pointer
		}
		mapped[i] = c.doc.MapAddress(int(pointer))
	}

	sorted := slices.Clone(mapped)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	base := c.doc.MapAddress(c.rng.Begin)
	spans := make(map[int]byterange.Range, len(sorted))
	end := len(c.data)
	for _, address := range sorted {
		if _, ok := spans[address]; ok {
			continue
		}
		begin := address - base
		spans[address] = byterange.New(begin, end).Clamp(len(c.data))
		end = begin
	}

	ranges := make([]byterange.Range, count)
	for i, address := range mapped {
		ranges[i] = spans[address]
	}
	return ranges
}

func (c *Collection) terminatedRanges() []byterange.Range {
	var ranges []byterange.Range

	if c.def.Terminator.Text {
		encoding := c.doc.itemEncoding(c.item)
		if encoding == nil {
			return nil
		}
		for begin := 0; begin < len(c.data); {
			length := max(encoding.TextLength(c.data[begin:]), 1)
			ranges = append(ranges, byterange.New(begin, min(begin+length, len(c.data))))
			begin += length
		}
		return ranges
	}

	terminator := c.def.Terminator.Byte
	for begin := 0; begin < len(c.data); {
		end := begin
		for end < len(c.data) && c.data[end] != terminator {
			end++
		}
		end = min(end+1, len(c.data))
		ranges = append(ranges, byterange.New(begin, end))
		begin = end
	}
	return ranges
}

// updateSlots assigns the storage slots from the current item ranges.
func (c *Collection) updateSlots() {
	c.storage = c.storage[:0]
	c.slots = make([]int, len(c.items))
	seen := make(map[byterange.Range]int, len(c.items))
	for i, item := range c.items {
		r := item.Range()
		slot, ok := seen[r]
		if !ok {
			slot = len(c.storage)
			c.storage = append(c.storage, r)
			seen[r] = slot
		}
		c.slots[i] = slot
	}
}

func (c *Collection) updateReferences() {
	for _, item := range c.items {
		if item.IsLoaded() {
			item.updateReferences()
		}
	}
	c.node.updateReferences()
}

func (c *Collection) assemble(dst []byte) {
	for _, item := range c.items {
		ensureLoaded(item, c.data)
	}
	if c.pointers != nil {
		c.pointers.resize(len(c.items))
	}

	var length int
	switch c.layout {
	case PointerSequential:
		length = c.layoutSequential()
	case PointerShared:
		length = c.layoutShared()
	default:
		length = c.layoutPacked()
	}

	// the layout encoded every item, the items only need to be copied
	c.data = bytes.Repeat([]byte{c.doc.pad}, length)
	for _, item := range c.items {
		b := item.base()
		b.assembleInto(c.data)
		b.state.Clear(Dirty)
	}
	c.updateSlots()

	if c.pointers != nil {
		c.pointers.assemble(dst)
		c.pointers.state.Clear(Dirty)
	}

	c.encoded = nil
	c.assembleInto(dst)
}

func (c *Collection) layoutPacked() int {
	length := 0
	for _, item := range c.items {
		b := item.base()
		b.rng.Begin = length
		length += b.assembledLength()
	}
	return length
}

func (c *Collection) layoutSequential() int {
	length := 0
	for i, item := range c.items {
		b := item.base()
		b.rng.Begin = length
		c.pointer(i).setValueDirect(int64(length + c.rng.Begin))
		length += b.assembledLength()
	}
	return length
}

// layoutShared places every distinct item content once. Auto bank
// collections never let an item cross a bank boundary and only share
// content inside of the current bank, keeping the pointers ascending.
func (c *Collection) layoutShared() int {
	type span struct {
		begin int
		data  []byte
	}
	var spans []span

	length := 0
	previous := 0
	for i, item := range c.items {
		b := item.base()
		size := b.assembledLength()

		pointer := -1
		for _, s := range spans {
			if c.def.AutoBank && s.begin < previous {
				continue
			}
			if bytes.Equal(s.data, b.encoded) {
				pointer = s.begin
				break
			}
		}

		if pointer < 0 {
			start := length
			if c.def.AutoBank {
				start = c.bankAlign(length, size)
				if c.bank(start) != c.bank(length) {
					spans = nil
				}
			}
			pointer = start
			spans = append(spans, span{begin: pointer, data: b.encoded})
			length = start + size
		}

		if c.def.AutoBank && c.bank(pointer) != c.bank(length) {
			spans = nil
		}

		b.rng = byterange.WithLength(pointer, size)
		c.pointer(i).setValueDirect(int64(pointer + c.rng.Begin))
		previous = pointer
	}
	return length
}

// bank returns the bank of an offset inside of the collection.
func (c *Collection) bank(offset int) int {
	return (c.rng.Begin + offset) / bankSize
}

// bankAlign moves an offset to the start of the next bank if an item of
// the given size would cross a bank boundary.
func (c *Collection) bankAlign(offset, size int) int {
	if size == 0 || size > bankSize {
		return offset
	}
	if c.bank(offset) == c.bank(offset+size-1) {
		return offset
	}
	return (c.bank(offset)+1)*bankSize - c.rng.Begin
}

// resize adds or removes pointer table items to match the item count.
func (c *Collection) resize(count int) {
	ensureLoaded(c, nil)
	if count < len(c.items) {
		c.items = c.items[:count]
		return
	}
	for i := len(c.items); i < count; i++ {
		item := c.BlankItem()
		b := item.base()
		b.rng = byterange.WithLength(i*c.itemLength, c.itemLength)
		b.index = i
		c.items = append(c.items, item)
	}
}

// BlankItem returns a new item decoded from zero bytes. It is not part of
// the collection until it is inserted.
func (c *Collection) BlankItem() Node {
	item := c.doc.newNode(c.item, c.self)
	r := item.Range()
	length := max(r.Length(), c.itemLength)
	item.base().rng = byterange.WithLength(0, length)
	item.disassemble(make([]byte, length))
	return item
}

// Insert inserts the item at index i as an undoable action. An index out of
// range appends the item. If the collection is full, nil is returned and
// the observers are notified.
func (c *Collection) Insert(item Node, i int) Node {
	if c.def.Array.Max > 0 && len(c.items) >= c.def.Array.Max {
		c.notify()
		return nil
	}
	if i < 0 || i > len(c.items) {
		i = len(c.items)
	}

	redo := func() {
		item.base().parent = c.self
		c.items = slices.Insert(c.items, i, item)
		c.reindex()
		c.MarkDirty()
		c.notify()
	}
	undo := func() {
		c.items = slices.Delete(c.items, i, i+1)
		c.reindex()
		c.MarkDirty()
		c.notify()
	}
	c.doc.do(action.New(c, "Insert "+c.name, undo, redo))
	return item
}

// Remove removes the item at index i as an undoable action and returns it.
// An index out of range returns nil and notifies the observers.
func (c *Collection) Remove(i int) Node {
	if i < 0 || i >= len(c.items) {
		c.notify()
		return nil
	}

	item := c.items[i]
	ensureLoaded(item, c.data)
	redo := func() {
		c.items = slices.Delete(c.items, i, i+1)
		c.reindex()
		c.MarkDirty()
		c.notify()
	}
	undo := func() {
		c.items = slices.Insert(c.items, i, item)
		c.reindex()
		c.MarkDirty()
		c.notify()
	}
	c.doc.do(action.New(c, "Remove "+c.name, undo, redo))
	return item
}

func (c *Collection) reindex() {
	for i, item := range c.items {
		item.base().index = i
	}
	c.updateSlots()
}
