package rom

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/romschema/internal/byterange"
	"github.com/retroenv/romschema/internal/schema"
)

// Node is an object of the document tree that is backed by a range of bytes.
type Node interface {
	// Key returns the key of the node, unique among its siblings.
	Key() string
	// Name returns the display name of the node.
	Name() string
	// Path returns the dotted path of the node starting at the document.
	Path() string
	// Kind returns the variant of the node.
	Kind() Kind
	// Parent returns the parent node or nil for the document.
	Parent() Node
	// Document returns the document that the node belongs to.
	Document() *Document
	// Definition returns the schema definition of the node.
	Definition() *schema.Definition
	// Range returns the byte range of the node inside of its parent.
	Range() byterange.Range
	// Data returns the decoded bytes of the node.
	Data() []byte
	// Index returns the index of the node inside of its collection or -1.
	Index() int

	IsLoaded() bool
	IsDirty() bool
	Invalid() bool
	Hidden() bool
	Disabled() bool

	// MarkDirty marks the node and all its ancestors as modified.
	MarkDirty()
	// AddObserver registers a change listener for the owner.
	AddObserver(owner any, fn func())
	// RemoveObserver removes the change listener of the owner.
	RemoveObserver(owner any)

	base() *node
	disassemble(data []byte)
	assemble(dst []byte)
	updateReferences()
}

// node contains the state that is shared by all node variants.
type node struct {
	doc    *Document
	def    *schema.Definition
	self   Node
	parent Node

	key    string
	name   string
	rng    byterange.Range
	format []string
	index  int
	state  State

	data    []byte // decoded bytes
	encoded []byte // encoded bytes, nil if they need to be assembled again

	references []*Reference
	observers  observers
}

func (n *node) init(doc *Document, def *schema.Definition, parent, self Node) {
	n.doc = doc
	n.def = def
	n.self = self
	n.parent = parent
	n.key = def.Key
	n.name = def.DisplayName()
	n.rng = def.Range
	n.format = def.Format
	n.index = -1
}

func (n *node) base() *node {
	return n
}

// Key returns the key of the node.
func (n *node) Key() string {
	return n.key
}

// Name returns the display name of the node.
func (n *node) Name() string {
	return n.name
}

// Parent returns the parent node.
func (n *node) Parent() Node {
	return n.parent
}

// Document returns the document that the node belongs to.
func (n *node) Document() *Document {
	return n.doc
}

// Definition returns the schema definition of the node.
func (n *node) Definition() *schema.Definition {
	return n.def
}

// Range returns the byte range of the node inside of its parent.
func (n *node) Range() byterange.Range {
	return n.rng
}

// Data returns the decoded bytes of the node.
func (n *node) Data() []byte {
	return n.data
}

// Index returns the index of the node inside of its collection or -1.
func (n *node) Index() int {
	return n.index
}

// IsLoaded returns whether the node has been decoded.
func (n *node) IsLoaded() bool {
	return n.state.Is(Loaded)
}

// IsDirty returns whether the node was modified since the last assembly.
func (n *node) IsDirty() bool {
	return n.state.Is(Dirty)
}

// Path returns the dotted path of the node. Collection items are addressed
// by their index.
func (n *node) Path() string {
	if n.parent == nil || n.isDocumentChild() {
		return n.key
	}
	if n.index >= 0 {
		return fmt.Sprintf("%s[%d]", n.parent.Path(), n.index)
	}
	return n.parent.Path() + "." + n.key
}

// Invalid returns whether the node is not shown and not assembled.
func (n *node) Invalid() bool {
	return n.condition(n.def.Invalid)
}

// Hidden returns whether the node is not shown but still assembled.
func (n *node) Hidden() bool {
	return n.condition(n.def.Hidden)
}

// Disabled returns whether the node is shown as disabled and not assembled.
func (n *node) Disabled() bool {
	return n.condition(n.def.Disabled)
}

func (n *node) condition(c schema.Condition) bool {
	if !c.IsExpr() {
		return c.Value
	}
	e, err := n.doc.expression(c.Expr)
	if err != nil {
		return false
	}
	v, err := e.Bool(n.resolver())
	if err != nil {
		n.doc.logger.Debug("Evaluating condition failed",
			log.String("path", n.self.Path()),
			log.String("expression", c.Expr),
			log.Err(err))
		return false
	}
	return v
}

// MarkDirty marks the node and all its ancestors as modified.
func (n *node) MarkDirty() {
	n.encoded = nil
	n.state.Set(Dirty)
	if n.parent != nil {
		n.parent.MarkDirty()
	}
}

// AddObserver registers a change listener for the owner.
func (n *node) AddObserver(owner any, fn func()) {
	n.observers.add(owner, fn)
}

// RemoveObserver removes the change listener of the owner.
func (n *node) RemoveObserver(owner any) {
	n.observers.remove(owner)
}

func (n *node) notify() {
	n.observers.notify()
}

func (n *node) isDocumentChild() bool {
	d, ok := n.parent.(*Document)
	return ok && d != nil
}

// enclosingIndex returns the index of the nearest collection item that
// contains the node, including the node itself.
func (n *node) enclosingIndex() int {
	var current Node = n.self
	for current != nil {
		if i := current.Index(); i >= 0 {
			return i
		}
		current = current.Parent()
	}
	return 0
}

// substituteIndex replaces %i in a link template with the index of the
// enclosing collection item.
func (n *node) substituteIndex(link string) string {
	return strings.ReplaceAll(link, "%i", strconv.Itoa(n.enclosingIndex()))
}

// physicalOffset returns the offset of the node in the document buffer.
func (n *node) physicalOffset() int {
	if n.parent == nil {
		return 0
	}
	if n.isDocumentChild() {
		return n.doc.MapAddress(n.rng.Begin)
	}
	return n.parent.base().physicalOffset() + n.rng.Begin
}

// bufferRange returns the range of the node inside of the parent data,
// translating document level addresses to buffer offsets.
func (n *node) bufferRange() byterange.Range {
	if n.isDocumentChild() {
		return n.doc.MapRange(n.rng)
	}
	return n.rng
}

// loadRange copies the range of the node out of the parent data and decodes
// it. Ranges that exceed the data are clamped.
func (n *node) loadRange(data []byte) {
	r := n.bufferRange().Clamp(len(data))
	n.encoded = slices.Clone(data[r.Begin:r.End])
	n.data = n.doc.codecs.Decode(n.encoded, n.format)
	n.state.Set(Loaded)
}

func (n *node) disassemble(data []byte) {
	n.loadRange(data)
}

func (n *node) assemble(dst []byte) {
	n.assembleInto(dst)
}

// assembleInto encodes the node data if needed and copies the result into
// the parent data. A node that does not fit is skipped with a warning.
func (n *node) assembleInto(dst []byte) {
	if n.encoded == nil {
		n.encoded = n.doc.codecs.Encode(n.data, n.format)
	}
	if dst == nil {
		return
	}

	r := n.bufferRange()
	if r.Begin < 0 || r.Begin+len(n.encoded) > len(dst) {
		n.doc.logger.Warn("Assembly does not fit in its range",
			log.String("name", n.name),
			log.Hex("begin", r.Begin),
			log.Int("length", len(n.encoded)),
			log.Int("available", max(len(dst)-r.Begin, 0)))
		return
	}
	copy(dst[r.Begin:], n.encoded)
}

// assembledLength returns the length of the encoded node and updates the
// end of its range.
func (n *node) assembledLength() int {
	if n.encoded == nil {
		n.self.assemble(nil)
	}
	n.rng.End = n.rng.Begin + len(n.encoded)
	return len(n.encoded)
}

func (n *node) updateReferences() {
	for _, r := range n.references {
		r.Update()
	}
}

// References returns the references that the node writes its location to.
func (n *node) References() []*Reference {
	return n.references
}

// resolver returns an expression resolver that looks up names relative to
// the node.
func (n *node) resolver() nodeResolver {
	return nodeResolver{node: n.self}
}

// assembledLength is a helper for nodes passed as interfaces.
func assembledLength(n Node) int {
	return n.base().assembledLength()
}

// ensureLoaded disassembles the node from the given parent data if it has
// not been loaded yet.
func ensureLoaded(n Node, parentData []byte) {
	if !n.IsLoaded() {
		n.disassemble(parentData)
	}
}
