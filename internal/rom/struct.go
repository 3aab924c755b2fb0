package rom

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/retroenv/romschema/internal/action"
	"github.com/retroenv/romschema/internal/schema"
)

// Struct is a group of child nodes that are stored in the data of the
// struct. Children are decoded when they are accessed for the first time.
type Struct struct {
	node

	children []Node
	byKey    map[string]Node
}

func newStruct(doc *Document, def *schema.Definition, parent Node) *Struct {
	s := &Struct{}
	s.initStruct(doc, def, parent, s)
	return s
}

func (s *Struct) initStruct(doc *Document, def *schema.Definition, parent, self Node) {
	s.init(doc, def, parent, self)
	s.byKey = make(map[string]Node, len(def.Assembly))
	for _, child := range def.Assembly {
		s.addChild(child)
	}
}

// Kind returns the variant of the node.
func (s *Struct) Kind() Kind {
	return KindStruct
}

// AddChild creates a child node from the definition. The child is decoded
// when it is accessed for the first time.
func (s *Struct) AddChild(def *schema.Definition) (Node, error) {
	if def.Key == "" {
		return nil, schemaErrorf(s.Path(), "child definition has no key")
	}
	if err := s.doc.validate(def, s.Path()+"."+def.Key); err != nil {
		return nil, err
	}
	if _, ok := s.byKey[def.Key]; ok {
		return nil, schemaErrorf(s.Path()+"."+def.Key, "duplicate key")
	}
	return s.addChild(def), nil
}

func (s *Struct) addChild(def *schema.Definition) Node {
	child := s.doc.newNode(def, s.self)
	s.children = append(s.children, child)
	s.byKey[def.Key] = child
	return child
}

// Child returns the child with the given key, decoding it if needed.
func (s *Struct) Child(key string) Node {
	child, ok := s.byKey[key]
	if !ok {
		return nil
	}
	ensureLoaded(child, s.data)
	return child
}

// Has returns whether a child with the given key exists.
func (s *Struct) Has(key string) bool {
	_, ok := s.byKey[key]
	return ok
}

// Keys returns the keys of all children in declaration order.
func (s *Struct) Keys() []string {
	keys := make([]string, len(s.children))
	for i, child := range s.children {
		keys[i] = child.Key()
	}
	return keys
}

// Children returns all children in declaration order, decoding them if
// needed.
func (s *Struct) Children() []Node {
	for _, child := range s.children {
		ensureLoaded(child, s.data)
	}
	return slices.Clone(s.children)
}

// Field returns the child field with the given key.
func (s *Struct) Field(key string) *Field {
	f, _ := s.Child(key).(*Field)
	return f
}

// Struct returns the child struct with the given key.
func (s *Struct) Struct(key string) *Struct {
	switch child := s.Child(key).(type) {
	case *Struct:
		return child
	case *Command:
		return &child.Struct
	default:
		return nil
	}
}

// Collection returns the child collection with the given key.
func (s *Struct) Collection(key string) *Collection {
	c, _ := s.Child(key).(*Collection)
	return c
}

// Text returns the child text with the given key.
func (s *Struct) Text(key string) *Text {
	t, _ := s.Child(key).(*Text)
	return t
}

// Script returns the child script with the given key.
func (s *Struct) Script(key string) *Script {
	sc, _ := s.Child(key).(*Script)
	return sc
}

func (s *Struct) disassemble(data []byte) {
	s.loadRange(data)

	// children have to decode again from the new data
	for _, child := range s.children {
		child.base().state.Clear(Loaded)
	}
}

func (s *Struct) updateReferences() {
	for _, child := range s.children {
		if !child.IsDirty() || child.Invalid() || child.Disabled() {
			continue
		}
		child.updateReferences()
	}
	s.node.updateReferences()
}

// assembleChildren writes all modified children into the data of the
// struct.
func (s *Struct) assembleChildren() {
	for _, child := range s.children {
		if !child.IsDirty() || !child.IsLoaded() || child.Invalid() || child.Disabled() {
			continue
		}
		child.assemble(s.data)
		child.base().state.Clear(Dirty)
	}
}

func (s *Struct) assemble(dst []byte) {
	s.assembleChildren()
	s.assembleInto(dst)
}

// SetData replaces decoded bytes of the struct starting at offset as an
// undoable action.
func (s *Struct) SetData(data []byte, offset int) error {
	if offset < 0 || offset+len(data) > len(s.data) {
		return fmt.Errorf("setting data at 0x%X with length %d: %w", offset, len(data), ErrOutOfRange)
	}
	oldData := slices.Clone(s.data[offset : offset+len(data)])
	if bytes.Equal(oldData, data) {
		return nil
	}
	newData := slices.Clone(data)

	set := func(b []byte) {
		s.assembleChildren()
		copy(s.data[offset:], b)
		for _, child := range s.children {
			child.base().state.Clear(Loaded)
		}
		s.MarkDirty()
		s.notify()
	}
	redo := func() {
		set(newData)
	}
	undo := func() {
		set(oldData)
	}
	desc := fmt.Sprintf("Set %s data [%d-%d]", s.name, offset, offset+len(data))
	s.doc.do(action.New(s, desc, undo, redo))
	return nil
}
