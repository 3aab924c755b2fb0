package rom

import (
	"slices"
	"strings"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/romschema/internal/action"
	"github.com/retroenv/romschema/internal/schema"
	"github.com/retroenv/romschema/internal/symbols"
)

// refEntry is a command or a placeholder of the reference table.
type refEntry interface {
	referenceList() *[]*Reference
}

func (n *node) referenceList() *[]*Reference {
	return &n.references
}

// Placeholder marks a script offset that a command will be decoded at. It
// collects the references to the command until the command exists.
type Placeholder struct {
	Offset   int
	Encoding string
	Label    string

	references []*Reference
}

func (p *Placeholder) referenceList() *[]*Reference {
	return &p.references
}

// References returns the references waiting for the command.
func (p *Placeholder) References() []*Reference {
	return p.references
}

// Script is a stream of commands of one or more script encodings.
type Script struct {
	node

	commands []*Command
	table    *symbols.Table[int, refEntry]
	labels   map[string]*Command
	nextRef  int
}

func newScript(doc *Document, def *schema.Definition, parent Node) *Script {
	s := &Script{
		table:  symbols.New[int, refEntry](),
		labels: map[string]*Command{},
	}
	s.init(doc, def, parent, s)
	return s
}

// Kind returns the variant of the node.
func (s *Script) Kind() Kind {
	return KindScript
}

// DefaultEncoding returns the encoding that the script starts with.
func (s *Script) DefaultEncoding() *ScriptEncoding {
	if len(s.def.Encoding) == 0 {
		return nil
	}
	return s.doc.ScriptEncoding(s.def.Encoding[0])
}

// Len returns the number of commands.
func (s *Script) Len() int {
	return len(s.commands)
}

// Commands returns the commands in script order.
func (s *Script) Commands() []*Command {
	return slices.Clone(s.commands)
}

// Command returns the command at index i or nil.
func (s *Script) Command(i int) *Command {
	if i < 0 || i >= len(s.commands) {
		return nil
	}
	return s.commands[i]
}

// CommandAt returns the command with the given reference id. Reference ids
// are the offsets of the commands at the last disassembly or reference
// update.
func (s *Script) CommandAt(ref int) *Command {
	entry, _ := s.table.Get(ref)
	c, _ := entry.(*Command)
	return c
}

// PlaceholderAt returns the placeholder at the offset or nil.
func (s *Script) PlaceholderAt(offset int) *Placeholder {
	entry, _ := s.table.Get(offset)
	p, _ := entry.(*Placeholder)
	return p
}

// IsReferenced returns whether a field references the offset.
func (s *Script) IsReferenced(ref int) bool {
	return s.table.IsUsed(ref)
}

// Label returns the command with the given label or nil.
func (s *Script) Label(label string) *Command {
	return s.labels[label]
}

// LabelAt returns the label of the command at the reference id, or a
// marker for broken references.
func (s *Script) LabelAt(ref int) string {
	if c := s.CommandAt(ref); c != nil {
		return c.Label()
	}
	return invalidCommand
}

// seedLabels adds placeholders for the labels of the definition. Label
// addresses are mapped addresses.
func (s *Script) seedLabels() {
	begin := s.physicalOffset()
	for address, label := range s.def.Labels {
		offset := s.doc.MapAddress(address) - begin
		s.table.Set(offset, &Placeholder{
			Offset:   offset,
			Encoding: label.Encoding,
			Label:    label.Name,
		})
	}
}

func (s *Script) disassemble(data []byte) {
	s.loadRange(data)
	s.commands = nil
	s.table.Reset()
	s.seedLabels()

	encoding := s.DefaultEncoding()
	if encoding == nil {
		return
	}
	encoding.delegate.InitScript(s)

	offset := 0
	for offset < len(s.data) {
		entry, _ := s.table.Get(offset)
		placeholder, _ := entry.(*Placeholder)
		if placeholder != nil && placeholder.Encoding != "" {
			if e := s.doc.ScriptEncoding(placeholder.Encoding); e != nil {
				encoding = e
			}
		}

		def := encoding.Lookup(s.data[offset:])
		command := newCommand(s.doc, def, s, encoding, offset)
		command.ref = offset
		if placeholder != nil {
			command.label = placeholder.Label
		}

		// registered before decoding to let commands reference themselves
		s.table.Set(offset, command)
		command.disassemble(s.data)
		s.commands = append(s.commands, command)

		if placeholder != nil {
			for _, r := range placeholder.references {
				r.owner = command
				command.references = append(command.references, r)
			}
		}

		if next := encoding.delegate.NextEncoding(command); next != encoding.key {
			if e := s.doc.ScriptEncoding(next); e != nil {
				encoding = e
			}
		}
		offset += max(command.assembledLength(), 1)
	}
	s.nextRef = offset
	s.UpdateOffsets()

	s.doc.logger.Debug("Script disassembled",
		log.String("path", s.Path()),
		log.Int("commands", len(s.commands)))
}

// UpdateOffsets recalculates the ranges of all commands in script order
// and rebuilds the labels.
func (s *Script) UpdateOffsets() {
	offset := 0
	s.labels = make(map[string]*Command, len(s.commands))
	for _, c := range s.commands {
		c.rng.Begin = offset
		offset += c.assembledLength()
		s.labels[c.Label()] = c
	}
}

func (s *Script) updateReferences() {
	s.UpdateOffsets()
	s.table.Reset()

	end := 0
	for _, c := range s.commands {
		c.updateReferences()
		c.ref = c.rng.Begin
		s.table.Set(c.ref, c)
		if c.IsReferenced() {
			s.table.MarkUsed(c.ref)
		}
		end = c.rng.End
	}
	s.node.updateReferences()
	s.nextRef = max(s.nextRef, end)
}

func (s *Script) assemble(dst []byte) {
	for _, c := range s.commands {
		c.encoding.delegate.WillAssemble(c)
	}
	s.UpdateOffsets()

	length := 0
	if len(s.commands) > 0 {
		length = s.commands[len(s.commands)-1].rng.End
	}
	s.data = make([]byte, length)
	for _, c := range s.commands {
		c.assemble(s.data)
		c.state.Clear(Dirty)
	}

	s.encoded = nil
	s.assembleInto(dst)
}

// BlankCommand returns a new command decoded from zero bytes with its
// opcode set. The identifier is a command key of the default encoding or
// "encoding.key". An empty identifier returns the default command.
func (s *Script) BlankCommand(identifier string) *Command {
	if identifier == "" {
		identifier = defaultCommandKey
	}
	encoding := s.DefaultEncoding()
	if encodingKey, key, ok := strings.Cut(identifier, "."); ok {
		encoding = s.doc.ScriptEncoding(encodingKey)
		identifier = key
	}
	if encoding == nil {
		return nil
	}
	def := encoding.Command(identifier)
	if def == nil {
		return nil
	}

	data := make([]byte, max(def.Range.Length(), 1))
	if op, ok := encoding.Opcode(identifier); ok {
		if op > 0xFF && len(data) > 1 {
			data[0] = byte(op >> 8)
			data[1] = byte(op)
		} else {
			data[0] = byte(op)
		}
	}

	c := newCommand(s.doc, def, s, encoding, 0)
	c.ref = s.nextRef
	s.nextRef++
	c.disassemble(data)
	return c
}

// InsertCommand inserts the command before the command with the given
// reference id as an undoable action. If no command has the id, the command
// is appended. Commands without an id get a new unique one.
func (s *Script) InsertCommand(c *Command, ref int) *Command {
	i := len(s.commands)
	if previous := s.CommandAt(ref); previous != nil {
		if j := slices.Index(s.commands, previous); j >= 0 {
			i = j
		}
	}

	redo := func() {
		c.parent = s.self
		s.commands = slices.Insert(s.commands, i, c)
		if c.ref < 0 {
			c.ref = s.nextRef
			s.nextRef++
		}
		s.table.Set(c.ref, c)
		s.MarkDirty()
		s.notify()
	}
	undo := func() {
		s.commands = slices.Delete(s.commands, i, i+1)
		s.unregister(c)
		s.MarkDirty()
		s.notify()
	}
	s.doc.do(action.New(s, "Insert Command", undo, redo))
	return c
}

// RemoveCommand removes the command as an undoable action and returns it.
// If the command is not part of the script, nil is returned and the
// observers are notified.
func (s *Script) RemoveCommand(c *Command) *Command {
	i := slices.Index(s.commands, c)
	if i < 0 {
		s.notify()
		return nil
	}

	redo := func() {
		s.commands = slices.Delete(s.commands, i, i+1)
		s.unregister(c)
		s.MarkDirty()
		s.notify()
	}
	undo := func() {
		s.commands = slices.Insert(s.commands, i, c)
		s.table.Set(c.ref, c)
		s.MarkDirty()
		s.notify()
	}
	s.doc.do(action.New(s, "Remove Command", undo, redo))
	return c
}

func (s *Script) unregister(c *Command) {
	if s.CommandAt(c.ref) == c {
		s.table.Delete(c.ref)
	}
}

// AddPlaceholder adds a reference from the target field to the command at
// the offset. If the command does not exist yet, a placeholder keeps the
// reference and the encoding and label hints until the command is decoded.
// A nil target only records the hints.
func (s *Script) AddPlaceholder(target *Field, offset int, encoding, label string) {
	entry, _ := s.table.Get(offset)
	if target != nil {
		s.table.MarkUsed(offset)
	}

	if c, ok := entry.(*Command); ok {
		if target != nil {
			addReference(c.referenceList(), c, target)
		}
		return
	}

	placeholder, _ := entry.(*Placeholder)
	if placeholder == nil {
		placeholder = &Placeholder{Offset: offset}
		s.table.Set(offset, placeholder)
	}
	if target != nil {
		addReference(placeholder.referenceList(), nil, target)
	}
	if placeholder.Encoding == "" {
		placeholder.Encoding = encoding
	}
	if placeholder.Label == "" {
		placeholder.Label = label
	}
}

// removeReference removes the references of the target from the entry at
// the offset.
func (s *Script) removeReference(target *Field, offset int) {
	entry, ok := s.table.Get(offset)
	if !ok {
		return
	}
	list := entry.referenceList()
	*list = slices.DeleteFunc(*list, func(r *Reference) bool {
		return r.target == target
	})
}

// addReference appends an address reference for the target unless the
// list already contains one.
func addReference(list *[]*Reference, owner Node, target *Field) {
	for _, r := range *list {
		if r.target == target {
			return
		}
	}
	*list = append(*list, &Reference{
		owner:   owner,
		target:  target,
		options: ReferenceOptions{Address: true},
	})
}
