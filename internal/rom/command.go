package rom

import (
	"fmt"

	"github.com/retroenv/romschema/internal/byterange"
	"github.com/retroenv/romschema/internal/schema"
)

const invalidCommand = "Invalid Command"

// Command is a single instruction of a script.
type Command struct {
	Struct

	encoding *ScriptEncoding
	ref      int
	label    string
}

func newCommand(doc *Document, def *schema.Definition, script *Script, encoding *ScriptEncoding, offset int) *Command {
	c := &Command{
		encoding: encoding,
		ref:      -1,
	}
	c.initStruct(doc, def, script, c)
	c.rng = byterange.WithLength(offset, max(def.Range.Length(), 1))
	return c
}

// Kind returns the variant of the node.
func (c *Command) Kind() Kind {
	return KindCommand
}

// Path returns the path of the command, it contains the script path, the
// encoding and the command key.
func (c *Command) Path() string {
	if c.parent == nil {
		return c.encoding.Key() + "." + c.key
	}
	return c.parent.Path() + "." + c.encoding.Key() + "." + c.key
}

// Encoding returns the script encoding that the command was decoded with.
func (c *Command) Encoding() *ScriptEncoding {
	return c.encoding
}

// Ref returns the reference id of the command. It is the offset of the
// command at the last disassembly or reference update, or a synthetic id
// for inserted commands.
func (c *Command) Ref() int {
	return c.ref
}

// Script returns the script that contains the command.
func (c *Command) Script() *Script {
	s, _ := c.parent.(*Script)
	return s
}

// Opcode returns the opcode value of the command.
func (c *Command) Opcode() int64 {
	if f := c.Field(opcodeKey); f != nil {
		return f.Value()
	}
	return 0
}

// Category returns the category of the command definition.
func (c *Command) Category() string {
	return c.def.Category
}

// Label returns the custom label of the command or its address formatted
// as bank/offset.
func (c *Command) Label() string {
	if c.label != "" {
		return c.label
	}
	address := c.doc.UnmapAddress(c.physicalOffset())
	return fmt.Sprintf("%02X/%04X", address>>16, address&0xFFFF)
}

// SetLabel sets a custom label.
func (c *Command) SetLabel(label string) {
	c.label = label
}

// Description returns the description provided by the encoding delegate.
func (c *Command) Description() string {
	return c.encoding.delegate.Description(c)
}

func (c *Command) disassemble(data []byte) {
	c.Struct.disassemble(data)
	c.encoding.delegate.DidDisassemble(c, data)
}

// IsReferenced returns whether another field jumps to the command.
func (c *Command) IsReferenced() bool {
	return len(c.references) > 0
}
