package rom

import (
	"fmt"
	"sort"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/romschema/internal/byterange"
	"github.com/retroenv/romschema/internal/schema"
)

const (
	defaultCommandKey = "default"
	opcodeKey         = "opcode"
)

// ScriptDelegate customizes the disassembly and assembly of the commands of
// a script encoding. Embed DefaultDelegate to only override some hooks.
type ScriptDelegate interface {
	// InitScript is called before a script is disassembled, it can add
	// placeholders to the script.
	InitScript(s *Script)
	// DidDisassemble is called after a command was decoded. The command can
	// change its length and decode again.
	DidDisassemble(c *Command, data []byte)
	// WillAssemble is called before a command is encoded.
	WillAssemble(c *Command)
	// NextEncoding returns the key of the encoding of the next command.
	NextEncoding(c *Command) string
	// Description returns a human readable description of the command.
	Description(c *Command) string
}

// DefaultDelegate implements the behavior that is used for script
// encodings without a registered delegate. Commands get their variable
// length applied and fields that reference a script get a placeholder at
// their target offset.
type DefaultDelegate struct{}

// InitScript does nothing.
func (DefaultDelegate) InitScript(*Script) {}

// DidDisassemble applies the variable length of the command and adds
// placeholders for script references.
func (DefaultDelegate) DidDisassemble(c *Command, data []byte) {
	c.applyVariableLength(data)
	c.addScriptPlaceholders()
}

// WillAssemble does nothing.
func (DefaultDelegate) WillAssemble(*Command) {}

// NextEncoding keeps the encoding of the command.
func (DefaultDelegate) NextEncoding(c *Command) string {
	return c.encoding.Key()
}

// Description returns the opcode of the command.
func (DefaultDelegate) Description(c *Command) string {
	return fmt.Sprintf("Command %02X", c.Opcode())
}

// ScriptEncoding is the instruction set of a script. It maps opcodes to
// command definitions.
type ScriptEncoding struct {
	key      string
	name     string
	delegate ScriptDelegate

	commands map[int]*schema.Definition
	byKey    map[string]*schema.Definition
	opcodes  map[string]int
	keys     []string
	fallback *schema.Definition
}

func newScriptEncoding(def *schema.ScriptEncoding, delegate ScriptDelegate) *ScriptEncoding {
	if delegate == nil {
		delegate = DefaultDelegate{}
	}
	e := &ScriptEncoding{
		key:      def.Key,
		name:     def.Name,
		delegate: delegate,
		commands: map[int]*schema.Definition{},
		byKey:    map[string]*schema.Definition{},
		opcodes:  map[string]int{},
	}

	for _, command := range def.Commands {
		command = withOpcode(command)
		e.byKey[command.Key] = command
		e.keys = append(e.keys, command.Key)

		for i, r := range command.Opcodes {
			if r.Default {
				e.fallback = command
				continue
			}
			if i == 0 {
				e.opcodes[command.Key] = r.Begin
			}
			for op := r.Begin; op < r.End; op++ {
				e.commands[op] = command
			}
		}
	}

	if e.fallback == nil {
		e.fallback = withOpcode(&schema.Definition{
			Type:  schema.TypeCommand,
			Key:   defaultCommandKey,
			Name:  "Default Command",
			Range: byterange.WithLength(0, 1),
		})
	}
	if _, ok := e.byKey[defaultCommandKey]; !ok {
		e.byKey[defaultCommandKey] = e.fallback
	}
	return e
}

// withOpcode returns a copy of the command definition that contains an
// opcode field. Two byte opcodes use a 16 bit mask.
func withOpcode(def *schema.Definition) *schema.Definition {
	def = def.Clone()
	def.Type = schema.TypeCommand
	if def.Range.IsEmpty() {
		def.Range = byterange.WithLength(def.Range.Begin, 1)
	}
	if def.Child(opcodeKey) != nil {
		return def
	}

	opcode := &schema.Definition{
		Type:    schema.TypeProperty,
		Key:     opcodeKey,
		Name:    "Opcode",
		Range:   byterange.WithLength(0, 1),
		Mask:    0xFF,
		HasMask: true,
		Invalid: schema.Condition{Value: true},
	}
	if len(def.Opcodes) > 0 && !def.Opcodes[0].Default && def.Opcodes[0].Begin > 0xFF {
		opcode.Mask = 0xFFFF
		opcode.Range = byterange.WithLength(0, 2)
	}
	def.Assembly = append([]*schema.Definition{opcode}, def.Assembly...)
	return def
}

// Key returns the key of the encoding.
func (e *ScriptEncoding) Key() string {
	return e.key
}

// Name returns the display name of the encoding.
func (e *ScriptEncoding) Name() string {
	if e.name == "" {
		return e.key
	}
	return e.name
}

// Delegate returns the delegate of the encoding.
func (e *ScriptEncoding) Delegate() ScriptDelegate {
	return e.delegate
}

// Keys returns the command keys in declaration order.
func (e *ScriptEncoding) Keys() []string {
	return e.keys
}

// Command returns the command definition with the given key.
func (e *ScriptEncoding) Command(key string) *schema.Definition {
	return e.byKey[key]
}

// Opcode returns the first opcode of the command with the given key.
func (e *ScriptEncoding) Opcode(key string) (int, bool) {
	op, ok := e.opcodes[key]
	return op, ok
}

// Opcodes returns all opcodes that have a command, sorted.
func (e *ScriptEncoding) Opcodes() []int {
	ops := make([]int, 0, len(e.commands))
	for op := range e.commands {
		ops = append(ops, op)
	}
	sort.Ints(ops)
	return ops
}

// Lookup returns the command definition for the data at the start of the
// slice: a single byte opcode, a two byte opcode or the default command.
func (e *ScriptEncoding) Lookup(data []byte) *schema.Definition {
	if len(data) == 0 {
		return e.fallback
	}
	if def, ok := e.commands[int(data[0])]; ok {
		return def
	}
	if len(data) > 1 {
		if def, ok := e.commands[int(data[0])<<8|int(data[1])]; ok {
			return def
		}
	}
	return e.fallback
}

// applyVariableLength evaluates the variable length expression of the
// command and decodes the command again if its length changed.
func (c *Command) applyVariableLength(data []byte) {
	source := c.def.VariableLength
	if source == "" {
		return
	}

	e, err := c.doc.expression(source)
	if err != nil {
		return
	}
	length, err := e.Eval(c.resolver())
	if err != nil {
		c.doc.logger.Warn("Evaluating command length failed",
			log.String("command", c.Path()),
			log.String("expression", source),
			log.Err(err))
		return
	}

	length = max(length, 1)
	if int(length) == c.rng.Length() {
		return
	}
	c.rng = byterange.WithLength(c.rng.Begin, int(length))
	c.Struct.disassemble(data)
}

// addScriptPlaceholders adds a placeholder to the referenced script for
// every field of the command that points into a script.
func (c *Command) addScriptPlaceholders() {
	for _, child := range c.Children() {
		f, ok := child.(*Field)
		if !ok || f.def.Script == "" {
			continue
		}
		script, err := c.doc.script(f.def.Script)
		if err != nil {
			continue
		}
		script.AddPlaceholder(f, int(f.Value()), "", "")
	}
}

// resolveDelegates returns the delegate for every script encoding.
func resolveDelegates(defs []*schema.ScriptEncoding, registry map[string]ScriptDelegate) map[string]ScriptDelegate {
	delegates := make(map[string]ScriptDelegate, len(defs))
	for _, def := range defs {
		if d, ok := registry[def.Delegate]; ok && def.Delegate != "" {
			delegates[def.Key] = d
			continue
		}
		if d, ok := registry[def.Key]; ok {
			delegates[def.Key] = d
		}
	}
	return delegates
}
