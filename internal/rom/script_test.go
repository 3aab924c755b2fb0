package rom

import (
	"testing"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
)

const scriptDefinition = `
scriptEncoding:
  event:
    command:
      a:
        name: Command A
        opcode: 0x01
        length: 2
      jump:
        name: Jump
        opcode: 0x02
        length: 2
        category: control
        assembly:
          target:
            type: property
            begin: 1
            script: events
      end:
        name: End
        opcode: 0xFF
      unknown:
        opcode: default
assembly:
  events:
    type: script
    range: 0x0-0x5
    encoding: event
    label:
      4: finish
`

func TestScriptDisassemble(t *testing.T) {
	const definition = `
scriptEncoding:
  event:
    command:
      a:
        opcode: 0x01
        length: 2
      end:
        opcode: 0xFF
assembly:
  events:
    type: script
    range: 0x0-0x3
    encoding: event
`
	doc := newTestDocument(t, definition, []byte{0x01, 0x02, 0xFF})
	script := doc.Script("events")
	assert.NotNil(t, script)
	assert.Equal(t, 2, script.Len())

	end := script.Command(1)
	assert.Equal(t, 2, end.Range().Begin)
	assert.Equal(t, "end", script.CommandAt(2).Key())
	assert.Equal(t, "a", script.CommandAt(0).Key())
	assert.Equal(t, "00/0002", end.Label())
	assert.Equal(t, int64(0xFF), end.Opcode())
	assert.Equal(t, "Command FF", end.Description())
	assert.Equal(t, "events.event.end", end.Path())
}

func TestScriptReferences(t *testing.T) {
	doc := newTestDocument(t, scriptDefinition, []byte{0x02, 0x04, 0x01, 0x07, 0xFF, 0x00, 0x00, 0x00})
	script := doc.Script("events")
	assert.Equal(t, 3, script.Len())

	jump := script.Command(0)
	assert.Equal(t, "control", jump.Category())
	end := script.CommandAt(4)
	assert.Equal(t, "finish", end.Label())
	assert.True(t, end.IsReferenced())
	assert.True(t, script.IsReferenced(4))
	assert.Equal(t, "finish", script.LabelAt(4))
	assert.True(t, end == script.Label("finish"))
	assert.Equal(t, invalidCommand, script.LabelAt(3))

	jump.Field("target").SetValue(2)
	assert.False(t, end.IsReferenced())
	assert.True(t, script.CommandAt(2).IsReferenced())
}

func TestScriptOffsetStability(t *testing.T) {
	doc := newTestDocument(t, scriptDefinition, []byte{0x02, 0x04, 0x01, 0x07, 0xFF, 0x00, 0x00, 0x00})
	script := doc.Script("events")
	jump := script.Command(0)
	end := script.CommandAt(4)

	blank := script.BlankCommand("a")
	assert.NotNil(t, blank)
	assert.Equal(t, []byte{0x01, 0x00}, blank.Data())
	assert.True(t, blank.Ref() >= 5)

	script.InsertCommand(blank, 2)
	assert.Equal(t, 4, script.Len())
	assert.True(t, blank == script.Command(1))

	data := doc.Assemble()
	assert.Equal(t, []byte{0x02, 0x06, 0x01, 0x00, 0x01, 0x07, 0xFF}, data[:7])
	assert.Equal(t, int64(6), jump.Field("target").Value())
	assert.True(t, end == script.CommandAt(6))
	assert.Equal(t, "finish", end.Label())

	doc.Undo()
	data = doc.Assemble()
	assert.Equal(t, []byte{0x02, 0x04, 0x01, 0x07, 0xFF}, data[:5])
	assert.Equal(t, int64(4), jump.Field("target").Value())
}

func TestScriptRemoveCommand(t *testing.T) {
	doc := newTestDocument(t, scriptDefinition, []byte{0x02, 0x04, 0x01, 0x07, 0xFF})
	script := doc.Script("events")

	removed := script.RemoveCommand(script.Command(1))
	assert.NotNil(t, removed)
	assert.Nil(t, script.RemoveCommand(removed))
	assert.Equal(t, 2, script.Len())

	data := doc.Assemble()
	assert.Equal(t, []byte{0x02, 0x02, 0xFF}, data[:3])

	doc.Undo()
	data = doc.Assemble()
	assert.Equal(t, []byte{0x02, 0x04, 0x01, 0x07, 0xFF}, data)
}

func TestScriptDefaultCommand(t *testing.T) {
	doc := newTestDocument(t, scriptDefinition, []byte{0x33, 0x01, 0x00, 0xFF, 0x00})
	script := doc.Script("events")
	assert.Equal(t, "unknown", script.Command(0).Key())
	assert.Equal(t, 1, script.Command(0).Range().Length())
	assert.Equal(t, 1, script.Command(1).Range().Begin)

	c := script.BlankCommand("")
	assert.NotNil(t, c)
	assert.Equal(t, "unknown", c.Key())
	assert.Nil(t, script.BlankCommand("missing"))
	assert.Nil(t, script.BlankCommand("other.a"))
}

type countingDelegate struct {
	DefaultDelegate

	initialized  int
	disassembled int
}

func (d *countingDelegate) InitScript(s *Script) {
	d.initialized++
	s.AddPlaceholder(nil, 2, "", "entry")
}

func (d *countingDelegate) DidDisassemble(c *Command, data []byte) {
	d.disassembled++
	d.DefaultDelegate.DidDisassemble(c, data)
}

func (d *countingDelegate) Description(c *Command) string {
	return c.Name()
}

func TestScriptDelegate(t *testing.T) {
	delegate := &countingDelegate{}
	def := mustParse(t, scriptDefinition)
	doc, err := New(def, []byte{0x01, 0x00, 0x01, 0x00, 0xFF}, Options{
		Logger:    log.NewTestLogger(t),
		Delegates: map[string]ScriptDelegate{"event": delegate},
	})
	assert.NoError(t, err)

	script := doc.Script("events")
	assert.Equal(t, 3, script.Len())
	assert.Equal(t, 1, delegate.initialized)
	assert.Equal(t, 3, delegate.disassembled)
	assert.Equal(t, "entry", script.Command(1).Label())
	assert.Equal(t, "Command A", script.Command(1).Description())
}

func TestScriptVariableLength(t *testing.T) {
	const definition = `
scriptEncoding:
  event:
    command:
      text:
        opcode: 0x10
        length: 2
        variableLength: "count + 2"
        assembly:
          count:
            type: property
            begin: 1
      end:
        opcode: 0xFF
assembly:
  events:
    type: script
    range: 0x0-0x6
    encoding: event
`
	doc := newTestDocument(t, definition, []byte{0x10, 0x03, 0xAA, 0xBB, 0xCC, 0xFF})
	script := doc.Script("events")
	assert.Equal(t, 2, script.Len())
	assert.Equal(t, 5, script.Command(0).Range().Length())
	assert.Equal(t, 5, script.Command(1).Range().Begin)
}
