package rom

import (
	"bytes"

	"github.com/retroenv/romschema/internal/action"
	"github.com/retroenv/romschema/internal/byterange"
	"github.com/retroenv/romschema/internal/schema"
	"github.com/retroenv/romschema/internal/text"
)

// characterNamesTable is the string table used to format \charNN escapes.
const characterNamesTable = "characterNames"

// Text is a string stored with a text encoding.
type Text struct {
	node

	text string
}

func newText(doc *Document, def *schema.Definition, parent Node) *Text {
	t := &Text{}
	t.init(doc, def, parent, t)
	return t
}

// Kind returns the variant of the node.
func (t *Text) Kind() Kind {
	return KindText
}

// Text returns the decoded text including escape codes.
func (t *Text) Text() string {
	return t.text
}

// Encoding returns the text encoding or nil if the text has none.
func (t *Text) Encoding() *text.Encoding {
	return t.doc.itemEncoding(t.def)
}

// FormattedText returns the text with escape codes converted to a readable
// form.
func (t *Text) FormattedText() string {
	encoding := t.Encoding()
	if encoding == nil {
		return t.text
	}
	return encoding.Format(t.text, t.doc.characterName)
}

func (t *Text) external() Node {
	if t.def.External == "" {
		return nil
	}
	target, err := t.doc.Resolve(t.substituteIndex(t.def.External))
	if err != nil {
		return nil
	}
	return target
}

func (t *Text) disassemble(data []byte) {
	if target := t.external(); target != nil {
		data = target.Data()
	}
	if t.rng.IsEmpty() {
		t.rng = byterange.New(0, len(data))
	}
	t.loadRange(data)
	t.text = t.decode(t.data)
}

func (t *Text) decode(data []byte) string {
	if encoding := t.Encoding(); encoding != nil {
		return encoding.Decode(data)
	}
	return string(data)
}

func (t *Text) encode(s string) []byte {
	if encoding := t.Encoding(); encoding != nil {
		return encoding.Encode(s)
	}
	return []byte(s)
}

func (t *Text) assemble(dst []byte) {
	if dst != nil {
		if target := t.external(); target != nil {
			dst = target.Data()
		}
	}
	t.assembleInto(dst)
}

// MarkDirty marks the text, its ancestors and its external node as
// modified.
func (t *Text) MarkDirty() {
	if target := t.external(); target != nil {
		target.MarkDirty()
	}
	t.node.MarkDirty()
}

// SetText changes the text as an undoable action. The text is normalized by
// encoding and decoding it, if neither the text nor the encoded bytes change
// only the observers are notified.
func (t *Text) SetText(s string) {
	data := t.encode(s)
	s = t.decode(data)

	oldText := t.text
	oldData := t.data
	if s == oldText || bytes.Equal(data, oldData) {
		t.notify()
		return
	}

	redo := func() {
		t.apply(s, data)
	}
	undo := func() {
		t.apply(oldText, oldData)
	}
	t.doc.do(action.New(t, "Set "+t.name, undo, redo))
}

func (t *Text) apply(s string, data []byte) {
	t.text = s
	t.data = data
	t.MarkDirty()
	t.notify()

	if target := t.external(); target != nil {
		t.assemble(target.Data())
		target.base().notify()
	}
}
