package rom

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/retroenv/romschema/internal/schema"
)

const (
	defaultString = "String %i"
	invalidString = "Invalid String"
	invalidLink   = "Invalid Link"
	ellipsis      = "…"
)

// StringTable is a table of names. Strings can contain %i which is
// replaced by their index and <link> placeholders that are replaced by the
// text of the linked node.
type StringTable struct {
	key  string
	name string
	doc  *Document

	strings map[int]string
	length  int
	cache   map[int]string
	linked  []Node
}

func newStringTable(doc *Document, def *schema.StringTable) *StringTable {
	t := &StringTable{
		key:     def.Key,
		name:    def.Name,
		doc:     doc,
		strings: make(map[int]string, len(def.Strings)),
		cache:   map[int]string{},
	}

	for i, s := range def.Strings {
		t.strings[i] = s
		t.length = max(t.length, i+1)
	}

	fallback := def.Default
	if fallback == "" {
		fallback = defaultString
	}
	for i := range def.Length {
		if _, ok := t.strings[i]; !ok {
			t.strings[i] = fallback
		}
	}
	t.length = max(t.length, def.Length)
	return t
}

// Key returns the key of the table.
func (t *StringTable) Key() string {
	return t.key
}

// Name returns the display name of the table.
func (t *StringTable) Name() string {
	if t.name == "" {
		return t.key
	}
	return t.name
}

// Len returns the number of strings including gaps.
func (t *StringTable) Len() int {
	return t.length
}

// String returns the unformatted string at index i.
func (t *StringTable) String(i int) (string, bool) {
	s, ok := t.strings[i]
	return s, ok
}

// FormattedString returns the string at index i with the index and links
// replaced. Strings longer than maxLength characters are truncated if
// maxLength is not zero.
func (t *StringTable) FormattedString(i, maxLength int) string {
	s, ok := t.cache[i]
	if !ok {
		raw, exists := t.strings[i]
		if !exists {
			return invalidString
		}
		s = t.format(strings.ReplaceAll(raw, "%i", strconv.Itoa(i)))
		t.cache[i] = s
	}

	if maxLength > 0 && utf8.RuneCountInString(s) > maxLength {
		runes := []rune(s)
		s = string(runes[:maxLength]) + ellipsis
	}
	return s
}

// format replaces all <link> placeholders. Linked nodes are observed so
// that a change of them resets the cached strings.
func (t *StringTable) format(s string) string {
	var b strings.Builder
	for {
		start := strings.IndexByte(s, '<')
		if start < 0 {
			break
		}
		end := strings.IndexByte(s[start:], '>')
		if end < 0 {
			break
		}
		end += start

		b.WriteString(s[:start])
		b.WriteString(t.resolveLink(s[start+1 : end]))
		s = s[end+1:]
	}
	b.WriteString(s)
	return b.String()
}

func (t *StringTable) resolveLink(link string) string {
	target, err := t.doc.lookup(link)
	if err != nil {
		return invalidLink
	}

	switch v := target.(type) {
	case string:
		return v
	case *Text:
		t.observe(v)
		return v.FormattedText()
	case *Field:
		t.observe(v)
		return v.DisplayValue()
	default:
		return invalidLink
	}
}

func (t *StringTable) observe(n Node) {
	n.AddObserver(t, t.Reset)
	for _, linked := range t.linked {
		if linked == n {
			return
		}
	}
	t.linked = append(t.linked, n)
}

// Reset clears the cached strings and stops observing linked nodes.
func (t *StringTable) Reset() {
	for _, n := range t.linked {
		n.RemoveObserver(t)
	}
	t.linked = nil
	t.cache = map[int]string{}
}
