package rom

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/romschema/internal/expr"
)

const (
	stringTablePrefix = "stringTable"
	parentKey         = "parent"
	thisKey           = "this"
	valueKey          = "value"
	lengthKey         = "length"
	indexKey          = "i"
)

// segment is one dotted part of a link with its optional subscripts, for
// example "items[i+1]".
type segment struct {
	key        string
	subscripts []string
}

// parseLink splits a link like "a.b[2].c[x.y+1]" into segments. Dots inside
// of brackets belong to the subscript expression.
func parseLink(link string) ([]segment, error) {
	var segments []segment
	var current segment
	var key strings.Builder

	for i := 0; i < len(link); i++ {
		switch c := link[i]; c {
		case '.':
			current.key = key.String()
			if current.key == "" && len(current.subscripts) == 0 {
				return nil, fmt.Errorf("empty segment at position %d", i)
			}
			segments = append(segments, current)
			current = segment{}
			key.Reset()

		case '[':
			depth := 1
			j := i + 1
			for ; j < len(link) && depth > 0; j++ {
				switch link[j] {
				case '[':
					depth++
				case ']':
					depth--
				}
			}
			if depth != 0 {
				return nil, fmt.Errorf("unterminated subscript at position %d", i)
			}
			sub := strings.TrimSpace(link[i+1 : j-1])
			if sub == "" {
				return nil, fmt.Errorf("empty subscript at position %d", i)
			}
			current.subscripts = append(current.subscripts, sub)
			i = j - 1

		case ']':
			return nil, fmt.Errorf("unexpected ']' at position %d", i)

		default:
			if len(current.subscripts) > 0 {
				return nil, fmt.Errorf("unexpected '%c' after subscript at position %d", c, i)
			}
			key.WriteByte(c)
		}
	}

	current.key = key.String()
	if current.key == "" && len(current.subscripts) == 0 {
		return nil, errors.New("empty segment at end of link")
	}
	return append(segments, current), nil
}

// Resolve returns the node that the link points to. Links are dotted paths
// starting at the document like "monsters[3].name". Subscripts are
// expressions evaluated relative to the object they index. Unresolvable
// links return ErrInvalidLink.
func (d *Document) Resolve(link string) (Node, error) {
	target, err := d.lookup(link)
	if err != nil {
		return nil, err
	}
	n, ok := target.(Node)
	if !ok {
		d.logger.Warn("Invalid link", log.String("link", link))
		return nil, fmt.Errorf("link '%s' is not an object: %w", link, ErrInvalidLink)
	}
	return n, nil
}

// ResolveText returns the display string of a link: string table entries,
// formatted texts and display values of fields.
func (d *Document) ResolveText(link string) (string, error) {
	target, err := d.lookup(link)
	if err != nil {
		return "", err
	}

	switch v := target.(type) {
	case string:
		return v, nil
	case *Text:
		return v.FormattedText(), nil
	case *Field:
		return v.DisplayValue(), nil
	default:
		return "", fmt.Errorf("link '%s' has no text: %w", link, ErrInvalidLink)
	}
}

// lookup resolves a link to a node or, for string table links like
// "stringTable.items[3]", to a formatted string.
func (d *Document) lookup(link string) (any, error) {
	segments, err := parseLink(link)
	if err != nil {
		d.logger.Warn("Invalid link", log.String("link", link), log.Err(err))
		return nil, fmt.Errorf("parsing link '%s': %w: %w", link, ErrInvalidLink, err)
	}

	var target any
	if segments[0].key == stringTablePrefix && len(segments) == 2 {
		target, err = d.lookupString(segments[1])
	} else {
		target, err = d.walk(d, segments)
	}
	if err != nil {
		d.logger.Warn("Invalid link", log.String("link", link), log.Err(err))
		return nil, fmt.Errorf("resolving link '%s': %w: %w", link, ErrInvalidLink, err)
	}
	return target, nil
}

func (d *Document) lookupString(seg segment) (any, error) {
	table := d.StringTable(seg.key)
	if table == nil {
		return nil, fmt.Errorf("string table '%s': %w", seg.key, ErrNotFound)
	}
	if len(seg.subscripts) != 1 {
		return table, nil
	}
	i, err := d.subscript(seg.subscripts[0], nil)
	if err != nil {
		return nil, err
	}
	return table.FormattedString(int(i), 0), nil
}

// walk follows the segments starting at the given node.
func (d *Document) walk(start Node, segments []segment) (Node, error) {
	current := start
	for _, seg := range segments {
		if seg.key != "" {
			next := child(current, seg.key)
			if next == nil {
				return nil, fmt.Errorf("'%s' has no child '%s': %w", current.Path(), seg.key, ErrNotFound)
			}
			current = next
		}

		for _, sub := range seg.subscripts {
			i, err := d.subscript(sub, current)
			if err != nil {
				return nil, err
			}
			next := item(current, int(i))
			if next == nil {
				return nil, fmt.Errorf("'%s' has no item %d: %w", current.Path(), i, ErrNotFound)
			}
			current = next
		}
	}
	return current, nil
}

// subscript evaluates an index expression relative to the indexed object.
func (d *Document) subscript(source string, n Node) (int64, error) {
	if i, err := strconv.ParseInt(source, 0, 64); err == nil {
		return i, nil
	}
	e, err := d.expression(source)
	if err != nil {
		return 0, err
	}
	var resolver expr.Resolver
	if n != nil {
		resolver = nodeResolver{node: n}
	}
	i, err := e.Eval(resolver)
	if err != nil {
		return 0, fmt.Errorf("evaluating subscript: %w", err)
	}
	return i, nil
}

// child returns the child of a node with children, the parent for "parent"
// and the node itself for "this".
func child(n Node, key string) Node {
	switch key {
	case parentKey:
		return n.Parent()
	case thisKey:
		return n
	}

	switch v := n.(type) {
	case *Document:
		return v.Child(key)
	case *Struct:
		return v.Child(key)
	case *Command:
		return v.Child(key)
	case *Collection:
		if key == "pointers" || key == "pointerTable" {
			if p := v.PointerTable(); p != nil {
				return p
			}
		}
	case *Script:
		if c := v.Label(key); c != nil {
			return c
		}
	}
	return nil
}

// item returns the item at index i of a collection or script.
func item(n Node, i int) Node {
	switch v := n.(type) {
	case *Collection:
		return v.Item(i)
	case *Script:
		if c := v.Command(i); c != nil {
			return c
		}
	}
	return nil
}

// nodeResolver resolves names of expressions relative to a node. A name is
// looked up starting at the node, then at each of its ancestors and finally
// at the document. The name "i" is the index of the enclosing collection
// item. A trailing "value" or "length" selects the field value or the
// item count explicitly.
type nodeResolver struct {
	node Node
}

// Resolve returns the value of the name.
func (r nodeResolver) Resolve(name string) (int64, bool) {
	if r.node == nil {
		return 0, false
	}
	if name == indexKey {
		return int64(r.node.base().enclosingIndex()), true
	}

	segments, err := parseLink(name)
	if err != nil {
		return 0, false
	}
	property := ""
	if last := segments[len(segments)-1]; len(segments) > 1 && len(last.subscripts) == 0 &&
		(last.key == valueKey || last.key == lengthKey) {
		property = last.key
		segments = segments[:len(segments)-1]
	}

	doc := r.node.Document()
	for current := r.node; current != nil; current = current.Parent() {
		target, err := doc.walk(current, segments)
		if err != nil {
			continue
		}
		if v, ok := numericValue(target, property); ok {
			return v, true
		}
	}
	return 0, false
}

// numericValue returns the value of a field or the length of a collection.
func numericValue(n Node, property string) (int64, bool) {
	switch v := n.(type) {
	case *Field:
		if property == lengthKey {
			return int64(len(v.Data())), true
		}
		return v.Value(), true
	case *Collection:
		return int64(v.Len()), true
	case *Script:
		return int64(v.Len()), true
	default:
		if property == lengthKey {
			return int64(len(n.Data())), true
		}
		return 0, false
	}
}
