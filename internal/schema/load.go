package schema

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/retroenv/romschema/internal/byterange"
	"gopkg.in/yaml.v3"
)

var errExpectedMapping = errors.New("expected a mapping")

// LoadFile loads a schema from a YAML or JSON file.
func LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema file '%s': %w", path, err)
	}
	return Parse(data)
}

// Load loads a schema from a reader.
func Load(r io.Reader) (*Definition, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}
	return Parse(data)
}

// Parse parses a schema document. JSON documents are accepted as they are
// valid YAML.
func Parse(data []byte) (*Definition, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing schema: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.New("schema document is empty")
	}

	d, err := decodeDefinition(doc.Content[0], "", TypeROM)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// pairs returns the key value pairs of a mapping node in document order.
func pairs(n *yaml.Node) ([][2]*yaml.Node, error) {
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: %w", n.Line, errExpectedMapping)
	}
	result := make([][2]*yaml.Node, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		result = append(result, [2]*yaml.Node{n.Content[i], n.Content[i+1]})
	}
	return result, nil
}

func fieldMap(n *yaml.Node) (map[string]*yaml.Node, error) {
	p, err := pairs(n)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]*yaml.Node, len(p))
	for _, kv := range p {
		fields[kv[0].Value] = kv[1]
	}
	return fields, nil
}

//nolint:funlen,cyclop,gocognit // mapping every schema attribute is long but flat
func decodeDefinition(n *yaml.Node, key string, defaultType Type) (*Definition, error) {
	fields, err := fieldMap(n)
	if err != nil {
		return nil, fmt.Errorf("decoding '%s': %w", key, err)
	}

	d := &Definition{
		Type:       defaultType,
		Key:        key,
		Multiplier: 1,
	}
	if v, ok := fields["type"]; ok {
		d.Type = Type(v.Value)
	}
	if v, ok := fields["key"]; ok && key == "" {
		d.Key = v.Value
	}
	if v, ok := fields["name"]; ok {
		d.Name = v.Value
	}

	wrap := func(attribute string, err error) error {
		return fmt.Errorf("decoding '%s' attribute '%s' (line %d): %w", d.Key, attribute, fields[attribute].Line, err)
	}

	if err := decodeRange(d, fields); err != nil {
		return nil, fmt.Errorf("decoding '%s' range: %w", d.Key, err)
	}

	for attribute, v := range fields {
		var err error

		switch attribute {
		case "format":
			d.Format, err = stringList(v)
		case "encoding":
			d.Encoding, err = stringList(v)
		case "invalid":
			d.Invalid, err = condition(v)
		case "hidden":
			d.Hidden, err = condition(v)
		case "disabled":
			d.Disabled, err = condition(v)
		case "mask":
			d.Mask, err = int64Value(v)
			d.HasMask = true
		case "offset":
			d.Offset, err = intValue(v)
		case "multiplier":
			d.Multiplier, err = intValue(v)
		case "bool":
			d.Bool, err = boolValue(v)
		case "flag":
			d.Flag, err = boolValue(v)
		case "signed":
			d.Signed, err = boolValue(v)
		case "isSequential":
			d.IsSequential, err = boolValue(v)
		case "autoBank":
			d.AutoBank, err = boolValue(v)
		case "special":
			d.Special, err = numberedStrings(v)
		case "min":
			d.Min, err = intPointer(v)
		case "max":
			d.Max, err = intPointer(v)
		case "link":
			d.Link = v.Value
		case "script":
			d.Script = v.Value
		case "external":
			d.External = v.Value
		case "category":
			d.Category = v.Value
		case "variableLength":
			d.VariableLength = v.Value
		case "mode":
			d.Mode = v.Value
		case "system":
			d.System = v.Value
		case "pointerLength":
			d.PointerLength, err = intValue(v)
		case "pad":
			d.Pad, err = intPointer(v)
		case "crc32":
			var crc int64
			crc, err = int64Value(v)
			d.CRC32 = uint32(crc)
			d.HasCRC32 = true
		case "terminator":
			d.Terminator, err = terminator(v)
		case "array":
			d.Array, err = arrayBounds(v)
		case "label":
			d.Labels, err = labels(v)
		case "opcode":
			d.Opcodes, err = opcodes(v)
		case "assembly":
			err = decodeAssembly(d, v)
		case "pointerTable":
			d.PointerTable, err = decodeDefinition(v, d.Key+"PointerTable", TypePointerTable)
		case "charTable":
			err = decodeCharTables(d, v)
		case "textEncoding":
			d.TextEncodings, err = textEncodings(v)
		case "stringTable":
			err = decodeStringTables(d, v)
		case "scriptEncoding":
			d.ScriptEncodings, err = scriptEncodings(v)
		}

		if err != nil {
			return nil, wrap(attribute, err)
		}
	}

	if d.Multiplier == 0 {
		d.Multiplier = 1
	}
	return d, nil
}

// decodeRange combines the range, begin, end and length attributes.
func decodeRange(d *Definition, fields map[string]*yaml.Node) error {
	if v, ok := fields["range"]; ok {
		r, err := byterange.Parse(v.Value)
		if err != nil {
			return err
		}
		d.Range = r
	}
	if v, ok := fields["begin"]; ok {
		begin, err := intValue(v)
		if err != nil {
			return err
		}
		d.Range = byterange.New(begin, begin+1)
	}
	if v, ok := fields["end"]; ok {
		end, err := intValue(v)
		if err != nil {
			return err
		}
		d.Range.End = end
		d.ExplicitLength = true
	} else if v, ok := fields["length"]; ok {
		length, err := intValue(v)
		if err != nil {
			return err
		}
		d.Range.End = d.Range.Begin + length
		d.ExplicitLength = true
	}
	return nil
}

func decodeAssembly(d *Definition, v *yaml.Node) error {
	switch d.Type {
	case TypeArray, TypePointerTable:
		item, err := decodeDefinition(v, d.Key, TypeAssembly)
		if err != nil {
			return err
		}
		if item.Name == "" {
			item.Name = d.Name
		}
		d.Item = item
		return nil

	default:
		p, err := pairs(v)
		if err != nil {
			return err
		}
		for _, kv := range p {
			child, err := decodeDefinition(kv[1], kv[0].Value, TypeAssembly)
			if err != nil {
				return err
			}
			d.Assembly = append(d.Assembly, child)
		}
		return nil
	}
}

func decodeCharTables(d *Definition, v *yaml.Node) error {
	p, err := pairs(v)
	if err != nil {
		return err
	}
	for _, kv := range p {
		fields, err := fieldMap(kv[1])
		if err != nil {
			return err
		}
		table := &CharTable{Key: kv[0].Value, Chars: map[int]string{}}
		if chars, ok := fields["char"]; ok {
			if table.Chars, err = numberedStrings(chars); err != nil {
				return fmt.Errorf("char table '%s': %w", table.Key, err)
			}
		}
		d.CharTables = append(d.CharTables, table)
	}
	return nil
}

func textEncodings(v *yaml.Node) ([]*TextEncoding, error) {
	p, err := pairs(v)
	if err != nil {
		return nil, err
	}
	var result []*TextEncoding
	for _, kv := range p {
		fields, err := fieldMap(kv[1])
		if err != nil {
			return nil, err
		}
		encoding := &TextEncoding{Key: kv[0].Value}
		if tables, ok := fields["charTable"]; ok {
			if encoding.CharTables, err = stringList(tables); err != nil {
				return nil, fmt.Errorf("text encoding '%s': %w", encoding.Key, err)
			}
		}
		result = append(result, encoding)
	}
	return result, nil
}

// decodeStringTables handles string table references of objects, inline
// string tables of objects and the string table list of the rom.
func decodeStringTables(d *Definition, v *yaml.Node) error {
	if v.Kind == yaml.ScalarNode {
		d.StringTable = v.Value
		return nil
	}

	if d.Type != TypeROM {
		table, err := stringTable(d.Key, v)
		if err != nil {
			return err
		}
		d.StringTable = d.Key
		d.StringTables = append(d.StringTables, table)
		return nil
	}

	p, err := pairs(v)
	if err != nil {
		return err
	}
	for _, kv := range p {
		table, err := stringTable(kv[0].Value, kv[1])
		if err != nil {
			return err
		}
		d.StringTables = append(d.StringTables, table)
	}
	return nil
}

func stringTable(key string, v *yaml.Node) (*StringTable, error) {
	fields, err := fieldMap(v)
	if err != nil {
		return nil, err
	}
	table := &StringTable{Key: key, Strings: map[int]string{}}
	if n, ok := fields["name"]; ok {
		table.Name = n.Value
	}
	if n, ok := fields["default"]; ok {
		table.Default = n.Value
	}
	if n, ok := fields["length"]; ok {
		if table.Length, err = intValue(n); err != nil {
			return nil, fmt.Errorf("string table '%s' length: %w", key, err)
		}
	}
	if n, ok := fields["string"]; ok {
		if table.Strings, err = rangedStrings(n); err != nil {
			return nil, fmt.Errorf("string table '%s': %w", key, err)
		}
	}
	return table, nil
}

func scriptEncodings(v *yaml.Node) ([]*ScriptEncoding, error) {
	p, err := pairs(v)
	if err != nil {
		return nil, err
	}
	var result []*ScriptEncoding
	for _, kv := range p {
		fields, err := fieldMap(kv[1])
		if err != nil {
			return nil, err
		}
		encoding := &ScriptEncoding{Key: kv[0].Value}
		if n, ok := fields["name"]; ok {
			encoding.Name = n.Value
		}
		if n, ok := fields["delegate"]; ok {
			encoding.Delegate = n.Value
		}
		if n, ok := fields["command"]; ok {
			commands, err := pairs(n)
			if err != nil {
				return nil, fmt.Errorf("script encoding '%s': %w", encoding.Key, err)
			}
			for _, c := range commands {
				command, err := decodeDefinition(c[1], c[0].Value, TypeCommand)
				if err != nil {
					return nil, fmt.Errorf("script encoding '%s': %w", encoding.Key, err)
				}
				encoding.Commands = append(encoding.Commands, command)
			}
		}
		result = append(result, encoding)
	}
	return result, nil
}

func stringList(v *yaml.Node) ([]string, error) {
	switch v.Kind {
	case yaml.ScalarNode:
		if v.Value == "" {
			return nil, nil
		}
		return []string{v.Value}, nil
	case yaml.SequenceNode:
		result := make([]string, 0, len(v.Content))
		for _, item := range v.Content {
			if item.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: expected a string", item.Line)
			}
			result = append(result, item.Value)
		}
		return result, nil
	default:
		return nil, fmt.Errorf("line %d: expected a string or list", v.Line)
	}
}

func condition(v *yaml.Node) (Condition, error) {
	if v.Kind != yaml.ScalarNode {
		return Condition{}, fmt.Errorf("line %d: expected a boolean or expression", v.Line)
	}
	if v.Tag == "!!bool" {
		b, err := boolValue(v)
		return Condition{Value: b}, err
	}
	return Condition{Expr: v.Value}, nil
}

func boolValue(v *yaml.Node) (bool, error) {
	var b bool
	if err := v.Decode(&b); err != nil {
		return false, fmt.Errorf("decoding boolean: %w", err)
	}
	return b, nil
}

// int64Value decodes numbers that are stored as YAML integers or as strings
// like "0x7FFF".
func int64Value(v *yaml.Node) (int64, error) {
	return parseNumber(v.Value)
}

func parseNumber(s string) (int64, error) {
	s = strings.TrimSpace(s)
	i, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing number '%s': %w", s, err)
	}
	return i, nil
}

func intValue(v *yaml.Node) (int, error) {
	i, err := int64Value(v)
	return int(i), err
}

func intPointer(v *yaml.Node) (*int, error) {
	i, err := intValue(v)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func numberedStrings(v *yaml.Node) (map[int]string, error) {
	p, err := pairs(v)
	if err != nil {
		return nil, err
	}
	result := make(map[int]string, len(p))
	for _, kv := range p {
		i, err := intValue(kv[0])
		if err != nil {
			return nil, err
		}
		result[i] = kv[1].Value
	}
	return result, nil
}

// rangedStrings decodes a mapping whose keys are numbers or "begin-end"
// ranges that assign the same string to multiple indices.
func rangedStrings(v *yaml.Node) (map[int]string, error) {
	p, err := pairs(v)
	if err != nil {
		return nil, err
	}
	result := make(map[int]string, len(p))
	for _, kv := range p {
		key := kv[0].Value
		if isRange(key) {
			r, err := byterange.Parse(key)
			if err != nil {
				return nil, err
			}
			for i := r.Begin; i < r.End; i++ {
				result[i] = kv[1].Value
			}
			continue
		}
		i, err := parseNumber(key)
		if err != nil {
			return nil, err
		}
		result[int(i)] = kv[1].Value
	}
	return result, nil
}

func terminator(v *yaml.Node) (*Terminator, error) {
	if v.Value == `\0` {
		return &Terminator{Text: true}, nil
	}
	b, err := int64Value(v)
	if err != nil {
		return nil, err
	}
	if b < 0 || b > 0xFF {
		return nil, fmt.Errorf("terminator 0x%X is not a byte", b)
	}
	return &Terminator{Byte: byte(b)}, nil
}

func arrayBounds(v *yaml.Node) (ArrayBounds, error) {
	fields, err := fieldMap(v)
	if err != nil {
		return ArrayBounds{}, err
	}
	var bounds ArrayBounds
	for name, target := range map[string]*int{"length": &bounds.Length, "min": &bounds.Min, "max": &bounds.Max} {
		n, ok := fields[name]
		if !ok {
			continue
		}
		if *target, err = intValue(n); err != nil {
			return ArrayBounds{}, err
		}
	}
	return bounds, nil
}

func labels(v *yaml.Node) (map[int]Label, error) {
	p, err := pairs(v)
	if err != nil {
		return nil, err
	}
	result := make(map[int]Label, len(p))
	for _, kv := range p {
		offset, err := intValue(kv[0])
		if err != nil {
			return nil, err
		}
		if kv[1].Kind == yaml.ScalarNode {
			result[offset] = Label{Name: kv[1].Value}
			continue
		}

		fields, err := fieldMap(kv[1])
		if err != nil {
			return nil, err
		}
		var label Label
		if n, ok := fields["label"]; ok {
			label.Name = n.Value
		} else if n, ok := fields["name"]; ok {
			label.Name = n.Value
		}
		if n, ok := fields["encoding"]; ok {
			label.Encoding = n.Value
		}
		result[offset] = label
	}
	return result, nil
}

// opcodes decodes a single opcode, a list of opcodes, "begin-end" half open
// ranges or "default".
func opcodes(v *yaml.Node) ([]OpcodeRange, error) {
	values, err := stringList(v)
	if err != nil {
		return nil, err
	}
	result := make([]OpcodeRange, 0, len(values))
	for _, value := range values {
		if value == "default" {
			result = append(result, OpcodeRange{Default: true})
			continue
		}
		if isRange(value) {
			r, err := byterange.Parse(value)
			if err != nil {
				return nil, err
			}
			result = append(result, OpcodeRange{Begin: r.Begin, End: r.End})
			continue
		}
		op, err := parseNumber(value)
		if err != nil {
			return nil, err
		}
		result = append(result, OpcodeRange{Begin: int(op), End: int(op) + 1})
	}
	return result, nil
}

// isRange returns whether the string is a "begin-end" range. A leading minus
// sign belongs to a negative number.
func isRange(s string) bool {
	return len(s) > 1 && strings.Contains(s[1:], "-")
}
