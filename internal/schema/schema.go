// Package schema contains the declarative description of the data inside a
// ROM. Schemas are loaded from YAML or JSON documents.
package schema

import (
	"github.com/retroenv/romschema/internal/byterange"
)

// Type defines the kind of object that a definition describes.
type Type string

// Definition types.
const (
	TypeAssembly     Type = "assembly"
	TypeROM          Type = "rom"
	TypeData         Type = "data"
	TypeProperty     Type = "property"
	TypeArray        Type = "array"
	TypePointerTable Type = "pointerTable"
	TypeScript       Type = "script"
	TypeCommand      Type = "command"
	TypeText         Type = "text"
)

// Condition is a boolean attribute that is either constant or computed by an
// expression.
type Condition struct {
	Value bool
	Expr  string
}

// IsExpr returns whether the condition is computed by an expression.
func (c Condition) IsExpr() bool {
	return c.Expr != ""
}

// Terminator defines how the items of an unpointered array are separated.
type Terminator struct {
	// Text terminates items by the terminator of their text encoding.
	Text bool
	Byte byte
}

// OpcodeRange is a half open range of opcodes that map to a command.
type OpcodeRange struct {
	Begin   int
	End     int
	Default bool
}

// Label names a script offset and optionally sets its encoding.
type Label struct {
	Name     string
	Encoding string
}

// ArrayBounds contains the item count limits of an array. Zero values are
// treated as not set.
type ArrayBounds struct {
	Length int
	Min    int
	Max    int
}

// Definition describes a single object of the schema tree.
type Definition struct {
	Type Type
	Key  string
	Name string

	Range byterange.Range
	// ExplicitLength is set when the length was declared by end or length
	// instead of being derived.
	ExplicitLength bool
	Format         []string
	Invalid  Condition
	Hidden   Condition
	Disabled Condition

	// property
	Mask        int64
	HasMask     bool
	Offset      int
	Multiplier  int
	Bool        bool
	Flag        bool
	Signed      bool
	Special     map[int]string
	Min         *int
	Max         *int
	Link        string
	Script      string
	External    string
	StringTable string

	// text and script
	Encoding []string

	// rom, data and command children in declaration order
	Assembly []*Definition

	// array
	Item          *Definition
	Array         ArrayBounds
	PointerTable  *Definition
	IsSequential  bool
	AutoBank      bool
	Terminator    *Terminator
	PointerLength int

	// script
	Labels map[int]Label

	// command
	Opcodes        []OpcodeRange
	Category       string
	VariableLength string

	// rom
	Mode            string
	System          string
	CRC32           uint32
	HasCRC32        bool
	Pad             *int
	CharTables      []*CharTable
	TextEncodings   []*TextEncoding
	StringTables    []*StringTable
	ScriptEncodings []*ScriptEncoding
}

// CharTable maps byte values to characters.
type CharTable struct {
	Key   string
	Chars map[int]string
}

// TextEncoding merges character tables.
type TextEncoding struct {
	Key        string
	CharTables []string
}

// StringTable is a table of names that can reference other objects.
type StringTable struct {
	Key     string
	Name    string
	Default string
	Length  int
	Strings map[int]string
}

// ScriptEncoding contains the commands of a script language.
type ScriptEncoding struct {
	Key      string
	Name     string
	Delegate string
	Commands []*Definition
}

// Clone returns a shallow copy of the definition.
func (d *Definition) Clone() *Definition {
	c := *d
	return &c
}

// Child returns the child definition with the given key.
func (d *Definition) Child(key string) *Definition {
	for _, child := range d.Assembly {
		if child.Key == key {
			return child
		}
	}
	return nil
}

// DisplayName returns the name of the definition, falling back to the key.
func (d *Definition) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.Key
}
