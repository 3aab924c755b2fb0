package rom

import (
	"github.com/retroenv/romschema/internal/schema"
)

const maxPointerLength = 4

// validateDocument checks the document level settings and all definitions
// of the schema.
func (d *Document) validateDocument(def *schema.Definition) error {
	switch d.mode {
	case MapNone, LoROM, HiROM, GBA, PSX:
	default:
		return schemaErrorf("", "unknown map mode '%s'", d.mode)
	}
	switch d.system {
	case SystemNone, SystemSFC, SystemGBA, SystemPSX:
	default:
		return schemaErrorf("", "unknown system '%s'", d.system)
	}
	if d.pointerLength < 0 || d.pointerLength > maxPointerLength {
		return schemaErrorf("", "pointer length %d is outside of 1-%d", d.pointerLength, maxPointerLength)
	}

	for _, enc := range def.ScriptEncodings {
		for _, command := range enc.Commands {
			if err := d.validate(command, enc.Key+"."+command.Key); err != nil {
				return err
			}
		}
	}
	for _, child := range def.Assembly {
		if err := d.validate(child, child.Key); err != nil {
			return err
		}
	}
	return nil
}

// validate checks a definition and all of its nested definitions.
func (d *Document) validate(def *schema.Definition, path string) error {
	switch def.Type {
	case "", schema.TypeAssembly, schema.TypeData, schema.TypeCommand:
	case schema.TypeProperty:
		if err := validateProperty(def, path); err != nil {
			return err
		}
	case schema.TypeArray, schema.TypePointerTable:
		if err := d.validateArray(def, path); err != nil {
			return err
		}
	case schema.TypeText:
		if err := d.validateEncodings(def, path, false); err != nil {
			return err
		}
	case schema.TypeScript:
		if len(def.Encoding) == 0 {
			return schemaErrorf(path, "script has no encoding")
		}
		if err := d.validateEncodings(def, path, true); err != nil {
			return err
		}
	default:
		return schemaErrorf(path, "unknown type '%s'", def.Type)
	}

	for _, c := range []schema.Condition{def.Invalid, def.Hidden, def.Disabled} {
		if !c.IsExpr() {
			continue
		}
		if _, err := d.expression(c.Expr); err != nil {
			return schemaErrorf(path, "invalid condition: %v", err)
		}
	}
	if def.VariableLength != "" {
		if _, err := d.expression(def.VariableLength); err != nil {
			return schemaErrorf(path, "invalid variable length: %v", err)
		}
	}

	for _, child := range def.Assembly {
		if err := d.validate(child, path+"."+child.Key); err != nil {
			return err
		}
	}
	return nil
}

func validateProperty(def *schema.Definition, path string) error {
	if def.HasMask && def.Mask == 0 {
		return schemaErrorf(path, "mask is zero")
	}
	mask := int64(defaultMask)
	if def.HasMask {
		mask = def.Mask
	}
	if def.ExplicitLength && def.Range.Length() < maskLength(mask) {
		return schemaErrorf(path, "length %d is shorter than the mask 0x%X", def.Range.Length(), mask)
	}
	if def.Min != nil && def.Max != nil && *def.Min > *def.Max {
		return schemaErrorf(path, "minimum %d is larger than maximum %d", *def.Min, *def.Max)
	}
	return nil
}

func (d *Document) validateArray(def *schema.Definition, path string) error {
	if def.PointerLength < 0 || def.PointerLength > maxPointerLength {
		return schemaErrorf(path, "pointer length %d is outside of 1-%d", def.PointerLength, maxPointerLength)
	}
	if pt := def.PointerTable; pt != nil {
		if pt.PointerLength < 0 || pt.PointerLength > maxPointerLength {
			return schemaErrorf(path+".pointerTable", "pointer length %d is outside of 1-%d",
				pt.PointerLength, maxPointerLength)
		}
	}
	if def.Array.Max > 0 && def.Array.Min > def.Array.Max {
		return schemaErrorf(path, "minimum length %d is larger than maximum %d", def.Array.Min, def.Array.Max)
	}

	if def.Item == nil {
		return nil
	}
	if def.Terminator != nil && def.Terminator.Text {
		if def.Item.Type != schema.TypeText || len(def.Item.Encoding) == 0 {
			return schemaErrorf(path, "text terminator requires items with a text encoding")
		}
	}
	return d.validate(def.Item, path+"[]")
}

func (d *Document) validateEncodings(def *schema.Definition, path string, script bool) error {
	for _, key := range def.Encoding {
		if script {
			if d.scriptEncodings[key] == nil {
				return schemaErrorf(path, "unknown script encoding '%s'", key)
			}
			continue
		}
		if d.textEncodings[key] == nil {
			return schemaErrorf(path, "unknown text encoding '%s'", key)
		}
	}
	return nil
}
