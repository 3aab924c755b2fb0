package rom

import (
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/romschema/internal/expr"
)

// ReferenceOptions define which property of the owner of a reference is
// written to its target and how it is transformed.
type ReferenceOptions struct {
	// Address writes the offset of the owner.
	Address bool
	// Mapped converts the address to a mapped address.
	Mapped bool
	// Relative makes the address relative to the given node.
	Relative Node

	// ArrayLength writes the item count of the owning collection.
	ArrayLength bool
	// DataLength writes the decoded data length of the owner.
	DataLength bool
	// Eval writes the result of an expression evaluated for the owner.
	Eval string

	Mask       int64
	Shift      int
	Multiplier int64
	Offset     int64
}

// Reference writes a property of its owner into a target field whenever
// the document is assembled. Script commands use references to keep jump
// targets pointing to them after they moved.
type Reference struct {
	owner   Node
	target  *Field
	options ReferenceOptions
}

// Owner returns the node that the reference describes. It is nil while the
// reference belongs to a placeholder.
func (r *Reference) Owner() Node {
	return r.owner
}

// Target returns the field that the reference is written to.
func (r *Reference) Target() *Field {
	return r.target
}

// Value returns the value that will be written to the target.
func (r *Reference) Value() int64 {
	if r.owner == nil {
		return 0
	}

	var value int64
	opts := r.options
	switch {
	case opts.Address:
		b := r.owner.base()
		value = int64(b.rng.Begin)
		if opts.Mapped {
			value = int64(b.doc.UnmapAddress(b.physicalOffset()))
		} else if opts.Relative != nil {
			value -= int64(opts.Relative.Range().Begin)
		}

	case opts.ArrayLength:
		if c, ok := r.owner.(*Collection); ok {
			value = int64(c.Len())
		}

	case opts.DataLength:
		value = int64(len(r.owner.Data()))

	case opts.Eval != "":
		v, err := expr.Eval(opts.Eval, r.owner.base().resolver())
		if err != nil {
			r.owner.Document().logger.Warn("Evaluating reference failed",
				log.String("owner", r.owner.Path()),
				log.String("expression", opts.Eval),
				log.Err(err))
			return r.target.value
		}
		value = v
	}

	if opts.Mask != 0 {
		value &= opts.Mask
	}
	if opts.Shift != 0 {
		value <<= opts.Shift
	}
	if opts.Multiplier != 0 {
		value *= opts.Multiplier
	}
	value += opts.Offset
	return value
}

// Update writes the value to the target field if it changed.
func (r *Reference) Update() {
	if r.target == nil || r.owner == nil {
		return
	}
	r.target.setValueDirect(r.Value())
}
