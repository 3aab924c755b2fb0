package rom

// State defines the processing state of a node.
type State uint8

// Node states.
const (
	Unloaded State = 0
	Loaded   State = 1 << iota // decoded from the backing bytes
	Dirty                      // modified since the last assembly
)

// Is returns whether the state contains the given flag.
func (s State) Is(flag State) bool {
	return s&flag != 0
}

// Set sets the given flag.
func (s *State) Set(flag State) {
	*s |= flag
}

// Clear unsets the given flag.
func (s *State) Clear(flag State) {
	mask := ^flag
	*s &= mask
}

// Kind defines the variant of a node.
type Kind uint8

// Node kinds.
const (
	KindStruct Kind = iota
	KindField
	KindCollection
	KindPointerTable
	KindScript
	KindCommand
	KindText
	KindDocument
)

var kindNames = map[Kind]string{
	KindStruct:       "struct",
	KindField:        "field",
	KindCollection:   "collection",
	KindPointerTable: "pointer table",
	KindScript:       "script",
	KindCommand:      "command",
	KindText:         "text",
	KindDocument:     "document",
}

// String returns the name of the kind.
func (k Kind) String() string {
	return kindNames[k]
}
