// Package options contains the program options.
package options

// Positional contains positional arguments.
type Positional struct {
	Files []string `positional-arg-name:"rom" description:"ROM files to load"`
}

// Parameters contains file path options.
type Parameters struct {
	Schema    string `short:"s" long:"schema" description:"schema definition file (YAML or JSON)" required:"true"`
	Output    string `short:"o" long:"output" description:"listing output file (default: stdout)"`
	Write     string `short:"w" long:"write" description:"write the assembled ROM to this file"`
	Batch     string `long:"batch" description:"batch process files matching pattern (e.g. *.sfc)"`
	Render    string `long:"render" description:"link of a graphics node to render as PNG"`
	Palette   string `long:"palette" description:"link of the palette used for rendering"`
	RenderOut string `long:"render-out" description:"PNG file to write the rendered graphics to" default:"render.png"`
	Profile   string `long:"profile" description:"write a profile of the run" choice:"cpu" choice:"mem"`

	Input string `no-flag:"true"`
}

// Flags contains behavior options.
type Flags struct {
	Mode   string   `short:"m" long:"mode" description:"map mode override" choice:"none" choice:"loROM" choice:"hiROM" choice:"gba" choice:"psx"`
	Set    []string `long:"set" description:"edit a node before writing, link=value (repeatable)"`
	Verify bool     `long:"verify" description:"verify that reassembling the ROM reproduces the input"`
	Debug  bool     `long:"debug" description:"enable debug logging"`
	Quiet  bool     `short:"q" long:"quiet" description:"quiet mode"`
}

// OutputFlags contains listing options.
type OutputFlags struct {
	NoTree  bool `long:"no-tree" description:"do not list the object tree"`
	Hidden  bool `long:"hidden" description:"include hidden and invalid nodes in the listing"`
	Scripts bool `long:"scripts" description:"list the commands of all scripts"`
	Stats   bool `long:"stats" description:"print an opcode usage histogram of all scripts"`
	Scale   int  `long:"scale" description:"scale factor of the rendered image" default:"1"`
	Columns int  `long:"columns" description:"tiles per row of the rendered image" default:"16"`
}

// Program options of the editor tool.
type Program struct {
	Parameters
	Flags
	OutputFlags

	Positional Positional `positional-args:"yes"`
}

// Listing defines options to control the textual listing of a document.
type Listing struct {
	Tree    bool // list the object tree
	Hidden  bool // include hidden and invalid nodes
	Scripts bool // list script commands
	Stats   bool // print opcode statistics
}

// NewListing returns the listing options for the program options.
func NewListing(opts Program) Listing {
	return Listing{
		Tree:    !opts.NoTree,
		Hidden:  opts.Hidden,
		Scripts: opts.Scripts,
		Stats:   opts.Stats,
	}
}
