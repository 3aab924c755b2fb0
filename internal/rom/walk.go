package rom

// WalkFunc is called for every visited node. Returning false skips the
// descendants of the node.
type WalkFunc func(n Node, depth int) bool

// Walk visits the node and all of its descendants in document order,
// decoding them if needed.
func Walk(n Node, fn WalkFunc) {
	walk(n, 0, fn)
}

func walk(n Node, depth int, fn WalkFunc) {
	if !fn(n, depth) {
		return
	}
	for _, child := range Children(n) {
		walk(child, depth+1, fn)
	}
}

// Children returns the direct descendants of a node: the children of a
// struct, the items of a collection or the commands of a script.
func Children(n Node) []Node {
	switch v := n.(type) {
	case *Document:
		return v.Children()
	case *Struct:
		return v.Children()
	case *Command:
		return v.Children()
	case *Collection:
		return v.Items()
	case *Script:
		commands := v.Commands()
		nodes := make([]Node, len(commands))
		for i, c := range commands {
			nodes[i] = c
		}
		return nodes
	default:
		return nil
	}
}
