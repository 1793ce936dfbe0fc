package types

// Node is one element of an ordered structured tree.
// Used for action sub-trees and the extras a rewrite accumulates.
// A leaf carries Value; an inner node carries Children. Child order is kept.
type Node struct {
	Name     string
	Value    string
	Children []*Node
}

// NewNode creates an inner node with the given children.
func NewNode(name string, children ...*Node) *Node {
	return &Node{Name: name, Children: children}
}

// NewLeaf creates a leaf node.
func NewLeaf(name, value string) *Node {
	return &Node{Name: name, Value: value}
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool {
	return n != nil && len(n.Children) == 0
}

// Child returns the first direct child named name, or nil.
func (n *Node) Child(name string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Lookup follows names from n and returns the node reached, or nil.
func (n *Node) Lookup(path ...string) *Node {
	cur := n
	for _, name := range path {
		cur = cur.Child(name)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// Depth returns the number of levels below and including n.
func (n *Node) Depth() int {
	if n == nil {
		return 0
	}
	deepest := 0
	for _, c := range n.Children {
		if d := c.Depth(); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}

// Clone returns a deep copy.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{Name: n.Name, Value: n.Value}
	if len(n.Children) > 0 {
		out.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			out.Children[i] = c.Clone()
		}
	}
	return out
}

// Equal reports structural equality, child order significant.
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == nil && other == nil
	}
	if n.Name != other.Name || n.Value != other.Value || len(n.Children) != len(other.Children) {
		return false
	}
	for i := range n.Children {
		if !n.Children[i].Equal(other.Children[i]) {
			return false
		}
	}
	return true
}

// Merge folds the children of other into n.
// Same-named inner children merge recursively; leaves are overwritten;
// unknown names are appended as copies. The root names are not compared.
func (n *Node) Merge(other *Node) {
	if n == nil || other == nil {
		return
	}
	for _, oc := range other.Children {
		existing := n.Child(oc.Name)
		switch {
		case existing == nil:
			n.Children = append(n.Children, oc.Clone())
		case oc.IsLeaf():
			existing.Value = oc.Value
			existing.Children = nil
		default:
			existing.Value = ""
			existing.Merge(oc)
		}
	}
}
