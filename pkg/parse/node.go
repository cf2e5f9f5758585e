package parse

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"src.marktree.dev/pkg/diag"
)

// NodeType identifies what a Node represents. Each language defines its own
// closed set of types.
type NodeType uint8

// Node is an element of the output tree.
//
// A node owns its children. The parent reference is a plain back-pointer that
// is maintained by the methods of Node; a node is never the child of two
// nodes at once.
type Node struct {
	Type NodeType
	// Payload whose meaning depends on Type, such as the text of a text node.
	// Empty for most container nodes.
	Value string
	// Secondary payload, such as the title of a link.
	Title string
	diag.Ranging

	parent   *Node
	children []*Node
}

// NewNode creates a node with no range.
func NewNode(t NodeType, value string) *Node {
	return &Node{Type: t, Value: value, Ranging: diag.NoRanging}
}

// Parent returns the parent of the node, or nil for a root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the children of the node. The slice must not be modified.
func (n *Node) Children() []*Node { return n.children }

// NumChildren returns the number of children.
func (n *Node) NumChildren() int { return len(n.children) }

// Child returns the i-th child.
func (n *Node) Child(i int) *Node { return n.children[i] }

// FirstChild returns the first child, or nil if there is none.
func (n *Node) FirstChild() *Node {
	if len(n.children) == 0 {
		return nil
	}
	return n.children[0]
}

// LastChild returns the last child, or nil if there is none.
func (n *Node) LastChild() *Node {
	if len(n.children) == 0 {
		return nil
	}
	return n.children[len(n.children)-1]
}

// IndexOf returns the position of ch among the children of n, or -1.
func (n *Node) IndexOf(ch *Node) int {
	if ch == nil || ch.parent != n {
		return -1
	}
	for i, c := range n.children {
		if c == ch {
			return i
		}
	}
	return -1
}

// AddChild appends ch to the children of n. It panics if ch already has a
// parent.
func (n *Node) AddChild(ch *Node) {
	n.InsertChild(len(n.children), ch)
}

// InsertChild inserts ch so that it becomes the i-th child of n. It panics if
// ch already has a parent.
func (n *Node) InsertChild(i int, ch *Node) {
	if ch.parent != nil {
		panic("parse: node already has a parent")
	}
	n.children = append(n.children, nil)
	copy(n.children[i+1:], n.children[i:])
	n.children[i] = ch
	ch.parent = n
}

// RemoveChild detaches and returns the i-th child.
func (n *Node) RemoveChild(i int) *Node {
	ch := n.children[i]
	copy(n.children[i:], n.children[i+1:])
	n.children[len(n.children)-1] = nil
	n.children = n.children[:len(n.children)-1]
	ch.parent = nil
	return ch
}

// SetChildren replaces the children of n with children, detaching the old
// ones first. Each new child must be detached or a child of n. It panics
// otherwise.
func (n *Node) SetChildren(children []*Node) {
	for _, ch := range n.children {
		ch.parent = nil
	}
	for _, ch := range children {
		if ch.parent != nil {
			panic("parse: node already has a parent")
		}
		ch.parent = n
	}
	n.children = children
}

// Wrap moves the children in [from, to) under with, keeping their order, and
// puts with at position from. The node with must be detached; its existing
// children are kept in front of the moved ones.
func (n *Node) Wrap(from, to int, with *Node) {
	if with.parent != nil {
		panic("parse: node already has a parent")
	}
	if from < 0 || to > len(n.children) || from > to {
		panic(fmt.Sprintf("parse: bad wrap range [%d, %d) of %d children",
			from, to, len(n.children)))
	}
	if from == to {
		n.InsertChild(from, with)
		return
	}
	for _, ch := range n.children[from:to] {
		ch.parent = with
		with.children = append(with.children, ch)
	}
	n.children[from] = with
	rest := copy(n.children[from+1:], n.children[to:])
	for i := from + 1 + rest; i < len(n.children); i++ {
		n.children[i] = nil
	}
	n.children = n.children[:from+1+rest]
	with.parent = n
}

// Truncate detaches all children from the k-th on.
func (n *Node) Truncate(k int) {
	if k >= len(n.children) {
		return
	}
	for i := k; i < len(n.children); i++ {
		n.children[i].parent = nil
		n.children[i] = nil
	}
	n.children = n.children[:k]
}

// Hash returns a structural hash of the subtree rooted at n. Two subtrees
// with the same types, values, titles and shape have the same hash; ranges do
// not contribute.
func (n *Node) Hash() uint64 {
	d := xxhash.New()
	var buf [8]byte
	writeString := func(s string) {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(s)))
		d.Write(buf[:])
		d.WriteString(s)
	}
	d.Write([]byte{byte(n.Type)})
	writeString(n.Value)
	writeString(n.Title)
	binary.LittleEndian.PutUint64(buf[:], uint64(len(n.children)))
	d.Write(buf[:])
	for _, ch := range n.children {
		binary.LittleEndian.PutUint64(buf[:], ch.Hash())
		d.Write(buf[:])
	}
	return d.Sum64()
}

// WalkStatus controls Walk.
type WalkStatus uint8

const (
	// WalkContinue continues the walk normally.
	WalkContinue WalkStatus = iota
	// WalkSkipChildren skips the children of the node just entered.
	WalkSkipChildren
	// WalkStop ends the walk.
	WalkStop
)

// Walk traverses the subtree rooted at n, calling f when entering and leaving
// each node.
func Walk(n *Node, f func(n *Node, entering bool) WalkStatus) WalkStatus {
	switch f(n, true) {
	case WalkStop:
		return WalkStop
	case WalkSkipChildren:
		return f(n, false)
	}
	for _, ch := range n.children {
		if Walk(ch, f) == WalkStop {
			return WalkStop
		}
	}
	return f(n, false)
}

var errCycle = errors.New("node appears twice in the tree")

// CheckTree verifies that every parent reference in the subtree rooted at root
// points to a node that contains the child exactly once, and that no node
// appears twice.
func CheckTree(root *Node) error {
	seen := make(map[*Node]bool)
	var err error
	Walk(root, func(n *Node, entering bool) WalkStatus {
		if !entering {
			return WalkContinue
		}
		if seen[n] {
			err = errCycle
			return WalkStop
		}
		seen[n] = true
		for i, ch := range n.children {
			if ch.parent != n {
				err = fmt.Errorf("child %d of node %d at %d-%d has a wrong parent",
					i, n.Type, n.From, n.To)
				return WalkStop
			}
			count := 0
			for _, other := range n.children {
				if other == ch {
					count++
				}
			}
			if count != 1 {
				err = fmt.Errorf("child %d of node %d appears %d times", i, n.Type, count)
				return WalkStop
			}
		}
		return WalkContinue
	})
	return err
}
