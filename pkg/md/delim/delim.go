// Package delim resolves emphasis delimiters.
//
// Inline parsing appends every run of "*", "_" or "~" to the tree as a Text
// placeholder holding the run, and pushes an Entry for it onto a Stack. Link
// brackets are pushed too, so that the content of a link can be resolved on
// its own. Resolve then pairs openers with closers following the CommonMark
// algorithm, shrinking the placeholders and wrapping the nodes between each
// pair in an Emphasis, Strong or Strikethrough node. Markers left over stay in
// the tree as literal text.
package delim

import (
	"errors"
	"fmt"

	"src.marktree.dev/pkg/md/ast"
	"src.marktree.dev/pkg/parse"
)

// Entry is an element of the delimiter stack.
type Entry struct {
	// The placeholder node. For emphasis delimiters, its Value holds the
	// markers that have not been used yet.
	Node *parse.Node
	// The node Node was added to.
	Parent *parse.Node
	// '*', '_' or '~' for emphasis delimiters; '[' or '!' for the openers of
	// links and images.
	Char byte
	// Length of the delimiter run as written.
	Len int
	// Number of markers not yet used.
	Remaining int
	// Flanking-derived roles of the run.
	CanOpen, CanClose bool
	// For brackets, whether a link may still be formed.
	Active bool

	prev, next *Entry
}

// IsBracket reports whether the entry is the opener of a link or an image.
func (e *Entry) IsBracket() bool { return e.Char == '[' || e.Char == '!' }

// Stack is a delimiter "stack". It is actually a doubly linked list with
// sentinels as bottom and top, with the bottom being the head of the list.
// The zero value is not usable; use NewStack.
type Stack struct {
	bottom, top *Entry
	// Nodes of the entries on the stack.
	nodes map[*parse.Node]bool
}

// NewStack returns an empty stack.
func NewStack() *Stack {
	bottom := &Entry{}
	top := &Entry{prev: bottom}
	bottom.next = top
	return &Stack{bottom, top, make(map[*parse.Node]bool)}
}

// Empty reports whether the stack has no entries.
func (s *Stack) Empty() bool { return s.bottom.next == s.top }

// Len returns the number of entries.
func (s *Stack) Len() int {
	n := 0
	for e := s.bottom.next; e != s.top; e = e.next {
		n++
	}
	return n
}

// Entries returns the entries from the bottom up.
func (s *Stack) Entries() []*Entry {
	var entries []*Entry
	for e := s.bottom.next; e != s.top; e = e.next {
		entries = append(entries, e)
	}
	return entries
}

// Push adds e on top of the stack. It panics if an entry for the same node is
// already on the stack.
func (s *Stack) Push(e *Entry) {
	if s.nodes[e.Node] {
		panic("delim: node pushed twice")
	}
	s.nodes[e.Node] = true
	e.prev = s.top.prev
	e.next = s.top
	s.top.prev.next = e
	s.top.prev = e
}

// Remove unlinks e from the stack.
func (s *Stack) Remove(e *Entry) {
	delete(s.nodes, e.Node)
	e.prev.next = e.next
	e.next.prev = e.prev
	e.prev, e.next = nil, nil
}

// LastBracket returns the topmost bracket entry, or nil.
func (s *Stack) LastBracket() *Entry {
	for e := s.top.prev; e != s.bottom; e = e.prev {
		if e.IsBracket() {
			return e
		}
	}
	return nil
}

// Unlinks the entries strictly between from and to.
func (s *Stack) cut(from, to *Entry) {
	for e := from.next; e != to; e = e.next {
		delete(s.nodes, e.Node)
	}
	from.next = to
	to.prev = from
}

// DeactivateLinks marks all "[" entries below e as inactive. Links may not
// contain other links.
func (s *Stack) DeactivateLinks(e *Entry) {
	for d := e.prev; d != s.bottom && d != nil; d = d.prev {
		if d.Char == '[' {
			if !d.Active {
				// Everything below was deactivated along with d.
				break
			}
			d.Active = false
		}
	}
}

// Clone returns a copy of the stack with copies of all entries. The entries
// still refer to the same nodes.
func (s *Stack) Clone() *Stack {
	c := NewStack()
	for e := s.bottom.next; e != s.top; e = e.next {
		cp := *e
		c.Push(&cp)
	}
	return c
}

// ErrNotSiblings is returned by Resolve when an opener and a closer that
// should be paired are not children of the same node. The tree is left as it
// was before the failed pairing.
var ErrNotSiblings = errors.New("delimiter pair is not a pair of siblings")

// Resolve processes the emphasis delimiters above bottom, which is nil for
// the whole stack, and removes all entries above bottom afterwards.
// Resolving a stack without emphasis delimiters changes nothing.
//
// Pairing stops at the first pair that cannot be wrapped, in which case the
// error wraps ErrNotSiblings.
func (s *Stack) Resolve(bottom *Entry) error {
	if bottom == nil {
		bottom = s.bottom
	}
	defer s.cut(bottom, s.top)

	// Indexed by marker, closer length mod 3 and whether the closer can open.
	var openersBottom [3][3][2]*Entry
	for closer := bottom.next; closer != s.top; {
		if closer.IsBracket() || !closer.CanClose {
			closer = closer.next
			continue
		}
		openerBottom := &openersBottom[charIndex(closer.Char)][closer.Len%3][b2i(closer.CanOpen)]
		if *openerBottom == nil {
			*openerBottom = bottom
		}
		var opener *Entry
		for p := closer.prev; p != *openerBottom && p != bottom; p = p.prev {
			if p.Char == closer.Char && p.CanOpen && matches(p, closer) {
				opener = p
				break
			}
		}
		if opener == nil {
			*openerBottom = closer.prev
			next := closer.next
			if !closer.CanOpen {
				s.Remove(closer)
			}
			closer = next
			continue
		}

		if err := wrap(opener, closer); err != nil {
			return err
		}
		// Entries between the opener and the closer can no longer match.
		s.cut(opener, closer)
		if opener.Remaining == 0 {
			s.Remove(opener)
		}
		if closer.Remaining == 0 {
			next := closer.next
			s.Remove(closer)
			closer = next
		}
	}
	return nil
}

// Whether opener and closer may form a pair.
func matches(opener, closer *Entry) bool {
	if closer.Char == '~' {
		return opener.Len == closer.Len
	}
	// The "multiple of 3" rule.
	return (!opener.CanClose && !closer.CanOpen) ||
		(opener.Len+closer.Len)%3 != 0 ||
		(opener.Len%3 == 0 && closer.Len%3 == 0)
}

// Pairs opener with closer, using markers from both. Nothing is changed if the
// pair cannot be wrapped.
func wrap(opener, closer *Entry) error {
	parent := opener.Node.Parent()
	i, j := -1, -1
	if parent != nil && closer.Node.Parent() == parent {
		i, j = parent.IndexOf(opener.Node), parent.IndexOf(closer.Node)
	}
	if i < 0 || j <= i {
		return fmt.Errorf("%w: %q at %d and %q at %d",
			ErrNotSiblings, opener.Node.Value, opener.Node.From, closer.Node.Value, closer.Node.From)
	}

	var typ parse.NodeType
	var use int
	switch {
	case closer.Char == '~':
		typ, use = ast.Strikethrough, closer.Remaining
	case opener.Remaining >= 2 && closer.Remaining >= 2:
		typ, use = ast.Strong, 2
	default:
		typ, use = ast.Emphasis, 1
	}

	on, cn := opener.Node, closer.Node
	on.Value = on.Value[:len(on.Value)-use]
	cn.Value = cn.Value[use:]
	if on.Range().Known() {
		on.To -= use
	}
	if cn.Range().Known() {
		cn.From += use
	}
	opener.Remaining -= use
	closer.Remaining -= use

	n := parse.NewNode(typ, "")
	if on.Range().Known() && cn.Range().Known() {
		n.From, n.To = on.To, cn.From
	}
	parent.Wrap(i+1, j, n)
	return nil
}

func charIndex(c byte) int {
	switch c {
	case '_':
		return 1
	case '~':
		return 2
	default:
		return 0
	}
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
