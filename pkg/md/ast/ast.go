// Package ast defines the node types of Markdown document trees and helpers
// for working with them.
//
// Trees are made of *parse.Node values. The meaning of the Value and Title
// fields depends on the node type and is documented on each type.
package ast

import (
	"io"
	"math"
	"strings"

	"src.marktree.dev/pkg/parse"
)

// Node types.
const (
	// The root of a document.
	Document parse.NodeType = iota
	Paragraph
	// Value is the level as a single digit, "1" to "6".
	Heading
	ThematicBreak
	// Value is the info string. The only child is a Text node holding the
	// content.
	CodeBlock
	Blockquote

	// Value is the literal text.
	Text
	Emphasis
	Strong
	Strikethrough
	// Value is the content with line endings normalized.
	CodeSpan
	// Value is the destination and Title the title. The children are the
	// link text.
	Link
	// Like Link; the children are the image description.
	Image
	// Value is the destination. The only child is a Text node holding the
	// link text.
	Autolink
	// Value is the raw HTML.
	RawHTML
	SoftBreak
	// Value is "\\" when the break was written as a backslash.
	HardBreak
)

var names = [...]string{
	Document:      "Document",
	Paragraph:     "Paragraph",
	Heading:       "Heading",
	ThematicBreak: "ThematicBreak",
	CodeBlock:     "CodeBlock",
	Blockquote:    "Blockquote",
	Text:          "Text",
	Emphasis:      "Emphasis",
	Strong:        "Strong",
	Strikethrough: "Strikethrough",
	CodeSpan:      "CodeSpan",
	Link:          "Link",
	Image:         "Image",
	Autolink:      "Autolink",
	RawHTML:       "RawHTML",
	SoftBreak:     "SoftBreak",
	HardBreak:     "HardBreak",
}

// Name returns the name of a node type.
func Name(t parse.NodeType) string {
	if int(t) < len(names) {
		return names[t]
	}
	return "Unknown"
}

// IsBlock reports whether nodes of the type are block-level.
func IsBlock(t parse.NodeType) bool { return t <= Blockquote }

// NewText returns a text node with the given value and range.
func NewText(value string, from, to int) *parse.Node {
	n := parse.NewNode(Text, value)
	n.From, n.To = from, to
	return n
}

// MergeText merges adjacent Text children of n and of all its descendants,
// and removes empty ones. Code blocks are left alone. Running it again on its
// result changes nothing.
func MergeText(n *parse.Node) {
	children := n.Children()
	var merged []*parse.Node
	for i := 0; i < len(children); {
		ch := children[i]
		if ch.Type != Text {
			if ch.Type != CodeBlock {
				MergeText(ch)
			}
			if merged != nil {
				merged = append(merged, ch)
			}
			i++
			continue
		}
		j := i
		for j < len(children) && children[j].Type == Text {
			j++
		}
		if j-i == 1 && ch.Value != "" {
			if merged != nil {
				merged = append(merged, ch)
			}
			i = j
			continue
		}
		// A run to merge; the first non-empty node absorbs the others.
		if merged == nil {
			merged = make([]*parse.Node, i, len(children))
			copy(merged, children[:i])
		}
		var head *parse.Node
		var sb strings.Builder
		for _, t := range children[i:j] {
			if t.Value == "" {
				continue
			}
			sb.WriteString(t.Value)
			if head == nil {
				head = t
			} else if head.Range().Known() && t.Range().Known() {
				head.To = t.To
			}
		}
		if head != nil {
			head.Value = sb.String()
			merged = append(merged, head)
		}
		i = j
	}
	if merged != nil {
		n.SetChildren(merged)
	}
}

// PlainText returns the concatenated text of the descendants of n, as used
// for the alt text of images and the names of headings.
func PlainText(n *parse.Node) string {
	var sb strings.Builder
	parse.Walk(n, func(n *parse.Node, entering bool) parse.WalkStatus {
		if !entering {
			return parse.WalkContinue
		}
		switch n.Type {
		case Text, CodeSpan:
			sb.WriteString(n.Value)
		case SoftBreak, HardBreak:
			sb.WriteByte(' ')
		}
		return parse.WalkContinue
	})
	return sb.String()
}

// Dump writes an indented outline of the tree rooted at n.
func Dump(w io.Writer, n *parse.Node, width int) {
	parse.PPrint(w, n, Name, width)
}

// DumpString returns the outline written by Dump, without shortening values.
func DumpString(n *parse.Node) string {
	var sb strings.Builder
	parse.PPrint(&sb, n, Name, math.MaxInt)
	return sb.String()
}
