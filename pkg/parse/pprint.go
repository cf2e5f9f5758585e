package parse

import (
	"fmt"
	"io"
	"strconv"
)

const (
	maxL      = 10
	maxR      = 10
	indentInc = 2
)

// PPrint writes an indented outline of the subtree rooted at n, one node per
// line. The name function turns node types into names. Values are quoted and
// shortened when longer than width; a width of 0 means the default.
func PPrint(w io.Writer, n *Node, name func(NodeType) string, width int) {
	if width <= 0 {
		width = maxL + maxR + 3
	}
	pprintRec(w, n, name, width, 0)
}

func pprintRec(w io.Writer, n *Node, name func(NodeType) string, width, indent int) {
	fmt.Fprintf(w, "%*s%s", indent, "", name(n.Type))
	if n.Value != "" {
		fmt.Fprintf(w, " %s", compactQuote(n.Value, width))
	}
	if n.Title != "" {
		fmt.Fprintf(w, " title=%s", compactQuote(n.Title, width))
	}
	fmt.Fprint(w, "\n")
	for _, ch := range n.children {
		pprintRec(w, ch, name, width, indent+indentInc)
	}
}

func compactQuote(text string, width int) string {
	if len(text) > width && width > 3 {
		l := (width - 3) / 2
		r := width - 3 - l
		text = text[0:l] + "..." + text[len(text)-r:]
	}
	return strconv.Quote(text)
}
