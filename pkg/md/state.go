package md

import (
	"strings"

	"src.marktree.dev/pkg/diag"
	"src.marktree.dev/pkg/md/ast"
	"src.marktree.dev/pkg/md/delim"
	"src.marktree.dev/pkg/md/lex"
	"src.marktree.dev/pkg/parse"
)

type context = parse.Context[*state]

type leafKind uint8

const (
	noLeaf leafKind = iota
	paragraphLeaf
	headingLeaf
	fencedLeaf
	indentedLeaf
)

// State of a Markdown parse, besides what the tree itself records.
type state struct {
	opts Options

	// Open blockquotes, outermost first.
	quotes []*parse.Node
	// The open leaf block, if any.
	leaf     *parse.Node
	leafKind leafKind
	fence    fence
	// Delimiters and brackets of the open paragraph or heading.
	delims *delim.Stack

	// Index of the first token of the current line after its container
	// markers and indentation.
	contentStart int
	// Width of the indentation of the current line.
	indent int
	// Whether the current line is a lazy continuation of a paragraph inside
	// blockquotes whose markers it lacks.
	lazy bool
	// Tokens at or after this byte offset on the current line are skipped;
	// -1 if unset. Used for the closing sequences of ATX headings.
	lineStop int
}

type fence struct {
	char   byte
	len    int
	indent int
	closed bool
	opener diag.Ranging
}

func newState(opts Options) *state {
	return &state{opts: opts, delims: delim.NewStack(), lineStop: -1}
}

func (s *state) clone() *state {
	c := *s
	c.quotes = append([]*parse.Node(nil), s.quotes...)
	c.delims = s.delims.Clone()
	return &c
}

// Incremental parses can resume at the start of a line's content when no leaf
// block is open. All inline state is bound to leaf blocks, so nothing that
// follows can rearrange the nodes built so far.
func resumable(c *context) bool {
	s := c.State
	return s.leaf == nil && c.Pos() == s.contentStart
}

// The node new blocks are added to.
func container(c *context) *parse.Node {
	if n := len(c.State.quotes); n > 0 {
		return c.State.quotes[n-1]
	}
	return c.Root()
}

func openLeaf(c *context, t parse.NodeType, kind leafKind, value string, from int) *parse.Node {
	closeLeaf(c)
	s := c.State
	n := parse.NewNode(t, value)
	n.From, n.To = from, from
	container(c).AddChild(n)
	c.Current = n
	s.leaf, s.leafKind = n, kind
	return n
}

// Extends the range of the open leaf block to the given offset.
func extendLeaf(c *context, to int) {
	if leaf := c.State.leaf; leaf != nil && to > leaf.To {
		leaf.To = to
	}
}

func closeLeaf(c *context) {
	s := c.State
	n := s.leaf
	if n == nil {
		return
	}
	switch s.leafKind {
	case paragraphLeaf, headingLeaf:
		if err := s.delims.Resolve(nil); err != nil {
			c.Report(ErrInternal, n, "%v", err)
		}
		trimInline(n)
		ast.MergeText(n)
	case fencedLeaf:
		if !s.fence.closed {
			c.Report(ErrUnclosedFence, s.fence.opener, "code fence is not closed")
		}
	case indentedLeaf:
		text := n.Child(0)
		text.Value = trimBlankLines(text.Value)
	}
	s.leaf, s.leafKind = nil, noLeaf
	s.fence = fence{}
	c.Current = container(c)
}

// Removes the line breaks and whitespace at the end of an inline block. A
// backslash at the very end is literal.
func trimInline(n *parse.Node) {
	for n.NumChildren() > 0 {
		last := n.LastChild()
		switch {
		case last.Type == ast.HardBreak && last.Value == `\`:
			n.RemoveChild(n.NumChildren() - 1)
			n.AddChild(ast.NewText(`\`, last.From, last.From+1))
			return
		case last.Type == ast.SoftBreak || last.Type == ast.HardBreak:
			n.RemoveChild(n.NumChildren() - 1)
		case last.Type == ast.Text && isBlank(last.Value):
			n.RemoveChild(n.NumChildren() - 1)
		default:
			return
		}
	}
}

// Drops trailing blank lines from the content of an indented code block.
func trimBlankLines(s string) string {
	lines := strings.SplitAfter(s, "\n")
	for len(lines) > 0 && isBlank(lines[len(lines)-1]) {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "")
}

// Closes the open leaf block and all blockquotes except the outermost keep.
func closeQuotes(c *context, keep int) {
	closeLeaf(c)
	s := c.State
	for len(s.quotes) > keep {
		q := s.quotes[len(s.quotes)-1]
		q.To = q.From + 1
		if last := q.LastChild(); last != nil && last.To > q.To {
			q.To = last.To
		}
		s.quotes = s.quotes[:len(s.quotes)-1]
	}
	c.Current = container(c)
}

func finish(c *context) {
	closeQuotes(c, 0)
	root := c.Root()
	root.From, root.To = 0, len(c.Source())
}

// Returns the byte offset of the end of the line containing from, excluding
// the line ending. The result depends on the line ending, so it is marked as
// examined too.
func lineEnd(c *context, from int) int {
	src := c.Source()
	end := from
	for end < len(src) && src[end] != '\n' && src[end] != '\r' {
		end++
	}
	c.MarkSource(end + 1)
	return end
}

// Moves past the rest of the current line, including its line ending, and
// processes the container markers of the next line.
func finishLine(c *context) {
	for {
		tok := c.Peek()
		if tok.Kind == parse.EOF {
			return
		}
		if tok.Kind == lex.Newline {
			nextLine(c)
			return
		}
		c.Advance(1)
	}
}

// Moves past the line ending at the cursor and enters the next line.
func nextLine(c *context) {
	c.Advance(1)
	enterLine(c)
}

// Processes the start of a line: matches blockquote markers against the open
// blockquotes, closing or opening blocks as needed, and skips the
// indentation.
func enterLine(c *context) {
	s := c.State
	s.lazy = false
	s.lineStop = -1
	s.indent = 0
	start := c.Peek().From
	if c.Peek().Kind == parse.EOF {
		s.contentStart = c.Pos()
		return
	}
	line := c.Source()[start:lineEnd(c, start)]

	maxQuotes := -1
	if s.leafKind == fencedLeaf || s.leafKind == indentedLeaf {
		// Markers beyond the open blockquotes are code.
		maxQuotes = len(s.quotes)
	}
	var markers []int
	i := 0
	for len(markers) != maxQuotes {
		j := skipIndent(line, i)
		if j >= len(line) || line[j] != '>' {
			break
		}
		markers = append(markers, start+j)
		i = j + 1
		if i < len(line) && (line[i] == ' ' || line[i] == '\t') {
			i++
		}
	}
	rest := line[i:]
	blank := isBlank(rest)

	switch matched := len(markers); {
	case matched < len(s.quotes):
		if !blank && s.leafKind == paragraphLeaf && !startsBlock(rest) {
			s.lazy = true
		} else {
			closeQuotes(c, matched)
		}
	case matched > len(s.quotes):
		closeLeaf(c)
		for _, from := range markers[len(s.quotes):] {
			q := parse.NewNode(ast.Blockquote, "")
			q.From, q.To = from, from+1
			container(c).AddChild(q)
			s.quotes = append(s.quotes, q)
		}
		c.Current = container(c)
	}

	ws := len(rest) - len(strings.TrimLeft(rest, " \t"))
	s.indent = indentWidth(rest[:ws])
	if s.leafKind == indentedLeaf && !blank && s.indent < 4 {
		closeLeaf(c)
	}
	c.AdvanceTo(c.TokenAt(start + i + ws))
	s.contentStart = c.Pos()
}

// Skips up to 3 spaces from line[i:].
func skipIndent(line string, i int) int {
	for n := 0; n < 3 && i < len(line) && line[i] == ' '; n++ {
		i++
	}
	return i
}

func indentWidth(ws string) int {
	w := 0
	for _, r := range ws {
		if r == '\t' {
			w += 4 - w%4
		} else {
			w++
		}
	}
	return w
}

func isBlank(s string) bool { return strings.Trim(s, " \t\r\n") == "" }

// Reports whether a line, with its container markers removed, starts a block
// that interrupts a paragraph.
func startsBlock(rest string) bool {
	if isBlank(rest) {
		return true
	}
	if rest = rest[skipIndent(rest, 0):]; rest == "" || rest[0] == ' ' || rest[0] == '\t' {
		return false
	}
	return rest[0] == '>' || thematicBreakRegexp.MatchString(rest) ||
		atxHeadingRegexp.MatchString(rest) || fenceOpenerRegexp.MatchString(rest)
}
