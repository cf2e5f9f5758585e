package md

import (
	"html"
	"regexp"
	"strconv"
	"strings"

	"src.marktree.dev/pkg/diag"
	"src.marktree.dev/pkg/md/ast"
	"src.marktree.dev/pkg/md/lex"
	"src.marktree.dev/pkg/parse"
)

// The regular expressions below match lines with container markers and
// indentation removed.
var (
	thematicBreakRegexp = regexp.MustCompile(
		`^((?:-[ \t]*){3,}|(?:_[ \t]*){3,}|(?:\*[ \t]*){3,})$`)

	// Capture group 1: heading opener
	atxHeadingRegexp       = regexp.MustCompile(`^(#{1,6})(?:[ \t]+|$)`)
	atxHeadingCloserRegexp = regexp.MustCompile(`[ \t]+#+$`)

	// Capture groups:
	// 1. Fence punctuations (backquote fence)
	// 2. Untrimmed info string (backquote fence)
	// 3. Fence punctuations (tilde fence)
	// 4. Untrimmed info string (tilde fence)
	fenceOpenerRegexp = regexp.MustCompile("^(?:(`{3,})([^`]*)|(~{3,})(.*))$")
	// Capture group 1: fence punctuations
	fenceCloserRegexp = regexp.MustCompile("^(`{3,}|~{3,})[ \t]*$")

	setextUnderlineRegexp = regexp.MustCompile(`^(?:=+|-+)[ \t]*$`)
)

func atContentStart(c *context) bool { return c.Pos() == c.State.contentStart }

func isPunct(tok parse.Token, chars string) bool {
	return tok.Kind == lex.Punct && strings.Contains(chars, tok.Text)
}

// The rest of the line starting at tok, without the line ending.
func restOfLine(c *context, tok parse.Token) string {
	return c.Source()[tok.From:lineEnd(c, tok.From)]
}

// Handles the container markers and indentation of the first line. Later
// lines are entered when the line ending before them is consumed.
func consumeFirstLine(c *context, tok parse.Token) bool {
	if c.Pos() != 0 || !(tok.Kind == lex.Space || isPunct(tok, ">")) {
		return false
	}
	enterLine(c)
	return true
}

// Skips what follows the content of an ATX heading.
func consumeLineStop(c *context, tok parse.Token) bool {
	s := c.State
	if s.lineStop < 0 || tok.From < s.lineStop || tok.Kind == lex.Newline {
		return false
	}
	c.Advance(1)
	return true
}

func consumeFencedCode(c *context, tok parse.Token) bool {
	s := c.State
	if !atContentStart(c) || s.indent >= 4 || !isPunct(tok, "`~") {
		return false
	}
	line := restOfLine(c, tok)
	switch s.leafKind {
	case fencedLeaf:
		m := fenceCloserRegexp.FindStringSubmatch(line)
		if m == nil || m[1][0] != s.fence.char || len(m[1]) < s.fence.len {
			return false
		}
		s.fence.closed = true
		extendLeaf(c, tok.From+len(strings.TrimRight(line, " \t")))
		closeLeaf(c)
		finishLine(c)
		return true
	case indentedLeaf:
		return false
	}
	m := fenceOpenerRegexp.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	opener, info := m[1], m[2]
	if opener == "" {
		opener, info = m[3], m[4]
	}
	n := openLeaf(c, ast.CodeBlock, fencedLeaf, unescapeInfo(strings.Trim(info, " \t")), tok.From)
	end := tok.From + len(line)
	n.To = end
	n.AddChild(ast.NewText("", end, end))
	s.fence = fence{
		char: opener[0], len: len(opener), indent: s.indent,
		opener: diag.Ranging{From: tok.From, To: tok.From + len(opener)},
	}
	finishLine(c)
	return true
}

// Processes the backslash escapes and entity references of an info string.
func unescapeInfo(info string) string {
	if !strings.ContainsAny(info, `\&`) {
		return info
	}
	var sb strings.Builder
	for i := 0; i < len(info); {
		switch {
		case info[i] == '\\' && i+1 < len(info) && lex.IsASCIIPunct(info[i+1]):
			sb.WriteByte(info[i+1])
			i += 2
			continue
		case info[i] == '&':
			entity := entityRegexp.FindString(info[i:])
			if unescaped := html.UnescapeString(entity); unescaped != entity {
				sb.WriteString(unescaped)
				i += len(entity)
				continue
			}
		}
		sb.WriteByte(info[i])
		i++
	}
	return sb.String()
}

// Appends a line to an open code block.
func consumeCodeLine(c *context, tok parse.Token) bool {
	s := c.State
	if !atContentStart(c) || (s.leafKind != fencedLeaf && s.leafKind != indentedLeaf) {
		return false
	}
	appendCodeLine(c, tok)
	return true
}

func appendCodeLine(c *context, tok parse.Token) {
	s := c.State
	base := 4
	if s.leafKind == fencedLeaf {
		base = s.fence.indent
	}
	end := lineEnd(c, tok.From)
	text := s.leaf.Child(0)
	if text.Value == "" {
		text.From = tok.From
	}
	text.Value += strings.Repeat(" ", max(s.indent-base, 0)) + c.Source()[tok.From:end] + "\n"
	text.To = end
	extendLeaf(c, end)
	finishLine(c)
}

func consumeBlankLine(c *context, tok parse.Token) bool {
	if !atContentStart(c) || tok.Kind != lex.Newline {
		return false
	}
	closeLeaf(c)
	nextLine(c)
	return true
}

// Indented code cannot interrupt a paragraph; such lines are continuation
// lines instead.
func consumeIndentedCode(c *context, tok parse.Token) bool {
	s := c.State
	if !atContentStart(c) || s.indent < 4 || s.leaf != nil {
		return false
	}
	n := openLeaf(c, ast.CodeBlock, indentedLeaf, "", tok.From)
	n.AddChild(ast.NewText("", tok.From, tok.From))
	appendCodeLine(c, tok)
	return true
}

func consumeATXHeading(c *context, tok parse.Token) bool {
	s := c.State
	if !atContentStart(c) || s.indent >= 4 || !isPunct(tok, "#") {
		return false
	}
	line := restOfLine(c, tok)
	m := atxHeadingRegexp.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	body := strings.TrimRight(line[len(m[0]):], " \t")
	if strings.Trim(body, "#") == "" {
		body = ""
	} else if loc := atxHeadingCloserRegexp.FindStringIndex(body); loc != nil {
		body = body[:loc[0]]
	}
	openLeaf(c, ast.Heading, headingLeaf, strconv.Itoa(len(m[1])), tok.From)
	extendLeaf(c, tok.From+len(strings.TrimRight(line, " \t")))
	contentFrom := tok.From + len(m[0])
	s.lineStop = contentFrom + len(body)
	c.AdvanceTo(c.TokenAt(contentFrom))
	return true
}

// Turns the open paragraph into a heading.
func consumeSetextUnderline(c *context, tok parse.Token) bool {
	s := c.State
	if !atContentStart(c) || s.leafKind != paragraphLeaf || s.lazy || s.indent >= 4 ||
		!isPunct(tok, "=-") {
		return false
	}
	line := restOfLine(c, tok)
	if !setextUnderlineRegexp.MatchString(line) {
		return false
	}
	level := "1"
	if tok.Text == "-" {
		level = "2"
	}
	s.leaf.Type, s.leaf.Value = ast.Heading, level
	s.leafKind = headingLeaf
	extendLeaf(c, tok.From+len(strings.TrimRight(line, " \t")))
	closeLeaf(c)
	finishLine(c)
	return true
}

func consumeThematicBreak(c *context, tok parse.Token) bool {
	s := c.State
	if !atContentStart(c) || s.indent >= 4 || !isPunct(tok, "-_*") {
		return false
	}
	line := restOfLine(c, tok)
	if !thematicBreakRegexp.MatchString(line) {
		return false
	}
	closeLeaf(c)
	n := parse.NewNode(ast.ThematicBreak, "")
	n.From, n.To = tok.From, tok.From+len(strings.TrimRight(line, " \t"))
	container(c).AddChild(n)
	finishLine(c)
	return true
}

// Ends a line of an inline block. Paragraphs continue with a line break;
// headings end.
func consumeLineEnd(c *context, tok parse.Token) bool {
	if tok.Kind != lex.Newline {
		return false
	}
	s := c.State
	switch s.leafKind {
	case paragraphLeaf:
		leaf := s.leaf
		hard := false
		from := tok.From
		if last := leaf.LastChild(); last != nil && last.Type == ast.Text && isBlank(last.Value) {
			hard = strings.HasSuffix(last.Value, "  ")
			from = last.From
			leaf.RemoveChild(leaf.NumChildren() - 1)
		}
		if last := leaf.LastChild(); last == nil || last.Type != ast.HardBreak {
			typ := ast.SoftBreak
			if hard {
				typ = ast.HardBreak
			}
			n := parse.NewNode(typ, "")
			n.From, n.To = from, tok.To
			leaf.AddChild(n)
		}
	case headingLeaf:
		closeLeaf(c)
	}
	nextLine(c)
	return true
}
