package md

import (
	"fmt"
	"html"
	"regexp"
	"sort"
	"strings"

	"src.marktree.dev/pkg/md/ast"
	"src.marktree.dev/pkg/md/delim"
	"src.marktree.dev/pkg/md/lex"
	"src.marktree.dev/pkg/parse"
)

var (
	entityRegexp     = regexp.MustCompile(`^&(?:[a-zA-Z0-9]+|#[0-9]{1,7}|#[xX][0-9a-fA-F]{1,6});`)
	openTagRegexp    = regexp.MustCompile(`^` + openTag)
	closingTagRegexp = regexp.MustCompile(`^` + closingTag)
	autolinkRegexp   = regexp.MustCompile(`^<` +
		`[a-zA-Z][a-zA-Z0-9+.-]{1,31}` + // scheme
		`:[^\x00-\x19 <>]*` +
		`>`)
	emailAutolinkRegexp = regexp.MustCompile(fmt.Sprintf(`^<[a-zA-Z0-9.!#$%%&'*+/=?^_%s{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*>`, "`"))

	codeSpanLineEndingRegexp = regexp.MustCompile(`(?:\r\n|\r|\n)[ \t]*`)
)

const (
	openTag = `<` +
		`[a-zA-Z][a-zA-Z0-9-]*` + // tag name
		(`(?:` +
			`[ \t\n]+` + // whitespace
			`[a-zA-Z_:][a-zA-Z0-9_\.:-]*` + // attribute name
			`(?:[ \t\n]*=[ \t\n]*(?:[^ \t\n"'=<>` + "`" + `]+|'[^']*'|"[^"]*"))?` + // attribute value specification
			`)*`) + // zero or more attributes
		`[ \t\n]*` + // whitespace
		`/?>`
	closingTag = `</[a-zA-Z][a-zA-Z0-9-]*[ \t\n]*>`
)

// Opens a paragraph if no inline block is open.
func ensureInline(c *context, tok parse.Token) *parse.Node {
	if c.State.leaf == nil {
		openLeaf(c, ast.Paragraph, paragraphLeaf, "", tok.From)
	}
	return c.State.leaf
}

// Adds an inline node to the open inline block and moves past it.
func addInline(c *context, n *parse.Node) {
	c.State.leaf.AddChild(n)
	extendLeaf(c, n.To)
	c.AdvanceTo(c.TokenAt(n.To))
}

func addText(c *context, value string, from, to int) *parse.Node {
	n := ast.NewText(value, from, to)
	addInline(c, n)
	return n
}

// Text that an inline construct may span, with the blockquote markers of
// continuation lines removed.
type span struct {
	text string
	// Pairs of offsets in text and in the source text where contiguous pieces
	// of text start.
	pieces [][2]int
}

// Returns the source offset of the byte at offset i of the text.
func (sp span) source(i int) int {
	k := sort.Search(len(sp.pieces), func(k int) bool { return sp.pieces[k][0] > i }) - 1
	return sp.pieces[k][1] + i - sp.pieces[k][0]
}

// Returns the text that an inline construct starting at from may span, and
// marks it as examined. Constructs in paragraphs may span lines up to the end
// of the paragraph; elsewhere they are confined to the line.
func inlineSpan(c *context, from int) span {
	s := c.State
	src := c.Source()
	end := lineEnd(c, from)
	sp := span{pieces: [][2]int{{0, from}}}
	var sb strings.Builder
	gapped := false
	switch {
	case s.lineStop >= 0:
		end = min(end, s.lineStop)
	case s.leaf == nil || s.leafKind == paragraphLeaf:
		for end < len(src) {
			next := end + newlineLen(src[end:])
			lineTo := lineEnd(c, next)
			rest := stripQuoteMarkers(src[next:lineTo], len(s.quotes))
			if startsBlock(rest) || setextUnderlineRegexp.MatchString(strings.TrimLeft(rest, " ")) {
				break
			}
			if restFrom := lineTo - len(rest); restFrom != next {
				if !gapped {
					sb.WriteString(src[from:next])
					gapped = true
				} else {
					sb.WriteString(src[end:next])
				}
				sp.pieces = append(sp.pieces, [2]int{sb.Len(), restFrom})
				sb.WriteString(rest)
			} else if gapped {
				sb.WriteString(src[end:lineTo])
			}
			end = lineTo
		}
	}
	c.MarkSource(end + 1)
	if gapped {
		sp.text = sb.String()
	} else {
		sp.text = src[from:end]
	}
	return sp
}

// Removes up to n blockquote markers from the start of a line.
func stripQuoteMarkers(line string, n int) string {
	i := 0
	for ; n > 0; n-- {
		j := skipIndent(line, i)
		if j >= len(line) || line[j] != '>' {
			break
		}
		i = j + 1
		if i < len(line) && (line[i] == ' ' || line[i] == '\t') {
			i++
		}
	}
	return line[i:]
}

func newlineLen(s string) int {
	if strings.HasPrefix(s, "\r\n") {
		return 2
	}
	return 1
}

func consumeBackslash(c *context, tok parse.Token) bool {
	if !isPunct(tok, `\`) {
		return false
	}
	leaf := ensureInline(c, tok)
	next := c.PeekAt(1)
	switch {
	case next.Kind == lex.Punct:
		addText(c, next.Text, tok.From, next.To)
	case next.Kind == lex.Newline && c.State.leafKind == paragraphLeaf:
		n := parse.NewNode(ast.HardBreak, `\`)
		n.From, n.To = tok.From, tok.To
		leaf.AddChild(n)
		c.Advance(1)
	default:
		addText(c, `\`, tok.From, tok.To)
	}
	return true
}

func consumeEntity(c *context, tok parse.Token) bool {
	if !isPunct(tok, "&") {
		return false
	}
	entity := entityRegexp.FindString(inlineSpan(c, tok.From).text)
	if entity == "" {
		return false
	}
	unescaped := html.UnescapeString(entity)
	if unescaped == entity {
		// Not a known entity.
		return false
	}
	ensureInline(c, tok)
	addText(c, unescaped, tok.From, tok.From+len(entity))
	return true
}

func consumeCodeSpan(c *context, tok parse.Token) bool {
	if !isPunct(tok, "`") {
		return false
	}
	ensureInline(c, tok)
	n := 1
	for isPunct(c.PeekAt(n), "`") {
		n++
	}
	from := tok.From
	run := c.Source()[from : from+n]
	sp := inlineSpan(c, from)
	closer := findBacktickRun(sp.text, run, n)
	if closer == -1 {
		// No matching closer, the run is literal.
		addText(c, run, from, from+n)
		return true
	}
	node := parse.NewNode(ast.CodeSpan, normalizeCodeSpanContent(sp.text[n:closer]))
	node.From, node.To = from, sp.source(closer+n)
	addInline(c, node)
	return true
}

func consumeAutolink(c *context, tok parse.Token) bool {
	if !isPunct(tok, "<") {
		return false
	}
	text := inlineSpan(c, tok.From).text
	dest := autolinkRegexp.FindString(text)
	email := false
	if dest == "" {
		dest = emailAutolinkRegexp.FindString(text)
		email = true
	}
	if dest == "" {
		return false
	}
	ensureInline(c, tok)
	inner := dest[1 : len(dest)-1]
	n := parse.NewNode(ast.Autolink, inner)
	if email {
		n.Value = "mailto:" + inner
	}
	n.From, n.To = tok.From, tok.From+len(dest)
	n.AddChild(ast.NewText(inner, n.From+1, n.To-1))
	addInline(c, n)
	return true
}

func consumeRawHTML(c *context, tok parse.Token) bool {
	if !isPunct(tok, "<") {
		return false
	}
	sp := inlineSpan(c, tok.From)
	raw := findRawHTML(sp.text)
	if raw == "" {
		return false
	}
	ensureInline(c, tok)
	n := parse.NewNode(ast.RawHTML, raw)
	n.From, n.To = tok.From, sp.source(len(raw))
	addInline(c, n)
	return true
}

// Returns the prefix of text, which starts with "<", that is raw HTML, or "".
func findRawHTML(text string) string {
	if len(text) < 2 {
		return ""
	}
	withCloser := func(start int, closer string) string {
		i := strings.Index(text[start:], closer)
		if i == -1 {
			return ""
		}
		return text[:start+i+len(closer)]
	}
	switch text[1] {
	case '!':
		switch {
		case strings.HasPrefix(text, "<!--"):
			return withCloser(4, "-->")
		case strings.HasPrefix(text, "<![CDATA["):
			return withCloser(9, "]]>")
		case len(text) > 2 && isASCIILetter(text[2]):
			return withCloser(2, ">")
		}
		return ""
	case '?':
		return withCloser(2, "?>")
	case '/':
		return closingTagRegexp.FindString(text)
	default:
		return openTagRegexp.FindString(text)
	}
}

// Pushes the opener of a link or an image.
func consumeLinkOpen(c *context, tok parse.Token) bool {
	var text string
	switch {
	case isPunct(tok, "["):
		text = "["
	case isPunct(tok, "!") && isPunct(c.PeekAt(1), "["):
		text = "!["
	default:
		return false
	}
	leaf := ensureInline(c, tok)
	n := addText(c, text, tok.From, tok.From+len(text))
	c.State.delims.Push(&delim.Entry{
		Node: n, Parent: leaf, Char: text[0], Len: len(text), Active: true})
	return true
}

func consumeLinkClose(c *context, tok parse.Token) bool {
	if !isPunct(tok, "]") {
		return false
	}
	s := c.State
	opener := s.delims.LastBracket()
	if opener == nil {
		return false
	}
	n, dest, title := -1, "", ""
	var sp span
	if opener.Active {
		sp = inlineSpan(c, tok.To)
		n, dest, title = parseLinkTail(sp.text)
	}
	if n == -1 {
		// The opener can no longer form a link.
		s.delims.Remove(opener)
		addText(c, "]", tok.From, tok.To)
		return true
	}
	if err := s.delims.Resolve(opener); err != nil {
		c.Report(ErrInternal, tok, "%v", err)
	}
	typ := ast.Image
	if opener.Char == '[' {
		typ = ast.Link
		s.delims.DeactivateLinks(opener)
	}
	s.delims.Remove(opener)

	parent := opener.Parent
	i := parent.IndexOf(opener.Node)
	parent.RemoveChild(i)
	link := parse.NewNode(typ, dest)
	link.Title = title
	link.From, link.To = opener.Node.From, sp.source(n)
	parent.Wrap(i, parent.NumChildren(), link)
	extendLeaf(c, link.To)
	c.AdvanceTo(c.TokenAt(link.To))
	return true
}

func consumeEmphasis(c *context, tok parse.Token) bool {
	chars := "*_"
	if c.State.opts.Strikethrough {
		chars = "*_~"
	}
	if !isPunct(tok, chars) {
		return false
	}
	leaf := ensureInline(c, tok)
	n := 1
	for c.PeekAt(n).Kind == lex.Punct && c.PeekAt(n).Text == tok.Text {
		n++
	}
	from, to := tok.From, tok.From+n
	run := c.Source()[from:to]
	if tok.Text == "~" && n > 2 {
		addText(c, run, from, to)
		return true
	}
	c.MarkSource(to + 1)
	canOpen, canClose := delim.Roles(c.Source(), from, to, run[0])
	node := addText(c, run, from, to)
	c.State.delims.Push(&delim.Entry{
		Node: node, Parent: leaf, Char: run[0], Len: n, Remaining: n,
		CanOpen: canOpen, CanClose: canClose})
	return true
}

func consumeText(c *context, tok parse.Token) bool {
	if tok.Kind != lex.Text {
		return false
	}
	ensureInline(c, tok)
	addText(c, tok.Text, tok.From, tok.To)
	return true
}

// Whitespace within a line. Leading whitespace is skipped when entering a
// line and trailing whitespace is removed at its end.
func consumeWhitespace(c *context, tok parse.Token) bool {
	if tok.Kind != lex.Space {
		return false
	}
	ensureInline(c, tok)
	addText(c, tok.Text, tok.From, tok.To)
	return true
}

// Any punctuation not claimed by the consumers above is literal text.
func consumePunct(c *context, tok parse.Token) bool {
	if tok.Kind != lex.Punct {
		return false
	}
	ensureInline(c, tok)
	addText(c, tok.Text, tok.From, tok.To)
	return true
}

func findBacktickRun(s, run string, i int) int {
	for i < len(s) {
		j := strings.Index(s[i:], run)
		if j == -1 {
			return -1
		}
		j += i
		if j+len(run) == len(s) || s[j+len(run)] != '`' {
			return j
		}
		for j < len(s) && s[j] == '`' {
			j++
		}
		i = j
	}
	return -1
}

func normalizeCodeSpanContent(s string) string {
	s = codeSpanLineEndingRegexp.ReplaceAllString(s, " ")
	if len(s) > 1 && s[0] == ' ' && s[len(s)-1] == ' ' && strings.Trim(s, " ") != "" {
		return s[1 : len(s)-1]
	}
	return s
}
