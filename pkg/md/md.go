// Package md parses Markdown into trees of [parse.Node], using the generic
// engine of package parse.
//
// The language is a chain of consumers. Block structure is recognized line
// by line: blockquotes, ATX and setext headings, thematic breaks, fenced and
// indented code blocks, and paragraphs. Inline content supports emphasis and
// strong emphasis, code spans, links and images, autolinks, raw HTML, entities,
// backslash escapes and hard line breaks, plus strikethrough with "~". Lists,
// HTML blocks and link reference definitions are not supported; their source
// becomes paragraphs.
//
// Parsing never fails. Problems are reported as diagnostics, and the tree
// always covers the whole input.
//
// The implementation follows the CommonMark spec in
// https://github.com/commonmark/commonmark-spec for the supported features.
package md

import (
	"slices"

	"src.marktree.dev/pkg/diag"
	"src.marktree.dev/pkg/logutil"
	"src.marktree.dev/pkg/md/ast"
	"src.marktree.dev/pkg/md/lex"
	"src.marktree.dev/pkg/parse"
)

var logger = logutil.GetLogger("marktree.md")

// Options selects optional syntax.
type Options struct {
	// Recognize "~text~" and "~~text~~".
	Strikethrough bool
	// Recognize "<scheme:...>" and "<user@host>".
	Autolinks bool
	// Recognize inline HTML tags, comments and similar.
	RawHTML bool
}

// DefaultOptions enables everything.
var DefaultOptions = Options{Strikethrough: true, Autolinks: true, RawHTML: true}

// Diagnostic types reported by the Markdown language, in addition to those of
// package parse.
const (
	ErrUnclosedFence = "unclosed code fence"
	ErrInternal      = "internal error"
)

// Result is the outcome of a parse.
type Result struct {
	// The Document node.
	Tree        *parse.Node
	Diagnostics []*diag.Error
	Stats       parse.Stats
}

// Parse parses text.
func Parse(text string, opts Options) Result {
	return NewSession("[input]", opts).Update(text)
}

// Session parses successive versions of one document, re-using the work done
// for the unchanged start of the text. A Session must not be used
// concurrently.
type Session struct {
	name   string
	parser *parse.Parser[*state]
	root   *parse.Node
}

// NewSession creates a Session. The name is used in diagnostics.
func NewSession(name string, opts Options) *Session {
	return &Session{
		name:   name,
		parser: parse.New(language(opts), parse.WithName(name)),
		root:   parse.NewNode(ast.Document, ""),
	}
}

// Update parses a new version of the document. The returned tree is the
// Session's own; it stays valid until the next call to Update.
func (s *Session) Update(text string) Result {
	tree, ctx := s.parser.Update(text, s.root)
	stats := s.parser.Stats()
	if stats.ResumedAt > 0 {
		logger.Debugf("%s: resumed at token %d of %d", s.name, stats.ResumedAt, stats.Tokens)
	}
	return Result{tree, slices.Clone(ctx.Diagnostics()), stats}
}

// Root returns the Document node of the Session.
func (s *Session) Root() *parse.Node { return s.root }

func language(opts Options) parse.Language[*state] {
	type consumer = parse.Consumer[*state]
	named := parse.Named[*state]
	consumers := []consumer{
		named("first-line", consumeFirstLine),
		named("line-stop", consumeLineStop),
		named("fenced-code", consumeFencedCode),
		named("code-line", consumeCodeLine),
		named("blank-line", consumeBlankLine),
		named("indented-code", consumeIndentedCode),
		named("atx-heading", consumeATXHeading),
		named("setext-underline", consumeSetextUnderline),
		named("thematic-break", consumeThematicBreak),
		named("line-end", consumeLineEnd),
		named("backslash-escape", consumeBackslash),
		named("entity", consumeEntity),
		named("code-span", consumeCodeSpan),
	}
	if opts.Autolinks {
		consumers = append(consumers, named("autolink", consumeAutolink))
	}
	if opts.RawHTML {
		consumers = append(consumers, named("raw-html", consumeRawHTML))
	}
	consumers = append(consumers,
		named("link-open", consumeLinkOpen),
		named("link-close", consumeLinkClose),
		named("emphasis", consumeEmphasis),
		named("text", consumeText),
		named("whitespace", consumeWhitespace),
		named("punctuation", consumePunct),
	)
	return parse.Language[*state]{
		Name:       "markdown",
		Tokenize:   lex.Tokenize,
		NewState:   func() *state { return newState(opts) },
		CloneState: (*state).clone,
		Consumers:  consumers,
		Finish:     finish,
		Resumable:  resumable,
		TokenName:  lex.KindName,
	}
}
