package parse

import (
	"fmt"
	"sort"

	"src.marktree.dev/pkg/diag"
)

// Context is the mutable state of one parse. It is threaded through every
// consumer call and is the only place parse state lives.
//
// S is the language-specific state, such as a stack of open delimiters.
type Context[S any] struct {
	// The node new children are attached to.
	Current *Node
	// Language-specific state.
	State S

	name    string
	source  string
	root    *Node
	tokens  []Token
	pos     int
	horizon int
	diags   []*diag.Error
}

func newContext[S any](name, source string, tokens []Token, root *Node, state S) *Context[S] {
	return &Context[S]{
		Current: root, State: state,
		name: name, source: source, root: root, tokens: tokens, horizon: -1,
	}
}

// Name returns the name of the source, used in diagnostics.
func (c *Context[S]) Name() string { return c.name }

// Source returns the full source text.
func (c *Context[S]) Source() string { return c.source }

// Root returns the root node of the tree being built.
func (c *Context[S]) Root() *Node { return c.root }

// Pos returns the index of the current token.
func (c *Context[S]) Pos() int { return c.pos }

// Len returns the number of tokens, including the EOF token.
func (c *Context[S]) Len() int { return len(c.tokens) }

// Peek returns the current token.
func (c *Context[S]) Peek() Token { return c.PeekAt(0) }

// PeekAt returns the token at the given offset from the current one. Offsets
// past the end yield the EOF token.
func (c *Context[S]) PeekAt(offset int) Token {
	return c.Token(c.pos + offset)
}

// Token returns the token at an absolute index. Indices past the end yield
// the EOF token.
func (c *Context[S]) Token(i int) Token {
	if i >= len(c.tokens) {
		i = len(c.tokens) - 1
	}
	if i > c.horizon {
		c.horizon = i
	}
	return c.tokens[i]
}

// Advance moves the cursor forward by n tokens, stopping at the EOF token.
func (c *Context[S]) Advance(n int) {
	if n < 0 {
		panic("parse: cursor cannot move backwards")
	}
	c.pos = min(c.pos+n, len(c.tokens)-1)
}

// AdvanceTo moves the cursor to the token with the given index. Indices at or
// before the cursor are ignored.
func (c *Context[S]) AdvanceTo(i int) {
	if i > c.pos {
		c.Advance(i - c.pos)
	}
}

// MarkSource records that a consumer has looked at the source text up to (but
// not including) the given byte offset. Consumers that inspect the source
// text directly instead of through tokens must call it so that incremental
// parsing knows which tokens the result depends on.
func (c *Context[S]) MarkSource(offset int) {
	i := sort.Search(len(c.tokens), func(i int) bool {
		return c.tokens[i].To >= offset
	})
	if i >= len(c.tokens) {
		i = len(c.tokens) - 1
	}
	if i > c.horizon {
		c.horizon = i
	}
}

// TokenAt returns the index of the token that contains the given byte offset.
func (c *Context[S]) TokenAt(offset int) int {
	i := sort.Search(len(c.tokens), func(i int) bool {
		return c.tokens[i].To > offset
	})
	return min(i, len(c.tokens)-1)
}

// Diagnostics returns the diagnostics reported so far.
func (c *Context[S]) Diagnostics() []*diag.Error { return c.diags }

// Report appends a diagnostic of the given type at the given range. A nil
// range yields a diagnostic without position.
func (c *Context[S]) Report(typ string, r diag.Ranger, format string, args ...any) {
	err := &diag.Error{Type: typ, Message: fmt.Sprintf(format, args...)}
	if r != nil && r.Range().Known() {
		err.Context = diag.NewContext(c.name, c.source, r)
	}
	c.diags = append(c.diags, err)
}
