package parse

import (
	"fmt"

	"src.marktree.dev/pkg/diag"
)

// TokenKind classifies a token. Each language defines its own closed set of
// kinds; the zero value is reserved for EOF.
type TokenKind uint8

// EOF is the kind of the sentinel token that ends every token stream.
const EOF TokenKind = 0

// Token is a classified lexical unit with its literal text and source range.
// Tokens are values and never mutated after tokenizing.
type Token struct {
	Kind TokenKind
	Text string
	diag.Ranging
}

// EOFToken returns the end-of-input sentinel for the given source.
func EOFToken(src string) Token {
	return Token{Kind: EOF, Ranging: diag.PointRanging(len(src))}
}

// Same reports whether two tokens have the same kind and text. Ranges are not
// compared.
func (t Token) Same(u Token) bool {
	return t.Kind == u.Kind && t.Text == u.Text
}

func (t Token) String() string {
	return fmt.Sprintf("%d%q@%d", t.Kind, t.Text, t.From)
}

// CommonPrefix returns the number of leading tokens that a and b share.
func CommonPrefix(a, b []Token) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if !a[i].Same(b[i]) {
			return i
		}
	}
	return n
}

// Tokenizer turns source text into tokens. It must be total and pure, and the
// returned slice must end with exactly one EOF token.
type Tokenizer func(src string) []Token
