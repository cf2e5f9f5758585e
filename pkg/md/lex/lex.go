// Package lex splits Markdown source into tokens.
//
// The tokens are deliberately small: every ASCII punctuation character is a
// token of its own, so that consumers can recognize markers such as "**" or
// "```" by looking at consecutive tokens. Everything else is grouped into runs
// of text, runs of spaces and tabs, and line endings.
package lex

import (
	"unicode/utf8"

	"src.marktree.dev/pkg/diag"
	"src.marktree.dev/pkg/parse"
)

// Token kinds.
const (
	// A run of characters that are neither ASCII punctuation nor whitespace.
	Text parse.TokenKind = iota + 1
	// A run of spaces and tabs.
	Space
	// A line ending: "\n", "\r\n" or "\r".
	Newline
	// A single ASCII punctuation character.
	Punct
	// A run of bytes that are not valid UTF-8.
	Invalid
)

var kindNames = [...]string{
	parse.EOF: "end of input",
	Text:      "text",
	Space:     "space",
	Newline:   "newline",
	Punct:     "punctuation",
	Invalid:   "invalid UTF-8",
}

// KindName returns a human-readable name of a token kind.
func KindName(k parse.TokenKind) string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Tokenize splits src into tokens. The result always ends with a single EOF
// token, and the ranges of the tokens before it cover src without gaps.
func Tokenize(src string) []parse.Token {
	tokens := make([]parse.Token, 0, len(src)/4+1)
	emit := func(k parse.TokenKind, from, to int) {
		tokens = append(tokens, parse.Token{
			Kind: k, Text: src[from:to], Ranging: diag.Ranging{From: from, To: to}})
	}
	for i := 0; i < len(src); {
		b := src[i]
		switch {
		case b == ' ' || b == '\t':
			j := i + 1
			for j < len(src) && (src[j] == ' ' || src[j] == '\t') {
				j++
			}
			emit(Space, i, j)
			i = j
		case b == '\n':
			emit(Newline, i, i+1)
			i++
		case b == '\r':
			j := i + 1
			if j < len(src) && src[j] == '\n' {
				j++
			}
			emit(Newline, i, j)
			i = j
		case IsASCIIPunct(b):
			emit(Punct, i, i+1)
			i++
		case b >= utf8.RuneSelf && !validAt(src, i):
			j := i + 1
			for j < len(src) && src[j] >= utf8.RuneSelf && !validAt(src, j) {
				j++
			}
			emit(Invalid, i, j)
			i = j
		default:
			j := i
			for j < len(src) && isTextByte(src, j) {
				if src[j] < utf8.RuneSelf {
					j++
				} else {
					_, n := utf8.DecodeRuneInString(src[j:])
					j += n
				}
			}
			emit(Text, i, j)
			i = j
		}
	}
	return append(tokens, parse.EOFToken(src))
}

func validAt(src string, i int) bool {
	r, n := utf8.DecodeRuneInString(src[i:])
	return !(r == utf8.RuneError && n == 1)
}

func isTextByte(src string, i int) bool {
	switch b := src[i]; {
	case b == ' ' || b == '\t' || b == '\n' || b == '\r':
		return false
	case b < utf8.RuneSelf:
		return !IsASCIIPunct(b)
	default:
		return validAt(src, i)
	}
}

// IsASCIIPunct reports whether b is one of the ASCII punctuation characters
// of CommonMark.
func IsASCIIPunct(b byte) bool {
	switch {
	case '!' <= b && b <= '/', ':' <= b && b <= '@', '[' <= b && b <= '`', '{' <= b && b <= '~':
		return true
	}
	return false
}
