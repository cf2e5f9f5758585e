package delim

import (
	"unicode"
	"unicode/utf8"

	"src.marktree.dev/pkg/md/lex"
)

// Flanking reports whether the delimiter run source[from:to] is left-flanking
// and right-flanking. The beginning and end of source count as whitespace.
func Flanking(source string, from, to int) (left, right bool) {
	next, lNext := utf8.DecodeRuneInString(source[to:])
	prev, lPrev := utf8.DecodeLastRuneInString(source[:from])
	nextSpace := lNext == 0 || unicode.IsSpace(next)
	prevSpace := lPrev == 0 || unicode.IsSpace(prev)
	left = !nextSpace && (!isPunct(next) || prevSpace || isPunct(prev))
	right = !prevSpace && (!isPunct(prev) || nextSpace || isPunct(next))
	return left, right
}

// Roles returns whether the delimiter run source[from:to] of char c can open
// and close emphasis. Underscores are stricter inside words.
func Roles(source string, from, to int, c byte) (canOpen, canClose bool) {
	left, right := Flanking(source, from, to)
	if c != '_' {
		return left, right
	}
	prev, lPrev := utf8.DecodeLastRuneInString(source[:from])
	next, lNext := utf8.DecodeRuneInString(source[to:])
	canOpen = left && (!right || (lPrev > 0 && isPunct(prev)))
	canClose = right && (!left || (lNext > 0 && isPunct(next)))
	return canOpen, canClose
}

// CommonMark counts ASCII symbols such as "$" as punctuation, and all of
// Unicode's P and S categories.
func isPunct(r rune) bool {
	if r < utf8.RuneSelf {
		return lex.IsASCIIPunct(byte(r))
	}
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}
