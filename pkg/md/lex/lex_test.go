package lex

import (
	"fmt"
	"strings"
	"testing"
	"testing/quick"

	"src.marktree.dev/pkg/parse"
	"src.marktree.dev/pkg/tt"
)

// Renders tokens as kind"text" pairs, leaving out the EOF token.
func kinds(src string) string {
	var parts []string
	for _, tok := range Tokenize(src) {
		if tok.Kind == parse.EOF {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s%q", KindName(tok.Kind), tok.Text))
	}
	return strings.Join(parts, " ")
}

func TestTokenize(t *testing.T) {
	tt.Test(t, tt.Fn("kinds", kinds), tt.Table{
		tt.Args("").Rets(""),
		tt.Args("foo bar").Rets(`text"foo" space" " text"bar"`),
		tt.Args("**a**").Rets(
			`punctuation"*" punctuation"*" text"a" punctuation"*" punctuation"*"`),
		tt.Args("a \t\nb\r\nc\rd").Rets(
			`text"a" space" \t" newline"\n" text"b" newline"\r\n" text"c" newline"\r" text"d"`),
		tt.Args("héllo, 世界").Rets(`text"héllo" punctuation"," space" " text"世界"`),
		tt.Args("a\xff\xfeb").Rets(`text"a" invalid UTF-8"\xff\xfe" text"b"`),
		tt.Args("1. x").Rets(`text"1" punctuation"." space" " text"x"`),
	})
}

func TestTokenize_CoversSource(t *testing.T) {
	f := func(src string) bool {
		tokens := Tokenize(src)
		if len(tokens) == 0 || tokens[len(tokens)-1].Kind != parse.EOF {
			return false
		}
		pos := 0
		for _, tok := range tokens[:len(tokens)-1] {
			if tok.Kind == parse.EOF || tok.From != pos || tok.To <= tok.From ||
				src[tok.From:tok.To] != tok.Text {
				return false
			}
			pos = tok.To
		}
		last := tokens[len(tokens)-1]
		return pos == len(src) && last.From == len(src) && last.To == len(src)
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestIsASCIIPunct(t *testing.T) {
	const punct = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"
	for b := 0; b < 128; b++ {
		want := strings.IndexByte(punct, byte(b)) >= 0
		if got := IsASCIIPunct(byte(b)); got != want {
			t.Errorf("IsASCIIPunct(%q) = %v, want %v", b, got, want)
		}
	}
}
