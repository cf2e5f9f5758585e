package md_test

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	. "src.marktree.dev/pkg/md"
)

// Inputs whose rendering must agree with goldmark, a CommonMark-compliant
// implementation. They stay within the features both support.
var oracleInputs = []string{
	"*foo bar*",
	"a * foo bar*",
	"_foo_bar",
	"foo-_(bar)_",
	"*foo**bar**baz*",
	"*foo**bar*",
	"***foo***",
	"foo***bar***baz",
	"foo******bar*********baz",
	"**foo *bar* baz**",
	"*foo *bar**",
	"**foo*",
	"*foo**",
	"*(*foo*)*",
	"_(_foo_)_",
	"__foo, __bar__, baz__",
	"**foo \"*bar*\" foo**",
	"*foo _bar* baz_",
	"**a<http://foo.bar/?q=**>",
	"~~foo~~ bar",
	"~~*foo*~~",
	"`code` *em* `*not*`",
	"[*a*](/b) *[c](/d)*",
	"*[a*](/b)",
	"# *h* #\n\ntext *x*\n",
	"> *q*\n> **r**\n",
	"para *one\ntwo*\n\n- - -\n\n```sh\necho *x*\n```\n",
	"foo  \nbar\\\nbaz\n",
	"Title *x*\n---\n",
	"~~~~&amp;`\n~~~~\n",
	"~~~ \\_x &#42;y\n~~~\n",
	"> `\n(/u) \\]`",
	"> a `b\n> c` d\n",
	"> [a](/u\n> \"t\")\n",
	"> `a\n>> b`\n",
}

func goldmarkHTML(t *testing.T, src string) string {
	t.Helper()
	gm := goldmark.New(
		goldmark.WithExtensions(extension.Strikethrough),
		goldmark.WithRendererOptions(gmhtml.WithXHTML()))
	var buf bytes.Buffer
	if err := gm.Convert([]byte(src), &buf); err != nil {
		t.Fatalf("goldmark: %v", err)
	}
	return buf.String()
}

func TestParse_AgreesWithGoldmark(t *testing.T) {
	for _, src := range oracleInputs {
		want := goldmarkHTML(t, src)
		got := RenderHTML(Parse(src, DefaultOptions).Tree)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("input %q\ndiff (-goldmark +got):\n%s", src, diff)
		}
	}
}
