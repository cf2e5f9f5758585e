package md_test

import (
	"testing"

	. "src.marktree.dev/pkg/md"
	"src.marktree.dev/pkg/md/ast"
	"src.marktree.dev/pkg/parse"
	"src.marktree.dev/pkg/tt"
)

func TestRenderHTML_Escaping(t *testing.T) {
	tt.Test(t, tt.Fn("html", html), tt.Table{
		tt.Args(`a "b" & <c`).Rets("<p>a &quot;b&quot; &amp; &lt;c</p>\n"),
		tt.Args("```\n<tag> & \"q\"\n```").Rets(
			"<pre><code>&lt;tag&gt; &amp; &quot;q&quot;\n</code></pre>\n"),
		tt.Args("```js extra words\nx\n```").Rets(
			"<pre><code class=\"language-js\">x\n</code></pre>\n"),
		tt.Args(`[a](/ö "x&y")`).Rets("<p><a href=\"/%C3%B6\" title=\"x&amp;y\">a</a></p>\n"),
		tt.Args(`![a "b"](/i "t")`).Rets("<p><img src=\"/i\" alt=\"a &quot;b&quot;\" title=\"t\" /></p>\n"),
	})
}

func TestRenderHTML_HandBuiltTree(t *testing.T) {
	doc := parse.NewNode(ast.Document, "")
	p := parse.NewNode(ast.Paragraph, "")
	doc.AddChild(p)
	strike := parse.NewNode(ast.Strikethrough, "")
	strike.AddChild(parse.NewNode(ast.Text, "x"))
	p.AddChild(strike)
	p.AddChild(parse.NewNode(ast.RawHTML, "<br>"))
	if got, want := RenderHTML(doc), "<p><del>x</del><br></p>\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
