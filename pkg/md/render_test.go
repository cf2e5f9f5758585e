package md

import (
	"fmt"
	"strings"

	"src.marktree.dev/pkg/md/ast"
	"src.marktree.dev/pkg/parse"
)

// There are different ways to escape HTML and URLs. The CommonMark spec does
// not specify any particular way, but the spec tests do assume a certain one.
// The schemes below are chosen to match the spec tests.
var (
	escapeHTML = strings.NewReplacer(
		"&", "&amp;", `"`, "&quot;", "<", "&lt;", ">", "&gt;",
		// No need to escape single quotes, since attributes in the output
		// always use double quotes.
	).Replace
	escapeURL = strings.NewReplacer(
		`"`, "%22", `\`, "%5C", " ", "%20", "`", "%60",
		"[", "%5B", "]", "%5D", "<", "%3C", ">", "%3E",
		"ö", "%C3%B6",
		"ä", "%C3%A4", " ", "%C2%A0").Replace
)

// RenderHTML renders a tree produced by this package as HTML, for comparing
// trees with other CommonMark implementations.
func RenderHTML(n *parse.Node) string {
	var sb strings.Builder
	renderHTML(&sb, n)
	return sb.String()
}

var htmlTags = map[parse.NodeType][2]string{
	ast.Paragraph:     {"<p>", "</p>\n"},
	ast.Blockquote:    {"<blockquote>\n", "</blockquote>\n"},
	ast.Emphasis:      {"<em>", "</em>"},
	ast.Strong:        {"<strong>", "</strong>"},
	ast.Strikethrough: {"<del>", "</del>"},
}

func renderHTML(sb *strings.Builder, n *parse.Node) {
	switch n.Type {
	case ast.Document:
		renderChildrenHTML(sb, n)
	case ast.Heading:
		fmt.Fprintf(sb, "<h%s>", n.Value)
		renderChildrenHTML(sb, n)
		fmt.Fprintf(sb, "</h%s>\n", n.Value)
	case ast.ThematicBreak:
		sb.WriteString("<hr />\n")
	case ast.CodeBlock:
		var attrs attrBuilder
		if n.Value != "" {
			language, _, _ := strings.Cut(n.Value, " ")
			attrs.set("class", "language-"+language)
		}
		fmt.Fprintf(sb, "<pre><code%s>", &attrs)
		sb.WriteString(escapeHTML(n.Child(0).Value))
		sb.WriteString("</code></pre>\n")
	case ast.Text:
		sb.WriteString(escapeHTML(n.Value))
	case ast.CodeSpan:
		sb.WriteString("<code>")
		sb.WriteString(escapeHTML(n.Value))
		sb.WriteString("</code>")
	case ast.RawHTML:
		sb.WriteString(n.Value)
	case ast.Link, ast.Autolink:
		var attrs attrBuilder
		attrs.set("href", escapeURL(n.Value))
		if n.Title != "" {
			attrs.set("title", n.Title)
		}
		fmt.Fprintf(sb, "<a%s>", &attrs)
		renderChildrenHTML(sb, n)
		sb.WriteString("</a>")
	case ast.Image:
		var attrs attrBuilder
		attrs.set("src", escapeURL(n.Value))
		attrs.set("alt", ast.PlainText(n))
		if n.Title != "" {
			attrs.set("title", n.Title)
		}
		fmt.Fprintf(sb, "<img%s />", &attrs)
	case ast.SoftBreak:
		sb.WriteByte('\n')
	case ast.HardBreak:
		sb.WriteString("<br />\n")
	default:
		tags, ok := htmlTags[n.Type]
		if !ok {
			renderChildrenHTML(sb, n)
			return
		}
		sb.WriteString(tags[0])
		renderChildrenHTML(sb, n)
		sb.WriteString(tags[1])
	}
}

func renderChildrenHTML(sb *strings.Builder, n *parse.Node) {
	for _, ch := range n.Children() {
		renderHTML(sb, ch)
	}
}

type attrBuilder struct{ strings.Builder }

func (a *attrBuilder) set(k, v string) { fmt.Fprintf(a, ` %s="%s"`, k, escapeHTML(v)) }
