// Package govspeak renders the markdown dialect used by rich-text edition fields
// and extracts plain text from it for search indexing.
package govspeak

import (
	"strings"

	"gitlab.com/golang-commonmark/markdown"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var parser = markdown.New(markdown.HTML(true), markdown.Linkify(false), markdown.MaxNesting(10))

// ToHTML renders govspeak source to HTML. Raw HTML in the source is passed through.
func ToHTML(src string) string {
	if strings.TrimSpace(src) == "" {
		return ""
	}
	return parser.RenderToString([]byte(src))
}

// ToText renders src and returns its text content with whitespace collapsed.
func ToText(src string) string {
	return HTMLToText(ToHTML(src))
}

// HTMLToText returns the text nodes of an HTML fragment, block elements separated by a space.
// Script and style content is dropped.
func HTMLToText(fragment string) string {
	tokenizer := html.NewTokenizerFragment(strings.NewReader(fragment), "body")

	var b strings.Builder
	var skip int

	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			break // io.EOF or a malformed tail; either way the text so far is kept
		}

		switch tt {
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			a := atom.Lookup(name)
			if a == atom.Script || a == atom.Style {
				skip++
			}
			if isBlock(a) {
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			a := atom.Lookup(name)
			if (a == atom.Script || a == atom.Style) && skip > 0 {
				skip--
			}
			if isBlock(a) {
				b.WriteByte(' ')
			}
		case html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			if isBlock(atom.Lookup(name)) {
				b.WriteByte(' ')
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(tokenizer.Text())
			}
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Br, atom.Li, atom.Ul, atom.Ol, atom.Blockquote, atom.Pre,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Tr, atom.Td, atom.Th,
		atom.Table, atom.Hr, atom.Section, atom.Article:
		return true
	}
	return false
}
