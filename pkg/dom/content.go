package dom

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// Text returns the concatenated text content of the element.
func (e *Element) Text() string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(e.node)
	return b.String()
}

// SetText replaces the element's children with a single text node.
func (e *Element) SetText(text string) {
	e.clearChildren()
	e.node.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// InnerHTML renders the element's children.
func (e *Element) InnerHTML() string {
	var buf bytes.Buffer
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return buf.String()
		}
	}
	return buf.String()
}

// SetInnerHTML replaces the element's children with the parsed markup.
// The markup is trusted verbatim; nothing is sanitised.
func (e *Element) SetInnerHTML(markup string) {
	e.clearChildren()
	e.selection().SetHtml(markup)
}

func (e *Element) clearChildren() {
	for c := e.node.FirstChild; c != nil; c = e.node.FirstChild {
		e.node.RemoveChild(c)
		e.doc.forget(c)
	}
}
