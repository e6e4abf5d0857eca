package dom

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Document is a parsed HTML page.
type Document struct {
	doc      *goquery.Document
	elements map[*html.Node]*Element
}

// Parse reads an HTML document from r.
func Parse(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}
	return newDocument(doc), nil
}

// ParseString parses an HTML document from a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// FromNode wraps an already parsed tree.
func FromNode(root *html.Node) *Document {
	return newDocument(goquery.NewDocumentFromNode(root))
}

func newDocument(doc *goquery.Document) *Document {
	return &Document{
		doc:      doc,
		elements: make(map[*html.Node]*Element),
	}
}

// Root returns the document node wrapped as an element. Queries on the root
// cover the whole page.
func (d *Document) Root() *Element {
	return d.element(d.doc.Selection.Nodes[0])
}

// QueryAll returns every element in the document matching selector, in
// document order.
func (d *Document) QueryAll(selector string) ([]*Element, error) {
	return d.Root().QueryAll(selector)
}

// ByID returns the element with the given id attribute, or nil.
func (d *Document) ByID(id string) *Element {
	els, err := d.QueryAll(AttrSelector("id", id))
	if err != nil || len(els) == 0 {
		return nil
	}
	return els[0]
}

// HTML renders the current state of the document.
func (d *Document) HTML() (string, error) {
	var buf bytes.Buffer
	for _, n := range d.doc.Selection.Nodes {
		if err := html.Render(&buf, n); err != nil {
			return "", fmt.Errorf("dom: render: %w", err)
		}
	}
	return buf.String(), nil
}

// element returns the canonical wrapper for n.
func (d *Document) element(n *html.Node) *Element {
	if el, ok := d.elements[n]; ok {
		return el
	}
	el := &Element{doc: d, node: n}
	d.elements[n] = el
	return el
}

// forget drops wrappers for n and its descendants after they leave the tree.
func (d *Document) forget(n *html.Node) {
	delete(d.elements, n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		d.forget(c)
	}
}
