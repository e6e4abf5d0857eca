package dom

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Element is a node of a Document.
type Element struct {
	doc       *Document
	node      *html.Node
	listeners map[string][]Listener

	// checked property; the attribute only supplies the default.
	checked      bool
	checkedDirty bool
}

// Node returns the underlying html node.
func (e *Element) Node() *html.Node { return e.node }

// Document returns the owning document.
func (e *Element) Document() *Document { return e.doc }

// Tag returns the lower-case tag name, or "" for non-element nodes.
func (e *Element) Tag() string {
	if e.node.Type != html.ElementNode {
		return ""
	}
	return e.node.Data
}

// QueryAll returns the descendants of e matching selector, in document order.
// The element itself is never part of the result.
func (e *Element) QueryAll(selector string) ([]*Element, error) {
	m, err := compile(selector)
	if err != nil {
		return nil, err
	}
	sel := e.selection().FindMatcher(m)
	out := make([]*Element, 0, len(sel.Nodes))
	for _, n := range sel.Nodes {
		out = append(out, e.doc.element(n))
	}
	return out, nil
}

// Matches reports whether the element matches selector.
func (e *Element) Matches(selector string) bool {
	m, err := compile(selector)
	if err != nil {
		return false
	}
	return m.Match(e.node)
}

// Connected reports whether the element is still part of its document's
// tree. Elements removed by SetInnerHTML on an ancestor are not.
func (e *Element) Connected() bool {
	root := e.doc.doc.Selection.Nodes[0]
	for n := e.node; n != nil; n = n.Parent {
		if n == root {
			return true
		}
	}
	return false
}

func (e *Element) selection() *goquery.Selection {
	root := e.doc.doc.Selection
	if len(root.Nodes) > 0 && root.Nodes[0] == e.node {
		return root
	}
	return root.FindNodes(e.node)
}

// Attributes

// Attr returns the value of the named attribute and whether it is present.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// AttrOr returns the named attribute or def when it is absent.
func (e *Element) AttrOr(name, def string) string {
	if v, ok := e.Attr(name); ok {
		return v
	}
	return def
}

// HasAttr reports whether the named attribute is present.
func (e *Element) HasAttr(name string) bool {
	_, ok := e.Attr(name)
	return ok
}

// SetAttr sets the named attribute, replacing any previous value.
func (e *Element) SetAttr(name, value string) {
	for i, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			e.node.Attr[i].Val = value
			return
		}
	}
	e.node.Attr = append(e.node.Attr, html.Attribute{Key: name, Val: value})
}

// RemoveAttr removes the named attribute if present.
func (e *Element) RemoveAttr(name string) {
	attrs := e.node.Attr[:0]
	for _, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			continue
		}
		attrs = append(attrs, a)
	}
	e.node.Attr = attrs
}

// Data returns the data-* attribute for key, e.g. Data("click-value") reads
// data-click-value. Missing attributes read as "".
func (e *Element) Data(key string) string {
	v, _ := e.Attr("data-" + key)
	return v
}

// Class list

// Classes returns the element's classes in attribute order.
func (e *Element) Classes() []string {
	return strings.Fields(e.AttrOr("class", ""))
}

// HasClass reports whether class is present.
func (e *Element) HasClass(class string) bool {
	for _, c := range e.Classes() {
		if c == class {
			return true
		}
	}
	return false
}

// AddClass adds class if it is not already present.
func (e *Element) AddClass(class string) {
	if e.HasClass(class) {
		return
	}
	e.SetAttr("class", strings.Join(append(e.Classes(), class), " "))
}

// RemoveClass removes every occurrence of class.
func (e *Element) RemoveClass(class string) {
	if !e.HasClass(class) {
		return
	}
	var keep []string
	for _, c := range e.Classes() {
		if c != class {
			keep = append(keep, c)
		}
	}
	e.SetAttr("class", strings.Join(keep, " "))
}

// ToggleClass adds class when on is true and removes it otherwise.
func (e *Element) ToggleClass(class string, on bool) {
	if on {
		e.AddClass(class)
	} else {
		e.RemoveClass(class)
	}
}
