package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Value returns the element's current form value the way a browser reports
// element.value:
//   - checkbox and radio inputs without a value attribute report "on"
//   - select reports the value of its selected option (or the first option)
//   - textarea reports its text content
//   - everything else reports its value attribute, or ""
func (e *Element) Value() string {
	switch e.Tag() {
	case "input":
		if v, ok := e.Attr("value"); ok {
			return v
		}
		switch strings.ToLower(e.AttrOr("type", "")) {
		case "checkbox", "radio":
			return "on"
		}
		return ""
	case "select":
		opts := e.options()
		for _, o := range opts {
			if o.HasAttr("selected") {
				return o.optionValue()
			}
		}
		if len(opts) > 0 {
			return opts[0].optionValue()
		}
		return ""
	case "textarea":
		return e.Text()
	default:
		return e.AttrOr("value", "")
	}
}

// SetValue assigns the element's form value. For a select the matching
// option becomes selected and every other option is deselected.
func (e *Element) SetValue(v string) {
	switch e.Tag() {
	case "select":
		for _, o := range e.options() {
			if o.optionValue() == v {
				o.SetAttr("selected", "")
			} else {
				o.RemoveAttr("selected")
			}
		}
	case "textarea":
		e.SetText(v)
	default:
		e.SetAttr("value", v)
	}
}

// Checked reports the element's checkedness. Until SetChecked is called it
// follows the checked attribute; afterwards the property wins, as in a
// browser once the user has toggled the control.
func (e *Element) Checked() bool {
	if e.checkedDirty {
		return e.checked
	}
	return e.HasAttr("checked")
}

// SetChecked sets the checked property. The checked attribute is left alone.
func (e *Element) SetChecked(on bool) {
	e.checkedDirty = true
	e.checked = on
}

func (e *Element) options() []*Element {
	var out []*Element
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.Data {
			case "option":
				out = append(out, e.doc.element(c))
			case "optgroup":
				walk(c)
			}
		}
	}
	walk(e.node)
	return out
}

func (e *Element) optionValue() string {
	if v, ok := e.Attr("value"); ok {
		return v
	}
	return strings.TrimSpace(e.Text())
}
