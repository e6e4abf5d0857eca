package binder

import (
	"strings"

	"github.com/vango-dev/surface/pkg/dom"
)

// Kind identifies a data-*-channel attribute.
type Kind int

// Attribute kinds in scan order. Interactive kinds come first.
const (
	KindButton Kind = iota
	KindCheckbox
	KindMCSA
	KindNumber
	KindRange
	KindSelect
	KindText
	KindActive
	KindDisabled
	KindHidden
	KindInvisible
	KindInnerHTML
	KindStyle

	numKinds
)

var kindNames = [numKinds]string{
	KindButton:    "button",
	KindCheckbox:  "checkbox",
	KindMCSA:      "mcsa",
	KindNumber:    "number",
	KindRange:     "range",
	KindSelect:    "select",
	KindText:      "text",
	KindActive:    "active",
	KindDisabled:  "disabled",
	KindHidden:    "hidden",
	KindInvisible: "invisible",
	KindInnerHTML: "inner-html",
	KindStyle:     "style",
}

// AllKinds returns every attribute kind in scan order.
func AllKinds() []Kind {
	out := make([]Kind, numKinds)
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}

// String returns the kind's short name, e.g. "inner-html".
func (k Kind) String() string {
	if !k.Valid() {
		return "unknown"
	}
	return kindNames[k]
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k >= 0 && k < numKinds
}

// Attribute returns the attribute name without the data- prefix,
// e.g. "range-channel".
func (k Kind) Attribute() string {
	return k.String() + "-channel"
}

// DataAttribute returns the full attribute name, e.g. "data-range-channel".
func (k Kind) DataAttribute() string {
	return "data-" + k.Attribute()
}

// ElementType returns the interactive type descriptor for k, or nil for
// update-only kinds.
func (k Kind) ElementType() *ElementType {
	if !k.Valid() {
		return nil
	}
	return elementTypes[k]
}

// ParseKind resolves "range", "range-channel" or "data-range-channel".
func ParseKind(s string) (Kind, bool) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "data-")
	s = strings.TrimSuffix(s, "-channel")
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return 0, false
}

// ElementType describes an interactive control: the events it is wired to
// and how the outgoing value is read.
type ElementType struct {
	Name        string
	Description string
	Events      []string

	// wire reports whether a listener for event belongs on el.
	wire func(el *dom.Element, event string) bool
	// value computes the outgoing value of an event.
	value func(el *dom.Element, ev *dom.Event) any
}

var elementTypes = [numKinds]*ElementType{
	KindCheckbox: {
		Name:        "checkbox",
		Description: "Checkbox or radio button reporting its checked state",
		Events:      []string{"change"},
		value:       checkedValue,
	},
	KindMCSA: {
		Name: "mcsa",
		Description: "Checkboxes or radio buttons sharing one channel; the checked " +
			"element's value is sent instead of its checked state",
		Events: []string{"change"},
		value: func(el *dom.Element, ev *dom.Event) any {
			if v := el.Value(); v != "" {
				return v
			}
			return el.Checked()
		},
	},
	KindText: {
		Name:        "text",
		Description: "Text input",
		Events:      []string{"change"},
		value:       elementValue,
	},
	KindNumber: {
		Name:        "number",
		Description: "Number input",
		Events:      []string{"change"},
		value:       elementValue,
	},
	KindRange: {
		Name:        "range",
		Description: "Range input; sends while dragging and on release",
		Events:      []string{"change", "input"},
		value:       elementValue,
	},
	KindSelect: {
		Name:        "select",
		Description: "Select element with predefined options",
		Events:      []string{"change"},
		value:       elementValue,
	},
	KindButton: {
		Name:        "button",
		Description: "Button sending data-<event>-value for each configured event",
		Events:      []string{"click", "pointerdown", "pointerup"},
		wire: func(el *dom.Element, event string) bool {
			return el.Data(event+"-value") != ""
		},
		value: func(el *dom.Element, ev *dom.Event) any {
			return ev.CurrentTarget.Data(ev.Type + "-value")
		},
	},
}

// ElementTypes returns the interactive type descriptors in table order.
func ElementTypes() []ElementType {
	order := []Kind{KindCheckbox, KindMCSA, KindText, KindNumber, KindRange, KindSelect, KindButton}
	out := make([]ElementType, 0, len(order))
	for _, k := range order {
		out = append(out, *elementTypes[k])
	}
	return out
}

func (t *ElementType) wires(el *dom.Element, event string) bool {
	if t.wire == nil {
		return true
	}
	return t.wire(el, event)
}

func checkedValue(el *dom.Element, _ *dom.Event) any { return el.Checked() }

func elementValue(el *dom.Element, _ *dom.Event) any { return el.Value() }
