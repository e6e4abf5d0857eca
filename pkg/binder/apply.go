package binder

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/vango-dev/surface/pkg/dom"
)

// applyFunc mutates one bound element for an inbound value. It reports
// whether the element was touched.
type applyFunc func(b *Binder, el *dom.Element, channel string, value any) bool

var appliers = [numKinds]applyFunc{
	KindButton:    nil,
	KindCheckbox:  applyCheckbox,
	KindMCSA:      applyMCSA,
	KindNumber:    applyValue,
	KindRange:     applyValue,
	KindSelect:    applyValue,
	KindText:      applyValue,
	KindActive:    applyActive,
	KindDisabled:  applyDisabled,
	KindHidden:    applyHidden,
	KindInvisible: applyInvisible,
	KindInnerHTML: applyInnerHTML,
	KindStyle:     applyStyle,
}

// ApplyUpdate reflects a channel value in the document. OnUpdate is called
// first, for every update. Channels no element binds are logged and left
// alone; otherwise every element bound to channel is updated according to
// its kind. Elements are looked up afresh, so content injected since the
// last scan is included.
func (b *Binder) ApplyUpdate(channel string, value any) {
	b.logger.Debug("update", "channel", channel, "value", value)
	if b.opts.OnUpdate != nil {
		b.opts.OnUpdate(channel, value)
	}

	kinds, ok := b.index[channel]
	if !ok {
		b.logger.Debug("channel not registered", "channel", channel)
		b.metrics.UpdateUnbound()
		return
	}

	var injected []*dom.Element
	// A rescan during application may extend the index entry.
	for _, kind := range slices.Clone(kinds) {
		apply := appliers[kind]
		if apply == nil {
			continue
		}
		els, err := b.doc.QueryAll(dom.AttrSelector(kind.DataAttribute(), channel))
		if err != nil {
			b.logger.Error("query failed", "attribute", kind.DataAttribute(), "channel", channel, "error", err)
			continue
		}
		for _, el := range els {
			if !apply(b, el, channel, value) {
				continue
			}
			b.metrics.UpdateApplied(kind.String())
			if kind == KindInnerHTML {
				injected = append(injected, el)
			}
		}
	}

	if !b.opts.AutoRescan {
		return
	}
	for _, el := range injected {
		if !el.Connected() {
			continue
		}
		found := b.Rescan(el)
		if len(found) > 0 && b.opts.OnChannels != nil {
			b.opts.OnChannels(found)
		}
	}
}

// applyCheckbox sets the checked attribute from the element's own value,
// not from the update. A checkbox with a non-empty value attribute (or none,
// which reads as "on") is always marked.
func applyCheckbox(_ *Binder, el *dom.Element, _ string, _ any) bool {
	if el.Value() != "" {
		el.SetAttr("checked", "true")
	} else {
		el.RemoveAttr("checked")
	}
	return true
}

func applyMCSA(_ *Binder, el *dom.Element, _ string, value any) bool {
	s, ok := value.(string)
	match := ok && el.Value() == s
	if match {
		el.SetAttr("checked", "true")
	} else {
		el.RemoveAttr("checked")
	}
	el.SetChecked(match)
	return true
}

func applyValue(_ *Binder, el *dom.Element, _ string, value any) bool {
	el.SetValue(dom.Stringify(value))
	return true
}

func applyActive(_ *Binder, el *dom.Element, _ string, value any) bool {
	el.ToggleClass("active", matches(el, "active-value", value))
	return true
}

func applyDisabled(_ *Binder, el *dom.Element, _ string, value any) bool {
	if matches(el, "disabled-value", value) {
		el.SetAttr("disabled", "true")
	} else {
		el.RemoveAttr("disabled")
	}
	return true
}

func applyHidden(_ *Binder, el *dom.Element, _ string, value any) bool {
	if matches(el, "hidden-value", value) {
		el.SetAttr("hidden", "true")
		el.AddClass("hidden")
	} else {
		el.RemoveAttr("hidden")
		el.RemoveClass("hidden")
	}
	return true
}

func applyInvisible(_ *Binder, el *dom.Element, _ string, value any) bool {
	el.ToggleClass("invisible", matches(el, "invisible-value", value))
	return true
}

func applyInnerHTML(_ *Binder, el *dom.Element, _ string, value any) bool {
	el.SetInnerHTML(dom.Stringify(value))
	return true
}

// applyStyle applies a JSON object of style properties in the order they
// appear. The payload must be a string holding a valid object; otherwise
// nothing changes.
func applyStyle(b *Binder, el *dom.Element, channel string, value any) bool {
	text, ok := value.(string)
	if !ok {
		b.logger.Warn("error parsing style value object",
			"channel", channel,
			"error", errStyleNotString)
		b.metrics.StyleError()
		return false
	}
	props, err := decodeStyle(text)
	if err != nil {
		b.logger.Warn("error parsing style value object",
			"channel", channel,
			"error", err)
		b.metrics.StyleError()
		return false
	}
	for _, p := range props {
		el.SetStyle(p.name, p.value)
	}
	return len(props) > 0
}

var (
	errStyleNotObject = errors.New("style value is not a JSON object")
	errStyleNotString = errors.New("style value is not a string")
)

type styleProp struct {
	name, value string
}

// decodeStyle reads the properties of a flat JSON object in document order.
// Nested objects and arrays are skipped; null yields an empty value, which
// clears the property.
func decodeStyle(text string) ([]styleProp, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errStyleNotObject
	}

	var props []styleProp
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		switch v.(type) {
		case map[string]any, []any:
			continue
		}
		props = append(props, styleProp{name: name, value: dom.Stringify(v)})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after style object")
	}
	return props, nil
}

// matches reports whether el has data-<key> and it equals value. Only
// string values can match.
func matches(el *dom.Element, key string, value any) bool {
	want, ok := el.Attr("data-" + key)
	if !ok {
		return false
	}
	s, ok := value.(string)
	return ok && s == want
}
