package dom

import (
	"strings"
	"unicode"
)

type declaration struct {
	name  string
	value string
}

// Style returns the inline value of a style property. The property may be
// given in script form ("fontSize") or CSS form ("font-size").
func (e *Element) Style(prop string) string {
	name := cssName(prop)
	for _, d := range e.declarations() {
		if d.name == name {
			return d.value
		}
	}
	return ""
}

// SetStyle sets an inline style property. An empty value removes it, like
// assigning "" to element.style[prop] in a browser.
func (e *Element) SetStyle(prop, value string) {
	name := cssName(prop)
	if name == "" {
		return
	}
	decls := e.declarations()
	out := decls[:0]
	found := false
	for _, d := range decls {
		if d.name != name {
			out = append(out, d)
			continue
		}
		if value != "" && !found {
			out = append(out, declaration{name: name, value: value})
		}
		found = true
	}
	if !found && value != "" {
		out = append(out, declaration{name: name, value: value})
	}
	e.writeDeclarations(out)
}

func (e *Element) declarations() []declaration {
	raw, ok := e.Attr("style")
	if !ok {
		return nil
	}
	var out []declaration
	for _, part := range strings.Split(raw, ";") {
		name, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		out = append(out, declaration{name: name, value: strings.TrimSpace(value)})
	}
	return out
}

func (e *Element) writeDeclarations(decls []declaration) {
	if len(decls) == 0 {
		e.RemoveAttr("style")
		return
	}
	parts := make([]string, len(decls))
	for i, d := range decls {
		parts[i] = d.name + ": " + d.value + ";"
	}
	e.SetAttr("style", strings.Join(parts, " "))
}

// cssName maps a script-style property name to its CSS name:
// "fontSize" -> "font-size", "cssFloat" -> "float", "WebkitTransform" ->
// "-webkit-transform". Names already in CSS form pass through.
func cssName(prop string) string {
	prop = strings.TrimSpace(prop)
	if prop == "cssFloat" {
		return "float"
	}
	if strings.HasPrefix(prop, "--") {
		return prop
	}
	var b strings.Builder
	for i, r := range prop {
		if unicode.IsUpper(r) {
			if i > 0 || isVendorPrefix(prop) {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isVendorPrefix(prop string) bool {
	for _, p := range []string{"Webkit", "Moz", "O", "Ms"} {
		if strings.HasPrefix(prop, p) && len(prop) > len(p) && unicode.IsUpper(rune(prop[len(p)])) {
			return true
		}
	}
	return false
}
