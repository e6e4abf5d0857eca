package dom

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	lru "github.com/hashicorp/golang-lru/v2"
)

// selectorCacheSize bounds the compiled selector cache. A surface issues one
// presence selector per attribute kind plus one equality selector per bound
// (kind, channel) pair.
const selectorCacheSize = 1024

var selectorCache *lru.Cache[string, cascadia.Selector]

func init() {
	c, err := lru.New[string, cascadia.Selector](selectorCacheSize)
	if err != nil {
		panic(fmt.Sprintf("dom: selector cache: %v", err))
	}
	selectorCache = c
}

// compile returns the compiled form of selector, reusing earlier compilations.
func compile(selector string) (cascadia.Selector, error) {
	if sel, ok := selectorCache.Get(selector); ok {
		return sel, nil
	}
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("dom: invalid selector %q: %w", selector, err)
	}
	selectorCache.Add(selector, sel)
	return sel, nil
}

// HasAttrSelector returns a selector matching elements that carry the named
// attribute, e.g. [data-range-channel].
func HasAttrSelector(name string) string {
	return "[" + name + "]"
}

// AttrSelector returns a selector matching elements whose named attribute
// equals value exactly. The value is quoted so channel names may contain any
// character.
func AttrSelector(name, value string) string {
	return "[" + name + "=" + quote(value) + "]"
}

// quote renders s as a CSS string literal.
func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\a `)
		case '\r':
			b.WriteString(`\d `)
		case '\f':
			b.WriteString(`\c `)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
