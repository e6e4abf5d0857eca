// Package dom provides a headless document model for control surfaces.
//
// A Document is an HTML tree parsed with golang.org/x/net/html and queried
// with CSS selectors (goquery/cascadia). It stands in for the browser DOM:
// elements carry attributes, a class list, form state (value, checked),
// inline style, inner HTML and event listeners, and the tree can be rendered
// back to HTML at any time.
//
// # Elements
//
// Element wrappers are canonical: querying the same node twice yields the
// same *Element, so elements can be used as map keys and compared with ==.
//
//	doc, _ := dom.ParseString(`<input data-text-channel="name" value="a">`)
//	els, _ := doc.QueryAll("[data-text-channel]")
//	el := els[0]
//	el.SetValue("b")
//	el.Dispatch("change")
//
// # Events
//
// Listeners are registered per event type with AddEventListener and invoked
// in registration order by Dispatch. There is no bubbling or capture: a
// control surface only ever listens on the bound element itself.
//
// # Concurrency
//
// A Document is not safe for concurrent use. Callers serialise access, for
// example by running all document work on a single event loop.
package dom
