// Package binder connects data-*-channel attributes in a document to named
// channels.
//
// A Binder scans the document for the thirteen channel attributes, indexes
// which kinds reference which channel, wires interactive controls (buttons,
// checkboxes, inputs, selects) so user events publish their value, and
// applies inbound channel updates to every bound element.
//
// # Attributes
//
// Interactive kinds publish and reflect a value:
//
//	data-button-channel    click/pointerdown/pointerup send data-<event>-value
//	data-checkbox-channel  sends the checked state
//	data-mcsa-channel      sends the checked element's value
//	data-number-channel    sends the input value
//	data-range-channel     sends the input value while dragging and on release
//	data-select-channel    sends the selected option value
//	data-text-channel      sends the input value
//
// Update-only kinds change presentation when their data-<kind>-value
// matches:
//
//	data-active-channel     class "active"
//	data-disabled-channel   attribute disabled
//	data-hidden-channel     attribute hidden and class "hidden"
//	data-invisible-channel  class "invisible"
//	data-inner-html-channel replaces the element content
//	data-style-channel      applies a JSON object of style properties
//
// A Binder is not safe for concurrent use. All calls, including the
// listeners it installs, must run on the goroutine that owns the document.
package binder

import (
	"errors"
	"log/slog"
	"os"
	"slices"

	"github.com/vango-dev/surface/pkg/dom"
	"github.com/vango-dev/surface/pkg/metrics"
	"github.com/vango-dev/surface/pkg/transport"
)

// Options configures a Binder.
type Options struct {
	// Debug enables debug logging when no Logger is given.
	Debug bool

	// Logger receives binder logs. Default: text handler on stderr at info
	// level, or debug level when Debug is set.
	Logger *slog.Logger

	// OnUpdate observes every update before it is applied, bound or not.
	OnUpdate func(channel string, value any)

	// OnSend observes every value sent because of a user event.
	OnSend func(channel string, value any)

	// Publish sends a value to the server, normally Transport.Publish.
	Publish func(channel string, value any) error

	// AutoRescan scans content injected through data-inner-html-channel
	// for new bindings.
	AutoRescan bool

	// OnChannels receives channels discovered by an automatic rescan so
	// they can be subscribed.
	OnChannels func(channels []string)

	// Metrics records binder activity. Optional.
	Metrics *metrics.Collector
}

// Binding ties one element to a channel through one attribute kind.
type Binding struct {
	Kind    Kind
	Channel string
	Element *dom.Element
}

type bindingKey struct {
	el   *dom.Element
	kind Kind
}

type channelKind struct {
	kind    Kind
	channel string
}

// Binder binds a document to channels.
type Binder struct {
	doc     *dom.Document
	opts    Options
	logger  *slog.Logger
	metrics *metrics.Collector

	bindings []Binding
	bound    map[bindingKey]struct{}
	index    map[string][]Kind
	channels []string

	// pending holds (kind, channel) pairs that gained bindings since the
	// last AttachListeners.
	pending    []channelKind
	pendingSet map[channelKind]struct{}

	registered map[*dom.Element]struct{}
	listeners  int
}

// New scans the whole document for every attribute kind and attaches
// listeners to interactive elements. Channels returns what was found.
func New(doc *dom.Document, opts Options) *Binder {
	logger := opts.Logger
	if logger == nil {
		level := slog.LevelInfo
		if opts.Debug {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}

	b := &Binder{
		doc:        doc,
		opts:       opts,
		logger:     logger.With("component", "binder"),
		metrics:    opts.Metrics,
		bound:      make(map[bindingKey]struct{}),
		index:      make(map[string][]Kind),
		pendingSet: make(map[channelKind]struct{}),
		registered: make(map[*dom.Element]struct{}),
	}

	channels := b.Scan(nil, AllKinds()...)
	b.logger.Debug("found data channels", "channels", channels)
	b.AttachListeners()
	return b
}

// Document returns the bound document.
func (b *Binder) Document() *dom.Document {
	return b.doc
}

// Scan records a binding for every element under root (nil means the whole
// document) that carries the data attribute of one of kinds. It returns the
// channels this binder had not seen before, in first-seen order. Elements
// already bound under a kind are skipped, so scanning twice is harmless.
func (b *Binder) Scan(root *dom.Element, kinds ...Kind) []string {
	if root == nil {
		root = b.doc.Root()
	}

	var found []string
	for _, kind := range kinds {
		if !kind.Valid() {
			continue
		}
		attr := kind.DataAttribute()
		els, err := root.QueryAll(dom.HasAttrSelector(attr))
		if err != nil {
			b.logger.Error("scan failed", "attribute", attr, "error", err)
			continue
		}
		for _, el := range els {
			channel := el.AttrOr(attr, "")
			if channel == "" {
				b.logger.Debug("empty channel ignored", "attribute", attr)
				continue
			}
			key := bindingKey{el: el, kind: kind}
			if _, ok := b.bound[key]; ok {
				continue
			}
			b.bound[key] = struct{}{}
			b.bindings = append(b.bindings, Binding{Kind: kind, Channel: channel, Element: el})

			kinds, known := b.index[channel]
			if !known {
				b.channels = append(b.channels, channel)
				found = append(found, channel)
			}
			if !slices.Contains(kinds, kind) {
				b.index[channel] = append(kinds, kind)
			}

			pair := channelKind{kind: kind, channel: channel}
			if _, ok := b.pendingSet[pair]; !ok {
				b.pendingSet[pair] = struct{}{}
				b.pending = append(b.pending, pair)
			}
		}
	}

	b.metrics.SetBoundChannels(len(b.channels))
	return found
}

// AttachListeners wires every interactive element of the bindings found
// since the last call. Each element is registered once, under the first
// interactive kind it is seen with; buttons only get listeners for events
// that have a data-<event>-value. It returns the number of listeners added.
func (b *Binder) AttachListeners() int {
	pending := b.pending
	b.pending = nil
	clear(b.pendingSet)

	attached := 0
	for _, p := range pending {
		typ := p.kind.ElementType()
		if typ == nil {
			continue
		}
		els, err := b.doc.QueryAll(dom.AttrSelector(p.kind.DataAttribute(), p.channel))
		if err != nil {
			b.logger.Error("query failed", "attribute", p.kind.DataAttribute(), "channel", p.channel, "error", err)
			continue
		}
		for _, el := range els {
			if _, ok := b.registered[el]; ok {
				continue
			}
			b.registered[el] = struct{}{}

			for _, event := range typ.Events {
				if !typ.wires(el, event) {
					continue
				}
				el.AddEventListener(event, b.listener(p.kind, typ, p.channel, el))
				attached++
			}
		}
	}

	b.listeners += attached
	b.metrics.ListenersAttached(attached)
	return attached
}

// Rescan scans root for every kind, prunes bindings of elements that left
// the document, and attaches listeners to new interactive elements. It
// returns the newly discovered channels so the caller can subscribe them.
func (b *Binder) Rescan(root *dom.Element) []string {
	b.prune()
	found := b.Scan(root, AllKinds()...)
	b.AttachListeners()
	return found
}

// prune forgets bindings whose element is no longer in the document. The
// channel index is kept: a channel stays subscribed for the binder's
// lifetime.
func (b *Binder) prune() {
	kept := b.bindings[:0]
	for _, bd := range b.bindings {
		if bd.Element.Connected() {
			kept = append(kept, bd)
			continue
		}
		delete(b.bound, bindingKey{el: bd.Element, kind: bd.Kind})
		delete(b.registered, bd.Element)
	}
	clear(b.bindings[len(kept):])
	b.bindings = kept
}

func (b *Binder) listener(kind Kind, typ *ElementType, channel string, el *dom.Element) dom.Listener {
	return func(ev *dom.Event) {
		value := typ.value(el, ev)
		b.logger.Debug("event received",
			"type", typ.Name,
			"event", ev.Type,
			"attribute", kind.Attribute(),
			"channel", channel,
			"value", value)
		b.metrics.Interaction(typ.Name)

		b.send(channel, value)
		b.ApplyUpdate(channel, value)
	}
}

func (b *Binder) send(channel string, value any) {
	if b.opts.OnSend != nil {
		b.opts.OnSend(channel, value)
	}
	if b.opts.Publish == nil {
		return
	}
	if err := b.opts.Publish(channel, value); err != nil {
		if errors.Is(err, transport.ErrNotConnected) {
			b.logger.Debug("publish skipped", "channel", channel, "error", err)
			return
		}
		b.logger.Warn("publish failed", "channel", channel, "error", err)
	}
}

// Channels returns the distinct bound channels in first-seen order.
func (b *Binder) Channels() []string {
	return slices.Clone(b.channels)
}

// Bindings returns every binding in discovery order.
func (b *Binder) Bindings() []Binding {
	return slices.Clone(b.bindings)
}

// KindsFor returns the kinds through which channel is referenced, or nil.
func (b *Binder) KindsFor(channel string) []Kind {
	return slices.Clone(b.index[channel])
}

// ListenerCount returns the number of listeners attached so far.
func (b *Binder) ListenerCount() int {
	return b.listeners
}
