// Package surface runs a control surface: an HTML document whose
// data-*-channel elements are kept in sync with a channel server over a
// websocket.
//
// Usage:
//
//	doc, _ := dom.ParseString(page)
//	s := surface.New(doc, surface.Options{Debug: true})
//	defer s.Close()
//
//	if err := s.Start(ctx, "https://mixer.local/panel"); err != nil {
//	    log.Println(err) // the surface still works offline
//	}
//
//	s.HandleUpdate("volume", "42")
//	html, _ := s.HTML()
//
// All document access happens on one goroutine owned by the Surface.
// Inbound updates, simulated interaction and Do callbacks are queued and run
// there in order.
package surface

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"sync"

	"github.com/vango-dev/surface/pkg/binder"
	"github.com/vango-dev/surface/pkg/dom"
	"github.com/vango-dev/surface/pkg/metrics"
	"github.com/vango-dev/surface/pkg/transport"
)

// ErrClosed is returned by calls made after Close.
var ErrClosed = errors.New("surface: closed")

// DefaultQueueSize is the capacity of the event loop queue.
const DefaultQueueSize = 256

// Options configures a Surface.
type Options struct {
	// Debug enables debug logging when no Logger is given.
	Debug bool

	// OnUpdate observes every inbound or emulated update, bound or not.
	OnUpdate func(channel string, value any)

	// OnSend observes every value sent because of user interaction.
	OnSend func(channel string, value any)

	// Logger receives all logs. Default: text handler on stderr.
	Logger *slog.Logger

	// Config configures the transport. Default: transport.DefaultConfig().
	Config *transport.Config

	// Metrics records binder and transport activity. Optional.
	Metrics *metrics.Collector

	// AutoRescan binds elements injected by data-inner-html-channel
	// updates and subscribes their channels.
	AutoRescan bool

	// QueueSize is the event loop queue capacity. Default: DefaultQueueSize.
	QueueSize int

	// TransportOptions are passed to transport.New after the logger and
	// metrics options.
	TransportOptions []transport.Option
}

// Surface binds a document to a channel server.
type Surface struct {
	opts      Options
	logger    *slog.Logger
	doc       *dom.Document
	binder    *binder.Binder
	transport *transport.Transport

	queue     chan func()
	done      chan struct{}
	closeOnce sync.Once
}

// New binds doc and starts the event loop. The document is scanned and
// listeners are attached before New returns; no connection is made until
// Start. Close must be called to stop the loop.
func New(doc *dom.Document, opts Options) *Surface {
	logger := opts.Logger
	if logger == nil {
		level := slog.LevelInfo
		if opts.Debug {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}

	s := &Surface{
		opts:   opts,
		logger: logger.With("component", "surface"),
		doc:    doc,
		queue:  make(chan func(), opts.QueueSize),
		done:   make(chan struct{}),
	}

	topts := append([]transport.Option{
		transport.WithLogger(logger),
		transport.WithMetrics(opts.Metrics),
	}, opts.TransportOptions...)
	s.transport = transport.New(opts.Config, topts...)

	s.binder = binder.New(doc, binder.Options{
		Debug:      opts.Debug,
		Logger:     logger,
		OnUpdate:   opts.OnUpdate,
		OnSend:     opts.OnSend,
		Publish:    s.transport.Publish,
		AutoRescan: opts.AutoRescan,
		OnChannels: s.subscribe,
		Metrics:    opts.Metrics,
	})

	go s.eventLoop()
	return s
}

// Start derives the update endpoint from pageURL and connects. Inbound
// updates are applied on the event loop in arrival order.
//
// A connection failure is logged and returned; the surface stays usable
// for HandleUpdate and Fire. Cancelling ctx closes the surface.
func (s *Surface) Start(ctx context.Context, pageURL string) error {
	endpoint, err := transport.EndpointURL(pageURL, s.transport.Config().Path)
	if err != nil {
		return fmt.Errorf("surface: %w", err)
	}

	channels, err := s.Channels()
	if err != nil {
		return err
	}

	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.done:
		}
	}()

	s.logger.Info("connecting", "url", endpoint, "channels", len(channels))
	if err := s.transport.Start(ctx, endpoint, channels, s.enqueueUpdate); err != nil {
		return fmt.Errorf("surface: connect %s: %w", endpoint, err)
	}
	return nil
}

// HandleUpdate applies an update as if the server had sent it and waits
// until it is applied. It works with or without a connection.
func (s *Surface) HandleUpdate(channel string, value any) error {
	return s.Do(func(*dom.Document) {
		s.binder.ApplyUpdate(channel, value)
	})
}

// Fire dispatches event on el as if the user had interacted with it and
// returns the number of listeners that ran. Set the element's state first
// (value, checked) through Do.
func (s *Surface) Fire(el *dom.Element, event string) (int, error) {
	var n int
	err := s.Do(func(*dom.Document) {
		n = el.Dispatch(event)
	})
	return n, err
}

// Do runs fn on the event loop and waits for it to return. fn must not call
// back into the Surface.
func (s *Surface) Do(fn func(doc *dom.Document)) error {
	finished := make(chan struct{})
	job := func() {
		defer close(finished)
		fn(s.doc)
	}

	select {
	case s.queue <- job:
	case <-s.done:
		return ErrClosed
	}

	select {
	case <-finished:
		return nil
	case <-s.done:
		return ErrClosed
	}
}

// HTML renders the current document.
func (s *Surface) HTML() (string, error) {
	var out string
	var renderErr error
	if err := s.Do(func(doc *dom.Document) {
		out, renderErr = doc.HTML()
	}); err != nil {
		return "", err
	}
	return out, renderErr
}

// Channels returns the bound channels in discovery order.
func (s *Surface) Channels() ([]string, error) {
	var out []string
	err := s.Do(func(*dom.Document) {
		out = s.binder.Channels()
	})
	return out, err
}

// Bindings returns every element binding.
func (s *Surface) Bindings() ([]binder.Binding, error) {
	var out []binder.Binding
	err := s.Do(func(*dom.Document) {
		out = s.binder.Bindings()
	})
	return out, err
}

// Connected reports whether the websocket is open.
func (s *Surface) Connected() bool {
	return s.transport.Connected()
}

// SessionID returns the id assigned by the server, if any.
func (s *Surface) SessionID() string {
	return s.transport.SessionID()
}

// Disconnected is closed when the transport gives up: after Close, or when
// the connection is lost and reconnect is off.
func (s *Surface) Disconnected() <-chan struct{} {
	return s.transport.Done()
}

// Done is closed by Close.
func (s *Surface) Done() <-chan struct{} {
	return s.done
}

// Close closes the connection and stops the event loop. Queued work that
// has not started is dropped. Close is idempotent.
func (s *Surface) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.transport.Close()
		s.logger.Debug("closed")
	})
	return err
}

// enqueueUpdate is the transport callback. It runs on the read goroutine
// and blocks while the queue is full, so no update is dropped.
func (s *Surface) enqueueUpdate(channel string, value any) {
	select {
	case s.queue <- func() { s.binder.ApplyUpdate(channel, value) }:
	case <-s.done:
	}
}

// subscribe announces channels found by an automatic rescan.
func (s *Surface) subscribe(channels []string) {
	s.logger.Debug("subscribing to injected channels", "channels", channels)
	s.transport.Subscribe(channels, nil)
}

// eventLoop runs queued work until Close.
func (s *Surface) eventLoop() {
	for {
		select {
		case fn := <-s.queue:
			s.execute(fn)
		case <-s.done:
			return
		}
	}
}

// execute runs fn with panic recovery.
func (s *Surface) execute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("event loop panic",
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	fn()
}
