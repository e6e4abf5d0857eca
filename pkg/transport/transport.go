// Package transport maintains the websocket connection to the control
// surface server.
//
// A Transport dials the update endpoint, announces channels with delayed
// subscribe frames, answers ping with pong, records the session id handed out
// by the server, and fans every inbound update out to the registered
// callbacks. Outbound values are sent with Publish.
//
// The read loop runs on its own goroutine; callbacks are invoked from it in
// arrival order. Callers that own single-threaded state (a document) should
// hand the update off to their own loop instead of touching that state from
// the callback.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/surface/pkg/metrics"
	"github.com/vango-dev/surface/pkg/protocol"
)

// TracerName is the instrumentation name used for spans.
const TracerName = "github.com/vango-dev/surface/pkg/transport"

// UpdateFunc receives one channel value pushed by the server.
type UpdateFunc func(channel string, value any)

// Option configures a Transport.
type Option func(*Transport)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector. Default: none.
func WithMetrics(m *metrics.Collector) Option {
	return func(t *Transport) {
		t.metrics = m
	}
}

// WithDialer sets the websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(t *Transport) {
		if d != nil {
			t.dialer = d
		}
	}
}

// WithTracer sets the tracer. Default: otel.Tracer(TracerName).
func WithTracer(tracer trace.Tracer) Option {
	return func(t *Transport) {
		if tracer != nil {
			t.tracer = tracer
		}
	}
}

// Transport is a client connection to the update endpoint.
type Transport struct {
	config  *Config
	logger  *slog.Logger
	metrics *metrics.Collector
	dialer  *websocket.Dialer
	tracer  trace.Tracer

	// mu protects the fields below.
	mu         sync.Mutex
	endpoint   string
	conn       *websocket.Conn
	sessionID  string
	callbacks  []UpdateFunc
	channels   []string
	channelSet map[string]struct{}
	timers     map[*time.Timer]struct{}
	closed     bool

	// writeMu serialises writes on conn.
	writeMu sync.Mutex

	connected atomic.Bool
	done      chan struct{}
	doneOnce  sync.Once
}

// New creates a transport. Nothing is dialed until Start.
func New(config *Config, opts ...Option) *Transport {
	config = config.withDefaults()
	t := &Transport{
		config: config,
		logger: slog.Default(),
		dialer: &websocket.Dialer{
			HandshakeTimeout: config.HandshakeTimeout,
		},
		tracer:     otel.Tracer(TracerName),
		channelSet: make(map[string]struct{}),
		timers:     make(map[*time.Timer]struct{}),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With("component", "transport")
	return t
}

// Config returns a copy of the effective configuration.
func (t *Transport) Config() *Config {
	return t.config.Clone()
}

// Start registers onUpdate, remembers channels and dials endpoint. Once the
// connection is open a subscribe frame for channels is sent after
// SubscribeDelay.
//
// A dial failure is logged and returned. Without Reconnect it is terminal
// and Done is closed; with Reconnect the transport keeps redialing in the
// background until ctx is cancelled or Close is called.
//
// Cancelling ctx closes the transport.
func (t *Transport) Start(ctx context.Context, endpoint string, channels []string, onUpdate UpdateFunc) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	t.endpoint = endpoint
	t.mu.Unlock()

	t.addCallback(onUpdate)
	t.remember(channels)

	go func() {
		select {
		case <-ctx.Done():
			t.Close()
		case <-t.done:
		}
	}()

	if err := t.connect(ctx); err != nil {
		t.logger.Error("connect failed", "url", endpoint, "error", err)
		if t.config.Reconnect {
			go t.reconnect(ctx)
		} else {
			t.finish()
		}
		return err
	}
	return nil
}

// Subscribe registers callback (nil is ignored) and, after SubscribeDelay,
// sends a subscribe frame naming channels. If no connection is open when the
// delay elapses nothing is sent. Each call schedules its own frame.
func (t *Transport) Subscribe(channels []string, callback UpdateFunc) {
	t.addCallback(callback)
	t.remember(channels)
	t.scheduleSubscribe(slices.Clone(channels))
}

// Publish sends a channel value to the server. The session id is attached
// once a registration has been received. Before the connection is open (or
// after it was lost) nothing is sent and ErrNotConnected is returned.
func (t *Transport) Publish(channel string, value any) error {
	_, span := t.tracer.Start(context.Background(), "surface.publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(attribute.String("surface.channel", channel)),
	)
	defer span.End()

	if !t.connected.Load() {
		span.SetStatus(codes.Error, ErrNotConnected.Error())
		return ErrNotConnected
	}
	data, err := protocol.EncodePublish(channel, value, t.SessionID())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if err := t.send(string(protocol.ActionPublish), data); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// Close stops pending subscribe timers, sends a normal close frame and
// closes the connection. It is safe to call more than once.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	for timer := range t.timers {
		timer.Stop()
	}
	t.timers = nil
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()

	t.setConnected(false)
	t.finish()

	if conn == nil {
		return nil
	}
	t.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(t.config.WriteTimeout))
	t.writeMu.Unlock()
	return conn.Close()
}

// Done is closed when the transport has stopped for good: after Close, or
// when the connection ended and Reconnect is off.
func (t *Transport) Done() <-chan struct{} {
	return t.done
}

// SessionID returns the id assigned by the server, or "" before registration.
func (t *Transport) SessionID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessionID
}

// Connected reports whether the connection is open.
func (t *Transport) Connected() bool {
	return t.connected.Load()
}

// Channels returns every channel announced so far, in first-seen order.
func (t *Transport) Channels() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.channels)
}

func (t *Transport) addCallback(cb UpdateFunc) {
	if cb == nil {
		return
	}
	t.mu.Lock()
	t.callbacks = append(t.callbacks, cb)
	t.mu.Unlock()
}

func (t *Transport) remember(channels []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, ch := range channels {
		if ch == "" {
			continue
		}
		if _, ok := t.channelSet[ch]; ok {
			continue
		}
		t.channelSet[ch] = struct{}{}
		t.channels = append(t.channels, ch)
	}
}

func (t *Transport) connect(ctx context.Context) error {
	t.mu.Lock()
	endpoint := t.endpoint
	t.mu.Unlock()

	conn, _, err := t.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("transport: dial %s: %w", endpoint, err)
	}
	conn.SetReadLimit(t.config.MaxMessageSize)

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		conn.Close()
		return ErrClosed
	}
	t.conn = conn
	channels := slices.Clone(t.channels)
	t.mu.Unlock()

	t.setConnected(true)
	t.logger.Info("connected", "url", endpoint)

	t.scheduleSubscribe(channels)
	go t.readLoop(ctx, conn)
	return nil
}

// reconnect redials every ReconnectDelay until a dial succeeds, ctx is
// cancelled or the transport is closed.
func (t *Transport) reconnect(ctx context.Context) {
	for {
		timer := time.NewTimer(t.config.ReconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-t.done:
			timer.Stop()
			return
		case <-timer.C:
		}

		t.metrics.Reconnect()
		t.logger.Info("reconnecting", "delay", t.config.ReconnectDelay)
		err := t.connect(ctx)
		if err == nil {
			return
		}
		if errors.Is(err, ErrClosed) {
			return
		}
		t.logger.Warn("reconnect failed", "error", err)
	}
}

func (t *Transport) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer t.connectionLost(ctx, conn)

	for {
		if t.config.ReadTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(t.config.ReadTimeout))
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure) {
				t.logger.Error("read error", "error", err)
			} else {
				t.logger.Info("connection closed", "error", err)
			}
			return
		}

		t.handleFrame(ctx, msg)
	}
}

func (t *Transport) connectionLost(ctx context.Context, conn *websocket.Conn) {
	conn.Close()

	t.mu.Lock()
	current := t.conn == conn
	if current {
		t.conn = nil
	}
	closed := t.closed
	t.mu.Unlock()

	if !current || closed {
		return
	}
	t.setConnected(false)
	if t.config.Reconnect {
		go t.reconnect(ctx)
		return
	}
	t.finish()
}

func (t *Transport) handleFrame(ctx context.Context, data []byte) {
	switch string(data) {
	case protocol.Ping:
		t.metrics.FrameReceived("ping")
		if err := t.send(protocol.Pong, []byte(protocol.Pong)); err != nil {
			t.logger.Warn("pong failed", "error", err)
		}
		return
	case protocol.Connected:
		t.metrics.FrameReceived("connected")
		return
	}

	_, span := t.tracer.Start(ctx, "surface.frame",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(attribute.Int("surface.frame.size", len(data))),
	)
	defer span.End()

	msg, err := protocol.Decode(data)
	if err != nil {
		if errors.Is(err, protocol.ErrMissingAction) {
			t.metrics.FrameReceived("unknown")
			t.logger.Debug("frame without action ignored")
			return
		}
		t.metrics.FrameDropped()
		t.logger.Error("malformed frame", "error", err, "frame", clip(data))
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed frame")
		return
	}
	span.SetAttributes(attribute.String("surface.action", string(msg.Action)))

	switch msg.Action {
	case protocol.ActionRegistration:
		reg, err := msg.DecodeRegistration()
		if err != nil {
			t.metrics.FrameDropped()
			t.logger.Error("malformed registration", "error", err)
			span.RecordError(err)
			return
		}
		t.metrics.FrameReceived("registration")
		if reg.ID == "" {
			t.logger.Debug("registration without id")
			return
		}
		t.mu.Lock()
		t.sessionID = reg.ID
		t.mu.Unlock()
		t.logger.Info("registered", "id", reg.ID)

	case protocol.ActionUpdate:
		updates, err := msg.DecodeUpdates()
		if err != nil {
			t.metrics.FrameDropped()
			t.logger.Error("malformed update", "error", err)
			span.RecordError(err)
			return
		}
		t.metrics.FrameReceived("update")
		span.SetAttributes(attribute.Int("surface.updates", len(updates)))

		t.mu.Lock()
		callbacks := slices.Clone(t.callbacks)
		t.mu.Unlock()
		for _, u := range updates {
			for _, cb := range callbacks {
				cb(u.Channel, u.Value)
			}
		}

	default:
		t.metrics.FrameReceived("unknown")
		t.logger.Debug("unknown action ignored", "action", msg.Action)
	}
}

func (t *Transport) scheduleSubscribe(channels []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	// The callback takes mu first, so timer is assigned before it is read.
	var timer *time.Timer
	timer = time.AfterFunc(t.config.SubscribeDelay, func() {
		t.mu.Lock()
		delete(t.timers, timer)
		t.mu.Unlock()
		t.sendSubscribe(channels)
	})
	t.timers[timer] = struct{}{}
}

func (t *Transport) sendSubscribe(channels []string) {
	data, err := protocol.EncodeSubscribe(channels)
	if err != nil {
		t.logger.Error("encode subscribe", "error", err)
		return
	}
	if err := t.send(string(protocol.ActionSubscribe), data); err != nil {
		if errors.Is(err, ErrNotConnected) {
			t.logger.Debug("subscribe skipped", "channels", len(channels), "reason", err)
			return
		}
		t.logger.Warn("subscribe failed", "error", err)
		return
	}
	t.logger.Debug("subscribed", "channels", channels)
}

// send writes one text frame. kind labels the frame in metrics.
func (t *Transport) send(kind string, data []byte) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(t.config.WriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("transport: write %s: %w", kind, err)
	}
	t.metrics.FrameSent(kind)
	return nil
}

func (t *Transport) setConnected(up bool) {
	t.connected.Store(up)
	t.metrics.SetConnected(up)
}

func (t *Transport) finish() {
	t.doneOnce.Do(func() { close(t.done) })
}

func clip(data []byte) string {
	const limit = 200
	if len(data) > limit {
		return string(data[:limit]) + "..."
	}
	return string(data)
}
