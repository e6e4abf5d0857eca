package transport

import "time"

// Config holds configuration for the update connection.
type Config struct {
	// Path is the websocket path on the page's host.
	// Default: "/updates".
	Path string

	// SubscribeDelay is the time between a Subscribe call (or connection
	// open) and the subscribe frame being sent.
	// Default: 1 second.
	SubscribeDelay time.Duration

	// Timeouts

	// ReadTimeout is the maximum time to wait for a frame from the server.
	// Zero disables the read deadline.
	// Default: 60 seconds.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait when sending a frame.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// HandshakeTimeout is the maximum time for the websocket handshake.
	// Default: 10 seconds.
	HandshakeTimeout time.Duration

	// Limits

	// MaxMessageSize is the maximum size of an incoming frame.
	// Default: 1MB.
	MaxMessageSize int64

	// Reconnect

	// Reconnect redials after the connection is lost and re-announces every
	// channel subscribed so far.
	// Default: false.
	Reconnect bool

	// ReconnectDelay is the pause before each redial.
	// Default: 5 seconds.
	ReconnectDelay time.Duration
}

// DefaultConfig returns a Config with the defaults listed on each field.
func DefaultConfig() *Config {
	return &Config{
		Path:             "/updates",
		SubscribeDelay:   time.Second,
		ReadTimeout:      60 * time.Second,
		WriteTimeout:     10 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		MaxMessageSize:   1 << 20,
		ReconnectDelay:   5 * time.Second,
	}
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// withDefaults fills zero fields that have no meaningful zero value.
func (c *Config) withDefaults() *Config {
	d := DefaultConfig()
	out := c.Clone()
	if out == nil {
		return d
	}
	if out.Path == "" {
		out.Path = d.Path
	}
	if out.WriteTimeout <= 0 {
		out.WriteTimeout = d.WriteTimeout
	}
	if out.HandshakeTimeout <= 0 {
		out.HandshakeTimeout = d.HandshakeTimeout
	}
	if out.MaxMessageSize <= 0 {
		out.MaxMessageSize = d.MaxMessageSize
	}
	if out.ReconnectDelay <= 0 {
		out.ReconnectDelay = d.ReconnectDelay
	}
	if out.SubscribeDelay < 0 {
		out.SubscribeDelay = 0
	}
	return out
}
