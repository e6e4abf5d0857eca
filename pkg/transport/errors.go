package transport

import "errors"

var (
	// ErrNotConnected is returned when a frame is sent before the connection
	// is open or after it was lost.
	ErrNotConnected = errors.New("transport: not connected")

	// ErrClosed is returned when Start is called on a closed transport.
	ErrClosed = errors.New("transport: closed")

	// ErrBadEndpoint is returned when the page URL cannot be turned into a
	// websocket endpoint.
	ErrBadEndpoint = errors.New("transport: bad endpoint")
)
