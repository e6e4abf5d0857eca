package transport

import (
	"fmt"
	"net/url"
	"strings"
)

// EndpointURL derives the websocket endpoint from the page URL: ws for http
// pages, wss for https pages, same host, the given path (default "/updates")
// and the page's query string unchanged, so tokens in the page URL reach the
// server.
func EndpointURL(page, path string) (string, error) {
	u, err := url.Parse(page)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadEndpoint, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("%w: scheme %q has no websocket equivalent", ErrBadEndpoint, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: %q has no host", ErrBadEndpoint, page)
	}
	if path == "" {
		path = "/updates"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u.Path = path
	u.RawPath = ""
	u.Fragment = ""
	u.User = nil
	return u.String(), nil
}
