package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Action identifies the kind of envelope.
type Action string

const (
	ActionSubscribe    Action = "subscribe"    // Client announces channels
	ActionPublish      Action = "publish"      // Client sends a channel value
	ActionRegistration Action = "registration" // Server assigns a session id
	ActionUpdate       Action = "update"       // Server pushes channel values
)

// Literal control frames. They are sent as raw text, not as envelopes.
const (
	Ping      = "ping"
	Pong      = "pong"
	Connected = "connected"
)

// Decoding errors.
var (
	ErrMalformedFrame = errors.New("protocol: malformed frame")
	ErrMissingAction  = errors.New("protocol: envelope without action or options")
)

// Message is the envelope of every structured frame.
type Message struct {
	Action  Action          `json:"action"`
	Options json.RawMessage `json:"options"`
}

// PublishOptions is the payload of a publish envelope.
type PublishOptions struct {
	Channel  string `json:"channel"`
	Value    any    `json:"value"`
	OriginID string `json:"originId,omitempty"`
}

// Registration is the payload of a registration envelope.
type Registration struct {
	ID string `json:"id"`
}

// Update is a single channel value pushed by the server.
type Update struct {
	Channel string `json:"channel"`
	Value   any    `json:"value"`
}

// EncodeSubscribe builds a subscribe frame for the given channels. Empty
// channel names are dropped; the options array is never null.
func EncodeSubscribe(channels []string) ([]byte, error) {
	list := make([]string, 0, len(channels))
	for _, ch := range channels {
		if ch != "" {
			list = append(list, ch)
		}
	}
	return encode(ActionSubscribe, list)
}

// EncodePublish builds a publish frame. originID is omitted when empty.
func EncodePublish(channel string, value any, originID string) ([]byte, error) {
	return encode(ActionPublish, PublishOptions{
		Channel:  channel,
		Value:    value,
		OriginID: originID,
	})
}

// EncodeUpdate builds an update frame carrying one or more updates. It is
// the server side of the protocol and is used by tools and tests that play
// the server.
func EncodeUpdate(updates ...Update) ([]byte, error) {
	if len(updates) == 1 {
		return encode(ActionUpdate, updates[0])
	}
	return encode(ActionUpdate, updates)
}

// EncodeRegistration builds a registration frame.
func EncodeRegistration(id string) ([]byte, error) {
	return encode(ActionRegistration, Registration{ID: id})
}

func encode(action Action, options any) ([]byte, error) {
	raw, err := json.Marshal(options)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %s options: %w", action, err)
	}
	data, err := json.Marshal(Message{Action: action, Options: raw})
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %s: %w", action, err)
	}
	return data, nil
}

// Decode parses an envelope. Frames that are not JSON objects return
// ErrMalformedFrame; envelopes lacking an action or options return
// ErrMissingAction.
func Decode(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if m.Action == "" || isNull(m.Options) {
		return nil, ErrMissingAction
	}
	return &m, nil
}

// DecodeRegistration extracts the registration payload of m.
func (m *Message) DecodeRegistration() (Registration, error) {
	var r Registration
	if err := json.Unmarshal(m.Options, &r); err != nil {
		return Registration{}, fmt.Errorf("%w: registration: %v", ErrMalformedFrame, err)
	}
	return r, nil
}

// DecodeUpdates extracts the updates carried by m. The options may be a
// single update object or an array of them.
func (m *Message) DecodeUpdates() ([]Update, error) {
	raw := bytes.TrimSpace(m.Options)
	if len(raw) > 0 && raw[0] == '[' {
		var list []Update
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("%w: update list: %v", ErrMalformedFrame, err)
		}
		return list, nil
	}
	var u Update
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("%w: update: %v", ErrMalformedFrame, err)
	}
	return []Update{u}, nil
}

// DecodeSubscribe extracts the channel list of a subscribe envelope.
func (m *Message) DecodeSubscribe() ([]string, error) {
	var list []string
	if err := json.Unmarshal(m.Options, &list); err != nil {
		return nil, fmt.Errorf("%w: subscribe: %v", ErrMalformedFrame, err)
	}
	return list, nil
}

// DecodePublish extracts the payload of a publish envelope.
func (m *Message) DecodePublish() (PublishOptions, error) {
	var p PublishOptions
	if err := json.Unmarshal(m.Options, &p); err != nil {
		return PublishOptions{}, fmt.Errorf("%w: publish: %v", ErrMalformedFrame, err)
	}
	return p, nil
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}
