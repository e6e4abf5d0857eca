// Package protocol implements the JSON wire protocol spoken between a control
// surface and its update server.
//
// Every structured message is a single websocket text frame holding an
// envelope:
//
//	{"action": "<action>", "options": <action-specific payload>}
//
// # Client → Server
//
//   - subscribe:  {"action":"subscribe","options":["volume.level","power"]}
//   - publish:    {"action":"publish","options":{"channel":"power","value":"on","originId":"abc"}}
//   - the literal text "pong" in reply to "ping"
//
// # Server → Client
//
//   - the literal text "ping" (keep-alive probe)
//   - the literal text "connected" (handshake acknowledgement)
//   - registration: {"action":"registration","options":{"id":"abc"}}
//   - update:       {"action":"update","options":{"channel":"power","value":"on"}}
//     or an array of such objects
//
// Values are arbitrary JSON and are carried as decoded Go values (string,
// float64, bool, nil, []any, map[string]any).
package protocol
