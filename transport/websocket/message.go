package websocket

import "encoding/json"

const (
	actionJoin        = "matchmaking:join"
	actionCancel      = "matchmaking:cancel"
	actionMove        = "game:move"
	actionUndoRequest = "game:undo:request"
	actionUndoResolve = "game:undo:resolve"
	actionTimeout     = "game:timeout"
	actionLeave       = "game:leave"
	actionChat        = "game:chat"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type joinPayload struct {
	Type       string `json:"type"`
	Mode       string `json:"mode"`
	Difficulty string `json:"difficulty"`
}

type movePayload struct {
	RoomID string `json:"roomId"`
	Row    *int   `json:"row"`
	Col    *int   `json:"col"`
	Slot   int    `json:"slot"`
}

type roomPayload struct {
	RoomID string `json:"roomId"`
}

type resolvePayload struct {
	RoomID string `json:"roomId"`
	Accept bool   `json:"accept"`
}

type chatPayload struct {
	RoomID  string `json:"roomId"`
	Message string `json:"message"`
}
