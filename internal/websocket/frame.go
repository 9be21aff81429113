package websocket

// FrameKind tags outbound frames.
type FrameKind string

const (
	FrameView  FrameKind = "view"
	FrameError FrameKind = "error"
)

// Frame is the JSON envelope written to clients.
type Frame struct {
	Kind  FrameKind `json:"kind"`
	View  any       `json:"view,omitempty"`
	Error string    `json:"error,omitempty"`
}

// Inbound is the JSON envelope clients send.
type Inbound struct {
	Action string `json:"action"`
	Type   string `json:"type,omitempty"`
	Text   string `json:"text,omitempty"`
}

// Inbound actions.
const (
	ActionSubmit = "submit"
	ActionRoll   = "roll"
)
