package websocket

import "github.com/stemsi/prepexam/internal/response"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionSelect   Action = "select"
	ActionNext     Action = "next"
	ActionPrevious Action = "previous"
	ActionJump     Action = "jump"
	ActionMark     Action = "mark"
	ActionSubmit   Action = "submit"
	ActionPing     Action = "ping"
)

// Request is one client message. Option is set for select, Index for jump.
type Request struct {
	Action Action `json:"action"`
	Option *int   `json:"option,omitempty"`
	Index  *int   `json:"index,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState         Event = "state"
	EventTick          Event = "tick"
	EventGuard         Event = "guard"
	EventConfirmSubmit Event = "confirm_submit"
	EventGraded        Event = "graded"
	EventError         Event = "error"
	EventPong          Event = "pong"
)

// Message is every server frame: the event name plus its payload.
type Message struct {
	Event Event            `json:"event"`
	Data  any              `json:"data,omitempty"`
	Code  response.ErrCode `json:"code,omitempty"`
	Error string           `json:"error,omitempty"`
}

type TickData struct {
	TimeRemainingSeconds int `json:"time_remaining_seconds"`
}

type GuardData struct {
	Enabled bool `json:"enabled"`
}
