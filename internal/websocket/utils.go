package websocket

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/stemsi/prepexam/internal/response"
)

const (
	writeWait = 10 * time.Second
	// readWait outlasts the client's ping interval; every message resets it.
	readWait = 5 * time.Minute
)

// WriteTyped sends a strongly-typed message over the WebSocket.
func WriteTyped(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// WriteError sends an error event with the envelope's error code.
func WriteError(conn *websocket.Conn, code response.ErrCode, errMsg string) error {
	return WriteTyped(conn, ErrorMessage(code, errMsg))
}

// ErrorMessage builds an error event. The message defaults to the code's
// standard text.
func ErrorMessage(code response.ErrCode, errMsg string) Message {
	if errMsg == "" {
		errMsg = response.GetMessage(code)
	}
	return Message{Event: EventError, Code: code, Error: errMsg}
}

// ReadJSON reads and decodes a message into the provided structure.
// It sets a read deadline.
func ReadJSON(conn *websocket.Conn, v interface{}) error {
	conn.SetReadDeadline(time.Now().Add(readWait))
	return conn.ReadJSON(v)
}
