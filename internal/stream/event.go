// Package stream implements the server-sent-events wire format used between
// the fan-out server and dashboard clients: UTF-8 frames of the form
// "data: <json>\n\n".
package stream

import (
	"encoding/json"
	"fmt"
	"io"
)

// Control is the non-telemetry payload shape: {"type":"connected"} or
// {"type":"error","message":...}.
type Control struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

const (
	TypeConnected = "connected"
	TypeError     = "error"
)

// Connected is the frame emitted once per stream on attach.
func Connected() Control { return Control{Type: TypeConnected} }

// Error carries a non-fatal bridge error; the stream stays open.
func Error(message string) Control { return Control{Type: TypeError, Message: message} }

// Waiting is emitted by the poll policy while no reading has arrived yet.
type Waiting struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// WaitingForData builds the standard waiting frame.
func WaitingForData() Waiting {
	return Waiting{
		Status:  "waiting",
		Message: "Waiting for telemetry from the device. Check that it is powered on.",
	}
}

// WriteFrame serializes v and writes one SSE frame.
func WriteFrame(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal stream payload: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", b); err != nil {
		return fmt.Errorf("write stream frame: %w", err)
	}
	return nil
}
