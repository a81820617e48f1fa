package models

import "fmt"

// Event types understood by progress sinks.
const (
	EventProgress = "progress"
	EventError    = "error"
	EventSuccess  = "success"
)

// Event is one structured status record emitted by the copy pipeline.
// The sink (websocket stream, CLI printer) decides how to render it.
type Event struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Progress builds a progress event.
func Progress(format string, args ...interface{}) Event {
	return Event{Type: EventProgress, Message: fmt.Sprintf(format, args...)}
}

// ErrorEvent builds an error event.
func ErrorEvent(format string, args ...interface{}) Event {
	return Event{Type: EventError, Message: fmt.Sprintf(format, args...)}
}

// Success builds a success event.
func Success(format string, args ...interface{}) Event {
	return Event{Type: EventSuccess, Message: fmt.Sprintf(format, args...)}
}
