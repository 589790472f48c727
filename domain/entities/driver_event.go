package entities

// EventKind is the category of an event pushed by the browser
type EventKind string

const (
	EventConsole   EventKind = "console"
	EventDialog    EventKind = "dialog"
	EventResponse  EventKind = "response"
	EventPageError EventKind = "pageerror"
)

// DriverEvent is a browser notification delivered to subscribers
type DriverEvent struct {
	Kind   EventKind `json:"kind"`
	Type   string    `json:"type,omitempty"` // console level or dialog type
	Text   string    `json:"text,omitempty"`
	URL    string    `json:"url,omitempty"`
	Status int       `json:"status,omitempty"`
}
