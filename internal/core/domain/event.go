package domain

import "time"

type EventType string

const (
	EventSessionOpened  EventType = "session_opened"
	EventSessionClosed  EventType = "session_closed"
	EventSessionExpired EventType = "session_expired"
	EventRecordAdded    EventType = "record_added"
	EventRecordRemoved  EventType = "record_removed"
	EventAddRejected    EventType = "add_rejected"
	EventRemoveRejected EventType = "remove_rejected"
)

// Event describes one session activity. Record fields are empty for
// session-level events; Kind is set only for rejections.
type Event struct {
	Type       EventType
	SessionID  string
	RecordID   string
	RecordName string
	Quantity   int
	Kind       ErrorKind
	At         time.Time
}
