package domain

import "time"

type EventType string

const (
	EventPresence      EventType = "presence"
	EventMessageNew    EventType = "message_new"
	EventMessageRead   EventType = "message_read"
	EventUnreadChanged EventType = "unread_changed"
	EventReminderDue   EventType = "reminder_due"
)

// Event is pushed to live connections. Payload is JSON-encoded as-is.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

type PresencePayload struct {
	Online []string `json:"online"`
}

type MessageReadPayload struct {
	ReaderID string    `json:"readerId"`
	OtherID  string    `json:"otherId"`
	ReadAt   time.Time `json:"readAt"`
}

type ReminderDuePayload struct {
	NoteID string `json:"noteId"`
}

func NewPresenceEvent(online []string) Event {
	if online == nil {
		online = []string{}
	}
	return Event{Type: EventPresence, Payload: PresencePayload{Online: online}}
}

func NewMessageEvent(m Message) Event {
	return Event{Type: EventMessageNew, Payload: m}
}

func NewMessageReadEvent(readerID, otherID string, readAt time.Time) Event {
	return Event{Type: EventMessageRead, Payload: MessageReadPayload{ReaderID: readerID, OtherID: otherID, ReadAt: readAt}}
}

func NewUnreadChangedEvent() Event {
	return Event{Type: EventUnreadChanged, Payload: struct{}{}}
}

func NewReminderDueEvent(noteID string) Event {
	return Event{Type: EventReminderDue, Payload: ReminderDuePayload{NoteID: noteID}}
}
