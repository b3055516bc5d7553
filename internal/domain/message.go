package domain

import "time"

// Message is a direct message between two identities.
// ReadAt is set once by the recipient and never changes afterwards.
type Message struct {
	ID        string     `json:"id"`
	FromID    string     `json:"fromId"`
	ToID      string     `json:"toId"`
	Text      string     `json:"text"`
	CreatedAt time.Time  `json:"createdAt"`
	ReadAt    *time.Time `json:"readAt"`
}

func (m Message) IsUnread() bool {
	return m.ReadAt == nil
}

// Between reports whether the message was exchanged by a and b in either direction.
func (m Message) Between(a, b string) bool {
	return (m.FromID == a && m.ToID == b) || (m.FromID == b && m.ToID == a)
}
