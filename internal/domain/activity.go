package domain

import "time"

// ActivityCapacity bounds the audit trail kept in the document.
const ActivityCapacity = 2000

// ActivityEntry is one immutable audit record.
type ActivityEntry struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	ActorID string         `json:"actorId"`
	Payload map[string]any `json:"payload"`
	At      time.Time      `json:"at"`
}

// AppendActivity adds entry and evicts the oldest entries beyond ActivityCapacity.
// It must only be called from inside a store commit.
func (d *Document) AppendActivity(entry ActivityEntry) {
	if entry.Payload == nil {
		entry.Payload = map[string]any{}
	}
	d.Activity = append(d.Activity, entry)
	if over := len(d.Activity) - ActivityCapacity; over > 0 {
		d.Activity = append(d.Activity[:0:0], d.Activity[over:]...)
	}
}

// RecentActivity returns up to limit entries, most recent first.
func (d *Document) RecentActivity(limit int) []ActivityEntry {
	if limit <= 0 || limit > len(d.Activity) {
		limit = len(d.Activity)
	}
	out := make([]ActivityEntry, 0, limit)
	for i := len(d.Activity) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, d.Activity[i])
	}
	return out
}
