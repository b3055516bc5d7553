package domain

import (
	"slices"
	"time"
)

// Note is a shared reminder assigned to one or more identities.
type Note struct {
	ID              string               `json:"id"`
	CreatorID       string               `json:"creatorId"`
	Assignees       []string             `json:"assignees"`
	Text            string               `json:"text"`
	Important       bool                 `json:"important"`
	DueAt           *time.Time           `json:"dueAt"`
	Status          NoteStatus           `json:"status"`
	SnoozeUntil     *time.Time           `json:"snoozeUntil"`
	LastTriggeredAt *time.Time           `json:"lastTriggeredAt"`
	SeenBy          map[string]time.Time `json:"seenBy"`
	DoneByID        *string              `json:"doneById"`
	DoneAt          *time.Time           `json:"doneAt"`
	CreatedAt       time.Time            `json:"createdAt"`
	UpdatedAt       time.Time            `json:"updatedAt"`
}

func (n *Note) IsAssignee(id string) bool {
	return slices.Contains(n.Assignees, id)
}

// IsParty reports whether id created the note or is assigned to it.
func (n *Note) IsParty(id string) bool {
	return n.CreatorID == id || n.IsAssignee(id)
}

// Armed reports whether the note's due time and snooze both lie at or before now.
func (n *Note) Armed(now time.Time) bool {
	if n.Status != NoteStatusOpen || n.DueAt == nil {
		return false
	}
	if n.DueAt.After(now) {
		return false
	}
	return n.SnoozeUntil == nil || !n.SnoozeUntil.After(now)
}

// ShouldFire reports whether the reminder is armed and its latch is still open.
func (n *Note) ShouldFire(now time.Time) bool {
	return n.Armed(now) && n.LastTriggeredAt == nil
}

// Rearm clears the firing latch so the next armed tick fires once more.
func (n *Note) Rearm() {
	n.LastTriggeredAt = nil
}

// NormalizeAssignees drops blank ids and duplicates while keeping the first-seen order.
func NormalizeAssignees(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || slices.Contains(out, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}
