package domain

import (
	"maps"
	"slices"
	"time"
)

// Settings holds office-wide presentation settings.
type Settings struct {
	OfficeName string `json:"officeName"`
	SoundURL   string `json:"soundUrl"`
}

func DefaultSettings() Settings {
	return Settings{
		OfficeName: "Chat4Office",
		SoundURL:   "/sounds/notify.wav",
	}
}

// Document is the unit of atomic persistence.
type Document struct {
	Messages []Message       `json:"messages"`
	Notes    []Note          `json:"notes"`
	Activity []ActivityEntry `json:"activity"`
	Settings Settings        `json:"settings"`
}

func NewDocument() *Document {
	d := &Document{Settings: DefaultSettings()}
	d.Normalize()
	return d
}

// Normalize fills in collections and maps missing from older or hand-edited documents.
func (d *Document) Normalize() {
	if d.Messages == nil {
		d.Messages = []Message{}
	}
	if d.Notes == nil {
		d.Notes = []Note{}
	}
	if d.Activity == nil {
		d.Activity = []ActivityEntry{}
	}
	if d.Settings == (Settings{}) {
		d.Settings = DefaultSettings()
	}
	for i := range d.Notes {
		if d.Notes[i].SeenBy == nil {
			d.Notes[i].SeenBy = map[string]time.Time{}
		}
		if d.Notes[i].Status == "" {
			d.Notes[i].Status = NoteStatusOpen
		}
	}
	if over := len(d.Activity) - ActivityCapacity; over > 0 {
		d.Activity = d.Activity[over:]
	}
}

// Clone returns a deep copy that can be mutated without affecting d.
func (d *Document) Clone() *Document {
	c := &Document{
		Messages: make([]Message, len(d.Messages)),
		Notes:    make([]Note, len(d.Notes)),
		Activity: slices.Clone(d.Activity),
		Settings: d.Settings,
	}
	for i, m := range d.Messages {
		m.ReadAt = cloneTime(m.ReadAt)
		c.Messages[i] = m
	}
	for i, n := range d.Notes {
		n.Assignees = slices.Clone(n.Assignees)
		n.SeenBy = maps.Clone(n.SeenBy)
		n.DueAt = cloneTime(n.DueAt)
		n.SnoozeUntil = cloneTime(n.SnoozeUntil)
		n.LastTriggeredAt = cloneTime(n.LastTriggeredAt)
		n.DoneAt = cloneTime(n.DoneAt)
		if n.DoneByID != nil {
			id := *n.DoneByID
			n.DoneByID = &id
		}
		c.Notes[i] = n
	}
	if c.Activity == nil {
		c.Activity = []ActivityEntry{}
	}
	return c
}

// FindNote returns a pointer into d.Notes, or nil.
func (d *Document) FindNote(id string) *Note {
	for i := range d.Notes {
		if d.Notes[i].ID == id {
			return &d.Notes[i]
		}
	}
	return nil
}

func (d *Document) RemoveNote(id string) bool {
	before := len(d.Notes)
	d.Notes = slices.DeleteFunc(d.Notes, func(n Note) bool { return n.ID == id })
	return len(d.Notes) != before
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
