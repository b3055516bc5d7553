package usecase

import (
	"context"
	"slices"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/totegamma/officechat/internal/domain"
)

const (
	MinSnoozeMinutes = 1
	MaxSnoozeMinutes = 1440
)

// NoteInput creates a note. Nil Assignees means the creator alone.
type NoteInput struct {
	Text      string     `json:"text"`
	Assignees []string   `json:"assignees"`
	DueAt     *time.Time `json:"dueAt"`
	Important bool       `json:"important"`
}

// NotePatch edits a note. Nil fields are left unchanged; ClearDueAt removes the due time.
type NotePatch struct {
	Text       *string    `json:"text"`
	Assignees  *[]string  `json:"assignees"`
	DueAt      *time.Time `json:"dueAt"`
	ClearDueAt bool       `json:"clearDueAt"`
	Important  *bool      `json:"important"`
}

type NoteUsecase struct {
	store     Store
	directory Directory
	clock     Clock
	newID     IDGenerator
}

func NewNoteUsecase(store Store, directory Directory, clock Clock, newID IDGenerator) *NoteUsecase {
	return &NoteUsecase{
		store:     store,
		directory: directory,
		clock:     clock,
		newID:     newID,
	}
}

func (uc *NoteUsecase) Create(ctx context.Context, actorID string, input NoteInput) (domain.Note, error) {
	ctx, span := tracer.Start(ctx, "Note.Usecase.Create")
	defer span.End()

	text := strings.TrimSpace(input.Text)
	if text == "" {
		return domain.Note{}, domain.ValidationError{Field: "text", Reason: "empty"}
	}
	assignees := input.Assignees
	if assignees == nil {
		assignees = []string{actorID}
	}
	assignees, err := uc.cleanAssignees(ctx, assignees)
	if err != nil {
		return domain.Note{}, err
	}

	var due *time.Time
	if input.DueAt != nil {
		d := *input.DueAt
		due = &d
	}

	now := uc.clock()
	note := domain.Note{
		ID:        uc.newID("n"),
		CreatorID: actorID,
		Assignees: assignees,
		Text:      text,
		Important: input.Important,
		DueAt:     due,
		Status:    domain.NoteStatusOpen,
		SeenBy:    map[string]time.Time{actorID: now},
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = uc.store.Commit(ctx, func(doc *domain.Document) error {
		doc.Notes = append(doc.Notes, note)
		doc.AppendActivity(uc.activity(domain.ActivityNoteCreated, actorID, notePayload(&note)))
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return domain.Note{}, err
	}
	span.SetAttributes(attribute.String("NoteId", note.ID))
	return note, nil
}

// Edit applies patch. Only the creator or an admin may edit. Changing the
// schedule or the assignees re-arms the reminder.
func (uc *NoteUsecase) Edit(ctx context.Context, actorID, id string, patch NotePatch) (domain.Note, error) {
	ctx, span := tracer.Start(ctx, "Note.Usecase.Edit")
	defer span.End()

	var text string
	if patch.Text != nil {
		text = strings.TrimSpace(*patch.Text)
		if text == "" {
			return domain.Note{}, domain.ValidationError{Field: "text", Reason: "empty"}
		}
	}
	var assignees []string
	if patch.Assignees != nil {
		var err error
		assignees, err = uc.cleanAssignees(ctx, *patch.Assignees)
		if err != nil {
			return domain.Note{}, err
		}
	}
	elevated := isElevated(ctx, uc.directory, actorID)

	var updated domain.Note
	_, err := uc.store.Commit(ctx, func(doc *domain.Document) error {
		note := doc.FindNote(id)
		if note == nil {
			return domain.NotFoundError{Resource: "note"}
		}
		if note.CreatorID != actorID && !elevated {
			return domain.AuthorizationError{Action: "edit note"}
		}

		now := uc.clock()
		if patch.Text != nil {
			note.Text = text
		}
		if patch.Important != nil {
			note.Important = *patch.Important
		}
		if patch.ClearDueAt {
			note.DueAt = nil
			note.Rearm()
		} else if patch.DueAt != nil {
			due := *patch.DueAt
			note.DueAt = &due
			note.Rearm()
		}
		if patch.Assignees != nil {
			note.Assignees = assignees
			note.Rearm()
		}
		note.UpdatedAt = now

		doc.AppendActivity(uc.activity(domain.ActivityNoteUpdated, actorID, notePayload(note)))
		updated = *note
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return domain.Note{}, err
	}
	return updated, nil
}

// Complete marks the note done. Done is terminal; completing again returns the note unchanged.
func (uc *NoteUsecase) Complete(ctx context.Context, actorID, id string) (domain.Note, error) {
	ctx, span := tracer.Start(ctx, "Note.Usecase.Complete")
	defer span.End()

	elevated := isElevated(ctx, uc.directory, actorID)

	var updated domain.Note
	_, err := uc.store.Commit(ctx, func(doc *domain.Document) error {
		note := doc.FindNote(id)
		if note == nil {
			return domain.NotFoundError{Resource: "note"}
		}
		if !note.IsParty(actorID) && !elevated {
			return domain.AuthorizationError{Action: "complete note"}
		}
		if note.Status == domain.NoteStatusDone {
			updated = *note
			return nil
		}

		now := uc.clock()
		doneBy := actorID
		note.Status = domain.NoteStatusDone
		note.DoneByID = &doneBy
		note.DoneAt = &now
		note.UpdatedAt = now

		doc.AppendActivity(uc.activity(domain.ActivityNoteDone, actorID, map[string]any{"noteId": note.ID}))
		updated = *note
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return domain.Note{}, err
	}
	return updated, nil
}

// Snooze postpones the reminder by minutes and re-arms it for one more fire.
func (uc *NoteUsecase) Snooze(ctx context.Context, actorID, id string, minutes int) (domain.Note, error) {
	ctx, span := tracer.Start(ctx, "Note.Usecase.Snooze")
	defer span.End()

	if minutes < MinSnoozeMinutes || minutes > MaxSnoozeMinutes {
		return domain.Note{}, domain.ValidationError{Field: "minutes", Reason: "must be between 1 and 1440"}
	}
	elevated := isElevated(ctx, uc.directory, actorID)

	var updated domain.Note
	_, err := uc.store.Commit(ctx, func(doc *domain.Document) error {
		note := doc.FindNote(id)
		if note == nil {
			return domain.NotFoundError{Resource: "note"}
		}
		if !note.IsParty(actorID) && !elevated {
			return domain.AuthorizationError{Action: "snooze note"}
		}

		now := uc.clock()
		until := now.Add(time.Duration(minutes) * time.Minute)
		note.SnoozeUntil = &until
		note.Rearm()
		note.UpdatedAt = now

		doc.AppendActivity(uc.activity(domain.ActivityNoteSnoozed, actorID, map[string]any{
			"noteId":  note.ID,
			"minutes": minutes,
		}))
		updated = *note
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return domain.Note{}, err
	}
	return updated, nil
}

// Delete removes the note. Only the creator or an admin may delete.
func (uc *NoteUsecase) Delete(ctx context.Context, actorID, id string) error {
	ctx, span := tracer.Start(ctx, "Note.Usecase.Delete")
	defer span.End()

	elevated := isElevated(ctx, uc.directory, actorID)

	_, err := uc.store.Commit(ctx, func(doc *domain.Document) error {
		note := doc.FindNote(id)
		if note == nil {
			return domain.NotFoundError{Resource: "note"}
		}
		if note.CreatorID != actorID && !elevated {
			return domain.AuthorizationError{Action: "delete note"}
		}
		doc.RemoveNote(id)
		doc.AppendActivity(uc.activity(domain.ActivityNoteDeleted, actorID, map[string]any{"noteId": id}))
		return nil
	})
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// List returns the notes visible to actor in scope, earliest due first and undated last.
func (uc *NoteUsecase) List(ctx context.Context, actorID string, scope domain.NoteScope) ([]domain.Note, error) {
	ctx, span := tracer.Start(ctx, "Note.Usecase.List")
	defer span.End()

	if scope == "" {
		scope = domain.NoteScopeInbox
	}

	var keep func(n *domain.Note) bool
	switch scope {
	case domain.NoteScopeInbox:
		keep = func(n *domain.Note) bool { return n.IsParty(actorID) }
	case domain.NoteScopeCreated:
		keep = func(n *domain.Note) bool { return n.CreatorID == actorID }
	case domain.NoteScopeAll:
		if isElevated(ctx, uc.directory, actorID) {
			keep = func(n *domain.Note) bool { return true }
		} else {
			keep = func(n *domain.Note) bool { return n.IsParty(actorID) }
		}
	default:
		return nil, domain.ValidationError{Field: "scope", Reason: string(scope)}
	}

	doc := uc.store.Read()
	notes := make([]domain.Note, 0)
	for i := range doc.Notes {
		if keep(&doc.Notes[i]) {
			notes = append(notes, doc.Notes[i])
		}
	}
	sort.SliceStable(notes, func(i, j int) bool {
		a, b := notes[i].DueAt, notes[j].DueAt
		switch {
		case a == nil && b == nil:
			return notes[i].CreatedAt.Before(notes[j].CreatedAt)
		case a == nil:
			return false
		case b == nil:
			return true
		case a.Equal(*b):
			return notes[i].CreatedAt.Before(notes[j].CreatedAt)
		default:
			return a.Before(*b)
		}
	})
	return notes, nil
}

// MarkSeen records that actor has seen the given notes. Ids the actor is not
// party to, or that do not exist, are skipped.
func (uc *NoteUsecase) MarkSeen(ctx context.Context, actorID string, ids []string) (int, error) {
	ctx, span := tracer.Start(ctx, "Note.Usecase.MarkSeen")
	defer span.End()

	marked := 0
	_, err := uc.store.Commit(ctx, func(doc *domain.Document) error {
		marked = 0
		now := uc.clock()
		for _, id := range ids {
			note := doc.FindNote(id)
			if note == nil || !note.IsParty(actorID) {
				continue
			}
			note.SeenBy[actorID] = now
			marked++
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	return marked, nil
}

func (uc *NoteUsecase) cleanAssignees(ctx context.Context, ids []string) ([]string, error) {
	trimmed := make([]string, 0, len(ids))
	for _, id := range ids {
		trimmed = append(trimmed, strings.TrimSpace(id))
	}
	assignees := domain.NormalizeAssignees(trimmed)
	if len(assignees) == 0 {
		return nil, domain.ValidationError{Field: "assignees", Reason: "empty"}
	}
	for _, id := range assignees {
		if _, err := uc.directory.Lookup(ctx, id); err != nil {
			return nil, err
		}
	}
	return assignees, nil
}

func (uc *NoteUsecase) activity(kind, actorID string, payload map[string]any) domain.ActivityEntry {
	return newActivity(uc.newID, uc.clock, kind, actorID, payload)
}

func notePayload(n *domain.Note) map[string]any {
	return map[string]any{
		"noteId":    n.ID,
		"dueAt":     n.DueAt,
		"important": n.Important,
		"assignees": slices.Clone(n.Assignees),
	}
}
