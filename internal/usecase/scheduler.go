package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/totegamma/officechat/internal/domain"
)

// TickInterval is how often the scheduler scans for due notes.
const TickInterval = 4 * time.Second

// Scheduler fires reminder_due for notes whose due time has passed.
// Each arming fires at most once; snoozing or editing re-arms a note.
type Scheduler struct {
	store    Store
	notifier Notifier
	clock    Clock
	newID    IDGenerator
}

func NewScheduler(store Store, notifier Notifier, clock Clock, newID IDGenerator) *Scheduler {
	return &Scheduler{
		store:    store,
		notifier: notifier,
		clock:    clock,
		newID:    newID,
	}
}

// Run ticks until ctx is done. Ticks run one after another on this goroutine,
// so a scan never starts before the previous tick has committed.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	slog.InfoContext(
		ctx, "Reminder scheduler started",
		slog.Duration("interval", TickInterval),
		slog.String("module", "scheduler"),
	)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.safeTick(ctx)
		}
	}
}

func (s *Scheduler) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(
				ctx, "Reminder tick panicked",
				slog.String("error", fmt.Sprint(r)),
				slog.String("module", "scheduler"),
			)
		}
	}()

	if _, err := s.Tick(ctx); err != nil {
		slog.ErrorContext(
			ctx, "Reminder tick failed",
			slog.String("error", err.Error()),
			slog.String("module", "scheduler"),
		)
	}
}

type firedNote struct {
	id        string
	assignees []string
}

// Tick fires every armed, unlatched note in a single commit and then notifies
// their assignees. It returns the ids of the notes that fired. If the commit
// fails nothing is sent and the latches stay open for the next tick.
func (s *Scheduler) Tick(ctx context.Context) ([]string, error) {
	ctx, span := tracer.Start(ctx, "Scheduler.Tick")
	defer span.End()

	now := s.clock()
	if !anyDue(s.store.Read(), now) {
		return nil, nil
	}

	var fired []firedNote
	_, err := s.store.Commit(ctx, func(doc *domain.Document) error {
		fired = fired[:0]
		for i := range doc.Notes {
			note := &doc.Notes[i]
			if !note.ShouldFire(now) {
				continue
			}
			triggered := now
			note.LastTriggeredAt = &triggered
			note.UpdatedAt = now
			fired = append(fired, firedNote{id: note.ID, assignees: append([]string(nil), note.Assignees...)})
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	ids := make([]string, 0, len(fired))
	for _, f := range fired {
		ids = append(ids, f.id)
		event := domain.NewReminderDueEvent(f.id)
		for _, assignee := range f.assignees {
			s.notifier.Notify(ctx, assignee, event)
		}
	}

	if len(ids) > 0 {
		slog.DebugContext(
			ctx, "Reminders fired",
			slog.Int("count", len(ids)),
			slog.String("module", "scheduler"),
		)
	}
	return ids, nil
}

func anyDue(doc *domain.Document, now time.Time) bool {
	for i := range doc.Notes {
		if doc.Notes[i].ShouldFire(now) {
			return true
		}
	}
	return false
}
