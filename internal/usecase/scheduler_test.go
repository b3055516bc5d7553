package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/totegamma/officechat/internal/domain"
)

func TestReminderFiresOncePerArming(t *testing.T) {
	f := newFixture(t)
	notes := f.notes()
	sched := f.scheduler()
	ctx := context.Background()

	due := t0
	note, err := notes.Create(ctx, "alice", NoteInput{Text: "call", Assignees: []string{"bob", "carol"}, DueAt: &due})
	require.NoError(t, err)

	fired, err := sched.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{note.ID}, fired)

	reminders := f.notifier.of(domain.EventReminderDue)
	require.Len(t, reminders, 2)
	assert.ElementsMatch(t, []string{"bob", "carol"}, []string{reminders[0].to, reminders[1].to})
	assert.Equal(t, note.ID, reminders[0].event.Payload.(domain.ReminderDuePayload).NoteID)

	stored := f.store.Read().FindNote(note.ID)
	assert.Equal(t, domain.NoteStatusOpen, stored.Status, "firing does not complete the note")
	require.NotNil(t, stored.LastTriggeredAt)

	for i := 0; i < 3; i++ {
		f.clock.Advance(TickInterval)
		fired, err = sched.Tick(ctx)
		require.NoError(t, err)
		assert.Empty(t, fired)
	}
	assert.Len(t, f.notifier.of(domain.EventReminderDue), 2)
}

func TestSnoozeRearmsExactlyOnce(t *testing.T) {
	f := newFixture(t)
	notes := f.notes()
	sched := f.scheduler()
	ctx := context.Background()

	due := t0
	note, err := notes.Create(ctx, "alice", NoteInput{Text: "call", Assignees: []string{"bob"}, DueAt: &due})
	require.NoError(t, err)
	_, err = sched.Tick(ctx)
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	snoozed, err := notes.Snooze(ctx, "bob", note.ID, 10)
	require.NoError(t, err)
	assert.True(t, snoozed.SnoozeUntil.Equal(t0.Add(11*time.Minute)))
	assert.Nil(t, snoozed.LastTriggeredAt)

	f.notifier.reset()
	for f.clock.Now().Before(t0.Add(11 * time.Minute)) {
		fired, err := sched.Tick(ctx)
		require.NoError(t, err)
		assert.Empty(t, fired)
		f.clock.Advance(TickInterval)
	}

	fired, err := sched.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{note.ID}, fired)

	f.clock.Advance(TickInterval)
	fired, err = sched.Tick(ctx)
	require.NoError(t, err)
	assert.Empty(t, fired)
	assert.Len(t, f.notifier.of(domain.EventReminderDue), 1)
}

func TestEditRearmsSchedule(t *testing.T) {
	f := newFixture(t)
	notes := f.notes()
	sched := f.scheduler()
	ctx := context.Background()

	due := t0
	note, err := notes.Create(ctx, "alice", NoteInput{Text: "x", DueAt: &due})
	require.NoError(t, err)
	_, err = sched.Tick(ctx)
	require.NoError(t, err)

	_, err = notes.Edit(ctx, "alice", note.ID, NotePatch{Text: ptr("y")})
	require.NoError(t, err)
	fired, err := sched.Tick(ctx)
	require.NoError(t, err)
	assert.Empty(t, fired, "text-only edits keep the latch")

	_, err = notes.Edit(ctx, "alice", note.ID, NotePatch{Assignees: &[]string{"alice", "bob"}})
	require.NoError(t, err)
	fired, err = sched.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{note.ID}, fired)
}

func TestSchedulerSkipsDoneAndUndatedNotes(t *testing.T) {
	f := newFixture(t)
	notes := f.notes()
	sched := f.scheduler()
	ctx := context.Background()

	due := t0.Add(-time.Minute)
	future := t0.Add(time.Hour)
	done, err := notes.Create(ctx, "alice", NoteInput{Text: "done", DueAt: &due})
	require.NoError(t, err)
	_, err = notes.Complete(ctx, "alice", done.ID)
	require.NoError(t, err)
	_, err = notes.Create(ctx, "alice", NoteInput{Text: "undated"})
	require.NoError(t, err)
	_, err = notes.Create(ctx, "alice", NoteInput{Text: "future", DueAt: &future})
	require.NoError(t, err)

	fired, err := sched.Tick(ctx)
	require.NoError(t, err)
	assert.Empty(t, fired)
}

func TestTickFailureKeepsLatchOpen(t *testing.T) {
	f := newFixture(t)
	notes := f.notes()
	sched := f.scheduler()
	ctx := context.Background()

	due := t0
	note, err := notes.Create(ctx, "alice", NoteInput{Text: "x", DueAt: &due})
	require.NoError(t, err)

	f.backend.fail = true
	_, err = sched.Tick(ctx)
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.Empty(t, f.notifier.of(domain.EventReminderDue))
	assert.Nil(t, f.store.Read().FindNote(note.ID).LastTriggeredAt)

	// safeTick swallows the failure so the loop keeps going
	sched.safeTick(ctx)

	f.backend.fail = false
	fired, err := sched.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{note.ID}, fired)
}

func TestRunStopsWithContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.scheduler().Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
