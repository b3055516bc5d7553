package usecase

import (
	"context"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/totegamma/officechat/internal/domain"
)

var tracer = otel.Tracer("usecase")

// HistoryLimit caps how many messages History returns.
const HistoryLimit = 500

type MessageUsecase struct {
	store     Store
	directory Directory
	notifier  Notifier
	clock     Clock
	newID     IDGenerator
}

func NewMessageUsecase(store Store, directory Directory, notifier Notifier, clock Clock, newID IDGenerator) *MessageUsecase {
	return &MessageUsecase{
		store:     store,
		directory: directory,
		notifier:  notifier,
		clock:     clock,
		newID:     newID,
	}
}

// Send stores a direct message and pushes it to every session of both parties.
func (uc *MessageUsecase) Send(ctx context.Context, fromID, toID, text string) (domain.Message, error) {
	ctx, span := tracer.Start(ctx, "Message.Usecase.Send")
	defer span.End()

	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Message{}, domain.ValidationError{Field: "text", Reason: "empty"}
	}
	if toID == "" {
		return domain.Message{}, domain.ValidationError{Field: "toId", Reason: "missing"}
	}
	if _, err := uc.directory.Lookup(ctx, toID); err != nil {
		span.RecordError(err)
		return domain.Message{}, err
	}

	now := uc.clock()
	msg := domain.Message{
		ID:        uc.newID("m"),
		FromID:    fromID,
		ToID:      toID,
		Text:      text,
		CreatedAt: now,
	}

	_, err := uc.store.Commit(ctx, func(doc *domain.Document) error {
		doc.Messages = append(doc.Messages, msg)
		doc.AppendActivity(uc.activity(domain.ActivityDMSent, fromID, map[string]any{
			"toId":      toID,
			"messageId": msg.ID,
		}))
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return domain.Message{}, err
	}

	span.SetAttributes(attribute.String("MessageId", msg.ID))

	event := domain.NewMessageEvent(msg)
	uc.notifier.Notify(ctx, fromID, event)
	if toID != fromID {
		uc.notifier.Notify(ctx, toID, event)
	}
	return msg, nil
}

// MarkRead marks every unread message from otherID to readerID as read.
// It returns how many messages changed; zero means nothing was committed.
func (uc *MessageUsecase) MarkRead(ctx context.Context, readerID, otherID string) (int, error) {
	ctx, span := tracer.Start(ctx, "Message.Usecase.MarkRead")
	defer span.End()

	if otherID == "" {
		return 0, domain.ValidationError{Field: "otherId", Reason: "missing"}
	}

	// skip the write queue entirely when the committed state has nothing to do
	if countUnread(uc.store.Read(), readerID, otherID) == 0 {
		return 0, nil
	}

	now := uc.clock()
	changed := 0
	_, err := uc.store.Commit(ctx, func(doc *domain.Document) error {
		changed = 0
		for i := range doc.Messages {
			m := &doc.Messages[i]
			if m.FromID == otherID && m.ToID == readerID && m.ReadAt == nil {
				readAt := now
				m.ReadAt = &readAt
				changed++
			}
		}
		if changed > 0 {
			doc.AppendActivity(uc.activity(domain.ActivityDMRead, readerID, map[string]any{
				"otherId": otherID,
				"count":   changed,
			}))
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	if changed > 0 {
		uc.notifier.Notify(ctx, otherID, domain.NewMessageReadEvent(readerID, otherID, now))
		uc.notifier.Notify(ctx, readerID, domain.NewUnreadChangedEvent())
	}
	return changed, nil
}

// History returns the latest messages between a and b, oldest first.
func (uc *MessageUsecase) History(ctx context.Context, a, b string, limit int) ([]domain.Message, error) {
	_, span := tracer.Start(ctx, "Message.Usecase.History")
	defer span.End()

	if limit <= 0 || limit > HistoryLimit {
		limit = HistoryLimit
	}

	doc := uc.store.Read()
	msgs := make([]domain.Message, 0)
	for _, m := range doc.Messages {
		if m.Between(a, b) {
			msgs = append(msgs, m)
		}
	}
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

// UnreadCounts returns, per sender, how many messages to me are still unread.
func (uc *MessageUsecase) UnreadCounts(ctx context.Context, me string) (map[string]int, error) {
	_, span := tracer.Start(ctx, "Message.Usecase.UnreadCounts")
	defer span.End()

	counts := map[string]int{}
	for _, m := range uc.store.Read().Messages {
		if m.ToID == me && m.IsUnread() {
			counts[m.FromID]++
		}
	}
	return counts, nil
}

func (uc *MessageUsecase) activity(kind, actorID string, payload map[string]any) domain.ActivityEntry {
	return newActivity(uc.newID, uc.clock, kind, actorID, payload)
}

func countUnread(doc *domain.Document, readerID, otherID string) int {
	n := 0
	for _, m := range doc.Messages {
		if m.FromID == otherID && m.ToID == readerID && m.IsUnread() {
			n++
		}
	}
	return n
}
