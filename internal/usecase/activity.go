package usecase

import (
	"context"

	"github.com/totegamma/officechat/internal/domain"
)

const (
	DefaultActivityLimit = 200
	MaxActivityLimit     = 500
)

type ActivityUsecase struct {
	store     Store
	directory Directory
}

func NewActivityUsecase(store Store, directory Directory) *ActivityUsecase {
	return &ActivityUsecase{store: store, directory: directory}
}

// List returns the most recent audit entries, newest first. Admin only.
func (uc *ActivityUsecase) List(ctx context.Context, actorID string, limit int) ([]domain.ActivityEntry, error) {
	ctx, span := tracer.Start(ctx, "Activity.Usecase.List")
	defer span.End()

	if err := requireElevated(ctx, uc.directory, actorID, "list activity"); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	if limit > MaxActivityLimit {
		limit = MaxActivityLimit
	}
	return uc.store.Read().RecentActivity(limit), nil
}

func newActivity(newID IDGenerator, clock Clock, kind, actorID string, payload map[string]any) domain.ActivityEntry {
	return domain.ActivityEntry{
		ID:      newID("a"),
		Type:    kind,
		ActorID: actorID,
		Payload: payload,
		At:      clock(),
	}
}

func isElevated(ctx context.Context, directory Directory, actorID string) bool {
	identity, err := directory.Lookup(ctx, actorID)
	if err != nil {
		return false
	}
	return identity.IsElevated()
}

func requireElevated(ctx context.Context, directory Directory, actorID, action string) error {
	if !isElevated(ctx, directory, actorID) {
		return domain.AuthorizationError{Action: action}
	}
	return nil
}
