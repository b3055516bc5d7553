package usecase

import (
	"context"

	"github.com/totegamma/officechat/internal/domain"
)

type SettingsPatch struct {
	OfficeName *string `json:"officeName"`
	SoundURL   *string `json:"soundUrl"`
}

type SettingsUsecase struct {
	store     Store
	directory Directory
	clock     Clock
	newID     IDGenerator
}

func NewSettingsUsecase(store Store, directory Directory, clock Clock, newID IDGenerator) *SettingsUsecase {
	return &SettingsUsecase{
		store:     store,
		directory: directory,
		clock:     clock,
		newID:     newID,
	}
}

func (uc *SettingsUsecase) Get(ctx context.Context) domain.Settings {
	return uc.store.Read().Settings
}

// Update changes office settings. Admin only.
func (uc *SettingsUsecase) Update(ctx context.Context, actorID string, patch SettingsPatch) (domain.Settings, error) {
	ctx, span := tracer.Start(ctx, "Settings.Usecase.Update")
	defer span.End()

	if err := requireElevated(ctx, uc.directory, actorID, "update settings"); err != nil {
		return domain.Settings{}, err
	}

	doc, err := uc.store.Commit(ctx, func(doc *domain.Document) error {
		if patch.OfficeName != nil {
			doc.Settings.OfficeName = *patch.OfficeName
		}
		if patch.SoundURL != nil {
			doc.Settings.SoundURL = *patch.SoundURL
		}
		doc.AppendActivity(newActivity(uc.newID, uc.clock, domain.ActivitySettingsUpdated, actorID, map[string]any{
			"officeName": doc.Settings.OfficeName,
			"soundUrl":   doc.Settings.SoundURL,
		}))
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return domain.Settings{}, err
	}
	return doc.Settings, nil
}
