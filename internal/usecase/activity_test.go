package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/totegamma/officechat/internal/domain"
)

func TestActivityListAdminOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	msgs := f.messages()
	for i := 0; i < 3; i++ {
		_, err := msgs.Send(ctx, "alice", "bob", "hi")
		require.NoError(t, err)
	}

	uc := NewActivityUsecase(f.store, f.dir)
	_, err := uc.List(ctx, "alice", 10)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	entries, err := uc.List(ctx, "root", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a_0006", entries[0].ID, "most recent first")

	entries, err = uc.List(ctx, "root", 0)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestSettingsUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uc := NewSettingsUsecase(f.store, f.dir, f.clock.Now, f.ids)

	_, err := uc.Update(ctx, "alice", SettingsPatch{OfficeName: ptr("Hijacked")})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	settings, err := uc.Update(ctx, "root", SettingsPatch{OfficeName: ptr("Branch Office")})
	require.NoError(t, err)
	assert.Equal(t, "Branch Office", settings.OfficeName)
	assert.Equal(t, domain.DefaultSettings().SoundURL, settings.SoundURL)
	assert.Equal(t, settings, uc.Get(ctx))
	assert.Equal(t, domain.ActivitySettingsUpdated, f.store.Read().Activity[0].Type)
}
