package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"myworld-planner/internal/model"
)

func newTestRepo(t *testing.T) *ChatRepository {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "data", "bot.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewChatRepository(db)
}

func TestUpsertFromTelegram(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	created, err := repo.UpsertFromTelegram(ctx, 42, "Ada", "L", "ada")
	require.NoError(t, err)
	assert.True(t, created.DigestEnabled)

	updated, err := repo.UpsertFromTelegram(ctx, 42, "Ada", "Lovelace", "ada")
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)

	found, err := repo.FindByTelegramID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "Lovelace", found.LastName)

	_, err = repo.FindByTelegramID(ctx, 7)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSessionStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	_, err := repo.UpsertFromTelegram(ctx, 42, "Ada", "", "")
	require.NoError(t, err)

	storage := repo.SessionStorage(42)
	rec, err := storage.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, rec)

	want := model.SessionRecord{User: model.User{ID: "u1", Email: "ada@example.com"}, AccessToken: "tok"}
	require.NoError(t, storage.Save(ctx, want))

	rec, err = storage.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, want, *rec)

	chat, err := repo.FindByTelegramID(ctx, 42)
	require.NoError(t, err)
	assert.True(t, chat.Authenticated())
	assert.NotNil(t, chat.SignedInAt)

	require.NoError(t, storage.Delete(ctx))
	rec, err = storage.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestSessionStorageCreatesMissingChat(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	require.NoError(t, repo.SessionStorage(9).Save(ctx, model.SessionRecord{AccessToken: "tok"}))
	chat, err := repo.FindByTelegramID(ctx, 9)
	require.NoError(t, err)
	assert.True(t, chat.Authenticated())
}

func TestDigestRecipients(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	for _, id := range []int64{1, 2, 3} {
		_, err := repo.UpsertFromTelegram(ctx, id, "", "", "")
		require.NoError(t, err)
	}
	require.NoError(t, repo.SessionStorage(1).Save(ctx, model.SessionRecord{AccessToken: "a"}))
	require.NoError(t, repo.SessionStorage(2).Save(ctx, model.SessionRecord{AccessToken: "b"}))
	require.NoError(t, repo.SetDigest(ctx, 2, false))

	authed, err := repo.ListAuthenticated(ctx)
	require.NoError(t, err)
	assert.Len(t, authed, 2)

	recipients, err := repo.ListDigestRecipients(ctx)
	require.NoError(t, err)
	require.Len(t, recipients, 1)
	assert.Equal(t, int64(1), recipients[0].TelegramID)

	assert.ErrorIs(t, repo.SetDigest(ctx, 99, true), gorm.ErrRecordNotFound)
}
