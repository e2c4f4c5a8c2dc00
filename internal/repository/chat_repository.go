package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"myworld-planner/internal/model"
)

// ChatRepository stores Telegram chats and their serialized API sessions.
type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// UpsertFromTelegram finds or creates a chat based on TelegramID and updates basic profile info.
func (r *ChatRepository) UpsertFromTelegram(ctx context.Context, telegramID int64, firstName, lastName, username string) (*model.Chat, error) {
	var chat model.Chat
	db := r.db.WithContext(ctx)
	err := db.Where("telegram_id = ?", telegramID).First(&chat).Error
	switch {
	case err == nil:
		updates := map[string]interface{}{
			"first_name": firstName,
			"last_name":  lastName,
			"username":   username,
		}
		if err := db.Model(&chat).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update chat: %w", err)
		}
		return &chat, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		chat = model.Chat{
			TelegramID:    telegramID,
			FirstName:     firstName,
			LastName:      lastName,
			Username:      username,
			DigestEnabled: true,
		}
		if err := db.Create(&chat).Error; err != nil {
			return nil, fmt.Errorf("create chat: %w", err)
		}
		return &chat, nil
	default:
		return nil, fmt.Errorf("find chat: %w", err)
	}
}

func (r *ChatRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*model.Chat, error) {
	var chat model.Chat
	if err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&chat).Error; err != nil {
		return nil, err
	}
	return &chat, nil
}

// ListAuthenticated returns chats holding a session record.
func (r *ChatRepository) ListAuthenticated(ctx context.Context) ([]model.Chat, error) {
	var chats []model.Chat
	if err := r.db.WithContext(ctx).Where("session <> ''").Find(&chats).Error; err != nil {
		return nil, err
	}
	return chats, nil
}

// ListDigestRecipients returns signed-in chats that want the periodic digest.
func (r *ChatRepository) ListDigestRecipients(ctx context.Context) ([]model.Chat, error) {
	var chats []model.Chat
	err := r.db.WithContext(ctx).
		Where("session <> '' AND digest_enabled = ?", true).
		Find(&chats).Error
	if err != nil {
		return nil, err
	}
	return chats, nil
}

func (r *ChatRepository) SetDigest(ctx context.Context, telegramID int64, enabled bool) error {
	res := r.db.WithContext(ctx).Model(&model.Chat{}).
		Where("telegram_id = ?", telegramID).
		Update("digest_enabled", enabled)
	if res.Error != nil {
		return fmt.Errorf("update digest: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SessionStorage returns the session persister bound to one chat.
func (r *ChatRepository) SessionStorage(telegramID int64) *ChatSessionStorage {
	return &ChatSessionStorage{repo: r, telegramID: telegramID}
}

func (r *ChatRepository) loadSession(ctx context.Context, telegramID int64) (*model.SessionRecord, error) {
	chat, err := r.FindByTelegramID(ctx, telegramID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find chat: %w", err)
	}
	if chat.Session == "" {
		return nil, nil
	}

	var rec model.SessionRecord
	if err := json.Unmarshal([]byte(chat.Session), &rec); err != nil {
		return nil, fmt.Errorf("decode session of chat %d: %w", telegramID, err)
	}
	return &rec, nil
}

func (r *ChatRepository) saveSession(ctx context.Context, telegramID int64, rec model.SessionRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	now := time.Now()
	db := r.db.WithContext(ctx)
	res := db.Model(&model.Chat{}).
		Where("telegram_id = ?", telegramID).
		Updates(map[string]interface{}{"session": string(raw), "signed_in_at": &now})
	if res.Error != nil {
		return fmt.Errorf("save session: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	chat := model.Chat{TelegramID: telegramID, Session: string(raw), SignedInAt: &now, DigestEnabled: true}
	if err := db.Create(&chat).Error; err != nil {
		return fmt.Errorf("create chat: %w", err)
	}
	return nil
}

func (r *ChatRepository) deleteSession(ctx context.Context, telegramID int64) error {
	err := r.db.WithContext(ctx).Model(&model.Chat{}).
		Where("telegram_id = ?", telegramID).
		Updates(map[string]interface{}{"session": "", "signed_in_at": nil}).Error
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// ChatSessionStorage persists the session record of a single chat.
type ChatSessionStorage struct {
	repo       *ChatRepository
	telegramID int64
}

func (s *ChatSessionStorage) Load(ctx context.Context) (*model.SessionRecord, error) {
	return s.repo.loadSession(ctx, s.telegramID)
}

func (s *ChatSessionStorage) Save(ctx context.Context, rec model.SessionRecord) error {
	return s.repo.saveSession(ctx, s.telegramID, rec)
}

func (s *ChatSessionStorage) Delete(ctx context.Context) error {
	return s.repo.deleteSession(ctx, s.telegramID)
}
