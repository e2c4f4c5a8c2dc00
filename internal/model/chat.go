package model

import "time"

// Chat stores Telegram chat metadata and the chat's serialized API session.
type Chat struct {
	ID            uint  `gorm:"primaryKey"`
	TelegramID    int64 `gorm:"uniqueIndex"`
	FirstName     string
	LastName      string
	Username      string
	Session       string // JSON-encoded SessionRecord, empty when signed out
	DigestEnabled bool   `gorm:"default:true"`
	SignedInAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Authenticated reports whether a session record is stored for the chat.
func (c Chat) Authenticated() bool {
	return c.Session != ""
}
