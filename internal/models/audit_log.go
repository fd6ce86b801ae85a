package models

import "time"

type AuditLog struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"index"`

	UserID uint
	User   User

	Entity   string `gorm:"size:50;not null"` // "asset", "log", "user"
	EntityID string `gorm:"size:64"`
	Action   string `gorm:"size:50;not null"` // "create", "update", "delete"
	Details  string `gorm:"type:text"`
}
