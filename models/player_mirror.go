package models

import (
	"time"

	"gorm.io/gorm"
)

// PlayerMirror mirrors player profile data from the platform sync service.
// Read-only here: the sync worker upserts, everything else just reads it for
// challenger display data and opponent suggestions.
// Table name: player_mirror
type PlayerMirror struct {
	ID             string `gorm:"primaryKey;type:uuid;not null" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"`
	Username       string `gorm:"not null" json:"username"`
	AvatarEmoji    string `gorm:"size:10" json:"avatar_emoji"`

	Level int `gorm:"default:1" json:"level"`
	Rank  int `gorm:"default:1" json:"rank"`

	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	LastSyncedAt time.Time `gorm:"not null" json:"last_synced_at"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (PlayerMirror) TableName() string { return "player_mirror" }
