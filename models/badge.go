package models

import (
	"time"
)

// BadgeType: static config (loaded from DB or JSON)
type BadgeType struct {
	ID          string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Code        string `gorm:"uniqueIndex;not null"` // e.g., "FIRST_WIN", "STREAK_7"
	Name        string `gorm:"not null"`             // "First Victory", "Unstoppable"
	Description string
	IconURL     string           `gorm:"type:text"`
	Rarity      string           `gorm:"type:varchar(16);default:'common'"` // common, rare, epic, legendary
	Threshold   map[string]int64 `gorm:"type:jsonb;serializer:json"`        // e.g., {"total_wins": 1}, {"streak": 7}
	CreatedAt   time.Time        `gorm:"autoCreateTime"`
}

// UserBadge: awarded instance (many-to-many)
type UserBadge struct {
	ID             string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	ExternalUserID string    `gorm:"index;not null"`
	BadgeTypeID    string    `gorm:"index;not null"`
	AwardedAt      time.Time `gorm:"autoCreateTime"`
	Metadata       string    `gorm:"type:jsonb"` // e.g., {"session_id": "...", "combo": 15}
}

// Predefined badge triggers, checked after every finalized battle
var BadgeTriggers = []BadgeType{
	{
		Code:        "FIRST_WIN",
		Name:        "First Victory",
		Description: "Won your first battle",
		Rarity:      "common",
		Threshold:   map[string]int64{"total_wins": 1},
	},
	{
		Code:        "VETERAN_50",
		Name:        "Arena Veteran",
		Description: "Fought 50 battles",
		Rarity:      "rare",
		Threshold:   map[string]int64{"total_battles": 50},
	},
	{
		Code:        "STREAK_7",
		Name:        "Unstoppable",
		Description: "Reached a 7-win streak",
		Rarity:      "epic",
		Threshold:   map[string]int64{"streak": 7},
	},
	{
		Code:        "COMBO_15",
		Name:        "Combo Master",
		Description: "Landed a 15-hit combo in one battle",
		Rarity:      "rare",
		Threshold:   map[string]int64{"best_combo": 15},
	},
	{
		Code:        "CLUTCH_WIN",
		Name:        "Against All Odds",
		Description: "Won a battle after nearly going down",
		Rarity:      "epic",
		Threshold:   map[string]int64{"clutch_wins": 1},
	},
	{
		Code:        "REVENGE",
		Name:        "Score Settled",
		Description: "Beat an opponent who previously beat you",
		Rarity:      "rare",
		Threshold:   map[string]int64{"revenge_wins": 1},
	},
}
