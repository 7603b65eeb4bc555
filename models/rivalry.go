package models

import "time"

// Rivalry tracks an unresolved defeat between two players. When PendingRevenge
// is set, the next win by PlayerID against OpponentID pays the revenge bonus
// and clears the flag.
type Rivalry struct {
	ID             string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	PlayerID       string `gorm:"uniqueIndex:idx_rivalry_pair;not null" json:"player_id"`
	OpponentID     string `gorm:"uniqueIndex:idx_rivalry_pair;not null" json:"opponent_id"`
	PendingRevenge bool   `gorm:"default:false" json:"pending_revenge"`

	LastLossAt *time.Time `json:"last_loss_at,omitempty"`

	Timestamps
}
