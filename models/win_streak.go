package models

// WinStreak tracks a player's consecutive wins and the one-time loss shield.
// The XP multiplier is always derived from Current via the tier table, never
// stored, so count and multiplier cannot drift apart.
type WinStreak struct {
	ID             string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"`

	Current int `gorm:"default:0" json:"current"`
	Longest int `gorm:"default:0" json:"longest"`

	// ShieldActive: armed and will absorb the next loss.
	// ShieldUsed: consumed during the current unbroken streak; blocks re-arming
	// until the streak is rebuilt from zero.
	ShieldActive bool `gorm:"default:false" json:"shield_active"`
	ShieldUsed   bool `gorm:"default:false" json:"shield_used"`

	Timestamps
}
