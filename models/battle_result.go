package models

// RewardBreakdown is the computed payout for one finished battle
type RewardBreakdown struct {
	XP                 int64 `json:"xp"`
	Coins              int64 `json:"coins"`
	StreakBonusPercent int   `json:"streak_bonus_percent"` // reporting only, derived from the multiplier
	PerfectBonus       bool  `json:"perfect_bonus"`
	Clutch             bool  `json:"clutch"`
	Revenge            bool  `json:"revenge"`
}

// BattleResult is the immutable record written once per session.
// The unique index on SessionID is the exactly-once guard for finalization;
// the result ID is the idempotency key for settlement and XP push.
type BattleResult struct {
	ID          string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	SessionID   string `gorm:"uniqueIndex;not null" json:"session_id"`
	ChallengeID string `gorm:"index;not null" json:"challenge_id"`
	PlayerID    string `gorm:"index;not null" json:"player_id"`
	OpponentID  string `gorm:"index;not null" json:"opponent_id"`

	Won           bool  `json:"won"`
	PlayerScore   int64 `json:"player_score"`
	OpponentScore int64 `json:"opponent_score"`
	DurationSec   int   `json:"duration_sec"` // time actually fought, not the fixed session length

	Rewards RewardBreakdown `gorm:"type:jsonb;serializer:json" json:"rewards"`

	ShareSlug string `gorm:"index" json:"share_slug,omitempty"`
	ReplayURL string `gorm:"type:text" json:"replay_url,omitempty"`

	// set once the progression store acknowledged the XP delta
	XPApplied bool `gorm:"default:false;index" json:"xp_applied"`

	Timestamps
}

// PlayerBattleStats are denormalized per-player counters used for badge
// triggers and opponent suggestions
type PlayerBattleStats struct {
	ID             string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"`

	TotalBattles     int64 `gorm:"default:0" json:"total_battles"`
	TotalWins        int64 `gorm:"default:0" json:"total_wins"`
	TotalLosses      int64 `gorm:"default:0" json:"total_losses"`
	BestCombo        int   `gorm:"default:0" json:"best_combo"`
	TotalPerfectHits int64 `gorm:"default:0" json:"total_perfect_hits"`
	ClutchWins       int64 `gorm:"default:0" json:"clutch_wins"`
	RevengeWins      int64 `gorm:"default:0" json:"revenge_wins"`

	Timestamps
}
