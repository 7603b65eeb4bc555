package models

import "time"

// BattleEventType for the per-player event feed consumed by the SSE stream
type BattleEventType string

const (
	EventChallengeReceived BattleEventType = "challenge_received"
	EventChallengeAccepted BattleEventType = "challenge_accepted"
	EventChallengeDeclined BattleEventType = "challenge_declined"
	EventChallengeExpired  BattleEventType = "challenge_expired"
	EventExpiryWarning     BattleEventType = "expiry_warning" // UX urgency, never a state change
	EventBattleStarted     BattleEventType = "battle_started"
	EventBattleFinished    BattleEventType = "battle_finished"
	EventShieldProtected   BattleEventType = "shield_protected"
	EventBadgeAwarded      BattleEventType = "badge_awarded"
)

// BattleEvent is one row in a player's event feed. Written by services,
// streamed out by the SSE endpoint and mirrored to the redis notification
// channel for push delivery.
type BattleEvent struct {
	ID        string          `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	PlayerID  string          `gorm:"index;not null" json:"player_id"`
	SessionID string          `gorm:"index" json:"session_id,omitempty"`
	Type      BattleEventType `gorm:"type:varchar(24);not null" json:"type"`
	Payload   string          `gorm:"type:jsonb" json:"payload,omitempty"`
	CreatedAt time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
}
