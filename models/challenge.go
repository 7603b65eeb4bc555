package models

import (
	"time"

	"gorm.io/gorm"
)

// ChallengeMode is the battle format the challenger picked
type ChallengeMode string

const (
	ModeOneVsOne    ChallengeMode = "1v1"
	ModeTwoVsTwo    ChallengeMode = "2v2"
	ModeKingOfHill  ChallengeMode = "king-of-hill"
	ModeCollectRush ChallengeMode = "collect-rush"
)

func (m ChallengeMode) Valid() bool {
	switch m {
	case ModeOneVsOne, ModeTwoVsTwo, ModeKingOfHill, ModeCollectRush:
		return true
	}
	return false
}

// StakeType is what the challenge is wagered on
type StakeType string

const (
	StakePride StakeType = "pride" // no wager, bragging rights only
	StakeXP    StakeType = "xp"
	StakeCoins StakeType = "coins"
)

func (t StakeType) Valid() bool {
	return t == StakePride || t == StakeXP || t == StakeCoins
}

// ChallengeStatus — pending is the only non-terminal state
type ChallengeStatus string

const (
	ChallengePending   ChallengeStatus = "pending"
	ChallengeAccepted  ChallengeStatus = "accepted"
	ChallengeDeclined  ChallengeStatus = "declined"
	ChallengeExpired   ChallengeStatus = "expired"
	ChallengeCancelled ChallengeStatus = "cancelled"
)

// Terminal reports whether no further transition is allowed
func (s ChallengeStatus) Terminal() bool {
	return s == ChallengeAccepted || s == ChallengeDeclined ||
		s == ChallengeExpired || s == ChallengeCancelled
}

// Challenge is a battle invitation from one player to another
type Challenge struct {
	ID string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`

	ChallengerID     string `gorm:"index;not null" json:"challenger_id"`
	ChallengerName   string `gorm:"not null" json:"challenger_name"`
	ChallengerLevel  int    `gorm:"default:1" json:"challenger_level"`
	ChallengerStreak int    `gorm:"default:0" json:"challenger_streak"`
	ChallengerEmoji  string `gorm:"size:10" json:"challenger_emoji"`
	Message          string `gorm:"size:140" json:"message,omitempty"` // optional taunt

	OpponentID string `gorm:"index;not null" json:"opponent_id"`

	Mode        ChallengeMode `gorm:"type:varchar(16);not null" json:"mode"`
	StakeType   StakeType     `gorm:"type:varchar(8);not null;default:'pride'" json:"stake_type"`
	StakeAmount int64         `gorm:"default:0" json:"stake_amount"`

	Status    ChallengeStatus `gorm:"type:varchar(12);not null;default:'pending';index" json:"status"`
	ExpiresAt time.Time       `gorm:"not null;index" json:"expires_at"`

	Timestamps
}

// ExpiredBy reports whether the response deadline has passed at the given time
func (c *Challenge) ExpiredBy(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
