package models

// BattlePhase only ever advances forward: intro → countdown → fighting → finished
type BattlePhase string

const (
	PhaseIntro     BattlePhase = "intro"
	PhaseCountdown BattlePhase = "countdown"
	PhaseFighting  BattlePhase = "fighting"
	PhaseFinished  BattlePhase = "finished"
)

// BattleWinner — empty until the session is decided
type BattleWinner string

const (
	WinnerNone     BattleWinner = ""
	WinnerPlayer   BattleWinner = "player"
	WinnerOpponent BattleWinner = "opponent"
)

// Combatant is one side of a battle (stored as jsonb inside the session)
type Combatant struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Health      int    `json:"health"`
	MaxHealth   int    `json:"max_health"`
	Power       int    `json:"power"`
	Defense     int    `json:"defense"`
	Energy      int    `json:"energy"`
	MaxEnergy   int    `json:"max_energy"`
	IsAutomated bool   `json:"is_automated"`
}

// BattleSession is the combat state for one accepted challenge.
// The engine mutates it in memory; BattleService owns persistence.
type BattleSession struct {
	ID          string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ChallengeID string `gorm:"index;not null" json:"challenge_id"`
	PlayerID    string `gorm:"index;not null" json:"player_id"` // owning side of this record

	Mode ChallengeMode `gorm:"type:varchar(16);not null" json:"mode"`

	Phase    BattlePhase `gorm:"type:varchar(12);not null;default:'intro'" json:"phase"`
	Player   Combatant   `gorm:"type:jsonb;serializer:json" json:"player"`
	Opponent Combatant   `gorm:"type:jsonb;serializer:json" json:"opponent"`

	RemainingSec  int   `json:"remaining_sec"`
	DurationSec   int   `json:"duration_sec"`
	PlayerScore   int64 `json:"player_score"`
	OpponentScore int64 `json:"opponent_score"`

	Combo       int `gorm:"default:0" json:"combo"`
	MaxCombo    int `gorm:"default:0" json:"max_combo"`
	PerfectHits int `gorm:"default:0" json:"perfect_hits"`

	// lowest player health observed in the session, feeds the clutch flag
	PlayerHealthLow int `json:"player_health_low"`

	Winner   BattleWinner `gorm:"type:varchar(10);default:''" json:"winner"`
	External bool         `gorm:"default:false" json:"external"` // handled by the arena runtime, not the local engine

	Timestamps
}

// Finished reports whether the session reached its terminal phase
func (s *BattleSession) Finished() bool {
	return s.Phase == PhaseFinished
}
