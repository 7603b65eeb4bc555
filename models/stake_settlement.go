package models

import "time"

// SettlementDirection — credit pays out to the player, debit collects the stake
type SettlementDirection string

const (
	SettlementCredit SettlementDirection = "credit"
	SettlementDebit  SettlementDirection = "debit"
)

// StakeSettlement is a pending ledger entry against the external wallet
// service. One row per BattleResult (ResultID is the idempotency key); the
// settlement worker pushes unsettled rows and marks them on acknowledgement,
// so a wager is applied exactly once no matter how often the push retries.
type StakeSettlement struct {
	ID       string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ResultID string `gorm:"uniqueIndex;not null" json:"result_id"`
	PlayerID string `gorm:"index;not null" json:"player_id"`

	StakeType StakeType           `gorm:"type:varchar(8);not null" json:"stake_type"`
	Amount    int64               `gorm:"not null" json:"amount"`
	Direction SettlementDirection `gorm:"type:varchar(8);not null" json:"direction"`

	Settled   bool       `gorm:"default:false;index" json:"settled"`
	SettledAt *time.Time `json:"settled_at,omitempty"`

	Timestamps
}
