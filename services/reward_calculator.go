package services

import (
	"math"

	"battle-arena-service/models"
)

// Reward constants. Everything here is a pure computation over the finished
// session so the economy stays auditable independent of the combat RNG.
const (
	winBaseXP          = 100
	lossBaseXP         = 25
	perfectHitsForFlag = 10
	perfectBonusXP     = 50
	winBaseCoins       = 50
	clutchBonusRate    = 0.25 // +25% of the computed XP
	revengeBonusXP     = 40
	revengeBonusCoins  = 20
)

// StakeMultipliers maps stake type to reward scaling. Data, not logic: higher
// wagers pay out proportionally more.
var StakeMultipliers = map[models.StakeType]float64{
	models.StakePride: 1.0,
	models.StakeXP:    1.5,
	models.StakeCoins: 2.0,
}

// StakeMultiplier returns the scaling for a stake type, defaulting to 1
func StakeMultiplier(t models.StakeType) float64 {
	if m, ok := StakeMultipliers[t]; ok {
		return m
	}
	return 1.0
}

// CalculateResults turns a finished session plus the economic context into an
// immutable BattleResult. No side effects, no hidden state.
func CalculateResults(session *models.BattleSession, stakeMultiplier, streakMultiplier float64, clutch, revenge bool) models.BattleResult {
	won := session.Winner == models.WinnerPlayer

	baseXP := lossBaseXP
	if won {
		baseXP = winBaseXP
	}
	comboBonus := int(math.Floor(float64(session.MaxCombo) * 2))

	perfectBonus := session.PerfectHits >= perfectHitsForFlag
	perfectXP := 0
	if perfectBonus {
		perfectXP = perfectBonusXP
	}

	xp := int64(math.Floor(float64(baseXP+comboBonus+perfectXP) * stakeMultiplier * streakMultiplier))

	var coins int64
	if won {
		coins = int64(math.Floor(winBaseCoins * stakeMultiplier))
	}

	// clutch and revenge only pay on wins
	clutch = clutch && won
	revenge = revenge && won
	if clutch {
		xp += int64(math.Floor(float64(xp) * clutchBonusRate))
	}
	if revenge {
		xp += revengeBonusXP
		coins += revengeBonusCoins
	}

	return models.BattleResult{
		SessionID:     session.ID,
		ChallengeID:   session.ChallengeID,
		PlayerID:      session.Player.ID,
		OpponentID:    session.Opponent.ID,
		Won:           won,
		PlayerScore:   session.PlayerScore,
		OpponentScore: session.OpponentScore,
		DurationSec:   session.DurationSec - session.RemainingSec,
		Rewards: models.RewardBreakdown{
			XP:                 xp,
			Coins:              coins,
			StreakBonusPercent: int(math.Floor((streakMultiplier - 1) * 100)),
			PerfectBonus:       perfectBonus,
			Clutch:             clutch,
			Revenge:            revenge,
		},
	}
}
