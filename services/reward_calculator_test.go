package services

import (
	"testing"

	"battle-arena-service/models"

	"github.com/stretchr/testify/assert"
)

func wonSession() *models.BattleSession {
	return &models.BattleSession{
		ID:          "sess-1",
		ChallengeID: "chal-1",
		Player:      models.Combatant{ID: "p1"},
		Opponent:    models.Combatant{ID: "p2"},
		Winner:      models.WinnerPlayer,
		MaxCombo:    5,
		DurationSec: 60,
	}
}

func TestBasicWinRewards(t *testing.T) {
	r := CalculateResults(wonSession(), 1.0, 1.0, false, false)

	// 100 base + 5*2 combo bonus
	assert.Equal(t, int64(110), r.Rewards.XP)
	assert.Equal(t, int64(50), r.Rewards.Coins)
	assert.True(t, r.Won)
	assert.Equal(t, 0, r.Rewards.StreakBonusPercent)
	assert.False(t, r.Rewards.PerfectBonus)
}

func TestLossRewards(t *testing.T) {
	s := wonSession()
	s.Winner = models.WinnerOpponent
	r := CalculateResults(s, 1.0, 1.0, false, false)

	assert.Equal(t, int64(35), r.Rewards.XP) // 25 base + 10 combo
	assert.Equal(t, int64(0), r.Rewards.Coins)
	assert.False(t, r.Won)
}

func TestPerfectBonusNeedsTenHits(t *testing.T) {
	s := wonSession()
	s.PerfectHits = 9
	r := CalculateResults(s, 1.0, 1.0, false, false)
	assert.False(t, r.Rewards.PerfectBonus)
	assert.Equal(t, int64(110), r.Rewards.XP)

	s.PerfectHits = 10
	r = CalculateResults(s, 1.0, 1.0, false, false)
	assert.True(t, r.Rewards.PerfectBonus)
	assert.Equal(t, int64(160), r.Rewards.XP)
}

func TestStreakMultiplierScalesXP(t *testing.T) {
	r := CalculateResults(wonSession(), 1.0, 1.25, false, false)

	assert.Equal(t, int64(137), r.Rewards.XP) // floor(110 * 1.25)
	assert.Equal(t, 25, r.Rewards.StreakBonusPercent)
	assert.Equal(t, int64(50), r.Rewards.Coins, "streak never scales coins")
}

func TestStakeMultiplierScalesBoth(t *testing.T) {
	r := CalculateResults(wonSession(), 2.0, 1.0, false, false)

	assert.Equal(t, int64(220), r.Rewards.XP)
	assert.Equal(t, int64(100), r.Rewards.Coins)
}

func TestClutchBonus(t *testing.T) {
	r := CalculateResults(wonSession(), 1.0, 1.0, true, false)

	// 110 + floor(110 * 0.25)
	assert.Equal(t, int64(137), r.Rewards.XP)
	assert.True(t, r.Rewards.Clutch)
}

func TestRevengeBonus(t *testing.T) {
	r := CalculateResults(wonSession(), 1.0, 1.0, false, true)

	assert.Equal(t, int64(150), r.Rewards.XP)
	assert.Equal(t, int64(70), r.Rewards.Coins)
	assert.True(t, r.Rewards.Revenge)
}

func TestClutchAndRevengeOnlyPayOnWins(t *testing.T) {
	s := wonSession()
	s.Winner = models.WinnerOpponent
	r := CalculateResults(s, 1.0, 1.0, true, true)

	assert.Equal(t, int64(35), r.Rewards.XP)
	assert.Equal(t, int64(0), r.Rewards.Coins)
	assert.False(t, r.Rewards.Clutch)
	assert.False(t, r.Rewards.Revenge)
}

func TestStakeMultiplierTable(t *testing.T) {
	assert.Equal(t, 1.0, StakeMultiplier(models.StakePride))
	assert.Equal(t, 1.5, StakeMultiplier(models.StakeXP))
	assert.Equal(t, 2.0, StakeMultiplier(models.StakeCoins))
	assert.Equal(t, 1.0, StakeMultiplier(models.StakeType("unknown")))
}
