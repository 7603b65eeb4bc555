package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"battle-arena-service/models"
)

func TestMultiplierTiers(t *testing.T) {
	s := &StreakService{Tiers: DefaultStreakTiers}

	cases := map[int]float64{
		0:  1.0,
		1:  1.0,
		2:  1.0,
		3:  1.1,
		4:  1.1,
		5:  1.25,
		6:  1.25,
		7:  1.5,
		9:  1.5,
		10: 2.0,
		25: 2.0,
	}
	for count, want := range cases {
		assert.Equal(t, want, s.MultiplierFor(count), "streak %d", count)
	}
}

func TestMultiplierWithCustomTiers(t *testing.T) {
	s := &StreakService{Tiers: []StreakTier{
		{MinStreak: 0, Multiplier: 1.0},
		{MinStreak: 2, Multiplier: 3.0},
	}}

	assert.Equal(t, 1.0, s.MultiplierFor(1))
	assert.Equal(t, 3.0, s.MultiplierFor(2))
}

func TestTwoWinsThenLoss(t *testing.T) {
	streak := &models.WinStreak{}

	ApplyWin(streak, DefaultShieldThreshold)
	ApplyWin(streak, DefaultShieldThreshold)
	assert.Equal(t, 2, streak.Current)
	assert.Equal(t, 2, streak.Longest)

	shielded := ApplyLoss(streak)
	assert.False(t, shielded)
	assert.Equal(t, 0, streak.Current)
	assert.Equal(t, 2, streak.Longest, "longest survives the reset")
}

func TestShieldArmsAtThreshold(t *testing.T) {
	streak := &models.WinStreak{}

	for i := 1; i <= 6; i++ {
		armed := ApplyWin(streak, DefaultShieldThreshold)
		assert.False(t, armed, "win %d", i)
	}
	assert.False(t, streak.ShieldActive)

	armed := ApplyWin(streak, DefaultShieldThreshold)
	assert.True(t, armed)
	assert.True(t, streak.ShieldActive)
	assert.Equal(t, 7, streak.Current)
}

func TestShieldAbsorbsOneLoss(t *testing.T) {
	streak := &models.WinStreak{}
	for i := 0; i < 7; i++ {
		ApplyWin(streak, DefaultShieldThreshold)
	}
	require.True(t, streak.ShieldActive)

	shielded := ApplyLoss(streak)
	assert.True(t, shielded)
	assert.Equal(t, 7, streak.Current, "shielded loss keeps the streak")
	assert.False(t, streak.ShieldActive)
	assert.True(t, streak.ShieldUsed)

	// the next unshielded loss resets for real
	shielded = ApplyLoss(streak)
	assert.False(t, shielded)
	assert.Equal(t, 0, streak.Current)
	assert.False(t, streak.ShieldUsed, "shield earnable again once the streak breaks")
}

func TestShieldRearmsOnlyAfterRebuild(t *testing.T) {
	streak := &models.WinStreak{}
	for i := 0; i < 7; i++ {
		ApplyWin(streak, DefaultShieldThreshold)
	}
	require.True(t, ApplyLoss(streak))

	// still on the same streak: wins past the threshold must not re-arm
	for i := 0; i < 5; i++ {
		armed := ApplyWin(streak, DefaultShieldThreshold)
		assert.False(t, armed, "win %d after shield spent", i+1)
	}
	assert.False(t, streak.ShieldActive)

	// break the streak, rebuild to the threshold: the shield arms again
	require.False(t, ApplyLoss(streak))
	for i := 1; i <= 6; i++ {
		assert.False(t, ApplyWin(streak, DefaultShieldThreshold))
	}
	assert.True(t, ApplyWin(streak, DefaultShieldThreshold))
	assert.True(t, streak.ShieldActive)
}
