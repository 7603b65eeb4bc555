package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChallengeStatusTerminal(t *testing.T) {
	assert.False(t, ChallengePending.Terminal())

	for _, s := range []ChallengeStatus{ChallengeAccepted, ChallengeDeclined, ChallengeExpired, ChallengeCancelled} {
		assert.True(t, s.Terminal(), string(s))
	}
}

func TestChallengeExpiredBy(t *testing.T) {
	deadline := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := &Challenge{ExpiresAt: deadline}

	assert.False(t, c.ExpiredBy(deadline), "deadline itself is still valid")
	assert.False(t, c.ExpiredBy(deadline.Add(-time.Second)))
	assert.True(t, c.ExpiredBy(deadline.Add(time.Second)))
}

func TestChallengeModeValid(t *testing.T) {
	for _, m := range []ChallengeMode{ModeOneVsOne, ModeTwoVsTwo, ModeKingOfHill, ModeCollectRush} {
		assert.True(t, m.Valid(), string(m))
	}
	assert.False(t, ChallengeMode("battle-royale").Valid())
}

func TestStakeTypeValid(t *testing.T) {
	for _, s := range []StakeType{StakePride, StakeXP, StakeCoins} {
		assert.True(t, s.Valid(), string(s))
	}
	assert.False(t, StakeType("gems").Valid())
}
