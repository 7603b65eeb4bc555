package services

import (
	"testing"

	"battle-arena-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedVariance() float64 { return 1.0 }

func newFightingSession(t *testing.T, e *BattleEngine) *models.BattleSession {
	t.Helper()
	s := e.CreateInitialState("chal-1", "p1", "Alice", "p2", "Bob", true)
	require.Equal(t, models.PhaseIntro, s.Phase)
	e.AdvancePhase(s)
	require.Equal(t, models.PhaseCountdown, s.Phase)
	e.AdvancePhase(s)
	require.Equal(t, models.PhaseFighting, s.Phase)
	return s
}

func TestPlayerAttackBaselineDamage(t *testing.T) {
	e := NewBattleEngine(DefaultEngineConfig(), fixedVariance)
	s := newFightingSession(t, e)

	// (10 - 5/2) * 1.0 * 1.0 * 1.0 = 7.5 -> 7
	e.ResolvePlayerAction(s, false)
	assert.Equal(t, 93, s.Opponent.Health)
	assert.Equal(t, int64(7), s.PlayerScore)
	assert.Equal(t, 1, s.Combo)
	assert.Equal(t, 90, s.Player.Energy)

	// second consecutive hit rides the combo: 7.5 * 1.1 = 8.25 -> 8
	e.ResolvePlayerAction(s, false)
	assert.Equal(t, 85, s.Opponent.Health)
	assert.Equal(t, int64(15), s.PlayerScore)
	assert.Equal(t, 2, s.Combo)
	assert.Equal(t, 2, s.MaxCombo)
}

func TestPerfectHitMultiplier(t *testing.T) {
	e := NewBattleEngine(DefaultEngineConfig(), fixedVariance)
	s := newFightingSession(t, e)

	// 7.5 * 1.5 = 11.25 -> 11
	e.ResolvePlayerAction(s, true)
	assert.Equal(t, 89, s.Opponent.Health)
	assert.Equal(t, int64(11), s.PlayerScore)
	assert.Equal(t, 1, s.PerfectHits)
}

func TestDamageNeverBelowOne(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.BasePower = 1
	cfg.BaseDefense = 10
	e := NewBattleEngine(cfg, fixedVariance)
	s := newFightingSession(t, e)

	e.ResolvePlayerAction(s, false)
	assert.Equal(t, cfg.BaseHealth-1, s.Opponent.Health)
	assert.Equal(t, int64(1), s.PlayerScore)
}

func TestOpponentAttackBreaksCombo(t *testing.T) {
	e := NewBattleEngine(DefaultEngineConfig(), fixedVariance)
	s := newFightingSession(t, e)

	e.ResolvePlayerAction(s, false)
	e.ResolvePlayerAction(s, false)
	require.Equal(t, 2, s.Combo)

	e.ResolveOpponentAction(s)
	assert.Equal(t, 0, s.Combo)
	assert.Equal(t, 2, s.MaxCombo, "max combo survives the break")
	assert.Equal(t, 93, s.Player.Health)
	assert.Equal(t, 93, s.PlayerHealthLow)
}

func TestAttackRequiresEnergy(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.BaseEnergy = 10
	e := NewBattleEngine(cfg, fixedVariance)
	s := newFightingSession(t, e)

	e.ResolvePlayerAction(s, false)
	require.Equal(t, 0, s.Player.Energy)
	healthAfterFirst := s.Opponent.Health

	// out of energy: attack is a no-op, combo untouched
	e.ResolvePlayerAction(s, false)
	assert.Equal(t, healthAfterFirst, s.Opponent.Health)
	assert.Equal(t, 1, s.Combo)

	// one tick regenerates 5, still below the 10 cost
	e.Tick(s)
	require.Equal(t, 5, s.Player.Energy)
	e.ResolvePlayerAction(s, false)
	assert.Equal(t, healthAfterFirst, s.Opponent.Health)

	e.Tick(s)
	e.ResolvePlayerAction(s, false)
	assert.Less(t, s.Opponent.Health, healthAfterFirst)
}

func TestNoActionsOutsideFighting(t *testing.T) {
	e := NewBattleEngine(DefaultEngineConfig(), fixedVariance)
	s := e.CreateInitialState("chal-1", "p1", "Alice", "p2", "Bob", true)

	e.ResolvePlayerAction(s, false)
	e.ResolveOpponentAction(s)
	e.Tick(s)
	assert.Equal(t, models.PhaseIntro, s.Phase)
	assert.Equal(t, 100, s.Opponent.Health)
	assert.Equal(t, 60, s.RemainingSec)
}

func TestAdvancePhaseNeverLeavesFinished(t *testing.T) {
	e := NewBattleEngine(DefaultEngineConfig(), fixedVariance)
	s := newFightingSession(t, e)
	s.Phase = models.PhaseFinished

	e.AdvancePhase(s)
	assert.Equal(t, models.PhaseFinished, s.Phase)
}

func TestKnockoutFinishesBattle(t *testing.T) {
	e := NewBattleEngine(DefaultEngineConfig(), fixedVariance)
	s := newFightingSession(t, e)
	s.Opponent.Health = 5

	e.ResolvePlayerAction(s, false)
	assert.Equal(t, 0, s.Opponent.Health)
	assert.Equal(t, models.PhaseFinished, s.Phase)
	assert.Equal(t, models.WinnerPlayer, s.Winner)
}

func TestClockExpiryResolvesByScore(t *testing.T) {
	e := NewBattleEngine(DefaultEngineConfig(), fixedVariance)
	s := newFightingSession(t, e)
	s.RemainingSec = 1
	s.PlayerScore = 40
	s.OpponentScore = 35

	e.Tick(s)
	assert.Equal(t, 0, s.RemainingSec)
	assert.Equal(t, models.PhaseFinished, s.Phase)
	assert.Equal(t, models.WinnerPlayer, s.Winner)
}

func TestExactTieGoesToPlayer(t *testing.T) {
	e := NewBattleEngine(DefaultEngineConfig(), fixedVariance)
	s := newFightingSession(t, e)
	s.RemainingSec = 1
	s.PlayerScore = 42
	s.OpponentScore = 42

	e.Tick(s)
	assert.Equal(t, models.WinnerPlayer, s.Winner)
}

func TestExactTieGoesToOpponentWhenConfigured(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.TieGoesToPlayer = false
	e := NewBattleEngine(cfg, fixedVariance)
	s := newFightingSession(t, e)
	s.RemainingSec = 1

	e.Tick(s)
	assert.Equal(t, models.WinnerOpponent, s.Winner)
}

func TestTimeoutResolvesAbandonedFight(t *testing.T) {
	e := NewBattleEngine(DefaultEngineConfig(), fixedVariance)
	s := newFightingSession(t, e)
	s.PlayerScore = 10
	s.OpponentScore = 25

	e.Timeout(s)
	assert.Equal(t, models.PhaseFinished, s.Phase)
	assert.Equal(t, models.WinnerOpponent, s.Winner)
	assert.Equal(t, 0, s.RemainingSec)
}

func TestWasClutch(t *testing.T) {
	e := NewBattleEngine(DefaultEngineConfig(), fixedVariance)
	s := newFightingSession(t, e)

	s.Winner = models.WinnerPlayer
	s.PlayerHealthLow = 29
	assert.True(t, e.WasClutch(s))

	s.PlayerHealthLow = 30
	assert.False(t, e.WasClutch(s), "threshold is strict")

	s.PlayerHealthLow = 10
	s.Winner = models.WinnerOpponent
	assert.False(t, e.WasClutch(s), "losses never qualify")
}
