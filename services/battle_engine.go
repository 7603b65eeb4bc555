package services

import (
	"math"
	"math/rand"
	"time"

	"battle-arena-service/models"

	"github.com/google/uuid"
)

// VarianceSource supplies the damage variance for a single attack. This is the
// only randomness in the simulation, so tests inject a fixed source and get
// fully deterministic battles.
type VarianceSource func() float64

// EngineConfig holds the tunable combat constants
type EngineConfig struct {
	DurationSec     int
	BaseHealth      int
	BasePower       int
	BaseDefense     int
	BaseEnergy      int
	AttackCost      int // energy spent per attack
	EnergyRegen     int // energy recovered per tick
	DangerThreshold int // player health below this marks a potential clutch win
	TieGoesToPlayer bool
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		DurationSec:     60,
		BaseHealth:      100,
		BasePower:       10,
		BaseDefense:     5,
		BaseEnergy:      100,
		AttackCost:      10,
		EnergyRegen:     5,
		DangerThreshold: 30,
		TieGoesToPlayer: true,
	}
}

// BattleEngine is the pure combat state machine. It mutates sessions in
// memory; persistence and timers live elsewhere.
type BattleEngine struct {
	cfg      EngineConfig
	variance VarianceSource
}

// NewBattleEngine creates an engine. A nil variance source gets a seeded
// uniform draw from [0.9, 1.1].
func NewBattleEngine(cfg EngineConfig, variance VarianceSource) *BattleEngine {
	if variance == nil {
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		variance = func() float64 {
			return 0.9 + rng.Float64()*0.2
		}
	}
	return &BattleEngine{cfg: cfg, variance: variance}
}

func (e *BattleEngine) Config() EngineConfig { return e.cfg }

// CreateInitialState returns a session in phase intro with both combatants at
// baseline stats and zeroed scores
func (e *BattleEngine) CreateInitialState(challengeID, playerID, playerName, opponentID, opponentName string, automatedOpponent bool) *models.BattleSession {
	baseline := func(id, name string, automated bool) models.Combatant {
		return models.Combatant{
			ID:          id,
			Name:        name,
			Health:      e.cfg.BaseHealth,
			MaxHealth:   e.cfg.BaseHealth,
			Power:       e.cfg.BasePower,
			Defense:     e.cfg.BaseDefense,
			Energy:      e.cfg.BaseEnergy,
			MaxEnergy:   e.cfg.BaseEnergy,
			IsAutomated: automated,
		}
	}

	return &models.BattleSession{
		ID:              uuid.NewString(),
		ChallengeID:     challengeID,
		PlayerID:        playerID,
		Phase:           models.PhaseIntro,
		Player:          baseline(playerID, playerName, false),
		Opponent:        baseline(opponentID, opponentName, automatedOpponent),
		RemainingSec:    e.cfg.DurationSec,
		DurationSec:     e.cfg.DurationSec,
		PlayerHealthLow: e.cfg.BaseHealth,
	}
}

// AdvancePhase moves the session one phase forward (intro → countdown →
// fighting). It never regresses and never leaves finished.
func (e *BattleEngine) AdvancePhase(s *models.BattleSession) {
	switch s.Phase {
	case models.PhaseIntro:
		s.Phase = models.PhaseCountdown
	case models.PhaseCountdown:
		s.Phase = models.PhaseFighting
	}
}

// ResolvePlayerAction applies one player attack. No-op outside the fighting
// phase or when the player lacks the energy to attack.
func (e *BattleEngine) ResolvePlayerAction(s *models.BattleSession, isPerfect bool) {
	if s.Phase != models.PhaseFighting {
		return
	}
	if s.Player.Energy < e.cfg.AttackCost {
		return
	}
	s.Player.Energy -= e.cfg.AttackCost

	dmg := e.damage(s.Player.Power, s.Opponent.Defense, s.Combo, isPerfect)

	s.Combo++
	if s.Combo > s.MaxCombo {
		s.MaxCombo = s.Combo
	}
	if isPerfect {
		s.PerfectHits++
	}

	s.Opponent.Health -= int(dmg)
	if s.Opponent.Health < 0 {
		s.Opponent.Health = 0
	}
	s.PlayerScore += dmg

	if s.Opponent.Health == 0 {
		e.finish(s, models.WinnerPlayer)
	}
}

// ResolveOpponentAction applies one opponent attack. It always breaks the
// player's combo, whether or not the hit lands for much.
func (e *BattleEngine) ResolveOpponentAction(s *models.BattleSession) {
	if s.Phase != models.PhaseFighting {
		return
	}
	if s.Opponent.Energy < e.cfg.AttackCost {
		s.Combo = 0
		return
	}
	s.Opponent.Energy -= e.cfg.AttackCost

	dmg := e.damage(s.Opponent.Power, s.Player.Defense, 0, false)

	s.Combo = 0
	s.Player.Health -= int(dmg)
	if s.Player.Health < 0 {
		s.Player.Health = 0
	}
	if s.Player.Health < s.PlayerHealthLow {
		s.PlayerHealthLow = s.Player.Health
	}
	s.OpponentScore += dmg

	if s.Player.Health == 0 {
		e.finish(s, models.WinnerOpponent)
	}
}

// Tick advances the battle clock by one second and regenerates energy. At
// zero remaining time the higher running score wins; exact ties go to the
// player when the config says so.
func (e *BattleEngine) Tick(s *models.BattleSession) {
	if s.Phase != models.PhaseFighting {
		return
	}

	s.RemainingSec--
	s.Player.Energy = min(s.Player.Energy+e.cfg.EnergyRegen, s.Player.MaxEnergy)
	s.Opponent.Energy = min(s.Opponent.Energy+e.cfg.EnergyRegen, s.Opponent.MaxEnergy)

	if s.RemainingSec > 0 {
		return
	}
	e.resolveByScore(s)
}

// Timeout ends a fighting session immediately, resolving by running score.
// Used by the stale-session sweep when a battle was abandoned mid-fight.
func (e *BattleEngine) Timeout(s *models.BattleSession) {
	if s.Phase != models.PhaseFighting {
		return
	}
	e.resolveByScore(s)
}

func (e *BattleEngine) resolveByScore(s *models.BattleSession) {
	s.RemainingSec = 0
	switch {
	case s.PlayerScore > s.OpponentScore:
		e.finish(s, models.WinnerPlayer)
	case s.PlayerScore < s.OpponentScore:
		e.finish(s, models.WinnerOpponent)
	case e.cfg.TieGoesToPlayer:
		e.finish(s, models.WinnerPlayer)
	default:
		e.finish(s, models.WinnerOpponent)
	}
}

// WasClutch reports whether a won session qualifies for the clutch bonus
func (e *BattleEngine) WasClutch(s *models.BattleSession) bool {
	return s.Winner == models.WinnerPlayer && s.PlayerHealthLow < e.cfg.DangerThreshold
}

func (e *BattleEngine) finish(s *models.BattleSession, winner models.BattleWinner) {
	s.Phase = models.PhaseFinished
	s.Winner = winner
}

// damage = max(1, floor((power − defense/2) × (1 + combo×0.1) × (perfect ? 1.5 : 1) × variance))
func (e *BattleEngine) damage(power, defense, combo int, perfect bool) int64 {
	base := float64(power) - float64(defense)/2
	comboMult := 1 + float64(combo)*0.1
	perfectMult := 1.0
	if perfect {
		perfectMult = 1.5
	}
	dmg := int64(math.Floor(base * comboMult * perfectMult * e.variance()))
	if dmg < 1 {
		dmg = 1
	}
	return dmg
}
