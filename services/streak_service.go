package services

import (
	"fmt"
	"log"

	"battle-arena-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StreakTier maps a minimum streak length to an XP multiplier. The table is
// data, not business logic: product can retune it without touching code.
type StreakTier struct {
	MinStreak  int
	Multiplier float64
}

var DefaultStreakTiers = []StreakTier{
	{MinStreak: 0, Multiplier: 1.0},
	{MinStreak: 3, Multiplier: 1.1},
	{MinStreak: 5, Multiplier: 1.25},
	{MinStreak: 7, Multiplier: 1.5},
	{MinStreak: 10, Multiplier: 2.0},
}

// DefaultShieldThreshold is the streak length at which the loss shield arms
const DefaultShieldThreshold = 7

type StreakService struct {
	DB              *gorm.DB
	Tiers           []StreakTier
	ShieldThreshold int
	Notifier        *Notifier
}

func NewStreakService(db *gorm.DB, notifier *Notifier) *StreakService {
	return &StreakService{
		DB:              db,
		Tiers:           DefaultStreakTiers,
		ShieldThreshold: DefaultShieldThreshold,
		Notifier:        notifier,
	}
}

// MultiplierFor derives the XP multiplier from a streak count. Always
// recomputed from the stored count so the two can never drift apart.
func (s *StreakService) MultiplierFor(count int) float64 {
	mult := 1.0
	for _, tier := range s.Tiers {
		if count >= tier.MinStreak {
			mult = tier.Multiplier
		}
	}
	return mult
}

// EnsureStreak ensures a WinStreak row exists for the player (idempotent)
func (s *StreakService) EnsureStreak(playerID string) (*models.WinStreak, error) {
	var streak models.WinStreak
	err := s.DB.Where("external_user_id = ?", playerID).First(&streak).Error
	if err == gorm.ErrRecordNotFound {
		streak = models.WinStreak{
			ID:             uuid.NewString(),
			ExternalUserID: playerID,
		}
		if err := s.DB.Create(&streak).Error; err != nil {
			return nil, err
		}
		return &streak, nil
	}
	if err != nil {
		return nil, err
	}
	return &streak, nil
}

// ApplyWin advances the streak by one win in memory: increments the count,
// updates the high-water mark and arms the shield once the streak qualifies
// and it hasn't been spent this streak. Returns whether the shield armed.
func ApplyWin(streak *models.WinStreak, shieldThreshold int) bool {
	streak.Current++
	if streak.Current > streak.Longest {
		streak.Longest = streak.Current
	}
	if streak.Current >= shieldThreshold && !streak.ShieldUsed && !streak.ShieldActive {
		streak.ShieldActive = true
		return true
	}
	return false
}

// ApplyLoss resets the streak in memory unless an armed shield absorbs it.
// Consuming the shield keeps the count and marks the shield spent until the
// streak is rebuilt from zero. Longest is never reset. Returns whether the
// shield absorbed the loss.
func ApplyLoss(streak *models.WinStreak) bool {
	if streak.ShieldActive {
		streak.ShieldActive = false
		streak.ShieldUsed = true
		return true
	}
	streak.Current = 0
	streak.ShieldUsed = false // streak broken, shield earnable again
	return false
}

// RecordWinIn applies a win against the caller's transaction so the streak
// mutation commits or rolls back with the rest of the finalization.
func (s *StreakService) RecordWinIn(tx *gorm.DB, playerID string) (*models.WinStreak, error) {
	streak, err := s.lockStreak(tx, playerID)
	if err != nil {
		return nil, err
	}
	if ApplyWin(streak, s.ShieldThreshold) {
		log.Printf("🛡️ Streak shield armed for %s at %d wins", playerID, streak.Current)
	}
	if err := tx.Save(streak).Error; err != nil {
		return nil, err
	}
	return streak, nil
}

// RecordLossIn is RecordWinIn's loss counterpart. The shield event is the
// caller's to publish once its transaction commits.
func (s *StreakService) RecordLossIn(tx *gorm.DB, playerID string) (*models.WinStreak, bool, error) {
	streak, err := s.lockStreak(tx, playerID)
	if err != nil {
		return nil, false, err
	}
	shielded := ApplyLoss(streak)
	if err := tx.Save(streak).Error; err != nil {
		return nil, false, err
	}
	return streak, shielded, nil
}

// RecordWin applies a win in its own transaction
func (s *StreakService) RecordWin(playerID string) (*models.WinStreak, error) {
	var updated *models.WinStreak
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		streak, err := s.RecordWinIn(tx, playerID)
		if err != nil {
			return err
		}
		updated = streak
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RecordLoss applies a loss in its own transaction
func (s *StreakService) RecordLoss(playerID string) (*models.WinStreak, bool, error) {
	var updated *models.WinStreak
	var shielded bool
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		streak, sh, err := s.RecordLossIn(tx, playerID)
		if err != nil {
			return err
		}
		updated = streak
		shielded = sh
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if shielded && s.Notifier != nil {
		s.Notifier.Publish(playerID, models.EventShieldProtected,
			fmt.Sprintf(`{"streak":%d}`, updated.Current))
	}
	return updated, shielded, nil
}

func (s *StreakService) lockStreak(tx *gorm.DB, playerID string) (*models.WinStreak, error) {
	var streak models.WinStreak
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("external_user_id = ?", playerID).First(&streak).Error
	if err == gorm.ErrRecordNotFound {
		streak = models.WinStreak{ID: uuid.NewString(), ExternalUserID: playerID}
		if err := tx.Create(&streak).Error; err != nil {
			return nil, err
		}
		return &streak, nil
	}
	if err != nil {
		return nil, err
	}
	return &streak, nil
}
