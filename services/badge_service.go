package services

import (
	"fmt"

	"battle-arena-service/models"

	"gorm.io/gorm"
)

type BadgeService struct {
	DB       *gorm.DB
	Notifier *Notifier
}

func NewBadgeService(db *gorm.DB, notifier *Notifier) *BadgeService {
	return &BadgeService{DB: db, Notifier: notifier}
}

// AutoAwardBadges checks all badge triggers for a player after a finalized
// battle. Idempotent: an already-held badge is never awarded twice.
func (s *BadgeService) AutoAwardBadges(externalUserID string) error {
	var stats models.PlayerBattleStats
	if err := s.DB.Where("external_user_id = ?", externalUserID).First(&stats).Error; err != nil {
		return err
	}
	var streak models.WinStreak
	if err := s.DB.Where("external_user_id = ?", externalUserID).First(&streak).Error; err != nil && err != gorm.ErrRecordNotFound {
		return err
	}

	for _, trigger := range models.BadgeTriggers {
		if !s.meetsThreshold(&stats, &streak, trigger.Threshold) {
			continue
		}
		// Check if already awarded
		var count int64
		if err := s.DB.Model(&models.UserBadge{}).
			Where("external_user_id = ? AND badge_type_id = ?", externalUserID, trigger.Code).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		userBadge := models.UserBadge{
			ExternalUserID: externalUserID,
			BadgeTypeID:    trigger.Code,
		}
		if err := s.DB.Create(&userBadge).Error; err != nil {
			return err
		}
		fmt.Printf("🎖️ Badge awarded: %s → %s\n", trigger.Name, externalUserID)

		if s.Notifier != nil {
			s.Notifier.Publish(externalUserID, models.EventBadgeAwarded,
				fmt.Sprintf(`{"code":%q,"name":%q,"rarity":%q}`, trigger.Code, trigger.Name, trigger.Rarity))
		}
	}
	return nil
}

// ListBadges returns the player's earned badges joined with their static config
func (s *BadgeService) ListBadges(externalUserID string) ([]models.UserBadge, error) {
	var badges []models.UserBadge
	err := s.DB.Where("external_user_id = ?", externalUserID).
		Order("awarded_at DESC").
		Find(&badges).Error
	return badges, err
}

func (s *BadgeService) meetsThreshold(stats *models.PlayerBattleStats, streak *models.WinStreak, req map[string]int64) bool {
	for key, required := range req {
		switch key {
		case "total_battles":
			if stats.TotalBattles < required {
				return false
			}
		case "total_wins":
			if stats.TotalWins < required {
				return false
			}
		case "best_combo":
			if int64(stats.BestCombo) < required {
				return false
			}
		case "total_perfect_hits":
			if stats.TotalPerfectHits < required {
				return false
			}
		case "clutch_wins":
			if stats.ClutchWins < required {
				return false
			}
		case "revenge_wins":
			if stats.RevengeWins < required {
				return false
			}
		case "streak":
			if int64(streak.Current) < required {
				return false
			}
		}
	}
	return true
}
