package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"battle-arena-service/models"
	"battle-arena-service/utils"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionRegistry is how locally simulated sessions get onto the tick loop.
// Implemented by the battle ticker worker; wired in main.
type SessionRegistry interface {
	Register(sessionID string)
	Unregister(sessionID string)
}

// BattleService orchestrates a battle from accepted challenge to finalized
// result. One BattleSession row per accepted challenge, owned by the
// accepting player; the challenger's mirror record is synchronized by the
// platform messaging layer, not by this service.
type BattleService struct {
	DB       *gorm.DB
	Engine   *BattleEngine
	Bridge   ArenaBridge
	Streaks  *StreakService
	Badges   *BadgeService
	Notifier *Notifier
	Registry SessionRegistry
}

func NewBattleService(db *gorm.DB, engine *BattleEngine, bridge ArenaBridge, streaks *StreakService, badges *BadgeService, notifier *Notifier) *BattleService {
	return &BattleService{
		DB:       db,
		Engine:   engine,
		Bridge:   bridge,
		Streaks:  streaks,
		Badges:   badges,
		Notifier: notifier,
	}
}

// StartForChallenge creates the session for an accepted challenge and hands
// off to the arena runtime, falling back to the local engine with an
// automated stand-in when the runtime is unavailable. The challenge always
// ends in a BattleResult either way.
func (s *BattleService) StartForChallenge(challenge *models.Challenge) error {
	playerName := challenge.OpponentID
	var mirror models.PlayerMirror
	if err := s.DB.Where("external_user_id = ?", challenge.OpponentID).First(&mirror).Error; err == nil {
		playerName = mirror.Username
	}

	session := s.Engine.CreateInitialState(
		challenge.ID,
		challenge.OpponentID, playerName,
		challenge.ChallengerID, challenge.ChallengerName,
		false,
	)
	session.Mode = challenge.Mode

	launched, err := s.Bridge.LaunchBattle(BattleDescriptor{
		SessionID:   session.ID,
		ChallengeID: challenge.ID,
		Mode:        challenge.Mode,
		Participants: []Participant{
			{ID: challenge.OpponentID, Name: playerName},
			{ID: challenge.ChallengerID, Name: challenge.ChallengerName},
		},
		StakeType:   challenge.StakeType,
		StakeAmount: challenge.StakeAmount,
	})
	if err != nil && !errors.Is(err, ErrRuntimeUnavailable) {
		return err
	}

	if launched {
		session.External = true
	} else {
		// local simulation: the challenger side is played by the engine
		log.Printf("🤖 Arena runtime unavailable — session %s falls back to local simulation", session.ID)
		session.Opponent.IsAutomated = true
	}

	if err := s.DB.Create(session).Error; err != nil {
		return fmt.Errorf("failed to persist battle session: %w", err)
	}

	if !launched && s.Registry != nil {
		s.Registry.Register(session.ID)
	}

	if s.Notifier != nil {
		payload := fmt.Sprintf(`{"session_id":%q,"challenge_id":%q,"external":%t}`, session.ID, challenge.ID, session.External)
		s.Notifier.PublishSession(challenge.OpponentID, session.ID, models.EventBattleStarted, payload)
		s.Notifier.PublishSession(challenge.ChallengerID, session.ID, models.EventBattleStarted, payload)
	}
	return nil
}

// ResolvePlayerAction applies one attack from the owning player to a locally
// simulated session. No-op outside the fighting phase, exactly like the
// engine. The row lock serializes against the ticker so the two can never
// overwrite each other's state or finalize the same session twice.
func (s *BattleService) ResolvePlayerAction(playerID, sessionID string, isPerfect bool) (*models.BattleSession, error) {
	var session models.BattleSession
	justFinished := false
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND player_id = ?", sessionID, playerID).
			First(&session).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrSessionNotFound
			}
			return err
		}
		if session.External || session.Finished() {
			return nil
		}

		s.Engine.ResolvePlayerAction(&session, isPerfect)
		justFinished = session.Finished()
		return tx.Save(&session).Error
	})
	if err != nil {
		return nil, err
	}

	if justFinished {
		s.finishLocal(&session)
	}
	return &session, nil
}

// TickSession advances a locally simulated session by one second. Called by
// the ticker worker; returns true when the session reached a terminal state
// and should be dropped from the loop.
func (s *BattleService) TickSession(sessionID string) bool {
	var session models.BattleSession
	done := false
	justFinished := false
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&session, "id = ?", sessionID).Error; err != nil {
			return err
		}
		if session.External || session.Finished() {
			done = true
			return nil
		}

		switch session.Phase {
		case models.PhaseIntro, models.PhaseCountdown:
			s.Engine.AdvancePhase(&session)
		case models.PhaseFighting:
			// automated stand-in swings on a fixed cadence
			if session.Opponent.IsAutomated && session.RemainingSec%2 == 0 {
				s.Engine.ResolveOpponentAction(&session)
			}
			if !session.Finished() {
				s.Engine.Tick(&session)
			}
		}

		justFinished = session.Finished()
		return tx.Save(&session).Error
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			log.Printf("[Ticker] Session %s gone", sessionID)
			return true
		}
		log.Printf("[Ticker] Failed to advance session %s: %v", sessionID, err)
		return false
	}
	if done {
		return true
	}

	if justFinished {
		s.finishLocal(&session)
		return true
	}
	return false
}

// externalAbandonCutoff is how long an external session may sit without its
// runtime callback before the sweep resolves it by score. Generous on
// purpose: the runtime redelivers callbacks on its own schedule.
const externalAbandonCutoff = 30 * time.Minute

// AbandonStaleSessions force-times-out fighting sessions nobody has touched
// past the cutoff, so an abandoned screen still resolves to a result.
// External sessions whose callback never arrived get the same treatment on a
// much longer leash.
func (s *BattleService) AbandonStaleSessions(cutoff time.Duration) (int, error) {
	now := time.Now().UTC()

	var ids []string
	if err := s.DB.Model(&models.BattleSession{}).
		Where("phase = ? AND external = ? AND updated_at < ?", models.PhaseFighting, false, now.Add(-cutoff)).
		Or("phase <> ? AND external = ? AND updated_at < ?", models.PhaseFinished, true, now.Add(-externalAbandonCutoff)).
		Pluck("id", &ids).Error; err != nil {
		return 0, err
	}

	resolved := 0
	for _, id := range ids {
		var session models.BattleSession
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&session, "id = ?", id).Error; err != nil {
				return err
			}
			if session.Finished() {
				return nil
			}
			// a lost external callback still has to become a result
			session.Phase = models.PhaseFighting
			s.Engine.Timeout(&session)
			return tx.Save(&session).Error
		})
		if err != nil {
			log.Printf("[Sweep] Failed to abandon session %s: %v", id, err)
			continue
		}
		if !session.Finished() {
			continue
		}
		s.Bridge.ClearPending(session.ID)
		s.finishLocal(&session)
		resolved++
	}
	return resolved, nil
}

// HandleCallback processes an inbound deep-link result from the arena
// runtime. Malformed links are ignored; session-identity mismatches are
// discarded with a warning and never touch state.
func (s *BattleService) HandleCallback(raw string) error {
	outcome := s.Bridge.ParseBattleResult(raw)
	if outcome == nil {
		return nil
	}

	if err := s.Bridge.VerifyPending(outcome.SessionID); err != nil {
		log.Printf("⚠️  Discarding battle callback for session %s: %v", outcome.SessionID, err)
		return ErrSessionMismatch
	}

	var session models.BattleSession
	applied := false
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&session, "id = ?", outcome.SessionID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrSessionNotFound
			}
			return err
		}
		if !session.External || session.Finished() {
			return nil
		}

		session.Phase = models.PhaseFinished
		session.PlayerScore = outcome.MyScore
		session.OpponentScore = outcome.OpponentScore
		session.RemainingSec = session.DurationSec - outcome.DurationSec
		if session.RemainingSec < 0 {
			session.RemainingSec = 0
		}
		if outcome.Won {
			session.Winner = models.WinnerPlayer
		} else {
			session.Winner = models.WinnerOpponent
		}
		applied = true
		return tx.Save(&session).Error
	})
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}

	s.Bridge.ClearPending(outcome.SessionID)
	return s.finalize(&session, outcome.WasClutch)
}

func (s *BattleService) finishLocal(session *models.BattleSession) {
	if s.Registry != nil {
		s.Registry.Unregister(session.ID)
	}
	if err := s.finalize(session, s.Engine.WasClutch(session)); err != nil {
		log.Printf("❌ Failed to finalize session %s: %v", session.ID, err)
	}
}

// finalize applies the economy to a finished session exactly once. The unique
// index on battle_results.session_id is the guard — a second finalization of
// the same session hits the constraint and changes nothing.
func (s *BattleService) finalize(session *models.BattleSession, clutch bool) error {
	var challenge models.Challenge
	if err := s.DB.First(&challenge, "id = ?", session.ChallengeID).Error; err != nil {
		return fmt.Errorf("challenge lookup for finalize: %w", err)
	}

	playerID := session.Player.ID
	opponentID := session.Opponent.ID
	won := session.Winner == models.WinnerPlayer

	revenge := false
	var rivalry models.Rivalry
	if err := s.DB.Where("player_id = ? AND opponent_id = ?", playerID, opponentID).
		First(&rivalry).Error; err == nil {
		revenge = rivalry.PendingRevenge
	}

	// The whole economy lives in one transaction: when the result insert hits
	// the unique session_id index, the rollback also undoes the streak
	// mutation, so a duplicate finalize changes nothing anywhere.
	var result models.BattleResult
	var shielded bool
	var shieldedStreak int
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		// streak mutates first; the multiplier is derived from the updated count
		streakMult := 1.0
		if s.Streaks != nil {
			if won {
				streak, err := s.Streaks.RecordWinIn(tx, playerID)
				if err != nil {
					return fmt.Errorf("streak update: %w", err)
				}
				streakMult = s.Streaks.MultiplierFor(streak.Current)
			} else {
				streak, sh, err := s.Streaks.RecordLossIn(tx, playerID)
				if err != nil {
					return fmt.Errorf("streak update: %w", err)
				}
				shielded = sh
				shieldedStreak = streak.Current
				if sh {
					streakMult = s.Streaks.MultiplierFor(streak.Current)
				}
			}
		}

		result = CalculateResults(session, StakeMultiplier(challenge.StakeType), streakMult, clutch, revenge)
		if err := tx.Create(&result).Error; err != nil {
			return err
		}

		if err := s.updateStats(tx, playerID, session, &result); err != nil {
			return err
		}
		if err := s.updateRivalry(tx, playerID, opponentID, won); err != nil {
			return err
		}

		if challenge.StakeType != models.StakePride && challenge.StakeAmount > 0 {
			direction := models.SettlementDebit
			if won {
				direction = models.SettlementCredit
			}
			settlement := models.StakeSettlement{
				ResultID:  result.ID,
				PlayerID:  playerID,
				StakeType: challenge.StakeType,
				Amount:    challenge.StakeAmount,
				Direction: direction,
			}
			if err := tx.Create(&settlement).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			log.Printf("Session %s already finalized, skipping", session.ID)
			return nil
		}
		return err
	}

	// everything below is best effort and never rolls back the result
	if shielded && s.Notifier != nil {
		s.Notifier.Publish(playerID, models.EventShieldProtected,
			fmt.Sprintf(`{"streak":%d}`, shieldedStreak))
	}

	s.archiveResult(session, &result)

	if s.Badges != nil {
		if err := s.Badges.AutoAwardBadges(playerID); err != nil {
			log.Printf("⚠️  Badge check failed for %s: %v", playerID, err)
		}
	}

	if s.Notifier != nil {
		payload, _ := json.Marshal(result.Rewards)
		s.Notifier.PublishSession(playerID, session.ID, models.EventBattleFinished,
			fmt.Sprintf(`{"result_id":%q,"won":%t,"rewards":%s}`, result.ID, won, payload))
	}

	log.Printf("🏁 Session %s finalized: won=%t xp=%d coins=%d streak_bonus=%d%%",
		session.ID, won, result.Rewards.XP, result.Rewards.Coins, result.Rewards.StreakBonusPercent)
	return nil
}

func (s *BattleService) updateStats(tx *gorm.DB, playerID string, session *models.BattleSession, result *models.BattleResult) error {
	var stats models.PlayerBattleStats
	err := tx.Where("external_user_id = ?", playerID).First(&stats).Error
	if err == gorm.ErrRecordNotFound {
		stats = models.PlayerBattleStats{ExternalUserID: playerID}
		if err := tx.Create(&stats).Error; err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	stats.TotalBattles++
	if result.Won {
		stats.TotalWins++
	} else {
		stats.TotalLosses++
	}
	if session.MaxCombo > stats.BestCombo {
		stats.BestCombo = session.MaxCombo
	}
	stats.TotalPerfectHits += int64(session.PerfectHits)
	if result.Rewards.Clutch {
		stats.ClutchWins++
	}
	if result.Rewards.Revenge {
		stats.RevengeWins++
	}
	return tx.Save(&stats).Error
}

// updateRivalry: a loss arms revenge against that opponent; a win that
// carried the pending flag resolves it
func (s *BattleService) updateRivalry(tx *gorm.DB, playerID, opponentID string, won bool) error {
	var rivalry models.Rivalry
	err := tx.Where("player_id = ? AND opponent_id = ?", playerID, opponentID).First(&rivalry).Error
	if err == gorm.ErrRecordNotFound {
		if won {
			return nil // nothing to track
		}
		now := time.Now().UTC()
		return tx.Create(&models.Rivalry{
			PlayerID:       playerID,
			OpponentID:     opponentID,
			PendingRevenge: true,
			LastLossAt:     &now,
		}).Error
	}
	if err != nil {
		return err
	}

	if won {
		rivalry.PendingRevenge = false
	} else {
		now := time.Now().UTC()
		rivalry.PendingRevenge = true
		rivalry.LastLossAt = &now
	}
	return tx.Save(&rivalry).Error
}

// archiveResult uploads the replay document to R2 and stamps the share slug.
// Purely additive metadata — failures are logged and dropped.
func (s *BattleService) archiveResult(session *models.BattleSession, result *models.BattleResult) {
	winnerName, loserName := session.Player.Name, session.Opponent.Name
	if !result.Won {
		winnerName, loserName = loserName, winnerName
	}
	shareSlug := slug.Make(fmt.Sprintf("%s-vs-%s", winnerName, loserName))
	if len(result.ID) >= 8 {
		shareSlug += "-" + result.ID[:8]
	}

	updates := map[string]interface{}{"share_slug": shareSlug}

	if utils.R2Enabled() {
		replay, err := json.Marshal(map[string]interface{}{
			"session": session,
			"result":  result,
		})
		if err == nil {
			key := fmt.Sprintf("replays/%s.json", result.ID)
			if url, err := utils.UploadReplayToR2(key, replay); err != nil {
				log.Printf("⚠️  Replay upload failed for result %s: %v", result.ID, err)
			} else {
				updates["replay_url"] = url
			}
		}
	}

	if err := s.DB.Model(&models.BattleResult{}).
		Where("id = ?", result.ID).
		Updates(updates).Error; err != nil {
		log.Printf("⚠️  Failed to stamp archive metadata on result %s: %v", result.ID, err)
	}
}

// ActiveLocalSessionIDs lists unfinished locally simulated sessions, used by
// the ticker to resume after a restart
func (s *BattleService) ActiveLocalSessionIDs() ([]string, error) {
	var ids []string
	err := s.DB.Model(&models.BattleSession{}).
		Where("phase <> ? AND external = ?", models.PhaseFinished, false).
		Pluck("id", &ids).Error
	return ids, err
}

// GetHistory returns the player's finalized battles, newest first
func (s *BattleService) GetHistory(playerID string, limit int) ([]models.BattleResult, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var results []models.BattleResult
	err := s.DB.Where("player_id = ?", playerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error
	return results, err
}

// GetSession returns one of the player's sessions
func (s *BattleService) GetSession(playerID, sessionID string) (*models.BattleSession, error) {
	var session models.BattleSession
	if err := s.DB.Where("id = ? AND player_id = ?", sessionID, playerID).First(&session).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}
