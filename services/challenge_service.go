package services

import (
	"fmt"
	"log"
	"sync"
	"time"

	"battle-arena-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultChallengeTTL is how long the opponent has to respond
const DefaultChallengeTTL = 30 * time.Second

// urgency warning offsets before expiry (UX side channel only)
var expiryWarnings = []time.Duration{10 * time.Second, 5 * time.Second}

// ChallengeService owns the challenge lifecycle: pending → accepted |
// declined | expired | cancelled, all terminal. The race between the expiry
// timer and the opponent's response is settled by a status-guarded UPDATE,
// never by timer bookkeeping — timers are cleanliness, the guard is the
// correctness mechanism.
type ChallengeService struct {
	DB       *gorm.DB
	Notifier *Notifier
	Battles  *BattleService
	TTL      time.Duration

	mu     sync.Mutex
	timers map[string][]*time.Timer // challenge id → expiry + warning timers
}

func NewChallengeService(db *gorm.DB, notifier *Notifier, battles *BattleService) *ChallengeService {
	return &ChallengeService{
		DB:       db,
		Notifier: notifier,
		Battles:  battles,
		TTL:      DefaultChallengeTTL,
		timers:   make(map[string][]*time.Timer),
	}
}

// CreateChallenge builds a pending challenge with a response deadline and
// delivers it to the opponent. Challenger display data comes from the player
// mirror and the streak table.
func (s *ChallengeService) CreateChallenge(challengerID, opponentID string, mode models.ChallengeMode, stakeType models.StakeType, stakeAmount int64, message string) (*models.Challenge, error) {
	if !stakeType.Valid() || stakeAmount < 0 {
		return nil, ErrInvalidStake
	}
	if stakeType == models.StakePride && stakeAmount != 0 {
		return nil, ErrInvalidStake
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("unknown challenge mode %q", mode)
	}

	challenge := &models.Challenge{
		ID:             uuid.NewString(),
		ChallengerID:   challengerID,
		ChallengerName: challengerID,
		OpponentID:     opponentID,
		Message:        message,
		Mode:           mode,
		StakeType:      stakeType,
		StakeAmount:    stakeAmount,
		Status:         models.ChallengePending,
		ExpiresAt:      time.Now().UTC().Add(s.TTL),
	}

	var mirror models.PlayerMirror
	if err := s.DB.Where("external_user_id = ?", challengerID).First(&mirror).Error; err == nil {
		challenge.ChallengerName = mirror.Username
		challenge.ChallengerEmoji = mirror.AvatarEmoji
		challenge.ChallengerLevel = mirror.Level
	}
	var streak models.WinStreak
	if err := s.DB.Where("external_user_id = ?", challengerID).First(&streak).Error; err == nil {
		challenge.ChallengerStreak = streak.Current
	}

	if err := s.DB.Create(challenge).Error; err != nil {
		return nil, fmt.Errorf("failed to create challenge: %w", err)
	}

	s.armTimers(challenge)

	if s.Notifier != nil {
		s.Notifier.Publish(opponentID, models.EventChallengeReceived,
			fmt.Sprintf(`{"challenge_id":%q,"challenger":%q,"mode":%q,"stake_type":%q,"stake_amount":%d}`,
				challenge.ID, challenge.ChallengerName, mode, stakeType, stakeAmount))
	}

	log.Printf("⚔️  Challenge %s: %s → %s (%s, %s %d)", challenge.ID, challengerID, opponentID, mode, stakeType, stakeAmount)
	return challenge, nil
}

// RespondToChallenge arbitrates accept/decline. The first resolution wins;
// a call that arrives after the challenge reached a terminal state is a
// benign no-op returning the settled record, except expiry, which surfaces
// as ErrChallengeExpired so the caller can show the "too late" notice.
func (s *ChallengeService) RespondToChallenge(challengeID, responderID string, accept bool) (*models.Challenge, error) {
	challenge, err := s.getChallenge(challengeID)
	if err != nil {
		return nil, err
	}
	if challenge.OpponentID != responderID {
		return nil, ErrNotOpponent
	}

	if challenge.Status.Terminal() {
		if challenge.Status == models.ChallengeExpired {
			return challenge, ErrChallengeExpired
		}
		return challenge, nil
	}

	now := time.Now().UTC()
	if challenge.ExpiredBy(now) {
		// the deadline passed but the timer hasn't landed yet — settle it here
		if _, err := s.transition(challengeID, models.ChallengeExpired); err == nil {
			s.disarmTimers(challengeID)
		}
		challenge.Status = models.ChallengeExpired
		return challenge, ErrChallengeExpired
	}

	target := models.ChallengeDeclined
	event := models.EventChallengeDeclined
	if accept {
		target = models.ChallengeAccepted
		event = models.EventChallengeAccepted
	}

	won, err := s.transition(challengeID, target)
	if err != nil {
		return nil, err
	}
	if !won {
		// lost the race against the timer or a duplicate response
		settled, err := s.getChallenge(challengeID)
		if err != nil {
			return nil, err
		}
		if settled.Status == models.ChallengeExpired {
			return settled, ErrChallengeExpired
		}
		return settled, nil
	}

	s.disarmTimers(challengeID)
	challenge.Status = target

	if s.Notifier != nil {
		s.Notifier.Publish(challenge.ChallengerID, event,
			fmt.Sprintf(`{"challenge_id":%q}`, challengeID))
	}

	if accept && s.Battles != nil {
		if err := s.Battles.StartForChallenge(challenge); err != nil {
			log.Printf("❌ Failed to start battle for challenge %s: %v", challengeID, err)
		}
	}
	return challenge, nil
}

// Expire is invoked by the per-challenge timer. It only fires through when
// the challenge is still pending, which guards the race against a concurrent
// response.
func (s *ChallengeService) Expire(challengeID string) error {
	won, err := s.transition(challengeID, models.ChallengeExpired)
	if err != nil {
		return err
	}
	s.disarmTimers(challengeID)
	if !won {
		return nil // already resolved, benign
	}

	challenge, err := s.getChallenge(challengeID)
	if err == nil && s.Notifier != nil {
		s.Notifier.Publish(challenge.ChallengerID, models.EventChallengeExpired,
			fmt.Sprintf(`{"challenge_id":%q,"opponent_id":%q}`, challengeID, challenge.OpponentID))
	}
	return nil
}

// Cancel is the challenger withdrawing a still-pending challenge
func (s *ChallengeService) Cancel(challengeID, challengerID string) (*models.Challenge, error) {
	challenge, err := s.getChallenge(challengeID)
	if err != nil {
		return nil, err
	}
	if challenge.ChallengerID != challengerID {
		return nil, ErrNotChallenger
	}

	won, err := s.transition(challengeID, models.ChallengeCancelled)
	if err != nil {
		return nil, err
	}
	if !won {
		return challenge, ErrChallengeAlreadyResolved
	}
	s.disarmTimers(challengeID)
	challenge.Status = models.ChallengeCancelled
	return challenge, nil
}

// ClearExpiredChallenges sweeps pending challenges whose deadline has passed.
// Periodic consistency pass, independent of the per-challenge timers.
func (s *ChallengeService) ClearExpiredChallenges() (int, error) {
	var stale []models.Challenge
	now := time.Now().UTC()
	if err := s.DB.Where("status = ? AND expires_at < ?", models.ChallengePending, now).
		Find(&stale).Error; err != nil {
		return 0, err
	}

	expired := 0
	for _, challenge := range stale {
		won, err := s.transition(challenge.ID, models.ChallengeExpired)
		if err != nil {
			log.Printf("[Sweep] Failed to expire challenge %s: %v", challenge.ID, err)
			continue
		}
		if !won {
			continue
		}
		s.disarmTimers(challenge.ID)
		expired++
		if s.Notifier != nil {
			s.Notifier.Publish(challenge.ChallengerID, models.EventChallengeExpired,
				fmt.Sprintf(`{"challenge_id":%q,"opponent_id":%q}`, challenge.ID, challenge.OpponentID))
		}
	}
	return expired, nil
}

// ListIncoming returns pending challenges addressed to the player
func (s *ChallengeService) ListIncoming(playerID string) ([]models.Challenge, error) {
	var challenges []models.Challenge
	err := s.DB.Where("opponent_id = ? AND status = ?", playerID, models.ChallengePending).
		Order("created_at DESC").
		Find(&challenges).Error
	return challenges, err
}

// ListOutgoing returns pending challenges the player issued
func (s *ChallengeService) ListOutgoing(playerID string) ([]models.Challenge, error) {
	var challenges []models.Challenge
	err := s.DB.Where("challenger_id = ? AND status = ?", playerID, models.ChallengePending).
		Order("created_at DESC").
		Find(&challenges).Error
	return challenges, err
}

// SuggestOpponents lists active players close to the requester's rank,
// nearest first
func (s *ChallengeService) SuggestOpponents(playerID string, limit int) ([]models.PlayerMirror, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	rank := 1
	var self models.PlayerMirror
	if err := s.DB.Where("external_user_id = ?", playerID).First(&self).Error; err == nil {
		rank = self.Rank
	}

	var players []models.PlayerMirror
	err := s.DB.Where("external_user_id <> ? AND is_active = ?", playerID, true).
		Order(fmt.Sprintf("ABS(rank - %d) ASC, level DESC", rank)).
		Limit(limit).
		Find(&players).Error
	return players, err
}

// Stop cancels every outstanding timer; pending challenges are then settled
// by the sweep on next boot
func (s *ChallengeService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, timers := range s.timers {
		for _, t := range timers {
			t.Stop()
		}
		delete(s.timers, id)
	}
}

// transition performs the status-guarded terminal transition. Returns whether
// this call won the race (rows affected > 0).
func (s *ChallengeService) transition(challengeID string, target models.ChallengeStatus) (bool, error) {
	res := s.DB.Model(&models.Challenge{}).
		Where("id = ? AND status = ?", challengeID, models.ChallengePending).
		Update("status", target)
	if res.Error != nil {
		return false, fmt.Errorf("failed to transition challenge %s: %w", challengeID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *ChallengeService) getChallenge(id string) (*models.Challenge, error) {
	var challenge models.Challenge
	if err := s.DB.First(&challenge, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrChallengeNotFound
		}
		return nil, err
	}
	return &challenge, nil
}

func (s *ChallengeService) armTimers(challenge *models.Challenge) {
	id := challenge.ID
	opponentID := challenge.OpponentID
	timers := make([]*time.Timer, 0, len(expiryWarnings)+1)

	for _, before := range expiryWarnings {
		delay := time.Until(challenge.ExpiresAt) - before
		if delay <= 0 {
			continue
		}
		secsLeft := int(before.Seconds())
		timers = append(timers, time.AfterFunc(delay, func() {
			if s.Notifier != nil {
				s.Notifier.Publish(opponentID, models.EventExpiryWarning,
					fmt.Sprintf(`{"challenge_id":%q,"seconds_left":%d}`, id, secsLeft))
			}
		}))
	}

	timers = append(timers, time.AfterFunc(time.Until(challenge.ExpiresAt), func() {
		if err := s.Expire(id); err != nil {
			log.Printf("❌ Expiry timer failed for challenge %s: %v", id, err)
		}
	}))

	s.mu.Lock()
	s.timers[id] = timers
	s.mu.Unlock()
}

func (s *ChallengeService) disarmTimers(challengeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.timers[challengeID] {
		t.Stop()
	}
	delete(s.timers, challengeID)
}
