// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartSweeps runs the periodic consistency passes: expiring challenges whose
// per-challenge timer was lost (restart, crash) and resolving abandoned
// battles. Both sweeps are idempotent against the live timers — the status
// guards settle any race.
func StartSweeps(challenges *ChallengeService, battles *BattleService) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	sched.Start()

	// Every 15s: expire stale pending challenges
	_, err = sched.NewJob(
		gocron.DurationJob(15*time.Second),
		gocron.NewTask(func() {
			n, err := challenges.ClearExpiredChallenges()
			if err != nil {
				log.Printf("[Scheduler] Challenge sweep failed: %v", err)
				return
			}
			if n > 0 {
				log.Printf("⏰ Expired %d stale challenge(s)", n)
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	// Every minute: time out abandoned fighting sessions
	_, err = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			n, err := battles.AbandonStaleSessions(2 * time.Minute)
			if err != nil {
				log.Printf("[Scheduler] Session sweep failed: %v", err)
				return
			}
			if n > 0 {
				log.Printf("🏳️ Resolved %d abandoned session(s)", n)
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	return sched, nil
}
