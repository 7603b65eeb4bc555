package workers

import (
	"context"
	"log"
	"sync"
	"time"

	"battle-arena-service/services"
)

// BattleTicker drives every locally simulated session with one Tick per
// second. It implements services.SessionRegistry; BattleService registers a
// session when the runtime handoff falls back to the local engine and the
// ticker drops it once it reaches a terminal phase.
type BattleTicker struct {
	battles *services.BattleService

	mu     sync.Mutex
	active map[string]struct{}
}

func NewBattleTicker(battles *services.BattleService) *BattleTicker {
	return &BattleTicker{
		battles: battles,
		active:  make(map[string]struct{}),
	}
}

func (t *BattleTicker) Register(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active[sessionID] = struct{}{}
}

func (t *BattleTicker) Unregister(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.active, sessionID)
}

// Resume re-registers unfinished local sessions after a restart so they keep
// ticking instead of waiting for the abandonment sweep
func (t *BattleTicker) Resume() {
	ids, err := t.battles.ActiveLocalSessionIDs()
	if err != nil {
		log.Printf("❌ Failed to resume active sessions: %v", err)
		return
	}
	for _, id := range ids {
		t.Register(id)
	}
	if len(ids) > 0 {
		log.Printf("🔁 Resumed %d active battle session(s)", len(ids))
	}
}

// Run is the tick loop. Cancelling ctx stops every session cleanly; unfinished
// battles are settled by the abandonment sweep on the next boot.
func (t *BattleTicker) Run(ctx context.Context) {
	log.Println("⚔️  Battle ticker running (1s resolution)")

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("⏹️ Battle ticker stopped")
			return
		case <-ticker.C:
			for _, id := range t.snapshot() {
				if done := t.battles.TickSession(id); done {
					t.Unregister(id)
				}
			}
		}
	}
}

func (t *BattleTicker) snapshot() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.active))
	for id := range t.active {
		ids = append(ids, id)
	}
	return ids
}
