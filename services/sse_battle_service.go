package services

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"battle-arena-service/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// StreamBattleEventsSSE streams the authenticated player's battle event feed:
// incoming challenges, expiry urgency warnings, battle start/finish, shield
// and badge signals. Pure delivery — nothing here mutates game state.
func (s *BattleService) StreamBattleEventsSSE(c *fiber.Ctx) error {
	playerID := c.Locals("user_id").(string)

	// SSE headers
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	db := s.DB

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()

		var lastMaxCreatedAt time.Time

		// Initialize cursor so reconnects don't replay the whole feed
		var latest models.BattleEvent
		if err := db.
			Where("player_id = ?", playerID).
			Order("created_at DESC").
			First(&latest).Error; err == nil {
			lastMaxCreatedAt = latest.CreatedAt
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("SSE init error for player %s: %v", playerID, err)
		}

		// Initial keepalive (comment event)
		w.WriteString(":\n\n")
		w.Flush()

		for {
			select {
			case <-ticker.C:
				var events []models.BattleEvent

				err := db.
					Where("player_id = ? AND created_at > ?", playerID, lastMaxCreatedAt).
					Order("created_at ASC").
					Find(&events).Error

				if err != nil {
					log.Printf("SSE query error for player %s: %v", playerID, err)
					continue
				}

				if len(events) == 0 {
					continue
				}

				lastMaxCreatedAt = events[len(events)-1].CreatedAt

				for _, event := range events {
					payload, _ := json.Marshal(event)

					fmt.Fprintf(w,
						"event: %s\ndata: %s\n\n",
						event.Type, payload,
					)
				}

				if err := w.Flush(); err != nil {
					// Client disconnected
					return
				}

			case <-c.Context().Done():
				// Client closed connection
				return
			}
		}
	})

	return nil
}
