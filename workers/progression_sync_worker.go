package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"battle-arena-service/models"

	"gorm.io/gorm"
)

// ProgressionPushClient delivers XP deltas from finalized battles to the
// platform's player-progression store. The BattleResult id is the
// idempotency key; a result is marked applied only after the store
// acknowledges it, so retries never double-credit.
type ProgressionPushClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	DB         *gorm.DB
}

func NewProgressionPushClient(db *gorm.DB) *ProgressionPushClient {
	baseURL := os.Getenv("PROGRESSION_SERVICE_URL")
	if baseURL == "" {
		log.Fatal("PROGRESSION_SERVICE_URL environment variable is required")
	}
	token := os.Getenv("ARENA_SERVICE_TOKEN")
	if token == "" {
		log.Fatal("ARENA_SERVICE_TOKEN environment variable is required for progression push")
	}

	return &ProgressionPushClient{
		BaseURL: baseURL,
		Token:   token,
		DB:      db,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type xpDeltaRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
	PlayerID       string `json:"player_id"`
	XP             int64  `json:"xp"`
	Reason         string `json:"reason"`
}

func (c *ProgressionPushClient) pushDelta(ctx context.Context, result *models.BattleResult) error {
	reason := "battle_loss"
	if result.Won {
		reason = "battle_won"
	}
	payload, err := json.Marshal(xpDeltaRequest{
		IdempotencyKey: result.ID,
		PlayerID:       result.PlayerID,
		XP:             result.Rewards.XP,
		Reason:         reason,
	})
	if err != nil {
		return fmt.Errorf("failed to encode xp delta: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/internal/xp", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call progression service: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	// 409 — already applied under this key
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusConflict {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("progression service returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// PollXPDeltas pushes unapplied results on an interval.
func PollXPDeltas(ctx context.Context, client *ProgressionPushClient, pollInterval time.Duration) {
	log.Println("Starting XP delta polling…")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("XP delta polling stopped.")
			return
		case <-ticker.C:
			var pending []models.BattleResult
			if err := client.DB.Where("xp_applied = ?", false).
				Order("created_at ASC").
				Limit(50).
				Find(&pending).Error; err != nil {
				log.Printf("❌ Error loading unapplied results: %v", err)
				continue
			}
			if len(pending) == 0 {
				continue
			}

			applied := 0
			for i := range pending {
				result := &pending[i]
				if err := client.pushDelta(ctx, result); err != nil {
					log.Printf("❌ XP push for result %s failed, will retry: %v", result.ID, err)
					continue
				}
				if err := client.DB.Model(&models.BattleResult{}).
					Where("id = ?", result.ID).
					Update("xp_applied", true).Error; err != nil {
					log.Printf("❌ Failed to mark result %s applied: %v", result.ID, err)
					continue
				}
				applied++
			}
			if applied > 0 {
				log.Printf("✅ Pushed %d XP delta(s) to progression store", applied)
			}
		}
	}
}
