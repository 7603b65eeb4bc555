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

// WalletSettlementClient pushes pending stake settlements to the platform's
// wallet service. The result id travels as the idempotency key, so a retried
// push can never double-apply a wager.
type WalletSettlementClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	DB         *gorm.DB
}

func NewWalletSettlementClient(db *gorm.DB) *WalletSettlementClient {
	baseURL := os.Getenv("WALLET_SERVICE_URL")
	if baseURL == "" {
		log.Fatal("WALLET_SERVICE_URL environment variable is required")
	}
	token := os.Getenv("ARENA_SERVICE_TOKEN")
	if token == "" {
		log.Fatal("ARENA_SERVICE_TOKEN environment variable is required for wallet settlement")
	}

	return &WalletSettlementClient{
		BaseURL: baseURL,
		Token:   token,
		DB:      db,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type settlementRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
	PlayerID       string `json:"player_id"`
	Currency       string `json:"currency"` // "coins" or "xp"
	Amount         int64  `json:"amount"`
	Direction      string `json:"direction"`
}

// PushSettlement applies one ledger row against the wallet service.
func (c *WalletSettlementClient) PushSettlement(ctx context.Context, settlement *models.StakeSettlement) error {
	payload, err := json.Marshal(settlementRequest{
		IdempotencyKey: settlement.ResultID,
		PlayerID:       settlement.PlayerID,
		Currency:       string(settlement.StakeType),
		Amount:         settlement.Amount,
		Direction:      string(settlement.Direction),
	})
	if err != nil {
		return fmt.Errorf("failed to encode settlement: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/internal/settlements", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call wallet service: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	// 409 means the wallet already holds this idempotency key — settled
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusConflict {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("wallet service returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// PollSettlements pushes unsettled rows on an interval. Rows stay pending on
// failure and retry next tick; only an acknowledged push marks them settled.
func PollSettlements(ctx context.Context, client *WalletSettlementClient, pollInterval time.Duration) {
	log.Println("Starting stake settlement polling…")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Stake settlement polling stopped.")
			return
		case <-ticker.C:
			var pending []models.StakeSettlement
			if err := client.DB.Where("settled = ?", false).
				Order("created_at ASC").
				Limit(50).
				Find(&pending).Error; err != nil {
				log.Printf("❌ Error loading pending settlements: %v", err)
				continue
			}
			if len(pending) == 0 {
				continue
			}

			applied := 0
			for i := range pending {
				settlement := &pending[i]
				if err := client.PushSettlement(ctx, settlement); err != nil {
					log.Printf("❌ Settlement %s failed, will retry: %v", settlement.ID, err)
					continue
				}
				now := time.Now().UTC()
				settlement.Settled = true
				settlement.SettledAt = &now
				if err := client.DB.Save(settlement).Error; err != nil {
					log.Printf("❌ Failed to mark settlement %s settled: %v", settlement.ID, err)
					continue
				}
				applied++
			}
			if applied > 0 {
				log.Printf("✅ Applied %d stake settlement(s)", applied)
			}
		}
	}
}
