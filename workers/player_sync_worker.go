// workers/player_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"battle-arena-service/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MirroredPlayerProfile matches the JSON the platform sync service returns
// for changed player profiles.
type MirroredPlayerProfile struct {
	ID          string    `json:"id"`
	ExternalID  string    `json:"external_id"`
	Username    string    `json:"username"`
	AvatarEmoji string    `json:"avatar_emoji"`
	Level       int       `json:"level"`
	Rank        int       `json:"rank"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// GetPlayerChangesResponse is the top-level structure of the sync service response.
type GetPlayerChangesResponse struct {
	Players []MirroredPlayerProfile `json:"players"`
}

// PlayerSyncWorker keeps the local player_mirror table fresh so challenge
// cards can show the challenger's name, emoji and level without a network
// round trip.
type PlayerSyncWorker struct {
	db           *gorm.DB
	interval     time.Duration
	baseURL      string // e.g., "http://localhost:8500"
	endpointPath string // e.g., "/api/v1/public/players"
	serviceToken string
	httpClient   *http.Client
}

func NewPlayerSyncWorker(db *gorm.DB, syncServiceBaseURL, endpointPath, serviceToken string) *PlayerSyncWorker {
	return &PlayerSyncWorker{
		db:           db,
		interval:     1 * time.Minute,
		baseURL:      syncServiceBaseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (w *PlayerSyncWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting Player Sync Worker (sync-service → player_mirror)…")
	go w.run(ctx)
}

func (w *PlayerSyncWorker) run(ctx context.Context) {
	// Initial sync (backfill if needed) - sync from the beginning of time
	if err := w.syncBatch(ctx, time.Time{}); err != nil {
		log.Printf("⚠️ Initial player sync failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			lastSyncTime := w.getLastSyncTime()
			if err := w.syncBatch(ctx, lastSyncTime); err != nil {
				log.Printf("❌ Player sync batch failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("⏹️ Player Sync Worker stopped")
			return
		}
	}
}

// getLastSyncTime finds the most recent UpdatedAt in the local mirror.
func (w *PlayerSyncWorker) getLastSyncTime() time.Time {
	var lastTime time.Time
	err := w.db.Raw("SELECT MAX(updated_at) FROM player_mirror WHERE deleted_at IS NULL").Scan(&lastTime).Error
	if err != nil || lastTime.IsZero() {
		return time.Unix(0, 0)
	}
	return lastTime
}

// syncBatch fetches changed profiles and upserts them into player_mirror.
func (w *PlayerSyncWorker) syncBatch(ctx context.Context, since time.Time) error {
	sinceStr := since.UTC().Format(time.RFC3339)

	base, err := url.Parse(w.baseURL)
	if err != nil {
		return fmt.Errorf("invalid base sync service URL '%s': %w", w.baseURL, err)
	}

	endpointURL := base.JoinPath(w.endpointPath)
	q := endpointURL.Query()
	q.Set("since", sinceStr)
	endpointURL.RawQuery = q.Encode()
	finalURL := endpointURL.String()

	req, err := http.NewRequestWithContext(ctx, "GET", finalURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request to %s: %w", finalURL, err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request to sync service failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("sync service non-200 response: %d — %s", resp.StatusCode, string(body))
	}

	var response GetPlayerChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return fmt.Errorf("failed to decode sync service response: %w", err)
	}

	if len(response.Players) == 0 {
		return nil
	}

	log.Printf("[SYNC] 📥 Processing %d player profile(s) from sync service…", len(response.Players))

	var upsertCount, errorCount int
	now := time.Now().UTC()
	for _, remote := range response.Players {
		local := models.PlayerMirror{
			ID:             remote.ID,
			ExternalUserID: remote.ExternalID,
			Username:       remote.Username,
			AvatarEmoji:    remote.AvatarEmoji,
			Level:          remote.Level,
			Rank:           remote.Rank,
			IsActive:       remote.IsActive,
			LastSyncedAt:   now,
			CreatedAt:      remote.CreatedAt,
			UpdatedAt:      remote.UpdatedAt,
		}

		if err := w.db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "external_user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"username", "avatar_emoji", "level", "rank",
				"is_active", "last_synced_at", "created_at", "updated_at",
			}),
		}).Create(&local).Error; err != nil {
			errorCount++
			log.Printf("[SYNC] ⚠️ Failed to upsert player_mirror (external_id=%q, username=%q): %v",
				remote.ExternalID, remote.Username, err)
		} else {
			upsertCount++
		}
	}

	log.Printf("[SYNC] ✅ Player mirror updated: %d upserted, %d failed", upsertCount, errorCount)
	return nil
}
