package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"battle-arena-service/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Notifier fans battle events out to the two delivery paths: the
// battle_events table (consumed by the SSE stream) and the platform's redis
// notification channel (consumed by the push-notification service). Both are
// best effort — a dropped alert never blocks or rolls back a state change.
type Notifier struct {
	DB      *gorm.DB
	RDB     *redis.Client
	Channel string
}

// NewNotifier connects to redis when REDIS_ADDR is configured; without it the
// notifier still persists events for the SSE stream.
func NewNotifier(db *gorm.DB) *Notifier {
	n := &Notifier{
		DB:      db,
		Channel: "arena:notifications",
	}

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		log.Println("⚠️  REDIS_ADDR not set — push notification channel disabled")
		return n
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("⚠️  Redis unreachable (%v) — push notification channel disabled", err)
		return n
	}

	n.RDB = rdb
	log.Println("✅ Notification channel connected")
	return n
}

type notificationMessage struct {
	PlayerID  string                 `json:"player_id"`
	Type      models.BattleEventType `json:"type"`
	Payload   json.RawMessage        `json:"payload,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// Publish records an event for the player and mirrors it to redis. payload
// must be a JSON object or empty.
func (n *Notifier) Publish(playerID string, typ models.BattleEventType, payload string) {
	n.PublishSession(playerID, "", typ, payload)
}

// PublishSession is Publish with a session id attached for the battle stream
func (n *Notifier) PublishSession(playerID, sessionID string, typ models.BattleEventType, payload string) {
	if payload == "" {
		payload = "{}"
	}
	event := models.BattleEvent{
		PlayerID:  playerID,
		SessionID: sessionID,
		Type:      typ,
		Payload:   payload,
	}
	if err := n.DB.Create(&event).Error; err != nil {
		log.Printf("❌ Failed to persist %s event for %s: %v", typ, playerID, err)
	}

	if n.RDB == nil {
		return
	}

	msg, err := json.Marshal(notificationMessage{
		PlayerID:  playerID,
		Type:      typ,
		Payload:   json.RawMessage(payload),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		log.Printf("❌ Failed to encode %s notification: %v", typ, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	channel := fmt.Sprintf("%s:%s", n.Channel, playerID)
	if err := n.RDB.Publish(ctx, channel, msg).Err(); err != nil {
		log.Printf("❌ Failed to publish %s notification to %s: %v", typ, channel, err)
	}
}
