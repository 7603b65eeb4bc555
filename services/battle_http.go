// services/battle_http.go — fiber endpoints for battles, streaks, and badges
package services

import (
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

type battleActionRequest struct {
	Action  string `json:"action"`
	Perfect bool   `json:"perfect"`
}

func (s *BattleService) ResolveActionEndpoint(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(401).JSON(fiber.Map{"error": "missing user context"})
	}
	sessionID := c.Params("id")

	var req battleActionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Action != "" && req.Action != "attack" {
		return c.Status(400).JSON(fiber.Map{"error": "unknown action"})
	}

	session, err := s.ResolvePlayerAction(userID, sessionID, req.Perfect)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "battle session not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "failed to resolve action"})
	}

	return c.JSON(session)
}

func (s *BattleService) GetSessionEndpoint(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(401).JSON(fiber.Map{"error": "missing user context"})
	}

	session, err := s.GetSession(userID, c.Params("id"))
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "battle session not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "failed to load session"})
	}

	return c.JSON(session)
}

func (s *BattleService) GetHistoryEndpoint(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(401).JSON(fiber.Map{"error": "missing user context"})
	}

	limit := 20
	if limitStr := c.Query("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	results, err := s.GetHistory(userID, limit)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to load battle history"})
	}

	return c.JSON(fiber.Map{"results": results, "count": len(results)})
}

// ArenaCallbackEndpoint receives the result deep link relayed by the arena
// runtime after an external battle ends. Malformed links get a 204 and are
// dropped without touching state.
func (s *BattleService) ArenaCallbackEndpoint(c *fiber.Ctx) error {
	raw := c.Query("link")
	if raw == "" {
		raw = string(c.Body())
	}

	if err := s.HandleCallback(raw); err != nil {
		if errors.Is(err, ErrSessionMismatch) {
			return c.Status(409).JSON(fiber.Map{"error": "session identity mismatch"})
		}
		if errors.Is(err, ErrSessionNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "battle session not found"})
		}
		log.Printf("❌ [ARENA_CB] Failed to process callback: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to process battle result"})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *StreakService) GetStreakEndpoint(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(401).JSON(fiber.Map{"error": "missing user context"})
	}

	streak, err := s.EnsureStreak(userID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to load streak"})
	}

	return c.JSON(fiber.Map{
		"streak":     streak,
		"multiplier": s.MultiplierFor(streak.Current),
	})
}

func (s *BadgeService) ListBadgesEndpoint(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(401).JSON(fiber.Map{"error": "missing user context"})
	}

	badges, err := s.ListBadges(userID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to load badges"})
	}

	return c.JSON(fiber.Map{"badges": badges, "count": len(badges)})
}
