// services/challenge_http.go — fiber endpoints for the challenge lifecycle
package services

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"battle-arena-service/models"
)

type createChallengeRequest struct {
	OpponentID  string `json:"opponent_id"`
	Mode        string `json:"mode"`
	StakeType   string `json:"stake_type"`
	StakeAmount int64  `json:"stake_amount"`
	Message     string `json:"message"`
}

func (s *ChallengeService) CreateChallengeEndpoint(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(401).JSON(fiber.Map{"error": "missing user context"})
	}

	var req createChallengeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}

	if req.OpponentID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "opponent_id is required"})
	}
	if req.OpponentID == userID {
		return c.Status(400).JSON(fiber.Map{"error": "cannot challenge yourself"})
	}

	mode := models.ChallengeMode(req.Mode)
	if req.Mode == "" {
		mode = models.ModeOneVsOne
	}
	if !mode.Valid() {
		return c.Status(400).JSON(fiber.Map{"error": "unknown challenge mode"})
	}

	stakeType := models.StakeType(req.StakeType)
	if req.StakeType == "" {
		stakeType = models.StakePride
	}

	challenge, err := s.CreateChallenge(userID, req.OpponentID, mode, stakeType, req.StakeAmount, req.Message)
	if err != nil {
		if errors.Is(err, ErrInvalidStake) {
			return c.Status(400).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(500).JSON(fiber.Map{"error": "failed to create challenge"})
	}

	return c.Status(201).JSON(challenge)
}

type respondChallengeRequest struct {
	Accept bool `json:"accept"`
}

func (s *ChallengeService) RespondToChallengeEndpoint(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(401).JSON(fiber.Map{"error": "missing user context"})
	}
	challengeID := c.Params("id")

	var req respondChallengeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}

	challenge, err := s.RespondToChallenge(challengeID, userID, req.Accept)
	if err != nil {
		switch {
		case errors.Is(err, ErrChallengeNotFound):
			return c.Status(404).JSON(fiber.Map{"error": "challenge not found"})
		case errors.Is(err, ErrNotOpponent):
			return c.Status(403).JSON(fiber.Map{"error": "challenge is not addressed to you"})
		case errors.Is(err, ErrChallengeExpired):
			return c.Status(410).JSON(fiber.Map{"error": "challenge has expired"})
		default:
			return c.Status(500).JSON(fiber.Map{"error": "failed to respond to challenge"})
		}
	}

	return c.JSON(challenge)
}

func (s *ChallengeService) CancelChallengeEndpoint(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(401).JSON(fiber.Map{"error": "missing user context"})
	}
	challengeID := c.Params("id")

	challenge, err := s.Cancel(challengeID, userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrChallengeNotFound):
			return c.Status(404).JSON(fiber.Map{"error": "challenge not found"})
		case errors.Is(err, ErrNotChallenger):
			return c.Status(403).JSON(fiber.Map{"error": "only the challenger can cancel"})
		case errors.Is(err, ErrChallengeAlreadyResolved):
			return c.Status(409).JSON(fiber.Map{"error": "challenge already resolved"})
		default:
			return c.Status(500).JSON(fiber.Map{"error": "failed to cancel challenge"})
		}
	}

	return c.JSON(challenge)
}

func (s *ChallengeService) ListIncomingEndpoint(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(401).JSON(fiber.Map{"error": "missing user context"})
	}

	challenges, err := s.ListIncoming(userID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to load challenges"})
	}

	return c.JSON(fiber.Map{"challenges": challenges, "count": len(challenges)})
}

func (s *ChallengeService) ListOutgoingEndpoint(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(401).JSON(fiber.Map{"error": "missing user context"})
	}

	challenges, err := s.ListOutgoing(userID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to load challenges"})
	}

	return c.JSON(fiber.Map{"challenges": challenges, "count": len(challenges)})
}

func (s *ChallengeService) SuggestOpponentsEndpoint(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(401).JSON(fiber.Map{"error": "missing user context"})
	}

	limit := 10
	if limitStr := c.Query("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 && n <= 50 {
			limit = n
		}
	}

	players, err := s.SuggestOpponents(userID, limit)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to suggest opponents"})
	}

	return c.JSON(fiber.Map{"players": players, "count": len(players)})
}
