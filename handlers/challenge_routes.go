// handlers/challenge_routes.go
package handlers

import (
	"github.com/gofiber/fiber/v2"

	"battle-arena-service/middleware"
	"battle-arena-service/services"
)

func SetupChallengeRoutes(app *fiber.App, challengeService *services.ChallengeService) {
	// 🔐 All challenge routes require user context from the Gateway
	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Post("/challenges", challengeService.CreateChallengeEndpoint)
	secured.Get("/challenges/incoming", challengeService.ListIncomingEndpoint)
	secured.Get("/challenges/outgoing", challengeService.ListOutgoingEndpoint)
	secured.Post("/challenges/:id/respond", challengeService.RespondToChallengeEndpoint)
	secured.Post("/challenges/:id/cancel", challengeService.CancelChallengeEndpoint)

	secured.Get("/players/suggested-opponents", challengeService.SuggestOpponentsEndpoint)
}
