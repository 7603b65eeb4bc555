// handlers/battle_routes.go
package handlers

import (
	"github.com/gofiber/fiber/v2"

	"battle-arena-service/middleware"
	"battle-arena-service/services"
)

func SetupBattleRoutes(
	app *fiber.App,
	battleService *services.BattleService,
	streakService *services.StreakService,
	badgeService *services.BadgeService,
	authClient *services.AuthServiceClient,
) {
	// 🔓 Runtime callback — Gateway auth only, no user context (the arena
	// runtime is a service, not a player)
	app.Get("/arena/callback", battleService.ArenaCallbackEndpoint)
	app.Post("/arena/callback", battleService.ArenaCallbackEndpoint)

	// SSE stream authenticates via query token — EventSource can't set
	// headers. Registered before the secured group so /battles/:id never
	// swallows it.
	app.Get("/s/battles/stream", middleware.SSEAuthMiddleware(authClient), battleService.StreamBattleEventsSSE)

	// 🔐 Player-facing routes
	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Get("/battles/history", battleService.GetHistoryEndpoint)
	secured.Get("/battles/:id", battleService.GetSessionEndpoint)
	secured.Post("/battles/:id/action", battleService.ResolveActionEndpoint)

	secured.Get("/streak", streakService.GetStreakEndpoint)
	secured.Get("/badges", badgeService.ListBadgesEndpoint)
}
