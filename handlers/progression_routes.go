// handlers/progression_routes.go
package handlers

import (
	"ecolearn-engine/middleware"
	"ecolearn-engine/services"

	"github.com/gofiber/fiber/v2"
)

func SetupProgressionRoutes(app *fiber.App, progressionService *services.ProgressionService, leaderboardService *services.LeaderboardService) {
	// 🔐 user context (userID, roles) required
	userCtx := middleware.UserContextMiddleware()

	app.Get("/user/progress", userCtx, progressionService.GetProgress)
	app.Get("/user/badges", userCtx, progressionService.GetBadges)

	// ✅ Admin-only; role enforced inside the handler
	app.Post("/points/grant", userCtx, progressionService.Grant)

	// 🔓 Leaderboard — gateway auth only
	app.Get("/leaderboard", leaderboardService.GetLeaderboard)
}
