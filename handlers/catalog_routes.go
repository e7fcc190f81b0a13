// handlers/catalog_routes.go
package handlers

import (
	"ecolearn-engine/middleware"
	"ecolearn-engine/services"

	"github.com/gofiber/fiber/v2"
)

func SetupCatalogRoutes(app *fiber.App, catalogService *services.CatalogService, recommendService *services.RecommendService) {
	// 🔓 Catalog is public behind the gateway
	app.Get("/challenges", catalogService.ListChallenges)

	// 🔐 Recommendations need the caller's profile. Registered before
	// the :id route so the param route doesn't shadow it.
	app.Get("/challenges/recommendations", middleware.UserContextMiddleware(), recommendService.GetRecommendations)

	app.Get("/challenges/:id", catalogService.GetChallenge)
}
