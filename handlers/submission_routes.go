// handlers/submission_routes.go
package handlers

import (
	"ecolearn-engine/middleware"
	"ecolearn-engine/services"

	"github.com/gofiber/fiber/v2"
)

func SetupSubmissionRoutes(app *fiber.App, submissionService *services.SubmissionService) {
	// 🔐 user context (userID, roles) required on submission routes
	userCtx := middleware.UserContextMiddleware()

	app.Post("/submissions", userCtx, submissionService.Create)
	app.Get("/submissions/mine", userCtx, submissionService.ListMine)
	app.Get("/submissions/pending", userCtx, submissionService.ListPending)
	app.Post("/submissions/:id/decide", userCtx, submissionService.Decide)

	// 🔓 Profile gallery — gateway auth only, no user context needed
	app.Get("/users/:id/images", submissionService.ListUserImages)
}
