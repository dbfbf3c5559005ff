package route

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	controller "sekolahku_backend/internals/features/users/controller"
	"sekolahku_backend/internals/middlewares"
)

// AuthRoutes: unauthenticated entry points.
func AuthRoutes(app *fiber.App, db *gorm.DB) {
	h := controller.NewAuthController(db)
	app.Post("/api/login", middlewares.LoginRateLimiter(), h.Login)
}

// UserRoutes: endpoints behind the auth middleware (mounted on the
// authenticated group by the route index).
func UserRoutes(r fiber.Router, db *gorm.DB) {
	h := controller.NewAuthController(db)
	r.Get("/scope", h.Scope)
	r.Post("/logout", h.Logout)
}
