// file: internals/features/fees/dashboard/route/dashboard_route.go
package route

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	controller "sekolahku_backend/internals/features/fees/dashboard/controller"
)

func DashboardRoutes(r fiber.Router, db *gorm.DB) {
	dashboardCtrl := controller.NewDashboardController(db)
	r.Get("/dashboard", dashboardCtrl.Summary)
}
