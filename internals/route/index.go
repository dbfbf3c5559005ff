// file: internals/route/index.go
package route

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"sekolahku_backend/internals/constants"
	catalogRoute "sekolahku_backend/internals/features/fees/catalog/route"
	dashboardRoute "sekolahku_backend/internals/features/fees/dashboard/route"
	obligationRoute "sekolahku_backend/internals/features/fees/obligations/route"
	paymentRoute "sekolahku_backend/internals/features/fees/payments/route"
	reminderRoute "sekolahku_backend/internals/features/fees/reminders/route"
	studentRoute "sekolahku_backend/internals/features/school/students/route"
	userRoute "sekolahku_backend/internals/features/users/route"
	authMiddleware "sekolahku_backend/internals/middlewares/auth"
)

// SetupRoutes mounts every feature.
//
//	/api/login       public
//	/api/u/...       any authenticated role (scope-filtered reads)
//	/api/a/...       fee-admin roles only
func SetupRoutes(app *fiber.App, db *gorm.DB) {
	userRoute.AuthRoutes(app, db)

	// Portal group: students and parents see their own slice here through
	// the same scoped endpoints the admins use.
	portal := app.Group("/api/u", authMiddleware.AuthMiddleware(db))
	userRoute.UserRoutes(portal, db)
	studentRoute.StudentRoutes(portal, db)
	obligationRoute.ObligationRoutes(portal, db)
	paymentRoute.PaymentRoutes(portal, db)
	dashboardRoute.DashboardRoutes(portal, db)

	// Admin group: catalog management and the reminder console sit behind
	// an explicit role gate on top of per-scope checks.
	admin := app.Group("/api/a",
		authMiddleware.AuthMiddleware(db),
		authMiddleware.OnlyRoles(constants.RoleErrorAdmin("fee administration"), constants.FeeAdminRoles...),
	)
	catalogRoute.CatalogRoutes(admin, db)
	reminderRoute.ReminderRoutes(admin, db)
}
