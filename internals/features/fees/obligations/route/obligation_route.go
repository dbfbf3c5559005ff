// file: internals/features/fees/obligations/route/obligation_route.go
package route

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	controller "sekolahku_backend/internals/features/fees/obligations/controller"
)

// ObligationRoutes mounts the obligation reads, the manual expansion
// trigger and the individual-fee endpoints.
func ObligationRoutes(r fiber.Router, db *gorm.DB) {
	obligationCtrl := controller.NewObligationController(db)

	r.Get("/obligations", obligationCtrl.List)
	r.Get("/students/:id/obligations", obligationCtrl.ListForStudent)
	r.Post("/students/:id/expand", obligationCtrl.ExpandStudent)

	individual := r.Group("/individual-fees")
	individual.Get("/", obligationCtrl.ListIndividualFees)
	individual.Post("/", obligationCtrl.CreateIndividualFee)
	individual.Delete("/:id", obligationCtrl.DeleteIndividualFee)
}
