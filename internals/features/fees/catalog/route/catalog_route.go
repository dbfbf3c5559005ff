// file: internals/features/fees/catalog/route/catalog_route.go
package route

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	controller "sekolahku_backend/internals/features/fees/catalog/controller"
)

// CatalogRoutes mounts catalog management. The group is already behind
// authentication; per-scope checks live in the controller.
func CatalogRoutes(r fiber.Router, db *gorm.DB) {
	catalogCtrl := controller.NewCatalogController(db)

	categories := r.Group("/fee-categories")
	categories.Get("/", catalogCtrl.ListCategories)
	categories.Post("/", catalogCtrl.CreateCategory)
	categories.Patch("/:id", catalogCtrl.UpdateCategory)
	categories.Delete("/:id", catalogCtrl.DeleteCategory)

	structures := r.Group("/fee-structures")
	structures.Get("/", catalogCtrl.ListStructures)
	structures.Post("/", catalogCtrl.CreateStructure)
	structures.Patch("/:id", catalogCtrl.UpdateStructure)
	structures.Post("/:id/activate", catalogCtrl.ActivateStructure)
	structures.Post("/:id/deactivate", catalogCtrl.DeactivateStructure)

	waivers := r.Group("/fee-waivers")
	waivers.Get("/", catalogCtrl.ListWaivers)
	waivers.Post("/", catalogCtrl.CreateWaiver)
	waivers.Post("/:id/approve", catalogCtrl.ApproveWaiver)
	waivers.Post("/:id/reject", catalogCtrl.RejectWaiver)

	terms := r.Group("/academic-terms")
	terms.Get("/", catalogCtrl.ListTerms)
	terms.Post("/", catalogCtrl.CreateTerm)

	settings := r.Group("/fee-settings")
	settings.Get("/", catalogCtrl.GetSettings)
	settings.Put("/", catalogCtrl.UpdateSettings)
}
