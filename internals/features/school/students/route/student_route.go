// file: internals/features/school/students/route/student_route.go
package route

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	controller "sekolahku_backend/internals/features/school/students/controller"
)

// StudentRoutes mounts the student registry. Reads are scope-filtered;
// writes require a fee-writer scope, checked in the controller.
func StudentRoutes(r fiber.Router, db *gorm.DB) {
	studentCtrl := controller.NewStudentController(db)

	students := r.Group("/students")
	students.Get("/", studentCtrl.List)
	students.Get("/:id", studentCtrl.GetByID)
	students.Post("/", studentCtrl.Create)
	students.Patch("/:id", studentCtrl.Update)
	students.Delete("/:id", studentCtrl.Delete)
}
