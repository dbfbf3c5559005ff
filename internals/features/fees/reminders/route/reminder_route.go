// file: internals/features/fees/reminders/route/reminder_route.go
package route

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	controller "sekolahku_backend/internals/features/fees/reminders/controller"
)

// ReminderRoutes mounts the reminder preview, log and manual send
// endpoints. The nightly sweep uses the same dispatcher.
func ReminderRoutes(r fiber.Router, db *gorm.DB) {
	reminderCtrl := controller.NewReminderController(db)

	reminders := r.Group("/reminders")
	reminders.Get("/", reminderCtrl.ListCandidates)
	reminders.Get("/log", reminderCtrl.ListLog)
	reminders.Post("/:obligation_id/send", reminderCtrl.Send)
}
