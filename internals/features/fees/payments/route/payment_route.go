// file: internals/features/fees/payments/route/payment_route.go
package route

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	controller "sekolahku_backend/internals/features/fees/payments/controller"
)

// PaymentRoutes mounts the ledger endpoints. Reads are scope-filtered in
// the controller; confirm, reject and refund additionally require a
// payment-writer scope.
func PaymentRoutes(r fiber.Router, db *gorm.DB) {
	paymentCtrl := controller.NewPaymentController(db)

	payments := r.Group("/payments")
	payments.Get("/", paymentCtrl.List)
	payments.Get("/:id", paymentCtrl.GetByID)
	payments.Post("/", paymentCtrl.Create)
	payments.Post("/:id/confirm", paymentCtrl.ConfirmCash)
	payments.Post("/:id/reject", paymentCtrl.RejectCash)
	payments.Post("/:id/refund", paymentCtrl.Refund)
}
