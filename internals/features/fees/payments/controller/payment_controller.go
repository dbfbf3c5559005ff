// file: internals/features/fees/payments/controller/payment_controller.go
package controller

import (
	"errors"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	dto "sekolahku_backend/internals/features/fees/payments/dto"
	model "sekolahku_backend/internals/features/fees/payments/model"
	service "sekolahku_backend/internals/features/fees/payments/service"
	studentModel "sekolahku_backend/internals/features/school/students/model"
	helper "sekolahku_backend/internals/helpers"
)

type PaymentController struct {
	DB *gorm.DB
}

func NewPaymentController(db *gorm.DB) *PaymentController {
	return &PaymentController{DB: db}
}

/* ======================= CREATE ======================= */
// POST /payments
func (h *PaymentController) Create(c *fiber.Ctx) error {
	scope, err := helper.GetScope(c)
	if err != nil {
		return err
	}
	if !scope.CanWritePayments && !scope.CanInitiatePayments {
		return helper.JsonErrorKind(c, fiber.StatusForbidden, helper.KindForbidden, "Not allowed to record payments")
	}

	var req dto.CreatePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid payload")
	}
	if err := validator.New().Struct(req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, err.Error())
	}

	// Parents may only pay for their own children; out-of-scope students
	// are indistinguishable from missing ones.
	if ok, err := h.studentInScope(scope, req.StudentID); err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Could not resolve student")
	} else if !ok {
		return helper.JsonErrorKind(c, fiber.StatusNotFound, helper.KindNotFound, "Student not found")
	}

	// Only cashiers take cash.
	method := model.PaymentMethod(req.Method)
	if method == model.PaymentMethodCash && !scope.CanWritePayments {
		return helper.JsonErrorKind(c, fiber.StatusForbidden, helper.KindForbidden, "Cash payments are recorded by staff")
	}

	cashier := scope.UserID
	payment, replayed, err := service.RecordPayment(h.DB, service.SettleInput{
		StudentID:        req.StudentID,
		ObligationIDs:    req.ObligationIDs,
		IndividualFeeIDs: req.IndividualFeeIDs,
		DeclaredAmount:   req.Amount,
		Method:           method,
		ClientToken:      req.ClientToken,
		CashierID:        &cashier,
		Note:             req.Note,
	})
	if err != nil {
		return h.mapLedgerError(c, err)
	}

	items, _ := h.loadItems(payment.PaymentID)
	log.Printf("[PAYMENT] recorded %s %s student=%s amount=%.2f", payment.PaymentMethod, payment.PaymentStatus, payment.PaymentStudentID, payment.PaymentGrossAmount)
	if replayed {
		return helper.JsonOK(c, "Payment already recorded", dto.FromPaymentModel(payment, items, true))
	}
	return helper.JsonCreated(c, "Payment recorded", dto.FromPaymentModel(payment, items, false))
}

/* ======================= CONFIRM ======================= */
// POST /payments/:id/confirm
func (h *PaymentController) ConfirmCash(c *fiber.Ctx) error {
	scope, err := helper.GetScope(c)
	if err != nil {
		return err
	}
	if !scope.CanWritePayments {
		return helper.JsonErrorKind(c, fiber.StatusForbidden, helper.KindForbidden, "Not allowed to confirm payments")
	}

	paymentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid payment id")
	}

	cashier := scope.UserID
	payment, err := service.ConfirmCash(h.DB, paymentID, &cashier)
	if err != nil {
		return h.mapLedgerError(c, err)
	}

	items, _ := h.loadItems(payment.PaymentID)
	log.Printf("[PAYMENT] confirmed cash %s receipt=%s", payment.PaymentID, deref(payment.PaymentReceiptNumber))
	return helper.JsonUpdated(c, "Cash payment confirmed", dto.FromPaymentModel(payment, items, false))
}

/* ======================= REJECT ======================= */
// POST /payments/:id/reject
func (h *PaymentController) RejectCash(c *fiber.Ctx) error {
	scope, err := helper.GetScope(c)
	if err != nil {
		return err
	}
	if !scope.CanWritePayments {
		return helper.JsonErrorKind(c, fiber.StatusForbidden, helper.KindForbidden, "Not allowed to reject payments")
	}

	paymentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid payment id")
	}

	var req dto.RejectCashRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid payload")
	}
	if err := validator.New().Struct(req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, err.Error())
	}

	actor := scope.UserID
	payment, err := service.RejectCash(h.DB, paymentID, &actor, req.Reason)
	if err != nil {
		return h.mapLedgerError(c, err)
	}

	items, _ := h.loadItems(payment.PaymentID)
	log.Printf("[PAYMENT] rejected cash %s reason=%q", payment.PaymentID, req.Reason)
	return helper.JsonUpdated(c, "Cash payment rejected", dto.FromPaymentModel(payment, items, false))
}

/* ======================= REFUND ======================= */
// POST /payments/:id/refund
func (h *PaymentController) Refund(c *fiber.Ctx) error {
	scope, err := helper.GetScope(c)
	if err != nil {
		return err
	}
	if !scope.CanWritePayments {
		return helper.JsonErrorKind(c, fiber.StatusForbidden, helper.KindForbidden, "Not allowed to refund payments")
	}

	paymentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid payment id")
	}

	var req dto.RefundPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid payload")
	}
	if err := validator.New().Struct(req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, err.Error())
	}

	actor := scope.UserID
	payment, err := service.Refund(h.DB, paymentID, &actor, req.Reason)
	if err != nil {
		return h.mapLedgerError(c, err)
	}

	items, _ := h.loadItems(payment.PaymentID)
	log.Printf("[PAYMENT] refunded %s reason=%q", payment.PaymentID, req.Reason)
	return helper.JsonUpdated(c, "Payment refunded", dto.FromPaymentModel(payment, items, false))
}

/* ======================= READS ======================= */
// GET /payments?student_id=&status=&page=&per_page=
func (h *PaymentController) List(c *fiber.Ctx) error {
	scope, err := helper.GetScope(c)
	if err != nil {
		return err
	}

	page := c.QueryInt("page", 1)
	perPage := c.QueryInt("per_page", 20)
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	q := h.DB.Model(&model.PaymentModel{}).
		Where("payment_student_id IN (?)", scope.ApplyToStudents(h.DB.Model(&studentModel.StudentModel{}).Select("student_id")))

	if raw := c.Query("student_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return helper.JsonError(c, fiber.StatusBadRequest, "Invalid student id")
		}
		q = q.Where("payment_student_id = ?", id)
	}
	if status := c.Query("status"); status != "" {
		q = q.Where("payment_status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Could not list payments")
	}

	var payments []model.PaymentModel
	if err := q.Order("payment_created_at DESC").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&payments).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Could not list payments")
	}

	out := make([]dto.PaymentResponse, 0, len(payments))
	for i := range payments {
		out = append(out, dto.FromPaymentModel(&payments[i], nil, false))
	}
	return helper.JsonList(c, "Payments fetched", out, helper.BuildPagination(total, page, perPage))
}

// GET /payments/:id
func (h *PaymentController) GetByID(c *fiber.Ctx) error {
	scope, err := helper.GetScope(c)
	if err != nil {
		return err
	}

	paymentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid payment id")
	}

	var payment model.PaymentModel
	if err := h.DB.First(&payment, "payment_id = ?", paymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return helper.JsonErrorKind(c, fiber.StatusNotFound, helper.KindNotFound, "Payment not found")
		}
		return helper.JsonError(c, fiber.StatusInternalServerError, "Could not load payment")
	}

	if ok, err := h.studentInScope(scope, payment.PaymentStudentID); err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Could not resolve student")
	} else if !ok {
		return helper.JsonErrorKind(c, fiber.StatusNotFound, helper.KindNotFound, "Payment not found")
	}

	items, _ := h.loadItems(payment.PaymentID)
	return helper.JsonOK(c, "Payment fetched", dto.FromPaymentModel(&payment, items, false))
}

/* ======================= INTERNAL ======================= */

// studentInScope checks the caller may touch the student. The student row
// must exist and intersect the caller's scope.
func (h *PaymentController) studentInScope(scope helper.Scope, studentID uuid.UUID) (bool, error) {
	if !scope.AllowsStudentID(studentID) {
		return false, nil
	}
	var count int64
	err := scope.ApplyToStudents(h.DB.Model(&studentModel.StudentModel{})).
		Where("student_id = ?", studentID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (h *PaymentController) loadItems(paymentID uuid.UUID) ([]model.PaymentItemModel, error) {
	var items []model.PaymentItemModel
	err := h.DB.Where("payment_item_payment_id = ?", paymentID).
		Order("payment_item_created_at").
		Find(&items).Error
	return items, err
}

func (h *PaymentController) mapLedgerError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return helper.JsonErrorKind(c, fiber.StatusNotFound, helper.KindNotFound, "Payment target not found")
	case errors.Is(err, service.ErrAmountMismatch):
		return helper.JsonErrorKind(c, fiber.StatusUnprocessableEntity, helper.KindAmountMismatch, err.Error())
	case errors.Is(err, service.ErrObligationNotOpen):
		return helper.JsonErrorKind(c, fiber.StatusConflict, helper.KindObligationNotOpen, err.Error())
	case errors.Is(err, service.ErrCrossStudentSettlement):
		return helper.JsonErrorKind(c, fiber.StatusUnprocessableEntity, helper.KindCrossStudentSettlement, err.Error())
	case errors.Is(err, service.ErrRaceLost):
		return helper.JsonErrorKind(c, fiber.StatusConflict, helper.KindRaceLost, err.Error())
	case errors.Is(err, service.ErrPaymentNotPending),
		errors.Is(err, service.ErrPaymentNotRefundable),
		errors.Is(err, service.ErrNothingToSettle):
		return helper.JsonError(c, fiber.StatusUnprocessableEntity, err.Error())
	default:
		log.Printf("[PAYMENT] ledger error: %v", err)
		return helper.JsonError(c, fiber.StatusInternalServerError, "Payment could not be processed")
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
