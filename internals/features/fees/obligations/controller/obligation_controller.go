// file: internals/features/fees/obligations/controller/obligation_controller.go
package controller

import (
	"errors"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	catalogModel "sekolahku_backend/internals/features/fees/catalog/model"
	dto "sekolahku_backend/internals/features/fees/obligations/dto"
	model "sekolahku_backend/internals/features/fees/obligations/model"
	service "sekolahku_backend/internals/features/fees/obligations/service"
	studentModel "sekolahku_backend/internals/features/school/students/model"
	helper "sekolahku_backend/internals/helpers"
)

type ObligationController struct {
	DB *gorm.DB
}

func NewObligationController(db *gorm.DB) *ObligationController {
	return &ObligationController{DB: db}
}

/* ======================= READS ======================= */
// GET /obligations?student_id=&state=&page=&per_page=
func (h *ObligationController) List(c *fiber.Ctx) error {
	scope, err := helper.GetScope(c)
	if err != nil {
		return err
	}

	page := c.QueryInt("page", 1)
	perPage := c.QueryInt("per_page", 50)
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 200 {
		perPage = 50
	}

	q := h.DB.Model(&model.FeeStatusModel{}).
		Where("fee_status_student_id IN (?)", scope.ApplyToStudents(h.DB.Model(&studentModel.StudentModel{}).Select("student_id")))

	if raw := c.Query("student_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return helper.JsonError(c, fiber.StatusBadRequest, "Invalid student id")
		}
		q = q.Where("fee_status_student_id = ?", id)
	}
	if state := c.Query("state"); state != "" {
		if state == string(model.FeeStatusOverdue) {
			// Overdue is a read-side view until the sweep persists it.
			q = q.Where("(fee_status_state = ? OR (fee_status_state = ? AND fee_status_due_date < ?))",
				model.FeeStatusOverdue, model.FeeStatusPending, time.Now())
		} else {
			q = q.Where("fee_status_state = ?", state)
		}
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Could not list obligations")
	}

	var obligations []model.FeeStatusModel
	if err := q.Order("fee_status_due_date, fee_status_created_at").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&obligations).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Could not list obligations")
	}

	out, err := h.price(obligations, time.Now())
	if err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Could not price obligations")
	}
	return helper.JsonList(c, "Obligations fetched", out, helper.BuildPagination(total, page, perPage))
}

// GET /students/:id/obligations
func (h *ObligationController) ListForStudent(c *fiber.Ctx) error {
	scope, err := helper.GetScope(c)
	if err != nil {
		return err
	}

	studentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid student id")
	}

	var student studentModel.StudentModel
	if err := scope.ApplyToStudents(h.DB).First(&student, "student_id = ?", studentID).Error; err != nil {
		return helper.JsonErrorKind(c, fiber.StatusNotFound, helper.KindNotFound, "Student not found")
	}

	var obligations []model.FeeStatusModel
	if err := h.DB.Where("fee_status_student_id = ?", studentID).
		Order("fee_status_due_date, fee_status_created_at").
		Find(&obligations).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Could not list obligations")
	}

	now := time.Now()
	out, err := h.price(obligations, now)
	if err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Could not price obligations")
	}

	summary := dto.ObligationSummary{}
	for _, line := range out {
		if line.State == model.FeeStatusPending || line.State == model.FeeStatusOverdue {
			summary.OpenCount++
			summary.TotalDue += line.EffectiveAmount
		}
		if line.State == model.FeeStatusOverdue {
			summary.OverdueCount++
		}
	}

	return helper.JsonOK(c, "Obligations fetched", fiber.Map{
		"student_id":  studentID,
		"obligations": out,
		"summary":     summary,
	})
}

/* ======================= EXPAND ======================= */
// POST /students/:id/expand
func (h *ObligationController) ExpandStudent(c *fiber.Ctx) error {
	scope, err := helper.GetScope(c)
	if err != nil {
		return err
	}
	if !scope.CanWriteFees {
		return helper.JsonErrorKind(c, fiber.StatusForbidden, helper.KindForbidden, "Not allowed to expand obligations")
	}

	studentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid student id")
	}

	var student studentModel.StudentModel
	if err := scope.ApplyToStudents(h.DB).First(&student, "student_id = ?", studentID).Error; err != nil {
		return helper.JsonErrorKind(c, fiber.StatusNotFound, helper.KindNotFound, "Student not found")
	}

	if err := service.ExpandStudent(h.DB, studentID); err != nil {
		if errors.Is(err, service.ErrDuplicateActiveStructure) {
			return helper.JsonErrorKind(c, fiber.StatusConflict, helper.KindDuplicateActiveStructure, err.Error())
		}
		log.Printf("[OBLIGATION] expand failed for %s: %v", studentID, err)
		return helper.JsonError(c, fiber.StatusInternalServerError, "Could not expand obligations")
	}
	return helper.JsonOK(c, "Obligations up to date", fiber.Map{"student_id": studentID})
}

/* ======================= INDIVIDUAL FEES ======================= */
// GET /individual-fees?student_id=
func (h *ObligationController) ListIndividualFees(c *fiber.Ctx) error {
	scope, err := helper.GetScope(c)
	if err != nil {
		return err
	}

	q := h.DB.Model(&model.IndividualFeeModel{}).
		Where("individual_fee_is_active = TRUE").
		Where("individual_fee_student_id IN (?)", scope.ApplyToStudents(h.DB.Model(&studentModel.StudentModel{}).Select("student_id")))

	if raw := c.Query("student_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return helper.JsonError(c, fiber.StatusBadRequest, "Invalid student id")
		}
		q = q.Where("individual_fee_student_id = ?", id)
	}

	var fees []model.IndividualFeeModel
	if err := q.Order("individual_fee_due_date").Find(&fees).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Could not list individual fees")
	}

	now := time.Now()
	out := make([]dto.IndividualFeeResponse, 0, len(fees))
	for i := range fees {
		out = append(out, dto.FromIndividualFeeModel(&fees[i], now))
	}
	return helper.JsonOK(c, "Individual fees fetched", out)
}

// POST /individual-fees
func (h *ObligationController) CreateIndividualFee(c *fiber.Ctx) error {
	scope, err := helper.GetScope(c)
	if err != nil {
		return err
	}
	if !scope.CanWriteFees {
		return helper.JsonErrorKind(c, fiber.StatusForbidden, helper.KindForbidden, "Not allowed to create individual fees")
	}

	var req dto.CreateIndividualFeeRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid payload")
	}
	if err := validator.New().Struct(req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, err.Error())
	}

	var student studentModel.StudentModel
	if err := scope.ApplyToStudents(h.DB).First(&student, "student_id = ?", req.StudentID).Error; err != nil {
		return helper.JsonErrorKind(c, fiber.StatusNotFound, helper.KindNotFound, "Student not found")
	}
	var category catalogModel.FeeCategoryModel
	if err := h.DB.First(&category, "fee_category_id = ?", req.CategoryID).Error; err != nil {
		return helper.JsonErrorKind(c, fiber.StatusNotFound, helper.KindNotFound, "Fee category not found")
	}

	fee := req.ToModel(scope.UserID)
	if err := h.DB.Create(fee).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Could not create individual fee")
	}
	return helper.JsonCreated(c, "Individual fee created", dto.FromIndividualFeeModel(fee, time.Now()))
}

// DELETE /individual-fees/:id
func (h *ObligationController) DeleteIndividualFee(c *fiber.Ctx) error {
	scope, err := helper.GetScope(c)
	if err != nil {
		return err
	}
	if !scope.CanWriteFees {
		return helper.JsonErrorKind(c, fiber.StatusForbidden, helper.KindForbidden, "Not allowed to delete individual fees")
	}

	feeID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid fee id")
	}

	var fee model.IndividualFeeModel
	if err := h.DB.First(&fee, "individual_fee_id = ?", feeID).Error; err != nil {
		return helper.JsonErrorKind(c, fiber.StatusNotFound, helper.KindNotFound, "Individual fee not found")
	}
	if fee.IndividualFeeIsPaid {
		return helper.JsonError(c, fiber.StatusConflict, "Paid fees cannot be deleted")
	}
	if err := h.DB.Delete(&fee).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Could not delete individual fee")
	}
	return helper.JsonDeleted(c, "Individual fee deleted", fiber.Map{"individual_fee_id": feeID})
}

/* ======================= INTERNAL ======================= */

// price resolves category and effective amount for each obligation,
// loading structures and waivers once per (student, category).
func (h *ObligationController) price(obligations []model.FeeStatusModel, now time.Time) ([]dto.ObligationResponse, error) {
	out := make([]dto.ObligationResponse, 0, len(obligations))
	if len(obligations) == 0 {
		return out, nil
	}

	structureIDs := make([]uuid.UUID, 0, len(obligations))
	for _, ob := range obligations {
		structureIDs = append(structureIDs, ob.FeeStatusFeeStructureID)
	}

	var structures []catalogModel.FeeStructureModel
	if err := h.DB.Where("fee_structure_id IN ?", structureIDs).Find(&structures).Error; err != nil {
		return nil, err
	}
	structureByID := map[uuid.UUID]catalogModel.FeeStructureModel{}
	categoryIDs := make([]uuid.UUID, 0, len(structures))
	for _, s := range structures {
		structureByID[s.FeeStructureID] = s
		categoryIDs = append(categoryIDs, s.FeeStructureCategoryID)
	}

	var categories []catalogModel.FeeCategoryModel
	if err := h.DB.Where("fee_category_id IN ?", categoryIDs).Find(&categories).Error; err != nil {
		return nil, err
	}
	categoryByID := map[uuid.UUID]catalogModel.FeeCategoryModel{}
	for _, cat := range categories {
		categoryByID[cat.FeeCategoryID] = cat
	}

	type waiverKey struct {
		student  uuid.UUID
		category uuid.UUID
	}
	waiverCache := map[waiverKey][]catalogModel.FeeWaiverModel{}

	for i := range obligations {
		ob := obligations[i]
		structure, ok := structureByID[ob.FeeStatusFeeStructureID]
		if !ok {
			continue
		}
		category := categoryByID[structure.FeeStructureCategoryID]

		key := waiverKey{student: ob.FeeStatusStudentID, category: structure.FeeStructureCategoryID}
		waivers, cached := waiverCache[key]
		if !cached {
			loaded, err := service.ActiveWaivers(h.DB, key.student, key.category)
			if err != nil {
				return nil, err
			}
			waiverCache[key] = loaded
			waivers = loaded
		}

		effective := ob.FeeStatusAmount
		if ob.FeeStatusState.Open() {
			effective = service.EffectiveAmount(ob.FeeStatusAmount, waivers, now)
		}

		out = append(out, dto.ObligationResponse{
			ObligationID:    ob.FeeStatusID,
			StudentID:       ob.FeeStatusStudentID,
			FeeStructureID:  ob.FeeStatusFeeStructureID,
			CategoryID:      structure.FeeStructureCategoryID,
			CategoryName:    category.FeeCategoryName,
			DueDate:         ob.FeeStatusDueDate,
			FaceAmount:      ob.FeeStatusAmount,
			EffectiveAmount: effective,
			State:           ob.EffectiveState(now),
			SettledBy:       ob.FeeStatusSettledPaymentID,
		})
	}
	return out, nil
}
