// file: internals/features/fees/catalog/controller/catalog_controller.go
package controller

import (
	"errors"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	dto "sekolahku_backend/internals/features/fees/catalog/dto"
	model "sekolahku_backend/internals/features/fees/catalog/model"
	service "sekolahku_backend/internals/features/fees/catalog/service"
	obligationService "sekolahku_backend/internals/features/fees/obligations/service"
	studentModel "sekolahku_backend/internals/features/school/students/model"
	helper "sekolahku_backend/internals/helpers"
)

type CatalogController struct {
	DB *gorm.DB
}

func NewCatalogController(db *gorm.DB) *CatalogController {
	return &CatalogController{DB: db}
}

/* =======================================================
   CATEGORIES
   ======================================================= */

// GET /fee-categories
func (h *CatalogController) ListCategories(c *fiber.Ctx) error {
	var categories []model.FeeCategoryModel
	if err := h.DB.Order("fee_category_name").Find(&categories).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Could not list fee categories")
	}
	return helper.JsonOK(c, "Fee categories fetched", categories)
}

// POST /fee-categories
func (h *CatalogController) CreateCategory(c *fiber.Ctx) error {
	if err := h.requireFeeWriter(c); err != nil {
		return err
	}

	var req dto.CreateFeeCategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid payload")
	}
	if err := validator.New().Struct(req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, err.Error())
	}

	category := req.ToModel()
	if err := h.DB.Create(category).Error; err != nil {
		return helper.JsonError(c, fiber.StatusConflict, "Fee category name already in use")
	}
	return helper.JsonCreated(c, "Fee category created", category)
}

// PATCH /fee-categories/:id
func (h *CatalogController) UpdateCategory(c *fiber.Ctx) error {
	if err := h.requireFeeWriter(c); err != nil {
		return err
	}

	categoryID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid category id")
	}

	var req dto.UpdateFeeCategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid payload")
	}
	if err := validator.New().Struct(req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, err.Error())
	}

	var category model.FeeCategoryModel
	if err := h.DB.First(&category, "fee_category_id = ?", categoryID).Error; err != nil {
		return helper.JsonErrorKind(c, fiber.StatusNotFound, helper.KindNotFound, "Fee category not found")
	}

	req.ApplyTo(&category)
	if err := h.DB.Save(&category).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Could not update fee category")
	}
	return helper.JsonUpdated(c, "Fee category updated", category)
}

// DELETE /fee-categories/:id
func (h *CatalogController) DeleteCategory(c *fiber.Ctx) error {
	if err := h.requireFeeWriter(c); err != nil {
		return err
	}

	categoryID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid category id")
	}

	res := h.DB.Delete(&model.FeeCategoryModel{}, "fee_category_id = ?", categoryID)
	if res.Error != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Could not delete fee category")
	}
	if res.RowsAffected == 0 {
		return helper.JsonErrorKind(c, fiber.StatusNotFound, helper.KindNotFound, "Fee category not found")
	}
	return helper.JsonDeleted(c, "Fee category deleted", fiber.Map{"fee_category_id": categoryID})
}

/* =======================================================
   STRUCTURES
   ======================================================= */

// GET /fee-structures?category_id=&level=&active=
func (h *CatalogController) ListStructures(c *fiber.Ctx) error {
	q := h.DB.Model(&model.FeeStructureModel{})
	if raw := c.Query("category_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return helper.JsonError(c, fiber.StatusBadRequest, "Invalid category id")
		}
		q = q.Where("fee_structure_category_id = ?", id)
	}
	if level := c.Query("level"); level != "" {
		q = q.Where("fee_structure_level = ?", helper.CanonicalLevel(level))
	}
	if c.Query("active") == "true" {
		q = q.Where("fee_structure_is_active = TRUE")
	}

	var structures []model.FeeStructureModel
	if err := q.Order("fee_structure_level, fee_structure_created_at DESC").Find(&structures).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Could not list fee structures")
	}

	out := make([]dto.FeeStructureResponse, 0, len(structures))
	for i := range structures {
		out = append(out, dto.FromStructureModel(&structures[i]))
	}
	return helper.JsonOK(c, "Fee structures fetched", out)
}

// POST /fee-structures
func (h *CatalogController) CreateStructure(c *fiber.Ctx) error {
	scope, err := helper.GetScope(c)
	if err != nil {
		return err
	}
	if !scope.CanWriteFees {
		return helper.JsonErrorKind(c, fiber.StatusForbidden, helper.KindForbidden, "Not allowed to manage the fee catalog")
	}

	var req dto.CreateFeeStructureRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid payload")
	}
	if err := validator.New().Struct(req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, err.Error())
	}

	structure := req.ToModel()
	if structure.FeeStructureLevel == "" {
		return helper.JsonError(c, fiber.StatusBadRequest, "Unknown level")
	}
	if !scope.AllowsLevel(structure.FeeStructureLevel) {
		return helper.JsonErrorKind(c, fiber.StatusForbidden, helper.KindForbidden, "Level outside your scope")
	}
	if !structure.MonthlyPlanConsistent() {
		return helper.JsonErrorKind(c, fiber.StatusUnprocessableEntity, helper.KindConflictingMonthlyPlan,
			"Monthly structures need a positive total and duration")
	}

	var category model.FeeCategoryModel
	if err := h.DB.First(&category, "fee_category_id = ?", req.CategoryID).Error; err != nil {
		return helper.JsonErrorKind(c, fiber.StatusNotFound, helper.KindNotFound, "Fee category not found")
	}

	// New structures start inactive; activation is an explicit step.
	if err := h.DB.Create(structure).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Could not create fee structure")
	}
	return helper.JsonCreated(c, "Fee structure created", dto.FromStructureModel(structure))
}

// PATCH /fee-structures/:id
func (h *CatalogController) UpdateStructure(c *fiber.Ctx) error {
	scope, err := helper.GetScope(c)
	if err != nil {
		return err
	}
	if !scope.CanWriteFees {
		return helper.JsonErrorKind(c, fiber.StatusForbidden, helper.KindForbidden, "Not allowed to manage the fee catalog")
	}

	structureID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid structure id")
	}

	var req dto.UpdateFeeStructureRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid payload")
	}
	if err := validator.New().Struct(req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, err.Error())
	}

	var structure model.FeeStructureModel
	if err := h.DB.First(&structure, "fee_structure_id = ?", structureID).Error; err != nil {
		return helper.JsonErrorKind(c, fiber.StatusNotFound, helper.KindNotFound, "Fee structure not found")
	}
	if !scope.AllowsLevel(structure.FeeStructureLevel) {
		return helper.JsonErrorKind(c, fiber.StatusNotFound, helper.KindNotFound, "Fee structure not found")
	}

	// Price edits on an active structure do not rewrite materialized
	// obligations; deactivate and activate a new row for that.
	req.ApplyTo(&structure)
	if !structure.MonthlyPlanConsistent() {
		return helper.JsonErrorKind(c, fiber.StatusUnprocessableEntity, helper.KindConflictingMonthlyPlan,
			"Monthly structures need a positive total and duration")
	}
	if err := h.DB.Save(&structure).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Could not update fee structure")
	}
	return helper.JsonUpdated(c, "Fee structure updated", dto.FromStructureModel(&structure))
}

// POST /fee-structures/:id/activate
func (h *CatalogController) ActivateStructure(c *fiber.Ctx) error {
	scope, err := helper.GetScope(c)
	if err != nil {
		return err
	}
	if !scope.CanWriteFees {
		return helper.JsonErrorKind(c, fiber.StatusForbidden, helper.KindForbidden, "Not allowed to manage the fee catalog")
	}

	structureID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid structure id")
	}

	structure, err := service.ActivateStructure(h.DB, structureID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return helper.JsonErrorKind(c, fiber.StatusNotFound, helper.KindNotFound, "Fee structure not found")
	case errors.Is(err, service.ErrConflictingMonthlyPlan):
		return helper.JsonErrorKind(c, fiber.StatusUnprocessableEntity, helper.KindConflictingMonthlyPlan, err.Error())
	case errors.Is(err, obligationService.ErrDuplicateActiveStructure):
		return helper.JsonErrorKind(c, fiber.StatusConflict, helper.KindDuplicateActiveStructure, err.Error())
	case err != nil:
		log.Printf("[CATALOG] activate failed: %v", err)
		return helper.JsonError(c, fiber.StatusInternalServerError, "Could not activate fee structure")
	}

	log.Printf("[CATALOG] activated structure %s level=%s", structure.FeeStructureID, structure.FeeStructureLevel)
	return helper.JsonUpdated(c, "Fee structure activated", dto.FromStructureModel(structure))
}

// POST /fee-structures/:id/deactivate
func (h *CatalogController) DeactivateStructure(c *fiber.Ctx) error {
	if err := h.requireFeeWriter(c); err != nil {
		return err
	}

	structureID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid structure id")
	}
	if err := service.DeactivateStructure(h.DB, structureID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return helper.JsonErrorKind(c, fiber.StatusNotFound, helper.KindNotFound, "Fee structure not found")
		}
		return helper.JsonError(c, fiber.StatusInternalServerError, "Could not deactivate fee structure")
	}
	return helper.JsonUpdated(c, "Fee structure deactivated", fiber.Map{"fee_structure_id": structureID})
}

/* =======================================================
   WAIVERS
   ======================================================= */

// GET /fee-waivers?student_id=&status=
func (h *CatalogController) ListWaivers(c *fiber.Ctx) error {
	scope, err := helper.GetScope(c)
	if err != nil {
		return err
	}

	q := h.DB.Model(&model.FeeWaiverModel{}).
		Where("fee_waiver_student_id IN (?)", scope.ApplyToStudents(h.DB.Model(&studentModel.StudentModel{}).Select("student_id")))

	if raw := c.Query("student_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return helper.JsonError(c, fiber.StatusBadRequest, "Invalid student id")
		}
		q = q.Where("fee_waiver_student_id = ?", id)
	}
	if status := c.Query("status"); status != "" {
		q = q.Where("fee_waiver_status = ?", status)
	}

	var waivers []model.FeeWaiverModel
	if err := q.Order("fee_waiver_created_at DESC").Find(&waivers).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Could not list waivers")
	}
	return helper.JsonOK(c, "Waivers fetched", waivers)
}

// POST /fee-waivers
func (h *CatalogController) CreateWaiver(c *fiber.Ctx) error {
	scope, err := helper.GetScope(c)
	if err != nil {
		return err
	}
	if !scope.CanWriteFees {
		return helper.JsonErrorKind(c, fiber.StatusForbidden, helper.KindForbidden, "Not allowed to manage waivers")
	}

	var req dto.CreateFeeWaiverRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid payload")
	}
	if err := validator.New().Struct(req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, err.Error())
	}
	if req.EndDate.Before(req.StartDate) {
		return helper.JsonError(c, fiber.StatusBadRequest, "Waiver window ends before it starts")
	}
	if req.Percentage == nil && req.FixedAmount <= 0 && req.Type != "full_waiver" {
		return helper.JsonError(c, fiber.StatusBadRequest, "Waiver needs a percentage or a fixed amount")
	}

	var student studentModel.StudentModel
	err = scope.ApplyToStudents(h.DB).First(&student, "student_id = ?", req.StudentID).Error
	if err != nil {
		return helper.JsonErrorKind(c, fiber.StatusNotFound, helper.KindNotFound, "Student not found")
	}

	waiver := req.ToModel()
	if err := h.DB.Create(waiver).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Could not create waiver")
	}
	return helper.JsonCreated(c, "Waiver submitted for approval", waiver)
}

// POST /fee-waivers/:id/approve
func (h *CatalogController) ApproveWaiver(c *fiber.Ctx) error {
	return h.decideWaiver(c, true)
}

// POST /fee-waivers/:id/reject
func (h *CatalogController) RejectWaiver(c *fiber.Ctx) error {
	return h.decideWaiver(c, false)
}

func (h *CatalogController) decideWaiver(c *fiber.Ctx, approve bool) error {
	scope, err := helper.GetScope(c)
	if err != nil {
		return err
	}
	if !scope.CanApproveWaivers {
		return helper.JsonErrorKind(c, fiber.StatusForbidden, helper.KindForbidden, "Not allowed to decide waivers")
	}

	waiverID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid waiver id")
	}

	waiver, err := service.DecideWaiver(h.DB, waiverID, scope.UserID, approve)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return helper.JsonErrorKind(c, fiber.StatusNotFound, helper.KindNotFound, "Waiver not found")
	case errors.Is(err, service.ErrWaiverNotPending):
		return helper.JsonError(c, fiber.StatusConflict, err.Error())
	case err != nil:
		log.Printf("[CATALOG] waiver decision failed: %v", err)
		return helper.JsonError(c, fiber.StatusInternalServerError, "Could not decide waiver")
	}

	message := "Waiver rejected"
	if approve {
		message = "Waiver approved"
	}
	return helper.JsonUpdated(c, message, waiver)
}

/* =======================================================
   TERMS & SETTINGS
   ======================================================= */

// GET /academic-terms
func (h *CatalogController) ListTerms(c *fiber.Ctx) error {
	var terms []model.AcademicTermModel
	if err := h.DB.Order("academic_term_start_date DESC").Find(&terms).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Could not list academic terms")
	}
	return helper.JsonOK(c, "Academic terms fetched", terms)
}

// POST /academic-terms
func (h *CatalogController) CreateTerm(c *fiber.Ctx) error {
	if err := h.requireFeeWriter(c); err != nil {
		return err
	}

	var req dto.CreateAcademicTermRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid payload")
	}
	if err := validator.New().Struct(req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, err.Error())
	}
	if req.EndDate.Before(req.StartDate) {
		return helper.JsonError(c, fiber.StatusBadRequest, "Term ends before it starts")
	}

	term := req.ToModel()
	if err := h.DB.Create(term).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Could not create academic term")
	}
	return helper.JsonCreated(c, "Academic term created", term)
}

// GET /fee-settings
func (h *CatalogController) GetSettings(c *fiber.Ctx) error {
	settings, err := service.Settings(h.DB)
	if err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Could not load fee settings")
	}
	return helper.JsonOK(c, "Fee settings fetched", settings)
}

// PUT /fee-settings
func (h *CatalogController) UpdateSettings(c *fiber.Ctx) error {
	if err := h.requireFeeWriter(c); err != nil {
		return err
	}

	var req dto.UpdateFeeSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid payload")
	}
	if err := validator.New().Struct(req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, err.Error())
	}

	settings, err := service.Settings(h.DB)
	if err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Could not load fee settings")
	}
	req.ApplyTo(settings)
	if err := h.DB.Save(settings).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Could not update fee settings")
	}
	return helper.JsonUpdated(c, "Fee settings updated", settings)
}

/* ======================= INTERNAL ======================= */

func (h *CatalogController) requireFeeWriter(c *fiber.Ctx) error {
	scope, err := helper.GetScope(c)
	if err != nil {
		return err
	}
	if !scope.CanWriteFees {
		return helper.JsonErrorKind(c, fiber.StatusForbidden, helper.KindForbidden, "Not allowed to manage the fee catalog")
	}
	return nil
}
