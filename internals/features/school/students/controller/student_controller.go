// file: internals/features/school/students/controller/student_controller.go
package controller

import (
	"errors"
	"log"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	obligationService "sekolahku_backend/internals/features/fees/obligations/service"
	dto "sekolahku_backend/internals/features/school/students/dto"
	model "sekolahku_backend/internals/features/school/students/model"
	studentService "sekolahku_backend/internals/features/school/students/service"
	helper "sekolahku_backend/internals/helpers"
)

type StudentController struct {
	DB *gorm.DB
}

func NewStudentController(db *gorm.DB) *StudentController {
	return &StudentController{DB: db}
}

/* ======================= READS ======================= */
// GET /students?level=&class=&q=&page=&per_page=
func (h *StudentController) List(c *fiber.Ctx) error {
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

	q := scope.ApplyToStudents(h.DB.Model(&model.StudentModel{}))

	if level := c.Query("level"); level != "" {
		q = q.Where("student_level = ?", helper.CanonicalLevel(level))
	}
	if class := c.Query("class"); class != "" {
		q = q.Where("student_class = ?", class)
	}
	if search := strings.TrimSpace(c.Query("q")); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		q = q.Where("(LOWER(student_name) LIKE ? OR LOWER(student_code) LIKE ?)", pattern, pattern)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Could not list students")
	}

	var students []model.StudentModel
	if err := q.Order("student_level, student_code").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&students).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Could not list students")
	}
	return helper.JsonList(c, "Students fetched", students, helper.BuildPagination(total, page, perPage))
}

// GET /students/:id
func (h *StudentController) GetByID(c *fiber.Ctx) error {
	scope, err := helper.GetScope(c)
	if err != nil {
		return err
	}

	studentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid student id")
	}

	// Out-of-scope rows read as missing, not forbidden.
	var student model.StudentModel
	if err := scope.ApplyToStudents(h.DB).First(&student, "student_id = ?", studentID).Error; err != nil {
		return helper.JsonErrorKind(c, fiber.StatusNotFound, helper.KindNotFound, "Student not found")
	}
	return helper.JsonOK(c, "Student fetched", student)
}

/* ======================= WRITES ======================= */
// POST /students
func (h *StudentController) Create(c *fiber.Ctx) error {
	scope, err := helper.GetScope(c)
	if err != nil {
		return err
	}
	if !scope.CanWriteFees {
		return helper.JsonErrorKind(c, fiber.StatusForbidden, helper.KindForbidden, "Not allowed to manage students")
	}

	var req dto.CreateStudentRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid payload")
	}
	if err := validator.New().Struct(req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, err.Error())
	}

	student := req.ToModel()
	if student.StudentLevel == "" {
		return helper.JsonError(c, fiber.StatusBadRequest, "Unknown level")
	}
	if !scope.AllowsLevel(student.StudentLevel) {
		return helper.JsonErrorKind(c, fiber.StatusForbidden, helper.KindForbidden, "Level outside your scope")
	}

	if err := h.DB.Create(student).Error; err != nil {
		return helper.JsonError(c, fiber.StatusConflict, "Student code already in use")
	}

	// Materialize obligations for the level right away so the student is
	// billable without waiting for the nightly replay.
	if err := obligationService.ExpandStudent(h.DB, student.StudentID); err != nil {
		log.Printf("[STUDENT] expansion after create failed for %s: %v", student.StudentID, err)
	}
	return helper.JsonCreated(c, "Student created", student)
}

// PATCH /students/:id
func (h *StudentController) Update(c *fiber.Ctx) error {
	scope, err := helper.GetScope(c)
	if err != nil {
		return err
	}
	if !scope.CanWriteFees {
		return helper.JsonErrorKind(c, fiber.StatusForbidden, helper.KindForbidden, "Not allowed to manage students")
	}

	studentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid student id")
	}

	var req dto.UpdateStudentRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid payload")
	}
	if err := validator.New().Struct(req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, err.Error())
	}

	var student model.StudentModel
	if err := scope.ApplyToStudents(h.DB).First(&student, "student_id = ?", studentID).Error; err != nil {
		return helper.JsonErrorKind(c, fiber.StatusNotFound, helper.KindNotFound, "Student not found")
	}

	if req.Level != nil {
		canonical := helper.CanonicalLevel(*req.Level)
		if canonical == "" {
			return helper.JsonError(c, fiber.StatusBadRequest, "Unknown level")
		}
		if !scope.AllowsLevel(canonical) {
			return helper.JsonErrorKind(c, fiber.StatusForbidden, helper.KindForbidden, "Level outside your scope")
		}
	}

	levelChanged := req.ApplyTo(&student)
	if err := h.DB.Save(&student).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Could not update student")
	}

	// A level change voids stale open obligations from the old level and
	// materializes the new level's structures.
	if levelChanged {
		if err := obligationService.VoidStaleAndReexpand(h.DB, student.StudentID); err != nil {
			log.Printf("[STUDENT] re-expansion after level change failed for %s: %v", student.StudentID, err)
			return helper.JsonError(c, fiber.StatusInternalServerError, "Level changed but obligations could not be rebuilt")
		}
	}
	return helper.JsonUpdated(c, "Student updated", student)
}

// DELETE /students/:id
func (h *StudentController) Delete(c *fiber.Ctx) error {
	scope, err := helper.GetScope(c)
	if err != nil {
		return err
	}
	if !scope.CanWriteFees {
		return helper.JsonErrorKind(c, fiber.StatusForbidden, helper.KindForbidden, "Not allowed to manage students")
	}

	studentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid student id")
	}

	var student model.StudentModel
	if err := scope.ApplyToStudents(h.DB).First(&student, "student_id = ?", studentID).Error; err != nil {
		return helper.JsonErrorKind(c, fiber.StatusNotFound, helper.KindNotFound, "Student not found")
	}

	if err := studentService.DeleteStudentCascade(h.DB, student.StudentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return helper.JsonErrorKind(c, fiber.StatusNotFound, helper.KindNotFound, "Student not found")
		}
		log.Printf("[STUDENT] delete failed for %s: %v", studentID, err)
		return helper.JsonError(c, fiber.StatusInternalServerError, "Could not delete student")
	}
	return helper.JsonDeleted(c, "Student deleted", fiber.Map{"student_id": studentID})
}
