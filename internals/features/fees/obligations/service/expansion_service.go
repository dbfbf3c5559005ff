// file: internals/features/fees/obligations/service/expansion_service.go
package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	catalogModel "sekolahku_backend/internals/features/fees/catalog/model"
	model "sekolahku_backend/internals/features/fees/obligations/model"
	studentModel "sekolahku_backend/internals/features/school/students/model"
	helper "sekolahku_backend/internals/helpers"
)

var (
	// ErrDuplicateActiveStructure: two active structures share a
	// (category, level); the engine refuses to expand until resolved.
	ErrDuplicateActiveStructure = errors.New("duplicate active fee structure for category and level")
)

// defaultDueOffset is the policy offset for one-off and yearly fees, and
// the fallback for termly fees when no term covers today.
const defaultDueOffset = 30 * 24 * time.Hour

// ExpandStudent materializes the student's obligations from every active
// structure at their level. Idempotent and replayable: existing rows are
// never duplicated and an open row's due date is never touched. Runs in a
// single transaction; partial expansion is never persisted.
func ExpandStudent(db *gorm.DB, studentID uuid.UUID) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var student studentModel.StudentModel
		if err := forUpdate(tx).
			First(&student, "student_id = ?", studentID).Error; err != nil {
			return err
		}
		return expandStudentTx(tx, &student)
	})
}

// forUpdate takes row locks on postgres; the sqlite test database runs
// single-writer and has no FOR UPDATE.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// ExpandStructure runs the per-student step for every active student at the
// structure's level. Used by catalog activation; observed as atomic.
func ExpandStructure(db *gorm.DB, structureID uuid.UUID) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var structure catalogModel.FeeStructureModel
		if err := tx.First(&structure, "fee_structure_id = ?", structureID).Error; err != nil {
			return err
		}
		if !structure.FeeStructureIsActive {
			return nil
		}

		var students []studentModel.StudentModel
		if err := forUpdate(tx).
			Where("student_is_active = TRUE AND student_level = ?", helper.CanonicalLevel(structure.FeeStructureLevel)).
			Order("student_code"). // fixed lock order
			Find(&students).Error; err != nil {
			return err
		}
		for i := range students {
			if err := expandStudentTx(tx, &students[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func expandStudentTx(tx *gorm.DB, student *studentModel.StudentModel) error {
	if !student.StudentIsActive {
		return nil
	}
	level := helper.CanonicalLevel(student.StudentLevel)
	if level == "" {
		return nil
	}

	var structures []catalogModel.FeeStructureModel
	if err := forUpdate(tx).
		Where("fee_structure_is_active = TRUE AND fee_structure_level = ?", level).
		Order("fee_structure_created_at").
		Find(&structures).Error; err != nil {
		return err
	}

	// Migration glitches can leave two active rows for one category; that
	// is stored-state corruption, not something to expand around.
	seen := map[uuid.UUID]bool{}
	for _, f := range structures {
		if seen[f.FeeStructureCategoryID] {
			return fmt.Errorf("%w: category=%s level=%s", ErrDuplicateActiveStructure, f.FeeStructureCategoryID, level)
		}
		seen[f.FeeStructureCategoryID] = true
	}

	today := time.Now()
	for i := range structures {
		if err := ensureObligations(tx, student, &structures[i], today); err != nil {
			return err
		}
	}
	return markFullyWaived(tx, student.StudentID, today)
}

func ensureObligations(tx *gorm.DB, student *studentModel.StudentModel, f *catalogModel.FeeStructureModel, today time.Time) error {
	anchor := today
	if f.FeeStructureActivatedAt != nil {
		anchor = *f.FeeStructureActivatedAt
	}

	switch f.FeeStructureFrequency {
	case catalogModel.FeeFrequencyMonthly:
		if f.FeeStructureMonthlyDuration == nil || f.FeeStructureTotalAmount == nil {
			return fmt.Errorf("monthly structure %s missing plan totals", f.FeeStructureID)
		}
		for i := 0; i < *f.FeeStructureMonthlyDuration; i++ {
			due := monthlyDueDate(tx, anchor, i)
			if err := ensureOne(tx, student.StudentID, f.FeeStructureID, due, f.MonthlyInstallment(i)); err != nil {
				return err
			}
		}
		return nil

	case catalogModel.FeeFrequencyTermly:
		return ensureOne(tx, student.StudentID, f.FeeStructureID, termlyDueDate(tx, today), f.FeeStructureAmount)

	default: // one_off, yearly
		return ensureOne(tx, student.StudentID, f.FeeStructureID, dateOnly(anchor.Add(defaultDueOffset)), f.FeeStructureAmount)
	}
}

// ensureOne creates the (student, structure, due) obligation if absent.
// Paid or otherwise transitioned rows are left untouched.
func ensureOne(tx *gorm.DB, studentID, structureID uuid.UUID, due time.Time, face float64) error {
	var existing model.FeeStatusModel
	err := tx.Where(
		"fee_status_student_id = ? AND fee_status_fee_structure_id = ? AND fee_status_due_date = ?",
		studentID, structureID, due,
	).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return tx.Create(&model.FeeStatusModel{
		FeeStatusStudentID:      studentID,
		FeeStatusFeeStructureID: structureID,
		FeeStatusDueDate:        due,
		FeeStatusAmount:         face,
		FeeStatusState:          model.FeeStatusPending,
	}).Error
}

// monthlyDueDate steps one calendar month per period, snapped to the
// configured due day-of-month when fee settings exist. Every period must
// land on a distinct date or the dedupe in ensureOne would swallow an
// installment.
func monthlyDueDate(tx *gorm.DB, anchor time.Time, period int) time.Time {
	a := dateOnly(anchor)

	var settings catalogModel.FeeSettingsModel
	if err := tx.First(&settings).Error; err != nil {
		return a.AddDate(0, period, 0)
	}
	due := time.Date(a.Year(), a.Month(), settings.FeeSettingsDueDay, 0, 0, 0, 0, a.Location())
	// The first installment falls on the next due day at or after the
	// anchor; later periods advance one month each.
	if due.Before(a) {
		due = due.AddDate(0, 1, 0)
	}
	return due.AddDate(0, period, 0)
}

// termlyDueDate is the end of the term covering today, else today + 30d.
func termlyDueDate(tx *gorm.DB, today time.Time) time.Time {
	var terms []catalogModel.AcademicTermModel
	if err := tx.Where("academic_term_is_active = TRUE").Find(&terms).Error; err == nil {
		for _, t := range terms {
			if t.Covers(today) {
				return dateOnly(t.AcademicTermEndDate)
			}
		}
	}
	return dateOnly(today.Add(defaultDueOffset))
}

// RecomputeWaived re-checks the open obligations of one student after a
// waiver decision and marks the fully covered ones waived.
func RecomputeWaived(db *gorm.DB, studentID uuid.UUID) error {
	return db.Transaction(func(tx *gorm.DB) error {
		return markFullyWaived(tx, studentID, time.Now())
	})
}

// markFullyWaived transitions open obligations whose effective amount is
// zero (an approved waiver covers the full face) to waived, no payment.
func markFullyWaived(tx *gorm.DB, studentID uuid.UUID, today time.Time) error {
	var open []model.FeeStatusModel
	if err := tx.
		Where("fee_status_student_id = ? AND fee_status_state IN ?", studentID,
			[]model.FeeStatusState{model.FeeStatusPending, model.FeeStatusOverdue}).
		Find(&open).Error; err != nil {
		return err
	}
	if len(open) == 0 {
		return nil
	}

	// One waiver load per category.
	waiversByCategory := map[uuid.UUID][]catalogModel.FeeWaiverModel{}
	structureCategory := map[uuid.UUID]uuid.UUID{}

	for _, o := range open {
		catID, ok := structureCategory[o.FeeStatusFeeStructureID]
		if !ok {
			var f catalogModel.FeeStructureModel
			if err := tx.First(&f, "fee_structure_id = ?", o.FeeStatusFeeStructureID).Error; err != nil {
				return err
			}
			catID = f.FeeStructureCategoryID
			structureCategory[o.FeeStatusFeeStructureID] = catID
		}
		if _, ok := waiversByCategory[catID]; !ok {
			ws, err := ActiveWaivers(tx, studentID, catID)
			if err != nil {
				return err
			}
			waiversByCategory[catID] = ws
		}
		if EffectiveAmount(o.FeeStatusAmount, waiversByCategory[catID], today) == 0 && o.FeeStatusAmount > 0 {
			if err := tx.Model(&model.FeeStatusModel{}).
				Where("fee_status_id = ?", o.FeeStatusID).
				Update("fee_status_state", model.FeeStatusWaived).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// VoidStaleAndReexpand handles a level change: pending obligations whose
// structure no longer matches the student's level become void (kept for
// audit), then the new level is expanded. Paid rows are untouched.
func VoidStaleAndReexpand(db *gorm.DB, studentID uuid.UUID) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var student studentModel.StudentModel
		if err := forUpdate(tx).
			First(&student, "student_id = ?", studentID).Error; err != nil {
			return err
		}
		level := helper.CanonicalLevel(student.StudentLevel)

		if err := tx.Model(&model.FeeStatusModel{}).
			Where(`fee_status_student_id = ?
			   AND fee_status_state IN ?
			   AND fee_status_fee_structure_id IN (
				 SELECT fee_structure_id FROM fee_structures WHERE fee_structure_level <> ?
			   )`,
				studentID,
				[]model.FeeStatusState{model.FeeStatusPending, model.FeeStatusOverdue},
				level,
			).
			Update("fee_status_state", model.FeeStatusVoid).Error; err != nil {
			return err
		}
		return expandStudentTx(tx, &student)
	})
}

// PersistOverdue is the sweep-side transition pending -> overdue. The read
// path never relies on it; it only keeps stored state close to truth.
// Grace days from fee settings push the cutoff back.
func PersistOverdue(db *gorm.DB, today time.Time) (int64, error) {
	cutoff := dateOnly(today)
	var settings catalogModel.FeeSettingsModel
	if err := db.First(&settings).Error; err == nil && settings.FeeSettingsGraceDays > 0 {
		cutoff = cutoff.AddDate(0, 0, -settings.FeeSettingsGraceDays)
	}
	res := db.Model(&model.FeeStatusModel{}).
		Where("fee_status_state = ? AND fee_status_due_date < ?", model.FeeStatusPending, cutoff).
		Update("fee_status_state", model.FeeStatusOverdue)
	return res.RowsAffected, res.Error
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
