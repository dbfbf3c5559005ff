// file: internals/features/fees/catalog/service/catalog_service_test.go
package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	model "sekolahku_backend/internals/features/fees/catalog/model"
	obligationModel "sekolahku_backend/internals/features/fees/obligations/model"
	studentModel "sekolahku_backend/internals/features/school/students/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&studentModel.StudentModel{},
		&model.FeeCategoryModel{},
		&model.FeeStructureModel{},
		&model.FeeWaiverModel{},
		&model.AcademicTermModel{},
		&model.FeeSettingsModel{},
		&obligationModel.FeeStatusModel{},
		&obligationModel.IndividualFeeModel{},
	))
	return db
}

func seedCategory(t *testing.T, db *gorm.DB) *model.FeeCategoryModel {
	t.Helper()
	category := &model.FeeCategoryModel{
		FeeCategoryName:     "Tuition " + uuid.NewString()[:8],
		FeeCategoryKind:     model.FeeCategoryKindBulk,
		FeeCategoryIsActive: true,
	}
	require.NoError(t, db.Create(category).Error)
	return category
}

func seedDraftStructure(t *testing.T, db *gorm.DB, categoryID uuid.UUID, level string, amount float64) *model.FeeStructureModel {
	t.Helper()
	structure := &model.FeeStructureModel{
		FeeStructureCategoryID: categoryID,
		FeeStructureLevel:      level,
		FeeStructureFrequency:  model.FeeFrequencyYearly,
		FeeStructureAmount:     amount,
	}
	require.NoError(t, db.Create(structure).Error)
	return structure
}

func TestActivateStructureReplacesSibling(t *testing.T) {
	db := newTestDB(t)
	category := seedCategory(t, db)

	old := seedDraftStructure(t, db, category.FeeCategoryID, "Form 1", 900)
	_, err := ActivateStructure(db, old.FeeStructureID)
	require.NoError(t, err)

	// The new price takes over; the old one is retired in the same stroke.
	fresh := seedDraftStructure(t, db, category.FeeCategoryID, "Form 1", 950)
	activated, err := ActivateStructure(db, fresh.FeeStructureID)
	require.NoError(t, err)
	assert.True(t, activated.FeeStructureIsActive)
	require.NotNil(t, activated.FeeStructureActivatedAt)

	var reloaded model.FeeStructureModel
	require.NoError(t, db.First(&reloaded, "fee_structure_id = ?", old.FeeStructureID).Error)
	assert.False(t, reloaded.FeeStructureIsActive)

	var activeCount int64
	require.NoError(t, db.Model(&model.FeeStructureModel{}).
		Where("fee_structure_category_id = ? AND fee_structure_is_active = TRUE", category.FeeCategoryID).
		Count(&activeCount).Error)
	assert.Equal(t, int64(1), activeCount)
}

func TestActivateStructureCanonicalizesLevel(t *testing.T) {
	db := newTestDB(t)
	category := seedCategory(t, db)

	structure := seedDraftStructure(t, db, category.FeeCategoryID, "form1", 500)
	_, err := ActivateStructure(db, structure.FeeStructureID)
	require.NoError(t, err)

	var reloaded model.FeeStructureModel
	require.NoError(t, db.First(&reloaded, "fee_structure_id = ?", structure.FeeStructureID).Error)
	assert.Equal(t, "Form 1", reloaded.FeeStructureLevel)
}

func TestActivateStructureExpandsLevel(t *testing.T) {
	db := newTestDB(t)
	category := seedCategory(t, db)

	require.NoError(t, db.Create(&studentModel.StudentModel{
		StudentCode:       "STU-" + uuid.NewString()[:8],
		StudentName:       "In Level",
		StudentLevel:      "Form 1",
		StudentEnrollYear: 2026,
		StudentIsActive:   true,
	}).Error)

	structure := seedDraftStructure(t, db, category.FeeCategoryID, "Form 1", 700)
	_, err := ActivateStructure(db, structure.FeeStructureID)
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&obligationModel.FeeStatusModel{}).
		Where("fee_status_fee_structure_id = ?", structure.FeeStructureID).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestActivateStructureRejectsBrokenMonthlyPlan(t *testing.T) {
	db := newTestDB(t)
	category := seedCategory(t, db)

	// Monthly with a total but no duration cannot be materialized.
	total := 1200.0
	structure := &model.FeeStructureModel{
		FeeStructureCategoryID:  category.FeeCategoryID,
		FeeStructureLevel:       "Form 1",
		FeeStructureFrequency:   model.FeeFrequencyMonthly,
		FeeStructureTotalAmount: &total,
	}
	require.NoError(t, db.Create(structure).Error)

	_, err := ActivateStructure(db, structure.FeeStructureID)
	require.ErrorIs(t, err, ErrConflictingMonthlyPlan)

	var reloaded model.FeeStructureModel
	require.NoError(t, db.First(&reloaded, "fee_structure_id = ?", structure.FeeStructureID).Error)
	assert.False(t, reloaded.FeeStructureIsActive)
}

func TestDecideWaiver(t *testing.T) {
	db := newTestDB(t)
	category := seedCategory(t, db)

	student := &studentModel.StudentModel{
		StudentCode:       "STU-" + uuid.NewString()[:8],
		StudentName:       "Waiver Student",
		StudentLevel:      "Form 1",
		StudentEnrollYear: 2026,
		StudentIsActive:   true,
	}
	require.NoError(t, db.Create(student).Error)

	structure := seedDraftStructure(t, db, category.FeeCategoryID, "Form 1", 400)
	require.NoError(t, db.Model(structure).Update("fee_structure_is_active", true).Error)
	require.NoError(t, db.Create(&obligationModel.FeeStatusModel{
		FeeStatusStudentID:      student.StudentID,
		FeeStatusFeeStructureID: structure.FeeStructureID,
		FeeStatusDueDate:        time.Now().AddDate(0, 0, 20),
		FeeStatusAmount:         400,
		FeeStatusState:          obligationModel.FeeStatusPending,
	}).Error)

	pct := 100.0
	waiver := &model.FeeWaiverModel{
		FeeWaiverStudentID:  student.StudentID,
		FeeWaiverCategoryID: category.FeeCategoryID,
		FeeWaiverType:       model.WaiverTypeFullWaiver,
		FeeWaiverPercentage: &pct,
		FeeWaiverReason:     "orphan fund",
		FeeWaiverStartDate:  time.Now().AddDate(0, -1, 0),
		FeeWaiverEndDate:    time.Now().AddDate(1, 0, 0),
	}
	require.NoError(t, db.Create(waiver).Error)

	decider := uuid.New()
	decided, err := DecideWaiver(db, waiver.FeeWaiverID, decider, true)
	require.NoError(t, err)
	assert.Equal(t, model.WaiverStatusApproved, decided.FeeWaiverStatus)
	require.NotNil(t, decided.FeeWaiverApprovedBy)
	assert.Equal(t, decider, *decided.FeeWaiverApprovedBy)

	// The now fully covered open line flips to waived immediately.
	var ob obligationModel.FeeStatusModel
	require.NoError(t, db.First(&ob, "fee_status_student_id = ?", student.StudentID).Error)
	assert.Equal(t, obligationModel.FeeStatusWaived, ob.FeeStatusState)

	// A decided waiver cannot be decided again.
	_, err = DecideWaiver(db, waiver.FeeWaiverID, decider, false)
	require.ErrorIs(t, err, ErrWaiverNotPending)
}

func TestDecideWaiverReject(t *testing.T) {
	db := newTestDB(t)
	category := seedCategory(t, db)

	waiver := &model.FeeWaiverModel{
		FeeWaiverStudentID:   uuid.New(),
		FeeWaiverCategoryID:  category.FeeCategoryID,
		FeeWaiverType:        model.WaiverTypeDiscount,
		FeeWaiverFixedAmount: 50,
		FeeWaiverReason:      "request denied",
		FeeWaiverStartDate:   time.Now(),
		FeeWaiverEndDate:     time.Now().AddDate(0, 6, 0),
	}
	require.NoError(t, db.Create(waiver).Error)

	decided, err := DecideWaiver(db, waiver.FeeWaiverID, uuid.New(), false)
	require.NoError(t, err)
	assert.Equal(t, model.WaiverStatusRejected, decided.FeeWaiverStatus)
}

func TestExpireWaivers(t *testing.T) {
	db := newTestDB(t)
	category := seedCategory(t, db)

	lapsed := &model.FeeWaiverModel{
		FeeWaiverStudentID:   uuid.New(),
		FeeWaiverCategoryID:  category.FeeCategoryID,
		FeeWaiverType:        model.WaiverTypeDiscount,
		FeeWaiverFixedAmount: 25,
		FeeWaiverReason:      "old discount",
		FeeWaiverStartDate:   time.Now().AddDate(-1, 0, 0),
		FeeWaiverEndDate:     time.Now().AddDate(0, 0, -1),
		FeeWaiverStatus:      model.WaiverStatusApproved,
	}
	current := &model.FeeWaiverModel{
		FeeWaiverStudentID:   uuid.New(),
		FeeWaiverCategoryID:  category.FeeCategoryID,
		FeeWaiverType:        model.WaiverTypeDiscount,
		FeeWaiverFixedAmount: 25,
		FeeWaiverReason:      "still valid",
		FeeWaiverStartDate:   time.Now().AddDate(0, -1, 0),
		FeeWaiverEndDate:     time.Now().AddDate(0, 6, 0),
		FeeWaiverStatus:      model.WaiverStatusApproved,
	}
	require.NoError(t, db.Create(lapsed).Error)
	require.NoError(t, db.Create(current).Error)

	n, err := ExpireWaivers(db, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var reloaded model.FeeWaiverModel
	require.NoError(t, db.First(&reloaded, "fee_waiver_id = ?", lapsed.FeeWaiverID).Error)
	assert.Equal(t, model.WaiverStatusExpired, reloaded.FeeWaiverStatus)
	var reloadedCurrent model.FeeWaiverModel
	require.NoError(t, db.First(&reloadedCurrent, "fee_waiver_id = ?", current.FeeWaiverID).Error)
	assert.Equal(t, model.WaiverStatusApproved, reloadedCurrent.FeeWaiverStatus)
}

func TestSettingsCreatesDefault(t *testing.T) {
	db := newTestDB(t)

	settings, err := Settings(db)
	require.NoError(t, err)
	assert.Equal(t, 10, settings.FeeSettingsDueDay)
	assert.Equal(t, 5, settings.FeeSettingsGraceDays)

	// The second read returns the same row, not a second default.
	again, err := Settings(db)
	require.NoError(t, err)
	assert.Equal(t, settings.FeeSettingsID, again.FeeSettingsID)
}
