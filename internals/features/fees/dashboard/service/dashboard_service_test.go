// file: internals/features/fees/dashboard/service/dashboard_service_test.go
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

	"sekolahku_backend/internals/constants"
	catalogModel "sekolahku_backend/internals/features/fees/catalog/model"
	obligationModel "sekolahku_backend/internals/features/fees/obligations/model"
	paymentModel "sekolahku_backend/internals/features/fees/payments/model"
	studentModel "sekolahku_backend/internals/features/school/students/model"
	helper "sekolahku_backend/internals/helpers"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&studentModel.StudentModel{},
		&catalogModel.FeeCategoryModel{},
		&catalogModel.FeeStructureModel{},
		&catalogModel.FeeWaiverModel{},
		&obligationModel.FeeStatusModel{},
		&paymentModel.PaymentModel{},
		&paymentModel.PaymentItemModel{},
	))
	return db
}

func adminScope() helper.Scope {
	return helper.DeriveScope(uuid.New(), constants.RoleAdmin, nil, nil)
}

func seedStudent(t *testing.T, db *gorm.DB, level string, class *string) *studentModel.StudentModel {
	t.Helper()
	s := &studentModel.StudentModel{
		StudentCode:       "STU-" + uuid.NewString()[:8],
		StudentName:       "Dashboard Student",
		StudentLevel:      level,
		StudentClass:      class,
		StudentEnrollYear: 2026,
		StudentIsActive:   true,
	}
	require.NoError(t, db.Create(s).Error)
	return s
}

func seedStructure(t *testing.T, db *gorm.DB, level string, amount float64) *catalogModel.FeeStructureModel {
	t.Helper()
	category := &catalogModel.FeeCategoryModel{
		FeeCategoryName:     "Category " + uuid.NewString()[:8],
		FeeCategoryKind:     catalogModel.FeeCategoryKindBulk,
		FeeCategoryIsActive: true,
	}
	require.NoError(t, db.Create(category).Error)
	structure := &catalogModel.FeeStructureModel{
		FeeStructureCategoryID: category.FeeCategoryID,
		FeeStructureLevel:      level,
		FeeStructureFrequency:  catalogModel.FeeFrequencyYearly,
		FeeStructureAmount:     amount,
		FeeStructureIsActive:   true,
	}
	require.NoError(t, db.Create(structure).Error)
	return structure
}

func seedOpenObligation(t *testing.T, db *gorm.DB, studentID, structureID uuid.UUID, amount float64, due time.Time) {
	t.Helper()
	require.NoError(t, db.Create(&obligationModel.FeeStatusModel{
		FeeStatusStudentID:      studentID,
		FeeStatusFeeStructureID: structureID,
		FeeStatusDueDate:        due,
		FeeStatusAmount:         amount,
		FeeStatusState:          obligationModel.FeeStatusPending,
	}).Error)
}

func seedCompletedPayment(t *testing.T, db *gorm.DB, studentID uuid.UUID, amount float64, receivedOn time.Time) {
	t.Helper()
	day := time.Date(receivedOn.Year(), receivedOn.Month(), receivedOn.Day(), 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&paymentModel.PaymentModel{
		PaymentStudentID:   studentID,
		PaymentMethod:      paymentModel.PaymentMethodOnline,
		PaymentStatus:      paymentModel.PaymentStatusCompleted,
		PaymentGrossAmount: amount,
		PaymentReceivedOn:  &day,
	}).Error)
}

func TestAchievement(t *testing.T) {
	assert.Zero(t, achievement(500, 0))
	assert.Zero(t, achievement(0, 1000))
	assert.InDelta(t, 50.0, achievement(500, 1000), 0.001)
	assert.InDelta(t, 33.3, achievement(1, 3), 0.001)
	// Over-collection clamps instead of reading past 100.
	assert.InDelta(t, 100.0, achievement(1500, 1000), 0.001)
}

func TestBuildSummaryEmptyScope(t *testing.T) {
	db := newTestDB(t)
	seedStudent(t, db, "Form 1", nil)

	// A parent with no linked children sees nothing, not everything.
	scope := helper.DeriveScope(uuid.New(), constants.RoleParent, nil, []uuid.UUID{})
	summary, err := BuildSummary(db, scope, time.Now(), 6)
	require.NoError(t, err)
	assert.Zero(t, summary.StudentCount)
	assert.Zero(t, summary.ExpectedTotal)
	assert.Zero(t, summary.CollectedTotal)
	assert.Len(t, summary.Monthly, 6)
	for _, p := range summary.Monthly {
		assert.Zero(t, p.Collected)
	}
}

func TestBuildSummaryTotals(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()

	classA := "1A"
	s1 := seedStudent(t, db, "Form 1", &classA)
	s2 := seedStudent(t, db, "Form 1", &classA)
	s3 := seedStudent(t, db, "Form 2", nil)

	structure1 := seedStructure(t, db, "Form 1", 1000)
	seedStructure(t, db, "Form 2", 800)

	// s1 paid in full, s2 still owes, s3 has no lines yet.
	seedCompletedPayment(t, db, s1.StudentID, 1000, now)
	seedOpenObligation(t, db, s2.StudentID, structure1.FeeStructureID, 1000, now.AddDate(0, 0, -5))
	_ = s3

	summary, err := BuildSummary(db, adminScope(), now, 3)
	require.NoError(t, err)

	// Expected: 2 x 1000 (Form 1) + 1 x 800 (Form 2).
	assert.InDelta(t, 2800.0, summary.ExpectedTotal, 0.001)
	assert.InDelta(t, 1000.0, summary.CollectedTotal, 0.001)
	assert.InDelta(t, 1000.0, summary.OutstandingTotal, 0.001)
	assert.InDelta(t, 35.7, summary.AchievementPct, 0.001)
	assert.Equal(t, 3, summary.StudentCount)
	assert.Equal(t, 1, summary.OverdueCount)

	require.Len(t, summary.PerLevel, 2)
	assert.Equal(t, "Form 1", summary.PerLevel[0].Level)
	assert.Equal(t, 2, summary.PerLevel[0].StudentCount)
	assert.InDelta(t, 2000.0, summary.PerLevel[0].Expected, 0.001)
	assert.InDelta(t, 1000.0, summary.PerLevel[0].Outstanding, 0.001)

	require.Len(t, summary.PerClass, 1)
	assert.Equal(t, "1A", summary.PerClass[0].Class)
	assert.Equal(t, 2, summary.PerClass[0].StudentCount)

	require.Len(t, summary.Monthly, 3)
	assert.InDelta(t, 1000.0, summary.Monthly[2].Collected, 0.001)
}

func TestBuildSummaryScopedByLevel(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()

	s1 := seedStudent(t, db, "Form 1", nil)
	s2 := seedStudent(t, db, "Form 2", nil)
	structure1 := seedStructure(t, db, "Form 1", 1000)
	structure2 := seedStructure(t, db, "Form 2", 800)
	seedOpenObligation(t, db, s1.StudentID, structure1.FeeStructureID, 1000, now.AddDate(0, 0, 10))
	seedOpenObligation(t, db, s2.StudentID, structure2.FeeStructureID, 800, now.AddDate(0, 0, 10))

	scope := helper.DeriveScope(uuid.New(), constants.RoleFormLevelAdmin, []string{"Form 1"}, nil)
	summary, err := BuildSummary(db, scope, now, 6)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.StudentCount)
	assert.InDelta(t, 1000.0, summary.ExpectedTotal, 0.001)
	assert.InDelta(t, 1000.0, summary.OutstandingTotal, 0.001)
	require.Len(t, summary.PerLevel, 1)
	assert.Equal(t, "Form 1", summary.PerLevel[0].Level)
}

func TestBuildSummaryOutstandingUsesWaivers(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()

	s := seedStudent(t, db, "Form 1", nil)
	structure := seedStructure(t, db, "Form 1", 1000)
	seedOpenObligation(t, db, s.StudentID, structure.FeeStructureID, 1000, now.AddDate(0, 0, 10))

	pct := 40.0
	require.NoError(t, db.Create(&catalogModel.FeeWaiverModel{
		FeeWaiverStudentID:  s.StudentID,
		FeeWaiverCategoryID: structure.FeeStructureCategoryID,
		FeeWaiverType:       catalogModel.WaiverTypeDiscount,
		FeeWaiverPercentage: &pct,
		FeeWaiverReason:     "hardship",
		FeeWaiverStartDate:  now.AddDate(0, -1, 0),
		FeeWaiverEndDate:    now.AddDate(1, 0, 0),
		FeeWaiverStatus:     catalogModel.WaiverStatusApproved,
	}).Error)

	summary, err := BuildSummary(db, adminScope(), now, 6)
	require.NoError(t, err)
	assert.InDelta(t, 600.0, summary.OutstandingTotal, 0.001)
}

func TestBuildSummaryIgnoresRefundedPayments(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()

	s := seedStudent(t, db, "Form 1", nil)
	seedStructure(t, db, "Form 1", 1000)
	seedCompletedPayment(t, db, s.StudentID, 400, now)

	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&paymentModel.PaymentModel{
		PaymentStudentID:   s.StudentID,
		PaymentMethod:      paymentModel.PaymentMethodOnline,
		PaymentStatus:      paymentModel.PaymentStatusRefunded,
		PaymentGrossAmount: 999,
		PaymentReceivedOn:  &day,
	}).Error)

	summary, err := BuildSummary(db, adminScope(), now, 6)
	require.NoError(t, err)
	assert.InDelta(t, 400.0, summary.CollectedTotal, 0.001)
}
