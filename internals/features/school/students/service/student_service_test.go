// file: internals/features/school/students/service/student_service_test.go
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
	model "sekolahku_backend/internals/features/school/students/model"
	userModel "sekolahku_backend/internals/features/users/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.StudentModel{},
		&userModel.UserModel{},
		&userModel.RoleProfileModel{},
		&userModel.ParentStudentModel{},
		&catalogModel.FeeWaiverModel{},
		&obligationModel.FeeStatusModel{},
		&obligationModel.IndividualFeeModel{},
		&paymentModel.PaymentModel{},
	))
	return db
}

func seedStudentWithLogin(t *testing.T, db *gorm.DB, code string) (*model.StudentModel, *userModel.UserModel) {
	t.Helper()
	student := &model.StudentModel{
		StudentCode:       code,
		StudentName:       "Student " + code,
		StudentLevel:      "Form 1",
		StudentEnrollYear: 2026,
		StudentIsActive:   true,
	}
	require.NoError(t, db.Create(student).Error)

	user := &userModel.UserModel{
		UserName: "student-" + code,
		FullName: "Student " + code,
		Email:    code + "@school.test",
		Password: "not-a-real-hash",
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, db.Create(&userModel.RoleProfileModel{
		RoleProfileUserID:    user.ID,
		RoleProfileRole:      constants.RoleStudent,
		RoleProfileStudentID: &student.StudentID,
	}).Error)
	return student, user
}

func TestDeleteStudentCascade(t *testing.T) {
	db := newTestDB(t)
	student, studentUser := seedStudentWithLogin(t, db, "STU-001")
	keep, keepUser := seedStudentWithLogin(t, db, "STU-002")

	parent := &userModel.UserModel{
		UserName: "parent-001",
		FullName: "Parent One",
		Email:    "parent-001@school.test",
		Password: "not-a-real-hash",
		IsActive: true,
	}
	require.NoError(t, db.Create(parent).Error)
	require.NoError(t, db.Create(&userModel.RoleProfileModel{
		RoleProfileUserID: parent.ID,
		RoleProfileRole:   constants.RoleParent,
	}).Error)
	require.NoError(t, db.Create(&userModel.ParentStudentModel{
		ParentStudentUserID:    parent.ID,
		ParentStudentStudentID: student.StudentID,
	}).Error)

	require.NoError(t, db.Create(&obligationModel.FeeStatusModel{
		FeeStatusStudentID:      student.StudentID,
		FeeStatusFeeStructureID: uuid.New(),
		FeeStatusDueDate:        time.Now().AddDate(0, 1, 0),
		FeeStatusAmount:         500,
		FeeStatusState:          obligationModel.FeeStatusPending,
	}).Error)
	require.NoError(t, db.Create(&obligationModel.IndividualFeeModel{
		IndividualFeeStudentID:  student.StudentID,
		IndividualFeeCategoryID: uuid.New(),
		IndividualFeeName:       "Lost textbook",
		IndividualFeeAmount:     40,
		IndividualFeeDueDate:    time.Now().AddDate(0, 0, 14),
		IndividualFeeIsActive:   true,
	}).Error)
	pct := 50.0
	require.NoError(t, db.Create(&catalogModel.FeeWaiverModel{
		FeeWaiverStudentID:  student.StudentID,
		FeeWaiverCategoryID: uuid.New(),
		FeeWaiverType:       catalogModel.WaiverTypeDiscount,
		FeeWaiverPercentage: &pct,
		FeeWaiverReason:     "hardship",
		FeeWaiverStartDate:  time.Now().AddDate(0, -1, 0),
		FeeWaiverEndDate:    time.Now().AddDate(1, 0, 0),
	}).Error)

	// The ledger row is the financial record and must survive.
	payment := &paymentModel.PaymentModel{
		PaymentStudentID:   student.StudentID,
		PaymentMethod:      paymentModel.PaymentMethodOnline,
		PaymentStatus:      paymentModel.PaymentStatusCompleted,
		PaymentGrossAmount: 500,
	}
	require.NoError(t, db.Create(payment).Error)

	require.NoError(t, DeleteStudentCascade(db, student.StudentID))

	var n int64
	require.NoError(t, db.Model(&model.StudentModel{}).
		Where("student_id = ?", student.StudentID).Count(&n).Error)
	assert.Zero(t, n)
	for table, where := range map[string]interface{}{
		"fee_statuses":    &obligationModel.FeeStatusModel{},
		"individual_fees": &obligationModel.IndividualFeeModel{},
		"fee_waivers":     &catalogModel.FeeWaiverModel{},
	} {
		require.NoError(t, db.Model(where).Count(&n).Error, table)
		assert.Zero(t, n, table)
	}
	require.NoError(t, db.Model(&userModel.ParentStudentModel{}).Count(&n).Error)
	assert.Zero(t, n)

	// The student's login is gone with them.
	require.NoError(t, db.Model(&userModel.UserModel{}).
		Where("id = ?", studentUser.ID).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, db.Model(&userModel.RoleProfileModel{}).
		Where("role_profile_user_id = ?", studentUser.ID).Count(&n).Error)
	assert.Zero(t, n)

	// The parent account and the other student are untouched.
	require.NoError(t, db.Model(&userModel.UserModel{}).
		Where("id = ?", parent.ID).Count(&n).Error)
	assert.Equal(t, int64(1), n)
	require.NoError(t, db.Model(&userModel.UserModel{}).
		Where("id = ?", keepUser.ID).Count(&n).Error)
	assert.Equal(t, int64(1), n)
	require.NoError(t, db.Model(&model.StudentModel{}).
		Where("student_id = ?", keep.StudentID).Count(&n).Error)
	assert.Equal(t, int64(1), n)

	require.NoError(t, db.Model(&paymentModel.PaymentModel{}).
		Where("payment_id = ?", payment.PaymentID).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestDeleteStudentCascadeMissing(t *testing.T) {
	db := newTestDB(t)
	err := DeleteStudentCascade(db, uuid.New())
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
