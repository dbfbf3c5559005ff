// file: internals/features/school/students/service/student_service.go
package service

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"sekolahku_backend/internals/constants"
	catalogModel "sekolahku_backend/internals/features/fees/catalog/model"
	obligationModel "sekolahku_backend/internals/features/fees/obligations/model"
	model "sekolahku_backend/internals/features/school/students/model"
	userModel "sekolahku_backend/internals/features/users/model"
)

// DeleteStudentCascade removes a student with every billing artifact tied
// to them: obligations, individual fees, waivers, parent links, and the
// student's own login (user + role profile). The payment ledger survives
// as the financial record; parent accounts are set-linked and stay.
func DeleteStudentCascade(db *gorm.DB, studentID uuid.UUID) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("fee_status_student_id = ?", studentID).
			Delete(&obligationModel.FeeStatusModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("individual_fee_student_id = ?", studentID).
			Delete(&obligationModel.IndividualFeeModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("fee_waiver_student_id = ?", studentID).
			Delete(&catalogModel.FeeWaiverModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("parent_student_student_id = ?", studentID).
			Delete(&userModel.ParentStudentModel{}).Error; err != nil {
			return err
		}

		// The student's login must not outlive the record.
		var profiles []userModel.RoleProfileModel
		if err := tx.Where("role_profile_student_id = ? AND role_profile_role = ?",
			studentID, constants.RoleStudent).Find(&profiles).Error; err != nil {
			return err
		}
		for _, profile := range profiles {
			if err := tx.Delete(&userModel.UserModel{}, "id = ?", profile.RoleProfileUserID).Error; err != nil {
				return err
			}
			if err := tx.Delete(&userModel.RoleProfileModel{}, "role_profile_id = ?", profile.RoleProfileID).Error; err != nil {
				return err
			}
		}
		// Staff profiles pointing here only lose the back-link.
		if err := tx.Model(&userModel.RoleProfileModel{}).
			Where("role_profile_student_id = ?", studentID).
			Update("role_profile_student_id", nil).Error; err != nil {
			return err
		}

		res := tx.Delete(&model.StudentModel{}, "student_id = ?", studentID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
