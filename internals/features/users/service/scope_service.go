package service

import (
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"sekolahku_backend/internals/constants"
	model "sekolahku_backend/internals/features/users/model"
	helper "sekolahku_backend/internals/helpers"
)

var ErrNoRoleProfile = errors.New("user has no role profile")

// ResolveScope derives the request Scope for a user: loads the role profile
// once and expands its reach (scoped levels, own student, children).
func ResolveScope(db *gorm.DB, userID uuid.UUID) (helper.Scope, error) {
	var profile model.RoleProfileModel
	if err := db.Where("role_profile_user_id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return helper.Scope{}, ErrNoRoleProfile
		}
		return helper.Scope{}, err
	}

	var scopedLevels []string
	if len(profile.RoleProfileScopedLevels) > 0 {
		if err := json.Unmarshal(profile.RoleProfileScopedLevels, &scopedLevels); err != nil {
			return helper.Scope{}, err
		}
	}

	var studentIDs []uuid.UUID
	switch profile.RoleProfileRole {
	case constants.RoleStudent:
		if profile.RoleProfileStudentID != nil {
			studentIDs = []uuid.UUID{*profile.RoleProfileStudentID}
		} else {
			studentIDs = []uuid.UUID{}
		}
	case constants.RoleParent:
		var links []model.ParentStudentModel
		if err := db.Where("parent_student_user_id = ?", userID).Find(&links).Error; err != nil {
			return helper.Scope{}, err
		}
		studentIDs = make([]uuid.UUID, 0, len(links))
		for _, l := range links {
			studentIDs = append(studentIDs, l.ParentStudentStudentID)
		}
	}

	return helper.DeriveScope(userID, profile.RoleProfileRole, scopedLevels, studentIDs), nil
}
