package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RoleProfileModel carries the single role per user plus the role's reach:
// form-level admins get a set of scoped level-tags, students a back-link to
// their student row. Parents link to children through parent_students.
type RoleProfileModel struct {
	RoleProfileID     uuid.UUID `gorm:"column:role_profile_id;type:uuid;primaryKey" json:"role_profile_id"`
	RoleProfileUserID uuid.UUID `gorm:"column:role_profile_user_id;type:uuid;not null;uniqueIndex" json:"role_profile_user_id"`
	RoleProfileRole   string    `gorm:"column:role_profile_role;type:varchar(20);not null;default:'student'" json:"role_profile_role"`

	// JSON array of canonical level-tags, e.g. ["Form 1"]. Only meaningful
	// for form_level_admin; must be non-empty for that role.
	RoleProfileScopedLevels datatypes.JSON `gorm:"column:role_profile_scoped_levels;type:jsonb" json:"role_profile_scoped_levels,omitempty"`

	// Back-link for the student role.
	RoleProfileStudentID *uuid.UUID `gorm:"column:role_profile_student_id;type:uuid;index" json:"role_profile_student_id,omitempty"`

	RoleProfileCreatedAt time.Time `gorm:"column:role_profile_created_at;autoCreateTime" json:"role_profile_created_at"`
	RoleProfileUpdatedAt time.Time `gorm:"column:role_profile_updated_at;autoUpdateTime" json:"role_profile_updated_at"`
}

func (RoleProfileModel) TableName() string {
	return "role_profiles"
}

func (m *RoleProfileModel) BeforeCreate(tx *gorm.DB) error {
	if m.RoleProfileID == uuid.Nil {
		m.RoleProfileID = uuid.New()
	}
	return nil
}

// ParentStudentModel is the set-valued link from a parent user to their
// children's student rows.
type ParentStudentModel struct {
	ParentStudentID        uuid.UUID `gorm:"column:parent_student_id;type:uuid;primaryKey" json:"parent_student_id"`
	ParentStudentUserID    uuid.UUID `gorm:"column:parent_student_user_id;type:uuid;not null;index;uniqueIndex:uniq_parent_child,priority:1" json:"parent_student_user_id"`
	ParentStudentStudentID uuid.UUID `gorm:"column:parent_student_student_id;type:uuid;not null;index;uniqueIndex:uniq_parent_child,priority:2" json:"parent_student_student_id"`

	ParentStudentCreatedAt time.Time `gorm:"column:parent_student_created_at;autoCreateTime" json:"parent_student_created_at"`
}

func (ParentStudentModel) TableName() string {
	return "parent_students"
}

func (m *ParentStudentModel) BeforeCreate(tx *gorm.DB) error {
	if m.ParentStudentID == uuid.Nil {
		m.ParentStudentID = uuid.New()
	}
	return nil
}
