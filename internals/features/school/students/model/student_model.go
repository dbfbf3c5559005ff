// file: internals/features/school/students/model/student_model.go
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// =========================================================
// MODEL
// =========================================================

type StudentModel struct {
	// PK
	StudentID uuid.UUID `gorm:"column:student_id;type:uuid;primaryKey" json:"student_id"`

	// External student code. Stored upper-cased so the unique index is
	// effectively case-insensitive.
	StudentCode string `gorm:"column:student_code;type:varchar(20);not null;uniqueIndex" json:"student_code"`

	StudentName string `gorm:"column:student_name;type:varchar(200);not null" json:"student_name"`

	// Canonical level-tag ("Form 1".."Form 5"). Exactly one per active
	// student; a level rollover replaces the value.
	StudentLevel string `gorm:"column:student_level;type:varchar(20);index" json:"student_level"`

	StudentClass      *string `gorm:"column:student_class;type:varchar(50)" json:"student_class,omitempty"`
	StudentEnrollYear int     `gorm:"column:student_enroll_year;not null" json:"student_enroll_year"`

	StudentIsActive bool `gorm:"column:student_is_active;not null;default:true;index" json:"student_is_active"`

	StudentCreatedAt time.Time      `gorm:"column:student_created_at;autoCreateTime" json:"student_created_at"`
	StudentUpdatedAt time.Time      `gorm:"column:student_updated_at;autoUpdateTime" json:"student_updated_at"`
	StudentDeletedAt gorm.DeletedAt `gorm:"column:student_deleted_at;index" json:"-"`
}

func (StudentModel) TableName() string {
	return "students"
}

func (m *StudentModel) BeforeSave(tx *gorm.DB) error {
	m.StudentCode = strings.ToUpper(strings.TrimSpace(m.StudentCode))
	return nil
}

func (m *StudentModel) BeforeCreate(tx *gorm.DB) error {
	if m.StudentID == uuid.Nil {
		m.StudentID = uuid.New()
	}
	return nil
}
