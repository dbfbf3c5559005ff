// file: internals/features/fees/catalog/model/academic_term_model.go
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AcademicTermModel backs the termly due-date policy: a termly structure
// falls due at the end of the current term.
type AcademicTermModel struct {
	AcademicTermID        uuid.UUID `gorm:"column:academic_term_id;type:uuid;primaryKey" json:"academic_term_id"`
	AcademicTermName      string    `gorm:"column:academic_term_name;type:varchar(100);not null" json:"academic_term_name"`
	AcademicTermStartDate time.Time `gorm:"column:academic_term_start_date;type:date;not null" json:"academic_term_start_date"`
	AcademicTermEndDate   time.Time `gorm:"column:academic_term_end_date;type:date;not null" json:"academic_term_end_date"`
	AcademicTermIsActive  bool      `gorm:"column:academic_term_is_active;not null;default:true" json:"academic_term_is_active"`

	AcademicTermCreatedAt time.Time `gorm:"column:academic_term_created_at;autoCreateTime" json:"academic_term_created_at"`
	AcademicTermUpdatedAt time.Time `gorm:"column:academic_term_updated_at;autoUpdateTime" json:"academic_term_updated_at"`
}

func (AcademicTermModel) TableName() string {
	return "academic_terms"
}

func (m *AcademicTermModel) BeforeCreate(tx *gorm.DB) error {
	if m.AcademicTermID == uuid.Nil {
		m.AcademicTermID = uuid.New()
	}
	return nil
}

// Covers reports whether the day falls inside the term.
func (m *AcademicTermModel) Covers(day time.Time) bool {
	d := day.Truncate(24 * time.Hour)
	return !d.Before(m.AcademicTermStartDate.Truncate(24*time.Hour)) &&
		!d.After(m.AcademicTermEndDate.Truncate(24*time.Hour))
}

// FeeSettingsModel is the singleton collection policy row: default due
// day-of-month and the grace period consulted by the overdue sweep.
type FeeSettingsModel struct {
	FeeSettingsID          uuid.UUID `gorm:"column:fee_settings_id;type:uuid;primaryKey" json:"fee_settings_id"`
	FeeSettingsDueDay      int       `gorm:"column:fee_settings_due_day;not null;default:10" json:"fee_settings_due_day"`
	FeeSettingsGraceDays   int       `gorm:"column:fee_settings_grace_days;not null;default:5" json:"fee_settings_grace_days"`
	FeeSettingsLatePenalty float64   `gorm:"column:fee_settings_late_penalty;type:numeric(5,2);not null;default:0" json:"fee_settings_late_penalty"`

	FeeSettingsCreatedAt time.Time `gorm:"column:fee_settings_created_at;autoCreateTime" json:"fee_settings_created_at"`
	FeeSettingsUpdatedAt time.Time `gorm:"column:fee_settings_updated_at;autoUpdateTime" json:"fee_settings_updated_at"`
}

func (FeeSettingsModel) TableName() string {
	return "fee_settings"
}

func (m *FeeSettingsModel) BeforeCreate(tx *gorm.DB) error {
	if m.FeeSettingsID == uuid.Nil {
		m.FeeSettingsID = uuid.New()
	}
	return nil
}
