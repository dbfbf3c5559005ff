// file: internals/features/fees/obligations/model/individual_fee_model.go
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IndividualFeeModel is an ad-hoc charge to a single student (overtime fee,
// demerit penalty, ...). Not tied to a fee structure.
type IndividualFeeModel struct {
	IndividualFeeID uuid.UUID `gorm:"column:individual_fee_id;type:uuid;primaryKey" json:"individual_fee_id"`

	IndividualFeeStudentID  uuid.UUID `gorm:"column:individual_fee_student_id;type:uuid;not null;index" json:"individual_fee_student_id"`
	IndividualFeeCategoryID uuid.UUID `gorm:"column:individual_fee_category_id;type:uuid;not null" json:"individual_fee_category_id"`

	IndividualFeeName        string  `gorm:"column:individual_fee_name;type:varchar(100);not null" json:"individual_fee_name"`
	IndividualFeeDescription *string `gorm:"column:individual_fee_description;type:text" json:"individual_fee_description,omitempty"`

	IndividualFeeAmount  float64   `gorm:"column:individual_fee_amount;type:numeric(10,2);not null" json:"individual_fee_amount"`
	IndividualFeeDueDate time.Time `gorm:"column:individual_fee_due_date;type:date;not null" json:"individual_fee_due_date"`

	IndividualFeeIsPaid   bool `gorm:"column:individual_fee_is_paid;not null;default:false" json:"individual_fee_is_paid"`
	IndividualFeeIsActive bool `gorm:"column:individual_fee_is_active;not null;default:true" json:"individual_fee_is_active"`

	IndividualFeeCreatedBy *uuid.UUID `gorm:"column:individual_fee_created_by;type:uuid" json:"individual_fee_created_by,omitempty"`

	IndividualFeeCreatedAt time.Time      `gorm:"column:individual_fee_created_at;autoCreateTime" json:"individual_fee_created_at"`
	IndividualFeeUpdatedAt time.Time      `gorm:"column:individual_fee_updated_at;autoUpdateTime" json:"individual_fee_updated_at"`
	IndividualFeeDeletedAt gorm.DeletedAt `gorm:"column:individual_fee_deleted_at;index" json:"-"`
}

func (IndividualFeeModel) TableName() string {
	return "individual_fees"
}

func (m *IndividualFeeModel) BeforeCreate(tx *gorm.DB) error {
	if m.IndividualFeeID == uuid.Nil {
		m.IndividualFeeID = uuid.New()
	}
	return nil
}

// Status is read-side only: paid wins, then overdue by date, else pending.
func (m *IndividualFeeModel) Status(today time.Time) string {
	if m.IndividualFeeIsPaid {
		return "paid"
	}
	if today.Truncate(24 * time.Hour).After(m.IndividualFeeDueDate.Truncate(24 * time.Hour)) {
		return "overdue"
	}
	return "pending"
}
