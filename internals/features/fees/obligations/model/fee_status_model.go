// file: internals/features/fees/obligations/model/fee_status_model.go
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// =========================================================
/* ======= ENUM: obligation status ======= */
// =========================================================

type FeeStatusState string

const (
	FeeStatusPending FeeStatusState = "pending"
	FeeStatusOverdue FeeStatusState = "overdue"
	FeeStatusPaid    FeeStatusState = "paid"
	FeeStatusWaived  FeeStatusState = "waived"
	// Voided when the student's level no longer matches the structure.
	// Kept, never deleted.
	FeeStatusVoid FeeStatusState = "void"
)

// Open means the obligation can still be settled.
func (s FeeStatusState) Open() bool {
	return s == FeeStatusPending || s == FeeStatusOverdue
}

// =========================================================
// MODEL
// =========================================================

// FeeStatusModel is one billable line for one student for one structure
// period. (student, structure, due_date) is unique; the face amount is
// captured at creation and never recomputed.
type FeeStatusModel struct {
	FeeStatusID uuid.UUID `gorm:"column:fee_status_id;type:uuid;primaryKey" json:"fee_status_id"`

	FeeStatusStudentID      uuid.UUID `gorm:"column:fee_status_student_id;type:uuid;not null;index;uniqueIndex:uniq_student_structure_due,priority:1" json:"fee_status_student_id"`
	FeeStatusFeeStructureID uuid.UUID `gorm:"column:fee_status_fee_structure_id;type:uuid;not null;index:ix_fee_statuses_structure;uniqueIndex:uniq_student_structure_due,priority:2" json:"fee_status_fee_structure_id"`

	FeeStatusDueDate time.Time `gorm:"column:fee_status_due_date;type:date;not null;uniqueIndex:uniq_student_structure_due,priority:3" json:"fee_status_due_date"`

	// Face amount at creation, before waivers.
	FeeStatusAmount float64 `gorm:"column:fee_status_amount;type:numeric(10,2);not null" json:"fee_status_amount"`

	FeeStatusState FeeStatusState `gorm:"column:fee_status_state;type:varchar(10);not null;default:'pending';index" json:"fee_status_state"`

	// Settlement reference; set when a completed payment closes the line.
	FeeStatusSettledPaymentID *uuid.UUID `gorm:"column:fee_status_settled_payment_id;type:uuid;index" json:"fee_status_settled_payment_id,omitempty"`

	FeeStatusCreatedAt time.Time      `gorm:"column:fee_status_created_at;autoCreateTime" json:"fee_status_created_at"`
	FeeStatusUpdatedAt time.Time      `gorm:"column:fee_status_updated_at;autoUpdateTime" json:"fee_status_updated_at"`
	FeeStatusDeletedAt gorm.DeletedAt `gorm:"column:fee_status_deleted_at;index" json:"-"`
}

func (m *FeeStatusModel) BeforeCreate(tx *gorm.DB) error {
	if m.FeeStatusID == uuid.Nil {
		m.FeeStatusID = uuid.New()
	}
	return nil
}

func (FeeStatusModel) TableName() string {
	return "fee_statuses"
}

// IsOverdue is the read-side check; the persisted state is only a cache
// maintained by the sweep job.
func (m *FeeStatusModel) IsOverdue(today time.Time) bool {
	return m.FeeStatusState.Open() && today.Truncate(24*time.Hour).After(m.FeeStatusDueDate.Truncate(24*time.Hour))
}

// EffectiveState folds the read-side overdue computation into the state.
func (m *FeeStatusModel) EffectiveState(today time.Time) FeeStatusState {
	if m.FeeStatusState == FeeStatusPending && m.IsOverdue(today) {
		return FeeStatusOverdue
	}
	return m.FeeStatusState
}
