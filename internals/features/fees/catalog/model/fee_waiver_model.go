// file: internals/features/fees/catalog/model/fee_waiver_model.go
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// =========================================================
// ENUMS
// =========================================================

type WaiverType string

const (
	WaiverTypeScholarship WaiverType = "scholarship"
	WaiverTypeDiscount    WaiverType = "discount"
	WaiverTypeFullWaiver  WaiverType = "full_waiver"
)

type WaiverStatus string

const (
	WaiverStatusPending  WaiverStatus = "pending"
	WaiverStatusApproved WaiverStatus = "approved"
	WaiverStatusRejected WaiverStatus = "rejected"
	WaiverStatusExpired  WaiverStatus = "expired"
)

// =========================================================
// MODEL
// =========================================================

// FeeWaiverModel is an approved reduction (percentage or fixed) against a
// student's category for a validity window. Only approved waivers whose
// window covers today affect effective amounts.
type FeeWaiverModel struct {
	FeeWaiverID uuid.UUID `gorm:"column:fee_waiver_id;type:uuid;primaryKey" json:"fee_waiver_id"`

	FeeWaiverStudentID  uuid.UUID `gorm:"column:fee_waiver_student_id;type:uuid;not null;index:ix_fee_waivers_student_cat,priority:1" json:"fee_waiver_student_id"`
	FeeWaiverCategoryID uuid.UUID `gorm:"column:fee_waiver_category_id;type:uuid;not null;index:ix_fee_waivers_student_cat,priority:2" json:"fee_waiver_category_id"`

	FeeWaiverType WaiverType `gorm:"column:fee_waiver_type;type:varchar(20);not null" json:"fee_waiver_type"`

	// Percentage XOR fixed amount. full_waiver rows carry percentage=100.
	FeeWaiverPercentage  *float64 `gorm:"column:fee_waiver_percentage;type:numeric(5,2)" json:"fee_waiver_percentage,omitempty"`
	FeeWaiverFixedAmount float64  `gorm:"column:fee_waiver_fixed_amount;type:numeric(10,2);not null;default:0" json:"fee_waiver_fixed_amount"`

	FeeWaiverReason string `gorm:"column:fee_waiver_reason;type:text" json:"fee_waiver_reason"`

	FeeWaiverStartDate time.Time `gorm:"column:fee_waiver_start_date;type:date;not null" json:"fee_waiver_start_date"`
	FeeWaiverEndDate   time.Time `gorm:"column:fee_waiver_end_date;type:date;not null" json:"fee_waiver_end_date"`

	FeeWaiverStatus     WaiverStatus `gorm:"column:fee_waiver_status;type:varchar(20);not null;default:'pending';index:ix_fee_waivers_student_cat,priority:3" json:"fee_waiver_status"`
	FeeWaiverApprovedBy *uuid.UUID   `gorm:"column:fee_waiver_approved_by;type:uuid" json:"fee_waiver_approved_by,omitempty"`
	FeeWaiverApprovedAt *time.Time   `gorm:"column:fee_waiver_approved_at" json:"fee_waiver_approved_at,omitempty"`

	FeeWaiverCreatedAt time.Time      `gorm:"column:fee_waiver_created_at;autoCreateTime" json:"fee_waiver_created_at"`
	FeeWaiverUpdatedAt time.Time      `gorm:"column:fee_waiver_updated_at;autoUpdateTime" json:"fee_waiver_updated_at"`
	FeeWaiverDeletedAt gorm.DeletedAt `gorm:"column:fee_waiver_deleted_at;index" json:"-"`
}

func (FeeWaiverModel) TableName() string {
	return "fee_waivers"
}

func (m *FeeWaiverModel) BeforeCreate(tx *gorm.DB) error {
	if m.FeeWaiverID == uuid.Nil {
		m.FeeWaiverID = uuid.New()
	}
	return nil
}

// ActiveOn reports whether the waiver affects effective amounts on a date.
func (m *FeeWaiverModel) ActiveOn(day time.Time) bool {
	d := day.Truncate(24 * time.Hour)
	return m.FeeWaiverStatus == WaiverStatusApproved &&
		!d.Before(m.FeeWaiverStartDate.Truncate(24*time.Hour)) &&
		!d.After(m.FeeWaiverEndDate.Truncate(24*time.Hour))
}
