// file: internals/features/fees/payments/model/payment_model.go
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// =========================================================
// ENUMS
// =========================================================

type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodOnline       PaymentMethod = "online"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodOnline, PaymentMethodBankTransfer:
		return true
	}
	return false
}

type PaymentStatus string

const (
	// Cash payments sit pending until a cashier confirms the money.
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// =========================================================
// MODEL
// =========================================================

// PaymentModel is one ledger entry. Completed rows are immutable except
// for the transition to refunded; corrections are new rows, never edits.
type PaymentModel struct {
	PaymentID uuid.UUID `gorm:"column:payment_id;type:uuid;primaryKey" json:"payment_id"`

	PaymentStudentID uuid.UUID `gorm:"column:payment_student_id;type:uuid;not null;index" json:"payment_student_id"`

	PaymentMethod PaymentMethod `gorm:"column:payment_method;type:varchar(20);not null" json:"payment_method"`
	PaymentStatus PaymentStatus `gorm:"column:payment_status;type:varchar(10);not null;default:'pending';index" json:"payment_status"`

	// Sum of the settled line amounts, captured at settlement time.
	PaymentGrossAmount float64 `gorm:"column:payment_gross_amount;type:numeric(10,2);not null" json:"payment_gross_amount"`

	// Stamped when the payment completes.
	PaymentReceivedOn *time.Time `gorm:"column:payment_received_on;type:date" json:"payment_received_on,omitempty"`

	// Client idempotency token. Retained for the replay window, then
	// cleared by the nightly sweep.
	PaymentClientToken *string `gorm:"column:payment_client_token;type:varchar(64);uniqueIndex" json:"payment_client_token,omitempty"`

	// Monotonic receipt sequence, assigned on completion.
	PaymentReceiptSeq    *int    `gorm:"column:payment_receipt_seq;uniqueIndex" json:"payment_receipt_seq,omitempty"`
	PaymentReceiptNumber *string `gorm:"column:payment_receipt_number;type:varchar(20);uniqueIndex" json:"payment_receipt_number,omitempty"`

	// User who recorded / confirmed the payment.
	PaymentCashierID *uuid.UUID `gorm:"column:payment_cashier_id;type:uuid" json:"payment_cashier_id,omitempty"`

	PaymentNote         *string `gorm:"column:payment_note;type:text" json:"payment_note,omitempty"`
	PaymentFailedReason *string `gorm:"column:payment_failed_reason;type:text" json:"payment_failed_reason,omitempty"`
	PaymentRefundReason *string `gorm:"column:payment_refund_reason;type:text" json:"payment_refund_reason,omitempty"`

	PaymentCreatedAt time.Time `gorm:"column:payment_created_at;autoCreateTime;index" json:"payment_created_at"`
	PaymentUpdatedAt time.Time `gorm:"column:payment_updated_at;autoUpdateTime" json:"payment_updated_at"`

	PaymentItems []PaymentItemModel `gorm:"foreignKey:PaymentItemPaymentID;references:PaymentID" json:"payment_items,omitempty"`
}

func (PaymentModel) TableName() string {
	return "payments"
}

func (m *PaymentModel) BeforeCreate(tx *gorm.DB) error {
	if m.PaymentID == uuid.Nil {
		m.PaymentID = uuid.New()
	}
	return nil
}

// FormatReceiptNumber renders a receipt sequence as e.g. "RCP-000042".
func FormatReceiptNumber(seq int) string {
	return fmt.Sprintf("RCP-%06d", seq)
}

// =========================================================
/* ======= MODEL: payment line ======= */
// =========================================================

// PaymentItemModel binds one payment to one settled line. Exactly one of
// the fee-status link and the individual-fee link is set. The amount is
// the effective amount at settlement time and never recomputed.
type PaymentItemModel struct {
	PaymentItemID uuid.UUID `gorm:"column:payment_item_id;type:uuid;primaryKey" json:"payment_item_id"`

	PaymentItemPaymentID uuid.UUID `gorm:"column:payment_item_payment_id;type:uuid;not null;index" json:"payment_item_payment_id"`

	PaymentItemFeeStatusID     *uuid.UUID `gorm:"column:payment_item_fee_status_id;type:uuid;index" json:"payment_item_fee_status_id,omitempty"`
	PaymentItemIndividualFeeID *uuid.UUID `gorm:"column:payment_item_individual_fee_id;type:uuid;index" json:"payment_item_individual_fee_id,omitempty"`

	PaymentItemAmount float64 `gorm:"column:payment_item_amount;type:numeric(10,2);not null" json:"payment_item_amount"`

	PaymentItemCreatedAt time.Time `gorm:"column:payment_item_created_at;autoCreateTime" json:"payment_item_created_at"`
}

func (PaymentItemModel) TableName() string {
	return "payment_items"
}

func (m *PaymentItemModel) BeforeCreate(tx *gorm.DB) error {
	if m.PaymentItemID == uuid.Nil {
		m.PaymentItemID = uuid.New()
	}
	return nil
}
