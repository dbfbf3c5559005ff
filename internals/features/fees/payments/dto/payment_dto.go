// file: internals/features/fees/payments/dto/payment_dto.go
package dto

import (
	"time"

	"github.com/google/uuid"

	"sekolahku_backend/internals/features/fees/payments/model"
)

/* ======= REQUESTS ======= */

// CreatePaymentRequest records one payment against a single student's
// open lines. The declared amount must match the effective sum due.
type CreatePaymentRequest struct {
	StudentID        uuid.UUID   `json:"student_id" validate:"required"`
	ObligationIDs    []uuid.UUID `json:"obligation_ids" validate:"omitempty,dive,required"`
	IndividualFeeIDs []uuid.UUID `json:"individual_fee_ids" validate:"omitempty,dive,required"`
	Amount           float64     `json:"amount" validate:"required,gte=0"`
	Method           string      `json:"method" validate:"required,oneof=cash online bank_transfer"`
	ClientToken      *string     `json:"client_token" validate:"omitempty,min=8,max=64"`
	Note             *string     `json:"note" validate:"omitempty,max=500"`
}

type RefundPaymentRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

type RejectCashRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

/* ======= RESPONSES ======= */

type PaymentItemResponse struct {
	PaymentItemID   uuid.UUID  `json:"payment_item_id"`
	ObligationID    *uuid.UUID `json:"obligation_id,omitempty"`
	IndividualFeeID *uuid.UUID `json:"individual_fee_id,omitempty"`
	Amount          float64    `json:"amount"`
}

type PaymentResponse struct {
	PaymentID     uuid.UUID             `json:"payment_id"`
	StudentID     uuid.UUID             `json:"student_id"`
	Method        model.PaymentMethod   `json:"method"`
	Status        model.PaymentStatus   `json:"status"`
	GrossAmount   float64               `json:"gross_amount"`
	ReceivedOn    *time.Time            `json:"received_on,omitempty"`
	ReceiptNumber *string               `json:"receipt_number,omitempty"`
	Note          *string               `json:"note,omitempty"`
	FailedReason  *string               `json:"failed_reason,omitempty"`
	RefundReason  *string               `json:"refund_reason,omitempty"`
	Replayed      bool                  `json:"replayed,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	Items         []PaymentItemResponse `json:"items,omitempty"`
}

func FromPaymentModel(m *model.PaymentModel, items []model.PaymentItemModel, replayed bool) PaymentResponse {
	resp := PaymentResponse{
		PaymentID:     m.PaymentID,
		StudentID:     m.PaymentStudentID,
		Method:        m.PaymentMethod,
		Status:        m.PaymentStatus,
		GrossAmount:   m.PaymentGrossAmount,
		ReceivedOn:    m.PaymentReceivedOn,
		ReceiptNumber: m.PaymentReceiptNumber,
		Note:          m.PaymentNote,
		FailedReason:  m.PaymentFailedReason,
		RefundReason:  m.PaymentRefundReason,
		Replayed:      replayed,
		CreatedAt:     m.PaymentCreatedAt,
	}
	for _, item := range items {
		resp.Items = append(resp.Items, PaymentItemResponse{
			PaymentItemID:   item.PaymentItemID,
			ObligationID:    item.PaymentItemFeeStatusID,
			IndividualFeeID: item.PaymentItemIndividualFeeID,
			Amount:          item.PaymentItemAmount,
		})
	}
	return resp
}
