// file: internals/features/fees/obligations/dto/obligation_dto.go
package dto

import (
	"time"

	"github.com/google/uuid"

	model "sekolahku_backend/internals/features/fees/obligations/model"
)

/* ======= RESPONSES ======= */

// ObligationResponse is one billable line priced for today. The face
// amount is the stored amount; the effective amount has approved waivers
// applied. State is the read-side state: a pending line past due reads
// overdue even before the nightly sweep persists it.
type ObligationResponse struct {
	ObligationID    uuid.UUID            `json:"obligation_id"`
	StudentID       uuid.UUID            `json:"student_id"`
	FeeStructureID  uuid.UUID            `json:"fee_structure_id"`
	CategoryID      uuid.UUID            `json:"category_id"`
	CategoryName    string               `json:"category_name"`
	DueDate         time.Time            `json:"due_date"`
	FaceAmount      float64              `json:"face_amount"`
	EffectiveAmount float64              `json:"effective_amount"`
	State           model.FeeStatusState `json:"state"`
	SettledBy       *uuid.UUID           `json:"settled_by_payment_id,omitempty"`
}

type ObligationSummary struct {
	TotalDue     float64 `json:"total_due"`
	OverdueCount int     `json:"overdue_count"`
	OpenCount    int     `json:"open_count"`
}

/* ======= INDIVIDUAL FEES ======= */

type CreateIndividualFeeRequest struct {
	StudentID   uuid.UUID `json:"student_id" validate:"required"`
	CategoryID  uuid.UUID `json:"category_id" validate:"required"`
	Name        string    `json:"name" validate:"required,min=2,max=100"`
	Description *string   `json:"description" validate:"omitempty,max=1000"`
	Amount      float64   `json:"amount" validate:"required,gt=0"`
	DueDate     time.Time `json:"due_date" validate:"required"`
}

func (r *CreateIndividualFeeRequest) ToModel(createdBy uuid.UUID) *model.IndividualFeeModel {
	return &model.IndividualFeeModel{
		IndividualFeeStudentID:   r.StudentID,
		IndividualFeeCategoryID:  r.CategoryID,
		IndividualFeeName:        r.Name,
		IndividualFeeDescription: r.Description,
		IndividualFeeAmount:      r.Amount,
		IndividualFeeDueDate:     r.DueDate,
		IndividualFeeIsActive:    true,
		IndividualFeeCreatedBy:   &createdBy,
	}
}

type IndividualFeeResponse struct {
	IndividualFeeID uuid.UUID `json:"individual_fee_id"`
	StudentID       uuid.UUID `json:"student_id"`
	CategoryID      uuid.UUID `json:"category_id"`
	Name            string    `json:"name"`
	Description     *string   `json:"description,omitempty"`
	Amount          float64   `json:"amount"`
	DueDate         time.Time `json:"due_date"`
	Status          string    `json:"status"`
}

func FromIndividualFeeModel(m *model.IndividualFeeModel, today time.Time) IndividualFeeResponse {
	return IndividualFeeResponse{
		IndividualFeeID: m.IndividualFeeID,
		StudentID:       m.IndividualFeeStudentID,
		CategoryID:      m.IndividualFeeCategoryID,
		Name:            m.IndividualFeeName,
		Description:     m.IndividualFeeDescription,
		Amount:          m.IndividualFeeAmount,
		DueDate:         m.IndividualFeeDueDate,
		Status:          m.Status(today),
	}
}
