// file: internals/features/fees/catalog/dto/catalog_dto.go
package dto

import (
	"time"

	"github.com/google/uuid"

	model "sekolahku_backend/internals/features/fees/catalog/model"
	helper "sekolahku_backend/internals/helpers"
)

/* ======= CATEGORY ======= */

type CreateFeeCategoryRequest struct {
	Name        string  `json:"name" validate:"required,min=2,max=100"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	Kind        string  `json:"kind" validate:"omitempty,oneof=bulk individual"`
}

func (r *CreateFeeCategoryRequest) ToModel() *model.FeeCategoryModel {
	kind := model.FeeCategoryKindBulk
	if r.Kind != "" {
		kind = model.FeeCategoryKind(r.Kind)
	}
	return &model.FeeCategoryModel{
		FeeCategoryName:        r.Name,
		FeeCategoryDescription: r.Description,
		FeeCategoryKind:        kind,
		FeeCategoryIsActive:    true,
	}
}

type UpdateFeeCategoryRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=100"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	IsActive    *bool   `json:"is_active"`
}

func (r *UpdateFeeCategoryRequest) ApplyTo(m *model.FeeCategoryModel) {
	if r.Name != nil {
		m.FeeCategoryName = *r.Name
	}
	if r.Description != nil {
		m.FeeCategoryDescription = r.Description
	}
	if r.IsActive != nil {
		m.FeeCategoryIsActive = *r.IsActive
	}
}

/* ======= STRUCTURE ======= */

type CreateFeeStructureRequest struct {
	CategoryID      uuid.UUID `json:"category_id" validate:"required"`
	Level           string    `json:"level" validate:"required"`
	Frequency       string    `json:"frequency" validate:"required,oneof=one_off termly yearly monthly"`
	Amount          float64   `json:"amount" validate:"omitempty,gte=0"`
	TotalAmount     *float64  `json:"total_amount" validate:"omitempty,gt=0"`
	MonthlyDuration *int      `json:"monthly_duration" validate:"omitempty,gt=0"`
}

func (r *CreateFeeStructureRequest) ToModel() *model.FeeStructureModel {
	return &model.FeeStructureModel{
		FeeStructureCategoryID:      r.CategoryID,
		FeeStructureLevel:           helper.CanonicalLevel(r.Level),
		FeeStructureFrequency:       model.FeeFrequency(r.Frequency),
		FeeStructureAmount:          r.Amount,
		FeeStructureTotalAmount:     r.TotalAmount,
		FeeStructureMonthlyDuration: r.MonthlyDuration,
	}
}

type UpdateFeeStructureRequest struct {
	Amount          *float64 `json:"amount" validate:"omitempty,gte=0"`
	TotalAmount     *float64 `json:"total_amount" validate:"omitempty,gt=0"`
	MonthlyDuration *int     `json:"monthly_duration" validate:"omitempty,gt=0"`
}

func (r *UpdateFeeStructureRequest) ApplyTo(m *model.FeeStructureModel) {
	if r.Amount != nil {
		m.FeeStructureAmount = *r.Amount
	}
	if r.TotalAmount != nil {
		m.FeeStructureTotalAmount = r.TotalAmount
	}
	if r.MonthlyDuration != nil {
		m.FeeStructureMonthlyDuration = r.MonthlyDuration
	}
}

type FeeStructureResponse struct {
	FeeStructureID  uuid.UUID          `json:"fee_structure_id"`
	CategoryID      uuid.UUID          `json:"category_id"`
	Level           string             `json:"level"`
	Frequency       model.FeeFrequency `json:"frequency"`
	Amount          float64            `json:"amount"`
	TotalAmount     *float64           `json:"total_amount,omitempty"`
	MonthlyDuration *int               `json:"monthly_duration,omitempty"`
	MonthlyAmount   float64            `json:"monthly_amount"`
	IsActive        bool               `json:"is_active"`
	ActivatedAt     *time.Time         `json:"activated_at,omitempty"`
}

func FromStructureModel(m *model.FeeStructureModel) FeeStructureResponse {
	return FeeStructureResponse{
		FeeStructureID:  m.FeeStructureID,
		CategoryID:      m.FeeStructureCategoryID,
		Level:           m.FeeStructureLevel,
		Frequency:       m.FeeStructureFrequency,
		Amount:          m.FeeStructureAmount,
		TotalAmount:     m.FeeStructureTotalAmount,
		MonthlyDuration: m.FeeStructureMonthlyDuration,
		MonthlyAmount:   m.MonthlyAmount(),
		IsActive:        m.FeeStructureIsActive,
		ActivatedAt:     m.FeeStructureActivatedAt,
	}
}

/* ======= WAIVER ======= */

type CreateFeeWaiverRequest struct {
	StudentID   uuid.UUID `json:"student_id" validate:"required"`
	CategoryID  uuid.UUID `json:"category_id" validate:"required"`
	Type        string    `json:"type" validate:"required,oneof=scholarship discount full_waiver"`
	Percentage  *float64  `json:"percentage" validate:"omitempty,gt=0,lte=100"`
	FixedAmount float64   `json:"fixed_amount" validate:"omitempty,gte=0"`
	Reason      string    `json:"reason" validate:"required,min=3,max=1000"`
	StartDate   time.Time `json:"start_date" validate:"required"`
	EndDate     time.Time `json:"end_date" validate:"required"`
}

func (r *CreateFeeWaiverRequest) ToModel() *model.FeeWaiverModel {
	w := &model.FeeWaiverModel{
		FeeWaiverStudentID:   r.StudentID,
		FeeWaiverCategoryID:  r.CategoryID,
		FeeWaiverType:        model.WaiverType(r.Type),
		FeeWaiverPercentage:  r.Percentage,
		FeeWaiverFixedAmount: r.FixedAmount,
		FeeWaiverReason:      r.Reason,
		FeeWaiverStartDate:   r.StartDate,
		FeeWaiverEndDate:     r.EndDate,
		FeeWaiverStatus:      model.WaiverStatusPending,
	}
	if w.FeeWaiverType == model.WaiverTypeFullWaiver && w.FeeWaiverPercentage == nil {
		full := 100.0
		w.FeeWaiverPercentage = &full
	}
	return w
}

/* ======= TERMS & SETTINGS ======= */

type CreateAcademicTermRequest struct {
	Name      string    `json:"name" validate:"required,min=2,max=100"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`
}

func (r *CreateAcademicTermRequest) ToModel() *model.AcademicTermModel {
	return &model.AcademicTermModel{
		AcademicTermName:      r.Name,
		AcademicTermStartDate: r.StartDate,
		AcademicTermEndDate:   r.EndDate,
		AcademicTermIsActive:  true,
	}
}

type UpdateFeeSettingsRequest struct {
	DueDay      *int     `json:"due_day" validate:"omitempty,gte=1,lte=28"`
	GraceDays   *int     `json:"grace_days" validate:"omitempty,gte=0,lte=60"`
	LatePenalty *float64 `json:"late_penalty" validate:"omitempty,gte=0"`
}

func (r *UpdateFeeSettingsRequest) ApplyTo(m *model.FeeSettingsModel) {
	if r.DueDay != nil {
		m.FeeSettingsDueDay = *r.DueDay
	}
	if r.GraceDays != nil {
		m.FeeSettingsGraceDays = *r.GraceDays
	}
	if r.LatePenalty != nil {
		m.FeeSettingsLatePenalty = *r.LatePenalty
	}
}
