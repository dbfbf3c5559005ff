// file: internals/features/fees/catalog/model/fee_structure_model.go
package model

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// =========================================================
/* ======= ENUM: frequency ======= */
// =========================================================

type FeeFrequency string

const (
	FeeFrequencyOneOff  FeeFrequency = "one_off"
	FeeFrequencyTermly  FeeFrequency = "termly"
	FeeFrequencyYearly  FeeFrequency = "yearly"
	FeeFrequencyMonthly FeeFrequency = "monthly"
)

func (f FeeFrequency) Valid() bool {
	switch f {
	case FeeFrequencyOneOff, FeeFrequencyTermly, FeeFrequencyYearly, FeeFrequencyMonthly:
		return true
	}
	return false
}

// =========================================================
// MODEL
// =========================================================

// FeeStructureModel is a catalog entry: price, frequency and level
// applicability of a fee. At most one ACTIVE row per (category, level);
// deactivated rows are retained for audit.
type FeeStructureModel struct {
	FeeStructureID uuid.UUID `gorm:"column:fee_structure_id;type:uuid;primaryKey" json:"fee_structure_id"`

	FeeStructureCategoryID uuid.UUID `gorm:"column:fee_structure_category_id;type:uuid;not null;index:ix_fee_structures_cat_level,priority:1" json:"fee_structure_category_id"`

	// Canonical level-tag this structure applies to.
	FeeStructureLevel string `gorm:"column:fee_structure_level;type:varchar(20);not null;index:ix_fee_structures_cat_level,priority:2" json:"fee_structure_level"`

	FeeStructureFrequency FeeFrequency `gorm:"column:fee_structure_frequency;type:varchar(20);not null" json:"fee_structure_frequency"`

	// Amount per period. For monthly plans the per-month amount is derived
	// from total / duration instead.
	FeeStructureAmount float64 `gorm:"column:fee_structure_amount;type:numeric(10,2)" json:"fee_structure_amount"`

	// Monthly plan fields; both present iff frequency = monthly.
	FeeStructureTotalAmount     *float64 `gorm:"column:fee_structure_total_amount;type:numeric(10,2)" json:"fee_structure_total_amount,omitempty"`
	FeeStructureMonthlyDuration *int     `gorm:"column:fee_structure_monthly_duration" json:"fee_structure_monthly_duration,omitempty"`

	FeeStructureIsActive bool `gorm:"column:fee_structure_is_active;not null;default:false;index" json:"fee_structure_is_active"`

	// Stamped when the structure is (re)activated; the expansion anchor.
	FeeStructureActivatedAt *time.Time `gorm:"column:fee_structure_activated_at" json:"fee_structure_activated_at,omitempty"`

	FeeStructureCreatedAt time.Time      `gorm:"column:fee_structure_created_at;autoCreateTime" json:"fee_structure_created_at"`
	FeeStructureUpdatedAt time.Time      `gorm:"column:fee_structure_updated_at;autoUpdateTime" json:"fee_structure_updated_at"`
	FeeStructureDeletedAt gorm.DeletedAt `gorm:"column:fee_structure_deleted_at;index" json:"-"`
}

func (FeeStructureModel) TableName() string {
	return "fee_structures"
}

func (m *FeeStructureModel) BeforeCreate(tx *gorm.DB) error {
	if m.FeeStructureID == uuid.Nil {
		m.FeeStructureID = uuid.New()
	}
	return nil
}

// MonthlyAmount returns total/duration rounded to the cent for monthly
// plans, the plain amount otherwise.
func (m *FeeStructureModel) MonthlyAmount() float64 {
	if m.FeeStructureFrequency == FeeFrequencyMonthly &&
		m.FeeStructureTotalAmount != nil && m.FeeStructureMonthlyDuration != nil && *m.FeeStructureMonthlyDuration > 0 {
		return math.Round(*m.FeeStructureTotalAmount / float64(*m.FeeStructureMonthlyDuration) * 100) / 100
	}
	return m.FeeStructureAmount
}

// MonthlyInstallment prices one period of a monthly plan. The last
// installment absorbs the cent remainder so the series sums exactly to
// the plan total (1000/12 is 11 x 83.33 + 83.37).
func (m *FeeStructureModel) MonthlyInstallment(period int) float64 {
	base := m.MonthlyAmount()
	if m.FeeStructureFrequency != FeeFrequencyMonthly ||
		m.FeeStructureTotalAmount == nil || m.FeeStructureMonthlyDuration == nil {
		return base
	}
	n := *m.FeeStructureMonthlyDuration
	if n <= 0 || period != n-1 {
		return base
	}
	return math.Round((*m.FeeStructureTotalAmount-base*float64(n-1))*100) / 100
}

// ExpectedTotal is the per-student expected amount for dashboards:
// total_amount for monthly plans, amount otherwise.
func (m *FeeStructureModel) ExpectedTotal() float64 {
	if m.FeeStructureFrequency == FeeFrequencyMonthly && m.FeeStructureTotalAmount != nil {
		return *m.FeeStructureTotalAmount
	}
	return m.FeeStructureAmount
}

// MonthlyPlanConsistent checks the monthly invariant: totals present and
// monthly_amount * duration within a cent of total.
func (m *FeeStructureModel) MonthlyPlanConsistent() bool {
	if m.FeeStructureFrequency != FeeFrequencyMonthly {
		return true
	}
	if m.FeeStructureTotalAmount == nil || m.FeeStructureMonthlyDuration == nil || *m.FeeStructureMonthlyDuration <= 0 {
		return false
	}
	return *m.FeeStructureTotalAmount > 0
}
