// file: internals/features/fees/obligations/service/effective_amount.go
package service

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	catalogModel "sekolahku_backend/internals/features/fees/catalog/model"
)

// EffectiveAmount applies approved, in-window waivers to a face amount.
// The order is part of the contract: every percentage waiver deducts
// against the FACE first, then fixed deductions stack, floored at zero.
// This keeps stacking commutative inside each bucket.
func EffectiveAmount(face float64, waivers []catalogModel.FeeWaiverModel, today time.Time) float64 {
	remaining := face

	sorted := make([]catalogModel.FeeWaiverModel, 0, len(waivers))
	for _, w := range waivers {
		if w.ActiveOn(today) {
			sorted = append(sorted, w)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].FeeWaiverType != sorted[j].FeeWaiverType {
			return sorted[i].FeeWaiverType < sorted[j].FeeWaiverType
		}
		return sorted[i].FeeWaiverCreatedAt.Before(sorted[j].FeeWaiverCreatedAt)
	})

	for _, w := range sorted {
		if w.FeeWaiverPercentage != nil {
			remaining -= face * *w.FeeWaiverPercentage / 100
		}
	}
	for _, w := range sorted {
		if w.FeeWaiverPercentage == nil {
			remaining -= w.FeeWaiverFixedAmount
		}
	}

	if remaining < 0 {
		return 0
	}
	return remaining
}

// ActiveWaivers loads the approved waivers for (student, category).
// Window filtering happens in EffectiveAmount so callers can share one
// load across obligations with different read dates.
func ActiveWaivers(db *gorm.DB, studentID, categoryID uuid.UUID) ([]catalogModel.FeeWaiverModel, error) {
	var waivers []catalogModel.FeeWaiverModel
	err := db.
		Where("fee_waiver_student_id = ? AND fee_waiver_category_id = ? AND fee_waiver_status = ?",
			studentID, categoryID, catalogModel.WaiverStatusApproved).
		Find(&waivers).Error
	return waivers, err
}
