// file: internals/features/fees/catalog/service/catalog_service.go
package service

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	model "sekolahku_backend/internals/features/fees/catalog/model"
	obligationService "sekolahku_backend/internals/features/fees/obligations/service"
	helper "sekolahku_backend/internals/helpers"
)

var (
	// ErrConflictingMonthlyPlan: monthly structures must carry a total and
	// a positive duration that reproduce the total within a cent.
	ErrConflictingMonthlyPlan = errors.New("monthly plan total and duration are inconsistent")

	// ErrWaiverNotPending: approve/reject called on a decided waiver.
	ErrWaiverNotPending = errors.New("waiver has already been decided")

	// ErrStructureActive: destructive edits require deactivation first.
	ErrStructureActive = errors.New("structure is active")
)

// ActivateStructure makes the structure the single active price for its
// (category, level): any currently active sibling is deactivated in the
// same transaction and the activation anchor is stamped. Obligations for
// every active student at the level are materialized afterwards.
func ActivateStructure(db *gorm.DB, structureID uuid.UUID) (*model.FeeStructureModel, error) {
	var structure model.FeeStructureModel

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := lockRow(tx).First(&structure, "fee_structure_id = ?", structureID).Error; err != nil {
			return err
		}
		if !structure.MonthlyPlanConsistent() {
			return ErrConflictingMonthlyPlan
		}

		level := helper.CanonicalLevel(structure.FeeStructureLevel)
		if err := tx.Model(&model.FeeStructureModel{}).
			Where("fee_structure_category_id = ? AND fee_structure_level = ? AND fee_structure_is_active = TRUE AND fee_structure_id <> ?",
				structure.FeeStructureCategoryID, level, structure.FeeStructureID).
			Update("fee_structure_is_active", false).Error; err != nil {
			return err
		}

		now := time.Now()
		structure.FeeStructureIsActive = true
		structure.FeeStructureActivatedAt = &now
		return tx.Model(&model.FeeStructureModel{}).
			Where("fee_structure_id = ?", structure.FeeStructureID).
			Updates(map[string]interface{}{
				"fee_structure_is_active":    true,
				"fee_structure_activated_at": now,
				"fee_structure_level":        level,
			}).Error
	})
	if err != nil {
		return nil, err
	}

	// Expansion runs in its own transaction; it is idempotent and the
	// scheduler replays it, so a failure here does not undo activation.
	if err := obligationService.ExpandStructure(db, structure.FeeStructureID); err != nil {
		return &structure, err
	}
	return &structure, nil
}

// DeactivateStructure retires the price without touching already
// materialized obligations.
func DeactivateStructure(db *gorm.DB, structureID uuid.UUID) error {
	res := db.Model(&model.FeeStructureModel{}).
		Where("fee_structure_id = ?", structureID).
		Update("fee_structure_is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DecideWaiver approves or rejects a pending waiver and stamps the
// approver. Approval only shapes effective amounts going forward; settled
// lines are never recomputed. Newly fully-covered open lines flip to
// waived right away.
func DecideWaiver(db *gorm.DB, waiverID, deciderID uuid.UUID, approve bool) (*model.FeeWaiverModel, error) {
	var waiver model.FeeWaiverModel

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := lockRow(tx).First(&waiver, "fee_waiver_id = ?", waiverID).Error; err != nil {
			return err
		}
		if waiver.FeeWaiverStatus != model.WaiverStatusPending {
			return ErrWaiverNotPending
		}

		status := model.WaiverStatusRejected
		if approve {
			status = model.WaiverStatusApproved
		}
		now := time.Now()
		waiver.FeeWaiverStatus = status
		waiver.FeeWaiverApprovedBy = &deciderID
		waiver.FeeWaiverApprovedAt = &now

		return tx.Model(&model.FeeWaiverModel{}).
			Where("fee_waiver_id = ?", waiver.FeeWaiverID).
			Updates(map[string]interface{}{
				"fee_waiver_status":      status,
				"fee_waiver_approved_by": deciderID,
				"fee_waiver_approved_at": now,
			}).Error
	})
	if err != nil {
		return nil, err
	}

	if approve {
		if err := obligationService.RecomputeWaived(db, waiver.FeeWaiverStudentID); err != nil {
			return &waiver, err
		}
	}
	return &waiver, nil
}

// ExpireWaivers flips approved waivers whose window has lapsed. Run by
// the nightly sweep; read paths already ignore out-of-window waivers, so
// this only keeps the stored status honest.
func ExpireWaivers(db *gorm.DB, today time.Time) (int64, error) {
	res := db.Model(&model.FeeWaiverModel{}).
		Where("fee_waiver_status = ? AND fee_waiver_end_date < ?", model.WaiverStatusApproved, today).
		Update("fee_waiver_status", model.WaiverStatusExpired)
	return res.RowsAffected, res.Error
}

// Settings returns the collection policy row, creating the default one on
// first use.
func Settings(db *gorm.DB) (*model.FeeSettingsModel, error) {
	var settings model.FeeSettingsModel
	err := db.First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		settings = model.FeeSettingsModel{
			FeeSettingsDueDay:    10,
			FeeSettingsGraceDays: 5,
		}
		if err := db.Create(&settings).Error; err != nil {
			return nil, err
		}
		return &settings, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func lockRow(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}
