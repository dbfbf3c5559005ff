// file: internals/features/fees/catalog/model/fee_category_model.go
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// =========================================================
/* ======= ENUM: category kind ======= */
// =========================================================

type FeeCategoryKind string

const (
	// Bulk categories drive form-wide obligations.
	FeeCategoryKindBulk FeeCategoryKind = "bulk"
	// Individual categories back ad-hoc charges to a single student.
	FeeCategoryKindIndividual FeeCategoryKind = "individual"
)

// =========================================================
// MODEL
// =========================================================

type FeeCategoryModel struct {
	FeeCategoryID          uuid.UUID       `gorm:"column:fee_category_id;type:uuid;primaryKey" json:"fee_category_id"`
	FeeCategoryName        string          `gorm:"column:fee_category_name;type:varchar(100);not null;uniqueIndex" json:"fee_category_name"`
	FeeCategoryDescription *string         `gorm:"column:fee_category_description;type:text" json:"fee_category_description,omitempty"`
	FeeCategoryKind        FeeCategoryKind `gorm:"column:fee_category_kind;type:varchar(20);not null;default:'bulk'" json:"fee_category_kind"`
	FeeCategoryIsActive    bool            `gorm:"column:fee_category_is_active;not null;default:true" json:"fee_category_is_active"`

	FeeCategoryCreatedAt time.Time      `gorm:"column:fee_category_created_at;autoCreateTime" json:"fee_category_created_at"`
	FeeCategoryUpdatedAt time.Time      `gorm:"column:fee_category_updated_at;autoUpdateTime" json:"fee_category_updated_at"`
	FeeCategoryDeletedAt gorm.DeletedAt `gorm:"column:fee_category_deleted_at;index" json:"-"`
}

func (FeeCategoryModel) TableName() string {
	return "fee_categories"
}

func (m *FeeCategoryModel) BeforeCreate(tx *gorm.DB) error {
	if m.FeeCategoryID == uuid.Nil {
		m.FeeCategoryID = uuid.New()
	}
	return nil
}
