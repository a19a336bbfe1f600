// internal/models/common.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Enums
type FilterStatus string

const (
	FilterStatusSponsored   FilterStatus = "sponsored"
	FilterStatusCategory    FilterStatus = "category_filtered"
	FilterStatusSales       FilterStatus = "sales_filtered"
	FilterStatusPrice       FilterStatus = "price_filtered"
	FilterStatusListingDate FilterStatus = "listing_date_filtered"
	FilterStatusSalesMonths FilterStatus = "sales_months_filtered"
)

type SourceType string

const (
	SourceTypeKeyword           SourceType = "keyword"
	SourceTypeCategoryExpansion SourceType = "category_expansion"
	SourceTypeDeepExpansion     SourceType = "deep_expansion"
)

type TaskType string

const (
	TaskTypeInitialSearch     TaskType = "initial_search"
	TaskTypeCategoryExpansion TaskType = "category_expansion"
	TaskTypeDeepExpansion     TaskType = "deep_expansion"
)

type TaskStatus string

const (
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)
