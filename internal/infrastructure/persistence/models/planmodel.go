package models

import (
	"time"

	"github.com/OliSalles/StoryTeller/internal/shared/constants"
)

// PlanModel represents the database persistence model for catalog plans.
// Nil limits are stored as NULL and mean unlimited.
type PlanModel struct {
	ID                   uint    `gorm:"primarykey"`
	Name                 string  `gorm:"not null;size:50;uniqueIndex:uk_plans_name"`
	DisplayName          string  `gorm:"not null;size:100"`
	Description          string  `gorm:"type:text"`
	PriceMonthly         int64   `gorm:"not null;default:0"`
	PriceYearly          int64   `gorm:"not null;default:0"`
	FeaturesLimit        *int64
	TokensLimit          *int64
	CanExportJira        bool   `gorm:"not null;default:false"`
	CanExportAzure       bool   `gorm:"not null;default:false"`
	HasAPIAccess         bool   `gorm:"not null;default:false"`
	HasPrioritySupport   bool   `gorm:"not null;default:false"`
	TrialDays            int    `gorm:"not null;default:0"`
	IsActive             bool   `gorm:"not null;default:true"`
	StripeMonthlyPriceID string `gorm:"not null;size:100;default:''"`
	StripeYearlyPriceID  string `gorm:"not null;size:100;default:''"`
	SortOrder            int    `gorm:"not null;default:0"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// TableName specifies the table name for GORM
func (PlanModel) TableName() string {
	return constants.TablePlans
}
