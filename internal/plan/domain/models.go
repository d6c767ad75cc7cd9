// Package domain contains the commission plan aggregate: plans, bonus rules,
// and performance accelerator tiers.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrNoActivePlan = errors.New("no active commission plan for deal close date")
	ErrPlanNotFound = errors.New("commission plan not found")
	ErrInvalidPlan  = errors.New("invalid commission plan")
)

// CommissionPlan is effective-dated; a nil EffectiveEndDate means open-ended.
type CommissionPlan struct {
	ID                 snowflake.ID    `json:"id" gorm:"primaryKey"`
	Name               string          `json:"name" gorm:"not null"`
	BaseCommissionRate decimal.Decimal `json:"base_commission_rate" gorm:"type:decimal(8,5);not null"`
	EffectiveStartDate time.Time       `json:"effective_start_date" gorm:"not null;index"`
	EffectiveEndDate   *time.Time      `json:"effective_end_date"`

	BonusRules              []BonusRule              `json:"bonus_rules,omitempty" gorm:"foreignKey:CommissionPlanID;constraint:OnDelete:CASCADE"`
	PerformanceAccelerators []PerformanceAccelerator `json:"performance_accelerators,omitempty" gorm:"foreignKey:CommissionPlanID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CommissionPlan) TableName() string { return "commission_plans" }

// BonusRule adds rateAdd on top of the plan base rate. Eligibility is driven
// by a deal's allow-list; rules linked to an external attribute are
// auto-applied during sync. A disabled rule never contributes anywhere.
type BonusRule struct {
	ID                 snowflake.ID    `json:"id" gorm:"primaryKey"`
	CommissionPlanID   snowflake.ID    `json:"commission_plan_id" gorm:"not null;index"`
	Name               string          `json:"name" gorm:"not null"`
	RateAdd            decimal.Decimal `json:"rate_add" gorm:"type:decimal(8,5);not null"`
	Enabled            bool            `json:"enabled" gorm:"not null;default:true"`
	EffectiveStartDate *time.Time      `json:"effective_start_date"`
	EffectiveEndDate   *time.Time      `json:"effective_end_date"`

	// Optional link to an external boolean/select attribute that auto-applies
	// this rule to matching deals during sync.
	AttioAttributeID   *string `json:"attio_attribute_id"`
	AttioAttributeName *string `json:"attio_attribute_name"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (BonusRule) TableName() string { return "bonus_rules" }

// PerformanceAccelerator is a replacement-rate tier keyed on attainment
// percentage. Tiers need not be contiguous or non-overlapping.
type PerformanceAccelerator struct {
	ID               snowflake.ID     `json:"id" gorm:"primaryKey"`
	CommissionPlanID snowflake.ID     `json:"commission_plan_id" gorm:"not null;index"`
	MinAttainment    decimal.Decimal  `json:"min_attainment" gorm:"type:decimal(8,3);not null"`
	MaxAttainment    *decimal.Decimal `json:"max_attainment" gorm:"type:decimal(8,3)"`
	CommissionRate   decimal.Decimal  `json:"commission_rate" gorm:"type:decimal(8,5);not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PerformanceAccelerator) TableName() string { return "performance_accelerators" }

type BonusRuleInput struct {
	Name               string     `json:"name"`
	RateAdd            float64    `json:"rate_add"`
	Enabled            *bool      `json:"enabled"`
	EffectiveStartDate *time.Time `json:"effective_start_date"`
	EffectiveEndDate   *time.Time `json:"effective_end_date"`
	AttioAttributeID   *string    `json:"attio_attribute_id"`
	AttioAttributeName *string    `json:"attio_attribute_name"`
}

type AcceleratorInput struct {
	MinAttainment  float64  `json:"min_attainment"`
	MaxAttainment  *float64 `json:"max_attainment"`
	CommissionRate float64  `json:"commission_rate"`
}

type CreateRequest struct {
	Name               string             `json:"name"`
	BaseCommissionRate float64            `json:"base_commission_rate"`
	EffectiveStartDate time.Time          `json:"effective_start_date"`
	EffectiveEndDate   *time.Time         `json:"effective_end_date"`
	BonusRules         []BonusRuleInput   `json:"bonus_rules"`
	Accelerators       []AcceleratorInput `json:"performance_accelerators"`
}

type UpdateRequest struct {
	Name               *string    `json:"name"`
	BaseCommissionRate *float64   `json:"base_commission_rate"`
	EffectiveStartDate *time.Time `json:"effective_start_date"`
	EffectiveEndDate   *time.Time `json:"effective_end_date"`
	// A non-nil slice replaces the full child set inside one transaction.
	BonusRules   []BonusRuleInput   `json:"bonus_rules"`
	Accelerators []AcceleratorInput `json:"performance_accelerators"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, plan *CommissionPlan) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*CommissionPlan, error)
	List(ctx context.Context, db *gorm.DB) ([]CommissionPlan, error)
	Update(ctx context.Context, db *gorm.DB, plan *CommissionPlan) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	ReplaceBonusRules(ctx context.Context, db *gorm.DB, planID snowflake.ID, rules []BonusRule) error
	ReplaceAccelerators(ctx context.Context, db *gorm.DB, planID snowflake.ID, tiers []PerformanceAccelerator) error
	ListBonusRules(ctx context.Context, db *gorm.DB, planIDs []snowflake.ID) ([]BonusRule, error)
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*CommissionPlan, error)
	Get(ctx context.Context, id string) (*CommissionPlan, error)
	List(ctx context.Context) ([]CommissionPlan, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*CommissionPlan, error)
	Delete(ctx context.Context, id string) error
}
