package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	plandomain "github.com/paylinelabs/payline/internal/plan/domain"
	"gorm.io/gorm"
)

type repository struct{}

func Provide() plandomain.Repository {
	return &repository{}
}

func (r *repository) Insert(ctx context.Context, db *gorm.DB, plan *plandomain.CommissionPlan) error {
	return db.WithContext(ctx).Create(plan).Error
}

func (r *repository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*plandomain.CommissionPlan, error) {
	var plan plandomain.CommissionPlan
	err := db.WithContext(ctx).
		Preload("BonusRules", func(db *gorm.DB) *gorm.DB { return db.Order("name ASC") }).
		Preload("PerformanceAccelerators", func(db *gorm.DB) *gorm.DB { return db.Order("min_attainment ASC") }).
		First(&plan, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repository) List(ctx context.Context, db *gorm.DB) ([]plandomain.CommissionPlan, error) {
	var plans []plandomain.CommissionPlan
	err := db.WithContext(ctx).
		Preload("BonusRules", func(db *gorm.DB) *gorm.DB { return db.Order("name ASC") }).
		Preload("PerformanceAccelerators", func(db *gorm.DB) *gorm.DB { return db.Order("min_attainment ASC") }).
		Order("effective_start_date DESC").
		Find(&plans).Error
	return plans, err
}

func (r *repository) Update(ctx context.Context, db *gorm.DB, plan *plandomain.CommissionPlan) error {
	return db.WithContext(ctx).Model(plan).
		Select("name", "base_commission_rate", "effective_start_date", "effective_end_date", "updated_at").
		Updates(plan).Error
}

func (r *repository) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	// Child rows cascade at the schema level; delete them explicitly as well
	// so sqlite dev databases without FK enforcement stay consistent.
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("commission_plan_id = ?", id).Delete(&plandomain.BonusRule{}).Error; err != nil {
			return err
		}
		if err := tx.Where("commission_plan_id = ?", id).Delete(&plandomain.PerformanceAccelerator{}).Error; err != nil {
			return err
		}
		return tx.Delete(&plandomain.CommissionPlan{}, "id = ?", id).Error
	})
}

func (r *repository) ReplaceBonusRules(ctx context.Context, db *gorm.DB, planID snowflake.ID, rules []plandomain.BonusRule) error {
	if err := db.WithContext(ctx).Where("commission_plan_id = ?", planID).Delete(&plandomain.BonusRule{}).Error; err != nil {
		return err
	}
	if len(rules) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&rules).Error
}

func (r *repository) ReplaceAccelerators(ctx context.Context, db *gorm.DB, planID snowflake.ID, tiers []plandomain.PerformanceAccelerator) error {
	if err := db.WithContext(ctx).Where("commission_plan_id = ?", planID).Delete(&plandomain.PerformanceAccelerator{}).Error; err != nil {
		return err
	}
	if len(tiers) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&tiers).Error
}

func (r *repository) ListBonusRules(ctx context.Context, db *gorm.DB, planIDs []snowflake.ID) ([]plandomain.BonusRule, error) {
	var rules []plandomain.BonusRule
	query := db.WithContext(ctx)
	if len(planIDs) > 0 {
		query = query.Where("commission_plan_id IN ?", planIDs)
	}
	err := query.Find(&rules).Error
	return rules, err
}
