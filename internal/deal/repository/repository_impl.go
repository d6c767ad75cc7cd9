package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	dealdomain "github.com/paylinelabs/payline/internal/deal/domain"
	"gorm.io/gorm"
)

type repository struct{}

func Provide() dealdomain.Repository {
	return &repository{}
}

func (r *repository) UpsertByRecordID(ctx context.Context, db *gorm.DB, deal *dealdomain.Deal) (bool, error) {
	var existing dealdomain.Deal
	err := db.WithContext(ctx).
		First(&existing, "attio_record_id = ?", deal.AttioRecordID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if createErr := db.WithContext(ctx).Create(deal).Error; createErr != nil {
				return false, createErr
			}
			return true, nil
		}
		return false, err
	}

	if !dealChanged(&existing, deal) {
		*deal = existing
		return false, nil
	}

	// Internal key, creation time, allow-list, and approval flag survive the
	// refresh; everything else mirrors the external record.
	deal.ID = existing.ID
	deal.CreatedAt = existing.CreatedAt
	deal.AppliedBonusRuleIDs = existing.AppliedBonusRuleIDs
	deal.RevOpsApproved = existing.RevOpsApproved
	if deal.AEProfileID == nil {
		deal.AEProfileID = existing.AEProfileID
	}
	if err := db.WithContext(ctx).Save(deal).Error; err != nil {
		return false, err
	}
	return true, nil
}

func dealChanged(existing, incoming *dealdomain.Deal) bool {
	if existing.DealName != incoming.DealName ||
		existing.Status != incoming.Status ||
		!existing.CloseDate.Equal(incoming.CloseDate) ||
		!existing.Amount.Equal(incoming.Amount) ||
		!existing.CommissionableAmount.Equal(incoming.CommissionableAmount) {
		return true
	}
	if !stringPtrEqual(existing.AccountName, incoming.AccountName) {
		return true
	}
	if !stringPtrEqual(existing.AttioOwnerWorkspaceMemberID, incoming.AttioOwnerWorkspaceMemberID) {
		return true
	}
	if incoming.AEProfileID != nil {
		if existing.AEProfileID == nil || *existing.AEProfileID != *incoming.AEProfileID {
			return true
		}
	}
	return false
}

func stringPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (r *repository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*dealdomain.Deal, error) {
	var deal dealdomain.Deal
	err := db.WithContext(ctx).First(&deal, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &deal, nil
}

func (r *repository) List(ctx context.Context, db *gorm.DB, filter dealdomain.ListFilter) ([]dealdomain.Deal, error) {
	query := db.WithContext(ctx).Model(&dealdomain.Deal{})
	if filter.AEProfileID != nil {
		query = query.Where("ae_profile_id = ?", *filter.AEProfileID)
	}
	if filter.WonOnly {
		query = query.Where("LOWER(status) LIKE ?", "%won%")
	}
	if filter.From != nil {
		query = query.Where("close_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("close_date <= ?", *filter.To)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var deals []dealdomain.Deal
	err := query.Order("close_date DESC").Find(&deals).Error
	return deals, err
}

func (r *repository) UpdateAppliedBonusRules(ctx context.Context, db *gorm.DB, id snowflake.ID, ruleIDs []string) error {
	return db.WithContext(ctx).Model(&dealdomain.Deal{}).
		Where("id = ?", id).
		Update("applied_bonus_rule_ids", ruleIDs).Error
}

func (r *repository) ReassignOwner(ctx context.Context, db *gorm.DB, memberID string, profileID snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Model(&dealdomain.Deal{}).
		Where("attio_owner_workspace_member_id = ?", memberID).
		Where("ae_profile_id IS NULL OR ae_profile_id <> ?", profileID).
		Update("ae_profile_id", profileID)
	return res.RowsAffected, res.Error
}

func (r *repository) DeleteNonWon(ctx context.Context, db *gorm.DB) (int64, error) {
	res := db.WithContext(ctx).
		Where("LOWER(status) NOT LIKE ?", "%won%").
		Delete(&dealdomain.Deal{})
	return res.RowsAffected, res.Error
}
